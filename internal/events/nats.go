package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
)

const (
	DefaultStream        = "PARLEY"
	DefaultSubjectPrefix = "parley"
)

// Envelope is what lands on the stream.
type Envelope struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
	TS      int64           `json:"ts"`
}

type NatsPublisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	prefix string
}

// NewNatsPublisher connects to url and ensures a stream named stream exists
// that captures every subject under the prefix.
func NewNatsPublisher(url, stream string) (*NatsPublisher, error) {
	if stream == "" {
		stream = DefaultStream
	}

	nc, err := nats.Connect(url, nats.Name("parley"))
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to NATS")
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, errors.Wrap(err, "failed to create jetstream context")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := js.Stream(ctx, stream); err != nil {
		jww.INFO.Printf("[EVENTS] Stream '%s' not found, creating", stream)
		_, err = js.CreateStream(ctx, jetstream.StreamConfig{
			Name:        stream,
			Description: "Chat domain events",
			Subjects:    []string{DefaultSubjectPrefix + ".>"},
			MaxAge:      7 * 24 * time.Hour,
			Storage:     jetstream.FileStorage,
		})
		if err != nil {
			nc.Close()
			return nil, errors.Wrapf(err, "failed to create stream '%s'", stream)
		}
	}

	return &NatsPublisher{nc: nc, js: js, prefix: DefaultSubjectPrefix}, nil
}

func (p *NatsPublisher) Publish(ctx context.Context, kind string, payload any) {
	env, err := encodeEnvelope(kind, payload, time.Now())
	if err != nil {
		jww.ERROR.Printf("[EVENTS] encode %s: %v", kind, err)
		return
	}

	subject := p.subject(kind)
	if _, err := p.js.Publish(ctx, subject, env); err != nil {
		jww.WARN.Printf("[EVENTS] publish to %s failed: %v", subject, err)
		return
	}
	jww.TRACE.Printf("[EVENTS] published %s", subject)
}

func (p *NatsPublisher) subject(kind string) string {
	return fmt.Sprintf("%s.%s", p.prefix, kind)
}

func encodeEnvelope(kind string, payload any, at time.Time) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrapf(err, "marshal %s payload", kind)
	}
	return json.Marshal(Envelope{Kind: kind, Payload: data, TS: at.Unix()})
}

func (p *NatsPublisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}
