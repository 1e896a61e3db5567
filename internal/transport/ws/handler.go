package ws

import (
	"context"
	"net/http"
	"strings"
	"time"

	jww "github.com/spf13/jwalterweatherman"
	"github.com/vedran77/parley/internal/domain"
	"go.uber.org/ratelimit"
	"nhooyr.io/websocket"
)

// Authenticator resolves a bearer token to an existing user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.User, error)
}

type HandlerConfig struct {
	// OriginPatterns restricts browser origins; empty allows any origin.
	OriginPatterns []string
	// RateLimit is the number of inbound events per second per connection.
	// Zero disables limiting.
	RateLimit int
	// SendBuffer is the outbound frame queue length per connection.
	SendBuffer int
}

// ServeWS returns an HTTP handler that authenticates the caller and upgrades
// to WebSocket. The token comes from the Authorization header or, for
// browsers that cannot set headers, the token query parameter.
func ServeWS(hub *Hub, router *Router, auth Authenticator, cfg HandlerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenStr := bearerToken(r)
		if tokenStr == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}

		authCtx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		user, err := auth.Authenticate(authCtx, tokenStr)
		cancel()
		if err != nil {
			jww.DEBUG.Printf("[WS] rejected handshake: %v", err)
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		opts := &websocket.AcceptOptions{OriginPatterns: cfg.OriginPatterns}
		if len(cfg.OriginPatterns) == 0 {
			opts.InsecureSkipVerify = true
		}
		conn, err := websocket.Accept(w, r, opts)
		if err != nil {
			jww.WARN.Printf("[WS] accept error: %v", err)
			return
		}
		conn.SetReadLimit(maxMessageSize)

		var limiter ratelimit.Limiter
		if cfg.RateLimit > 0 {
			limiter = ratelimit.New(cfg.RateLimit, ratelimit.WithoutSlack)
		}

		client := NewClient(hub, router, conn, user.ID, limiter, cfg.SendBuffer)
		hub.Connect(r.Context(), client)

		go client.WritePump()
		client.ReadPump(context.Background())
	}
}

func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return r.URL.Query().Get("token")
}
