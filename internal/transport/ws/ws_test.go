package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/parley/internal/domain"
	"github.com/vedran77/parley/internal/presence"
	"github.com/vedran77/parley/internal/repository/gormstore"
	"github.com/vedran77/parley/internal/service"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const readTimeout = 5 * time.Second

type testServer struct {
	url  string
	auth *service.AuthService
	hub  *Hub
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := gormstore.OpenMemory(uuid.NewString())
	require.NoError(t, err)
	t.Cleanup(func() { _ = gormstore.Close(db) })

	users := gormstore.NewUserRepo(db)
	requests := gormstore.NewRequestRepo(db)
	convs := gormstore.NewConversationRepo(db)

	hub := NewHub(presence.NewRegistry(), users)
	notifier := NewHubNotifier(hub)

	sidebar := service.NewSidebarService(users, requests, convs, hub)
	sidebar.SetNotifier(notifier)
	gate := service.NewMessageGate(users, requests, convs, sidebar)
	gate.SetNotifier(notifier)
	blocks := service.NewBlockService(users)
	blocks.SetNotifier(notifier)
	seen := service.NewSeenService(convs, sidebar)
	seen.SetNotifier(notifier)
	calls := service.NewCallService(users, hub)
	calls.SetNotifier(notifier)
	peers := service.NewPeerService(users, requests, convs, hub)

	router := NewRouter(Services{
		Gate:    gate,
		Blocks:  blocks,
		Sidebar: sidebar,
		Seen:    seen,
		Calls:   calls,
		Peers:   peers,
	}, time.Second)

	auth := service.NewAuthService(users, "ws-test-secret", time.Hour)
	srv := httptest.NewServer(ServeWS(hub, router, auth, HandlerConfig{}))
	t.Cleanup(srv.Close)

	return &testServer{url: "ws" + strings.TrimPrefix(srv.URL, "http"), auth: auth, hub: hub}
}

func (s *testServer) register(t *testing.T, name string) (uuid.UUID, string) {
	t.Helper()
	resp, err := s.auth.Register(context.Background(), service.RegisterInput{
		Name:     name,
		Email:    strings.ToLower(name) + "@example.com",
		Password: "Secret123",
	})
	require.NoError(t, err)
	return resp.User.ID, resp.AccessToken
}

func (s *testServer) dial(t *testing.T, token string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), readTimeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, s.url, &websocket.DialOptions{
		HTTPHeader: http.Header{"Authorization": []string{"Bearer " + token}},
	})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, id, eventType string, payload any) {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), readTimeout)
	defer cancel()
	require.NoError(t, wsjson.Write(ctx, conn, Event{Type: eventType, ID: id, Payload: data}))
}

func writeRaw(t *testing.T, conn *websocket.Conn, frame string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), readTimeout)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(frame)))
}

// expect reads until an event of eventType arrives, skipping others.
func expect(t *testing.T, conn *websocket.Conn, eventType string) Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), readTimeout)
	defer cancel()

	for {
		var evt Event
		require.NoError(t, wsjson.Read(ctx, conn, &evt), "waiting for %s", eventType)
		if evt.Type == eventType {
			return evt
		}
	}
}

// awaitOnline blocks until conn sees an online set containing every id.
func awaitOnline(t *testing.T, conn *websocket.Conn, ids ...uuid.UUID) {
	t.Helper()
	for {
		evt := expect(t, conn, EventTypeOnlineUser)
		var online []uuid.UUID
		require.NoError(t, json.Unmarshal(evt.Payload, &online))
		if containsAll(online, ids) {
			return
		}
	}
}

func containsAll(set, ids []uuid.UUID) bool {
	for _, id := range ids {
		found := false
		for _, s := range set {
			if s == id {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func TestHandshakeRequiresToken(t *testing.T) {
	srv := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), readTimeout)
	defer cancel()

	_, resp, err := websocket.Dial(ctx, srv.url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.Dial(ctx, srv.url+"?token=bogus", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRequestAcceptFlow(t *testing.T) {
	srv := newTestServer(t)
	aID, aTok := srv.register(t, "Ana")
	bID, bTok := srv.register(t, "Bruno")

	a := srv.dial(t, aTok)
	b := srv.dial(t, bTok)
	awaitOnline(t, a, aID, bID)
	awaitOnline(t, b, aID, bID)

	send(t, a, "m1", EventTypeNewMessage, map[string]any{"receiver": bID, "text": "hi"})

	ack := expect(t, a, EventTypeAck)
	assert.Equal(t, "m1", ack.Ref)
	var ackPayload AckPayload
	require.NoError(t, json.Unmarshal(ack.Payload, &ackPayload))
	assert.Equal(t, service.SubmitPending, ackPayload.Status)
	require.NotNil(t, ackPayload.Request)

	incoming := expect(t, b, EventTypeNewRequest)
	var req NewRequestPayload
	require.NoError(t, json.Unmarshal(incoming.Payload, &req))
	assert.Equal(t, "hi", req.Request.FirstMessage.Text)
	assert.Equal(t, aID, req.Request.SenderID)

	send(t, b, "d1", EventTypeHandleRequest, map[string]any{"requestId": req.Request.ID, "action": "accept"})

	for _, conn := range []*websocket.Conn{a, b} {
		handled := expect(t, conn, EventTypeRequestHandled)
		var hp RequestHandledPayload
		require.NoError(t, json.Unmarshal(handled.Payload, &hp))
		assert.Equal(t, domain.RequestAccepted, hp.Action)

		msgs := expect(t, conn, EventTypeMessage)
		var mp MessagesPayload
		require.NoError(t, json.Unmarshal(msgs.Payload, &mp))
		require.Len(t, mp.Messages, 1)
		assert.Equal(t, "hi", mp.Messages[0].Text)
	}

	send(t, b, "s1", EventTypeSidebar, map[string]any{"userId": bID})
	sidebar := expect(t, b, EventTypeConversation)
	for sidebar.Ref != "s1" {
		sidebar = expect(t, b, EventTypeConversation)
	}
	var entries []domain.SidebarEntry
	require.NoError(t, json.Unmarshal(sidebar.Payload, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, aID, entries[0].Counterpart.ID)
	assert.Equal(t, 1, entries[0].UnseenCount)
}

func TestErrorsAreCorrelated(t *testing.T) {
	srv := newTestServer(t)
	aID, aTok := srv.register(t, "Ana")
	a := srv.dial(t, aTok)

	cases := []struct {
		name      string
		eventType string
		payload   any
		raw       string
		errorType string
	}{
		{"self message", EventTypeNewMessage, map[string]any{"receiver": aID, "text": "me"}, "", service.CodeInvalidTarget},
		{"empty message", EventTypeNewMessage, map[string]any{"receiver": uuid.New()}, "", service.CodeInvalidPayload},
		{"spoofed sender", EventTypeNewMessage, map[string]any{"sender": uuid.New(), "receiver": uuid.New(), "text": "x"}, "", service.CodeNotAuthorized},
		{"unknown receiver", EventTypeNewMessage, map[string]any{"receiver": uuid.New(), "text": "x"}, "", service.CodeNotFound},
		{"missing target", EventTypeToggleBlock, map[string]any{}, "", service.CodeInvalidPayload},
		{"unknown request", EventTypeHandleRequest, map[string]any{"requestId": uuid.New(), "action": "accept"}, "", service.CodeNotFound},
		{"unknown event", "dance", map[string]any{}, "", CodeUnknownEvent},
		{"non-string type", "", nil, `{"type":5,"id":%q}`, service.CodeInvalidPayload},
	}

	for i, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			id := uuid.NewString()
			if tc.raw != "" {
				writeRaw(t, a, fmt.Sprintf(tc.raw, id))
			} else {
				send(t, a, id, tc.eventType, tc.payload)
			}

			evt := expect(t, a, EventTypeMessageError)
			assert.Equal(t, id, evt.Ref, "case %d", i)
			var ep ErrorPayload
			require.NoError(t, json.Unmarshal(evt.Payload, &ep))
			assert.Equal(t, tc.errorType, ep.ErrorType)
			assert.NotEmpty(t, ep.Message)
		})
	}
}

func TestMalformedFrameKeepsConnection(t *testing.T) {
	srv := newTestServer(t)
	aID, aTok := srv.register(t, "Ana")
	bID, bTok := srv.register(t, "Bruno")

	a := srv.dial(t, aTok)
	b := srv.dial(t, bTok)
	awaitOnline(t, b, aID, bID)

	writeRaw(t, a, "definitely not json")
	evt := expect(t, a, EventTypeMessageError)
	assert.Empty(t, evt.Ref)
	var ep ErrorPayload
	require.NoError(t, json.Unmarshal(evt.Payload, &ep))
	assert.Equal(t, service.CodeInvalidPayload, ep.ErrorType)

	send(t, a, "p1", EventTypePing, nil)
	pong := expect(t, a, EventTypePong)
	assert.Equal(t, "p1", pong.Ref)

	assert.True(t, srv.hub.IsOnline(aID))
}

func TestNewerConnectionReplacesOlder(t *testing.T) {
	srv := newTestServer(t)
	aID, aTok := srv.register(t, "Ana")

	first := srv.dial(t, aTok)
	awaitOnline(t, first, aID)
	second := srv.dial(t, aTok)

	ctx, cancel := context.WithTimeout(context.Background(), readTimeout)
	defer cancel()
	var err error
	for err == nil {
		var evt Event
		err = wsjson.Read(ctx, first, &evt)
	}
	assert.Equal(t, websocket.StatusPolicyViolation, websocket.CloseStatus(err))

	send(t, second, "p1", EventTypePing, nil)
	assert.Equal(t, "p1", expect(t, second, EventTypePong).Ref)
	assert.True(t, srv.hub.IsOnline(aID))
}

func TestMessagePageAndCallRelay(t *testing.T) {
	srv := newTestServer(t)
	aID, aTok := srv.register(t, "Ana")
	bID, bTok := srv.register(t, "Bruno")

	a := srv.dial(t, aTok)
	b := srv.dial(t, bTok)
	awaitOnline(t, a, aID, bID)

	send(t, a, "p1", EventTypeMessagePage, map[string]any{"targetUserId": bID})
	page := expect(t, a, EventTypeMessageUser)
	assert.Equal(t, "p1", page.Ref)
	var peer domain.PeerPage
	require.NoError(t, json.Unmarshal(page.Payload, &peer))
	assert.Equal(t, "Bruno", peer.Name)
	assert.True(t, peer.Online)
	assert.False(t, peer.IsDeleted)

	send(t, a, "c1", EventTypeCheckAvailability, map[string]any{"targetUserId": bID})
	avail := expect(t, a, EventTypeAvailability)
	var av domain.Availability
	require.NoError(t, json.Unmarshal(avail.Payload, &av))
	assert.True(t, av.Available)

	send(t, a, "", EventTypeCallOffer, map[string]any{"targetUserId": bID, "offer": map[string]string{"sdp": "v=0"}})
	offer := expect(t, b, EventTypeCallIncoming)
	var op CallIncomingPayload
	require.NoError(t, json.Unmarshal(offer.Payload, &op))
	assert.Equal(t, "Ana", op.UserName)
	assert.JSONEq(t, `{"sdp":"v=0"}`, string(op.Offer))

	send(t, a, "", EventTypeEndCall, map[string]any{"targetUserId": bID})
	expect(t, b, EventTypeCallEnded)
}
