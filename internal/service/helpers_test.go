package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/parley/internal/domain"
	"github.com/vedran77/parley/internal/repository/gormstore"
)

type messagesPush struct {
	WithUserID     uuid.UUID
	ConversationID uuid.UUID
	Messages       []domain.Message
}

type handledPush struct {
	RequestID uuid.UUID
	Action    domain.RequestStatus
}

// recordingNotifier keeps every push per recipient.
type recordingNotifier struct {
	mu            sync.Mutex
	messages      map[uuid.UUID][]messagesPush
	newRequests   map[uuid.UUID][]*domain.MessageRequest
	requests      map[uuid.UUID][][]domain.MessageRequest
	handled       map[uuid.UUID][]handledPush
	conversations map[uuid.UUID][][]domain.SidebarEntry
	blocks        map[uuid.UUID][]domain.BlockUpdate
	calls         map[uuid.UUID][]domain.CallSignal
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{
		messages:      make(map[uuid.UUID][]messagesPush),
		newRequests:   make(map[uuid.UUID][]*domain.MessageRequest),
		requests:      make(map[uuid.UUID][][]domain.MessageRequest),
		handled:       make(map[uuid.UUID][]handledPush),
		conversations: make(map[uuid.UUID][][]domain.SidebarEntry),
		blocks:        make(map[uuid.UUID][]domain.BlockUpdate),
		calls:         make(map[uuid.UUID][]domain.CallSignal),
	}
}

func (n *recordingNotifier) NotifyMessages(userID, withUserID, conversationID uuid.UUID, messages []domain.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages[userID] = append(n.messages[userID], messagesPush{withUserID, conversationID, messages})
}

func (n *recordingNotifier) NotifyNewRequest(userID uuid.UUID, req *domain.MessageRequest) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.newRequests[userID] = append(n.newRequests[userID], req)
}

func (n *recordingNotifier) NotifyRequests(userID uuid.UUID, reqs []domain.MessageRequest) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.requests[userID] = append(n.requests[userID], reqs)
}

func (n *recordingNotifier) NotifyRequestHandled(userID, requestID uuid.UUID, action domain.RequestStatus) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handled[userID] = append(n.handled[userID], handledPush{requestID, action})
}

func (n *recordingNotifier) NotifyConversations(userID uuid.UUID, entries []domain.SidebarEntry) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.conversations[userID] = append(n.conversations[userID], entries)
}

func (n *recordingNotifier) NotifyBlockStatus(userID uuid.UUID, update domain.BlockUpdate) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.blocks[userID] = append(n.blocks[userID], update)
}

func (n *recordingNotifier) NotifyCall(userID uuid.UUID, signal domain.CallSignal) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls[userID] = append(n.calls[userID], signal)
}

func (n *recordingNotifier) lastMessages(userID uuid.UUID) (messagesPush, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	pushes := n.messages[userID]
	if len(pushes) == 0 {
		return messagesPush{}, false
	}
	return pushes[len(pushes)-1], true
}

func (n *recordingNotifier) lastSidebar(userID uuid.UUID) ([]domain.SidebarEntry, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	pushes := n.conversations[userID]
	if len(pushes) == 0 {
		return nil, false
	}
	return pushes[len(pushes)-1], true
}

type fakePresence struct {
	mu     sync.Mutex
	online map[uuid.UUID]bool
}

func newFakePresence(ids ...uuid.UUID) *fakePresence {
	p := &fakePresence{online: make(map[uuid.UUID]bool)}
	for _, id := range ids {
		p.online[id] = true
	}
	return p
}

func (p *fakePresence) IsOnline(userID uuid.UUID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online[userID]
}

func (p *fakePresence) set(userID uuid.UUID, online bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.online[userID] = online
}

type publishedEvent struct {
	Kind    string
	Payload any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, kind string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{kind, payload})
}

func (p *recordingPublisher) kinds() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Kind)
	}
	return out
}

// testEnv is a fully wired set of services over a private in-memory store.
type testEnv struct {
	users    *gormstore.UserRepo
	requests *gormstore.RequestRepo
	convs    *gormstore.ConversationRepo

	presence  *fakePresence
	notifier  *recordingNotifier
	publisher *recordingPublisher

	sidebar *SidebarService
	gate    *MessageGate
	blocks  *BlockService
	seen    *SeenService
	calls   *CallService
	peers   *PeerService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gormstore.OpenMemory(uuid.NewString())
	require.NoError(t, err)
	t.Cleanup(func() { _ = gormstore.Close(db) })

	env := &testEnv{
		users:     gormstore.NewUserRepo(db),
		requests:  gormstore.NewRequestRepo(db),
		convs:     gormstore.NewConversationRepo(db),
		presence:  newFakePresence(),
		notifier:  newRecordingNotifier(),
		publisher: &recordingPublisher{},
	}

	env.sidebar = NewSidebarService(env.users, env.requests, env.convs, env.presence)
	env.sidebar.SetNotifier(env.notifier)

	env.gate = NewMessageGate(env.users, env.requests, env.convs, env.sidebar)
	env.gate.SetNotifier(env.notifier)
	env.gate.SetPublisher(env.publisher)

	env.blocks = NewBlockService(env.users)
	env.blocks.SetNotifier(env.notifier)
	env.blocks.SetPublisher(env.publisher)

	env.seen = NewSeenService(env.convs, env.sidebar)
	env.seen.SetNotifier(env.notifier)

	env.calls = NewCallService(env.users, env.presence)
	env.calls.SetNotifier(env.notifier)

	env.peers = NewPeerService(env.users, env.requests, env.convs, env.presence)
	return env
}

func (e *testEnv) createUser(t *testing.T, name string) *domain.User {
	t.Helper()
	now := time.Now().UTC()
	u := &domain.User{
		ID:        uuid.New(),
		Name:      name,
		Email:     strings.ToLower(name) + "-" + uuid.NewString()[:8] + "@example.com",
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, e.users.Create(context.Background(), u))
	return u
}

// establish opens and accepts a request from a to b.
func (e *testEnv) establish(t *testing.T, a, b *domain.User) *domain.Conversation {
	t.Helper()
	ctx := context.Background()

	res, err := e.gate.Submit(ctx, a.ID, b.ID, text("hello"))
	require.NoError(t, err)
	require.Equal(t, SubmitPending, res.Status)

	_, err = e.gate.Decide(ctx, b.ID, res.Request.ID, DecisionAccept)
	require.NoError(t, err)

	conv, err := e.convs.GetBetween(ctx, a.ID, b.ID)
	require.NoError(t, err)
	require.NotNil(t, conv)
	return conv
}

func text(s string) domain.MessageContent {
	return domain.MessageContent{Text: s}
}
