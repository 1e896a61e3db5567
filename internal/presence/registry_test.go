package presence

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeHandle struct {
	name string
}

func (f *fakeHandle) Send([]byte) bool { return true }

func TestRegistry_LastConnectionWins(t *testing.T) {
	r := NewRegistry()
	user := uuid.New()
	first := &fakeHandle{name: "first"}
	second := &fakeHandle{name: "second"}

	require.Nil(t, r.Register(user, first))
	prev := r.Register(user, second)
	require.Same(t, first, prev)

	h, ok := r.Lookup(user)
	require.True(t, ok)
	require.Same(t, second, h)
	require.Equal(t, 1, r.Len())
}

func TestRegistry_StaleUnregisterKeepsSuccessor(t *testing.T) {
	r := NewRegistry()
	user := uuid.New()
	old := &fakeHandle{}
	cur := &fakeHandle{}

	r.Register(user, old)
	r.Register(user, cur)

	require.False(t, r.Unregister(user, old))
	require.True(t, r.IsOnline(user))

	require.True(t, r.Unregister(user, cur))
	require.False(t, r.IsOnline(user))
	require.False(t, r.Unregister(user, cur))
}

func TestRegistry_SnapshotSorted(t *testing.T) {
	r := NewRegistry()
	for j := 0; j < 5; j++ {
		r.Register(uuid.New(), &fakeHandle{})
	}

	ids := r.Snapshot()
	require.Len(t, ids, 5)
	for i := 1; i < len(ids); i++ {
		require.Less(t, ids[i-1].String(), ids[i].String())
	}
	require.Len(t, r.Handles(), 5)
}

func TestRegistry_Concurrent(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	users := make([]uuid.UUID, 50)
	for i := range users {
		users[i] = uuid.New()
	}

	for _, u := range users {
		u := u
		wg.Add(1)
		go func() {
			defer wg.Done()
			h := &fakeHandle{}
			r.Register(u, h)
			_ = r.Snapshot()
			r.Unregister(u, h)
		}()
	}
	wg.Wait()

	require.Zero(t, r.Len())
}
