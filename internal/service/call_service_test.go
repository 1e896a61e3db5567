package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/parley/internal/domain"
)

func TestCheckAvailability(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, b := env.createUser(t, "Ana"), env.createUser(t, "Bruno")

	res, err := env.calls.CheckAvailability(ctx, a.ID, uuid.New())
	require.NoError(t, err)
	assert.False(t, res.Available)
	assert.Equal(t, "User not found", res.Message)

	res, err = env.calls.CheckAvailability(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, res.Available)
	assert.Equal(t, "User is not online", res.Message)

	env.presence.set(b.ID, true)
	res, err = env.calls.CheckAvailability(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, res.Available)
	assert.Equal(t, b.ID, res.TargetUserID)
	assert.Empty(t, res.Message)

	_, err = env.blocks.Toggle(ctx, b.ID, a.ID)
	require.NoError(t, err)
	res, err = env.calls.CheckAvailability(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, res.Available)
	assert.Equal(t, "Cannot start call with this user", res.Message)
}

func TestRelayForwardsPayloadUntouched(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, b := env.createUser(t, "Ana"), env.createUser(t, "Bruno")
	env.presence.set(b.ID, true)

	sdp := json.RawMessage(`{"type":"offer","sdp":"v=0"}`)
	require.NoError(t, env.calls.Relay(ctx, domain.CallOffer, a.ID, b.ID, sdp))
	require.NoError(t, env.calls.Relay(ctx, domain.CallICE, a.ID, b.ID, json.RawMessage(`{"candidate":"c1"}`)))

	got := env.notifier.calls[b.ID]
	require.Len(t, got, 2)

	assert.Equal(t, domain.CallOffer, got[0].Kind)
	assert.Equal(t, a.ID, got[0].From)
	assert.Equal(t, "Ana", got[0].FromName)
	assert.JSONEq(t, string(sdp), string(got[0].Payload))

	assert.Equal(t, domain.CallICE, got[1].Kind)
	assert.Empty(t, got[1].FromName)
}

func TestRelayDropsWhenTargetOffline(t *testing.T) {
	env := newTestEnv(t)
	a, b := env.createUser(t, "Ana"), env.createUser(t, "Bruno")

	err := env.calls.Relay(context.Background(), domain.CallEnd, a.ID, b.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, env.notifier.calls)
}
