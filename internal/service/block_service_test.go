package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/parley/internal/events"
)

func TestToggleBlockFlipsAndNotifiesBothSides(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, b := env.createUser(t, "Ana"), env.createUser(t, "Bruno")

	blocked, err := env.blocks.Toggle(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, blocked)

	rel, err := env.blocks.Relation(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, rel.IsBlocked)
	assert.False(t, rel.IsBlockedBy)

	rel, err = env.blocks.Relation(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.False(t, rel.IsBlocked)
	assert.True(t, rel.IsBlockedBy)

	require.Len(t, env.notifier.blocks[b.ID], 1)
	toTarget := env.notifier.blocks[b.ID][0]
	assert.Equal(t, a.ID, toTarget.TargetUserID)
	require.NotNil(t, toTarget.IsBlockedBy)
	assert.True(t, *toTarget.IsBlockedBy)
	assert.Nil(t, toTarget.IsBlocked)

	require.Len(t, env.notifier.blocks[a.ID], 1)
	toActor := env.notifier.blocks[a.ID][0]
	assert.Equal(t, b.ID, toActor.TargetUserID)
	require.NotNil(t, toActor.IsBlocked)
	assert.True(t, *toActor.IsBlocked)

	blocked, err = env.blocks.Toggle(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, blocked)

	rel, err = env.blocks.Relation(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, rel.Either())

	assert.Equal(t, []string{events.BlockToggled, events.BlockToggled}, env.publisher.kinds())
}

func TestUnblockRestoresMessaging(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, b := env.createUser(t, "Ana"), env.createUser(t, "Bruno")
	env.establish(t, a, b)

	_, err := env.blocks.Toggle(ctx, b.ID, a.ID)
	require.NoError(t, err)
	_, err = env.gate.Submit(ctx, a.ID, b.ID, text("hi"))
	require.ErrorIs(t, err, ErrBlocked)

	_, err = env.blocks.Toggle(ctx, b.ID, a.ID)
	require.NoError(t, err)
	res, err := env.gate.Submit(ctx, a.ID, b.ID, text("hi"))
	require.NoError(t, err)
	assert.Equal(t, SubmitDelivered, res.Status)
}

func TestToggleBlockErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.createUser(t, "Ana")

	_, err := env.blocks.Toggle(ctx, a.ID, a.ID)
	assert.ErrorIs(t, err, ErrCannotBlockSelf)

	_, err = env.blocks.Toggle(ctx, a.ID, uuid.New())
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.Empty(t, env.notifier.blocks)
}
