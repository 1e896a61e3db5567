package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestOrderedPair(t *testing.T) {
	low := uuid.MustParse("0a000000-0000-4000-8000-000000000000")
	high := uuid.MustParse("f0000000-0000-4000-8000-000000000000")

	a, b := OrderedPair(high, low)
	assert.Equal(t, low, a)
	assert.Equal(t, high, b)

	a, b = OrderedPair(low, high)
	assert.Equal(t, low, a)
	assert.Equal(t, high, b)

	assert.Equal(t, PairKey(low, high), PairKey(high, low))
	assert.Equal(t, low.String()+":"+high.String(), PairKey(high, low))
}

func TestOrderedPairMatchesStringOrder(t *testing.T) {
	for j := 0; j < 200; j++ {
		x, y := uuid.New(), uuid.New()
		a, b := OrderedPair(x, y)
		assert.LessOrEqual(t, a.String(), b.String())
	}
}

func TestNewConversationIsCanonical(t *testing.T) {
	x, y := uuid.New(), uuid.New()
	conv := NewConversation(x, y)

	assert.Equal(t, x, conv.SenderID)
	assert.Equal(t, y, conv.ReceiverID)
	low, high := OrderedPair(x, y)
	assert.Equal(t, low, conv.UserLow)
	assert.Equal(t, high, conv.UserHigh)
	assert.Equal(t, y, conv.Counterpart(x))
	assert.Equal(t, x, conv.Counterpart(y))
}
