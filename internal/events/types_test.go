package events

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvent_WithTierDoesNotMutate(t *testing.T) {
	e := NewEvent(TierNotified, "01J0SESSION")
	withTier := e.WithTier(2)

	require.NotNil(t, withTier.Tier)
	assert.Equal(t, 2, *withTier.Tier)
	assert.Nil(t, e.Tier)
}

func TestEvent_WithError(t *testing.T) {
	e := NewEvent(SessionFailed, "s").WithError(errors.New("store down"))
	assert.Equal(t, "store down", e.Error)
	assert.True(t, e.IsFailure())

	assert.Empty(t, NewEvent(SessionStarted, "s").WithError(nil).Error)
}

func TestEvent_IsTerminal(t *testing.T) {
	for _, typ := range []EventType{SessionCancelled, SessionExhausted, SessionFailed} {
		assert.True(t, NewEvent(typ, "s").IsTerminal(), typ)
	}
	for _, typ := range []EventType{SessionStarted, TierNotified, TierArmed, TierProgress} {
		assert.False(t, NewEvent(typ, "s").IsTerminal(), typ)
	}
}

func TestEvent_String(t *testing.T) {
	e := NewEvent(TierArmed, "s1").WithTier(1)
	assert.Equal(t, "[tier.armed] s1 tier=1", e.String())

	f := NewEvent(SessionFailed, "s1").WithError(errors.New("boom"))
	assert.Equal(t, "[session.failed] s1 error=boom", f.String())
}
