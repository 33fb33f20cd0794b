package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/focusgate/session-engine/engine"
)

// =============================================================================
// HELPERS
// =============================================================================

func instantPtr(t engine.Instant) *engine.Instant {
	return &t
}

func newConstraints() *engine.Constraints {
	return &engine.Constraints{
		BreakTimer: engine.NewBreakTimer(workPeriod, breakDuration),
	}
}

// =============================================================================
// SNAPSHOT DERIVATION
// =============================================================================

func TestConstraints_SnapshotCopiesInstances(t *testing.T) {
	c := newConstraints()
	c.Requirements = []engine.Requirement{{ID: 1, Name: "review", Due: at(8, 30)}}

	info := c.CurrentInfo(at(7, 0))
	info.Requirements[0].Complete = true

	// Mutating the snapshot must not touch the aggregate.
	assert.False(t, c.Requirements[0].Complete)
}

func TestConstraints_EnforcingFollowsState(t *testing.T) {
	c := newConstraints()

	// Unlockable: enforcing (the session is not free).
	info := c.CurrentInfo(at(9, 0))
	assert.Equal(t, engine.StateUnlockable, info.State)
	assert.True(t, info.Enforcing)

	// Unlocked: not enforcing.
	require.NoError(t, c.BreakTimer.Unlock(at(9, 0)))
	info = c.CurrentInfo(at(9, 1))
	assert.Equal(t, engine.StateUnlocked, info.State)
	assert.False(t, info.Enforcing)
}

func TestConstraints_DeactivationOverridesEnforcing(t *testing.T) {
	// GIVEN: A requirement locking the session
	// WHEN: A deactivation override is active
	// THEN: State stays Locked but enforcing turns false, until the
	//       override expires and is lazily cleared.

	c := newConstraints()
	c.Requirements = []engine.Requirement{{ID: 1, Name: "review", Due: at(8, 0)}}
	c.DeactivatedUntil = instantPtr(at(10, 0))

	info := c.CurrentInfo(at(9, 0))
	assert.Equal(t, engine.StateLocked, info.State)
	assert.False(t, info.Enforcing)
	require.NotNil(t, info.DeactivatedUntil)

	info = c.CurrentInfo(at(10, 0))
	assert.True(t, info.Enforcing)
	assert.Nil(t, info.DeactivatedUntil)
	assert.Nil(t, c.DeactivatedUntil)
}

func TestConstraints_CompletedRequirementStopsLocking(t *testing.T) {
	c := newConstraints()
	c.Requirements = []engine.Requirement{{ID: 1, Name: "review", Due: at(8, 0)}}

	require.Equal(t, engine.StateLocked, c.CurrentInfo(at(9, 0)).State)

	require.NoError(t, c.CompleteRequirement(1))
	info := c.CurrentInfo(at(9, 0))
	assert.Equal(t, engine.StateUnlockable, info.State)
	assert.True(t, info.Requirements[0].Complete)
}

func TestConstraints_OpenRangeBounds(t *testing.T) {
	// Nil start locks from the start of the day; nil end locks through the
	// end of the day.
	c := newConstraints()
	c.LockedTimeRanges = []engine.TimeRange{
		{ID: 1, Start: nil, End: instantPtr(at(4, 30))},
		{ID: 2, Start: instantPtr(at(22, 0)), End: nil},
	}

	info := c.CurrentInfo(at(3, 0))
	assert.Equal(t, engine.TimeRangeReason(1), info.Reason)

	info = c.CurrentInfo(at(12, 0))
	assert.Equal(t, engine.StateUnlockable, info.State)

	info = c.CurrentInfo(at(23, 0))
	assert.Equal(t, engine.TimeRangeReason(2), info.Reason)
}

// =============================================================================
// COMPLETION ERRORS
// =============================================================================

func TestConstraints_CompleteErrors(t *testing.T) {
	c := newConstraints()
	c.Requirements = []engine.Requirement{{ID: 1, Name: "review", Due: at(8, 0)}}

	// Unknown id
	err := c.CompleteRequirement(99)
	assert.ErrorIs(t, err, engine.ErrRequirementNotFound)
	assert.Contains(t, err.Error(), "99")

	// Double completion
	require.NoError(t, c.CompleteRequirement(1))
	err = c.CompleteRequirement(1)
	assert.ErrorIs(t, err, engine.ErrRequirementComplete)

	var reqErr *engine.RequirementError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, uint64(1), reqErr.ID)
}

func TestConstraints_RejectionLeavesStateUntouched(t *testing.T) {
	c := newConstraints()
	c.Requirements = []engine.Requirement{{ID: 1, Name: "review", Due: at(8, 0)}}
	before := c.CurrentInfo(at(9, 0))

	require.Error(t, c.CompleteRequirement(99))

	after := c.CurrentInfo(at(9, 0))
	assert.True(t, before.Equal(after))
}

// =============================================================================
// SNAPSHOT EQUALITY
// =============================================================================

func TestCurrentInfo_Equal(t *testing.T) {
	c := newConstraints()
	c.Requirements = []engine.Requirement{{ID: 1, Name: "review", Due: at(8, 30)}}
	c.LockedTimeRanges = []engine.TimeRange{{ID: 2, Start: instantPtr(at(22, 0)), End: nil}}

	a := c.CurrentInfo(at(7, 0))
	b := c.CurrentInfo(at(7, 0))
	assert.True(t, a.Equal(b))

	// Same state region, same until: still equal at a different instant.
	later := c.CurrentInfo(at(7, 30))
	assert.True(t, a.Equal(later))

	// Crossing the due instant changes state, reason, and until.
	due := c.CurrentInfo(at(8, 30))
	assert.False(t, a.Equal(due))

	// The deactivation override is part of snapshot identity.
	c.DeactivatedUntil = instantPtr(at(9, 0).Add(10 * time.Minute))
	assert.False(t, a.Equal(c.CurrentInfo(at(7, 0))))
}
