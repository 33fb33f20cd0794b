/*
Package engine decides whether a supervised session is Locked, Unlocked, or
Unlockable at any queried instant.

PURPOSE:
  Three independent constraint sources feed the decision:
  - Requirements: named daily obligations with due times. Once due and
    incomplete, they force Locked until completed.
  - Locked time ranges: daily recurring intervals that force Locked.
  - Break timer: a work/break hysteresis cycle gating whether free unlocked
    time is currently available.

KEY CONCEPTS IN THIS FILE (types.go):
  - State: the three-way session state
  - Reason: tagged explanation for the state (which source caused it)
  - Requirement / TimeRange: the day's constraint instances
  - CurrentInfo: the fully derived, versioned read model

DESIGN PRINCIPLES:
  1. Derived, never stored: CurrentInfo is recomputed from constraint state
     on every query; equality by value drives the cache version counter.
  2. Closed sums: State and Reason are closed enumerations; every consumer
     switches exhaustively over them.
  3. Pure core: every operation is a function of (state, supplied instant).
     The engine never reads the wall clock itself.

SEE ALSO:
  - simulator.go: trigger-list state resolution
  - constraints.go: the aggregate owning the day's instances
  - manager.go: caching, versioning, and daily rollover
*/
package engine

// =============================================================================
// STATE - Three-way session state
// =============================================================================

type State string

const (
	// StateUnlocked: a work period is running; no constraint is active.
	StateUnlocked State = "Unlocked"
	// StateLocked: at least one constraint is active, or a break is running.
	StateLocked State = "Locked"
	// StateUnlockable: nothing is active and no work period is running; the
	// session may spend a work credit to unlock.
	StateUnlockable State = "Unlockable"
)

// =============================================================================
// REASON - Tagged explanation for the current state
// =============================================================================

type ReasonKind string

const (
	ReasonBreakTimer        ReasonKind = "BreakTimer"
	ReasonRequirementNotMet ReasonKind = "RequirementNotMet"
	ReasonLockedTimeRange   ReasonKind = "LockedTimeRange"
	ReasonNoConstraints     ReasonKind = "NoConstraints"
)

// Reason names the constraint source behind the current state. ID is set only
// for the requirement and time-range kinds.
type Reason struct {
	Kind ReasonKind `json:"type"`
	ID   uint64     `json:"id,omitempty"`
}

func RequirementReason(id uint64) Reason {
	return Reason{Kind: ReasonRequirementNotMet, ID: id}
}

func TimeRangeReason(id uint64) Reason {
	return Reason{Kind: ReasonLockedTimeRange, ID: id}
}

// =============================================================================
// CONSTRAINT INSTANCES - Recreated from templates at every day rollover
// =============================================================================

// Requirement is one day's instance of a named obligation. Complete flips
// false to true exactly once; instances are replaced wholesale at rollover.
type Requirement struct {
	ID       uint64  `json:"id"`
	Name     string  `json:"name"`
	Due      Instant `json:"due"`
	Complete bool    `json:"complete"`
}

// TimeRange is one day's instance of a locked interval. A nil bound means
// unbounded in that direction: nil Start locks from the start of the day,
// nil End locks through the end of the day.
type TimeRange struct {
	ID    uint64   `json:"id"`
	Start *Instant `json:"start"`
	End   *Instant `json:"end"`
}

func (r TimeRange) equal(other TimeRange) bool {
	return r.ID == other.ID &&
		instantPtrEqual(r.Start, other.Start) &&
		instantPtrEqual(r.End, other.End)
}

// =============================================================================
// CURRENT INFO - The derived snapshot clients poll for
// =============================================================================

// CurrentInfo is the full read model of the session at one instant. Until is
// a prediction hint: the earliest future instant at which the state may
// change. Callers must re-query at or after it; the value itself changes
// nothing.
type CurrentInfo struct {
	State            State         `json:"state"`
	Until            *Instant      `json:"until"`
	Reason           Reason        `json:"reason"`
	LockedTimeRanges []TimeRange   `json:"locked_time_ranges"`
	Requirements     []Requirement `json:"requirements"`
	DeactivatedUntil *Instant      `json:"deactivated_until"`
	// Enforcing reports whether restriction behavior should be applied right
	// now: false only when the state is Unlocked or a deactivation override
	// is active.
	Enforcing bool `json:"enforcing"`
}

// Equal compares two snapshots by value. The manager bumps its cache version
// exactly when this returns false against the previous snapshot.
func (ci CurrentInfo) Equal(other CurrentInfo) bool {
	if ci.State != other.State ||
		ci.Reason != other.Reason ||
		ci.Enforcing != other.Enforcing ||
		!instantPtrEqual(ci.Until, other.Until) ||
		!instantPtrEqual(ci.DeactivatedUntil, other.DeactivatedUntil) {
		return false
	}
	if len(ci.LockedTimeRanges) != len(other.LockedTimeRanges) ||
		len(ci.Requirements) != len(other.Requirements) {
		return false
	}
	for i, r := range ci.LockedTimeRanges {
		if !r.equal(other.LockedTimeRanges[i]) {
			return false
		}
	}
	for i, req := range ci.Requirements {
		if req != other.Requirements[i] {
			return false
		}
	}
	return true
}

func instantPtrEqual(a, b *Instant) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
