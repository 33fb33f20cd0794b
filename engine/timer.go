/*
timer.go - Work/break hysteresis timer

PURPOSE:
  Models "spend a finite work credit to earn a finite break" as a three-state
  cycle:

    Unlockable --Unlock--> Unlocked{until = now + work period}
    Unlocked   --Lock----> Locked{until = now + break duration}
    Unlocked   --expiry--> Locked{until = expired until + break duration}
    Locked     --expiry--> Unlockable

  There is no path from Unlockable straight to Locked, and none from Locked
  back to Unlocked: both require passing through the other state. A break can
  only follow a work period, so breaks are never free.

EXPIRY:
  Refresh applies expiries lazily before every read or mutation. The
  Unlocked->Locked expiry anchors the break to the *expired* until, not to
  the refresh instant: a late refresh grants no extra break time. Refresh
  loops to a fixpoint, since one expiry can immediately satisfy the next
  (a refresh far in the future crosses both boundaries at once).

SEE ALSO:
  - simulator.go: Translates the timer phase into triggers
  - constraints.go: Owns the single timer instance
*/
package engine

import "time"

// =============================================================================
// TIMER PHASE
// =============================================================================

type TimerPhase int

const (
	// TimerUnlockable: no work period or break is running.
	TimerUnlockable TimerPhase = iota
	// TimerUnlocked: a work period is running until the deadline.
	TimerUnlocked
	// TimerLocked: a break is running until the deadline.
	TimerLocked
)

func (p TimerPhase) String() string {
	switch p {
	case TimerUnlockable:
		return "Unlockable"
	case TimerUnlocked:
		return "Unlocked"
	case TimerLocked:
		return "Locked"
	default:
		return "Unknown"
	}
}

// =============================================================================
// BREAK TIMER
// =============================================================================

// BreakTimer is the single long-lived hysteresis machine. It survives day
// rollover: a work period started before midnight runs into the next day.
type BreakTimer struct {
	phase TimerPhase
	until Instant // deadline of the running work period or break; unset when Unlockable

	workPeriod    time.Duration
	breakDuration time.Duration
}

// NewBreakTimer starts in the Unlockable phase.
func NewBreakTimer(workPeriod, breakDuration time.Duration) *BreakTimer {
	return &BreakTimer{
		phase:         TimerUnlockable,
		workPeriod:    workPeriod,
		breakDuration: breakDuration,
	}
}

// Refresh applies any expiries that happened at or before now. Idempotent and
// order-independent for non-decreasing instants.
func (bt *BreakTimer) Refresh(now Instant) {
	if bt.phase == TimerUnlocked && now.AtOrAfter(bt.until) {
		bt.phase = TimerLocked
		bt.until = bt.until.Add(bt.breakDuration)
	}
	if bt.phase == TimerLocked && now.AtOrAfter(bt.until) {
		bt.phase = TimerUnlockable
		bt.until = 0
	}
}

// Unlock spends a work credit, starting a work period. Fails unless the
// timer is currently Unlockable.
func (bt *BreakTimer) Unlock(now Instant) error {
	bt.Refresh(now)
	switch bt.phase {
	case TimerUnlockable:
		bt.phase = TimerUnlocked
		bt.until = now.Add(bt.workPeriod)
		return nil
	case TimerLocked:
		return ErrTimerLocked
	default:
		return ErrTimerAlreadyUnlocked
	}
}

// Lock ends the running work period early and starts a break. Fails unless
// the timer is currently Unlocked.
func (bt *BreakTimer) Lock(now Instant) error {
	bt.Refresh(now)
	if bt.phase != TimerUnlocked {
		return ErrTimerNotUnlocked
	}
	bt.phase = TimerLocked
	bt.until = now.Add(bt.breakDuration)
	return nil
}

// Phase returns the current phase without applying expiries. Callers that
// care about wall time must Refresh first.
func (bt *BreakTimer) Phase() TimerPhase {
	return bt.phase
}

// Until returns the deadline of the running work period or break. Only
// meaningful when Phase is Unlocked or Locked.
func (bt *BreakTimer) Until() Instant {
	return bt.until
}
