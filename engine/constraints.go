/*
constraints.go - The aggregate owning one day's constraint instances

PURPOSE:
  Owns the current day's Requirement and TimeRange instances, the long-lived
  break timer, and the deactivation override. Each query builds a fresh
  trigger set, runs the simulator, and derives the user-visible snapshot.

ENFORCING:
  The derived Enforcing flag answers "should restriction behavior be applied
  right now": false exactly when the combined state is Unlocked or a
  deactivation override has not yet expired. Expired overrides are cleared
  lazily on the next snapshot read.

SEE ALSO:
  - simulator.go: Resolution of the trigger set
  - manager.go: Rollover, caching, and the public operation set
*/
package engine

// Constraints aggregates the three constraint sources for the current day.
// The manager replaces the requirement and range slices at day rollover; the
// break timer instance is never replaced.
type Constraints struct {
	BreakTimer       *BreakTimer
	Requirements     []Requirement
	LockedTimeRanges []TimeRange
	DeactivatedUntil *Instant
}

// CurrentInfo derives the full snapshot at now.
//
// Triggers are pushed in fixed category priority order - requirements, then
// ranges, then the break timer - so that simultaneous triggers resolve to
// the higher-priority reason.
func (c *Constraints) CurrentInfo(now Instant) CurrentInfo {
	c.BreakTimer.Refresh(now)
	if c.DeactivatedUntil != nil && now.AtOrAfter(*c.DeactivatedUntil) {
		c.DeactivatedUntil = nil
	}

	sim := NewSimulator()
	for _, req := range c.Requirements {
		if !req.Complete {
			sim.Push(Trigger{Kind: TriggerRequirementLocked, ID: req.ID, Time: req.Due})
		}
	}
	for _, ltr := range c.LockedTimeRanges {
		start := InstantZero
		if ltr.Start != nil {
			start = *ltr.Start
		}
		sim.Push(Trigger{Kind: TriggerRangeLocked, ID: ltr.ID, Time: start})
		if ltr.End != nil {
			sim.Push(Trigger{Kind: TriggerRangeUnlocked, ID: ltr.ID, Time: *ltr.End})
		}
	}
	switch c.BreakTimer.Phase() {
	case TimerUnlocked:
		sim.Push(Trigger{Kind: TriggerTimerLocked, Time: c.BreakTimer.Until()})
	case TimerLocked:
		sim.Push(Trigger{Kind: TriggerTimerLocked, Time: InstantZero})
		sim.Push(Trigger{Kind: TriggerTimerUnlockable, Time: c.BreakTimer.Until()})
	case TimerUnlockable:
		// contributes nothing
	}

	result := sim.Run(now)
	enforcing := result.State != StateUnlocked && c.DeactivatedUntil == nil

	return CurrentInfo{
		State:            result.State,
		Until:            result.Until,
		Reason:           result.Reason,
		LockedTimeRanges: append([]TimeRange(nil), c.LockedTimeRanges...),
		Requirements:     append([]Requirement(nil), c.Requirements...),
		DeactivatedUntil: c.DeactivatedUntil,
		Enforcing:        enforcing,
	}
}

// CompleteRequirement flips the requirement irreversibly to complete. It is
// excluded from trigger building for the rest of the day.
func (c *Constraints) CompleteRequirement(id uint64) error {
	for i := range c.Requirements {
		if c.Requirements[i].ID == id {
			if c.Requirements[i].Complete {
				return &RequirementError{ID: id, Err: ErrRequirementComplete}
			}
			c.Requirements[i].Complete = true
			return nil
		}
	}
	return &RequirementError{ID: id, Err: ErrRequirementNotFound}
}
