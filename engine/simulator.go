/*
simulator.go - Trigger-list state resolution

PURPOSE:
  Merges the timestamped lock/unlock triggers of all three constraint sources
  into one instantaneous (state, reason, until) answer. The trigger list is
  rebuilt from scratch on every query; nothing here persists between calls.

ALGORITHM:
  1. Callers push triggers in fixed category priority order: requirements
     first, then time ranges, then the break timer. Within a category,
     triggers follow the source list order.
  2. A category is active at T if T falls inside one of its lock intervals.
     A lock trigger with no later unlock counts as active for all T at or
     after it.
  3. The first active category (in priority order) decides state and reason;
     within a category, the first active source (in push order) is "the"
     reason. Two triggers at the same timestamp therefore resolve by
     category priority, then push order - never by map iteration order.
  4. Until is the smallest trigger timestamp strictly greater than T, across
     all categories. It is a prediction hint only: re-query at that instant
     to observe the new state.

SEE ALSO:
  - constraints.go: Builds the trigger set each query
*/
package engine

// =============================================================================
// TRIGGERS
// =============================================================================

type TriggerKind int

const (
	// TriggerRequirementLocked: an incomplete requirement came due. There is
	// no matching unlock; completion removes the source from the next build.
	TriggerRequirementLocked TriggerKind = iota
	// TriggerRangeLocked / TriggerRangeUnlocked: a locked time range began
	// or ended.
	TriggerRangeLocked
	TriggerRangeUnlocked
	// TriggerTimerLocked: the break timer entered (or will enter) a break.
	TriggerTimerLocked
	// TriggerTimerUnlockable: the break timer's break ended.
	TriggerTimerUnlockable
)

// Trigger is one timestamped state change from a single constraint source.
// ID identifies the requirement or range; it is unused for timer triggers.
type Trigger struct {
	Kind TriggerKind
	ID   uint64
	Time Instant
}

// =============================================================================
// SIMULATOR
// =============================================================================

// Simulator accumulates one query's triggers and resolves them at an instant.
// Push order is semantically meaningful; see the package comment.
type Simulator struct {
	triggers []Trigger
}

func NewSimulator() *Simulator {
	return &Simulator{}
}

func (s *Simulator) Push(t Trigger) {
	s.triggers = append(s.triggers, t)
}

// Result is the resolved instantaneous answer.
type Result struct {
	State  State
	Reason Reason
	Until  *Instant
}

// Run resolves the combined state at now.
func (s *Simulator) Run(now Instant) Result {
	result := Result{
		State:  StateUnlockable,
		Reason: Reason{Kind: ReasonNoConstraints},
		Until:  s.nextChange(now),
	}

	if id, ok := s.activeRequirement(now); ok {
		result.State = StateLocked
		result.Reason = RequirementReason(id)
		return result
	}
	if id, ok := s.activeRange(now); ok {
		result.State = StateLocked
		result.Reason = TimeRangeReason(id)
		return result
	}

	switch s.timerStateAt(now) {
	case TimerLocked:
		result.State = StateLocked
		result.Reason = Reason{Kind: ReasonBreakTimer}
	case TimerUnlocked:
		result.State = StateUnlocked
		result.Reason = Reason{Kind: ReasonNoConstraints}
	}
	return result
}

// activeRequirement returns the first requirement already due at now.
func (s *Simulator) activeRequirement(now Instant) (uint64, bool) {
	for _, t := range s.triggers {
		if t.Kind == TriggerRequirementLocked && now.AtOrAfter(t.Time) {
			return t.ID, true
		}
	}
	return 0, false
}

// activeRange returns the first range whose lock interval contains now. The
// interval is half-open: active at its start, inactive at its end.
func (s *Simulator) activeRange(now Instant) (uint64, bool) {
	type span struct {
		id      uint64
		started bool
		ended   bool
	}
	var spans []span
	index := make(map[uint64]int)

	for _, t := range s.triggers {
		switch t.Kind {
		case TriggerRangeLocked:
			index[t.ID] = len(spans)
			spans = append(spans, span{id: t.ID, started: now.AtOrAfter(t.Time)})
		case TriggerRangeUnlocked:
			if i, ok := index[t.ID]; ok {
				spans[i].ended = now.AtOrAfter(t.Time)
			}
		}
	}
	for _, sp := range spans {
		if sp.started && !sp.ended {
			return sp.id, true
		}
	}
	return 0, false
}

// timerStateAt reconstructs the break timer's phase at now from its pushed
// triggers. No timer trigger at or before now means a work period is still
// running (the Unlocked phase contributes only its future lock trigger); no
// timer triggers at all means the timer was Unlockable and stays so.
func (s *Simulator) timerStateAt(now Instant) TimerPhase {
	phase := TimerUnlocked
	seen := false
	for _, t := range s.triggers {
		switch t.Kind {
		case TriggerTimerLocked, TriggerTimerUnlockable:
			seen = true
			if now.AtOrAfter(t.Time) {
				if t.Kind == TriggerTimerLocked {
					phase = TimerLocked
				} else {
					phase = TimerUnlockable
				}
			}
		}
	}
	if !seen {
		return TimerUnlockable
	}
	return phase
}

// nextChange finds the earliest trigger strictly after now, if any.
func (s *Simulator) nextChange(now Instant) *Instant {
	var next *Instant
	for _, t := range s.triggers {
		if t.Time.After(now) && (next == nil || t.Time.Before(*next)) {
			tt := t.Time
			next = &tt
		}
	}
	return next
}
