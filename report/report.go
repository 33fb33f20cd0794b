/*
Package report summarizes one day of journal history.

PURPOSE:
  Turns the raw transition and completion rows into the numbers a status UI
  wants: how long the session spent in each state today, what share of the
  day was locked, and how many of today's requirements are done.

ARITHMETIC:
  Shares and rates are computed with decimal arithmetic and rounded to four
  places, so 1/3 of a day reports as 0.3333 rather than a float artifact.

SEE ALSO:
  - store/sqlite: Row source
  - api/handlers.go: GET /api/report/today
*/
package report

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/focusgate/session-engine/engine"
	"github.com/focusgate/session-engine/store/sqlite"
)

// DailyReport is the summary for one day up to the query instant.
type DailyReport struct {
	From engine.Instant `json:"from"`
	To   engine.Instant `json:"to"`

	// Seconds spent in each state between From and To.
	LockedSeconds     int64 `json:"locked_seconds"`
	UnlockedSeconds   int64 `json:"unlocked_seconds"`
	UnlockableSeconds int64 `json:"unlockable_seconds"`

	// LockedShare is LockedSeconds over the observed span, 0 when nothing
	// was observed yet.
	LockedShare decimal.Decimal `json:"locked_share"`

	Completions []sqlite.CompletionRecord `json:"completions"`
	// CompletionRate is completed requirements over total requirements in
	// the current snapshot, 1 when the day has no requirements.
	CompletionRate decimal.Decimal `json:"completion_rate"`

	Transitions int `json:"transitions"`
}

const shareScale = 4

// Build integrates the day's transitions from `from` to `to` and folds in
// the completion rows and the current snapshot's requirement tally.
//
// The state before the first transition of the day is taken from that
// transition itself, since a transition row records the state entered at its
// instant; time before the first row is attributed to no state.
func Build(transitions []sqlite.TransitionRecord, completions []sqlite.CompletionRecord,
	info engine.CurrentInfo, from, to engine.Instant) DailyReport {

	rep := DailyReport{
		From:           from,
		To:             to,
		Completions:    completions,
		Transitions:    len(transitions),
		LockedShare:    decimal.Zero,
		CompletionRate: decimal.NewFromInt(1),
	}

	for i, tr := range transitions {
		start := tr.At
		if start.Before(from) {
			start = from
		}
		end := to
		if i+1 < len(transitions) && transitions[i+1].At.Before(to) {
			end = transitions[i+1].At
		}
		if end.Before(start) {
			continue
		}
		seconds := int64(end) - int64(start)
		switch tr.State {
		case engine.StateLocked:
			rep.LockedSeconds += seconds
		case engine.StateUnlocked:
			rep.UnlockedSeconds += seconds
		case engine.StateUnlockable:
			rep.UnlockableSeconds += seconds
		}
	}

	observed := rep.LockedSeconds + rep.UnlockedSeconds + rep.UnlockableSeconds
	if observed > 0 {
		rep.LockedShare = decimal.NewFromInt(rep.LockedSeconds).
			Div(decimal.NewFromInt(observed)).Round(shareScale)
	}

	total := len(info.Requirements)
	if total > 0 {
		done := 0
		for _, req := range info.Requirements {
			if req.Complete {
				done++
			}
		}
		rep.CompletionRate = decimal.NewFromInt(int64(done)).
			Div(decimal.NewFromInt(int64(total))).Round(shareScale)
	}
	return rep
}

// DayStart returns the first instant of the calendar day containing t.
func DayStart(t engine.Instant) engine.Instant {
	d := t.Date()
	return engine.InstantOf(time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.Local))
}
