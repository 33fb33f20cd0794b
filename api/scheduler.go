/*
scheduler.go - Background cache refresher

PURPOSE:
  The engine only recomputes when somebody asks. Without a steady poller, a
  day boundary or a predicted next-change instant passes unnoticed until the
  next client request, and the journal would miss the transition's actual
  time. The refresher ticks the manager on a fixed interval, observes the
  cache version, and journals every transition it sees.

DESIGN:
  - robfig/cron with an "@every" schedule; one job, no overlap concerns
    since the job itself is a single version check.
  - Holds the last version it journaled; on change, appends a transition
    row and logs the new state.

CONFIGURATION:
  - Interval: how often to check (default: 15s)

USAGE:
  refresher := NewRefresher(manager, journal)
  refresher.Start()
  // ... later
  refresher.Stop()

SEE ALSO:
  - handlers.go: The request-driven path doing the same observation
*/
package api

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/focusgate/session-engine/engine"
	"github.com/focusgate/session-engine/store/sqlite"
)

// Refresher periodically recomputes the snapshot so time-driven transitions
// are observed near the instant they happen.
type Refresher struct {
	Manager  *engine.Manager
	Journal  *sqlite.Journal // nil disables journaling, ticks still refresh the cache
	Clock    func() engine.Instant
	Interval time.Duration

	cron        *cron.Cron
	lastVersion uint64
}

// NewRefresher creates a refresher with the default 15s interval.
func NewRefresher(manager *engine.Manager, journal *sqlite.Journal) *Refresher {
	return &Refresher{
		Manager:  manager,
		Journal:  journal,
		Clock:    engine.Now,
		Interval: 15 * time.Second,
		cron:     cron.New(),
	}
}

// Start begins ticking. The first check runs immediately.
func (rf *Refresher) Start() error {
	rf.lastVersion = rf.Manager.Version()
	rf.check()

	schedule := fmt.Sprintf("@every %s", rf.Interval)
	if _, err := rf.cron.AddFunc(schedule, rf.check); err != nil {
		return fmt.Errorf("scheduling refresher: %w", err)
	}
	rf.cron.Start()
	log.Printf("[Refresher] Started with interval %s", rf.Interval)
	return nil
}

// Stop halts ticking and waits for a running check to finish.
func (rf *Refresher) Stop() {
	ctx := rf.cron.Stop()
	<-ctx.Done()
	log.Println("[Refresher] Stopped")
}

func (rf *Refresher) check() {
	now := rf.Clock()
	info, version, changed := rf.Manager.InfoIfChanged(rf.lastVersion, now)
	if !changed {
		return
	}
	rf.lastVersion = version
	log.Printf("[Refresher] State is now %s (%s, version %d)", info.State, info.Reason.Kind, version)

	if rf.Journal == nil {
		return
	}
	if err := rf.Journal.RecordTransition(context.Background(), version, info, now); err != nil {
		log.Printf("[Refresher] Failed to journal transition: %v", err)
	}
}
