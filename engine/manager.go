/*
manager.go - Public operation set, caching, and daily rollover

PURPOSE:
  Manager is the single owner of one supervised session's state. It wraps the
  Constraints aggregate with:
  - the monotonic id generator for requirement/range instances,
  - daily rollover: whenever a recomputation's calendar date differs from
    the stored one, the day's instances are rebuilt from the configuration
    templates (fresh ids, instants re-anchored); the break timer survives,
  - a {snapshot, as-of, version} cache for cheap change detection: the
    version grows by exactly 1 each time the derived snapshot differs by
    value, and never otherwise,
  - auto-lock-on-enforcement: when a recomputation comes out enforcing, a
    running work period is locked immediately so the work credit does not
    drain while the session is locked for an unrelated reason.

CONCURRENCY:
  All operations take the same exclusive mutex. Intermediate states (id
  issuance, cache update) are not atomic across operations, so there is no
  safe interleaving of two mutations; one lock serializes everything. Every
  operation is immediate and non-blocking, so the critical sections are
  short.

SEE ALSO:
  - constraints.go: Snapshot derivation
  - timer.go: The break timer delegated to by UnlockTimer/LockTimer
*/
package engine

import (
	"sync"
	"time"
)

// NoCache is the version a first-time poller supplies: it compares unequal
// to every real cache version, so the first InfoIfChanged always returns a
// snapshot. Real versions start at 1.
const NoCache uint64 = 0

// =============================================================================
// CONFIGURATION TEMPLATES
// =============================================================================

// RequirementTemplate is the immutable daily blueprint for a requirement.
type RequirementTemplate struct {
	Name string
	Due  HourMinute
}

// TimeRangeTemplate is the immutable daily blueprint for a locked range.
// Nil bounds mean unbounded in that direction.
type TimeRangeTemplate struct {
	Start *HourMinute
	End   *HourMinute
}

// ManagerConfig carries the templates and timer durations the manager needs.
// It is fixed for the manager's lifetime.
type ManagerConfig struct {
	Requirements     []RequirementTemplate
	LockedTimeRanges []TimeRangeTemplate
	WorkPeriod       time.Duration
	BreakDuration    time.Duration
}

// =============================================================================
// MANAGER
// =============================================================================

// Manager owns the aggregate and the snapshot cache. One instance per
// supervised session.
type Manager struct {
	mu sync.Mutex

	config      ManagerConfig
	constraints Constraints
	currentDate LocalDate
	ids         IDGenerator

	cachedInfo   CurrentInfo
	cacheTime    Instant
	cacheVersion uint64
}

// NewManager computes the initial snapshot at now, so the cache starts at
// version 1 and Info never observes an empty snapshot.
func NewManager(config ManagerConfig, now Instant) *Manager {
	m := &Manager{
		config: config,
		constraints: Constraints{
			BreakTimer: NewBreakTimer(config.WorkPeriod, config.BreakDuration),
		},
		// The zero date differs from any real date, so the first refresh
		// performs the initial rollover.
		currentDate: LocalDate{},
	}
	m.cachedInfo = m.refresh(now)
	m.cacheTime = now
	m.cacheVersion = NoCache + 1
	return m
}

// UnlockTimer spends a work credit. It succeeds only when the combined state
// is Unlockable: an active requirement, range, or running break all reject
// the unlock.
func (m *Manager) UnlockTimer(now Instant) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	info := m.refreshCache(now)
	if info.State != StateUnlockable {
		return ErrNotUnlockable
	}
	if err := m.constraints.BreakTimer.Unlock(now); err != nil {
		return err
	}
	m.refreshCache(now)
	return nil
}

// LockTimer ends the running work period early. Any deactivation override is
// cleared first: manually locking opts back into enforcement.
func (m *Manager) LockTimer(now Instant) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.constraints.DeactivatedUntil = nil
	m.refreshCache(now)
	if err := m.constraints.BreakTimer.Lock(now); err != nil {
		return err
	}
	m.refreshCache(now)
	return nil
}

// CompleteRequirement marks a requirement done for the rest of the day.
func (m *Manager) CompleteRequirement(now Instant, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.refreshCache(now)
	if err := m.constraints.CompleteRequirement(id); err != nil {
		return err
	}
	m.refreshCache(now)
	return nil
}

// AddRequirement appends a new incomplete requirement for today, due at the
// given time of day. A due time already past locks the session immediately.
func (m *Manager) AddRequirement(now Instant, name string, due HourMinute) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.refreshCache(now)
	m.constraints.Requirements = append(m.constraints.Requirements, Requirement{
		ID:       m.ids.NextID(),
		Name:     name,
		Due:      FromDateHourMinute(m.currentDate, due),
		Complete: false,
	})
	m.refreshCache(now)
}

// Deactivate suppresses enforcement until now + d. It always succeeds and
// overrides the computed state until the override expires.
func (m *Manager) Deactivate(now Instant, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	until := now.Add(d)
	m.constraints.DeactivatedUntil = &until
	m.refreshCache(now)
}

// Info returns the last cached snapshot without recomputation. It may be
// stale relative to wall time.
func (m *Manager) Info() CurrentInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cachedInfo
}

// InfoOnce force-recomputes and returns a fresh snapshot.
func (m *Manager) InfoOnce(now Instant) CurrentInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshCache(now)
}

// InfoIfChanged recomputes if now differs from the cache's as-of instant,
// then returns the snapshot and its version only when the cache version
// differs from the caller's. A false return means "unchanged": the caller's
// snapshot is still current and need not be re-fetched.
func (m *Manager) InfoIfChanged(version uint64, now Instant) (CurrentInfo, uint64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if now != m.cacheTime {
		m.refreshCache(now)
	}
	if version != m.cacheVersion {
		return m.cachedInfo, m.cacheVersion, true
	}
	return CurrentInfo{}, m.cacheVersion, false
}

// Version returns the current cache version.
func (m *Manager) Version() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cacheVersion
}

// =============================================================================
// INTERNALS
// =============================================================================

// refreshCache recomputes at now and bumps the version if the snapshot
// changed by value.
func (m *Manager) refreshCache(now Instant) CurrentInfo {
	m.cacheTime = now
	info := m.refresh(now)
	if !info.Equal(m.cachedInfo) {
		m.cachedInfo = info
		m.cacheVersion++
	}
	return info
}

// refresh performs rollover if the date changed, recomputes, and applies
// auto-lock-on-enforcement.
func (m *Manager) refresh(now Instant) CurrentInfo {
	date := now.Date()
	if date != m.currentDate {
		m.currentDate = date
		m.newDay()
	}
	info := m.constraints.CurrentInfo(now)
	if info.Enforcing {
		// The session is locked anyway; stop the work-period clock from
		// silently running down. Lock fails harmlessly unless a work period
		// is actually running.
		if err := m.constraints.BreakTimer.Lock(now); err == nil {
			info = m.constraints.CurrentInfo(now)
		}
	}
	return info
}

// newDay rebuilds the day's instances from the templates. Fresh ids, fresh
// incomplete requirements, instants anchored to the new date. The break
// timer is left alone: work/break cycles span midnight.
func (m *Manager) newDay() {
	requirements := make([]Requirement, 0, len(m.config.Requirements))
	for _, tpl := range m.config.Requirements {
		requirements = append(requirements, Requirement{
			ID:       m.ids.NextID(),
			Name:     tpl.Name,
			Due:      FromDateHourMinute(m.currentDate, tpl.Due),
			Complete: false,
		})
	}
	ranges := make([]TimeRange, 0, len(m.config.LockedTimeRanges))
	for _, tpl := range m.config.LockedTimeRanges {
		ranges = append(ranges, TimeRange{
			ID:    m.ids.NextID(),
			Start: FromDateHourMinuteOpt(m.currentDate, tpl.Start),
			End:   FromDateHourMinuteOpt(m.currentDate, tpl.End),
		})
	}
	m.constraints.Requirements = requirements
	m.constraints.LockedTimeRanges = ranges
}
