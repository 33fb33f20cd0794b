package engine

import (
	"fmt"
	"time"
)

// =============================================================================
// INSTANT - Opaque ordered point in time (Unix seconds on the wire)
// =============================================================================

// Instant is a point in time with second resolution. It marshals to JSON as a
// plain integer so poll clients can compare and sort values directly.
//
// The engine only ever compares instants and adds durations to them; calendar
// interpretation happens in Date and FromDateHourMinute.
type Instant int64

// InstantZero is the epoch sentinel. Open-start time ranges and
// already-active break locks use it as their trigger time.
const InstantZero Instant = 0

// InstantOf converts a time.Time to an Instant, truncating sub-second
// precision.
func InstantOf(t time.Time) Instant {
	return Instant(t.Unix())
}

// Now returns the current wall-clock instant.
func Now() Instant {
	return InstantOf(time.Now())
}

func (t Instant) Add(d time.Duration) Instant {
	return t + Instant(d/time.Second)
}

func (t Instant) Before(other Instant) bool        { return t < other }
func (t Instant) After(other Instant) bool         { return t > other }
func (t Instant) AtOrAfter(other Instant) bool     { return t >= other }
func (t Instant) Time() time.Time                  { return time.Unix(int64(t), 0) }

func (t Instant) String() string {
	return t.Time().Local().Format(time.RFC3339)
}

// Date derives the calendar date of t in the process's local time zone. Day
// rollover follows local civil time, not UTC.
func (t Instant) Date() LocalDate {
	y, m, d := t.Time().Local().Date()
	return LocalDate{Year: y, Month: m, Day: d}
}

// =============================================================================
// LOCAL DATE - Calendar day used for daily rollover
// =============================================================================

type LocalDate struct {
	Year  int
	Month time.Month
	Day   int
}

func (d LocalDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// FromDateHourMinute anchors a time-of-day template to a concrete date,
// producing the instant that template means on that day.
func FromDateHourMinute(date LocalDate, hm HourMinute) Instant {
	t := time.Date(date.Year, date.Month, date.Day, int(hm.Hour), int(hm.Minute), 0, 0, time.Local)
	return InstantOf(t)
}

// FromDateHourMinuteOpt is the optional-template variant used for range
// bounds: a nil template stays nil (unbounded in that direction).
func FromDateHourMinuteOpt(date LocalDate, hm *HourMinute) *Instant {
	if hm == nil {
		return nil
	}
	t := FromDateHourMinute(date, *hm)
	return &t
}

// =============================================================================
// HOUR MINUTE - Time-of-day template ("HH:MM") from configuration
// =============================================================================

type HourMinute struct {
	Hour   uint8
	Minute uint8
}

func NewHourMinute(hour, minute int) (HourMinute, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return HourMinute{}, fmt.Errorf("invalid time of day %02d:%02d", hour, minute)
	}
	return HourMinute{Hour: uint8(hour), Minute: uint8(minute)}, nil
}

// MustHourMinute panics on an out-of-range value. For defaults and tests.
func MustHourMinute(hour, minute int) HourMinute {
	hm, err := NewHourMinute(hour, minute)
	if err != nil {
		panic(err)
	}
	return hm
}

func (hm HourMinute) String() string {
	return fmt.Sprintf("%02d:%02d", hm.Hour, hm.Minute)
}

// MarshalText implements encoding.TextMarshaler so the type round-trips
// through both TOML config and JSON requests as "HH:MM".
func (hm HourMinute) MarshalText() ([]byte, error) {
	return []byte(hm.String()), nil
}

func (hm *HourMinute) UnmarshalText(text []byte) error {
	var hour, minute int
	if _, err := fmt.Sscanf(string(text), "%d:%d", &hour, &minute); err != nil {
		return fmt.Errorf("invalid time of day %q: expected HH:MM", string(text))
	}
	parsed, err := NewHourMinute(hour, minute)
	if err != nil {
		return err
	}
	*hm = parsed
	return nil
}
