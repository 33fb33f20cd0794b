/*
Package config loads the daemon's on-disk configuration.

PURPOSE:
  One TOML file describes the daily constraint templates and timer durations.
  When the file does not exist yet, a commented-out-of-the-box default is
  written in its place so a first run produces something editable.

FORMAT:
  bind_on = "0.0.0.0:3000"
  work_period_minutes = 25
  break_minutes = 5

  [[requirements]]
  name = "Morning review"
  due = "08:30"

  [[locked_time_ranges]]
  start = "22:00"   # omit for "from start of day"
  end = "04:30"     # omit for "through end of day"

ENVIRONMENT OVERRIDES:
  Applied after the file is decoded:
    FOCUSGATE_BIND       listen address
    FOCUSGATE_JOURNAL    journal database path

SEE ALSO:
  - engine/manager.go: ManagerConfig built from this
  - cmd/server/main.go: Load call site
*/
package config

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"

	"github.com/focusgate/session-engine/engine"
)

// =============================================================================
// CONFIG TYPES
// =============================================================================

type RequirementConfig struct {
	Name string            `toml:"name"`
	Due  engine.HourMinute `toml:"due"`
}

type TimeRangeConfig struct {
	Start *engine.HourMinute `toml:"start,omitempty"`
	End   *engine.HourMinute `toml:"end,omitempty"`
}

type Config struct {
	BindOn            string              `toml:"bind_on" env:"FOCUSGATE_BIND"`
	JournalPath       string              `toml:"journal_path" env:"FOCUSGATE_JOURNAL"`
	Requirements      []RequirementConfig `toml:"requirements"`
	LockedTimeRanges  []TimeRangeConfig   `toml:"locked_time_ranges"`
	WorkPeriodMinutes int64               `toml:"work_period_minutes"`
	BreakMinutes      int64               `toml:"break_minutes"`
}

// Default returns the configuration written on first run: two sample
// requirements and three sample ranges (locked until 04:30, over lunch, and
// from 22:00 through the end of the day), with a 25/5 work/break cycle.
func Default() Config {
	return Config{
		BindOn:      "0.0.0.0:3000",
		JournalPath: "focusgate.db",
		Requirements: []RequirementConfig{
			{Name: "Name of requirement 1", Due: engine.MustHourMinute(8, 30)},
			{Name: "Name of requirement 2", Due: engine.MustHourMinute(20, 0)},
		},
		LockedTimeRanges: []TimeRangeConfig{
			{Start: nil, End: hm(4, 30)},
			{Start: hm(12, 0), End: hm(13, 0)},
			{Start: hm(22, 0), End: nil},
		},
		WorkPeriodMinutes: 25,
		BreakMinutes:      5,
	}
}

func hm(hour, minute int) *engine.HourMinute {
	v := engine.MustHourMinute(hour, minute)
	return &v
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads the configuration from path, creating the default file first if
// nothing exists there. Environment overrides are applied after decoding.
func Load(path string) (Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := writeDefault(path); err != nil {
			return Config{}, err
		}
	}

	log.Printf("[Config] Loading configuration from %s", path)
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("decoding %s: %w", path, err)
	}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("applying environment overrides: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DefaultPath is the per-user config location: $XDG_CONFIG_HOME/focusgate or
// the platform equivalent.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("unable to determine configuration directory: %w", err)
	}
	return filepath.Join(dir, "focusgate", "config.toml"), nil
}

func writeDefault(path string) error {
	log.Printf("[Config] Creating default configuration file at %s", path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(Default()); err != nil {
		return fmt.Errorf("encoding default configuration: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// Validate rejects configurations the engine cannot run with.
func (c Config) Validate() error {
	if c.BindOn == "" {
		return fmt.Errorf("bind_on must not be empty")
	}
	if c.WorkPeriodMinutes <= 0 {
		return fmt.Errorf("work_period_minutes must be positive, got %d", c.WorkPeriodMinutes)
	}
	if c.BreakMinutes <= 0 {
		return fmt.Errorf("break_minutes must be positive, got %d", c.BreakMinutes)
	}
	for i, req := range c.Requirements {
		if req.Name == "" {
			return fmt.Errorf("requirements[%d]: name must not be empty", i)
		}
	}
	return nil
}

// ManagerConfig converts the file form into the engine's template form.
func (c Config) ManagerConfig() engine.ManagerConfig {
	mc := engine.ManagerConfig{
		WorkPeriod:    time.Duration(c.WorkPeriodMinutes) * time.Minute,
		BreakDuration: time.Duration(c.BreakMinutes) * time.Minute,
	}
	for _, req := range c.Requirements {
		mc.Requirements = append(mc.Requirements, engine.RequirementTemplate{
			Name: req.Name,
			Due:  req.Due,
		})
	}
	for _, ltr := range c.LockedTimeRanges {
		mc.LockedTimeRanges = append(mc.LockedTimeRanges, engine.TimeRangeTemplate{
			Start: ltr.Start,
			End:   ltr.End,
		})
	}
	return mc
}
