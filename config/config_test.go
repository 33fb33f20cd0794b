package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/focusgate/session-engine/config"
	"github.com/focusgate/session-engine/engine"
)

// =============================================================================
// BOOTSTRAP AND ROUND TRIP
// =============================================================================

func TestLoad_CreatesDefaultFileWhenMissing(t *testing.T) {
	// GIVEN: A config path that does not exist
	// WHEN: Load is called
	// THEN: The default file is written and decodes back to the defaults.

	path := filepath.Join(t.TempDir(), "focusgate", "config.toml")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	_, statErr := os.Stat(path)
	assert.NoError(t, statErr, "default file should have been written")

	want := config.Default()
	assert.Equal(t, want.BindOn, cfg.BindOn)
	assert.Equal(t, want.WorkPeriodMinutes, cfg.WorkPeriodMinutes)
	assert.Equal(t, want.BreakMinutes, cfg.BreakMinutes)
	require.Len(t, cfg.Requirements, 2)
	assert.Equal(t, engine.MustHourMinute(8, 30), cfg.Requirements[0].Due)
	require.Len(t, cfg.LockedTimeRanges, 3)
	assert.Nil(t, cfg.LockedTimeRanges[0].Start)
	require.NotNil(t, cfg.LockedTimeRanges[0].End)
	assert.Equal(t, engine.MustHourMinute(4, 30), *cfg.LockedTimeRanges[0].End)
	assert.Nil(t, cfg.LockedTimeRanges[2].End)
}

func TestLoad_ReadsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	contents := `
bind_on = "127.0.0.1:9000"
journal_path = "test.db"
work_period_minutes = 50
break_minutes = 10

[[requirements]]
name = "Inbox zero"
due = "17:00"

[[locked_time_ranges]]
start = "21:30"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.BindOn)
	assert.Equal(t, int64(50), cfg.WorkPeriodMinutes)
	require.Len(t, cfg.Requirements, 1)
	assert.Equal(t, "Inbox zero", cfg.Requirements[0].Name)
	assert.Equal(t, engine.MustHourMinute(17, 0), cfg.Requirements[0].Due)
	require.Len(t, cfg.LockedTimeRanges, 1)
	require.NotNil(t, cfg.LockedTimeRanges[0].Start)
	assert.Nil(t, cfg.LockedTimeRanges[0].End)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg1, err := config.Load(path) // bootstraps defaults
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:3000", cfg1.BindOn)

	t.Setenv("FOCUSGATE_BIND", "localhost:8123")
	t.Setenv("FOCUSGATE_JOURNAL", "/tmp/override.db")

	cfg2, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "localhost:8123", cfg2.BindOn)
	assert.Equal(t, "/tmp/override.db", cfg2.JournalPath)
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		ok     bool
	}{
		{"defaults are valid", func(c *config.Config) {}, true},
		{"empty bind", func(c *config.Config) { c.BindOn = "" }, false},
		{"zero work period", func(c *config.Config) { c.WorkPeriodMinutes = 0 }, false},
		{"negative break", func(c *config.Config) { c.BreakMinutes = -5 }, false},
		{"unnamed requirement", func(c *config.Config) { c.Requirements[0].Name = "" }, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

// =============================================================================
// ENGINE CONVERSION
// =============================================================================

func TestManagerConfig_Conversion(t *testing.T) {
	mc := config.Default().ManagerConfig()

	assert.Equal(t, 25*time.Minute, mc.WorkPeriod)
	assert.Equal(t, 5*time.Minute, mc.BreakDuration)
	require.Len(t, mc.Requirements, 2)
	assert.Equal(t, engine.MustHourMinute(20, 0), mc.Requirements[1].Due)
	require.Len(t, mc.LockedTimeRanges, 3)
	assert.Nil(t, mc.LockedTimeRanges[0].Start)
	require.NotNil(t, mc.LockedTimeRanges[1].Start)
	assert.Equal(t, engine.MustHourMinute(12, 0), *mc.LockedTimeRanges[1].Start)
}
