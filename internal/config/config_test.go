package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/slotkeeper/internal/store"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	rules, err := cfg.Rules()
	require.NoError(t, err)
	assert.Equal(t, 9, rules.Open.Hour)
	assert.Equal(t, 17, rules.Close.Hour)
	assert.Equal(t, time.Hour, rules.Duration)
	assert.Equal(t, []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}, rules.Days)
	assert.Equal(t, "America/New_York", rules.Location.String())
	assert.Equal(t, store.DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "@every 15m", cfg.Jobs.KeepWarm)
	assert.Empty(t, cfg.Server.AdminToken, "admin routes are off by default")
}

func TestLoad_YAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "slotkeeper.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
business:
  name: Acme Plumbing
  timezone: America/Chicago
  open: "08:00"
  close: "12:00"
  days: [mon, wed, fri]
  slot_duration: 90m
database:
  driver: postgres
  dsn: postgres://localhost/slotkeeper
server:
  function_timeout: 15s
`), 0o600))

	t.Chdir(dir)
	t.Setenv("BUSINESS_TIMEZONE", "America/Denver")
	t.Setenv("GOOGLE_CLIENT_ID", "client-id")
	t.Setenv("SLOTKEEPER_ADMIN_TOKEN", "admin-token")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Acme Plumbing", cfg.Business.Name)
	assert.Equal(t, "America/Denver", cfg.Business.Timezone, "environment wins over the file")
	assert.Equal(t, 90*time.Minute, cfg.Business.SlotDuration)
	assert.Equal(t, store.DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, 15*time.Second, cfg.Server.FunctionTimeout)
	assert.Equal(t, 10*time.Second, cfg.Server.CalendarTimeout, "unset fields keep defaults")
	assert.Equal(t, "client-id", cfg.Google.ClientID)
	assert.Equal(t, "admin-token", cfg.Server.AdminToken)

	rules, err := cfg.Rules()
	require.NoError(t, err)
	assert.Equal(t, []time.Weekday{time.Monday, time.Wednesday, time.Friday}, rules.Days)
}

func TestLoad_DotEnvDoesNotOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("GOOGLE_CLIENT_SECRET=from-dotenv\nDATABASE_URL=:memory:\n"), 0o600))
	t.Chdir(dir)
	t.Setenv("GOOGLE_CLIENT_SECRET", "from-env")
	t.Setenv("DATABASE_URL", "")
	os.Unsetenv("DATABASE_URL")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Google.ClientSecret)
	assert.Equal(t, ":memory:", cfg.Database.DSN)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		errContains string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "bad timezone", mutate: func(c *Config) { c.Business.Timezone = "Mars/Olympus" }, errContains: "invalid timezone"},
		{name: "bad open", mutate: func(c *Config) { c.Business.Open = "9am" }, errContains: "open"},
		{name: "open after close", mutate: func(c *Config) { c.Business.Open = "18:00" }, errContains: "must be before close"},
		{name: "zero duration", mutate: func(c *Config) { c.Business.SlotDuration = 0 }, errContains: "slot_duration"},
		{name: "unknown day", mutate: func(c *Config) { c.Business.Days = []string{"funday"} }, errContains: "unknown weekday"},
		{name: "no days", mutate: func(c *Config) { c.Business.Days = nil }, errContains: "business day"},
		{name: "days ahead too large", mutate: func(c *Config) { c.Business.DaysAhead = 31 }, errContains: "days_ahead"},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "mysql" }, errContains: "unsupported database driver"},
		{name: "missing dsn", mutate: func(c *Config) { c.Database.DSN = "" }, errContains: "dsn is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errContains == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.errContains)
		})
	}
}

func TestNormalize(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{Driver: "sqlite"}}
	cfg.Normalize()

	assert.Equal(t, store.DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, DefaultDatabasePath(), cfg.Database.DSN)
	assert.Equal(t, "09:00", cfg.Business.Open)
	assert.Equal(t, 7, cfg.Business.DaysAhead)
	assert.Equal(t, 20*time.Second, cfg.Server.FunctionTimeout)
	assert.NoError(t, cfg.Validate())
}

func TestParseWeekday(t *testing.T) {
	tests := map[string]time.Weekday{
		"monday": time.Monday,
		"Tue":    time.Tuesday,
		" SUN ":  time.Sunday,
		"sat":    time.Saturday,
	}
	for in, want := range tests {
		got, err := ParseWeekday(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseWeekday("someday")
	assert.Error(t, err)
}
