package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/teemow/slotkeeper/internal/slots"
	"github.com/teemow/slotkeeper/internal/store"
)

// Config is the top-level application configuration.
type Config struct {
	Business BusinessConfig `yaml:"business"`
	Google   GoogleConfig   `yaml:"google"`
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	Jobs     JobsConfig     `yaml:"jobs"`
}

// BusinessConfig describes when appointments can be booked.
type BusinessConfig struct {
	// Name is used as the calendar event organizer label and ICS feed name.
	Name string `yaml:"name"`

	// Timezone is the IANA zone business hours are expressed in.
	Timezone string `yaml:"timezone"`

	// Open and Close are "HH:MM" in Timezone. Slots never end after Close.
	Open  string `yaml:"open"`
	Close string `yaml:"close"`

	// Days lists business weekdays ("monday", "tue", ...).
	Days []string `yaml:"days"`

	SlotDuration time.Duration `yaml:"slot_duration"`
	LeadTime     time.Duration `yaml:"lead_time"`

	// DaysAhead is the default availability window.
	DaysAhead int `yaml:"days_ahead"`
}

// GoogleConfig holds the OAuth client used to connect the business calendar.
type GoogleConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURL  string `yaml:"redirect_url"`
}

// DatabaseConfig selects the store backend.
type DatabaseConfig struct {
	// Driver is "sqlite3" or "pgx". "sqlite" and "postgres" are accepted aliases.
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// ServerConfig configures the HTTP surfaces.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	MetricsAddr     string        `yaml:"metrics_addr"`
	FunctionTimeout time.Duration `yaml:"function_timeout"`
	CalendarTimeout time.Duration `yaml:"calendar_timeout"`
	// RateLimit is the sustained webhook requests per second per client IP.
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`
	EnableMCP bool    `yaml:"enable_mcp"`
	// AdminToken is the bearer token for the appointment feed and /mcp.
	// Empty disables both over HTTP.
	AdminToken string `yaml:"admin_token"`
}

// JobsConfig configures background jobs.
type JobsConfig struct {
	// KeepWarm is a cron spec for the token keep-warm job. Empty disables it.
	KeepWarm string `yaml:"keep_warm"`
}

const (
	defaultOpen        = "09:00"
	defaultClose       = "17:00"
	defaultTimezone    = "America/New_York"
	defaultAddr        = ":8080"
	defaultMetricsAddr = ":9090"
	defaultKeepWarm    = "@every 15m"
	maxDaysAhead       = 30
)

var defaultDays = []string{"monday", "tuesday", "wednesday", "thursday", "friday"}

// DefaultDatabasePath is the sqlite file used when no DSN is configured.
func DefaultDatabasePath() string {
	return filepath.Join(xdg.DataHome, "slotkeeper", "slotkeeper.db")
}

// Default returns an in-memory default configuration.
func Default() *Config {
	return &Config{
		Business: BusinessConfig{
			Name:         "slotkeeper",
			Timezone:     defaultTimezone,
			Open:         defaultOpen,
			Close:        defaultClose,
			Days:         append([]string(nil), defaultDays...),
			SlotDuration: time.Hour,
			LeadTime:     slots.DefaultLeadTime,
			DaysAhead:    7,
		},
		Google: GoogleConfig{
			RedirectURL: "http://localhost:8080/oauth/google/callback",
		},
		Database: DatabaseConfig{
			Driver: store.DriverSQLite,
			DSN:    DefaultDatabasePath(),
		},
		Server: ServerConfig{
			Addr:            defaultAddr,
			MetricsAddr:     defaultMetricsAddr,
			FunctionTimeout: 20 * time.Second,
			CalendarTimeout: 10 * time.Second,
			RateLimit:       5,
			RateBurst:       10,
		},
		Jobs: JobsConfig{KeepWarm: defaultKeepWarm},
	}
}

// Load builds the configuration from defaults, the optional YAML file at
// path, a .env file in the working directory and the environment, in that
// order. The result is normalized and validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := LoadDotEnv(".env"); err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.LookupEnv)
	cfg.Normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads variables from the given files into the process
// environment without overriding variables already set. Missing files are
// ignored.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides fields from environment variables. lookup is usually
// os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set("GOOGLE_CLIENT_ID", &c.Google.ClientID)
	set("GOOGLE_CLIENT_SECRET", &c.Google.ClientSecret)
	set("GOOGLE_REDIRECT_URL", &c.Google.RedirectURL)
	set("DATABASE_DRIVER", &c.Database.Driver)
	set("DATABASE_URL", &c.Database.DSN)
	set("SLOTKEEPER_ADDR", &c.Server.Addr)
	set("SLOTKEEPER_METRICS_ADDR", &c.Server.MetricsAddr)
	set("SLOTKEEPER_ADMIN_TOKEN", &c.Server.AdminToken)
	set("BUSINESS_NAME", &c.Business.Name)
	set("BUSINESS_TIMEZONE", &c.Business.Timezone)
}

// Normalize fills in missing values with defaults so partially-filled
// configs still behave correctly.
func (c *Config) Normalize() {
	d := Default()
	if c.Business.Timezone == "" {
		c.Business.Timezone = d.Business.Timezone
	}
	if c.Business.Open == "" {
		c.Business.Open = d.Business.Open
	}
	if c.Business.Close == "" {
		c.Business.Close = d.Business.Close
	}
	if len(c.Business.Days) == 0 {
		c.Business.Days = d.Business.Days
	}
	if c.Business.SlotDuration == 0 {
		c.Business.SlotDuration = d.Business.SlotDuration
	}
	if c.Business.LeadTime == 0 {
		c.Business.LeadTime = d.Business.LeadTime
	}
	if c.Business.DaysAhead == 0 {
		c.Business.DaysAhead = d.Business.DaysAhead
	}

	switch strings.ToLower(c.Database.Driver) {
	case "", "sqlite", store.DriverSQLite:
		c.Database.Driver = store.DriverSQLite
	case "postgres", "postgresql", store.DriverPostgres:
		c.Database.Driver = store.DriverPostgres
	}
	if c.Database.DSN == "" && c.Database.Driver == store.DriverSQLite {
		c.Database.DSN = DefaultDatabasePath()
	}

	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}
	if c.Server.FunctionTimeout <= 0 {
		c.Server.FunctionTimeout = d.Server.FunctionTimeout
	}
	if c.Server.CalendarTimeout <= 0 {
		c.Server.CalendarTimeout = d.Server.CalendarTimeout
	}
	if c.Server.RateLimit <= 0 {
		c.Server.RateLimit = d.Server.RateLimit
	}
	if c.Server.RateBurst <= 0 {
		c.Server.RateBurst = d.Server.RateBurst
	}
}

// Validate checks that the business rules and backends are usable.
func (c *Config) Validate() error {
	if _, err := c.Rules(); err != nil {
		return err
	}
	if c.Business.DaysAhead < 1 || c.Business.DaysAhead > maxDaysAhead {
		return fmt.Errorf("days_ahead must be between 1 and %d, got %d", maxDaysAhead, c.Business.DaysAhead)
	}
	if c.Business.LeadTime < 0 {
		return fmt.Errorf("lead_time must not be negative")
	}

	switch c.Database.Driver {
	case store.DriverSQLite, store.DriverPostgres:
	default:
		return fmt.Errorf("unsupported database driver %q (want sqlite3 or pgx)", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database dsn is required for driver %s", c.Database.Driver)
	}
	return nil
}

// Location loads the business timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Business.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Business.Timezone, err)
	}
	return loc, nil
}

// Rules converts the business section into slot generation rules.
func (c *Config) Rules() (slots.Rules, error) {
	loc, err := c.Location()
	if err != nil {
		return slots.Rules{}, err
	}
	open, err := slots.ParseClock(c.Business.Open)
	if err != nil {
		return slots.Rules{}, fmt.Errorf("open: %w", err)
	}
	closing, err := slots.ParseClock(c.Business.Close)
	if err != nil {
		return slots.Rules{}, fmt.Errorf("close: %w", err)
	}
	if open.Minutes() >= closing.Minutes() {
		return slots.Rules{}, fmt.Errorf("open (%s) must be before close (%s)", open, closing)
	}
	if c.Business.SlotDuration <= 0 {
		return slots.Rules{}, fmt.Errorf("slot_duration must be positive")
	}

	days := make([]time.Weekday, 0, len(c.Business.Days))
	for _, name := range c.Business.Days {
		wd, err := ParseWeekday(name)
		if err != nil {
			return slots.Rules{}, err
		}
		days = append(days, wd)
	}
	if len(days) == 0 {
		return slots.Rules{}, fmt.Errorf("at least one business day is required")
	}

	return slots.Rules{
		Open:     open,
		Close:    closing,
		Days:     days,
		Duration: c.Business.SlotDuration,
		Location: loc,
		LeadTime: c.Business.LeadTime,
	}, nil
}

// ParseWeekday accepts full or three-letter English weekday names.
func ParseWeekday(s string) (time.Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		full := strings.ToLower(wd.String())
		if name == full || name == full[:3] {
			return wd, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}
