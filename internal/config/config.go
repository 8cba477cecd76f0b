package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Default values, matching the original duty bot.
const (
	DefaultReminderMin = 20 * time.Minute
	DefaultReminderMax = 30 * time.Minute
	DefaultAckWindow   = 2 * time.Minute
	DefaultMaxDuration = 12 * time.Hour

	DefaultAllowlistPath = "/var/lib/dutywarden/authorized.json"
	DefaultAuditPath     = "/var/log/dutywarden/audit.jsonl"

	DefaultRateLimit = 5.0
	DefaultRateBurst = 10
)

// Duration is a time.Duration that reads from TOML as a Go duration string ("20m", "12h").
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	str := strings.TrimSpace(string(text))
	if str == "" {
		return fmt.Errorf("invalid duration: empty string")
	}
	parsed, err := time.ParseDuration(str)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", str, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// DutyConfig holds the timing of the reminder loop.
type DutyConfig struct {
	ReminderMin Duration `toml:"reminder_min"`
	ReminderMax Duration `toml:"reminder_max"`
	AckWindow   Duration `toml:"ack_window"`
	MaxDuration Duration `toml:"max_duration"`
}

// AuthConfig controls who may manage the allowlist and how callers are throttled.
type AuthConfig struct {
	Admins     []string `toml:"admins"`
	AdminGroup string   `toml:"admin_group"`
	Allowlist  string   `toml:"allowlist"`
	// RateLimit is calls per second per caller. Unset means DefaultRateLimit;
	// a negative value turns throttling off.
	RateLimit float64 `toml:"rate_limit"`
	RateBurst int     `toml:"rate_burst"`
}

type LogConfig struct {
	Audit string `toml:"audit"`
	Level string `toml:"level"`
}

type Config struct {
	Duty DutyConfig `toml:"duty"`
	Auth AuthConfig `toml:"auth"`
	Log  LogConfig  `toml:"log"`
}

// SetDefault fills every unset value with its default.
func (c *Config) SetDefault() {
	if c.Duty.ReminderMin == 0 {
		c.Duty.ReminderMin = Duration(DefaultReminderMin)
	}
	if c.Duty.ReminderMax == 0 {
		c.Duty.ReminderMax = Duration(DefaultReminderMax)
	}
	if c.Duty.AckWindow == 0 {
		c.Duty.AckWindow = Duration(DefaultAckWindow)
	}
	if c.Duty.MaxDuration == 0 {
		c.Duty.MaxDuration = Duration(DefaultMaxDuration)
	}
	if c.Auth.Allowlist == "" {
		c.Auth.Allowlist = DefaultAllowlistPath
	}
	if c.Auth.RateLimit == 0 {
		c.Auth.RateLimit = DefaultRateLimit
	}
	if c.Auth.RateBurst == 0 {
		c.Auth.RateBurst = DefaultRateBurst
	}
	if c.Log.Audit == "" {
		c.Log.Audit = DefaultAuditPath
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate reports every inconsistent setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Duty.ReminderMin <= 0 {
		errs = append(errs, fmt.Errorf("duty.reminder_min must be positive"))
	}
	if c.Duty.ReminderMax < c.Duty.ReminderMin {
		errs = append(errs, fmt.Errorf("duty.reminder_max (%s) must not be below duty.reminder_min (%s)",
			c.Duty.ReminderMax.Std(), c.Duty.ReminderMin.Std()))
	}
	if c.Duty.AckWindow <= 0 {
		errs = append(errs, fmt.Errorf("duty.ack_window must be positive"))
	}
	if c.Duty.MaxDuration <= 0 {
		errs = append(errs, fmt.Errorf("duty.max_duration must be positive"))
	}
	if c.Auth.RateBurst < 0 {
		errs = append(errs, fmt.Errorf("auth.rate_burst must not be negative"))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ParseLevel maps the log.level setting onto a slog level.
func ParseLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log.level %q", level)
	}
	return l, nil
}

func LoadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// no file: run on defaults
			return LoadConfigFromBytes(nil)
		}
		return nil, err
	}
	return LoadConfigFromBytes(data)
}

func LoadConfigFromBytes(data []byte) (*Config, error) {
	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, err
	}
	config.SetDefault()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}
