// Package config loads and validates the application configuration.
package config

import (
	"fmt"
	"time"

	"github.com/Veraticus/smsflow/internal/common"
	"github.com/Veraticus/smsflow/internal/linking"
	"github.com/Veraticus/smsflow/internal/source"
	"github.com/spf13/viper"
)

// Config keys.
const (
	KeyDatabasePath      = "database.path"
	KeySameDayWindow     = "linking.same_day_window"
	KeyWideWindowDays    = "linking.wide_window_days"
	KeyPossibleThreshold = "linking.possible_threshold"
	KeyAutoLinkThreshold = "linking.auto_link_threshold"
	KeyImportWorkers     = "import.workers"
	KeyImportFormat      = "import.format"
	KeyLogLevel          = "logging.level"
	KeyLogFormat         = "logging.format"
)

// DefaultDatabasePath is used when database.path is unset.
const DefaultDatabasePath = "~/.local/share/smsflow/smsflow.db"

// Config is the validated application configuration.
type Config struct {
	Database DatabaseConfig
	Logging  LoggingConfig
	Import   ImportConfig
	Linking  LinkingConfig
}

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path string
}

// LinkingConfig tunes the linked-transaction detector.
type LinkingConfig struct {
	SameDayWindow     time.Duration
	WideWindowDays    int
	PossibleThreshold int
	AutoLinkThreshold int
}

// ImportConfig controls message import.
type ImportConfig struct {
	Format  source.Format
	Workers int
}

// LoggingConfig selects the log level and handler format.
type LoggingConfig struct {
	Level  string
	Format string
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	defaults := linking.DefaultConfig()

	v.SetDefault(KeyDatabasePath, DefaultDatabasePath)
	v.SetDefault(KeySameDayWindow, defaults.SameDayWindow)
	v.SetDefault(KeyWideWindowDays, int(defaults.WideWindow/(24*time.Hour)))
	v.SetDefault(KeyPossibleThreshold, defaults.PossibleThreshold)
	v.SetDefault(KeyAutoLinkThreshold, defaults.AutoLinkThreshold)
	v.SetDefault(KeyImportWorkers, 4)
	v.SetDefault(KeyImportFormat, string(source.FormatAuto))
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "console")
}

// Load reads the configuration from v and validates it.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	format, err := source.ParseFormat(v.GetString(KeyImportFormat))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", common.ErrInvalidConfig, KeyImportFormat, err)
	}

	dbPath, err := DatabasePath(v.GetString(KeyDatabasePath))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Database: DatabaseConfig{Path: dbPath},
		Linking: LinkingConfig{
			SameDayWindow:     v.GetDuration(KeySameDayWindow),
			WideWindowDays:    v.GetInt(KeyWideWindowDays),
			PossibleThreshold: v.GetInt(KeyPossibleThreshold),
			AutoLinkThreshold: v.GetInt(KeyAutoLinkThreshold),
		},
		Import: ImportConfig{
			Format:  format,
			Workers: v.GetInt(KeyImportWorkers),
		},
		Logging: LoggingConfig{
			Level:  v.GetString(KeyLogLevel),
			Format: v.GetString(KeyLogFormat),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("%w: %s is required", common.ErrInvalidConfig, KeyDatabasePath)
	}

	l := c.Linking
	if l.SameDayWindow <= 0 {
		return fmt.Errorf("%w: %s must be positive", common.ErrInvalidConfig, KeySameDayWindow)
	}
	if l.WideWindowDays <= 0 {
		return fmt.Errorf("%w: %s must be positive", common.ErrInvalidConfig, KeyWideWindowDays)
	}
	for key, threshold := range map[string]int{
		KeyPossibleThreshold: l.PossibleThreshold,
		KeyAutoLinkThreshold: l.AutoLinkThreshold,
	} {
		if threshold < 0 || threshold > 100 {
			return fmt.Errorf("%w: %s must be within 0..100, got %d", common.ErrInvalidConfig, key, threshold)
		}
	}
	if l.AutoLinkThreshold < l.PossibleThreshold {
		return fmt.Errorf("%w: %s (%d) is below %s (%d)", common.ErrInvalidConfig,
			KeyAutoLinkThreshold, l.AutoLinkThreshold, KeyPossibleThreshold, l.PossibleThreshold)
	}

	if c.Import.Workers < 1 {
		return fmt.Errorf("%w: %s must be at least 1", common.ErrInvalidConfig, KeyImportWorkers)
	}

	if _, err := common.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("%w: invalid log format %q", common.ErrInvalidConfig, c.Logging.Format)
	}
	return nil
}

// Detector converts the linking section into detector settings.
func (l LinkingConfig) Detector() linking.Config {
	return linking.Config{
		SameDayWindow:     l.SameDayWindow,
		WideWindow:        time.Duration(l.WideWindowDays) * 24 * time.Hour,
		PossibleThreshold: l.PossibleThreshold,
		AutoLinkThreshold: l.AutoLinkThreshold,
	}
}
