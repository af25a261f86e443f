package config

import (
	"errors"
	"fmt"
	"time"
)

// Config is the full bot configuration, loaded from a YAML file.
//
// All duration fields are Go duration strings (e.g. "500ms", "10s", "2m").
type Config struct {
	Telegram    TelegramConfig    `yaml:"telegram"`
	Logging     LoggingConfig     `yaml:"logging"`
	Storage     StorageConfig     `yaml:"storage"`
	Broadcast   BroadcastConfig   `yaml:"broadcast"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
}

type TelegramConfig struct {
	Token string `yaml:"token"`
	// AdminGroupID is the operator group: progress notifications land there
	// and private user messages are forwarded into it.
	AdminGroupID int64   `yaml:"admin_group_id"`
	AdminUserIDs []int64 `yaml:"admin_user_ids"`
	PollTimeout  string  `yaml:"poll_timeout"`
}

type LoggingConfig struct {
	Level   string      `yaml:"level"`
	Console bool        `yaml:"console"`
	File    LoggingFile `yaml:"file"`
}

type LoggingFile struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type StorageConfig struct {
	Driver      string `yaml:"driver"`
	Path        string `yaml:"path"`
	BusyTimeout string `yaml:"busy_timeout"`
}

// BroadcastConfig tunes the fan-out engine.
//
// Defaults (when fields are omitted/zero):
//   - batch_size: 25
//   - rate_per_sec: 25
//   - retry_max: 5
//   - report_every: "2s"
//   - report_threshold: 100
type BroadcastConfig struct {
	BatchSize       int    `yaml:"batch_size"`
	RatePerSec      int    `yaml:"rate_per_sec"`
	RetryMax        int    `yaml:"retry_max"`
	ReportEvery     string `yaml:"report_every"`
	ReportThreshold int    `yaml:"report_threshold"`
}

// MaintenanceConfig controls background housekeeping.
type MaintenanceConfig struct {
	// CleanupSchedule is a cron expression for pruning blocked users.
	// Empty disables the job.
	CleanupSchedule string `yaml:"cleanup_schedule"`
}

// Validate checks the fields the bot cannot run without.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Telegram.Token == "" {
		return errors.New("telegram.token is required")
	}
	if c.Telegram.AdminGroupID == 0 {
		return errors.New("telegram.admin_group_id is required")
	}
	if _, err := c.durations(); err != nil {
		return err
	}
	return nil
}

// Durations bundles the parsed duration fields.
type Durations struct {
	PollTimeout        time.Duration
	StorageBusyTimeout time.Duration
	ReportEvery        time.Duration
}

func (c *Config) durations() (Durations, error) {
	var d Durations
	var err error
	if d.PollTimeout, err = parseDuration("telegram.poll_timeout", c.Telegram.PollTimeout); err != nil {
		return Durations{}, err
	}
	if d.StorageBusyTimeout, err = parseDuration("storage.busy_timeout", c.Storage.BusyTimeout); err != nil {
		return Durations{}, err
	}
	if d.ReportEvery, err = parseDuration("broadcast.report_every", c.Broadcast.ReportEvery); err != nil {
		return Durations{}, err
	}
	return d, nil
}

// Durations returns the parsed duration fields. Call after Validate.
func (c *Config) Durations() Durations {
	d, _ := c.durations()
	return d
}

func parseDuration(field, raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	return d, nil
}
