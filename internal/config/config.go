package config

import (
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Database
		Global
		Quota
		Rental
		Sweep
		Retention
		Tasks
	}

	HTTP struct {
		Port int32
		Host string
	}
	Database struct {
		Path string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Quota struct {
		DefaultTier          string
		DefaultMaxConcurrent int // concurrent sessions per kind on the default tier
		AudiobookRentalDays  int
	}
	Rental struct {
		DefaultRentalDays int // hardcopy loan period when a book carries none
	}
	Sweep struct {
		Enabled  bool
		Schedule string // Cron format: "*/15 * * * *" = every 15 minutes
	}
	Retention struct {
		EventRetentionDays int    // Days to keep routine access events (default: 90)
		Schedule           string // Cron format for enqueueing the cleanup task
	}
	Tasks struct {
		Enabled         bool
		Workers         int
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8191)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("database_path", DefaultDatabasePath)

	v.SetDefault("quota_default_tier", "standard")
	v.SetDefault("quota_default_max_concurrent", 2)
	v.SetDefault("audiobook_rental_days", 14)
	v.SetDefault("hardcopy_rental_days", 30)

	v.SetDefault("sweep_enabled", true)
	v.SetDefault("sweep_schedule", "*/15 * * * *") // Every 15 minutes

	v.SetDefault("event_retention_days", 90)
	v.SetDefault("retention_schedule", "30 3 * * *") // Daily at 03:30

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Quota: Quota{
			DefaultTier:          v.GetString("QUOTA_DEFAULT_TIER"),
			DefaultMaxConcurrent: v.GetInt("QUOTA_DEFAULT_MAX_CONCURRENT"),
			AudiobookRentalDays:  v.GetInt("AUDIOBOOK_RENTAL_DAYS"),
		},
		Rental: Rental{
			DefaultRentalDays: v.GetInt("HARDCOPY_RENTAL_DAYS"),
		},
		Sweep: Sweep{
			Enabled:  v.GetBool("SWEEP_ENABLED"),
			Schedule: v.GetString("SWEEP_SCHEDULE"),
		},
		Retention: Retention{
			EventRetentionDays: v.GetInt("EVENT_RETENTION_DAYS"),
			Schedule:           v.GetString("RETENTION_SCHEDULE"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			Workers:         v.GetInt("TASK_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
	}
}
