package scheduler

import (
	"time"

	"github.com/smallbiznis/mercado/internal/config"
)

// Config controls the snapshot loop.
type Config struct {
	RunInterval     time.Duration
	SnapshotTimeout time.Duration
	LockTTL         time.Duration
	// EnabledJobs limits which jobs run. Empty enables every job.
	EnabledJobs []string
}

func DefaultConfig() Config {
	return Config{
		RunInterval:     5 * time.Minute,
		SnapshotTimeout: 30 * time.Second,
		LockTTL:         time.Minute,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.SnapshotTimeout <= 0 {
		c.SnapshotTimeout = defaults.SnapshotTimeout
	}
	if c.LockTTL <= 0 {
		c.LockTTL = defaults.LockTTL
	}
	return c
}

func ProvideConfig(cfg config.Config) Config {
	return Config{RunInterval: cfg.SnapshotInterval}.withDefaults()
}
