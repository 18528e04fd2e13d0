package scheduler

import (
	"time"
)

// Config controls the auto-renewal driver's cadence and batching.
type Config struct {
	// RunInterval is the pause between sweeps in RunForever.
	RunInterval time.Duration
	// Concurrency caps renewals in flight. Customers are independent;
	// per-customer serialization happens at the row lock.
	Concurrency int
	// BatchSize is the page size when fetching due customers.
	BatchSize int
}

func DefaultConfig() Config {
	return Config{
		RunInterval: time.Hour,
		Concurrency: 4,
		BatchSize:   500,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.Concurrency <= 0 {
		c.Concurrency = defaults.Concurrency
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	return c
}
