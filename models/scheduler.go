package models

import "time"

// Scheduler interval bounds. Reconfiguration outside this window is rejected
// by config validation and by the scheduler itself.
const (
	MinSyncInterval = time.Minute
	MaxSyncInterval = 24 * time.Hour
)

// SchedulerConfig is the persisted singleton describing the unattended sync
// schedule for one installation. It is mutated only through the scheduler's
// own update path.
type SchedulerConfig struct {
	Enabled  bool          `json:"enabled"`
	Interval time.Duration `json:"interval"`
	LastRun  time.Time     `json:"last_run"`
}

// ClampInterval forces the interval into the supported window.
func (c SchedulerConfig) ClampInterval() SchedulerConfig {
	if c.Interval < MinSyncInterval {
		c.Interval = MinSyncInterval
	}
	if c.Interval > MaxSyncInterval {
		c.Interval = MaxSyncInterval
	}
	return c
}
