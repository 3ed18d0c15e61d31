package model

import "time"

// JobInfo is the scheduler's introspection view of one registered job.
type JobInfo struct {
	Name         string        `json:"name"`
	Interval     time.Duration `json:"interval"`
	NextRun      time.Time     `json:"next_run_time"`
	Paused       bool          `json:"is_paused"`
	Running      bool          `json:"is_running"`
	MaxInstances int           `json:"max_instances"`
}
