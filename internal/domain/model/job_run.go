package model

import "time"

// JobKind discriminates the two scheduled job families sharing the
// job_runs table. Every query against the table carries one.
type JobKind string

const (
	JobDataCollector          JobKind = "data_collector"
	JobNotificationDispatcher JobKind = "notification_dispatcher"
)

func (k JobKind) Valid() bool {
	return k == JobDataCollector || k == JobNotificationDispatcher
}

type JobRunStatus string

const (
	JobRunRunning JobRunStatus = "running"
	JobRunSuccess JobRunStatus = "success"
	JobRunFailed  JobRunStatus = "failed"
	// Marker statuses. These rows have StartedAt == CompletedAt and no
	// retry semantics; they record circuit-breaker transitions.
	JobRunPaused  JobRunStatus = "paused"
	JobRunResumed JobRunStatus = "resumed"
)

func (s JobRunStatus) Terminal() bool {
	return s == JobRunSuccess || s == JobRunFailed
}

// JobRun is one attempt group: a single scheduled tick including all of
// its retries, or a standalone paused/resumed marker.
type JobRun struct {
	ID              string         `json:"id"`
	Job             JobKind        `json:"job"`
	Status          JobRunStatus   `json:"status"`
	StartedAt       time.Time      `json:"started_at"`
	CompletedAt     *time.Time     `json:"completed_at,omitempty"`
	DurationSeconds *int           `json:"duration_seconds,omitempty"`
	ItemsScanned    *int           `json:"items_scanned,omitempty"`
	ItemsNew        *int           `json:"items_new,omitempty"`
	ResultPayload   map[string]any `json:"result_payload,omitempty"`
	ErrorMessage    *string        `json:"error_message,omitempty"`
	RetryCount      int            `json:"retry_count"`
	CreatedAt       time.Time      `json:"created_at"`
}

// JobRunPatch carries the fields a terminal update may set. Nil fields
// are left untouched by the repository.
type JobRunPatch struct {
	Status          *JobRunStatus
	CompletedAt     *time.Time
	DurationSeconds *int
	ItemsScanned    *int
	ItemsNew        *int
	ResultPayload   map[string]any
	ErrorMessage    *string
	RetryCount      *int
}

// JobOutcome is what a job body reports on success. The executor copies
// the counters into the terminal history record.
type JobOutcome struct {
	ItemsScanned int
	ItemsNew     int
	Payload      map[string]any
}

// JobStats aggregates success/failed runs over a trailing window.
// Running and marker rows are excluded from the denominator.
type JobStats struct {
	Total              int      `json:"total_runs"`
	SuccessCount       int      `json:"success_count"`
	FailureCount       int      `json:"failure_count"`
	SuccessRate        float64  `json:"success_rate"`
	AvgDurationSeconds float64  `json:"avg_duration_seconds"`
	RecentFailures     []string `json:"recent_failures"`
}
