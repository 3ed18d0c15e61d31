package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(jobRunsTotal, jobRetriesTotal, jobPausesTotal, jobRunSeconds)
}

var jobRunsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "job_runs_total",
		Help: "Total job runs reaching a terminal state, labeled by job and status.",
	},
	[]string{"job", "status"}, // 'success', 'failed'
)

var jobRetriesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "job_retries_total",
		Help: "Total retries consumed across all runs, labeled by job.",
	},
	[]string{"job"},
)

var jobPausesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "job_pauses_total",
		Help: "Times the circuit breaker paused a job.",
	},
	[]string{"job"},
)

var jobRunSeconds = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "job_run_seconds",
		Help:    "Wall-clock duration of terminal job runs in seconds.",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
	},
	[]string{"job"},
)

func IncJobRun(job, status string) {
	jobRunsTotal.WithLabelValues(norm(job), norm(status)).Inc()
}

func AddJobRetries(job string, n int) {
	if n > 0 {
		jobRetriesTotal.WithLabelValues(norm(job)).Add(float64(n))
	}
}

func IncJobPause(job string) {
	jobPausesTotal.WithLabelValues(norm(job)).Inc()
}

func ObserveJobDuration(job string, seconds float64) {
	jobRunSeconds.WithLabelValues(norm(job)).Observe(seconds)
}
