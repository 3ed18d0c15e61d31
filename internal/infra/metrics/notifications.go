package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(notificationsSentTotal, workItemsProcessedTotal, workItemsCollectedTotal)
}

var notificationsSentTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "notifications_sent_total",
		Help: "Fan-out notifications attempted, labeled by channel and outcome.",
	},
	[]string{"channel", "status"}, // 'sent', 'failed'
)

var workItemsProcessedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "work_items_processed_total",
		Help: "Work items marked processed after keyword matching.",
	},
)

var workItemsCollectedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "work_items_collected_total",
		Help: "Work items returned by the collector, labeled new vs duplicate.",
	},
	[]string{"outcome"}, // 'new', 'duplicate'
)

func IncNotification(channel, status string) {
	notificationsSentTotal.WithLabelValues(norm(channel), norm(status)).Inc()
}

func AddWorkItemsProcessed(n int) {
	if n > 0 {
		workItemsProcessedTotal.Add(float64(n))
	}
}

func AddWorkItemsCollected(outcome string, n int) {
	if n > 0 {
		workItemsCollectedTotal.WithLabelValues(norm(outcome)).Add(float64(n))
	}
}
