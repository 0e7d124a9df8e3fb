package services

import "github.com/prometheus/client_golang/prometheus"

var (
	dispatchAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_dispatch_attempts_total",
			Help: "Remote model attempts by model and outcome",
		},
		[]string{"model", "outcome"},
	)
	dispatchResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_dispatch_results_total",
			Help: "Dispatcher results by model and final status",
		},
		[]string{"model", "status"},
	)
	dispatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assistant_dispatch_duration_milliseconds",
			Help:    "Dispatcher duration in milliseconds, all attempts included",
			Buckets: []float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000},
		},
		[]string{"model"},
	)
	notificationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "assistant_usage_threshold_notifications_total",
			Help: "Usage threshold warnings emitted",
		},
	)
)

func init() {
	prometheus.MustRegister(dispatchAttemptsTotal)
	prometheus.MustRegister(dispatchResultsTotal)
	prometheus.MustRegister(dispatchDuration)
	prometheus.MustRegister(notificationsTotal)
}
