package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Lifecycle metrics
	BotsStartedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_manager_bots_started_total",
			Help: "Total number of bot workloads started",
		},
	)

	BotsDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_manager_bots_denied_total",
			Help: "Total number of bot starts denied by the admission quota",
		},
	)

	BotsStoppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_manager_bots_stopped_total",
			Help: "Total number of bot workloads stopped",
		},
	)

	CreationFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_manager_creation_failures_total",
			Help: "Total number of workload creations rejected by the platform",
		},
	)

	RunningBots = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bot_manager_running_bots",
			Help: "Bot workloads observed running at the last status listing",
		},
	)

	// Admission metrics
	AdmissionCheckDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bot_manager_admission_check_duration_seconds",
			Help:    "Admission check duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(
		BotsStartedTotal,
		BotsDeniedTotal,
		BotsStoppedTotal,
		CreationFailuresTotal,
		RunningBots,
		AdmissionCheckDuration,
	)
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
