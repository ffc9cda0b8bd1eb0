package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// DeploysTotal counts completed deploys by app and outcome
	// ("success"/"failure").
	DeploysTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edged_deploys_total",
			Help: "Total number of deploys by application and outcome",
		},
		[]string{"app", "outcome"},
	)

	DeployDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "edged_deploy_duration_seconds",
			Help:    "Time taken to complete a deploy, in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	LayersUploadedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "edged_layers_uploaded_total",
			Help: "Total number of successful writeLayer uploads, including ones whose blob was already present",
		},
	)

	ContainersRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "edged_containers_running",
			Help: "Number of applications with a running task, as of the last List call",
		},
	)

	SelfUpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edged_self_updates_total",
			Help: "Total number of self-update attempts by outcome",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(DeploysTotal)
	prometheus.MustRegister(DeployDuration)
	prometheus.MustRegister(LayersUploadedTotal)
	prometheus.MustRegister(ContainersRunning)
	prometheus.MustRegister(SelfUpdatesTotal)
}

// Handler returns the Prometheus scrape endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures an operation's duration for later recording against a
// histogram.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed time against histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}
