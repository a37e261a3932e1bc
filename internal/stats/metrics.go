package stats

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	commandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stationsim_commands_total",
			Help: "Total number of OCPP commands processed, by command and outcome",
		},
		[]string{"command", "outcome"},
	)

	commandDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stationsim_command_duration_seconds",
			Help:    "Command round-trip duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command"},
	)

	stationsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stationsim_stations_active",
			Help: "Number of stations currently connected",
		},
	)
)

// SetActiveStations updates the active-station gauge. Callers pass the
// worker pool's current connected count.
func SetActiveStations(n int) {
	stationsActive.Set(float64(n))
}

func observe(command string, success bool, seconds float64) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	commandsTotal.WithLabelValues(command, outcome).Inc()
	commandDuration.WithLabelValues(command).Observe(seconds)
}
