package signalcli

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var callDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "magicbot_gateway_call_duration_seconds",
	Help:    "Duration of one-shot signal-cli invocations",
	Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
}, []string{"command", "result"})

func observeCall(command string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	callDuration.WithLabelValues(command, result).Observe(time.Since(start).Seconds())
}
