package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "magicbot_events_total",
	Help: "received events by how they were classified",
}, []string{"kind"})

var actionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "magicbot_actions_total",
	Help: "moderation actions taken, by outcome",
}, []string{"action", "result"})

// event kinds
const (
	kindNoGroup   = "no_group"
	kindUnwatched = "unwatched"
	kindUpdate    = "update"
	kindMessage   = "message"
)

func countAction(action string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	actionsTotal.WithLabelValues(action, result).Inc()
}
