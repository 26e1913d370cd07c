package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	toolCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "resavox",
			Name:      "tool_calls_total",
			Help:      "Count of voice agent tool calls by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	reservationsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "resavox",
			Name:      "reservations_created_total",
			Help:      "Count of reservations created through the agent.",
		},
	)

	reservationsCancelled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "resavox",
			Name:      "reservations_cancelled_total",
			Help:      "Count of reservations cancelled, by channel.",
		},
		[]string{"channel"},
	)

	transfers = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "resavox",
			Name:      "transfers_total",
			Help:      "Count of calls handed off to a human, by reason.",
		},
		[]string{"reason"},
	)

	smsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "resavox",
			Name:      "sms_sent_total",
			Help:      "Count of SMS delivery attempts by result.",
		},
		[]string{"result"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(toolCalls, reservationsCreated, reservationsCancelled, transfers, smsSent)
	})
}

func IncToolCall(operation, outcome string) {
	toolCalls.WithLabelValues(operation, outcome).Inc()
}

func IncReservationCreated() {
	reservationsCreated.Inc()
}

func IncReservationCancelled(channel string) {
	reservationsCancelled.WithLabelValues(channel).Inc()
}

func IncTransfer(reason string) {
	transfers.WithLabelValues(reason).Inc()
}

func IncSMSSent(result string) {
	smsSent.WithLabelValues(result).Inc()
}
