package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	DispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "actions_dispatch_total",
			Help: "Action emails dispatched by action and outcome",
		},
		[]string{"action", "outcome"}, // verify_email|reset_password , sent|rejected|failed
	)

	VerificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "actions_verifications_total",
			Help: "Action token verifications by token type and terminal state",
		},
		[]string{"token_type", "state"}, // verify-email|execute-actions , reanchored|finalized|rejected
	)

	EventsForwardedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "actions_events_forwarded_total",
			Help: "Events forwarded to the message topics by category and outcome",
		},
		[]string{"category", "outcome"}, // domain|admin , published|skipped|failed|timeout|interrupted
	)
)

func MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		DispatchTotal,
		VerificationsTotal,
		EventsForwardedTotal,
	)
}
