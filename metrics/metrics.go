package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	bookingOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_operations_total",
			Help: "Booking operations by outcome",
		},
		[]string{"operation", "status"},
	)

	ticketsReserved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickets_reserved_total",
			Help: "Seats reserved per variant",
		},
		[]string{"variant"},
	)

	settlementFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_failures_total",
			Help: "Settlement steps that failed after a payment was captured",
		},
		[]string{"step"},
	)

	gatewayDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_gateway_duration_seconds",
			Help:    "Latency of payment gateway calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "status"},
	)
)

// RecordOperation counts one orchestrator call. status is "success" or an error kind.
func RecordOperation(operation, status string) {
	bookingOperations.WithLabelValues(operation, status).Inc()
}

func RecordReserved(variant string, qty int) {
	ticketsReserved.WithLabelValues(variant).Add(float64(qty))
}

func RecordSettlementFailure(step string) {
	settlementFailures.WithLabelValues(step).Inc()
}

func ObserveGateway(operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	gatewayDuration.WithLabelValues(operation, status).Observe(time.Since(start).Seconds())
}
