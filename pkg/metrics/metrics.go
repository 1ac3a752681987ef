// payment-settlement/pkg/metrics/metrics.go
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// "service" label lets one query compare payments-api and ledger-worker
	PaymentRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "payment",
			Name:      "requests_total",
			Help:      "Total HTTP requests per service",
		},
		[]string{"service", "status", "method"},
	)

	PaymentRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "payment",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration per service",
			Buckets: []float64{
				0.01, 0.02, 0.03, 0.05, 0.08, 0.12,
				0.2, 0.3, 0.5, 0.8, 1.2, 2, 3, 5,
			},
		},
		[]string{"service", "status"},
	)

	SettlementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "payment",
			Name:      "settlements_total",
			Help:      "Settlement task outcomes",
		},
		[]string{"outcome"},
	)

	EventsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "payment",
			Name:      "events_published_total",
			Help:      "Settlement events handed to the broker",
		},
		[]string{"result"},
	)

	EventsConsumedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "events_consumed_total",
			Help:      "Settlement events consumed by the ledger",
		},
		[]string{"result"},
	)

	BonusAccruedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "bonus_accrued_total",
			Help:      "Sum of bonus amounts credited",
		},
	)
)

const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomeSkipped   = "skipped"

	ResultOK        = "ok"
	ResultError     = "error"
	ResultAccrued   = "accrued"
	ResultMalformed = "malformed"
)

func init() {
	prometheus.MustRegister(
		PaymentRequestsTotal,
		PaymentRequestDuration,
		SettlementsTotal,
		EventsPublishedTotal,
		EventsConsumedTotal,
		BonusAccruedTotal,
	)
}

func IncRequest(service, status, method string) {
	PaymentRequestsTotal.WithLabelValues(service, status, method).Inc()
}

func ObserveDuration(service, status string, seconds float64) {
	PaymentRequestDuration.WithLabelValues(service, status).Observe(seconds)
}

func IncSettlement(outcome string) {
	SettlementsTotal.WithLabelValues(outcome).Inc()
}

func IncPublished(result string) {
	EventsPublishedTotal.WithLabelValues(result).Inc()
}

func IncConsumed(result string) {
	EventsConsumedTotal.WithLabelValues(result).Inc()
}

func AddAccrued(amount float64) {
	if amount > 0 {
		BonusAccruedTotal.Add(amount)
	}
}
