// Package metrics exposes prometheus instrumentation for the billing
// core. Collectors register against the default registry and are served
// by the HTTP server's /metrics endpoint.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	renewalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "netbill_renewals_total",
		Help: "Subscription renewals by outcome.",
	}, []string{"result"})

	paymentsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "netbill_payments_total",
		Help: "Payments allocated against customer ledgers.",
	})

	paymentAmount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "netbill_payment_amount_total",
		Help: "Total payment credit allocated, in currency units.",
	})

	batchRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "netbill_renewal_batch_runs_total",
		Help: "Auto-renewal batch driver runs.",
	})

	batchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "netbill_renewal_batch_duration_seconds",
		Help:    "Auto-renewal batch run duration.",
		Buckets: prometheus.DefBuckets,
	})
)

func IncRenewal(result string) {
	renewalsTotal.WithLabelValues(result).Inc()
}

func IncPayment(amount float64) {
	paymentsTotal.Inc()
	if amount > 0 {
		paymentAmount.Add(amount)
	}
}

func ObserveBatchRun(d time.Duration) {
	batchRunsTotal.Inc()
	batchDuration.Observe(d.Seconds())
}
