package service

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricsOnce            sync.Once
	preferencesTotal       *prometheus.CounterVec
	notificationsTotal     *prometheus.CounterVec
	providerCallSeconds    *prometheus.HistogramVec
	reconciledPaymentTotal *prometheus.CounterVec
)

func initMetrics() {
	metricsOnce.Do(func() {
		preferencesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "checkout",
			Subsystem: "preferences",
			Name:      "created_total",
			Help:      "Checkout preference creation attempts by result",
		}, []string{"result"})

		notificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "checkout",
			Subsystem: "webhook",
			Name:      "notifications_total",
			Help:      "Provider notifications received by type and result",
		}, []string{"type", "result"})

		providerCallSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "checkout",
			Subsystem: "provider",
			Name:      "call_duration_seconds",
			Help:      "Duration of payment provider calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "result"})

		reconciledPaymentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "checkout",
			Subsystem: "webhook",
			Name:      "reconciled_payments_total",
			Help:      "Payment states applied to the order store by status",
		}, []string{"status"})
	})
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
