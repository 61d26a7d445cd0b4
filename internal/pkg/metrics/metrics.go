package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	IntentsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookly_intents_created_total",
			Help: "Number of payment intents created at providers",
		},
		[]string{"method"},
	)

	Notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookly_notifications_total",
			Help: "Number of provider notifications by verification result",
		},
		[]string{"method", "result"},
	)

	PurchasesCompleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookly_purchases_completed_total",
			Help: "Number of purchases written to the ledger",
		},
		[]string{"method"},
	)

	ProviderRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bookly_provider_request_duration_seconds",
			Help:    "Time taken by outbound provider requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "operation"},
	)
)

var registerOnce sync.Once

// Register регистрирует метрики в default registry, повторный вызов безопасен
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(IntentsCreated, Notifications, PurchasesCompleted, ProviderRequestDuration)
	})
}

// ObserveProvider замеряет длительность запроса к провайдеру: defer metrics.ObserveProvider("yookassa", "create_payment")()
func ObserveProvider(provider, operation string) func() {
	start := time.Now()
	return func() {
		ProviderRequestDuration.WithLabelValues(provider, operation).Observe(time.Since(start).Seconds())
	}
}
