package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PassPurchases = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "logimatch_pass_purchases_total",
		Help: "Total viewing pass purchases by package",
	}, []string{"package"})

	PassExtensions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "logimatch_pass_extensions_total",
		Help: "Total viewing pass extensions by timing relative to expiry",
	}, []string{"timing"})

	Reveals = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "logimatch_reveals_total",
		Help: "Total contact reveal attempts by outcome",
	}, []string{"outcome"})

	PremiumApplications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "logimatch_premium_applications_total",
		Help: "Total premium applications by package",
	}, []string{"package"})

	PremiumExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "logimatch_premium_expired_total",
		Help: "Total premium subscriptions flipped to expired",
	})

	StoreWriteDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "logimatch_store_write_duration_seconds",
		Help:    "Time to write a collection to the store",
		Buckets: prometheus.DefBuckets,
	}, []string{"collection"})

	SSEClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "logimatch_sse_clients",
		Help: "Current number of SSE clients connected",
	})
)

func labelOrUnknown(value string) string {
	label := strings.TrimSpace(value)
	if label == "" {
		return "unknown"
	}
	return label
}

func IncPassPurchase(packageType string) {
	PassPurchases.WithLabelValues(labelOrUnknown(packageType)).Inc()
}

// IncPassExtension records an extension; early is true when the pass had not expired yet.
func IncPassExtension(early bool) {
	timing := "after_expiry"
	if early {
		timing = "before_expiry"
	}
	PassExtensions.WithLabelValues(timing).Inc()
}

func IncReveal(outcome string) {
	Reveals.WithLabelValues(labelOrUnknown(outcome)).Inc()
}

func IncPremiumApplication(packageType string) {
	PremiumApplications.WithLabelValues(labelOrUnknown(packageType)).Inc()
}

func IncPremiumExpired() {
	PremiumExpired.Inc()
}

func ObserveStoreWrite(collection string, duration time.Duration) {
	StoreWriteDuration.WithLabelValues(labelOrUnknown(collection)).Observe(duration.Seconds())
}

func SetSSEClients(count int) {
	if count < 0 {
		count = 0
	}
	SSEClients.Set(float64(count))
}
