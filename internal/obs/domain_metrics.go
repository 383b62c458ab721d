package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// ScanTotal counts scan attempts by outcome.
	ScanTotal *prometheus.CounterVec
	// CartTotalAmount records the totals handed out to callers, in minor units.
	CartTotalAmount prometheus.Histogram
	// CartResetTotal counts cart resets by the catalog they switched to.
	CartResetTotal *prometheus.CounterVec
	// CatalogPublishTotal counts catalog publish attempts by outcome.
	CatalogPublishTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers checkout collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		ScanTotal = registerOrReuse(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_scans_total",
			Help:      "Count of scanned item codes by outcome.",
		}, []string{"result"}))
		CartTotalAmount = registerOrReuse(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "checkout_cart_total_minor_units",
			Help:      "Distribution of computed cart totals in minor currency units.",
			Buckets:   []float64{500, 1000, 2500, 5000, 10000, 25000, 50000, 100000},
		}))
		CartResetTotal = registerOrReuse(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_resets_total",
			Help:      "Count of cart resets.",
		}, []string{"catalog"}))
		CatalogPublishTotal = registerOrReuse(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_publish_total",
			Help:      "Count of catalog publish attempts by outcome.",
		}, []string{"result"}))
	})
}

// ObserveScan records a scan outcome. Safe to call before registration.
func ObserveScan(result string) {
	if ScanTotal != nil {
		ScanTotal.WithLabelValues(result).Inc()
	}
}

// ObserveTotal records a computed cart total.
func ObserveTotal(amount int64) {
	if CartTotalAmount != nil {
		CartTotalAmount.Observe(float64(amount))
	}
}

// ObserveReset records a cart reset.
func ObserveReset(catalog string) {
	if CartResetTotal != nil {
		CartResetTotal.WithLabelValues(catalog).Inc()
	}
}

// ObservePublish records a catalog publish outcome.
func ObservePublish(result string) {
	if CatalogPublishTotal != nil {
		CatalogPublishTotal.WithLabelValues(result).Inc()
	}
}
