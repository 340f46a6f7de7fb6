package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// InvoicesComputedTotal counts engine runs (previews and creations).
	InvoicesComputedTotal *prometheus.CounterVec
	// InvoicesCreatedTotal counts invoice creation outcomes.
	InvoicesCreatedTotal *prometheus.CounterVec
	// InvoiceLineItems observes the number of line items per computed invoice.
	InvoiceLineItems prometheus.Histogram
	// SettingsCacheTotal counts settings cache lookups by result.
	SettingsCacheTotal *prometheus.CounterVec
	// PDFRenderTotal counts PDF renders by outcome.
	PDFRenderTotal *prometheus.CounterVec
	// WebhookDeliveriesTotal tracks webhook dispatch outcomes.
	WebhookDeliveriesTotal *prometheus.CounterVec
	// WebhookAttemptLatency records delivery attempt latency in milliseconds.
	WebhookAttemptLatency *prometheus.HistogramVec
	// JobsProcessedTotal counts background tasks by kind and result.
	JobsProcessedTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
// Safe to call more than once; the first registry wins.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		InvoicesComputedTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoices_computed_total",
			Help:      "Count of invoice computations by perspective and grouping.",
		}, []string{"perspective", "group_by"}))
		InvoicesCreatedTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoices_created_total",
			Help:      "Count of invoice creation outcomes.",
		}, []string{"result"}))
		InvoiceLineItems = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "invoice_line_items",
			Help:      "Number of line items per computed invoice.",
			Buckets:   []float64{1, 2, 5, 10, 20, 50, 100},
		}))
		SettingsCacheTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settings_cache_total",
			Help:      "Invoice settings cache lookups by result.",
		}, []string{"result"}))
		PDFRenderTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoice_pdf_render_total",
			Help:      "Count of invoice PDF renders by outcome.",
		}, []string{"result"}))
		WebhookDeliveriesTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_deliveries_total",
			Help:      "Count of webhook delivery outcomes.",
		}, []string{"result"}))
		WebhookAttemptLatency = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "webhook_attempt_duration_ms",
			Help:      "Latency for webhook delivery attempts in milliseconds.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"result"}))
		JobsProcessedTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_processed_total",
			Help:      "Background tasks processed by kind and result.",
		}, []string{"kind", "result"}))
	})
}

// register adds c to reg, returning the already registered collector on duplicates.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
			return c
		}
		panic(fmt.Errorf("register metric: %w", err))
	}
	return c
}

// Inc increments a counter vector when metrics are registered. Callers in tests may run
// without a registry.
func Inc(vec *prometheus.CounterVec, labels ...string) {
	if vec == nil {
		return
	}
	vec.WithLabelValues(labels...).Inc()
}
