package server

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/propscout/propscout/enrichment"
)

// Metrics holds the frontend's Prometheus collectors.
type Metrics struct {
	mu sync.Mutex

	backendRequests    *prometheus.CounterVec
	backendLatency     *prometheus.HistogramVec
	enrichmentDuration *prometheus.HistogramVec
	sectionsRendered   *prometheus.CounterVec
	descriptorFailures *prometheus.CounterVec

	registerer prometheus.Registerer
	registered bool
}

func newCounterVec(name, help string, labels []string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "propscout",
		Name:      name,
		Help:      help,
	}, labels)
}

func newHistogramVec(name, help string, buckets []float64, labels []string) *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "propscout",
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	}, labels)
}

// NewMetrics creates collectors bound to registerer (default registerer when nil).
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	return &Metrics{
		registerer:         registerer,
		backendRequests:    newCounterVec("backend_requests_total", "Backend API requests by method and status class", []string{"method", "status"}),
		backendLatency:     newHistogramVec("backend_request_seconds", "Backend API request latency", prometheus.DefBuckets, []string{"method"}),
		enrichmentDuration: newHistogramVec("enrichment_duration_seconds", "Time to enrich a property and render its sections", []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}, []string{"outcome"}),
		sectionsRendered:   newCounterVec("sections_rendered_total", "Enrichment sections rendered by kind", []string{"kind"}),
		descriptorFailures: newCounterVec("descriptor_failures_total", "Enrichment descriptors dropped because their payload could not be shown", []string{"descriptor", "stage"}),
	}
}

// Register registers the collectors. Safe to call multiple times.
func (m *Metrics) Register() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.registered {
		return nil
	}
	for _, c := range []prometheus.Collector{
		m.backendRequests,
		m.backendLatency,
		m.enrichmentDuration,
		m.sectionsRendered,
		m.descriptorFailures,
	} {
		if err := m.registerer.Register(c); err != nil {
			return err
		}
	}
	m.registered = true
	return nil
}

// ObserveBackend is the httpclient Observe hook. status 0 means the request
// never got a response.
func (m *Metrics) ObserveBackend(method string, status int, elapsed time.Duration) {
	m.backendRequests.WithLabelValues(method, statusClass(status)).Inc()
	m.backendLatency.WithLabelValues(method).Observe(elapsed.Seconds())
}

// ObserveEnrichment records one enrichment and what it rendered.
func (m *Metrics) ObserveEnrichment(elapsed time.Duration, sel *enrichment.Selection, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.enrichmentDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
	if sel == nil {
		return
	}
	for _, s := range sel.Sections {
		m.sectionsRendered.WithLabelValues(string(s.Kind())).Inc()
	}
	for _, f := range sel.Failures {
		m.descriptorFailures.WithLabelValues(f.Descriptor, f.Stage).Inc()
	}
}

func statusClass(status int) string {
	if status <= 0 {
		return "error"
	}
	return strconv.Itoa(status/100) + "xx"
}
