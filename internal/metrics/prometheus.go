// Package metrics exposes Prometheus instrumentation for the query client.
// The exporter doubles as the client's request observer, so enabling the
// endpoint is the only wiring a caller needs.
package metrics

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

// Prometheus metric names.
const (
	MetricRequestsTotal          = "deeplynx_requests_total"
	MetricRequestDurationSeconds = "deeplynx_request_duration_seconds"
	MetricRecordsFetchedTotal    = "deeplynx_records_fetched_total"
)

// Exporter collects request metrics and serves them over HTTP for scraping.
type Exporter struct {
	registry        *prometheus.Registry
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	recordsFetched  *prometheus.CounterVec

	server *http.Server
	ln     net.Listener
}

// NewExporter creates an exporter with its own registry.
func NewExporter() *Exporter {
	registry := prometheus.NewRegistry()

	e := &Exporter{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricRequestsTotal,
			Help: "Total Deep Lynx requests by endpoint and HTTP status.",
		}, []string{"endpoint", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricRequestDurationSeconds,
			Help:    "Deep Lynx request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		recordsFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricRecordsFetchedTotal,
			Help: "Records returned by Deep Lynx queries, by metatype.",
		}, []string{"metatype"}),
	}

	registry.MustRegister(e.requestsTotal, e.requestDuration, e.recordsFetched)
	return e
}

// ObserveRequest implements the client observer interface.
func (e *Exporter) ObserveRequest(endpoint string, statusCode int, duration time.Duration) {
	status := "error"
	if statusCode > 0 {
		status = strconv.Itoa(statusCode)
	}
	e.requestsTotal.WithLabelValues(endpoint, status).Inc()
	e.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// ObserveRecords implements the client observer interface.
func (e *Exporter) ObserveRecords(metatype string, count int) {
	e.recordsFetched.WithLabelValues(metatype).Add(float64(count))
}

// Serve starts the /metrics endpoint on the given address in the
// background. It returns once the listener is bound.
func (e *Exporter) Serve(addr string) error {
	if e.ln != nil {
		return fmt.Errorf("metrics endpoint already running on %s", e.ln.Addr())
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("binding metrics endpoint: %w", err)
	}
	e.ln = ln

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{}))
	e.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		_ = e.server.Serve(ln)
	}()
	return nil
}

// Addr returns the bound listener address, or empty when not serving.
func (e *Exporter) Addr() string {
	if e.ln == nil {
		return ""
	}
	return e.ln.Addr().String()
}

// Shutdown stops the metrics endpoint if it is running.
func (e *Exporter) Shutdown(ctx context.Context) error {
	if e.server == nil {
		return nil
	}
	return e.server.Shutdown(ctx)
}

// Gather returns the current metric families, used by reports and tests.
func (e *Exporter) Gather() ([]*dto.MetricFamily, error) {
	return e.registry.Gather()
}
