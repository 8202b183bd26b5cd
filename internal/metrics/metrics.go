// Package metrics defines the Prometheus collectors exported by the manager.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	MetricsNamespace = "obmc_manager"
)

// Transport records outbound Redfish requests.
type Transport struct {
	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// NewTransport creates the transport collectors and registers them with the provided registerer
func NewTransport(reg prometheus.Registerer) *Transport {
	m := &Transport{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Subsystem: "redfish",
			Name:      "requests_total",
			Help:      "Redfish requests issued, by method and status code",
		}, []string{"method", "code"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: MetricsNamespace,
			Subsystem: "redfish",
			Name:      "request_duration_seconds",
			Help:      "Redfish request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}

	reg.MustRegister(m.Requests, m.Duration)

	return m
}

// Observe records one request. A zero code means the request never got a response.
func (m *Transport) Observe(method string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if code != 0 {
		label = strconv.Itoa(code)
	}
	m.Requests.WithLabelValues(method, label).Inc()
	m.Duration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// Operations records module runs.
type Operations struct {
	Runs *prometheus.CounterVec
}

// NewOperations creates the operation collectors and registers them with the provided registerer
func NewOperations(reg prometheus.Registerer) *Operations {
	m := &Operations{
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "operations_total",
			Help:      "Operations run against managed hosts, by operation and outcome",
		}, []string{"operation", "outcome"}),
	}

	reg.MustRegister(m.Runs)

	return m
}

// Record counts one operation outcome: changed, unchanged or failed.
func (m *Operations) Record(operation, outcome string) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(operation, outcome).Inc()
}
