package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTransportObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewTransport(reg)

	m.Observe("GET", 200, 10*time.Millisecond)
	m.Observe("GET", 200, 20*time.Millisecond)
	m.Observe("PATCH", 0, time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Requests.WithLabelValues("GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("PATCH", "error")))
}

func TestNilReceivers(t *testing.T) {
	var tm *Transport
	var om *Operations

	assert.NotPanics(t, func() {
		tm.Observe("GET", 200, time.Millisecond)
		om.Record("account", "changed")
	})
}

func TestOperationsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOperations(reg)

	m.Record("hostname", "unchanged")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("hostname", "unchanged")))
}
