package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	m := New("test")
	m.OrderCreated()
	m.OrderRejected("pricing")
	m.OrderRejected("pricing")
	m.StockConflict()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.OrdersCreated))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.OrdersRejected.WithLabelValues("pricing")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StockConflicts))
}

func TestNilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.OrderCreated()
		m.OrderRejected("stock")
		m.StockConflict()
	})
}

func TestServiceNameWithDash(t *testing.T) {
	assert.Equal(t, "modelshop_api", subsystem("modelshop-api"))
	assert.NotPanics(t, func() { New("modelshop-api") })
}
