package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNew_RegistersInstruments(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Refreshes.WithLabelValues("timer").Inc()
	m.Changes.WithLabelValues("moved").Add(3)
	m.ActiveScopes.Set(2)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.Refreshes.WithLabelValues("timer")))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.Changes.WithLabelValues("moved")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.ActiveScopes))

	count, err := testutil.GatherAndCount(reg)
	assert.NoError(t, err)
	assert.Positive(t, count)
}

func TestNewNop_CanBeCalledTwice(t *testing.T) {
	assert.NotPanics(t, func() {
		NewNop()
		NewNop()
	})
}
