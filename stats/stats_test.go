package stats

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordTx("SUCCEED", time.Millisecond)
	m.RecordTx("SUCCEED", time.Millisecond)
	m.RecordTx("FAILED", time.Millisecond)
	m.RecordFee(5000)
	m.RecordFee(0)
	m.RecordTransfer("seeds", 1000)
	m.RecordTransfer("key", 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.TxCounter("SUCCEED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TxCounter("FAILED")))
	assert.Equal(t, 5000.0, testutil.ToFloat64(m.FeeCounter()))
	assert.Equal(t, 1000.0, testutil.ToFloat64(m.TransferCounter("seeds")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.TransferCounter("key")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordTx("SUCCEED", time.Second)
		m.RecordFee(1)
		m.RecordTransfer("key", 1)
		m.RecordInstruction("p", "SUCCEED")
	})
}
