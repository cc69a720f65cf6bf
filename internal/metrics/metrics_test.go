package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Connect(ResultOK)
		m.BalanceRefresh(ResultError)
		m.TxStarted("transfer")
		m.TxFinished("transfer", ResultOK, time.Second)
		m.TxRejected("reward", ResultInvalid)
	})
}

func TestCounters(t *testing.T) {
	m := New()

	m.Connect(ResultOK)
	m.Connect(ResultRejected)
	m.Connect(ResultOK)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.connects.WithLabelValues(ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.connects.WithLabelValues(ResultRejected)))

	m.BalanceRefresh(ResultError)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.refreshes.WithLabelValues(ResultError)))
}

func TestTxLifecycle(t *testing.T) {
	m := New()

	m.TxStarted("reward")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.txPending.WithLabelValues("reward")))

	m.TxFinished("reward", ResultReverted, 3*time.Second)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.txPending.WithLabelValues("reward")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.txTotal.WithLabelValues("reward", ResultReverted)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.txDuration))

	m.TxRejected("transfer", ResultInvalid)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.txTotal.WithLabelValues("transfer", ResultInvalid)))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.Connect(ResultOK)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), `prt_wallet_connects_total{result="ok"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
