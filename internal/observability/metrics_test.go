package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RecordOperation(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordOperation("register", "", time.Now())
	m.RecordOperation("register", "conflict", time.Now())
	m.RecordOperation("register", "conflict", time.Now())

	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("register", OutcomeSuccess, "")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.operations.WithLabelValues("register", OutcomeFailure, "conflict")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))
}

func TestMetrics_RecordCompensation(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordCompensation("resend_otp", nil)
	m.RecordCompensation("register", errors.New("db down"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.compensations.WithLabelValues("resend_otp", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.compensations.WithLabelValues("register", OutcomeFailure)))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordOperation("login", "", time.Now())
		m.RecordCompensation("register", nil)
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.RecordOperation("login", "unauthorized", time.Now())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `accountsvc_operations_total{kind="unauthorized",operation="login",outcome="failure"} 1`)
}
