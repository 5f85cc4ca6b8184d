package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_Record(t *testing.T) {
	m := NewManager(WithRegistry(prometheus.NewRegistry()), WithNamespace("test"))

	m.RecordAPIRequest(OutcomeOK)
	m.RecordAPIRequest(OutcomeOK)
	m.RecordAPIRequest(OutcomeRateLimited)
	m.RecordAPIRetry()
	m.RecordRepository(OutcomeBlocked)
	m.RecordActivityRows(3)
	m.RecordActivityRows(0)
	m.SetCursor(42)
	m.SetRankingSize(100)
	m.RecordPass(OutcomeOK, 2*time.Second)
	m.RecordPublishFailure()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.apiRequests.WithLabelValues(OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.apiRequests.WithLabelValues(OutcomeRateLimited)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.apiRetries))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.repositories.WithLabelValues(OutcomeBlocked)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.activityRows))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.cursor))
	assert.Equal(t, 100.0, testutil.ToFloat64(m.rankingSize))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.passes.WithLabelValues(OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.publishFailure))
}

func TestManager_NilIsNoop(t *testing.T) {
	var m *Manager
	assert.NotPanics(t, func() {
		m.RecordAPIRequest(OutcomeOK)
		m.RecordAPIRetry()
		m.RecordPass(OutcomeFailed, time.Second)
		m.RecordRepository(OutcomeProcessed)
		m.RecordActivityRows(1)
		m.SetCursor(1)
		m.SetRankingSize(1)
		m.RecordPublishFailure()
	})
}

func TestManager_Handler(t *testing.T) {
	m := NewManager()
	m.SetCursor(7)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "github_top100_sync_cursor 7")
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
