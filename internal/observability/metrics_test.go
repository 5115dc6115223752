package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetrics_Jobs(t *testing.T) {
	m := NewMetrics()
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	m.RecordJob("billing", start, time.Second, nil)
	m.RecordJob("billing", start.Add(time.Hour), 2*time.Second, errors.New("db down"))
	m.RecordJobSkipped("billing")

	snap := m.Snapshot()
	got := snap.Jobs["billing"]
	assert.Equal(t, int64(2), got.Runs)
	assert.Equal(t, int64(1), got.Failures)
	assert.Equal(t, int64(1), got.Skipped)
	assert.Equal(t, 2*time.Second, got.LastDuration)
	assert.Equal(t, start.Add(time.Hour), got.LastRunAt)
}

func TestMetrics_RequestsAndErrors(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/api/v1/requests", "GET", 200, time.Millisecond)
	m.RecordRequest("/api/v1/requests", "GET", 200, time.Millisecond)
	m.RecordError("/api/v1/requests", "POST", "VALIDATION_FAILED")

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.Requests["/api/v1/requests|GET|200"])
	assert.Equal(t, int64(1), snap.Errors["/api/v1/requests|POST|VALIDATION_FAILED"])
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", "GET", 200, 0)
	m.RecordJob("x", time.Time{}, 0, nil)
	assert.Empty(t, m.Snapshot().Jobs)
}
