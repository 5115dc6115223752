package observability

import (
	"strconv"
	"sync"
	"time"
)

// JobStats tracks scheduled job executions.
type JobStats struct {
	Runs         int64         `json:"runs"`
	Failures     int64         `json:"failures"`
	Skipped      int64         `json:"skipped"`
	LastDuration time.Duration `json:"last_duration"`
	LastRunAt    time.Time     `json:"last_run_at"`
}

// MetricsSnapshot is a copy of the current counters.
type MetricsSnapshot struct {
	Requests map[string]int64    `json:"requests"`
	Errors   map[string]int64    `json:"errors"`
	Jobs     map[string]JobStats `json:"jobs"`
}

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu           sync.Mutex
	requestCount map[string]int64
	errorCount   map[string]int64
	jobs         map[string]JobStats
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
		jobs:         make(map[string]JobStats),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordJob records the outcome of a job run.
func (m *Metrics) RecordJob(name string, startedAt time.Time, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := m.jobs[name]
	stats.Runs++
	if err != nil {
		stats.Failures++
	}
	stats.LastDuration = duration
	stats.LastRunAt = startedAt
	m.jobs[name] = stats
}

// RecordJobSkipped counts a trigger dropped because the previous run was still active.
func (m *Metrics) RecordJobSkipped(name string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := m.jobs[name]
	stats.Skipped++
	m.jobs[name] = stats
}

// Snapshot copies all counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		Requests: map[string]int64{},
		Errors:   map[string]int64{},
		Jobs:     map[string]JobStats{},
	}
	if m == nil {
		return snap
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range m.requestCount {
		snap.Requests[k] = v
	}
	for k, v := range m.errorCount {
		snap.Errors[k] = v
	}
	for k, v := range m.jobs {
		snap.Jobs[k] = v
	}
	return snap
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
