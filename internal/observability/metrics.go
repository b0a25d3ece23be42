package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu           sync.Mutex
	requestCount map[string]int64
	errorCount   map[string]int64
	latencyTotal map[string]time.Duration
	bulkSuccess  map[string]int64
	bulkFailure  map[string]int64
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Requests       map[string]int64 `json:"requests"`
	Errors         map[string]int64 `json:"errors"`
	AvgLatencyMs   map[string]int64 `json:"avg_latency_ms"`
	BulkSucceeded  map[string]int64 `json:"bulk_succeeded"`
	BulkFailed     map[string]int64 `json:"bulk_failed"`
	CollectedAtUTC time.Time        `json:"collected_at"`
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
		latencyTotal: make(map[string]time.Duration),
		bulkSuccess:  make(map[string]int64),
		bulkFailure:  make(map[string]int64),
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
	m.latencyTotal[key] += duration
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

// RecordBulk accumulates per-kind bulk outcomes.
func (m *Metrics) RecordBulk(kind string, succeeded, failed int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bulkSuccess[kind] += int64(succeeded)
	m.bulkFailure[kind] += int64(failed)
}

// Snapshot copies the current counters.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Snapshot{
		Requests:       copyCounts(m.requestCount),
		Errors:         copyCounts(m.errorCount),
		AvgLatencyMs:   make(map[string]int64, len(m.latencyTotal)),
		BulkSucceeded:  copyCounts(m.bulkSuccess),
		BulkFailed:     copyCounts(m.bulkFailure),
		CollectedAtUTC: time.Now().UTC(),
	}
	for key, total := range m.latencyTotal {
		if count := m.requestCount[key]; count > 0 {
			snap.AvgLatencyMs[key] = total.Milliseconds() / count
		}
	}
	return snap
}

func copyCounts(src map[string]int64) map[string]int64 {
	dst := make(map[string]int64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
