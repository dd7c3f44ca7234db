package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu             sync.Mutex
	requestCount   map[string]int64
	errorCount     map[string]int64
	admissionCount map[string]int64
	sweepCount     map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount:   make(map[string]int64),
		errorCount:     make(map[string]int64),
		admissionCount: make(map[string]int64),
		sweepCount:     make(map[string]int64),
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

// RecordAdmission counts an admission outcome: "granted" or a rejection code.
func (m *Metrics) RecordAdmission(outcome string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.admissionCount[outcome]++
}

// RecordSweepAction counts a lifecycle sweep action: "reminded", "archived",
// "finalized", "skipped" or "failed".
func (m *Metrics) RecordSweepAction(action string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepCount[action]++
}

// Snapshot returns a copy of the admission and sweep counters.
func (m *Metrics) Snapshot() (admissions, sweeps map[string]int64) {
	if m == nil {
		return nil, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	admissions = make(map[string]int64, len(m.admissionCount))
	for k, v := range m.admissionCount {
		admissions[k] = v
	}
	sweeps = make(map[string]int64, len(m.sweepCount))
	for k, v := range m.sweepCount {
		sweeps[k] = v
	}
	return admissions, sweeps
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
