package observability

import (
	"strconv"
	"sync"
	"time"
)

// Transition outcomes.
const (
	OutcomeApplied   = "applied"
	OutcomeConflict  = "conflict"
	OutcomeForbidden = "forbidden"
	OutcomeNotFound  = "not_found"
	OutcomeInvalid   = "invalid"
	OutcomeError     = "error"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu              sync.Mutex
	requestCount    map[string]int64
	requestDuration map[string]time.Duration
	errorCount      map[string]int64
	transitionCount map[string]int64
	eventCount      map[string]int64
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Requests           map[string]int64 `json:"requests"`
	RequestDurationsMS map[string]int64 `json:"request_durations_ms"`
	Errors             map[string]int64 `json:"errors"`
	Transitions        map[string]int64 `json:"transitions"`
	Events             map[string]int64 `json:"events"`
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount:    make(map[string]int64),
		requestDuration: make(map[string]time.Duration),
		errorCount:      make(map[string]int64),
		transitionCount: make(map[string]int64),
		eventCount:      make(map[string]int64),
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
	m.requestDuration[key] += duration
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

// RecordTransition counts an assignment engine outcome, keyed "claim:applied", "resolve:conflict".
func (m *Metrics) RecordTransition(operation, outcome string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitionCount[operation+":"+outcome]++
}

// RecordEvent counts a lifecycle event.
func (m *Metrics) RecordEvent(eventType string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.eventCount[eventType]++
}

// Transition returns the current count for an operation outcome.
func (m *Metrics) Transition(operation, outcome string) int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transitionCount[operation+":"+outcome]
}

// Snapshot copies every counter.
func (m *Metrics) Snapshot() Snapshot {
	snap := Snapshot{
		Requests:           map[string]int64{},
		RequestDurationsMS: map[string]int64{},
		Errors:             map[string]int64{},
		Transitions:        map[string]int64{},
		Events:             map[string]int64{},
	}
	if m == nil {
		return snap
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copyCounts(snap.Requests, m.requestCount)
	copyCounts(snap.Errors, m.errorCount)
	copyCounts(snap.Transitions, m.transitionCount)
	copyCounts(snap.Events, m.eventCount)
	for k, v := range m.requestDuration {
		snap.RequestDurationsMS[k] = v.Milliseconds()
	}
	return snap
}

func copyCounts(dst, src map[string]int64) {
	for k, v := range src {
		dst[k] = v
	}
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
