package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters for the engine and its API.
type Metrics struct {
	mu               sync.Mutex
	requestCount     map[string]int64
	errorCount       map[string]int64
	breachCount      int64
	notifyFailures   int64
	notifyDispatched int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
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

// RecordBreach counts one SLA breach detection.
func (m *Metrics) RecordBreach() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.breachCount++
}

// RecordNotifyDispatch counts one webhook dispatch attempt, failed or not.
func (m *Metrics) RecordNotifyDispatch(failed bool) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifyDispatched++
	if failed {
		m.notifyFailures++
	}
}

// Snapshot returns current counter totals.
func (m *Metrics) Snapshot() map[string]int64 {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var requests, errs int64
	for _, v := range m.requestCount {
		requests += v
	}
	for _, v := range m.errorCount {
		errs += v
	}
	return map[string]int64{
		"requests":          requests,
		"errors":            errs,
		"sla_breaches":      m.breachCount,
		"notify_dispatched": m.notifyDispatched,
		"notify_failures":   m.notifyFailures,
	}
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
