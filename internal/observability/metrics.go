package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu            sync.Mutex
	requestCount  map[string]int64
	errorCount    map[string]int64
	passesRun     int64
	passErrors    int64
	breaches      int64
	escalations   int64
	notifications int64
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

// RecordPass accumulates counters for one completed SLA scheduler pass.
func (m *Metrics) RecordPass(breached, escalated, notificationsCreated, errorCount int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.passesRun++
	m.breaches += int64(breached)
	m.escalations += int64(escalated)
	m.notifications += int64(notificationsCreated)
	m.passErrors += int64(errorCount)
}

// PassTotals returns accumulated SLA pass counters.
func (m *Metrics) PassTotals() (passes, breaches, escalations, notifications, errors int64) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.passesRun, m.breaches, m.escalations, m.notifications, m.passErrors
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
