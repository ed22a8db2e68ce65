package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters for routing outcomes.
type Metrics struct {
	mu               sync.Mutex
	requestCount     map[string]int64
	errorCount       map[string]int64
	claimsWon        int64
	claimsLost       int64
	deliveriesFailed int64
	revisionsFailed  int64
	escalationsFired int64
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
	key := path + "|" + method + "|" + strconv.Itoa(status)
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

// RecordClaim tracks claim-resolution outcomes.
func (m *Metrics) RecordClaim(won bool) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if won {
		m.claimsWon++
	} else {
		m.claimsLost++
	}
}

// RecordDeliveryFailure counts fan-out deliveries that did not land.
func (m *Metrics) RecordDeliveryFailure() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deliveriesFailed++
}

// RecordRevisionFailure counts receipt revisions that did not land.
func (m *Metrics) RecordRevisionFailure() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revisionsFailed++
}

// RecordEscalation counts escalation firings that changed a ticket.
func (m *Metrics) RecordEscalation() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.escalationsFired++
}

// ClaimCounts returns claims won and lost so far.
func (m *Metrics) ClaimCounts() (won, lost int64) {
	if m == nil {
		return 0, 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.claimsWon, m.claimsLost
}
