package monitor

import (
	"sync"
	"time"
)

// APICallEvent records one remote generator call.
type APICallEvent struct {
	Timestamp time.Time     `json:"timestamp"`
	Elapsed   time.Duration `json:"elapsed"`
	Success   bool          `json:"success"`
}

// CacheAccessEvent records one answer-cache lookup outcome.
type CacheAccessEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Hit       bool      `json:"hit"`
}

// ErrorEvent records one failure, with its message.
type ErrorEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// QualityEvent records one answer-quality score.
type QualityEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Score     float64   `json:"score"`
}

// Statistics is a point-in-time snapshot of everything the monitor has
// recorded, plus derived rates. Downstream alerting and reporting
// collaborators consume this; thresholds are evaluated outside this core.
type Statistics struct {
	APICalls      []APICallEvent     `json:"api_calls"`
	CacheAccesses []CacheAccessEvent `json:"cache_accesses"`
	Errors        []ErrorEvent       `json:"errors"`
	Quality       []QualityEvent     `json:"answer_quality"`

	TotalCalls  int `json:"total_calls"`
	TotalErrors int `json:"total_errors"`

	// Fallbacks counts radio answers that were substituted with the first
	// option because the generated answer was not among the options. Kept
	// separate from clean matches so substitutions never hide a failing
	// remote generator.
	Fallbacks int `json:"fallbacks"`

	// ErrorRate divides by max(1, TotalCalls) so it is well-defined before
	// any call has been made; no alert should fire on zero samples.
	ErrorRate float64 `json:"error_rate"`
}

// PerformanceMonitor accumulates metric events from the dispatch core.
// All methods are safe for concurrent use; events are never mutated after
// insertion. The monitor has its own lock, independent of every other
// component.
type PerformanceMonitor struct {
	mu sync.Mutex

	apiCalls      []APICallEvent
	cacheAccesses []CacheAccessEvent
	errors        []ErrorEvent
	quality       []QualityEvent

	callCount  int
	errorCount int
	fallbacks  int

	// now is replaceable in tests.
	now func() time.Time
}

// New creates an empty PerformanceMonitor.
func New() *PerformanceMonitor {
	return &PerformanceMonitor{now: time.Now}
}

// RecordAPICall appends a remote-call event. Failed calls also count toward
// the error total.
func (m *PerformanceMonitor) RecordAPICall(elapsed time.Duration, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.callCount++
	m.apiCalls = append(m.apiCalls, APICallEvent{
		Timestamp: m.now(),
		Elapsed:   elapsed,
		Success:   success,
	})
	if !success {
		m.errorCount++
	}
}

// RecordCacheAccess appends a cache lookup event.
func (m *PerformanceMonitor) RecordCacheAccess(hit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cacheAccesses = append(m.cacheAccesses, CacheAccessEvent{
		Timestamp: m.now(),
		Hit:       hit,
	})
}

// RecordError appends an error event.
func (m *PerformanceMonitor) RecordError(message string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.errorCount++
	m.errors = append(m.errors, ErrorEvent{
		Timestamp: m.now(),
		Message:   message,
	})
}

// RecordQuality appends an answer-quality score.
func (m *PerformanceMonitor) RecordQuality(score float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.quality = append(m.quality, QualityEvent{
		Timestamp: m.now(),
		Score:     score,
	})
}

// RecordFallback counts a constrained substitution of a radio answer.
func (m *PerformanceMonitor) RecordFallback() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallbacks++
}

// Statistics returns a snapshot of all recorded events and derived totals.
func (m *PerformanceMonitor) Statistics() Statistics {
	m.mu.Lock()
	defer m.mu.Unlock()

	totalCalls := m.callCount
	divisor := totalCalls
	if divisor < 1 {
		divisor = 1
	}

	return Statistics{
		APICalls:      append([]APICallEvent(nil), m.apiCalls...),
		CacheAccesses: append([]CacheAccessEvent(nil), m.cacheAccesses...),
		Errors:        append([]ErrorEvent(nil), m.errors...),
		Quality:       append([]QualityEvent(nil), m.quality...),
		TotalCalls:    totalCalls,
		TotalErrors:   m.errorCount,
		Fallbacks:     m.fallbacks,
		ErrorRate:     float64(m.errorCount) / float64(divisor),
	}
}
