package ratelimit

import (
	"math"
	"sort"
	"sync"
	"time"
)

// limiterMetrics is the bookkeeping of one AdmissionLimiter. All fields are
// guarded by mu.
type limiterMetrics struct {
	mu sync.Mutex

	total           int64
	successful      int64
	failed          int64
	blocked         int64
	blockedAttempts int64
	cancelled       int64
	callbackFailed  int64

	waits     []float64 // ring buffer of wait times in ms
	waitNext  int
	waitCount int

	retries  map[int]int64
	admitted *SlidingWindow

	firstRequest time.Time
	lastRequest  time.Time
}

func newLimiterMetrics(window int) *limiterMetrics {
	return &limiterMetrics{
		waits:    make([]float64, window),
		retries:  make(map[int]int64),
		admitted: NewSlidingWindow(time.Minute, time.Second),
	}
}

func (m *limiterMetrics) begin(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.total++
	if m.firstRequest.IsZero() {
		m.firstRequest = now
	}
	m.lastRequest = now
}

// blockedAttempt records an empty-bucket attempt. first marks the first
// block for the current request.
func (m *limiterMetrics) blockedAttempt(first bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.blockedAttempts++
	if first {
		m.blocked++
	}
}

func (m *limiterMetrics) success(now time.Time, attempt int, wait time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.successful++
	m.retries[attempt]++
	m.admitted.Add(now, 1)

	if len(m.waits) > 0 {
		m.waits[m.waitNext] = float64(wait) / float64(time.Millisecond)
		m.waitNext = (m.waitNext + 1) % len(m.waits)
		if m.waitCount < len(m.waits) {
			m.waitCount++
		}
	}
}

func (m *limiterMetrics) failure(attempt int, cancelled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.failed++
	m.retries[attempt]++
	if cancelled {
		m.cancelled++
	}
}

func (m *limiterMetrics) callbackFailure() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.callbackFailed++
	return m.callbackFailed
}

// fill copies counters and derived statistics into s.
func (m *limiterMetrics) fill(s *Snapshot, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s.TotalRequests = m.total
	s.SuccessfulRequests = m.successful
	s.FailedRequests = m.failed
	s.BlockedRequests = m.blocked
	s.BlockedAttempts = m.blockedAttempts
	s.CancelledRequests = m.cancelled
	s.CallbackFailures = m.callbackFailed
	s.FirstRequestAt = m.firstRequest
	s.LastRequestAt = m.lastRequest
	s.ObservedRPM = m.admitted.Sum(now)

	if m.total > 0 {
		s.SuccessRate = float64(m.successful) / float64(m.total)
		s.BlockRate = float64(m.blocked) / float64(m.total)
	}

	s.RetryHistogram = make(map[int]int64, len(m.retries))
	for k, v := range m.retries {
		s.RetryHistogram[k] = v
	}

	s.WaitCount = m.waitCount
	if m.waitCount == 0 {
		return
	}

	sorted := make([]float64, m.waitCount)
	copy(sorted, m.waits[:m.waitCount])
	sort.Float64s(sorted)

	var sum float64
	for _, w := range sorted {
		sum += w
	}
	s.AvgWaitMs = sum / float64(len(sorted))
	s.P50WaitMs = percentile(sorted, 50)
	s.P90WaitMs = percentile(sorted, 90)
	s.P99WaitMs = percentile(sorted, 99)
	s.MaxWaitMs = sorted[len(sorted)-1]
}

func (m *limiterMetrics) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.total, m.successful, m.failed = 0, 0, 0
	m.blocked, m.blockedAttempts, m.cancelled, m.callbackFailed = 0, 0, 0, 0
	clear(m.waits)
	m.waitNext, m.waitCount = 0, 0
	clear(m.retries)
	m.admitted.Reset()
	m.firstRequest, m.lastRequest = time.Time{}, time.Time{}
}

// percentile returns the nearest-rank percentile of an ascending slice.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(math.Ceil(p / 100 * float64(len(sorted))))
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}
