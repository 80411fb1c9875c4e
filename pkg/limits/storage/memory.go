package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"mercator-hq/tollgate/pkg/limits/ratelimit"
	"mercator-hq/tollgate/pkg/processing/costs"
)

// Default history bounds for MemoryBackend.
const (
	DefaultMaxSnapshots = 1000
	DefaultMaxEvents    = 10000
)

// MemoryBackend keeps history in memory. The oldest entries are evicted once
// a bound is reached.
type MemoryBackend struct {
	mu sync.RWMutex

	maxSnapshots int
	maxEvents    int

	snapshots map[string][]ratelimit.Snapshot
	summaries []costs.UsageSummary
	events    []UsageEventRecord
	closed    bool
}

// MemoryBackendConfig configures a MemoryBackend.
type MemoryBackendConfig struct {
	// MaxSnapshots bounds the snapshots kept per limiter and the number of
	// usage summaries. Default: 1000.
	MaxSnapshots int

	// MaxEvents bounds the journaled usage events. Default: 10000.
	MaxEvents int
}

// NewMemoryBackend creates a memory backend with default bounds.
func NewMemoryBackend() *MemoryBackend {
	return NewMemoryBackendWithConfig(MemoryBackendConfig{})
}

// NewMemoryBackendWithConfig creates a memory backend with custom bounds.
func NewMemoryBackendWithConfig(cfg MemoryBackendConfig) *MemoryBackend {
	if cfg.MaxSnapshots <= 0 {
		cfg.MaxSnapshots = DefaultMaxSnapshots
	}
	if cfg.MaxEvents <= 0 {
		cfg.MaxEvents = DefaultMaxEvents
	}
	return &MemoryBackend{
		maxSnapshots: cfg.MaxSnapshots,
		maxEvents:    cfg.MaxEvents,
		snapshots:    make(map[string][]ratelimit.Snapshot),
	}
}

// SaveLimiterSnapshot appends a limiter snapshot.
func (m *MemoryBackend) SaveLimiterSnapshot(_ context.Context, snapshot ratelimit.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if snapshot.TakenAt.IsZero() {
		snapshot.TakenAt = time.Now()
	}
	snapshot.RetryHistogram = copyHistogram(snapshot.RetryHistogram)

	history := append(m.snapshots[snapshot.Name], snapshot)
	if len(history) > m.maxSnapshots {
		history = history[len(history)-m.maxSnapshots:]
	}
	m.snapshots[snapshot.Name] = history
	return nil
}

// LatestLimiterSnapshot returns the most recent snapshot for name.
func (m *MemoryBackend) LatestLimiterSnapshot(_ context.Context, name string) (*ratelimit.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}
	history := m.snapshots[name]
	if len(history) == 0 {
		return nil, nil
	}
	latest := history[len(history)-1]
	latest.RetryHistogram = copyHistogram(latest.RetryHistogram)
	return &latest, nil
}

// SaveUsageSummary appends a usage summary.
func (m *MemoryBackend) SaveUsageSummary(_ context.Context, summary costs.UsageSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if summary.GeneratedAt.IsZero() {
		summary.GeneratedAt = time.Now()
	}
	summary.Providers = copyProviders(summary.Providers)

	m.summaries = append(m.summaries, summary)
	if len(m.summaries) > m.maxSnapshots {
		m.summaries = m.summaries[len(m.summaries)-m.maxSnapshots:]
	}
	return nil
}

// LatestUsageSummary returns the most recent usage summary.
func (m *MemoryBackend) LatestUsageSummary(_ context.Context) (*costs.UsageSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}
	if len(m.summaries) == 0 {
		return nil, nil
	}
	latest := m.summaries[len(m.summaries)-1]
	latest.Providers = copyProviders(latest.Providers)
	return &latest, nil
}

// RecordUsage journals a priced usage event.
func (m *MemoryBackend) RecordUsage(_ context.Context, event costs.UsageEvent, breakdown *costs.CostBreakdown) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	record := UsageEventRecord{Event: event}
	if breakdown != nil {
		record.Cost = breakdown.TotalCost
		record.Tier = breakdown.Tier
	}

	m.events = append(m.events, record)
	if len(m.events) > m.maxEvents {
		m.events = m.events[len(m.events)-m.maxEvents:]
	}
	return nil
}

// ListUsageEvents returns events at or after since, oldest first.
func (m *MemoryBackend) ListUsageEvents(_ context.Context, since time.Time, limit int) ([]UsageEventRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}

	var out []UsageEventRecord
	for _, r := range m.events {
		if !r.Event.Timestamp.Before(since) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Event.Timestamp.Before(out[j].Event.Timestamp)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Cleanup removes entries older than olderThan.
func (m *MemoryBackend) Cleanup(_ context.Context, olderThan time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrClosed
	}

	removed := 0
	for name, history := range m.snapshots {
		kept := history[:0]
		for _, s := range history {
			if s.TakenAt.Before(olderThan) {
				removed++
				continue
			}
			kept = append(kept, s)
		}
		if len(kept) == 0 {
			delete(m.snapshots, name)
		} else {
			m.snapshots[name] = kept
		}
	}

	summaries := m.summaries[:0]
	for _, s := range m.summaries {
		if s.GeneratedAt.Before(olderThan) {
			removed++
			continue
		}
		summaries = append(summaries, s)
	}
	m.summaries = summaries

	events := m.events[:0]
	for _, r := range m.events {
		if r.Event.Timestamp.Before(olderThan) {
			removed++
			continue
		}
		events = append(events, r)
	}
	m.events = events

	return removed, nil
}

// Close marks the backend closed and drops its contents.
func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.snapshots = nil
	m.summaries = nil
	m.events = nil
	return nil
}

func copyHistogram(in map[int]int64) map[int]int64 {
	if in == nil {
		return nil
	}
	out := make(map[int]int64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func copyProviders(in map[string]costs.ProviderUsage) map[string]costs.ProviderUsage {
	if in == nil {
		return nil
	}
	out := make(map[string]costs.ProviderUsage, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
