package storage

import (
	"context"
	"errors"
	"time"

	"mercator-hq/tollgate/pkg/limits/ratelimit"
	"mercator-hq/tollgate/pkg/processing/costs"
)

// ErrClosed is returned by operations on a closed backend.
var ErrClosed = errors.New("storage backend closed")

// Backend persists limiter snapshots, usage summaries and usage events.
// Implementations must be safe for concurrent use.
//
// Backend also implements costs.UsageSink so it can be attached to an
// Accountant to journal every recorded event.
type Backend interface {
	// SaveLimiterSnapshot appends a limiter snapshot.
	SaveLimiterSnapshot(ctx context.Context, snapshot ratelimit.Snapshot) error

	// LatestLimiterSnapshot returns the most recent snapshot for name, or
	// nil if none exists.
	LatestLimiterSnapshot(ctx context.Context, name string) (*ratelimit.Snapshot, error)

	// SaveUsageSummary appends a usage summary.
	SaveUsageSummary(ctx context.Context, summary costs.UsageSummary) error

	// LatestUsageSummary returns the most recent usage summary, or nil if
	// none exists.
	LatestUsageSummary(ctx context.Context) (*costs.UsageSummary, error)

	// RecordUsage journals a priced usage event.
	RecordUsage(ctx context.Context, event costs.UsageEvent, breakdown *costs.CostBreakdown) error

	// ListUsageEvents returns events with timestamps at or after since, oldest
	// first. A limit <= 0 returns all matching events.
	ListUsageEvents(ctx context.Context, since time.Time, limit int) ([]UsageEventRecord, error)

	// Cleanup removes snapshots, summaries and events older than olderThan and
	// returns the number of rows removed.
	Cleanup(ctx context.Context, olderThan time.Time) (int, error)

	// Close releases resources. The backend must not be used afterwards.
	Close() error
}

// UsageEventRecord is a journaled usage event together with its price.
type UsageEventRecord struct {
	Event costs.UsageEvent `json:"event"`
	Cost  float64          `json:"cost"`
	Tier  string           `json:"tier"`
}

var _ costs.UsageSink = Backend(nil)
