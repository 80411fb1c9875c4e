package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"mercator-hq/tollgate/pkg/limits/ratelimit"
	"mercator-hq/tollgate/pkg/processing/costs"

	_ "github.com/mattn/go-sqlite3" // "sqlite3" driver (cgo)
	_ "modernc.org/sqlite"          // "sqlite" driver (pure Go)
)

// Supported database/sql driver names.
const (
	DriverModernc = "sqlite"
	DriverMattn   = "sqlite3"
)

// SQLiteBackend implements Backend on SQLite.
//
// The database runs in WAL mode with a single connection, since SQLite
// supports one writer at a time. A background goroutine checkpoints the WAL
// periodically until Close is called.
type SQLiteBackend struct {
	db                 *sql.DB
	dbPath             string
	driver             string
	checkpointInterval time.Duration
	logger             *slog.Logger
	done               chan struct{}
	wg                 sync.WaitGroup
	mu                 sync.RWMutex
	closeOnce          sync.Once
	closed             bool

	saveSnapshotStmt   *sql.Stmt
	latestSnapshotStmt *sql.Stmt
	saveSummaryStmt    *sql.Stmt
	latestSummaryStmt  *sql.Stmt
	recordEventStmt    *sql.Stmt
	listEventsStmt     *sql.Stmt
}

// SQLiteBackendConfig configures the SQLite backend.
type SQLiteBackendConfig struct {
	// DBPath is the database file path. ":memory:" is accepted for tests.
	DBPath string

	// Driver is DriverModernc (default) or DriverMattn.
	Driver string

	// CheckpointInterval is how often the WAL is checkpointed.
	// Default: 5 minutes
	CheckpointInterval time.Duration

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// NewSQLiteBackend creates a SQLite backend with default settings.
func NewSQLiteBackend(dbPath string) (*SQLiteBackend, error) {
	return NewSQLiteBackendWithConfig(SQLiteBackendConfig{DBPath: dbPath})
}

// NewSQLiteBackendWithConfig creates a SQLite backend with custom configuration.
func NewSQLiteBackendWithConfig(cfg SQLiteBackendConfig) (*SQLiteBackend, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.Driver == "" {
		cfg.Driver = DriverModernc
	}
	if cfg.CheckpointInterval == 0 {
		cfg.CheckpointInterval = 5 * time.Minute
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default().With("component", "storage.sqlite")
	}

	dsn, err := buildDSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	backend := &SQLiteBackend{
		db:                 db,
		dbPath:             cfg.DBPath,
		driver:             cfg.Driver,
		checkpointInterval: cfg.CheckpointInterval,
		logger:             cfg.Logger,
		done:               make(chan struct{}),
	}

	if err := backend.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if err := backend.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	backend.wg.Add(1)
	go backend.checkpointLoop()

	return backend, nil
}

// buildDSN encodes WAL mode, busy timeout and synchronous mode in the
// parameter syntax of the selected driver.
func buildDSN(cfg SQLiteBackendConfig) (string, error) {
	ms := cfg.BusyTimeout.Milliseconds()
	switch cfg.Driver {
	case DriverModernc:
		return fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)",
			cfg.DBPath, ms), nil
	case DriverMattn:
		return fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
			cfg.DBPath, ms), nil
	default:
		return "", fmt.Errorf("unsupported sqlite driver %q (want %q or %q)", cfg.Driver, DriverModernc, DriverMattn)
	}
}

func (s *SQLiteBackend) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS limiter_snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		taken_at INTEGER NOT NULL,
		payload TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_limiter_snapshots_name ON limiter_snapshots(name, taken_at);

	CREATE TABLE IF NOT EXISTS usage_summaries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		generated_at INTEGER NOT NULL,
		payload TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_usage_summaries_generated ON usage_summaries(generated_at);

	CREATE TABLE IF NOT EXISTS usage_events (
		id TEXT PRIMARY KEY,
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		input_tokens INTEGER NOT NULL,
		output_tokens INTEGER NOT NULL,
		context_length INTEGER NOT NULL,
		uses_cache INTEGER NOT NULL,
		is_batch INTEGER NOT NULL,
		cost REAL NOT NULL,
		tier TEXT NOT NULL,
		occurred_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_usage_events_occurred ON usage_events(occurred_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteBackend) prepareStatements() error {
	var err error

	s.saveSnapshotStmt, err = s.db.Prepare(`
		INSERT INTO limiter_snapshots (name, taken_at, payload) VALUES (?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare snapshot insert: %w", err)
	}

	s.latestSnapshotStmt, err = s.db.Prepare(`
		SELECT payload FROM limiter_snapshots
		WHERE name = ?
		ORDER BY taken_at DESC, id DESC
		LIMIT 1
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare snapshot query: %w", err)
	}

	s.saveSummaryStmt, err = s.db.Prepare(`
		INSERT INTO usage_summaries (generated_at, payload) VALUES (?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare summary insert: %w", err)
	}

	s.latestSummaryStmt, err = s.db.Prepare(`
		SELECT payload FROM usage_summaries
		ORDER BY generated_at DESC, id DESC
		LIMIT 1
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare summary query: %w", err)
	}

	s.recordEventStmt, err = s.db.Prepare(`
		INSERT INTO usage_events (id, provider, model, input_tokens, output_tokens, context_length,
			uses_cache, is_batch, cost, tier, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare event insert: %w", err)
	}

	s.listEventsStmt, err = s.db.Prepare(`
		SELECT id, provider, model, input_tokens, output_tokens, context_length,
			uses_cache, is_batch, cost, tier, occurred_at
		FROM usage_events
		WHERE occurred_at >= ?
		ORDER BY occurred_at ASC, id ASC
		LIMIT ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare event query: %w", err)
	}

	return nil
}

// SaveLimiterSnapshot appends a limiter snapshot.
func (s *SQLiteBackend) SaveLimiterSnapshot(ctx context.Context, snapshot ratelimit.Snapshot) error {
	if snapshot.Name == "" {
		return fmt.Errorf("snapshot name cannot be empty")
	}
	if snapshot.TakenAt.IsZero() {
		snapshot.TakenAt = time.Now()
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	if _, err := s.saveSnapshotStmt.ExecContext(ctx, snapshot.Name, snapshot.TakenAt.UnixNano(), string(payload)); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// LatestLimiterSnapshot returns the most recent snapshot for name.
func (s *SQLiteBackend) LatestLimiterSnapshot(ctx context.Context, name string) (*ratelimit.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	var payload string
	err := s.latestSnapshotStmt.QueryRowContext(ctx, name).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	var snapshot ratelimit.Snapshot
	if err := json.Unmarshal([]byte(payload), &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snapshot, nil
}

// SaveUsageSummary appends a usage summary.
func (s *SQLiteBackend) SaveUsageSummary(ctx context.Context, summary costs.UsageSummary) error {
	if summary.GeneratedAt.IsZero() {
		summary.GeneratedAt = time.Now()
	}

	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal usage summary: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	if _, err := s.saveSummaryStmt.ExecContext(ctx, summary.GeneratedAt.UnixNano(), string(payload)); err != nil {
		return fmt.Errorf("failed to save usage summary: %w", err)
	}
	return nil
}

// LatestUsageSummary returns the most recent usage summary.
func (s *SQLiteBackend) LatestUsageSummary(ctx context.Context) (*costs.UsageSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	var payload string
	err := s.latestSummaryStmt.QueryRowContext(ctx).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load usage summary: %w", err)
	}

	var summary costs.UsageSummary
	if err := json.Unmarshal([]byte(payload), &summary); err != nil {
		return nil, fmt.Errorf("failed to unmarshal usage summary: %w", err)
	}
	return &summary, nil
}

// RecordUsage journals a priced usage event. Re-recording an event ID is a no-op.
func (s *SQLiteBackend) RecordUsage(ctx context.Context, event costs.UsageEvent, breakdown *costs.CostBreakdown) error {
	if event.ID == "" {
		return fmt.Errorf("event id cannot be empty")
	}
	var (
		cost float64
		tier string
	)
	if breakdown != nil {
		cost, tier = breakdown.TotalCost, breakdown.Tier
	}
	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	_, err := s.recordEventStmt.ExecContext(ctx,
		event.ID,
		event.Provider,
		event.Model,
		event.InputTokens,
		event.OutputTokens,
		event.ContextLength,
		boolToInt(event.UsesCache),
		boolToInt(event.IsBatch),
		cost,
		tier,
		ts.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to record usage event: %w", err)
	}
	return nil
}

// ListUsageEvents returns events at or after since, oldest first.
func (s *SQLiteBackend) ListUsageEvents(ctx context.Context, since time.Time, limit int) ([]UsageEventRecord, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	var from int64 = math.MinInt64
	if !since.IsZero() {
		from = since.UnixNano()
	}

	rows, err := s.listEventsStmt.QueryContext(ctx, from, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list usage events: %w", err)
	}
	defer rows.Close()

	var records []UsageEventRecord
	for rows.Next() {
		var (
			r          UsageEventRecord
			usesCache  int
			isBatch    int
			occurredAt int64
		)
		if err := rows.Scan(
			&r.Event.ID,
			&r.Event.Provider,
			&r.Event.Model,
			&r.Event.InputTokens,
			&r.Event.OutputTokens,
			&r.Event.ContextLength,
			&usesCache,
			&isBatch,
			&r.Cost,
			&r.Tier,
			&occurredAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan usage event: %w", err)
		}
		r.Event.UsesCache = usesCache != 0
		r.Event.IsBatch = isBatch != 0
		r.Event.Timestamp = time.Unix(0, occurredAt)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return records, nil
}

// Cleanup removes rows older than olderThan from every table.
func (s *SQLiteBackend) Cleanup(ctx context.Context, olderThan time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin cleanup: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	cutoff := olderThan.UnixNano()
	deletes := []string{
		`DELETE FROM limiter_snapshots WHERE taken_at < ?`,
		`DELETE FROM usage_summaries WHERE generated_at < ?`,
		`DELETE FROM usage_events WHERE occurred_at < ?`,
	}

	total := 0
	for _, q := range deletes {
		result, err := tx.ExecContext(ctx, q, cutoff)
		if err != nil {
			return 0, fmt.Errorf("failed to cleanup: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to get rows affected: %w", err)
		}
		total += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit cleanup: %w", err)
	}
	return total, nil
}

// Close stops the checkpoint loop, runs a final checkpoint and closes the database.
func (s *SQLiteBackend) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		s.wg.Wait()

		s.mu.Lock()
		defer s.mu.Unlock()
		s.closed = true

		for _, stmt := range []*sql.Stmt{
			s.saveSnapshotStmt, s.latestSnapshotStmt,
			s.saveSummaryStmt, s.latestSummaryStmt,
			s.recordEventStmt, s.listEventsStmt,
		} {
			if stmt != nil {
				stmt.Close()
			}
		}

		if _, cerr := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); cerr != nil {
			s.logger.Warn("final WAL checkpoint failed", "error", cerr)
		}
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteBackend) checkpointLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.checkpointInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			_, err := s.db.Exec("PRAGMA wal_checkpoint(PASSIVE)")
			s.mu.Unlock()
			if err != nil {
				s.logger.Warn("WAL checkpoint failed", "path", s.dbPath, "error", err)
			}
		case <-s.done:
			return
		}
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
