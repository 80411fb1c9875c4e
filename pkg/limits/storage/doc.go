// Package storage persists limiter snapshots and usage accounting data.
//
// # Overview
//
// The Backend interface is implemented by:
//
//   - MemoryBackend: in-process storage with bounded history, no persistence
//   - SQLiteBackend: file-based persistence using WAL mode
//
// SQLiteBackend supports two database/sql drivers: "sqlite"
// (modernc.org/sqlite, pure Go, default) and "sqlite3"
// (github.com/mattn/go-sqlite3, requires cgo).
//
// # Usage
//
//	backend, err := storage.NewSQLiteBackend("/var/lib/tollgate/state.db")
//	if err != nil {
//		return err
//	}
//	defer backend.Close()
//
//	accountant := costs.NewAccountant(table, costs.WithSinks(backend))
//
//	// Restore totals after a restart
//	if summary, err := backend.LatestUsageSummary(ctx); err == nil && summary != nil {
//		accountant.Restore(*summary)
//	}
//
// Snapshots are normally written by the snapshot.Scheduler rather than by
// callers directly.
package storage
