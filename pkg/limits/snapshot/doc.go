// Package snapshot periodically persists limiter metrics and usage totals.
//
// A Scheduler runs on a cron schedule (robfig/cron syntax, including
// descriptors such as "@every 1m"). Each run saves one snapshot per
// registered limiter plus the accountant's usage summary, then removes rows
// older than the retention period. The scheduler is started and stopped
// explicitly; Stop waits for an in-flight run and can flush a final snapshot.
package snapshot
