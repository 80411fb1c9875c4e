// Package health provides liveness and readiness endpoints for
// `tollgate serve`.
//
// Liveness always answers 200 while the process is up. Readiness runs the
// registered component checks concurrently, each bounded by a timeout, and
// answers 503 when any of them fails.
//
//	checker := health.New(2*time.Second, version)
//	checker.RegisterCheck("storage", health.StorageCheck(backend))
//	checker.RegisterCheck("pricing", health.PricingCheck(accountant))
//	health.Mount(mux, checker, cfg.Telemetry.Health, 10)
package health
