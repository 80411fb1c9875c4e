package health

import (
	"context"
	"errors"
	"fmt"

	"mercator-hq/tollgate/pkg/limits/ratelimit"
	"mercator-hq/tollgate/pkg/limits/storage"
	"mercator-hq/tollgate/pkg/processing/costs"
)

// StorageCheck verifies the storage backend answers a read.
func StorageCheck(backend storage.Backend) CheckFunc {
	return func(ctx context.Context) error {
		if _, err := backend.LatestUsageSummary(ctx); err != nil {
			return fmt.Errorf("storage unavailable: %w", err)
		}
		return nil
	}
}

// PricingCheck verifies the accountant has a non-empty pricing table.
func PricingCheck(accountant *costs.Accountant) CheckFunc {
	return func(ctx context.Context) error {
		table := accountant.Pricing()
		if table == nil || table.Len() == 0 {
			return errors.New("pricing table is empty")
		}
		return nil
	}
}

// LimitersCheck verifies that every limiter named in expected is
// registered.
func LimitersCheck(registry *ratelimit.Registry, expected []string) CheckFunc {
	return func(ctx context.Context) error {
		var missing []string
		for _, name := range expected {
			if _, ok := registry.Get(name); !ok {
				missing = append(missing, name)
			}
		}
		if len(missing) > 0 {
			return fmt.Errorf("limiters not registered: %v", missing)
		}
		return nil
	}
}
