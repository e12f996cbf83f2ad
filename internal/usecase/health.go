package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"ContentRefresher/internal/ports"
)

// HealthReport is the post-run store check.
type HealthReport struct {
	ActiveItems int64
	Healthy     bool
}

// HealthCheck counts active content and warns when the store is empty.
func HealthCheck(ctx context.Context, store ports.ContentStore, logger *slog.Logger) (HealthReport, error) {
	count, err := store.CountActive(ctx)
	if err != nil {
		return HealthReport{}, fmt.Errorf("count active content: %w", err)
	}

	report := HealthReport{ActiveItems: count, Healthy: count > 0}
	if logger != nil {
		if report.Healthy {
			logger.Info("health check passed", "active_items", count)
		} else {
			logger.Warn("health check: no active content in store")
		}
	}
	return report, nil
}
