package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

const clearLogPrefix = "db:clear"

// ClearDecodeEvents removes all recorded decode events. Schema is preserved.
func ClearDecodeEvents(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info(fmt.Sprintf("%s - Clearing decode events", clearLogPrefix))

	if _, err := pool.Exec(ctx, `TRUNCATE TABLE decode_events`); err != nil {
		return fmt.Errorf("%s - truncate failed: %w", clearLogPrefix, err)
	}

	slog.Info(fmt.Sprintf("%s - Decode events cleared", clearLogPrefix))
	return nil
}
