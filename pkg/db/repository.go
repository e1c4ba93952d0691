package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/morezero/text-decoder/pkg/events"
)

const repoLogPrefix = "db:repository"

// maxRecentEvents caps RecentDecodeEvents.
const maxRecentEvents = 500

// Repository provides database access for decode events.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InsertDecodeEvent records one decode event. It satisfies events.Store.
func (r *Repository) InsertDecodeEvent(ctx context.Context, event *events.DecodeCompletedEvent) error {
	occurred := occurredAt(event.Timestamp, time.Now().UTC())

	var errorCode *string
	if event.ErrorCode != "" {
		errorCode = &event.ErrorCode
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO decode_events
		   (requested_type, resolved_type, success, error_code, input_length, duration_ms, source, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		event.RequestedType, event.ResolvedType, event.Success, errorCode,
		event.InputLength, event.DurationMs, event.Source, occurred)
	if err != nil {
		return fmt.Errorf("%s - insert decode event: %w", repoLogPrefix, err)
	}
	return nil
}

// occurredAt parses an event timestamp, falling back to now.
func occurredAt(timestamp string, now time.Time) time.Time {
	if timestamp == "" {
		return now
	}
	ts, err := time.Parse(time.RFC3339Nano, timestamp)
	if err != nil {
		slog.Warn(fmt.Sprintf("%s - invalid event timestamp %q, using now", repoLogPrefix, timestamp))
		return now
	}
	return ts
}

// RecentDecodeEvents returns the latest events, newest first.
func (r *Repository) RecentDecodeEvents(ctx context.Context, limit int) ([]DecodeEvent, error) {
	if limit <= 0 || limit > maxRecentEvents {
		limit = maxRecentEvents
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, requested_type, resolved_type, success, error_code, input_length,
		        duration_ms, source, occurred_at, created
		 FROM decode_events
		 ORDER BY occurred_at DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("%s - query recent events: %w", repoLogPrefix, err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (DecodeEvent, error) {
		var e DecodeEvent
		err := row.Scan(&e.ID, &e.RequestedType, &e.ResolvedType, &e.Success, &e.ErrorCode,
			&e.InputLength, &e.DurationMs, &e.Source, &e.OccurredAt, &e.Created)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("%s - scan recent events: %w", repoLogPrefix, err)
	}
	return out, nil
}

// DecodeStats aggregates events per resolved type since the given time.
func (r *Repository) DecodeStats(ctx context.Context, since time.Time) ([]TypeStats, error) {
	slog.Debug(fmt.Sprintf("%s - DecodeStats since=%s", repoLogPrefix, since.Format(time.RFC3339)))

	rows, err := r.pool.Query(ctx,
		`SELECT resolved_type,
		        COUNT(*),
		        COUNT(*) FILTER (WHERE success),
		        COUNT(*) FILTER (WHERE NOT success),
		        COALESCE(AVG(duration_ms), 0)::float8
		 FROM decode_events
		 WHERE occurred_at >= $1
		 GROUP BY resolved_type
		 ORDER BY COUNT(*) DESC, resolved_type`, since)
	if err != nil {
		return nil, fmt.Errorf("%s - query stats: %w", repoLogPrefix, err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (TypeStats, error) {
		var s TypeStats
		err := row.Scan(&s.ResolvedType, &s.Total, &s.Succeeded, &s.Failed, &s.AvgDurationMs)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("%s - scan stats: %w", repoLogPrefix, err)
	}
	return out, nil
}

// Ping checks database connectivity.
func (r *Repository) Ping(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%s - ping: %w", repoLogPrefix, err)
	}
	return nil
}
