package db

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const ensureLogPrefix = "db:ensure"

// maintenanceDB is the database used to create the event store.
const maintenanceDB = "postgres"

var safeDBName = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// requiredExtensions back gen_random_uuid() in the decode_events schema.
var requiredExtensions = []string{"pgcrypto"}

// EnsureResult reports what EnsureDatabase did.
type EnsureResult struct {
	Database   string
	Created    bool
	Extensions []string
}

// target is the event store named by a database URL.
type target struct {
	name     string
	adminURL string
}

// parseTarget extracts the database name from databaseURL and derives the URL
// of the maintenance database on the same server.
func parseTarget(databaseURL string) (*target, error) {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("%s - invalid database URL: %w", ensureLogPrefix, err)
	}
	name := strings.TrimSpace(strings.TrimPrefix(u.Path, "/"))
	if name == "" {
		return nil, fmt.Errorf("%s - database name empty in URL", ensureLogPrefix)
	}
	if !safeDBName.MatchString(name) {
		return nil, fmt.Errorf("%s - database name %q contains invalid characters", ensureLogPrefix, name)
	}
	if name == maintenanceDB {
		return nil, fmt.Errorf("%s - decode events cannot live in the %q maintenance database", ensureLogPrefix, maintenanceDB)
	}
	admin := *u
	admin.Path = "/" + maintenanceDB
	return &target{name: name, adminURL: admin.String()}, nil
}

// EnsureDatabase creates the event store named in databaseURL if it is missing
// and enables requiredExtensions in it.
func EnsureDatabase(ctx context.Context, databaseURL string) (*EnsureResult, error) {
	tgt, err := parseTarget(databaseURL)
	if err != nil {
		return nil, err
	}

	created, err := createIfMissing(ctx, tgt)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to connect to %q: %w", ensureLogPrefix, tgt.name, err)
	}
	defer pool.Close()

	for _, ext := range requiredExtensions {
		if _, err := pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS "+quoteIdent(ext)); err != nil {
			return nil, fmt.Errorf("%s - CREATE EXTENSION %s: %w", ensureLogPrefix, ext, err)
		}
	}

	slog.Info(fmt.Sprintf("%s - Event store %q ready (created=%t, extensions=%s)",
		ensureLogPrefix, tgt.name, created, strings.Join(requiredExtensions, ",")))
	return &EnsureResult{Database: tgt.name, Created: created, Extensions: requiredExtensions}, nil
}

func createIfMissing(ctx context.Context, tgt *target) (bool, error) {
	config, err := pgxpool.ParseConfig(tgt.adminURL)
	if err != nil {
		return false, fmt.Errorf("%s - failed to parse maintenance URL: %w", ensureLogPrefix, err)
	}
	// CREATE DATABASE cannot run inside the implicit transaction of an extended-protocol statement.
	config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return false, fmt.Errorf("%s - failed to connect to %s: %w", ensureLogPrefix, maintenanceDB, err)
	}
	defer pool.Close()

	var exists bool
	if err := pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)`, tgt.name).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s - failed to check database: %w", ensureLogPrefix, err)
	}
	if exists {
		return false, nil
	}

	slog.Info(fmt.Sprintf("%s - Creating event store %q", ensureLogPrefix, tgt.name))
	if _, err := pool.Exec(ctx, "CREATE DATABASE "+quoteIdent(tgt.name)); err != nil {
		return false, fmt.Errorf("%s - CREATE DATABASE failed: %w", ensureLogPrefix, err)
	}
	return true, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
