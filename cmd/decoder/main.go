// Package main is the entrypoint for the text-decoder (binary name "decoder").
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/morezero/text-decoder/internal/config"
	"github.com/morezero/text-decoder/internal/server"
	"github.com/morezero/text-decoder/pkg/catalog"
	"github.com/morezero/text-decoder/pkg/db"
	"github.com/morezero/text-decoder/pkg/decoder"
)

const usage = `Usage: decoder [command]
       decoder serve                   Start the decoder (NATS, HTTP popup, relay).
       decoder decode [type] <text|->  Decode text locally; "-" reads stdin. Type defaults to auto.
       decoder encode <type> <text|->  Encode text with the inverse of a decoder.
       decoder detect <text|->         Print the detected decoder type.
       decoder list                    Print the decoder catalog as JSON.
       decoder migrate up              Run database migrations.
       decoder migrate down            Roll back one migration (not supported; prints guidance).
       decoder migrate status          Show migration status.
       decoder ensure-db [name]        Create database if missing (default name: decoder_test). Uses DATABASE_URL host/user.
       decoder events [limit]          Print the most recent recorded decode events as JSON.
       decoder stats [hours]           Print per-type decode statistics (default: last 24 hours).
       decoder clear                   Delete all recorded decode events; schema is preserved.

Commands:
  serve           (default) Start the text decoder service.
  decode          Decode without a server; exits 1 when decoding fails.
  encode          Encode without a server.
  detect          Detect the encoding of the input.
  list            Show available decoders.
  migrate up      Run database migrations only.
  migrate down    Roll back last migration (not supported).
  migrate status  Show current migration status.
  ensure-db       Create a database on the same host as DATABASE_URL.
  events          Show recorded decode events.
  stats           Show decode statistics.
  clear           Delete recorded decode events.

Environment: DATABASE_URL (required for migrate/events/stats/clear), MIGRATION_PATH, DECODER_CATALOG_FILE,
COMMS_URL, HTTP_PORT, RECORD_EVENTS. See README.
`

func main() {
	args := os.Args[1:]
	cmd := ""
	if len(args) > 0 && args[0] != "" {
		cmd = args[0]
	}

	switch cmd {
	case "decode", "encode", "detect", "list":
		if err := runLocal(cmd, args[1:], os.Stdin, os.Stdout); err != nil {
			log.Fatalf("decoder %s: %v", cmd, err)
		}
		return
	case "migrate":
		if len(args) < 2 {
			log.Fatalf("decoder migrate: require subcommand (up, down, status)")
		}
		sub := args[1]
		switch sub {
		case "up":
			if err := runMigrateUp(); err != nil {
				log.Fatalf("decoder migrate up: %v", err)
			}
		case "status":
			if err := runMigrateStatus(); err != nil {
				log.Fatalf("decoder migrate status: %v", err)
			}
		case "down":
			if err := db.MigrationDown(os.Stdout); err != nil {
				log.Fatalf("decoder migrate down: %v", err)
			}
		default:
			log.Fatalf("decoder migrate: unknown subcommand %q (use up, down, status)", sub)
		}
		return
	case "ensure-db":
		dbName := "decoder_test"
		if len(args) > 1 && args[1] != "" {
			dbName = args[1]
		}
		if err := runEnsureDB(dbName); err != nil {
			log.Fatalf("decoder ensure-db: %v", err)
		}
		return
	case "events":
		limit := 50
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n <= 0 {
				log.Fatalf("decoder events: invalid limit %q", args[1])
			}
			limit = n
		}
		if err := runEvents(limit); err != nil {
			log.Fatalf("decoder events: %v", err)
		}
		return
	case "stats":
		hours := 24
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n <= 0 {
				log.Fatalf("decoder stats: invalid hours %q", args[1])
			}
			hours = n
		}
		if err := runStats(time.Duration(hours) * time.Hour); err != nil {
			log.Fatalf("decoder stats: %v", err)
		}
		return
	case "clear":
		if err := runClear(); err != nil {
			log.Fatalf("decoder clear: %v", err)
		}
		return
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	case "serve", "":
		// serve (explicit or default)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q.\n%s", cmd, usage)
		os.Exit(1)
	}

	if err := server.Run(); err != nil {
		log.Fatalf("decoder: %v", err)
	}
}

// runLocal runs the commands that only need the decoder catalog.
func runLocal(cmd string, args []string, stdin io.Reader, stdout io.Writer) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc := decoder.NewService(catalog.Load(cfg.CatalogFile).Options())

	switch cmd {
	case "list":
		return writeJSON(stdout, svc.List())
	case "detect":
		text, err := inputText(args, stdin)
		if err != nil {
			return err
		}
		t := svc.Detect(text)
		out := &decoder.DetectOutput{Type: t}
		if t != decoder.TypeAuto {
			out.Label = svc.Label(t)
		}
		return writeJSON(stdout, out)
	case "encode":
		if len(args) < 2 {
			return fmt.Errorf("require <type> <text|->")
		}
		text, err := inputText(args[1:], stdin)
		if err != nil {
			return err
		}
		out, err := svc.Encode(text, decoder.Type(args[0]))
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(stdout, out)
		return err
	default:
		t := decoder.TypeAuto
		if len(args) > 1 {
			t = decoder.Type(args[0])
			args = args[1:]
		}
		text, err := inputText(args, stdin)
		if err != nil {
			return err
		}
		res, err := svc.Decode(context.Background(), text, t)
		if err != nil {
			return err
		}
		if !res.Success {
			return fmt.Errorf("%s", res.Error)
		}
		_, err = fmt.Fprintln(stdout, res.Result)
		return err
	}
}

// inputText returns the single text argument, reading stdin for "-".
func inputText(args []string, stdin io.Reader) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("require exactly one <text|-> argument")
	}
	if args[0] != "-" {
		return args[0], nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runMigrateUp() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	migrationSQL, err := db.LoadMigrationFiles(cfg.MigrationPath)
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	if err := db.RunMigrations(ctx, pool, migrationSQL); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func runMigrateStatus() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	return db.MigrationStatus(ctx, pool, cfg.MigrationPath, os.Stdout)
}

func runEvents(limit int) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	evs, err := db.NewRepository(pool).RecentDecodeEvents(ctx, limit)
	if err != nil {
		return fmt.Errorf("recent decode events: %w", err)
	}
	return writeJSON(os.Stdout, evs)
}

func runStats(window time.Duration) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	stats, err := db.NewRepository(pool).DecodeStats(ctx, time.Now().Add(-window))
	if err != nil {
		return fmt.Errorf("decode stats: %w", err)
	}
	return writeJSON(os.Stdout, stats)
}

func runClear() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	if err := db.ClearDecodeEvents(ctx, pool); err != nil {
		return fmt.Errorf("clear decode events: %w", err)
	}
	return nil
}

func runEnsureDB(dbName string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	u, err := url.Parse(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	// Replace path with target database name; query (e.g. sslmode) is kept on u.RawQuery.
	u.Path = "/" + dbName
	res, err := db.EnsureDatabase(context.Background(), u.String())
	if err != nil {
		return err
	}
	state := "already exists"
	if res.Created {
		state = "created"
	}
	fmt.Printf("Database %q %s; extensions enabled: %s.\n", res.Database, state, strings.Join(res.Extensions, ", "))
	return nil
}
