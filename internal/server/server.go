// Package server orchestrates all components: COMMS client, decoder, relay,
// dispatcher, optional event database and the HTTP popup.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	comms "github.com/nats-io/nats.go"

	"github.com/morezero/text-decoder/internal/config"
	"github.com/morezero/text-decoder/pkg/catalog"
	"github.com/morezero/text-decoder/pkg/commsutil"
	"github.com/morezero/text-decoder/pkg/db"
	"github.com/morezero/text-decoder/pkg/decoder"
	"github.com/morezero/text-decoder/pkg/dispatcher"
	"github.com/morezero/text-decoder/pkg/events"
	"github.com/morezero/text-decoder/pkg/relay"
	"github.com/morezero/text-decoder/pkg/semver"
)

const logPrefix = "server:server"

// Server is the text-decoder orchestrator.
type Server struct {
	cfg        *config.Config
	svc        decoderAPI
	health     healthChecker
	publisher  events.EventPublisher
	httpServer *http.Server
}

// Run starts the server, blocks until shutdown signal, then cleans up.
func Run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("%s - failed to load config: %w", logPrefix, err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	if err := cfg.ValidateForServe(); err != nil {
		return err
	}

	slog.Info(fmt.Sprintf("%s - Starting text-decoder", logPrefix))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Step 1: Decoder catalog
	svc := decoder.NewService(catalog.Load(cfg.CatalogFile).Options())
	slog.Info(fmt.Sprintf("%s - Decoder catalog %s with %d decoders", logPrefix, svc.Version(), len(svc.AvailableDecoders())))

	// Step 2: Connect to COMMS
	nc, err := commsutil.Connect(cfg.COMMSURL, cfg.COMMSName)
	if err != nil {
		return fmt.Errorf("%s - failed to connect to COMMS: %w", logPrefix, err)
	}
	defer nc.Close()

	// Step 3: Optional event database
	var pool *pgxpool.Pool
	if cfg.RecordEvents || cfg.RunMigrations {
		pool, err = openDatabase(ctx, cfg)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	// Step 4: Event publishers
	publishers := events.MultiPublisher{
		events.NewCommsPublisher(nc, &events.CommsPublisherOpts{GlobalSubject: cfg.DecodeEventSubject}),
	}
	if cfg.RecordEvents {
		publishers = append(publishers, events.NewStorePublisher(db.NewRepository(pool)))
	}

	// Step 5: Relay over the side panel bridge
	sidePanel := relay.NewCommsSidePanel(nc, cfg.SidePanelSubject, cfg.SidePanelTimeout)
	rl := relay.New(relay.CommsCapabilities{Panel: sidePanel})
	rl.OnInstalled()

	// Step 6: Dispatcher
	checks := map[string]func(context.Context) error{
		"comms": func(context.Context) error {
			if status := nc.Status(); status != comms.CONNECTED {
				return fmt.Errorf("status %s", status)
			}
			return nil
		},
	}
	if pool != nil {
		checks["database"] = pool.Ping
	}
	disp := dispatcher.NewDispatcher(dispatcher.NewDispatcherParams{
		Service:   svc,
		Relay:     rl,
		Publisher: publishers,
		Checks:    checks,
	})

	decoderSubject := firstNonEmpty(cfg.DecoderSubject, defaultDecoderSubject(svc.Version()))
	sub, err := subscribeDecoder(ctx, nc, decoderSubject, disp, cfg.RequestTimeout)
	if err != nil {
		return fmt.Errorf("%s - failed to subscribe to %s: %w", logPrefix, decoderSubject, err)
	}
	slog.Info(fmt.Sprintf("%s - Subscribed to %s", logPrefix, decoderSubject))

	relaySubject := firstNonEmpty(cfg.RelaySubject, commsutil.SubjectRelay)
	relaySub, err := subscribeRelay(ctx, nc, relaySubject, rl, cfg.SidePanelTimeout)
	if err != nil {
		_ = sub.Unsubscribe()
		return fmt.Errorf("%s - failed to subscribe to %s: %w", logPrefix, relaySubject, err)
	}
	slog.Info(fmt.Sprintf("%s - Subscribed to %s", logPrefix, relaySubject))

	// Step 7: HTTP popup, API and health
	s := &Server{cfg: cfg, svc: svc, health: disp, publisher: publishers}
	httpAddr := fmt.Sprintf(":%d", cfg.HTTPPort)
	s.httpServer = &http.Server{
		Addr:              httpAddr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info(fmt.Sprintf("%s - HTTP server listening on %s", logPrefix, httpAddr))
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error(fmt.Sprintf("%s - HTTP server error: %v", logPrefix, err))
		}
	}()

	slog.Info(fmt.Sprintf("%s - text-decoder is ready", logPrefix))

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info(fmt.Sprintf("%s - Received signal %s, shutting down", logPrefix, sig))

	// Graceful shutdown
	_ = sub.Unsubscribe()
	_ = relaySub.Unsubscribe()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn(fmt.Sprintf("%s - HTTP shutdown: %v", logPrefix, err))
	}
	cancel()
	if err := nc.Drain(); err != nil {
		slog.Warn(fmt.Sprintf("%s - COMMS drain: %v", logPrefix, err))
	}

	slog.Info(fmt.Sprintf("%s - Shutdown complete", logPrefix))
	return nil
}

// openDatabase connects to Postgres and applies migrations when enabled.
func openDatabase(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if cfg.RunMigrations {
		if _, err := db.EnsureDatabase(ctx, cfg.DatabaseURL); err != nil {
			return nil, fmt.Errorf("%s - failed to ensure database: %w", logPrefix, err)
		}
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to connect to database: %w", logPrefix, err)
	}
	if cfg.RunMigrations {
		migrationSQL, err := db.LoadMigrationFiles(cfg.MigrationPath)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("%s - failed to load migrations: %w", logPrefix, err)
		}
		if err := db.RunMigrations(ctx, pool, migrationSQL); err != nil {
			pool.Close()
			return nil, fmt.Errorf("%s - failed to run migrations: %w", logPrefix, err)
		}
	}
	return pool, nil
}

// subscribeDecoder serves decoder requests on subject. Each message is served
// in its own goroutine so a slow openSidePanel does not hold up decodes.
func subscribeDecoder(ctx context.Context, nc *comms.Conn, subject string, disp *dispatcher.Dispatcher, timeout time.Duration) (*comms.Subscription, error) {
	return nc.Subscribe(subject, func(msg *comms.Msg) {
		go func() {
			if err := msg.Respond(disp.ServeMsg(ctx, msg.Data, timeout)); err != nil {
				slog.Error(fmt.Sprintf("%s - failed to respond on %s: %v", logPrefix, subject, err))
			}
		}()
	})
}

// subscribeRelay serves raw relay messages on subject. Side panel opens run
// asynchronously and reply when done; messages the relay does not answer get
// no reply.
func subscribeRelay(ctx context.Context, nc *comms.Conn, subject string, rl *relay.Relay, timeout time.Duration) (*comms.Subscription, error) {
	return nc.Subscribe(subject, func(msg *comms.Msg) {
		var m relay.Message
		if err := commsutil.DecodePayload(msg.Data, &m); err != nil {
			slog.Warn(fmt.Sprintf("%s - invalid relay message: %v", logPrefix, err))
			return
		}

		reqCtx, cancel := context.WithTimeout(ctx, timeout)
		async := rl.Handle(reqCtx, m, func(resp relay.Response) {
			defer cancel()
			respondRelay(msg, subject, resp)
		})
		if !async {
			cancel()
		}
	})
}

func respondRelay(msg *comms.Msg, subject string, resp relay.Response) {
	if msg.Reply == "" {
		return
	}
	data, err := commsutil.EncodePayload(resp)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - relay response encode: %v", logPrefix, err))
		return
	}
	if err := msg.Respond(data); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to respond on %s: %v", logPrefix, subject, err))
	}
}

// defaultDecoderSubject derives the decoder subject from the catalog major.
func defaultDecoderSubject(catalogVersion string) string {
	major, err := semver.Major(catalogVersion)
	if err != nil {
		slog.Warn(fmt.Sprintf("%s - %v; using %s", logPrefix, err, commsutil.SubjectDecoder))
		return commsutil.SubjectDecoder
	}
	return commsutil.BuildCapabilitySubject("more0", "decoder", major)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
