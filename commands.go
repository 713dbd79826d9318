package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"
	"github.com/urfave/cli/v2"

	"dinoevent/auth"
	"dinoevent/config"
	"dinoevent/events"
	"dinoevent/live"
	"dinoevent/middleware"
	"dinoevent/models"
	"dinoevent/mq"
	"dinoevent/ratelim"
	"dinoevent/routes"
	"dinoevent/store"
	"dinoevent/utils"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API and live update stream.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "listen", Usage: "override the listen address"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return err
			}
			if c.IsSet("listen") {
				cfg.Listen = c.String("listen")
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger := setupLogger(cfg.LogLevel)
			slog.SetDefault(logger)
			return serve(c.Context, cfg, logger)
		},
	}
}

func seedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "Insert the example event when the collection is empty.",
		Action: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger := setupLogger(cfg.LogLevel)

			b, err := openBackend(c.Context, cfg, false)
			if err != nil {
				return err
			}
			defer b.Close()

			ctx, cancel := context.WithTimeout(c.Context, cfg.StoreTimeout)
			defer cancel()
			loc, _ := cfg.Location()
			created, total, err := seedExamples(ctx, b.Store, store.ExampleEvents(time.Now().In(loc)))
			if err != nil {
				return err
			}
			logger.Info("Seed finished.", "created", created, "events", total)
			return nil
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Write the raw event collection to stdout as JSON.",
		Action: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			b, err := openBackend(c.Context, cfg, false)
			if err != nil {
				return err
			}
			defer b.Close()

			ctx, cancel := context.WithTimeout(c.Context, cfg.StoreTimeout)
			defer cancel()
			return exportEvents(ctx, b.Store, c.App.Writer)
		},
	}
}

// exportEvents writes the collection as indented JSON. It never writes to
// the store, so an empty backend is still seeded by a later serve.
func exportEvents(ctx context.Context, st store.Store, w io.Writer) error {
	list, err := st.List(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(list)
}

// seedExamples inserts examples into st when it holds no events and
// returns how many were created and the resulting collection size.
func seedExamples(ctx context.Context, st store.Store, examples []models.Event) (int, int, error) {
	existing, err := st.List(ctx)
	if err != nil {
		return 0, 0, err
	}
	if len(existing) > 0 {
		return 0, len(existing), nil
	}
	for i, e := range examples {
		if _, err := st.Create(ctx, e); err != nil {
			return i, i, fmt.Errorf("seed %s: %w", e.ID, err)
		}
	}
	return len(examples), len(examples), nil
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	b, err := openBackend(ctx, cfg, cfg.SeedExample)
	if err != nil {
		return err
	}
	defer b.Close()
	logger.Info("Event store ready.", "backend", cfg.Backend)

	// The hub reads through the service and the service notifies the hub,
	// so the hub is bound after both exist.
	var hub *live.Hub
	notifiers := events.Notifiers{
		events.NotifierFunc(func(ctx context.Context) { hub.Changed(ctx) }),
	}
	origin := utils.GetUUID()
	if b.Redis != nil {
		notifiers = append(notifiers, mq.NewPublisher(b.Redis, mq.Channel, origin, logger))
	}

	svc := events.NewService(b.Store, events.Options{
		Notifier: notifiers,
		Location: loc,
		Timeout:  cfg.StoreTimeout,
		Logger:   logger,
	})
	hub = live.NewHub(svc, cfg.StoreTimeout, logger)
	go hub.Run()
	defer hub.Stop()

	scheduler, err := live.ScheduleRefresh(hub, cfg.RefreshCron)
	if err != nil {
		return err
	}
	defer scheduler.Stop()

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if b.Redis != nil {
		go func() {
			if err := mq.Listen(runCtx, b.Redis, mq.Channel, origin, hub, logger); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Change notice listener stopped", "error", err)
			}
		}()
	}

	gate, err := auth.NewGate(cfg.AdminPassphrase, cfg.AdminPassphraseHash, []byte(cfg.JWTSecret), cfg.SessionTTL)
	if err != nil {
		return err
	}

	router := routes.New(routes.Deps{
		Gate:        gate,
		Auth:        auth.NewHandler(gate, logger),
		Events:      events.NewHandler(svc, cfg.PublicURL),
		Hub:         hub,
		RateLimiter: ratelim.NewRateLimiter(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst),
	})

	// CORS → security headers → logging → router
	corsHandler := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}).Handler(router)
	handler := middleware.Logging(logger, middleware.SecurityHeaders(corsHandler))

	server := &http.Server{
		Addr:              cfg.Listen,
		Handler:           handler,
		ReadTimeout:       7 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}
	server.RegisterOnShutdown(hub.Stop)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server listening.", "addr", cfg.Listen)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-runCtx.Done():
	}

	logger.Info("Shutdown signal received; shutting down gracefully.")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	logger.Info("Server stopped cleanly.")
	return nil
}
