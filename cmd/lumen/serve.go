package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/lumen-dev/lumen/pkg/live"
	"github.com/lumen-dev/lumen/pkg/metrics"
	"github.com/lumen-dev/lumen/pkg/reactive"
	"github.com/lumen-dev/lumen/pkg/snapshot"
)

func serveCmd() *cobra.Command {
	var (
		addr     string
		stateDir string
		logLevel string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a demo reactive graph over HTTP and WebSocket",
		Long: `Serve starts an HTTP server with a small demo graph:

  GET /live/signals   current values as JSON
  GET /live/ws        WebSocket live protocol
  GET /metrics        Prometheus metrics
  GET /healthz        liveness probe

The graph is a counter, a celsius temperature and its derived
fahrenheit value. Write "count" or "celsius" over the WebSocket and
watch dependents update. With --state, values survive restarts.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(addr, stateDir, logLevel)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&stateDir, "state", "", "directory for state snapshots (empty = no persistence)")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	return cmd
}

func runServe(addr, stateDir, logLevel string) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", logLevel, err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	collector := metrics.New()
	sys := reactive.NewSystem(reactive.WithHooks(
		reactive.MultiHooks(collector, metrics.NewTracer()),
	))
	bridge := live.NewBridge(sys, live.WithLogger(logger))
	defer bridge.Close()

	// Demo graph. Everything on the graph goroutine.
	var (
		count      *reactive.Signal[int]
		celsius    *reactive.Signal[float64]
		fahrenheit *reactive.Signal[float64]
		registry   *snapshot.Registry
	)
	bridge.Sync(func() {
		count = reactive.NewSignal(sys, 0, reactive.PersistKey("count"))
		celsius = reactive.NewSignal(sys, 20.0, reactive.PersistKey("celsius"))

		derived := reactive.NewComputed(sys, func() float64 {
			return celsius.Get()*9/5 + 32
		})
		fahrenheit = reactive.NewSignal(sys, derived.Get())
		reactive.NewEffect(sys, func() reactive.Cleanup {
			fahrenheit.Set(derived.Get())
			return nil
		})

		registry = snapshot.NewRegistry(sys)
		if err := registry.Register(count); err != nil {
			logger.Error("register snapshot cell", "error", err)
		}
		if err := registry.Register(celsius); err != nil {
			logger.Error("register snapshot cell", "error", err)
		}
	})

	for name, sig := range map[string]*reactive.Signal[float64]{
		"celsius":    celsius,
		"fahrenheit": fahrenheit,
	} {
		if err := live.Expose(bridge, name, sig); err != nil {
			return err
		}
	}
	if err := live.Expose(bridge, "count", count); err != nil {
		return err
	}

	// Optional persistence across restarts.
	var store snapshot.Store
	if stateDir != "" {
		fileStore, err := snapshot.NewFileStore(stateDir)
		if err != nil {
			return err
		}
		store = fileStore

		bridge.Sync(func() {
			err := registry.Restore(context.Background(), store, "demo")
			switch {
			case errors.Is(err, snapshot.ErrNotFound):
				logger.Info("no previous state, starting fresh")
			case err != nil:
				logger.Error("state restore failed", "error", err)
			default:
				logger.Info("state restored", "keys", registry.Keys())
			}
		})
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Mount("/live", bridge.Router())
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Periodic state snapshots while running.
	if store != nil {
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					bridge.Sync(func() {
						if err := registry.Save(context.Background(), store, "demo"); err != nil {
							logger.Error("state save failed", "error", err)
						}
					})
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	if store != nil {
		bridge.Sync(func() {
			if err := registry.Save(context.Background(), store, "demo"); err != nil {
				logger.Error("final state save failed", "error", err)
			}
		})
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
