package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/bitfinex-recorder/internal/config"
	"github.com/rickgao/bitfinex-recorder/internal/connection"
	"github.com/rickgao/bitfinex-recorder/internal/version"
	"github.com/rickgao/bitfinex-recorder/internal/writer"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	inputPath := flag.String("input-path", "", "JSON file with the instruments to subscribe")
	outputPath := flag.String("output-path", "", "directory for the per-channel CSV files")
	flag.Parse()

	// Bootstrap logger until the configured one is ready
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := loadConfig(*configPath, *inputPath, *outputPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	instruments, err := cfg.Instruments()
	if err != nil {
		logger.Error("failed to load instruments", "error", err)
		os.Exit(1)
	}

	if err := writer.PrepareOutputDir(cfg.Output.Dir); err != nil {
		logger.Error("failed to prepare output directory", "dir", cfg.Output.Dir, "error", err)
		os.Exit(1)
	}

	runLogger, closeLog, err := newLogger(cfg)
	if err != nil {
		logger.Error("failed to set up logging", "error", err)
		os.Exit(1)
	}
	defer closeLog()
	logger = runLogger
	slog.SetDefault(logger)

	logger.Info("starting recorder",
		"build", version.LogValue(),
		"ws_url", cfg.Feed.WSURL,
		"output_dir", cfg.Output.Dir,
		"instruments", len(instruments),
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	client := connection.NewClient(connection.ClientConfig{
		URL:              cfg.Feed.WSURL,
		HandshakeTimeout: cfg.Feed.HandshakeTimeout,
		WriteTimeout:     cfg.Feed.WriteTimeout,
		BufferSize:       cfg.Feed.BufferSize,
	}, logger)

	dispatcher := connection.NewDispatcher(connection.DispatcherConfig{
		Channel:           cfg.Feed.Channel,
		Instruments:       instruments,
		OutputDir:         cfg.Output.Dir,
		QueueCapacity:     cfg.Output.QueueCapacity,
		KeepaliveInterval: cfg.Feed.KeepaliveInterval,
		IdleInterval:      cfg.Feed.IdleInterval,
	}, client, logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return dispatcher.Run(gctx)
	})

	if cfg.Metrics.Enabled {
		server := &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler: createHandler(cfg.Metrics.Path, dispatcher),
		}

		g.Go(func() error {
			logger.Info("starting metrics server", "port", cfg.Metrics.Port, "path", cfg.Metrics.Path)
			if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})

		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("recorder stopped with error", "error", err)
		closeLog()
		os.Exit(1)
	}

	logger.Info("recorder stopped")
}

// loadConfig applies command-line overrides on top of the optional file.
func loadConfig(path, inputPath, outputPath string) (*config.RecorderConfig, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if inputPath != "" {
		cfg.Input.InstrumentsPath = inputPath
	}
	if outputPath != "" {
		cfg.Output.Dir = outputPath
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the run logger. Records go to stdout and, when
// configured, to a log file; each carries the run id.
func newLogger(cfg *config.RecorderConfig) (*slog.Logger, func(), error) {
	level, err := cfg.Log.SlogLevel()
	if err != nil {
		return nil, nil, err
	}

	var out io.Writer = os.Stdout
	closeFn := func() {}

	if path := cfg.LogPath(); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out = io.MultiWriter(os.Stdout, f)
		closeFn = func() { f.Close() }
	}

	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
	return logger.With("run_id", uuid.NewString()), closeFn, nil
}

// createHandler serves Prometheus metrics and a health check.
func createHandler(metricsPath string, dispatcher *connection.Dispatcher) http.Handler {
	mux := http.NewServeMux()
	mux.Handle(metricsPath, promhttp.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		state := dispatcher.State()

		health := struct {
			Status string `json:"status"`
			State  string `json:"state"`
		}{
			Status: "healthy",
			State:  state.String(),
		}
		if state != connection.StateOpen {
			health.Status = "unhealthy"
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	return mux
}
