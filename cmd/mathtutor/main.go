// Command mathtutor serves the calculus tutoring assistant over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	metricsdk "go.opentelemetry.io/otel/sdk/metric"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"

	"github.com/mathtutor-ai/mathtutor/pkg/config"
	"github.com/mathtutor-ai/mathtutor/pkg/graph/checkpoint"
	"github.com/mathtutor-ai/mathtutor/pkg/graph/observability"
	"github.com/mathtutor-ai/mathtutor/pkg/httpapi"
	"github.com/mathtutor-ai/mathtutor/pkg/llm"
	"github.com/mathtutor-ai/mathtutor/pkg/retrieval"
	"github.com/mathtutor-ai/mathtutor/pkg/tutor"
	"github.com/mathtutor-ai/mathtutor/pkg/tutor/session"
	"github.com/mathtutor-ai/mathtutor/pkg/websearch"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to YAML config file")
		addr       = flag.String("addr", "", "listen address (overrides config)")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if err := run(*configPath, *addr, logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(configPath, addr string, logger *slog.Logger) error {
	cfg := config.Default()
	if configPath != "" {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if cfg.Gemini.APIKey == "" {
		return fmt.Errorf("GOOGLE_API_KEY is not set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Enabled {
		mp := metricsdk.NewMeterProvider()
		tp := tracesdk.NewTracerProvider()
		otel.SetMeterProvider(mp)
		otel.SetTracerProvider(tp)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := mp.Shutdown(shutdownCtx); err != nil {
				logger.Warn("meter provider shutdown", "error", err)
			}
			if err := tp.Shutdown(shutdownCtx); err != nil {
				logger.Warn("tracer provider shutdown", "error", err)
			}
		}()
	}

	gemini, err := llm.NewGemini(ctx, cfg.Gemini.APIKey)
	if err != nil {
		return fmt.Errorf("gemini client: %w", err)
	}
	defer gemini.Close()

	store, err := retrieval.NewStore(cfg.Storage.VectorPath,
		retrieval.GeminiEmbedding(gemini, cfg.Gemini.EmbeddingModel))
	if err != nil {
		return fmt.Errorf("vector store: %w", err)
	}

	tavily := websearch.New(cfg.Tavily.APIKey, websearch.WithMaxResults(cfg.Tavily.MaxResults))

	sessions, err := session.Open(cfg.Storage.SessionPath)
	if err != nil {
		return err
	}
	defer sessions.Close()

	checkpoints, err := checkpoint.NewSQLiteStore(cfg.Storage.CheckpointPath)
	if err != nil {
		return err
	}
	defer checkpoints.Close()

	opts := []tutor.Option{
		tutor.WithSessionStore(sessions),
		tutor.WithCheckpointStore(checkpoints),
		tutor.WithMaxSteps(cfg.Workflow.MaxSteps),
		tutor.WithLogger(logger),
	}
	if cfg.Telemetry.Enabled {
		opts = append(opts, tutor.WithTelemetry(
			observability.NewMetricsRecorder(),
			observability.NewSpanManager(),
		))
	}

	workflow, err := tutor.New(
		tutor.NewTaskManager(gemini, cfg.Gemini.RouterModel),
		tutor.Agents{
			Theory:     tutor.NewTheoryAgent(gemini, store, cfg.Gemini.TheoryModel),
			Search:     tutor.NewSearchAgent(gemini, tavily, cfg.Gemini.SearchModel),
			Generation: tutor.NewGenerationAgent(gemini, cfg.Gemini.GenerationModel),
			Solving:    tutor.NewSolvingAgent(gemini, cfg.Gemini.SolvingModel),
			Response:   tutor.NewResponseAgent(gemini, cfg.Gemini.ResponseModel),
		},
		opts...,
	)
	if err != nil {
		return err
	}

	api := httpapi.NewServer(workflow, gemini, cfg.Gemini.ResponseModel, logger)
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Server.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}
	return nil
}
