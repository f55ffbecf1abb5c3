package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"logobatch/internal/domain"
	"logobatch/internal/infra"
	"logobatch/internal/middleware"
	"logobatch/internal/overlay"
	"logobatch/internal/pipeline"
	"logobatch/internal/providers/leonardo"
	"logobatch/internal/storage"
)

func main() {
	_ = godotenv.Load(".env", ".env.local")

	cfg, err := infra.LoadConfig()
	if err != nil {
		fallback := infra.NewLogger("production", "")
		fallback.Fatal().Err(err).Msg("logobatch: invalid configuration")
	}
	logger := infra.NewLogger(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := newPipeline(cfg, &logger)
	if err != nil {
		stop()
		logger.Fatal().Err(err).Msg("logobatch: setup failed")
	}

	if _, err := p.Run(ctx); err != nil {
		stop()
		reportFailure(&logger, err)
		os.Exit(1)
	}
}

// newPipeline assembles the run from cfg.
func newPipeline(cfg *infra.Config, logger *infra.Logger) (*pipeline.Pipeline, error) {
	clubs, err := domain.LoadClubs(cfg.ClubsFile)
	if err != nil {
		return nil, fmt.Errorf("load clubs: %w", err)
	}

	client, err := leonardo.NewClient(leonardo.Options{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		ModelID:    cfg.ModelID,
		HTTPClient: &http.Client{
			Timeout:   cfg.HTTPTimeout,
			Transport: middleware.NewLoggingTransport(nil, logger),
		},
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	store, err := storage.NewFileStore(cfg.OutputDir)
	if err != nil {
		return nil, err
	}

	renderer, err := overlay.NewRenderer(overlay.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	poller := pipeline.NewPoller(client,
		pipeline.WithInterval(cfg.PollInterval),
		pipeline.WithMaxAttempts(cfg.PollAttempts),
		pipeline.WithPollLogger(logger),
	)

	logger.Debug().
		Str("model", client.ModelID()).
		Str("output_dir", store.BasePath()).
		Int("clubs", len(clubs)).
		Msg("logobatch: configured")

	return pipeline.New(pipeline.Options{
		Service:        client,
		Store:          store,
		Renderer:       renderer,
		Poller:         poller,
		Clubs:          clubs,
		ReferenceImage: cfg.ReferenceImage,
		ClubDelay:      cfg.ClubDelay,
		Logger:         logger,
	})
}

// reportFailure logs the remote payload when the failure came from the API,
// otherwise the error message.
func reportFailure(logger *infra.Logger, err error) {
	if errors.Is(err, context.Canceled) {
		logger.Error().Msg("logobatch: interrupted")
		return
	}
	if payload, ok := domain.RemotePayload(err); ok {
		logger.Error().Str("payload", payload).Err(err).Msg("logobatch: run failed")
		return
	}
	logger.Error().Err(err).Msg("logobatch: run failed")
}
