// Package pipeline drives the batch: one reference upload, then a sequential
// generate, poll, download and render pass for every club.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"logobatch/internal/domain"
	"logobatch/internal/infra"
	"logobatch/internal/overlay"
	"logobatch/internal/providers/leonardo"
)

const DefaultClubDelay = 2 * time.Second

// Service is the remote image generation API.
type Service interface {
	UploadInitImage(ctx context.Context, path string) (string, error)
	StartGeneration(ctx context.Context, in leonardo.GenerationRequest) (string, error)
	StatusFetcher
	Download(ctx context.Context, imageURL string) ([]byte, error)
}

// Store persists downloaded artifacts and resolves their local paths.
type Store interface {
	Write(ctx context.Context, key string, data []byte) (string, error)
	Path(key string) (string, error)
	BasePath() string
}

// Renderer draws the club name onto a logo.
type Renderer interface {
	Render(srcPath, dstPath, text string) (overlay.Result, error)
}

// Stage names the step a club is in.
type Stage string

const (
	StageUploading   Stage = "uploading"
	StageGenerating  Stage = "generating"
	StagePolling     Stage = "polling"
	StageDownloading Stage = "downloading"
	StageRendering   Stage = "rendering"
	StageDone        Stage = "done"
)

// Options wires a Pipeline.
type Options struct {
	Service        Service
	Store          Store
	Renderer       Renderer
	Poller         *Poller
	Clubs          []domain.ClubSpec
	ReferenceImage string
	ClubDelay      time.Duration
	Sleep          SleepFunc
	Logger         *infra.Logger
}

// Pipeline runs the batch for a fixed roster.
type Pipeline struct {
	service   Service
	store     Store
	renderer  Renderer
	poller    *Poller
	clubs     []domain.ClubSpec
	reference string
	clubDelay time.Duration
	sleep     SleepFunc
	logger    *infra.Logger
}

// ClubResult records the artifacts produced for one club.
type ClubResult struct {
	Club         domain.ClubSpec
	GenerationID string
	RawPath      string
	FinalPath    string
}

// Summary is returned by a completed run.
type Summary struct {
	RunID            string
	ReferenceImageID string
	Clubs            []ClubResult
}

// New validates opts and builds a Pipeline.
func New(opts Options) (*Pipeline, error) {
	if opts.Service == nil {
		return nil, errors.New("pipeline: service is required")
	}
	if opts.Store == nil {
		return nil, errors.New("pipeline: store is required")
	}
	if opts.Renderer == nil {
		return nil, errors.New("pipeline: renderer is required")
	}
	if err := domain.ValidateClubs(opts.Clubs); err != nil {
		return nil, err
	}
	if opts.ReferenceImage == "" {
		return nil, errors.New("pipeline: reference image path is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	poller := opts.Poller
	if poller == nil {
		poller = NewPoller(opts.Service, WithPollLogger(logger))
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = Sleep
	}
	delay := opts.ClubDelay
	if delay < 0 {
		delay = 0
	}

	clubs := make([]domain.ClubSpec, len(opts.Clubs))
	copy(clubs, opts.Clubs)

	return &Pipeline{
		service:   opts.Service,
		store:     opts.Store,
		renderer:  opts.Renderer,
		poller:    poller,
		clubs:     clubs,
		reference: opts.ReferenceImage,
		clubDelay: delay,
		sleep:     sleep,
		logger:    logger,
	}, nil
}

// Run uploads the reference image once and processes every club in order.
// The first error aborts the run; artifacts of finished clubs stay on disk.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	runID := uuid.NewString()
	logger := p.logger.With().Str("run_id", runID).Logger()
	summary := Summary{RunID: runID}

	logger.Info().
		Str("stage", string(StageUploading)).
		Str("reference", p.reference).
		Msg("uploading reference image")
	refID, err := p.service.UploadInitImage(ctx, p.reference)
	if err != nil {
		return summary, err
	}
	summary.ReferenceImageID = refID
	logger.Info().Str("reference_id", refID).Msg("reference image uploaded")

	total := len(p.clubs)
	for i, club := range p.clubs {
		clubLogger := logger.With().
			Str("club", club.Name).
			Str("slug", club.Slug()).
			Str("progress", fmt.Sprintf("%d/%d", i+1, total)).
			Logger()

		res, err := p.processClub(ctx, &clubLogger, refID, club, i+1, total)
		if err != nil {
			return summary, fmt.Errorf("pipeline: club %q: %w", club.Name, err)
		}
		summary.Clubs = append(summary.Clubs, res)

		if err := p.sleep(ctx, p.clubDelay); err != nil {
			return summary, err
		}
	}

	logger.Info().
		Str("stage", string(StageDone)).
		Str("output_dir", p.store.BasePath()).
		Int("clubs", total).
		Msgf("all done, logos saved in %s", p.store.BasePath())
	return summary, nil
}

func (p *Pipeline) processClub(ctx context.Context, logger *infra.Logger, refID string, club domain.ClubSpec, index, total int) (ClubResult, error) {
	res := ClubResult{Club: club}

	logger.Info().Str("stage", string(StageGenerating)).Msgf("(%d/%d) generating %s", index, total, club.Name)
	genID, err := p.service.StartGeneration(ctx, leonardo.GenerationRequest{
		Prompt:      leonardo.BuildPrompt(club.Color),
		InitImageID: refID,
	})
	if err != nil {
		return res, err
	}
	res.GenerationID = genID

	logger.Info().
		Str("stage", string(StagePolling)).
		Str("generation_id", genID).
		Msgf("(%d/%d) waiting for %s", index, total, club.Name)
	imageURL, err := p.poller.Wait(ctx, genID)
	if err != nil {
		return res, err
	}

	logger.Info().Str("stage", string(StageDownloading)).Msgf("(%d/%d) downloading %s", index, total, club.Name)
	data, err := p.service.Download(ctx, imageURL)
	if err != nil {
		return res, err
	}
	rawPath, err := p.store.Write(ctx, club.RawFilename(), data)
	if err != nil {
		return res, fmt.Errorf("%w: save %s: %w", domain.ErrDownload, club.RawFilename(), err)
	}
	res.RawPath = rawPath

	finalPath, err := p.store.Path(club.FinalFilename())
	if err != nil {
		return res, fmt.Errorf("%w: %w", domain.ErrRender, err)
	}
	logger.Info().Str("stage", string(StageRendering)).Msgf("(%d/%d) adding name to %s", index, total, club.Name)
	if _, err := p.renderer.Render(rawPath, finalPath, club.Name); err != nil {
		return res, err
	}
	res.FinalPath = finalPath

	logger.Info().Str("path", finalPath).Msgf("(%d/%d) saved %s", index, total, club.Name)
	return res, nil
}
