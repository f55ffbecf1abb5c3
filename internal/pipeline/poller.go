package pipeline

import (
	"context"
	"fmt"
	"time"

	"logobatch/internal/domain"
	"logobatch/internal/infra"
)

const (
	DefaultPollInterval    = 3 * time.Second
	DefaultPollMaxAttempts = 10
)

// StatusFetcher reads the current state of a remote generation.
type StatusFetcher interface {
	GetGeneration(ctx context.Context, generationID string) (domain.GenerationJob, error)
}

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Poller waits for a generation job to reach a terminal state.
type Poller struct {
	fetcher     StatusFetcher
	interval    time.Duration
	maxAttempts int
	sleep       SleepFunc
	logger      *infra.Logger
}

// PollerOption customizes a Poller.
type PollerOption func(*Poller)

// WithInterval sets the wait between status queries.
func WithInterval(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d >= 0 {
			p.interval = d
		}
	}
}

// WithMaxAttempts bounds the number of status queries per job.
func WithMaxAttempts(n int) PollerOption {
	return func(p *Poller) {
		if n > 0 {
			p.maxAttempts = n
		}
	}
}

// WithSleep replaces the wait primitive. Tests use it to avoid real delays.
func WithSleep(fn SleepFunc) PollerOption {
	return func(p *Poller) {
		if fn != nil {
			p.sleep = fn
		}
	}
}

// WithPollLogger sets the logger used for retry warnings.
func WithPollLogger(logger *infra.Logger) PollerOption {
	return func(p *Poller) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPoller builds a Poller with the default cadence of 10 queries 3 seconds apart.
func NewPoller(fetcher StatusFetcher, opts ...PollerOption) *Poller {
	p := &Poller{
		fetcher:     fetcher,
		interval:    DefaultPollInterval,
		maxAttempts: DefaultPollMaxAttempts,
		sleep:       Sleep,
		logger:      infra.NopLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Wait queries the job until it succeeds with an image, fails, or the attempt
// budget runs out. A failed status ends polling at once. Query errors are
// retried; if every remaining attempt errors, the last error is returned.
func (p *Poller) Wait(ctx context.Context, generationID string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		if attempt > 1 {
			if err := p.sleep(ctx, p.interval); err != nil {
				return "", err
			}
		}

		job, err := p.fetcher.GetGeneration(ctx, generationID)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			lastErr = err
			p.logger.Warn().
				Err(err).
				Str("generation_id", generationID).
				Int("attempt", attempt).
				Int("max_attempts", p.maxAttempts).
				Msg("pipeline: status query failed, retrying poll")
			continue
		}
		lastErr = nil

		switch {
		case job.Status == domain.JobFailed:
			return "", fmt.Errorf("%w: generation %s", domain.ErrGenerationFailed, generationID)
		case job.Ready():
			return job.ResultURL, nil
		}
		p.logger.Debug().
			Str("generation_id", generationID).
			Str("status", string(job.Status)).
			Int("attempt", attempt).
			Msg("pipeline: generation not ready")
	}

	if lastErr != nil {
		return "", fmt.Errorf("pipeline: poll generation %s: %w", generationID, lastErr)
	}
	return "", fmt.Errorf("%w: generation %s after %d attempts", domain.ErrPollTimeout, generationID, p.maxAttempts)
}

// Sleep waits for d unless ctx is cancelled first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
