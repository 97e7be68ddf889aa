package textgen

import (
	"context"
	"time"

	"github.com/avoronov/jobsift/internal/utils"

	"go.uber.org/zap"
)

const (
	defaultMaxAttempts = 3
	defaultBackoff     = 1500 * time.Millisecond
)

// Retrier wraps a Generator with bounded retries and linear backoff. The wait
// before attempt n+1 is backoff * n. No state is kept across attempts besides
// the last error, which is returned once attempts are exhausted.
type Retrier struct {
	generator   Generator
	maxAttempts int
	backoff     time.Duration
	logger      *zap.Logger

	wait func(ctx context.Context, d time.Duration) error
}

func NewRetrier(generator Generator, maxAttempts int, backoff time.Duration, logger *zap.Logger) *Retrier {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	if backoff <= 0 {
		backoff = defaultBackoff
	}

	return &Retrier{
		generator:   generator,
		maxAttempts: maxAttempts,
		backoff:     backoff,
		logger:      logger,
		wait:        utils.WaitFor,
	}
}

func (r *Retrier) Generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		response, err := r.generator.Generate(ctx, prompt)
		if err == nil {
			return response, nil
		}

		lastErr = err
		r.logger.Warn("model call failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", r.maxAttempts),
			zap.Error(err),
		)

		if attempt == r.maxAttempts {
			break
		}

		if err := r.wait(ctx, r.backoff*time.Duration(attempt)); err != nil {
			return "", err
		}
	}

	return "", lastErr
}

func (r *Retrier) Model() string { return r.generator.Model() }
