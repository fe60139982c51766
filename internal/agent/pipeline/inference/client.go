package inference

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/tripsmart/server/internal/agent/model"
	errx "github.com/tripsmart/server/internal/core/error"
	logx "github.com/tripsmart/server/pkg/logger"
	"github.com/tripsmart/server/pkg/metrics"
)

// RetryPolicy bounds how long and how often one Generate call may try.
type RetryPolicy struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// AttemptTimeout bounds a single request; CallTimeout bounds the whole
	// call including backoff waits. Zero disables either bound.
	AttemptTimeout time.Duration
	CallTimeout    time.Duration
}

// DefaultRetryPolicy matches the LLM_* environment defaults.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:     2,
		InitialBackoff: time.Second,
		MaxBackoff:     8 * time.Second,
		AttemptTimeout: 60 * time.Second,
		CallTimeout:    150 * time.Second,
	}
}

// PolicyFromConfig converts the environment configuration.
func PolicyFromConfig(c model.RetryConfig) RetryPolicy {
	return RetryPolicy{
		MaxRetries:     c.MaxRetries,
		InitialBackoff: c.InitialBackoff,
		MaxBackoff:     c.MaxBackoff,
		AttemptTimeout: c.AttemptTimeout,
		CallTimeout:    c.CallTimeout,
	}
}

func (p RetryPolicy) maxTries() uint {
	if p.MaxRetries < 0 {
		return 1
	}
	return uint(p.MaxRetries) + 1
}

func (p RetryPolicy) backOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	if p.InitialBackoff > 0 {
		b.InitialInterval = p.InitialBackoff
	}
	if p.MaxBackoff > 0 {
		b.MaxInterval = p.MaxBackoff
	}
	b.Multiplier = 2
	return b
}

// Client sends prompts to a Backend with validation, retry and timeouts.
type Client struct {
	backend Backend
	policy  RetryPolicy
}

func NewClient(backend Backend, policy RetryPolicy) *Client {
	return &Client{backend: backend, policy: policy}
}

// Generate returns the model's text for prompt.
//
// Invalid configuration fails before any request. Authentication failures
// are never retried. Transport, rate-limit and timeout failures are retried
// up to MaxRetries times with exponential backoff.
func (c *Client) Generate(ctx context.Context, prompt string, cfg model.ModelConfig) (*model.Completion, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if c.policy.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.policy.CallTimeout)
		defer cancel()
	}

	provider := string(cfg.Provider)
	attempts := 0
	operation := func() (*model.Completion, error) {
		attempts++
		out, err := c.attempt(ctx, prompt, cfg)
		if err == nil {
			metrics.LLMRequestsTotal.WithLabelValues(provider, cfg.Model, "success").Inc()
			return out, nil
		}

		class, cause := classify(err)
		if ctxErr := ctx.Err(); ctxErr != nil {
			class, cause = classPermanent, errx.CauseCancelled
			if errors.Is(ctxErr, context.DeadlineExceeded) {
				cause = errx.CauseTimeout
			}
		}
		metrics.LLMRequestsTotal.WithLabelValues(provider, cfg.Model, "error").Inc()

		switch class {
		case classAuth:
			var appErr *errx.AppError
			if !errors.As(err, &appErr) || appErr.Kind != errx.KindConfiguration {
				appErr = errx.Configuration(err, model.RemediationFor(cfg.Provider))
			}
			appErr.Attempts = attempts
			return nil, backoff.Permanent(appErr)
		case classPermanent:
			return nil, backoff.Permanent(errx.Inference(err, cause, attempts))
		}

		logx.Warn().Err(err).
			Str("provider", provider).
			Str("model", cfg.Model).
			Str("cause", cause).
			Int("attempt", attempts).
			Msg("inference attempt failed")
		return nil, errx.Inference(err, cause, attempts)
	}

	out, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(c.policy.backOff()),
		backoff.WithMaxTries(c.policy.maxTries()),
		backoff.WithMaxElapsedTime(c.policy.CallTimeout),
		backoff.WithNotify(func(err error, next time.Duration) {
			var appErr *errx.AppError
			cause := errx.CauseTransport
			if errors.As(err, &appErr) {
				cause = appErr.Cause
			}
			metrics.LLMRetriesTotal.WithLabelValues(provider, cause).Inc()
			logx.Debug().Str("provider", provider).Dur("backoff", next).Msg("retrying inference")
		}),
	)
	if err != nil {
		var appErr *errx.AppError
		if !errors.As(err, &appErr) {
			// The context ended while waiting between attempts.
			cause := errx.CauseCancelled
			if errors.Is(err, context.DeadlineExceeded) {
				cause = errx.CauseTimeout
			}
			appErr = errx.Inference(err, cause, attempts)
		}
		appErr.Attempts = attempts
		return nil, appErr
	}

	out.Attempts = attempts
	if out.Provider == "" {
		out.Provider = provider
	}
	if out.Model == "" {
		out.Model = cfg.Model
	}
	recordUsage(out)
	return out, nil
}

func (c *Client) attempt(ctx context.Context, prompt string, cfg model.ModelConfig) (*model.Completion, error) {
	if c.policy.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.policy.AttemptTimeout)
		defer cancel()
	}

	start := time.Now()
	out, err := c.backend.Complete(ctx, prompt, cfg)
	metrics.LLMRequestDuration.WithLabelValues(string(cfg.Provider), cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	if out == nil || strings.TrimSpace(out.Text) == "" {
		return nil, fmt.Errorf("%s returned an empty response", cfg.Provider)
	}
	return out, nil
}

func recordUsage(out *model.Completion) {
	if out.Usage == nil {
		return
	}
	metrics.LLMTokensUsed.WithLabelValues(out.Provider, out.Model, "prompt").Add(float64(out.Usage.PromptTokens))
	metrics.LLMTokensUsed.WithLabelValues(out.Provider, out.Model, "completion").Add(float64(out.Usage.CompletionTokens))
}
