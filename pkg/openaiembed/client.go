// Package openaiembed provides a rate-limited OpenAI embedding client.
package openaiembed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/PitchlineAI/pitchline-mvp/engine/domain"
	"github.com/PitchlineAI/pitchline-mvp/pkg/fn"
)

// DefaultModel is the embedding model used unless overridden.
const DefaultModel = openai.SmallEmbedding3

// DefaultDims is the output dimensionality of DefaultModel.
const DefaultDims = 1536

// Client embeds text through the OpenAI API. Calls are rate limited
// client-side and retried on transient failures.
type Client struct {
	api     *openai.Client
	baseURL string
	model   openai.EmbeddingModel
	dims    int
	limiter *rate.Limiter
	retry   fn.RetryOpts
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithModel overrides the embedding model and its dimensionality.
func WithModel(model openai.EmbeddingModel, dims int) Option {
	return func(c *Client) {
		c.model = model
		c.dims = dims
	}
}

// WithRateLimit overrides the requests-per-second limit.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithRetry overrides the retry policy.
func WithRetry(opts fn.RetryOpts) Option {
	return func(c *Client) {
		c.retry = opts
	}
}

// WithBaseURL points the client at a compatible API, for tests and proxies.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// New creates a Client with the given API key.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		model:   DefaultModel,
		dims:    DefaultDims,
		limiter: rate.NewLimiter(rate.Limit(10), 20),
		retry: fn.RetryOpts{
			MaxAttempts: 3,
			InitialWait: 500 * time.Millisecond,
			MaxWait:     10 * time.Second,
			Jitter:      true,
		},
		logger: slog.Default().With("component", "openaiembed"),
	}
	for _, opt := range opts {
		opt(c)
	}

	cfg := openai.DefaultConfig(apiKey)
	if c.baseURL != "" {
		cfg.BaseURL = c.baseURL
	}
	cfg.HTTPClient = &http.Client{
		Timeout:   30 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	c.api = openai.NewClientWithConfig(cfg)
	return c
}

// Dims returns the embedding dimensionality of the configured model.
func (c *Client) Dims() int { return c.dims }

// Embed returns the embedding vector for text. Transient API failures are
// retried; rate-limit waits respect ctx. Failures wrap
// domain.ErrEmbeddingService.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var permanent error
	result := fn.Retry(ctx, c.retry, func(ctx context.Context) fn.Result[[]float32] {
		resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: []string{text},
			Model: c.model,
		})
		if err != nil {
			if !retryable(err) {
				permanent = err
				return fn.Ok[[]float32](nil)
			}
			c.logger.Warn("embedding call failed, will retry", "error", err)
			return fn.Err[[]float32](err)
		}
		if len(resp.Data) == 0 {
			return fn.Errf[[]float32]("empty embedding response")
		}
		return fn.Ok(resp.Data[0].Embedding)
	})

	if permanent != nil {
		return nil, fmt.Errorf("openaiembed: %w: %v", domain.ErrEmbeddingService, permanent)
	}
	vec, err := result.Unwrap()
	if err != nil {
		return nil, fmt.Errorf("openaiembed: %w: %v", domain.ErrEmbeddingService, err)
	}
	return vec, nil
}

// retryable reports whether an API error is worth retrying: rate limits,
// server errors, and transport failures.
func retryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}
	// Transport-level errors have no status code.
	return true
}
