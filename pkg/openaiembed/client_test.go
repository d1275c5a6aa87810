package openaiembed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PitchlineAI/pitchline-mvp/engine/domain"
	"github.com/PitchlineAI/pitchline-mvp/pkg/fn"
)

func embeddingResponse(vec []float32) map[string]any {
	return map[string]any{
		"object": "list",
		"data": []map[string]any{
			{"object": "embedding", "index": 0, "embedding": vec},
		},
		"model": "text-embedding-3-small",
	}
}

func fastRetry() fn.RetryOpts {
	return fn.RetryOpts{MaxAttempts: 3, InitialWait: time.Millisecond, MaxWait: 5 * time.Millisecond}
}

func TestEmbed_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(embeddingResponse([]float32{0.1, 0.2}))
	}))
	defer srv.Close()

	c := New("test-key", WithBaseURL(srv.URL), WithRetry(fastRetry()))
	vec, err := c.Embed(context.Background(), "enterprise pricing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vec) != 2 || vec[0] != float32(0.1) {
		t.Fatalf("wrong vector: %v", vec)
	}
}

func TestEmbed_RetriesServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "overloaded"}})
			return
		}
		json.NewEncoder(w).Encode(embeddingResponse([]float32{1}))
	}))
	defer srv.Close()

	c := New("test-key", WithBaseURL(srv.URL), WithRetry(fastRetry()))
	vec, err := c.Embed(context.Background(), "text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 calls, got %d", calls.Load())
	}
	if len(vec) != 1 {
		t.Fatalf("wrong vector: %v", vec)
	}
}

func TestEmbed_PermanentErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "invalid input"}})
	}))
	defer srv.Close()

	c := New("test-key", WithBaseURL(srv.URL), WithRetry(fastRetry()))
	_, err := c.Embed(context.Background(), "text")
	if !errors.Is(err, domain.ErrEmbeddingService) {
		t.Fatalf("expected ErrEmbeddingService, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("400 should not be retried, got %d calls", calls.Load())
	}
}

func TestEmbed_ExhaustedRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "rate limited"}})
	}))
	defer srv.Close()

	c := New("test-key", WithBaseURL(srv.URL), WithRetry(fastRetry()))
	_, err := c.Embed(context.Background(), "text")
	if !errors.Is(err, domain.ErrEmbeddingService) {
		t.Fatalf("expected ErrEmbeddingService, got %v", err)
	}
}

func TestEmbed_RateLimiterRespectsContext(t *testing.T) {
	c := New("test-key", WithRateLimit(0.001, 1), WithRetry(fastRetry()))
	// Drain the single burst token.
	c.limiter.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := c.Embed(ctx, "text")
	if err == nil {
		t.Fatal("expected error when rate limit wait outlives context")
	}
}

func TestDims(t *testing.T) {
	c := New("k")
	if c.Dims() != DefaultDims {
		t.Fatalf("Dims = %d, want %d", c.Dims(), DefaultDims)
	}
	c = New("k", WithModel("custom-model", 768))
	if c.Dims() != 768 {
		t.Fatalf("Dims = %d, want 768", c.Dims())
	}
}
