// Package rag orchestrates the retrieval pipeline. The write path ingests
// product documents (load, chunk, embed, store); the read path assembles
// ranked context snippets for outreach message generation. Context is an
// enrichment, not a requirement, so the read path never returns an error:
// every failure degrades to a product-info snippet or an empty result.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PitchlineAI/pitchline-mvp/engine/chunk"
	"github.com/PitchlineAI/pitchline-mvp/engine/docload"
	"github.com/PitchlineAI/pitchline-mvp/engine/domain"
	"github.com/PitchlineAI/pitchline-mvp/engine/semantic"
	"github.com/PitchlineAI/pitchline-mvp/pkg/fn"
	"github.com/PitchlineAI/pitchline-mvp/pkg/resilience"
)

// Embedder turns text into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorStore abstracts chunk persistence and similarity search.
type VectorStore interface {
	Insert(ctx context.Context, rec semantic.ChunkRecord) (string, error)
	DeleteByProduct(ctx context.Context, productID string) (int, error)
	Search(ctx context.Context, embedding []float32, productID string, topK int) ([]semantic.SearchResult, error)
}

// ProductCatalog supplies product records for the degraded search path and
// receives the chunk ids of completed ingestions.
type ProductCatalog interface {
	GetProduct(ctx context.Context, id string) (domain.Product, error)
	AppendVectorIDs(ctx context.Context, id string, vectorIDs []string) error
}

// Options configures the retrieval pipeline.
type Options struct {
	// TopK is the number of snippets returned by a live search.
	TopK int
	// EmbedWorkers bounds concurrent embed+insert calls during ingestion.
	EmbedWorkers int
	// SearchTimeout bounds a single read-path embed+search round trip.
	SearchTimeout time.Duration
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		TopK:          3,
		EmbedWorkers:  4,
		SearchTimeout: 5 * time.Second,
	}
}

// Snippet is one ranked piece of retrieved context.
type Snippet struct {
	Content        string         `json:"content"`
	Metadata       map[string]any `json:"metadata"`
	RelevanceScore float32        `json:"relevance_score"`
}

// Service wires the ingestion and retrieval paths together. Whether the
// vector index is usable is decided once, at construction: pass a nil store
// to run permanently on the degraded path.
type Service struct {
	embed    Embedder
	store    VectorStore
	catalog  ProductCatalog
	splitter *chunk.Splitter
	breaker  *resilience.Breaker
	opts     Options
	logger   *slog.Logger
}

// New creates a retrieval Service. A nil store means the vector index was
// unavailable at startup; every search then degrades to catalog synthesis.
func New(embed Embedder, store VectorStore, catalog ProductCatalog, splitter *chunk.Splitter, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.TopK <= 0 {
		opts.TopK = DefaultOptions().TopK
	}
	if opts.EmbedWorkers <= 0 {
		opts.EmbedWorkers = DefaultOptions().EmbedWorkers
	}
	if opts.SearchTimeout <= 0 {
		opts.SearchTimeout = DefaultOptions().SearchTimeout
	}
	return &Service{
		embed:    embed,
		store:    store,
		catalog:  catalog,
		splitter: splitter,
		breaker:  resilience.NewBreaker(resilience.DefaultBreakerOpts),
		opts:     opts,
		logger:   logger.With("component", "rag"),
	}
}

// ProcessDocument ingests one document for a product: load, chunk, embed,
// store. It returns the new chunk ids in chunk order. Errors propagate with
// their kind preserved; chunks inserted before a failure remain stored, so
// callers needing atomicity should follow up with DeleteProductChunks.
func (s *Service) ProcessDocument(ctx context.Context, path, productID, fileType string) ([]string, error) {
	if err := domain.ValidateProductID(productID); err != nil {
		return nil, err
	}
	// Reject unsupported types before touching the file.
	if err := domain.ValidateFileType(fileType); err != nil {
		return nil, err
	}
	if s.store == nil {
		return nil, fmt.Errorf("rag: ingest %s: %w: no vector index", path, domain.ErrStorageUnavailable)
	}

	s.logger.Info("ingest start", "path", path, "product_id", productID, "file_type", fileType)

	load := fn.TracedStage("rag.load", func(_ context.Context, p string) fn.Result[[]domain.Section] {
		return fn.FromPair(docload.Load(p, fileType))
	})
	split := fn.TracedStage("rag.chunk", fn.MapStage(s.splitter.SplitDocument))
	embedStore := fn.TracedStage("rag.embed_store", fn.BatchStage(s.opts.EmbedWorkers,
		func(ctx context.Context, piece chunk.Piece) fn.Result[string] {
			return s.embedAndInsert(ctx, productID, piece)
		}))

	pipeline := fn.Then(fn.Then(load, split), embedStore)
	ids, err := pipeline(ctx, path).Unwrap()
	if err != nil {
		return nil, err
	}

	if err := s.catalog.AppendVectorIDs(ctx, productID, ids); err != nil {
		// Chunks are durably stored; report the half-finished state with the
		// ids so the operator can reconcile or clean up.
		return ids, fmt.Errorf("rag: chunks stored but product %s not updated: %w", productID, err)
	}

	s.logger.Info("ingest done", "path", path, "product_id", productID, "chunks", len(ids))
	return ids, nil
}

func (s *Service) embedAndInsert(ctx context.Context, productID string, piece chunk.Piece) fn.Result[string] {
	vec, err := s.embed.Embed(ctx, piece.Content)
	if err != nil {
		return fn.Err[string](fmt.Errorf("rag: embed chunk %d: %w", piece.Index, err))
	}
	return fn.FromPair(s.store.Insert(ctx, semantic.ChunkRecord{
		ProductID:  productID,
		Content:    piece.Content,
		Metadata:   piece.Metadata,
		Embedding:  vec,
		ChunkIndex: piece.Index,
	}))
}

// GenerateContext returns ranked context snippets for an outreach message.
// It never returns an error: embedding or search failures degrade to a
// synthetic product-info snippet, and when even the catalog is unreachable
// the result is empty.
func (s *Service) GenerateContext(ctx context.Context, clientRole, productID, messagePurpose string) []Snippet {
	query := fmt.Sprintf("product information for %s role %s message", clientRole, messagePurpose)

	if s.store != nil {
		results := resilience.CallResult(s.breaker, ctx, func(ctx context.Context) fn.Result[[]semantic.SearchResult] {
			ctx, cancel := context.WithTimeout(ctx, s.opts.SearchTimeout)
			defer cancel()
			vec, err := s.embed.Embed(ctx, query)
			if err != nil {
				return fn.Err[[]semantic.SearchResult](err)
			}
			return fn.FromPair(s.store.Search(ctx, vec, productID, s.opts.TopK))
		})
		found, err := results.Unwrap()
		if err == nil {
			// An empty live result means the product has no chunks; that is
			// an answer, not a failure.
			return toSnippets(found)
		}
		s.logger.Warn("search failed, degrading to product info", "product_id", productID, "error", err)
	}

	return s.fallbackSnippets(ctx, productID)
}

// fallbackSnippets synthesizes a single snippet from live product fields.
func (s *Service) fallbackSnippets(ctx context.Context, productID string) []Snippet {
	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		s.logger.Warn("product lookup failed, returning no context", "product_id", productID, "error", err)
		return []Snippet{}
	}

	names := make([]string, len(product.Features))
	for i, f := range product.Features {
		names[i] = f.Name
	}
	content := fmt.Sprintf("Product: %s\n\nDescription: %s\n\nFeatures: %s",
		product.Name, product.Description, strings.Join(names, ", "))

	return []Snippet{{
		Content:        content,
		Metadata:       map[string]any{"source": "product_info", "chunk_index": 0},
		RelevanceScore: 1.0,
	}}
}

// DeleteProductChunks removes every stored chunk for a product and returns
// how many were removed. Idempotent.
func (s *Service) DeleteProductChunks(ctx context.Context, productID string) (int, error) {
	if err := domain.ValidateProductID(productID); err != nil {
		return 0, err
	}
	if s.store == nil {
		return 0, fmt.Errorf("rag: delete chunks for %s: %w: no vector index", productID, domain.ErrStorageUnavailable)
	}
	return s.store.DeleteByProduct(ctx, productID)
}

func toSnippets(results []semantic.SearchResult) []Snippet {
	snippets := make([]Snippet, len(results))
	for i, r := range results {
		meta := make(map[string]any, len(r.Metadata)+1)
		for k, v := range r.Metadata {
			meta[k] = v
		}
		meta["chunk_index"] = r.ChunkIndex
		snippets[i] = Snippet{
			Content:        r.Content,
			Metadata:       meta,
			RelevanceScore: r.Score,
		}
	}
	return snippets
}
