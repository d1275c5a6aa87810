package semantic

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemStore is an in-process store with exact cosine similarity search.
// It serves embedded deployments without a Qdrant instance and doubles as
// the reference implementation for the Store contract in tests.
type MemStore struct {
	mu   sync.RWMutex
	dim  int
	recs []memRecord
}

type memRecord struct {
	id  string
	rec ChunkRecord
}

// NewMemStore creates an empty in-memory store. The first insert fixes the
// embedding dimensionality.
func NewMemStore() *MemStore {
	return &MemStore{}
}

// Insert appends one chunk and returns its id. Dimensionality must match
// all previously stored chunks or scores would be meaningless.
func (m *MemStore) Insert(_ context.Context, rec ChunkRecord) (string, error) {
	if rec.Content == "" {
		return "", fmt.Errorf("semantic: insert: empty chunk content")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dim == 0 {
		m.dim = len(rec.Embedding)
	} else if len(rec.Embedding) != m.dim {
		return "", fmt.Errorf("semantic: insert: embedding dimension %d, store holds %d", len(rec.Embedding), m.dim)
	}
	id := uuid.NewString()
	m.recs = append(m.recs, memRecord{id: id, rec: rec})
	return id, nil
}

// DeleteByProduct removes all chunks for a product; repeat calls return 0.
func (m *MemStore) DeleteByProduct(_ context.Context, productID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.recs[:0]
	removed := 0
	for _, r := range m.recs {
		if r.rec.ProductID == productID {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	m.recs = kept
	return removed, nil
}

// Search scans all of a product's chunks and returns the topK by exact
// cosine similarity, highest first.
func (m *MemStore) Search(_ context.Context, embedding []float32, productID string, topK int) ([]SearchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var results []SearchResult
	for _, r := range m.recs {
		if r.rec.ProductID != productID {
			continue
		}
		results = append(results, SearchResult{
			ID:         r.id,
			Score:      Cosine(embedding, r.rec.Embedding),
			Content:    r.rec.Content,
			ProductID:  r.rec.ProductID,
			ChunkIndex: r.rec.ChunkIndex,
			Metadata:   r.rec.Metadata,
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if topK >= 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Len reports the number of stored chunks across all products.
func (m *MemStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.recs)
}

// Cosine returns dot(a,b) / (|a|*|b|), or 0 when either vector has zero
// magnitude or the lengths differ.
func Cosine(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
