package vectorindex

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/google/uuid"

	"pdf-rag-chat/internal/models"
)

// Memory is an exact in-memory index. At hundreds to low thousands of chunks
// per document a linear scan with partial top-k selection is all the search
// this needs.
type Memory struct {
	mu        sync.RWMutex
	dimension int
	records   []models.Record
	norms     []float64
}

// NewMemory returns an empty in-memory index.
func NewMemory() *Memory { return &Memory{} }

// Reset drops all records and declares the active vector dimension.
func (m *Memory) Reset(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid vector dimension %d", dimension)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dimension = dimension
	m.records = nil
	m.norms = nil
	return nil
}

// Insert appends chunks as records with fresh ids. Vectors are validated
// against the declared dimension before anything is stored, so a mismatch
// leaves prior records unaffected.
func (m *Memory) Insert(ctx context.Context, chunks []models.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dimension == 0 {
		return models.ErrNoIndexBuilt
	}
	for i, ch := range chunks {
		if len(ch.Vector) != m.dimension {
			return fmt.Errorf("%w: chunk %d has dimension %d, index expects %d",
				models.ErrDimensionMismatch, i, len(ch.Vector), m.dimension)
		}
	}
	for _, ch := range chunks {
		m.records = append(m.records, models.Record{
			ID:     uuid.NewString(),
			Text:   ch.Text,
			Vector: ch.Vector,
		})
		m.norms = append(m.norms, norm(ch.Vector))
	}
	return nil
}

// Search scans the corpus and selects the topK records by cosine similarity,
// ties broken by insertion order.
func (m *Memory) Search(ctx context.Context, vector []float32, topK int) ([]models.SearchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.dimension == 0 {
		return nil, models.ErrNoIndexBuilt
	}
	if len(vector) != m.dimension {
		return nil, fmt.Errorf("%w: query has dimension %d, index expects %d",
			models.ErrDimensionMismatch, len(vector), m.dimension)
	}
	if topK <= 0 || len(m.records) == 0 {
		return nil, nil
	}

	qnorm := norm(vector)
	scores := make([]float64, len(m.records))
	for i, rec := range m.records {
		scores[i] = cosine(rec.Vector, vector, m.norms[i], qnorm)
	}

	if topK > len(m.records) {
		topK = len(m.records)
	}
	used := make([]bool, len(scores))
	results := make([]models.SearchResult, 0, topK)
	for len(results) < topK {
		best := -1
		for i, s := range scores {
			if used[i] {
				continue
			}
			// Strict comparison keeps the earliest-inserted record on ties.
			if best == -1 || s > scores[best] {
				best = i
			}
		}
		used[best] = true
		results = append(results, models.SearchResult{Record: m.records[best], Score: scores[best]})
	}
	return results, nil
}

func cosine(a, b []float32, normA, normB float64) float64 {
	if normA == 0 || normB == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (normA * normB)
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
