package retrieval

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/hrygo/cuerecall/plugin/ai"
)

// MockFactStore is an in-memory FactStore for testing.
type MockFactStore struct {
	mu    sync.Mutex
	cues  map[int32][]*Cue
	err   error
	calls atomic.Int32
}

var _ FactStore = (*MockFactStore)(nil)

// NewMockFactStore creates an empty mock store.
func NewMockFactStore() *MockFactStore {
	return &MockFactStore{cues: make(map[int32][]*Cue)}
}

// Add stores cues for their owners.
func (m *MockFactStore) Add(cues ...*Cue) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, cue := range cues {
		m.cues[cue.OwnerID] = append(m.cues[cue.OwnerID], cue)
	}
}

// SetError makes every ListCues call fail with err.
func (m *MockFactStore) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns the number of ListCues calls.
func (m *MockFactStore) Calls() int { return int(m.calls.Load()) }

// ListCues implements FactStore.
func (m *MockFactStore) ListCues(_ context.Context, ownerID int32, limit int) ([]*Cue, error) {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	cues := slices.Clone(m.cues[ownerID])
	if limit > 0 && len(cues) > limit {
		cues = cues[:limit]
	}
	return cues, nil
}

// MockEmbeddingService is a scripted embedding provider for testing.
type MockEmbeddingService struct {
	Dim       int
	Err       error
	EmbedFunc func(text string) []float32
	calls     atomic.Int32
}

var _ ai.EmbeddingService = (*MockEmbeddingService)(nil)

// Calls returns the number of Embed calls.
func (m *MockEmbeddingService) Calls() int { return int(m.calls.Load()) }

// Embed implements ai.EmbeddingService.
func (m *MockEmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	m.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if m.EmbedFunc != nil {
		return m.EmbedFunc(text), nil
	}
	vec := make([]float32, m.Dim)
	if m.Dim > 0 {
		vec[Fingerprint(text)%uint32(m.Dim)] = 1
	}
	return vec, nil
}

// EmbedBatch implements ai.EmbeddingService.
func (m *MockEmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vec, err := m.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out = append(out, vec)
	}
	return out, nil
}

// Dimensions implements ai.EmbeddingService.
func (m *MockEmbeddingService) Dimensions() int { return m.Dim }
