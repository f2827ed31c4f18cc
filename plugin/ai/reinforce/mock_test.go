package reinforce

import (
	"context"
	"fmt"
	"sync"

	"github.com/hrygo/cuerecall/plugin/ai/retrieval"
)

// mockRepository is an in-memory CueRepository.
type mockRepository struct {
	mu      sync.Mutex
	cues    map[string]*retrieval.Cue
	findErr error
	upserts int
}

var _ CueRepository = (*mockRepository)(nil)

func newMockRepository() *mockRepository {
	return &mockRepository{cues: make(map[string]*retrieval.Cue)}
}

func repoKey(ownerID int32, key string, t retrieval.CueType) string {
	return fmt.Sprintf("%d/%s/%s", ownerID, key, t)
}

func (m *mockRepository) FindCue(_ context.Context, ownerID int32, key string, t retrieval.CueType) (*retrieval.Cue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	cue, ok := m.cues[repoKey(ownerID, key, t)]
	if !ok {
		return nil, nil
	}
	cp := *cue
	return &cp, nil
}

func (m *mockRepository) UpsertCue(_ context.Context, cue *retrieval.Cue) (*retrieval.Cue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++
	k := repoKey(cue.OwnerID, cue.Key, cue.Type)
	cp := *cue
	if prev, ok := m.cues[k]; ok {
		cp.ID = prev.ID
		cp.FirstObserved = prev.FirstObserved
	} else {
		cp.ID = k
		cp.FirstObserved = cue.LastReinforced
	}
	m.cues[k] = &cp
	out := cp
	return &out, nil
}

func (m *mockRepository) get(ownerID int32, key string, t retrieval.CueType) *retrieval.Cue {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cues[repoKey(ownerID, key, t)]
}

func (m *mockRepository) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.cues)
}
