package reinforce

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/cuerecall/plugin/ai/retrieval"
)

func TestPolicy(t *testing.T) {
	p := DefaultPolicy()

	assert.Equal(t, 0.3, p.InitialConfidence(retrieval.EvidenceLow))
	assert.Equal(t, 0.5, p.InitialConfidence(retrieval.EvidenceMedium))
	assert.Equal(t, 0.7, p.InitialConfidence(retrieval.EvidenceHigh))
	assert.Equal(t, 0.3, p.InitialConfidence("bogus"))

	assert.InDelta(t, 0.55, p.Reinforce(0.5, retrieval.EvidenceMedium), 1e-9)
	assert.InDelta(t, 0.6, p.Reinforce(0.5, retrieval.EvidenceHigh), 1e-9)
	assert.InDelta(t, 0.525, p.Reinforce(0.5, retrieval.EvidenceLow), 1e-9)
	assert.Equal(t, 1.0, p.Reinforce(1, retrieval.EvidenceHigh))
	assert.Equal(t, 1.0, p.Reinforce(3, retrieval.EvidenceHigh))

	c := 0.0
	for i := 0; i < 100; i++ {
		next := p.Reinforce(c, retrieval.EvidenceHigh)
		require.GreaterOrEqual(t, next, c)
		require.LessOrEqual(t, next, 1.0)
		c = next
	}
}

func TestEventValidate(t *testing.T) {
	assert.NoError(t, Event{Key: "k", Type: retrieval.CueTypeSkill}.Validate())
	assert.Error(t, Event{Type: retrieval.CueTypeSkill}.Validate())
	assert.Error(t, Event{Key: "k", Type: "opinion"}.Validate())
	assert.Error(t, Event{Key: "k", Type: retrieval.CueTypeSkill, EvidenceQuality: "great"}.Validate())
}

func TestApply_NewThenExisting(t *testing.T) {
	repo := newMockRepository()
	w := NewWorker(repo)
	ctx := context.Background()
	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	created, err := w.Apply(ctx, Event{
		OwnerID:         1,
		Key:             "prefers_react",
		Type:            retrieval.CueTypePreference,
		Category:        "technical",
		Payload:         map[string]string{"framework": "react"},
		EvidenceQuality: retrieval.EvidenceHigh,
		ObservedAt:      first,
	})
	require.NoError(t, err)
	assert.Equal(t, 0.7, created.Confidence)

	updated, err := w.Apply(ctx, Event{
		OwnerID:         1,
		Key:             "prefers_react",
		Type:            retrieval.CueTypePreference,
		Payload:         map[string]string{"version": "19"},
		EvidenceQuality: retrieval.EvidenceMedium,
		ObservedAt:      first.Add(time.Hour),
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.73, updated.Confidence, 1e-9)
	assert.Equal(t, "technical", updated.Category)
	assert.Equal(t, map[string]string{"framework": "react", "version": "19"}, updated.Payload)
	assert.Equal(t, first, updated.FirstObserved)
	assert.Equal(t, first.Add(time.Hour), updated.LastReinforced)
	assert.Equal(t, int64(2), w.Metrics().Reinforced)
}

func TestApply_OutOfOrderKeepsLatestTimestamp(t *testing.T) {
	repo := newMockRepository()
	w := NewWorker(repo)
	ctx := context.Background()
	later := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	_, err := w.Apply(ctx, Event{OwnerID: 1, Key: "k", Type: retrieval.CueTypeBehavior, ObservedAt: later})
	require.NoError(t, err)
	cue, err := w.Apply(ctx, Event{OwnerID: 1, Key: "k", Type: retrieval.CueTypeBehavior, ObservedAt: later.AddDate(0, 0, -3)})
	require.NoError(t, err)

	assert.Equal(t, later, cue.LastReinforced)
	assert.InDelta(t, 0.3+0.05*0.7, cue.Confidence, 1e-9)
}

func TestApply_RepositoryError(t *testing.T) {
	repo := newMockRepository()
	repo.findErr = errors.New("db down")
	w := NewWorker(repo)

	_, err := w.Apply(context.Background(), Event{OwnerID: 1, Key: "k", Type: retrieval.CueTypeSkill})

	assert.Error(t, err)
	assert.Zero(t, repo.upserts)
}

func TestSubmit_DropsWhenFull(t *testing.T) {
	w := NewWorker(newMockRepository(), WithQueueSize(2))
	e := Event{OwnerID: 1, Key: "k", Type: retrieval.CueTypeSkill}

	assert.True(t, w.Submit(e))
	assert.True(t, w.Submit(e))
	assert.False(t, w.Submit(e))
	assert.Equal(t, 2, w.Pending())
	assert.Equal(t, int64(1), w.Metrics().DroppedEvents)

	assert.False(t, w.Submit(Event{Key: "", Type: retrieval.CueTypeSkill}))
	assert.Equal(t, int64(2), w.Metrics().DroppedEvents)
}

func TestRun_ProcessesAndDrainsOnClose(t *testing.T) {
	repo := newMockRepository()
	w := NewWorker(repo, WithQueueSize(16))

	for _, key := range []string{"a", "b", "c"} {
		require.True(t, w.Submit(Event{OwnerID: 1, Key: key, Type: retrieval.CueTypePattern, EvidenceQuality: retrieval.EvidenceMedium}))
	}

	done := make(chan error, 1)
	go func() { done <- w.Run(context.Background()) }()

	require.Eventually(t, func() bool { return repo.count() == 3 }, time.Second, 5*time.Millisecond)

	require.True(t, w.Submit(Event{OwnerID: 1, Key: "a", Type: retrieval.CueTypePattern, EvidenceQuality: retrieval.EvidenceHigh}))
	w.Close()
	w.Close()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}

	assert.Zero(t, w.Pending())
	assert.InDelta(t, 0.5+0.2*0.5, repo.get(1, "a", retrieval.CueTypePattern).Confidence, 1e-9)
	assert.False(t, w.Submit(Event{OwnerID: 1, Key: "d", Type: retrieval.CueTypePattern}))
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	w := NewWorker(newMockRepository())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
