package reinforce

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/hrygo/cuerecall/internal/observability"
	"github.com/hrygo/cuerecall/plugin/ai/retrieval"
	"github.com/hrygo/cuerecall/plugin/ai/timeout"
)

// DefaultQueueSize is the default event buffer.
const DefaultQueueSize = 256

// ErrClosed is returned by Run after Close.
var ErrClosed = errors.New("reinforcement worker closed")

// Event is one piece of evidence about a user.
type Event struct {
	OwnerID         int32
	Key             string
	Type            retrieval.CueType
	Category        string
	Payload         map[string]string
	EvidenceQuality retrieval.EvidenceQuality
	ObservedAt      time.Time
}

// Validate checks the event before it is queued.
func (e Event) Validate() error {
	if strings.TrimSpace(e.Key) == "" {
		return errors.New("event key is required")
	}
	if !e.Type.Valid() {
		return fmt.Errorf("invalid cue type %q", e.Type)
	}
	if e.EvidenceQuality != "" && !e.EvidenceQuality.Valid() {
		return fmt.Errorf("invalid evidence quality %q", e.EvidenceQuality)
	}
	return nil
}

// CueRepository reads and writes cues. FindCue returns nil without error when absent.
type CueRepository interface {
	FindCue(ctx context.Context, ownerID int32, key string, cueType retrieval.CueType) (*retrieval.Cue, error)
	UpsertCue(ctx context.Context, cue *retrieval.Cue) (*retrieval.Cue, error)
}

// Option configures a Worker.
type Option func(*Worker)

// WithPolicy sets the confidence policy.
func WithPolicy(p Policy) Option {
	return func(w *Worker) { w.policy = p }
}

// WithQueueSize sets the event buffer size.
func WithQueueSize(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.queueSize = n
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *observability.Metrics) Option {
	return func(w *Worker) { w.metrics = m }
}

// Worker consumes reinforcement events from a bounded queue.
type Worker struct {
	repo      CueRepository
	policy    Policy
	queueSize int
	metrics   *observability.Metrics

	queue     chan Event
	closing   chan struct{}
	closeOnce sync.Once
}

// NewWorker creates a worker. Call Run to start consuming.
func NewWorker(repo CueRepository, opts ...Option) *Worker {
	w := &Worker{
		repo:      repo,
		policy:    DefaultPolicy(),
		queueSize: DefaultQueueSize,
		closing:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.metrics == nil {
		w.metrics = observability.NewMetrics(0)
	}
	w.queue = make(chan Event, w.queueSize)
	return w
}

// Submit enqueues e without blocking. It returns false when e is invalid,
// the queue is full or the worker is closed.
func (w *Worker) Submit(e Event) bool {
	if err := e.Validate(); err != nil {
		slog.Warn("dropping invalid reinforcement event", "key", e.Key, "error", err)
		w.metrics.RecordDroppedEvent()
		return false
	}

	select {
	case <-w.closing:
		w.metrics.RecordDroppedEvent()
		return false
	default:
	}

	select {
	case w.queue <- e:
		return true
	default:
		slog.Warn("reinforcement queue full, dropping event",
			"owner_id", e.OwnerID,
			"key", e.Key,
			"queue_size", w.queueSize,
		)
		w.metrics.RecordDroppedEvent()
		return false
	}
}

// Run consumes events until ctx is done or Close is called. After Close,
// queued events are drained for up to timeout.ReinforceDrainTimeout.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			slog.Info("reinforcement worker stopped")
			return ctx.Err()
		case <-w.closing:
			w.drain(ctx)
			slog.Info("reinforcement worker closed")
			return ErrClosed
		case e := <-w.queue:
			w.handle(ctx, e)
		}
	}
}

func (w *Worker) drain(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, timeout.ReinforceDrainTimeout)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			if n := len(w.queue); n > 0 {
				slog.Warn("reinforcement drain timed out", "remaining", n)
			}
			return
		case e := <-w.queue:
			w.handle(ctx, e)
		default:
			return
		}
	}
}

func (w *Worker) handle(ctx context.Context, e Event) {
	if _, err := w.Apply(ctx, e); err != nil {
		slog.Error("failed to apply reinforcement", "owner_id", e.OwnerID, "key", e.Key, "error", err)
	}
}

// Close stops Run. It is safe to call more than once.
func (w *Worker) Close() {
	w.closeOnce.Do(func() { close(w.closing) })
}

// Pending returns the number of queued events.
func (w *Worker) Pending() int {
	return len(w.queue)
}

// Apply records e synchronously and returns the stored cue.
func (w *Worker) Apply(ctx context.Context, e Event) (*retrieval.Cue, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout.StoreTimeout)
	defer cancel()

	quality := e.EvidenceQuality
	if quality == "" {
		quality = retrieval.EvidenceLow
	}
	observed := e.ObservedAt
	if observed.IsZero() {
		observed = time.Now()
	}

	existing, err := w.repo.FindCue(ctx, e.OwnerID, e.Key, e.Type)
	if err != nil {
		return nil, fmt.Errorf("find cue: %w", err)
	}

	cue := &retrieval.Cue{
		OwnerID:         e.OwnerID,
		Key:             e.Key,
		Type:            e.Type,
		Category:        e.Category,
		Payload:         e.Payload,
		EvidenceQuality: quality,
		LastReinforced:  observed,
	}

	if existing == nil {
		cue.Confidence = w.policy.InitialConfidence(quality)
	} else {
		cue.Confidence = w.policy.Reinforce(existing.Confidence, quality)
		if cue.Category == "" {
			cue.Category = existing.Category
		}
		cue.Payload = mergePayload(existing.Payload, e.Payload)
		if observed.Before(existing.LastReinforced) {
			cue.LastReinforced = existing.LastReinforced
		}
	}

	saved, err := w.repo.UpsertCue(ctx, cue)
	if err != nil {
		return nil, fmt.Errorf("upsert cue: %w", err)
	}

	w.metrics.RecordReinforcement()
	slog.Debug("cue reinforced",
		"owner_id", e.OwnerID,
		"key", e.Key,
		"confidence", saved.Confidence,
		"new", existing == nil,
	)
	return saved, nil
}

// Metrics returns a snapshot of the worker's counters.
func (w *Worker) Metrics() *observability.MetricsSnapshot {
	return w.metrics.Snapshot()
}

func mergePayload(existing, update map[string]string) map[string]string {
	if len(existing) == 0 && len(update) == 0 {
		return nil
	}
	merged := make(map[string]string, len(existing)+len(update))
	maps.Copy(merged, existing)
	maps.Copy(merged, update)
	return merged
}
