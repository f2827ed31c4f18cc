package retrieval

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	aierrors "github.com/hrygo/cuerecall/internal/errors"
	"github.com/hrygo/cuerecall/internal/observability"
	"github.com/hrygo/cuerecall/plugin/ai"
	"github.com/hrygo/cuerecall/plugin/ai/timeout"
)

// FactStore supplies a user's cues. An error or an empty list are both
// valid answers; the core degrades to an empty context.
type FactStore interface {
	ListCues(ctx context.Context, ownerID int32, limit int) ([]*Cue, error)
}

// Option configures a Core.
type Option func(*Core)

// WithRankerOptions passes options to the ranker.
func WithRankerOptions(opts ...RankerOption) Option {
	return func(c *Core) { c.rankerOpts = append(c.rankerOpts, opts...) }
}

// WithEncoder replaces the remote-then-local encoder.
func WithEncoder(encoder VectorEncoder) Option {
	return func(c *Core) { c.encoder = encoder }
}

// WithMetrics sets the metrics collector.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(c *Core) { c.metrics = metrics }
}

// WithLogger sets the logger used for per-request logs.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Core) { c.logger = logger }
}

// Core orchestrates candidate fetch, encoding, ranking and assembly.
// It is safe for concurrent use.
type Core struct {
	store   FactStore
	cfg     ai.RetrievalConfig
	encoder VectorEncoder
	cache   *EmbeddingCache
	ranker  *Ranker
	metrics *observability.Metrics
	logger  *slog.Logger

	rankerOpts []RankerOption
}

// NewCore creates a retrieval core. embedder may be nil, in which case
// only the local encoder is used. Zero config fields take defaults.
func NewCore(store FactStore, embedder ai.EmbeddingService, cfg ai.RetrievalConfig, opts ...Option) *Core {
	cfg = withDefaults(cfg)

	c := &Core{store: store, cfg: cfg}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = observability.NewMetrics(0)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	if c.encoder == nil {
		var remote *RemoteEncoder
		if embedder != nil {
			if embedder.Dimensions() != cfg.Dimensions {
				slog.Warn("embedding provider dimension differs from retrieval dimension",
					"provider", embedder.Dimensions(),
					"retrieval", cfg.Dimensions,
				)
			}
			remote = NewRemoteEncoder(embedder, cfg.Dimensions, cfg.EmbeddingTimeout, cfg.RemoteRPS)
		}
		c.encoder = NewEncoder(remote, NewLocalEncoder(cfg.Dimensions, cfg.MaxInputRunes), c.metrics)
	}

	c.cache = NewEmbeddingCache(c.encoder, cfg.CacheLimit, cfg.MaxInputRunes, c.metrics)
	c.ranker = NewRanker(c.rankerOpts...)
	return c
}

func withDefaults(cfg ai.RetrievalConfig) ai.RetrievalConfig {
	def := ai.DefaultRetrievalConfig()
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = def.Dimensions
	}
	if cfg.CacheLimit <= 0 {
		cfg.CacheLimit = def.CacheLimit
	}
	if cfg.CandidatePool <= 0 {
		cfg.CandidatePool = def.CandidatePool
	}
	if cfg.MaxInputRunes <= 0 {
		cfg.MaxInputRunes = def.MaxInputRunes
	}
	if cfg.EmbeddingTimeout <= 0 {
		cfg.EmbeddingTimeout = def.EmbeddingTimeout
	}
	return cfg
}

// BuildContext returns the personalization context for query.
// maxCues <= 0 is the only failure; every other problem degrades to
// a smaller or empty context.
func (c *Core) BuildContext(ctx context.Context, ownerID int32, query string, maxCues int) (*RAGContext, error) {
	if maxCues <= 0 {
		c.metrics.RecordBuildFailure()
		return nil, aierrors.InvalidArgument("max_cues must be positive").WithContext("max_cues", maxCues)
	}

	reqCtx := observability.NewRequestContext(c.logger, "retrieval", ownerID)
	ctx = observability.WithRequestContext(ctx, reqCtx)
	c.metrics.RecordBuild()
	defer func() { c.metrics.RecordDuration(reqCtx.Duration()) }()

	cues := c.listCues(ctx, reqCtx, ownerID)
	if len(cues) == 0 {
		reqCtx.Debug("no cues for owner")
		return EmptyContext(), nil
	}

	space := c.cache.PreferredSpace()
	queryVec, candidates, ok := c.encodeRequest(ctx, query, cues, space)
	if !ok {
		// Vectors from different spaces are not comparable, so the whole
		// request moves to the local space.
		reqCtx.Warn("remote embedding unavailable, ranking request with local encoder",
			slog.String(observability.LogFieldErrorCode, string(aierrors.ErrCodeProviderUnavailable)),
		)
		space = SpaceLocal
		queryVec, candidates, _ = c.encodeRequest(ctx, query, cues, space)
	}
	if IsZero(queryVec) {
		reqCtx.Debug("query carries no signal")
	}

	rag := Assemble(c.ranker.Rank(query, queryVec, candidates, maxCues))

	reqCtx.Info("built personalization context",
		slog.Int(observability.LogFieldCueCount, len(rag.Cues)),
		slog.Int("candidates", len(candidates)),
		slog.String("space", string(space)),
		slog.Float64("confidence", rag.Confidence),
		slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()),
	)
	return rag, nil
}

// encodeRequest encodes the query and every cue in space. It stops at the
// first text space cannot encode and reports false.
func (c *Core) encodeRequest(ctx context.Context, query string, cues []*Cue, space Space) ([]float32, []Candidate, bool) {
	queryVec, ok := c.cache.GetOrComputeIn(ctx, query, space)
	if !ok {
		return nil, nil, false
	}

	candidates := make([]Candidate, 0, len(cues))
	for _, cue := range cues {
		if cue == nil {
			continue
		}
		vec, ok := c.cache.GetOrComputeIn(ctx, CueText(cue), space)
		if !ok {
			return nil, nil, false
		}
		candidates = append(candidates, Candidate{Cue: cue, Vector: vec})
	}
	return queryVec, candidates, true
}

func (c *Core) listCues(ctx context.Context, reqCtx *observability.RequestContext, ownerID int32) []*Cue {
	if c.store == nil {
		return nil
	}

	storeCtx, cancel := context.WithTimeout(ctx, timeout.StoreTimeout)
	defer cancel()

	start := time.Now()
	cues, err := c.store.ListCues(storeCtx, ownerID, c.cfg.CandidatePool)
	if err != nil {
		storeErr := aierrors.StoreUnavailable("list cues", err)
		reqCtx.Warn("fact store unavailable, continuing without cues",
			slog.String(observability.LogFieldErrorCode, string(storeErr.GetCode())),
			slog.String("error", storeErr.Error()),
			slog.Int64(observability.LogFieldDuration, time.Since(start).Milliseconds()),
		)
		return nil
	}
	return cues
}

// Metrics returns a snapshot of the core's counters.
func (c *Core) Metrics() *observability.MetricsSnapshot {
	return c.metrics.Snapshot()
}

// CacheStats returns embedding cache counters.
func (c *Core) CacheStats() CacheStats {
	return c.cache.Stats()
}

// Close releases cached vectors.
func (c *Core) Close() error {
	c.cache.Clear()
	return nil
}

// CueText derives the text a cue is embedded from:
// key, type, category and the payload as sorted k=v pairs.
func CueText(cue *Cue) string {
	parts := make([]string, 0, 3+len(cue.Payload))
	for _, p := range []string{cue.Key, string(cue.Type), cue.Category} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if summary := PayloadSummary(cue.Payload); summary != "" {
		parts = append(parts, summary)
	}
	return strings.Join(parts, " ")
}

// PayloadSummary renders payload as space-separated k=v pairs in key order.
func PayloadSummary(payload map[string]string) string {
	if len(payload) == 0 {
		return ""
	}
	keys := slices.Sorted(maps.Keys(payload))
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+payload[k])
	}
	return strings.Join(pairs, " ")
}
