package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"golang.org/x/time/rate"

	aierrors "github.com/hrygo/cuerecall/internal/errors"
	"github.com/hrygo/cuerecall/internal/observability"
	"github.com/hrygo/cuerecall/plugin/ai"
	"github.com/hrygo/cuerecall/plugin/ai/timeout"
)

var (
	// ErrRemoteUnavailable marks a remote embedding attempt that did not produce a vector.
	ErrRemoteUnavailable = errors.New("remote embedding provider unavailable")

	// ErrDimensionMismatch marks a vector whose length differs from the configured dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	errRateLimited = fmt.Errorf("%w: rate limit exceeded", ErrRemoteUnavailable)
)

// Space names the model a vector came from. Vectors from different spaces
// share a length but are not comparable.
type Space string

const (
	SpaceLocal  Space = "local"
	SpaceRemote Space = "remote"
)

// VectorEncoder turns text into a fixed-length vector. Encode never fails:
// implementations must return a vector of length Dimensions() for any input.
// A plain VectorEncoder has a single space, reported as SpaceLocal.
type VectorEncoder interface {
	Encode(ctx context.Context, text string) []float32
	Dimensions() int
}

// SpaceEncoder is a VectorEncoder that can produce vectors in more than one space.
type SpaceEncoder interface {
	VectorEncoder
	// PreferredSpace is the space tried first.
	PreferredSpace() Space
	// EncodeIn returns the vector of text in space. ok is false when that
	// space could not produce one; callers must not substitute another space.
	EncodeIn(ctx context.Context, text string, space Space) (vec []float32, ok bool)
}

// LocalEncoder is a deterministic feature-hashed bag-of-words encoder.
type LocalEncoder struct {
	dim      int
	maxRunes int
}

// NewLocalEncoder creates a local encoder producing vectors of length dim.
func NewLocalEncoder(dim, maxRunes int) *LocalEncoder {
	if dim <= 0 {
		dim = ai.DefaultRetrievalConfig().Dimensions
	}
	return &LocalEncoder{dim: dim, maxRunes: maxRunes}
}

// Dimensions returns the vector length.
func (e *LocalEncoder) Dimensions() int { return e.dim }

// Encode preprocesses text and hashes it into a vector.
func (e *LocalEncoder) Encode(_ context.Context, text string) []float32 {
	return e.encodeNormalized(Preprocess(text, e.maxRunes))
}

// encodeNormalized adds count/total at three buckets per distinct token,
// then L2-normalizes. Empty input yields the zero vector.
func (e *LocalEncoder) encodeNormalized(normalized string) []float32 {
	tokens := tokenize(normalized)
	if len(tokens) == 0 {
		return make([]float32, e.dim)
	}

	counts := make(map[string]int, len(tokens))
	order := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if counts[tok] == 0 {
			order = append(order, tok)
		}
		counts[tok]++
	}

	acc := make([]float64, e.dim)
	d := uint32(e.dim)
	total := float64(len(tokens))
	for _, tok := range order {
		w := float64(counts[tok]) / total
		h := Fingerprint(tok)
		acc[h%d] += w
		acc[(h*17)%d] += w
		acc[(h*31)%d] += w
	}

	return normalize(acc)
}

func normalize(acc []float64) []float32 {
	var sum float64
	for _, v := range acc {
		sum += v * v
	}

	out := make([]float32, len(acc))
	if sum == 0 {
		return out
	}
	norm := math.Sqrt(sum)
	for i, v := range acc {
		out[i] = float32(v / norm)
	}
	return out
}

// RemoteEncoder calls an embedding provider. It never falls back on its own;
// TryEncode reports failure and the caller decides.
type RemoteEncoder struct {
	service ai.EmbeddingService
	dim     int
	timeout time.Duration
	limiter *rate.Limiter
}

// NewRemoteEncoder wraps service. A non-positive callTimeout uses
// timeout.EmbeddingTimeout. rps <= 0 disables rate limiting.
func NewRemoteEncoder(service ai.EmbeddingService, dim int, callTimeout time.Duration, rps float64) *RemoteEncoder {
	if callTimeout <= 0 {
		callTimeout = timeout.EmbeddingTimeout
	}
	r := &RemoteEncoder{service: service, dim: dim, timeout: callTimeout}
	if rps > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(rps), max(1, int(math.Ceil(rps))))
	}
	return r
}

// TryEncode embeds already preprocessed text. Every failure is an
// *errors.AIError wrapping ErrRemoteUnavailable or ErrDimensionMismatch.
func (r *RemoteEncoder) TryEncode(ctx context.Context, normalized string) ([]float32, error) {
	if r == nil || r.service == nil {
		return nil, aierrors.ProviderUnavailable("no embedding provider configured", ErrRemoteUnavailable)
	}
	if r.limiter != nil && !r.limiter.Allow() {
		return nil, aierrors.ProviderUnavailable("embedding provider throttled", errRateLimited)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	vec, err := r.service.Embed(ctx, normalized)
	if err != nil {
		return nil, remoteFailure(err)
	}
	if len(vec) != r.dim {
		return nil, dimensionMismatch(len(vec), r.dim)
	}

	acc := make([]float64, len(vec))
	for i, v := range vec {
		acc[i] = float64(v)
	}
	return normalize(acc), nil
}

// remoteFailure classifies a provider error. Timeouts and cancellations keep
// their own codes but still wrap ErrRemoteUnavailable.
func remoteFailure(err error) error {
	cause := fmt.Errorf("%w: %w", ErrRemoteUnavailable, err)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return aierrors.Wrap(cause, aierrors.ErrCodeTimeout, "embedding provider timed out")
	case errors.Is(err, context.Canceled):
		return aierrors.ContextCanceled(cause)
	default:
		return aierrors.ProviderUnavailable("embedding provider failed", cause)
	}
}

func dimensionMismatch(got, want int) error {
	return fmt.Errorf("%w: %w", ErrDimensionMismatch, aierrors.DimensionMismatch(got, want))
}

// Encoder produces remote vectors when a provider is configured and local
// vectors otherwise. EncodeIn never mixes the two; Encode falls back.
type Encoder struct {
	remote   *RemoteEncoder
	local    *LocalEncoder
	maxRunes int
	metrics  *observability.Metrics
}

var _ SpaceEncoder = (*Encoder)(nil)

// NewEncoder creates an encoder. remote may be nil.
func NewEncoder(remote *RemoteEncoder, local *LocalEncoder, metrics *observability.Metrics) *Encoder {
	if metrics == nil {
		metrics = observability.NewMetrics(0)
	}
	return &Encoder{remote: remote, local: local, maxRunes: local.maxRunes, metrics: metrics}
}

// Dimensions returns the vector length.
func (e *Encoder) Dimensions() int { return e.local.Dimensions() }

// PreferredSpace is SpaceRemote when a provider is configured.
func (e *Encoder) PreferredSpace() Space {
	if e.remote != nil {
		return SpaceRemote
	}
	return SpaceLocal
}

// EncodeIn implements SpaceEncoder. Empty input yields the zero vector in any space.
func (e *Encoder) EncodeIn(ctx context.Context, text string, space Space) ([]float32, bool) {
	normalized := Preprocess(text, e.maxRunes)
	if normalized == "" {
		return make([]float32, e.Dimensions()), true
	}

	switch space {
	case SpaceLocal:
		return e.local.encodeNormalized(normalized), true
	case SpaceRemote:
		if e.remote == nil {
			return nil, false
		}
		vec, err := e.remote.TryEncode(ctx, normalized)
		if err != nil {
			e.metrics.RecordFallback()
			logRemoteFailure(ctx, normalized, err)
			return nil, false
		}
		e.metrics.RecordRemoteEmbedding()
		return vec, true
	default:
		return nil, false
	}
}

// Encode returns a vector in the preferred space, or a local one when the
// provider fails. Callers comparing vectors should use EncodeIn.
func (e *Encoder) Encode(ctx context.Context, text string) []float32 {
	if vec, ok := e.EncodeIn(ctx, text, e.PreferredSpace()); ok {
		return vec
	}
	vec, _ := e.EncodeIn(ctx, text, SpaceLocal)
	return vec
}

// logRemoteFailure logs at debug level inside a request, which reports the
// fallback once; outside a request it warns.
func logRemoteFailure(ctx context.Context, normalized string, err error) {
	attrs := []slog.Attr{
		slog.String(observability.LogFieldErrorCode, string(aierrors.GetCodeFromError(err, aierrors.ErrCodeProviderUnavailable))),
		slog.String("text", truncate(normalized, timeout.MaxTruncateLength)),
		slog.String("error", err.Error()),
	}
	if reqCtx, ok := observability.FromContext(ctx); ok {
		reqCtx.Debug("remote embedding failed", attrs...)
		return
	}
	level := slog.LevelWarn
	if errors.Is(err, errRateLimited) {
		level = slog.LevelDebug
	}
	slog.LogAttrs(ctx, level, "remote embedding failed", attrs...)
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
