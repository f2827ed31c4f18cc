package ai

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/sashabaranov/go-openai"
)

// EmbeddingService is the vector embedding service interface.
type EmbeddingService interface {
	// Embed generates vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates vectors for multiple texts, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the vector dimension.
	Dimensions() int
}

// embeddingService embeds cue and query text through an OpenAI compatible endpoint.
type embeddingService struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
}

// NewEmbeddingService creates the remote provider used by the retrieval encoder.
func NewEmbeddingService(cfg *EmbeddingConfig) (EmbeddingService, error) {
	clientConfig, err := cfg.clientConfig()
	if err != nil {
		return nil, err
	}
	return &embeddingService{
		client:     openai.NewClientWithConfig(clientConfig),
		model:      openai.EmbeddingModel(cfg.Model),
		dimensions: cfg.Dimensions,
	}, nil
}

func (s *embeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (s *embeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, errors.New("no texts to embed")
	}

	resp, err := s.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      texts,
		Model:      s.model,
		Dimensions: s.dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("embed %d texts with %s: %w", len(texts), s.model, err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("provider returned %d vectors for %d texts", len(resp.Data), len(texts))
	}

	// Providers may answer out of order; Index refers to the input position.
	data := slices.SortedFunc(slices.Values(resp.Data), func(a, b openai.Embedding) int {
		return cmp.Compare(a.Index, b.Index)
	})
	vectors := make([][]float32, len(data))
	for i, d := range data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}

func (s *embeddingService) Dimensions() int {
	return s.dimensions
}
