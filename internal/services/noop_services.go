package services

import (
	"context"

	"github.com/pgvector/pgvector-go"

	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/store"
)

// NoopEmbeddingProvider returns zero vectors. Used when no embedding API key
// is configured, so local smoke runs still exercise the pipeline shape.
type NoopEmbeddingProvider struct {
	Dim int
}

func (p *NoopEmbeddingProvider) Name() string                 { return "noop" }
func (p *NoopEmbeddingProvider) ModelName() string            { return "noop" }
func (p *NoopEmbeddingProvider) Status() store.ProviderStatus { return store.ProviderStatusActive }
func (p *NoopEmbeddingProvider) Dimension() int               { return p.Dim }

func (p *NoopEmbeddingProvider) GenerateEmbedding(ctx context.Context, text string) (pgvector.Vector, error) {
	return pgvector.NewVector(make([]float32, p.Dim)), nil
}

func (p *NoopEmbeddingProvider) GenerateEmbeddings(ctx context.Context, texts []string) ([]pgvector.Vector, error) {
	results := make([]pgvector.Vector, len(texts))
	for i := range results {
		results[i] = pgvector.NewVector(make([]float32, p.Dim))
	}
	return results, nil
}

var _ EmbeddingProvider = (*NoopEmbeddingProvider)(nil)

// NoopCompletionService returns an empty JSON object for every prompt.
type NoopCompletionService struct{}

func (s *NoopCompletionService) Name() string                 { return "noop" }
func (s *NoopCompletionService) ModelName() string            { return "noop" }
func (s *NoopCompletionService) Status() store.ProviderStatus { return store.ProviderStatusActive }

func (s *NoopCompletionService) GenerateChatCompletion(ctx context.Context, messages []ChatMessage) (string, error) {
	return "{}", nil
}

var _ CompletionService = (*NoopCompletionService)(nil)
