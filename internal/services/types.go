package services

import (
	"context"
	"sync"

	"github.com/pgvector/pgvector-go"

	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/store"
)

// EmbeddingProvider is a single upstream embedding API.
type EmbeddingProvider interface {
	Name() string
	ModelName() string
	Status() store.ProviderStatus
	GenerateEmbedding(ctx context.Context, text string) (pgvector.Vector, error)
	GenerateEmbeddings(ctx context.Context, texts []string) ([]pgvector.Vector, error)
	Dimension() int
}

// FallbackEmbeddingService tries each configured provider in order until one
// succeeds. It makes a single pass through the provider list per call; retrying
// a transient failure is the pipeline retry policy's job, not the provider
// layer's, so the categorized error of the last provider is returned as-is.
type FallbackEmbeddingService struct {
	Providers      []EmbeddingProvider
	ActiveProvider int
	mu             sync.RWMutex
}

// ModelName returns the model name of the currently active provider.
func (s *FallbackEmbeddingService) ModelName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.Providers) == 0 || s.ActiveProvider < 0 || s.ActiveProvider >= len(s.Providers) {
		return ""
	}
	return s.Providers[s.ActiveProvider].ModelName()
}

// Name returns the name of the currently active provider.
func (s *FallbackEmbeddingService) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.Providers) == 0 || s.ActiveProvider < 0 || s.ActiveProvider >= len(s.Providers) {
		return ""
	}
	return s.Providers[s.ActiveProvider].Name()
}

// Status returns the status of the currently active provider.
func (s *FallbackEmbeddingService) Status() store.ProviderStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.Providers) == 0 || s.ActiveProvider < 0 || s.ActiveProvider >= len(s.Providers) {
		return store.ProviderStatusDisabled
	}
	return s.Providers[s.ActiveProvider].Status()
}

var _ store.EmbeddingService = (*FallbackEmbeddingService)(nil)
