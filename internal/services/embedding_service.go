package services

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"
	log "github.com/sirupsen/logrus"
)

// NewFallbackEmbeddingService creates a new fallback service. All providers
// must agree on the embedding dimension or the upsert key would stop being
// comparable across provider switches.
func NewFallbackEmbeddingService(providers []EmbeddingProvider) (*FallbackEmbeddingService, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("at least one embedding provider is required")
	}
	if len(providers) > 1 {
		dim := providers[0].Dimension()
		for i := 1; i < len(providers); i++ {
			if providers[i].Dimension() != dim {
				return nil, fmt.Errorf("all embedding providers must have the same dimension (provider %s has %d, expected %d)",
					providers[i].Name(), providers[i].Dimension(), dim)
			}
		}
	}

	return &FallbackEmbeddingService{
		Providers:      providers,
		ActiveProvider: 0,
	}, nil
}

// Dimension returns the dimension of the currently active provider.
func (s *FallbackEmbeddingService) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.Providers) == 0 {
		return 0
	}
	return s.Providers[s.ActiveProvider].Dimension()
}

// GenerateEmbedding tries each provider once, starting from the active one,
// and promotes the first provider that succeeds.
func (s *FallbackEmbeddingService) GenerateEmbedding(ctx context.Context, text string) (pgvector.Vector, error) {
	var lastErr error
	for _, idx := range s.providerOrder() {
		s.mu.RLock()
		provider := s.Providers[idx]
		s.mu.RUnlock()

		vec, err := provider.GenerateEmbedding(ctx, text)
		if ctx.Err() != nil {
			return pgvector.Vector{}, fmt.Errorf("embedding generation interrupted: %w", ctx.Err())
		}
		if err == nil {
			s.promote(idx)
			return vec, nil
		}
		log.Warnf("Embedding provider %s failed: %v", provider.Name(), err)
		lastErr = err
	}
	return pgvector.Vector{}, fmt.Errorf("all embedding providers failed: %w", lastErr)
}

// GenerateEmbeddings is the batch variant of GenerateEmbedding.
func (s *FallbackEmbeddingService) GenerateEmbeddings(ctx context.Context, texts []string) ([]pgvector.Vector, error) {
	if len(texts) == 0 {
		return []pgvector.Vector{}, nil
	}

	var lastErr error
	for _, idx := range s.providerOrder() {
		s.mu.RLock()
		provider := s.Providers[idx]
		s.mu.RUnlock()

		vecs, err := provider.GenerateEmbeddings(ctx, texts)
		if ctx.Err() != nil {
			return nil, fmt.Errorf("batch embedding generation interrupted: %w", ctx.Err())
		}
		if err == nil {
			if len(vecs) != len(texts) {
				lastErr = fmt.Errorf("provider %s returned %d vectors for %d texts", provider.Name(), len(vecs), len(texts))
				log.Warn(lastErr)
				continue
			}
			s.promote(idx)
			return vecs, nil
		}
		log.Warnf("Embedding provider %s failed batch of %d: %v", provider.Name(), len(texts), err)
		lastErr = err
	}
	return nil, fmt.Errorf("all embedding providers failed: %w", lastErr)
}

// providerOrder returns provider indexes starting from the active one and
// wrapping around the list.
func (s *FallbackEmbeddingService) providerOrder() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order := make([]int, 0, len(s.Providers))
	for i := 0; i < len(s.Providers); i++ {
		order = append(order, (s.ActiveProvider+i)%len(s.Providers))
	}
	return order
}

func (s *FallbackEmbeddingService) promote(idx int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx != s.ActiveProvider {
		log.Infof("Switching active embedding provider to %s", s.Providers[idx].Name())
		s.ActiveProvider = idx
	}
}
