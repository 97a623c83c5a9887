package services

import (
	"context"
	"errors"
	"testing"

	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/store"
)

type testProvider struct {
	name  string
	dim   int
	err   error
	calls int
}

func (p *testProvider) Name() string                 { return p.name }
func (p *testProvider) ModelName() string            { return p.name + "-model" }
func (p *testProvider) Status() store.ProviderStatus { return store.ProviderStatusActive }
func (p *testProvider) Dimension() int               { return p.dim }

func (p *testProvider) GenerateEmbedding(ctx context.Context, text string) (pgvector.Vector, error) {
	p.calls++
	if p.err != nil {
		return pgvector.Vector{}, p.err
	}
	return pgvector.NewVector(make([]float32, p.dim)), nil
}

func (p *testProvider) GenerateEmbeddings(ctx context.Context, texts []string) ([]pgvector.Vector, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	out := make([]pgvector.Vector, len(texts))
	for i := range texts {
		out[i] = pgvector.NewVector(make([]float32, p.dim))
	}
	return out, nil
}

func TestNewFallbackEmbeddingServiceRejectsEmpty(t *testing.T) {
	_, err := NewFallbackEmbeddingService(nil)
	assert.Error(t, err)
}

func TestNewFallbackEmbeddingServiceRejectsMixedDimensions(t *testing.T) {
	_, err := NewFallbackEmbeddingService([]EmbeddingProvider{
		&testProvider{name: "a", dim: 1536},
		&testProvider{name: "b", dim: 768},
	})
	assert.Error(t, err)
}

func TestFallbackUsesFirstHealthyProvider(t *testing.T) {
	a := &testProvider{name: "a", dim: 8}
	b := &testProvider{name: "b", dim: 8}
	svc, err := NewFallbackEmbeddingService([]EmbeddingProvider{a, b})
	require.NoError(t, err)

	_, err = svc.GenerateEmbedding(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, 1, a.calls)
	assert.Zero(t, b.calls)
	assert.Equal(t, "a", svc.Name())
	assert.Equal(t, 8, svc.Dimension())
}

func TestFallbackPromotesOnFailure(t *testing.T) {
	a := &testProvider{name: "a", dim: 8, err: errors.New("quota exceeded")}
	b := &testProvider{name: "b", dim: 8}
	svc, err := NewFallbackEmbeddingService([]EmbeddingProvider{a, b})
	require.NoError(t, err)

	vecs, err := svc.GenerateEmbeddings(context.Background(), []string{"one", "two"})
	require.NoError(t, err)
	assert.Len(t, vecs, 2)
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)

	// The succeeding provider is now the active one and goes first.
	assert.Equal(t, "b", svc.Name())
	_, err = svc.GenerateEmbedding(context.Background(), "three")
	require.NoError(t, err)
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 2, b.calls)
}

func TestFallbackReturnsLastErrorWhenAllFail(t *testing.T) {
	a := &testProvider{name: "a", dim: 8, err: errors.New("first down")}
	b := &testProvider{name: "b", dim: 8, err: errors.New("second down")}
	svc, err := NewFallbackEmbeddingService([]EmbeddingProvider{a, b})
	require.NoError(t, err)

	_, err = svc.GenerateEmbedding(context.Background(), "hello")
	require.Error(t, err)
	assert.ErrorContains(t, err, "all embedding providers failed")
	assert.ErrorContains(t, err, "second down")
}

func TestFallbackEmptyBatch(t *testing.T) {
	a := &testProvider{name: "a", dim: 8}
	svc, err := NewFallbackEmbeddingService([]EmbeddingProvider{a})
	require.NoError(t, err)

	vecs, err := svc.GenerateEmbeddings(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vecs)
	assert.Zero(t, a.calls)
}
