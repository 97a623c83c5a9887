package services

import (
	"context"
	"fmt"
	"os"

	"github.com/google/generative-ai-go/genai"
	"github.com/pgvector/pgvector-go"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/option"

	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/models"
	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/store"
)

// GeminiProvider implements EmbeddingService and CompletionService using the
// Google Gemini API.
type GeminiProvider struct {
	client          *genai.Client
	embeddingModel  string
	completionModel string
	dim             int
}

// NewGeminiProvider creates a new Gemini provider. completionModel may be
// empty, in which case chat completion is disabled.
func NewGeminiProvider(ctx context.Context, apiKey, embeddingModel, completionModel string) (*GeminiProvider, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		log.Warn("Gemini API key not provided. Gemini provider will be disabled.")
		return &GeminiProvider{client: nil}, nil
	}

	var dim int
	switch embeddingModel {
	case "models/embedding-001", "models/text-embedding-004":
		dim = 768
	default:
		log.Warnf("Unknown Gemini embedding model '%s', defaulting dimension to 768 (embedding-001). Accuracy may be affected.", embeddingModel)
		dim = 768
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	log.Infof("Gemini provider initialized with model %s (dimension %d)", embeddingModel, dim)

	return &GeminiProvider{
		client:          client,
		embeddingModel:  embeddingModel,
		completionModel: completionModel,
		dim:             dim,
	}, nil
}

// Name returns the provider name.
func (p *GeminiProvider) Name() string { return "gemini" }

// ModelName returns the specific model identifier.
func (p *GeminiProvider) ModelName() string { return p.embeddingModel }

// GenerateEmbedding generates an embedding for a single text.
func (p *GeminiProvider) GenerateEmbedding(ctx context.Context, text string) (pgvector.Vector, error) {
	if p.client == nil {
		return pgvector.Vector{}, fmt.Errorf("Gemini provider is not initialized (missing API key)")
	}
	if text == "" {
		log.Warn("GenerateEmbedding called with empty text for Gemini")
		return pgvector.NewVector(make([]float32, p.dim)), nil
	}

	em := p.client.EmbeddingModel(p.embeddingModel)
	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return pgvector.Vector{}, categorizeProviderError(fmt.Errorf("Gemini API error generating embedding: %w", err))
	}

	if res == nil || res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return pgvector.Vector{}, models.Categorize(models.CategoryMalformedResponse,
			fmt.Errorf("Gemini API returned no embedding data"))
	}
	if len(res.Embedding.Values) != p.dim {
		return pgvector.Vector{}, models.Categorize(models.CategoryMalformedResponse,
			fmt.Errorf("Gemini API returned unexpected embedding dimension: got %d, want %d", len(res.Embedding.Values), p.dim))
	}

	return pgvector.NewVector(res.Embedding.Values), nil
}

// GenerateEmbeddings generates embeddings for multiple texts.
func (p *GeminiProvider) GenerateEmbeddings(ctx context.Context, texts []string) ([]pgvector.Vector, error) {
	if p.client == nil {
		return nil, fmt.Errorf("Gemini provider is not initialized (missing API key)")
	}
	if len(texts) == 0 {
		return []pgvector.Vector{}, nil
	}

	em := p.client.EmbeddingModel(p.embeddingModel)
	results := make([]pgvector.Vector, len(texts))

	for i, text := range texts {
		if text == "" {
			results[i] = pgvector.NewVector(make([]float32, p.dim))
			continue
		}

		res, err := em.EmbedContent(ctx, genai.Text(text))
		if err != nil {
			return nil, categorizeProviderError(fmt.Errorf("Gemini API error generating embedding for text at index %d: %w", i, err))
		}
		if res == nil || res.Embedding == nil || len(res.Embedding.Values) == 0 {
			return nil, models.Categorize(models.CategoryMalformedResponse,
				fmt.Errorf("Gemini API returned no embedding data for text at index %d", i))
		}
		results[i] = pgvector.NewVector(res.Embedding.Values)
	}

	return results, nil
}

// GenerateChatCompletion implements the CompletionService interface.
func (p *GeminiProvider) GenerateChatCompletion(ctx context.Context, messages []ChatMessage) (string, error) {
	if p.client == nil {
		return "", fmt.Errorf("Gemini provider is not initialized (missing API key)")
	}
	if p.completionModel == "" {
		return "", fmt.Errorf("Gemini provider is not configured for chat completion (completion model not set)")
	}

	model := p.client.GenerativeModel(p.completionModel)

	// Gemini takes system instructions separately and history apart from the
	// final user turn.
	var history []*genai.Content
	var last string
	for _, m := range messages {
		switch m.Role {
		case ChatMessageRoleSystem:
			model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(m.Content)}}
		case ChatMessageRoleAssistant:
			history = append(history, &genai.Content{Role: "model", Parts: []genai.Part{genai.Text(m.Content)}})
		default:
			if last != "" {
				history = append(history, &genai.Content{Role: "user", Parts: []genai.Part{genai.Text(last)}})
			}
			last = m.Content
		}
	}
	if last == "" {
		return "", models.Categorize(models.CategoryValidation, fmt.Errorf("no user message to complete"))
	}

	session := model.StartChat()
	session.History = history
	resp, err := session.SendMessage(ctx, genai.Text(last))
	if err != nil {
		return "", categorizeProviderError(fmt.Errorf("gemini completion: %w", err))
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", models.Categorize(models.CategoryMalformedResponse,
			fmt.Errorf("Gemini API returned no completion candidates"))
	}

	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return "", models.Categorize(models.CategoryMalformedResponse,
			fmt.Errorf("Gemini API returned a non-text completion part"))
	}
	return string(text), nil
}

// Dimension returns the expected embedding dimension for the configured model.
func (p *GeminiProvider) Dimension() int {
	return p.dim
}

// Status returns the operational status of the provider.
func (p *GeminiProvider) Status() store.ProviderStatus {
	if p.client == nil {
		return store.ProviderStatusDisabled
	}
	return store.ProviderStatusActive
}

// Close cleans up the Gemini client resources.
func (p *GeminiProvider) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}

var _ store.EmbeddingService = (*GeminiProvider)(nil)
var _ CompletionService = (*GeminiProvider)(nil)
