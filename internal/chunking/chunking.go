package chunking

import (
	"context"
	"strings"

	"github.com/neurosnap/sentences"
	log "github.com/sirupsen/logrus"

	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/models"
)

const (
	// DefaultMaxTokens defines a reasonable default if not provided.
	DefaultMaxTokens = 200
	// DefaultOverlap defines a reasonable default if not provided.
	DefaultOverlap = 50
)

// Chunk represents a piece of text with associated metadata.
// Standard metadata keys:
//   - parser: (string) the chunker used ("fallback", "html", "html-fallback").
//   - chunk_index: (int) 0-based index of this chunk within the document.
//   - total_chunks: (int) total chunks generated for the document.
//   - source_tags: ([]string, optional) HTML tag hierarchy leading to this chunk.
type Chunk struct {
	Text     string
	Metadata map[string]interface{}
}

// Chunker defines the interface for different chunking strategies.
type Chunker interface {
	Chunk(ctx context.Context, doc *models.Document, maxTokens, overlap int) ([]Chunk, error)
}

// SplitDocument selects a chunking strategy from the document's content type
// and executes it, falling back to plain-text splitting when a structured
// parser fails or yields nothing.
func SplitDocument(ctx context.Context, doc *models.Document, maxTokens, overlap int) []Chunk {
	parser := "fallback"
	var chunker Chunker = NewFallbackChunker()
	if strings.Contains(strings.ToLower(doc.ContentType), "html") {
		parser = "html"
		chunker = NewHTMLChunker()
	}

	chunks, err := chunker.Chunk(ctx, doc, maxTokens, overlap)
	if err != nil {
		log.Warnf("Chunker '%s' failed for document %s: %v. Using fallback.", parser, doc.ID, err)
		parser = "fallback"
		chunks, err = NewFallbackChunker().Chunk(ctx, doc, maxTokens, overlap)
		if err != nil {
			log.Errorf("Fallback chunker failed for document %s: %v", doc.ID, err)
			return []Chunk{}
		}
	}

	log.Debugf("Chunked document %s with '%s' strategy into %d chunks", doc.ID, parser, len(chunks))

	totalChunks := len(chunks)
	for i := range chunks {
		chunks[i].Metadata["parser"] = parser
		chunks[i].Metadata["total_chunks"] = totalChunks
	}
	return chunks
}

// estimateTokens provides a basic word count estimation.
func estimateTokens(text string) int {
	return len(strings.Fields(text))
}

// calculateSentenceOverlap finds sentences at the end of a text block that
// approximate the desired token overlap count.
func calculateSentenceOverlap(text string, overlapTokens int) string {
	if overlapTokens <= 0 || text == "" {
		return ""
	}

	tokenizer := sentences.NewSentenceTokenizer(nil)
	sents := tokenizer.Tokenize(text)
	if len(sents) == 0 {
		return ""
	}

	var overlapSentences []string
	accumulatedTokens := 0
	for i := len(sents) - 1; i >= 0; i-- {
		sentenceText := strings.TrimSpace(sents[i].Text)
		if sentenceText == "" {
			continue
		}
		sentenceTokens := estimateTokens(sentenceText)

		if accumulatedTokens+sentenceTokens <= overlapTokens {
			overlapSentences = append([]string{sentenceText}, overlapSentences...)
			accumulatedTokens += sentenceTokens
		} else {
			// Take at least the closest sentence even when it alone exceeds
			// the budget.
			if len(overlapSentences) == 0 {
				overlapSentences = append(overlapSentences, sentenceText)
			}
			break
		}
	}

	if len(overlapSentences) == 0 {
		return ""
	}
	return strings.Join(overlapSentences, " ") + " "
}

// clampParams validates maxTokens and overlap, applying defaults and keeping
// overlap strictly below maxTokens.
func clampParams(maxTokens, overlap int) (int, int) {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if overlap < 0 {
		overlap = DefaultOverlap
	}
	if overlap >= maxTokens {
		overlap = maxTokens - 1
	}
	return maxTokens, overlap
}

// FallbackChunker splits plain text, preferring paragraph boundaries, then
// lines, then raw words.
type FallbackChunker struct{}

func NewFallbackChunker() *FallbackChunker {
	return &FallbackChunker{}
}

func (c *FallbackChunker) Chunk(ctx context.Context, doc *models.Document, maxTokens, overlap int) ([]Chunk, error) {
	var finalChunks []Chunk
	text := strings.TrimSpace(doc.Content)
	if text == "" {
		return finalChunks, nil
	}
	maxTokens, overlap = clampParams(maxTokens, overlap)

	// Split by paragraphs first, descending to lines then words only when a
	// piece exceeds the budget.
	var pieces []string
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if estimateTokens(para) <= maxTokens {
			pieces = append(pieces, para)
			continue
		}
		for _, line := range strings.Split(para, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if estimateTokens(line) <= maxTokens {
				pieces = append(pieces, line)
				continue
			}
			words := strings.Fields(line)
			for start := 0; start < len(words); start += maxTokens {
				end := start + maxTokens
				if end > len(words) {
					end = len(words)
				}
				pieces = append(pieces, strings.Join(words[start:end], " "))
			}
		}
	}
	if len(pieces) == 0 {
		return finalChunks, nil
	}

	currentChunk := ""
	currentTokens := 0
	chunkIndex := 0
	for i, piece := range pieces {
		pieceTokens := estimateTokens(piece)

		if currentTokens > 0 && currentTokens+pieceTokens > maxTokens {
			finalized := strings.TrimSpace(currentChunk)
			finalChunks = append(finalChunks, Chunk{Text: finalized, Metadata: map[string]interface{}{"chunk_index": chunkIndex}})
			chunkIndex++

			// Seed the next chunk with trailing sentences of the previous one.
			currentChunk = calculateSentenceOverlap(finalized, overlap)
			currentTokens = estimateTokens(currentChunk)

			if currentTokens > 0 && currentTokens+pieceTokens > maxTokens {
				// The next piece is too large to share a chunk with the
				// overlap; flush the overlap alone.
				finalChunks = append(finalChunks, Chunk{Text: strings.TrimSpace(currentChunk), Metadata: map[string]interface{}{"chunk_index": chunkIndex}})
				chunkIndex++
				currentChunk = ""
				currentTokens = 0
			}
		}

		if currentChunk != "" && !strings.HasSuffix(currentChunk, " ") {
			currentChunk += " "
		}
		currentChunk += piece
		currentTokens += pieceTokens

		if i == len(pieces)-1 && strings.TrimSpace(currentChunk) != "" {
			finalChunks = append(finalChunks, Chunk{Text: strings.TrimSpace(currentChunk), Metadata: map[string]interface{}{"chunk_index": chunkIndex}})
			chunkIndex++
		}
	}

	return finalChunks, nil
}

var _ Chunker = (*FallbackChunker)(nil)
