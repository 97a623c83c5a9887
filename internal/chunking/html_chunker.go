package chunking

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/net/html"

	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/models"
)

// htmlChunker splits HTML content on block-level elements, carrying the tag
// hierarchy into chunk metadata.
type htmlChunker struct{}

func NewHTMLChunker() *htmlChunker {
	return &htmlChunker{}
}

func (c *htmlChunker) Chunk(ctx context.Context, doc *models.Document, maxTokens, overlap int) ([]Chunk, error) {
	chunks := []Chunk{}
	body := strings.TrimSpace(doc.Content)
	if body == "" {
		return chunks, nil
	}
	maxTokens, overlap = clampParams(maxTokens, overlap)

	root, err := html.Parse(strings.NewReader(body))
	if err != nil {
		log.Warnf("Failed to parse HTML for document %s, falling back to simple chunking: %v", doc.ID, err)
		return simpleChunkText(doc.Content, maxTokens, overlap, "html-fallback"), nil
	}

	var currentChunk strings.Builder
	var currentTokens int
	chunkIndex := 0
	var currentBlockTags []string

	ignoreTags := map[string]bool{
		"script": true, "style": true, "head": true, "nav": true,
		"footer": true, "aside": true, "form": true, "noscript": true,
	}

	flush := func() {
		text := strings.TrimSpace(currentChunk.String())
		if text == "" {
			return
		}
		chunks = append(chunks, Chunk{
			Text: text,
			Metadata: map[string]interface{}{
				"chunk_index": chunkIndex,
				"source_tags": append([]string{}, currentBlockTags...),
			},
		})
		chunkIndex++
	}

	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if n == nil {
			return
		}
		if n.Type == html.ElementNode && ignoreTags[n.Data] {
			return
		}

		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				wordCount := len(strings.Fields(text))

				if currentTokens+wordCount > maxTokens && currentChunk.Len() > 0 {
					flush()

					overlapped := getOverlap(currentChunk.String(), overlap)
					currentChunk.Reset()
					currentChunk.WriteString(overlapped)
					if overlapped != "" && !strings.HasSuffix(overlapped, " ") {
						currentChunk.WriteString(" ")
					}
					currentTokens = len(strings.Fields(overlapped))
				}

				if currentChunk.Len() > 0 && !strings.HasSuffix(currentChunk.String(), " ") && !strings.HasSuffix(currentChunk.String(), "\n") {
					currentChunk.WriteString(" ")
				}
				currentChunk.WriteString(text)
				currentTokens += wordCount
			}
		}

		pushedTag := false
		if isBlockElement(n) {
			currentBlockTags = append(currentBlockTags, n.Data)
			pushedTag = true
			if currentChunk.Len() > 0 && !strings.HasSuffix(currentChunk.String(), "\n\n") {
				currentChunk.WriteString("\n\n")
			}
		}

		for child := n.FirstChild; child != nil; child = child.NextSibling {
			traverse(child)
		}

		if pushedTag {
			currentBlockTags = currentBlockTags[:len(currentBlockTags)-1]
		}
	}

	traverse(root)
	flush()

	if len(chunks) == 0 {
		log.Warnf("HTML parsing yielded no chunks for non-empty document %s. Falling back.", doc.ID)
		return simpleChunkText(doc.Content, maxTokens, overlap, "html-fallback"), nil
	}
	return chunks, nil
}

// isBlockElement checks if an HTML node represents a common block-level element.
func isBlockElement(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	switch n.Data {
	case "address", "article", "blockquote", "dd", "div", "dl", "dt",
		"fieldset", "figcaption", "figure", "h1", "h2", "h3", "h4", "h5", "h6",
		"header", "hr", "li", "main", "ol", "p", "pre", "section", "table",
		"tfoot", "ul", "video":
		return true
	default:
		return false
	}
}

// simpleChunkText splits plain text into fixed-size word windows. Used when
// structured parsing fails.
func simpleChunkText(text string, maxTokens, overlap int, parserType string) []Chunk {
	var chunks []Chunk
	words := strings.Fields(text)
	totalWords := len(words)
	startIndex := 0
	chunkIndex := 0

	for startIndex < totalWords {
		endIndex := startIndex + maxTokens
		if endIndex > totalWords {
			endIndex = totalWords
		}

		chunks = append(chunks, Chunk{
			Text: strings.Join(words[startIndex:endIndex], " "),
			Metadata: map[string]interface{}{
				"parser":      parserType,
				"chunk_index": chunkIndex,
			},
		})
		chunkIndex++

		nextStart := startIndex + maxTokens - overlap
		if nextStart <= startIndex {
			nextStart = startIndex + 1
		}
		startIndex = nextStart
	}
	return chunks
}

// getOverlap extracts the last 'overlap' words from a text chunk.
func getOverlap(text string, overlap int) string {
	trimmed := strings.TrimSpace(text)
	if overlap <= 0 || trimmed == "" {
		return ""
	}
	words := strings.Fields(trimmed)
	if len(words) <= overlap {
		return trimmed
	}
	return strings.Join(words[len(words)-overlap:], " ")
}

var _ Chunker = (*htmlChunker)(nil)
