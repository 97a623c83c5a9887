package chunking

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/models"
)

func plainDoc(content string) *models.Document {
	return &models.Document{ID: uuid.New(), Content: content, ContentType: "text/plain"}
}

func TestSplitDocumentEmpty(t *testing.T) {
	chunks := SplitDocument(context.Background(), plainDoc("   "), 50, 10)
	assert.Empty(t, chunks)
}

func TestSplitDocumentSmallTextSingleChunk(t *testing.T) {
	doc := plainDoc("A short paragraph that fits comfortably in one chunk.")
	chunks := SplitDocument(context.Background(), doc, 50, 10)

	require.Len(t, chunks, 1)
	assert.Equal(t, "fallback", chunks[0].Metadata["parser"])
	assert.Equal(t, 0, chunks[0].Metadata["chunk_index"])
	assert.Equal(t, 1, chunks[0].Metadata["total_chunks"])
	assert.Contains(t, chunks[0].Text, "short paragraph")
}

func TestSplitDocumentRespectsMaxTokens(t *testing.T) {
	// Many sentences force multiple chunks.
	var b strings.Builder
	for i := 0; i < 60; i++ {
		b.WriteString("This sentence pads the document with several more words. ")
	}
	chunks := SplitDocument(context.Background(), plainDoc(b.String()), 40, 10)

	require.Greater(t, len(chunks), 1)
	for i, c := range chunks {
		assert.Equal(t, i, c.Metadata["chunk_index"])
		assert.Equal(t, len(chunks), c.Metadata["total_chunks"])
		// Overlap can push a chunk slightly past the budget, but not wildly.
		assert.LessOrEqual(t, estimateTokens(c.Text), 40*2)
	}
}

func TestSplitDocumentOverlapCarriesText(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString("Sentence number padding goes right here again. ")
	}
	chunks := SplitDocument(context.Background(), plainDoc(b.String()), 30, 10)
	require.Greater(t, len(chunks), 1)

	// Consecutive chunks share some words: the second chunk starts with a
	// suffix of the first.
	first := strings.Fields(chunks[0].Text)
	tail := strings.Join(first[len(first)-3:], " ")
	assert.Contains(t, chunks[1].Text, tail)
}

func TestSplitDocumentHTML(t *testing.T) {
	doc := &models.Document{
		ID:          uuid.New(),
		ContentType: "text/html",
		Content: `<html><head><title>ignored</title><script>var x = 1;</script></head>
<body><h1>Scope</h1><p>The vendor shall provide support.</p>
<p>Pricing must be itemized per deliverable.</p></body></html>`,
	}
	chunks := SplitDocument(context.Background(), doc, 50, 0)

	require.NotEmpty(t, chunks)
	var all strings.Builder
	for _, c := range chunks {
		all.WriteString(c.Text)
		all.WriteString(" ")
	}
	assert.Contains(t, all.String(), "vendor shall provide support")
	assert.Contains(t, all.String(), "itemized per deliverable")
	assert.NotContains(t, all.String(), "var x = 1")
}

func TestClampParams(t *testing.T) {
	maxTokens, overlap := clampParams(0, -5)
	assert.Equal(t, DefaultMaxTokens, maxTokens)
	assert.Equal(t, DefaultOverlap, overlap)

	// Overlap is kept strictly below maxTokens.
	maxTokens, overlap = clampParams(20, 50)
	assert.Equal(t, 20, maxTokens)
	assert.Less(t, overlap, maxTokens)
}

func TestCalculateSentenceOverlap(t *testing.T) {
	text := "First sentence here. Second sentence follows. Third sentence ends it."

	assert.Empty(t, calculateSentenceOverlap(text, 0))
	assert.Empty(t, calculateSentenceOverlap("", 10))

	overlap := calculateSentenceOverlap(text, 4)
	assert.Contains(t, overlap, "Third sentence ends it.")
	assert.NotContains(t, overlap, "First sentence")
}
