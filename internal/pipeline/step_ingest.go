package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"

	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/chunking"
	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/models"
)

func textKey(docID uuid.UUID) string {
	return "text:" + docID.String()
}

// runTextExtraction loads every pipeline document and stores its plain text
// in the state. Documents with unusable content are a validation failure: the
// principal document fails the step, a secondary document is excluded and the
// pipeline proceeds without it.
func runTextExtraction(ctx context.Context, deps *Deps, ec *ExecContext) error {
	// The resume-skip reads touch the same state map the goroutines below
	// write. Collect the pending documents before the group starts.
	var pending []models.PipelineDocument
	for _, pd := range ec.activeDocuments() {
		if _, ok := ec.State.GetString(textKey(pd.DocumentID)); !ok {
			pending = append(pending, pd)
		}
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(deps.docConcurrency())

	for _, pd := range pending {
		pd := pd
		g.Go(func() error {
			doc, err := deps.Documents.GetDocument(gctx, pd.DocumentID)
			if err != nil {
				return fmt.Errorf("load document %s: %w", pd.DocumentID, err)
			}

			text, err := extractPlainText(doc)
			if err != nil {
				if models.CategoryOf(err) == models.CategoryValidation && pd.Role != models.DocumentRolePrimary {
					log.Warnf("Excluding document %s from pipeline %s: %v", pd.DocumentID, ec.Pipeline.ID, err)
					mu.Lock()
					ec.State.Exclude(pd.DocumentID)
					mu.Unlock()
					return nil
				}
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			return ec.State.Set(textKey(pd.DocumentID), text)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	if len(ec.activeDocuments()) == 0 {
		return fmt.Errorf("%w: no usable documents remain", models.ErrValidation)
	}
	return nil
}

// extractPlainText returns the document's text content, stripping HTML markup
// when the content type says so.
func extractPlainText(doc *models.Document) (string, error) {
	content := strings.TrimSpace(doc.Content)
	if content == "" {
		return "", models.Categorize(models.CategoryValidation,
			fmt.Errorf("document %s has no content", doc.ID))
	}
	if !strings.Contains(strings.ToLower(doc.ContentType), "html") {
		return content, nil
	}

	root, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return "", models.Categorize(models.CategoryValidation,
			fmt.Errorf("document %s is not parseable HTML: %w", doc.ID, err))
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style" || n.Data == "head") {
			return
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				if b.Len() > 0 {
					b.WriteString(" ")
				}
				b.WriteString(t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", models.Categorize(models.CategoryValidation,
			fmt.Errorf("document %s has no textual content", doc.ID))
	}
	return text, nil
}

// runEmbeddingGeneration chunks every extracted text and upserts one vector
// row per chunk. The vector store keys rows by (pipeline, document, chunk
// index), so a partially completed attempt re-runs cleanly.
func runEmbeddingGeneration(ctx context.Context, deps *Deps, ec *ExecContext) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(deps.docConcurrency())

	for _, pd := range ec.activeDocuments() {
		pd := pd
		g.Go(func() error {
			text, ok := ec.State.GetString(textKey(pd.DocumentID))
			if !ok {
				return fmt.Errorf("%w: no extracted text for document %s", models.ErrValidation, pd.DocumentID)
			}

			chunkDoc := &models.Document{ID: pd.DocumentID, Content: text, ContentType: "text/plain"}
			chunks := chunking.SplitDocument(gctx, chunkDoc, deps.ChunkMaxTokens, deps.ChunkOverlap)
			if len(chunks) == 0 {
				return fmt.Errorf("%w: document %s produced no chunks", models.ErrValidation, pd.DocumentID)
			}

			texts := make([]string, len(chunks))
			for i, c := range chunks {
				texts[i] = c.Text
			}
			vectors, err := deps.Embedder.GenerateEmbeddings(gctx, texts)
			if err != nil {
				return fmt.Errorf("embed document %s: %w", pd.DocumentID, err)
			}

			for i, c := range chunks {
				entry := &models.PipelineEmbedding{
					PipelineID: ec.Pipeline.ID,
					DocumentID: pd.DocumentID,
					ChunkIndex: i,
					ChunkText:  c.Text,
					Vector:     vectors[i],
				}
				if err := deps.Embeddings.UpsertEmbedding(gctx, entry); err != nil {
					return fmt.Errorf("store embedding %d of document %s: %w", i, pd.DocumentID, err)
				}
			}
			log.Debugf("Stored %d embeddings for document %s in pipeline %s", len(chunks), pd.DocumentID, ec.Pipeline.ID)
			return nil
		})
	}

	return g.Wait()
}
