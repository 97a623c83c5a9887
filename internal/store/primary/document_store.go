package primary

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/models"
	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/store"
)

// --- Document Store Implementation ---

func (s *StoreImpl) CreateDocument(ctx context.Context, doc *models.Document) error {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	now := time.Now()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	query := `
		INSERT INTO documents (id, title, content, content_type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := s.db.Exec(ctx, query, doc.ID, doc.Title, doc.Content, doc.ContentType, now, now)
	if err != nil {
		return fmt.Errorf("create document %s: %w", doc.ID, err)
	}
	return nil
}

func (s *StoreImpl) GetDocument(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	query := `SELECT id, title, content, content_type, created_at, updated_at FROM documents WHERE id = $1`
	doc := &models.Document{}
	err := s.db.QueryRow(ctx, query, id).Scan(
		&doc.ID, &doc.Title, &doc.Content, &doc.ContentType, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get document %s: %w", id, err)
	}
	return doc, nil
}

// Ensure StoreImpl satisfies the DocumentStore interface
var _ store.DocumentStore = (*StoreImpl)(nil)
