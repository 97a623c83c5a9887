package primary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/models"
	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/store"
)

// --- Pipeline Store Implementation ---

// CreatePipeline inserts the pipeline and its document associations in one
// transaction.
func (s *StoreImpl) CreatePipeline(ctx context.Context, p *models.Pipeline, docs []models.PipelineDocument) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Status == "" {
		p.Status = models.PipelineStatusPending
	}
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create pipeline: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO pipelines (id, type, status, principal_document_id, reference_pipeline_id,
		                       processing_metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	metadata := p.ProcessingMetadata
	if metadata == nil {
		metadata = json.RawMessage("{}")
	}
	_, err = tx.Exec(ctx, query,
		p.ID, p.Type, p.Status, p.PrincipalDocumentID, p.ReferencePipelineID, metadata, now, now,
	)
	if err != nil {
		return fmt.Errorf("create pipeline %s: %w", p.ID, err)
	}

	for _, doc := range docs {
		_, err = tx.Exec(ctx, `
			INSERT INTO pipeline_documents (pipeline_id, document_id, role, processing_order, created_at)
			VALUES ($1, $2, $3, $4, $5)`,
			p.ID, doc.DocumentID, doc.Role, doc.ProcessingOrder, now,
		)
		if err != nil {
			return fmt.Errorf("attach document %s to pipeline %s: %w", doc.DocumentID, p.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit create pipeline: %w", err)
	}
	p.Documents = docs
	return nil
}

// GetPipeline loads a pipeline with its document associations ordered by
// processing_order.
func (s *StoreImpl) GetPipeline(ctx context.Context, id uuid.UUID) (*models.Pipeline, error) {
	query := `
		SELECT id, type, status, principal_document_id, reference_pipeline_id,
		       processing_metadata, result, created_at, updated_at
		FROM pipelines WHERE id = $1`
	p := &models.Pipeline{}
	err := s.db.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Type, &p.Status, &p.PrincipalDocumentID, &p.ReferencePipelineID,
		&p.ProcessingMetadata, &p.Result, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get pipeline %s: %w", id, err)
	}

	rows, err := s.db.Query(ctx, `
		SELECT pipeline_id, document_id, role, processing_order, created_at
		FROM pipeline_documents WHERE pipeline_id = $1 ORDER BY processing_order`, id)
	if err != nil {
		return nil, fmt.Errorf("get pipeline documents for %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var doc models.PipelineDocument
		if err := rows.Scan(&doc.PipelineID, &doc.DocumentID, &doc.Role, &doc.ProcessingOrder, &doc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pipeline document row: %w", err)
		}
		p.Documents = append(p.Documents, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pipeline document rows: %w", err)
	}
	return p, nil
}

func (s *StoreImpl) UpdatePipelineStatus(ctx context.Context, id uuid.UUID, status models.PipelineStatus) error {
	query := `UPDATE pipelines SET status = $2, updated_at = $3 WHERE id = $1`
	cmdTag, err := s.db.Exec(ctx, query, id, status, time.Now())
	if err != nil {
		return fmt.Errorf("update status for pipeline %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *StoreImpl) UpdatePipelineMetadata(ctx context.Context, id uuid.UUID, metadata json.RawMessage) error {
	query := `UPDATE pipelines SET processing_metadata = $2, updated_at = $3 WHERE id = $1`
	cmdTag, err := s.db.Exec(ctx, query, id, metadata, time.Now())
	if err != nil {
		return fmt.Errorf("update metadata for pipeline %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// CompletePipeline records the result payload and flips status to completed
// in one statement, so readers never observe a completed pipeline without a
// result.
func (s *StoreImpl) CompletePipeline(ctx context.Context, id uuid.UUID, result json.RawMessage) error {
	query := `UPDATE pipelines SET status = 'completed', result = $2, updated_at = $3 WHERE id = $1`
	cmdTag, err := s.db.Exec(ctx, query, id, result, time.Now())
	if err != nil {
		return fmt.Errorf("complete pipeline %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeletePipeline removes the pipeline row. pipeline_documents and
// pipeline_embeddings cascade at the schema level.
func (s *StoreImpl) DeletePipeline(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := s.db.Exec(ctx, `DELETE FROM pipelines WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete pipeline %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Ensure StoreImpl satisfies the PipelineStore interface
var _ store.PipelineStore = (*StoreImpl)(nil)
