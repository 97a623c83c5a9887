package vector

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	log "github.com/sirupsen/logrus"

	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/models"
	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/store"
)

// StoreImpl persists chunk-level pipeline embeddings in a pgvector-enabled
// PostgreSQL database.
type StoreImpl struct {
	db *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (store.EmbeddingStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("vector store DSN cannot be empty")
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse vector store DSN: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping vector store: %w", err)
	}
	log.Info("Connected to PostgreSQL vector store.")
	return &StoreImpl{db: pool}, nil
}

func (vs *StoreImpl) Close() error {
	if vs.db != nil {
		vs.db.Close()
	}
	return nil
}

func (vs *StoreImpl) Ping(ctx context.Context) error {
	if vs.db == nil {
		return fmt.Errorf("vector store connection is not initialized")
	}
	return vs.db.Ping(ctx)
}

// UpsertEmbedding inserts or replaces the chunk row keyed by
// (pipeline_id, document_id, chunk_index). Re-running the embedding step for
// the same chunk overwrites rather than duplicates.
func (vs *StoreImpl) UpsertEmbedding(ctx context.Context, entry *models.PipelineEmbedding) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	metadata := entry.Metadata
	if metadata == nil {
		metadata = json.RawMessage("{}")
	}
	query := `
		INSERT INTO pipeline_embeddings (id, pipeline_id, document_id, chunk_index, chunk_text, vector, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (pipeline_id, document_id, chunk_index)
		DO UPDATE SET chunk_text = EXCLUDED.chunk_text, vector = EXCLUDED.vector, metadata = EXCLUDED.metadata
		RETURNING created_at`
	err := vs.db.QueryRow(ctx, query,
		entry.ID, entry.PipelineID, entry.DocumentID, entry.ChunkIndex,
		entry.ChunkText, entry.Vector, metadata,
	).Scan(&entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert embedding: %w", err)
	}
	return nil
}

func (vs *StoreImpl) CountEmbeddings(ctx context.Context, pipelineID, documentID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM pipeline_embeddings WHERE pipeline_id = $1 AND document_id = $2`
	var count int
	if err := vs.db.QueryRow(ctx, query, pipelineID, documentID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count embeddings: %w", err)
	}
	return count, nil
}

// SimilaritySearch returns the k chunks of the pipeline nearest to the query
// vector by L2 distance.
func (vs *StoreImpl) SimilaritySearch(ctx context.Context, pipelineID uuid.UUID, query pgvector.Vector, k int) ([]models.PipelineEmbedding, error) {
	sql := `
		SELECT id, pipeline_id, document_id, chunk_index, chunk_text, vector, metadata, created_at
		FROM pipeline_embeddings
		WHERE pipeline_id = $1
		ORDER BY vector <-> $2
		LIMIT $3`

	rows, err := vs.db.Query(ctx, sql, pipelineID, query, k)
	if err != nil {
		return nil, fmt.Errorf("similarity search query: %w", err)
	}
	defer rows.Close()

	var results []models.PipelineEmbedding
	for rows.Next() {
		var entry models.PipelineEmbedding
		if err := rows.Scan(
			&entry.ID, &entry.PipelineID, &entry.DocumentID, &entry.ChunkIndex,
			&entry.ChunkText, &entry.Vector, &entry.Metadata, &entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan similarity search row: %w", err)
		}
		results = append(results, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate similarity search rows: %w", err)
	}
	return results, nil
}

func (vs *StoreImpl) DeleteEmbeddingsByPipelineID(ctx context.Context, pipelineID uuid.UUID) error {
	_, err := vs.db.Exec(ctx, `DELETE FROM pipeline_embeddings WHERE pipeline_id = $1`, pipelineID)
	if err != nil {
		return fmt.Errorf("delete embeddings: %w", err)
	}
	return nil
}

var _ store.EmbeddingStore = (*StoreImpl)(nil)
