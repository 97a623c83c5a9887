package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// Task is the durable record of one unit of background work. It is the audit
// trail for pipeline execution: rows are created by the submission layer,
// mutated only by the orchestrator/dispatch layer and never deleted outside an
// explicit administrative purge.
type Task struct {
	InternalID      uuid.UUID       `db:"internal_id"`
	TaskID          string          `db:"task_id"` // queue-assigned id, set once at first enqueue
	Name            string          `db:"name"`
	Type            TaskType        `db:"type"`
	Status          TaskStatus      `db:"status"`
	Priority        TaskPriority    `db:"priority"`
	Retries         int             `db:"retries"`
	MaxRetries      int             `db:"max_retries"`
	ErrorMessage    *string         `db:"error_message"`
	Result          json.RawMessage `db:"result"`
	SourceType      *string         `db:"source_type"`
	SourceID        *uuid.UUID      `db:"source_id"`
	CancelRequested bool            `db:"cancel_requested"`
	CreatedAt       time.Time       `db:"created_at"`
	StartedAt       *time.Time      `db:"started_at"`
	CompletedAt     *time.Time      `db:"completed_at"`
	UpdatedAt       time.Time       `db:"updated_at"`
}

// Pipeline is a multi-document, multi-step analysis job. Result holds the
// type-specific payload (RFPResult or ProposalResult) discriminated by Type.
type Pipeline struct {
	ID                  uuid.UUID       `db:"id"`
	Type                PipelineType    `db:"type"`
	Status              PipelineStatus  `db:"status"`
	PrincipalDocumentID uuid.UUID       `db:"principal_document_id"`
	ReferencePipelineID *uuid.UUID      `db:"reference_pipeline_id"` // proposal -> RFP, read-only dependency
	ProcessingMetadata  json.RawMessage `db:"processing_metadata"`
	Result              json.RawMessage `db:"result"`
	CreatedAt           time.Time       `db:"created_at"`
	UpdatedAt           time.Time       `db:"updated_at"`

	// Documents is populated by the store on load; it is not a column.
	Documents []PipelineDocument `db:"-"`
}

// PipelineDocument associates a document with a pipeline, carrying its role
// and processing order.
type PipelineDocument struct {
	PipelineID      uuid.UUID    `db:"pipeline_id"`
	DocumentID      uuid.UUID    `db:"document_id"`
	Role            DocumentRole `db:"role"`
	ProcessingOrder int          `db:"processing_order"`
	CreatedAt       time.Time    `db:"created_at"`
}

// Document is the stored source material a pipeline analyzes.
type Document struct {
	ID          uuid.UUID `db:"id"`
	Title       string    `db:"title"`
	Content     string    `db:"content"`
	ContentType string    `db:"content_type"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// PipelineEmbedding is one chunk-level vector row. Uniqueness is enforced per
// (pipeline_id, document_id, chunk_index) so re-running the embedding step
// upserts instead of duplicating rows.
type PipelineEmbedding struct {
	ID         uuid.UUID       `db:"id"`
	PipelineID uuid.UUID       `db:"pipeline_id"`
	DocumentID uuid.UUID       `db:"document_id"`
	ChunkIndex int             `db:"chunk_index"`
	ChunkText  string          `db:"chunk_text"`
	Vector     pgvector.Vector `db:"vector"`
	Metadata   json.RawMessage `db:"metadata"`
	CreatedAt  time.Time       `db:"created_at"`
}

// Criterion is one extracted RFP requirement.
type Criterion struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Weight      float64 `json:"weight,omitempty"`
}

// RFPResult is the result payload of a completed RFP_ANALYSIS pipeline.
type RFPResult struct {
	ExtractedCriteria   []Criterion `json:"extracted_criteria"`
	EvaluationFramework string      `json:"evaluation_framework"`
}

// ProposalResult is the result payload of a completed PROPOSAL_ANALYSIS
// pipeline. ExcludedDocuments lists documents that failed permanently before
// the combination step and were left out of the final report.
type ProposalResult struct {
	TechnicalEvaluation   string      `json:"technical_evaluation"`
	GrammarEvaluation     string      `json:"grammar_evaluation"`
	ConsistencyEvaluation string      `json:"consistency_evaluation"`
	FinalReport           string      `json:"final_report"`
	ExcludedDocuments     []uuid.UUID `json:"excluded_documents,omitempty"`
}

// AIUsageLog records one LLM API call for cost tracking.
type AIUsageLog struct {
	ID                int64      `db:"id"`
	Timestamp         time.Time  `db:"timestamp"`
	ProviderName      string     `db:"provider_name"`
	ServiceType       string     `db:"service_type"` // "embedding", "completion"
	ModelName         string     `db:"model_name"`
	InputTokens       int        `db:"input_tokens"`
	OutputTokens      int        `db:"output_tokens"`
	Cost              float64    `db:"cost"`
	RelatedPipelineID *uuid.UUID `db:"related_pipeline_id"`
	RelatedTaskID     *uuid.UUID `db:"related_task_id"`
}
