package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/pgvector/pgvector-go"

	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/models"
)

// --- Provider Status ---

type ProviderStatus int

const (
	ProviderStatusUnknown  ProviderStatus = iota // Default zero value
	ProviderStatusActive                         // Provider is operational
	ProviderStatusInactive                       // Provider is temporarily unavailable
	ProviderStatusDisabled                       // Provider is not configured or explicitly disabled
)

// --- Job Client ---

// JobClient enqueues background jobs on the durable queue.
type JobClient interface {
	Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	// EnqueuePipelineRun enqueues one attempt of a pipeline job on the given
	// queue, optionally delayed. Returns the queue-assigned task id.
	EnqueuePipelineRun(ctx context.Context, pipelineID, taskInternalID uuid.UUID, queue string, delay time.Duration) (string, error)
	Close() error
}

// --- Task Store ---

// TaskStatusUpdate carries the optional fields attached on a status change.
// Result is only applied on COMPLETED, ErrorMessage only on FAILED.
type TaskStatusUpdate struct {
	Result       json.RawMessage
	ErrorMessage string
}

// TaskStore is the durable record of every background unit of work.
//
// UpdateTaskStatus enforces the lifecycle rules: started_at is set once on
// the first transition to running, completed_at once on a terminal
// transition, and a task already in a terminal state is never updated again
// (ErrTerminal). Every successful update publishes a best-effort
// notification; a notify failure never rolls back the write.
type TaskStore interface {
	CreateTask(ctx context.Context, task *models.Task) error
	GetTask(ctx context.Context, internalID uuid.UUID) (*models.Task, error)
	GetTaskByQueueID(ctx context.Context, taskID string) (*models.Task, error)
	ListTasks(ctx context.Context, limit, offset int, status models.TaskStatus) ([]*models.Task, error)
	// SetTaskQueueID records the queue-assigned id, only if none is set yet.
	SetTaskQueueID(ctx context.Context, internalID uuid.UUID, taskID string) error
	UpdateTaskStatus(ctx context.Context, internalID uuid.UUID, status models.TaskStatus, upd TaskStatusUpdate) error
	// IncrementTaskRetries bumps the retry counter, guarding the
	// retries <= max_retries invariant, and returns the new count.
	IncrementTaskRetries(ctx context.Context, internalID uuid.UUID) (int, error)
	// RequestTaskCancel flags the task for cooperative cancellation. Tasks
	// still pending are canceled immediately; running tasks are canceled by
	// the orchestrator at the next step boundary.
	RequestTaskCancel(ctx context.Context, internalID uuid.UUID) error

	Ping(ctx context.Context) error
}

// --- Pipeline Store ---

type PipelineStore interface {
	CreatePipeline(ctx context.Context, p *models.Pipeline, docs []models.PipelineDocument) error
	GetPipeline(ctx context.Context, id uuid.UUID) (*models.Pipeline, error)
	UpdatePipelineStatus(ctx context.Context, id uuid.UUID, status models.PipelineStatus) error
	// UpdatePipelineMetadata persists the accumulated step context so a
	// retried job resumes where the failed attempt stopped.
	UpdatePipelineMetadata(ctx context.Context, id uuid.UUID, metadata json.RawMessage) error
	// CompletePipeline atomically records the result payload and flips the
	// status to completed.
	CompletePipeline(ctx context.Context, id uuid.UUID, result json.RawMessage) error
	DeletePipeline(ctx context.Context, id uuid.UUID) error
}

// --- Document Store ---

type DocumentStore interface {
	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id uuid.UUID) (*models.Document, error)
}

// --- Embedding Store (vector) ---

// EmbeddingStore persists chunk-level vectors. Upserts are keyed by
// (pipeline_id, document_id, chunk_index) so step re-execution is idempotent.
type EmbeddingStore interface {
	UpsertEmbedding(ctx context.Context, entry *models.PipelineEmbedding) error
	CountEmbeddings(ctx context.Context, pipelineID, documentID uuid.UUID) (int, error)
	// SimilaritySearch returns the k chunks of a pipeline nearest to the
	// query vector, used for retrieval during criterion evaluation.
	SimilaritySearch(ctx context.Context, pipelineID uuid.UUID, query pgvector.Vector, k int) ([]models.PipelineEmbedding, error)
	DeleteEmbeddingsByPipelineID(ctx context.Context, pipelineID uuid.UUID) error

	Ping(ctx context.Context) error
	Close() error
}

// --- Embedding Service ---

type EmbeddingService interface {
	GenerateEmbedding(ctx context.Context, text string) (pgvector.Vector, error)
	GenerateEmbeddings(ctx context.Context, texts []string) ([]pgvector.Vector, error)
	Dimension() int
	ModelName() string
	Name() string
	Status() ProviderStatus
}

// --- Usage Store ---

type UsageStore interface {
	RecordUsage(ctx context.Context, log *models.AIUsageLog) error
	ListUsage(ctx context.Context, limit, offset int) ([]*models.AIUsageLog, error)
	GetUsageSummary(ctx context.Context) (totalCost float64, totalInputTokens, totalOutputTokens int64, err error)
}
