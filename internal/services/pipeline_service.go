package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/models"
	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/retry"
	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/store"
)

// SubmitDocument names one document of a pipeline submission and its role.
type SubmitDocument struct {
	ID   uuid.UUID
	Role models.DocumentRole
}

// SubmitPipelineRequest is a validated pipeline submission.
type SubmitPipelineRequest struct {
	Type                models.PipelineType
	PrincipalDocumentID uuid.UUID
	ReferencePipelineID *uuid.UUID
	Documents           []SubmitDocument
	Priority            models.TaskPriority
}

// PipelineService is the submission and query surface over the task and
// pipeline stores. Handlers and CLI commands go through it; the worker side
// does not.
type PipelineService struct {
	Tasks     store.TaskStore
	Pipelines store.PipelineStore
	Documents store.DocumentStore
	Jobs      store.JobClient
	Policy    *retry.Policy
}

// SubmitPipeline records a pipeline with its documents, creates the tracking
// task and enqueues the first execution attempt. The returned task's
// InternalID is the stable public handle for polling and cancellation.
func (s *PipelineService) SubmitPipeline(ctx context.Context, req SubmitPipelineRequest) (*models.Task, *models.Pipeline, error) {
	if !req.Type.Valid() {
		return nil, nil, fmt.Errorf("%w: unknown pipeline type %q", models.ErrValidation, req.Type)
	}
	if req.PrincipalDocumentID == uuid.Nil {
		return nil, nil, fmt.Errorf("%w: principal document id is required", models.ErrValidation)
	}
	if req.Type == models.PipelineTypeProposalAnalysis && req.ReferencePipelineID == nil {
		return nil, nil, fmt.Errorf("%w: proposal analysis requires a reference RFP pipeline", models.ErrValidation)
	}
	if req.Priority == "" {
		req.Priority = models.TaskPriorityNormal
	}

	// The principal document and every attached document must exist before
	// anything is enqueued.
	if _, err := s.Documents.GetDocument(ctx, req.PrincipalDocumentID); err != nil {
		return nil, nil, fmt.Errorf("principal document %s: %w", req.PrincipalDocumentID, err)
	}
	for _, d := range req.Documents {
		if _, err := s.Documents.GetDocument(ctx, d.ID); err != nil {
			return nil, nil, fmt.Errorf("document %s: %w", d.ID, err)
		}
	}
	if req.ReferencePipelineID != nil {
		ref, err := s.Pipelines.GetPipeline(ctx, *req.ReferencePipelineID)
		if err != nil {
			return nil, nil, fmt.Errorf("reference pipeline %s: %w", *req.ReferencePipelineID, err)
		}
		if ref.Type != models.PipelineTypeRFPAnalysis {
			return nil, nil, fmt.Errorf("%w: reference pipeline %s is not an RFP analysis", models.ErrValidation, ref.ID)
		}
	}

	pipeline := &models.Pipeline{
		ID:                  uuid.New(),
		Type:                req.Type,
		Status:              models.PipelineStatusPending,
		PrincipalDocumentID: req.PrincipalDocumentID,
		ReferencePipelineID: req.ReferencePipelineID,
	}

	docs := make([]models.PipelineDocument, 0, len(req.Documents)+1)
	docs = append(docs, models.PipelineDocument{
		PipelineID: pipeline.ID,
		DocumentID: req.PrincipalDocumentID,
		Role:       models.DocumentRolePrimary,
	})
	order := 1
	for _, d := range req.Documents {
		if d.ID == req.PrincipalDocumentID {
			continue
		}
		role := d.Role
		if role == "" {
			role = models.DocumentRoleSecondary
		}
		docs = append(docs, models.PipelineDocument{
			PipelineID:      pipeline.ID,
			DocumentID:      d.ID,
			Role:            role,
			ProcessingOrder: order,
		})
		order++
	}

	if err := s.Pipelines.CreatePipeline(ctx, pipeline, docs); err != nil {
		return nil, nil, fmt.Errorf("create pipeline: %w", err)
	}

	sourceType := "pipeline"
	task := &models.Task{
		InternalID: uuid.New(),
		Name:       fmt.Sprintf("%s:%s", req.Type, pipeline.ID),
		Type:       req.Type.TaskType(),
		Status:     models.TaskStatusPending,
		Priority:   req.Priority,
		MaxRetries: s.Policy.MaxRetries,
		SourceType: &sourceType,
		SourceID:   &pipeline.ID,
	}
	if err := s.Tasks.CreateTask(ctx, task); err != nil {
		return nil, nil, fmt.Errorf("create task: %w", err)
	}

	queueID, err := s.Jobs.EnqueuePipelineRun(ctx, pipeline.ID, task.InternalID, req.Priority.Queue(), 0)
	if err != nil {
		// The task row stays behind as the failure record.
		errMsg := fmt.Sprintf("enqueue failed: %v", err)
		if uerr := s.Tasks.UpdateTaskStatus(ctx, task.InternalID, models.TaskStatusFailed,
			store.TaskStatusUpdate{ErrorMessage: errMsg}); uerr != nil {
			log.Errorf("Failed to mark task %s failed after enqueue error: %v", task.InternalID, uerr)
		}
		return nil, nil, fmt.Errorf("enqueue pipeline run: %w", err)
	}
	if err := s.Tasks.SetTaskQueueID(ctx, task.InternalID, queueID); err != nil {
		log.Warnf("Failed to record queue id %s for task %s: %v", queueID, task.InternalID, err)
	}
	task.TaskID = queueID

	log.WithFields(log.Fields{
		"pipeline_id": pipeline.ID,
		"task_id":     task.InternalID,
		"type":        req.Type,
		"queue":       req.Priority.Queue(),
	}).Info("Pipeline submitted")

	return task, pipeline, nil
}

// GetTaskStatus returns the task identified by its stable internal id.
func (s *PipelineService) GetTaskStatus(ctx context.Context, internalID uuid.UUID) (*models.Task, error) {
	return s.Tasks.GetTask(ctx, internalID)
}

// ListTasks returns tasks, optionally filtered by status.
func (s *PipelineService) ListTasks(ctx context.Context, limit, offset int, status models.TaskStatus) ([]*models.Task, error) {
	return s.Tasks.ListTasks(ctx, limit, offset, status)
}

// GetPipeline returns the pipeline with its documents.
func (s *PipelineService) GetPipeline(ctx context.Context, id uuid.UUID) (*models.Pipeline, error) {
	return s.Pipelines.GetPipeline(ctx, id)
}

// CancelTask requests cooperative cancellation of the task.
func (s *PipelineService) CancelTask(ctx context.Context, internalID uuid.UUID) error {
	return s.Tasks.RequestTaskCancel(ctx, internalID)
}
