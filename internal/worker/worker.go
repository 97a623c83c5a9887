package worker

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	log "github.com/sirupsen/logrus"

	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/models"
	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/pipeline"
	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/store"
	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/tasks"
)

// Runner abstracts the orchestrator so handlers are testable without a full
// dependency graph.
type Runner interface {
	Run(ctx context.Context, pipelineID, taskInternalID uuid.UUID) pipeline.RunResult
}

// PipelineDeps are the dependencies of the pipeline job handlers.
type PipelineDeps struct {
	Runner Runner
	Tasks  store.TaskStore
	Jobs   store.JobClient
}

// RegisterHandlers attaches all job handlers to the mux.
func RegisterHandlers(mux *asynq.ServeMux, deps PipelineDeps) {
	mux.HandleFunc(tasks.TypePipelineRun, HandlePipelineRun(deps))
}

// HandlePipelineRun executes one pipeline attempt. Retry scheduling is owned
// here, not by asynq: jobs are enqueued with MaxRetry(0), a transient failure
// is re-enqueued explicitly with the policy's backoff, and the handler returns
// nil so asynq archives nothing. Terminal failures return SkipRetry.
func HandlePipelineRun(deps PipelineDeps) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		payload, err := tasks.ParsePipelineRunPayload(t.Payload())
		if err != nil {
			return fmt.Errorf("invalid pipeline run payload: %v: %w", err, asynq.SkipRetry)
		}

		res := deps.Runner.Run(ctx, payload.PipelineID, payload.TaskInternalID)
		switch res.Outcome {
		case pipeline.OutcomeCompleted, pipeline.OutcomeCanceled, pipeline.OutcomeSkipped:
			return nil

		case pipeline.OutcomeRetry:
			queue := models.TaskPriorityNormal.Queue()
			if task, terr := deps.Tasks.GetTask(ctx, payload.TaskInternalID); terr == nil {
				queue = task.Priority.Queue()
			}
			queueID, qerr := deps.Jobs.EnqueuePipelineRun(ctx, payload.PipelineID, payload.TaskInternalID, queue, res.Delay)
			if qerr != nil {
				// The retry cannot be scheduled; the task would be stuck in
				// retrying forever, so fail it now.
				errMsg := fmt.Sprintf("failed to schedule retry: %v (after: %v)", qerr, res.Err)
				if uerr := deps.Tasks.UpdateTaskStatus(ctx, payload.TaskInternalID, models.TaskStatusFailed,
					store.TaskStatusUpdate{ErrorMessage: errMsg}); uerr != nil {
					log.Errorf("Failed to mark task %s failed after enqueue error: %v", payload.TaskInternalID, uerr)
				}
				return fmt.Errorf("%s: %w", errMsg, asynq.SkipRetry)
			}
			log.WithFields(log.Fields{
				"pipeline_id": payload.PipelineID,
				"task_id":     payload.TaskInternalID,
				"queue":       queue,
				"queue_id":    queueID,
				"delay":       res.Delay,
			}).Info("Re-enqueued pipeline run for retry")
			return nil

		default:
			return fmt.Errorf("pipeline %s failed: %v: %w", payload.PipelineID, res.Err, asynq.SkipRetry)
		}
	}
}
