package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/models"
	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/notify"
	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/retry"
	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/services"
	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/store"
)

// Outcome is the disposition of one execution attempt.
type Outcome int

const (
	// OutcomeCompleted means the pipeline finished and its result is stored.
	OutcomeCompleted Outcome = iota
	// OutcomeRetry means the attempt failed transiently; the caller must
	// re-enqueue after Delay.
	OutcomeRetry
	// OutcomeFailed means the task failed terminally.
	OutcomeFailed
	// OutcomeCanceled means cancellation was honored at a step boundary.
	OutcomeCanceled
	// OutcomeSkipped means the task was already terminal and nothing ran.
	OutcomeSkipped
)

// RunResult is what one orchestrator run tells the dispatch layer.
type RunResult struct {
	Outcome Outcome
	// Delay is the backoff before the next attempt, set when Outcome is
	// OutcomeRetry.
	Delay time.Duration
	Err   error
}

// Orchestrator drives a pipeline through its step sequence, persisting state
// after every step and deciding retry versus terminal failure through the
// retry policy. All durable status transitions go through the task store,
// which enforces the lifecycle invariants.
type Orchestrator struct {
	Tasks     store.TaskStore
	Pipelines store.PipelineStore
	Executor  *Executor
	Policy    *retry.Policy
	Notifier  notify.Notifier
}

// Run executes one attempt of the pipeline identified by pipelineID, tracked
// by the task with the given internal id.
func (o *Orchestrator) Run(ctx context.Context, pipelineID, taskInternalID uuid.UUID) RunResult {
	task, err := o.Tasks.GetTask(ctx, taskInternalID)
	if err != nil {
		return RunResult{Outcome: OutcomeFailed, Err: fmt.Errorf("load task %s: %w", taskInternalID, err)}
	}
	if task.Status.Terminal() {
		log.Warnf("Task %s is already %s, skipping duplicate delivery", taskInternalID, task.Status)
		return RunResult{Outcome: OutcomeSkipped}
	}
	if task.CancelRequested {
		return o.cancel(ctx, task, pipelineID)
	}

	if err := o.Tasks.UpdateTaskStatus(ctx, taskInternalID, models.TaskStatusRunning, store.TaskStatusUpdate{}); err != nil {
		if errors.Is(err, store.ErrTerminal) {
			return RunResult{Outcome: OutcomeSkipped}
		}
		return RunResult{Outcome: OutcomeFailed, Err: fmt.Errorf("mark task running: %w", err)}
	}

	pipeline, err := o.Pipelines.GetPipeline(ctx, pipelineID)
	if err != nil {
		return o.fail(ctx, task, pipelineID, fmt.Errorf("load pipeline %s: %w", pipelineID, err))
	}
	state, err := LoadState(pipeline.ProcessingMetadata)
	if err != nil {
		return o.fail(ctx, task, pipelineID, err)
	}
	if pipeline.Status != models.PipelineStatusRunning {
		if err := o.Pipelines.UpdatePipelineStatus(ctx, pipelineID, models.PipelineStatusRunning); err != nil {
			return o.fail(ctx, task, pipelineID, fmt.Errorf("mark pipeline running: %w", err))
		}
	}

	ctx = services.WithUsageRefs(ctx, pipelineID, taskInternalID)
	ec := &ExecContext{Pipeline: pipeline, Task: task, State: state}

	for _, step := range StepOrder(pipeline.Type) {
		if state.Completed(step) {
			log.Debugf("Pipeline %s: step %s already completed, skipping", pipelineID, step)
			continue
		}

		// Cooperative cancellation is honored at step boundaries only.
		fresh, err := o.Tasks.GetTask(ctx, taskInternalID)
		if err == nil && fresh.CancelRequested {
			if serr := o.saveState(ctx, pipelineID, state); serr != nil {
				log.Errorf("Failed to persist pipeline %s state before cancel: %v", pipelineID, serr)
			}
			return o.cancel(ctx, task, pipelineID)
		}

		if err := o.Executor.ExecuteStep(ctx, step, ec); err != nil {
			// Persist whatever the failed attempt accumulated, including
			// document exclusions, before deciding the disposition. A lost
			// state blob forces the retry to re-run completed steps, so the
			// failure must at least surface in the logs.
			if serr := o.saveState(ctx, pipelineID, state); serr != nil {
				log.Errorf("Failed to persist pipeline %s state after step failure: %v", pipelineID, serr)
			}

			if o.Policy.ShouldRetry(err) {
				return o.scheduleRetry(ctx, task, pipelineID, err)
			}
			return o.fail(ctx, task, pipelineID, err)
		}

		state.MarkCompleted(step)
		if err := o.saveState(ctx, pipelineID, state); err != nil {
			return o.fail(ctx, task, pipelineID, err)
		}
	}

	result, err := o.assembleResult(pipeline.Type, state)
	if err != nil {
		return o.fail(ctx, task, pipelineID, err)
	}
	if err := o.Pipelines.CompletePipeline(ctx, pipelineID, result); err != nil {
		return o.fail(ctx, task, pipelineID, fmt.Errorf("complete pipeline: %w", err))
	}
	if err := o.Tasks.UpdateTaskStatus(ctx, taskInternalID, models.TaskStatusCompleted,
		store.TaskStatusUpdate{Result: result}); err != nil {
		return RunResult{Outcome: OutcomeFailed, Err: fmt.Errorf("mark task completed: %w", err)}
	}

	o.publish(pipelineID, "pipeline_completed", map[string]interface{}{
		"task_id": taskInternalID.String(),
	})
	log.WithFields(log.Fields{"pipeline_id": pipelineID, "task_id": taskInternalID}).Info("Pipeline completed")
	return RunResult{Outcome: OutcomeCompleted}
}

// scheduleRetry bumps the retry counter and flips the task to retrying. When
// the counter is exhausted the failure becomes terminal instead.
func (o *Orchestrator) scheduleRetry(ctx context.Context, task *models.Task, pipelineID uuid.UUID, cause error) RunResult {
	retries, err := o.Tasks.IncrementTaskRetries(ctx, task.InternalID)
	if err != nil {
		if errors.Is(err, store.ErrRetriesExhausted) {
			return o.fail(ctx, task, pipelineID,
				fmt.Errorf("retries exhausted after %d attempts: %w", task.MaxRetries, cause))
		}
		return RunResult{Outcome: OutcomeFailed, Err: fmt.Errorf("increment retries: %w", err)}
	}

	if err := o.Tasks.UpdateTaskStatus(ctx, task.InternalID, models.TaskStatusRetrying, store.TaskStatusUpdate{}); err != nil {
		if errors.Is(err, store.ErrTerminal) {
			return RunResult{Outcome: OutcomeSkipped}
		}
		return RunResult{Outcome: OutcomeFailed, Err: fmt.Errorf("mark task retrying: %w", err)}
	}

	delay := o.Policy.NextDelay(retries - 1)
	log.WithFields(log.Fields{
		"pipeline_id": pipelineID,
		"task_id":     task.InternalID,
		"retries":     retries,
		"max_retries": task.MaxRetries,
		"delay":       delay,
	}).Warnf("Scheduling retry: %v", cause)
	return RunResult{Outcome: OutcomeRetry, Delay: delay, Err: cause}
}

// fail terminally records the failure on both the task and the pipeline.
func (o *Orchestrator) fail(ctx context.Context, task *models.Task, pipelineID uuid.UUID, cause error) RunResult {
	if err := o.Tasks.UpdateTaskStatus(ctx, task.InternalID, models.TaskStatusFailed,
		store.TaskStatusUpdate{ErrorMessage: cause.Error()}); err != nil && !errors.Is(err, store.ErrTerminal) {
		log.Errorf("Failed to mark task %s failed: %v", task.InternalID, err)
	}
	if err := o.Pipelines.UpdatePipelineStatus(ctx, pipelineID, models.PipelineStatusFailed); err != nil {
		log.Errorf("Failed to mark pipeline %s failed: %v", pipelineID, err)
	}
	o.publish(pipelineID, "pipeline_failed", map[string]interface{}{
		"task_id": task.InternalID.String(),
		"error":   cause.Error(),
	})
	log.WithFields(log.Fields{"pipeline_id": pipelineID, "task_id": task.InternalID}).Errorf("Pipeline failed: %v", cause)
	return RunResult{Outcome: OutcomeFailed, Err: cause}
}

// cancel honors a pending cancellation request. The pipeline is marked failed:
// a canceled run produces no result.
func (o *Orchestrator) cancel(ctx context.Context, task *models.Task, pipelineID uuid.UUID) RunResult {
	if err := o.Tasks.UpdateTaskStatus(ctx, task.InternalID, models.TaskStatusCanceled, store.TaskStatusUpdate{}); err != nil && !errors.Is(err, store.ErrTerminal) {
		log.Errorf("Failed to mark task %s canceled: %v", task.InternalID, err)
	}
	if err := o.Pipelines.UpdatePipelineStatus(ctx, pipelineID, models.PipelineStatusFailed); err != nil {
		log.Errorf("Failed to mark pipeline %s failed after cancel: %v", pipelineID, err)
	}
	o.publish(pipelineID, "pipeline_canceled", map[string]interface{}{
		"task_id": task.InternalID.String(),
	})
	log.WithFields(log.Fields{"pipeline_id": pipelineID, "task_id": task.InternalID}).Info("Pipeline canceled")
	return RunResult{Outcome: OutcomeCanceled}
}

func (o *Orchestrator) saveState(ctx context.Context, pipelineID uuid.UUID, state *State) error {
	raw, err := state.Marshal()
	if err != nil {
		return err
	}
	if err := o.Pipelines.UpdatePipelineMetadata(ctx, pipelineID, raw); err != nil {
		return fmt.Errorf("persist pipeline state: %w", err)
	}
	return nil
}

// assembleResult builds the type-specific result payload from the accumulated
// state.
func (o *Orchestrator) assembleResult(t models.PipelineType, state *State) (json.RawMessage, error) {
	if t == models.PipelineTypeProposalAnalysis {
		result := models.ProposalResult{ExcludedDocuments: state.ExcludedDocuments}
		var ok bool
		if result.TechnicalEvaluation, ok = state.GetString(StepTechnicalEvaluation); !ok {
			return nil, fmt.Errorf("%w: technical evaluation output is missing", models.ErrValidation)
		}
		if result.GrammarEvaluation, ok = state.GetString(StepGrammarEvaluation); !ok {
			return nil, fmt.Errorf("%w: grammar evaluation output is missing", models.ErrValidation)
		}
		if result.ConsistencyEvaluation, ok = state.GetString(StepConsistencyEvaluation); !ok {
			return nil, fmt.Errorf("%w: consistency evaluation output is missing", models.ErrValidation)
		}
		if result.FinalReport, ok = state.GetString(stateKeyFinalReport); !ok {
			return nil, fmt.Errorf("%w: final report output is missing", models.ErrValidation)
		}
		return json.Marshal(result)
	}

	var result models.RFPResult
	found, err := state.Get(stateKeyCriteria, &result.ExtractedCriteria)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: extracted criteria output is missing", models.ErrValidation)
	}
	var ok bool
	if result.EvaluationFramework, ok = state.GetString(stateKeyFramework); !ok {
		return nil, fmt.Errorf("%w: evaluation framework output is missing", models.ErrValidation)
	}
	return json.Marshal(result)
}

func (o *Orchestrator) publish(pipelineID uuid.UUID, eventType string, payload map[string]interface{}) {
	if o.Notifier == nil {
		return
	}
	payload["pipeline_id"] = pipelineID.String()
	o.Notifier.Publish("pipeline:"+pipelineID.String(), eventType, payload)
}
