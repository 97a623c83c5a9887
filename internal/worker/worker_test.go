package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/models"
	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/pipeline"
	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/store"
	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/tasks"
)

type stubRunner struct {
	result pipeline.RunResult
	calls  int
}

func (s *stubRunner) Run(ctx context.Context, pipelineID, taskInternalID uuid.UUID) pipeline.RunResult {
	s.calls++
	return s.result
}

type stubTaskStore struct {
	store.TaskStore
	task       *models.Task
	failedWith string
}

func (s *stubTaskStore) GetTask(ctx context.Context, internalID uuid.UUID) (*models.Task, error) {
	if s.task == nil {
		return nil, store.ErrNotFound
	}
	return s.task, nil
}

func (s *stubTaskStore) UpdateTaskStatus(ctx context.Context, internalID uuid.UUID, status models.TaskStatus, upd store.TaskStatusUpdate) error {
	if status == models.TaskStatusFailed {
		s.failedWith = upd.ErrorMessage
	}
	return nil
}

type stubJobClient struct {
	store.JobClient
	queue      string
	delay      time.Duration
	enqueues   int
	enqueueErr error
}

func (s *stubJobClient) EnqueuePipelineRun(ctx context.Context, pipelineID, taskInternalID uuid.UUID, queue string, delay time.Duration) (string, error) {
	s.enqueues++
	s.queue = queue
	s.delay = delay
	if s.enqueueErr != nil {
		return "", s.enqueueErr
	}
	return "queue-id-1", nil
}

func pipelineRunTask(t *testing.T) *asynq.Task {
	t.Helper()
	task, err := tasks.NewPipelineRunTask(tasks.PipelineRunPayload{
		PipelineID:     uuid.New(),
		TaskInternalID: uuid.New(),
	})
	require.NoError(t, err)
	return task
}

func TestHandlePipelineRunCompleted(t *testing.T) {
	runner := &stubRunner{result: pipeline.RunResult{Outcome: pipeline.OutcomeCompleted}}
	jobs := &stubJobClient{}
	handler := HandlePipelineRun(PipelineDeps{Runner: runner, Tasks: &stubTaskStore{}, Jobs: jobs})

	err := handler(context.Background(), pipelineRunTask(t))
	require.NoError(t, err)
	assert.Equal(t, 1, runner.calls)
	assert.Zero(t, jobs.enqueues)
}

func TestHandlePipelineRunSkippedAndCanceled(t *testing.T) {
	for _, outcome := range []pipeline.Outcome{pipeline.OutcomeSkipped, pipeline.OutcomeCanceled} {
		runner := &stubRunner{result: pipeline.RunResult{Outcome: outcome}}
		handler := HandlePipelineRun(PipelineDeps{Runner: runner, Tasks: &stubTaskStore{}, Jobs: &stubJobClient{}})
		assert.NoError(t, handler(context.Background(), pipelineRunTask(t)))
	}
}

func TestHandlePipelineRunRetryReEnqueues(t *testing.T) {
	runner := &stubRunner{result: pipeline.RunResult{
		Outcome: pipeline.OutcomeRetry,
		Delay:   12 * time.Second,
		Err:     errors.New("transient"),
	}}
	taskStore := &stubTaskStore{task: &models.Task{Priority: models.TaskPriorityHigh}}
	jobs := &stubJobClient{}
	handler := HandlePipelineRun(PipelineDeps{Runner: runner, Tasks: taskStore, Jobs: jobs})

	err := handler(context.Background(), pipelineRunTask(t))
	require.NoError(t, err)
	assert.Equal(t, 1, jobs.enqueues)
	assert.Equal(t, "high", jobs.queue)
	assert.Equal(t, 12*time.Second, jobs.delay)
}

func TestHandlePipelineRunRetryFallsBackToDefaultQueue(t *testing.T) {
	runner := &stubRunner{result: pipeline.RunResult{Outcome: pipeline.OutcomeRetry, Delay: time.Second}}
	jobs := &stubJobClient{}
	// Task lookup fails; the retry still goes out on the default queue.
	handler := HandlePipelineRun(PipelineDeps{Runner: runner, Tasks: &stubTaskStore{}, Jobs: jobs})

	err := handler(context.Background(), pipelineRunTask(t))
	require.NoError(t, err)
	assert.Equal(t, models.TaskPriorityNormal.Queue(), jobs.queue)
}

func TestHandlePipelineRunRetryEnqueueFailureFailsTask(t *testing.T) {
	runner := &stubRunner{result: pipeline.RunResult{Outcome: pipeline.OutcomeRetry, Delay: time.Second, Err: errors.New("transient")}}
	taskStore := &stubTaskStore{task: &models.Task{Priority: models.TaskPriorityNormal}}
	jobs := &stubJobClient{enqueueErr: errors.New("redis unavailable")}
	handler := HandlePipelineRun(PipelineDeps{Runner: runner, Tasks: taskStore, Jobs: jobs})

	err := handler(context.Background(), pipelineRunTask(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
	assert.Contains(t, taskStore.failedWith, "failed to schedule retry")
}

func TestHandlePipelineRunFailedReturnsSkipRetry(t *testing.T) {
	runner := &stubRunner{result: pipeline.RunResult{Outcome: pipeline.OutcomeFailed, Err: errors.New("boom")}}
	handler := HandlePipelineRun(PipelineDeps{Runner: runner, Tasks: &stubTaskStore{}, Jobs: &stubJobClient{}})

	err := handler(context.Background(), pipelineRunTask(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestHandlePipelineRunInvalidPayload(t *testing.T) {
	runner := &stubRunner{}
	handler := HandlePipelineRun(PipelineDeps{Runner: runner, Tasks: &stubTaskStore{}, Jobs: &stubJobClient{}})

	err := handler(context.Background(), asynq.NewTask(tasks.TypePipelineRun, []byte("garbage")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
	assert.Zero(t, runner.calls)
}
