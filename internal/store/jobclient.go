package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	log "github.com/sirupsen/logrus"

	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/tasks"
)

// AsynqJobClient is the concrete JobClient backed by an asynq.Client.
var _ JobClient = (*AsynqJobClient)(nil)

type AsynqJobClient struct {
	client *asynq.Client
}

func NewAsynqJobClient(redisAddr, redisPassword string, redisDB int) (*AsynqJobClient, error) {
	if redisAddr == "" {
		return nil, fmt.Errorf("redis address cannot be empty")
	}
	cli := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       redisDB,
	})
	return &AsynqJobClient{client: cli}, nil
}

func (jc *AsynqJobClient) Close() error {
	return jc.client.Close()
}

// Enqueue submits a task to the queue.
func (jc *AsynqJobClient) Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if jc.client == nil {
		return nil, fmt.Errorf("asynq client is not initialized")
	}
	info, err := jc.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		return nil, fmt.Errorf("enqueue task type %s: %w", task.Type(), err)
	}
	log.Debugf("enqueued task type=%s id=%s queue=%s", task.Type(), info.ID, info.Queue)
	return info, nil
}

// EnqueuePipelineRun enqueues one attempt of a pipeline job. Asynq's own
// retry machinery is disabled (MaxRetry 0): re-enqueueing on failure is
// driven explicitly by the dispatch layer through the configured retry
// policy, never implicitly by the queue.
func (jc *AsynqJobClient) EnqueuePipelineRun(ctx context.Context, pipelineID, taskInternalID uuid.UUID, queue string, delay time.Duration) (string, error) {
	task, err := tasks.NewPipelineRunTask(tasks.PipelineRunPayload{
		PipelineID:     pipelineID,
		TaskInternalID: taskInternalID,
	})
	if err != nil {
		return "", err
	}
	opts := []asynq.Option{asynq.Queue(queue), asynq.MaxRetry(0)}
	if delay > 0 {
		opts = append(opts, asynq.ProcessIn(delay))
	}
	info, err := jc.Enqueue(ctx, task, opts...)
	if err != nil {
		return "", fmt.Errorf("enqueue pipeline run for pipeline %s: %w", pipelineID, err)
	}
	return info.ID, nil
}
