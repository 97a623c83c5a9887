package tasks

// Defines constants and payloads for task types used in Asynq.

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// TypePipelineRun drives one attempt of a pipeline analysis job.
	TypePipelineRun = "pipeline:run"
)

// PipelineRunPayload identifies the pipeline and its task record. The task
// internal id stays stable across retries even though the queue assigns a new
// delivery id to each re-enqueued attempt.
type PipelineRunPayload struct {
	PipelineID     uuid.UUID `json:"pipeline_id"`
	TaskInternalID uuid.UUID `json:"task_internal_id"`
}

// NewPipelineRunTask packs the payload into an asynq task.
func NewPipelineRunTask(p PipelineRunPayload) (*asynq.Task, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal pipeline run payload: %w", err)
	}
	return asynq.NewTask(TypePipelineRun, b), nil
}

// ParsePipelineRunPayload unpacks a pipeline:run payload.
func ParsePipelineRunPayload(data []byte) (PipelineRunPayload, error) {
	var p PipelineRunPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("unmarshal pipeline run payload: %w", err)
	}
	if p.PipelineID == uuid.Nil || p.TaskInternalID == uuid.Nil {
		return p, fmt.Errorf("pipeline run payload missing ids")
	}
	return p, nil
}
