package tasks

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineRunTaskRoundTrip(t *testing.T) {
	payload := PipelineRunPayload{
		PipelineID:     uuid.New(),
		TaskInternalID: uuid.New(),
	}

	task, err := NewPipelineRunTask(payload)
	require.NoError(t, err)
	assert.Equal(t, TypePipelineRun, task.Type())

	parsed, err := ParsePipelineRunPayload(task.Payload())
	require.NoError(t, err)
	assert.Equal(t, payload, parsed)
}

func TestParsePipelineRunPayloadRejectsGarbage(t *testing.T) {
	_, err := ParsePipelineRunPayload([]byte("not json"))
	assert.Error(t, err)
}

func TestParsePipelineRunPayloadRejectsMissingIDs(t *testing.T) {
	_, err := ParsePipelineRunPayload([]byte(`{"pipeline_id":"` + uuid.New().String() + `"}`))
	assert.Error(t, err)

	_, err = ParsePipelineRunPayload([]byte(`{"task_internal_id":"` + uuid.New().String() + `"}`))
	assert.Error(t, err)
}
