package pipeline

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadStateEmpty(t *testing.T) {
	for _, raw := range [][]byte{nil, {}, []byte("null")} {
		s, err := LoadState(raw)
		require.NoError(t, err)
		assert.Empty(t, s.CompletedSteps)
		assert.NotNil(t, s.Values)
	}
}

func TestLoadStateInvalid(t *testing.T) {
	_, err := LoadState([]byte("{not json"))
	assert.Error(t, err)
}

func TestStateRoundTrip(t *testing.T) {
	s, err := LoadState(nil)
	require.NoError(t, err)

	s.MarkCompleted(StepTextExtraction)
	s.MarkCompleted(StepTextExtraction) // idempotent
	require.NoError(t, s.Set("framework", "score 1-5"))
	docID := uuid.New()
	s.Exclude(docID)
	s.Exclude(docID) // idempotent

	raw, err := s.Marshal()
	require.NoError(t, err)

	loaded, err := LoadState(raw)
	require.NoError(t, err)

	assert.Equal(t, []string{StepTextExtraction}, loaded.CompletedSteps)
	assert.True(t, loaded.Completed(StepTextExtraction))
	assert.False(t, loaded.Completed(StepEmbeddingGeneration))

	v, ok := loaded.GetString("framework")
	assert.True(t, ok)
	assert.Equal(t, "score 1-5", v)

	_, ok = loaded.GetString("missing")
	assert.False(t, ok)

	assert.Equal(t, []uuid.UUID{docID}, loaded.ExcludedDocuments)
	assert.True(t, loaded.Excluded(docID))
	assert.False(t, loaded.Excluded(uuid.New()))
}

func TestStepOrder(t *testing.T) {
	rfp := StepOrder("rfp_analysis")
	require.Equal(t, []string{
		StepTextExtraction,
		StepEmbeddingGeneration,
		StepCriteriaExtraction,
		StepFrameworkGeneration,
	}, rfp)

	proposal := StepOrder("proposal_analysis")
	require.Equal(t, []string{
		StepTextExtraction,
		StepEmbeddingGeneration,
		StepTechnicalEvaluation,
		StepGrammarEvaluation,
		StepConsistencyEvaluation,
		StepFinalReportGeneration,
	}, proposal)
}
