package pipeline

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// State is the execution context a pipeline accumulates across steps. It is
// persisted to the pipeline row after every step, so a retried job picks up
// where the failed attempt stopped: completed steps are skipped and their
// outputs are still readable.
type State struct {
	CompletedSteps []string `json:"completed_steps,omitempty"`
	// Values holds step outputs keyed by the writing step. A step only ever
	// rewrites its own keys when it re-executes after a partial failure.
	Values map[string]json.RawMessage `json:"values,omitempty"`
	// ExcludedDocuments lists documents that failed permanently and were
	// dropped from the remaining per-document steps.
	ExcludedDocuments []uuid.UUID `json:"excluded_documents,omitempty"`
}

// LoadState decodes persisted processing metadata. Empty metadata yields a
// fresh state.
func LoadState(raw json.RawMessage) (*State, error) {
	s := &State{Values: map[string]json.RawMessage{}}
	if len(raw) == 0 || string(raw) == "null" {
		return s, nil
	}
	if err := json.Unmarshal(raw, s); err != nil {
		return nil, fmt.Errorf("decode pipeline state: %w", err)
	}
	if s.Values == nil {
		s.Values = map[string]json.RawMessage{}
	}
	return s, nil
}

// Marshal encodes the state for persistence.
func (s *State) Marshal() (json.RawMessage, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode pipeline state: %w", err)
	}
	return raw, nil
}

// Completed reports whether the named step already finished in a prior
// attempt.
func (s *State) Completed(step string) bool {
	for _, done := range s.CompletedSteps {
		if done == step {
			return true
		}
	}
	return false
}

// MarkCompleted records the step as done. Idempotent.
func (s *State) MarkCompleted(step string) {
	if !s.Completed(step) {
		s.CompletedSteps = append(s.CompletedSteps, step)
	}
}

// Set stores a step output under key.
func (s *State) Set(key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode state value %q: %w", key, err)
	}
	s.Values[key] = raw
	return nil
}

// Get decodes the value under key into dst, reporting whether it was present.
func (s *State) Get(key string, dst interface{}) (bool, error) {
	raw, ok := s.Values[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return true, fmt.Errorf("decode state value %q: %w", key, err)
	}
	return true, nil
}

// GetString returns the string value under key.
func (s *State) GetString(key string) (string, bool) {
	var v string
	ok, err := s.Get(key, &v)
	if err != nil || !ok {
		return "", false
	}
	return v, true
}

// Exclude marks the document as permanently failed. Idempotent.
func (s *State) Exclude(docID uuid.UUID) {
	if !s.Excluded(docID) {
		s.ExcludedDocuments = append(s.ExcludedDocuments, docID)
	}
}

// Excluded reports whether the document was dropped by an earlier step.
func (s *State) Excluded(docID uuid.UUID) bool {
	for _, id := range s.ExcludedDocuments {
		if id == docID {
			return true
		}
	}
	return false
}
