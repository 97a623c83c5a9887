package pipeline

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/models"
	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/notify"
	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/services"
	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/store"
)

// Step names. These are stable identifiers: they appear in persisted state,
// log lines and notifications.
const (
	StepTextExtraction        = "text_extraction"
	StepEmbeddingGeneration   = "embedding_generation"
	StepCriteriaExtraction    = "criteria_extraction"
	StepFrameworkGeneration   = "framework_generation"
	StepTechnicalEvaluation   = "technical_evaluation"
	StepGrammarEvaluation     = "grammar_evaluation"
	StepConsistencyEvaluation = "consistency_evaluation"
	StepFinalReportGeneration = "final_report_generation"
)

// StepOrder returns the fixed step sequence for a pipeline type.
func StepOrder(t models.PipelineType) []string {
	if t == models.PipelineTypeProposalAnalysis {
		return []string{
			StepTextExtraction,
			StepEmbeddingGeneration,
			StepTechnicalEvaluation,
			StepGrammarEvaluation,
			StepConsistencyEvaluation,
			StepFinalReportGeneration,
		}
	}
	return []string{
		StepTextExtraction,
		StepEmbeddingGeneration,
		StepCriteriaExtraction,
		StepFrameworkGeneration,
	}
}

// Deps bundles everything step implementations reach for.
type Deps struct {
	Pipelines  store.PipelineStore
	Documents  store.DocumentStore
	Embeddings store.EmbeddingStore
	Embedder   store.EmbeddingService
	Completer  services.CompletionService
	Notifier   notify.Notifier

	ChunkMaxTokens int
	ChunkOverlap   int
	// DocConcurrency bounds the per-document fan-out inside a step.
	DocConcurrency int
}

func (d *Deps) docConcurrency() int {
	if d.DocConcurrency <= 0 {
		return 4
	}
	return d.DocConcurrency
}

// ExecContext is the per-run view a step operates on.
type ExecContext struct {
	Pipeline *models.Pipeline
	Task     *models.Task
	State    *State
}

// activeDocuments returns the pipeline documents not yet excluded by earlier
// steps, in processing order.
func (ec *ExecContext) activeDocuments() []models.PipelineDocument {
	var docs []models.PipelineDocument
	for _, d := range ec.Pipeline.Documents {
		if !ec.State.Excluded(d.DocumentID) {
			docs = append(docs, d)
		}
	}
	return docs
}

// StepFunc is one pipeline step. Failures are classified by the error chain;
// the executor wraps whatever comes back into a StepError.
type StepFunc func(ctx context.Context, deps *Deps, ec *ExecContext) error

// Executor runs registered steps with a per-step timeout and uniform error
// wrapping.
type Executor struct {
	deps     *Deps
	registry map[string]StepFunc
	timeout  time.Duration
}

// NewExecutor builds an executor with every known step registered.
func NewExecutor(deps *Deps, stepTimeout time.Duration) *Executor {
	if stepTimeout <= 0 {
		stepTimeout = 5 * time.Minute
	}
	e := &Executor{
		deps:    deps,
		timeout: stepTimeout,
		registry: map[string]StepFunc{
			StepTextExtraction:        runTextExtraction,
			StepEmbeddingGeneration:   runEmbeddingGeneration,
			StepCriteriaExtraction:    runCriteriaExtraction,
			StepFrameworkGeneration:   runFrameworkGeneration,
			StepTechnicalEvaluation:   evaluationStep(StepTechnicalEvaluation),
			StepGrammarEvaluation:     evaluationStep(StepGrammarEvaluation),
			StepConsistencyEvaluation: evaluationStep(StepConsistencyEvaluation),
			StepFinalReportGeneration: runFinalReportGeneration,
		},
	}
	return e
}

// ExecuteStep runs one named step under the step timeout. Any failure comes
// back as a *models.StepError carrying the step name and error category.
func (e *Executor) ExecuteStep(ctx context.Context, name string, ec *ExecContext) error {
	fn, ok := e.registry[name]
	if !ok {
		return models.NewStepError(name, fmt.Errorf("%w: unknown step", models.ErrValidation))
	}

	e.publish(ec, "step_started", name, nil)
	stepCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	err := fn(stepCtx, e.deps, ec)
	elapsed := time.Since(start)

	if err != nil {
		stepErr := models.NewStepError(name, err)
		log.WithFields(log.Fields{
			"pipeline_id": ec.Pipeline.ID,
			"step":        name,
			"category":    stepErr.Category,
			"elapsed":     elapsed,
		}).Warnf("Step failed: %v", err)
		e.publish(ec, "step_failed", name, map[string]interface{}{
			"category": string(stepErr.Category),
			"error":    err.Error(),
		})
		return stepErr
	}

	log.WithFields(log.Fields{
		"pipeline_id": ec.Pipeline.ID,
		"step":        name,
		"elapsed":     elapsed,
	}).Info("Step completed")
	e.publish(ec, "step_completed", name, nil)
	return nil
}

func (e *Executor) publish(ec *ExecContext, eventType, step string, extra map[string]interface{}) {
	if e.deps.Notifier == nil {
		return
	}
	payload := map[string]interface{}{
		"pipeline_id": ec.Pipeline.ID.String(),
		"task_id":     ec.Task.InternalID.String(),
		"step":        step,
	}
	for k, v := range extra {
		payload[k] = v
	}
	e.deps.Notifier.Publish("pipeline:"+ec.Pipeline.ID.String(), eventType, payload)
}
