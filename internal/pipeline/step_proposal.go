package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/models"
	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/services"
)

const stateKeyFinalReport = "final_report"

// retrievalLimit is how many nearest chunks back each evaluation prompt.
const retrievalLimit = 5

// maxPromptWords caps the document text included verbatim in a prompt.
const maxPromptWords = 3000

var evaluationPrompts = map[string]string{
	StepTechnicalEvaluation: `You are evaluating a proposal against the RFP criteria below.
Assess how well the proposal satisfies each criterion technically. Be specific
about gaps and strengths, and give a short verdict per criterion.`,
	StepGrammarEvaluation: `You are reviewing the writing quality of a proposal.
Assess grammar, clarity and structure. List concrete problems with examples
and an overall judgement.`,
	StepConsistencyEvaluation: `You are checking a proposal for internal consistency.
Find contradictions between sections, figures that do not add up, and claims
that conflict with each other. Report each inconsistency found.`,
}

const finalReportPrompt = `You are writing the final evaluation report for a proposal.
Combine the technical, grammar and consistency evaluations below into a single
coherent report with an executive summary, per-area findings and an overall
recommendation.`

// referenceCriteria enforces the proposal-to-RFP dependency gate: the
// referenced RFP pipeline must exist and be completed before any
// criteria-dependent step runs. A gate violation is structural, never retried.
func referenceCriteria(ctx context.Context, deps *Deps, ec *ExecContext) (*models.RFPResult, error) {
	if ec.Pipeline.ReferencePipelineID == nil {
		return nil, fmt.Errorf("%w: proposal pipeline has no reference RFP pipeline", models.ErrValidation)
	}
	ref, err := deps.Pipelines.GetPipeline(ctx, *ec.Pipeline.ReferencePipelineID)
	if err != nil {
		return nil, fmt.Errorf("load reference pipeline %s: %w", *ec.Pipeline.ReferencePipelineID, err)
	}
	if ref.Status != models.PipelineStatusCompleted {
		return nil, fmt.Errorf("reference pipeline %s has status %s: %w",
			ref.ID, ref.Status, models.ErrDependencyNotReady)
	}

	var result models.RFPResult
	if err := json.Unmarshal(ref.Result, &result); err != nil {
		return nil, fmt.Errorf("%w: reference pipeline %s result is not an RFP result: %v",
			models.ErrValidation, ref.ID, err)
	}
	if len(result.ExtractedCriteria) == 0 {
		return nil, fmt.Errorf("%w: reference pipeline %s has no extracted criteria",
			models.ErrValidation, ref.ID)
	}
	return &result, nil
}

func docResultKey(step string, docID uuid.UUID) string {
	return step + ":" + docID.String()
}

// evaluationStep builds the per-aspect evaluation step. Each active document
// is evaluated independently; a document that fails structurally is excluded
// and the step proceeds with the rest, while a transient failure fails the
// whole step so the retry re-runs it.
func evaluationStep(name string) StepFunc {
	return func(ctx context.Context, deps *Deps, ec *ExecContext) error {
		rfp, err := referenceCriteria(ctx, deps, ec)
		if err != nil {
			return err
		}
		criteriaJSON, err := json.Marshal(rfp.ExtractedCriteria)
		if err != nil {
			return fmt.Errorf("encode criteria: %w", err)
		}

		// Same constraint as text extraction: read the resume-skip keys
		// before any goroutine starts writing the state map.
		var pending []models.PipelineDocument
		for _, pd := range ec.activeDocuments() {
			if _, ok := ec.State.GetString(docResultKey(name, pd.DocumentID)); !ok {
				pending = append(pending, pd)
			}
		}

		var mu sync.Mutex
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(deps.docConcurrency())

		for _, pd := range pending {
			pd := pd
			g.Go(func() error {
				evaluation, err := evaluateDocument(gctx, deps, ec, name, pd.DocumentID, string(criteriaJSON))
				if err != nil {
					if isStructural(err) && pd.Role != models.DocumentRolePrimary {
						log.Warnf("Excluding document %s from pipeline %s after %s failure: %v",
							pd.DocumentID, ec.Pipeline.ID, name, err)
						mu.Lock()
						ec.State.Exclude(pd.DocumentID)
						mu.Unlock()
						return nil
					}
					return err
				}
				mu.Lock()
				defer mu.Unlock()
				return ec.State.Set(docResultKey(name, pd.DocumentID), evaluation)
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		// Combination barrier: proceed with whatever documents survived, but
		// at least one must remain.
		active := ec.activeDocuments()
		if len(active) == 0 {
			return fmt.Errorf("%w: every document was excluded before %s", models.ErrValidation, name)
		}

		var combined strings.Builder
		for _, pd := range active {
			text, ok := ec.State.GetString(docResultKey(name, pd.DocumentID))
			if !ok {
				return fmt.Errorf("%w: missing %s result for document %s", models.ErrValidation, name, pd.DocumentID)
			}
			if combined.Len() > 0 {
				combined.WriteString("\n\n")
			}
			fmt.Fprintf(&combined, "## Document %s\n\n%s", pd.DocumentID, text)
		}
		return ec.State.Set(name, combined.String())
	}
}

// isStructural reports whether the failure is a property of the input rather
// than the environment. Structural failures are never retried and, per
// document, lead to exclusion instead.
func isStructural(err error) bool {
	switch models.CategoryOf(err) {
	case models.CategoryValidation, models.CategoryDependency:
		return true
	}
	return false
}

func evaluateDocument(ctx context.Context, deps *Deps, ec *ExecContext, step string, docID uuid.UUID, criteriaJSON string) (string, error) {
	text, ok := ec.State.GetString(textKey(docID))
	if !ok {
		return "", fmt.Errorf("%w: no extracted text for document %s", models.ErrValidation, docID)
	}

	// Pull the most relevant chunks across the whole pipeline as additional
	// context. Retrieval failures degrade to prompting without context.
	var contextBlock string
	queryVec, err := deps.Embedder.GenerateEmbedding(ctx, step+" "+criteriaJSON)
	if err == nil {
		matches, serr := deps.Embeddings.SimilaritySearch(ctx, ec.Pipeline.ID, queryVec, retrievalLimit)
		if serr == nil && len(matches) > 0 {
			var b strings.Builder
			for _, m := range matches {
				fmt.Fprintf(&b, "- %s\n", m.ChunkText)
			}
			contextBlock = b.String()
		} else if serr != nil {
			log.Warnf("Similarity search failed for pipeline %s: %v", ec.Pipeline.ID, serr)
		}
	} else {
		log.Warnf("Query embedding failed for pipeline %s: %v", ec.Pipeline.ID, err)
	}

	var prompt strings.Builder
	fmt.Fprintf(&prompt, "RFP criteria:\n%s\n\n", criteriaJSON)
	if contextBlock != "" {
		fmt.Fprintf(&prompt, "Most relevant excerpts:\n%s\n", contextBlock)
	}
	fmt.Fprintf(&prompt, "Proposal document:\n%s", truncateWords(text, maxPromptWords))

	result, err := deps.Completer.GenerateChatCompletion(ctx, []services.ChatMessage{
		{Role: services.ChatMessageRoleSystem, Content: evaluationPrompts[step]},
		{Role: services.ChatMessageRoleUser, Content: prompt.String()},
	})
	if err != nil {
		return "", fmt.Errorf("%s of document %s: %w", step, docID, err)
	}
	if strings.TrimSpace(result) == "" {
		return "", models.Categorize(models.CategoryMalformedResponse,
			fmt.Errorf("%s response for document %s was empty", step, docID))
	}
	return result, nil
}

func truncateWords(text string, max int) string {
	words := strings.Fields(text)
	if len(words) <= max {
		return text
	}
	return strings.Join(words[:max], " ")
}

// runFinalReportGeneration combines the three evaluations into the final
// report.
func runFinalReportGeneration(ctx context.Context, deps *Deps, ec *ExecContext) error {
	var sections strings.Builder
	for _, step := range []string{StepTechnicalEvaluation, StepGrammarEvaluation, StepConsistencyEvaluation} {
		text, ok := ec.State.GetString(step)
		if !ok {
			return fmt.Errorf("%w: %s output is missing", models.ErrValidation, step)
		}
		fmt.Fprintf(&sections, "# %s\n\n%s\n\n", strings.ReplaceAll(step, "_", " "), text)
	}
	if len(ec.State.ExcludedDocuments) > 0 {
		fmt.Fprintf(&sections, "# excluded documents\n\n")
		for _, id := range ec.State.ExcludedDocuments {
			fmt.Fprintf(&sections, "- %s (failed permanently, not evaluated)\n", id)
		}
	}

	report, err := deps.Completer.GenerateChatCompletion(ctx, []services.ChatMessage{
		{Role: services.ChatMessageRoleSystem, Content: finalReportPrompt},
		{Role: services.ChatMessageRoleUser, Content: sections.String()},
	})
	if err != nil {
		return fmt.Errorf("generate final report: %w", err)
	}
	if strings.TrimSpace(report) == "" {
		return models.Categorize(models.CategoryMalformedResponse,
			fmt.Errorf("final report response was empty"))
	}
	return ec.State.Set(stateKeyFinalReport, report)
}
