package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/models"
	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/services"
)

const (
	stateKeyCriteria  = "criteria"
	stateKeyFramework = "framework"
)

const criteriaExtractionPrompt = `You are an analyst extracting evaluation criteria from an RFP (request for proposals).
Return ONLY a JSON array. Each element must be an object with the fields
"name", "description" and a numeric "weight" between 0 and 1. The weights
should sum to 1. Do not wrap the JSON in markdown fences.`

const frameworkGenerationPrompt = `You are an analyst designing an evaluation framework for proposals answering an RFP.
Given the extracted criteria as JSON, produce a structured evaluation framework
in plain text: for each criterion, describe what a strong, adequate and weak
proposal looks like, and how to score it.`

// runCriteriaExtraction asks the completion model for the RFP's evaluation
// criteria and parses them. A response that is not valid JSON is a
// malformed_response failure, which the retry policy treats as not transient.
func runCriteriaExtraction(ctx context.Context, deps *Deps, ec *ExecContext) error {
	text, ok := ec.State.GetString(textKey(ec.Pipeline.PrincipalDocumentID))
	if !ok {
		return fmt.Errorf("%w: no extracted text for principal document", models.ErrValidation)
	}

	raw, err := deps.Completer.GenerateChatCompletion(ctx, []services.ChatMessage{
		{Role: services.ChatMessageRoleSystem, Content: criteriaExtractionPrompt},
		{Role: services.ChatMessageRoleUser, Content: text},
	})
	if err != nil {
		return fmt.Errorf("extract criteria: %w", err)
	}

	criteria, err := parseCriteria(raw)
	if err != nil {
		return err
	}
	return ec.State.Set(stateKeyCriteria, criteria)
}

// parseCriteria decodes the model response, tolerating markdown code fences.
func parseCriteria(raw string) ([]models.Criterion, error) {
	cleaned := stripCodeFences(raw)
	var criteria []models.Criterion
	if err := json.Unmarshal([]byte(cleaned), &criteria); err != nil {
		return nil, models.Categorize(models.CategoryMalformedResponse,
			fmt.Errorf("criteria response is not a JSON array: %w", err))
	}
	if len(criteria) == 0 {
		return nil, models.Categorize(models.CategoryMalformedResponse,
			fmt.Errorf("criteria response contained no criteria"))
	}
	for i, c := range criteria {
		if strings.TrimSpace(c.Name) == "" {
			return nil, models.Categorize(models.CategoryMalformedResponse,
				fmt.Errorf("criterion %d has no name", i))
		}
	}
	return criteria, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx >= 0 {
			s = s[idx+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

// runFrameworkGeneration turns the extracted criteria into an evaluation
// framework.
func runFrameworkGeneration(ctx context.Context, deps *Deps, ec *ExecContext) error {
	var criteria []models.Criterion
	ok, err := ec.State.Get(stateKeyCriteria, &criteria)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: criteria extraction output is missing", models.ErrValidation)
	}

	criteriaJSON, err := json.Marshal(criteria)
	if err != nil {
		return fmt.Errorf("encode criteria: %w", err)
	}

	framework, err := deps.Completer.GenerateChatCompletion(ctx, []services.ChatMessage{
		{Role: services.ChatMessageRoleSystem, Content: frameworkGenerationPrompt},
		{Role: services.ChatMessageRoleUser, Content: string(criteriaJSON)},
	})
	if err != nil {
		return fmt.Errorf("generate framework: %w", err)
	}
	if strings.TrimSpace(framework) == "" {
		return models.Categorize(models.CategoryMalformedResponse,
			fmt.Errorf("framework response was empty"))
	}
	return ec.State.Set(stateKeyFramework, framework)
}
