package primary

import (
	"context"
	"fmt"
	"time"

	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/models"
	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/store"
)

// --- Usage Store Implementation ---

// RecordUsage inserts one AI usage log row.
func (s *StoreImpl) RecordUsage(ctx context.Context, entry *models.AIUsageLog) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	query := `
		INSERT INTO ai_usage_logs (timestamp, provider_name, service_type, model_name,
		                           input_tokens, output_tokens, cost, related_pipeline_id, related_task_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`
	err := s.db.QueryRow(ctx, query,
		entry.Timestamp, entry.ProviderName, entry.ServiceType, entry.ModelName,
		entry.InputTokens, entry.OutputTokens, entry.Cost, entry.RelatedPipelineID, entry.RelatedTaskID,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	return nil
}

func (s *StoreImpl) ListUsage(ctx context.Context, limit, offset int) ([]*models.AIUsageLog, error) {
	query := `
		SELECT id, timestamp, provider_name, service_type, model_name,
		       input_tokens, output_tokens, cost, related_pipeline_id, related_task_id
		FROM ai_usage_logs ORDER BY timestamp DESC LIMIT $1 OFFSET $2`
	rows, err := s.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list usage: %w", err)
	}
	defer rows.Close()

	var out []*models.AIUsageLog
	for rows.Next() {
		entry := &models.AIUsageLog{}
		if err := rows.Scan(
			&entry.ID, &entry.Timestamp, &entry.ProviderName, &entry.ServiceType, &entry.ModelName,
			&entry.InputTokens, &entry.OutputTokens, &entry.Cost, &entry.RelatedPipelineID, &entry.RelatedTaskID,
		); err != nil {
			return nil, fmt.Errorf("scan usage row: %w", err)
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate usage rows: %w", err)
	}
	return out, nil
}

func (s *StoreImpl) GetUsageSummary(ctx context.Context) (float64, int64, int64, error) {
	query := `
		SELECT COALESCE(SUM(cost), 0), COALESCE(SUM(input_tokens), 0), COALESCE(SUM(output_tokens), 0)
		FROM ai_usage_logs`
	var totalCost float64
	var totalInput, totalOutput int64
	if err := s.db.QueryRow(ctx, query).Scan(&totalCost, &totalInput, &totalOutput); err != nil {
		return 0, 0, 0, fmt.Errorf("usage summary: %w", err)
	}
	return totalCost, totalInput, totalOutput, nil
}

// Ensure StoreImpl satisfies the UsageStore interface
var _ store.UsageStore = (*StoreImpl)(nil)
