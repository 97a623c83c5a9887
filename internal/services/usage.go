package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/config"
	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/models"
	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/store"
)

type usageRefsKey struct{}

type usageRefs struct {
	pipelineID uuid.UUID
	taskID     uuid.UUID
}

// WithUsageRefs attaches the pipeline and task that caused subsequent provider
// calls, so usage rows can be attributed without threading ids through every
// call site.
func WithUsageRefs(ctx context.Context, pipelineID, taskID uuid.UUID) context.Context {
	return context.WithValue(ctx, usageRefsKey{}, usageRefs{pipelineID: pipelineID, taskID: taskID})
}

func usageRefsFrom(ctx context.Context) (pipelineID, taskID *uuid.UUID) {
	refs, ok := ctx.Value(usageRefsKey{}).(usageRefs)
	if !ok {
		return nil, nil
	}
	if refs.pipelineID != uuid.Nil {
		pipelineID = &refs.pipelineID
	}
	if refs.taskID != uuid.Nil {
		taskID = &refs.taskID
	}
	return pipelineID, taskID
}

// recordUsage writes one usage row, best effort. Missing pricing or a store
// failure is logged and never fails the provider call.
func recordUsage(ctx context.Context, usageStore store.UsageStore, pricing map[string]config.PricingInfo,
	provider, serviceType, model string, inputTokens, outputTokens int) {
	if usageStore == nil || inputTokens+outputTokens == 0 {
		return
	}
	priceInfo, ok := pricing[model]
	if !ok {
		log.Warnf("Pricing info not found for model '%s'. Cannot record cost.", model)
		return
	}

	pipelineID, taskID := usageRefsFrom(ctx)
	entry := &models.AIUsageLog{
		Timestamp:         time.Now(),
		ProviderName:      provider,
		ServiceType:       serviceType,
		ModelName:         model,
		InputTokens:       inputTokens,
		OutputTokens:      outputTokens,
		Cost:              float64(inputTokens)*priceInfo.InputPerToken + float64(outputTokens)*priceInfo.OutputPerToken,
		RelatedPipelineID: pipelineID,
		RelatedTaskID:     taskID,
	}
	if err := usageStore.RecordUsage(ctx, entry); err != nil {
		log.Errorf("Failed to record AI usage log for %s: %v", serviceType, err)
		return
	}
	log.Debugf("Recorded AI usage: Provider=%s, Service=%s, Model=%s, InputTokens=%d, OutputTokens=%d, Cost=%.8f",
		entry.ProviderName, entry.ServiceType, entry.ModelName, entry.InputTokens, entry.OutputTokens, entry.Cost)
}
