package services

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/api/googleapi"

	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/models"
)

// categorizeProviderError tags an upstream API failure with a retry category.
// HTTP 429 maps to rate_limit, 5xx and transport errors to network, deadline
// expiry to timeout, other 4xx to validation. Errors that cannot be classified
// pass through unchanged and are treated as unknown downstream.
func categorizeProviderError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return models.Categorize(models.CategoryTimeout, err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return models.Categorize(categoryForHTTPStatus(apiErr.HTTPStatusCode), err)
	}
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return models.Categorize(categoryForHTTPStatus(gErr.Code), err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return models.Categorize(models.CategoryTimeout, err)
		}
		return models.Categorize(models.CategoryNetwork, err)
	}
	return err
}

func categoryForHTTPStatus(status int) models.ErrorCategory {
	switch {
	case status == http.StatusTooManyRequests:
		return models.CategoryRateLimit
	case status == http.StatusRequestTimeout:
		return models.CategoryTimeout
	case status >= http.StatusInternalServerError:
		return models.CategoryNetwork
	case status >= http.StatusBadRequest:
		return models.CategoryValidation
	default:
		return models.CategoryUnknown
	}
}
