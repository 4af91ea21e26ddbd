// ABOUTME: Error handling utilities for API handlers
// ABOUTME: Converts domain errors to appropriate HTTP responses

package handlers

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"

	coreerrors "content-fetch-api/core/errors"
)

// toHumaError converts domain errors to appropriate Huma HTTP errors
func toHumaError(err error) error {
	if err == nil {
		return nil
	}

	if coreerrors.IsValidation(err) {
		return huma.Error400BadRequest(err.Error())
	}

	if coreerrors.IsConfig(err) {
		return huma.Error503ServiceUnavailable("Service not configured for this operation", err)
	}

	var apiErr *coreerrors.ExternalAPIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode >= 500:
			return huma.Error503ServiceUnavailable("External service error", err)
		case apiErr.StatusCode == 429:
			return huma.Error429TooManyRequests("Rate limited by external service")
		case apiErr.StatusCode == 401 || apiErr.StatusCode == 403:
			return huma.Error502BadGateway("Search provider rejected the credential", err)
		case apiErr.StatusCode >= 400:
			return huma.Error502BadGateway("External service request error", err)
		default:
			return huma.Error500InternalServerError("Unexpected external service response", err)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return huma.Error504GatewayTimeout("Request timed out", err)
	}

	return huma.Error500InternalServerError("Internal server error", err)
}
