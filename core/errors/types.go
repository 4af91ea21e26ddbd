// ABOUTME: Custom error types for the core business logic
// ABOUTME: Provides the fetch error taxonomy plus validation, config and provider errors

package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a failed fetch attempt
type Kind int

const (
	KindUnknown Kind = iota
	KindRobotsDisallowed
	KindRateLimited
	KindBotDetected
	KindServerError
	KindClientError
	KindTransportError
	KindThinContent
	KindParseError
	KindTimeout
	KindCancelled
)

var kindNames = map[Kind]string{
	KindUnknown:          "Unknown",
	KindRobotsDisallowed: "RobotsDisallowed",
	KindRateLimited:      "RateLimited",
	KindBotDetected:      "BotDetected",
	KindServerError:      "ServerError",
	KindClientError:      "ClientError",
	KindTransportError:   "TransportError",
	KindThinContent:      "ThinContent",
	KindParseError:       "ParseError",
	KindTimeout:          "Timeout",
	KindCancelled:        "Cancelled",
}

// String returns the taxonomy name
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Retryable reports whether the same strategy may be attempted again
func (k Kind) Retryable() bool {
	switch k {
	case KindRateLimited, KindBotDetected, KindServerError, KindClientError, KindTransportError, KindUnknown:
		return true
	}
	return false
}

// FetchError is a classified failure of a single fetch attempt
type FetchError struct {
	Kind       Kind
	Strategy   string
	StatusCode int
	URL        string
	Err        error
}

// Error implements the error interface
func (e *FetchError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Strategy != "" {
		fmt.Fprintf(&b, " via %s", e.Strategy)
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (HTTP %d)", e.StatusCode)
	}
	if e.URL != "" {
		fmt.Fprintf(&b, " for %s", e.URL)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying cause
func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError builds a FetchError
func NewFetchError(kind Kind, strategy, url string, statusCode int, cause error) *FetchError {
	return &FetchError{Kind: kind, Strategy: strategy, URL: url, StatusCode: statusCode, Err: cause}
}

// ClassifyStatus maps a non-2xx HTTP status to its taxonomy kind
func ClassifyStatus(code int) Kind {
	switch {
	case code == http.StatusTooManyRequests:
		return KindRateLimited
	case code == http.StatusForbidden:
		return KindBotDetected
	case code >= 500:
		return KindServerError
	case code >= 400:
		return KindClientError
	}
	return KindUnknown
}

// Classify derives the kind of an arbitrary error
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	var apiErr *ExternalAPIError
	if errors.As(err, &apiErr) {
		return ClassifyStatus(apiErr.StatusCode)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	if errors.Is(err, context.Canceled) {
		return KindCancelled
	}
	return KindTransportError
}

// KindOf returns the kind of err if it is a FetchError, else KindUnknown
func KindOf(err error) Kind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// IsRobotsDisallowed checks if an error is a robots disallow
func IsRobotsDisallowed(err error) bool { return KindOf(err) == KindRobotsDisallowed }

// IsRateLimited checks if an error is an HTTP 429
func IsRateLimited(err error) bool { return KindOf(err) == KindRateLimited }

// IsBotDetected checks if an error is an HTTP 403
func IsBotDetected(err error) bool { return KindOf(err) == KindBotDetected }

// IsServerError checks if an error is an HTTP 5xx
func IsServerError(err error) bool { return KindOf(err) == KindServerError }

// IsTransport checks if an error is a DNS, connection or socket failure
func IsTransport(err error) bool { return KindOf(err) == KindTransportError }

// IsThinContent checks if an error reports thin content
func IsThinContent(err error) bool { return KindOf(err) == KindThinContent }

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// ConfigError is a startup configuration problem. These are the only fatal errors.
type ConfigError struct {
	Setting string
	Message string
	Err     error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error for %s: %s: %v", e.Setting, e.Message, e.Err)
	}
	return fmt.Sprintf("configuration error for %s: %s", e.Setting, e.Message)
}

// Unwrap returns the underlying cause
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ExternalAPIError represents an error from an external API
type ExternalAPIError struct {
	StatusCode int
	Message    string
	API        string
}

// Error implements the error interface
func (e *ExternalAPIError) Error() string {
	return fmt.Sprintf("external API error from %s: %d - %s", e.API, e.StatusCode, e.Message)
}

// IsValidation checks if an error is a ValidationError
func IsValidation(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

// IsConfig checks if an error is a ConfigError
func IsConfig(err error) bool {
	var configErr *ConfigError
	return errors.As(err, &configErr)
}

// IsExternalAPI checks if an error is an ExternalAPIError
func IsExternalAPI(err error) bool {
	var apiErr *ExternalAPIError
	return errors.As(err, &apiErr)
}

// WrapError wraps an error with additional context
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
