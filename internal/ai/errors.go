package ai

import (
	"errors"
	"fmt"
	"time"
)

// AuthError is a 401/403 answer.
type AuthError struct{ *APIError }

func (e *AuthError) Error() string { return "authentication failed: " + e.APIError.Error() }
func (e *AuthError) Unwrap() error { return e.APIError }

// RateLimitError is a 429 answer. RetryAfter is zero when the provider sent
// no hint.
type RateLimitError struct {
	*APIError
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited: wait about %ds before retrying: %s", int(e.RetryAfter.Seconds()), e.APIError.Error())
	}
	return "rate limited: " + e.APIError.Error()
}

func (e *RateLimitError) Unwrap() error { return e.APIError }

// ModelNotFoundError means the requested model is not served.
type ModelNotFoundError struct{ *APIError }

func (e *ModelNotFoundError) Error() string { return "model not found: " + e.APIError.Error() }
func (e *ModelNotFoundError) Unwrap() error { return e.APIError }

// BadRequestError is a 400 validation failure.
type BadRequestError struct{ *APIError }

func (e *BadRequestError) Error() string { return "bad request: " + e.APIError.Error() }
func (e *BadRequestError) Unwrap() error { return e.APIError }

// QuotaExceededError signals billing or quota exhaustion.
type QuotaExceededError struct{ *APIError }

func (e *QuotaExceededError) Error() string { return "quota exceeded: " + e.APIError.Error() }
func (e *QuotaExceededError) Unwrap() error { return e.APIError }

// ServerError is a 5xx answer.
type ServerError struct{ *APIError }

func (e *ServerError) Error() string { return "provider error: " + e.APIError.Error() }
func (e *ServerError) Unwrap() error { return e.APIError }

// UnreachableError means the runtime could not be contacted at all.
type UnreachableError struct {
	Host string
	Err  error
}

func (e *UnreachableError) Error() string {
	if e == nil {
		return "unreachable"
	}
	if e.Host != "" {
		return fmt.Sprintf("endpoint unreachable at %s: %v", e.Host, e.Err)
	}
	return fmt.Sprintf("endpoint unreachable: %v", e.Err)
}

func (e *UnreachableError) Unwrap() error { return e.Err }

// Hint returns a short remediation line for err, or "".
func Hint(err error) string {
	var (
		auth  *AuthError
		rate  *RateLimitError
		model *ModelNotFoundError
		quota *QuotaExceededError
		unr   *UnreachableError
	)
	switch {
	case errors.As(err, &auth):
		return "check the API key (config set api_key / anthropic_api_key or the provider env variable)"
	case errors.As(err, &rate):
		return "the provider is rate limiting; retry later or raise retry_max_attempts"
	case errors.As(err, &model):
		return "the model is not available; pick another with --model (for Ollama, run 'ollama pull <model>')"
	case errors.As(err, &quota):
		return "the provider account is out of credit"
	case errors.As(err, &unr):
		return "start the local runtime or set ollama_host"
	}
	return ""
}
