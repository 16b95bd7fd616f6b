package client

import (
	"errors"
	"fmt"
	"time"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")
)

// ErrorClass represents a classification of failed function calls.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx errors other than 429.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 Too Many Requests.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents transport errors and timeouts.
	ErrorClassNetwork ErrorClass = "network"
)

// FunctionError is a non-2xx answer from a backend function.
type FunctionError struct {
	Function   string
	StatusCode int
	ErrorClass ErrorClass

	// Message is the function's own error text when it sent one, else the HTTP status.
	Message string

	// RetryAfter is parsed from the Retry-After header on 429/503.
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *FunctionError) Error() string {
	return fmt.Sprintf("function %s %s error (status %d): %s",
		e.Function, e.ErrorClass, e.StatusCode, e.Message)
}

// Message returns text suitable for an end user: the function's own message
// when err wraps a FunctionError, otherwise err.Error().
func Message(err error) string {
	if err == nil {
		return ""
	}
	var fe *FunctionError
	if errors.As(err, &fe) && fe.Message != "" {
		return fe.Message
	}
	return err.Error()
}

// classifyStatus maps an HTTP status to an ErrorClass.
func classifyStatus(status int) ErrorClass {
	switch {
	case status == 429:
		return ErrorClassRateLimit
	case status >= 400 && status < 500:
		return ErrorClassClient
	case status >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// shouldRetry determines if an error class is worth another attempt.
func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassServer, ErrorClassRateLimit, ErrorClassNetwork:
		return true
	default:
		// 4xx answers are deterministic; retrying only burns quota.
		return false
	}
}
