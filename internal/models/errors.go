// Package models defines the shared error taxonomy for AI operations.
package models

import "fmt"

// ConfigurationError indicates a missing API key or an unresolvable model
// configuration. It is fatal to the triggering operation and never retried.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

// NewConfigurationError creates a ConfigurationError with a formatted reason.
func NewConfigurationError(format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}

// ProviderError indicates an HTTP or provider-level failure from a
// chat-completion backend. Rate-limit-shaped instances are retried by the
// retry policy; everything else surfaces to the caller.
type ProviderError struct {
	Status  int    // HTTP status code, 0 if unknown
	Code    string // provider status string such as RESOURCE_EXHAUSTED
	Message string // raw provider message
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("provider error (status %d, %s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("provider error (status %d): %s", e.Status, e.Message)
}
