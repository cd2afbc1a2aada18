package providers

import (
	"errors"
	"fmt"
)

// FailureKind classifies why a provider call failed. Retry policy is keyed
// off the kind, not off error string matching.
type FailureKind string

const (
	FailureTransient        FailureKind = "transient"
	FailureAuth             FailureKind = "auth"
	FailureQuota            FailureKind = "quota"
	FailureEmptyResponse    FailureKind = "empty_response"
	FailureMalformedRequest FailureKind = "malformed_request"
	FailureTimeout          FailureKind = "timeout"
	// FailureInternal records a recovered panic on one provider's
	// enrichment path; never retried, never aborts siblings.
	FailureInternal FailureKind = "assembly_internal"
)

// Retryable reports whether an adapter may spend another attempt on this kind.
// Malformed requests are special-cased by the adapters: one retry, degraded payload.
func (k FailureKind) Retryable() bool {
	switch k {
	case FailureTransient, FailureEmptyResponse, FailureMalformedRequest:
		return true
	}
	return false
}

// ErrQuotaExceeded indicates the provider returned a quota/limit error (HTTP 429 or similar).
var ErrQuotaExceeded = errors.New("provider quota exceeded")

// ErrUnauthorized indicates the provider rejected our credentials.
var ErrUnauthorized = errors.New("provider rejected credentials")

// CallError carries the failure taxonomy alongside the underlying error so
// retry handling stays data-driven.
type CallError struct {
	Kind FailureKind
	Err  error
}

func (e *CallError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

// NewCallError wraps err with a failure kind.
func NewCallError(kind FailureKind, err error) *CallError {
	return &CallError{Kind: kind, Err: err}
}
