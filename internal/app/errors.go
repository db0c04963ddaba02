// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package app

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can branch on its category instead of
// matching concrete error values.
type Kind uint8

const (
	// KindUnknown is an unclassified failure. It is treated like a permanent
	// error by the sync engine.
	KindUnknown Kind = iota
	// KindNetwork is a transport failure or a 5xx response. Retryable once
	// connectivity returns.
	KindNetwork
	// KindAuth is a missing, expired or rejected credential.
	KindAuth
	// KindValidation is a payload the server refused to accept.
	KindValidation
	// KindConflict is a write that collided with the server state
	// (duplicate id, missing target of an update).
	KindConflict
	// KindStorage is a failure of the local durable store.
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindAuth:
		return "auth"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindStorage:
		return "storage"
	default:
		return "unknown"
	}
}

// Sentinel errors, one per kind. Every *Error unwraps to the sentinel of its
// kind, so errors.Is(err, ErrNetwork) works across package boundaries.
var (
	ErrNetwork    = errors.New("network error")
	ErrAuth       = errors.New("auth error")
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict error")
	ErrStorage    = errors.New("storage error")
	ErrUnknown    = errors.New("unknown error")
)

func sentinel(k Kind) error {
	switch k {
	case KindNetwork:
		return ErrNetwork
	case KindAuth:
		return ErrAuth
	case KindValidation:
		return ErrValidation
	case KindConflict:
		return ErrConflict
	case KindStorage:
		return ErrStorage
	default:
		return ErrUnknown
	}
}

// Error is a classified failure produced by one of the engine components.
type Error struct {
	Kind Kind
	// Op names the operation that failed, e.g. "gateway.Insert".
	Op  string
	Err error
}

// E builds a classified error. A nil err yields the bare sentinel of kind
// wrapped with op.
func E(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, sentinel(e.Kind))
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, sentinel(e.Kind), e.Err)
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{sentinel(e.Kind)}
	}
	return []error{sentinel(e.Kind), e.Err}
}

// KindOf returns the kind of the outermost classified error in err's chain.
// Plain sentinels are recognized as well; context cancellation and deadline
// errors are reported as network failures.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}

	switch {
	case errors.Is(err, ErrNetwork):
		return KindNetwork
	case errors.Is(err, ErrAuth):
		return KindAuth
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrStorage):
		return KindStorage
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return KindNetwork
	}
	return KindUnknown
}

// IsRetryable reports whether an operation that failed with err should stay
// queued for a later attempt.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindNetwork, KindAuth:
		return true
	default:
		return false
	}
}
