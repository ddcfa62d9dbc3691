package models

import (
	"errors"
	"strings"
)

// Error kinds surfaced to callers. Every failure maps to exactly one.
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidParent      = errors.New("invalid parent")
	ErrForbidden          = errors.New("forbidden")
	ErrValidation         = errors.New("validation failed")
	ErrConflict           = errors.New("concurrent update conflict")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// ErrorKind is the stable name of an error class
type ErrorKind string

const (
	KindNotFound           ErrorKind = "not_found"
	KindInvalidParent      ErrorKind = "invalid_parent"
	KindForbidden          ErrorKind = "forbidden"
	KindValidation         ErrorKind = "validation"
	KindConflict           ErrorKind = "conflict"
	KindStorageUnavailable ErrorKind = "storage_unavailable"
)

var kinds = []struct {
	err  error
	kind ErrorKind
}{
	{ErrNotFound, KindNotFound},
	{ErrInvalidParent, KindInvalidParent},
	{ErrForbidden, KindForbidden},
	{ErrValidation, KindValidation},
	{ErrConflict, KindConflict},
	{ErrStorageUnavailable, KindStorageUnavailable},
}

// KindOf classifies err. Errors outside the taxonomy are treated as
// storage failures.
func KindOf(err error) ErrorKind {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindStorageUnavailable
}

// IsRetryable reports whether err may succeed on a later attempt
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindConflict, KindStorageUnavailable:
		return true
	}
	return false
}

// ValidationError represents a single invalid input field
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// ValidationErrors is a set of invalid fields. It matches ErrValidation.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, e := range v {
		parts = append(parts, e.Field+": "+e.Message)
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (v ValidationErrors) Unwrap() error {
	return ErrValidation
}
