package importer

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

// Kind partitions import failures into the three classes the transport layer
// maps to HTTP statuses: unreadable files, invalid configuration, and failed
// persistence.
type Kind int

const (
	KindParse Kind = iota
	KindValidation
	KindCommit
)

const (
	codeParseFailed      = "PARSE_FAILED"
	codeValidationFailed = "VALIDATION_FAILED"
	codeConfirmFailed    = "CONFIRM_FAILED"
)

// RowError is a single row- or field-level violation. Row 0 marks payload-level
// problems (bad rule set, bad mapping) rather than a specific data row.
type RowError struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Value   string `json:"value"`
	Message string `json:"error"`
}

// Error is the tagged-variant failure type for the import pipeline.
// Row-level data problems never become an Error; they accumulate as RowError
// values and the offending rows are dropped.
type Error struct {
	Kind       Kind
	Message    string
	Details    map[string]any
	Violations []RowError
	BatchID    *uuid.UUID
}

func (e *Error) Error() string {
	return e.Message
}

// Code returns the machine-readable error code for the envelope.
func (e *Error) Code() string {
	switch e.Kind {
	case KindValidation:
		return codeValidationFailed
	case KindCommit:
		return codeConfirmFailed
	default:
		return codeParseFailed
	}
}

// Status returns the HTTP status class the surrounding transport should use.
func (e *Error) Status() int {
	if e.Kind == KindCommit {
		return http.StatusInternalServerError
	}
	return http.StatusUnprocessableEntity
}

func newParseError(message string, details map[string]any) *Error {
	return &Error{Kind: KindParse, Message: message, Details: details}
}

func newValidationError(violations []RowError) *Error {
	return &Error{
		Kind:       KindValidation,
		Message:    fmt.Sprintf("Validation failed with %d error(s)", len(violations)),
		Violations: violations,
	}
}

func newCommitError(message string, batchID *uuid.UUID) *Error {
	return &Error{Kind: KindCommit, Message: message, BatchID: batchID}
}
