// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package errors defines the structured error taxonomy used across the
// casualty-generation pipeline (spec §7).
package errors

import (
	"fmt"
	"time"
)

// Code identifies the kind of failure, independent of its Go type.
type Code string

const (
	CodeValidation          Code = "VALIDATION_ERROR"
	CodeConfiguration       Code = "CONFIGURATION_ERROR"
	CodeScheduleBuild       Code = "SCHEDULE_BUILD_ERROR"
	CodeGeneration          Code = "GENERATION_ERROR"
	CodeSerialization       Code = "SERIALIZATION_ERROR"
	CodeIO                  Code = "IO_ERROR"
	CodeCompression         Code = "COMPRESSION_ERROR"
	CodeEncryption          Code = "ENCRYPTION_ERROR"
	CodeResourceLimit       Code = "RESOURCE_LIMIT_EXCEEDED"
	CodeCancelled           Code = "CANCELLED"
	CodeNotFound            Code = "NOT_FOUND"
	CodeNotReady            Code = "NOT_READY"
	CodeRateLimitExceeded   Code = "RATE_LIMIT_EXCEEDED"
)

// Category groups related codes for coarse handling (e.g. "is this terminal?").
type Category string

const (
	CategoryInput    Category = "INPUT"
	CategoryPipeline Category = "PIPELINE"
	CategoryOutput   Category = "OUTPUT"
	CategoryResource Category = "RESOURCE"
	CategoryControl  Category = "CONTROL"
)

// Error is a structured error carrying a taxonomy code and category.
type Error struct {
	Code      Code
	Category  Category
	Message   string
	Details   string
	Timestamp time.Time
	Cause     error
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause to errors.Is/As.
func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target carries the same Code.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == other.Code
}

// IsTerminal reports whether this error ends a job's lifecycle (vs. a
// control-plane query error like NotFound/NotReady).
func (e *Error) IsTerminal() bool {
	switch e.Code {
	case CodeNotFound, CodeNotReady, CodeValidation, CodeRateLimitExceeded:
		return false
	default:
		return true
	}
}

func categoryFor(code Code) Category {
	switch code {
	case CodeValidation, CodeRateLimitExceeded:
		return CategoryInput
	case CodeConfiguration, CodeScheduleBuild, CodeGeneration:
		return CategoryPipeline
	case CodeSerialization, CodeIO, CodeCompression, CodeEncryption:
		return CategoryOutput
	case CodeResourceLimit:
		return CategoryResource
	case CodeCancelled, CodeNotFound, CodeNotReady:
		return CategoryControl
	default:
		return CategoryPipeline
	}
}

// New creates a structured error with no underlying cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Category: categoryFor(code), Message: message, Timestamp: time.Now()}
}

// Wrap creates a structured error wrapping cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Category: categoryFor(code), Message: message, Timestamp: time.Now(), Cause: cause}
}

// WithDetails attaches a sanitized (no key material, no private paths)
// details string to an existing error and returns it for chaining.
func (e *Error) WithDetails(details string) *Error {
	e.Details = details
	return e
}
