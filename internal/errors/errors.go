// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Standard sentinel errors
var (
	ErrSchemaMismatch    = errors.New("schema mismatch")
	ErrUnknownFormat     = errors.New("unknown broker format")
	ErrOverClose         = errors.New("close exceeds open quantity")
	ErrUnknownMultiplier = errors.New("unknown instrument multiplier")
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrRunNotFound       = errors.New("run not found")
	ErrUsage             = errors.New("invalid usage")
)

// ParseError represents a failure to parse a broker export file. Row is
// the 1-based row where parsing failed, zero when the whole file is bad.
type ParseError struct {
	Broker string
	File   string
	Row    int
	Err    error
}

func (e *ParseError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("parse error [%s] %s row %d: %v", e.Broker, e.File, e.Row, e.Err)
	}
	return fmt.Sprintf("parse error [%s] %s: %v", e.Broker, e.File, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError.
func NewParseError(broker, file string, row int, err error) *ParseError {
	return &ParseError{
		Broker: broker,
		File:   file,
		Row:    row,
		Err:    err,
	}
}

// DetectError reports that no adapter fingerprint matched a file's header
// row. It wraps ErrUnknownFormat.
type DetectError struct {
	File    string
	Headers []string
}

func (e *DetectError) Error() string {
	return fmt.Sprintf("%s: no adapter matches headers [%s]", e.File, strings.Join(e.Headers, ", "))
}

func (e *DetectError) Unwrap() error {
	return ErrUnknownFormat
}

// NewDetectError creates a new DetectError.
func NewDetectError(file string, headers []string) *DetectError {
	return &DetectError{
		File:    file,
		Headers: headers,
	}
}

// ChargeError represents a failure to price an instrument's trades.
type ChargeError struct {
	Symbol string
	Err    error
}

func (e *ChargeError) Error() string {
	return fmt.Sprintf("charge error [%s]: %v", e.Symbol, e.Err)
}

func (e *ChargeError) Unwrap() error {
	return e.Err
}

// NewChargeError creates a new ChargeError.
func NewChargeError(symbol string, err error) *ChargeError {
	return &ChargeError{
		Symbol: symbol,
		Err:    err,
	}
}

// ValidationError represents a configuration validation error. It wraps
// ErrInvalidConfig.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidConfig
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New returns an error with the given text.
func New(text string) error {
	return errors.New(text)
}
