package sontag

import (
	"errors"
	"fmt"
)

// SyntaxError reports a delimiter that is not valid in the current parsing
// context, e.g. a stray "}}" in literal content.
type SyntaxError struct {
	Template string
	Line     int
	Message  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error in %s at line %d: %s", e.Template, e.Line, e.Message)
}

// NewSyntaxError creates a new syntax error with position information.
func NewSyntaxError(template string, line int, message string) error {
	return &SyntaxError{Template: template, Line: line, Message: message}
}

// UnknownTagError reports a tag name that is not registered in the tag
// registry. Unrecognized tags are always fatal, never a silent no-op.
type UnknownTagError struct {
	Template string
	Line     int
	Name     string
}

func (e *UnknownTagError) Error() string {
	return fmt.Sprintf("unknown tag %q in %s at line %d", e.Name, e.Template, e.Line)
}

// NewUnknownTagError creates a new unknown tag error.
func NewUnknownTagError(template string, line int, name string) error {
	return &UnknownTagError{Template: template, Line: line, Name: name}
}

// MalformedTagError reports a tag signature that does not match the
// "<name> <rest>" shape, or arguments the tag could not parse.
type MalformedTagError struct {
	Template  string
	Line      int
	Signature string
	Cause     error
}

func (e *MalformedTagError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("malformed tag %q in %s at line %d: %v", e.Signature, e.Template, e.Line, e.Cause)
	}
	return fmt.Sprintf("malformed tag %q in %s at line %d", e.Signature, e.Template, e.Line)
}

func (e *MalformedTagError) Unwrap() error {
	return e.Cause
}

// NewMalformedTagError creates a new malformed tag error.
func NewMalformedTagError(template string, line int, signature string, cause error) error {
	return &MalformedTagError{Template: template, Line: line, Signature: signature, Cause: cause}
}

// MismatchedCloseError reports an End or Inside tag whose family does not
// match the tag currently open at the cursor.
type MismatchedCloseError struct {
	Template string
	Line     int
	Name     string
	Open     string // name of the tag open at the cursor, empty if none
}

func (e *MismatchedCloseError) Error() string {
	if e.Open != "" {
		return fmt.Sprintf("tag %q in %s at line %d does not match open tag %q", e.Name, e.Template, e.Line, e.Open)
	}
	return fmt.Sprintf("tag %q in %s at line %d has no matching open tag", e.Name, e.Template, e.Line)
}

// NewMismatchedCloseError creates a new mismatched close error.
func NewMismatchedCloseError(template string, line int, name, open string) error {
	return &MismatchedCloseError{Template: template, Line: line, Name: name, Open: open}
}

// UnterminatedConstructError reports input that ends in the middle of a tag,
// expression, or comment, or with unclosed Start tags.
type UnterminatedConstructError struct {
	Template  string
	Line      int
	Construct string // "tag", "expression", "comment", or the unclosed tag name
}

func (e *UnterminatedConstructError) Error() string {
	return fmt.Sprintf("unterminated %s in %s at line %d", e.Construct, e.Template, e.Line)
}

// NewUnterminatedConstructError creates a new unterminated construct error.
func NewUnterminatedConstructError(template string, line int, construct string) error {
	return &UnterminatedConstructError{Template: template, Line: line, Construct: construct}
}

// EvaluationError represents an error during expression evaluation.
type EvaluationError struct {
	Expression string
	Cause      error
}

func (e *EvaluationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("evaluation error for expression '%s': %v", e.Expression, e.Cause)
	}
	return fmt.Sprintf("evaluation error for expression '%s'", e.Expression)
}

func (e *EvaluationError) Unwrap() error {
	return e.Cause
}

// NewEvaluationError creates a new evaluation error.
func NewEvaluationError(expression string, cause error) error {
	return &EvaluationError{Expression: expression, Cause: cause}
}

// LoadError represents a failure of the template loader collaborator. It is
// distinct from parse and evaluation errors so callers can tell a missing
// template apart from a broken one.
type LoadError struct {
	Name  string
	Cause error
}

func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("cannot load template %q: %v", e.Name, e.Cause)
	}
	return fmt.Sprintf("cannot load template %q", e.Name)
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

// NewLoadError creates a new load error.
func NewLoadError(name string, cause error) error {
	return &LoadError{Name: name, Cause: cause}
}

// IsSyntaxError checks if an error is a syntax error.
func IsSyntaxError(err error) bool {
	var target *SyntaxError
	return errors.As(err, &target)
}

// IsUnknownTagError checks if an error is an unknown tag error.
func IsUnknownTagError(err error) bool {
	var target *UnknownTagError
	return errors.As(err, &target)
}

// IsMalformedTagError checks if an error is a malformed tag error.
func IsMalformedTagError(err error) bool {
	var target *MalformedTagError
	return errors.As(err, &target)
}

// IsMismatchedCloseError checks if an error is a mismatched close error.
func IsMismatchedCloseError(err error) bool {
	var target *MismatchedCloseError
	return errors.As(err, &target)
}

// IsUnterminatedConstructError checks if an error is an unterminated construct error.
func IsUnterminatedConstructError(err error) bool {
	var target *UnterminatedConstructError
	return errors.As(err, &target)
}

// IsEvaluationError checks if an error is an evaluation error.
func IsEvaluationError(err error) bool {
	var target *EvaluationError
	return errors.As(err, &target)
}

// IsLoadError checks if an error is a load error.
func IsLoadError(err error) bool {
	var target *LoadError
	return errors.As(err, &target)
}
