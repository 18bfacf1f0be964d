package quarry

import (
	"errors"
	"fmt"
	"strings"
)

// Standard sentinel errors. Every typed error below matches one of them
// through errors.Is.
var (
	// ErrValidation is matched by every ValidationError.
	ErrValidation = errors.New("quarry: invalid statement")

	// ErrCompilation is matched by every CompilationError.
	ErrCompilation = errors.New("quarry: statement not supported by dialect")

	// ErrExecution is matched by every ExecutionError.
	ErrExecution = errors.New("quarry: execution failed")

	// ErrTransactionState is matched by every TransactionStateError.
	ErrTransactionState = errors.New("quarry: illegal transaction transition")

	// ErrNotFound is returned when a query expecting one row returns none.
	ErrNotFound = errors.New("quarry: no rows")

	// ErrNotSingular is returned when a query expecting one row returns more.
	ErrNotSingular = errors.New("quarry: more than one row")

	// ErrRunnerSuspended is returned when a runner declared synchronous
	// hands back a result that is not yet resolved.
	ErrRunnerSuspended = errors.New("quarry: synchronous runner suspended")

	// ErrConcurrentUse is returned when a second statement is issued on a
	// connection while another one is still in flight.
	ErrConcurrentUse = errors.New("quarry: connection used concurrently")
)

// ValidationError is raised while building or checking a statement tree,
// before anything is compiled or sent to a runner.
type ValidationError struct {
	Op  string // Statement or clause being validated
	Err error  // Underlying problem
}

// Error returns the error string.
func (e *ValidationError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("quarry: invalid statement: %v", e.Err)
	}
	return fmt.Sprintf("quarry: invalid %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Is reports whether the target error matches ErrValidation.
func (e *ValidationError) Is(err error) bool {
	return err == ErrValidation
}

// NewValidationError returns a new ValidationError.
func NewValidationError(op string, err error) *ValidationError {
	return &ValidationError{Op: op, Err: err}
}

// Validationf returns a ValidationError with a formatted message.
func Validationf(op, format string, args ...any) *ValidationError {
	return &ValidationError{Op: op, Err: fmt.Errorf(format, args...)}
}

// IsValidationError returns true if the error is a ValidationError.
func IsValidationError(err error) bool {
	if err == nil {
		return false
	}
	var e *ValidationError
	return errors.As(err, &e)
}

// CompilationError is raised when the active dialect cannot express a
// statement.
type CompilationError struct {
	Dialect string // Dialect name
	Feature string // Feature that is not supported
}

// Error returns the error string.
func (e *CompilationError) Error() string {
	return fmt.Sprintf("quarry: %s is not supported by %s", e.Feature, e.Dialect)
}

// Is reports whether the target error matches ErrCompilation.
func (e *CompilationError) Is(err error) bool {
	return err == ErrCompilation
}

// NewCompilationError returns a new CompilationError.
func NewCompilationError(dialect, feature string) *CompilationError {
	return &CompilationError{Dialect: dialect, Feature: feature}
}

// IsCompilationError returns true if the error is a CompilationError.
func IsCompilationError(err error) bool {
	if err == nil {
		return false
	}
	var e *CompilationError
	return errors.As(err, &e)
}

// ExecutionError wraps an error surfaced by a runner. The driver error is
// kept as is and is reachable through errors.Unwrap.
type ExecutionError struct {
	Op  string // Operation (e.g. "select", "insert", "commit")
	SQL string // Statement text, empty for transaction control
	Err error  // Runner error
}

// Error returns the error string.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("quarry: %s: %v", e.Op, e.Err)
}

// Unwrap returns the runner error.
func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// Is reports whether the target error matches ErrExecution.
func (e *ExecutionError) Is(err error) bool {
	return err == ErrExecution
}

// NewExecutionError returns a new ExecutionError.
func NewExecutionError(op, sql string, err error) *ExecutionError {
	return &ExecutionError{Op: op, SQL: sql, Err: err}
}

// IsExecutionError returns true if the error is an ExecutionError.
func IsExecutionError(err error) bool {
	if err == nil {
		return false
	}
	var e *ExecutionError
	return errors.As(err, &e)
}

// TransactionStateError is returned on an illegal transaction transition,
// such as a commit without an active transaction or a nested begin.
type TransactionStateError struct {
	Op    string // Requested transition ("begin", "commit", "rollback", ...)
	State string // State the connection was in
}

// Error returns the error string.
func (e *TransactionStateError) Error() string {
	return fmt.Sprintf("quarry: cannot %s while %s", e.Op, e.State)
}

// Is reports whether the target error matches ErrTransactionState.
func (e *TransactionStateError) Is(err error) bool {
	return err == ErrTransactionState
}

// NewTransactionStateError returns a new TransactionStateError.
func NewTransactionStateError(op, state string) *TransactionStateError {
	return &TransactionStateError{Op: op, State: state}
}

// IsTransactionStateError returns true if the error is a TransactionStateError.
func IsTransactionStateError(err error) bool {
	if err == nil {
		return false
	}
	var e *TransactionStateError
	return errors.As(err, &e)
}

// NotFoundError represents a select-one query that returned no rows.
type NotFoundError struct {
	label string
}

// Error returns the error string.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("quarry: %s returned no rows", e.label)
}

// Is reports whether the target error matches ErrNotFound.
func (e *NotFoundError) Is(err error) bool {
	return err == ErrNotFound
}

// Label returns the source label.
func (e *NotFoundError) Label() string {
	return e.label
}

// NewNotFoundError returns a new NotFoundError for the given source.
func NewNotFoundError(label string) *NotFoundError {
	return &NotFoundError{label: label}
}

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *NotFoundError
	return errors.As(err, &e) || errors.Is(err, ErrNotFound)
}

// NotSingularError represents a select-one query that returned more than
// one row.
type NotSingularError struct {
	label string
	count int
}

// Error returns the error string.
func (e *NotSingularError) Error() string {
	return fmt.Sprintf("quarry: %s returned %d rows, expected 1", e.label, e.count)
}

// Is reports whether the target error matches ErrNotSingular.
func (e *NotSingularError) Is(err error) bool {
	return err == ErrNotSingular
}

// Count returns the number of rows.
func (e *NotSingularError) Count() int {
	return e.count
}

// NewNotSingularError returns a new NotSingularError with the row count.
func NewNotSingularError(label string, count int) *NotSingularError {
	return &NotSingularError{label: label, count: count}
}

// IsNotSingular returns true if the error is a NotSingularError.
func IsNotSingular(err error) bool {
	if err == nil {
		return false
	}
	var e *NotSingularError
	return errors.As(err, &e) || errors.Is(err, ErrNotSingular)
}

// AggregateError represents multiple errors collected during validation.
type AggregateError struct {
	Errors []error
}

// Error returns the error string.
func (e *AggregateError) Error() string {
	if len(e.Errors) == 0 {
		return "quarry: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	sb.WriteString("quarry: multiple errors:")
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "\n  [%d] %v", i+1, err)
	}
	return sb.String()
}

// Unwrap returns the collected errors.
func (e *AggregateError) Unwrap() []error {
	return e.Errors
}

// NewAggregateError returns a new AggregateError if there are errors,
// otherwise returns nil.
func NewAggregateError(errs ...error) error {
	var filtered []error
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &AggregateError{Errors: filtered}
}
