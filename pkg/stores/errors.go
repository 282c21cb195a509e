package stores

import (
	"database/sql"
	"errors"
	"fmt"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrorClass classifies a store failure.
type ErrorClass string

const (
	// ErrorClassValidation indicates the caller passed an unusable argument.
	ErrorClassValidation ErrorClass = "validation"

	// ErrorClassNotFound indicates the referenced record does not exist.
	ErrorClassNotFound ErrorClass = "not_found"

	// ErrorClassConstraint indicates the engine rejected a statement because
	// it violates a NOT NULL, UNIQUE or FOREIGN KEY constraint.
	ErrorClassConstraint ErrorClass = "constraint"

	// ErrorClassEngine covers malformed statements and any other engine failure.
	ErrorClassEngine ErrorClass = "engine"

	// ErrorClassClosed indicates the store was used before Init or after Close.
	ErrorClassClosed ErrorClass = "closed"
)

// Common error codes.
const (
	ErrCodeNotInitialized = "NOT_INITIALIZED"
	ErrCodeClosed         = "CLOSED"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeForeignKey     = "FOREIGN_KEY"
	ErrCodeConstraint     = "CONSTRAINT"
	ErrCodeInvalidArg     = "INVALID_ARGUMENT"
	ErrCodeReadOnly       = "READ_ONLY"
	ErrCodeInternal       = "INTERNAL_ERROR"
)

// StoreError is a classified record store error.
type StoreError struct {
	// Class is the error classification.
	Class ErrorClass `json:"class"`

	// Code is an optional error code for programmatic handling.
	Code string `json:"code,omitempty"`

	// Op is the store operation that failed.
	Op string `json:"op,omitempty"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Err is the underlying error.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Class, msg, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Class, msg)
}

// Unwrap returns the underlying error for error chain inspection.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is matches another *StoreError with the same class and code. An empty
// code on the target matches any code.
func (e *StoreError) Is(target error) bool {
	t, ok := target.(*StoreError)
	if !ok {
		return false
	}
	return e.Class == t.Class && (t.Code == "" || e.Code == t.Code)
}

// WithOp sets the failing operation.
func (e *StoreError) WithOp(op string) *StoreError {
	e.Op = op
	return e
}

// WithCode sets an error code.
func (e *StoreError) WithCode(code string) *StoreError {
	e.Code = code
	return e
}

func newStoreError(class ErrorClass, code, message string, err error) *StoreError {
	return &StoreError{
		Class:   class,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewNotFoundError creates a not_found error.
func NewNotFoundError(message string) *StoreError {
	return newStoreError(ErrorClassNotFound, ErrCodeNotFound, message, nil)
}

// NewValidationError creates a validation error.
func NewValidationError(message string) *StoreError {
	return newStoreError(ErrorClassValidation, ErrCodeInvalidArg, message, nil)
}

// errClosed is returned by every operation once the store is closed.
func errClosed() *StoreError {
	return newStoreError(ErrorClassClosed, ErrCodeClosed, "store is closed", nil)
}

// errNotInitialized is returned by every operation before Init.
func errNotInitialized() *StoreError {
	return newStoreError(ErrorClassClosed, ErrCodeNotInitialized, "database not initialized", nil)
}

// classify wraps an engine error in a StoreError, distinguishing constraint
// violations from everything else.
func classify(op, message string, err error) error {
	if err == nil {
		return nil
	}

	var se *StoreError
	if errors.As(err, &se) {
		return err
	}

	if errors.Is(err, sql.ErrConnDone) {
		return newStoreError(ErrorClassClosed, ErrCodeClosed, message, err).WithOp(op)
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		if code&0xff == sqlite3.SQLITE_CONSTRAINT {
			errCode := ErrCodeConstraint
			if code == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY {
				errCode = ErrCodeForeignKey
			}
			return newStoreError(ErrorClassConstraint, errCode, message, err).WithOp(op)
		}
	}

	return newStoreError(ErrorClassEngine, ErrCodeInternal, message, err).WithOp(op)
}

// classifyQuery is classify for Query, where a write attempt is the
// caller's mistake rather than an engine failure.
func classifyQuery(message string, err error) error {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code()&0xff == sqlite3.SQLITE_READONLY {
		return newStoreError(ErrorClassValidation, ErrCodeReadOnly, "statement is not read-only", err).WithOp("query")
	}
	return classify("query", message, err)
}

// IsNotFound returns true if the error is classified as not_found.
func IsNotFound(err error) bool {
	return hasClass(err, ErrorClassNotFound)
}

// IsConstraint returns true if the error is a constraint violation.
func IsConstraint(err error) bool {
	return hasClass(err, ErrorClassConstraint)
}

// IsClosed returns true if the store was not usable (closed or never opened).
func IsClosed(err error) bool {
	return hasClass(err, ErrorClassClosed)
}

// IsValidation returns true if the error is classified as validation.
func IsValidation(err error) bool {
	return hasClass(err, ErrorClassValidation)
}

// Class returns the class of a store error, or the empty class.
func Class(err error) ErrorClass {
	var e *StoreError
	if errors.As(err, &e) {
		return e.Class
	}
	return ""
}

func hasClass(err error, class ErrorClass) bool {
	return Class(err) == class
}
