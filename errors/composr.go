package errors

import (
	"encoding/json"
	"fmt"
)

// Kind is the closed enumeration of composr failure categories.
type Kind string

const (
	// KindMissingInput marks a missing domain, item, id or id list at a
	// top-level entry point.
	KindMissingInput Kind = "missing_input"

	// KindMissingDriver marks an operation attempted before a remote driver
	// was installed.
	KindMissingDriver Kind = "missing_driver"

	// KindCompilation marks an item whose compile hook rejected it.
	KindCompilation Kind = "compilation_failure"

	// KindValidation marks an item whose validator or model constructor
	// rejected it.
	KindValidation Kind = "validation_failure"

	// KindRemote marks a failed call against the remote collection store.
	KindRemote Kind = "remote_operation"

	// KindNotFound marks a lookup against a key that is not present.
	KindNotFound Kind = "not_found"
)

// Codes carried by MissingInput / MissingDriver errors. They keep the
// historical string values so logs stay greppable.
const (
	CodeMissingDomain = "missing:domain"
	CodeMissingItems  = "missing:items"
	CodeMissingID     = "missing:id"
	CodeMissingIDs    = "missing:ids"
	CodeMissingDriver = "missing:driver"
)

// ComposrError is the structured error surfaced by managers and DAOs.
type ComposrError struct {
	// Kind identifies the error category.
	Kind Kind

	// Code is a short machine-readable identifier, e.g. "missing:domain".
	Code string

	// Message is a human-readable description.
	Message string

	// Status is the remote HTTP status for KindRemote, zero otherwise.
	Status int

	// Details is the decoded remote response body, if any.
	Details any

	cause error
}

// Error implements the error interface.
func (e *ComposrError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Code
	}
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status=%d)", msg, e.Status)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

// Unwrap returns the underlying cause, if any.
func (e *ComposrError) Unwrap() error {
	return e.cause
}

// Is reports whether target is a ComposrError of the same kind. A target
// with a Code also has to match the code.
func (e *ComposrError) Is(target error) bool {
	t, ok := target.(*ComposrError)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// NewMissingInput creates a MissingInput error for the given code.
func NewMissingInput(code string) *ComposrError {
	return &ComposrError{Kind: KindMissingInput, Code: code, Message: code}
}

// NewMissingDriver creates the error returned when no remote driver is set.
func NewMissingDriver() *ComposrError {
	return &ComposrError{Kind: KindMissingDriver, Code: CodeMissingDriver, Message: CodeMissingDriver}
}

// NewCompilationFailure wraps a compile-stage rejection. cause may be nil
// when the compiler signalled failure without an error.
func NewCompilationFailure(id string, cause error) *ComposrError {
	return &ComposrError{
		Kind:    KindCompilation,
		Code:    "compilation:failed",
		Message: fmt.Sprintf("item %q failed to compile", id),
		cause:   cause,
	}
}

// NewValidationFailure wraps a validate-stage rejection.
func NewValidationFailure(id string, cause error) *ComposrError {
	return &ComposrError{
		Kind:    KindValidation,
		Code:    "validation:failed",
		Message: fmt.Sprintf("item %q failed validation", id),
		cause:   cause,
	}
}

// NewRemoteError translates a remote response into a ComposrError. data is
// the raw response body; when it decodes as JSON the decoded value is kept
// in Details, an "error" field refines Code and an "errorDescription" field
// is appended to Message.
func NewRemoteError(data []byte, message string, status int) *ComposrError {
	e := &ComposrError{
		Kind:    KindRemote,
		Code:    "remote:error",
		Message: message,
		Status:  status,
	}
	if len(data) == 0 {
		return e
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		e.Details = string(data)
		return e
	}
	e.Details = decoded
	if code, ok := decoded["error"].(string); ok && code != "" {
		e.Code = code
	}
	if desc, ok := decoded["errorDescription"].(string); ok && desc != "" {
		e.Message += ": " + desc
	}
	return e
}

// WithCause returns a copy of e wrapping cause.
func (e *ComposrError) WithCause(cause error) *ComposrError {
	c := *e
	c.cause = cause
	return &c
}

// KindOf returns the Kind of the first ComposrError in err's chain, or the
// empty Kind.
func KindOf(err error) Kind {
	var ce *ComposrError
	if As(err, &ce) {
		return ce.Kind
	}
	return ""
}

// IsMissingInput reports whether err is a MissingInput error.
func IsMissingInput(err error) bool {
	return KindOf(err) == KindMissingInput
}

// IsMissingDriver reports whether err is a MissingDriver error.
func IsMissingDriver(err error) bool {
	return KindOf(err) == KindMissingDriver
}

// IsRemote reports whether err is a RemoteOperation error.
func IsRemote(err error) bool {
	return KindOf(err) == KindRemote
}

// StatusOf returns the remote status carried by err, or 0.
func StatusOf(err error) int {
	var ce *ComposrError
	if As(err, &ce) {
		return ce.Status
	}
	return 0
}
