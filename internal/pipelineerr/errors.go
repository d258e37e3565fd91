// Package pipelineerr implements the structured error taxonomy shared by
// every pipeline stage: Parse, IO, Database, Duplicate, and Fatal errors,
// each carrying enough context for a worker to decide whether to recover,
// retry once, or stop the pipeline.
package pipelineerr

import (
	"fmt"
	"time"
)

// Kind classifies an Error for stage-worker recovery decisions.
type Kind string

const (
	KindParse     Kind = "parse"     // malformed input file, per-record, non-fatal
	KindIO        Kind = "io"        // filesystem error, per-record, non-fatal; counted, not retried
	KindDatabase  Kind = "database"  // transaction failure, retry-once then fail the batch
	KindDuplicate Kind = "duplicate" // not an error: content hash already stored
	KindFatal     Kind = "fatal"     // stops the pipeline: DB pool lost, disk exhausted, panic
)

// Error is the structured error type every stage returns instead of a bare
// error, so the orchestrator can branch on Kind without string matching.
type Error struct {
	Kind      Kind
	Component string
	Operation string
	Message   string
	Cause     error
	FileID    int64
	At        time.Time
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %s: %v", e.Component, e.Operation, e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s: %s", e.Component, e.Operation, e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// IsRecoverable reports whether the pipeline should continue past this
// error (count it and move on) rather than stop. Only KindFatal halts the
// pipeline.
func (e *Error) IsRecoverable() bool {
	return e.Kind != KindFatal
}

func New(kind Kind, component, operation, message string) *Error {
	return &Error{Kind: kind, Component: component, Operation: operation, Message: message, At: time.Now()}
}

func (e *Error) Wrap(cause error) *Error {
	e.Cause = cause
	return e
}

func (e *Error) WithFile(id int64) *Error {
	e.FileID = id
	return e
}

func Parse(component, operation, message string) *Error {
	return New(KindParse, component, operation, message)
}

func IO(component, operation, message string) *Error {
	return New(KindIO, component, operation, message)
}

func Database(component, operation, message string) *Error {
	return New(KindDatabase, component, operation, message)
}

func Duplicate(component, operation, message string) *Error {
	return New(KindDuplicate, component, operation, message)
}

func Fatal(component, operation, message string) *Error {
	return New(KindFatal, component, operation, message)
}

// As reports whether err is a *Error and returns it.
func As(err error) (*Error, bool) {
	e, ok := err.(*Error)
	return e, ok
}

// IsKind reports whether err is a *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}
