package core

import (
	"errors"
	"fmt"
)

// Kind classifies an error so every boundary (HTTP, client, CLI) can react to
// it without string matching.
type Kind string

const (
	KindValidation        Kind = "validation"
	KindNotFound          Kind = "not_found"
	KindAmbiguousTarget   Kind = "ambiguous_target"
	KindUnsupportedFormat Kind = "unsupported_format"
	KindEmptyContext      Kind = "empty_context"
	KindUpstream          Kind = "upstream"
	KindAuthentication    Kind = "authentication"
	KindConflict          Kind = "conflict"
	KindInternal          Kind = "internal"
)

// Sentinels usable with errors.Is.
var (
	ErrValidation        = &Error{Kind: KindValidation}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrAmbiguousTarget   = &Error{Kind: KindAmbiguousTarget}
	ErrUnsupportedFormat = &Error{Kind: KindUnsupportedFormat}
	ErrEmptyContext      = &Error{Kind: KindEmptyContext}
	ErrUpstream          = &Error{Kind: KindUpstream}
	ErrAuthentication    = &Error{Kind: KindAuthentication}
	ErrConflict          = &Error{Kind: KindConflict}
)

// Error is the typed error surfaced by every core operation.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind so that errors.Is(err, core.ErrNotFound) works for any
// not-found error regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Msg == ""
}

func newErr(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func Validation(op, format string, args ...any) error {
	return newErr(KindValidation, op, format, args...)
}

func NotFound(op, format string, args ...any) error {
	return newErr(KindNotFound, op, format, args...)
}

func AmbiguousTarget(op string, candidates int) error {
	return newErr(KindAmbiguousTarget, op, "%d workspaces exist, an explicit target workspace is required", candidates)
}

func UnsupportedFormat(op, format string, args ...any) error {
	return newErr(KindUnsupportedFormat, op, format, args...)
}

func EmptyContext(op, workspaceID string) error {
	return newErr(KindEmptyContext, op, "workspace %s has no papers to reason over", workspaceID)
}

func Authentication(op, format string, args ...any) error {
	return newErr(KindAuthentication, op, format, args...)
}

func Conflict(op, format string, args ...any) error {
	return newErr(KindConflict, op, format, args...)
}

// Upstream wraps a collaborator failure (index, LLM, object storage).
func Upstream(op string, err error) error {
	return &Error{Kind: KindUpstream, Op: op, Msg: "upstream collaborator failed", Err: err}
}

// KindOf reports the Kind of err, or KindInternal for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the caller-facing message of err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Msg != "" {
		return e.Msg
	}
	return err.Error()
}
