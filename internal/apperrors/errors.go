package apperrors

import "errors"

// Kind classifies a store error so the transport layer can pick a status code
// without inspecting messages.
type Kind int

const (
	KindBadRequest Kind = iota + 1
	KindForbidden
	KindNotFound
	KindConflict
)

// Error is a kinded store error. Stores return it on the first violated
// precondition; the surrounding transaction rolls back.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// BadRequest marks malformed or policy-violating input.
func BadRequest(msg string) error {
	return &Error{Kind: KindBadRequest, Message: msg}
}

// Forbidden marks an authenticated but unauthorized action.
func Forbidden(msg string) error {
	return &Error{Kind: KindForbidden, Message: msg}
}

// NotFound marks a missing referenced entity.
func NotFound(msg string) error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// Conflict marks a uniqueness violation surfaced by the database, typically
// when a race defeats an application-level check.
func Conflict(msg string) error {
	return &Error{Kind: KindConflict, Message: msg}
}

// KindOf reports the kind of err, or false when err is not a kinded Error.
func KindOf(err error) (Kind, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind, true
	}
	return 0, false
}
