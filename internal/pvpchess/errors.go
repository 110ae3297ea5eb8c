package pvpchess

import (
	"errors"
	"fmt"
)

// Code classifies a domain error.
type Code string

const (
	CodeUnauthenticated Code = "UNAUTHENTICATED"
	CodeNotFound        Code = "NOT_FOUND"
	CodeForbidden       Code = "FORBIDDEN"
	CodeBadRequest      Code = "BAD_REQUEST"
)

// Error is a user-facing rejection. Key names a message catalog entry.
type Error struct {
	Code    Code
	Key     string
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

func newErr(code Code, key, format string, args ...any) *Error {
	return &Error{Code: code, Key: key, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the domain code from err, or "" for infrastructure errors.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

var (
	// ErrGameNotFound is returned by stores when the id has no record.
	ErrGameNotFound = errors.New("game not found")
	// ErrConcurrentUpdate means the write lost an optimistic race too many times
	// and was not applied.
	ErrConcurrentUpdate = errors.New("concurrent update, retry")
	// ErrDuplicateGame is returned by Insert when the id already exists.
	ErrDuplicateGame = errors.New("game already exists")
)

func errNotFound(id string) *Error {
	return newErr(CodeNotFound, "errors.not_found", "game %s not found", id)
}

func errUnauthenticated() *Error {
	return newErr(CodeUnauthenticated, "errors.unauthenticated", "no player identity")
}
