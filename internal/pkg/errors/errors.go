package errors

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrInvalid        = errors.New("invalid")
	ErrConflict       = errors.New("conflict")
	ErrTooMany        = errors.New("too many requests")
	ErrInternal       = errors.New("internal")
	ErrEmptyQuery     = errors.New("query is empty")
	ErrAIUnavailable  = errors.New("ai provider unavailable")
	ErrIndexCorrupted = errors.New("index corrupted")
	ErrBuiltinSpace   = errors.New("builtin namespace cannot be deleted")
	ErrSpaceNotEmpty  = errors.New("namespace still owns documents")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsInvalid(err error) bool {
	return errors.Is(err, ErrInvalid)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
