package errcode

const (
	ErrUnknown = 10000000 + iota
	ErrNotFound
	ErrInvalid
	ErrConflict
	ErrTooMany
	ErrInternal
	ErrEmptyQuery
	ErrInvalidFile
	ErrUploadFailed
	ErrAIUnavailable
	ErrIndexCorrupted
	ErrBuiltinSpace
	ErrSpaceNotEmpty
)
