package ai

import "errors"

// ErrUnavailable marks a provider that is configured but cannot serve calls,
// typically a missing API key.
var ErrUnavailable = errors.New("ai provider unavailable")
