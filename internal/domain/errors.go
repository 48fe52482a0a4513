package domain

import "errors"

// Remote-service errors. Mutation paths propagate these to the caller;
// background reads never do.
var (
	ErrNotFound     = errors.New("record not found")
	ErrUnauthorized = errors.New("not authorized")
	ErrRemote       = errors.New("remote service unavailable")
)
