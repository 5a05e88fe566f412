package domain

import "errors"

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrProjectNotFound signals a missing project.
	ErrProjectNotFound = errors.New("project not found")
	// ErrInvalidCredential signals a missing or rejected answer-engine credential.
	ErrInvalidCredential = errors.New("invalid engine credential")
	// ErrRateLimited signals a rate limit from the answer engine.
	ErrRateLimited = errors.New("rate limited")
	// ErrEngineUnavailable signals a transport failure or malformed engine response.
	ErrEngineUnavailable = errors.New("answer engine unavailable")
	// ErrStorageUnavailable signals that the result store cannot be reached.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrEmptyQuery signals an empty query text.
	ErrEmptyQuery = errors.New("empty query text")
)
