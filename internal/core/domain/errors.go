package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates authentication failed or missing
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the caller lacks permission for this action
	ErrForbidden = errors.New("forbidden")

	// ErrTokenExpired indicates the auth token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid indicates the auth token is malformed or invalid
	ErrTokenInvalid = errors.New("token invalid")

	// ErrSweepInProgress indicates another sweep holds the corpus
	ErrSweepInProgress = errors.New("sweep already in progress")

	// ErrNotReady indicates the fact checker has not finished initialising
	ErrNotReady = errors.New("fact checker not ready")

	// ErrInvalidProvider indicates an unknown embedding provider was specified
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrServiceUnavailable indicates an external service could not be reached
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrFileTooLarge indicates a document exceeds the configured size ceiling
	ErrFileTooLarge = errors.New("file too large")

	// ErrUnreadable indicates a document could not be opened for extraction
	ErrUnreadable = errors.New("document unreadable")

	// ErrNoText indicates extraction or cleaning left no usable text
	ErrNoText = errors.New("no text extracted")

	// ErrNoChunks indicates chunking produced no valid chunks
	ErrNoChunks = errors.New("no valid chunks")

	// ErrMemoryCeiling indicates process memory stayed above the ceiling after reclaim
	ErrMemoryCeiling = errors.New("memory ceiling exceeded")

	// ErrStemConflict indicates another document already owns the chunk ids of this document's stem
	ErrStemConflict = errors.New("document stem already in use")

	// ErrDistanceOutOfRange indicates the vector store returned a distance outside [0,1]
	ErrDistanceOutOfRange = errors.New("distance out of range")
)
