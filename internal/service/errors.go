package service

import (
	"errors"

	"github.com/timmy/quill/internal/llm"
)

var (
	// ErrModelUnavailable is returned at submission when no provider family
	// can serve the requested model.
	ErrModelUnavailable = llm.ErrModelUnavailable

	ErrInvalidRequest   = errors.New("invalid generation request")
	ErrAlreadyRunning   = errors.New("generation already running for this article")
	ErrNotPending       = errors.New("article is not pending")
	ErrCancelled        = errors.New("generation cancelled")
	ErrPersistence      = errors.New("failed to persist generation result")
	ErrLengthCorrection = errors.New("length correction failed")
	ErrRegistryClosed   = errors.New("task registry is shut down")
)

// ErrNotCompleted is returned when a completed article is required.
var ErrNotCompleted = errors.New("article is not completed")
