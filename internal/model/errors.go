package model

import "errors"

var (
	// Store errors.
	ErrDuplicateID     = errors.New("queuectl: job id already exists")
	ErrNotFound        = errors.New("queuectl: job not found")
	ErrStoreContention = errors.New("queuectl: store is busy")

	// State errors.
	ErrInvalidTransition = errors.New("queuectl: invalid state transition")
	ErrInvalidState      = errors.New("queuectl: job state does not permit this operation")

	// Enqueue input errors.
	ErrInvalidJSON    = errors.New("queuectl: invalid job JSON")
	ErrMissingID      = errors.New("queuectl: missing job id")
	ErrMissingCommand = errors.New("queuectl: missing job command")
)
