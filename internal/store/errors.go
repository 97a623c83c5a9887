package store

import "errors"

var (
	ErrNotFound  = errors.New("store: resource not found")
	ErrDuplicate = errors.New("store: duplicate resource")
	ErrConflict  = errors.New("store: conflicting resource state")
	// ErrTerminal is returned when an update targets a task that already
	// reached a terminal status.
	ErrTerminal = errors.New("store: task already in terminal state")
	// ErrRetriesExhausted is returned when an increment would push retries
	// past max_retries.
	ErrRetriesExhausted = errors.New("store: retry budget exhausted")
)
