package store

import "errors"

var (
	// ErrStorage wraps every durable-storage failure surfaced by Save and Clear.
	ErrStorage = errors.New("token storage failure")
	// ErrSealed is returned when a sealed value cannot be opened.
	ErrSealed = errors.New("sealed value cannot be opened")
)
