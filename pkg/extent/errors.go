package extent

import "errors"

var (
	// ErrTooManyRequests is returned by Begin when every in-flight slot is taken.
	ErrTooManyRequests = errors.New("too many requests in flight")

	// ErrNotFound is returned when no tracked request has the given id.
	ErrNotFound = errors.New("request not found")

	// ErrAlreadyStarted is returned by Begin for a request that was begun before.
	ErrAlreadyStarted = errors.New("request already started")

	// ErrEnded is returned by Begin when the request was ended while it waited.
	ErrEnded = errors.New("request ended while waiting")
)
