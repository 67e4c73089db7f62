package cache

import "errors"

var (
	// ErrInvalidCapacity is returned when MaxEntries is not positive.
	ErrInvalidCapacity = errors.New("cache capacity must be greater than 0")

	// ErrInvalidTTL is returned when TTL is negative.
	ErrInvalidTTL = errors.New("cache TTL cannot be negative")
)
