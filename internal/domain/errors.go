package domain

import "errors"

var (
	// ErrInvalidConfig is returned when an analysis config violates its preconditions
	ErrInvalidConfig = errors.New("invalid analysis configuration")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheUnavailable is returned when cache service is unavailable
	ErrCacheUnavailable = errors.New("cache service unavailable")

	// ErrEnrichmentFailure is returned when the entity-extraction service fails
	ErrEnrichmentFailure = errors.New("enrichment request failed")

	// ErrEmptyCSV is returned when an export contains no header or rows
	ErrEmptyCSV = errors.New("csv export is empty")
)
