package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations.
// Values are opaque encoded bytes so memory and Redis backends behave alike.
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Clear(ctx context.Context) error
}

// EnrichmentClient extracts structured features from listing titles.
// It returns one FeatureSet per title, in order; empty sets mean "nothing found".
type EnrichmentClient interface {
	ExtractFeatures(ctx context.Context, titles []string) ([]FeatureSet, error)
	Provider() string
}
