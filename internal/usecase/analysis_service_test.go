package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/serpprice/backend/internal/domain"
)

// MockCacheRepository is a mock implementation of domain.CacheRepository
type MockCacheRepository struct {
	data        map[string][]byte
	getError    error
	setError    error
	setCalls    int
	clearCalled bool
	deletedKeys []string
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{
		data: make(map[string][]byte),
	}
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	if value, ok := m.data[key]; ok {
		return value, nil
	}
	return nil, domain.ErrCacheMiss
}

func (m *MockCacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.setCalls++
	if m.setError != nil {
		return m.setError
	}
	m.data[key] = value
	return nil
}

func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	m.deletedKeys = append(m.deletedKeys, key)
	delete(m.data, key)
	return nil
}

func (m *MockCacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := m.data[key]
	return ok, nil
}

func (m *MockCacheRepository) Clear(ctx context.Context) error {
	m.clearCalled = true
	m.data = make(map[string][]byte)
	return nil
}

// MockEnrichmentClient is a mock implementation of domain.EnrichmentClient
type MockEnrichmentClient struct {
	feature domain.FeatureSet
	err     error
	calls   int
	titles  [][]string
}

func (m *MockEnrichmentClient) ExtractFeatures(ctx context.Context, titles []string) ([]domain.FeatureSet, error) {
	m.calls++
	m.titles = append(m.titles, titles)
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.FeatureSet, len(titles))
	for i := range out {
		out[i] = m.feature
	}
	return out, nil
}

func (m *MockEnrichmentClient) Provider() string {
	return "mock"
}

func specsConfig() domain.AnalysisConfig {
	return domain.AnalysisConfig{
		SellerDomain: "pccomponentes.com",
		SellerPrice:  899,
		Query:        "msi cyborg 15",
		MatchBySpecs: true,
	}
}

func newEnrichedService(cache *MockCacheRepository, client *MockEnrichmentClient) *AnalysisService {
	return NewAnalysisService(cache, client, AnalysisServiceConfig{EnableEnrichment: true})
}

func TestNewAnalysisService(t *testing.T) {
	tests := []struct {
		name             string
		client           domain.EnrichmentClient
		config           AnalysisServiceConfig
		expectedTTL      time.Duration
		expectEnrichment bool
	}{
		{
			name:             "defaults",
			client:           &MockEnrichmentClient{},
			config:           AnalysisServiceConfig{EnableEnrichment: true},
			expectedTTL:      720 * time.Hour,
			expectEnrichment: true,
		},
		{
			name:             "custom ttl",
			client:           &MockEnrichmentClient{},
			config:           AnalysisServiceConfig{CacheTTL: time.Hour},
			expectedTTL:      time.Hour,
			expectEnrichment: false,
		},
		{
			name:             "enrichment without client",
			client:           nil,
			config:           AnalysisServiceConfig{EnableEnrichment: true},
			expectedTTL:      720 * time.Hour,
			expectEnrichment: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := NewAnalysisService(NewMockCacheRepository(), tt.client, tt.config)

			if service.cacheTTL != tt.expectedTTL {
				t.Errorf("Expected TTL %v, got %v", tt.expectedTTL, service.cacheTTL)
			}
			if service.enableEnrichment != tt.expectEnrichment {
				t.Errorf("Expected enrichment %v, got %v", tt.expectEnrichment, service.enableEnrichment)
			}
			if service.analyzer == nil {
				t.Error("Expected analyzer to be initialized")
			}
		})
	}
}

func TestAnalysisService_Analyze(t *testing.T) {
	t.Run("invalid config fails before enrichment", func(t *testing.T) {
		client := &MockEnrichmentClient{}
		service := newEnrichedService(NewMockCacheRepository(), client)

		_, err := service.Analyze(context.Background(), cyborgListings(), domain.AnalysisConfig{SellerDomain: "x.es"})

		if !errors.Is(err, domain.ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig, got %v", err)
		}
		if client.calls != 0 {
			t.Errorf("Expected no enrichment calls, got %d", client.calls)
		}
	})

	t.Run("null product is rejected before enrichment", func(t *testing.T) {
		client := &MockEnrichmentClient{}
		service := newEnrichedService(NewMockCacheRepository(), client)
		products := append(cyborgListings(), nil)

		result, err := service.Analyze(context.Background(), products, specsConfig())

		if !errors.Is(err, domain.ErrInvalidRequest) {
			t.Errorf("Expected ErrInvalidRequest, got %v", err)
		}
		if result != nil {
			t.Errorf("Expected no result, got %+v", result)
		}
		if client.calls != 0 {
			t.Errorf("Expected no enrichment calls, got %d", client.calls)
		}
	})

	t.Run("extracts specs without enrichment", func(t *testing.T) {
		service := NewAnalysisService(nil, nil, AnalysisServiceConfig{})
		products := cyborgListings()

		result, err := service.Analyze(context.Background(), products, specsConfig())
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		if result.ID == "" {
			t.Error("Expected analysis ID")
		}
		if result.Enriched {
			t.Error("Expected enrichment to be skipped")
		}
		if products[0].Specs == nil || products[0].Specs.ModelCode != "B13WFKG-687XES" {
			t.Errorf("Expected extracted specs, got %+v", products[0].Specs)
		}
		if result.Analysis.YourPriceRank != 2 {
			t.Errorf("Expected rank 2, got %d", result.Analysis.YourPriceRank)
		}
	})

	t.Run("enrichment overlays specs and is cached", func(t *testing.T) {
		cache := NewMockCacheRepository()
		client := &MockEnrichmentClient{feature: domain.FeatureSet{RAMGB: 32, OS: "Windows 11"}}
		service := newEnrichedService(cache, client)

		for i := 0; i < 2; i++ {
			products := cyborgListings()
			result, err := service.Analyze(context.Background(), products, specsConfig())
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if !result.Enriched {
				t.Error("Expected enriched result")
			}
			if products[0].Specs.RAMGB != 32 || products[0].Specs.OS != "Windows 11" {
				t.Errorf("Expected enriched specs, got %+v", products[0].Specs)
			}
			if products[0].Specs.GPU != "RTX 4060" {
				t.Errorf("Expected regex specs to survive, got %+v", products[0].Specs)
			}
		}

		if client.calls != 1 {
			t.Errorf("Expected 1 enrichment call, got %d", client.calls)
		}
		if cache.setCalls != 1 {
			t.Errorf("Expected 1 cache write, got %d", cache.setCalls)
		}
		for key := range cache.data {
			if !strings.HasPrefix(key, "enrich:mock:") {
				t.Errorf("Unexpected cache key %q", key)
			}
		}
	})

	t.Run("enriched GPU without a tier refreshes the tier", func(t *testing.T) {
		client := &MockEnrichmentClient{feature: domain.FeatureSet{GPU: "RTX 5070"}}
		service := newEnrichedService(NewMockCacheRepository(), client)
		products := cyborgListings()

		if _, err := service.Analyze(context.Background(), products, specsConfig()); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		specs := products[0].Specs
		if specs.GPU != "RTX 5070" || specs.GPUTier != "RTX 50xx" {
			t.Errorf("Expected RTX 5070 in tier RTX 50xx, got %q / %q", specs.GPU, specs.GPUTier)
		}
		if !strings.Contains(specs.TierKey(), "RTX 50xx") {
			t.Errorf("Expected tier key to follow the new GPU, got %q", specs.TierKey())
		}
	})

	t.Run("enriched GPU outside the tier table clears the stale tier", func(t *testing.T) {
		client := &MockEnrichmentClient{feature: domain.FeatureSet{GPU: "Arc A770"}}
		service := newEnrichedService(NewMockCacheRepository(), client)
		products := cyborgListings()

		if _, err := service.Analyze(context.Background(), products, specsConfig()); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		if tier := products[0].Specs.GPUTier; tier != "" {
			t.Errorf("Expected no tier for an unknown GPU, got %q", tier)
		}
	})

	t.Run("token strategy with brand clusters skips enrichment", func(t *testing.T) {
		client := &MockEnrichmentClient{}
		service := newEnrichedService(NewMockCacheRepository(), client)
		cfg := specsConfig()
		cfg.MatchBySpecs = false

		result, err := service.Analyze(context.Background(), cyborgListings(), cfg)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if result.Enriched || client.calls != 0 {
			t.Errorf("Expected no enrichment, got %d calls", client.calls)
		}
	})

	t.Run("enrichment failure is returned", func(t *testing.T) {
		client := &MockEnrichmentClient{err: domain.ErrEnrichmentFailure}
		service := newEnrichedService(NewMockCacheRepository(), client)

		_, err := service.Analyze(context.Background(), cyborgListings(), specsConfig())

		if !errors.Is(err, domain.ErrEnrichmentFailure) {
			t.Errorf("Expected ErrEnrichmentFailure, got %v", err)
		}
	})

	t.Run("cache errors do not fail the analysis", func(t *testing.T) {
		cache := NewMockCacheRepository()
		cache.getError = domain.ErrCacheUnavailable
		cache.setError = domain.ErrCacheUnavailable
		client := &MockEnrichmentClient{feature: domain.FeatureSet{RAMGB: 32}}
		service := newEnrichedService(cache, client)

		result, err := service.Analyze(context.Background(), cyborgListings(), specsConfig())
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if !result.Enriched || client.calls != 1 {
			t.Errorf("Expected enrichment despite cache errors, got %d calls", client.calls)
		}
	})

	t.Run("duplicate titles are enriched once", func(t *testing.T) {
		client := &MockEnrichmentClient{}
		service := newEnrichedService(NewMockCacheRepository(), client)
		products := append(cyborgListings(), &domain.ProductRecord{
			Title: "msi cyborg 15 b13wfkg-687xes 16gb 1tb rtx 4060", Price: 860, Store: "x.es", URL: "x",
		})

		if _, err := service.Analyze(context.Background(), products, specsConfig()); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if len(client.titles) != 1 || len(client.titles[0]) != 2 {
			t.Errorf("Expected one call with 2 distinct titles, got %v", client.titles)
		}
	})
}

func TestAnalysisService_CacheKey(t *testing.T) {
	service := newEnrichedService(NewMockCacheRepository(), &MockEnrichmentClient{})

	keysA, _ := distinctTitles([]string{"MSI Cyborg 15", "Acer Nitro V"})
	keysB, _ := distinctTitles([]string{"acer nitro v", "msi  cyborg 15", "MSI Cyborg 15"})
	keysC, _ := distinctTitles([]string{"MSI Cyborg 17"})

	a, b, c := service.generateCacheKey(keysA), service.generateCacheKey(keysB), service.generateCacheKey(keysC)
	if a != b {
		t.Errorf("Expected order and case independent keys, got %q and %q", a, b)
	}
	if a == c {
		t.Errorf("Expected different titles to produce different keys")
	}
	if !strings.HasPrefix(a, "enrich:mock:") {
		t.Errorf("Unexpected key format %q", a)
	}
}

func TestAnalysisService_EvictAndClear(t *testing.T) {
	cache := NewMockCacheRepository()
	client := &MockEnrichmentClient{feature: domain.FeatureSet{RAMGB: 32}}
	service := newEnrichedService(cache, client)
	ctx := context.Background()

	if _, err := service.Analyze(ctx, cyborgListings(), specsConfig()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	titles := []string{cyborgListings()[1].Title, cyborgListings()[0].Title}
	if err := service.EvictTitles(ctx, titles); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(cache.data) != 0 {
		t.Errorf("Expected eviction to remove the entry, %d left", len(cache.data))
	}

	if _, err := service.Analyze(ctx, cyborgListings(), specsConfig()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if client.calls != 2 {
		t.Errorf("Expected re-enrichment after eviction, got %d calls", client.calls)
	}

	if err := service.ClearCache(ctx); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !cache.clearCalled {
		t.Error("Expected cache to be cleared")
	}
}

func TestAnalysisService_AnalyzeCSV(t *testing.T) {
	service := NewAnalysisService(nil, nil, AnalysisServiceConfig{})
	export := `Rank,Type,Domain,Link,Anchor
1,Shopping Ads,www.pccomponentes.com,https://www.pccomponentes.com/msi,"MSI Cyborg 15 B13WFKG-687XES 899,00 €"
2,Shopping Ads,amazon.es,https://www.amazon.es/dp/1,"MSI Cyborg 15 B13WFKG-687XES 849,00 €"
3,Organic,www.idealo.es,https://www.idealo.es/x,"MSI Cyborg 15 desde 800 €"
`

	result, stats, err := service.AnalyzeCSV(context.Background(), strings.NewReader(export), specsConfig())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if stats.Kept != 2 || stats.Skipped != 1 {
		t.Errorf("Unexpected stats %+v", stats)
	}
	if result.Analysis.YourPriceRank != 2 {
		t.Errorf("Expected rank 2, got %d", result.Analysis.YourPriceRank)
	}
	if result.Analysis.YourSERPPosition == nil || *result.Analysis.YourSERPPosition != 2 {
		t.Errorf("Expected SERP position 2 after price ordering, got %v", result.Analysis.YourSERPPosition)
	}

	_, _, err = service.AnalyzeCSV(context.Background(), strings.NewReader(""), specsConfig())
	if !errors.Is(err, domain.ErrEmptyCSV) {
		t.Errorf("Expected ErrEmptyCSV, got %v", err)
	}
}

func TestAnalysisService_CompareTitles(t *testing.T) {
	service := NewAnalysisService(nil, nil, AnalysisServiceConfig{})

	tests := []struct {
		name          string
		a, b          string
		strategy      domain.MatchStrategy
		expectedLevel domain.MatchLevel
		expectedErr   error
	}{
		{"tokens default", "Samsung Galaxy S24 Ultra 256GB Negro", "Samsung Galaxy S24 Ultra 256GB Titanium Black", "", domain.MatchExact, nil},
		{"tokens unrelated", "MSI Cyborg 15 Gaming", "Cecotec Conga 9090 Robot", domain.StrategyTokens, domain.MatchDifferent, nil},
		{"specs model code", "MSI Cyborg 15 B13WFKG-687XES", "Portátil B13WFKG-687XES 16GB", domain.StrategySpecs, domain.MatchExact, nil},
		{"empty title", "", "x", domain.StrategyTokens, domain.MatchDifferent, domain.ErrInvalidRequest},
		{"unknown strategy", "a", "b", "fuzzy", domain.MatchDifferent, domain.ErrInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := service.CompareTitles(tt.a, tt.b, tt.strategy)

			if tt.expectedErr != nil {
				if !errors.Is(err, tt.expectedErr) {
					t.Errorf("Expected %v, got %v", tt.expectedErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if result.Level != tt.expectedLevel {
				t.Errorf("Expected %s, got %s (%.3f)", tt.expectedLevel, result.Level, result.Score)
			}
			if result.Label == "" {
				t.Error("Expected display label")
			}
			if tt.strategy == domain.StrategySpecs && (result.SpecsA == nil || result.Spec == nil) {
				t.Error("Expected spec details")
			}
		})
	}
}
