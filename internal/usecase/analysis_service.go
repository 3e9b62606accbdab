package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/serpprice/backend/internal/domain"
	"github.com/serpprice/backend/internal/infrastructure/csvimport"
)

const defaultEnrichmentTTL = 720 * time.Hour // 30 days

// AnalysisServiceConfig holds configuration for the analysis service
type AnalysisServiceConfig struct {
	CacheTTL         time.Duration
	EnableEnrichment bool
	Analyzer         PriceAnalyzerConfig
}

// AnalysisService validates a request, enriches listing specs when an
// extraction client is configured, and runs the price analyzer
type AnalysisService struct {
	cache            domain.CacheRepository
	enricher         domain.EnrichmentClient
	analyzer         *PriceAnalyzer
	cacheTTL         time.Duration
	enableEnrichment bool
}

// AnalysisResult wraps one analysis run with its identifier
type AnalysisResult struct {
	ID       string                `json:"id"`
	Enriched bool                  `json:"enriched"`
	Analysis *domain.PriceAnalysis `json:"analysis"`
}

// TitleComparison is the outcome of comparing two titles directly
type TitleComparison struct {
	Strategy domain.MatchStrategy     `json:"strategy"`
	Score    float64                  `json:"score"`
	Level    domain.MatchLevel        `json:"level"`
	Label    string                   `json:"label"`
	Token    *domain.TokenMatchResult `json:"token,omitempty"`
	Spec     *domain.SpecMatchResult  `json:"spec,omitempty"`
	SpecsA   *domain.ProductSpecs     `json:"specs_a,omitempty"`
	SpecsB   *domain.ProductSpecs     `json:"specs_b,omitempty"`
}

// NewAnalysisService creates a new analysis service with dependencies.
// cache and enricher may be nil; enrichment is then skipped.
func NewAnalysisService(
	cache domain.CacheRepository,
	enricher domain.EnrichmentClient,
	config AnalysisServiceConfig,
) *AnalysisService {
	cacheTTL := config.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = defaultEnrichmentTTL
	}

	return &AnalysisService{
		cache:            cache,
		enricher:         enricher,
		analyzer:         NewPriceAnalyzer(config.Analyzer),
		cacheTTL:         cacheTTL,
		enableEnrichment: config.EnableEnrichment && enricher != nil,
	}
}

// Analyze runs one analysis over the given listings.
// Flow: validate -> extract specs -> enrich (cache first) -> analyze
func (s *AnalysisService) Analyze(
	ctx context.Context,
	products []*domain.ProductRecord,
	cfg domain.AnalysisConfig,
) (*AnalysisResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := validateProducts(products); err != nil {
		return nil, err
	}
	products = emptyIfNil(products)

	for _, p := range products {
		if p.Specs == nil {
			specs := ExtractSpecs(p.Title)
			p.Specs = &specs
		}
	}

	enriched := false
	if s.enableEnrichment && usesSpecs(cfg) && len(products) > 0 {
		if err := s.enrich(ctx, products); err != nil {
			return nil, err
		}
		enriched = true
	}

	analysis, err := s.analyzer.Analyze(products, cfg)
	if err != nil {
		return nil, err
	}

	return &AnalysisResult{
		ID:       uuid.NewString(),
		Enriched: enriched,
		Analysis: analysis,
	}, nil
}

// AnalyzeCSV parses a rank-checker export and analyzes its listings
func (s *AnalysisService) AnalyzeCSV(
	ctx context.Context,
	r io.Reader,
	cfg domain.AnalysisConfig,
) (*AnalysisResult, csvimport.Stats, error) {
	if err := cfg.Validate(); err != nil {
		return nil, csvimport.Stats{}, err
	}
	products, stats, err := csvimport.Parse(r)
	if err != nil {
		return nil, stats, err
	}
	log.Printf("[CSV] Imported %d of %d rows (%d skipped, %d duplicates)",
		stats.Kept, stats.Rows, stats.Skipped, stats.Duplicates)

	result, err := s.Analyze(ctx, products, cfg)
	return result, stats, err
}

// CompareTitles scores two titles with the requested strategy
func (s *AnalysisService) CompareTitles(titleA, titleB string, strategy domain.MatchStrategy) (*TitleComparison, error) {
	if strings.TrimSpace(titleA) == "" || strings.TrimSpace(titleB) == "" {
		return nil, fmt.Errorf("%w: both titles are required", domain.ErrInvalidRequest)
	}

	switch strategy {
	case "", domain.StrategyTokens:
		result := s.analyzer.TokenMatcher().Match(titleA, titleB)
		return &TitleComparison{
			Strategy: domain.StrategyTokens,
			Score:    result.Score,
			Level:    result.Level,
			Label:    result.Level.Label(result.Score),
			Token:    &result,
		}, nil
	case domain.StrategySpecs:
		specsA, specsB := ExtractSpecs(titleA), ExtractSpecs(titleB)
		result := MatchSpecs(specsA, specsB)
		return &TitleComparison{
			Strategy: domain.StrategySpecs,
			Score:    result.Score,
			Level:    result.Level,
			Label:    result.Level.Label(result.Score),
			Spec:     &result,
			SpecsA:   &specsA,
			SpecsB:   &specsB,
		}, nil
	}
	return nil, fmt.Errorf("%w: unknown strategy %q", domain.ErrInvalidRequest, strategy)
}

// ClearCache drops every memoized enrichment result
func (s *AnalysisService) ClearCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Clear(ctx)
}

// EvictTitles drops the memoized enrichment for exactly this set of titles
func (s *AnalysisService) EvictTitles(ctx context.Context, titles []string) error {
	if s.cache == nil || s.enricher == nil {
		return nil
	}
	keys, _ := distinctTitles(titles)
	if len(keys) == 0 {
		return nil
	}
	return s.cache.Delete(ctx, s.generateCacheKey(keys))
}

// usesSpecs reports whether the run compares structured specs at all
func usesSpecs(cfg domain.AnalysisConfig) bool {
	return cfg.Strategy() == domain.StrategySpecs || cfg.ClusterStrategy() == domain.ClusterByTier
}

// enrich overlays extracted features onto each listing's specs
func (s *AnalysisService) enrich(ctx context.Context, products []*domain.ProductRecord) error {
	titles := make([]string, len(products))
	for i, p := range products {
		titles[i] = p.Title
	}
	keys, originals := distinctTitles(titles)
	if len(keys) == 0 {
		return nil
	}
	cacheKey := s.generateCacheKey(keys)

	features, err := s.getFromCache(ctx, cacheKey, len(keys))
	if err != nil {
		features, err = s.enricher.ExtractFeatures(ctx, originals)
		if err != nil {
			return err
		}
		if err := s.setInCache(ctx, cacheKey, features); err != nil {
			log.Printf("[CACHE] Failed to store enrichment for %d titles: %v", len(keys), err)
		}
	}

	byTitle := make(map[string]domain.FeatureSet, len(keys))
	for i, key := range keys {
		if i < len(features) {
			byTitle[key] = features[i]
		}
	}
	for _, p := range products {
		f, ok := byTitle[normalizeTitle(p.Title)]
		if !ok || f.IsEmpty() {
			continue
		}
		specs := f.ApplyTo(*p.Specs)
		if specs.GPUTier == "" {
			specs.GPUTier = gpuTierFor(specs.GPU)
		}
		p.Specs = &specs
	}
	return nil
}

// distinctTitles returns the sorted normalized titles and, aligned with
// them, the first original spelling of each
func distinctTitles(titles []string) (keys, originals []string) {
	first := make(map[string]string, len(titles))
	for _, t := range titles {
		key := normalizeTitle(t)
		if key == "" {
			continue
		}
		if _, seen := first[key]; !seen {
			first[key] = t
		}
	}
	for key := range first {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	originals = make([]string, len(keys))
	for i, key := range keys {
		originals[i] = first[key]
	}
	return keys, originals
}

// generateCacheKey creates a content-addressed key for a title set.
// Format: "enrich:{provider}:{xxhash of sorted normalized titles}"
func (s *AnalysisService) generateCacheKey(sortedKeys []string) string {
	h := xxhash.New()
	for _, key := range sortedKeys {
		h.WriteString(key)
		h.Write([]byte{0})
	}
	return fmt.Sprintf("enrich:%s:%016x", s.enricher.Provider(), h.Sum64())
}

func (s *AnalysisService) getFromCache(ctx context.Context, key string, n int) ([]domain.FeatureSet, error) {
	if s.cache == nil {
		return nil, domain.ErrCacheMiss
	}
	value, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			log.Printf("[CACHE] Lookup failed for %s: %v", key, err)
		}
		return nil, err
	}

	var features []domain.FeatureSet
	if err := json.Unmarshal(value, &features); err != nil || len(features) != n {
		return nil, domain.ErrCacheMiss
	}
	return features, nil
}

func (s *AnalysisService) setInCache(ctx context.Context, key string, features []domain.FeatureSet) error {
	if s.cache == nil {
		return nil
	}
	payload, err := json.Marshal(features)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, key, payload, s.cacheTTL)
}
