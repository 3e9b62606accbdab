package usecase

import (
	"fmt"
	"log"
	"math"
	"sort"
	"strings"

	"github.com/serpprice/backend/internal/domain"
)

const defaultDistributionBins = 5

// PriceAnalyzerConfig holds configuration for the price analyzer
type PriceAnalyzerConfig struct {
	TokenWeights       TokenWeights
	DistributionBins   int
	EnableDebugLogging bool
}

// PriceAnalyzer ranks a seller's price against a search-results page and
// derives recommendations. It holds no state between runs.
type PriceAnalyzer struct {
	tokenMatcher       *TokenMatcher
	distributionBins   int
	enableDebugLogging bool
}

// NewPriceAnalyzer creates a price analyzer with defaults applied
func NewPriceAnalyzer(config PriceAnalyzerConfig) *PriceAnalyzer {
	bins := config.DistributionBins
	if bins <= 0 {
		bins = defaultDistributionBins
	}
	return &PriceAnalyzer{
		tokenMatcher: NewTokenMatcher(TokenMatcherConfig{
			Weights:            config.TokenWeights,
			EnableDebugLogging: config.EnableDebugLogging,
		}),
		distributionBins:   bins,
		enableDebugLogging: config.EnableDebugLogging,
	}
}

// TokenMatcher exposes the matcher the analyzer scores titles with
func (a *PriceAnalyzer) TokenMatcher() *TokenMatcher {
	return a.tokenMatcher
}

// Analyze runs the full analysis. The records' derived fields (match score,
// level, price diffs) are overwritten. Only an invalid config is an error;
// a page without prices yields a well-formed result with zeroed statistics.
func (a *PriceAnalyzer) Analyze(products []*domain.ProductRecord, cfg domain.AnalysisConfig) (*domain.PriceAnalysis, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := validateProducts(products); err != nil {
		return nil, err
	}

	sellerDomain := cfg.CleanDomain()
	sellerPrice := cfg.SellerPrice

	for _, p := range products {
		p.Normalize()
		p.MatchScore, p.MatchLevel = 0, domain.MatchDifferent
		p.BrandMatch, p.ModelMatch = false, false
		p.PriceDiffAbs, p.PriceDiffPct = 0, 0
	}

	analysis := &domain.PriceAnalysis{
		Query:             cfg.Query,
		SellerDomain:      sellerDomain,
		SellerPrice:       sellerPrice,
		TotalProducts:     len(products),
		Clusters:          []*domain.ProductCluster{},
		AllProducts:       emptyIfNil(products),
		YourStoreProducts: storeProducts(products, sellerDomain),
		ExactMatches:      []*domain.ProductRecord{},
		PriceDistribution: []domain.PriceBucket{},
		Recommendations:   []domain.Recommendation{},
	}

	your := identifyYourProduct(products, cfg)
	analysis.YourProduct = your
	analysis.YourSERPPosition = serpPosition(products, your)

	priced := pricedProducts(products)
	analysis.TotalWithPrice = len(priced)
	if len(priced) == 0 {
		log.Printf("[ANALYZE] No priced listings among %d products for %q", len(products), cfg.Query)
		if len(products) > 0 {
			analysis.Recommendations = generateRecommendations(analysis, cfg)
		}
		return analysis, nil
	}

	a.computeStats(analysis, priced)
	a.computeRank(analysis, priced)

	for _, p := range priced {
		p.PriceDiffAbs = p.Price - sellerPrice
		p.PriceDiffPct = (p.Price - sellerPrice) / sellerPrice * 100
	}

	if cfg.Strategy() == domain.StrategySpecs {
		a.matchBySpecs(analysis, priced, your, cfg.Query)
	} else {
		a.matchByTokens(analysis, priced, your, cfg.Query)
	}

	strategy := cfg.ClusterStrategy()
	analysis.Clusters = ClusterProducts(priced, strategy)
	analysis.YourCluster = findYourCluster(analysis.Clusters, your, strategy)
	if analysis.YourCluster != nil {
		analysis.YourPriceRankInCluster = 1 + countCheaper(analysis.YourCluster.Products, sellerPrice)
	}

	analysis.PriceDistribution = PriceDistribution(priced, a.distributionBins)
	analysis.Recommendations = generateRecommendations(analysis, cfg)

	log.Printf("[ANALYZE] %q: %d listings, %d priced, rank %s, %d clusters, %d recommendations",
		cfg.Query, analysis.TotalProducts, analysis.TotalWithPrice, analysis.RankLabel(),
		len(analysis.Clusters), len(analysis.Recommendations))

	return analysis, nil
}

func (a *PriceAnalyzer) computeStats(analysis *domain.PriceAnalysis, priced []*domain.ProductRecord) {
	prices := sortedPrices(priced)
	analysis.MinPrice = prices[0]
	analysis.MaxPrice = prices[len(prices)-1]

	var total float64
	for _, v := range prices {
		total += v
	}
	analysis.AvgPrice = total / float64(len(prices))

	mid := len(prices) / 2
	if len(prices)%2 == 0 {
		analysis.MedianPrice = (prices[mid-1] + prices[mid]) / 2
	} else {
		analysis.MedianPrice = prices[mid]
	}

	stores := make(map[string]struct{})
	for _, p := range priced {
		if s := strings.ToLower(strings.TrimSpace(p.Store)); s != "" {
			stores[s] = struct{}{}
		}
		if analysis.Cheapest == nil || p.Price < analysis.Cheapest.Price {
			analysis.Cheapest = p
		}
	}
	analysis.TotalStores = len(stores)
}

// computeRank sets the 1-based price rank. Equal prices do not push the
// seller down. The denominator counts the seller as an extra entrant when
// they are not already on the page.
func (a *PriceAnalyzer) computeRank(analysis *domain.PriceAnalysis, priced []*domain.ProductRecord) {
	for _, p := range priced {
		switch {
		case p.Price < analysis.SellerPrice:
			analysis.ProductsCheaper++
		case p.Price == analysis.SellerPrice:
			analysis.ProductsSame++
		default:
			analysis.ProductsExpensive++
		}
	}
	analysis.YourPriceRank = analysis.ProductsCheaper + 1
	analysis.PriceRankTotal = analysis.TotalWithPrice
	if analysis.YourSERPPosition == nil {
		analysis.PriceRankTotal++
	}
}

func (a *PriceAnalyzer) matchByTokens(analysis *domain.PriceAnalysis, priced []*domain.ProductRecord, your *domain.ProductRecord, query string) {
	reference := query
	if your != nil && strings.TrimSpace(your.Title) != "" {
		reference = your.Title
	}
	if strings.TrimSpace(reference) == "" {
		return
	}

	for _, p := range priced {
		if sameListing(p, your) {
			markYours(p)
			continue
		}
		result := a.tokenMatcher.Match(p.Title, reference)
		p.MatchScore = result.Score
		p.MatchLevel = result.Level
		p.BrandMatch = result.BrandMatch
		p.ModelMatch = result.ModelMatch
		if result.Level.AtLeast(domain.MatchVerySimilar) {
			analysis.ExactMatches = append(analysis.ExactMatches, p)
		}
	}
}

func (a *PriceAnalyzer) matchBySpecs(analysis *domain.PriceAnalysis, priced []*domain.ProductRecord, your *domain.ProductRecord, query string) {
	var reference domain.ProductSpecs
	if your != nil {
		reference = specsOf(your)
	} else {
		reference = ExtractSpecs(query)
	}

	for _, p := range priced {
		if sameListing(p, your) {
			markYours(p)
			continue
		}
		specs := specsOf(p)
		result := MatchSpecs(specs, reference)
		p.MatchScore = result.Score
		p.MatchLevel = result.Level
		p.BrandMatch = specs.Brand != "" && strings.EqualFold(specs.Brand, reference.Brand)
		p.ModelMatch = result.ModelCodeMatch
		if result.Level.AtLeast(domain.MatchVerySimilar) {
			analysis.ExactMatches = append(analysis.ExactMatches, p)
		}
		if a.enableDebugLogging {
			log.Printf("[MATCH] specs %q -> %.3f (%s)", p.Title, result.Score, result.Level)
		}
	}
}

func markYours(p *domain.ProductRecord) {
	p.MatchScore = 1
	p.MatchLevel = domain.MatchExact
	p.BrandMatch = true
	p.ModelMatch = true
}

// identifyYourProduct prefers the exact product URL, then a partial URL
// match, then the seller-domain listing priced closest to the seller price.
func identifyYourProduct(products []*domain.ProductRecord, cfg domain.AnalysisConfig) *domain.ProductRecord {
	if want := strings.ToLower(strings.TrimSpace(cfg.SellerProductURL)); want != "" {
		for _, p := range products {
			if strings.ToLower(strings.TrimSpace(p.URL)) == want {
				return p
			}
		}
		for _, p := range products {
			got := strings.ToLower(strings.TrimSpace(p.URL))
			if got != "" && (strings.Contains(got, want) || strings.Contains(want, got)) {
				return p
			}
		}
	}

	candidates := storeProducts(products, cfg.CleanDomain())
	if len(candidates) == 0 {
		return nil
	}
	best, bestDist := candidates[0], priceDistance(candidates[0], cfg.SellerPrice)
	for _, p := range candidates[1:] {
		if d := priceDistance(p, cfg.SellerPrice); d < bestDist {
			best, bestDist = p, d
		}
	}
	return best
}

func priceDistance(p *domain.ProductRecord, target float64) float64 {
	if !p.HasPrice() {
		return math.Inf(1)
	}
	return math.Abs(p.Price - target)
}

// storeProducts returns every listing whose store or URL names the domain
func storeProducts(products []*domain.ProductRecord, sellerDomain string) []*domain.ProductRecord {
	out := []*domain.ProductRecord{}
	if sellerDomain == "" {
		return out
	}
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Store), sellerDomain) ||
			strings.Contains(strings.ToLower(p.URL), sellerDomain) {
			out = append(out, p)
		}
	}
	return out
}

// serpPosition is the 1-based index over the full page of the first listing
// flagged as the seller's or matching the identified product
func serpPosition(products []*domain.ProductRecord, your *domain.ProductRecord) *int {
	for i, p := range products {
		if p.IsYourProduct || sameListing(p, your) {
			pos := i + 1
			return &pos
		}
	}
	return nil
}

func sameListing(p, your *domain.ProductRecord) bool {
	if your == nil {
		return false
	}
	return p == your || (your.URL != "" && p.URL == your.URL)
}

func findYourCluster(clusters []*domain.ProductCluster, your *domain.ProductRecord, strategy domain.ClusterStrategy) *domain.ProductCluster {
	if your == nil {
		return nil
	}
	for _, c := range clusters {
		if c.Contains(your) {
			return c
		}
	}

	// An unpriced listing is never clustered; fall back to its grouping key.
	var key string
	if strategy == domain.ClusterByTier {
		key = specsOf(your).TierKey()
	} else {
		key = detectBrand(expandSynonyms(normalizeTitle(your.Title)))
		if key == "" {
			key = otherBrandsKey
		}
	}
	for _, c := range clusters {
		if c.Key == key {
			return c
		}
	}
	return nil
}

func pricedProducts(products []*domain.ProductRecord) []*domain.ProductRecord {
	var out []*domain.ProductRecord
	for _, p := range products {
		if p.HasPrice() {
			out = append(out, p)
		}
	}
	return out
}

func sortedPrices(priced []*domain.ProductRecord) []float64 {
	prices := make([]float64, 0, len(priced))
	for _, p := range priced {
		prices = append(prices, p.Price)
	}
	sort.Float64s(prices)
	return prices
}

func countCheaper(products []*domain.ProductRecord, price float64) int {
	n := 0
	for _, p := range products {
		if p.HasPrice() && p.Price < price {
			n++
		}
	}
	return n
}

// validateProducts rejects null entries before any per-listing loop runs
func validateProducts(products []*domain.ProductRecord) error {
	for i, p := range products {
		if p == nil {
			return fmt.Errorf("%w: product %d is null", domain.ErrInvalidRequest, i)
		}
	}
	return nil
}

func emptyIfNil(products []*domain.ProductRecord) []*domain.ProductRecord {
	if products == nil {
		return []*domain.ProductRecord{}
	}
	return products
}

// PriceDistribution buckets priced listings into equal-width bins between
// the lowest and highest price. All prices equal yields a single bucket.
func PriceDistribution(products []*domain.ProductRecord, bins int) []domain.PriceBucket {
	priced := pricedProducts(products)
	if len(priced) == 0 || bins <= 0 {
		return []domain.PriceBucket{}
	}
	prices := sortedPrices(priced)
	low, high := prices[0], prices[len(prices)-1]
	if low == high {
		return []domain.PriceBucket{{Low: low, High: high, Count: len(prices)}}
	}

	width := (high - low) / float64(bins)
	buckets := make([]domain.PriceBucket, bins)
	for i := range buckets {
		buckets[i].Low = low + float64(i)*width
		buckets[i].High = low + float64(i+1)*width
	}
	buckets[bins-1].High = high

	for _, v := range prices {
		idx := int((v - low) / width)
		if idx >= bins {
			idx = bins - 1
		}
		buckets[idx].Count++
	}
	return buckets
}
