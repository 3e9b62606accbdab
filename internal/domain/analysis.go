package domain

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// MatchStrategy selects how listings are compared to the reference product
type MatchStrategy string

const (
	StrategyTokens MatchStrategy = "tokens"
	StrategySpecs  MatchStrategy = "specs"
)

// ClusterStrategy selects how listings are grouped into clusters
type ClusterStrategy string

const (
	ClusterByTier  ClusterStrategy = "tier"
	ClusterByBrand ClusterStrategy = "brand"
)

// AnalysisConfig describes the seller whose price is being analyzed
type AnalysisConfig struct {
	SellerDomain     string          `json:"seller_domain"`
	SellerPrice      float64         `json:"seller_price"`
	SellerProductURL string          `json:"seller_product_url,omitempty"`
	Query            string          `json:"query"`
	MatchBySpecs     bool            `json:"match_by_specs"`
	Clustering       ClusterStrategy `json:"clustering,omitempty"`
}

// Validate rejects configurations the analyzer cannot work with
func (c AnalysisConfig) Validate() error {
	if strings.TrimSpace(c.SellerDomain) == "" {
		return fmt.Errorf("%w: seller domain is required", ErrInvalidConfig)
	}
	if c.SellerPrice <= 0 {
		return fmt.Errorf("%w: seller price must be positive, got %.2f", ErrInvalidConfig, c.SellerPrice)
	}
	switch c.Clustering {
	case "", ClusterByTier, ClusterByBrand:
	default:
		return fmt.Errorf("%w: unknown clustering strategy %q", ErrInvalidConfig, c.Clustering)
	}
	return nil
}

// Strategy returns the matching strategy implied by the config
func (c AnalysisConfig) Strategy() MatchStrategy {
	if c.MatchBySpecs {
		return StrategySpecs
	}
	return StrategyTokens
}

// ClusterStrategy returns the requested grouping, defaulting to tier
// clustering for spec matching and brand clustering for token matching.
func (c AnalysisConfig) ClusterStrategy() ClusterStrategy {
	if c.Clustering != "" {
		return c.Clustering
	}
	if c.MatchBySpecs {
		return ClusterByTier
	}
	return ClusterByBrand
}

// CleanDomain strips the scheme, "www." and any path from the seller domain
func (c AnalysisConfig) CleanDomain() string {
	return CleanDomain(c.SellerDomain)
}

// CleanDomain lowercases a domain and strips scheme, "www." and any path
func CleanDomain(domain string) string {
	d := strings.ToLower(strings.TrimSpace(domain))
	if strings.Contains(d, "://") {
		if u, err := url.Parse(d); err == nil && u.Host != "" {
			d = u.Host
		} else {
			d = d[strings.Index(d, "://")+3:]
		}
	}
	d = strings.TrimPrefix(d, "www.")
	if idx := strings.Index(d, "/"); idx >= 0 {
		d = d[:idx]
	}
	return d
}

// ProductCluster is a group of listings considered comparable.
// Price statistics are computed from the current members on every call.
type ProductCluster struct {
	Key      string           `json:"key"`
	Name     string           `json:"name"`
	Products []*ProductRecord `json:"products"`
}

func (c *ProductCluster) priced() []*ProductRecord {
	var out []*ProductRecord
	for _, p := range c.Products {
		if p.HasPrice() {
			out = append(out, p)
		}
	}
	return out
}

// Cheapest returns the lowest-priced member, or nil when none is priced
func (c *ProductCluster) Cheapest() *ProductRecord {
	var best *ProductRecord
	for _, p := range c.priced() {
		if best == nil || p.Price < best.Price {
			best = p
		}
	}
	return best
}

// MostExpensive returns the highest-priced member, or nil when none is priced
func (c *ProductCluster) MostExpensive() *ProductRecord {
	var best *ProductRecord
	for _, p := range c.priced() {
		if best == nil || p.Price > best.Price {
			best = p
		}
	}
	return best
}

// AvgPrice returns the mean price of priced members, 0 when there are none
func (c *ProductCluster) AvgPrice() float64 {
	priced := c.priced()
	if len(priced) == 0 {
		return 0
	}
	var total float64
	for _, p := range priced {
		total += p.Price
	}
	return total / float64(len(priced))
}

// PriceRange returns the min and max member prices; ok is false when empty
func (c *ProductCluster) PriceRange() (low, high float64, ok bool) {
	cheapest, priciest := c.Cheapest(), c.MostExpensive()
	if cheapest == nil {
		return 0, 0, false
	}
	return cheapest.Price, priciest.Price, true
}

// Contains reports whether the cluster holds a listing with the given URL
func (c *ProductCluster) Contains(p *ProductRecord) bool {
	if p == nil {
		return false
	}
	for _, member := range c.Products {
		if member == p || (p.URL != "" && member.URL == p.URL) {
			return true
		}
	}
	return false
}

type clusterStatsJSON struct {
	Count    int      `json:"count"`
	AvgPrice float64  `json:"avg_price"`
	MinPrice *float64 `json:"min_price,omitempty"`
	MaxPrice *float64 `json:"max_price,omitempty"`
}

// MarshalJSON includes the derived price statistics alongside the members
func (c *ProductCluster) MarshalJSON() ([]byte, error) {
	type plain ProductCluster
	stats := clusterStatsJSON{Count: len(c.Products), AvgPrice: c.AvgPrice()}
	if low, high, ok := c.PriceRange(); ok {
		stats.MinPrice, stats.MaxPrice = &low, &high
	}
	return json.Marshal(struct {
		*plain
		Stats clusterStatsJSON `json:"stats"`
	}{(*plain)(c), stats})
}

// RecommendationType classifies an actionable finding
type RecommendationType string

const (
	RecPriceReduction      RecommendationType = "price_reduction"
	RecPriceIncrease       RecommendationType = "price_increase"
	RecClusterAnalysis     RecommendationType = "cluster_analysis"
	RecAlert               RecommendationType = "alert"
	RecOpportunity         RecommendationType = "opportunity"
	RecSimilarProductAlert RecommendationType = "similar_product_alert"
)

// Priority orders recommendations; lower Rank sorts first
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank returns the sort position of the priority
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	}
	return 3
}

// Recommendation is a prioritized finding produced by the analyzer
type Recommendation struct {
	Type        RecommendationType `json:"type"`
	Priority    Priority           `json:"priority"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Action      string             `json:"action"`
	Impact      string             `json:"impact"`
	Data        map[string]any     `json:"data"`
}

// PriceAnalysis is the complete result of one analysis run
type PriceAnalysis struct {
	Query        string         `json:"query"`
	SellerDomain string         `json:"seller_domain"`
	SellerPrice  float64        `json:"seller_price"`
	YourProduct  *ProductRecord `json:"your_product,omitempty"`

	YourSERPPosition       *int `json:"your_serp_position,omitempty"`
	YourPriceRank          int  `json:"your_price_rank"`
	PriceRankTotal         int  `json:"price_rank_total"`
	YourPriceRankInCluster int  `json:"your_price_rank_in_cluster"`

	TotalProducts  int `json:"total_products"`
	TotalWithPrice int `json:"total_with_price"`
	TotalStores    int `json:"total_stores"`

	MinPrice    float64 `json:"min_price"`
	MaxPrice    float64 `json:"max_price"`
	AvgPrice    float64 `json:"avg_price"`
	MedianPrice float64 `json:"median_price"`

	Cheapest          *ProductRecord `json:"cheapest,omitempty"`
	ProductsCheaper   int            `json:"products_cheaper"`
	ProductsSame      int            `json:"products_same"`
	ProductsExpensive int            `json:"products_expensive"`

	Clusters    []*ProductCluster `json:"clusters"`
	YourCluster *ProductCluster   `json:"your_cluster,omitempty"`

	AllProducts       []*ProductRecord `json:"all_products"`
	YourStoreProducts []*ProductRecord `json:"your_store_products"`
	ExactMatches      []*ProductRecord `json:"exact_matches"`

	PriceDistribution []PriceBucket    `json:"price_distribution"`
	Recommendations   []Recommendation `json:"recommendations"`
}

// PriceBucket is one histogram bin over listing prices. Low is inclusive;
// High is exclusive except for the last bucket.
type PriceBucket struct {
	Low   float64 `json:"low"`
	High  float64 `json:"high"`
	Count int     `json:"count"`
}

// RankLabel renders the price rank as "X of N"
func (a *PriceAnalysis) RankLabel() string {
	return fmt.Sprintf("%d of %d", a.YourPriceRank, a.PriceRankTotal)
}
