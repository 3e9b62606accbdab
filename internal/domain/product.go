package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ResultType is the kind of search-result slot a listing was found in
type ResultType int

const (
	ResultShopping ResultType = iota
	ResultOrganic
	ResultAd
	ResultSubAd
)

var resultTypeNames = map[ResultType]string{
	ResultShopping: "Shopping",
	ResultOrganic:  "Organic",
	ResultAd:       "Ad",
	ResultSubAd:    "Sub-ad",
}

func (t ResultType) String() string {
	if name, ok := resultTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("ResultType(%d)", int(t))
}

// ParseResultType accepts both the canonical names and the labels used by
// the rank-checker export ("Shopping Ads", "Ads", "Ads Sub").
func ParseResultType(s string) (ResultType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "shopping", "shopping ads", "":
		return ResultShopping, nil
	case "organic":
		return ResultOrganic, nil
	case "ad", "ads":
		return ResultAd, nil
	case "sub-ad", "ads sub", "sub ad", "subad":
		return ResultSubAd, nil
	}
	return ResultShopping, fmt.Errorf("%w: unknown result type %q", ErrInvalidRequest, s)
}

func (t ResultType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *ResultType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseResultType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ProductRecord is one listing from a search-results page.
// URL is the identity key; the match and price-diff fields are derived
// during analysis and overwritten on every run.
type ProductRecord struct {
	Title         string     `json:"title"`
	Store         string     `json:"store"`
	URL           string     `json:"url"`
	Price         float64    `json:"price"`
	OriginalPrice *float64   `json:"original_price,omitempty"`
	IsOffer       bool       `json:"is_offer"`
	ResultType    ResultType `json:"result_type"`
	Rank          int        `json:"rank"`
	IsYourProduct bool       `json:"is_your_product,omitempty"`

	// Specs is filled by extraction or enrichment before analysis.
	Specs *ProductSpecs `json:"specs,omitempty"`

	MatchScore   float64    `json:"match_score"`
	MatchLevel   MatchLevel `json:"match_level"`
	BrandMatch   bool       `json:"brand_match"`
	ModelMatch   bool       `json:"model_match"`
	PriceDiffAbs float64    `json:"price_diff_abs"`
	PriceDiffPct float64    `json:"price_diff_pct"`
}

// Normalize enforces the record invariants: no negative prices or ranks,
// and an original price only when it is strictly above the current one.
func (p *ProductRecord) Normalize() {
	if p.Price < 0 {
		p.Price = 0
	}
	if p.Rank < 0 {
		p.Rank = 0
	}
	if p.OriginalPrice != nil && *p.OriginalPrice <= p.Price {
		p.OriginalPrice = nil
	}
}

// HasPrice reports whether the listing carries a usable price
func (p *ProductRecord) HasPrice() bool {
	return p.Price > 0
}

// DiscountPct returns the advertised discount over the original price
func (p *ProductRecord) DiscountPct() (float64, bool) {
	if p.OriginalPrice == nil || *p.OriginalPrice <= p.Price || *p.OriginalPrice <= 0 {
		return 0, false
	}
	return (*p.OriginalPrice - p.Price) / *p.OriginalPrice * 100, true
}

// ProductSpecs holds structured attributes parsed from a listing title.
// Zero values mean "not found".
type ProductSpecs struct {
	Brand               string  `json:"brand,omitempty"`
	Series              string  `json:"series,omitempty"`
	ModelCode           string  `json:"model_code,omitempty"`
	Processor           string  `json:"processor,omitempty"`
	ProcessorGeneration string  `json:"processor_generation,omitempty"`
	RAMGB               int     `json:"ram_gb,omitempty"`
	StorageGB           int     `json:"storage_gb,omitempty"`
	StorageType         string  `json:"storage_type,omitempty"`
	GPU                 string  `json:"gpu,omitempty"`
	GPUTier             string  `json:"gpu_tier,omitempty"`
	ScreenSize          float64 `json:"screen_size,omitempty"`
	ScreenResolution    string  `json:"screen_resolution,omitempty"`
	ScreenRefreshHz     int     `json:"screen_refresh_hz,omitempty"`
	OS                  string  `json:"os,omitempty"`
}

// TierKey groups comparable products of the same class
func (s ProductSpecs) TierKey() string {
	return strings.Join([]string{s.Brand, s.Series, s.GPUTier, s.ProcessorGeneration}, "_")
}

// ExactKey identifies the literal same SKU across stores
func (s ProductSpecs) ExactKey() string {
	if s.ModelCode != "" {
		return s.Brand + "_" + s.ModelCode
	}
	return fmt.Sprintf("%s_%s_%s_%s_%dGB", s.Brand, s.Series, s.Processor, s.GPU, s.RAMGB)
}

// IsEmpty reports whether no attribute was found
func (s ProductSpecs) IsEmpty() bool {
	return s == ProductSpecs{}
}
