package domain

import (
	"encoding/json"
	"fmt"
)

// MatchLevel orders how closely two listings describe the same product.
// Higher values are closer matches.
type MatchLevel int

const (
	MatchDifferent MatchLevel = iota
	MatchRelated
	MatchSimilar
	MatchVerySimilar
	MatchExact
)

var matchLevelNames = map[MatchLevel]string{
	MatchDifferent:   "different",
	MatchRelated:     "related",
	MatchSimilar:     "similar",
	MatchVerySimilar: "very_similar",
	MatchExact:       "exact",
}

func (l MatchLevel) String() string {
	if name, ok := matchLevelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("MatchLevel(%d)", int(l))
}

// AtLeast reports whether l is the same as or closer than other
func (l MatchLevel) AtLeast(other MatchLevel) bool {
	return l >= other
}

// Label renders the level for reports, e.g. "Very similar (82%)"
func (l MatchLevel) Label(score float64) string {
	pct := score * 100
	switch l {
	case MatchExact:
		return "Exact"
	case MatchVerySimilar:
		return fmt.Sprintf("Very similar (%.0f%%)", pct)
	case MatchSimilar:
		return fmt.Sprintf("Similar (%.0f%%)", pct)
	case MatchRelated:
		return fmt.Sprintf("Related (%.0f%%)", pct)
	case MatchDifferent:
		return fmt.Sprintf("Different (%.0f%%)", pct)
	}
	return l.String()
}

func (l MatchLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

func (l *MatchLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for level, name := range matchLevelNames {
		if name == s {
			*l = level
			return nil
		}
	}
	return fmt.Errorf("%w: unknown match level %q", ErrInvalidRequest, s)
}

// TokenMatchResult is the outcome of comparing two titles token by token
type TokenMatchResult struct {
	Score           float64    `json:"score"`
	Level           MatchLevel `json:"level"`
	MatchedTokens   []string   `json:"matched_tokens"`
	UnmatchedTokens []string   `json:"unmatched_tokens"`
	BrandMatch      bool       `json:"brand_match"`
	ModelMatch      bool       `json:"model_match"`
	BrandA          string     `json:"brand_a,omitempty"`
	BrandB          string     `json:"brand_b,omitempty"`
	ModelA          string     `json:"model_a,omitempty"`
	ModelB          string     `json:"model_b,omitempty"`
}

// SpecMatchResult is the outcome of comparing two structured spec records
type SpecMatchResult struct {
	Score float64    `json:"score"`
	Level MatchLevel `json:"level"`
	// ModelCodeMatch is set when identical model codes short-circuited scoring.
	ModelCodeMatch bool `json:"model_code_match"`
}
