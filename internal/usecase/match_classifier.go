package usecase

import "github.com/serpprice/backend/internal/domain"

// Token-path thresholds
const (
	tokenExactThreshold       = 0.90
	tokenVerySimilarThreshold = 0.75
	tokenSimilarThreshold     = 0.50
	tokenRelatedThreshold     = 0.30
)

// Spec-path thresholds. There is no related tier on this path.
const (
	specExactThreshold       = 0.90
	specVerySimilarThreshold = 0.70
	specSimilarThreshold     = 0.50
)

// ClassifyTokenScore maps a token-match score to a level.
// A matching SKU is always exact.
func ClassifyTokenScore(score float64, modelMatch bool) domain.MatchLevel {
	switch {
	case modelMatch || score >= tokenExactThreshold:
		return domain.MatchExact
	case score >= tokenVerySimilarThreshold:
		return domain.MatchVerySimilar
	case score >= tokenSimilarThreshold:
		return domain.MatchSimilar
	case score >= tokenRelatedThreshold:
		return domain.MatchRelated
	default:
		return domain.MatchDifferent
	}
}

// ClassifySpecScore maps a structured-spec score to a level
func ClassifySpecScore(score float64) domain.MatchLevel {
	switch {
	case score >= specExactThreshold:
		return domain.MatchExact
	case score >= specVerySimilarThreshold:
		return domain.MatchVerySimilar
	case score >= specSimilarThreshold:
		return domain.MatchSimilar
	default:
		return domain.MatchDifferent
	}
}
