package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/serpprice/backend/internal/domain"
)

// titleCorpus mixes exact duplicates, variants and unrelated products
var titleCorpus = []string{
	"Samsung Galaxy S24 Ultra 256GB Negro",
	"Samsung Galaxy S24 Ultra 256GB Titanium Black",
	"Samsung Galaxy S23 128GB Blanco",
	"MSI Cyborg 15 B13WFKG-687XES Intel Core i7 RTX 4060 16GB",
	"Portátil MSI Cyborg 15 B13WFKG 16GB 1TB RTX 4060",
	"MSI Katana 15 B13VFK-1429XES RTX 4060",
	"Cecotec Conga 9090 Robot",
	"Apple iPhone 15 Pro 256 GB",
	"Sony PlayStation 5 Slim",
	"PS5 Slim Digital Edition",
	"",
}

func TestNewTokenMatcher(t *testing.T) {
	tests := []struct {
		name     string
		weights  TokenWeights
		expected TokenWeights
	}{
		{"zero weights use defaults", TokenWeights{}, DefaultTokenWeights()},
		{"negative weight uses defaults", TokenWeights{Brand: -1, Model: 1, Tokens: 1}, DefaultTokenWeights()},
		{"custom weights kept", TokenWeights{Brand: 0.2, Model: 0.3, Tokens: 0.5}, TokenWeights{Brand: 0.2, Model: 0.3, Tokens: 0.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewTokenMatcher(TokenMatcherConfig{Weights: tt.weights})
			assert.Equal(t, tt.expected, m.weights)
		})
	}
}

func TestTokenMatch_SameProductDifferentWording(t *testing.T) {
	m := NewTokenMatcher(TokenMatcherConfig{})

	result := m.Match(
		"Samsung Galaxy S24 Ultra 256GB Negro",
		"Samsung Galaxy S24 Ultra 256GB Titanium Black",
	)

	assert.True(t, result.BrandMatch)
	assert.Equal(t, "samsung", result.BrandA)
	assert.Subset(t, result.MatchedTokens, []string{"galaxy", "s24", "ultra", "256gb"})
	assert.True(t, result.Level.AtLeast(domain.MatchVerySimilar), "got %s (%.3f)", result.Level, result.Score)
}

func TestTokenMatch_UnrelatedProducts(t *testing.T) {
	m := NewTokenMatcher(TokenMatcherConfig{})

	result := m.Match("MSI Cyborg 15 Gaming", "Cecotec Conga 9090 Robot")

	assert.False(t, result.BrandMatch)
	assert.Empty(t, result.MatchedTokens)
	assert.Less(t, result.Score, 0.1)
	assert.Equal(t, domain.MatchDifferent, result.Level)
}

func TestTokenMatch_SharedSKUIsExact(t *testing.T) {
	m := NewTokenMatcher(TokenMatcherConfig{})

	result := m.Match("MSI Cyborg 15 B13WFKG-687XES", "Portátil B13WFKG negro")

	assert.Equal(t, "B13WFKG", result.ModelA)
	assert.Equal(t, "B13WFKG", result.ModelB)
	assert.True(t, result.ModelMatch)
	assert.Equal(t, domain.MatchExact, result.Level)
}

func TestTokenMatch_FirstSKUPatternWins(t *testing.T) {
	m := NewTokenMatcher(TokenMatcherConfig{})

	// RTX4060 hits the letters+digits pattern before A13VF is tried
	result := m.Match(
		"MSI Cyborg 15 A13VF-1234XES i7 RTX 4060",
		"Portátil MSI Cyborg 15 A13VF-1234XES RTX4060",
	)

	assert.Equal(t, "A13VF", result.ModelA)
	assert.Equal(t, "RTX4060", result.ModelB)
	assert.False(t, result.ModelMatch)
	assert.Equal(t, domain.MatchSimilar, result.Level)
}

func TestTokenMatch_Symmetric(t *testing.T) {
	m := NewTokenMatcher(TokenMatcherConfig{})

	for _, a := range titleCorpus {
		for _, b := range titleCorpus {
			ab := m.Match(a, b)
			ba := m.Match(b, a)
			assert.InDelta(t, ab.Score, ba.Score, 1e-12, "%q vs %q", a, b)
			assert.Equal(t, ab.Level, ba.Level, "%q vs %q", a, b)
			assert.Equal(t, ab.MatchedTokens, ba.MatchedTokens)
		}
	}
}

func TestTokenMatch_Deterministic(t *testing.T) {
	m := NewTokenMatcher(TokenMatcherConfig{})

	for _, a := range titleCorpus {
		for _, b := range titleCorpus {
			assert.Equal(t, m.Match(a, b), m.Match(a, b))
		}
	}
}

func TestTokenMatch_ScoreInRange(t *testing.T) {
	m := NewTokenMatcher(TokenMatcherConfig{})

	for _, a := range titleCorpus {
		for _, b := range titleCorpus {
			score := m.Match(a, b).Score
			assert.GreaterOrEqual(t, score, 0.0)
			assert.LessOrEqual(t, score, 1.0)
		}
	}
}

func TestTokenMatch_MoreSharedTokensNeverLowersScore(t *testing.T) {
	m := NewTokenMatcher(TokenMatcherConfig{})
	candidate := "mochila viaje impermeable grande"

	// Each reference shares one more token while the union stays the same
	references := []string{
		"mochila",
		"mochila viaje",
		"mochila viaje impermeable",
		"mochila viaje impermeable grande",
	}

	previous := -1.0
	for _, ref := range references {
		score := m.Match(candidate, ref).Score
		assert.GreaterOrEqual(t, score, previous, ref)
		previous = score
	}
}

func TestTokenMatch_EmptyTitles(t *testing.T) {
	m := NewTokenMatcher(TokenMatcherConfig{})

	result := m.Match("", "")

	assert.Equal(t, 0.0, result.Score)
	assert.Equal(t, domain.MatchDifferent, result.Level)
	assert.NotNil(t, result.MatchedTokens)
	assert.NotNil(t, result.UnmatchedTokens)
}

func TestDetectBrand(t *testing.T) {
	m := NewTokenMatcher(TokenMatcherConfig{})

	tests := []struct {
		title    string
		expected string
	}{
		{"Portátil ASUS ROG Strix G16", "asus"},
		{"Apple iPhone 15 Pro", "apple"},
		{"iPhone 15 Pro", "iphone"},
		{"Router TP-Link Archer AX55", "tp-link"},
		{"Consola PS5 Slim", "playstation"},
		{"Funda universal sin marca", ""},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.expected, m.DetectBrand(tt.title))
		})
	}
}

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		s1, s2   string
		expected int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"B13WFKG", "B13WFKF", 1},
		{"portátil", "portatil", 1},
	}

	for _, tt := range tests {
		t.Run(tt.s1+"_"+tt.s2, func(t *testing.T) {
			assert.Equal(t, tt.expected, levenshteinDistance(tt.s1, tt.s2))
			assert.Equal(t, tt.expected, levenshteinDistance(tt.s2, tt.s1))
		})
	}
}

func TestStringSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, stringSimilarity("", ""))
	assert.Equal(t, 1.0, stringSimilarity("ANV15", "ANV15"))
	assert.InDelta(t, 6.0/7.0, stringSimilarity("B13WFKG", "B13WFKF"), 1e-9)
}

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Portátil  MSI, 15.6\"", "portatil msi 15 6"},
		{"Niño Cámara", "nino camara"},
		{"  ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, normalizeTitle(tt.input))
		})
	}
}

func TestExpandSynonyms(t *testing.T) {
	assert.Equal(t, "consola ps5 slim playstation", expandSynonyms("consola ps5 slim"))
	assert.Equal(t, "funda black negro", expandSynonyms("funda black"))
	// Synonyms only match whole tokens
	assert.Equal(t, "pswitcher", expandSynonyms("pswitcher"))
}
