package usecase

import (
	"log"
	"regexp"

	"github.com/serpprice/backend/internal/domain"
)

// Default field weights for token matching
const (
	defaultBrandWeight = 0.25
	defaultModelWeight = 0.35
	defaultTokenWeight = 0.40

	singleBrandFactor   = 0.2 // Only one title names a brand
	modelSimilarityMin  = 0.7 // Partial SKU credit starts above this ratio
	numberOverlapWeight = 0.1 // Flat bonus for shared capacities/sizes
)

// knownBrands is checked in order; the first brand found wins.
// Product lines that are stronger identifiers than the maker come after it.
var knownBrands = []string{
	// Technology
	"apple", "iphone", "ipad", "macbook", "airpods", "imac",
	"samsung", "galaxy",
	"xiaomi", "redmi", "poco",
	"huawei", "honor",
	"sony", "xperia", "playstation", "ps4", "ps5",
	"lg", "philips", "panasonic",
	"asus", "rog", "tuf", "zenfone",
	"acer", "nitro", "predator",
	"lenovo", "thinkpad", "ideapad", "legion",
	"hp", "omen", "pavilion", "envy",
	"dell", "alienware", "xps", "inspiron",
	"msi", "raider", "stealth", "cyborg", "katana",
	"gigabyte", "aorus", "aero",
	"razer", "blade",
	"logitech", "corsair", "steelseries", "hyperx", "trust", "genius",
	"tp-link", "netgear", "dlink", "d-link", "ubiquiti", "zyxel", "linksys",
	"seagate", "western digital", "wd", "sandisk", "kingston", "crucial", "toshiba",
	"nvidia", "geforce", "rtx", "gtx",
	"amd", "radeon", "ryzen",
	"intel", "core",
	"canon", "nikon", "fujifilm", "gopro", "dji", "insta360", "osmo",
	"bose", "jbl", "harman", "marshall", "bang olufsen", "sennheiser", "audio technica",
	"braun", "remington", "babyliss", "rowenta", "tefal",
	// Gaming
	"nintendo", "switch", "xbox", "microsoft", "valve", "steam", "deck",
	"newskill", "krom", "tempest", "mars gaming", "nox", "coolbox", "ozone",
	"elgato", "streamdeck",
	// Home appliances
	"bosch", "siemens", "balay", "teka", "zanussi", "electrolux", "whirlpool", "aeg",
	"cecotec", "conga", "mambo", "bamba",
	"dyson", "roomba", "irobot", "roborock", "dreame", "ecovacs",
	"delonghi", "nespresso", "krups", "moulinex", "smeg", "kitchenaid",
	"daikin", "mitsubishi", "hisense", "haier",
	// Mobility
	"garmin", "tomtom", "fitbit", "polar", "suunto", "coros",
	"segway", "ninebot", "youin", "nilox", "smartgyro",
	// Home/garden
	"ikea", "leroy", "bricomart",
	"gardena", "makita", "dewalt", "black decker", "stanley", "einhell", "parkside",
	// Retail
	"pccomponentes", "pccom", "pccm", "amazon", "mediamarkt", "carrefour", "fnac",
}

// normalizedBrands mirrors knownBrands after title normalization ("tp-link" -> "tp link")
var normalizedBrands = func() []string {
	out := make([]string, len(knownBrands))
	for i, b := range knownBrands {
		out[i] = normalizeTitle(b)
	}
	return out
}()

// skuPatterns are SKU-shaped codes tried in priority order; the first hit wins
var skuPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b[A-Z]{2,}\d{3,}[A-Z]*\b`),     // MSI123, AB1234CD
	regexp.MustCompile(`\b[A-Z]\d{2}[A-Z]{2,}\d*\b`),    // B13WFKG
	regexp.MustCompile(`\b\d{4,}[A-Z]+\b`),              // 1234AB
	regexp.MustCompile(`\b[A-Z]{1,3}-?\d{3,}[A-Z]*\b`),  // PS-1234, A-123B
	regexp.MustCompile(`\b[A-Z]{2,}\d+[-/][A-Z0-9]+\b`), // ABC12-34, XY1/2Z
	regexp.MustCompile(`\b\d{2,}[A-Z]{2,}\d+\b`),        // 15FA2018
}

// TokenWeights are the field weights of the token score
type TokenWeights struct {
	Brand  float64
	Model  float64
	Tokens float64
}

// DefaultTokenWeights returns brand 0.25, model 0.35, tokens 0.40
func DefaultTokenWeights() TokenWeights {
	return TokenWeights{Brand: defaultBrandWeight, Model: defaultModelWeight, Tokens: defaultTokenWeight}
}

func (w TokenWeights) total() float64 {
	return w.Brand + w.Model + w.Tokens
}

// TokenMatcherConfig holds configuration for the token matcher
type TokenMatcherConfig struct {
	Weights            TokenWeights
	EnableDebugLogging bool
}

// TokenMatcher compares free-text listing titles without structured specs
type TokenMatcher struct {
	weights            TokenWeights
	enableDebugLogging bool
}

// NewTokenMatcher creates a token matcher, falling back to the default
// weights when none are positive.
func NewTokenMatcher(config TokenMatcherConfig) *TokenMatcher {
	weights := config.Weights
	if weights.Brand < 0 || weights.Model < 0 || weights.Tokens < 0 || weights.total() <= 0 {
		weights = DefaultTokenWeights()
	}
	return &TokenMatcher{
		weights:            weights,
		enableDebugLogging: config.EnableDebugLogging,
	}
}

// titleProfile is everything the matcher derives from one title
type titleProfile struct {
	tokens  tokenSet
	brand   string
	model   string
	numbers tokenSet
}

func profileTitle(title string) titleProfile {
	expanded := expandSynonyms(normalizeTitle(title))
	return titleProfile{
		tokens:  tokenizeTitle(expanded),
		brand:   detectBrand(expanded),
		model:   detectModel(title),
		numbers: rawNumbers(title),
	}
}

// detectBrand returns the first known brand present in normalized text
func detectBrand(normalized string) string {
	for i, brand := range normalizedBrands {
		if containsPhrase(normalized, brand) {
			return knownBrands[i]
		}
	}
	return ""
}

// detectModel returns the first SKU-shaped code in the title as written
func detectModel(title string) string {
	for _, pattern := range skuPatterns {
		if m := pattern.FindString(title); m != "" {
			return m
		}
	}
	return ""
}

// DetectBrand returns the brand the matcher sees in a title, or ""
func (m *TokenMatcher) DetectBrand(title string) string {
	return detectBrand(expandSynonyms(normalizeTitle(title)))
}

// Match scores how closely candidate describes the same product as reference.
// Swapping the arguments never changes the score or level.
func (m *TokenMatcher) Match(candidate, reference string) domain.TokenMatchResult {
	a := profileTitle(candidate)
	b := profileTitle(reference)
	w := m.weights

	score := 0.0
	applicable := w.total()

	brandMatch := false
	switch {
	case a.brand != "" && b.brand != "":
		if a.brand == b.brand {
			brandMatch = true
			score += w.Brand
		}
	case a.brand != "" || b.brand != "":
		score += w.Brand * singleBrandFactor
	}

	modelMatch := false
	switch {
	case a.model != "" && b.model != "":
		if a.model == b.model {
			modelMatch = true
			score += w.Model
		} else if sim := stringSimilarity(a.model, b.model); sim > modelSimilarityMin {
			score += w.Model * sim
		}
	case a.model == "" && b.model == "":
		// Neither title carries a SKU, so the model weight has nothing to judge.
		applicable -= w.Model
	}

	matched := a.tokens.intersect(b.tokens)
	all := a.tokens.union(b.tokens)
	if len(all) > 0 {
		score += w.Tokens * float64(len(matched)) / float64(len(all))
	}

	if applicable > 0 {
		score = score * w.total() / applicable
	}

	sharedNumbers := a.numbers.intersect(b.numbers)
	allNumbers := a.numbers.union(b.numbers)
	if len(allNumbers) > 0 {
		score += numberOverlapWeight * float64(len(sharedNumbers)) / float64(len(allNumbers))
	}

	score = clamp01(score)
	level := ClassifyTokenScore(score, modelMatch)

	if m.enableDebugLogging {
		log.Printf("[MATCH] %q vs %q | brand %q/%q model %q/%q | score %.3f (%s)",
			candidate, reference, a.brand, b.brand, a.model, b.model, score, level)
	}

	return domain.TokenMatchResult{
		Score:           score,
		Level:           level,
		MatchedTokens:   nonNil(matched),
		UnmatchedTokens: difference(all, matched),
		BrandMatch:      brandMatch,
		ModelMatch:      modelMatch,
		BrandA:          a.brand,
		BrandB:          b.brand,
		ModelA:          a.model,
		ModelB:          b.model,
	}
}

// stringSimilarity is a normalized edit-distance ratio in [0,1]
func stringSimilarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	longest := max(len(ra), len(rb))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshteinDistance(a, b))/float64(longest)
}

// levenshteinDistance calculates the edit distance between two strings
func levenshteinDistance(s1, s2 string) int {
	r1 := []rune(s1)
	r2 := []rune(s2)
	m := len(r1)
	n := len(r2)
	if m == 0 {
		return n
	}
	if n == 0 {
		return m
	}

	// Two rows instead of the full matrix
	prev := make([]int, n+1)
	curr := make([]int, n+1)
	for j := 0; j <= n; j++ {
		prev[j] = j
	}

	for i := 1; i <= m; i++ {
		curr[0] = i
		for j := 1; j <= n; j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[n]
}

// difference returns the sorted tokens of all that are not in matched
func difference(all, matched []string) []string {
	skip := make(tokenSet, len(matched))
	for _, t := range matched {
		skip.add(t)
	}
	out := make([]string, 0, len(all)-len(matched))
	for _, t := range all {
		if !skip.has(t) {
			out = append(out, t)
		}
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
