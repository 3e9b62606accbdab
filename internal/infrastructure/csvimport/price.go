package csvimport

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const (
	minPlausiblePrice = 10.0
	maxPlausiblePrice = 10000.0
)

// Price formats in the order they claim text. A later format never starts
// inside text an earlier one already consumed.
var (
	spanishThousandsRegex = regexp.MustCompile(`(\d{1,3}(?:\.\d{3})+),(\d{2})\s*€`) // 1.299,00 €
	usThousandsRegex      = regexp.MustCompile(`(\d{1,3}(?:,\d{3})+)\.(\d{2})\s*€`) // 1,299.00 €
	commaDecimalRegex     = regexp.MustCompile(`(\d{1,4}),(\d{2})\s*€`)             // 599,99 €
	dotDecimalRegex       = regexp.MustCompile(`(\d{1,4})\.(\d{2})\s*€`)            // 599.99 €
	centsRegex            = regexp.MustCompile(`(\d{5,6})\s*€`)                     // 94900 € = 949.00
	wholeEurosRegex       = regexp.MustCompile(`(\d{3,4})\s*€`)                     // 599 €
	offerRegex            = regexp.MustCompile(`(?i)oferta`)
)

// ParsedPrice is the price information found in an anchor text
type ParsedPrice struct {
	Current  float64
	Original *float64
	IsOffer  bool
}

// priceScanner records which byte offsets a format has consumed
type priceScanner struct {
	text   string
	used   []bool
	values []float64
}

func (s *priceScanner) scan(re *regexp.Regexp, markUsed bool, value func(groups []string, start int) (float64, bool)) {
	for _, loc := range re.FindAllStringSubmatchIndex(s.text, -1) {
		start, end := loc[0], loc[1]
		if s.used[start] {
			continue
		}
		groups := make([]string, 0, len(loc)/2)
		for i := 0; i < len(loc); i += 2 {
			if loc[i] < 0 {
				groups = append(groups, "")
				continue
			}
			groups = append(groups, s.text[loc[i]:loc[i+1]])
		}
		v, ok := value(groups, start)
		if !ok {
			continue
		}
		s.values = append(s.values, v)
		if markUsed {
			for i := start; i < end; i++ {
				s.used[i] = true
			}
		}
	}
}

func decimalValue(intPart, fraction, thousandsSep string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(intPart, thousandsSep, "")+"."+fraction, 64)
	return v, err == nil
}

// ParsePrice extracts the current and original price from listing text.
// The lowest plausible price is current; the highest is the original price
// when it is strictly greater.
func ParsePrice(text string) ParsedPrice {
	if text == "" {
		return ParsedPrice{}
	}
	isOffer := offerRegex.MatchString(text)

	s := &priceScanner{text: text, used: make([]bool, len(text)+1)}
	s.scan(spanishThousandsRegex, true, func(g []string, _ int) (float64, bool) { return decimalValue(g[1], g[2], ".") })
	s.scan(usThousandsRegex, true, func(g []string, _ int) (float64, bool) { return decimalValue(g[1], g[2], ",") })
	s.scan(commaDecimalRegex, true, func(g []string, _ int) (float64, bool) { return decimalValue(g[1], g[2], "") })
	s.scan(dotDecimalRegex, true, func(g []string, _ int) (float64, bool) { return decimalValue(g[1], g[2], "") })
	s.scan(centsRegex, true, func(g []string, _ int) (float64, bool) {
		cents, err := strconv.Atoi(g[1])
		return float64(cents) / 100, err == nil
	})
	// Whole euros must not continue a longer number: "47900 €" is cents
	s.scan(wholeEurosRegex, false, func(g []string, start int) (float64, bool) {
		if start > 0 && strings.ContainsRune("0123456789.,", rune(text[start-1])) {
			return 0, false
		}
		v, err := strconv.ParseFloat(g[1], 64)
		return v, err == nil
	})

	prices := plausibleDistinct(s.values)
	if len(prices) == 0 {
		return ParsedPrice{}
	}
	if len(prices) == 1 {
		return ParsedPrice{Current: prices[0], IsOffer: isOffer}
	}

	current, highest := prices[0], prices[len(prices)-1]
	out := ParsedPrice{Current: current, IsOffer: isOffer}
	if highest > current {
		out.Original = &highest
		out.IsOffer = true
	}
	return out
}

func plausibleDistinct(values []float64) []float64 {
	seen := make(map[float64]bool)
	var out []float64
	for _, v := range values {
		if v > minPlausiblePrice && v < maxPlausiblePrice && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Float64s(out)
	return out
}
