package usecase

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Compiled regex patterns for title normalization
var (
	nonWordRegex    = regexp.MustCompile(`[^\pL\pN\s]+`)
	multiSpaceRegex = regexp.MustCompile(`\s+`)
	quantityRegex   = regexp.MustCompile(`\d+(?:[.,]\d+)?(?:\s*(?:gb|tb|mb|kg|g|l|ml|w|v|hz|mah|mm|cm|m|pulgadas)\b)?`)
	rawNumberRegex  = regexp.MustCompile(`\d+`)
)

const (
	minTokenLength   = 2
	minQuantityChars = 2
)

// synonymGroup maps a canonical term to the spellings that imply it
type synonymGroup struct {
	canonical string
	synonyms  []string
}

// synonymTable is ordered so expansion output is deterministic.
// Brand aliases, console aliases, colour translations, storage units.
var synonymTable = []synonymGroup{
	{"playstation", []string{"ps", "ps4", "ps5", "psx", "psone"}},
	{"ps5", []string{"playstation 5", "playstation5", "play station 5"}},
	{"ps4", []string{"playstation 4", "playstation4", "play station 4"}},
	{"nintendo switch", []string{"switch", "ns", "nswitch"}},
	{"xbox", []string{"xb", "xbone", "xboxone", "xboxseries", "xbx", "xbs"}},
	{"iphone", []string{"apple iphone", "i phone"}},
	{"ipad", []string{"apple ipad", "i pad"}},
	{"macbook", []string{"apple macbook", "mac book"}},
	{"airpods", []string{"apple airpods", "air pods"}},
	{"galaxy", []string{"samsung galaxy"}},
	{"geforce", []string{"nvidia geforce", "nvidia"}},
	{"radeon", []string{"amd radeon"}},
	{"ryzen", []string{"amd ryzen"}},
	{"core", []string{"intel core"}},
	{"roomba", []string{"irobot roomba"}},
	{"conga", []string{"cecotec conga"}},
	{"negro", []string{"black", "noir", "negra"}},
	{"blanco", []string{"white", "blanc", "blanca"}},
	{"gris", []string{"grey", "gray", "silver", "plata"}},
	{"azul", []string{"blue", "bleu"}},
	{"rojo", []string{"red", "rouge"}},
	{"verde", []string{"green", "vert"}},
	{"rosa", []string{"pink", "rose"}},
	{"dorado", []string{"gold", "golden", "oro"}},
	{"256gb", []string{"256 gb", "256g"}},
	{"512gb", []string{"512 gb", "512g"}},
	{"1tb", []string{"1 tb", "1000gb", "1024gb"}},
	{"2tb", []string{"2 tb", "2000gb", "2048gb"}},
}

// titleStopWords are Spanish/English function words plus listing noise
var titleStopWords = map[string]bool{
	// Spanish
	"de": true, "del": true, "la": true, "el": true, "los": true, "las": true,
	"un": true, "una": true, "unos": true, "unas": true, "y": true, "o": true,
	"en": true, "con": true, "para": true, "por": true, "sin": true, "sobre": true,
	// English
	"the": true, "a": true, "an": true, "and": true, "or": true, "of": true,
	"for": true, "with": true, "to": true, "in": true, "on": true,
	// URL fragments
	"es": true, "eu": true, "com": true, "www": true, "http": true, "https": true,
	// Marketing/packaging
	"nuevo": true, "new": true, "oficial": true, "original": true, "version": true,
	"edicion": true, "edition": true, "pack": true, "kit": true, "set": true,
	"bundle": true, "combo": true, "lote": true,
}

// foldAccents removes combining marks, so "portátil" becomes "portatil".
// A fresh transformer is built per call because transformers carry state.
func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// normalizeTitle lowercases, strips accents and punctuation, and collapses whitespace
func normalizeTitle(s string) string {
	if s == "" {
		return ""
	}
	s = foldAccents(strings.ToLower(s))
	s = nonWordRegex.ReplaceAllString(s, " ")
	s = multiSpaceRegex.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// containsPhrase reports whether phrase occurs in text on token boundaries.
// Both arguments must already be normalized.
func containsPhrase(text, phrase string) bool {
	if phrase == "" {
		return false
	}
	return strings.Contains(" "+text+" ", " "+phrase+" ")
}

// expandSynonyms appends the canonical term for every synonym present.
// The synonym itself stays in the text.
func expandSynonyms(normalized string) string {
	var b strings.Builder
	b.WriteString(normalized)
	for _, group := range synonymTable {
		for _, syn := range group.synonyms {
			if containsPhrase(normalized, normalizeTitle(syn)) {
				b.WriteString(" ")
				b.WriteString(group.canonical)
				break
			}
		}
	}
	return b.String()
}

// tokenSet is a set of normalized tokens
type tokenSet map[string]struct{}

func (s tokenSet) add(token string) {
	s[token] = struct{}{}
}

func (s tokenSet) has(token string) bool {
	_, ok := s[token]
	return ok
}

// sorted returns the tokens in lexical order
func (s tokenSet) sorted() []string {
	out := make([]string, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// intersect returns the tokens present in both sets, sorted
func (s tokenSet) intersect(other tokenSet) []string {
	var out []string
	for t := range s {
		if other.has(t) {
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}

// union returns every token from both sets, sorted
func (s tokenSet) union(other tokenSet) []string {
	merged := make(tokenSet, len(s)+len(other))
	for t := range s {
		merged.add(t)
	}
	for t := range other {
		merged.add(t)
	}
	return merged.sorted()
}

// tokenizeTitle splits expanded text into meaningful tokens.
// Drops stop words and single characters, and adds unit-aware quantities
// such as "256gb" even when the title wrote "256 GB".
func tokenizeTitle(expanded string) tokenSet {
	tokens := make(tokenSet)
	for _, word := range strings.Fields(expanded) {
		if len([]rune(word)) < minTokenLength {
			continue
		}
		if titleStopWords[word] {
			continue
		}
		tokens.add(word)
	}
	for _, qty := range quantityRegex.FindAllString(expanded, -1) {
		qty = strings.Join(strings.Fields(qty), "")
		if len(qty) >= minQuantityChars {
			tokens.add(qty)
		}
	}
	return tokens
}

// rawNumbers returns the digit runs of an unmodified title
func rawNumbers(title string) tokenSet {
	nums := make(tokenSet)
	for _, n := range rawNumberRegex.FindAllString(title, -1) {
		nums.add(n)
	}
	return nums
}
