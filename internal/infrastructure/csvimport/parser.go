package csvimport

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/serpprice/backend/internal/domain"
)

const minTitleLength = 5

// Column names of the rank-checker export
const (
	colRank   = "Rank"
	colType   = "Type"
	colDomain = "Domain"
	colLink   = "Link"
	colAnchor = "Anchor"
)

// Result types kept from the export
var validTypes = map[string]domain.ResultType{
	"Shopping Ads": domain.ResultShopping,
	"Organic":      domain.ResultOrganic,
	"Ads":          domain.ResultAd,
	"Ads Sub":      domain.ResultSubAd,
}

// Price comparators and CSS partners; their listings are not stores
var skipDomains = []string{
	"kelkoo", "idealo", "shopping.com", "shoparize",
	"producthero", "delupe", "adference", "klarna",
	"redbrain", "surferseo", "google.com",
	"pricerunner", "twenga", "shopmania", "ciao",
}

var (
	leadingOfferRegex = regexp.MustCompile(`(?i)^oferta\s*`)
	titlePriceRegex   = regexp.MustCompile(`\d+(?:[.,]\d+)*\s*€`)
	titleTailRegexes  = []*regexp.Regexp{
		regexp.MustCompile(`(?i)sin coste.*$`),
		regexp.MustCompile(`(?i)env[ií]o.*$`),
		regexp.MustCompile(`(?i)gratis.*$`),
		regexp.MustCompile(`(?i)\d+\s*d[ií]as.*$`),
		regexp.MustCompile(`\s[A-Z][a-z]+\s*(?:ES|España)\s*$`), // "Mediamarkt ES"
	}
)

// Stats counts what the parser dropped
type Stats struct {
	Rows       int `json:"rows"`
	Kept       int `json:"kept"`
	Skipped    int `json:"skipped"`
	Duplicates int `json:"duplicates"`
	Malformed  int `json:"malformed"`
}

// Parse reads a rank-checker CSV export into listings. Priced listings come
// first by ascending price, then unpriced ones, each group in file order.
func Parse(r io.Reader) ([]*domain.ProductRecord, Stats, error) {
	var stats Stats

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, stats, domain.ErrEmptyCSV
	}
	if err != nil {
		return nil, stats, fmt.Errorf("%w: unreadable header: %v", domain.ErrEmptyCSV, err)
	}
	cols := indexColumns(header)
	for _, required := range []string{colType, colLink, colAnchor} {
		if _, ok := cols[required]; !ok {
			return nil, stats, fmt.Errorf("%w: missing %q column", domain.ErrEmptyCSV, required)
		}
	}

	var products []*domain.ProductRecord
	seen := make(map[string]bool)

	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		stats.Rows++
		if err != nil {
			stats.Malformed++
			log.Printf("[CSV] Row %d unreadable: %v", line, err)
			continue
		}

		field := func(name string) (string, bool) {
			i, ok := cols[name]
			if !ok || i >= len(row) {
				return "", false
			}
			return strings.TrimSpace(row[i]), true
		}

		typ, ok := field(colType)
		if !ok {
			stats.Malformed++
			continue
		}
		resultType, valid := validTypes[typ]
		if !valid {
			stats.Skipped++
			continue
		}

		storeDomain, _ := field(colDomain)
		storeDomain = strings.ToLower(storeDomain)
		if isComparator(storeDomain) {
			stats.Skipped++
			continue
		}

		link, _ := field(colLink)
		if seen[link] {
			stats.Duplicates++
			continue
		}
		seen[link] = true

		anchor, _ := field(colAnchor)
		title := CleanTitle(anchor)
		if len([]rune(title)) < minTitleLength {
			stats.Skipped++
			continue
		}

		price := ParsePrice(anchor)
		rankText, _ := field(colRank)
		rank, err := strconv.Atoi(rankText)
		if err != nil || rank < 0 {
			rank = 0
		}

		p := &domain.ProductRecord{
			Title:         title,
			Store:         strings.TrimPrefix(storeDomain, "www."),
			URL:           link,
			Price:         price.Current,
			OriginalPrice: price.Original,
			IsOffer:       price.IsOffer,
			ResultType:    resultType,
			Rank:          rank,
		}
		p.Normalize()
		products = append(products, p)
	}

	stats.Kept = len(products)
	if stats.Malformed > 0 {
		log.Printf("[CSV] Parsed with %d malformed rows out of %d", stats.Malformed, stats.Rows)
	}

	sort.SliceStable(products, func(i, j int) bool {
		a, b := products[i], products[j]
		if a.HasPrice() != b.HasPrice() {
			return a.HasPrice()
		}
		return a.HasPrice() && a.Price < b.Price
	})

	return products, stats, nil
}

func indexColumns(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		// Excel exports may carry a UTF-8 BOM on the first column
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}
	return cols
}

func isComparator(storeDomain string) bool {
	for _, skip := range skipDomains {
		if strings.Contains(storeDomain, skip) {
			return true
		}
	}
	return false
}

// CleanTitle strips offer prefixes, repeated first words, prices and
// shipping or store tails from anchor text
func CleanTitle(anchor string) string {
	title := strings.TrimSpace(anchor)
	if title == "" {
		return ""
	}
	title = leadingOfferRegex.ReplaceAllString(title, "")

	words := strings.Fields(title)
	if len(words) >= 2 && strings.EqualFold(words[0], words[1]) {
		title = strings.Join(words[1:], " ")
	}

	if loc := titlePriceRegex.FindStringIndex(title); loc != nil {
		title = title[:loc[0]]
	}
	for _, re := range titleTailRegexes {
		title = re.ReplaceAllString(title, "")
	}
	return strings.TrimSpace(title)
}
