package usecase

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/serpprice/backend/internal/domain"
)

// gpuTiers collapses specific GPU models into a generation bucket
var gpuTiers = map[string]string{
	"RTX 5090": "RTX 50xx", "RTX 5080": "RTX 50xx", "RTX 5070": "RTX 50xx",
	"RTX 5060": "RTX 50xx", "RTX 5050": "RTX 50xx",
	"RTX 4090": "RTX 40xx", "RTX 4080": "RTX 40xx", "RTX 4070": "RTX 40xx",
	"RTX 4060": "RTX 40xx", "RTX 4050": "RTX 40xx",
	"RTX 3080": "RTX 30xx", "RTX 3070": "RTX 30xx", "RTX 3060": "RTX 30xx",
	"RTX 3050": "RTX 30xx",
	"RTX 2080": "RTX 20xx", "RTX 2070": "RTX 20xx", "RTX 2060": "RTX 20xx",
	"RTX 2050": "RTX 20xx",
	"GTX 1660": "GTX 16xx", "GTX 1650": "GTX 16xx",
}

type namedPattern struct {
	name    string
	pattern *regexp.Regexp
}

func wordPatterns(names ...string) []namedPattern {
	out := make([]namedPattern, len(names))
	for i, n := range names {
		out[i] = namedPattern{name: n, pattern: regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(n) + `\b`)}
	}
	return out
}

// specBrands is checked in order
var specBrands = wordPatterns("MSI", "ASUS", "ACER", "LENOVO", "HP", "DELL", "GIGABYTE", "RAZER", "ALIENWARE")

// productSeries lists the known product lines of each brand
var productSeries = map[string][]namedPattern{
	"MSI":      wordPatterns("Cyborg", "Thin", "Modern", "Stealth", "Raider", "Titan", "Katana", "Pulse", "Vector", "Crosshair"),
	"ASUS":     wordPatterns("ROG", "TUF", "Zephyrus", "Strix", "ProArt", "Zenbook", "Vivobook"),
	"ACER":     wordPatterns("Nitro", "Predator", "Aspire", "Swift", "Triton"),
	"LENOVO":   wordPatterns("Legion", "IdeaPad", "ThinkPad", "Yoga", "LOQ"),
	"HP":       wordPatterns("Omen", "Victus", "Pavilion", "Envy", "Spectre"),
	"DELL":     wordPatterns("Alienware", "G15", "G16", "XPS", "Inspiron"),
	"GIGABYTE": wordPatterns("Aorus", "Aero", "G5", "G7"),
	"RAZER":    wordPatterns("Blade"),
}

// Patterns run against the upper-cased title unless noted
var (
	specModelPatterns = []*regexp.Regexp{
		regexp.MustCompile(`[A-Z]\d{2}[A-Z]{2,}[-_]?\d{3,}[A-Z]*`), // B13WFKG-687XES
		regexp.MustCompile(`[A-Z]{2,}\d{2,}[-_][A-Z0-9]+`),         // ANV15-51
		regexp.MustCompile(`\d{2}[A-Z]{2}\d+[-_]\d+[A-Z]*`),        // 15FA2018-12
	}

	// Lower-cased title
	intelCoreRegex   = regexp.MustCompile(`\bi([3579])-?(\d{4,5})([a-z]*)`)
	intelUltraRegex  = regexp.MustCompile(`\bcore\s+(ultra\s+)?([3579])\s*[-_]?\s*(\d{3}[a-z]*)`)
	ryzenRegex       = regexp.MustCompile(`ryzen\s*([3579])\s*[-_]?\s*(\d{4}[a-z]*)`)
	ramLabelledRegex = regexp.MustCompile(`\b(\d{1,2})\s*gb\s*(?:ram|ddr)`)
	ramBareRegex     = regexp.MustCompile(`\b(\d{1,2})\s*gb`)
	ssdFollowsRegex  = regexp.MustCompile(`^\s*ssd`)
	storageRegex     = regexp.MustCompile(`\b(\d+)\s*(tb|gb)\s*ssd`)
	screenRegex      = regexp.MustCompile(`\b(\d{2})(?:[.,](\d))?\s*(?:"|”|″|''|pulgadas|inch)`)
	refreshRegex     = regexp.MustCompile(`\b(\d{2,3})\s*hz\b`)
	gpuRTXRegex      = regexp.MustCompile(`rtx\s*(\d{4})`)
	gpuGTXRegex      = regexp.MustCompile(`gtx\s*(\d{4})`)
	gpuGeForceRegex  = regexp.MustCompile(`geforce\s*(rtx|gtx)\s*(\d{4})`)
	gpuRadeonRegex   = regexp.MustCompile(`radeon\s*rx\s*(\d{4})`)
)

var canonicalRAMSizes = map[int]bool{8: true, 16: true, 32: true, 64: true, 128: true}

type vocabEntry struct {
	label string
	terms []string
}

// First entry with any term present wins
var (
	resolutionVocab = []vocabEntry{
		{"FHD", []string{"full hd", "fhd", "1080"}},
		{"QHD", []string{"qhd", "1440", "2k"}},
		{"4K", []string{"4k", "uhd", "2160"}},
		{"WUXGA", []string{"wuxga"}},
	}
	osVocab = []vocabEntry{
		{"Windows 11", []string{"windows 11", "win 11", "w11"}},
		{"Windows 10", []string{"windows 10", "win 10"}},
		{"FreeDOS", []string{"freedos", "free dos"}},
		{"Sin SO", []string{"sin sistema", "sin so", "no os"}},
	}
)

func matchVocab(lower string, vocab []vocabEntry) string {
	for _, entry := range vocab {
		for _, term := range entry.terms {
			if strings.Contains(lower, term) {
				return entry.label
			}
		}
	}
	return ""
}

// ExtractSpecs parses structured attributes out of a listing title.
// It never fails; attributes it cannot find are left empty.
func ExtractSpecs(title string) domain.ProductSpecs {
	var specs domain.ProductSpecs
	if strings.TrimSpace(title) == "" {
		return specs
	}
	lower := strings.ToLower(title)
	upper := strings.ToUpper(title)

	for _, b := range specBrands {
		if b.pattern.MatchString(title) {
			specs.Brand = b.name
			break
		}
	}
	for _, s := range productSeries[specs.Brand] {
		if s.pattern.MatchString(title) {
			specs.Series = s.name
			break
		}
	}

	for _, pattern := range specModelPatterns {
		if m := pattern.FindString(upper); m != "" {
			specs.ModelCode = m
			break
		}
	}

	specs.Processor, specs.ProcessorGeneration = extractProcessor(lower)
	specs.RAMGB = extractRAM(lower)

	if m := storageRegex.FindStringSubmatch(lower); m != nil {
		amount, _ := strconv.Atoi(m[1])
		if m[2] == "tb" {
			amount *= 1000
		}
		specs.StorageGB = amount
		specs.StorageType = "SSD"
	}

	specs.GPU = extractGPU(lower)
	specs.GPUTier = gpuTiers[specs.GPU]

	if m := screenRegex.FindStringSubmatch(lower); m != nil {
		decimal := m[2]
		if decimal == "" {
			decimal = "0"
		}
		specs.ScreenSize, _ = strconv.ParseFloat(m[1]+"."+decimal, 64)
	}

	specs.ScreenResolution = matchVocab(lower, resolutionVocab)
	if m := refreshRegex.FindStringSubmatch(lower); m != nil {
		specs.ScreenRefreshHz, _ = strconv.Atoi(m[1])
	}
	specs.OS = matchVocab(lower, osVocab)

	return specs
}

// extractProcessor tries Intel Core iN, then Core (Ultra) N, then Ryzen
func extractProcessor(lower string) (processor, generation string) {
	if m := intelCoreRegex.FindStringSubmatch(lower); m != nil {
		number := m[2]
		processor = fmt.Sprintf("Intel Core i%s-%s%s", m[1], number, strings.ToUpper(m[3]))
		// 13700H and 1235U are 12th/13th gen, 8550U is 8th gen
		genDigits := number[:1]
		if len(number) == 5 || number[0] == '1' {
			genDigits = number[:2]
		}
		gen, _ := strconv.Atoi(genDigits)
		return processor, ordinal(gen) + " Gen"
	}
	if m := intelUltraRegex.FindStringSubmatch(lower); m != nil {
		name := "Intel Core "
		if m[1] != "" {
			name += "Ultra "
		}
		return name + m[2] + " " + strings.ToUpper(m[3]), "Ultra"
	}
	if m := ryzenRegex.FindStringSubmatch(lower); m != nil {
		model := strings.ToUpper(m[2])
		return fmt.Sprintf("AMD Ryzen %s %s", m[1], model), fmt.Sprintf("Ryzen %s000", model[:1])
	}
	return "", ""
}

func ordinal(n int) string {
	suffix := "th"
	if n%100 < 11 || n%100 > 13 {
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return strconv.Itoa(n) + suffix
}

// extractRAM prefers sizes labelled RAM/DDR, then any bare "NN GB" not
// followed by SSD. Only canonical module sizes are accepted.
func extractRAM(lower string) int {
	if m := ramLabelledRegex.FindStringSubmatch(lower); m != nil {
		if gb, _ := strconv.Atoi(m[1]); canonicalRAMSizes[gb] {
			return gb
		}
	}
	for _, loc := range ramBareRegex.FindAllStringSubmatchIndex(lower, -1) {
		if ssdFollowsRegex.MatchString(lower[loc[1]:]) {
			continue
		}
		gb, _ := strconv.Atoi(lower[loc[2]:loc[3]])
		if canonicalRAMSizes[gb] {
			return gb
		}
		return 0
	}
	return 0
}

// gpuTierFor looks up the tier of a GPU name in any spelling
func gpuTierFor(gpu string) string {
	if canonical := extractGPU(strings.ToLower(gpu)); canonical != "" {
		return gpuTiers[canonical]
	}
	return gpuTiers[gpu]
}

func extractGPU(lower string) string {
	if m := gpuRTXRegex.FindStringSubmatch(lower); m != nil {
		return "RTX " + m[1]
	}
	if m := gpuGTXRegex.FindStringSubmatch(lower); m != nil {
		return "GTX " + m[1]
	}
	if m := gpuGeForceRegex.FindStringSubmatch(lower); m != nil {
		return strings.ToUpper(m[1]) + " " + m[2]
	}
	if m := gpuRadeonRegex.FindStringSubmatch(lower); m != nil {
		return "RX " + m[1]
	}
	return ""
}
