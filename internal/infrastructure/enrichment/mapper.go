package enrichment

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/serpprice/backend/internal/domain"
)

// Attribute names the extraction service reports
const (
	AttrBrand        = "brand"
	AttrSeries       = "series"
	AttrModel        = "model"
	AttrProcessor    = "processor"
	AttrProcessorGen = "processor_gen"
	AttrRAM          = "ram_gb"
	AttrStorage      = "storage_gb"
	AttrGPU          = "gpu"
	AttrGPUTier      = "gpu_tier"
	AttrScreenSize   = "screen_size"
	AttrOS           = "os"
)

var requestedFields = []string{
	AttrBrand, AttrSeries, AttrModel, AttrProcessor, AttrProcessorGen,
	AttrRAM, AttrStorage, AttrGPU, AttrGPUTier, AttrScreenSize, AttrOS,
}

var (
	capacityRegex = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(tb|gb)?`)
	numberRegex   = regexp.MustCompile(`\d+(?:[.,]\d+)?`)
)

type extractRequest struct {
	Titles []string `json:"titles"`
	Fields []string `json:"fields"`
}

type extractResponse struct {
	Items []extractedItem `json:"items"`
}

// extractedItem is one title's result. Attribute values arrive as strings or
// numbers depending on the backend model.
type extractedItem struct {
	Index        int               `json:"index"`
	Attributes   map[string]any    `json:"attributes"`
	Observations map[string]string `json:"observations,omitempty"`
}

// mapToFeatureSets places each item at its index; missing or out-of-range
// items leave empty sets
func mapToFeatureSets(items []extractedItem, n int) []domain.FeatureSet {
	out := make([]domain.FeatureSet, n)
	for _, item := range items {
		if item.Index < 0 || item.Index >= n {
			continue
		}
		out[item.Index] = mapToFeatureSet(item)
	}
	return out
}

// mapToFeatureSet converts one service result into the typed record.
// Unknown attributes and free-form observations go to Extra.
func mapToFeatureSet(item extractedItem) domain.FeatureSet {
	var f domain.FeatureSet
	for key, raw := range item.Attributes {
		value := strings.TrimSpace(stringValue(raw))
		if value == "" || strings.EqualFold(value, "null") {
			continue
		}
		switch key {
		case AttrBrand:
			f.Brand = strings.ToUpper(value)
		case AttrSeries:
			f.Series = value
		case AttrModel:
			f.Model = strings.ToUpper(value)
		case AttrProcessor:
			f.Processor = value
		case AttrProcessorGen:
			f.ProcessorGeneration = value
		case AttrRAM:
			f.RAMGB = capacityGB(value)
		case AttrStorage:
			f.StorageGB = capacityGB(value)
		case AttrGPU:
			f.GPU = strings.ToUpper(value)
		case AttrGPUTier:
			f.GPUTier = value
		case AttrScreenSize:
			f.ScreenSize = screenInches(value)
		case AttrOS:
			f.OS = value
		default:
			f.Extra = putExtra(f.Extra, key, value)
		}
	}
	for key, value := range item.Observations {
		f.Extra = putExtra(f.Extra, key, value)
	}
	return f
}

func putExtra(extra map[string]string, key, value string) map[string]string {
	if extra == nil {
		extra = make(map[string]string)
	}
	extra[key] = value
	return extra
}

func stringValue(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

// capacityGB reads "16", "16GB", "1TB" or "1,5 TB"; terabytes count as 1000GB
func capacityGB(value string) int {
	m := capacityRegex.FindStringSubmatch(value)
	if m == nil {
		return 0
	}
	amount, err := strconv.ParseFloat(strings.Replace(m[1], ",", ".", 1), 64)
	if err != nil {
		return 0
	}
	if strings.EqualFold(m[2], "tb") {
		amount *= 1000
	}
	return int(amount)
}

func screenInches(value string) float64 {
	m := numberRegex.FindString(value)
	if m == "" {
		return 0
	}
	size, err := strconv.ParseFloat(strings.Replace(m, ",", ".", 1), 64)
	if err != nil {
		return 0
	}
	return size
}
