package enrichment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapToFeatureSet(t *testing.T) {
	item := extractedItem{
		Index: 0,
		Attributes: map[string]any{
			AttrBrand:        "msi",
			AttrSeries:       "Cyborg",
			AttrModel:        "b13wfkg-687xes",
			AttrProcessor:    "Intel Core i7-13620H",
			AttrProcessorGen: "13th Gen",
			AttrRAM:          float64(16),
			AttrStorage:      "1TB",
			AttrGPU:          "rtx 4060",
			AttrGPUTier:      "RTX 40xx",
			AttrScreenSize:   `15,6"`,
			AttrOS:           "null",
			"keyboard":       "ES",
		},
		Observations: map[string]string{"color": "black"},
	}

	f := mapToFeatureSet(item)

	assert.Equal(t, "MSI", f.Brand)
	assert.Equal(t, "Cyborg", f.Series)
	assert.Equal(t, "B13WFKG-687XES", f.Model)
	assert.Equal(t, "13th Gen", f.ProcessorGeneration)
	assert.Equal(t, 16, f.RAMGB)
	assert.Equal(t, 1000, f.StorageGB)
	assert.Equal(t, "RTX 4060", f.GPU)
	assert.Equal(t, "RTX 40xx", f.GPUTier)
	assert.InDelta(t, 15.6, f.ScreenSize, 1e-9)
	assert.Empty(t, f.OS, "literal null is treated as absent")
	assert.Equal(t, map[string]string{"keyboard": "ES", "color": "black"}, f.Extra)
}

func TestMapToFeatureSets_PlacesByIndex(t *testing.T) {
	items := []extractedItem{
		{Index: 2, Attributes: map[string]any{AttrBrand: "asus"}},
		{Index: 0, Attributes: map[string]any{AttrBrand: "acer"}},
		{Index: 9, Attributes: map[string]any{AttrBrand: "hp"}},
		{Index: -1, Attributes: map[string]any{AttrBrand: "dell"}},
	}

	out := mapToFeatureSets(items, 3)

	assert.Len(t, out, 3)
	assert.Equal(t, "ACER", out[0].Brand)
	assert.True(t, out[1].IsEmpty())
	assert.Equal(t, "ASUS", out[2].Brand)
}

func TestCapacityGB(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"16", 16},
		{"16GB", 16},
		{"512 gb", 512},
		{"1TB", 1000},
		{"1,5 TB", 1500},
		{"unknown", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, capacityGB(tt.in))
		})
	}
}
