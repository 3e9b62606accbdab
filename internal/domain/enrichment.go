package domain

import "strings"

// FeatureSet is what the entity-extraction service found for one title.
// Zero fields mean "not found"; Extra carries open-ended observations.
type FeatureSet struct {
	Brand               string            `json:"brand,omitempty"`
	Series              string            `json:"series,omitempty"`
	Model               string            `json:"model,omitempty"`
	Processor           string            `json:"processor,omitempty"`
	ProcessorGeneration string            `json:"processor_gen,omitempty"`
	RAMGB               int               `json:"ram_gb,omitempty"`
	StorageGB           int               `json:"storage_gb,omitempty"`
	GPU                 string            `json:"gpu,omitempty"`
	GPUTier             string            `json:"gpu_tier,omitempty"`
	ScreenSize          float64           `json:"screen_size,omitempty"`
	OS                  string            `json:"os,omitempty"`
	Extra               map[string]string `json:"extra,omitempty"`
}

// IsEmpty reports whether the service found nothing for the title
func (f FeatureSet) IsEmpty() bool {
	return f.Brand == "" && f.Series == "" && f.Model == "" && f.Processor == "" &&
		f.ProcessorGeneration == "" && f.RAMGB == 0 && f.StorageGB == 0 && f.GPU == "" &&
		f.GPUTier == "" && f.ScreenSize == 0 && f.OS == "" && len(f.Extra) == 0
}

// ApplyTo returns a copy of specs with every non-empty feature overlaid.
// Replacing the GPU without a tier leaves GPUTier empty.
func (f FeatureSet) ApplyTo(specs ProductSpecs) ProductSpecs {
	out := specs
	if f.Brand != "" {
		out.Brand = f.Brand
	}
	if f.Series != "" {
		out.Series = f.Series
	}
	if f.Model != "" {
		out.ModelCode = f.Model
	}
	if f.Processor != "" {
		out.Processor = f.Processor
	}
	if f.ProcessorGeneration != "" {
		out.ProcessorGeneration = f.ProcessorGeneration
	}
	if f.RAMGB > 0 {
		out.RAMGB = f.RAMGB
	}
	if f.StorageGB > 0 {
		out.StorageGB = f.StorageGB
	}
	if f.GPU != "" {
		// a tier derived from the previous GPU no longer applies
		if !strings.EqualFold(f.GPU, out.GPU) {
			out.GPUTier = ""
		}
		out.GPU = f.GPU
	}
	if f.GPUTier != "" {
		out.GPUTier = f.GPUTier
	}
	if f.ScreenSize > 0 {
		out.ScreenSize = f.ScreenSize
	}
	if f.OS != "" {
		out.OS = f.OS
	}
	return out
}
