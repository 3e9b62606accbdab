package usecase

import (
	"math"
	"strings"

	"github.com/serpprice/backend/internal/domain"
)

// Field weights for structured matching
const (
	specBrandWeight     = 0.15
	specSeriesWeight    = 0.15
	specGPUWeight       = 0.25
	specProcessorWeight = 0.15
	specRAMWeight       = 0.15
	specStorageWeight   = 0.10
	specScreenWeight    = 0.05

	sameBrandOtherSeries = 0.05
	sameFamilyOtherTier  = 0.10
	otherGeneration      = 0.05
	nearRAM              = 0.08
	nearStorage          = 0.05

	nearRAMGB             = 8
	nearStorageGB         = 512
	screenToleranceInches = 0.5
)

// MatchSpecs compares two structured records. Identical model codes are an
// exact match outright; otherwise each field present on both sides adds its
// weight, and the sum is normalized by the weights that applied.
func MatchSpecs(a, b domain.ProductSpecs) domain.SpecMatchResult {
	if a.ModelCode != "" && strings.EqualFold(a.ModelCode, b.ModelCode) {
		return domain.SpecMatchResult{Score: 1, Level: domain.MatchExact, ModelCodeMatch: true}
	}

	var score, applicable float64

	if a.Brand != "" && b.Brand != "" {
		applicable += specBrandWeight
		if strings.EqualFold(a.Brand, b.Brand) {
			score += specBrandWeight
		}
	}

	if a.Series != "" && b.Series != "" {
		applicable += specSeriesWeight
		switch {
		case strings.EqualFold(a.Series, b.Series):
			score += specSeriesWeight
		case a.Brand != "" && strings.EqualFold(a.Brand, b.Brand):
			score += sameBrandOtherSeries
		}
	}

	switch {
	case a.GPUTier != "" && b.GPUTier != "":
		applicable += specGPUWeight
		if a.GPUTier == b.GPUTier {
			score += specGPUWeight
		} else {
			score += sameFamilyOtherTier
		}
	case a.GPU != "" && b.GPU != "":
		applicable += specGPUWeight
		if strings.EqualFold(a.GPU, b.GPU) {
			score += specGPUWeight
		}
	}

	switch {
	case a.ProcessorGeneration != "" && b.ProcessorGeneration != "":
		applicable += specProcessorWeight
		if a.ProcessorGeneration == b.ProcessorGeneration {
			score += specProcessorWeight
		} else {
			score += otherGeneration
		}
	case a.Processor != "" && b.Processor != "":
		applicable += specProcessorWeight
		if strings.EqualFold(a.Processor, b.Processor) {
			score += specProcessorWeight
		}
	}

	if a.RAMGB > 0 && b.RAMGB > 0 {
		applicable += specRAMWeight
		switch diff := absInt(a.RAMGB - b.RAMGB); {
		case diff == 0:
			score += specRAMWeight
		case diff <= nearRAMGB:
			score += nearRAM
		}
	}

	if a.StorageGB > 0 && b.StorageGB > 0 {
		applicable += specStorageWeight
		switch diff := absInt(a.StorageGB - b.StorageGB); {
		case diff == 0:
			score += specStorageWeight
		case diff <= nearStorageGB:
			score += nearStorage
		}
	}

	if a.ScreenSize > 0 && b.ScreenSize > 0 {
		applicable += specScreenWeight
		if math.Abs(a.ScreenSize-b.ScreenSize) < screenToleranceInches {
			score += specScreenWeight
		}
	}

	if applicable == 0 {
		return domain.SpecMatchResult{Score: 0, Level: domain.MatchDifferent}
	}
	final := clamp01(score / applicable)
	return domain.SpecMatchResult{Score: final, Level: ClassifySpecScore(final)}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
