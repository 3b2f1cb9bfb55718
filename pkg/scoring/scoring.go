// Package scoring computes the Agatston score, calcium volume, equivalent
// mass and severity grade from a filtered lesion set. The method follows
// the standard non-contrast protocol: per slice, the lesion area is weighted
// by a density factor derived from that slice's peak HU, and the weighted
// areas are summed over all slices and lesions.
package scoring

import (
	"sort"

	"aocascore/pkg/lesion"
	"aocascore/pkg/volume"
)

// Condition distinguishes the valid zero-score outcomes from a computed
// score, so callers can tell "no calcium" apart from "not yet computed".
type Condition int

const (
	// ConditionOK means lesions were scored
	ConditionOK Condition = iota

	// ConditionNoLesionFound means the selection produced an empty mask
	ConditionNoLesionFound

	// ConditionNoCalciumDetected means every candidate lesion was filtered
	// out as noise
	ConditionNoCalciumDetected
)

// String returns the condition name used in logs and reports.
func (c Condition) String() string {
	switch c {
	case ConditionOK:
		return "ok"
	case ConditionNoLesionFound:
		return "no lesion found"
	case ConditionNoCalciumDetected:
		return "no calcium detected"
	}
	return "unknown"
}

// Config holds the scoring calibration parameters. Zero values are not
// meaningful; populate from config.DefaultConfig or an explicit literal.
type Config struct {
	// MassCalibration converts volume-weighted mean density to equivalent
	// calcium mass: mass_mg = volume_mm3 * (meanHU/1000) * MassCalibration.
	// The default 1.2 corresponds to hydroxyapatite at 1000 HU.
	MassCalibration float64

	// MinSliceAreaMM2 is the per-slice area floor: a lesion-slice portion
	// below this area (or below two pixels) contributes no score.
	MinSliceAreaMM2 float64

	// CorrectOverlap enables the overlapping-acquisition correction: when
	// the axial spacing is under 2.5 mm, only every Nth slice is scored so
	// the effective increment matches the 3 mm standard. Volume totals are
	// not affected.
	CorrectOverlap bool
}

// SliceScore is the Agatston contribution of one axial slice.
type SliceScore struct {
	Slice int
	Score float64
}

// Result is the aggregate scoring output of one analysis run. All fields
// are zero when Condition is not ConditionOK.
type Result struct {
	// TotalAgatston is the Agatston score in AU
	TotalAgatston float64

	// TotalVolumeMM3 is the summed 3D volume of the filtered lesions
	TotalVolumeMM3 float64

	// MassMG is the equivalent calcium mass in mg
	MassMG float64

	// MeanDensityHU and MaxDensityHU are taken over all member voxels
	MeanDensityHU float64
	MaxDensityHU  int16

	// LesionCount is the number of filtered lesions scored
	LesionCount int

	// PerSlice lists the nonzero per-slice contributions in ascending
	// slice order; their sum equals TotalAgatston
	PerSlice []SliceScore

	// DensityDistribution is the percentage of lesions whose peak HU falls
	// in each factor band
	DensityDistribution [4]float64

	Condition Condition
}

// DensityFactor maps a slice portion's peak HU to the Agatston weight.
// Values below 130 do not occur here because the mask threshold excludes
// them; they map to factor 1 for completeness.
func DensityFactor(maxHU int16) int {
	switch {
	case maxHU >= 400:
		return 4
	case maxHU >= 300:
		return 3
	case maxHU >= 200:
		return 2
	default:
		return 1
	}
}

// sliceStep returns how many slices one scored slice stands for. Thin
// overlapping acquisitions (spacing under 2.5 mm) are sampled at the 3 mm
// standard increment when the correction is enabled.
func sliceStep(cfg Config, sz float64) int {
	const standardIncrementMM = 3.0
	if !cfg.CorrectOverlap || sz >= 2.5 {
		return 1
	}
	step := int(standardIncrementMM/sz + 0.5)
	if step < 1 {
		step = 1
	}
	return step
}

// PerSliceScores computes the Agatston contribution per axial slice for the
// filtered lesion set. The statistics aggregator reuses this function so
// its per-slice profile matches the scorer exactly.
func PerSliceScores(filtered []lesion.Lesion, vol *volume.Volume, cfg Config) []SliceScore {
	_, _, sz := vol.Spacing()
	step := sliceStep(cfg, sz)
	minPixels := lesion.MinPortionPixels(cfg.MinSliceAreaMM2, vol.PixelArea())

	bySlice := make(map[int]float64)
	for _, les := range filtered {
		for _, p := range les.Portions {
			if p.Slice%step != 0 {
				continue
			}
			if p.Pixels < minPixels || p.AreaMM2 < cfg.MinSliceAreaMM2 {
				continue
			}
			bySlice[p.Slice] += p.AreaMM2 * float64(DensityFactor(p.MaxHU))
		}
	}

	slices := make([]int, 0, len(bySlice))
	for z := range bySlice {
		slices = append(slices, z)
	}
	sort.Ints(slices)

	out := make([]SliceScore, len(slices))
	for i, z := range slices {
		out[i] = SliceScore{Slice: z, Score: bySlice[z]}
	}
	return out
}

// LesionScore computes one lesion's total Agatston contribution under the
// same floors and slice sampling as the full score.
func LesionScore(les *lesion.Lesion, vol *volume.Volume, cfg Config) float64 {
	_, _, sz := vol.Spacing()
	step := sliceStep(cfg, sz)
	minPixels := lesion.MinPortionPixels(cfg.MinSliceAreaMM2, vol.PixelArea())

	var total float64
	for _, p := range les.Portions {
		if p.Slice%step != 0 {
			continue
		}
		if p.Pixels < minPixels || p.AreaMM2 < cfg.MinSliceAreaMM2 {
			continue
		}
		total += p.AreaMM2 * float64(DensityFactor(p.MaxHU))
	}
	return total
}

// Score computes the aggregate result for a filtered lesion set. An empty
// set is a valid outcome: the result carries zeros and the
// NoCalciumDetected condition, not an error.
func Score(filtered []lesion.Lesion, vol *volume.Volume, cfg Config) Result {
	if len(filtered) == 0 {
		return Result{Condition: ConditionNoCalciumDetected}
	}

	res := Result{
		Condition:   ConditionOK,
		LesionCount: len(filtered),
		PerSlice:    PerSliceScores(filtered, vol, cfg),
	}

	for _, s := range res.PerSlice {
		res.TotalAgatston += s.Score
	}

	var sumHU float64
	var voxels int
	for _, les := range filtered {
		res.TotalVolumeMM3 += les.VolumeMM3
		res.DensityDistribution[DensityFactor(les.PeakHU)-1]++
		for _, idx := range les.Voxels {
			hu := vol.HUAt(idx)
			sumHU += float64(hu)
			voxels++
			if hu > res.MaxDensityHU {
				res.MaxDensityHU = hu
			}
		}
	}

	res.MeanDensityHU = sumHU / float64(voxels)
	for i := range res.DensityDistribution {
		res.DensityDistribution[i] = res.DensityDistribution[i] / float64(len(filtered)) * 100
	}

	if res.MeanDensityHU > 0 {
		res.MassMG = res.TotalVolumeMM3 * (res.MeanDensityHU / 1000.0) * cfg.MassCalibration
	}

	return res
}

// BandVoxels groups the filtered lesions' member voxels by density band so
// the host can render calcium with the four standard colors. Band i holds
// the linear voxel indices whose own HU maps to factor i+1.
func BandVoxels(filtered []lesion.Lesion, vol *volume.Volume) [4][]int {
	var bands [4][]int
	for _, les := range filtered {
		for _, idx := range les.Voxels {
			band := DensityFactor(vol.HUAt(idx)) - 1
			bands[band] = append(bands[band], idx)
		}
	}
	return bands
}
