// Package stats derives the distribution views of a filtered lesion set:
// HU histogram, per-lesion volume percentiles, the per-slice score profile
// and the angular bull's-eye distribution used for valve-region charts.
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"aocascore/pkg/lesion"
	"aocascore/pkg/scoring"
	"aocascore/pkg/volume"
)

// Config holds the aggregation parameters. The aggregator receives the
// sector count and center; it never decides them.
type Config struct {
	// SectorCount is the number of angular bull's-eye sectors
	SectorCount int

	// Percentiles is the percentile set to report, in percent (e.g. 25, 50)
	Percentiles []float64

	// Center optionally fixes the bull's-eye center in voxel coordinates
	// (x, y, z). When nil the calcium centroid is used.
	Center *[3]float64
}

// HistogramBin is one HU band of the density histogram. The upper bound is
// exclusive; the last bin is open-ended.
type HistogramBin struct {
	LowHU  float64
	HighHU float64
	Count  int
}

// PercentileValue pairs a percentile with the per-lesion volume at that
// rank.
type PercentileValue struct {
	Percentile float64
	VolumeMM3  float64
}

// Sector is one angular bin of the bull's-eye profile.
type Sector struct {
	StartDeg    float64
	EndDeg      float64
	Score       float64
	LesionCount int
}

// AngularProfile is the bull's-eye distribution of score around the center.
type AngularProfile struct {
	// Center is the reference point in voxel coordinates
	Center  [3]float64
	Sectors []Sector
}

// RegionStat summarizes one radial ring of the valve plane.
type RegionStat struct {
	VoxelCount int
	MeanHU     float64
}

// RingSummary is the radial companion to the angular profile: the annulus
// center, the cusp ring and the outer ring, split at 20% and 60% of the
// maximum calcium radius.
type RingSummary struct {
	Center RegionStat
	Cusp   RegionStat
	Outer  RegionStat
}

// Statistics is the full aggregation output for one analysis run.
type Statistics struct {
	Histogram   []HistogramBin
	Percentiles []PercentileValue

	// PerSlice matches the scorer's per-slice contributions exactly
	PerSlice []scoring.SliceScore

	Angular AngularProfile
	Rings   RingSummary

	// DensityDistribution is the percentage of lesions peaking in each
	// factor band
	DensityDistribution [4]float64
}

// histogram dividers: the four factor bands plus an overflow split at 600 HU
var histogramDividers = []float64{math.Inf(-1), 200, 300, 400, 600, math.Inf(1)}

// displayed lower edge of the first bin; mask thresholding means no member
// voxel sits below it in practice
const firstBinLowHU = 130.0

// Aggregate computes the statistics for a filtered lesion set. The scoring
// config must be the same one given to the scorer so the per-slice profile
// stays consistent with the reported total. An empty lesion set yields
// zero-valued statistics.
func Aggregate(filtered []lesion.Lesion, vol *volume.Volume, scoreCfg scoring.Config, cfg Config) Statistics {
	s := Statistics{
		Histogram: emptyHistogram(),
	}
	if len(filtered) == 0 {
		return s
	}

	s.Histogram = histogramOf(filtered, vol)
	s.Percentiles = percentilesOf(filtered, cfg.Percentiles)
	s.PerSlice = scoring.PerSliceScores(filtered, vol, scoreCfg)
	s.Angular = angularProfile(filtered, vol, scoreCfg, cfg)
	s.Rings = ringSummary(filtered, vol, s.Angular.Center)

	for _, les := range filtered {
		s.DensityDistribution[scoring.DensityFactor(les.PeakHU)-1]++
	}
	for i := range s.DensityDistribution {
		s.DensityDistribution[i] = s.DensityDistribution[i] / float64(len(filtered)) * 100
	}
	return s
}

func emptyHistogram() []HistogramBin {
	bins := make([]HistogramBin, len(histogramDividers)-1)
	for i := range bins {
		bins[i] = HistogramBin{LowHU: histogramDividers[i], HighHU: histogramDividers[i+1]}
	}
	bins[0].LowHU = firstBinLowHU
	return bins
}

// histogramOf bins every member voxel's HU into the factor bands.
func histogramOf(filtered []lesion.Lesion, vol *volume.Volume) []HistogramBin {
	var values []float64
	for _, les := range filtered {
		for _, idx := range les.Voxels {
			values = append(values, float64(vol.HUAt(idx)))
		}
	}
	sort.Float64s(values)

	counts := stat.Histogram(nil, histogramDividers, values, nil)

	bins := emptyHistogram()
	for i := range bins {
		bins[i].Count = int(counts[i])
	}
	return bins
}

// percentilesOf computes the requested percentiles over per-lesion volumes
// using the empirical quantile (nearest observation at or above the rank),
// which is deterministic and never interpolates between lesions.
func percentilesOf(filtered []lesion.Lesion, percentiles []float64) []PercentileValue {
	vols := make([]float64, len(filtered))
	for i, les := range filtered {
		vols[i] = les.VolumeMM3
	}
	sort.Float64s(vols)

	out := make([]PercentileValue, len(percentiles))
	for i, p := range percentiles {
		out[i] = PercentileValue{
			Percentile: p,
			VolumeMM3:  stat.Quantile(p/100, stat.Empirical, vols, nil),
		}
	}
	return out
}

// calciumCentroid is the voxel-count-weighted mean of all member voxels.
func calciumCentroid(filtered []lesion.Lesion, vol *volume.Volume) [3]float64 {
	var sx, sy, sz float64
	var n int
	for _, les := range filtered {
		for _, idx := range les.Voxels {
			x, y, z := vol.Coord(idx)
			sx += float64(x)
			sy += float64(y)
			sz += float64(z)
			n++
		}
	}
	return [3]float64{sx / float64(n), sy / float64(n), sz / float64(n)}
}

// angularProfile maps each lesion's centroid to an angular sector around
// the center and aggregates the lesion's score there. Angles are measured
// in the axial plane in physical coordinates.
func angularProfile(filtered []lesion.Lesion, vol *volume.Volume, scoreCfg scoring.Config, cfg Config) AngularProfile {
	n := cfg.SectorCount
	if n < 1 {
		n = 1
	}

	var center [3]float64
	if cfg.Center != nil {
		center = *cfg.Center
	} else {
		center = calciumCentroid(filtered, vol)
	}

	width := 360.0 / float64(n)
	prof := AngularProfile{Center: center, Sectors: make([]Sector, n)}
	for i := range prof.Sectors {
		prof.Sectors[i].StartDeg = float64(i) * width
		prof.Sectors[i].EndDeg = float64(i+1) * width
	}

	sx, sy, _ := vol.Spacing()
	for i := range filtered {
		les := &filtered[i]
		dx := (les.Centroid[0] - center[0]) * sx
		dy := (les.Centroid[1] - center[1]) * sy

		deg := math.Atan2(dy, dx) * 180 / math.Pi
		deg = math.Mod(deg+360, 360)

		sector := int(deg / width)
		if sector >= n {
			sector = n - 1
		}
		prof.Sectors[sector].Score += scoring.LesionScore(les, vol, scoreCfg)
		prof.Sectors[sector].LesionCount++
	}
	return prof
}

// ringSummary classifies member voxels into three radial rings around the
// center, at 20% and 60% of the maximum calcium radius, and reports voxel
// count and mean HU per ring.
func ringSummary(filtered []lesion.Lesion, vol *volume.Volume, center [3]float64) RingSummary {
	sx, sy, sz := vol.Spacing()

	type member struct {
		dist float64
		hu   float64
	}
	var members []member
	var maxRadius float64
	for _, les := range filtered {
		for _, idx := range les.Voxels {
			x, y, z := vol.Coord(idx)
			dx := (float64(x) - center[0]) * sx
			dy := (float64(y) - center[1]) * sy
			dz := (float64(z) - center[2]) * sz
			d := math.Sqrt(dx*dx + dy*dy + dz*dz)
			if d > maxRadius {
				maxRadius = d
			}
			members = append(members, member{dist: d, hu: float64(vol.HUAt(idx))})
		}
	}

	inner := maxRadius * 0.2
	mid := maxRadius * 0.6

	var sum [3]float64
	var count [3]int
	for _, m := range members {
		ring := 2
		if m.dist < inner {
			ring = 0
		} else if m.dist < mid {
			ring = 1
		}
		sum[ring] += m.hu
		count[ring]++
	}

	mean := func(ring int) float64 {
		if count[ring] == 0 {
			return 0
		}
		return sum[ring] / float64(count[ring])
	}
	return RingSummary{
		Center: RegionStat{VoxelCount: count[0], MeanHU: mean(0)},
		Cusp:   RegionStat{VoxelCount: count[1], MeanHU: mean(1)},
		Outer:  RegionStat{VoxelCount: count[2], MeanHU: mean(2)},
	}
}
