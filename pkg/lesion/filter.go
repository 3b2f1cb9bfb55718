package lesion

import (
	"math"

	"aocascore/pkg/selection"
)

// FilterConfig holds the two noise floors. Which one applies depends on the
// segmentation method: seed (point-and-click) runs use the per-slice area
// rule, box and paint runs use the lesion volume rule. Both floors are
// inclusive; a lesion exactly at the threshold is retained.
type FilterConfig struct {
	// MinVolumeMM3 is the minimum lesion volume for box and paint runs
	MinVolumeMM3 float64

	// MinAreaMM2 is the minimum per-slice area for seed runs, with a floor
	// of two contiguous pixels regardless of spacing
	MinAreaMM2 float64
}

// FilterResult reports what the noise filter kept and removed.
type FilterResult struct {
	Kept    []Lesion
	Removed int
}

// Filter removes lesions below the noise floor for the given segmentation
// method. Removed lesions are permanently excluded from scoring and
// statistics for the run. pixelArea is the volume's in-plane pixel area in
// mm², needed to translate the area floor into a pixel count.
func Filter(lesions []Lesion, method selection.Kind, cfg FilterConfig, pixelArea float64) FilterResult {
	var res FilterResult
	for _, les := range lesions {
		if keep(&les, method, cfg, pixelArea) {
			res.Kept = append(res.Kept, les)
		} else {
			res.Removed++
		}
	}
	return res
}

func keep(les *Lesion, method selection.Kind, cfg FilterConfig, pixelArea float64) bool {
	if method == selection.KindSeed {
		minPixels := MinPortionPixels(cfg.MinAreaMM2, pixelArea)
		for _, p := range les.Portions {
			if p.Pixels >= minPixels && p.AreaMM2 >= cfg.MinAreaMM2 {
				return true
			}
		}
		return false
	}
	return les.VolumeMM3 >= cfg.MinVolumeMM3
}

// MinPortionPixels returns the pixel count a slice portion needs to satisfy
// the area floor: enough pixels to cover minAreaMM2, and never fewer than
// two so single-pixel noise cannot score.
func MinPortionPixels(minAreaMM2, pixelArea float64) int {
	n := int(math.Ceil(minAreaMM2 / pixelArea))
	if n < 2 {
		n = 2
	}
	return n
}
