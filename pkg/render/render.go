// Package render produces axial review images for a scored run: the CT
// slice in grayscale with the detected calcium overlaid in the four
// density-band colors.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"sort"

	"aocascore/pkg/lesion"
	"aocascore/pkg/scoring"
	"aocascore/pkg/volume"
)

// Window is the CT display window. HU values at or below Level-Width/2 map
// to black, at or above Level+Width/2 to white.
type Window struct {
	LevelHU float64
	WidthHU float64
}

// DefaultWindow is a wide window suitable for calcified valve review.
var DefaultWindow = Window{LevelHU: 300, WidthHU: 1500}

// bandColors are the overlay colors per density factor band, factor 1
// through 4.
var bandColors = [4]color.RGBA{
	{R: 255, G: 255, B: 0, A: 255}, // 130-199 HU
	{R: 255, G: 165, B: 0, A: 255}, // 200-299 HU
	{R: 255, G: 0, B: 0, A: 255},   // 300-399 HU
	{R: 200, G: 0, B: 200, A: 255}, // 400+ HU
}

// Renderer draws axial slices of one volume with a fixed lesion overlay.
type Renderer struct {
	vol    *volume.Volume
	window Window

	// band per overlaid linear voxel index, 0-3
	overlay map[int]int
}

// NewRenderer creates a renderer for the volume and the filtered lesion set
// of one run.
func NewRenderer(vol *volume.Volume, lesions []lesion.Lesion, window Window) *Renderer {
	r := &Renderer{vol: vol, window: window, overlay: make(map[int]int)}
	bands := scoring.BandVoxels(lesions, vol)
	for band, voxels := range bands {
		for _, idx := range voxels {
			r.overlay[idx] = band
		}
	}
	return r
}

// gray maps an HU value through the display window to an 8-bit intensity.
func (r *Renderer) gray(hu int16) uint8 {
	low := r.window.LevelHU - r.window.WidthHU/2
	v := (float64(hu) - low) / r.window.WidthHU * 255
	if v < 0 {
		v = 0
	} else if v > 255 {
		v = 255
	}
	return uint8(v)
}

// RenderSlice draws one axial slice with the calcium overlay.
func (r *Renderer) RenderSlice(z int) (image.Image, error) {
	nx, ny, nz := r.vol.Dims()
	if z < 0 || z >= nz {
		return nil, fmt.Errorf("slice %d out of range 0-%d", z, nz-1)
	}

	img := image.NewRGBA(image.Rect(0, 0, nx, ny))
	for y := 0; y < ny; y++ {
		for x := 0; x < nx; x++ {
			idx := r.vol.Index(x, y, z)
			if band, ok := r.overlay[idx]; ok {
				img.SetRGBA(x, y, bandColors[band])
				continue
			}
			g := r.gray(r.vol.HUAt(idx))
			img.SetRGBA(x, y, color.RGBA{R: g, G: g, B: g, A: 255})
		}
	}
	return img, nil
}

// SaveSlice writes a rendered slice as a JPEG image.
func (r *Renderer) SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
}

// lesionSlices returns the ascending slice indices that carry overlay
// voxels.
func (r *Renderer) lesionSlices() []int {
	seen := make(map[int]bool)
	for idx := range r.overlay {
		_, _, z := r.vol.Coord(idx)
		seen[z] = true
	}
	slices := make([]int, 0, len(seen))
	for z := range seen {
		slices = append(slices, z)
	}
	sort.Ints(slices)
	return slices
}

// SaveLesionSlices renders and saves every axial slice that contains
// calcium, named slice_z_NNN.jpg, and returns how many were written.
func (r *Renderer) SaveLesionSlices(outputDir string) (int, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return 0, err
	}

	slices := r.lesionSlices()
	for _, z := range slices {
		img, err := r.RenderSlice(z)
		if err != nil {
			return 0, err
		}
		filename := filepath.Join(outputDir, fmt.Sprintf("slice_z_%03d.jpg", z))
		if err := r.SaveSlice(img, filename); err != nil {
			return 0, err
		}
	}
	return len(slices), nil
}
