package render

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"aocascore/pkg/lesion"
	"aocascore/pkg/mask"
	"aocascore/pkg/selection"
	"aocascore/pkg/volume"
)

func renderFixture(t *testing.T) (*Renderer, *volume.Volume) {
	t.Helper()
	const n = 8
	data := make([]int16, n*n*n)
	vol, err := volume.New(data, n, n, n, 1, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	// two calcium voxels on slice 3, one on slice 4, in different bands
	data[vol.Index(2, 2, 3)] = 150
	data[vol.Index(3, 2, 3)] = 450
	data[vol.Index(2, 2, 4)] = 250

	sel := selection.NewBox(selection.OrientedBox{
		Max: selection.Point{X: n - 1, Y: n - 1, Z: n - 1},
	})
	m, err := mask.Build(context.Background(), vol, sel, 130)
	if err != nil {
		t.Fatal(err)
	}
	lesions, err := lesion.Extract(context.Background(), m, vol, 1)
	if err != nil {
		t.Fatal(err)
	}
	return NewRenderer(vol, lesions, DefaultWindow), vol
}

func TestRenderSliceOverlay(t *testing.T) {
	r, _ := renderFixture(t)

	img, err := r.RenderSlice(3)
	if err != nil {
		t.Fatalf("RenderSlice failed: %v", err)
	}

	rgba, ok := img.(*image.RGBA)
	if !ok {
		t.Fatalf("expected *image.RGBA, got %T", img)
	}
	if got := rgba.RGBAAt(2, 2); got != bandColors[0] {
		t.Errorf("150 HU voxel: expected band 1 color, got %v", got)
	}
	if got := rgba.RGBAAt(3, 2); got != bandColors[3] {
		t.Errorf("450 HU voxel: expected band 4 color, got %v", got)
	}

	// background is grayscale under the display window
	bg := rgba.RGBAAt(0, 0)
	if bg.R != bg.G || bg.G != bg.B {
		t.Errorf("background should be gray, got %v", bg)
	}
}

func TestRenderSliceOutOfRange(t *testing.T) {
	r, _ := renderFixture(t)
	if _, err := r.RenderSlice(-1); err == nil {
		t.Error("expected error for negative slice")
	}
	if _, err := r.RenderSlice(8); err == nil {
		t.Error("expected error for slice past the end")
	}
}

func TestGrayWindow(t *testing.T) {
	r := &Renderer{window: Window{LevelHU: 300, WidthHU: 1500}}

	if g := r.gray(-450); g != 0 {
		t.Errorf("window floor: expected 0, got %d", g)
	}
	if g := r.gray(1050); g != 255 {
		t.Errorf("window ceiling: expected 255, got %d", g)
	}
	if g := r.gray(300); g != 127 {
		t.Errorf("window level: expected mid gray, got %d", g)
	}
}

func TestSaveLesionSlices(t *testing.T) {
	r, _ := renderFixture(t)
	dir := filepath.Join(t.TempDir(), "slices")

	n, err := r.SaveLesionSlices(dir)
	if err != nil {
		t.Fatalf("SaveLesionSlices failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 slices written, got %d", n)
	}
	for _, name := range []string{"slice_z_003.jpg", "slice_z_004.jpg"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
}

func TestBandColorsDistinct(t *testing.T) {
	seen := make(map[color.RGBA]bool)
	for _, c := range bandColors {
		if seen[c] {
			t.Fatalf("duplicate band color %v", c)
		}
		seen[c] = true
	}
}
