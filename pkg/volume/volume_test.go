package volume

import (
	"os"
	"path/filepath"
	"testing"
)

// newTestVolume builds a small volume with a distinct value per voxel.
func newTestVolume(t *testing.T, nx, ny, nz int) *Volume {
	t.Helper()
	data := make([]int16, nx*ny*nz)
	for i := range data {
		data[i] = int16(i)
	}
	vol, err := New(data, nx, ny, nz, 1.0, 1.0, 1.0)
	if err != nil {
		t.Fatalf("failed to create test volume: %v", err)
	}
	return vol
}

func TestNewValidation(t *testing.T) {
	data := make([]int16, 8)

	testCases := []struct {
		name       string
		data       []int16
		nx, ny, nz int
		sx, sy, sz float64
	}{
		{"zero dimension", data, 0, 2, 2, 1, 1, 1},
		{"negative dimension", data, 2, -2, 2, 1, 1, 1},
		{"length mismatch", data, 3, 3, 3, 1, 1, 1},
		{"zero spacing", data, 2, 2, 2, 1, 0, 1},
		{"negative spacing", data, 2, 2, 2, 1, 1, -0.5},
	}

	for _, tc := range testCases {
		if _, err := New(tc.data, tc.nx, tc.ny, tc.nz, tc.sx, tc.sy, tc.sz); err == nil {
			t.Errorf("%s: expected error, got nil", tc.name)
		}
	}

	if _, err := New(data, 2, 2, 2, 0.5, 0.5, 3.0); err != nil {
		t.Errorf("valid volume rejected: %v", err)
	}
}

func TestIndexCoordRoundTrip(t *testing.T) {
	vol := newTestVolume(t, 4, 3, 2)

	for z := 0; z < 2; z++ {
		for y := 0; y < 3; y++ {
			for x := 0; x < 4; x++ {
				idx := vol.Index(x, y, z)
				rx, ry, rz := vol.Coord(idx)
				if rx != x || ry != y || rz != z {
					t.Fatalf("round trip (%d,%d,%d) -> %d -> (%d,%d,%d)", x, y, z, idx, rx, ry, rz)
				}
				if vol.HU(x, y, z) != vol.HUAt(idx) {
					t.Fatalf("HU lookup mismatch at (%d,%d,%d)", x, y, z)
				}
			}
		}
	}
}

func TestGeometry(t *testing.T) {
	data := make([]int16, 4*5*6)
	vol, err := New(data, 4, 5, 6, 0.5, 0.6, 3.0)
	if err != nil {
		t.Fatalf("failed to create volume: %v", err)
	}

	if got := vol.PixelArea(); got != 0.5*0.6 {
		t.Errorf("PixelArea: expected %.3f, got %.3f", 0.5*0.6, got)
	}
	if got := vol.VoxelVolume(); got != 0.5*0.6*3.0 {
		t.Errorf("VoxelVolume: expected %.3f, got %.3f", 0.5*0.6*3.0, got)
	}
	if vol.NumVoxels() != 4*5*6 {
		t.Errorf("NumVoxels: expected %d, got %d", 4*5*6, vol.NumVoxels())
	}

	if vol.InBounds(3, 4, 5) != true {
		t.Error("corner voxel should be in bounds")
	}
	for _, p := range [][3]int{{-1, 0, 0}, {4, 0, 0}, {0, 5, 0}, {0, 0, 6}} {
		if vol.InBounds(p[0], p[1], p[2]) {
			t.Errorf("(%d,%d,%d) should be out of bounds", p[0], p[1], p[2])
		}
	}
}

func TestRawRoundTrip(t *testing.T) {
	vol := newTestVolume(t, 5, 4, 3)

	dir, err := os.MkdirTemp("", "aocascore-test-*")
	if err != nil {
		t.Fatalf("failed to create temporary directory: %v", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "volume.raw")
	if err := SaveRaw(vol, path); err != nil {
		t.Fatalf("SaveRaw failed: %v", err)
	}

	loaded, err := LoadRaw(path)
	if err != nil {
		t.Fatalf("LoadRaw failed: %v", err)
	}

	lnx, lny, lnz := loaded.Dims()
	if lnx != 5 || lny != 4 || lnz != 3 {
		t.Fatalf("loaded dims %dx%dx%d, expected 5x4x3", lnx, lny, lnz)
	}
	for i := 0; i < vol.NumVoxels(); i++ {
		if loaded.HUAt(i) != vol.HUAt(i) {
			t.Fatalf("voxel %d: expected %d, got %d", i, vol.HUAt(i), loaded.HUAt(i))
		}
	}
}

func TestRawLengthMismatch(t *testing.T) {
	dir, err := os.MkdirTemp("", "aocascore-test-*")
	if err != nil {
		t.Fatalf("failed to create temporary directory: %v", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "volume.raw")
	sidecar := "dimensions:\n  x: 2\n  y: 2\n  z: 2\nspacing:\n  x: 1\n  y: 1\n  z: 1\n"
	if err := os.WriteFile(path+".yaml", []byte(sidecar), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, make([]byte, 10), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadRaw(path); err == nil {
		t.Error("expected error for truncated raw data, got nil")
	}
}
