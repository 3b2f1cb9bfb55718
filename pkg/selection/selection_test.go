package selection

import (
	"math"
	"testing"

	"github.com/pkg/errors"

	"aocascore/pkg/volume"
)

func newTestVolume(t *testing.T) *volume.Volume {
	t.Helper()
	vol, err := volume.New(make([]int16, 10*10*10), 10, 10, 10, 1, 1, 1)
	if err != nil {
		t.Fatalf("failed to create test volume: %v", err)
	}
	return vol
}

func TestValidate(t *testing.T) {
	vol := newTestVolume(t)

	testCases := []struct {
		name    string
		sel     Selection
		wantErr bool
	}{
		{"seed inside", NewSeed(Point{5, 5, 5}), false},
		{"seed on corner", NewSeed(Point{9, 9, 9}), false},
		{"seed outside", NewSeed(Point{10, 5, 5}), true},
		{"seed negative", NewSeed(Point{-1, 0, 0}), true},
		{"valid box", NewBox(OrientedBox{Min: Point{1, 1, 1}, Max: Point{8, 8, 8}}), false},
		{"single-voxel box", NewBox(OrientedBox{Min: Point{2, 2, 2}, Max: Point{2, 2, 2}}), false},
		{"inverted box", NewBox(OrientedBox{Min: Point{5, 5, 5}, Max: Point{4, 5, 5}}), true},
		{"paint", NewPaint([]Point{{1, 2, 3}}), false},
		{"empty paint", NewPaint(nil), true},
	}

	for _, tc := range testCases {
		err := tc.sel.Validate(vol)
		if tc.wantErr && !errors.Is(err, ErrInvalidSelection) {
			t.Errorf("%s: expected ErrInvalidSelection, got %v", tc.name, err)
		}
		if !tc.wantErr && err != nil {
			t.Errorf("%s: unexpected error %v", tc.name, err)
		}
	}
}

func TestBoxContainsAxisAligned(t *testing.T) {
	box := OrientedBox{Min: Point{2, 2, 2}, Max: Point{4, 4, 4}}

	if !box.Contains(2, 2, 2, 1, 1, 1) || !box.Contains(4, 4, 4, 1, 1, 1) {
		t.Error("inclusive bounds voxels should be contained")
	}
	if !box.Contains(3, 3, 3, 1, 1, 1) {
		t.Error("center voxel should be contained")
	}
	if box.Contains(1, 3, 3, 1, 1, 1) || box.Contains(5, 3, 3, 1, 1, 1) {
		t.Error("voxels outside the extent should not be contained")
	}
}

func TestBoxContainsAnisotropicSpacing(t *testing.T) {
	// Same voxel box, but thick slices: containment is tested in physical
	// space, so the voxel-level result must not change.
	box := OrientedBox{Min: Point{2, 2, 2}, Max: Point{4, 4, 4}}
	for z := 0; z < 8; z++ {
		want := z >= 2 && z <= 4
		if got := box.Contains(3, 3, z, 0.5, 0.5, 3.0); got != want {
			t.Errorf("z=%d: contained=%v, expected %v", z, got, want)
		}
	}
}

func TestBoxContainsRotated(t *testing.T) {
	// A flat box rotated 90 degrees about the z axis swaps its x and y
	// extents around the shared center.
	box := OrientedBox{Min: Point{2, 4, 0}, Max: Point{6, 4, 0}, RotIS: 90}

	// Center stays inside under any rotation
	if !box.Contains(4, 4, 0, 1, 1, 1) {
		t.Error("center voxel should remain contained after rotation")
	}
	// The unrotated long axis ends are now outside
	if box.Contains(2, 4, 0, 1, 1, 1) || box.Contains(6, 4, 0, 1, 1, 1) {
		t.Error("x-axis ends should fall outside the rotated box")
	}
	// The rotated long axis now extends along y
	if !box.Contains(4, 2, 0, 1, 1, 1) || !box.Contains(4, 6, 0, 1, 1, 1) {
		t.Error("y-axis ends should fall inside the rotated box")
	}
}

func TestRotationMatrixOrthonormal(t *testing.T) {
	box := OrientedBox{RotLR: 30, RotPA: -45, RotIS: 120}
	r := box.rotation()

	// R * R^T must be identity for a pure rotation
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var dot float64
			for k := 0; k < 3; k++ {
				dot += r.At(i, k) * r.At(j, k)
			}
			want := 0.0
			if i == j {
				want = 1.0
			}
			if math.Abs(dot-want) > 1e-12 {
				t.Fatalf("R*R^T[%d][%d] = %f, expected %f", i, j, dot, want)
			}
		}
	}
}

func TestKindString(t *testing.T) {
	if KindSeed.String() != "seed" || KindBox.String() != "box" || KindPaint.String() != "paint" {
		t.Error("unexpected kind labels")
	}
}
