package selection

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// OrientedBox is a box region with an optional rotation about each
// anatomical axis: left-right (x), posterior-anterior (y) and
// inferior-superior (z), in degrees. Min and Max are inclusive voxel
// coordinates of the unrotated box; the rotation pivots around the
// physical center of that box.
type OrientedBox struct {
	Min, Max Point

	RotLR, RotPA, RotIS float64
}

// rotation builds the box's rotation matrix from its three axis angles.
// The composition order matches the interactive ROI tooling: LR first,
// then PA, then IS.
func (b OrientedBox) rotation() *mat.Dense {
	lr := b.RotLR * math.Pi / 180
	pa := b.RotPA * math.Pi / 180
	is := b.RotIS * math.Pi / 180

	rx := mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, math.Cos(lr), -math.Sin(lr),
		0, math.Sin(lr), math.Cos(lr),
	})
	ry := mat.NewDense(3, 3, []float64{
		math.Cos(pa), 0, math.Sin(pa),
		0, 1, 0,
		-math.Sin(pa), 0, math.Cos(pa),
	})
	rz := mat.NewDense(3, 3, []float64{
		math.Cos(is), -math.Sin(is), 0,
		math.Sin(is), math.Cos(is), 0,
		0, 0, 1,
	})

	var r mat.Dense
	r.Mul(rz, ry)
	r.Mul(&r, rx)
	return &r
}

// Tester carries the precomputed frame for repeated containment checks
// over a whole volume.
type Tester struct {
	inv        *mat.Dense
	cx, cy, cz float64
	hx, hy, hz float64
	sx, sy, sz float64
	rotated    bool
}

// Tester precomputes the inverse rotation and physical extents for the
// given voxel spacing. Rotation matrices are orthonormal so the inverse is
// the transpose.
func (b OrientedBox) Tester(sx, sy, sz float64) Tester {
	t := Tester{sx: sx, sy: sy, sz: sz}

	t.cx = (float64(b.Min.X) + float64(b.Max.X) + 1) / 2 * sx
	t.cy = (float64(b.Min.Y) + float64(b.Max.Y) + 1) / 2 * sy
	t.cz = (float64(b.Min.Z) + float64(b.Max.Z) + 1) / 2 * sz

	t.hx = (float64(b.Max.X-b.Min.X) + 1) / 2 * sx
	t.hy = (float64(b.Max.Y-b.Min.Y) + 1) / 2 * sy
	t.hz = (float64(b.Max.Z-b.Min.Z) + 1) / 2 * sz

	t.rotated = b.RotLR != 0 || b.RotPA != 0 || b.RotIS != 0
	if t.rotated {
		var inv mat.Dense
		inv.CloneFrom(b.rotation().T())
		t.inv = &inv
	}
	return t
}

// Contains tests a voxel coordinate against the oriented box. The voxel's
// physical center is taken back into the box frame before the axis-aligned
// bounds check.
func (t Tester) Contains(x, y, z int) bool {
	px := (float64(x) + 0.5) * t.sx
	py := (float64(y) + 0.5) * t.sy
	pz := (float64(z) + 0.5) * t.sz

	dx := px - t.cx
	dy := py - t.cy
	dz := pz - t.cz

	if t.rotated {
		lx := t.inv.At(0, 0)*dx + t.inv.At(0, 1)*dy + t.inv.At(0, 2)*dz
		ly := t.inv.At(1, 0)*dx + t.inv.At(1, 1)*dy + t.inv.At(1, 2)*dz
		lz := t.inv.At(2, 0)*dx + t.inv.At(2, 1)*dy + t.inv.At(2, 2)*dz
		dx, dy, dz = lx, ly, lz
	}

	return math.Abs(dx) <= t.hx && math.Abs(dy) <= t.hy && math.Abs(dz) <= t.hz
}

// Contains reports whether the voxel at (x, y, z) falls inside the oriented
// box, given the volume's voxel spacing.
func (b OrientedBox) Contains(x, y, z int, sx, sy, sz float64) bool {
	return b.Tester(sx, sy, sz).Contains(x, y, z)
}
