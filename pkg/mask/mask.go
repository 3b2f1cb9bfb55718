// Package mask converts a user selection plus an HU threshold into the
// binary candidate mask the lesion extractor works on. A voxel is in the
// mask iff its intensity is at or above the threshold and it satisfies the
// selection's spatial predicate. Building a mask has no side effects; the
// result is a pure function of volume, selection and threshold.
package mask

import (
	"context"

	"github.com/pkg/errors"

	"aocascore/pkg/selection"
	"aocascore/pkg/volume"
)

// cancelCheckStride bounds how many flood-fill expansions happen between
// cancellation checks.
const cancelCheckStride = 4096

// Mask is a binary grid aligned to a volume. It is built fresh per analysis
// run and discarded once the lesion extractor has consumed it.
type Mask struct {
	bits       []bool
	nx, ny, nz int
	count      int
}

// newMask allocates an empty mask with the volume's dimensions.
func newMask(vol *volume.Volume) *Mask {
	nx, ny, nz := vol.Dims()
	return &Mask{bits: make([]bool, nx*ny*nz), nx: nx, ny: ny, nz: nz}
}

// Dims returns the mask dimensions.
func (m *Mask) Dims() (nx, ny, nz int) {
	return m.nx, m.ny, m.nz
}

// NumVoxels returns the total voxel count of the grid.
func (m *Mask) NumVoxels() int {
	return len(m.bits)
}

// AtIndex reports whether the voxel at a linear index is in the mask.
func (m *Mask) AtIndex(idx int) bool {
	return m.bits[idx]
}

// At reports whether the voxel at (x, y, z) is in the mask.
func (m *Mask) At(x, y, z int) bool {
	return m.bits[z*m.nx*m.ny+y*m.nx+x]
}

// TrueCount returns the number of voxels in the mask.
func (m *Mask) TrueCount() int {
	return m.count
}

// set marks a linear index, keeping the count in step.
func (m *Mask) set(idx int) {
	if !m.bits[idx] {
		m.bits[idx] = true
		m.count++
	}
}

// Build constructs the candidate mask for the given selection. A seed below
// the threshold or a box/paint region with no above-threshold voxels yields
// an empty mask, which downstream stages report as a no-lesion outcome
// rather than an error. Cancellation through ctx aborts the build; no
// partial mask is returned.
func Build(ctx context.Context, vol *volume.Volume, sel selection.Selection, thresholdHU int) (*Mask, error) {
	if err := sel.Validate(vol); err != nil {
		return nil, err
	}

	m := newMask(vol)
	var err error
	switch sel.Kind {
	case selection.KindSeed:
		err = m.fillFromSeed(ctx, vol, sel.Seed, thresholdHU)
	case selection.KindBox:
		err = m.fillFromBox(ctx, vol, sel.Box, thresholdHU)
	case selection.KindPaint:
		err = m.fillFromPaint(ctx, vol, sel.Paint, thresholdHU)
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// fillFromSeed grows the 26-connected above-threshold region reachable from
// the seed. The traversal is an explicit worklist rather than recursion so
// large lesions cannot exhaust the stack.
func (m *Mask) fillFromSeed(ctx context.Context, vol *volume.Volume, seed selection.Point, thresholdHU int) error {
	if int(vol.HU(seed.X, seed.Y, seed.Z)) < thresholdHU {
		// Below-threshold seed: empty mask, reported upstream as NoLesionFound
		return nil
	}

	start := vol.Index(seed.X, seed.Y, seed.Z)
	m.set(start)
	worklist := []int{start}

	processed := 0
	for len(worklist) > 0 {
		idx := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]

		processed++
		if processed%cancelCheckStride == 0 {
			if err := ctx.Err(); err != nil {
				return errors.Wrap(err, "flood fill cancelled")
			}
		}

		x, y, z := vol.Coord(idx)
		for dz := -1; dz <= 1; dz++ {
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if dx == 0 && dy == 0 && dz == 0 {
						continue
					}
					nx, ny, nz := x+dx, y+dy, z+dz
					if !vol.InBounds(nx, ny, nz) {
						continue
					}
					nIdx := vol.Index(nx, ny, nz)
					if m.bits[nIdx] || int(vol.HUAt(nIdx)) < thresholdHU {
						continue
					}
					m.set(nIdx)
					worklist = append(worklist, nIdx)
				}
			}
		}
	}
	return nil
}

// fillFromBox thresholds every voxel inside the oriented box. Cancellation
// is checked once per axial slice.
func (m *Mask) fillFromBox(ctx context.Context, vol *volume.Volume, box selection.OrientedBox, thresholdHU int) error {
	sx, sy, sz := vol.Spacing()
	test := box.Tester(sx, sy, sz)

	nx, ny, nz := vol.Dims()
	for z := 0; z < nz; z++ {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, "box mask cancelled")
		}
		for y := 0; y < ny; y++ {
			for x := 0; x < nx; x++ {
				idx := vol.Index(x, y, z)
				if int(vol.HUAt(idx)) < thresholdHU {
					continue
				}
				if test.Contains(x, y, z) {
					m.set(idx)
				}
			}
		}
	}
	return nil
}

// fillFromPaint thresholds the explicitly painted voxels. Out-of-bounds
// strokes are ignored; the interactive tooling clamps to the slice views
// but replayed stroke sets may extend past the volume.
func (m *Mask) fillFromPaint(ctx context.Context, vol *volume.Volume, points []selection.Point, thresholdHU int) error {
	for i, p := range points {
		if i%cancelCheckStride == 0 {
			if err := ctx.Err(); err != nil {
				return errors.Wrap(err, "paint mask cancelled")
			}
		}
		if !vol.InBounds(p.X, p.Y, p.Z) {
			continue
		}
		idx := vol.Index(p.X, p.Y, p.Z)
		if int(vol.HUAt(idx)) >= thresholdHU {
			m.set(idx)
		}
	}
	return nil
}
