// Package volume provides the immutable 3D CT intensity grid that every
// stage of the calcium scoring pipeline reads from. Voxel values are signed
// Hounsfield units; the grid dimensions and voxel spacing are fixed when the
// volume is created and never change afterwards.
package volume

import (
	"fmt"
)

// Volume is a read-only accessor over a 3D grid of Hounsfield unit samples.
// Data is stored row-major with x varying fastest, then y, then z (axial
// slice index). A Volume is safe for concurrent readers because nothing
// mutates it after construction.
type Volume struct {
	data []int16

	// nx, ny are the in-plane dimensions, nz the number of axial slices
	nx, ny, nz int

	// sx, sy, sz are the voxel spacing components in mm
	sx, sy, sz float64
}

// New creates a Volume from raw HU samples. The data slice must contain
// exactly nx*ny*nz values and every spacing component must be strictly
// positive; anything else is a construction error, not a recoverable state.
func New(data []int16, nx, ny, nz int, sx, sy, sz float64) (*Volume, error) {
	if nx <= 0 || ny <= 0 || nz <= 0 {
		return nil, fmt.Errorf("volume dimensions must be positive, got %dx%dx%d", nx, ny, nz)
	}
	if len(data) != nx*ny*nz {
		return nil, fmt.Errorf("volume data length %d does not match dimensions %dx%dx%d", len(data), nx, ny, nz)
	}
	if sx <= 0 || sy <= 0 || sz <= 0 {
		return nil, fmt.Errorf("voxel spacing must be strictly positive, got (%.3f, %.3f, %.3f)", sx, sy, sz)
	}
	return &Volume{data: data, nx: nx, ny: ny, nz: nz, sx: sx, sy: sy, sz: sz}, nil
}

// Dims returns the grid dimensions (columns, rows, slices).
func (v *Volume) Dims() (nx, ny, nz int) {
	return v.nx, v.ny, v.nz
}

// Spacing returns the voxel spacing in mm along each axis.
func (v *Volume) Spacing() (sx, sy, sz float64) {
	return v.sx, v.sy, v.sz
}

// NumVoxels returns the total voxel count of the grid.
func (v *Volume) NumVoxels() int {
	return v.nx * v.ny * v.nz
}

// PixelArea returns the in-plane area of one voxel in mm².
func (v *Volume) PixelArea() float64 {
	return v.sx * v.sy
}

// VoxelVolume returns the volume of one voxel in mm³.
func (v *Volume) VoxelVolume() float64 {
	return v.sx * v.sy * v.sz
}

// InBounds reports whether the voxel coordinate lies inside the grid.
func (v *Volume) InBounds(x, y, z int) bool {
	return x >= 0 && x < v.nx && y >= 0 && y < v.ny && z >= 0 && z < v.nz
}

// Index converts a voxel coordinate to its linear data index.
// The caller is responsible for bounds checking.
func (v *Volume) Index(x, y, z int) int {
	return z*v.nx*v.ny + y*v.nx + x
}

// Coord converts a linear data index back to a voxel coordinate.
func (v *Volume) Coord(idx int) (x, y, z int) {
	plane := v.nx * v.ny
	z = idx / plane
	rem := idx % plane
	return rem % v.nx, rem / v.nx, z
}

// HU returns the Hounsfield value at the given voxel coordinate.
func (v *Volume) HU(x, y, z int) int16 {
	return v.data[v.Index(x, y, z)]
}

// HUAt returns the Hounsfield value at a linear data index.
func (v *Volume) HUAt(idx int) int16 {
	return v.data[idx]
}
