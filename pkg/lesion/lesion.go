// Package lesion turns a candidate mask into discrete calcified lesions via
// 3D connected-component labeling, and filters out the sub-threshold noise
// specks that would otherwise inflate the score.
package lesion

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"aocascore/pkg/mask"
	"aocascore/pkg/volume"
)

// Portion is the part of a lesion that lies on one axial slice. The slice
// maximum HU drives the Agatston density factor for that slice's area.
type Portion struct {
	// Slice is the axial slice index
	Slice int

	// Pixels is the number of lesion voxels on this slice
	Pixels int

	// AreaMM2 is Pixels times the in-plane pixel area
	AreaMM2 float64

	// MaxHU is the peak intensity among the lesion's voxels on this slice
	MaxHU int16
}

// Lesion is one maximal 26-connected region of the candidate mask. Lesions
// are immutable once extracted and belong to the analysis run that created
// them.
type Lesion struct {
	// Label is an opaque identifier, unique within one extraction
	Label int

	// Voxels holds the member linear voxel indices in ascending order
	Voxels []int

	// VolumeMM3 is the voxel count times the voxel volume
	VolumeMM3 float64

	// PeakHU is the maximum intensity over all member voxels
	PeakHU int16

	// Portions is the per-slice breakdown, ascending by slice index
	Portions []Portion

	// Centroid is the mean member coordinate in voxel space (x, y, z)
	Centroid [3]float64
}

// VoxelCount returns the number of member voxels.
func (l *Lesion) VoxelCount() int {
	return len(l.Voxels)
}

// Extract partitions the mask into lesions using 26-connectivity. Labels
// are assigned in ascending order of each component's smallest linear voxel
// index, so the output is identical for identical inputs regardless of how
// the work is scheduled. An empty mask yields an empty set and no error.
//
// Per-lesion metrics are computed on up to workers goroutines; pass 1 to
// stay single-threaded.
func Extract(ctx context.Context, m *mask.Mask, vol *volume.Volume, workers int) ([]Lesion, error) {
	if m.TrueCount() == 0 {
		return nil, nil
	}

	roots, err := label(ctx, m, vol)
	if err != nil {
		return nil, err
	}

	groups := group(roots, m)

	return buildLesions(ctx, groups, vol, workers)
}

// label runs single-pass union-find over the mask. The returned slice maps
// each true voxel's linear index to its component root; background voxels
// map to -1.
func label(ctx context.Context, m *mask.Mask, vol *volume.Volume) ([]int32, error) {
	n := m.NumVoxels()
	parent := make([]int32, n)
	for i := range parent {
		parent[i] = -1
	}

	var find func(i int32) int32
	find = func(i int32) int32 {
		root := i
		for parent[root] != root {
			root = parent[root]
		}
		// Path compression keeps later finds near-constant
		for parent[i] != root {
			parent[i], i = root, parent[i]
		}
		return root
	}

	union := func(a, b int32) {
		ra, rb := find(a), find(b)
		if ra == rb {
			return
		}
		// Smaller root index wins so canonical roots are stable
		if ra < rb {
			parent[rb] = ra
		} else {
			parent[ra] = rb
		}
	}

	nx, ny, nz := m.Dims()
	plane := nx * ny
	for z := 0; z < nz; z++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "labeling cancelled")
		}
		for y := 0; y < ny; y++ {
			for x := 0; x < nx; x++ {
				idx := z*plane + y*nx + x
				if !m.AtIndex(idx) {
					continue
				}
				if parent[idx] == -1 {
					parent[idx] = int32(idx)
				}
				// Union with the 13 neighbors already visited by the scan
				for _, d := range backwardNeighbors {
					nxp, nyp, nzp := x+d[0], y+d[1], z+d[2]
					if nxp < 0 || nxp >= nx || nyp < 0 || nyp >= ny || nzp < 0 {
						continue
					}
					nIdx := nzp*plane + nyp*nx + nxp
					if m.AtIndex(nIdx) {
						union(int32(idx), int32(nIdx))
					}
				}
			}
		}
	}

	// Fully resolve so each entry is its component's canonical root
	for i := range parent {
		if parent[i] != -1 {
			parent[i] = find(int32(i))
		}
	}
	return parent, nil
}

// backwardNeighbors are the 13 offsets of the 26-neighborhood that precede a
// voxel in scan order (z, then y, then x).
var backwardNeighbors = [13][3]int{
	{-1, -1, -1}, {0, -1, -1}, {1, -1, -1},
	{-1, 0, -1}, {0, 0, -1}, {1, 0, -1},
	{-1, 1, -1}, {0, 1, -1}, {1, 1, -1},
	{-1, -1, 0}, {0, -1, 0}, {1, -1, 0},
	{-1, 0, 0},
}

// group collects member voxel indices per root, ordered by the component's
// smallest voxel index. Scanning in ascending index order makes both the
// group order and the member order deterministic.
func group(roots []int32, m *mask.Mask) [][]int {
	byRoot := make(map[int32][]int)
	var order []int32
	for idx, root := range roots {
		if root == -1 {
			continue
		}
		if _, seen := byRoot[root]; !seen {
			order = append(order, root)
		}
		byRoot[root] = append(byRoot[root], idx)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	groups := make([][]int, len(order))
	for i, root := range order {
		groups[i] = byRoot[root]
	}
	return groups
}

// buildLesions computes per-lesion metrics, fanning the work out across
// workers and merging results back by index so ordering never depends on
// scheduling.
func buildLesions(ctx context.Context, groups [][]int, vol *volume.Volume, workers int) ([]Lesion, error) {
	if workers < 1 {
		workers = 1
	}
	if workers > len(groups) {
		workers = len(groups)
	}

	type result struct {
		idx    int
		lesion Lesion
	}

	lesions := make([]Lesion, len(groups))
	// Buffered so workers never block on send after a cancellation
	resultChan := make(chan result, len(groups))
	jobChan := make(chan int)

	for w := 0; w < workers; w++ {
		go func() {
			for i := range jobChan {
				resultChan <- result{idx: i, lesion: measure(groups[i], i+1, vol)}
			}
		}()
	}

	go func() {
		defer close(jobChan)
		for i := range groups {
			select {
			case jobChan <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	for completed := 0; completed < len(groups); completed++ {
		select {
		case res := <-resultChan:
			lesions[res.idx] = res.lesion
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), "lesion measurement cancelled")
		}
	}
	return lesions, nil
}

// measure derives the metric set for one component. Member indices arrive
// already sorted ascending.
func measure(voxels []int, labelID int, vol *volume.Volume) Lesion {
	les := Lesion{
		Label:     labelID,
		Voxels:    voxels,
		VolumeMM3: float64(len(voxels)) * vol.VoxelVolume(),
	}

	pixelArea := vol.PixelArea()
	bySlice := make(map[int]*Portion)
	var sliceOrder []int
	var sumX, sumY, sumZ float64

	for _, idx := range voxels {
		x, y, z := vol.Coord(idx)
		hu := vol.HUAt(idx)

		sumX += float64(x)
		sumY += float64(y)
		sumZ += float64(z)

		if hu > les.PeakHU {
			les.PeakHU = hu
		}

		p, ok := bySlice[z]
		if !ok {
			p = &Portion{Slice: z}
			bySlice[z] = p
			sliceOrder = append(sliceOrder, z)
		}
		p.Pixels++
		if hu > p.MaxHU {
			p.MaxHU = hu
		}
	}

	sort.Ints(sliceOrder)
	les.Portions = make([]Portion, 0, len(sliceOrder))
	for _, z := range sliceOrder {
		p := bySlice[z]
		p.AreaMM2 = float64(p.Pixels) * pixelArea
		les.Portions = append(les.Portions, *p)
	}

	n := float64(len(voxels))
	les.Centroid = [3]float64{sumX / n, sumY / n, sumZ / n}
	return les
}
