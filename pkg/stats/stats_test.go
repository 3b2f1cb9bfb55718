package stats

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aocascore/pkg/lesion"
	"aocascore/pkg/mask"
	"aocascore/pkg/scoring"
	"aocascore/pkg/selection"
	"aocascore/pkg/volume"
)

var scoreCfg = scoring.Config{MassCalibration: 1.2, MinSliceAreaMM2: 1.0}

// lesionsFrom extracts lesions from a volume whose bright voxels are given
// as coordinate -> HU.
func lesionsFrom(t *testing.T, nx, ny, nz int, bright map[[3]int]int16) ([]lesion.Lesion, *volume.Volume) {
	t.Helper()
	data := make([]int16, nx*ny*nz)
	vol, err := volume.New(data, nx, ny, nz, 1, 1, 1)
	require.NoError(t, err)
	for c, hu := range bright {
		data[vol.Index(c[0], c[1], c[2])] = hu
	}
	sel := selection.NewBox(selection.OrientedBox{
		Max: selection.Point{X: nx - 1, Y: ny - 1, Z: nz - 1},
	})
	m, err := mask.Build(context.Background(), vol, sel, 130)
	require.NoError(t, err)
	lesions, err := lesion.Extract(context.Background(), m, vol, 1)
	require.NoError(t, err)
	return lesions, vol
}

func TestAggregateEmpty(t *testing.T) {
	_, vol := lesionsFrom(t, 4, 4, 4, nil)

	s := Aggregate(nil, vol, scoreCfg, Config{SectorCount: 6, Percentiles: []float64{50}})

	require.Len(t, s.Histogram, 5)
	for _, bin := range s.Histogram {
		assert.Zero(t, bin.Count)
	}
	assert.Empty(t, s.Percentiles)
	assert.Empty(t, s.PerSlice)
	assert.Zero(t, s.DensityDistribution)
}

func TestHistogramBands(t *testing.T) {
	lesions, vol := lesionsFrom(t, 8, 8, 8, map[[3]int]int16{
		{1, 1, 1}: 150,
		{3, 1, 1}: 250,
		{5, 1, 1}: 350,
		{1, 3, 1}: 450,
		{3, 3, 1}: 700,
	})

	s := Aggregate(lesions, vol, scoreCfg, Config{SectorCount: 4, Percentiles: []float64{50}})

	require.Len(t, s.Histogram, 5)
	assert.Equal(t, 130.0, s.Histogram[0].LowHU)
	for i, bin := range s.Histogram {
		assert.Equal(t, 1, bin.Count, "bin %d", i)
	}
}

func TestPercentilesEmpirical(t *testing.T) {
	// Per-lesion volumes 1, 2, 3 and 4 mm3: four single-voxel and larger
	// lesions far enough apart to stay separate components.
	bright := map[[3]int]int16{}
	// volume 1
	bright[[3]int{1, 1, 1}] = 200
	// volume 2
	bright[[3]int{8, 1, 1}] = 200
	bright[[3]int{9, 1, 1}] = 200
	// volume 3
	bright[[3]int{1, 8, 1}] = 200
	bright[[3]int{2, 8, 1}] = 200
	bright[[3]int{3, 8, 1}] = 200
	// volume 4
	bright[[3]int{8, 8, 5}] = 200
	bright[[3]int{9, 8, 5}] = 200
	bright[[3]int{8, 9, 5}] = 200
	bright[[3]int{9, 9, 5}] = 200
	lesions, vol := lesionsFrom(t, 12, 12, 8, bright)
	require.Len(t, lesions, 4)

	s := Aggregate(lesions, vol, scoreCfg, Config{
		SectorCount: 4,
		Percentiles: []float64{25, 50, 75, 100},
	})

	require.Len(t, s.Percentiles, 4)
	assert.Equal(t, 25.0, s.Percentiles[0].Percentile)
	assert.InDelta(t, 1.0, s.Percentiles[0].VolumeMM3, 1e-9)
	assert.InDelta(t, 2.0, s.Percentiles[1].VolumeMM3, 1e-9)
	assert.InDelta(t, 3.0, s.Percentiles[2].VolumeMM3, 1e-9)
	assert.InDelta(t, 4.0, s.Percentiles[3].VolumeMM3, 1e-9)
}

func TestPerSliceMatchesScorer(t *testing.T) {
	lesions, vol := lesionsFrom(t, 10, 10, 10, map[[3]int]int16{
		{3, 3, 2}: 250, {4, 3, 2}: 250,
		{3, 3, 3}: 450, {4, 3, 3}: 450,
	})

	s := Aggregate(lesions, vol, scoreCfg, Config{SectorCount: 4, Percentiles: nil})
	res := scoring.Score(lesions, vol, scoreCfg)

	assert.Equal(t, res.PerSlice, s.PerSlice)
	assert.Equal(t, res.DensityDistribution, s.DensityDistribution)
}

func TestAngularProfileFixedCenter(t *testing.T) {
	// Two two-pixel lesions east and north of a fixed center.
	lesions, vol := lesionsFrom(t, 16, 16, 4, map[[3]int]int16{
		{12, 5, 1}: 250, {13, 5, 1}: 250, // east of (5,5)
		{5, 12, 1}: 450, {5, 13, 1}: 450, // north of (5,5)
	})
	require.Len(t, lesions, 2)

	center := [3]float64{5, 5, 1}
	s := Aggregate(lesions, vol, scoreCfg, Config{
		SectorCount: 4,
		Center:      &center,
	})

	require.Len(t, s.Angular.Sectors, 4)
	assert.Equal(t, center, s.Angular.Center)

	// east lesion: angle 0, sector [0,90); north lesion: angle 90, sector [90,180)
	east, north := s.Angular.Sectors[0], s.Angular.Sectors[1]
	assert.Equal(t, 1, east.LesionCount)
	assert.InDelta(t, 4.0, east.Score, 1e-9) // 2 mm2 * factor 2
	assert.Equal(t, 1, north.LesionCount)
	assert.InDelta(t, 8.0, north.Score, 1e-9) // 2 mm2 * factor 4
	assert.Zero(t, s.Angular.Sectors[2].LesionCount)
	assert.Zero(t, s.Angular.Sectors[3].LesionCount)

	var total float64
	for _, sec := range s.Angular.Sectors {
		total += sec.Score
	}
	res := scoring.Score(lesions, vol, scoreCfg)
	assert.InDelta(t, res.TotalAgatston, total, 1e-9)
}

func TestRingSummary(t *testing.T) {
	// One voxel at the center, a shell voxel at mid distance and one at the
	// maximum radius.
	center := [3]float64{5, 5, 2}
	lesions, vol := lesionsFrom(t, 12, 12, 5, map[[3]int]int16{
		{5, 5, 2}:  200, // distance 0, center ring
		{7, 5, 2}:  300, // distance 2
		{10, 5, 2}: 400, // distance 5, max radius
	})

	s := Aggregate(lesions, vol, scoreCfg, Config{SectorCount: 4, Center: &center})

	// rings split at 1.0 (20% of 5) and 3.0 (60% of 5)
	assert.Equal(t, 1, s.Rings.Center.VoxelCount)
	assert.InDelta(t, 200.0, s.Rings.Center.MeanHU, 1e-9)
	assert.Equal(t, 1, s.Rings.Cusp.VoxelCount)
	assert.InDelta(t, 300.0, s.Rings.Cusp.MeanHU, 1e-9)
	assert.Equal(t, 1, s.Rings.Outer.VoxelCount)
	assert.InDelta(t, 400.0, s.Rings.Outer.MeanHU, 1e-9)
}

func TestReferenceBand(t *testing.T) {
	cases := []struct {
		score float64
		sex   scoring.Sex
		age   int
		want  string
	}{
		{0, scoring.SexFemale, 60, "<25th percentile"},
		{4, scoring.SexFemale, 60, "25th-50th percentile"},
		{78, scoring.SexFemale, 60, "50th-75th percentile"},
		{250, scoring.SexFemale, 60, "75th-90th percentile"},
		{251, scoring.SexFemale, 60, ">90th percentile"},
		{100, scoring.SexMale, 70, "50th-75th percentile"},
		{2000, scoring.SexMale, 80, ">90th percentile"},
		// 85 reuses the oldest band
		{100, scoring.SexMale, 85, "25th-50th percentile"},
	}
	for _, c := range cases {
		got, err := ReferenceBand(c.score, c.sex, c.age)
		require.NoError(t, err)
		assert.Equal(t, c.want, got, "score %.0f sex %s age %d", c.score, c.sex, c.age)
	}
}

func TestReferenceBandErrors(t *testing.T) {
	_, err := ReferenceBand(100, scoring.SexFemale, 39)
	assert.Error(t, err)
	_, err = ReferenceBand(100, scoring.SexFemale, 86)
	assert.Error(t, err)
	_, err = ReferenceBand(100, scoring.SexUnknown, 60)
	assert.ErrorIs(t, err, scoring.ErrMissingPatientSex)
}
