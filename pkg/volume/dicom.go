package volume

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"aocascore/internal/models"
)

// LoadDICOMDir reads a directory of single-frame non-contrast CT files and
// assembles them into a Volume. Slices are ordered by InstanceNumber when
// present, otherwise by the z component of ImagePositionPatient. Pixel values
// are converted to Hounsfield units using the per-file rescale slope and
// intercept.
func LoadDICOMDir(dir string) (*Volume, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "reading DICOM directory")
	}

	var slices []models.SeriesSlice
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".dcm" && ext != "" {
			continue
		}
		s, err := readSliceFile(filepath.Join(dir, name))
		if err != nil {
			return nil, errors.Wrapf(err, "reading DICOM file %s", name)
		}
		slices = append(slices, s)
	}

	if len(slices) == 0 {
		return nil, errors.New("no DICOM slices found in directory")
	}

	sort.Slice(slices, func(i, j int) bool {
		if slices[i].InstanceNumber != slices[j].InstanceNumber {
			return slices[i].InstanceNumber < slices[j].InstanceNumber
		}
		return slices[i].Position < slices[j].Position
	})

	nx, ny := slices[0].Cols, slices[0].Rows
	for _, s := range slices {
		if s.Cols != nx || s.Rows != ny {
			return nil, errors.Errorf("inconsistent slice dimensions in series: %dx%d vs %dx%d", s.Cols, s.Rows, nx, ny)
		}
	}

	sx, sy, err := pixelSpacing(slices[0].Path)
	if err != nil {
		return nil, err
	}
	sz := sliceSpacing(slices)

	nz := len(slices)
	data := make([]int16, nx*ny*nz)
	for z, s := range slices {
		copy(data[z*nx*ny:(z+1)*nx*ny], s.HU)
	}

	return New(data, nx, ny, nz, sx, sy, sz)
}

// readSliceFile parses one DICOM file into slice metadata plus rescaled HU
// pixel data.
func readSliceFile(path string) (models.SeriesSlice, error) {
	var s models.SeriesSlice
	s.Path = path

	ds, err := dicom.ParseFile(path, nil)
	if err != nil {
		return s, err
	}

	s.InstanceNumber, _ = intTag(&ds, tag.InstanceNumber)

	if pos, ok := floatsTag(&ds, tag.ImagePositionPatient); ok && len(pos) == 3 {
		s.Position = pos[2]
		s.HasPosition = true
	}

	slope := 1.0
	intercept := 0.0
	if v, ok := floatTag(&ds, tag.RescaleSlope); ok {
		slope = v
	}
	if v, ok := floatTag(&ds, tag.RescaleIntercept); ok {
		intercept = v
	}

	el, err := ds.FindElementByTag(tag.PixelData)
	if err != nil {
		return s, errors.Wrap(err, "pixel data missing")
	}
	info := dicom.MustGetPixelDataInfo(el.Value)
	if len(info.Frames) != 1 {
		return s, errors.Errorf("expected single-frame CT slice, got %d frames", len(info.Frames))
	}
	native, err := info.Frames[0].GetNativeFrame()
	if err != nil {
		return s, errors.Wrap(err, "decoding native frame")
	}

	s.Rows = native.Rows()
	s.Cols = native.Cols()

	switch data := native.RawDataSlice().(type) {
	case []int:
		s.HU = rescaleHU(data, slope, intercept)
	case []int8:
		s.HU = rescaleHU(data, slope, intercept)
	case []int16:
		s.HU = rescaleHU(data, slope, intercept)
	case []int32:
		s.HU = rescaleHU(data, slope, intercept)
	case []uint8:
		s.HU = rescaleHU(data, slope, intercept)
	case []uint16:
		s.HU = rescaleHU(data, slope, intercept)
	case []uint32:
		s.HU = rescaleHU(data, slope, intercept)
	default:
		return s, errors.Errorf("unsupported pixel data type %T", data)
	}
	return s, nil
}

// rescaleHU converts stored pixel values to Hounsfield units using the
// per-file rescale slope and intercept. Frame data keeps the raster order
// of the file, row-major.
func rescaleHU[T int | int8 | int16 | int32 | uint8 | uint16 | uint32](raw []T, slope, intercept float64) []int16 {
	hu := make([]int16, len(raw))
	for i, v := range raw {
		hu[i] = int16(float64(v)*slope + intercept)
	}
	return hu
}

// pixelSpacing re-reads the in-plane spacing from the first slice of the
// series. PixelSpacing is row spacing then column spacing per the standard.
func pixelSpacing(path string) (sx, sy float64, err error) {
	ds, err := dicom.ParseFile(path, nil)
	if err != nil {
		return 0, 0, errors.Wrap(err, "reading pixel spacing")
	}
	vals, ok := floatsTag(&ds, tag.PixelSpacing)
	if !ok || len(vals) != 2 {
		return 0, 0, errors.New("PixelSpacing missing from series")
	}
	return vals[1], vals[0], nil
}

// sliceSpacing derives the axial spacing from slice positions when available,
// falling back to SliceThickness and finally to 1 mm.
func sliceSpacing(slices []models.SeriesSlice) float64 {
	if len(slices) > 1 && slices[0].HasPosition && slices[1].HasPosition {
		d := slices[1].Position - slices[0].Position
		if d < 0 {
			d = -d
		}
		if d > 0 {
			return d
		}
	}
	if v, ok := fileFloatTag(slices[0].Path, tag.SliceThickness); ok && v > 0 {
		return v
	}
	return 1.0
}

func fileFloatTag(path string, t tag.Tag) (float64, bool) {
	ds, err := dicom.ParseFile(path, nil)
	if err != nil {
		return 0, false
	}
	return floatTag(&ds, t)
}

func intTag(ds *dicom.Dataset, t tag.Tag) (int, bool) {
	el, err := ds.FindElementByTag(t)
	if err != nil {
		return 0, false
	}
	switch v := el.Value.GetValue().(type) {
	case []int:
		if len(v) > 0 {
			return v[0], true
		}
	case []string:
		if len(v) > 0 {
			n, err := strconv.Atoi(strings.TrimSpace(v[0]))
			if err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

func floatTag(ds *dicom.Dataset, t tag.Tag) (float64, bool) {
	vals, ok := floatsTag(ds, t)
	if !ok || len(vals) == 0 {
		return 0, false
	}
	return vals[0], true
}

func floatsTag(ds *dicom.Dataset, t tag.Tag) ([]float64, bool) {
	el, err := ds.FindElementByTag(t)
	if err != nil {
		return nil, false
	}
	switch v := el.Value.GetValue().(type) {
	case []float64:
		return v, true
	case []string:
		out := make([]float64, 0, len(v))
		for _, s := range v {
			f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return nil, false
			}
			out = append(out, f)
		}
		return out, true
	}
	return nil, false
}
