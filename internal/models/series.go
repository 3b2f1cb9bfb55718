package models

// SeriesSlice holds the per-file metadata collected while reading a DICOM
// series, before the slices are assembled into a single volume.
type SeriesSlice struct {
	// Path is the file the slice was read from
	Path string

	// InstanceNumber is the DICOM instance number used as the primary
	// ordering key within the series
	InstanceNumber int

	// Position is the z component of ImagePositionPatient in mm, used as a
	// fallback ordering key and for spacing validation
	Position float64

	// HasPosition records whether Position was present in the file
	HasPosition bool

	// Rows and Cols are the in-plane pixel dimensions
	Rows, Cols int

	// HU is the rescaled Hounsfield data for this slice, row-major
	HU []int16
}
