package volume

import (
	"encoding/binary"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// rawHeader is the YAML sidecar describing a raw int16 volume file.
// The sidecar lives next to the data file with a .yaml extension.
type rawHeader struct {
	Dimensions struct {
		X int `yaml:"x"`
		Y int `yaml:"y"`
		Z int `yaml:"z"`
	} `yaml:"dimensions"`
	Spacing struct {
		X float64 `yaml:"x"`
		Y float64 `yaml:"y"`
		Z float64 `yaml:"z"`
	} `yaml:"spacing"`
}

// LoadRaw reads a little-endian int16 volume from path, with grid dimensions
// and voxel spacing taken from the YAML sidecar at path + ".yaml". This is
// the interchange format used for synthetic volumes and testing; clinical
// series come in through LoadDICOMDir.
func LoadRaw(path string) (*Volume, error) {
	headerPath := path + ".yaml"
	headerData, err := os.ReadFile(headerPath)
	if err != nil {
		return nil, errors.Wrap(err, "reading raw volume sidecar")
	}

	var hdr rawHeader
	if err := yaml.Unmarshal(headerData, &hdr); err != nil {
		return nil, errors.Wrap(err, "parsing raw volume sidecar")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading raw volume data")
	}

	n := hdr.Dimensions.X * hdr.Dimensions.Y * hdr.Dimensions.Z
	if len(raw) != 2*n {
		return nil, errors.Errorf("raw volume has %d bytes, expected %d for %dx%dx%d int16",
			len(raw), 2*n, hdr.Dimensions.X, hdr.Dimensions.Y, hdr.Dimensions.Z)
	}

	data := make([]int16, n)
	for i := range data {
		data[i] = int16(binary.LittleEndian.Uint16(raw[2*i:]))
	}

	return New(data, hdr.Dimensions.X, hdr.Dimensions.Y, hdr.Dimensions.Z,
		hdr.Spacing.X, hdr.Spacing.Y, hdr.Spacing.Z)
}

// SaveRaw writes a volume as little-endian int16 data plus the YAML sidecar,
// the inverse of LoadRaw.
func SaveRaw(v *Volume, path string) error {
	var hdr rawHeader
	hdr.Dimensions.X, hdr.Dimensions.Y, hdr.Dimensions.Z = v.Dims()
	hdr.Spacing.X, hdr.Spacing.Y, hdr.Spacing.Z = v.Spacing()

	headerData, err := yaml.Marshal(&hdr)
	if err != nil {
		return errors.Wrap(err, "marshaling raw volume sidecar")
	}
	if err := os.WriteFile(path+".yaml", headerData, 0644); err != nil {
		return errors.Wrap(err, "writing raw volume sidecar")
	}

	raw := make([]byte, 2*v.NumVoxels())
	for i := 0; i < v.NumVoxels(); i++ {
		binary.LittleEndian.PutUint16(raw[2*i:], uint16(v.HUAt(i)))
	}
	if err := os.WriteFile(path, raw, 0644); err != nil {
		return errors.Wrap(err, "writing raw volume data")
	}
	return nil
}
