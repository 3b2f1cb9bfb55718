// Package selection models the three ways a user marks the region of
// interest for calcium analysis: a seed point for click-and-grow, an
// oriented box, or freehand paint strokes. The variants form a closed set
// consumed exhaustively by the mask builder.
package selection

import (
	"github.com/pkg/errors"

	"aocascore/pkg/volume"
)

// ErrInvalidSelection is returned when a selection cannot drive an analysis
// run: a seed outside the volume, a box with no extent, or an empty paint
// set. It is a precondition failure surfaced before any computation starts.
var ErrInvalidSelection = errors.New("invalid selection")

// Kind identifies the selection variant.
type Kind int

const (
	// KindSeed is a single click-and-grow seed point
	KindSeed Kind = iota

	// KindBox is an oriented box region
	KindBox

	// KindPaint is an explicit set of painted voxels
	KindPaint
)

// String returns the method name used in logs and reports.
func (k Kind) String() string {
	switch k {
	case KindSeed:
		return "seed"
	case KindBox:
		return "box"
	case KindPaint:
		return "paint"
	}
	return "unknown"
}

// Point is a voxel coordinate.
type Point struct {
	X, Y, Z int
}

// Selection is the tagged union of the three region-of-interest variants.
// Only the field matching Kind is meaningful.
type Selection struct {
	Kind  Kind
	Seed  Point
	Box   OrientedBox
	Paint []Point
}

// NewSeed builds a click-and-grow selection from a seed voxel.
func NewSeed(p Point) Selection {
	return Selection{Kind: KindSeed, Seed: p}
}

// NewBox builds an oriented box selection.
func NewBox(b OrientedBox) Selection {
	return Selection{Kind: KindBox, Box: b}
}

// NewPaint builds a selection from painted voxel coordinates.
func NewPaint(points []Point) Selection {
	return Selection{Kind: KindPaint, Paint: points}
}

// Validate checks the selection against the volume before a run starts.
// Violations wrap ErrInvalidSelection so callers can classify them.
func (s Selection) Validate(vol *volume.Volume) error {
	switch s.Kind {
	case KindSeed:
		if !vol.InBounds(s.Seed.X, s.Seed.Y, s.Seed.Z) {
			return errors.Wrapf(ErrInvalidSelection, "seed (%d, %d, %d) outside volume bounds", s.Seed.X, s.Seed.Y, s.Seed.Z)
		}
	case KindBox:
		if s.Box.Max.X < s.Box.Min.X || s.Box.Max.Y < s.Box.Min.Y || s.Box.Max.Z < s.Box.Min.Z {
			return errors.Wrap(ErrInvalidSelection, "box has zero or negative extent")
		}
	case KindPaint:
		if len(s.Paint) == 0 {
			return errors.Wrap(ErrInvalidSelection, "paint selection is empty")
		}
	default:
		return errors.Wrapf(ErrInvalidSelection, "unknown selection kind %d", s.Kind)
	}
	return nil
}
