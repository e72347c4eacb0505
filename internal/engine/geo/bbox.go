package geo

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
)

// ErrInvalidArgument marks structural input errors: malformed bounds,
// non-positive sizes or counts. They fail fast, before any remote call.
var ErrInvalidArgument = errors.New("invalid argument")

// BoundsFromCenter builds a square bounding box centered on the given point.
// boxSizeMeters is the full width/height of the box, not the half-extent.
func BoundsFromCenter(center orb.Point, boxSizeMeters float64) (orb.Bound, error) {
	if boxSizeMeters <= 0 {
		return orb.Bound{}, fmt.Errorf("%w: box size must be positive, got %g", ErrInvalidArgument, boxSizeMeters)
	}

	halfLat, halfLng := MetersToDegreeOffsets(boxSizeMeters/2, center.Lat())

	return orb.Bound{
		Min: orb.Point{center.Lon() - halfLng, center.Lat() - halfLat},
		Max: orb.Point{center.Lon() + halfLng, center.Lat() + halfLat},
	}, nil
}

// ValidateBounds rejects bounds whose north-east corner is not strictly north
// and east of the south-west corner. Degenerate bounds are never repaired.
func ValidateBounds(b orb.Bound) error {
	if b.Max.Lat() <= b.Min.Lat() || b.Max.Lon() <= b.Min.Lon() {
		return fmt.Errorf("%w: north-east corner must be north and east of south-west corner", ErrInvalidArgument)
	}
	return nil
}
