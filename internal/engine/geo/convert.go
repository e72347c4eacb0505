package geo

import "math"

// Meters per degree of latitude, and of longitude at the equator. The
// longitude scale shrinks with the cosine of the latitude.
const (
	metersPerDegLat        = 111132.954
	metersPerDegLngEquator = 111319.488
)

// MetersToDegreeOffsets converts a metric distance into degree offsets at the
// given reference latitude. At the poles the longitude divisor is clamped to
// a minimal non-zero value instead of dividing by zero; that is an escape
// hatch, not a polar projection.
func MetersToDegreeOffsets(distanceMeters, referenceLat float64) (latDeg, lngDeg float64) {
	mPerDegLng := metersPerDegLngEquator * math.Cos(referenceLat*math.Pi/180.0)
	if mPerDegLng == 0 {
		mPerDegLng = 0.001
	}
	return distanceMeters / metersPerDegLat, distanceMeters / mPerDegLng
}
