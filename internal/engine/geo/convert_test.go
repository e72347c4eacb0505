package geo

import (
	"math"
	"testing"
)

func TestMetersToDegreeOffsetsAtEquator(t *testing.T) {
	latDeg, lngDeg := MetersToDegreeOffsets(111132.954, 0)
	if math.Abs(latDeg-1.0) > 1e-12 {
		t.Fatalf("expected 1 degree of latitude, got %v", latDeg)
	}
	want := 111132.954 / 111319.488
	if math.Abs(lngDeg-want) > 1e-12 {
		t.Fatalf("expected %v degrees of longitude, got %v", want, lngDeg)
	}
}

func TestMetersToDegreeOffsetsLatitudeIndependent(t *testing.T) {
	// Latitude degrees do not depend on the reference latitude.
	for _, refLat := range []float64{-60, 0, 37.7749, 89} {
		latDeg, _ := MetersToDegreeOffsets(500, refLat)
		want := 500 / 111132.954
		if math.Abs(latDeg-want) > 1e-12 {
			t.Fatalf("refLat=%v: expected %v, got %v", refLat, want, latDeg)
		}
	}
}

func TestMetersToDegreeOffsetsLongitudeGrowsTowardPoles(t *testing.T) {
	_, atEquator := MetersToDegreeOffsets(1000, 0)
	_, at60 := MetersToDegreeOffsets(1000, 60)

	// cos(60°) = 0.5, so one kilometer spans twice as many degrees.
	if math.Abs(at60-2*atEquator) > 1e-9 {
		t.Fatalf("expected %v at 60N, got %v", 2*atEquator, at60)
	}
}

func TestMetersToDegreeOffsetsAtPoles(t *testing.T) {
	for _, refLat := range []float64{90, -90} {
		latDeg, lngDeg := MetersToDegreeOffsets(1000, refLat)
		if math.IsNaN(lngDeg) || math.IsInf(lngDeg, 0) {
			t.Fatalf("refLat=%v: longitude offset not finite: %v", refLat, lngDeg)
		}
		if latDeg <= 0 || lngDeg <= 0 {
			t.Fatalf("refLat=%v: offsets must stay positive, got %v, %v", refLat, latDeg, lngDeg)
		}
	}
}

func TestMetersToDegreeOffsetsDeterministic(t *testing.T) {
	la1, ln1 := MetersToDegreeOffsets(1234.5, 48.8566)
	la2, ln2 := MetersToDegreeOffsets(1234.5, 48.8566)
	if la1 != la2 || ln1 != ln2 {
		t.Fatalf("identical inputs produced different outputs: (%v,%v) vs (%v,%v)", la1, ln1, la2, ln2)
	}
}
