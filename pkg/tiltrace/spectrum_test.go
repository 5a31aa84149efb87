package tiltrace

import (
	"math"
	"testing"
)

func TestExtractArcSpectraAverages(t *testing.T) {
	arc := NewFrame(10, 12)
	for r := 0; r < 10; r++ {
		for c := 0; c < 12; c++ {
			arc.Set(r, c, float64(r+1))
		}
	}
	geom := &SlitGeometry{
		Left:  [][]float64{constCurve(2.0, 10)},
		Right: [][]float64{constCurve(7.0, 10)},
	}

	specs, bad := ExtractArcSpectra(arc, nil, geom)
	if bad[0] {
		t.Fatal("clean slit flagged bad")
	}
	for r := 0; r < 10; r++ {
		if math.Abs(specs[0][r]-float64(r+1)) > 1e-12 {
			t.Errorf("row %d = %f, want %d", r, specs[0][r], r+1)
		}
	}
}

func TestExtractArcSpectraHonorsBadPixels(t *testing.T) {
	arc := NewFrame(4, 10)
	for r := 0; r < 4; r++ {
		for c := 0; c < 10; c++ {
			arc.Set(r, c, 10.0)
		}
	}
	// A hot pixel inside the slit, flagged in the mask: the average must
	// not see it.
	arc.Set(2, 4, 1e6)
	bpm := NewBoolMask(4, 10)
	bpm.Set(2, 4, true)

	geom := &SlitGeometry{
		Left:  [][]float64{constCurve(2.0, 4)},
		Right: [][]float64{constCurve(7.0, 4)},
	}
	specs, bad := ExtractArcSpectra(arc, bpm, geom)
	if bad[0] {
		t.Fatal("slit flagged bad")
	}
	if specs[0][2] != 10.0 {
		t.Errorf("masked hot pixel leaked into the average: %f", specs[0][2])
	}
}

func TestExtractArcSpectraFlagsDeadSlit(t *testing.T) {
	arc := NewFrame(10, 10)
	geom := &SlitGeometry{
		Left:  [][]float64{constCurve(2.0, 10), constCurve(20.0, 10)},
		Right: [][]float64{constCurve(7.0, 10), constCurve(25.0, 10)},
	}
	_, bad := ExtractArcSpectra(arc, nil, geom)
	if bad[0] {
		t.Error("on-detector slit flagged bad")
	}
	if !bad[1] {
		t.Error("fully off-detector slit not flagged")
	}
}

func TestExtractArcSpectraMostlyMaskedSlit(t *testing.T) {
	arc := NewFrame(10, 10)
	bpm := NewBoolMask(10, 10)
	// Every pixel of the slit is bad in over half the rows.
	for r := 0; r < 6; r++ {
		for c := 0; c < 10; c++ {
			bpm.Set(r, c, true)
		}
	}
	geom := &SlitGeometry{
		Left:  [][]float64{constCurve(2.0, 10)},
		Right: [][]float64{constCurve(7.0, 10)},
	}
	_, bad := ExtractArcSpectra(arc, bpm, geom)
	if !bad[0] {
		t.Error("mostly masked slit not flagged")
	}
}
