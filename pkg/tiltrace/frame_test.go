package tiltrace

import "testing"

func TestPixelMaskMembership(t *testing.T) {
	_, geom := buildScene()
	m := geom.PixelMask(sceneSpec, sceneSpat)

	cases := []struct {
		r, c, want int
	}{
		{0, 5, 0},
		{50, 25, 0},
		{50, 4, -1},
		{50, 26, -1},
		{50, 35, 1},
		{50, 55, 1},
		{99, 59, -1},
	}
	for _, tc := range cases {
		if got := m.At(tc.r, tc.c); got != tc.want {
			t.Errorf("mask at (%d,%d) = %d, want %d", tc.r, tc.c, got, tc.want)
		}
	}
}

func TestPixelMaskFirstSlitWins(t *testing.T) {
	rows := 10
	geom := &SlitGeometry{
		Left:  [][]float64{constCurve(2, rows), constCurve(6, rows)},
		Right: [][]float64{constCurve(8, rows), constCurve(12, rows)},
	}
	m := geom.PixelMask(rows, 16)
	if got := m.At(5, 7); got != 0 {
		t.Errorf("overlap pixel assigned to slit %d, want 0", got)
	}
	if got := m.At(5, 9); got != 1 {
		t.Errorf("pixel past first slit assigned to %d, want 1", got)
	}
}

func TestSlitGeometryValidate(t *testing.T) {
	geom := &SlitGeometry{
		Left:  [][]float64{constCurve(1, 10)},
		Right: [][]float64{constCurve(5, 8)},
	}
	if err := geom.Validate(10); err == nil {
		t.Error("expected error for mismatched edge curve length")
	}

	geom = &SlitGeometry{
		Left:  [][]float64{constCurve(1, 10), constCurve(1, 10)},
		Right: [][]float64{constCurve(5, 10)},
	}
	if err := geom.Validate(10); err == nil {
		t.Error("expected error for unpaired edge curves")
	}
}

func TestSlitGeometryCenter(t *testing.T) {
	geom := &SlitGeometry{
		Left:  [][]float64{constCurve(4, 5)},
		Right: [][]float64{constCurve(10, 5)},
	}
	cen := geom.Center(0)
	for i, v := range cen {
		if v != 7 {
			t.Fatalf("center[%d] = %f, want 7", i, v)
		}
	}
}

func TestFrameFromDataShapeCheck(t *testing.T) {
	if _, err := NewFrameFromData(make([]float64, 5), 2, 3); err == nil {
		t.Error("expected error for short data slice")
	}
	f, err := NewFrameFromData([]float64{1, 2, 3, 4, 5, 6}, 2, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.At(1, 2) != 6 {
		t.Errorf("row-major layout broken: At(1,2) = %f, want 6", f.At(1, 2))
	}
}
