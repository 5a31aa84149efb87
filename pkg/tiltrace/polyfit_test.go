package tiltrace

import (
	"math"
	"testing"
)

func TestPolyfit1DRecoversQuadratic(t *testing.T) {
	// y = 2 - x + 0.5x^2 sampled on [-1, 1]
	truth := func(x float64) float64 { return 2.0 - x + 0.5*x*x }
	var xs, ys []float64
	for i := 0; i <= 20; i++ {
		x := -1.0 + float64(i)/10.0
		xs = append(xs, x)
		ys = append(ys, truth(x))
	}

	for _, family := range []BasisFamily{BasisLegendre, BasisChebyshev} {
		coeffs, err := polyfit1D(family, xs, ys, nil, 3)
		if err != nil {
			t.Fatalf("%s: fit failed: %v", family, err)
		}
		for _, x := range []float64{-0.73, 0.0, 0.31, 0.99} {
			got := polyval1D(family, coeffs, x)
			if math.Abs(got-truth(x)) > 1e-9 {
				t.Errorf("%s: value at %f = %f, want %f", family, x, got, truth(x))
			}
		}
	}
}

func TestPolyfit1DWeightsDownweightOutliers(t *testing.T) {
	// Line y = x with one wild point carrying negligible weight.
	xs := []float64{-1, -0.5, 0, 0.5, 1, 0.25}
	ys := []float64{-1, -0.5, 0, 0.5, 1, 50.0}
	ws := []float64{1, 1, 1, 1, 1, 1e-12}

	coeffs, err := polyfit1D(BasisLegendre, xs, ys, ws, 2)
	if err != nil {
		t.Fatalf("fit failed: %v", err)
	}
	if got := polyval1D(BasisLegendre, coeffs, 0.25); math.Abs(got-0.25) > 1e-4 {
		t.Errorf("outlier pulled fit to %f, want ~0.25", got)
	}
}

func TestPolyfit1DUnderdetermined(t *testing.T) {
	if _, err := polyfit1D(BasisLegendre, []float64{0, 1}, []float64{1, 2}, nil, 3); err == nil {
		t.Fatal("expected error for 2 points with 3 terms")
	}
}

func TestPolyfit2DRecoversPlane(t *testing.T) {
	// z = 0.5 + 0.5x - 0.1y
	truth := func(x, y float64) float64 { return 0.5 + 0.5*x - 0.1*y }
	var xs, ys, zs []float64
	for i := 0; i <= 6; i++ {
		for j := 0; j <= 6; j++ {
			x := -1.0 + float64(i)/3.0
			y := -1.0 + float64(j)/3.0
			xs = append(xs, x)
			ys = append(ys, y)
			zs = append(zs, truth(x, y))
		}
	}

	coeffs, err := polyfit2D(BasisLegendre, xs, ys, zs, nil, 3, 3)
	if err != nil {
		t.Fatalf("fit failed: %v", err)
	}
	for _, p := range [][2]float64{{-0.8, 0.2}, {0.0, 0.0}, {0.6, -0.9}} {
		got := polyval2D(BasisLegendre, coeffs, p[0], p[1])
		if math.Abs(got-truth(p[0], p[1])) > 1e-9 {
			t.Errorf("value at (%f,%f) = %f, want %f", p[0], p[1], got, truth(p[0], p[1]))
		}
	}
}

func TestNormCoord(t *testing.T) {
	if got := normCoord(0, 100); got != -1.0 {
		t.Errorf("normCoord(0, 100) = %f, want -1", got)
	}
	if got := normCoord(99, 100); got != 1.0 {
		t.Errorf("normCoord(99, 100) = %f, want 1", got)
	}
	if got := normCoord(5, 1); got != 0.0 {
		t.Errorf("normCoord on degenerate axis = %f, want 0", got)
	}
}
