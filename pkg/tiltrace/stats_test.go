package tiltrace

import (
	"math"
	"testing"
)

func TestMedianFloat64(t *testing.T) {
	if got := medianFloat64([]float64{3, 1, 2}); got != 2 {
		t.Errorf("odd median = %f, want 2", got)
	}
	if got := medianFloat64([]float64{4, 1, 3, 2}); got != 2.5 {
		t.Errorf("even median = %f, want 2.5", got)
	}
	if got := medianFloat64(nil); got != 0 {
		t.Errorf("empty median = %f, want 0", got)
	}
}

func TestClippedSigmaRejectsOutliers(t *testing.T) {
	// Tight cluster plus one wild value: the clipped estimate must track
	// the cluster, not the outlier.
	vals := make([]float64, 0, 101)
	for i := 0; i < 100; i++ {
		vals = append(vals, jitter(i))
	}
	vals = append(vals, 1000.0)

	sigma := clippedSigma(vals, 3.0, 5)
	if sigma <= 0 || sigma > 0.5 {
		t.Errorf("clipped sigma = %f, want small positive", sigma)
	}
}

func TestClippedSigmaDegenerate(t *testing.T) {
	if got := clippedSigma([]float64{5, 5, 5, 5}, 3.0, 5); got != 0 {
		t.Errorf("constant input sigma = %f, want 0", got)
	}
	if got := clippedSigma([]float64{1}, 3.0, 5); got != 0 {
		t.Errorf("single value sigma = %f, want 0", got)
	}
}

func TestInterpLinear(t *testing.T) {
	xs := []float64{0, 10, 20}
	ys := []float64{0, 100, 0}
	if got := interpLinear(5, xs, ys); math.Abs(got-50) > 1e-12 {
		t.Errorf("interp at 5 = %f, want 50", got)
	}
	if got := interpLinear(-3, xs, ys); got != 0 {
		t.Errorf("interp below range = %f, want clamp to 0", got)
	}
	if got := interpLinear(99, xs, ys); got != 0 {
		t.Errorf("interp above range = %f, want clamp to 0", got)
	}
}
