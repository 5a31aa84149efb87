package tiltrace

import (
	"math"
	"testing"
)

func TestBoxcarSmoothConstant(t *testing.T) {
	out := boxcarSmooth(constCurve(7.0, 50), 5)
	for i, v := range out {
		if math.Abs(v-7.0) > 1e-6 {
			t.Fatalf("sample %d = %f, want 7", i, v)
		}
	}
}

func TestBoxcarSmoothWidthOne(t *testing.T) {
	spec := []float64{1, 5, 2, 8}
	out := boxcarSmooth(spec, 1)
	for i := range spec {
		if out[i] != spec[i] {
			t.Fatalf("width-1 smoothing altered sample %d", i)
		}
	}
}

func TestMedianSmooth3KillsSpike(t *testing.T) {
	spec := constCurve(10.0, 20)
	spec[8] = 500.0
	out := medianSmooth3(spec)
	if math.Abs(out[8]-10.0) > 1e-4 {
		t.Errorf("single-pixel spike survived: %f", out[8])
	}
	if out[0] != spec[0] || out[19] != spec[19] {
		t.Error("end samples altered")
	}
}

func TestMedianSmooth3PreservesBroadPeak(t *testing.T) {
	spec := []float64{0, 0, 5, 9, 10, 9, 5, 0, 0}
	out := medianSmooth3(spec)
	if math.Abs(out[4]-9.0) > 1e-4 {
		t.Errorf("broad peak flattened to %f", out[4])
	}
}
