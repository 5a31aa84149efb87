package tiltrace

import "math"

// Synthetic two-slit arc scene used across the pipeline tests: slit 0
// carries five tilted gaussian lines over a noisy continuum, slit 1 is
// a featureless continuum.
const (
	sceneSpec  = 100
	sceneSpat  = 60
	sceneSlope = 0.05
	sceneSigma = 1.7
	sceneAmp   = 100.0
	sceneCont  = 10.0
	sceneCen0  = 15.0
)

var sceneAnchors = []float64{15, 35, 55, 75, 92}

// jitter is deterministic low-amplitude noise. It keeps the clipped
// noise estimate positive without making test runs flaky.
func jitter(seed int) float64 {
	return 0.3 * math.Sin(12.9898*float64(seed))
}

func constCurve(v float64, n int) []float64 {
	cur := make([]float64, n)
	for i := range cur {
		cur[i] = v
	}
	return cur
}

func buildScene() (*Frame, *SlitGeometry) {
	arc := NewFrame(sceneSpec, sceneSpat)
	geom := &SlitGeometry{
		Left:  [][]float64{constCurve(4.6, sceneSpec), constCurve(34.6, sceneSpec)},
		Right: [][]float64{constCurve(25.4, sceneSpec), constCurve(55.4, sceneSpec)},
	}

	for r := 0; r < sceneSpec; r++ {
		for c := 5; c <= 25; c++ {
			v := sceneCont + jitter(r*31+c*17)
			for _, a := range sceneAnchors {
				m := a + sceneSlope*(float64(c)-sceneCen0)
				d := float64(r) - m
				v += sceneAmp * math.Exp(-d*d/(2*sceneSigma*sceneSigma))
			}
			arc.Set(r, c, v)
		}
		for c := 35; c <= 55; c++ {
			arc.Set(r, c, sceneCont)
		}
	}
	return arc, geom
}

// sceneTilt is the analytic tilt value for a slit-0 pixel: the
// normalized spectral coordinate of the monochromatic curve through it.
func sceneTilt(r, c int) float64 {
	return (float64(r) - sceneSlope*(float64(c)-sceneCen0)) / float64(sceneSpec-1)
}
