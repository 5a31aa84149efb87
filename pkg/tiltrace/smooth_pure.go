//go:build purego || js

package tiltrace

import "sort"

// boxcarSmooth returns the running boxcar average of a spectrum. The
// window is truncated at the spectrum ends.
func boxcarSmooth(spec []float64, width int) []float64 {
	out := make([]float64, len(spec))
	if width <= 1 {
		copy(out, spec)
		return out
	}
	half := width / 2
	for i := range spec {
		lo := i - half
		if lo < 0 {
			lo = 0
		}
		hi := i + half
		if hi > len(spec)-1 {
			hi = len(spec) - 1
		}
		sum := 0.0
		for j := lo; j <= hi; j++ {
			sum += spec[j]
		}
		out[i] = sum / float64(hi-lo+1)
	}
	return out
}

// medianSmooth3 returns the 3-wide running median of a spectrum,
// knocking down single-pixel spikes before peak detection.
func medianSmooth3(spec []float64) []float64 {
	out := make([]float64, len(spec))
	if len(spec) < 3 {
		copy(out, spec)
		return out
	}
	out[0] = spec[0]
	out[len(spec)-1] = spec[len(spec)-1]
	win := make([]float64, 3)
	for i := 1; i < len(spec)-1; i++ {
		win[0], win[1], win[2] = spec[i-1], spec[i], spec[i+1]
		sort.Float64s(win)
		out[i] = win[1]
	}
	return out
}
