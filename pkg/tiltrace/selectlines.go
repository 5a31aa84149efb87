package tiltrace

import "math"

// SelectLines decides which detected peaks are trustworthy enough to
// trace. It returns a usability vector aligned with the peak list:
//  1. peaks at or above thresh become candidates;
//  2. of any two candidates within neighborRadius of each other, only
//     the higher-significance one survives (ties keep the first
//     examined);
//  3. with a non-empty expected list, candidates farther than tol from
//     every expected position are dropped. This suppresses instrument
//     ghosts.
//
// Zero usable lines is a recoverable condition for the caller.
func SelectLines(peaks []LinePeak, thresh, neighborRadius float64, expected []float64, tol float64) []bool {
	use := make([]bool, len(peaks))
	for i, pk := range peaks {
		use[i] = pk.Significance >= thresh
	}

	initial := make([]bool, len(use))
	copy(initial, use)
	for i := range peaks {
		if !initial[i] {
			continue
		}
		for j := range peaks {
			if j == i || !initial[j] {
				continue
			}
			d := math.Abs(peaks[j].Center - peaks[i].Center)
			if d < 1.0 || d > neighborRadius {
				continue
			}
			if peaks[j].Significance > peaks[i].Significance ||
				(peaks[j].Significance == peaks[i].Significance && j < i) {
				use[i] = false
				break
			}
		}
	}

	if len(expected) > 0 {
		for i := range peaks {
			if !use[i] {
				continue
			}
			nearest := math.MaxFloat64
			for _, e := range expected {
				if d := math.Abs(peaks[i].Center - e); d < nearest {
					nearest = d
				}
			}
			if nearest > tol {
				use[i] = false
			}
		}
	}
	return use
}
