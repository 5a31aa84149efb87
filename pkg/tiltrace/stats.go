package tiltrace

import (
	"math"
	"sort"
)

func medianFloat64(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2.0
	}
	return sorted[n/2]
}

// clippedSigma estimates the standard deviation of values with
// iterative kappa-sigma rejection of outliers.
func clippedSigma(values []float64, kappa float64, maxIter int) float64 {
	if len(values) < 2 {
		return 0
	}
	work := make([]float64, len(values))
	copy(work, values)
	sigma := 0.0
	for iter := 0; iter < maxIter; iter++ {
		mean := 0.0
		for _, v := range work {
			mean += v
		}
		mean /= float64(len(work))
		ss := 0.0
		for _, v := range work {
			d := v - mean
			ss += d * d
		}
		sigma = math.Sqrt(ss / float64(len(work)))
		if sigma <= 0 {
			return 0
		}
		kept := work[:0]
		for _, v := range work {
			if math.Abs(v-mean) <= kappa*sigma {
				kept = append(kept, v)
			}
		}
		if len(kept) == len(work) || len(kept) < 2 {
			break
		}
		work = kept
	}
	return sigma
}

// interpLinear evaluates a piecewise-linear function defined by sorted
// knots xs with values ys at position x, clamping outside the knot range.
func interpLinear(x float64, xs, ys []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	if x <= xs[0] {
		return ys[0]
	}
	if x >= xs[len(xs)-1] {
		return ys[len(ys)-1]
	}
	hi := sort.SearchFloat64s(xs, x)
	lo := hi - 1
	frac := (x - xs[lo]) / (xs[hi] - xs[lo])
	return ys[lo] + frac*(ys[hi]-ys[lo])
}
