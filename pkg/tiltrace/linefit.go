package tiltrace

import "math"

// FitLineModels fits a smooth polynomial trace to each line's raw
// centroids, iteratively clipping outliers and refitting. Lines that
// cannot support a trustworthy model are marked unusable; the return
// value counts lines that should have traced but didn't.
func FitLineModels(lines []*LineTrace, nspat int, p *Params) int {
	bad := 0
	for _, t := range lines {
		if fitLineModel(t, nspat, p) {
			t.ModelValid = true
		} else {
			t.ModelValid = false
			bad++
		}
	}
	return bad
}

func fitLineModel(t *LineTrace, nspat int, p *Params) bool {
	ncov := t.Covered()
	minPts := p.Order + 2
	if ncov < minPts {
		return false
	}

	keep := make([]bool, ncov)
	nkeep := 0
	for i := 0; i < ncov; i++ {
		keep[i] = t.Valid[i]
		if keep[i] {
			nkeep++
		}
	}
	if nkeep < minPts {
		return false
	}

	nterm := p.Order + 1
	var coeffs []float64
	for iter := 0; iter < p.MaxIterations; iter++ {
		xs := make([]float64, 0, nkeep)
		ys := make([]float64, 0, nkeep)
		ws := make([]float64, 0, nkeep)
		for i := 0; i < ncov; i++ {
			if !keep[i] {
				continue
			}
			xs = append(xs, normCoord(float64(t.SpatCol(i)), nspat))
			ys = append(ys, t.RawCenters[i])
			e := t.RawErrors[i]
			if e <= 0 {
				e = p.MaxErr
			}
			ws = append(ws, 1.0/(e*e))
		}

		var err error
		coeffs, err = polyfit1D(p.Function, xs, ys, ws, nterm)
		if err != nil {
			return false
		}

		// Clip points beyond the sigma threshold or the hard deviation
		// bound, then refit until stable.
		var ss float64
		for i := range xs {
			r := ys[i] - polyval1D(p.Function, coeffs, xs[i])
			ss += r * r
		}
		rms := math.Sqrt(ss / float64(len(xs)))
		clipped := false
		for i := 0; i < ncov; i++ {
			if !keep[i] {
				continue
			}
			x := normCoord(float64(t.SpatCol(i)), nspat)
			r := math.Abs(t.RawCenters[i] - polyval1D(p.Function, coeffs, x))
			if r > p.MaxDev || (rms > 0 && r > p.ClipSigma*rms) {
				keep[i] = false
				nkeep--
				clipped = true
			}
		}
		if nkeep < minPts {
			return false
		}
		if !clipped {
			break
		}
	}
	if coeffs == nil {
		return false
	}

	// Final residual check over surviving points.
	var ss float64
	n := 0
	for i := 0; i < ncov; i++ {
		if !keep[i] {
			continue
		}
		x := normCoord(float64(t.SpatCol(i)), nspat)
		r := t.RawCenters[i] - polyval1D(p.Function, coeffs, x)
		ss += r * r
		n++
	}
	if n == 0 || math.Sqrt(ss/float64(n)) > p.MaxDev {
		return false
	}

	t.ModelCenters = make([]float64, ncov)
	for i := 0; i < ncov; i++ {
		x := normCoord(float64(t.SpatCol(i)), nspat)
		t.ModelCenters[i] = polyval1D(p.Function, coeffs, x)
	}
	t.YCenter = t.ModelCenters[ncov/2]
	return true
}
