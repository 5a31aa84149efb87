package tiltrace

import "math"

// DetectLines finds arc-emission-line peaks in a slit's averaged arc
// spectrum. Peaks whose raw counts reach the detector's non-linearity
// threshold are excluded up front: saturated lines have unreliable
// centroids. An empty result means "no detectable lines", not an error.
func DetectLines(spec []float64, p *Params) []LinePeak {
	n := len(spec)
	if n < 5 {
		return nil
	}

	work := medianSmooth3(spec)
	cont := estimateContinuum(work, p.ContSamp, p.NIterCont)

	resid := make([]float64, n)
	for i := range work {
		resid[i] = work[i] - cont[i]
	}
	sigma := clippedSigma(resid, 3.0, 5)
	if sigma <= 0 {
		return nil
	}

	nonlinear := p.NonlinearCounts()
	peaks := make([]LinePeak, 0, 16)
	for i := 1; i < n-1; i++ {
		if !(resid[i] >= resid[i-1] && resid[i] > resid[i+1]) {
			continue
		}
		amp := resid[i]
		nsig := amp / sigma
		if nsig < p.SigDetect {
			continue
		}
		if spec[i] >= nonlinear {
			continue
		}

		// Parabolic sub-pixel refinement through the three samples
		// around the maximum.
		denom := resid[i-1] - 2.0*resid[i] + resid[i+1]
		dx := 0.0
		if denom < 0 {
			dx = 0.5 * (resid[i-1] - resid[i+1]) / denom
		}
		if dx > 0.5 {
			dx = 0.5
		} else if dx < -0.5 {
			dx = -0.5
		}

		width, resolved := measureWidth(resid, i, amp, p.FWHM)
		peaks = append(peaks, LinePeak{
			Center:        float64(i) + dx,
			Amplitude:     amp,
			ContAmplitude: cont[i],
			Width:         width,
			Significance:  nsig,
			WellResolved:  resolved,
		})
	}

	flagBlends(peaks, p.FWHM)
	return peaks
}

// estimateContinuum computes a smooth continuum by medianing the
// spectrum in contSamp chunks, interpolating between chunk centers and
// iteratively masking emission above the current estimate.
func estimateContinuum(spec []float64, contSamp, niter int) []float64 {
	n := len(spec)
	cont := make([]float64, n)
	if contSamp < 2 {
		contSamp = 2
	}
	if contSamp > n/2 {
		contSamp = n / 2
	}
	if contSamp < 2 {
		return cont
	}
	if niter < 1 {
		niter = 1
	}

	masked := make([]bool, n)
	chunk := n / contSamp
	xs := make([]float64, 0, contSamp)
	ys := make([]float64, 0, contSamp)

	for iter := 0; iter < niter; iter++ {
		xs = xs[:0]
		ys = ys[:0]
		for k := 0; k < contSamp; k++ {
			lo := k * chunk
			hi := lo + chunk
			if k == contSamp-1 {
				hi = n
			}
			vals := make([]float64, 0, hi-lo)
			for i := lo; i < hi; i++ {
				if !masked[i] {
					vals = append(vals, spec[i])
				}
			}
			if len(vals) == 0 {
				continue
			}
			xs = append(xs, float64(lo+hi-1)/2.0)
			ys = append(ys, medianFloat64(vals))
		}
		if len(xs) < 2 {
			break
		}
		for i := range cont {
			cont[i] = interpLinear(float64(i), xs, ys)
		}
		cont = boxcarSmooth(cont, chunk)

		resid := make([]float64, 0, n)
		for i := range spec {
			if !masked[i] {
				resid = append(resid, spec[i]-cont[i])
			}
		}
		sigma := clippedSigma(resid, 3.0, 5)
		if sigma <= 0 {
			break
		}
		changed := false
		for i := range spec {
			if !masked[i] && spec[i]-cont[i] > 3.0*sigma {
				masked[i] = true
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return cont
}

// measureWidth estimates a peak's full width at half maximum by walking
// to the half-amplitude crossings on both sides. The second return is
// false when a crossing was not found within twice the expected width,
// which marks blended or truncated lines.
func measureWidth(resid []float64, ipk int, amp, fwhm float64) (float64, bool) {
	half := amp / 2.0
	reach := int(math.Ceil(2.0 * fwhm))
	n := len(resid)

	left := -1.0
	for i := ipk - 1; i >= ipk-reach && i >= 0; i-- {
		if resid[i] <= half {
			// Linear interpolation between samples i and i+1.
			frac := (half - resid[i]) / (resid[i+1] - resid[i])
			left = float64(i) + frac
			break
		}
	}
	right := -1.0
	for i := ipk + 1; i <= ipk+reach && i < n; i++ {
		if resid[i] <= half {
			frac := (resid[i-1] - half) / (resid[i-1] - resid[i])
			right = float64(i-1) + frac
			break
		}
	}

	if left < 0 || right < 0 {
		return fwhm, false
	}
	return right - left, true
}

// flagBlends clears the well-resolved flag on peaks closer than 1.25x
// the expected line width to a neighbor.
func flagBlends(peaks []LinePeak, fwhm float64) {
	minSep := 1.25 * fwhm
	for i := range peaks {
		if i > 0 && peaks[i].Center-peaks[i-1].Center < minSep {
			peaks[i].WellResolved = false
			peaks[i-1].WellResolved = false
		}
	}
}
