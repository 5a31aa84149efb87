package tiltrace

import "math"

const invalidTraceErr = 999.0

// interpAt linearly interpolates a per-row curve at fractional row x.
func interpAt(curve []float64, x float64) float64 {
	if len(curve) == 0 {
		return 0
	}
	if x <= 0 {
		return curve[0]
	}
	if x >= float64(len(curve)-1) {
		return curve[len(curve)-1]
	}
	lo := int(x)
	frac := x - float64(lo)
	return curve[lo] + frac*(curve[lo+1]-curve[lo])
}

// TraceLine follows one arc line's spectral centroid across the spatial
// extent of a slit. The trace window is centered on the slit center at
// the line's spectral anchor with half-width traceInt; columns falling
// past the spatial detector edge are clipped and recorded as absent,
// never extrapolated.
func TraceLine(arc *Frame, slitPix *SlitMask, slit int, anchor float64, slitCen []float64, traceInt int, p *Params) *LineTrace {
	nspec := arc.Rows()
	nspat := arc.Cols()

	spat := interpAt(slitCen, anchor)
	spatInt := int(math.Round(spat))

	t := &LineTrace{
		SpectralAnchor: anchor,
		WindowLo:       spatInt - traceInt,
		WindowHi:       spatInt + traceInt + 1,
		YCenter:        anchor,
	}
	t.SpatLo = t.WindowLo
	if t.SpatLo < 0 {
		t.SpatLo = 0
	}
	spatHi := t.WindowHi
	if spatHi > nspat {
		spatHi = nspat
	}
	ncov := spatHi - t.SpatLo
	if ncov <= 0 {
		return t
	}

	t.RawCenters = make([]float64, ncov)
	t.RawErrors = make([]float64, ncov)
	t.Valid = make([]bool, ncov)

	startCol := spatInt
	if startCol < t.SpatLo {
		startCol = t.SpatLo
	}
	if startCol > spatHi-1 {
		startCol = spatHi - 1
	}
	start := startCol - t.SpatLo

	step := func(i int, prev float64) float64 {
		col := t.SpatLo + i
		center, err, ok := centroidStep(arc, slitPix, slit, col, prev, anchor, p)
		if !ok {
			t.RawCenters[i] = prev
			t.RawErrors[i] = invalidTraceErr
			t.Valid[i] = false
			return prev
		}
		if center < 0 {
			center = 0
		}
		if center > float64(nspec-1) {
			center = float64(nspec - 1)
		}
		t.RawCenters[i] = center
		t.RawErrors[i] = err
		t.Valid[i] = err <= p.MaxErr
		return center
	}

	prev := anchor
	for i := start; i < ncov; i++ {
		prev = step(i, prev)
	}
	prev = t.RawCenters[start]
	for i := start - 1; i >= 0; i-- {
		prev = step(i, prev)
	}
	return t
}

// centroidStep computes the flux-weighted spectral centroid in one
// spatial column within TraceRadius of the previous center. The result
// is bounded to MaxShift per column and MaxShift0 cumulative shift from
// the anchor.
func centroidStep(arc *Frame, slitPix *SlitMask, slit int, col int, prev, anchor float64, p *Params) (center, err float64, ok bool) {
	nspec := arc.Rows()
	lo := int(math.Floor(prev - p.TraceRadius))
	hi := int(math.Ceil(prev + p.TraceRadius))
	if lo < 0 {
		lo = 0
	}
	if hi > nspec-1 {
		hi = nspec - 1
	}
	if hi < lo {
		return 0, 0, false
	}

	var sumw, sumwx float64
	for r := lo; r <= hi; r++ {
		if slitPix.At(r, col) != slit {
			continue
		}
		v := arc.At(r, col)
		if v <= 0 {
			continue
		}
		sumw += v
		sumwx += v * float64(r)
	}
	if sumw <= 0 {
		return 0, 0, false
	}
	center = sumwx / sumw

	if d := center - prev; d > p.MaxShift {
		center = prev + p.MaxShift
	} else if d < -p.MaxShift {
		center = prev - p.MaxShift
	}
	if d := center - anchor; d > p.MaxShift0 {
		center = anchor + p.MaxShift0
	} else if d < -p.MaxShift0 {
		center = anchor - p.MaxShift0
	}

	var m2 float64
	for r := lo; r <= hi; r++ {
		if slitPix.At(r, col) != slit {
			continue
		}
		v := arc.At(r, col)
		if v <= 0 {
			continue
		}
		d := float64(r) - center
		m2 += v * d * d
	}
	m2 /= sumw
	err = math.Sqrt(m2 / math.Max(sumw, 1.0))
	return center, err, true
}

// TraceWindow returns the half-width of the crude-trace window for a
// slit: half the slit's maximum width rounded up to even, plus margin.
func TraceWindow(left, righ []float64) int {
	maxw := 0.0
	for i := range left {
		if w := righ[i] - left[i]; w > maxw {
			maxw = w
		}
	}
	widp2 := int(math.Ceil(maxw)) + 2
	if widp2%2 != 0 {
		widp2++
	}
	return widp2 / 2
}
