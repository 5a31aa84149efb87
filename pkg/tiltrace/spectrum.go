package tiltrace

import "math"

// ExtractArcSpectra averages the arc frame across each slit's spatial
// width at every spectral row, honoring the bad-pixel mask. The second
// return flags slits whose extraction failed (fewer than half their
// rows have any usable pixel); those are excluded from tracing.
func ExtractArcSpectra(arc *Frame, bpm *BoolMask, slits *SlitGeometry) ([][]float64, []bool) {
	nspec := arc.Rows()
	nspat := arc.Cols()
	nslit := slits.NSlit()

	specs := make([][]float64, nslit)
	bad := make([]bool, nslit)

	for slit := 0; slit < nslit; slit++ {
		left := slits.Left[slit]
		righ := slits.Right[slit]
		spec := make([]float64, nspec)
		goodRows := 0
		for r := 0; r < nspec; r++ {
			lo := int(math.Ceil(left[r]))
			hi := int(math.Floor(righ[r]))
			if lo < 0 {
				lo = 0
			}
			if hi > nspat-1 {
				hi = nspat - 1
			}
			sum := 0.0
			n := 0
			for c := lo; c <= hi; c++ {
				if bpm != nil && bpm.At(r, c) {
					continue
				}
				sum += arc.At(r, c)
				n++
			}
			if n > 0 {
				spec[r] = sum / float64(n)
				goodRows++
			}
		}
		specs[slit] = spec
		bad[slit] = goodRows < nspec/2
	}
	return specs, bad
}
