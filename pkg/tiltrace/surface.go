package tiltrace

import (
	"errors"
	"fmt"
)

// ErrInsufficientData marks a slit with too few independent training
// points for the 2D surface fit. The caller masks the slit and keeps
// processing the others.
var ErrInsufficientData = errors.New("insufficient training points for tilt surface")

// FitSlitSurface aggregates every usable line's model trace within a
// slit into one 2D polynomial surface mapping a detector pixel to the
// normalized spectral coordinate of the monochromatic curve through it.
func FitSlitSurface(state *TraceState, nspec, nspat int, p *Params) (*SlitSurface, error) {
	nx := p.Order + 2
	ny := p.YOrder + 1

	var xs, ys, zs []float64
	for _, t := range state.Lines {
		if !t.ModelValid {
			continue
		}
		target := t.YCenter / float64(nspec-1)
		for i := 0; i < t.Covered(); i++ {
			if !t.Valid[i] {
				continue
			}
			xs = append(xs, normCoord(t.ModelCenters[i], nspec))
			ys = append(ys, normCoord(float64(t.SpatCol(i)), nspat))
			zs = append(zs, target)
		}
	}
	if len(xs) < nx*ny {
		return nil, fmt.Errorf("%w: %d samples, need %d", ErrInsufficientData, len(xs), nx*ny)
	}

	coeffs, err := polyfit2D(p.Func2D, xs, ys, zs, nil, nx, ny)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInsufficientData, err)
	}
	return &SlitSurface{
		Coeffs: coeffs,
		Family: p.Func2D,
		NSpec:  nspec,
		NSpat:  nspat,
	}, nil
}

// Eval returns the tilt value at one detector pixel.
func (s *SlitSurface) Eval(specRow, spatCol int) float64 {
	return polyval2D(s.Family, s.Coeffs,
		normCoord(float64(specRow), s.NSpec),
		normCoord(float64(spatCol), s.NSpat))
}
