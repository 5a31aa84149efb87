package tiltrace

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"go.uber.org/zap"
)

// Engine drives per-slit spectral-tilt tracing over one calibration
// exposure. All inputs are read-only after construction; a run threads
// per-slit state through the pipeline stages and returns it, so
// concurrent slits never share mutable state.
type Engine struct {
	arc   *Frame
	bpm   *BoolMask
	slits *SlitGeometry
	par   *Params
	log   *zap.SugaredLogger
}

// NewEngine validates the configuration up front; configuration errors
// are fatal before any computation starts.
func NewEngine(arc *Frame, bpm *BoolMask, slits *SlitGeometry, par *Params, log *zap.SugaredLogger) (*Engine, error) {
	if arc == nil {
		return nil, fmt.Errorf("tilt engine: nil arc frame")
	}
	if slits == nil {
		return nil, fmt.Errorf("tilt engine: nil slit geometry")
	}
	if par == nil {
		par = NewParams()
	}
	if err := slits.Validate(arc.Rows()); err != nil {
		return nil, fmt.Errorf("tilt engine: %w", err)
	}
	if err := par.Validate(slits.NSlit()); err != nil {
		return nil, fmt.Errorf("tilt engine: %w", err)
	}
	if bpm != nil && (bpm.Rows() != arc.Rows() || bpm.Cols() != arc.Cols()) {
		return nil, fmt.Errorf("tilt engine: bad-pixel mask %dx%d does not match arc %dx%d",
			bpm.Rows(), bpm.Cols(), arc.Rows(), arc.Cols())
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Engine{arc: arc, bpm: bpm, slits: slits, par: par, log: log}, nil
}

type slitOutcome struct {
	surface *SlitSurface
	state   *TraceState
	summary SlitSummary
	steps   []Step
}

// Run traces arc-line tilts for every unmasked slit and assembles the
// full-frame tilt map. maskSlits entries set true on input exclude a
// slit; the returned mask additionally flags slits that failed during
// processing. One slit's failure never aborts the others.
func (e *Engine) Run(ctx context.Context, maskSlits []bool) (*TiltResult, error) {
	nspec := e.arc.Rows()
	nspat := e.arc.Cols()
	nslit := e.slits.NSlit()

	if maskSlits == nil {
		maskSlits = make([]bool, nslit)
	} else if len(maskSlits) != nslit {
		return nil, fmt.Errorf("tilt engine: slit mask has %d entries, want %d", len(maskSlits), nslit)
	}

	res := &TiltResult{
		Tilts:     NewFrame(nspec, nspat),
		Func2D:    e.par.Func2D,
		MaskSlits: make([]bool, nslit),
	}
	copy(res.MaskSlits, maskSlits)

	// Assume-no-tilt shortcut: a linear spectral ramp, independent of
	// slit geometry.
	if e.par.Method == MethodZero {
		for r := 0; r < nspec; r++ {
			v := 0.0
			if nspec > 1 {
				v = float64(r) / float64(nspec-1)
			}
			row := res.Tilts.Row(r)
			for c := range row {
				row[c] = v
			}
		}
		res.Steps = append(res.Steps, Step{Name: "zero_tilts", Slit: -1})
		return res, nil
	}

	specs, badExtract := ExtractArcSpectra(e.arc, e.bpm, e.slits)
	res.Steps = append(res.Steps, Step{Name: "extract_arcs", Slit: -1})

	nx := e.par.Order + 2
	ny := e.par.YOrder + 1
	res.Coeffs = make([][][]float64, nx)
	for i := 0; i < nx; i++ {
		res.Coeffs[i] = make([][]float64, ny)
		for j := 0; j < ny; j++ {
			res.Coeffs[i][j] = make([]float64, nslit)
		}
	}
	res.States = make([]*TraceState, nslit)

	slitPix := e.slits.PixelMask(nspec, nspat)
	outcomes := make([]*slitOutcome, nslit)

	workers := e.par.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for slit := 0; slit < nslit; slit++ {
		if maskSlits[slit] {
			continue
		}
		if badExtract[slit] {
			outcomes[slit] = &slitOutcome{summary: SlitSummary{
				Slit: slit, Masked: true, Reason: "arc spectrum extraction failed",
			}}
			continue
		}
		if ctx != nil && ctx.Err() != nil {
			outcomes[slit] = &slitOutcome{summary: SlitSummary{
				Slit: slit, Masked: true, Reason: "cancelled",
			}}
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(slit int) {
			defer wg.Done()
			defer func() { <-sem }()
			out := e.processSlit(ctx, slit, specs[slit], slitPix, res.Tilts)
			if out.surface != nil {
				for i := 0; i < nx; i++ {
					for j := 0; j < ny; j++ {
						res.Coeffs[i][j][slit] = out.surface.Coeffs[i][j]
					}
				}
			}
			outcomes[slit] = out
		}(slit)
	}
	wg.Wait()

	for slit := 0; slit < nslit; slit++ {
		out := outcomes[slit]
		if out == nil {
			res.Slits = append(res.Slits, SlitSummary{Slit: slit, Masked: true, Reason: "externally masked"})
			continue
		}
		if out.summary.Masked {
			res.MaskSlits[slit] = true
		} else {
			res.States[slit] = out.state
		}
		res.Slits = append(res.Slits, out.summary)
		res.Steps = append(res.Steps, out.steps...)
	}
	res.Steps = append(res.Steps, Step{Name: "assemble", Slit: -1})

	if ctx != nil && ctx.Err() != nil {
		return res, ctx.Err()
	}
	return res, nil
}

// processSlit runs detection, selection, crude tracing, per-line
// modelling and the 2D surface fit for one slit, then publishes the
// surface into the shared tilt frame. The slit's mask region is written
// completely or not at all.
func (e *Engine) processSlit(ctx context.Context, slit int, spec []float64, slitPix *SlitMask, tilts *Frame) *slitOutcome {
	nspec := e.arc.Rows()
	nspat := e.arc.Cols()
	out := &slitOutcome{summary: SlitSummary{Slit: slit}}

	peaks := DetectLines(spec, e.par)
	out.summary.Detected = len(peaks)
	out.steps = append(out.steps, Step{Name: "detect_lines", Slit: slit})
	if len(peaks) == 0 {
		e.log.Warnw("no detectable arc lines on slit", "slit", slit)
		out.summary.Masked = true
		out.summary.Reason = "no detectable lines"
		return out
	}

	use := SelectLines(peaks, e.par.ThreshFor(slit), e.par.NeighborRadius, e.par.ExpectedLines, e.par.ExpectedTol)
	nuse := 0
	for _, u := range use {
		if u {
			nuse++
		}
	}
	out.summary.Selected = nuse
	out.steps = append(out.steps, Step{Name: "select_lines", Slit: slit})
	if nuse == 0 {
		e.log.Warnw("no arc lines were deemed usable on slit; cannot compute tilts, try lowering tracethresh",
			"slit", slit)
		out.summary.Masked = true
		out.summary.Reason = "no usable lines"
		return out
	}
	e.log.Infow("modelling arc line tilts", "slit", slit, "lines", nuse)

	if ctx != nil && ctx.Err() != nil {
		out.summary.Masked = true
		out.summary.Reason = "cancelled"
		return out
	}

	slitCen := e.slits.Center(slit)
	traceInt := TraceWindow(e.slits.Left[slit], e.slits.Right[slit])

	state := &TraceState{Detected: len(peaks), Selected: nuse}
	for i, pk := range peaks {
		if !use[i] {
			continue
		}
		state.Lines = append(state.Lines, TraceLine(e.arc, slitPix, slit, pk.Center, slitCen, traceInt, e.par))
	}
	out.steps = append(out.steps, Step{Name: "trace_tilts", Slit: slit})

	state.BadLines = FitLineModels(state.Lines, nspat, e.par)
	out.summary.BadLines = state.BadLines
	out.summary.Used = state.UsableCount()
	out.steps = append(out.steps, Step{Name: "analyze_lines", Slit: slit})
	if state.BadLines > 0 {
		e.log.Warnw("additional arc lines should have been traced (saturated lines?); check the spectral tilt solution",
			"slit", slit, "badlines", state.BadLines)
	}
	if state.UsableCount() == 0 {
		out.summary.Masked = true
		out.summary.Reason = "no modeled lines"
		out.state = state
		return out
	}

	surface, err := FitSlitSurface(state, nspec, nspat, e.par)
	if err != nil {
		e.log.Warnw("tilt surface fit failed on slit", "slit", slit, "error", err)
		out.summary.Masked = true
		out.summary.Reason = "surface fit failed"
		out.state = state
		return out
	}
	out.steps = append(out.steps, Step{Name: "fit_tilts", Slit: slit})

	// Publish into the shared frame. Slit regions are disjoint, so no
	// locking is needed; the loop runs to completion once entered.
	for r := 0; r < nspec; r++ {
		for c := 0; c < nspat; c++ {
			if slitPix.At(r, c) == slit {
				tilts.Set(r, c, surface.Eval(r, c))
			}
		}
	}

	out.surface = surface
	out.state = state
	return out
}
