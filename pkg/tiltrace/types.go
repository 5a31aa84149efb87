package tiltrace

import (
	"fmt"
)

// TraceMethod selects how the tilt map is produced.
type TraceMethod int

const (
	// MethodFull runs the complete peak-detection / tracing / fitting pipeline.
	MethodFull TraceMethod = iota
	// MethodZero assumes no spectral tilt and emits a linear ramp.
	MethodZero
)

func (m TraceMethod) String() string {
	switch m {
	case MethodFull:
		return "full"
	case MethodZero:
		return "zero"
	default:
		return "unknown"
	}
}

// ParseTraceMethod maps a configuration string onto a TraceMethod.
func ParseTraceMethod(s string) (TraceMethod, error) {
	switch s {
	case "full", "":
		return MethodFull, nil
	case "zero":
		return MethodZero, nil
	default:
		return 0, fmt.Errorf("unsupported tracing method %q", s)
	}
}

// BasisFamily selects the orthogonal polynomial basis used for fitting.
type BasisFamily int

const (
	BasisLegendre BasisFamily = iota
	BasisChebyshev
)

func (b BasisFamily) String() string {
	switch b {
	case BasisLegendre:
		return "legendre"
	case BasisChebyshev:
		return "chebyshev"
	default:
		return "unknown"
	}
}

// ParseBasisFamily maps a configuration string onto a BasisFamily.
func ParseBasisFamily(s string) (BasisFamily, error) {
	switch s {
	case "legendre", "":
		return BasisLegendre, nil
	case "chebyshev":
		return BasisChebyshev, nil
	default:
		return 0, fmt.Errorf("unsupported function family %q", s)
	}
}

// Params contains all parameters for tilt tracing.
type Params struct {
	// Method selects full tracing or the zero-tilt shortcut.
	Method TraceMethod

	// TraceThresh is the significance required for a detected line to be
	// traced. TraceThreshPerSlit, when non-empty, overrides it per slit
	// and must have one entry per slit.
	TraceThresh        float64
	TraceThreshPerSlit []float64

	// Line detection.
	SigDetect float64
	FWHM      float64
	ContSamp  int
	NIterCont int

	// Detector characteristics. The effective non-linear count threshold
	// is SaturationCounts * NonlinearFraction.
	SaturationCounts  float64
	NonlinearFraction float64

	// Neighbor suppression radius in spectral pixels.
	NeighborRadius float64

	// ExpectedLines restricts tracing to lines near known spectral
	// positions (pixel units); used to suppress instrument ghosts.
	ExpectedLines []float64
	ExpectedTol   float64

	// Polynomial orders: Order for the per-line 1D fits and the spectral
	// direction of the 2D surface, YOrder for the spatial direction.
	Order    int
	YOrder   int
	Function BasisFamily
	Func2D   BasisFamily

	// Per-line iterative refit controls.
	MaxIterations int
	ClipSigma     float64
	MaxDev        float64

	// Crude tracing controls.
	TraceRadius float64
	MaxShift    float64
	MaxShift0   float64
	MaxErr      float64

	// Workers caps the per-slit worker pool; 0 means GOMAXPROCS.
	Workers int
}

// NewParams creates a Params with default values.
func NewParams() *Params {
	return &Params{
		Method:            MethodFull,
		TraceThresh:       10.0,
		SigDetect:         5.0,
		FWHM:              4.0,
		ContSamp:          30,
		NIterCont:         3,
		SaturationCounts:  0,
		NonlinearFraction: 0,
		NeighborRadius:    15.0,
		ExpectedTol:       2.0,
		Order:             2,
		YOrder:            4,
		Function:          BasisLegendre,
		Func2D:            BasisLegendre,
		MaxIterations:     6,
		ClipSigma:         4.0,
		MaxDev:            1.0,
		TraceRadius:       2.0,
		MaxShift:          3.0,
		MaxShift0:         3.0,
		MaxErr:            0.2,
	}
}

// Validate reports configuration errors. These are fatal and must be
// raised before any computation starts.
func (p *Params) Validate(nslit int) error {
	if p.Method != MethodFull && p.Method != MethodZero {
		return fmt.Errorf("invalid tracing method %d", int(p.Method))
	}
	if len(p.TraceThreshPerSlit) > 0 && len(p.TraceThreshPerSlit) != nslit {
		return fmt.Errorf("per-slit trace threshold has %d entries, want %d", len(p.TraceThreshPerSlit), nslit)
	}
	if p.Order < 1 {
		return fmt.Errorf("order must be >= 1, got %d", p.Order)
	}
	if p.YOrder < 0 {
		return fmt.Errorf("yorder must be >= 0, got %d", p.YOrder)
	}
	if p.SigDetect <= 0 {
		return fmt.Errorf("sigdetect must be positive, got %f", p.SigDetect)
	}
	if p.FWHM <= 0 {
		return fmt.Errorf("fwhm must be positive, got %f", p.FWHM)
	}
	if p.TraceRadius <= 0 {
		return fmt.Errorf("trace radius must be positive, got %f", p.TraceRadius)
	}
	if p.MaxIterations < 1 {
		return fmt.Errorf("max iterations must be >= 1, got %d", p.MaxIterations)
	}
	return nil
}

// NonlinearCounts returns the effective saturation threshold for line
// detection. Unset detector characteristics disable the cut.
func (p *Params) NonlinearCounts() float64 {
	if p.SaturationCounts <= 0 || p.NonlinearFraction <= 0 {
		return 1e10
	}
	return p.SaturationCounts * p.NonlinearFraction
}

// ThreshFor returns the trace threshold for one slit.
func (p *Params) ThreshFor(slit int) float64 {
	if len(p.TraceThreshPerSlit) > 0 {
		return p.TraceThreshPerSlit[slit]
	}
	return p.TraceThresh
}

// LinePeak is one detected arc-emission-line peak in a slit's averaged
// spectrum.
type LinePeak struct {
	Center       float64
	Amplitude    float64
	ContAmplitude float64
	Width        float64
	Significance float64
	WellResolved bool
}

// LineTrace holds the raw and modeled centroid track of one arc line
// across the spatial extent of a slit.
type LineTrace struct {
	// SpectralAnchor is the line's detected spectral position at the
	// slit center.
	SpectralAnchor float64

	// WindowLo/WindowHi is the nominal spatial window [WindowLo, WindowHi);
	// it may extend past the detector edge. SpatLo is the first covered
	// spatial column after clipping.
	WindowLo int
	WindowHi int
	SpatLo   int

	// RawCenters/RawErrors/Valid have one entry per covered spatial
	// column; clipped columns are absent, not extrapolated.
	RawCenters []float64
	RawErrors  []float64
	Valid      []bool

	// ModelCenters is filled by the model fitter; ModelValid marks lines
	// usable for the 2D surface fit.
	ModelCenters []float64
	ModelValid   bool

	// YCenter is the model trace evaluated at the central covered column.
	YCenter float64
}

// Covered returns the number of spatial columns actually covered.
func (t *LineTrace) Covered() int { return len(t.RawCenters) }

// SpatCol maps a trace sample index to its spatial detector column.
func (t *LineTrace) SpatCol(i int) int { return t.SpatLo + i }

// TraceState is the full per-slit tracing result and the unit of
// persistence.
type TraceState struct {
	Lines []*LineTrace

	// Diagnostics from the detection stage.
	Detected int
	Selected int
	BadLines int
}

// UsableCount returns the number of lines with a valid model trace.
func (s *TraceState) UsableCount() int {
	n := 0
	for _, t := range s.Lines {
		if t.ModelValid {
			n++
		}
	}
	return n
}

// SlitSurface is the fitted 2D polynomial tilt surface for one slit.
// It maps a detector pixel to the normalized spectral coordinate of the
// monochromatic curve passing through it.
type SlitSurface struct {
	Coeffs [][]float64 // (Order+2) x (YOrder+1)
	Family BasisFamily
	NSpec  int
	NSpat  int
}

// SlitSummary reports per-slit line accounting for the end-of-run summary.
type SlitSummary struct {
	Slit     int
	Detected int
	Selected int
	Used     int
	BadLines int
	Masked   bool
	Reason   string
}

// Step records one pipeline stage execution. Slit is -1 for run-level
// steps.
type Step struct {
	Name string
	Slit int
}

// TiltResult is the output artifact of a run.
type TiltResult struct {
	Tilts  *Frame
	Coeffs [][][]float64 // [Order+2][YOrder+1][nslit]
	Func2D BasisFamily

	// MaskSlits is the updated exclusion vector: true means the slit is
	// untrustworthy and its tilt-map region was left at zero.
	MaskSlits []bool

	Slits  []SlitSummary
	Steps  []Step
	States []*TraceState // per slit; nil for masked slits
}
