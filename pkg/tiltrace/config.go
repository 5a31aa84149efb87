package tiltrace

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Config is the YAML-facing run configuration. Zero values fall back to
// the defaults from NewParams.
type Config struct {
	Method             string    `yaml:"method"`
	TraceThresh        float64   `yaml:"tracethresh"`
	TraceThreshPerSlit []float64 `yaml:"tracethresh_per_slit"`
	SigDetect          float64   `yaml:"sigdetect"`
	FWHM               float64   `yaml:"fwhm"`
	ContSamp           int       `yaml:"cont_samp"`
	NIterCont          int       `yaml:"niter_cont"`
	Saturation         float64   `yaml:"saturation"`
	Nonlinear          float64   `yaml:"nonlinear"`
	NeighborRadius     float64   `yaml:"neighbor_radius"`
	ExpectedLines      []float64 `yaml:"expected_lines"`
	ExpectedTol        float64   `yaml:"expected_tol"`
	Order              int       `yaml:"order"`
	YOrder             int       `yaml:"yorder"`
	Function           string    `yaml:"function"`
	Func2D             string    `yaml:"func2d"`
	MaxIterations      int       `yaml:"max_iterations"`
	ClipSigma          float64   `yaml:"clip_sigma"`
	MaxDev             float64   `yaml:"maxdev"`
	TraceRadius        float64   `yaml:"trace_radius"`
	MaxShift           float64   `yaml:"maxshift"`
	MaxShift0          float64   `yaml:"maxshift0"`
	MaxErr             float64   `yaml:"maxerr"`
	Workers            int       `yaml:"workers"`
}

// NewConfig creates a new config object from the given filename.
func NewConfig(filename string) (Config, error) {
	cfgFile, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, err
	}
	c := Config{}
	err = yaml.Unmarshal(cfgFile, &c)
	if err != nil {
		return Config{}, err
	}
	return c, nil
}

// Params maps the configuration onto a validated parameter set.
// Invalid values are fatal before any computation starts.
func (c Config) Params() (*Params, error) {
	p := NewParams()

	method, err := ParseTraceMethod(c.Method)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	p.Method = method

	if c.Function != "" {
		if p.Function, err = ParseBasisFamily(c.Function); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
	}
	if c.Func2D != "" {
		if p.Func2D, err = ParseBasisFamily(c.Func2D); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
	}

	if c.TraceThresh > 0 {
		p.TraceThresh = c.TraceThresh
	}
	p.TraceThreshPerSlit = c.TraceThreshPerSlit
	if c.SigDetect > 0 {
		p.SigDetect = c.SigDetect
	}
	if c.FWHM > 0 {
		p.FWHM = c.FWHM
	}
	if c.ContSamp > 0 {
		p.ContSamp = c.ContSamp
	}
	if c.NIterCont > 0 {
		p.NIterCont = c.NIterCont
	}
	if c.Saturation > 0 {
		p.SaturationCounts = c.Saturation
	}
	if c.Nonlinear > 0 {
		p.NonlinearFraction = c.Nonlinear
	}
	if c.NeighborRadius > 0 {
		p.NeighborRadius = c.NeighborRadius
	}
	p.ExpectedLines = c.ExpectedLines
	if c.ExpectedTol > 0 {
		p.ExpectedTol = c.ExpectedTol
	}
	if c.Order > 0 {
		p.Order = c.Order
	}
	if c.YOrder > 0 {
		p.YOrder = c.YOrder
	}
	if c.MaxIterations > 0 {
		p.MaxIterations = c.MaxIterations
	}
	if c.ClipSigma > 0 {
		p.ClipSigma = c.ClipSigma
	}
	if c.MaxDev > 0 {
		p.MaxDev = c.MaxDev
	}
	if c.TraceRadius > 0 {
		p.TraceRadius = c.TraceRadius
	}
	if c.MaxShift > 0 {
		p.MaxShift = c.MaxShift
	}
	if c.MaxShift0 > 0 {
		p.MaxShift0 = c.MaxShift0
	}
	if c.MaxErr > 0 {
		p.MaxErr = c.MaxErr
	}
	if c.Workers > 0 {
		p.Workers = c.Workers
	}
	return p, nil
}
