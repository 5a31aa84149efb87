package tiltrace

import "testing"

func TestParseTraceMethod(t *testing.T) {
	cases := []struct {
		in   string
		want TraceMethod
	}{
		{"full", MethodFull},
		{"", MethodFull},
		{"zero", MethodZero},
	}
	for _, tc := range cases {
		got, err := ParseTraceMethod(tc.in)
		if err != nil || got != tc.want {
			t.Errorf("ParseTraceMethod(%q) = %v, %v", tc.in, got, err)
		}
	}
	if _, err := ParseTraceMethod("spline"); err == nil {
		t.Error("unknown method accepted")
	}
}

func TestParseBasisFamily(t *testing.T) {
	if got, err := ParseBasisFamily("chebyshev"); err != nil || got != BasisChebyshev {
		t.Errorf("ParseBasisFamily(chebyshev) = %v, %v", got, err)
	}
	if got, err := ParseBasisFamily(""); err != nil || got != BasisLegendre {
		t.Errorf("ParseBasisFamily(\"\") = %v, %v", got, err)
	}
	if _, err := ParseBasisFamily("hermite"); err == nil {
		t.Error("unknown family accepted")
	}
}

func TestThreshFor(t *testing.T) {
	p := NewParams()
	if p.ThreshFor(3) != p.TraceThresh {
		t.Error("global threshold not used when no per-slit table is set")
	}
	p.TraceThreshPerSlit = []float64{12, 8}
	if p.ThreshFor(0) != 12 || p.ThreshFor(1) != 8 {
		t.Error("per-slit threshold table ignored")
	}
}

func TestNonlinearCounts(t *testing.T) {
	p := NewParams()
	if p.NonlinearCounts() != 1e10 {
		t.Error("unset detector characteristics should disable the cut")
	}
	p.SaturationCounts = 65535
	p.NonlinearFraction = 0.76
	if got := p.NonlinearCounts(); got != 65535*0.76 {
		t.Errorf("nonlinear counts = %f", got)
	}
}

func TestParamsValidate(t *testing.T) {
	p := NewParams()
	if err := p.Validate(4); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}

	p = NewParams()
	p.TraceThreshPerSlit = []float64{1, 2, 3}
	if err := p.Validate(4); err == nil {
		t.Error("per-slit threshold length mismatch accepted")
	}

	p = NewParams()
	p.FWHM = 0
	if err := p.Validate(4); err == nil {
		t.Error("zero fwhm accepted")
	}

	p = NewParams()
	p.MaxIterations = 0
	if err := p.Validate(4); err == nil {
		t.Error("zero iteration budget accepted")
	}
}

func TestUsableCount(t *testing.T) {
	s := &TraceState{Lines: []*LineTrace{
		{ModelValid: true},
		{ModelValid: false},
		{ModelValid: true},
	}}
	if got := s.UsableCount(); got != 2 {
		t.Errorf("usable count = %d, want 2", got)
	}
}
