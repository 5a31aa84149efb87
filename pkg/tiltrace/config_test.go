package tiltrace

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tiltrace.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestConfigOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
method: zero
tracethresh: 20
fwhm: 6
function: chebyshev
tracethresh_per_slit: [12, 8]
workers: 3
`)
	cfg, err := NewConfig(path)
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}
	p, err := cfg.Params()
	if err != nil {
		t.Fatalf("mapping config: %v", err)
	}

	if p.Method != MethodZero {
		t.Errorf("method = %v, want zero", p.Method)
	}
	if p.TraceThresh != 20 || p.FWHM != 6 || p.Workers != 3 {
		t.Errorf("overrides not applied: thresh=%f fwhm=%f workers=%d", p.TraceThresh, p.FWHM, p.Workers)
	}
	if p.Function != BasisChebyshev {
		t.Errorf("function = %v, want chebyshev", p.Function)
	}
	if len(p.TraceThreshPerSlit) != 2 || p.TraceThreshPerSlit[1] != 8 {
		t.Errorf("per-slit thresholds = %v", p.TraceThreshPerSlit)
	}

	// Untouched keys keep their defaults.
	def := NewParams()
	if p.SigDetect != def.SigDetect || p.Order != def.Order || p.Func2D != def.Func2D {
		t.Error("unset keys lost their defaults")
	}
}

func TestConfigEmptyKeepsDefaults(t *testing.T) {
	cfg, err := NewConfig(writeConfig(t, "{}\n"))
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}
	p, err := cfg.Params()
	if err != nil {
		t.Fatalf("mapping config: %v", err)
	}
	def := NewParams()
	if p.Method != def.Method || p.TraceThresh != def.TraceThresh || p.YOrder != def.YOrder {
		t.Error("empty config altered the defaults")
	}
}

func TestConfigRejectsUnknownMethod(t *testing.T) {
	cfg, err := NewConfig(writeConfig(t, "method: banana\n"))
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}
	if _, err := cfg.Params(); err == nil {
		t.Error("unknown tracing method accepted")
	}
}

func TestConfigRejectsUnknownFunction(t *testing.T) {
	cfg, err := NewConfig(writeConfig(t, "func2d: spline\n"))
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}
	if _, err := cfg.Params(); err == nil {
		t.Error("unknown function family accepted")
	}
}

func TestConfigMissingFile(t *testing.T) {
	if _, err := NewConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("missing config file accepted")
	}
}
