package tiltrace

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/astrogo/fitsio"
)

// ErrNoPriorState is returned by LoadMaster when no calibration file
// exists and strict mode is off. Callers treat it as "start fresh".
var ErrNoPriorState = errors.New("no prior tilt calibration")

const frameType = "tilts"

// SaveMaster writes the tilt artifact to a master calibration file:
// primary HDU = full-frame tilt map; COEFFS extension = the per-slit
// coefficient tensor tagged with the function family; one FWMnnn
// extension per unmasked slit with that slit's padded trace diagnostics
// and explicit per-line length bookkeeping.
func SaveMaster(path string, res *TiltResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating master tilts file: %w", err)
	}
	defer f.Close()
	if err := WriteMaster(f, res); err != nil {
		return fmt.Errorf("writing master tilts file %s: %w", path, err)
	}
	return nil
}

// WriteMaster writes the tilt artifact to w in FITS format.
func WriteMaster(w io.Writer, res *TiltResult) error {
	if res == nil || res.Tilts == nil {
		return fmt.Errorf("master tilts: nothing to save")
	}

	f, err := fitsio.Create(w)
	if err != nil {
		return fmt.Errorf("creating FITS container: %w", err)
	}
	defer f.Close()

	primary := fitsio.NewImage(-64, []int{res.Tilts.Cols(), res.Tilts.Rows()})
	defer primary.Close()
	err = primary.Header().Append(
		fitsio.Card{Name: "FRAMETYP", Value: frameType, Comment: "calibration frame type tag"},
	)
	if err != nil {
		return fmt.Errorf("tagging primary HDU: %w", err)
	}
	tiltData := res.Tilts.Data()
	if err := primary.Write(&tiltData); err != nil {
		return fmt.Errorf("writing tilt map: %w", err)
	}
	if err := f.Write(primary); err != nil {
		return fmt.Errorf("writing primary HDU: %w", err)
	}

	if err := writeCoeffs(f, res); err != nil {
		return err
	}

	for slit, state := range res.States {
		if state == nil || res.MaskSlits[slit] {
			continue
		}
		if err := writeTraceExt(f, slit, state); err != nil {
			return err
		}
	}
	return nil
}

func writeCoeffs(f *fitsio.File, res *TiltResult) error {
	nx := len(res.Coeffs)
	if nx == 0 {
		return nil
	}
	ny := len(res.Coeffs[0])
	nslit := len(res.Coeffs[0][0])

	flat := make([]float64, nx*ny*nslit)
	for i := 0; i < nx; i++ {
		for j := 0; j < ny; j++ {
			for s := 0; s < nslit; s++ {
				flat[(i*ny+j)*nslit+s] = res.Coeffs[i][j][s]
			}
		}
	}

	hdu := fitsio.NewImage(-64, []int{nslit, ny, nx})
	defer hdu.Close()
	err := hdu.Header().Append(
		fitsio.Card{Name: "EXTNAME", Value: "COEFFS", Comment: "tilt surface coefficients"},
		fitsio.Card{Name: "FUNC2D", Value: res.Func2D.String(), Comment: "2D fitting function family"},
	)
	if err != nil {
		return fmt.Errorf("tagging COEFFS HDU: %w", err)
	}
	if err := hdu.Write(&flat); err != nil {
		return fmt.Errorf("writing coefficient tensor: %w", err)
	}
	if err := f.Write(hdu); err != nil {
		return fmt.Errorf("writing COEFFS HDU: %w", err)
	}
	return nil
}

func writeTraceExt(f *fitsio.File, slit int, state *TraceState) error {
	cube := EncodeTraceState(state)
	if cube.NLines > 999 {
		return fmt.Errorf("slit %d: %d traced lines exceed the FWM card limit", slit, cube.NLines)
	}

	hdu := fitsio.NewImage(-64, []int{numChannels, cube.NLines, cube.MaxLen + 1})
	defer hdu.Close()

	cards := []fitsio.Card{
		{Name: "EXTNAME", Value: fmt.Sprintf("FWM%03d", slit), Comment: "per-line trace diagnostics"},
		{Name: "NLINES", Value: cube.NLines, Comment: "number of traced lines"},
		{Name: "MAXLEN", Value: cube.MaxLen, Comment: "longest raw trace"},
	}
	for k := 0; k < cube.NLines; k++ {
		mod := 0
		if cube.ModelOK[k] {
			mod = 1
		}
		cards = append(cards,
			fitsio.Card{Name: fmt.Sprintf("TLEN%03d", k), Value: cube.Lengths[k], Comment: "raw trace length"},
			fitsio.Card{Name: fmt.Sprintf("TMOD%03d", k), Value: mod, Comment: "model trace valid"},
			fitsio.Card{Name: fmt.Sprintf("TYCN%03d", k), Value: cube.YCenters[k], Comment: "line spectral anchor"},
		)
	}
	if err := hdu.Header().Append(cards...); err != nil {
		return fmt.Errorf("tagging FWM%03d HDU: %w", slit, err)
	}
	if err := hdu.Write(&cube.Data); err != nil {
		return fmt.Errorf("writing FWM%03d data: %w", slit, err)
	}
	if err := f.Write(hdu); err != nil {
		return fmt.Errorf("writing FWM%03d HDU: %w", slit, err)
	}
	return nil
}

// LoadMaster reads a previously saved tilt artifact. A missing file
// yields ErrNoPriorState unless strict mode is requested, in which case
// it is fatal.
func LoadMaster(path string, strict bool) (*TiltResult, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) && !strict {
			return nil, ErrNoPriorState
		}
		return nil, fmt.Errorf("opening master tilts file: %w", err)
	}
	defer f.Close()
	res, err := ReadMaster(f)
	if err != nil {
		return nil, fmt.Errorf("reading master tilts file %s: %w", path, err)
	}
	return res, nil
}

// ReadMaster reads a tilt artifact from r.
func ReadMaster(r io.Reader) (*TiltResult, error) {
	f, err := fitsio.Open(r)
	if err != nil {
		return nil, fmt.Errorf("opening FITS container: %w", err)
	}
	defer f.Close()

	hdus := f.HDUs()
	if len(hdus) < 2 {
		return nil, fmt.Errorf("master tilts: %d HDUs, want tilt map and coefficients", len(hdus))
	}

	primary, ok := hdus[0].(fitsio.Image)
	if !ok {
		return nil, fmt.Errorf("master tilts: primary HDU is not an image")
	}
	if card := primary.Header().Get("FRAMETYP"); card != nil {
		if s, ok := card.Value.(string); ok && s != frameType {
			return nil, fmt.Errorf("master tilts: frame type %q, want %q", s, frameType)
		}
	}
	axes := primary.Header().Axes()
	if len(axes) != 2 {
		return nil, fmt.Errorf("master tilts: primary HDU has %d axes, want 2", len(axes))
	}
	ncols, nrows := axes[0], axes[1]
	tiltData := make([]float64, ncols*nrows)
	if err := primary.Read(&tiltData); err != nil {
		return nil, fmt.Errorf("reading tilt map: %w", err)
	}
	tilts, err := NewFrameFromData(tiltData, nrows, ncols)
	if err != nil {
		return nil, err
	}

	res := &TiltResult{Tilts: tilts}
	if err := readCoeffs(hdus[1], res); err != nil {
		return nil, err
	}
	nslit := 0
	if len(res.Coeffs) > 0 && len(res.Coeffs[0]) > 0 {
		nslit = len(res.Coeffs[0][0])
	}
	res.MaskSlits = make([]bool, nslit)
	for i := range res.MaskSlits {
		res.MaskSlits[i] = true
	}
	res.States = make([]*TraceState, nslit)

	for slit := 0; slit < nslit; slit++ {
		name := fmt.Sprintf("FWM%03d", slit)
		for _, hdu := range hdus[2:] {
			if hdu.Name() != name {
				continue
			}
			state, err := readTraceExt(hdu)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			res.States[slit] = state
			res.MaskSlits[slit] = false
			break
		}
	}
	return res, nil
}

func readCoeffs(hdu fitsio.HDU, res *TiltResult) error {
	img, ok := hdu.(fitsio.Image)
	if !ok {
		return fmt.Errorf("master tilts: COEFFS HDU is not an image")
	}
	axes := img.Header().Axes()
	if len(axes) != 3 {
		return fmt.Errorf("master tilts: COEFFS HDU has %d axes, want 3", len(axes))
	}
	nslit, ny, nx := axes[0], axes[1], axes[2]

	if card := img.Header().Get("FUNC2D"); card != nil {
		if s, ok := card.Value.(string); ok {
			fam, err := ParseBasisFamily(s)
			if err != nil {
				return fmt.Errorf("master tilts: %w", err)
			}
			res.Func2D = fam
		}
	}

	flat := make([]float64, nx*ny*nslit)
	if err := img.Read(&flat); err != nil {
		return fmt.Errorf("reading coefficient tensor: %w", err)
	}
	if len(flat) != nx*ny*nslit {
		return fmt.Errorf("coefficient tensor length %d, want %d", len(flat), nx*ny*nslit)
	}
	res.Coeffs = make([][][]float64, nx)
	for i := 0; i < nx; i++ {
		res.Coeffs[i] = make([][]float64, ny)
		for j := 0; j < ny; j++ {
			res.Coeffs[i][j] = make([]float64, nslit)
			copy(res.Coeffs[i][j], flat[(i*ny+j)*nslit:(i*ny+j+1)*nslit])
		}
	}
	return nil
}

func readTraceExt(hdu fitsio.HDU) (*TraceState, error) {
	img, ok := hdu.(fitsio.Image)
	if !ok {
		return nil, fmt.Errorf("trace HDU is not an image")
	}
	hdr := img.Header()
	axes := hdr.Axes()
	if len(axes) != 3 || axes[0] != numChannels {
		return nil, fmt.Errorf("trace HDU has unexpected shape %v", axes)
	}
	nlines := axes[1]
	maxLen := axes[2] - 1

	cube := &TraceCube{
		MaxLen:   maxLen,
		NLines:   nlines,
		Lengths:  make([]int, nlines),
		ModelOK:  make([]bool, nlines),
		YCenters: make([]float64, nlines),
	}
	for k := 0; k < nlines; k++ {
		n, ok := cardInt(hdr.Get(fmt.Sprintf("TLEN%03d", k)))
		if !ok {
			return nil, fmt.Errorf("line %d: missing length card", k)
		}
		cube.Lengths[k] = n
		if mod, ok := cardInt(hdr.Get(fmt.Sprintf("TMOD%03d", k))); ok {
			cube.ModelOK[k] = mod != 0
		}
		if yc, ok := cardFloat(hdr.Get(fmt.Sprintf("TYCN%03d", k))); ok {
			cube.YCenters[k] = yc
		}
	}

	cube.Data = make([]float64, numChannels*nlines*(maxLen+1))
	if err := img.Read(&cube.Data); err != nil {
		return nil, fmt.Errorf("reading trace cube: %w", err)
	}
	return DecodeTraceCube(cube)
}

func cardInt(c *fitsio.Card) (int, bool) {
	if c == nil {
		return 0, false
	}
	switch v := c.Value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func cardFloat(c *fitsio.Card) (float64, bool) {
	if c == nil {
		return 0, false
	}
	switch v := c.Value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
