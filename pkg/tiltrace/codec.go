package tiltrace

import "fmt"

// PadSentinel marks "no data" cells in the padded diagnostic cube. It is
// a large negative number rather than zero so legitimate zero positions
// stay distinguishable.
const PadSentinel = -9999999.9

// Cube channel indices.
const (
	chanRawCenter = iota
	chanRawSpat
	chanModelCenter
	chanModelSpat
	numChannels
)

// TraceCube is the fixed-shape persistence form of one slit's trace
// state: a (MaxLen+1, NLines, 4) float cube plus explicit per-line
// bookkeeping. Lengths and ModelOK are authoritative on decode; the
// sentinel padding is never scanned to infer where real data ends.
type TraceCube struct {
	Data   []float64 // row-major [row][line][channel], channel fastest
	MaxLen int
	NLines int

	Lengths  []int
	ModelOK  []bool
	YCenters []float64
}

func (c *TraceCube) at(row, line, ch int) float64 {
	return c.Data[(row*c.NLines+line)*numChannels+ch]
}

func (c *TraceCube) set(row, line, ch int, v float64) {
	c.Data[(row*c.NLines+line)*numChannels+ch] = v
}

// EncodeTraceState packs a slit's per-line diagnostics into a padded
// cube. Dimension 0 spans the longest raw trace plus one row: each
// line's y_center is packed into the row immediately past its valid
// length would suggest — by convention the final row, channel 1.
func EncodeTraceState(state *TraceState) *TraceCube {
	nlines := len(state.Lines)
	maxLen := 0
	for _, t := range state.Lines {
		if t.Covered() > maxLen {
			maxLen = t.Covered()
		}
	}

	cube := &TraceCube{
		Data:     make([]float64, (maxLen+1)*nlines*numChannels),
		MaxLen:   maxLen,
		NLines:   nlines,
		Lengths:  make([]int, nlines),
		ModelOK:  make([]bool, nlines),
		YCenters: make([]float64, nlines),
	}
	for i := range cube.Data {
		cube.Data[i] = PadSentinel
	}

	for k, t := range state.Lines {
		n := t.Covered()
		cube.Lengths[k] = n
		cube.ModelOK[k] = t.ModelValid
		cube.YCenters[k] = t.YCenter
		for i := 0; i < n; i++ {
			cube.set(i, k, chanRawCenter, t.RawCenters[i])
			cube.set(i, k, chanRawSpat, float64(t.SpatCol(i)))
			if t.ModelValid {
				cube.set(i, k, chanModelCenter, t.ModelCenters[i])
				cube.set(i, k, chanModelSpat, float64(t.SpatCol(i)))
			}
		}
		if t.ModelValid {
			cube.set(maxLen, k, chanRawSpat, t.YCenter)
		}
	}
	return cube
}

// DecodeTraceCube reconstructs a slit's trace state from its persisted
// cube. Raw errors and the per-column validity mask are not persisted;
// decoded traces carry unit validity over their covered range.
func DecodeTraceCube(cube *TraceCube) (*TraceState, error) {
	if len(cube.Lengths) != cube.NLines || len(cube.ModelOK) != cube.NLines {
		return nil, fmt.Errorf("trace cube: bookkeeping tables for %d/%d lines, want %d",
			len(cube.Lengths), len(cube.ModelOK), cube.NLines)
	}
	if want := (cube.MaxLen + 1) * cube.NLines * numChannels; len(cube.Data) != want {
		return nil, fmt.Errorf("trace cube: data length %d, want %d", len(cube.Data), want)
	}

	state := &TraceState{Lines: make([]*LineTrace, cube.NLines)}
	for k := 0; k < cube.NLines; k++ {
		n := cube.Lengths[k]
		if n < 0 || n > cube.MaxLen {
			return nil, fmt.Errorf("trace cube: line %d length %d out of range [0, %d]", k, n, cube.MaxLen)
		}
		t := &LineTrace{
			ModelValid: cube.ModelOK[k],
			RawCenters: make([]float64, n),
			RawErrors:  make([]float64, n),
			Valid:      make([]bool, n),
		}
		if n > 0 {
			t.SpatLo = int(cube.at(0, k, chanRawSpat))
		}
		t.WindowLo = t.SpatLo
		t.WindowHi = t.SpatLo + n
		for i := 0; i < n; i++ {
			t.RawCenters[i] = cube.at(i, k, chanRawCenter)
			t.Valid[i] = true
		}
		if t.ModelValid {
			t.ModelCenters = make([]float64, n)
			for i := 0; i < n; i++ {
				t.ModelCenters[i] = cube.at(i, k, chanModelCenter)
			}
		}
		if len(cube.YCenters) == cube.NLines {
			t.YCenter = cube.YCenters[k]
		} else if t.ModelValid {
			t.YCenter = cube.at(cube.MaxLen, k, chanRawSpat)
		}
		t.SpectralAnchor = t.YCenter
		state.Lines[k] = t
	}
	return state, nil
}
