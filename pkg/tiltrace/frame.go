package tiltrace

import "fmt"

// Frame is a dense row-major float64 image. Rows run along the spectral
// axis, columns along the spatial axis.
type Frame struct {
	data []float64
	rows int
	cols int
}

// NewFrame creates a zero-filled frame.
func NewFrame(rows, cols int) *Frame {
	return &Frame{
		data: make([]float64, rows*cols),
		rows: rows,
		cols: cols,
	}
}

// NewFrameFromData wraps an existing row-major slice.
func NewFrameFromData(data []float64, rows, cols int) (*Frame, error) {
	if len(data) != rows*cols {
		return nil, fmt.Errorf("frame data length %d does not match %dx%d", len(data), rows, cols)
	}
	return &Frame{data: data, rows: rows, cols: cols}, nil
}

func (f *Frame) Rows() int { return f.rows }
func (f *Frame) Cols() int { return f.cols }

func (f *Frame) At(r, c int) float64     { return f.data[r*f.cols+c] }
func (f *Frame) Set(r, c int, v float64) { f.data[r*f.cols+c] = v }

// Data returns the backing row-major slice.
func (f *Frame) Data() []float64 { return f.data }

// Row returns one spectral row as a view into the backing slice.
func (f *Frame) Row(r int) []float64 { return f.data[r*f.cols : (r+1)*f.cols] }

func (f *Frame) Clone() *Frame {
	out := NewFrame(f.rows, f.cols)
	copy(out.data, f.data)
	return out
}

// BoolMask is a dense row-major boolean image, same geometry as Frame.
type BoolMask struct {
	data []bool
	rows int
	cols int
}

func NewBoolMask(rows, cols int) *BoolMask {
	return &BoolMask{data: make([]bool, rows*cols), rows: rows, cols: cols}
}

func (m *BoolMask) Rows() int              { return m.rows }
func (m *BoolMask) Cols() int              { return m.cols }
func (m *BoolMask) At(r, c int) bool       { return m.data[r*m.cols+c] }
func (m *BoolMask) Set(r, c int, v bool)   { m.data[r*m.cols+c] = v }

// SlitGeometry holds per-spectral-row slit edge curves, indexed [slit][row].
// Edges are spatial pixel positions and may be fractional.
type SlitGeometry struct {
	Left  [][]float64
	Right [][]float64
}

func (g *SlitGeometry) NSlit() int { return len(g.Left) }

// Center returns the per-row slit center curve for one slit.
func (g *SlitGeometry) Center(slit int) []float64 {
	left := g.Left[slit]
	righ := g.Right[slit]
	cen := make([]float64, len(left))
	for i := range left {
		cen[i] = (left[i] + righ[i]) / 2.0
	}
	return cen
}

// Validate checks edge curve consistency against a frame geometry.
func (g *SlitGeometry) Validate(rows int) error {
	if len(g.Left) != len(g.Right) {
		return fmt.Errorf("slit geometry: %d left curves vs %d right curves", len(g.Left), len(g.Right))
	}
	for s := range g.Left {
		if len(g.Left[s]) != rows || len(g.Right[s]) != rows {
			return fmt.Errorf("slit %d: edge curve length %d/%d, want %d", s, len(g.Left[s]), len(g.Right[s]), rows)
		}
	}
	return nil
}

// SlitMask is a full-frame slit membership image: each pixel holds the
// owning slit index, or -1 outside every slit.
type SlitMask struct {
	data []int
	rows int
	cols int
}

func (m *SlitMask) Rows() int        { return m.rows }
func (m *SlitMask) Cols() int        { return m.cols }
func (m *SlitMask) At(r, c int) int  { return m.data[r*m.cols+c] }

// PixelMask rasterizes the slit edges into a membership mask. Later slits
// do not overwrite earlier ones where edges overlap.
func (g *SlitGeometry) PixelMask(rows, cols int) *SlitMask {
	m := &SlitMask{data: make([]int, rows*cols), rows: rows, cols: cols}
	for i := range m.data {
		m.data[i] = -1
	}
	for slit := 0; slit < g.NSlit(); slit++ {
		left := g.Left[slit]
		righ := g.Right[slit]
		for r := 0; r < rows; r++ {
			lo := int(left[r] + 0.5)
			hi := int(righ[r] + 0.5)
			if lo < 0 {
				lo = 0
			}
			if hi > cols-1 {
				hi = cols - 1
			}
			for c := lo; c <= hi; c++ {
				if m.data[r*cols+c] < 0 {
					m.data[r*cols+c] = slit
				}
			}
		}
	}
	return m
}
