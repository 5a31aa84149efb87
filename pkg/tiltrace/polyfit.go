package tiltrace

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

var errSingularFit = errors.New("singular polynomial fit")

// normCoord maps a pixel coordinate in [0, n-1] onto the basis domain
// [-1, 1].
func normCoord(x float64, n int) float64 {
	if n <= 1 {
		return 0
	}
	return 2.0*x/float64(n-1) - 1.0
}

// basisVals fills vals[k] with the k-th basis polynomial evaluated at x.
func basisVals(family BasisFamily, x float64, vals []float64) {
	vals[0] = 1.0
	if len(vals) == 1 {
		return
	}
	vals[1] = x
	switch family {
	case BasisChebyshev:
		for k := 2; k < len(vals); k++ {
			vals[k] = 2.0*x*vals[k-1] - vals[k-2]
		}
	default:
		for k := 2; k < len(vals); k++ {
			fk := float64(k)
			vals[k] = ((2.0*fk-1.0)*x*vals[k-1] - (fk-1.0)*vals[k-2]) / fk
		}
	}
}

// polyfit1D fits nterm basis coefficients to y(x) with optional weights
// (inverse-variance). Solved by QR least squares.
func polyfit1D(family BasisFamily, x, y, w []float64, nterm int) ([]float64, error) {
	n := len(x)
	if n < nterm {
		return nil, errSingularFit
	}
	A := mat.NewDense(n, nterm, nil)
	b := mat.NewVecDense(n, nil)
	vals := make([]float64, nterm)
	for i := 0; i < n; i++ {
		wt := 1.0
		if w != nil {
			wt = math.Sqrt(w[i])
		}
		basisVals(family, x[i], vals)
		for j := 0; j < nterm; j++ {
			A.Set(i, j, wt*vals[j])
		}
		b.SetVec(i, wt*y[i])
	}

	var qr mat.QR
	qr.Factorize(A)
	var c mat.VecDense
	if err := qr.SolveVecTo(&c, false, b); err != nil {
		return nil, errSingularFit
	}
	coeffs := make([]float64, nterm)
	for j := range coeffs {
		v := c.AtVec(j)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errSingularFit
		}
		coeffs[j] = v
	}
	return coeffs, nil
}

// polyval1D evaluates a 1D basis expansion at x.
func polyval1D(family BasisFamily, coeffs []float64, x float64) float64 {
	vals := make([]float64, len(coeffs))
	basisVals(family, x, vals)
	sum := 0.0
	for j, c := range coeffs {
		sum += c * vals[j]
	}
	return sum
}

// polyfit2D fits an nx-by-ny tensor-product basis surface z(x, y) to
// weighted samples. Coefficients are indexed [i][j] for term
// P_i(x)*P_j(y).
func polyfit2D(family BasisFamily, x, y, z, w []float64, nx, ny int) ([][]float64, error) {
	n := len(x)
	nterm := nx * ny
	if n < nterm {
		return nil, errSingularFit
	}
	A := mat.NewDense(n, nterm, nil)
	b := mat.NewVecDense(n, nil)
	vx := make([]float64, nx)
	vy := make([]float64, ny)
	for k := 0; k < n; k++ {
		wt := 1.0
		if w != nil {
			wt = math.Sqrt(w[k])
		}
		basisVals(family, x[k], vx)
		basisVals(family, y[k], vy)
		for i := 0; i < nx; i++ {
			for j := 0; j < ny; j++ {
				A.Set(k, i*ny+j, wt*vx[i]*vy[j])
			}
		}
		b.SetVec(k, wt*z[k])
	}

	var qr mat.QR
	qr.Factorize(A)
	var c mat.VecDense
	if err := qr.SolveVecTo(&c, false, b); err != nil {
		return nil, errSingularFit
	}
	coeffs := make([][]float64, nx)
	for i := 0; i < nx; i++ {
		coeffs[i] = make([]float64, ny)
		for j := 0; j < ny; j++ {
			v := c.AtVec(i*ny + j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, errSingularFit
			}
			coeffs[i][j] = v
		}
	}
	return coeffs, nil
}

// polyval2D evaluates a tensor-product basis surface at (x, y).
func polyval2D(family BasisFamily, coeffs [][]float64, x, y float64) float64 {
	nx := len(coeffs)
	if nx == 0 {
		return 0
	}
	ny := len(coeffs[0])
	vx := make([]float64, nx)
	vy := make([]float64, ny)
	basisVals(family, x, vx)
	basisVals(family, y, vy)
	sum := 0.0
	for i := 0; i < nx; i++ {
		for j := 0; j < ny; j++ {
			sum += coeffs[i][j] * vx[i] * vy[j]
		}
	}
	return sum
}
