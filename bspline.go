/*
Copyright © 2024 the ffd authors.
This file is part of ffd.

ffd is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

ffd is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with ffd.  If not, see <http://www.gnu.org/licenses/>.
*/

package ffd

import "math"

// SplineOrder is the polynomial degree of the B-spline basis.
type SplineOrder int

// Supported spline orders.
const (
	Linear    SplineOrder = 1
	Quadratic SplineOrder = 2
	Cubic     SplineOrder = 3
)

// Valid returns an error if o is not a supported spline order.
func (o SplineOrder) Valid() error {
	switch o {
	case Linear, Quadratic, Cubic:
		return nil
	}
	return configErrorf("BSplineTransformSplineOrder", "spline order %d is not supported; use 1, 2, or 3", int(o))
}

func (o SplineOrder) String() string {
	switch o {
	case Linear:
		return "linear"
	case Quadratic:
		return "quadratic"
	case Cubic:
		return "cubic"
	}
	return "unsupported"
}

// halfSupport is the radius of the centered basis function.
func (o SplineOrder) halfSupport() float64 { return float64(o+1) / 2 }

// Basis evaluates the centered B-spline basis function of order o at x.
func (o SplineOrder) Basis(x float64) float64 {
	x = math.Abs(x)
	switch o {
	case Linear:
		if x < 1 {
			return 1 - x
		}
	case Quadratic:
		if x < 0.5 {
			return 0.75 - x*x
		}
		if x < 1.5 {
			d := 1.5 - x
			return d * d / 2
		}
	case Cubic:
		if x < 1 {
			return 2./3. - x*x + x*x*x/2
		}
		if x < 2 {
			d := 2 - x
			return d * d * d / 6
		}
	}
	return 0
}

// weights returns the first node index and the basis weights of the
// nodes whose support contains continuous index u.
func (o SplineOrder) weights(u float64, w []float64) (first int) {
	first = int(math.Floor(u - float64(o-1)/2))
	for k := range w[:o+1] {
		w[k] = o.Basis(u - float64(first+k))
	}
	return first
}

// refinementMask returns the two-scale coefficients h_k of the relation
// β(x/2) = Σ_k h_k β(x - k - o.maskShift()), k = 0..o+1.
func (o SplineOrder) refinementMask() []float64 {
	h := make([]float64, o+2)
	scale := math.Pow(2, -float64(o))
	for k := range h {
		h[k] = scale * binomial(int(o)+1, k)
	}
	return h
}

// maskShift is the offset of the first refinement coefficient, which is
// a half-integer for even orders.
func (o SplineOrder) maskShift() float64 { return -o.halfSupport() }

func binomial(n, k int) float64 {
	r := 1.
	for i := 1; i <= k; i++ {
		r = r * float64(n-k+i) / float64(i)
	}
	return r
}
