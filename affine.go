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

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// AffineTransform maps p to A·(p-Center) + Center + Translation. It can be
// used as the initial transform of a grid schedule.
type AffineTransform struct {
	a           *mat.Dense
	center      []float64
	translation []float64
}

// NewAffineTransform returns an affine transform of dimension d from its
// parameters in the usual order: the d×d matrix row by row followed by the
// translation. center may be nil, meaning the origin.
func NewAffineTransform(d int, params, center []float64) (*AffineTransform, error) {
	if len(params) != d*d+d {
		return nil, configErrorf("InitialTransform", "has %d parameters but a %d-dimensional affine transform needs %d",
			len(params), d, d*d+d)
	}
	if center == nil {
		center = make([]float64, d)
	}
	if len(center) != d {
		return nil, configErrorf("InitialTransformCenter", "has %d entries but should have %d", len(center), d)
	}
	a := mat.NewDense(d, d, append([]float64(nil), params[:d*d]...))
	if math.Abs(mat.Det(a)) < 1e-12 {
		return nil, configErrorf("InitialTransform", "matrix is singular")
	}
	return &AffineTransform{
		a:           a,
		center:      append([]float64(nil), center...),
		translation: append([]float64(nil), params[d*d:]...),
	}, nil
}

// TransformPoint implements PointTransformer.
func (t *AffineTransform) TransformPoint(p []float64) []float64 {
	d := len(t.center)
	x := make([]float64, d)
	for i := range x {
		x[i] = p[i] - t.center[i]
	}
	var y mat.VecDense
	y.MulVec(t.a, mat.NewVecDense(d, x))
	o := make([]float64, d)
	for i := range o {
		o[i] = y.AtVec(i) + t.center[i] + t.translation[i]
	}
	return o
}
