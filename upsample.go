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
	"fmt"
	"math"

	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/mat"
)

// UpsampleMethod records how coefficients were carried over to a new grid.
type UpsampleMethod int

const (
	// MethodRefinement is the exact B-spline two-scale refinement, used
	// when the new grid is a dyadic refinement aligned with the old one.
	MethodRefinement UpsampleMethod = iota + 1

	// MethodSampling evaluates the old field at the new control points
	// and converts the samples to coefficients. It reproduces the old
	// field only approximately.
	MethodSampling
)

func (m UpsampleMethod) String() string {
	switch m {
	case MethodRefinement:
		return "refinement"
	case MethodSampling:
		return "sampling"
	}
	return fmt.Sprintf("UpsampleMethod(%d)", int(m))
}

const alignTolerance = 1e-6

// Upsample returns a new grid with geometry dst whose coefficients
// represent the same deformation as src. src is not modified.
func Upsample(src *ControlPointGrid, dst Geometry) (*ControlPointGrid, UpsampleMethod, error) {
	if err := dst.Validate(src.Order); err != nil {
		return nil, 0, err
	}
	if err := src.Geometry.checkShape(); err != nil {
		return nil, 0, err
	}
	if src.Geometry.Dim() != dst.Dim() {
		return nil, 0, configErrorf("Grid", "cannot upsample a %d-dimensional grid to %d dimensions", src.Geometry.Dim(), dst.Dim())
	}
	if len(src.params) != src.Geometry.NumberOfParameters() {
		return nil, 0, inconsistencyf("grid holds %d parameters but its geometry requires %d",
			len(src.params), src.Geometry.NumberOfParameters())
	}

	out := &ControlPointGrid{
		Geometry: dst.Copy(),
		Order:    src.Order,
		Cyclic:   src.Cyclic,
	}
	M, b := dst.indexMap(src.Geometry)
	if plan, ok := refinementPlan(src, dst, M, b); ok {
		p, err := refine(src, dst, plan)
		if err != nil {
			return nil, 0, err
		}
		out.params = p
		return out, MethodRefinement, nil
	}
	p, err := sampleAndDecompose(src, dst, M, b)
	if err != nil {
		return nil, 0, err
	}
	out.params = p
	return out, MethodSampling, nil
}

// axisRefinement describes the dyadic refinement along one dimension.
type axisRefinement struct {
	levels int     // number of halvings of the spacing
	pos0   float64 // target index of source node 0
}

// refinementPlan checks whether dst is an aligned dyadic refinement of
// src and, if so, returns the per-dimension refinement.
func refinementPlan(src *ControlPointGrid, dst Geometry, M *mat.Dense, b []float64) ([]axisRefinement, bool) {
	d := dst.Dim()
	plan := make([]axisRefinement, d)
	for r := 0; r < d; r++ {
		for c := 0; c < d; c++ {
			if r != c && math.Abs(M.At(r, c)) > alignTolerance {
				return nil, false
			}
		}
		ratio := M.At(r, r)
		if !(ratio > 0) {
			return nil, false
		}
		m := int(math.Round(-math.Log2(ratio)))
		if m < 0 || math.Abs(ratio*math.Ldexp(1, m)-1) > alignTolerance {
			return nil, false
		}
		scale := math.Ldexp(1, m)
		pos0 := -scale * b[r]
		final := pos0 + src.Order.maskShift()*(scale-1)
		if math.Abs(final-math.Round(final)) > alignTolerance {
			return nil, false
		}
		if src.periodic(r) && dst.Size[r] != src.Geometry.Size[r]*int(scale) {
			return nil, false
		}
		plan[r] = axisRefinement{levels: m, pos0: pos0}
	}
	return plan, true
}

// refine applies the two-scale relation separably along every dimension.
func refine(src *ControlPointGrid, dst Geometry, plan []axisRefinement) ([]float64, error) {
	d := dst.Dim()
	images := src.CoefficientImages()
	mask := src.Order.refinementMask()
	shift := src.Order.maskShift()
	for c := range images {
		size := append([]int(nil), src.Geometry.Size...)
		for ax := 0; ax < d; ax++ {
			pr := plan[ax]
			periodic := src.periodic(ax)
			nt := dst.Size[ax]
			op := func(in, out []float64) error {
				vals := in
				pos0 := pr.pos0
				step := math.Ldexp(1, pr.levels)
				for s := 0; s < pr.levels; s++ {
					newStep := step / 2
					nv := make([]float64, 2*(len(vals)-1)+len(mask))
					for i, v := range vals {
						if v == 0 {
							continue
						}
						for k, h := range mask {
							nv[2*i+k] += h * v
						}
					}
					vals = nv
					pos0 += shift * newStep
					step = newStep
				}
				t0 := int(math.Round(pos0))
				for i := range out {
					out[i] = 0
				}
				for i, v := range vals {
					t := t0 + i
					if periodic {
						t = wrap(t, nt)
					} else if t < 0 || t >= nt {
						continue
					}
					out[t] += v
				}
				return nil
			}
			var err error
			images[c], size, err = alongAxis(images[c], size, ax, nt, op)
			if err != nil {
				return nil, err
			}
		}
	}
	return flatten(images), nil
}

// sampleAndDecompose evaluates the source field at every node of dst and
// computes the coefficients whose B-spline interpolates those samples.
func sampleAndDecompose(src *ControlPointGrid, dst Geometry, M *mat.Dense, b []float64) ([]float64, error) {
	d := dst.Dim()
	nn := dst.NumberOfNodes()
	images := make([]*sparse.DenseArray, d)
	for c := range images {
		images[c] = sparse.ZerosDense(reversed(dst.Size)...)
	}
	parallel(nn, func(start, end int) {
		s := newEvalScratch(d, src.Order)
		u := make([]float64, d)
		v := make([]float64, d)
		for n := start; n < end; n++ {
			idx := dst.NodeIndex(n)
			for r := 0; r < d; r++ {
				u[r] = b[r]
				for c := 0; c < d; c++ {
					u[r] += M.At(r, c) * float64(idx[c])
				}
			}
			src.evaluate(u, v, s)
			for c := range images {
				images[c].Elements[n] = v[c]
			}
		}
	})

	for c := range images {
		size := append([]int(nil), dst.Size...)
		for ax := 0; ax < d; ax++ {
			op, err := decomposition(dst.Size[ax], src.Order, src.periodic(ax))
			if err != nil {
				return nil, err
			}
			images[c], size, err = alongAxis(images[c], size, ax, dst.Size[ax], op)
			if err != nil {
				return nil, err
			}
		}
	}
	return flatten(images), nil
}

// alongAxis applies op to every line of node array a along axis ax. The
// returned array has n nodes along ax.
func alongAxis(a *sparse.DenseArray, size []int, ax, n int, op func(in, out []float64) error) (*sparse.DenseArray, []int, error) {
	outSize := append([]int(nil), size...)
	outSize[ax] = n
	o := sparse.ZerosDense(reversed(outSize)...)

	inStride := Geometry{Size: size}.strides()
	outStride := Geometry{Size: outSize}.strides()
	lines := 1
	for i, s := range size {
		if i != ax {
			lines *= s
		}
	}

	var ferr firstError
	parallel(lines, func(start, end int) {
		in := make([]float64, size[ax])
		out := make([]float64, n)
		for l := start; l < end; l++ {
			inOff, outOff := 0, 0
			rem := l
			for i, s := range size {
				if i == ax {
					continue
				}
				idx := rem % s
				rem /= s
				inOff += idx * inStride[i]
				outOff += idx * outStride[i]
			}
			for k := range in {
				in[k] = a.Elements[inOff+k*inStride[ax]]
			}
			if err := op(in, out); err != nil {
				ferr.set(err)
				return
			}
			for k, v := range out {
				o.Elements[outOff+k*outStride[ax]] = v
			}
		}
	})
	if ferr.err != nil {
		return nil, nil, ferr.err
	}
	return o, outSize, nil
}

// flatten concatenates per-component coefficient arrays into a
// dimension-major parameter vector.
func flatten(images []*sparse.DenseArray) []float64 {
	var p []float64
	for _, im := range images {
		p = append(p, im.Elements...)
	}
	return p
}
