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

	"github.com/ctessum/sparse"
)

// ControlPointGrid holds the state of a B-spline free-form deformation:
// the control-point grid geometry and one displacement vector per
// control point.
//
// Parameters are stored dimension-major: params[c*N+n] is displacement
// component c of node n, where N is the number of nodes and nodes are
// numbered with dimension 0 varying fastest.
type ControlPointGrid struct {
	Geometry Geometry
	Order    SplineOrder

	// Cyclic specifies that the last dimension is periodic.
	Cyclic bool

	params []float64
}

// NewControlPointGrid returns a grid with the given geometry and all-zero
// coefficients.
func NewControlPointGrid(g Geometry, order SplineOrder, cyclic bool) (*ControlPointGrid, error) {
	if err := g.Validate(order); err != nil {
		return nil, err
	}
	return &ControlPointGrid{
		Geometry: g.Copy(),
		Order:    order,
		Cyclic:   cyclic,
		params:   make([]float64, g.NumberOfParameters()),
	}, nil
}

// PlaceholderGeometry returns the trivial grid installed before the
// first resolution level: one node in every dimension except the last,
// which has four so that the parameter count is well defined.
func PlaceholderGeometry(dim int) Geometry {
	g := Geometry{
		Origin:    make([]float64, dim),
		Spacing:   make([]float64, dim),
		Direction: identityDirection(dim),
		Size:      make([]int, dim),
		Index:     make([]int, dim),
	}
	for i := 0; i < dim; i++ {
		g.Spacing[i] = 1
		g.Size[i] = 1
	}
	g.Size[dim-1] = 4
	return g
}

// NumberOfParameters returns the length of the parameter vector.
func (g *ControlPointGrid) NumberOfParameters() int { return len(g.params) }

// Parameters returns a copy of the parameter vector.
func (g *ControlPointGrid) Parameters() []float64 {
	return append([]float64(nil), g.params...)
}

// SetParameters replaces the parameter vector.
func (g *ControlPointGrid) SetParameters(p []float64) error {
	if len(p) != g.Geometry.NumberOfParameters() {
		return inconsistencyf("%d parameters supplied for a grid with %d", len(p), g.Geometry.NumberOfParameters())
	}
	g.params = append(g.params[:0], p...)
	return nil
}

// install replaces the geometry and parameters of g.
func (g *ControlPointGrid) install(geom Geometry, p []float64) error {
	if len(p) != geom.NumberOfParameters() {
		return inconsistencyf("%d parameters supplied for a grid with %d", len(p), geom.NumberOfParameters())
	}
	g.Geometry = geom.Copy()
	g.params = append([]float64(nil), p...)
	return nil
}

// Coefficient returns the displacement coefficient of node n.
func (g *ControlPointGrid) Coefficient(n int) []float64 {
	d := g.Geometry.Dim()
	nn := g.Geometry.NumberOfNodes()
	c := make([]float64, d)
	for i := range c {
		c[i] = g.params[i*nn+n]
	}
	return c
}

// periodic reports whether dimension i wraps around.
func (g *ControlPointGrid) periodic(i int) bool {
	return g.Cyclic && i == g.Geometry.Dim()-1
}

// Displacement returns the deformation at physical point p.
func (g *ControlPointGrid) Displacement(p []float64) []float64 {
	out := make([]float64, g.Geometry.Dim())
	g.evaluate(g.Geometry.ContinuousIndex(p), out, newEvalScratch(g.Geometry.Dim(), g.Order))
	return out
}

// TransformPoint returns p displaced by the deformation, so that a grid
// can be used as the initial transform of another schedule.
func (g *ControlPointGrid) TransformPoint(p []float64) []float64 {
	d := g.Displacement(p)
	o := make([]float64, len(p))
	for i := range p {
		o[i] = p[i] + d[i]
	}
	return o
}

type evalScratch struct {
	first   []int
	weights [][]float64
	counter []int
}

func newEvalScratch(dim int, order SplineOrder) *evalScratch {
	s := &evalScratch{
		first:   make([]int, dim),
		weights: make([][]float64, dim),
		counter: make([]int, dim),
	}
	for i := range s.weights {
		s.weights[i] = make([]float64, order+1)
	}
	return s
}

// evaluate sums the coefficients of all nodes supporting continuous array
// index u into out. Nodes outside a clamped grid contribute nothing;
// periodic dimensions wrap.
func (g *ControlPointGrid) evaluate(u, out []float64, s *evalScratch) {
	d := g.Geometry.Dim()
	nn := g.Geometry.NumberOfNodes()
	strides := g.Geometry.strides()
	for i := range out {
		out[i] = 0
	}
	for i := 0; i < d; i++ {
		s.first[i] = g.Order.weights(u[i], s.weights[i])
		s.counter[i] = 0
	}
	k := int(g.Order) + 1
	for {
		w := 1.
		node := 0
		inside := true
		for i := 0; i < d && inside; i++ {
			j := s.first[i] + s.counter[i]
			size := g.Geometry.Size[i]
			if g.periodic(i) {
				j = wrap(j, size)
			} else if j < 0 || j >= size {
				inside = false
				break
			}
			w *= s.weights[i][s.counter[i]]
			node += j * strides[i]
		}
		if inside && w != 0 {
			for c := range out {
				out[c] += w * g.params[c*nn+node]
			}
		}
		// Advance the odometer over the support.
		i := 0
		for ; i < d; i++ {
			s.counter[i]++
			if s.counter[i] < k {
				break
			}
			s.counter[i] = 0
		}
		if i == d {
			return
		}
	}
}

func wrap(j, n int) int {
	j %= n
	if j < 0 {
		j += n
	}
	return j
}

// CoefficientImages returns one array per displacement component holding
// the coefficients of every node. The array shape is the grid size in
// reverse dimension order, so that dimension 0 varies fastest in
// Elements.
func (g *ControlPointGrid) CoefficientImages() []*sparse.DenseArray {
	d := g.Geometry.Dim()
	nn := g.Geometry.NumberOfNodes()
	o := make([]*sparse.DenseArray, d)
	for c := range o {
		o[c] = sparse.ZerosDense(reversed(g.Geometry.Size)...)
		copy(o[c].Elements, g.params[c*nn:(c+1)*nn])
	}
	return o
}

// SetCoefficientImages replaces the parameters of g with the contents of
// per-component coefficient arrays laid out as by CoefficientImages.
func (g *ControlPointGrid) SetCoefficientImages(images []*sparse.DenseArray) error {
	d := g.Geometry.Dim()
	nn := g.Geometry.NumberOfNodes()
	if len(images) != d {
		return inconsistencyf("%d coefficient images for a %d-dimensional grid", len(images), d)
	}
	p := make([]float64, d*nn)
	for c, im := range images {
		if len(im.Elements) != nn {
			return inconsistencyf("coefficient image %d has %d elements; the grid has %d nodes", c, len(im.Elements), nn)
		}
		copy(p[c*nn:], im.Elements)
	}
	g.params = p
	return nil
}

func reversed(s []int) []int {
	o := make([]int, len(s))
	for i, v := range s {
		o[len(s)-1-i] = v
	}
	return o
}

func (g *ControlPointGrid) String() string {
	return fmt.Sprintf("%s B-spline grid (cyclic=%v): %s", g.Order, g.Cyclic, g.Geometry)
}
