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

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// orthonormalTolerance is the largest allowed deviation of DᵀD from the
// identity matrix.
const orthonormalTolerance = 1e-6

// Geometry describes a regular grid of control points in physical space.
// The physical position of array node i is
// Origin + Direction·(Spacing ⊙ (Index + i)).
type Geometry struct {
	Origin    []float64
	Spacing   []float64
	Direction []float64 // D×D direction cosines, row-major
	Size      []int
	Index     []int
}

// Dim returns the number of spatial dimensions.
func (g Geometry) Dim() int { return len(g.Size) }

// NumberOfNodes returns the number of control points in the grid.
func (g Geometry) NumberOfNodes() int {
	if len(g.Size) == 0 {
		return 0
	}
	n := 1
	for _, s := range g.Size {
		n *= s
	}
	return n
}

// NumberOfParameters returns the number of optimizer parameters for a
// displacement field on this grid.
func (g Geometry) NumberOfParameters() int { return g.NumberOfNodes() * g.Dim() }

// Copy returns a deep copy of g.
func (g Geometry) Copy() Geometry {
	return Geometry{
		Origin:    append([]float64(nil), g.Origin...),
		Spacing:   append([]float64(nil), g.Spacing...),
		Direction: append([]float64(nil), g.Direction...),
		Size:      append([]int(nil), g.Size...),
		Index:     append([]int(nil), g.Index...),
	}
}

// Equal reports whether g and o describe the same grid.
func (g Geometry) Equal(o Geometry) bool {
	if len(g.Size) != len(o.Size) || len(g.Index) != len(o.Index) {
		return false
	}
	for i := range g.Size {
		if g.Size[i] != o.Size[i] {
			return false
		}
	}
	for i := range g.Index {
		if g.Index[i] != o.Index[i] {
			return false
		}
	}
	return floats.Equal(g.Origin, o.Origin) && floats.Equal(g.Spacing, o.Spacing) &&
		floats.Equal(g.Direction, o.Direction)
}

// checkShape makes sure all of the geometry fields have consistent lengths.
func (g Geometry) checkShape() error {
	d := g.Dim()
	if d == 0 {
		return configErrorf("GridSize", "grid has no dimensions")
	}
	if len(g.Origin) != d || len(g.Spacing) != d || len(g.Index) != d || len(g.Direction) != d*d {
		return configErrorf("Grid", "inconsistent geometry lengths: size=%d origin=%d spacing=%d index=%d direction=%d",
			d, len(g.Origin), len(g.Spacing), len(g.Index), len(g.Direction))
	}
	return nil
}

// Validate checks that g is a usable control-point grid for a B-spline of
// the given order.
func (g Geometry) Validate(order SplineOrder) error {
	if err := order.Valid(); err != nil {
		return err
	}
	if err := g.checkShape(); err != nil {
		return err
	}
	for i, s := range g.Spacing {
		if !(s > 0) || math.IsInf(s, 0) {
			return configErrorf("GridSpacing", "spacing in dimension %d is %g but should be >0", i, s)
		}
	}
	if err := checkOrthonormal("GridDirection", g.Direction, g.Dim()); err != nil {
		return err
	}
	for i, s := range g.Size {
		if s < int(order)+1 {
			return configErrorf("GridSize", "grid size %d in dimension %d is smaller than the support of a spline of order %d", s, i, order)
		}
	}
	return nil
}

// checkOrthonormal makes sure the row-major d×d matrix dir satisfies
// dirᵀdir = I.
func checkOrthonormal(param string, dir []float64, d int) error {
	if len(dir) != d*d {
		return configErrorf(param, "direction has %d entries but should have %d", len(dir), d*d)
	}
	m := mat.NewDense(d, d, append([]float64(nil), dir...))
	var p mat.Dense
	p.Mul(m.T(), m)
	if !mat.EqualApprox(&p, identity(d), orthonormalTolerance) {
		return configErrorf(param, "direction matrix is not orthonormal: %v", dir)
	}
	return nil
}

func identity(d int) *mat.Dense {
	m := mat.NewDense(d, d, nil)
	for i := 0; i < d; i++ {
		m.Set(i, i, 1)
	}
	return m
}

// identityDirection returns the row-major d×d identity matrix.
func identityDirection(d int) []float64 {
	dir := make([]float64, d*d)
	for i := 0; i < d; i++ {
		dir[i*d+i] = 1
	}
	return dir
}

// direction returns the direction cosines as a matrix.
func (g Geometry) direction() *mat.Dense {
	d := g.Dim()
	return mat.NewDense(d, d, append([]float64(nil), g.Direction...))
}

// Point returns the physical position of continuous array index idx.
func (g Geometry) Point(idx []float64) []float64 {
	d := g.Dim()
	p := append([]float64(nil), g.Origin...)
	for r := 0; r < d; r++ {
		for c := 0; c < d; c++ {
			p[r] += g.Direction[r*d+c] * g.Spacing[c] * (float64(g.Index[c]) + idx[c])
		}
	}
	return p
}

// ContinuousIndex returns the continuous array index of physical point p.
func (g Geometry) ContinuousIndex(p []float64) []float64 {
	d := g.Dim()
	u := make([]float64, d)
	for c := 0; c < d; c++ {
		var v float64
		for r := 0; r < d; r++ {
			v += g.Direction[r*d+c] * (p[r] - g.Origin[r])
		}
		u[c] = v/g.Spacing[c] - float64(g.Index[c])
	}
	return u
}

// strides returns the element strides of a node array over g, with
// dimension 0 varying fastest.
func (g Geometry) strides() []int {
	s := make([]int, g.Dim())
	n := 1
	for i, sz := range g.Size {
		s[i] = n
		n *= sz
	}
	return s
}

// NodeIndex returns the grid index of node number n.
func (g Geometry) NodeIndex(n int) []int {
	idx := make([]int, g.Dim())
	for i, sz := range g.Size {
		idx[i] = n % sz
		n /= sz
	}
	return idx
}

// Node returns the node number of grid index idx.
func (g Geometry) Node(idx []int) int {
	n := 0
	for i := len(idx) - 1; i >= 0; i-- {
		n = n*g.Size[i] + idx[i]
	}
	return n
}

// indexMap returns the affine map u = M·i + b from array indices of g to
// continuous array indices of src.
func (g Geometry) indexMap(src Geometry) (*mat.Dense, []float64) {
	d := g.Dim()
	spT := diag(g.Spacing)
	spSinv := make([]float64, d)
	for i, s := range src.Spacing {
		spSinv[i] = 1 / s
	}
	var m mat.Dense
	m.Mul(diag(spSinv), src.direction().T())
	var tmp mat.Dense
	tmp.Mul(&m, g.direction())
	var M mat.Dense
	M.Mul(&tmp, spT)

	// b = S⁻¹·Dᵀ·(O_dst - O_src) + M·I_dst - I_src
	do := make([]float64, d)
	floats.SubTo(do, g.Origin, src.Origin)
	var bv mat.VecDense
	bv.MulVec(&m, mat.NewVecDense(d, do))
	idx := make([]float64, d)
	for i, v := range g.Index {
		idx[i] = float64(v)
	}
	var mi mat.VecDense
	mi.MulVec(&M, mat.NewVecDense(d, idx))
	b := make([]float64, d)
	for i := range b {
		b[i] = bv.AtVec(i) + mi.AtVec(i) - float64(src.Index[i])
	}
	return &M, b
}

func diag(v []float64) *mat.Dense {
	m := mat.NewDense(len(v), len(v), nil)
	for i, x := range v {
		m.Set(i, i, x)
	}
	return m
}

func (g Geometry) String() string {
	return fmt.Sprintf("size=%v index=%v spacing=%v origin=%v direction=%v",
		g.Size, g.Index, g.Spacing, g.Origin, g.Direction)
}
