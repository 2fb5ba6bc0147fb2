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
	"errors"
	"math"
	"testing"
)

// levels returns the grid schedule of a square image.
func levels(t *testing.T, n, nlevels int, order SplineOrder, cyclic bool) *GridSchedule {
	t.Helper()
	s, _, err := ComputeSchedule(square(n), ScheduleConfig{
		NumberOfLevels:                  nlevels,
		SplineOrder:                     order,
		Cyclic:                          cyclic,
		FinalGridSpacingInPhysicalUnits: []float64{4},
	})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// compareFields checks that a and b describe the same deformation at the
// given points.
func compareFields(t *testing.T, a, b *ControlPointGrid, points [][]float64, tol float64) {
	t.Helper()
	var worst float64
	for _, p := range points {
		da, db := a.Displacement(p), b.Displacement(p)
		for i := range da {
			worst = math.Max(worst, math.Abs(da[i]-db[i]))
		}
	}
	if worst > tol {
		t.Errorf("fields differ by up to %g", worst)
	}
}

// imagePoints returns a lattice of points covering [lo, hi]².
func imagePoints(lo, hi, step float64) [][]float64 {
	var p [][]float64
	for x := lo; x <= hi; x += step {
		for y := lo; y <= hi; y += step {
			p = append(p, []float64{x, y})
		}
	}
	return p
}

func TestUpsampleImpulse(t *testing.T) {
	for _, n := range []int{100, 128, 250} {
		for _, o := range orders {
			upsampleImpulse(t, n, o)
		}
	}
}

// upsampleImpulse carries a single nonzero control point of the coarsest
// level of an n×n image to the finer levels.
func upsampleImpulse(t *testing.T, n int, o SplineOrder) {
	t.Helper()
	s := levels(t, n, 3, o, false)
	src, err := NewControlPointGrid(s.Levels[0], o, false)
	if err != nil {
		t.Fatal(err)
	}
	p := src.Parameters()
	nn := src.Geometry.NumberOfNodes()
	center := src.Geometry.Node([]int{src.Geometry.Size[0] / 2, src.Geometry.Size[1] / 2})
	p[center] = 1
	p[nn+center] = -0.5
	if err := src.SetParameters(p); err != nil {
		t.Fatal(err)
	}
	before := src.Parameters()
	points := imagePoints(0, float64(n-1), 3.1)
	for _, level := range []int{1, 2} {
		dst, method, err := Upsample(src, s.Levels[level])
		if err != nil {
			t.Fatal(err)
		}
		if method != MethodRefinement {
			t.Errorf("image %d order %d level %d: method %s", n, o, level, method)
		}
		if dst.NumberOfParameters() != s.Levels[level].NumberOfParameters() {
			t.Errorf("image %d order %d level %d: %d parameters", n, o, level, dst.NumberOfParameters())
		}
		compareFields(t, src, dst, points, 1e-6)
	}
	for i, v := range src.Parameters() {
		if v != before[i] {
			t.Fatalf("image %d order %d: source grid was modified", n, o)
		}
	}
}

func TestUpsampleZero(t *testing.T) {
	s := levels(t, 64, 2, Cubic, false)
	src, err := NewControlPointGrid(s.Levels[0], Cubic, false)
	if err != nil {
		t.Fatal(err)
	}
	shifted := s.Levels[1].Copy()
	shifted.Origin[0] += 1.3
	for _, dst := range []Geometry{s.Levels[1], shifted} {
		g, _, err := Upsample(src, dst)
		if err != nil {
			t.Fatal(err)
		}
		for _, v := range g.Parameters() {
			if v != 0 {
				t.Fatalf("zero field became %g", v)
			}
		}
	}
}

func TestUpsampleSampling(t *testing.T) {
	s := levels(t, 64, 2, Cubic, false)
	src, err := NewControlPointGrid(s.Levels[0], Cubic, false)
	if err != nil {
		t.Fatal(err)
	}
	p := src.Parameters()
	for i := range p {
		p[i] = math.Sin(0.7 * float64(i))
	}
	if err := src.SetParameters(p); err != nil {
		t.Fatal(err)
	}

	// A grid with spacing 12 is not a dyadic refinement of spacing 16.
	dst := Geometry{
		Origin:    []float64{-14, -14},
		Spacing:   []float64{12, 12},
		Direction: []float64{1, 0, 0, 1},
		Size:      []int{9, 9},
		Index:     []int{0, 0},
	}
	g, method, err := Upsample(src, dst)
	if err != nil {
		t.Fatal(err)
	}
	if method != MethodSampling {
		t.Errorf("method %s", method)
	}
	// The new field interpolates the old one at the new control points.
	var nodes [][]float64
	for n := 0; n < dst.NumberOfNodes(); n++ {
		idx := dst.NodeIndex(n)
		nodes = append(nodes, dst.Point([]float64{float64(idx[0]), float64(idx[1])}))
	}
	compareFields(t, src, g, nodes, 1e-9)
}

func TestUpsampleRotated(t *testing.T) {
	// A rotated target grid is never a dyadic refinement.
	s := levels(t, 64, 2, Quadratic, false)
	src, err := NewControlPointGrid(s.Levels[0], Quadratic, false)
	if err != nil {
		t.Fatal(err)
	}
	p := src.Parameters()
	for i := range p {
		p[i] = math.Cos(1.3 * float64(i))
	}
	if err := src.SetParameters(p); err != nil {
		t.Fatal(err)
	}
	c, sn := math.Cos(0.2), math.Sin(0.2)
	dst := s.Levels[1].Copy()
	dst.Direction = []float64{c, -sn, sn, c}
	g, method, err := Upsample(src, dst)
	if err != nil {
		t.Fatal(err)
	}
	if method != MethodSampling {
		t.Errorf("method %s", method)
	}
	var nodes [][]float64
	for n := 0; n < dst.NumberOfNodes(); n++ {
		idx := dst.NodeIndex(n)
		nodes = append(nodes, dst.Point([]float64{float64(idx[0]), float64(idx[1])}))
	}
	compareFields(t, src, g, nodes, 1e-9)
}

func TestUpsampleCyclic(t *testing.T) {
	img := ImageGeometry{
		Origin:  []float64{0, 0},
		Spacing: []float64{1, 1},
		Size:    []int{16, 32},
	}
	s, _, err := ComputeSchedule(img, ScheduleConfig{
		NumberOfLevels:                  2,
		SplineOrder:                     Cubic,
		Cyclic:                          true,
		FinalGridSpacingInPhysicalUnits: []float64{4},
	})
	if err != nil {
		t.Fatal(err)
	}
	src, err := NewControlPointGrid(s.Levels[0], Cubic, true)
	if err != nil {
		t.Fatal(err)
	}
	p := src.Parameters()
	for i := range p {
		p[i] = math.Sin(float64(i)) + 0.5
	}
	if err := src.SetParameters(p); err != nil {
		t.Fatal(err)
	}
	dst, method, err := Upsample(src, s.Levels[1])
	if err != nil {
		t.Fatal(err)
	}
	if method != MethodRefinement {
		t.Errorf("method %s", method)
	}
	if !dst.Cyclic {
		t.Error("upsampled grid is not cyclic")
	}
	var points [][]float64
	for x := 0.; x <= 15; x += 1.5 {
		for y := -10.; y <= 40; y += 1.7 {
			points = append(points, []float64{x, y})
		}
	}
	compareFields(t, src, dst, points, 1e-9)
}

func TestUpsampleCyclicOddPeriod(t *testing.T) {
	s := levels(t, 100, 3, Cubic, true)
	src, err := NewControlPointGrid(s.Levels[0], Cubic, true)
	if err != nil {
		t.Fatal(err)
	}
	p := src.Parameters()
	for i := range p {
		p[i] = math.Cos(float64(i) / 3)
	}
	if err := src.SetParameters(p); err != nil {
		t.Fatal(err)
	}
	var points [][]float64
	for x := 0.; x <= 99; x += 2.9 {
		for y := -20.; y <= 120; y += 3.3 {
			points = append(points, []float64{x, y})
		}
	}
	for _, level := range []int{1, 2} {
		dst, method, err := Upsample(src, s.Levels[level])
		if err != nil {
			t.Fatal(err)
		}
		if method != MethodRefinement {
			t.Errorf("level %d: method %s", level, method)
		}
		compareFields(t, src, dst, points, 1e-9)
	}
}

func TestUpsampleErrors(t *testing.T) {
	s := levels(t, 32, 2, Cubic, false)
	src, err := NewControlPointGrid(s.Levels[0], Cubic, false)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := Upsample(src, testGeometry(5, 5, 5)); !errors.Is(err, ErrConfiguration) {
		t.Errorf("dimension mismatch: got %v", err)
	}
	if _, _, err := Upsample(src, testGeometry(5, 3)); !errors.Is(err, ErrConfiguration) {
		t.Errorf("target too small: got %v", err)
	}
	bad := &ControlPointGrid{Geometry: s.Levels[0], Order: 5}
	if _, _, err := Upsample(bad, s.Levels[1]); !errors.Is(err, ErrConfiguration) {
		t.Errorf("unsupported order: got %v", err)
	}
	short := &ControlPointGrid{Geometry: s.Levels[0], Order: Cubic, params: make([]float64, 3)}
	if _, _, err := Upsample(short, s.Levels[1]); !errors.Is(err, ErrGeometryInconsistency) {
		t.Errorf("short parameter vector: got %v", err)
	}
}

func TestDecompositionInterpolates(t *testing.T) {
	for _, o := range orders {
		for _, periodic := range []bool{false, true} {
			n := 11
			op, err := decomposition(n, o, periodic)
			if err != nil {
				t.Fatal(err)
			}
			in := make([]float64, n)
			for i := range in {
				in[i] = float64(i*i%7) - 2
			}
			c := make([]float64, n)
			if err := op(in, c); err != nil {
				t.Fatal(err)
			}
			for i := 0; i < n; i++ {
				var v float64
				for j := 0; j < n; j++ {
					k := i - j
					if periodic {
						for _, q := range []int{k - n, k, k + n} {
							v += c[j] * o.Basis(float64(q))
						}
					} else {
						v += c[j] * o.Basis(float64(k))
					}
				}
				if math.Abs(v-in[i]) > 1e-10 {
					t.Errorf("order %d periodic %v: sample %d is %g, want %g", o, periodic, i, v, in[i])
				}
			}
		}
	}
}
