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
	"io"

	"github.com/BurntSushi/toml"
)

// TransformName is the value of the Transform entry of saved grids.
const TransformName = "BSplineTransform"

// TransformParameters is the persisted form of a ControlPointGrid. It is
// saved as TOML key-value entries.
type TransformParameters struct {
	Transform           string    `toml:"Transform"`
	NumberOfParameters  int       `toml:"NumberOfParameters"`
	TransformParameters []float64 `toml:"TransformParameters"`
	GridSize            []int     `toml:"GridSize"`
	GridIndex           []int     `toml:"GridIndex"`
	GridSpacing         []float64 `toml:"GridSpacing"`
	GridOrigin          []float64 `toml:"GridOrigin"`

	// GridDirection holds the direction cosines column by column: entry
	// i*D+j is row j of column i.
	GridDirection []float64 `toml:"GridDirection"`

	BSplineTransformSplineOrder int  `toml:"BSplineTransformSplineOrder"`
	UseCyclicTransform          bool `toml:"UseCyclicTransform"`
}

// TransformParameters returns the persisted form of g.
func (g *ControlPointGrid) TransformParameters() *TransformParameters {
	geom := g.Geometry
	d := geom.Dim()
	dir := make([]float64, d*d)
	for i := 0; i < d; i++ {
		for j := 0; j < d; j++ {
			dir[i*d+j] = geom.Direction[j*d+i]
		}
	}
	return &TransformParameters{
		Transform:                   TransformName,
		NumberOfParameters:          len(g.params),
		TransformParameters:         g.Parameters(),
		GridSize:                    append([]int(nil), geom.Size...),
		GridIndex:                   append([]int(nil), geom.Index...),
		GridSpacing:                 append([]float64(nil), geom.Spacing...),
		GridOrigin:                  append([]float64(nil), geom.Origin...),
		GridDirection:               dir,
		BSplineTransformSplineOrder: int(g.Order),
		UseCyclicTransform:          g.Cyclic,
	}
}

// GridFromTransformParameters reconstructs a grid from its persisted form.
func GridFromTransformParameters(tp *TransformParameters) (*ControlPointGrid, error) {
	if tp.Transform != TransformName {
		return nil, configErrorf("Transform", "is %q but should be %q", tp.Transform, TransformName)
	}
	d := len(tp.GridSize)
	if len(tp.GridDirection) != d*d {
		return nil, configErrorf("GridDirection", "has %d entries but should have %d", len(tp.GridDirection), d*d)
	}
	dir := make([]float64, d*d)
	for i := 0; i < d; i++ {
		for j := 0; j < d; j++ {
			dir[j*d+i] = tp.GridDirection[i*d+j]
		}
	}
	geom := Geometry{
		Origin:    append([]float64(nil), tp.GridOrigin...),
		Spacing:   append([]float64(nil), tp.GridSpacing...),
		Direction: dir,
		Size:      append([]int(nil), tp.GridSize...),
		Index:     append([]int(nil), tp.GridIndex...),
	}
	g, err := NewControlPointGrid(geom, SplineOrder(tp.BSplineTransformSplineOrder), tp.UseCyclicTransform)
	if err != nil {
		return nil, err
	}
	if tp.NumberOfParameters != len(tp.TransformParameters) {
		return nil, inconsistencyf("NumberOfParameters is %d but %d TransformParameters are given",
			tp.NumberOfParameters, len(tp.TransformParameters))
	}
	if err := g.SetParameters(tp.TransformParameters); err != nil {
		return nil, err
	}
	return g, nil
}

// WriteTransformParameters writes tp to w in TOML format.
func WriteTransformParameters(w io.Writer, tp *TransformParameters) error {
	if err := toml.NewEncoder(w).Encode(tp); err != nil {
		return fmt.Errorf("ffd: writing transform parameters: %v", err)
	}
	return nil
}

// ReadTransformParameters reads TOML transform parameters from r.
func ReadTransformParameters(r io.Reader) (*TransformParameters, error) {
	tp := new(TransformParameters)
	if _, err := toml.DecodeReader(r, tp); err != nil {
		return nil, fmt.Errorf("ffd: reading transform parameters: %v", err)
	}
	return tp, nil
}

// Save writes g to w.
func (g *ControlPointGrid) Save(w io.Writer) error {
	return WriteTransformParameters(w, g.TransformParameters())
}

// Load reads a grid previously written by Save.
func Load(r io.Reader) (*ControlPointGrid, error) {
	tp, err := ReadTransformParameters(r)
	if err != nil {
		return nil, err
	}
	return GridFromTransformParameters(tp)
}
