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
	"os"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

// dimName returns the NetCDF dimension name of spatial dimension i.
func dimName(i int) string {
	if i < 3 {
		return string("xyz"[i])
	}
	return fmt.Sprintf("d%d", i)
}

// componentName returns the NetCDF variable name of displacement
// component c.
func componentName(c int) string { return "u" + dimName(c) }

// WriteNetCDF writes the coefficient images of g to w as a NetCDF file,
// one variable per displacement component. The grid geometry is stored in
// global attributes so that the file can be read back with ReadNetCDF.
func WriteNetCDF(w cdf.ReaderWriterAt, g *ControlPointGrid) error {
	geom := g.Geometry
	d := geom.Dim()
	dims := make([]string, d)
	lengths := make([]int, d)
	for i := 0; i < d; i++ {
		// NetCDF dimensions are listed outermost first.
		dims[d-1-i] = dimName(i)
		lengths[d-1-i] = geom.Size[i]
	}
	h := cdf.NewHeader(dims, lengths)
	for c := 0; c < d; c++ {
		v := componentName(c)
		h.AddVariable(v, dims, []float64{0})
		h.AddAttribute(v, "description", fmt.Sprintf("B-spline coefficients of displacement component %d", c))
	}
	h.AddAttribute("", "Transform", TransformName)
	h.AddAttribute("", "GridSize", toInt32(geom.Size))
	h.AddAttribute("", "GridIndex", toInt32(geom.Index))
	h.AddAttribute("", "GridSpacing", geom.Spacing)
	h.AddAttribute("", "GridOrigin", geom.Origin)
	h.AddAttribute("", "GridDirection", geom.Direction)
	h.AddAttribute("", "BSplineTransformSplineOrder", []int32{int32(g.Order)})
	cyclic := int32(0)
	if g.Cyclic {
		cyclic = 1
	}
	h.AddAttribute("", "UseCyclicTransform", []int32{cyclic})
	h.Define()

	f, err := cdf.Create(w, h)
	if err != nil {
		return fmt.Errorf("ffd: creating NetCDF file: %v", err)
	}
	for c, im := range g.CoefficientImages() {
		v := componentName(c)
		end := f.Header.Lengths(v)
		start := make([]int, len(end))
		if n, err := f.Writer(v, start, end).Write(im.Elements); !complete(n, len(im.Elements), err) {
			return fmt.Errorf("ffd: writing NetCDF variable %s: wrote %d of %d values: %v", v, n, len(im.Elements), err)
		}
	}
	if file, ok := w.(*os.File); ok {
		if err := cdf.UpdateNumRecs(file); err != nil {
			return fmt.Errorf("ffd: updating NetCDF header: %v", err)
		}
	}
	return nil
}

// ReadNetCDF reads a grid written by WriteNetCDF.
func ReadNetCDF(r cdf.ReaderWriterAt) (*ControlPointGrid, error) {
	f, err := cdf.Open(r)
	if err != nil {
		return nil, fmt.Errorf("ffd: opening NetCDF file: %v", err)
	}
	h := f.Header
	size, err := int32Attribute(h, "GridSize")
	if err != nil {
		return nil, err
	}
	index, err := int32Attribute(h, "GridIndex")
	if err != nil {
		return nil, err
	}
	order, err := int32Attribute(h, "BSplineTransformSplineOrder")
	if err != nil {
		return nil, err
	}
	cyclic, err := int32Attribute(h, "UseCyclicTransform")
	if err != nil {
		return nil, err
	}
	spacing, err := float64Attribute(h, "GridSpacing")
	if err != nil {
		return nil, err
	}
	origin, err := float64Attribute(h, "GridOrigin")
	if err != nil {
		return nil, err
	}
	dir, err := float64Attribute(h, "GridDirection")
	if err != nil {
		return nil, err
	}
	if len(order) != 1 || len(cyclic) != 1 {
		return nil, configErrorf("BSplineTransformSplineOrder", "malformed NetCDF attributes")
	}
	geom := Geometry{
		Origin:    origin,
		Spacing:   spacing,
		Direction: dir,
		Size:      fromInt32(size),
		Index:     fromInt32(index),
	}
	g, err := NewControlPointGrid(geom, SplineOrder(order[0]), cyclic[0] != 0)
	if err != nil {
		return nil, err
	}
	images := make([]*sparse.DenseArray, geom.Dim())
	for c := range images {
		v := componentName(c)
		images[c] = sparse.ZerosDense(reversed(geom.Size)...)
		end := f.Header.Lengths(v)
		start := make([]int, len(end))
		if n, err := f.Reader(v, start, end).Read(images[c].Elements); !complete(n, len(images[c].Elements), err) {
			return nil, fmt.Errorf("ffd: reading NetCDF variable %s: read %d of %d values: %v", v, n, len(images[c].Elements), err)
		}
	}
	if err := g.SetCoefficientImages(images); err != nil {
		return nil, err
	}
	return g, nil
}

// complete reports whether a strided read or write of want elements
// finished. The strider returns io.EOF once it reaches the end of the
// variable.
func complete(n, want int, err error) bool {
	return n == want && (err == nil || err == io.EOF)
}

func int32Attribute(h *cdf.Header, name string) ([]int32, error) {
	v, ok := h.GetAttribute("", name).([]int32)
	if !ok {
		return nil, configErrorf(name, "missing or malformed NetCDF attribute")
	}
	return v, nil
}

func float64Attribute(h *cdf.Header, name string) ([]float64, error) {
	v, ok := h.GetAttribute("", name).([]float64)
	if !ok {
		return nil, configErrorf(name, "missing or malformed NetCDF attribute")
	}
	return append([]float64(nil), v...), nil
}

func toInt32(v []int) []int32 {
	o := make([]int32, len(v))
	for i, x := range v {
		o[i] = int32(x)
	}
	return o
}

func fromInt32(v []int32) []int {
	o := make([]int, len(v))
	for i, x := range v {
		o[i] = int(x)
	}
	return o
}
