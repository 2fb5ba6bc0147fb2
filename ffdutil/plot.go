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

package ffdutil

import (
	"fmt"

	"github.com/spatialmodel/ffd"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Plot draws the control points of every level of sched, projected onto
// the first two dimensions, along with the outline of the image domain,
// and saves the figure to file.
func Plot(img ffd.ImageGeometry, sched *ffd.GridSchedule, file string) error {
	if img.Dim() < 2 {
		return fmt.Errorf("ffd: plotting needs at least two dimensions but the image has %d", img.Dim())
	}
	p := plot.New()
	p.Title.Text = "Control points"
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"
	p.Legend.Top = true

	outline, err := plotter.NewLine(domainOutline(img))
	if err != nil {
		return err
	}
	outline.Color = plotutil.Color(0)
	p.Add(outline)
	p.Legend.Add("image domain", outline)

	for l, g := range sched.Levels {
		s, err := plotter.NewScatter(controlPoints(g))
		if err != nil {
			return err
		}
		s.Color = plotutil.Color(l + 1)
		s.Shape = draw.CircleGlyph{}
		s.Radius = vg.Length(sched.NumberOfLevels()-l) * vg.Millimeter / 2
		p.Add(s)
		p.Legend.Add(fmt.Sprintf("level %d", l), s)
	}
	if err := p.Save(6*vg.Inch, 6*vg.Inch, file); err != nil {
		return fmt.Errorf("ffd: saving plot: %v", err)
	}
	return nil
}

// controlPoints returns the physical positions of the nodes of g in the
// plane of the first two dimensions, at the first index of all others.
func controlPoints(g ffd.Geometry) plotter.XYs {
	var xy plotter.XYs
	idx := make([]float64, g.Dim())
	for i := 0; i < g.Size[0]; i++ {
		for j := 0; j < g.Size[1]; j++ {
			idx[0], idx[1] = float64(i), float64(j)
			pt := g.Point(idx)
			xy = append(xy, plotter.XY{X: pt[0], Y: pt[1]})
		}
	}
	return xy
}

// domainOutline returns the closed outline of the voxel centers of img in
// the plane of the first two dimensions.
func domainOutline(img ffd.ImageGeometry) plotter.XYs {
	d := img.Dim()
	g := ffd.Geometry{
		Origin:    img.Origin,
		Spacing:   img.Spacing,
		Direction: img.Direction,
		Size:      img.Size,
		Index:     make([]int, d),
	}
	if g.Direction == nil {
		g.Direction = make([]float64, d*d)
		for i := 0; i < d; i++ {
			g.Direction[i*d+i] = 1
		}
	}
	nx, ny := float64(img.Size[0]-1), float64(img.Size[1]-1)
	var xy plotter.XYs
	for _, c := range [][2]float64{{0, 0}, {nx, 0}, {nx, ny}, {0, ny}, {0, 0}} {
		idx := make([]float64, d)
		idx[0], idx[1] = c[0], c[1]
		pt := g.Point(idx)
		xy = append(xy, plotter.XY{X: pt[0], Y: pt[1]})
	}
	return xy
}
