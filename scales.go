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

// FrozenScale is the optimizer scale given to the parameters of boundary
// control points. It is large enough that the optimizer effectively does
// not move them.
const FrozenScale = 10000.

// EdgeScales returns one optimizer scale per parameter of a displacement
// field on g. Parameters of nodes within edgeWidth nodes of any face of the
// grid are set to FrozenScale; all others are 1.
func EdgeScales(g Geometry, edgeWidth int) ([]float64, error) {
	if edgeWidth < 0 {
		return nil, configErrorf("PassiveEdgeWidth", "is %d but should be >=0", edgeWidth)
	}
	np := g.NumberOfParameters()
	s := make([]float64, np)
	for i := range s {
		s[i] = 1
	}
	if edgeWidth == 0 {
		return s, nil
	}
	for i, sz := range g.Size {
		if 2*edgeWidth >= sz {
			return nil, configErrorf("PassiveEdgeWidth", "edge width %d leaves no free control points in dimension %d, which has %d nodes",
				edgeWidth, i, sz)
		}
	}

	nn := g.NumberOfNodes()
	d := g.Dim()
	parallel(nn, func(start, end int) {
		idx := make([]int, d)
		// Walk the nodes of this part with an odometer to avoid
		// recomputing the index from the node number every time.
		copy(idx, g.NodeIndex(start))
		for n := start; n < end; n++ {
			if onEdge(idx, g.Size, edgeWidth) {
				for c := 0; c < d; c++ {
					s[c*nn+n] = FrozenScale
				}
			}
			for i := 0; i < d; i++ {
				idx[i]++
				if idx[i] < g.Size[i] {
					break
				}
				idx[i] = 0
			}
		}
	})
	return s, nil
}

// CheckEdgeWidths checks per-level passive edge widths for a schedule with
// the given number of levels.
func CheckEdgeWidths(widths []int, levels int) error {
	if len(widths) > levels {
		return configErrorf("PassiveEdgeWidth", "has %d entries but there are only %d resolutions", len(widths), levels)
	}
	for _, w := range widths {
		if w < 0 {
			return configErrorf("PassiveEdgeWidth", "is %d but should be >=0", w)
		}
	}
	return nil
}

// EdgeWidthOfLevel returns the passive edge width of level. A single width
// applies to all levels, and levels without a width get zero.
func EdgeWidthOfLevel(widths []int, level int) int {
	switch {
	case len(widths) == 1:
		return widths[0]
	case level >= 0 && level < len(widths):
		return widths[level]
	}
	return 0
}

func onEdge(idx, size []int, w int) bool {
	for i, j := range idx {
		if j < w || j >= size[i]-w {
			return true
		}
	}
	return false
}

// FrozenNodes returns the number of nodes whose parameters have
// FrozenScale in scales for a grid with nn nodes.
func FrozenNodes(scales []float64, nn int) int {
	var n int
	for i := 0; i < nn && i < len(scales); i++ {
		if scales[i] == FrozenScale {
			n++
		}
	}
	return n
}
