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
	"testing"
)

func TestEdgeScales(t *testing.T) {
	tests := []struct {
		name   string
		size   []int
		width  int
		frozen int
	}{
		{name: "5x5 width 1", size: []int{5, 5}, width: 1, frozen: 16},
		{name: "5x5 width 2", size: []int{5, 5}, width: 2, frozen: 24},
		{name: "5x5 width 0", size: []int{5, 5}, width: 0, frozen: 0},
		{name: "4x5x6 width 1", size: []int{4, 5, 6}, width: 1, frozen: 4*5*6 - 2*3*4},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			g := testGeometry(test.size...)
			s, err := EdgeScales(g, test.width)
			if err != nil {
				t.Fatal(err)
			}
			if len(s) != g.NumberOfParameters() {
				t.Fatalf("%d scales for %d parameters", len(s), g.NumberOfParameters())
			}
			nn := g.NumberOfNodes()
			if n := FrozenNodes(s, nn); n != test.frozen {
				t.Errorf("%d frozen nodes, want %d", n, test.frozen)
			}
			for n := 0; n < nn; n++ {
				idx := g.NodeIndex(n)
				want := 1.
				if onEdge(idx, g.Size, test.width) {
					want = FrozenScale
				}
				for c := 0; c < g.Dim(); c++ {
					if s[c*nn+n] != want {
						t.Errorf("node %v component %d: scale %g, want %g", idx, c, s[c*nn+n], want)
					}
				}
			}
		})
	}
}

func TestEdgeScalesErrors(t *testing.T) {
	g := testGeometry(5, 7)
	for _, w := range []int{3, 4, -1} {
		if _, err := EdgeScales(g, w); !errors.Is(err, ErrConfiguration) {
			t.Errorf("width %d: got %v", w, err)
		}
	}
}
