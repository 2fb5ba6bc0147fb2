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

func TestAffineTransform(t *testing.T) {
	// Rotation by 90° about (1, 1) followed by a shift of (2, 0).
	a, err := NewAffineTransform(2, []float64{0, -1, 1, 0, 2, 0}, []float64{1, 1})
	if err != nil {
		t.Fatal(err)
	}
	for _, test := range []struct{ in, want []float64 }{
		{in: []float64{1, 1}, want: []float64{3, 1}},
		{in: []float64{2, 1}, want: []float64{3, 2}},
		{in: []float64{1, 3}, want: []float64{1, 1}},
	} {
		got := a.TransformPoint(test.in)
		for i := range got {
			if math.Abs(got[i]-test.want[i]) > 1e-12 {
				t.Errorf("%v -> %v, want %v", test.in, got, test.want)
			}
		}
	}
}

func TestAffineTransformErrors(t *testing.T) {
	if _, err := NewAffineTransform(2, []float64{1, 0, 0, 1}, nil); !errors.Is(err, ErrConfiguration) {
		t.Errorf("short parameters: got %v", err)
	}
	if _, err := NewAffineTransform(2, []float64{1, 2, 2, 4, 0, 0}, nil); !errors.Is(err, ErrConfiguration) {
		t.Errorf("singular matrix: got %v", err)
	}
	if _, err := NewAffineTransform(2, []float64{1, 0, 0, 1, 0, 0}, []float64{1}); !errors.Is(err, ErrConfiguration) {
		t.Errorf("bad center: got %v", err)
	}
}
