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
	"sync"

	"github.com/golang/groupcache/lru"
	"gonum.org/v1/gonum/mat"
)

// collocationKey identifies a factorized collocation matrix.
type collocationKey struct {
	n        int
	order    SplineOrder
	periodic bool
}

// collocationCache holds LU factorizations of collocation matrices so that
// every line of a grid, and every level of a registration, reuses them.
var collocationCache = struct {
	sync.Mutex
	c *lru.Cache
}{c: lru.New(64)}

// collocationLU returns the factorized matrix B with B[i][j] = β(i-j),
// where the difference wraps modulo n if periodic is true.
func collocationLU(n int, order SplineOrder, periodic bool) *mat.LU {
	key := collocationKey{n: n, order: order, periodic: periodic}
	collocationCache.Lock()
	defer collocationCache.Unlock()
	if v, ok := collocationCache.c.Get(key); ok {
		return v.(*mat.LU)
	}
	b := mat.NewDense(n, n, nil)
	r := int(order.halfSupport())
	for i := 0; i < n; i++ {
		for k := -r; k <= r; k++ {
			j := i + k
			if periodic {
				j = wrap(j, n)
			} else if j < 0 || j >= n {
				continue
			}
			b.Set(i, j, b.At(i, j)+order.Basis(float64(k)))
		}
	}
	lu := new(mat.LU)
	lu.Factorize(b)
	collocationCache.c.Add(key, lu)
	return lu
}

// decomposition returns a line operation that converts n samples taken at
// the control points into the B-spline coefficients that interpolate them.
func decomposition(n int, order SplineOrder, periodic bool) (func(in, out []float64) error, error) {
	if order == Linear {
		// The linear basis is interpolating.
		return func(in, out []float64) error {
			copy(out, in)
			return nil
		}, nil
	}
	if n < 1 {
		return nil, fmt.Errorf("ffd: cannot decompose a line of %d samples", n)
	}
	lu := collocationLU(n, order, periodic)
	return func(in, out []float64) error {
		x := mat.NewVecDense(n, out)
		if err := lu.SolveVecTo(x, false, mat.NewVecDense(n, in)); err != nil {
			return fmt.Errorf("ffd: B-spline decomposition of %d %s samples: %w", n, order, err)
		}
		return nil
	}, nil
}
