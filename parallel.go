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
	"runtime"
	"sync"
)

// parallel splits [0, n) into contiguous parts and runs f on each part
// concurrently. Parts never overlap, so f may write to disjoint ranges of
// shared output without locking.
func parallel(n int, f func(start, end int)) {
	nprocs := runtime.GOMAXPROCS(0) // number of processors
	if nprocs > n {
		nprocs = n
	}
	if nprocs <= 1 {
		f(0, n)
		return
	}
	var wg sync.WaitGroup
	wg.Add(nprocs)
	for pp := 0; pp < nprocs; pp++ {
		go func(pp int) {
			f(pp*n/nprocs, (pp+1)*n/nprocs)
			wg.Done()
		}(pp)
	}
	wg.Wait()
}

// firstError records the first error reported by concurrent workers.
type firstError struct {
	mu  sync.Mutex
	err error
}

func (e *firstError) set(err error) {
	e.mu.Lock()
	if e.err == nil {
		e.err = err
	}
	e.mu.Unlock()
}
