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

import "fmt"

// WarningCode identifies the kind of a non-fatal condition.
type WarningCode int

const (
	// WarnCyclicSpacing means the grid spacing along the periodic dimension
	// was changed so that an integer number of control points covers
	// one period.
	WarnCyclicSpacing WarningCode = iota + 1

	// WarnFinestSpacing means an explicit GridSpacingSchedule does not end
	// at the requested final grid spacing.
	WarnFinestSpacing
)

func (c WarningCode) String() string {
	switch c {
	case WarnCyclicSpacing:
		return "CyclicSpacing"
	case WarnFinestSpacing:
		return "FinestSpacing"
	default:
		return fmt.Sprintf("WarningCode(%d)", int(c))
	}
}

// Warning is a non-fatal condition reported to the caller, who decides
// how to surface it.
type Warning struct {
	Code      WarningCode
	Level     int // resolution level, or -1 if not level-specific
	Dimension int // dimension, or -1 if not dimension-specific

	Requested, Used float64 // spacing requested and spacing actually used
	Message         string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s (level %d, dimension %d): %s", w.Code, w.Level, w.Dimension, w.Message)
}
