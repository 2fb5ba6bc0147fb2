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
	"fmt"
)

var (
	// ErrConfiguration indicates a malformed or contradictory grid
	// configuration. Registration cannot proceed.
	ErrConfiguration = errors.New("ffd: configuration error")

	// ErrGeometryInconsistency indicates that the optimizer and the
	// control-point grid disagree about the number of parameters.
	ErrGeometryInconsistency = errors.New("ffd: geometry inconsistency")

	// ErrState indicates that a LevelTransitionDriver method was called
	// out of order.
	ErrState = errors.New("ffd: invalid driver state")
)

// ConfigurationError describes a problem with a single configuration
// parameter.
type ConfigurationError struct {
	Param  string // name of the offending parameter
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Param == "" {
		return "ffd: " + e.Reason
	}
	return fmt.Sprintf("ffd: %s: %s", e.Param, e.Reason)
}

// Is reports whether target is ErrConfiguration.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

func configErrorf(param, format string, args ...interface{}) error {
	return &ConfigurationError{Param: param, Reason: fmt.Sprintf(format, args...)}
}

func inconsistencyf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrGeometryInconsistency}, args...)...)
}
