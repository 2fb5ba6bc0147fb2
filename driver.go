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

// Optimizer is the part of a numerical optimizer that the level
// transitions interact with.
type Optimizer interface {
	// Parameters returns the current parameter vector.
	Parameters() []float64

	// SetParameters replaces the parameter vector.
	SetParameters([]float64)

	// SetScales sets one scale per parameter.
	SetScales([]float64)
}

// ParameterHolder is an Optimizer that only stores what it is given.
type ParameterHolder struct {
	Params []float64
	Scales []float64
}

// Parameters implements Optimizer.
func (h *ParameterHolder) Parameters() []float64 { return append([]float64(nil), h.Params...) }

// SetParameters implements Optimizer.
func (h *ParameterHolder) SetParameters(p []float64) { h.Params = append(h.Params[:0], p...) }

// SetScales implements Optimizer.
func (h *ParameterHolder) SetScales(s []float64) { h.Scales = append(h.Scales[:0], s...) }

// State is the phase of a LevelTransitionDriver.
type State int

// Driver states, in the order they are visited.
const (
	Uninitialized State = iota
	CoarsestGrid
	Active
	Transitioning
	Finished
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "Uninitialized"
	case CoarsestGrid:
		return "CoarsestGrid"
	case Active:
		return "Active"
	case Transitioning:
		return "Transitioning"
	case Finished:
		return "Finished"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Transition records how the grid of a resolution level was installed.
type Transition struct {
	Level    int
	Geometry Geometry

	// Method is the upsampling method, or zero for the coarsest level,
	// which starts from a zero field.
	Method UpsampleMethod

	// FrozenNodes is the number of boundary nodes given FrozenScale.
	FrozenNodes int
}

// LevelTransitionDriver installs the control-point grid of each resolution
// level and keeps it consistent with an external optimizer. Its methods are
// called by the registration loop, once per event, and must not be called
// concurrently.
type LevelTransitionDriver struct {
	sched      *GridSchedule
	opt        Optimizer
	edgeWidths []int

	grid  *ControlPointGrid
	state State
	level int

	// Transitions holds one record per completed level transition.
	Transitions []Transition
}

// NewLevelTransitionDriver returns a driver for the given schedule.
// edgeWidths holds the passive edge width of each level: a single value is
// used for all levels and levels without a value get zero.
func NewLevelTransitionDriver(sched *GridSchedule, opt Optimizer, edgeWidths []int) (*LevelTransitionDriver, error) {
	if sched == nil || sched.NumberOfLevels() == 0 {
		return nil, configErrorf("NumberOfResolutions", "the grid schedule has no levels")
	}
	if opt == nil {
		return nil, fmt.Errorf("ffd: nil optimizer")
	}
	if err := CheckEdgeWidths(edgeWidths, sched.NumberOfLevels()); err != nil {
		return nil, err
	}
	return &LevelTransitionDriver{
		sched:      sched,
		opt:        opt,
		edgeWidths: append([]int(nil), edgeWidths...),
		level:      -1,
	}, nil
}

// State returns the current phase of the driver.
func (d *LevelTransitionDriver) State() State { return d.state }

// Level returns the active resolution level, or -1 before the first level.
func (d *LevelTransitionDriver) Level() int { return d.level }

// Grid returns the current control-point grid.
func (d *LevelTransitionDriver) Grid() *ControlPointGrid { return d.grid }

// EdgeWidth returns the passive edge width of the given level.
func (d *LevelTransitionDriver) EdgeWidth(level int) int {
	return EdgeWidthOfLevel(d.edgeWidths, level)
}

// BeforeRegistration installs the placeholder grid and hands its zero
// parameters to the optimizer.
func (d *LevelTransitionDriver) BeforeRegistration() error {
	if d.state != Uninitialized {
		return fmt.Errorf("%w: BeforeRegistration called in state %s", ErrState, d.state)
	}
	g := PlaceholderGeometry(d.sched.Dim())
	d.grid = &ControlPointGrid{
		Geometry: g,
		Order:    d.sched.SplineOrder,
		Cyclic:   d.sched.Cyclic,
		params:   make([]float64, g.NumberOfParameters()),
	}
	d.opt.SetParameters(d.grid.Parameters())
	d.state = CoarsestGrid
	return nil
}

// BeforeEachResolution installs the grid of the given level. Level 0
// starts from a zero field; later levels upsample the parameters the
// optimizer holds for the previous level. The optimizer then receives the
// new parameters and the edge scales of the level. If any step fails, the
// driver, its grid, and the optimizer are left as they were.
func (d *LevelTransitionDriver) BeforeEachResolution(level int) error {
	switch {
	case level == 0 && d.state == CoarsestGrid:
	case level > 0 && d.state == Active && level == d.level+1:
	default:
		return fmt.Errorf("%w: BeforeEachResolution(%d) called in state %s at level %d", ErrState, level, d.state, d.level)
	}
	geom, err := d.sched.Level(level)
	if err != nil {
		return err
	}

	t := Transition{Level: level, Geometry: geom}
	var next *ControlPointGrid
	if level == 0 {
		next = &ControlPointGrid{Order: d.grid.Order, Cyclic: d.grid.Cyclic}
		if err := next.install(geom, make([]float64, geom.NumberOfParameters())); err != nil {
			return err
		}
	} else {
		d.state = Transitioning
		next, t.Method, err = d.upsample(level, geom)
		d.state = Active
		if err != nil {
			return err
		}
	}

	scales, err := EdgeScales(geom, d.EdgeWidth(level))
	if err != nil {
		return fmt.Errorf("ffd: level %d: %w", level, err)
	}
	t.FrozenNodes = FrozenNodes(scales, geom.NumberOfNodes())

	d.grid = next
	d.opt.SetParameters(d.grid.Parameters())
	d.opt.SetScales(scales)
	d.Transitions = append(d.Transitions, t)
	d.level = level
	d.state = Active
	return nil
}

// upsample carries the parameters the optimizer holds for the current
// level onto geom, the grid of level, without modifying the current grid.
func (d *LevelTransitionDriver) upsample(level int, geom Geometry) (*ControlPointGrid, UpsampleMethod, error) {
	cur := &ControlPointGrid{Order: d.grid.Order, Cyclic: d.grid.Cyclic}
	if err := cur.install(d.grid.Geometry, d.opt.Parameters()); err != nil {
		return nil, 0, fmt.Errorf("ffd: reading level %d parameters: %w", d.level, err)
	}
	next, method, err := Upsample(cur, geom)
	if err != nil {
		return nil, 0, fmt.Errorf("ffd: upsampling to level %d: %w", level, err)
	}
	return next, method, nil
}

// AfterRegistration copies the final optimizer parameters into the grid.
func (d *LevelTransitionDriver) AfterRegistration() error {
	if d.state != Active {
		return fmt.Errorf("%w: AfterRegistration called in state %s", ErrState, d.state)
	}
	if err := d.grid.SetParameters(d.opt.Parameters()); err != nil {
		return fmt.Errorf("ffd: reading final parameters: %w", err)
	}
	d.state = Finished
	return nil
}
