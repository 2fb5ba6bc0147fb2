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

// Package ffd manages the control point grids of a multi-resolution B-spline
// free-form deformation. It computes the grid of every resolution level from
// the fixed image geometry, evaluates and stores the spline coefficients,
// carries a deformation from one level to a finer one, and freezes control
// points near the grid boundary.
package ffd

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

const (
	// DefaultUpsampleFactor is the grid spacing ratio between consecutive
	// resolution levels when no GridSpacingSchedule is given.
	DefaultUpsampleFactor = 2.0

	// DefaultFinalGridSpacing is the final grid spacing in physical units
	// used when neither FinalGridSpacingInVoxels nor
	// FinalGridSpacingInPhysicalUnits is given.
	DefaultFinalGridSpacing = 8.0

	// ceilTolerance absorbs round-off when counting how many grid cells
	// span the image.
	ceilTolerance = 1e-9
)

// ImageGeometry describes the fixed image domain over which the
// deformation is defined.
type ImageGeometry struct {
	Origin    []float64
	Spacing   []float64
	Direction []float64 // D×D direction cosines, row-major; nil means identity
	Size      []int     // number of voxels in each dimension
}

// Dim returns the number of image dimensions.
func (img ImageGeometry) Dim() int { return len(img.Size) }

func (img ImageGeometry) validate() error {
	d := img.Dim()
	if d == 0 {
		return configErrorf("Image.Size", "image has no dimensions")
	}
	if len(img.Origin) != d {
		return configErrorf("Image.Origin", "has %d entries but the image has %d dimensions", len(img.Origin), d)
	}
	if len(img.Spacing) != d {
		return configErrorf("Image.Spacing", "has %d entries but the image has %d dimensions", len(img.Spacing), d)
	}
	for i, s := range img.Spacing {
		if !(s > 0) {
			return configErrorf("Image.Spacing", "spacing in dimension %d is %g but should be >0", i, s)
		}
	}
	for i, s := range img.Size {
		if s < 1 {
			return configErrorf("Image.Size", "size in dimension %d is %d but should be >0", i, s)
		}
	}
	if img.Direction != nil {
		return checkOrthonormal("Image.Direction", img.Direction, d)
	}
	return nil
}

func (img ImageGeometry) direction() []float64 {
	if img.Direction == nil {
		return identityDirection(img.Dim())
	}
	return img.Direction
}

// PointTransformer maps physical points. It is implemented by transforms
// that are composed with the B-spline deformation.
type PointTransformer interface {
	TransformPoint(p []float64) []float64
}

// ScheduleConfig holds the configuration for computing a grid schedule.
type ScheduleConfig struct {
	NumberOfLevels int
	SplineOrder    SplineOrder

	// Cyclic makes the last dimension periodic.
	Cyclic bool

	// FinalGridSpacingInVoxels and FinalGridSpacingInPhysicalUnits are
	// mutually exclusive ways of specifying the grid spacing of the finest
	// level. Each holds either one value for all dimensions or one value
	// per dimension.
	FinalGridSpacingInVoxels        []float64
	FinalGridSpacingInPhysicalUnits []float64

	// GridSpacingSchedule holds downsampling factors relative to the final
	// grid spacing, coarsest level first: either one entry per level or
	// one entry per level and dimension, dimension varying fastest.
	GridSpacingSchedule []float64

	// UpsampleFactor is the ratio between the grid spacings of consecutive
	// levels when GridSpacingSchedule is empty. Zero means
	// DefaultUpsampleFactor.
	UpsampleFactor float64

	// InitialTransform, if not nil, is applied before the B-spline
	// deformation; the grid is enlarged to cover the transformed domain.
	InitialTransform PointTransformer
}

// GridSchedule holds the control-point grid geometry of every resolution
// level, coarsest first.
type GridSchedule struct {
	Levels      []Geometry
	SplineOrder SplineOrder
	Cyclic      bool
}

// NumberOfLevels returns the number of resolution levels.
func (s *GridSchedule) NumberOfLevels() int { return len(s.Levels) }

// Level returns a copy of the geometry of the given level.
func (s *GridSchedule) Level(level int) (Geometry, error) {
	if level < 0 || level >= len(s.Levels) {
		return Geometry{}, configErrorf("Level", "level %d is outside the schedule of %d levels", level, len(s.Levels))
	}
	return s.Levels[level].Copy(), nil
}

// Dim returns the number of spatial dimensions of the schedule.
func (s *GridSchedule) Dim() int {
	if len(s.Levels) == 0 {
		return 0
	}
	return s.Levels[0].Dim()
}

// ComputeSchedule computes the control-point grid of every resolution
// level so that the B-spline support covers the image domain. Non-fatal
// adjustments are returned as warnings.
func ComputeSchedule(img ImageGeometry, cfg ScheduleConfig) (*GridSchedule, []Warning, error) {
	if len(cfg.FinalGridSpacingInVoxels) > 0 && len(cfg.FinalGridSpacingInPhysicalUnits) > 0 {
		return nil, nil, configErrorf("FinalGridSpacing", `you can not specify both "FinalGridSpacingInVoxels" and "FinalGridSpacingInPhysicalUnits"`)
	}
	if err := cfg.SplineOrder.Valid(); err != nil {
		return nil, nil, err
	}
	if cfg.NumberOfLevels < 1 {
		return nil, nil, configErrorf("NumberOfResolutions", "is %d but should be >0", cfg.NumberOfLevels)
	}
	if err := img.validate(); err != nil {
		return nil, nil, err
	}
	d := img.Dim()

	finalSpacing, err := cfg.finalSpacing(img)
	if err != nil {
		return nil, nil, err
	}
	factors, warnings, err := cfg.factors(d)
	if err != nil {
		return nil, nil, err
	}

	dir := img.direction()
	origin, spacing := img.Origin, img.Spacing
	if cfg.InitialTransform != nil {
		origin, spacing = coverTransformedDomain(img, dir, cfg.InitialTransform, cfg.Cyclic)
	}

	s := &GridSchedule{
		Levels:      make([]Geometry, cfg.NumberOfLevels),
		SplineOrder: cfg.SplineOrder,
		Cyclic:      cfg.Cyclic,
	}
	order := int(cfg.SplineOrder)
	for l := range s.Levels {
		g := Geometry{
			Origin:    make([]float64, d),
			Spacing:   make([]float64, d),
			Direction: append([]float64(nil), dir...),
			Size:      make([]int, d),
			Index:     make([]int, d),
		}
		offset := make([]float64, d) // grid origin in the image frame
		for i := 0; i < d; i++ {
			requested := finalSpacing[i] * factors[l][i]
			extent := float64(img.Size[i]) * spacing[i]
			coarser, m := dyadicParent(factors, l, i)
			if cfg.Cyclic && i == d-1 {
				n := int(math.Ceil(extent/requested - ceilTolerance))
				if n < order+1 {
					n = order + 1
				}
				if coarser >= 0 {
					// Keep an integer number of fine cells per coarse cell.
					n = s.Levels[coarser].Size[i] << uint(m)
				}
				g.Size[i] = n
				g.Spacing[i] = extent / float64(n)
				if math.Abs(g.Spacing[i]-requested) > ceilTolerance*requested {
					warnings = append(warnings, Warning{
						Code:      WarnCyclicSpacing,
						Level:     l,
						Dimension: i,
						Requested: requested,
						Used:      g.Spacing[i],
						Message: fmt.Sprintf("grid spacing %g was changed to %g so that %d control points tile the period %g",
							requested, g.Spacing[i], n, extent),
					})
				}
				continue
			}
			bare := int(math.Ceil(extent/requested - ceilTolerance))
			if bare < 1 {
				bare = 1
			}
			if coarser >= 0 && bare%2 == 1 {
				// An even number of cells keeps the nodes of this level
				// aligned with those of coarser dyadic levels.
				bare++
			}
			g.Size[i] = bare + order
			g.Spacing[i] = requested
			offset[i] = -(float64(g.Size[i]-1)*requested - float64(img.Size[i]-1)*spacing[i]) / 2
		}
		for r := 0; r < d; r++ {
			g.Origin[r] = origin[r]
			for c := 0; c < d; c++ {
				g.Origin[r] += dir[r*d+c] * offset[c]
			}
		}
		if err := g.Validate(cfg.SplineOrder); err != nil {
			return nil, nil, fmt.Errorf("ffd: level %d: %w", l, err)
		}
		s.Levels[l] = g
	}
	return s, warnings, nil
}

// dyadicParent returns the finest level coarser than l whose factor in
// dimension i is 2^m times that of level l, with m >= 1, or -1 if there is
// none.
func dyadicParent(factors [][]float64, l, i int) (level, m int) {
	for k := l - 1; k >= 0; k-- {
		ratio := factors[k][i] / factors[l][i]
		p := int(math.Round(math.Log2(ratio)))
		if p >= 1 && math.Abs(ratio-math.Ldexp(1, p)) <= ceilTolerance*ratio {
			return k, p
		}
	}
	return -1, 0
}

// finalSpacing returns the physical grid spacing of the finest level.
func (cfg ScheduleConfig) finalSpacing(img ImageGeometry) ([]float64, error) {
	d := img.Dim()
	switch {
	case len(cfg.FinalGridSpacingInVoxels) > 0:
		v, err := broadcast("FinalGridSpacingInVoxels", cfg.FinalGridSpacingInVoxels, d)
		if err != nil {
			return nil, err
		}
		floats.Mul(v, img.Spacing)
		return v, nil
	case len(cfg.FinalGridSpacingInPhysicalUnits) > 0:
		return broadcast("FinalGridSpacingInPhysicalUnits", cfg.FinalGridSpacingInPhysicalUnits, d)
	}
	s := make([]float64, d)
	for i := range s {
		s[i] = DefaultFinalGridSpacing
	}
	return s, nil
}

// broadcast expands a single value to all dimensions and checks that the
// values are positive.
func broadcast(param string, v []float64, d int) ([]float64, error) {
	o := make([]float64, d)
	switch len(v) {
	case 1:
		for i := range o {
			o[i] = v[0]
		}
	case d:
		copy(o, v)
	default:
		return nil, configErrorf(param, "has %d entries but should have 1 or %d", len(v), d)
	}
	for i, x := range o {
		if !(x > 0) {
			return nil, configErrorf(param, "value %g in dimension %d should be >0", x, i)
		}
	}
	return o, nil
}

// factors returns the downsampling factor of every level and dimension.
func (cfg ScheduleConfig) factors(d int) ([][]float64, []Warning, error) {
	L := cfg.NumberOfLevels
	f := make([][]float64, L)
	for l := range f {
		f[l] = make([]float64, d)
	}
	var warnings []Warning
	switch len(cfg.GridSpacingSchedule) {
	case 0:
		factor := cfg.UpsampleFactor
		if factor == 0 {
			factor = DefaultUpsampleFactor
		}
		if !(factor >= 1) {
			return nil, nil, configErrorf("UpsampleFactor", "is %g but should be >=1", factor)
		}
		for l := range f {
			for i := range f[l] {
				f[l][i] = math.Pow(factor, float64(L-1-l))
			}
		}
		return f, nil, nil
	case L:
		for l := range f {
			for i := range f[l] {
				f[l][i] = cfg.GridSpacingSchedule[l]
			}
		}
	case L * d:
		for l := range f {
			copy(f[l], cfg.GridSpacingSchedule[l*d:(l+1)*d])
		}
	default:
		return nil, nil, configErrorf("GridSpacingSchedule", "has %d entries; the number of entries should equal "+
			"the number of resolutions (%d) or the number of resolutions times the image dimension (%d)",
			len(cfg.GridSpacingSchedule), L, L*d)
	}
	for l := range f {
		for i, v := range f[l] {
			if !(v > 0) {
				return nil, nil, configErrorf("GridSpacingSchedule", "factor %g at level %d, dimension %d should be >0", v, l, i)
			}
			if l > 0 && v > f[l-1][i] {
				return nil, nil, configErrorf("GridSpacingSchedule", "factor %g at level %d, dimension %d is larger than "+
					"the factor %g of the previous level; the grid may not get coarser", v, l, i, f[l-1][i])
			}
		}
	}
	for i, v := range f[L-1] {
		if v != 1 {
			warnings = append(warnings, Warning{
				Code:      WarnFinestSpacing,
				Level:     L - 1,
				Dimension: i,
				Requested: 1,
				Used:      v,
				Message:   fmt.Sprintf("the finest level uses %g times the final grid spacing", v),
			})
		}
	}
	return f, warnings, nil
}

// coverTransformedDomain returns an image origin and spacing whose domain,
// in the image frame, covers both the original domain and its corners
// mapped through t. If cyclic is true, the last dimension keeps its period.
func coverTransformedDomain(img ImageGeometry, dir []float64, t PointTransformer, cyclic bool) (origin, spacing []float64) {
	d := img.Dim()
	lo := make([]float64, d) // bounds in the image frame, relative to the origin
	hi := make([]float64, d)
	for i := 0; i < d; i++ {
		hi[i] = float64(img.Size[i]-1) * img.Spacing[i]
	}
	local := make([]float64, d)
	p := make([]float64, d)
	for corner := 0; corner < 1<<uint(d); corner++ {
		for i := 0; i < d; i++ {
			local[i] = 0
			if corner&(1<<uint(i)) != 0 {
				local[i] = float64(img.Size[i]-1) * img.Spacing[i]
			}
		}
		for r := 0; r < d; r++ {
			p[r] = img.Origin[r]
			for c := 0; c < d; c++ {
				p[r] += dir[r*d+c] * local[c]
			}
		}
		q := t.TransformPoint(p)
		for c := 0; c < d; c++ {
			var v float64
			for r := 0; r < d; r++ {
				v += dir[r*d+c] * (q[r] - img.Origin[r])
			}
			lo[c] = math.Min(lo[c], v)
			hi[c] = math.Max(hi[c], v)
		}
	}
	if cyclic {
		lo[d-1], hi[d-1] = 0, float64(img.Size[d-1]-1)*img.Spacing[d-1]
	}
	origin = make([]float64, d)
	spacing = append([]float64(nil), img.Spacing...)
	for r := 0; r < d; r++ {
		origin[r] = img.Origin[r]
		for c := 0; c < d; c++ {
			origin[r] += dir[r*d+c] * lo[c]
		}
	}
	for i := 0; i < d; i++ {
		if img.Size[i] > 1 {
			spacing[i] = (hi[i] - lo[i]) / float64(img.Size[i]-1)
		}
	}
	return origin, spacing
}
