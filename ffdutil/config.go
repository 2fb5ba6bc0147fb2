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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/ffd"
	"github.com/spf13/cast"
)

// ImageGeometry unmarshals the fixed image geometry from a viper
// configuration. Spacing defaults to 1 and origin to 0 in every dimension.
func ImageGeometry(cfg *viper.Viper) (ffd.ImageGeometry, error) {
	size, err := toIntSliceE(cfg.Get("Image.Size"))
	if err != nil {
		return ffd.ImageGeometry{}, fmt.Errorf("Image.Size: %v", err)
	}
	if len(size) == 0 {
		return ffd.ImageGeometry{}, fmt.Errorf("parsing image configuration: Image.Size is not specified")
	}
	d := len(size)
	img := ffd.ImageGeometry{Size: size}

	vars := []*[]float64{&img.Spacing, &img.Origin, &img.Direction}
	varNames := []string{"Image.Spacing", "Image.Origin", "Image.Direction"}
	for i, name := range varNames {
		v, err := toFloat64SliceE(cfg.Get(name))
		if err != nil {
			return ffd.ImageGeometry{}, fmt.Errorf("%s: %v", name, err)
		}
		*vars[i] = v
	}
	if img.Spacing == nil {
		img.Spacing = fill(d, 1)
	}
	if img.Origin == nil {
		img.Origin = fill(d, 0)
	}
	return img, nil
}

// ScheduleConfig unmarshals the B-spline grid configuration from a viper
// configuration.
func ScheduleConfig(cfg *viper.Viper, dim int) (ffd.ScheduleConfig, error) {
	c := ffd.ScheduleConfig{
		NumberOfLevels: cfg.GetInt("BSpline.NumberOfResolutions"),
		SplineOrder:    ffd.SplineOrder(cfg.GetInt("BSpline.SplineOrder")),
		Cyclic:         cfg.GetBool("BSpline.UseCyclicTransform"),
		UpsampleFactor: cfg.GetFloat64("BSpline.UpsampleFactor"),
	}
	vars := []*[]float64{&c.FinalGridSpacingInVoxels, &c.FinalGridSpacingInPhysicalUnits, &c.GridSpacingSchedule}
	varNames := []string{"BSpline.FinalGridSpacingInVoxels", "BSpline.FinalGridSpacingInPhysicalUnits",
		"BSpline.GridSpacingSchedule"}
	for i, name := range varNames {
		v, err := toFloat64SliceE(cfg.Get(name))
		if err != nil {
			return c, fmt.Errorf("%s: %v", name, err)
		}
		*vars[i] = v
	}

	params, err := toFloat64SliceE(cfg.Get("BSpline.InitialTransform"))
	if err != nil {
		return c, fmt.Errorf("BSpline.InitialTransform: %v", err)
	}
	center, err := toFloat64SliceE(cfg.Get("BSpline.InitialTransformCenter"))
	if err != nil {
		return c, fmt.Errorf("BSpline.InitialTransformCenter: %v", err)
	}
	if len(params) > 0 {
		t, err := ffd.NewAffineTransform(dim, params, center)
		if err != nil {
			return c, err
		}
		c.InitialTransform = t
	} else if len(center) > 0 {
		return c, fmt.Errorf("parsing B-spline configuration: BSpline.InitialTransformCenter is set but BSpline.InitialTransform is not")
	}
	return c, nil
}

// edgeWidths returns the passive edge width of each level.
func edgeWidths(cfg *viper.Viper) ([]int, error) {
	w, err := toIntSliceE(cfg.Get("BSpline.PassiveEdgeWidth"))
	if err != nil {
		return nil, fmt.Errorf("BSpline.PassiveEdgeWidth: %v", err)
	}
	return w, nil
}

// computeSchedule computes the grid schedule for the configuration and logs
// any warnings.
func computeSchedule(cfg *viper.Viper, log logrus.FieldLogger) (*ffd.GridSchedule, error) {
	img, err := ImageGeometry(cfg)
	if err != nil {
		return nil, err
	}
	c, err := ScheduleConfig(cfg, img.Dim())
	if err != nil {
		return nil, err
	}
	sched, warnings, err := ffd.ComputeSchedule(img, c)
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		log.WithFields(logrus.Fields{
			"code":      w.Code,
			"level":     w.Level,
			"dimension": w.Dimension,
			"requested": w.Requested,
			"used":      w.Used,
		}).Warn(w.Message)
	}
	return sched, nil
}

// checkOutputFile makes sure that the output file is specified and its
// directory exists, and expands any environment variables.
func checkOutputFile(f string) (string, error) {
	if f == "" {
		return "", fmt.Errorf(`you need to specify an output file configuration variable (for example: OutputFile="transform.toml")`)
	}
	f = os.ExpandEnv(f)
	outdir := filepath.Dir(f)
	if _, err := os.Stat(outdir); err != nil {
		return f, fmt.Errorf("ffd: the output directory doesn't exist: %v", err)
	}
	return f, nil
}

// checkInputFile makes sure that the input file named by variable name is
// specified and expands any environment variables.
func checkInputFile(name, f string) (string, error) {
	if f == "" {
		return "", fmt.Errorf("you need to specify the %s configuration variable", name)
	}
	return os.ExpandEnv(f), nil
}

func fill(n int, v float64) []float64 {
	o := make([]float64, n)
	for i := range o {
		o[i] = v
	}
	return o
}

// toIntSliceE converts a configuration value to a slice of ints. The value
// may be a list from a configuration file or a JSON string from a
// command-line flag.
func toIntSliceE(s interface{}) ([]int, error) {
	switch v := s.(type) {
	case nil:
		return nil, nil
	case []int:
		return v, nil
	case []interface{}:
		o := make([]int, len(v))
		for i, val := range v {
			x, err := cast.ToIntE(val)
			if err != nil {
				return nil, err
			}
			o[i] = x
		}
		return o, nil
	case int, int64:
		x, err := cast.ToIntE(v)
		return []int{x}, err
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		var o []int
		if err := json.Unmarshal([]byte(v), &o); err != nil {
			return nil, err
		}
		return o, nil
	}
	return nil, fmt.Errorf("invalid type %T for a list of integers", s)
}

// toFloat64SliceE converts a configuration value to a slice of float64s
// in the same way as toIntSliceE. Empty values give a nil slice.
func toFloat64SliceE(s interface{}) ([]float64, error) {
	switch v := s.(type) {
	case nil:
		return nil, nil
	case []float64:
		return v, nil
	case []interface{}:
		o := make([]float64, len(v))
		for i, val := range v {
			x, err := cast.ToFloat64E(val)
			if err != nil {
				return nil, err
			}
			o[i] = x
		}
		return o, nil
	case float64, int, int64:
		x, err := cast.ToFloat64E(v)
		return []float64{x}, err
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		var o []float64
		if err := json.Unmarshal([]byte(v), &o); err != nil {
			return nil, err
		}
		if len(o) == 0 {
			return nil, nil
		}
		return o, nil
	}
	return nil, fmt.Errorf("invalid type %T for a list of numbers", s)
}
