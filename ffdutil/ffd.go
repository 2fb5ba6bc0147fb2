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
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/ffd"
)

// PrintSchedule writes a table with the grid of every level of sched to w.
func PrintSchedule(w io.Writer, sched *ffd.GridSchedule) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintf(tw, "level\tsize\tspacing\torigin\tparameters\n")
	for l, g := range sched.Levels {
		fmt.Fprintf(tw, "%d\t%v\t%g\t%g\t%d\n", l, g.Size, g.Spacing, g.Origin, g.NumberOfParameters())
	}
	return tw.Flush()
}

// Init saves a zero-displacement transform on the coarsest grid of sched
// to outputFile.
func Init(sched *ffd.GridSchedule, outputFile string, log logrus.FieldLogger) error {
	geom, err := sched.Level(0)
	if err != nil {
		return err
	}
	g, err := ffd.NewControlPointGrid(geom, sched.SplineOrder, sched.Cyclic)
	if err != nil {
		return err
	}
	if err := saveGrid(g, outputFile); err != nil {
		return err
	}
	log.WithField("parameters", g.NumberOfParameters()).Infof("saved level 0 transform to %s", outputFile)
	return nil
}

// UpsampleTransform reads the transform in inputFile, maps it onto the grid
// of the given level of sched, and saves the result to outputFile.
func UpsampleTransform(sched *ffd.GridSchedule, level int, inputFile, outputFile string, log logrus.FieldLogger) error {
	src, err := loadGrid(inputFile)
	if err != nil {
		return err
	}
	if src.Order != sched.SplineOrder || src.Cyclic != sched.Cyclic {
		return fmt.Errorf("ffd: the transform in %s has spline order %d and cyclic=%v, but the configuration "+
			"specifies order %d and cyclic=%v", inputFile, src.Order, src.Cyclic, sched.SplineOrder, sched.Cyclic)
	}
	geom, err := sched.Level(level)
	if err != nil {
		return err
	}
	dst, method, err := ffd.Upsample(src, geom)
	if err != nil {
		return err
	}
	if err := saveGrid(dst, outputFile); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"level":      level,
		"method":     method,
		"parameters": dst.NumberOfParameters(),
	}).Infof("saved upsampled transform to %s", outputFile)
	return nil
}

// Scales writes the number of frozen control points of the given level to w.
func Scales(w io.Writer, sched *ffd.GridSchedule, level int, edgeWidths []int) error {
	if err := ffd.CheckEdgeWidths(edgeWidths, sched.NumberOfLevels()); err != nil {
		return err
	}
	geom, err := sched.Level(level)
	if err != nil {
		return err
	}
	width := ffd.EdgeWidthOfLevel(edgeWidths, level)
	s, err := ffd.EdgeScales(geom, width)
	if err != nil {
		return err
	}
	nn := geom.NumberOfNodes()
	frozen := ffd.FrozenNodes(s, nn)
	_, err = fmt.Fprintf(w, "level %d: edge width %d freezes %d of %d control points (%d of %d parameters)\n",
		level, width, frozen, nn, frozen*geom.Dim(), len(s))
	return err
}

// DryRun drives the level transitions of sched from the placeholder grid
// to the finest level with an optimizer that keeps the parameters it is
// given. If outputFile is not empty, the final transform is saved there.
func DryRun(sched *ffd.GridSchedule, edgeWidths []int, outputFile string, log logrus.FieldLogger) error {
	opt := new(ffd.ParameterHolder)
	d, err := ffd.NewLevelTransitionDriver(sched, opt, edgeWidths)
	if err != nil {
		return err
	}
	if err := d.BeforeRegistration(); err != nil {
		return err
	}
	for l := 0; l < sched.NumberOfLevels(); l++ {
		if err := d.BeforeEachResolution(l); err != nil {
			return err
		}
		t := d.Transitions[len(d.Transitions)-1]
		fields := logrus.Fields{
			"level":      l,
			"size":       t.Geometry.Size,
			"spacing":    t.Geometry.Spacing,
			"parameters": len(opt.Params),
			"frozen":     t.FrozenNodes,
		}
		if t.Method != 0 {
			fields["method"] = t.Method
		}
		log.WithFields(fields).Info("installed grid")
	}
	if err := d.AfterRegistration(); err != nil {
		return err
	}
	log.Infof("finished in state %s", d.State())
	if outputFile == "" {
		return nil
	}
	if err := saveGrid(d.Grid(), outputFile); err != nil {
		return err
	}
	log.Infof("saved final transform to %s", outputFile)
	return nil
}

// Export writes the coefficients of the transform in inputFile to the
// NetCDF file outputFile.
func Export(inputFile, outputFile string, log logrus.FieldLogger) error {
	g, err := loadGrid(inputFile)
	if err != nil {
		return err
	}
	f, err := os.Create(outputFile)
	if err != nil {
		return fmt.Errorf("ffd: creating NetCDF file: %v", err)
	}
	if err := ffd.WriteNetCDF(f, g); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	log.WithField("size", g.Geometry.Size).Infof("exported coefficients to %s", outputFile)
	return nil
}

func saveGrid(g *ffd.ControlPointGrid, file string) error {
	w, err := os.Create(file)
	if err != nil {
		return fmt.Errorf("ffd: creating transform file: %v", err)
	}
	if err := g.Save(w); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func loadGrid(file string) (*ffd.ControlPointGrid, error) {
	r, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("ffd: opening transform file: %v", err)
	}
	defer r.Close()
	return ffd.Load(r)
}
