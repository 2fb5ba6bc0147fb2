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
	"bytes"
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/spatialmodel/ffd"
)

// execute runs the command given by args and returns its output.
func execute(t *testing.T, args ...string) string {
	t.Helper()
	buf := new(bytes.Buffer)
	Root.SetOutput(buf)
	Root.SetArgs(args)
	if err := Root.Execute(); err != nil {
		t.Fatalf("%v: %v\n%s", args, err, buf.String())
	}
	return buf.String()
}

func setImage() {
	Cfg.Set("Image.Size", []int{64, 64})
	Cfg.Set("BSpline.NumberOfResolutions", 3)
	Cfg.Set("BSpline.SplineOrder", 3)
	Cfg.Set("BSpline.FinalGridSpacingInPhysicalUnits", []float64{4})
	Cfg.Set("BSpline.PassiveEdgeWidth", []int{1})
}

func loadFile(t *testing.T, file string) *ffd.ControlPointGrid {
	t.Helper()
	g, err := loadGrid(file)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func TestVersion(t *testing.T) {
	out := execute(t, "version")
	if !strings.Contains(out, ffd.Version) {
		t.Errorf("version output %q", out)
	}
}

func TestSchedule(t *testing.T) {
	setImage()
	out := execute(t, "schedule")
	for _, want := range []string{"[7 7]", "[11 11]", "[19 19]", "[16 16]", "[4 4]"} {
		if !strings.Contains(out, want) {
			t.Errorf("schedule output does not contain %s:\n%s", want, out)
		}
	}
}

func TestInitUpsampleExport(t *testing.T) {
	dir, err := ioutil.TempDir("", "ffdutil")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	setImage()

	level0 := filepath.Join(dir, "level0.toml")
	Cfg.Set("OutputFile", level0)
	execute(t, "init")
	g0 := loadFile(t, level0)
	if !reflect.DeepEqual(g0.Geometry.Size, []int{7, 7}) {
		t.Errorf("level 0 size %v", g0.Geometry.Size)
	}

	level2 := filepath.Join(dir, "level2.toml")
	Cfg.Set("TransformFile", level0)
	Cfg.Set("OutputFile", level2)
	Cfg.Set("Level", 2)
	execute(t, "upsample")
	g2 := loadFile(t, level2)
	if !reflect.DeepEqual(g2.Geometry.Size, []int{19, 19}) {
		t.Errorf("level 2 size %v", g2.Geometry.Size)
	}

	nc := filepath.Join(dir, "level2.nc")
	Cfg.Set("TransformFile", level2)
	Cfg.Set("NetCDFFile", nc)
	execute(t, "export")
	f, err := os.Open(nc)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	g, err := ffd.ReadNetCDF(f)
	if err != nil {
		t.Fatal(err)
	}
	if !g.Geometry.Equal(g2.Geometry) {
		t.Errorf("exported geometry %v, want %v", g.Geometry, g2.Geometry)
	}
}

func TestDryRun(t *testing.T) {
	dir, err := ioutil.TempDir("", "ffdutil")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	setImage()

	final := filepath.Join(dir, "final.toml")
	logFile := filepath.Join(dir, "dryrun.log")
	Cfg.Set("OutputFile", final)
	Cfg.Set("LogFile", logFile)
	defer Cfg.Set("LogFile", "")
	out := execute(t, "dryrun")
	if n := strings.Count(out, "installed grid"); n != 3 {
		t.Errorf("%d levels logged:\n%s", n, out)
	}
	if !strings.Contains(out, "method=refinement") {
		t.Errorf("upsampling method not logged:\n%s", out)
	}
	b, err := ioutil.ReadFile(logFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), "installed grid") {
		t.Errorf("log file is missing messages:\n%s", b)
	}
	g := loadFile(t, final)
	if !reflect.DeepEqual(g.Geometry.Size, []int{19, 19}) {
		t.Errorf("final size %v", g.Geometry.Size)
	}
}

func TestScales(t *testing.T) {
	setImage()
	Cfg.Set("Level", 1)
	out := execute(t, "scales")
	if want := "level 1: edge width 1 freezes 40 of 121 control points"; !strings.Contains(out, want) {
		t.Errorf("output %q does not contain %q", out, want)
	}
}

func TestPlot(t *testing.T) {
	dir, err := ioutil.TempDir("", "ffdutil")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	setImage()
	file := filepath.Join(dir, "grid.png")
	Cfg.Set("PlotFile", file)
	execute(t, "plot")
	if fi, err := os.Stat(file); err != nil || fi.Size() == 0 {
		t.Errorf("plot was not written: %v", err)
	}
}

func TestConfigurationError(t *testing.T) {
	setImage()
	Cfg.Set("BSpline.FinalGridSpacingInVoxels", []float64{2})
	defer Cfg.Set("BSpline.FinalGridSpacingInVoxels", "")
	Root.SetOutput(new(bytes.Buffer))
	Root.SetArgs([]string{"schedule"})
	if err := Root.Execute(); !errors.Is(err, ffd.ErrConfiguration) {
		t.Errorf("got %v, want a configuration error", err)
	}
}
