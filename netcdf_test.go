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
	"io"
	"io/ioutil"
	"os"
	"reflect"
	"testing"
)

func TestNetCDF(t *testing.T) {
	g := rotatedGrid(t)
	f, err := ioutil.TempFile("", "ffd_netcdf")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(f.Name())
	defer f.Close()

	if err := WriteNetCDF(f, g); err != nil {
		t.Fatal(err)
	}
	g2, err := ReadNetCDF(f)
	if err != nil {
		t.Fatal(err)
	}
	if !g2.Geometry.Equal(g.Geometry) {
		t.Errorf("geometry %v, want %v", g2.Geometry, g.Geometry)
	}
	if g2.Order != g.Order || g2.Cyclic != g.Cyclic {
		t.Errorf("order %d cyclic %v", g2.Order, g2.Cyclic)
	}
	if !reflect.DeepEqual(g2.Parameters(), g.Parameters()) {
		t.Error("parameters do not round trip")
	}
}

func TestNetCDF3D(t *testing.T) {
	g, err := NewControlPointGrid(testGeometry(4, 5, 6), Quadratic, false)
	if err != nil {
		t.Fatal(err)
	}
	p := g.Parameters()
	for i := range p {
		p[i] = float64(i) - 100
	}
	if err := g.SetParameters(p); err != nil {
		t.Fatal(err)
	}
	f, err := ioutil.TempFile("", "ffd_netcdf")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(f.Name())
	defer f.Close()
	if err := WriteNetCDF(f, g); err != nil {
		t.Fatal(err)
	}
	g2, err := ReadNetCDF(f)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(g2.Parameters(), p) {
		t.Error("parameters do not round trip")
	}
}

func TestNetCDFZeroGrid(t *testing.T) {
	g, err := NewControlPointGrid(testGeometry(4, 4), Cubic, false)
	if err != nil {
		t.Fatal(err)
	}
	f, err := ioutil.TempFile("", "ffd_netcdf")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(f.Name())
	defer f.Close()
	if err := WriteNetCDF(f, g); err != nil {
		t.Fatal(err)
	}
	fi, err := f.Stat()
	if err != nil {
		t.Fatal(err)
	}
	if fi.Size() == 0 {
		t.Fatal("empty NetCDF file")
	}
	g2, err := ReadNetCDF(f)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(g2.Parameters(), make([]float64, 32)) {
		t.Errorf("parameters %v", g2.Parameters())
	}
}

func TestComplete(t *testing.T) {
	for _, test := range []struct {
		n, want int
		err     error
		ok      bool
	}{
		{n: 16, want: 16, ok: true},
		{n: 16, want: 16, err: io.EOF, ok: true},
		{n: 8, want: 16, err: io.EOF},
		{n: 8, want: 16},
		{n: 16, want: 16, err: errors.New("disk full")},
	} {
		if ok := complete(test.n, test.want, test.err); ok != test.ok {
			t.Errorf("complete(%d, %d, %v) = %v", test.n, test.want, test.err, ok)
		}
	}
}
