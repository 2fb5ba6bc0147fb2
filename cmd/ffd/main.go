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

// Command ffd is a command-line interface for computing multi-resolution
// B-spline control point grids and moving transforms between them.
package main

import (
	"fmt"
	"os"

	"github.com/spatialmodel/ffd/ffdutil"
)

func main() {
	if err := ffdutil.Root.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(-1)
	}
}
