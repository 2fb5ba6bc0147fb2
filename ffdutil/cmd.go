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

// Package ffdutil contains the command-line interface for computing
// multi-resolution B-spline grids and transitioning free-form deformations
// between them.
package ffdutil

import (
	"fmt"
	"os"

	"github.com/lnashier/viper"
	"github.com/skratchdot/open-golang/open"
	"github.com/spatialmodel/ffd"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	gridFlags := []*pflag.FlagSet{scheduleCmd.Flags(), initCmd.Flags(), upsampleCmd.Flags(),
		scalesCmd.Flags(), dryrunCmd.Flags(), plotCmd.Flags()}

	// Options are the configuration options available to ffd.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "LogFile",
			usage: `
              LogFile is the path to a file where log messages are written
              in addition to the console. If it is empty, messages are only
              written to the console.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Image.Size",
			usage: `
              Image.Size is the number of voxels of the fixed image in each
              dimension, for example [256,256,128].`,
			defaultVal: []int{},
			flagsets:   gridFlags,
		},
		{
			name: "Image.Spacing",
			usage: `
              Image.Spacing is a JSON list with the voxel spacing of the fixed
              image in each dimension. The default is 1 in every dimension.`,
			defaultVal: "",
			flagsets:   gridFlags,
		},
		{
			name: "Image.Origin",
			usage: `
              Image.Origin is a JSON list with the physical position of the
              first voxel of the fixed image. The default is 0 in every dimension.`,
			defaultVal: "",
			flagsets:   gridFlags,
		},
		{
			name: "Image.Direction",
			usage: `
              Image.Direction is a JSON list with the direction cosines of the
              fixed image, row by row. The default is the identity matrix.`,
			defaultVal: "",
			flagsets:   gridFlags,
		},
		{
			name: "BSpline.NumberOfResolutions",
			usage: `
              BSpline.NumberOfResolutions is the number of resolution levels
              of the registration.`,
			shorthand:  "n",
			defaultVal: 3,
			flagsets:   gridFlags,
		},
		{
			name: "BSpline.SplineOrder",
			usage: `
              BSpline.SplineOrder is the order of the B-spline basis: 1, 2, or 3.`,
			defaultVal: 3,
			flagsets:   gridFlags,
		},
		{
			name: "BSpline.UseCyclicTransform",
			usage: `
              BSpline.UseCyclicTransform specifies that the last image dimension
              is periodic, for example time in a cardiac cycle.`,
			defaultVal: false,
			flagsets:   gridFlags,
		},
		{
			name: "BSpline.FinalGridSpacingInVoxels",
			usage: `
              BSpline.FinalGridSpacingInVoxels is a JSON list with the grid
              spacing of the finest level in voxels, either one value for all
              dimensions or one value per dimension. It can not be combined with
              BSpline.FinalGridSpacingInPhysicalUnits.`,
			defaultVal: "",
			flagsets:   gridFlags,
		},
		{
			name: "BSpline.FinalGridSpacingInPhysicalUnits",
			usage: `
              BSpline.FinalGridSpacingInPhysicalUnits is a JSON list with the
              grid spacing of the finest level in physical units. If neither
              final spacing is given, the spacing is 8 physical units.`,
			defaultVal: "",
			flagsets:   gridFlags,
		},
		{
			name: "BSpline.GridSpacingSchedule",
			usage: `
              BSpline.GridSpacingSchedule is a JSON list of downsampling factors
              relative to the final grid spacing, coarsest level first: one
              value per level or one value per level and dimension.`,
			defaultVal: "",
			flagsets:   gridFlags,
		},
		{
			name: "BSpline.UpsampleFactor",
			usage: `
              BSpline.UpsampleFactor is the grid spacing ratio between
              consecutive levels when no GridSpacingSchedule is given.`,
			defaultVal: ffd.DefaultUpsampleFactor,
			flagsets:   gridFlags,
		},
		{
			name: "BSpline.PassiveEdgeWidth",
			usage: `
              BSpline.PassiveEdgeWidth is the number of control points at each
              face of the grid that the optimizer may not move, either one value
              for all levels or one value per level.`,
			defaultVal: []int{0},
			flagsets:   gridFlags,
		},
		{
			name: "BSpline.InitialTransform",
			usage: `
              BSpline.InitialTransform is a JSON list with the parameters of
              an affine transform applied before the B-spline deformation: the
              matrix row by row followed by the translation. The grid is
              enlarged to cover the transformed image domain.`,
			defaultVal: "",
			flagsets:   gridFlags,
		},
		{
			name: "BSpline.InitialTransformCenter",
			usage: `
              BSpline.InitialTransformCenter is a JSON list with the center of
              rotation of the initial transform.`,
			defaultVal: "",
			flagsets:   gridFlags,
		},
		{
			name: "TransformFile",
			usage: `
              TransformFile is the path to a saved B-spline transform.`,
			shorthand:  "t",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{upsampleCmd.Flags(), exportCmd.Flags()},
		},
		{
			name: "OutputFile",
			usage: `
              OutputFile is the path where the resulting B-spline transform
              is saved.`,
			shorthand:  "o",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{initCmd.Flags(), upsampleCmd.Flags(), dryrunCmd.Flags()},
		},
		{
			name: "Level",
			usage: `
              Level is the resolution level to work on, 0 being the coarsest.`,
			shorthand:  "l",
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{upsampleCmd.Flags(), scalesCmd.Flags()},
		},
		{
			name: "PlotFile",
			usage: `
              PlotFile is the path of the control point plot. The file type is
              chosen from the extension, for example .png or .svg.`,
			defaultVal: "grid.png",
			flagsets:   []*pflag.FlagSet{plotCmd.Flags()},
		},
		{
			name: "OpenPlot",
			usage: `
              OpenPlot specifies whether the saved plot should be opened with
              the default viewer of the operating system.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{plotCmd.Flags()},
		},
		{
			name: "NetCDFFile",
			usage: `
              NetCDFFile is the path of the NetCDF file with the control point
              coefficients.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{exportCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("FFD")

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			case []int:
				if option.shorthand == "" {
					set.IntSlice(option.name, option.defaultVal.([]int), option.usage)
				} else {
					set.IntSliceP(option.name, option.shorthand, option.defaultVal.([]int), option.usage)
				}
			case float64:
				if option.shorthand == "" {
					set.Float64(option.name, option.defaultVal.(float64), option.usage)
				} else {
					set.Float64P(option.name, option.shorthand, option.defaultVal.(float64), option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(scheduleCmd)
	Root.AddCommand(initCmd)
	Root.AddCommand(upsampleCmd)
	Root.AddCommand(scalesCmd)
	Root.AddCommand(dryrunCmd)
	Root.AddCommand(exportCmd)
	Root.AddCommand(plotCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(os.ExpandEnv(cfgpath))
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("ffd: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "ffd",
	Short: "Multi-resolution B-spline grids for deformable registration.",
	Long: `ffd computes the control point grids of a multi-resolution B-spline
free-form deformation and carries deformations from one resolution level to
the next. Use the subcommands specified below to access the functionality.

Refer to the subcommand documentation for configuration options and default settings.
Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'FFD_var' where 'var' is the
name of the variable to be set.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of ffd.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("ffd v%s\n", ffd.Version)
	},
	DisableAutoGenTag: true,
}

// scheduleCmd prints the grid of every resolution level.
var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Print the grid schedule",
	Long: `schedule computes and prints the control point grid of every
resolution level for the image and B-spline settings in the configuration.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log, closeLog, err := newLogger(cmd)
		if err != nil {
			return err
		}
		defer closeLog()
		sched, err := computeSchedule(Cfg, log)
		if err != nil {
			return err
		}
		return PrintSchedule(cmd.OutOrStdout(), sched)
	},
	DisableAutoGenTag: true,
}

// initCmd saves the coarsest-level transform.
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the coarsest-level transform",
	Long: `init creates a B-spline transform with zero displacement on the grid
of the coarsest resolution level and saves it to OutputFile.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log, closeLog, err := newLogger(cmd)
		if err != nil {
			return err
		}
		defer closeLog()
		sched, err := computeSchedule(Cfg, log)
		if err != nil {
			return err
		}
		out, err := checkOutputFile(Cfg.GetString("OutputFile"))
		if err != nil {
			return err
		}
		return Init(sched, out, log)
	},
	DisableAutoGenTag: true,
}

// upsampleCmd carries a saved transform to another level.
var upsampleCmd = &cobra.Command{
	Use:   "upsample",
	Short: "Carry a transform to a finer level",
	Long: `upsample reads the B-spline transform in TransformFile, maps it onto
the grid of resolution level Level without changing the deformation, and saves
the result to OutputFile.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log, closeLog, err := newLogger(cmd)
		if err != nil {
			return err
		}
		defer closeLog()
		sched, err := computeSchedule(Cfg, log)
		if err != nil {
			return err
		}
		in, err := checkInputFile("TransformFile", Cfg.GetString("TransformFile"))
		if err != nil {
			return err
		}
		out, err := checkOutputFile(Cfg.GetString("OutputFile"))
		if err != nil {
			return err
		}
		return UpsampleTransform(sched, Cfg.GetInt("Level"), in, out, log)
	},
	DisableAutoGenTag: true,
}

// scalesCmd reports the frozen control points of a level.
var scalesCmd = &cobra.Command{
	Use:   "scales",
	Short: "Report the frozen control points of a level",
	Long: `scales computes the optimizer scales of resolution level Level for
the configured BSpline.PassiveEdgeWidth and reports how many control points
are frozen.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log, closeLog, err := newLogger(cmd)
		if err != nil {
			return err
		}
		defer closeLog()
		sched, err := computeSchedule(Cfg, log)
		if err != nil {
			return err
		}
		widths, err := edgeWidths(Cfg)
		if err != nil {
			return err
		}
		return Scales(cmd.OutOrStdout(), sched, Cfg.GetInt("Level"), widths)
	},
	DisableAutoGenTag: true,
}

// dryrunCmd runs the level transitions without an optimizer.
var dryrunCmd = &cobra.Command{
	Use:   "dryrun",
	Short: "Run the level transitions without optimizing",
	Long: `dryrun drives the level transitions of a registration from the
placeholder grid to the finest level, using an optimizer that keeps the
parameters it is given. It checks that the configuration is consistent and
logs the grid of every level. If OutputFile is set, the final transform is
saved there.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log, closeLog, err := newLogger(cmd)
		if err != nil {
			return err
		}
		defer closeLog()
		sched, err := computeSchedule(Cfg, log)
		if err != nil {
			return err
		}
		widths, err := edgeWidths(Cfg)
		if err != nil {
			return err
		}
		out := Cfg.GetString("OutputFile")
		if out != "" {
			if out, err = checkOutputFile(out); err != nil {
				return err
			}
		}
		return DryRun(sched, widths, out, log)
	},
	DisableAutoGenTag: true,
}

// exportCmd writes a transform to NetCDF.
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a transform to NetCDF",
	Long: `export reads the B-spline transform in TransformFile and writes its
control point coefficients to NetCDFFile, one variable per displacement
component.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log, closeLog, err := newLogger(cmd)
		if err != nil {
			return err
		}
		defer closeLog()
		in, err := checkInputFile("TransformFile", Cfg.GetString("TransformFile"))
		if err != nil {
			return err
		}
		out, err := checkOutputFile(Cfg.GetString("NetCDFFile"))
		if err != nil {
			return err
		}
		return Export(in, out, log)
	},
	DisableAutoGenTag: true,
}

// plotCmd plots the control points of every level.
var plotCmd = &cobra.Command{
	Use:   "plot",
	Short: "Plot the control points of every level",
	Long: `plot draws the control point positions of every resolution level,
projected onto the first two dimensions, together with the outline of the
image domain and saves the figure to PlotFile.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log, closeLog, err := newLogger(cmd)
		if err != nil {
			return err
		}
		defer closeLog()
		img, err := ImageGeometry(Cfg)
		if err != nil {
			return err
		}
		sched, err := computeSchedule(Cfg, log)
		if err != nil {
			return err
		}
		out, err := checkOutputFile(Cfg.GetString("PlotFile"))
		if err != nil {
			return err
		}
		if err := Plot(img, sched, out); err != nil {
			return err
		}
		log.Infof("saved plot to %s", out)
		if Cfg.GetBool("OpenPlot") {
			return open.Run(out)
		}
		return nil
	},
	DisableAutoGenTag: true,
}
