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
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// newLogger returns a logger that writes to the error output of cmd and,
// if the LogFile configuration variable is set, to that file. The returned
// function closes the log file.
func newLogger(cmd *cobra.Command) (*logrus.Logger, func() error, error) {
	log := logrus.New()
	log.Formatter = &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339Nano,
		DisableColors:   true,
	}
	log.Out = cmd.OutOrStderr()
	closeLog := func() error { return nil }
	if logFile := Cfg.GetString("LogFile"); logFile != "" {
		f, err := os.Create(os.ExpandEnv(logFile))
		if err != nil {
			return nil, nil, fmt.Errorf("ffd: creating log file: %v", err)
		}
		log.Out = io.MultiWriter(log.Out, f)
		closeLog = f.Close
	}
	return log, closeLog, nil
}
