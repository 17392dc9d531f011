/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cmd

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// RootCmd is synctimectl's entry point.
var RootCmd = &cobra.Command{
	Use:   "synctimectl",
	Short: "Inspect and control a running synctimed",
}

var (
	rootVerboseFlag bool
	rootSocketFlag  string
	rootStateFlag   string
)

func init() {
	RootCmd.PersistentFlags().BoolVarP(&rootVerboseFlag, "verbose", "v", false, "verbose output")
	RootCmd.PersistentFlags().StringVarP(&rootSocketFlag, "socket", "s", "/var/run/synctimed/control", "control socket path")
	RootCmd.PersistentFlags().StringVarP(&rootStateFlag, "state-dir", "d", "/var/lib/synctimed", "persisted instance state directory")
}

// ConfigureVerbosity sets log level from parsed flags. Call from every
// subcommand's Run.
func ConfigureVerbosity() {
	log.SetLevel(log.InfoLevel)
	if rootVerboseFlag {
		log.SetLevel(log.DebugLevel)
	}
}

// Execute runs the CLI.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
