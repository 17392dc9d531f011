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
	"path/filepath"
	"sort"

	"github.com/fatih/color"
	"github.com/go-ini/ini"
	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print every instance's last persisted snapshot",
	Long:  "Reads the per-instance snapshot files synctimed writes on every save-state cycle and renders them as a table, since the control socket itself carries no reply path for dumptables.",
	Run: func(_ *cobra.Command, _ []string) {
		ConfigureVerbosity()
		if err := statusRun(rootStateFlag); err != nil {
			log.Fatal(err)
		}
	},
}

func statusRun(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading state dir %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) == ".tmp" {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetColWidth(20)
	table.SetHeader([]string{"instance", "state", "alarms", "offset(ns)", "in-sync", "peers", "candidates"})

	for _, name := range names {
		f, err := ini.Load(filepath.Join(dir, name))
		if err != nil {
			log.Warnf("status: %s: %v", name, err)
			continue
		}
		sec := f.Section(ini.DefaultSection)
		state := sec.Key("state").String()
		if sec.Key("in-sync").String() != "true" {
			state = color.YellowString(state)
		}
		alarms := sec.Key("alarms").String()
		if alarms != "0x0" {
			alarms = color.RedString(alarms)
		}
		table.Append([]string{
			name,
			state,
			alarms,
			sec.Key("offset-from-peer").String(),
			sec.Key("in-sync").String(),
			sec.Key("num-peers").String(),
			sec.Key("num-candidates").String(),
		})
	}
	table.Render()
	return nil
}
