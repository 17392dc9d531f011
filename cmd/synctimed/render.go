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

package main

import (
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/Xilinx-CNS/sfptpd-go/engine"
)

// tableRenderer implements engine.TableRenderer for the `dumptables`
// control-surface verb, grounded on ptpcheck/cmd/sources.go's use of
// tablewriter.
type tableRenderer struct{}

func (tableRenderer) Render(rows []engine.RenderRow) string {
	var b strings.Builder
	table := tablewriter.NewWriter(&b)
	table.SetColWidth(20)
	table.SetHeader([]string{"instance", "state", "alarms", "offset", "selected"})

	for _, r := range rows {
		offset := "-"
		if r.Have {
			offset = r.Status.OffsetFromMaster.String()
		}
		table.Append([]string{
			r.Handle.String(),
			stateOrUnknown(r),
			fmt.Sprintf("0x%x", uint32(r.Status.Alarms)),
			offset,
			fmt.Sprintf("%v", r.Active),
		})
	}
	table.Render()
	return b.String()
}

func stateOrUnknown(r engine.RenderRow) string {
	if !r.Have {
		return "unknown"
	}
	return r.Status.State.String()
}
