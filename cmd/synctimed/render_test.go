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
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Xilinx-CNS/sfptpd-go/engine"
	"github.com/Xilinx-CNS/sfptpd-go/syncmodule"
)

func TestTableRendererRender(t *testing.T) {
	h, err := syncmodule.NewHandle(syncmodule.KindFreerun, "freerun")
	require.NoError(t, err)

	rows := []engine.RenderRow{
		{
			Handle: h,
			Status: syncmodule.InstanceStatus{
				State:            syncmodule.StateListening,
				OffsetFromMaster: 100 * time.Microsecond,
			},
			Have:   true,
			Active: true,
		},
		{
			Handle: h,
			Have:   false,
			Active: false,
		},
	}

	out := tableRenderer{}.Render(rows)
	require.Contains(t, out, "freerun/freerun")
	require.Contains(t, out, "unknown")
}
