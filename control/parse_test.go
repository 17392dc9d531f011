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

package control

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Xilinx-CNS/sfptpd-go/engine"
)

func TestParseSimpleVerbs(t *testing.T) {
	for line, kind := range map[string]engine.CommandKind{
		"exit":       engine.CmdExit,
		"logrotate":  engine.CmdLogRotate,
		"stepclocks": engine.CmdStepClocks,
		"dumptables": engine.CmdDumpTables,
	} {
		cmd, err := Parse(line)
		require.NoError(t, err)
		require.Equal(t, kind, cmd.Kind)
	}
}

func TestParseSelectInstance(t *testing.T) {
	cmd, err := Parse("selectinstance=ptp0")
	require.NoError(t, err)
	require.Equal(t, engine.CmdSelectInstance, cmd.Kind)
	require.Equal(t, "ptp0", cmd.InstanceName)
}

func TestParseSelectInstanceRequiresName(t *testing.T) {
	_, err := Parse("selectinstance=")
	require.Error(t, err)
}

func TestParseTestMode(t *testing.T) {
	cmd, err := Parse("testmode=freq,10,down")
	require.NoError(t, err)
	require.Equal(t, engine.CmdTestMode, cmd.Kind)
	require.Equal(t, "freq", cmd.TestMode)
	require.Equal(t, []string{"10", "down"}, cmd.TestArgs)
}

func TestParsePIDAdjustAllFields(t *testing.T) {
	cmd, err := Parse("pid_adjust=0.5,0.1,0.01,ptp,pps")
	require.NoError(t, err)
	require.Equal(t, engine.CmdPIDAdjust, cmd.Kind)
	require.NotNil(t, cmd.KP)
	require.InDelta(t, 0.5, *cmd.KP, 1e-9)
	require.NotNil(t, cmd.KI)
	require.InDelta(t, 0.1, *cmd.KI, 1e-9)
	require.NotNil(t, cmd.KD)
	require.InDelta(t, 0.01, *cmd.KD, 1e-9)
	require.Equal(t, []string{"ptp", "pps"}, cmd.PIDTargets)
}

func TestParsePIDAdjustTargetsOnly(t *testing.T) {
	cmd, err := Parse("pid_adjust=reset")
	require.NoError(t, err)
	require.Nil(t, cmd.KP)
	require.Equal(t, []string{"reset"}, cmd.PIDTargets)
}

func TestParsePIDAdjustEmpty(t *testing.T) {
	cmd, err := Parse("pid_adjust=")
	require.NoError(t, err)
	require.Equal(t, engine.CmdPIDAdjust, cmd.Kind)
	require.Nil(t, cmd.KP)
	require.Empty(t, cmd.PIDTargets)
}

func TestParseRejectsUnknownVerb(t *testing.T) {
	_, err := Parse("frobnicate")
	require.Error(t, err)
}

func TestParseRejectsBadPIDTarget(t *testing.T) {
	_, err := Parse("pid_adjust=1,2,3,nonsense")
	require.Error(t, err)
}
