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

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Xilinx-CNS/sfptpd-go/engine"
)

func validConfig() *Config {
	return &Config{
		StateDir:      "/var/lib/synctimed",
		ControlSocket: "/var/run/synctimed/control",
		ClockFeed:     ClockFeed{SampleInterval: time.Second},
		Selection: engine.SelectionPolicy{
			Strategy: engine.StrategyAutomatic,
			Rules:    []string{"state", "no-alarms", "user-priority"},
		},
	}
}

func TestEvalAndValidateOK(t *testing.T) {
	require.NoError(t, validConfig().EvalAndValidate())
}

func TestEvalAndValidateMissingStateDir(t *testing.T) {
	c := validConfig()
	c.StateDir = ""
	require.Error(t, c.EvalAndValidate())
}

func TestEvalAndValidateMissingControlSocket(t *testing.T) {
	c := validConfig()
	c.ControlSocket = ""
	require.Error(t, c.EvalAndValidate())
}

func TestEvalAndValidateBadSampleInterval(t *testing.T) {
	c := validConfig()
	c.ClockFeed.SampleInterval = 0
	require.Error(t, c.EvalAndValidate())
}

func TestEvalAndValidateEmptyRulesRejectedForAutomatic(t *testing.T) {
	c := validConfig()
	c.Selection.Rules = nil
	require.Error(t, c.EvalAndValidate())
}

func TestEvalAndValidateManualAllowsEmptyRules(t *testing.T) {
	c := validConfig()
	c.Selection.Strategy = engine.StrategyManual
	c.Selection.Rules = nil
	require.NoError(t, c.EvalAndValidate())
}

func TestEvalAndValidateDuplicateInstanceName(t *testing.T) {
	c := validConfig()
	c.CrnyInstances = []CrnyInstance{
		{Name: "chrony0", SocketPath: "/run/chrony/chronyd.sock"},
		{Name: "chrony0", SocketPath: "/run/chrony/chronyd.sock"},
	}
	require.Error(t, c.EvalAndValidate())
}

func TestEvalAndValidateInstanceMissingName(t *testing.T) {
	c := validConfig()
	c.CrnyInstances = []CrnyInstance{{SocketPath: "/run/chrony/chronyd.sock"}}
	require.Error(t, c.EvalAndValidate())
}
