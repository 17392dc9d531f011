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

// Package config holds the typed configuration the core consumes. Per spec
// §1's non-goal, tokenising/parsing a config file is out of scope here; see
// cmd/synctimed for the YAML loader that produces a Config.
package config

import (
	"fmt"
	"time"

	"github.com/Xilinx-CNS/sfptpd-go/engine"
)

// CrnyInstance configures one external-NTP (chrony) adapter instance.
type CrnyInstance struct {
	Name                string
	SocketPath          string
	PollInterval        time.Duration
	HelperScript        string
	MinControlInterval  time.Duration
	UserPriority        uint
}

// ClockFeed configures the sampler service.
type ClockFeed struct {
	SampleInterval time.Duration
}

// Config is the core's complete runtime configuration.
type Config struct {
	StateDir      string
	ControlSocket string

	Selection engine.SelectionPolicy
	ClockFeed ClockFeed

	CrnyInstances []CrnyInstance
}

// EvalAndValidate checks the configuration for internal consistency,
// grounded on fbclock/daemon/config.go's EvalAndValidate.
func (c *Config) EvalAndValidate() error {
	if c.StateDir == "" {
		return fmt.Errorf("bad config: 'statedir' must be set")
	}
	if c.ControlSocket == "" {
		return fmt.Errorf("bad config: 'controlsocket' must be set")
	}
	if c.ClockFeed.SampleInterval <= 0 {
		return fmt.Errorf("bad config: 'clockfeed.sampleinterval' must be >0")
	}
	if c.Selection.Strategy != engine.StrategyManual && len(c.Selection.Rules) == 0 {
		return fmt.Errorf("bad config: 'selection.rules' must be non-empty for automatic/manual-startup strategies")
	}
	names := map[string]bool{}
	for _, inst := range c.CrnyInstances {
		if inst.Name == "" {
			return fmt.Errorf("bad config: crny instance missing 'name'")
		}
		if names[inst.Name] {
			return fmt.Errorf("bad config: duplicate instance name %q", inst.Name)
		}
		names[inst.Name] = true
	}
	return nil
}
