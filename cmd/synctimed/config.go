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
	"os"

	yaml "gopkg.in/yaml.v2"

	"github.com/Xilinx-CNS/sfptpd-go/config"
)

// readConfig reads and unmarshals the daemon's YAML config file. Tokenising
// a config file format is the caller's business everywhere else in this
// module (spec §1 non-goal); here, at the outermost edge, something has to
// do it, the way fbclock/daemon/config.go's ReadConfig does for its daemon.
func readConfig(path string) (*config.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := &config.Config{}
	if err := yaml.UnmarshalStrict(data, c); err != nil {
		return nil, err
	}
	return c, nil
}
