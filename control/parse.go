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

// Package control implements the administrative Unix datagram socket of
// spec §4.5: one command per packet, each mapping to exactly one engine
// message.
package control

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Xilinx-CNS/sfptpd-go/engine"
)

// Parse turns one datagram's text into an engine.Command, or an error if
// the command is malformed. Malformed commands are logged by the caller,
// not fatal to the socket, per spec §4.5.
func Parse(line string) (engine.Command, error) {
	line = strings.TrimSpace(line)
	verb, rest, _ := strings.Cut(line, "=")

	switch verb {
	case "exit":
		return engine.Command{Kind: engine.CmdExit}, nil
	case "logrotate":
		return engine.Command{Kind: engine.CmdLogRotate}, nil
	case "stepclocks":
		return engine.Command{Kind: engine.CmdStepClocks}, nil
	case "dumptables":
		return engine.Command{Kind: engine.CmdDumpTables}, nil
	case "selectinstance":
		if rest == "" {
			return engine.Command{}, fmt.Errorf("control: selectinstance requires a name")
		}
		return engine.Command{Kind: engine.CmdSelectInstance, InstanceName: rest}, nil
	case "testmode":
		parts := strings.Split(rest, ",")
		if parts[0] == "" {
			return engine.Command{}, fmt.Errorf("control: testmode requires a mode")
		}
		return engine.Command{Kind: engine.CmdTestMode, TestMode: parts[0], TestArgs: parts[1:]}, nil
	case "pid_adjust":
		return parsePIDAdjust(rest)
	default:
		return engine.Command{}, fmt.Errorf("control: unrecognised command %q", line)
	}
}

// parsePIDAdjust handles pid_adjust=[KP[,KI[,KD[,local|ptp|pps|reset]*]]],
// spec §4.5. Every field is optional; trailing tokens name which servos the
// adjustment targets.
func parsePIDAdjust(rest string) (engine.Command, error) {
	cmd := engine.Command{Kind: engine.CmdPIDAdjust}
	if rest == "" {
		return cmd, nil
	}
	fields := strings.Split(rest, ",")
	numeric := []**float64{&cmd.KP, &cmd.KI, &cmd.KD}
	i := 0
	for ; i < len(fields) && i < len(numeric); i++ {
		if fields[i] == "" {
			continue
		}
		v, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			break
		}
		*numeric[i] = &v
	}
	for ; i < len(fields); i++ {
		if fields[i] == "" {
			continue
		}
		switch fields[i] {
		case "local", "ptp", "pps", "reset":
			cmd.PIDTargets = append(cmd.PIDTargets, fields[i])
		default:
			return engine.Command{}, fmt.Errorf("control: pid_adjust: unrecognised target %q", fields[i])
		}
	}
	return cmd, nil
}
