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

package syncmodule

import (
	"math/bits"
	"time"

	"github.com/Xilinx-CNS/sfptpd-go/clock"
)

// State is an instance's position in its own state machine, abstracted to
// the handful of values the engine's selector cares about.
type State int

// Instance states, spec §3.
const (
	StateListening State = iota
	StateSelection
	StateSlave
	StateMaster
	StatePassive
	StateDisabled
	StateFaulty
)

func (s State) String() string {
	switch s {
	case StateListening:
		return "listening"
	case StateSelection:
		return "selection"
	case StateSlave:
		return "slave"
	case StateMaster:
		return "master"
	case StatePassive:
		return "passive"
	case StateDisabled:
		return "disabled"
	case StateFaulty:
		return "faulty"
	default:
		return "unknown"
	}
}

// Alarms is a bitset over the alarm vocabulary, spec §3.
type Alarms uint32

// Alarm bits.
const (
	AlarmClockNearEpoch Alarms = 1 << iota
	AlarmNoTxTimestamps
	AlarmNoRxTimestamps
	AlarmUnrecoverableStep
)

// Count returns the number of alarm bits set, used by the no-alarms rule.
func (a Alarms) Count() int { return bits.OnesCount32(uint32(a)) }

// Constraints is a bitset an instance sets on itself to narrow what the
// selector may do with it, spec §3 and §4.4.
type Constraints uint8

// Constraint bits.
const (
	ConstraintMustBeSelected Constraints = 1 << iota
	ConstraintCannotBeSelected
)

// CtrlFlags is the mask/flags vocabulary for the engine→instance CONTROL
// message, spec §4.1 and §4.4.
type CtrlFlags uint8

// Control flag bits.
const (
	CtrlClockCtrl CtrlFlags = 1 << iota
	CtrlClusteringDeterminant
)

// MasterInfo describes the reference an instance is currently tracking.
type MasterInfo struct {
	ClockClass   uint8
	TimeSource   uint8
	StepsRemoved uint16
	ClockID      clock.Identity
	Accuracy     float64
}

// InstanceStatus is the full payload of a sync module's report to the
// engine, spec §3.
type InstanceStatus struct {
	State             State
	Alarms            Alarms
	Constraints       Constraints
	CtrlFlags         CtrlFlags
	OffsetFromMaster  time.Duration
	LocalAccuracy     float64
	AllanVariance     float64
	UserPriority      uint
	ClusteringScore   int
	Master            MasterInfo
}

// Equivalent reports whether s and o belong to the same equivalence class
// for the purposes of debouncing StatusChanged: everything the selector or
// the UI cares about must match exactly.
func (s InstanceStatus) Equivalent(o InstanceStatus) bool {
	return s == o
}
