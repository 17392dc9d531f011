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
	"io"
	"time"
)

// MessageKind identifies which engine→instance message a Message carries.
type MessageKind int

// Message kinds, spec §4.1.
const (
	MsgRun MessageKind = iota
	MsgGetStatus
	MsgControl
	MsgStepClock
	MsgLogStats
	MsgSaveState
	MsgWriteTopology
	MsgStatsEndPeriod
	MsgShutdown
)

// Reply is what a synchronous Message gets back on its Reply channel.
type Reply struct {
	Status InstanceStatus
	Err    error
}

// Message is the single envelope type flowing into an instance's inbox.
// Reply is nil for the fire-and-forget kinds (RUN, STATS_END_PERIOD,
// LOG_STATS, SHUTDOWN); GET_STATUS, CONTROL and STEP_CLOCK are synchronous
// and must be replied to exactly once.
type Message struct {
	Kind MessageKind

	// CONTROL
	Mask  CtrlFlags
	Flags CtrlFlags

	// LOG_STATS, STATS_END_PERIOD
	At time.Time

	// WRITE_TOPOLOGY
	Stream io.Writer

	Reply chan Reply
}

// NewSyncMessage builds a Message expecting exactly one reply.
func NewSyncMessage(kind MessageKind) (Message, chan Reply) {
	ch := make(chan Reply, 1)
	return Message{Kind: kind, Reply: ch}, ch
}

// EngineEvent is the interface implemented by every instance→engine
// message (StatusChanged, RtStats, ClusteringInput).
type EngineEvent interface {
	Source() Handle
}

// StatusChanged is posted whenever an instance's status moves to a new
// equivalence class (spec §4.1); never posted for no-op updates.
type StatusChanged struct {
	From   Handle
	Status InstanceStatus
}

// Source implements EngineEvent.
func (s StatusChanged) Source() Handle { return s.From }

// RtStats carries a periodic real-time statistics sample for logging.
type RtStats struct {
	From   Handle
	At     time.Time
	Offset time.Duration
	FreqPPB float64
}

// Source implements EngineEvent.
func (r RtStats) Source() Handle { return r.From }

// ClusteringInput carries an instance's contribution to the clustering
// evaluator the engine runs to compute ClusteringScore.
type ClusteringInput struct {
	From      Handle
	Candidate bool
	Offset    time.Duration
}

// Source implements EngineEvent.
func (c ClusteringInput) Source() Handle { return c.From }
