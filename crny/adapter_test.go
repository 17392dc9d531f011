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

package crny

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Xilinx-CNS/sfptpd-go/clock"
	"github.com/Xilinx-CNS/sfptpd-go/syncmodule"
)

func newTestAdapter(t *testing.T) (*Adapter, <-chan syncmodule.EngineEvent) {
	t.Helper()
	h, err := syncmodule.NewHandle(syncmodule.KindCrny, "crny0")
	require.NoError(t, err)
	engine := make(chan syncmodule.EngineEvent, 4)
	sys := clock.New(clock.Identity(1), "system", clock.RoleSystem, clock.FreeRunning{})
	return New(h, engine, sys, DefaultConfig()), engine
}

func TestFinishScanNoPeersIsListening(t *testing.T) {
	a, engine := newTestAdapter(t)
	a.finishScan()
	sc := (<-engine).(syncmodule.StatusChanged)
	require.Equal(t, syncmodule.StateListening, sc.Status.State)
}

func TestFinishScanSelectedPeerPublishesSlave(t *testing.T) {
	a, engine := newTestAdapter(t)
	a.peers = []peer{
		{addr: net.ParseIP("10.0.0.1"), selected: true, stratum: 2, offset: 1234 * time.Microsecond},
	}
	a.finishScan()
	sc := (<-engine).(syncmodule.StatusChanged)
	require.Equal(t, syncmodule.StateSlave, sc.Status.State)
	require.Equal(t, 1234*time.Microsecond, sc.Status.OffsetFromMaster)
	require.Equal(t, uint16(2), sc.Status.Master.StepsRemoved)
}

func TestFinishScanMultipleSelectedTakesFirst(t *testing.T) {
	a, engine := newTestAdapter(t)
	a.peers = []peer{
		{addr: net.ParseIP("10.0.0.1"), selected: true, stratum: 2, offset: time.Millisecond},
		{addr: net.ParseIP("10.0.0.2"), selected: true, stratum: 3, offset: 2 * time.Millisecond},
	}
	a.finishScan()
	sc := (<-engine).(syncmodule.StatusChanged)
	require.Equal(t, time.Millisecond, sc.Status.OffsetFromMaster)
}

func TestFinishScanCandidateOnlyIsSelection(t *testing.T) {
	a, engine := newTestAdapter(t)
	a.peers = []peer{{addr: net.ParseIP("10.0.0.1"), candidate: true}}
	a.finishScan()
	sc := (<-engine).(syncmodule.StatusChanged)
	require.Equal(t, syncmodule.StateSelection, sc.Status.State)
}

func TestStepClockCollapsesToListeningUntilOffsetIDChanges(t *testing.T) {
	a, engine := newTestAdapter(t)
	a.peers = []peer{
		{addr: net.ParseIP("10.0.0.1"), selected: true, stratum: 2, offset: time.Millisecond},
	}
	a.finishScan()
	sc := (<-engine).(syncmodule.StatusChanged)
	require.Equal(t, syncmodule.StateSlave, sc.Status.State)
	require.IsType(t, syncmodule.RtStats{}, <-engine)

	msg := syncmodule.Message{Kind: syncmodule.MsgStepClock, Reply: make(chan syncmodule.Reply, 1)}
	shutdown := a.handleMessage(msg)
	require.False(t, shutdown)
	<-msg.Reply
	require.True(t, a.offsetUnsafe)

	// Same selected peer, same offset_id_tuple: still unsafe, collapses to
	// listening rather than republishing slave.
	a.finishScan()
	sc = (<-engine).(syncmodule.StatusChanged)
	require.Equal(t, syncmodule.StateListening, sc.Status.State)
	require.True(t, a.offsetUnsafe)

	// A changed offset_id_tuple (new peer address) means chronyd recomputed
	// the offset from scratch: the step is no longer unsafe.
	a.peers = []peer{
		{addr: net.ParseIP("10.0.0.2"), selected: true, stratum: 2, offset: 2 * time.Millisecond},
	}
	a.finishScan()
	sc = (<-engine).(syncmodule.StatusChanged)
	require.Equal(t, syncmodule.StateSlave, sc.Status.State)
	require.False(t, a.offsetUnsafe)
	require.Equal(t, 2*time.Millisecond, sc.Status.OffsetFromMaster)
	require.IsType(t, syncmodule.RtStats{}, <-engine)
}
