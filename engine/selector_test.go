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

package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Xilinx-CNS/sfptpd-go/syncmodule"
)

type fakeInstance struct {
	h     syncmodule.Handle
	inbox chan syncmodule.Message
}

func newFakeInstance(t *testing.T, kind syncmodule.Kind, name string) *fakeInstance {
	t.Helper()
	h, err := syncmodule.NewHandle(kind, name)
	require.NoError(t, err)
	return &fakeInstance{h: h, inbox: make(chan syncmodule.Message, 8)}
}

func (f *fakeInstance) Handle() syncmodule.Handle       { return f.h }
func (f *fakeInstance) Inbox() chan<- syncmodule.Message { return f.inbox }
func (f *fakeInstance) Run(ctx context.Context)         {}

func slaveStatus() syncmodule.InstanceStatus {
	return syncmodule.InstanceStatus{State: syncmodule.StateSlave}
}

func TestSelectorHoldoffDelaysSwitch(t *testing.T) {
	tbl := newTable()
	a := newFakeInstance(t, syncmodule.KindPTP, "a")
	b := newFakeInstance(t, syncmodule.KindPTP, "b")
	tbl.register(a)
	tbl.register(b)
	tbl.setStatus(a.h, syncmodule.InstanceStatus{State: syncmodule.StateSlave, UserPriority: 1})

	sel, err := newSelector(SelectionPolicy{Strategy: StrategyAutomatic, Rules: DefaultRules, HoldoffInterval: time.Minute})
	require.NoError(t, err)

	now := time.Unix(0, 0)
	res := sel.tick(tbl, now)
	require.True(t, res.committed)
	require.Equal(t, a.h, res.winner)

	tbl.setStatus(b.h, syncmodule.InstanceStatus{State: syncmodule.StateSlave, UserPriority: 0})
	res = sel.tick(tbl, now.Add(time.Second))
	require.False(t, res.committed, "should not commit before holdoff elapses")

	res = sel.tick(tbl, now.Add(2*time.Minute))
	require.True(t, res.committed)
	require.Equal(t, b.h, res.winner)
	require.True(t, res.hadPrev)
	require.Equal(t, a.h, res.prev)
}

func TestSelectorFlappingResetsHoldoffTimer(t *testing.T) {
	tbl := newTable()
	a := newFakeInstance(t, syncmodule.KindPTP, "a")
	b := newFakeInstance(t, syncmodule.KindPTP, "b")
	tbl.register(a)
	tbl.register(b)
	tbl.setStatus(a.h, syncmodule.InstanceStatus{State: syncmodule.StateSlave, UserPriority: 1})

	sel, err := newSelector(SelectionPolicy{Strategy: StrategyAutomatic, Rules: DefaultRules, HoldoffInterval: time.Minute})
	require.NoError(t, err)
	now := time.Unix(0, 0)
	sel.tick(tbl, now) // a wins immediately, nothing was selected yet

	// b briefly looks better, starting a pending switch...
	tbl.setStatus(b.h, syncmodule.InstanceStatus{State: syncmodule.StateSlave, UserPriority: 0})
	sel.tick(tbl, now.Add(30*time.Second))

	// ...then a regains the lead before the holdoff elapses, cancelling it.
	tbl.setStatus(b.h, syncmodule.InstanceStatus{State: syncmodule.StateSlave, UserPriority: 2})
	res := sel.tick(tbl, now.Add(31*time.Second))
	require.False(t, res.committed)
	require.False(t, sel.havePending)

	// b takes the lead again at t=90s: this starts a brand new holdoff
	// window rather than reusing the one cancelled above.
	tbl.setStatus(b.h, syncmodule.InstanceStatus{State: syncmodule.StateSlave, UserPriority: 0})
	res = sel.tick(tbl, now.Add(90*time.Second))
	require.False(t, res.committed, "a freshly pending winner must not inherit an earlier deadline")

	res = sel.tick(tbl, now.Add(151*time.Second))
	require.True(t, res.committed)
	require.Equal(t, b.h, res.winner)
}

func TestSelectorManualStrategyIgnoresCandidacy(t *testing.T) {
	tbl := newTable()
	a := newFakeInstance(t, syncmodule.KindPTP, "a")
	tbl.register(a)
	tbl.setStatus(a.h, syncmodule.InstanceStatus{State: syncmodule.StateListening})

	sel, err := newSelector(SelectionPolicy{Strategy: StrategyManual, InitialSyncInstance: "a", HoldoffInterval: 0})
	require.NoError(t, err)
	res := sel.tick(tbl, time.Unix(0, 0))
	require.True(t, res.committed)
	require.Equal(t, a.h, res.winner)
}

func TestSelectorManualStartupSwitchesToAutomaticOnOverride(t *testing.T) {
	tbl := newTable()
	a := newFakeInstance(t, syncmodule.KindPTP, "a")
	b := newFakeInstance(t, syncmodule.KindPTP, "b")
	tbl.register(a)
	tbl.register(b)
	tbl.setStatus(a.h, slaveStatus())
	tbl.setStatus(b.h, syncmodule.InstanceStatus{State: syncmodule.StateSlave, UserPriority: 5})

	sel, err := newSelector(SelectionPolicy{Strategy: StrategyManualStartup, InitialSyncInstance: "a", Rules: DefaultRules, HoldoffInterval: 0})
	require.NoError(t, err)
	res := sel.tick(tbl, time.Unix(0, 0))
	require.Equal(t, a.h, res.winner)

	sel.overrideManual("b")
	res = sel.tick(tbl, time.Unix(1, 0))
	require.True(t, res.committed)
	require.Equal(t, b.h, res.winner)
}

func TestEngineEvaluateSendsControlOnCommit(t *testing.T) {
	e, err := New(SelectionPolicy{Strategy: StrategyAutomatic, Rules: DefaultRules}, nil, nil, nil)
	require.NoError(t, err)
	a := newFakeInstance(t, syncmodule.KindPTP, "a")
	e.Register(a)
	e.tbl.setStatus(a.h, slaveStatus())

	e.evaluate(time.Unix(0, 0))

	msg := <-a.inbox
	require.Equal(t, syncmodule.MsgControl, msg.Kind)
	require.Equal(t, syncmodule.CtrlClockCtrl|syncmodule.CtrlClusteringDeterminant, msg.Flags)
}
