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

package freerun

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Xilinx-CNS/sfptpd-go/syncmodule"
)

func TestRunPublishesMasterStatusOnStartup(t *testing.T) {
	h, err := syncmodule.NewHandle(syncmodule.KindFreerun, "local")
	require.NoError(t, err)
	events := make(chan syncmodule.EngineEvent, 1)
	inst := New(h, events, DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go inst.Run(ctx)

	select {
	case ev := <-events:
		sc, ok := ev.(syncmodule.StatusChanged)
		require.True(t, ok)
		require.Equal(t, syncmodule.StateMaster, sc.Status.State)
		require.EqualValues(t, 248, sc.Status.Master.ClockClass)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for initial status")
	}
}

func TestGetStatusRepliesSynchronously(t *testing.T) {
	h, err := syncmodule.NewHandle(syncmodule.KindFreerun, "local")
	require.NoError(t, err)
	events := make(chan syncmodule.EngineEvent, 1)
	inst := New(h, events, Config{ClockClass: 100, UserPriority: 5})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go inst.Run(ctx)
	<-events // drain the startup status

	msg, reply := syncmodule.NewSyncMessage(syncmodule.MsgGetStatus)
	inst.Inbox() <- msg
	select {
	case r := <-reply:
		require.NoError(t, r.Err)
		require.EqualValues(t, 5, r.Status.UserPriority)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for reply")
	}
}
