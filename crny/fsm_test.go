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
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

var errConnRefused = errors.New("connection refused")

func TestStepColdStartNoChronyd(t *testing.T) {
	s, actions := Step(StateSleepDisconnected, EventTick, Inputs{PollDue: true})
	require.Equal(t, StateConnect, s)
	require.Equal(t, []Action{{Kind: ActionConnect}}, actions)

	s, actions = Step(StateConnect, EventNoEvent, Inputs{ConnectErr: errConnRefused})
	require.Equal(t, StateSleepDisconnected, s)
	require.Equal(t, ActionPublishDisabled, actions[0].Kind)
}

func TestStepConnectInProgressThenReady(t *testing.T) {
	s, _ := Step(StateConnect, EventNoEvent, Inputs{ConnectErr: ErrInProgress})
	require.Equal(t, StateConnectWait, s)

	s, actions := Step(StateConnectWait, EventTraffic, Inputs{SockErr: nil})
	require.Equal(t, StateSysInfo, s)
	require.Equal(t, ActionIssueSysInfo, actions[0].Kind)
}

func TestStepFullScanToSlave(t *testing.T) {
	s, actions := Step(StateSysInfo, EventTraffic, Inputs{ReplyOK: true})
	require.Equal(t, StateSourceCount, s)
	require.Equal(t, ActionIssueSourceCount, actions[0].Kind)

	s, actions = Step(StateSourceCount, EventTraffic, Inputs{ReplyOK: true, NSources: 1})
	require.Equal(t, StateSourceDatum, s)
	require.Equal(t, int32(0), actions[0].Index)

	s, actions = Step(StateSourceDatum, EventTraffic, Inputs{ReplyOK: true, IsSelfOrRef: false, Index: 0, NSources: 1})
	require.Equal(t, StateNTPDatum, s)
	require.Equal(t, ActionIssueNTPDatum, actions[0].Kind)

	s, actions = Step(StateNTPDatum, EventTraffic, Inputs{ReplyOK: true, Index: 0, NSources: 1})
	require.Equal(t, StateSleepConnected, s)
	require.Equal(t, ActionFinishScan, actions[0].Kind)
}

func TestStepConnLostFromAnyQueriedState(t *testing.T) {
	for _, s := range []State{StateConnectWait, StateSysInfo, StateSourceCount, StateSourceDatum, StateNTPDatum} {
		next, actions := Step(s, EventConnLost, Inputs{})
		require.Equal(t, StateSleepDisconnected, next, "from %s", s)
		require.Equal(t, ActionDisconnect, actions[0].Kind, "from %s", s)
	}
}

func TestStepReplyTimeoutGoesToSleepConnected(t *testing.T) {
	for _, s := range []State{StateConnectWait, StateSysInfo} {
		next, actions := Step(s, EventReplyTimeout, Inputs{})
		require.Equal(t, StateSleepConnected, next, "from %s", s)
		require.Nil(t, actions)
	}
}

func TestStepSleepConnectedRepollsOnPollDue(t *testing.T) {
	s, actions := Step(StateSleepConnected, EventTick, Inputs{PollDue: true})
	require.Equal(t, StateSysInfo, s)
	require.Equal(t, ActionIssueSysInfo, actions[0].Kind)
}
