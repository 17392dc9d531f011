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

// Package crny implements the external-NTP (chrony) sync-module instance:
// the polling state machine that talks to a running chrony daemon over its
// Unix control socket, and the clock-control arbitration that negotiates
// who disciplines the system clock.
package crny

// State is one of the adapter's eight query states, spec §3/§4.2.2.
type State int

// States.
const (
	StateSleepDisconnected State = iota
	StateSleepConnected
	StateConnect
	StateConnectWait
	StateSysInfo
	StateSourceCount
	StateSourceDatum
	StateNTPDatum
)

func (s State) String() string {
	switch s {
	case StateSleepDisconnected:
		return "sleep_disconnected"
	case StateSleepConnected:
		return "sleep_connected"
	case StateConnect:
		return "connect"
	case StateConnectWait:
		return "connect_wait"
	case StateSysInfo:
		return "sys_info"
	case StateSourceCount:
		return "source_count"
	case StateSourceDatum:
		return "source_datum"
	case StateNTPDatum:
		return "ntp_datum"
	default:
		return "unknown"
	}
}

// Event is the input alphabet driving the state machine, spec §4.2.2.
type Event int

// Events.
const (
	EventNoEvent Event = iota
	EventRun
	EventTick
	EventTraffic
	EventConnLost
	EventReplyTimeout
)

// ActionKind identifies one side effect the driver must perform in
// response to a Step.
type ActionKind int

// Actions a driver executes after Step returns.
const (
	ActionNone ActionKind = iota
	ActionConnect
	ActionIssueSysInfo
	ActionIssueSourceCount
	ActionIssueSourceDatum
	ActionIssueNTPDatum
	ActionDisconnect
	ActionPublishDisabled
	ActionArmSleep
	ActionFinishScan
)

// Action is one output of Step; Index carries the peer index for
// ActionIssueSourceDatum/ActionIssueNTPDatum.
type Action struct {
	Kind  ActionKind
	Index int32
}

// Inputs carries whatever the driver already knows about the world when it
// calls Step: results of syscalls or parses it performed before asking the
// state machine what to do next. Step itself performs no I/O.
type Inputs struct {
	// PollDue is set on EventTick when the configured poll interval has
	// elapsed since the last poll.
	PollDue bool

	// ConnectErr is the result of calling connect(2): nil (connected),
	// ErrInProgress (EINPROGRESS), or any other error.
	ConnectErr error

	// SockErr is the SO_ERROR value observed on a CONNECT_WAIT wakeup.
	SockErr error

	// ReplyOK is whether the just-received reply parsed and passed the
	// well-formedness checks of spec §4.2.1.
	ReplyOK bool

	// NSources is the peer count from a GET_NUM_SOURCES reply.
	NSources int32

	// IsSelfOrRef reports whether the just-parsed SOURCE_DATUM is a
	// self/reference-clock source (mode == reference-clock).
	IsSelfOrRef bool

	// Index is the peer index just processed.
	Index int32
}

// Step is the pure (state, event, inputs) -> (state, actions) transition
// function for the adapter's polling state machine, spec §4.2.2.
func Step(s State, e Event, in Inputs) (State, []Action) {
	switch s {
	case StateSleepDisconnected:
		if e == EventTick && in.PollDue || e == EventRun {
			return StateConnect, []Action{{Kind: ActionConnect}}
		}
		return s, nil

	case StateConnect:
		// Reached only via the immediate ActionConnect output above; the
		// driver re-enters Step with the connect() result as EventNoEvent.
		switch {
		case in.ConnectErr == nil:
			return StateSysInfo, []Action{{Kind: ActionIssueSysInfo}}
		case in.ConnectErr == ErrInProgress:
			return StateConnectWait, nil
		default:
			return StateSleepDisconnected, []Action{{Kind: ActionPublishDisabled}, {Kind: ActionArmSleep}}
		}

	case StateConnectWait:
		switch e {
		case EventTraffic:
			if in.SockErr == nil {
				return StateSysInfo, []Action{{Kind: ActionIssueSysInfo}}
			}
			return StateSleepDisconnected, []Action{{Kind: ActionDisconnect}, {Kind: ActionPublishDisabled}, {Kind: ActionArmSleep}}
		case EventReplyTimeout:
			return StateSleepConnected, nil
		case EventConnLost:
			return disconnect()
		}
		return s, nil

	case StateSysInfo:
		switch e {
		case EventTraffic:
			if !in.ReplyOK {
				return disconnect()
			}
			return StateSourceCount, []Action{{Kind: ActionIssueSourceCount}}
		case EventReplyTimeout:
			return StateSleepConnected, nil
		case EventConnLost:
			return disconnect()
		}
		return s, nil

	case StateSourceCount:
		switch e {
		case EventTraffic:
			if !in.ReplyOK {
				return disconnect()
			}
			if in.NSources > 0 {
				return StateSourceDatum, []Action{{Kind: ActionIssueSourceDatum, Index: 0}}
			}
			return StateSleepConnected, nil
		case EventConnLost:
			return disconnect()
		}
		return s, nil

	case StateSourceDatum:
		switch e {
		case EventTraffic:
			if !in.ReplyOK {
				return disconnect()
			}
			if in.IsSelfOrRef {
				return advanceOrFinish(in)
			}
			return StateNTPDatum, []Action{{Kind: ActionIssueNTPDatum, Index: in.Index}}
		case EventConnLost:
			return disconnect()
		}
		return s, nil

	case StateNTPDatum:
		switch e {
		case EventTraffic:
			if !in.ReplyOK {
				return disconnect()
			}
			return advanceOrFinish(in)
		case EventConnLost:
			return disconnect()
		}
		return s, nil

	case StateSleepConnected:
		if e == EventTick && in.PollDue {
			return StateSysInfo, []Action{{Kind: ActionIssueSysInfo}}
		}
		return s, nil
	}
	return s, nil
}

func disconnect() (State, []Action) {
	return StateSleepDisconnected, []Action{{Kind: ActionDisconnect}, {Kind: ActionPublishDisabled}, {Kind: ActionArmSleep}}
}

// advanceOrFinish implements the "finish scan" branch reached at the end
// of SOURCE_DATUM or NTP_DATUM once index+1 == N.
func advanceOrFinish(in Inputs) (State, []Action) {
	next := in.Index + 1
	if next >= in.NSources {
		return StateSleepConnected, []Action{{Kind: ActionFinishScan}}
	}
	return StateSourceDatum, []Action{{Kind: ActionIssueSourceDatum, Index: next}}
}
