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
	"context"
	"errors"
	"time"

	"github.com/cespare/xxhash/v2"
	log "github.com/sirupsen/logrus"

	"github.com/Xilinx-CNS/sfptpd-go/accuracy"
	"github.com/Xilinx-CNS/sfptpd-go/chrony"
	"github.com/Xilinx-CNS/sfptpd-go/clock"
	"github.com/Xilinx-CNS/sfptpd-go/syncmodule"
)

// Config holds the adapter's per-instance configuration, spec §4.2/§6.
type Config struct {
	SocketPath         string
	PollInterval       time.Duration
	HelperScript       string
	MinControlInterval time.Duration
	UserPriority       uint
}

// DefaultConfig returns the spec's documented defaults.
func DefaultConfig() Config {
	return Config{
		SocketPath:   chrony.ChronySocketPath,
		PollInterval: time.Second,
	}
}

// Adapter is the crny sync-module instance: transport, state machine and
// clock-control arbitration bound together behind the syncmodule.Instance
// contract.
type Adapter struct {
	syncmodule.Base
	cfg Config
	sys *clock.Clock

	t     *transport
	state State

	peers       []peer
	nSources    int32
	selectedIdx int
	offsetID    offsetIDTuple
	offsetUnsafe bool

	lastPoll time.Time

	acc  *accuracy.Estimator
	ctrl *controller

	trafficCh chan trafficEvent
	readerDone chan struct{}
}

type trafficEvent struct {
	pkt chrony.ResponsePacket
	err error
}

// New creates a crny adapter bound to handle h, disciplining sys (the
// system clock) when clock-control negotiation says it should.
func New(h syncmodule.Handle, engine chan<- syncmodule.EngineEvent, sys *clock.Clock, cfg Config) *Adapter {
	if cfg.SocketPath == "" {
		cfg.SocketPath = chrony.ChronySocketPath
	}
	if cfg.PollInterval < time.Second {
		cfg.PollInterval = time.Second
	}
	return &Adapter{
		Base:        syncmodule.NewBase(h, engine),
		cfg:         cfg,
		sys:         sys,
		state:       StateSleepDisconnected,
		selectedIdx: -1,
		acc:         accuracy.New(),
		ctrl:        newController(cfg.HelperScript, cfg.MinControlInterval),
	}
}

// Run is the instance's task loop body, spec §5.
func (a *Adapter) Run(ctx context.Context) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.shutdown()
			return
		case msg := <-a.Recv():
			if a.handleMessage(msg) {
				a.shutdown()
				return
			}
		case <-ticker.C:
			a.handleEvent(EventTick, Inputs{PollDue: a.pollDue()})
		case ev := <-a.trafficCh:
			a.handleTraffic(ev)
		}
	}
}

func (a *Adapter) pollDue() bool {
	return time.Since(a.lastPoll) >= a.cfg.PollInterval || a.lastPoll.IsZero()
}

func (a *Adapter) handleMessage(msg syncmodule.Message) (shutdown bool) {
	switch msg.Kind {
	case syncmodule.MsgRun:
		a.probeClockControl()
		a.handleEvent(EventRun, Inputs{PollDue: true})
	case syncmodule.MsgGetStatus:
		msg.Reply <- syncmodule.Reply{Status: a.status()}
	case syncmodule.MsgControl:
		a.ctrl.wanted = (a.ctrl.wanted &^ msg.Mask) | (msg.Flags & msg.Mask)
		a.reconcileClockControl()
		msg.Reply <- syncmodule.Reply{Status: a.status()}
	case syncmodule.MsgStepClock:
		a.offsetUnsafe = true
		msg.Reply <- syncmodule.Reply{Status: a.status()}
	case syncmodule.MsgShutdown:
		return true
	}
	return false
}

func (a *Adapter) handleEvent(e Event, in Inputs) {
	if a.t != nil && a.t.replyOverdue(time.Now()) {
		e, in = EventReplyTimeout, Inputs{}
	}
	next, actions := Step(a.state, e, in)
	a.state = next
	for _, act := range actions {
		a.perform(act)
	}
}

func (a *Adapter) perform(act Action) {
	switch act.Kind {
	case ActionConnect:
		a.lastPoll = time.Now()
		a.t = newTransport(a.cfg.SocketPath)
		err := a.t.connect()
		a.startReaderIfConnected()
		a.handleEvent(EventNoEvent, Inputs{ConnectErr: err})
	case ActionIssueSysInfo:
		if err := a.t.send(chrony.NewTrackingPacket()); err != nil {
			a.handleEvent(EventConnLost, Inputs{})
		}
	case ActionIssueSourceCount:
		if err := a.t.send(chrony.NewSourcesPacket()); err != nil {
			a.handleEvent(EventConnLost, Inputs{})
		}
	case ActionIssueSourceDatum:
		if err := a.t.send(chrony.NewSourceDataPacket(act.Index)); err != nil {
			a.handleEvent(EventConnLost, Inputs{})
		}
	case ActionIssueNTPDatum:
		if act.Index < int32(len(a.peers)) {
			ip := a.peers[act.Index].addr
			if err := a.t.send(chrony.NewNTPDataPacket(ip)); err != nil {
				a.handleEvent(EventConnLost, Inputs{})
			}
		}
	case ActionDisconnect:
		a.closeTransport()
	case ActionPublishDisabled:
		a.publish(syncmodule.StateDisabled, 0, 0)
	case ActionArmSleep:
		// next TICK with PollDue re-arms; nothing to do here.
	case ActionFinishScan:
		a.finishScan()
	}
}

func (a *Adapter) startReaderIfConnected() {
	if a.t == nil || a.t.conn == nil {
		return
	}
	a.trafficCh = make(chan trafficEvent, 1)
	done := make(chan struct{})
	a.readerDone = done
	t := a.t
	go func() {
		defer close(done)
		for {
			pkt, err := t.recv()
			select {
			case a.trafficCh <- trafficEvent{pkt: pkt, err: err}:
			case <-done:
				return
			}
			if err != nil {
				return
			}
		}
	}()
}

func (a *Adapter) closeTransport() {
	if a.readerDone != nil {
		close(a.readerDone)
		a.readerDone = nil
	}
	if a.t != nil {
		a.t.close()
		a.t = nil
	}
}

func (a *Adapter) handleTraffic(ev trafficEvent) {
	if ev.err != nil {
		a.handleEvent(EventConnLost, Inputs{})
		return
	}
	// A reply arrived: no request is outstanding until the next send.
	if a.t != nil {
		a.t.replyDeadline = time.Time{}
	}
	switch a.state {
	case StateConnectWait:
		a.handleEvent(EventTraffic, Inputs{SockErr: a.t.soError()})
	case StateSysInfo:
		tr, ok := ev.pkt.(*chrony.ReplyTracking)
		if !ok {
			a.handleEvent(EventTraffic, Inputs{ReplyOK: false})
			return
		}
		a.applyTracking(tr)
		a.handleEvent(EventTraffic, Inputs{ReplyOK: true})
	case StateSourceCount:
		rs, ok := ev.pkt.(*chrony.ReplySources)
		if !ok {
			a.handleEvent(EventTraffic, Inputs{ReplyOK: false})
			return
		}
		a.peers = make([]peer, 0, rs.NSources)
		a.nSources = int32(rs.NSources)
		a.handleEvent(EventTraffic, Inputs{ReplyOK: true, NSources: a.nSources})
	case StateSourceDatum:
		sd, ok := ev.pkt.(*chrony.ReplySourceData)
		if !ok {
			a.handleEvent(EventTraffic, Inputs{ReplyOK: false})
			return
		}
		p := newPeerFromSourceData(&sd.SourceData)
		idx := int32(len(a.peers))
		a.peers = append(a.peers, p)
		a.handleEvent(EventTraffic, Inputs{
			ReplyOK:     true,
			IsSelfOrRef: p.self,
			Index:       idx,
			NSources:    a.nSources,
		})
	case StateNTPDatum:
		nd, ok := ev.pkt.(*chrony.ReplyNTPData)
		idx := int32(len(a.peers) - 1)
		if !ok || idx < 0 {
			a.handleEvent(EventTraffic, Inputs{ReplyOK: false})
			return
		}
		a.peers[idx].applyNTPData(&nd.NTPData)
		a.handleEvent(EventTraffic, Inputs{
			ReplyOK:  true,
			Index:    idx,
			NSources: a.nSources,
		})
	}
}

func (a *Adapter) applyTracking(tr *chrony.ReplyTracking) {
	if tr.RefID == chrony.RefIDLocal1 || tr.RefID == chrony.RefIDLocal2 {
		log.Debugf("crny: %s: tracking local reference", a.Handle())
	}
}

// finishScan implements the state derivation rule of spec §4.2.2.
func (a *Adapter) finishScan() {
	a.lastPoll = time.Now()

	var selected *peer
	count := 0
	for i := range a.peers {
		if a.peers[i].selected {
			count++
			if selected == nil {
				selected = &a.peers[i]
			}
		}
	}
	if count > 1 {
		log.Warnf("crny: %s: more than one selected peer reported, taking the first", a.Handle())
	}

	if selected != nil {
		newID := newOffsetIDTuple(*selected)
		if newID != a.offsetID {
			a.offsetID = newID
			a.offsetUnsafe = false
			a.acc.Reset()
		}
	}

	var state syncmodule.State
	var offset time.Duration
	var steps uint16
	switch {
	case selected != nil && !a.offsetUnsafe:
		state = syncmodule.StateSlave
		offset = selected.offset
		steps = selected.stratum
		a.acc.Add(offset)
	case anyCandidate(a.peers):
		state = syncmodule.StateSelection
	default:
		state = syncmodule.StateListening
	}

	a.publish(state, offset, steps)
	a.selectedIdx = indexOf(a.peers, selected)
	if state == syncmodule.StateSlave {
		a.PostRtStats(syncmodule.RtStats{At: time.Now(), Offset: offset})
	}
}

func anyCandidate(peers []peer) bool {
	for _, p := range peers {
		if p.candidate || p.shortlist {
			return true
		}
	}
	return false
}

func indexOf(peers []peer, p *peer) int {
	if p == nil {
		return -1
	}
	for i := range peers {
		if &peers[i] == p {
			return i
		}
	}
	return -1
}

func (a *Adapter) publish(state syncmodule.State, offset time.Duration, stepsRemoved uint16) {
	st := a.status()
	st.State = state
	st.OffsetFromMaster = offset
	st.Master.StepsRemoved = stepsRemoved
	a.PostStatus(st)
}

func (a *Adapter) status() syncmodule.InstanceStatus {
	var constraints syncmodule.Constraints
	if a.ctrl.mustBeSelected() {
		constraints |= syncmodule.ConstraintMustBeSelected
	}
	if a.ctrl.cannotBeSelected() {
		constraints |= syncmodule.ConstraintCannotBeSelected
	}
	st := syncmodule.InstanceStatus{
		Constraints:   constraints,
		CtrlFlags:     a.ctrl.wanted,
		UserPriority:  a.cfg.UserPriority,
		LocalAccuracy: a.acc.LocalAccuracy(),
		AllanVariance: a.acc.AllanVariance(),
	}
	if a.selectedIdx >= 0 && a.selectedIdx < len(a.peers) {
		p := a.peers[a.selectedIdx]
		st.Master = syncmodule.MasterInfo{
			StepsRemoved: p.stratum,
			ClockID:      peerClockIdentity(p),
			Accuracy:     p.rootDispersion,
		}
	}
	return st
}

// peerClockIdentity derives a stable pseudo clock identity from a chrony
// peer's IP address, so tie-breaking and persisted snapshots have
// something to key on even though NTP peers carry no EUI-64 identity.
func peerClockIdentity(p peer) clock.Identity {
	if p.addr == nil {
		return 0
	}
	return clock.Identity(xxhash.Sum64String(p.addr.String()))
}

// shutdown runs the adapter's teardown: close the transport, then RESTORE
// the upstream daemon's clock-control state. The control socket must be
// closed before invoking the helper script; the state machine would
// otherwise reopen it on the next poll, which never comes.
func (a *Adapter) shutdown() {
	a.closeTransport()
	if err := a.ctrl.restore(); err != nil {
		log.Warnf("crny: %s: restore on shutdown failed: %v", a.Handle(), err)
	}
}

// probeClockControl re-probes /proc/<pid>/cmdline and reconciles, spec
// §4.2.3. Called before RUN, per spec.
func (a *Adapter) probeClockControl() {
	pid, err := findChronydPID()
	if err != nil {
		log.Debugf("crny: %s: chronyd not found: %v", a.Handle(), err)
		return
	}
	disciplining, err := probeCmdline(pid)
	if err != nil {
		log.Debugf("crny: %s: clock-control probe failed: %v", a.Handle(), err)
		return
	}
	a.ctrl.observe(disciplining, a.sys)
}

func (a *Adapter) reconcileClockControl() {
	if a.ctrl.needsReconcile() {
		a.closeTransport()
	}
	if err := a.ctrl.reconcile(a.sys); err != nil && !errors.Is(err, errNoHelper) {
		log.Warnf("crny: %s: clock-control reconcile failed: %v", a.Handle(), err)
	}
}

