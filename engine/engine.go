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

// Package engine owns the global instance table and runs the selection
// rule pipeline, applying control-flag changes as the Local Reference
// Clock changes. It is component F of the design.
package engine

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Xilinx-CNS/sfptpd-go/syncmodule"
)

// Persister snapshots an instance's status to durable storage on every
// SAVE_STATE tick, spec §6.
type Persister interface {
	Save(h syncmodule.Handle, st syncmodule.InstanceStatus, numPeers, numCandidates int) error
}

// TableRenderer renders the current instance table for `dumptables`,
// spec §4.5 and §2 row P.
type TableRenderer interface {
	Render(rows []RenderRow) string
}

// RenderRow is one line of a rendered instance table.
type RenderRow struct {
	Handle syncmodule.Handle
	Status syncmodule.InstanceStatus
	Have   bool
	Active bool
}

// Engine is the selector task: it owns the instance table, the selector
// state machine, and fans out CONTROL changes as the winner changes.
type Engine struct {
	tbl *table
	sel *selector

	events   chan syncmodule.EngineEvent
	commands chan Command
	register chan syncmodule.Instance
	done     chan struct{}

	persist  Persister
	render   TableRenderer
	onCommit func(winner syncmodule.Handle, status syncmodule.InstanceStatus)

	eventsBacklog int
}

// eventsDepth bounds the engine's event pool, spec §5's "no unbounded
// queues".
const eventsDepth = 64

// New creates an Engine task. onCommit, if non-nil, is invoked after every
// successful selection change (after CONTROL has been sent) so the caller
// can rebuild clock-feed subscriptions, spec §4.4 commit step 3.
func New(policy SelectionPolicy, persist Persister, render TableRenderer, onCommit func(syncmodule.Handle, syncmodule.InstanceStatus)) (*Engine, error) {
	sel, err := newSelector(policy)
	if err != nil {
		return nil, err
	}
	return &Engine{
		tbl:      newTable(),
		sel:      sel,
		events:   make(chan syncmodule.EngineEvent, eventsDepth),
		commands: make(chan Command, 8),
		register: make(chan syncmodule.Instance, 8),
		done:     make(chan struct{}),
		persist:  persist,
		render:   render,
		onCommit: onCommit,
	}, nil
}

// Events returns the send side instances post StatusChanged/RtStats/
// ClusteringInput to.
func (e *Engine) Events() chan<- syncmodule.EngineEvent { return e.events }

// Commands returns the send side the control surface posts parsed verbs to.
func (e *Engine) Commands() chan<- Command { return e.commands }

// Register adds inst to the instance table directly; it must be called
// before Run starts.
func (e *Engine) Register(inst syncmodule.Instance) {
	e.tbl.register(inst)
}

// Run is the engine task's loop body, spec §5.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	saveTicker := time.NewTicker(30 * time.Second)
	defer saveTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.shutdown()
			close(e.done)
			return
		case inst := <-e.register:
			e.tbl.register(inst)
		case ev := <-e.events:
			e.handleEvent(ev)
			e.evaluate(time.Now())
		case cmd := <-e.commands:
			e.handleCommand(cmd)
		case <-ticker.C:
			e.evaluate(time.Now())
		case <-saveTicker.C:
			e.saveAll()
		}
	}
}

// Done is closed once Run has finished its shutdown sequence.
func (e *Engine) Done() <-chan struct{} { return e.done }

func (e *Engine) handleEvent(ev syncmodule.EngineEvent) {
	switch v := ev.(type) {
	case syncmodule.StatusChanged:
		e.tbl.setStatus(v.From, v.Status)
	case syncmodule.RtStats:
		log.Debugf("engine: %s: offset=%s freq=%.3fppb", v.From, v.Offset, v.FreqPPB)
	case syncmodule.ClusteringInput:
		log.Debugf("engine: %s: clustering candidate=%v offset=%s", v.From, v.Candidate, v.Offset)
	}
}

func (e *Engine) evaluate(now time.Time) {
	res := e.sel.tick(e.tbl, now)
	if !res.committed {
		return
	}
	e.commit(res)
}

// commit implements spec §4.4's commit sequence.
func (e *Engine) commit(res commitResult) {
	winnerEntry, ok := e.tbl.get(res.winner)
	if !ok {
		return
	}
	sendControl(winnerEntry.inst, syncmodule.CtrlClockCtrl|syncmodule.CtrlClusteringDeterminant,
		syncmodule.CtrlClockCtrl|syncmodule.CtrlClusteringDeterminant)

	if res.hadPrev && res.prev != res.winner {
		if prevEntry, ok := e.tbl.get(res.prev); ok {
			sendControl(prevEntry.inst, syncmodule.CtrlClockCtrl, 0)
		}
	}

	log.Infof("engine: selected instance changed to %s", res.winner)
	if e.onCommit != nil {
		e.onCommit(res.winner, winnerEntry.status)
	}
}

// sendControl posts a CONTROL message without waiting for the reply,
// honouring spec §5's "the engine never blocks on a sync-module instance".
// The reply channel is buffered so the instance's own send never blocks.
func sendControl(inst syncmodule.Instance, mask, flags syncmodule.CtrlFlags) {
	msg, _ := syncmodule.NewSyncMessage(syncmodule.MsgControl)
	msg.Mask = mask
	msg.Flags = flags
	select {
	case inst.Inbox() <- msg:
	default:
		log.Warnf("engine: %s: inbox full, dropping CONTROL", inst.Handle())
	}
}

func (e *Engine) handleCommand(cmd Command) {
	switch cmd.Kind {
	case CmdExit:
		log.Infof("engine: exit requested via control surface")
	case CmdLogRotate:
		log.Infof("engine: logrotate requested via control surface")
	case CmdStepClocks:
		e.tbl.forEach(func(_ syncmodule.Handle, ent *entry) {
			msg, _ := syncmodule.NewSyncMessage(syncmodule.MsgStepClock)
			select {
			case ent.inst.Inbox() <- msg:
			default:
			}
		})
	case CmdDumpTables:
		if cmd.Result != nil {
			cmd.Result <- e.dumpTables()
		}
	case CmdSelectInstance:
		e.sel.overrideManual(cmd.InstanceName)
		e.evaluate(time.Now())
	case CmdTestMode:
		log.Infof("engine: testmode=%s args=%v (logged, not actioned)", cmd.TestMode, cmd.TestArgs)
	case CmdPIDAdjust:
		log.Infof("engine: pid_adjust kp=%v ki=%v kd=%v targets=%v", cmd.KP, cmd.KI, cmd.KD, cmd.PIDTargets)
	}
}

func (e *Engine) dumpTables() string {
	rows := make([]RenderRow, 0, e.tbl.size())
	cur, haveCur := e.sel.current()
	e.tbl.forEach(func(h syncmodule.Handle, ent *entry) {
		rows = append(rows, RenderRow{Handle: h, Status: ent.status, Have: ent.have, Active: haveCur && h == cur})
	})
	if e.render == nil {
		return fmt.Sprintf("%d instances", len(rows))
	}
	return e.render.Render(rows)
}

func (e *Engine) saveAll() {
	if e.persist == nil {
		return
	}
	cands := e.tbl.candidates()
	numPeers := e.tbl.size()
	e.tbl.forEach(func(h syncmodule.Handle, ent *entry) {
		if !ent.have {
			return
		}
		if err := e.persist.Save(h, ent.status, numPeers, len(cands)); err != nil {
			log.Warnf("engine: %s: save state failed: %v", h, err)
		}
	})
}

// shutdown sends MsgShutdown to every instance, spec §5.
func (e *Engine) shutdown() {
	e.tbl.forEach(func(_ syncmodule.Handle, ent *entry) {
		select {
		case ent.inst.Inbox() <- syncmodule.Message{Kind: syncmodule.MsgShutdown}:
		default:
			log.Warnf("engine: inbox full sending shutdown marker")
		}
	})
}
