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

// Package ptp implements the sync-module contract for a PTP-disciplined
// instance. The PTP protocol engine itself is an external collaborator
// (spec §1): this package only wires the engine-visible status/control
// surface, and is fed real measurements by whatever drives it.
package ptp

import (
	"context"
	"sync"

	"github.com/Xilinx-CNS/sfptpd-go/syncmodule"
)

// Config configures one PTP instance's static identity.
type Config struct {
	UserPriority uint
}

// Instance is the PTP sync-module instance.
type Instance struct {
	syncmodule.Base
	cfg Config

	mu     sync.Mutex
	status syncmodule.InstanceStatus
}

// New creates a PTP instance. It starts in State Listening until the first
// call to Feed reports a measurement.
func New(h syncmodule.Handle, engine chan<- syncmodule.EngineEvent, cfg Config) *Instance {
	return &Instance{
		Base:   syncmodule.NewBase(h, engine),
		cfg:    cfg,
		status: syncmodule.InstanceStatus{State: syncmodule.StateListening, UserPriority: cfg.UserPriority},
	}
}

// Feed lets the PTP protocol engine driving this instance report a new
// status; the instance posts it to the engine if it changed, per §4.1's
// debouncing rule.
func (i *Instance) Feed(st syncmodule.InstanceStatus) {
	st.UserPriority = i.cfg.UserPriority
	i.mu.Lock()
	i.status = st
	i.mu.Unlock()
	i.PostStatus(st)
}

// Run is the instance's task loop body.
func (i *Instance) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-i.Recv():
			if i.handle(msg) {
				return
			}
		}
	}
}

func (i *Instance) handle(msg syncmodule.Message) (shutdown bool) {
	switch msg.Kind {
	case syncmodule.MsgGetStatus, syncmodule.MsgControl, syncmodule.MsgStepClock:
		i.mu.Lock()
		st := i.status
		i.mu.Unlock()
		msg.Reply <- syncmodule.Reply{Status: st}
	case syncmodule.MsgShutdown:
		return true
	}
	return false
}
