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

// Package pps implements the sync-module contract for a pulse-per-second
// instance. Pulse capture itself is an external collaborator (spec §1);
// this package only wires the engine-visible status/control surface.
package pps

import (
	"context"
	"sync"
	"time"

	"github.com/Xilinx-CNS/sfptpd-go/syncmodule"
)

// Config configures one PPS instance's static identity.
type Config struct {
	UserPriority uint
	// MissingPulseTimeout raises AlarmNoRxTimestamps if Feed hasn't been
	// called within this long.
	MissingPulseTimeout time.Duration
}

// Instance is the PPS sync-module instance.
type Instance struct {
	syncmodule.Base
	cfg Config

	mu       sync.Mutex
	status   syncmodule.InstanceStatus
	lastFeed time.Time
}

// New creates a PPS instance. It starts in State Listening until the first
// pulse is reported via Feed.
func New(h syncmodule.Handle, engine chan<- syncmodule.EngineEvent, cfg Config) *Instance {
	return &Instance{
		Base:   syncmodule.NewBase(h, engine),
		cfg:    cfg,
		status: syncmodule.InstanceStatus{State: syncmodule.StateListening, UserPriority: cfg.UserPriority},
	}
}

// Feed reports one PPS edge's offset from the system clock.
func (i *Instance) Feed(offset time.Duration) {
	i.mu.Lock()
	i.lastFeed = time.Now()
	i.status.State = syncmodule.StateSlave
	i.status.OffsetFromMaster = offset
	i.status.Alarms &^= syncmodule.AlarmNoRxTimestamps
	st := i.status
	i.mu.Unlock()
	i.PostStatus(st)
}

// Run is the instance's task loop body.
func (i *Instance) Run(ctx context.Context) {
	var ticker *time.Ticker
	var tickC <-chan time.Time
	if i.cfg.MissingPulseTimeout > 0 {
		ticker = time.NewTicker(i.cfg.MissingPulseTimeout)
		defer ticker.Stop()
		tickC = ticker.C
	}
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-i.Recv():
			if i.handle(msg) {
				return
			}
		case <-tickC:
			i.checkStale()
		}
	}
}

func (i *Instance) checkStale() {
	i.mu.Lock()
	if i.lastFeed.IsZero() || time.Since(i.lastFeed) < i.cfg.MissingPulseTimeout {
		i.mu.Unlock()
		return
	}
	i.status.Alarms |= syncmodule.AlarmNoRxTimestamps
	st := i.status
	i.mu.Unlock()
	i.PostStatus(st)
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
