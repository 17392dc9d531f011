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

// Package freerun implements the free-running sync-module instance: a
// clock nobody disciplines, always a candidate LRC of last resort.
package freerun

import (
	"context"

	"github.com/Xilinx-CNS/sfptpd-go/syncmodule"
)

// Config configures one freerun instance.
type Config struct {
	ClockClass   uint8
	UserPriority uint
}

// DefaultConfig matches a plain free-running oscillator: worst usable
// clock class (248). UserPriority is left at zero.
func DefaultConfig() Config {
	return Config{ClockClass: 248}
}

// Instance is the freerun sync-module instance.
type Instance struct {
	syncmodule.Base
	cfg Config
}

// New creates a freerun instance bound to handle h.
func New(h syncmodule.Handle, engine chan<- syncmodule.EngineEvent, cfg Config) *Instance {
	return &Instance{Base: syncmodule.NewBase(h, engine), cfg: cfg}
}

// Run is the instance's task loop body. A freerun instance never changes
// state on its own: it is always its own reference.
func (i *Instance) Run(ctx context.Context) {
	i.PostStatus(i.status())
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
		msg.Reply <- syncmodule.Reply{Status: i.status()}
	case syncmodule.MsgShutdown:
		return true
	}
	return false
}

func (i *Instance) status() syncmodule.InstanceStatus {
	return syncmodule.InstanceStatus{
		State:        syncmodule.StateMaster,
		UserPriority: i.cfg.UserPriority,
		Master: syncmodule.MasterInfo{
			ClockClass: i.cfg.ClockClass,
		},
	}
}
