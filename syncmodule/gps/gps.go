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

// Package gps implements the sync-module contract for a GPS receiver
// reachable over a serial NMEA stream. Full NMEA/GPSD decoding is an
// external collaborator's job (spec §1 non-goal); this package wires a
// real serial transport and reads just enough of GGA/RMC to know whether
// the receiver currently has a fix.
package gps

import (
	"bufio"
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
	"go.bug.st/serial"

	"github.com/Xilinx-CNS/sfptpd-go/syncmodule"
)

// Config configures one GPS instance's serial device.
type Config struct {
	Device       string
	BaudRate     int
	UserPriority uint
	ClockClass   uint8
}

// DefaultConfig matches a typical NMEA-over-serial GPS receiver.
func DefaultConfig() Config {
	return Config{BaudRate: 9600, ClockClass: 6}
}

// Instance is the GPS sync-module instance.
type Instance struct {
	syncmodule.Base
	cfg Config

	mu     sync.Mutex
	status syncmodule.InstanceStatus

	port serial.Port
}

// New creates a GPS instance. The serial port is opened lazily in Run, so
// construction never fails on a device that isn't present yet.
func New(h syncmodule.Handle, engine chan<- syncmodule.EngineEvent, cfg Config) *Instance {
	return &Instance{
		Base:   syncmodule.NewBase(h, engine),
		cfg:    cfg,
		status: syncmodule.InstanceStatus{State: syncmodule.StateListening, UserPriority: cfg.UserPriority},
	}
}

// Run opens the serial device and reads NMEA sentences until ctx is
// cancelled or the stream ends. A failed open or a read error ends the
// reading; the device is not reopened.
func (i *Instance) Run(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		i.readLoop(ctx)
	}()

	for {
		select {
		case <-ctx.Done():
			i.closePort()
			<-done
			return
		case msg := <-i.Recv():
			if msg.Kind == syncmodule.MsgShutdown {
				i.closePort()
				<-done
				return
			}
			i.handle(msg)
		}
	}
}

func (i *Instance) readLoop(ctx context.Context) {
	mode := &serial.Mode{BaudRate: i.cfg.BaudRate}
	port, err := serial.Open(i.cfg.Device, mode)
	if err != nil {
		log.Warnf("gps: %s: open %s: %v", i.Handle(), i.cfg.Device, err)
		i.setAlarm()
		return
	}
	i.mu.Lock()
	i.port = port
	i.mu.Unlock()

	scanner := bufio.NewScanner(port)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}
		fix, ok := parseSentence(scanner.Text())
		if !ok {
			continue
		}
		i.applyFix(fix)
	}
}

func (i *Instance) applyFix(fix fixQuality) {
	i.mu.Lock()
	if fix.valid {
		i.status.State = syncmodule.StateSlave
		i.status.Alarms &^= syncmodule.AlarmNoRxTimestamps
		i.status.Master = syncmodule.MasterInfo{ClockClass: i.cfg.ClockClass, StepsRemoved: 0}
	} else {
		i.status.State = syncmodule.StateSelection
		i.status.Alarms |= syncmodule.AlarmNoRxTimestamps
	}
	st := i.status
	i.mu.Unlock()
	i.PostStatus(st)
}

func (i *Instance) setAlarm() {
	i.mu.Lock()
	i.status.State = syncmodule.StateFaulty
	i.status.Alarms |= syncmodule.AlarmNoRxTimestamps
	st := i.status
	i.mu.Unlock()
	i.PostStatus(st)
}

func (i *Instance) closePort() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.port != nil {
		_ = i.port.Close()
		i.port = nil
	}
}

func (i *Instance) handle(msg syncmodule.Message) {
	switch msg.Kind {
	case syncmodule.MsgGetStatus, syncmodule.MsgControl, syncmodule.MsgStepClock:
		i.mu.Lock()
		st := i.status
		i.mu.Unlock()
		msg.Reply <- syncmodule.Reply{Status: st}
	}
}
