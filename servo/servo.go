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

// Package servo disciplines the non-selected NIC clocks (spec §4.4 commit
// step 3): one task per clock, reading clock-feed subscriptions and
// slewing the clock's frequency to track the system clock, which the
// engine's selected instance is (indirectly) disciplining.
package servo

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Xilinx-CNS/sfptpd-go/clock"
	"github.com/Xilinx-CNS/sfptpd-go/clockfeed"
)

// DefaultKP is a conservative proportional gain: a 1ms offset commands a
// 1000ppb frequency correction.
const DefaultKP = 1e6

// task is one clock's servo loop.
type task struct {
	clk    *clock.Clock
	sub    *clockfeed.Subscription
	kp     float64
	cancel context.CancelFunc
}

// Manager owns the set of running secondary servo tasks, rebuilt on every
// engine selection commit.
type Manager struct {
	feed *clockfeed.Service
	kp   float64

	mu    sync.Mutex
	tasks map[clock.Identity]*task
}

// NewManager creates a servo manager sampling through feed.
func NewManager(feed *clockfeed.Service, kp float64) *Manager {
	if kp <= 0 {
		kp = DefaultKP
	}
	return &Manager{feed: feed, kp: kp, tasks: map[clock.Identity]*task{}}
}

// Rebuild starts a servo for every clock in want that doesn't already have
// one, and stops any running servo for a clock no longer in want or for
// winner itself: the selected LRC's own clock is disciplined by its
// sync-module instance, not by a secondary servo.
func (m *Manager) Rebuild(ctx context.Context, want []*clock.Clock, winner clock.Identity) {
	m.mu.Lock()
	defer m.mu.Unlock()

	keep := map[clock.Identity]bool{}
	for _, c := range want {
		if c.Identity() == winner {
			continue
		}
		keep[c.Identity()] = true
		if _, running := m.tasks[c.Identity()]; running {
			continue
		}
		m.start(ctx, c)
	}
	for id, t := range m.tasks {
		if keep[id] {
			continue
		}
		m.stop(id, t)
	}
}

func (m *Manager) start(ctx context.Context, c *clock.Clock) {
	src := m.feed.AddSource(c, 0)
	sub := m.feed.SubscribeTo(src, nil, nil)
	tctx, cancel := context.WithCancel(ctx)
	t := &task{clk: c, sub: sub, kp: m.kp, cancel: cancel}
	m.tasks[c.Identity()] = t
	go t.run(tctx)
	log.Infof("servo: started for %s", c.Name())
}

func (m *Manager) stop(id clock.Identity, t *task) {
	t.cancel()
	t.sub.Close()
	m.feed.RemoveSource(t.clk.Name())
	delete(m.tasks, id)
	log.Infof("servo: stopped for %s", t.clk.Name())
}

func (t *task) run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.tick()
		}
	}
}

func (t *task) tick() {
	if t.clk.Blocked() || t.clk.ReadOnly() || !t.clk.Active() {
		return
	}
	diff, err := clockfeed.Compare(t.sub, nil)
	if err != nil {
		log.Debugf("servo: %s: compare: %v", t.clk.Name(), err)
		return
	}
	freqPPB := -t.kp * diff.Seconds()
	if max, err := t.clk.MaxFrequencyPPB(); err == nil && max > 0 {
		if freqPPB > max {
			freqPPB = max
		}
		if freqPPB < -max {
			freqPPB = -max
		}
	}
	if err := t.clk.AdjustFrequency(freqPPB); err != nil {
		log.Warnf("servo: %s: adjust frequency: %v", t.clk.Name(), err)
	}
}
