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

package clockfeed

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Xilinx-CNS/sfptpd-go/clock"
	"github.com/Xilinx-CNS/sfptpd-go/errkind"
)

// SyncEvent is the multicast message published after each sampling pass,
// consumed by secondary servos per spec §4.3.
type SyncEvent struct {
	At time.Time
}

// Service is the single clock-feed task: it owns every Source's ring
// buffer and is the only writer to any of them, per spec §5.
type Service struct {
	baseLog2 int
	sysclk   clock.Capability

	mu      sync.RWMutex
	sources map[string]*Source

	subscribers []chan<- SyncEvent
}

// NewService creates a clock-feed service with base period 2^minPollLog2
// seconds (spec §4.3).
func NewService(minPollLog2 int, sysclk clock.Capability) *Service {
	return &Service{
		baseLog2: minPollLog2,
		sysclk:   sysclk,
		sources:  map[string]*Source{},
	}
}

// AddSource begins tracking clk, sampled every 2^(sourceLog2-minPollLog2)
// base periods.
func (s *Service) AddSource(clk *clock.Clock, sourceLog2 int) *Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	src := newSource(clk.Name(), clk, s.sysclk, sourceLog2, s.baseLog2)
	s.sources[clk.Name()] = src
	return src
}

// RemoveSource marks a source inactive; it is reaped once its last
// subscriber unsubscribes (spec §3 lifecycle).
func (s *Service) RemoveSource(name string) {
	s.mu.RLock()
	src, ok := s.sources[name]
	s.mu.RUnlock()
	if !ok {
		return
	}
	src.deactivate()
	s.reapIfZombie(name)
}

func (s *Service) reapIfZombie(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if src, ok := s.sources[name]; ok && src.zombie() {
		delete(s.sources, name)
	}
}

// Subscribe returns a channel that receives a SyncEvent after every
// sampling pass.
func (s *Service) Subscribe() <-chan SyncEvent {
	ch := make(chan SyncEvent, 1)
	s.mu.Lock()
	s.subscribers = append(s.subscribers, ch)
	s.mu.Unlock()
	return ch
}

func (s *Service) publish(ev SyncEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
			// Slow subscriber: drop rather than block the sampler, same
			// spirit as the pool-based "allocation failed, drop" rule in
			// spec §5 for StatusChanged.
		}
	}
}

// Run executes the periodic sampling loop until ctx is cancelled. It is
// meant to be the body of the clock-feed task's goroutine.
func (s *Service) Run(ctx context.Context) {
	period := time.Duration(1) << uint(s.baseLog2) * time.Second
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Service) tick() {
	mono := time.Now()
	system, err := s.sysclk.Now()
	if err != nil {
		log.Errorf("clockfeed: failed to read system clock: %v", err)
		return
	}

	s.mu.RLock()
	srcs := make([]*Source, 0, len(s.sources))
	for _, src := range s.sources {
		srcs = append(srcs, src)
	}
	s.mu.RUnlock()

	for _, src := range srcs {
		if !src.due() {
			continue
		}
		s.sampleOne(src, mono, system)
	}

	s.publish(SyncEvent{At: mono})
}

func (s *Service) sampleOne(src *Source, mono, system time.Time) {
	seq := src.ring.writeCount()
	sample := Sample{Seq: seq, Mono: mono, System: system}

	if !src.isActive() {
		sample.Rc = errkind.Dead
	} else if clkTime, err := src.clk.Now(); err != nil {
		log.Debugf("clockfeed: sampling %s failed: %v", src.Name(), err)
		sample.Rc = errkind.Fatal
	} else {
		diff := clkTime.Sub(system)
		sample.Snapshot = system.Add(diff)
	}
	src.ring.Write(sample)
}

// shutdown moves every source to inactive and reaps the ones with no
// subscribers, per spec §5 shutdown behavior.
func (s *Service) shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, src := range s.sources {
		src.deactivate()
		if src.zombie() {
			delete(s.sources, name)
		}
	}
}
