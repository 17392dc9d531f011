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
	"sync"
	"sync/atomic"

	"github.com/Xilinx-CNS/sfptpd-go/clock"
)

// Source is one tracked clock: the ring buffer of its samples against the
// system clock, its polling divisor relative to the service's base period
// (source_log2 - base_log2 in spec §4.3), and the bookkeeping needed for
// zombie reaping once it is removed.
type Source struct {
	name     string
	clk      *clock.Clock
	sysclk   clock.Capability
	ring     ring
	cycles   atomic.Uint64
	pollMask uint64 // sample iff cycles % (pollMask+1) == 0

	mu          sync.Mutex
	active      bool
	subscribers int
}

func newSource(name string, clk *clock.Clock, sysclk clock.Capability, sourceLog2, baseLog2 int) *Source {
	shift := sourceLog2 - baseLog2
	if shift < 0 {
		shift = 0
	}
	return &Source{
		name:     name,
		clk:      clk,
		sysclk:   sysclk,
		pollMask: (uint64(1) << uint(shift)) - 1,
		active:   true,
	}
}

// Name returns the source's display name, borrowed from the wrapped clock.
func (s *Source) Name() string { return s.name }

// due reports whether this source should be sampled this tick, and
// advances its cycle counter either way.
func (s *Source) due() bool {
	c := s.cycles.Add(1) - 1
	return c&s.pollMask == 0
}

func (s *Source) isActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *Source) deactivate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
}

func (s *Source) addSubscriber() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers++
}

func (s *Source) removeSubscriber() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subscribers > 0 {
		s.subscribers--
	}
}

// zombie reports whether this source is inactive and has no more
// subscribers, i.e. it is eligible for reaping.
func (s *Source) zombie() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.active && s.subscribers == 0
}
