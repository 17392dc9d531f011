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

// Package clockfeed implements the periodic clock-vs-system-clock sampler
// (component B): a single writer samples every tracked clock, publishes
// each sample into a per-clock lock-free ring buffer, and serves
// freshness-constrained comparisons to concurrent reader tasks (servos).
package clockfeed

import (
	"sync/atomic"
	"time"

	"github.com/Xilinx-CNS/sfptpd-go/errkind"
)

// Depth is the ring's fixed depth (N in spec §3/§8).
const Depth = 16

// Sample is one published clock-vs-system comparison. Rc is zero on
// success; a non-zero Rc means Snapshot is zeroed and the sample carries an
// error instead.
type Sample struct {
	Seq      uint64
	Mono     time.Time
	System   time.Time
	Snapshot time.Time
	Rc       errkind.Kind
}

// Diff recovers (clock - system) from a successful sample.
func (s Sample) Diff() time.Duration { return s.Snapshot.Sub(s.System) }

// ring is the lock-free single-writer/many-reader structure described in
// spec §3: each slot holds an atomic pointer to the most recently published
// Sample (copy-on-write, so readers never observe a torn struct), and
// WriteCounter is bumped only after the new sample is visible, giving
// readers a release/acquire pair to detect whether their read was
// overtaken by the writer (see read in subscription.go). sync/atomic is used directly
// rather than a third-party ring-buffer package because none of the pack's
// dependencies implement this exact seqlock-style publish/overrun-detect
// contract (see DESIGN.md).
type ring struct {
	slots        [Depth]atomic.Pointer[Sample]
	writeCounter atomic.Uint64
}

// Write publishes a new sample. Only the clock-feed service's own goroutine
// ever calls this for a given ring (single writer, per spec §5).
func (r *ring) Write(s Sample) {
	idx := s.Seq % Depth
	r.slots[idx].Store(&s)
	// Publish write_counter last: readers that observe the new counter
	// value are guaranteed (by Go's sequentially consistent atomics) to
	// also observe the slot store above.
	r.writeCounter.Store(s.Seq + 1)
}

// writeCount returns the most recently published write counter.
func (r *ring) writeCount() uint64 { return r.writeCounter.Load() }

// at returns the sample stored at ring index seq mod Depth.
func (r *ring) at(seq uint64) *Sample { return r.slots[seq%Depth].Load() }
