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
	"time"

	"github.com/Xilinx-CNS/sfptpd-go/errkind"
)

// Subscription is a reader handle into one Source's ring buffer, carrying
// the freshness constraints spec §4.3 attaches to a reader: a floor on the
// sequence numbers it will accept (min_counter) and optional maximum ages.
type Subscription struct {
	src *Source

	readCounter uint64
	minCounter  uint64
	maxAge      *time.Duration
	maxAgeDiff  *time.Duration
}

// SubscribeTo creates a Subscription against src, with optional freshness
// bounds. Source bookkeeping is safe for concurrent access, so this needs
// no cross-goroutine call into the service's own task loop.
func (s *Service) SubscribeTo(src *Source, maxAge, maxAgeDiff *time.Duration) *Subscription {
	src.addSubscriber()
	return &Subscription{src: src, maxAge: maxAge, maxAgeDiff: maxAgeDiff}
}

// Close releases the subscription, allowing its source to be reaped once
// inactive (spec §3 zombie-reap lifecycle).
func (sub *Subscription) Close() {
	sub.src.removeSubscriber()
}

// RequireFresh raises the subscription's floor so the next read only
// accepts samples published after this call (spec §4.3).
func (sub *Subscription) RequireFresh() {
	sub.minCounter = sub.readCounter + 1
}

// readResult is what a single-subscription read produces before being
// combined into a two-way Compare.
type readResult struct {
	diff time.Duration
	mono time.Time
}

// read implements the per-subscription half of spec §4.3's compare()
// contract. A nil sub represents "the system clock", which trivially has
// zero diff from itself and is always fresh.
func read(sub *Subscription, now time.Time) (readResult, error) {
	if sub == nil {
		return readResult{diff: 0, mono: now}, nil
	}

	src := sub.src
	w1 := src.ring.writeCount()
	if w1 == 0 {
		return readResult{}, errkind.New(errkind.TryAgain, "no sample published yet")
	}
	sample := src.ring.at(w1 - 1)
	if sample.Rc != 0 {
		return readResult{}, errkind.Wrap(sample.Rc, "propagated from sample", nil)
	}

	w2 := src.ring.writeCount()
	if w2 >= w1+Depth-1 {
		return readResult{}, errkind.New(errkind.NoData, "reader overrun")
	}
	if !src.isActive() {
		return readResult{}, errkind.New(errkind.Dead, "source removed")
	}
	if !src.clk.Active() {
		return readResult{}, errkind.New(errkind.Dead, "underlying clock no longer active")
	}
	if sub.minCounter > w1 {
		return readResult{}, errkind.New(errkind.Stale, "sample older than required freshness floor")
	}
	if sub.maxAge != nil && now.Sub(sample.Mono) > *sub.maxAge {
		return readResult{}, errkind.New(errkind.Stale, "sample older than max_age")
	}

	sub.readCounter = w1
	return readResult{diff: sample.Diff(), mono: sample.Mono}, nil
}

// Compare implements spec §4.3's compare(sub1, sub2): either argument may
// be nil, meaning "the system clock".
func Compare(sub1, sub2 *Subscription) (time.Duration, error) {
	now := time.Now()
	r1, err := read(sub1, now)
	if err != nil {
		return 0, err
	}
	r2, err := read(sub2, now)
	if err != nil {
		return 0, err
	}

	if sub1 != nil && sub2 != nil {
		maxAgeDiff := sub1.maxAgeDiff
		if maxAgeDiff == nil {
			maxAgeDiff = sub2.maxAgeDiff
		}
		if maxAgeDiff != nil {
			delta := r1.mono.Sub(r2.mono)
			if delta < 0 {
				delta = -delta
			}
			if delta > *maxAgeDiff {
				return 0, errkind.New(errkind.Stale, "sources disagree in age beyond max_age_diff")
			}
		}
	}

	return r1.diff - r2.diff, nil
}
