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

package engine

import (
	"time"

	"github.com/Xilinx-CNS/sfptpd-go/syncmodule"
)

// selector runs the candidacy filter, rule pipeline and holdoff timer of
// spec §4.4. It never talks to instances directly; commit decides what to
// do with the result.
type selector struct {
	policy   SelectionPolicy
	pipeline []comparator

	manualOverridden bool // manual-startup has left manual mode

	haveSelected bool
	selected     syncmodule.Handle

	havePending  bool
	pendingSince time.Time
	pendingWhom  syncmodule.Handle
}

func newSelector(policy SelectionPolicy) (*selector, error) {
	var custom comparator
	if policy.CustomExpr != "" {
		c, err := newCustomExprComparator(policy.CustomExpr)
		if err != nil {
			return nil, err
		}
		custom = c
	}
	return &selector{
		policy:   policy,
		pipeline: buildPipeline(policy.Rules, policy.InitialSyncInstance, custom),
	}, nil
}

// overrideManual records an operator's explicit selectinstance command,
// which ends manual-startup's manual phase per spec §4.4.
func (s *selector) overrideManual(name string) {
	s.manualOverridden = true
	s.policy.InitialSyncInstance = name
	var custom comparator
	if s.policy.CustomExpr != "" {
		custom, _ = newCustomExprComparator(s.policy.CustomExpr)
	}
	s.pipeline = buildPipeline(s.policy.Rules, name, custom)
}

func (s *selector) effectiveStrategy() Strategy {
	if s.policy.Strategy == StrategyManualStartup {
		if s.manualOverridden {
			return StrategyAutomatic
		}
		return StrategyManual
	}
	return s.policy.Strategy
}

// desired computes this tick's winner, per spec §4.4's strategy rules. ok
// is false when no winner can currently be determined.
func (s *selector) desired(tbl *table) (syncmodule.Handle, bool) {
	switch s.effectiveStrategy() {
	case StrategyManual:
		var found syncmodule.Handle
		var ok bool
		tbl.forEach(func(h syncmodule.Handle, _ *entry) {
			if h.Name() == s.policy.InitialSyncInstance {
				found, ok = h, true
			}
		})
		return found, ok
	default: // automatic, or manual-startup after override
		cands := tbl.candidates()
		if len(cands) == 0 {
			return syncmodule.Handle{}, false
		}
		return best(cands, s.pipeline).handle, true
	}
}

// commitResult describes what tick decided, if anything.
type commitResult struct {
	committed bool
	winner    syncmodule.Handle
	hadPrev   bool
	prev      syncmodule.Handle
}

// tick evaluates the holdoff state machine against the current table and
// reports whether a new selection should be committed now.
func (s *selector) tick(tbl *table, now time.Time) commitResult {
	desired, ok := s.desired(tbl)
	if !ok {
		return commitResult{}
	}
	if s.haveSelected && desired == s.selected {
		s.havePending = false
		return commitResult{}
	}

	// An instance winning when nothing is currently selected is not "a
	// different instance winning" — there is nothing to hold off against.
	if !s.haveSelected {
		s.havePending = false
		s.selected = desired
		s.haveSelected = true
		return commitResult{committed: true, winner: desired}
	}

	if !s.havePending || s.pendingWhom != desired {
		s.havePending = true
		s.pendingWhom = desired
		s.pendingSince = now
	}
	if now.Sub(s.pendingSince) < s.policy.HoldoffInterval {
		return commitResult{}
	}

	res := commitResult{committed: true, winner: desired, hadPrev: true, prev: s.selected}
	s.selected = desired
	s.havePending = false
	return res
}

// current returns the engine's present selection, if any.
func (s *selector) current() (syncmodule.Handle, bool) {
	return s.selected, s.haveSelected
}
