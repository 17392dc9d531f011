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
	"github.com/Xilinx-CNS/sfptpd-go/syncmodule"
)

// entry is what the engine keeps per registered instance: enough to send it
// messages and to judge it in the rule pipeline.
type entry struct {
	inst   syncmodule.Instance
	status syncmodule.InstanceStatus
	have   bool
}

// table is the engine's private map of sync-module instances, owned
// exclusively by the engine task per spec §5: other tasks see only handles.
type table struct {
	rows map[syncmodule.Handle]*entry
}

func newTable() *table {
	return &table{rows: make(map[syncmodule.Handle]*entry)}
}

func (t *table) register(inst syncmodule.Instance) {
	t.rows[inst.Handle()] = &entry{inst: inst}
}

func (t *table) unregister(h syncmodule.Handle) {
	delete(t.rows, h)
}

func (t *table) setStatus(h syncmodule.Handle, status syncmodule.InstanceStatus) {
	e, ok := t.rows[h]
	if !ok {
		return
	}
	e.status = status
	e.have = true
}

func (t *table) get(h syncmodule.Handle) (*entry, bool) {
	e, ok := t.rows[h]
	return e, ok
}

// candidates returns every registered instance whose last reported status
// passes the candidacy filter of spec §4.4: state in {slave, master}, no
// alarms, and not constrained out.
func (t *table) candidates() []candidate {
	out := make([]candidate, 0, len(t.rows))
	for h, e := range t.rows {
		if !e.have {
			continue
		}
		if !isCandidate(e.status) {
			continue
		}
		out = append(out, candidate{handle: h, status: e.status})
	}
	return out
}

func isCandidate(s syncmodule.InstanceStatus) bool {
	if s.State != syncmodule.StateSlave && s.State != syncmodule.StateMaster {
		return false
	}
	if s.Alarms != 0 {
		return false
	}
	if s.Constraints&syncmodule.ConstraintCannotBeSelected != 0 {
		return false
	}
	return true
}

// forEach visits every registered handle, for dumptables rendering.
func (t *table) forEach(fn func(h syncmodule.Handle, e *entry)) {
	for h, e := range t.rows {
		fn(h, e)
	}
}

func (t *table) size() int { return len(t.rows) }
