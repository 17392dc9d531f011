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

// Package persist writes the per-instance snapshot files of spec §6: plain
// key:value text, one file per instance, overwritten on every SAVE_STATE
// cycle. This is a user-observability artefact, never read back as input.
package persist

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-ini/ini"

	"github.com/Xilinx-CNS/sfptpd-go/syncmodule"
)

// Writer persists one instance's status to <dir>/<instance_name>.
type Writer struct {
	dir string
}

// New creates a Writer rooted at dir; dir must already exist.
func New(dir string) *Writer {
	return &Writer{dir: dir}
}

// Save overwrites the snapshot file for h with st's fields, spec §6's key
// list.
func (w *Writer) Save(h syncmodule.Handle, st syncmodule.InstanceStatus, numPeers, numCandidates int) error {
	f := ini.Empty()
	sec, err := f.NewSection(ini.DefaultSection)
	if err != nil {
		return fmt.Errorf("persist: %s: new section: %w", h, err)
	}

	inSync := st.State == syncmodule.StateSlave || st.State == syncmodule.StateMaster
	kv := map[string]string{
		"state":            st.State.String(),
		"alarms":           fmt.Sprintf("0x%x", uint32(st.Alarms)),
		"constraints":      fmt.Sprintf("0x%x", uint8(st.Constraints)),
		"control-flags":    fmt.Sprintf("0x%x", uint8(st.CtrlFlags)),
		"offset-from-peer": fmt.Sprintf("%d", st.OffsetFromMaster.Nanoseconds()),
		"in-sync":          fmt.Sprintf("%v", inSync),
		"selected-peer":    st.Master.ClockID.String(),
		"num-peers":        fmt.Sprintf("%d", numPeers),
		"num-candidates":   fmt.Sprintf("%d", numCandidates),
		"clustering-score": fmt.Sprintf("%d", st.ClusteringScore),
	}
	for _, k := range []string{
		"state", "alarms", "constraints", "control-flags", "offset-from-peer",
		"in-sync", "selected-peer", "num-peers", "num-candidates", "clustering-score",
	} {
		if _, err := sec.NewKey(k, kv[k]); err != nil {
			return fmt.Errorf("persist: %s: set %s: %w", h, k, err)
		}
	}

	path := filepath.Join(w.dir, h.Name())
	tmp := path + ".tmp"
	ini.PrettyFormat = false
	ini.PrettySection = false
	if err := f.SaveTo(tmp); err != nil {
		return fmt.Errorf("persist: %s: write: %w", h, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("persist: %s: rename: %w", h, err)
	}
	return nil
}
