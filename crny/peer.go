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

package crny

import (
	"net"
	"time"

	"github.com/Xilinx-CNS/sfptpd-go/chrony"
)

const maxPeers = 32

// peer is one entry chronyd reported, merging its SOURCE_DATA_ITEM and
// (if applicable) NTP_DATA views, spec §3.
type peer struct {
	addr         net.IP
	selected     bool
	shortlist    bool
	candidate    bool
	self         bool
	stratum      uint16
	offset       time.Duration
	rootDispersion float64
}

func newPeerFromSourceData(d *chrony.SourceData) peer {
	p := peer{addr: d.IPAddr, stratum: d.Stratum}
	switch d.State {
	case chrony.SourceStateSync:
		p.selected = true
	case chrony.SourceStateCandidate:
		p.shortlist = true
	}
	if d.Mode == chrony.SourceModeRef {
		p.self = true
	}
	return p
}

func (p *peer) applyNTPData(d *chrony.NTPData) {
	p.offset = time.Duration(d.Offset * float64(time.Second))
	p.rootDispersion = d.RootDispersion
	if d.Mode == 4 {
		p.candidate = true
	}
}

// offsetIDTuple is the fingerprint used to detect "the daemon recomputed
// an offset", spec §3. It holds only the selected peer's address (and
// whether that address is absent), so it changes when chronyd selects a
// different peer; a new offset computed against the same peer leaves it
// unchanged.
type offsetIDTuple struct {
	addr string
	zero bool
}

func newOffsetIDTuple(p peer) offsetIDTuple {
	return offsetIDTuple{addr: p.addr.String(), zero: p.addr == nil}
}
