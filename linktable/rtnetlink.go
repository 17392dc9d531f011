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

package linktable

import (
	"fmt"
	"net"

	"github.com/jsimonetti/rtnetlink/rtnl"

	"github.com/Xilinx-CNS/sfptpd-go/clock"
)

// ClockIDSuffix is the padding byte pair used to widen an interface's
// EUI-48 MAC into the EUI-64-shaped clock.Identity, spec §3's
// "configurable unique suffix".
var ClockIDSuffix = [2]byte{0xff, 0xfe}

// rtnetlinkTable is a LinkTable backed by a live netlink connection,
// grounded on responder/server/ip.go's rtnl.Dial usage — here used to
// enumerate rather than mutate interfaces.
type rtnetlinkTable struct{}

// New returns a LinkTable that queries the kernel's link state on every
// call; there is no caching, since it is consulted only by the daemon's
// PHC discovery at startup, not on a hot path.
func New() LinkTable {
	return rtnetlinkTable{}
}

func (rtnetlinkTable) Links() ([]Link, error) {
	conn, err := rtnl.Dial(nil)
	if err != nil {
		return nil, fmt.Errorf("linktable: dial netlink: %w", err)
	}
	defer conn.Close()

	links, err := conn.Links()
	if err != nil {
		return nil, fmt.Errorf("linktable: list links: %w", err)
	}

	out := make([]Link, 0, len(links))
	for _, l := range links {
		mac := l.Attrs.HardwareAddr
		entry := Link{
			Name:  l.Attrs.Name,
			Index: l.Attrs.Index,
			MAC:   mac,
			Up:    l.Attrs.Flags&net.FlagUp != 0,
		}
		if len(mac) == 6 {
			if id, err := clock.NewIdentity(mac, ClockIDSuffix); err == nil {
				entry.ClockID = id
			}
		}
		out = append(out, entry)
	}
	return out, nil
}

func (t rtnetlinkTable) ByClockID(id clock.Identity) (Link, bool, error) {
	links, err := t.Links()
	if err != nil {
		return Link{}, false, err
	}
	for _, l := range links {
		if l.ClockID == id {
			return l, true, nil
		}
	}
	return Link{}, false, nil
}
