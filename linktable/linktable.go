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

// Package linktable gives the engine the netlink-based interface discovery
// spec §1 lists as "assumed to deliver a LinkTable to the engine": the set
// of network interfaces a NIC hardware clock's PHC could be attached to,
// keyed by the clock identity derived from the interface's MAC address.
package linktable

import (
	"net"

	"github.com/Xilinx-CNS/sfptpd-go/clock"
)

// Link describes one network interface the engine can associate a PHC
// Clock with.
type Link struct {
	Name    string
	Index   int
	MAC     net.HardwareAddr
	Up      bool
	ClockID clock.Identity
}

// LinkTable resolves network interfaces to the clock identities the rest of
// the system addresses clocks by.
type LinkTable interface {
	// Links returns every interface currently known to the kernel.
	Links() ([]Link, error)
	// ByClockID looks up the interface backing a given PHC, if any.
	ByClockID(id clock.Identity) (Link, bool, error)
}
