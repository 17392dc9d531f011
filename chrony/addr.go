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

package chrony

import (
	log "github.com/sirupsen/logrus"

	"net"
)

// Address family discriminators, see spec §4.2.1.
const (
	addrUnspec uint16 = 0
	addrInet4  uint16 = 1
	addrInet6  uint16 = 2
)

// ipAddr is the wire format for a peer address: a 20-byte structure with a
// discriminator and a union big enough for an IPv6 address.
type ipAddr struct {
	IP     [16]uint8
	Family uint16
	Pad    uint16
}

func newIPAddr(ip net.IP) *ipAddr {
	a := &ipAddr{}
	if ip4 := ip.To4(); ip4 != nil {
		copy(a.IP[:], ip4)
		a.Family = addrInet4
		return a
	}
	if ip16 := ip.To16(); ip16 != nil {
		copy(a.IP[:], ip16)
		a.Family = addrInet6
		return a
	}
	a.Family = addrUnspec
	return a
}

// ToNetIP maps the wire address to a net.IP, or nil for unspecified.
// IPv6 addresses are returned as-is, never v4-in-v6 mapped.
func (a ipAddr) ToNetIP() net.IP {
	switch a.Family {
	case addrInet4:
		return net.IP(a.IP[:4])
	case addrInet6:
		return net.IP(a.IP[:])
	default:
		if a.Family != addrUnspec {
			log.Debugf("chrony: unknown address family %d, treating as unspecified", a.Family)
		}
		return nil
	}
}
