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

package clock

import (
	"encoding/binary"
	"fmt"
	"net"
)

// Identity is an 8-byte EUI-64-like stable hardware identifier for a clock.
type Identity uint64

// String renders the identity the way PTP clock IDs are conventionally
// printed, as 8 colon-separated hex bytes.
func (id Identity) String() string {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(id))
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x:%02x:%02x",
		b[0], b[1], b[2], b[3], b[4], b[5], b[6], b[7])
}

// NewIdentity builds a clock Identity from a MAC address padded with a
// two-byte suffix, generalizing the EUI-48->EUI-64 padding convention
// (fixed at 0xFF/0xFE for PTP port identities) into a configurable suffix,
// so unrelated NICs sharing an OUI don't collide when the suffix differs.
func NewIdentity(mac net.HardwareAddr, suffix [2]byte) (Identity, error) {
	b := [8]byte{}
	switch len(mac) {
	case 6: // EUI-48
		b[0], b[1], b[2] = mac[0], mac[1], mac[2]
		b[3], b[4] = suffix[0], suffix[1]
		b[5], b[6], b[7] = mac[3], mac[4], mac[5]
	case 8: // already EUI-64
		copy(b[:], mac)
	default:
		return 0, fmt.Errorf("unsupported MAC %v, must be EUI-48 or EUI-64", mac)
	}
	return Identity(binary.BigEndian.Uint64(b[:])), nil
}
