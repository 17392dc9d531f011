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
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewIdentityEUI48(t *testing.T) {
	mac := net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	id, err := NewIdentity(mac, [2]byte{0xAB, 0xCD})
	require.NoError(t, err)
	require.Equal(t, "00:11:22:ab:cd:33:44:55", id.String())
}

func TestNewIdentityBadLength(t *testing.T) {
	_, err := NewIdentity(net.HardwareAddr{0x01, 0x02}, [2]byte{})
	require.Error(t, err)
}

func TestRegistrySingleSystemClock(t *testing.T) {
	reg := NewRegistry()
	sys := New(Identity(1), "system", RoleSystem, FreeRunning{})
	require.NoError(t, reg.Add(sys))

	other := New(Identity(2), "system2", RoleSystem, FreeRunning{})
	require.Error(t, reg.Add(other))

	phc := New(Identity(3), "eth0", RolePHC, FreeRunning{})
	require.NoError(t, reg.Add(phc))

	got, ok := reg.System()
	require.True(t, ok)
	require.Equal(t, sys, got)

	require.Error(t, reg.Remove("system"))
	require.NoError(t, reg.Remove("eth0"))
	_, ok = reg.Get("eth0")
	require.False(t, ok)
}

func TestClockBlockedRefusesWrites(t *testing.T) {
	c := New(Identity(1), "eth0", RolePHC, FreeRunning{})
	c.SetBlocked(true)
	require.Error(t, c.Step(0))
	require.Error(t, c.AdjustFrequency(1))
	c.SetBlocked(false)
	require.NoError(t, c.Step(0))
}
