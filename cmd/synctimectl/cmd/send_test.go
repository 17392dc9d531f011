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

package cmd

import (
	"net"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSendRun(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "control")
	ln, err := net.ListenUnixgram("unixgram", &net.UnixAddr{Name: socket, Net: "unixgram"})
	require.NoError(t, err)
	defer ln.Close()

	require.NoError(t, sendRun(socket, "stepclocks"))

	buf := make([]byte, 64)
	n, err := ln.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "stepclocks", string(buf[:n]))
}

func TestSendRunNoListener(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "no-such-socket")
	require.Error(t, sendRun(socket, "exit"))
}
