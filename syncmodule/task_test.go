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

package syncmodule

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHandleStableAndDistinct(t *testing.T) {
	h1, err := NewHandle(KindCrny, "crny0")
	require.NoError(t, err)
	h2, err := NewHandle(KindCrny, "crny0")
	require.NoError(t, err)
	require.Equal(t, h1.ID(), h2.ID())

	h3, err := NewHandle(KindPTP, "crny0")
	require.NoError(t, err)
	require.NotEqual(t, h1.ID(), h3.ID())
}

func TestHandleRejectsBadName(t *testing.T) {
	_, err := NewHandle(KindFreerun, "")
	require.Error(t, err)
}

func TestPostStatusDebouncesEquivalentUpdates(t *testing.T) {
	engine := make(chan EngineEvent, 4)
	h, _ := NewHandle(KindFreerun, "local1")
	b := NewBase(h, engine)

	b.PostStatus(InstanceStatus{State: StateListening})
	b.PostStatus(InstanceStatus{State: StateListening})
	require.Len(t, engine, 1)

	b.PostStatus(InstanceStatus{State: StateSlave})
	require.Len(t, engine, 2)
}
