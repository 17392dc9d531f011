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

package accuracy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEstimatorZeroWithFewerThanTwoSamples(t *testing.T) {
	e := New()
	require.Zero(t, e.LocalAccuracy())
	require.Zero(t, e.AllanVariance())
	e.Add(10 * time.Microsecond)
	require.Zero(t, e.LocalAccuracy())
	require.Zero(t, e.AllanVariance())
}

func TestEstimatorConstantOffsetHasZeroVariance(t *testing.T) {
	e := New()
	for i := 0; i < 10; i++ {
		e.Add(5 * time.Microsecond)
	}
	require.InDelta(t, 0, e.LocalAccuracy(), 1e-12)
	require.InDelta(t, 0, e.AllanVariance(), 1e-12)
}

func TestEstimatorResetClearsState(t *testing.T) {
	e := New()
	e.Add(time.Millisecond)
	e.Add(2 * time.Millisecond)
	require.NotZero(t, e.LocalAccuracy())
	e.Reset()
	require.Zero(t, e.LocalAccuracy())
	e.Add(time.Microsecond)
	require.Zero(t, e.LocalAccuracy()) // single sample after reset
}
