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

package clockfeed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Xilinx-CNS/sfptpd-go/clock"
	"github.com/Xilinx-CNS/sfptpd-go/errkind"
)

func TestCompareAgainstSystemClockIsZero(t *testing.T) {
	diff, err := Compare(nil, nil)
	require.NoError(t, err)
	require.Equal(t, time.Duration(0), diff)
}

func TestSubscriptionTryAgainBeforeFirstSample(t *testing.T) {
	sysclk := clock.FreeRunning{}
	clk := clock.New(clock.Identity(1), "phc0", clock.RolePHC, clock.FreeRunning{})
	svc := NewService(0, sysclk)
	src := svc.AddSource(clk, 0)
	sub := svc.SubscribeTo(src, nil, nil)

	_, err := Compare(sub, nil)
	require.True(t, errkind.Is(err, errkind.TryAgain))
}

func TestSubscriptionRequireFreshMonotonicity(t *testing.T) {
	sysclk := clock.FreeRunning{}
	clk := clock.New(clock.Identity(1), "phc0", clock.RolePHC, clock.FreeRunning{})
	svc := NewService(0, sysclk)
	src := svc.AddSource(clk, 0)
	sub := svc.SubscribeTo(src, nil, nil)

	now := time.Now()
	svc.sampleOne(src, now, now)

	_, err := Compare(sub, nil)
	require.NoError(t, err)

	sub.RequireFresh()
	// No new sample has been published since RequireFresh, so the next
	// read must reject the one it already consumed.
	_, err = Compare(sub, nil)
	require.True(t, errkind.Is(err, errkind.Stale))

	svc.sampleOne(src, time.Now(), time.Now())
	_, err = Compare(sub, nil)
	require.NoError(t, err)
}

func TestSubscriptionDeadAfterSourceRemoved(t *testing.T) {
	sysclk := clock.FreeRunning{}
	clk := clock.New(clock.Identity(1), "phc0", clock.RolePHC, clock.FreeRunning{})
	svc := NewService(0, sysclk)
	src := svc.AddSource(clk, 0)
	sub := svc.SubscribeTo(src, nil, nil)

	now := time.Now()
	svc.sampleOne(src, now, now)
	src.deactivate()

	_, err := Compare(sub, nil)
	require.True(t, errkind.Is(err, errkind.Dead))
}

func TestSubscriptionMaxAgeDiffRejectsDisagreement(t *testing.T) {
	sysclk := clock.FreeRunning{}
	clkA := clock.New(clock.Identity(1), "phcA", clock.RolePHC, clock.FreeRunning{})
	clkB := clock.New(clock.Identity(2), "phcB", clock.RolePHC, clock.FreeRunning{})
	svc := NewService(0, sysclk)
	srcA := svc.AddSource(clkA, 0)
	srcB := svc.AddSource(clkB, 0)

	bound := 10 * time.Millisecond
	subA := svc.SubscribeTo(srcA, nil, &bound)
	subB := svc.SubscribeTo(srcB, nil, nil)

	t0 := time.Now()
	svc.sampleOne(srcA, t0, t0)
	svc.sampleOne(srcB, t0.Add(time.Second), t0.Add(time.Second))

	_, err := Compare(subA, subB)
	require.True(t, errkind.Is(err, errkind.Stale))
}
