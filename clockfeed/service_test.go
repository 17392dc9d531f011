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

func TestServiceSampleOneRecordsOffset(t *testing.T) {
	sysclk := clock.FreeRunning{}
	clk := clock.New(clock.Identity(1), "phc0", clock.RolePHC, clock.FreeRunning{})

	svc := NewService(0, sysclk)
	src := svc.AddSource(clk, 0)

	now := time.Now()
	svc.sampleOne(src, now, now)

	sample := src.ring.at(0)
	require.Equal(t, errkind.Kind(0), sample.Rc)
}

func TestServiceSampleOneMarksDeadSourceInactive(t *testing.T) {
	sysclk := clock.FreeRunning{}
	clk := clock.New(clock.Identity(1), "phc0", clock.RolePHC, clock.FreeRunning{})

	svc := NewService(0, sysclk)
	src := svc.AddSource(clk, 0)
	src.deactivate()

	now := time.Now()
	svc.sampleOne(src, now, now)

	sample := src.ring.at(0)
	require.NotEqual(t, errkind.Kind(0), sample.Rc)
}

func TestServiceDuePollDivisor(t *testing.T) {
	sysclk := clock.FreeRunning{}
	clk := clock.New(clock.Identity(1), "phc0", clock.RolePHC, clock.FreeRunning{})

	svc := NewService(0, sysclk)
	// sourceLog2 2 base 0 => pollMask 3, due on cycles 0,4,8...
	src := svc.AddSource(clk, 2)

	var dueCount int
	for i := 0; i < 8; i++ {
		if src.due() {
			dueCount++
		}
	}
	require.Equal(t, 2, dueCount)
}

func TestServiceReapIfZombie(t *testing.T) {
	sysclk := clock.FreeRunning{}
	clk := clock.New(clock.Identity(1), "phc0", clock.RolePHC, clock.FreeRunning{})

	svc := NewService(0, sysclk)
	src := svc.AddSource(clk, 0)
	sub := svc.SubscribeTo(src, nil, nil)

	svc.RemoveSource("phc0")
	_, stillThere := svc.sources["phc0"]
	require.True(t, stillThere, "source with a live subscriber must not be reaped")

	sub.Close()
	svc.reapIfZombie("phc0")
	_, stillThere = svc.sources["phc0"]
	require.False(t, stillThere)
}
