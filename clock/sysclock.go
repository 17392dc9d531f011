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
	"fmt"
	"time"
	"unsafe"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// ppbToTimexPPM converts parts-per-billion to the ppm-with-16-bit-fraction
// unit clock_adjtime expects, per clock_adjtime(2).
const ppbToTimexPPM = 65.536

// adjtimex modes used below, from linux/timex.h.
const (
	adjFrequency uint32 = 0x0002
	adjStatus    uint32 = 0x0010
	adjMaxError  uint32 = 0x0004
	adjSetOffset uint32 = 0x0100
	adjNano      uint32 = 0x2000
)

func adjtime(clockid int32, tx *unix.Timex) (state int, err error) {
	r0, _, errno := unix.Syscall(unix.SYS_CLOCK_ADJTIME, uintptr(clockid), uintptr(unsafe.Pointer(tx)), 0)
	if errno != 0 {
		return int(r0), errno
	}
	return int(r0), nil
}

// SysClock is the Capability implementation for a host's CLOCK_REALTIME,
// grounded on facebook-time/clock's adjtimex wrappers and sptp/client's
// SysClock.
type SysClock struct {
	clockID int32
}

// NewSysClock returns the Capability for CLOCK_REALTIME.
func NewSysClock() *SysClock {
	return &SysClock{clockID: unix.CLOCK_REALTIME}
}

// Now returns the current system time.
func (s *SysClock) Now() (time.Time, error) { return time.Now(), nil }

// Step steps the system clock by d using CLOCK_ADJTIME(ADJ_SETOFFSET).
func (s *SysClock) Step(d time.Duration) error {
	sign := time.Duration(1)
	if d < 0 {
		sign = -1
		d = -d
	}
	tx := &unix.Timex{Modes: adjSetOffset | adjNano}
	tx.Time.Sec = int64(sign) * int64(d/time.Second)
	tx.Time.Usec = int64(sign) * int64(d%time.Second)
	if tx.Time.Usec < 0 {
		tx.Time.Sec--
		tx.Time.Usec += int64(time.Second)
	}
	state, err := adjtime(s.clockID, tx)
	if err == nil && state != unix.TIME_OK {
		log.Warnf("clock state %d not TIME_OK after stepping system clock", state)
	}
	return err
}

// AdjustFrequency slews the system clock by freqPPB.
func (s *SysClock) AdjustFrequency(freqPPB float64) error {
	tx := &unix.Timex{Modes: adjFrequency}
	tx.Freq = int64(freqPPB * ppbToTimexPPM)
	state, err := adjtime(s.clockID, tx)
	if err == nil && state != unix.TIME_OK {
		log.Warnf("clock state %d not TIME_OK after adjusting system clock frequency", state)
	}
	return err
}

// MaxFrequencyPPB reads the kernel-reported maximum frequency tolerance.
func (s *SysClock) MaxFrequencyPPB() (float64, error) {
	tx := &unix.Timex{}
	_, err := adjtime(s.clockID, tx)
	if err != nil {
		return 0, fmt.Errorf("reading system clock tolerance: %w", err)
	}
	max := float64(tx.Tolerance) / ppbToTimexPPM
	if max == 0 {
		max = DefaultMaxClockFreqPPB
	}
	return max, nil
}

// MarkSynchronized clears the kernel's "clock unsynchronized" leap status,
// mirroring clock.SetSync in facebook-time.
func (s *SysClock) MarkSynchronized() error {
	tx := &unix.Timex{Modes: adjStatus | adjMaxError}
	state, err := adjtime(s.clockID, tx)
	if err == nil && state != unix.TIME_OK {
		return fmt.Errorf("clock state %d not TIME_OK after marking synchronized", state)
	}
	return err
}
