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
	"os"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// DefaultMaxClockFreqPPB mirrors linuxptp's clockadj.c fallback, used when a
// device reports no tolerance of its own.
const DefaultMaxClockFreqPPB = 500000.0

// PHC is the Capability implementation for a NIC hardware clock device
// (/dev/ptpN), grounded on facebook-time/phc's Device: clock_gettime via the
// FD-encoded dynamic clock ID, and CLOCK_ADJTIME for step/slew.
type PHC struct {
	file    *os.File
	clockID int32
}

// OpenPHC opens the PHC character device at path.
func OpenPHC(path string) (*PHC, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("opening PHC device %s: %w", path, err)
	}
	// FD_TO_CLOCKID, see clock_gettime(3) / linuxptp testptp.c.
	clockID := int32((int(^f.Fd()) << 3) | 3)
	return &PHC{file: f, clockID: clockID}, nil
}

// Close releases the underlying device file.
func (p *PHC) Close() error { return p.file.Close() }

// Now reads the PHC's current time via clock_gettime.
func (p *PHC) Now() (time.Time, error) {
	var ts unix.Timespec
	if err := unix.ClockGettime(p.clockID, &ts); err != nil {
		return time.Time{}, fmt.Errorf("clock_gettime on %s: %w", p.file.Name(), err)
	}
	return time.Unix(ts.Unix()), nil
}

// Step jumps the PHC by d.
func (p *PHC) Step(d time.Duration) error {
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
	_, err := adjtime(p.clockID, tx)
	return err
}

// AdjustFrequency slews the PHC by freqPPB.
func (p *PHC) AdjustFrequency(freqPPB float64) error {
	tx := &unix.Timex{Modes: adjFrequency}
	tx.Freq = int64(freqPPB * ppbToTimexPPM)
	_, err := adjtime(p.clockID, tx)
	return err
}

// MaxFrequencyPPB returns the device's reported frequency tolerance.
func (p *PHC) MaxFrequencyPPB() (float64, error) {
	tx := &unix.Timex{}
	if _, err := adjtime(p.clockID, tx); err != nil {
		return 0, err
	}
	max := float64(tx.Tolerance) / ppbToTimexPPM
	if max == 0 {
		max = DefaultMaxClockFreqPPB
	}
	return max, nil
}

// IfaceToPHCDevice resolves a network interface name to its PHC device
// path via the ethtool SIOCETHTOOL ioctl, grounded on facebook-time/phc's
// IfaceToPHCDevice/IfaceInfo.
func IfaceToPHCDevice(iface string) (string, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM, 0)
	if err != nil {
		return "", fmt.Errorf("creating ioctl socket: %w", err)
	}
	defer unix.Close(fd)

	type ethtoolTSInfo struct {
		Cmd            uint32
		SOtimestamping uint32
		PHCIndex       int32
		TXTypes        uint32
		TXReserved     [3]uint32
		RXFilters      uint32
		RXReserved     [3]uint32
	}
	type ifreq struct {
		Name [unix.IFNAMSIZ]byte
		Data uintptr
	}

	data := &ethtoolTSInfo{Cmd: unix.ETHTOOL_GET_TS_INFO}
	req := &ifreq{}
	copy(req.Name[:unix.IFNAMSIZ-1], iface)
	req.Data = uintptr(unsafe.Pointer(data))

	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(unix.SIOCETHTOOL), uintptr(unsafe.Pointer(req)))
	if errno != 0 {
		return "", fmt.Errorf("SIOCETHTOOL on %s: %w", iface, errno)
	}
	if data.PHCIndex < 0 {
		return "", fmt.Errorf("interface %s has no associated PHC", iface)
	}
	return fmt.Sprintf("/dev/ptp%d", data.PHCIndex), nil
}
