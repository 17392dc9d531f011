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

package crny

import (
	"errors"
	"fmt"
	"os/exec"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/process"

	"github.com/Xilinx-CNS/sfptpd-go/clock"
	"github.com/Xilinx-CNS/sfptpd-go/errkind"
	"github.com/Xilinx-CNS/sfptpd-go/syncmodule"
)

// ctrlOp is one of the operations the adapter can ask the helper script to
// perform, spec §4.2.3.
type ctrlOp int

// Operations.
const (
	opNop ctrlOp = iota
	opEnable
	opDisable
	opSave
	opRestore
	opRestoreNoRestart
)

func (o ctrlOp) String() string {
	switch o {
	case opEnable:
		return "enable"
	case opDisable:
		return "disable"
	case opSave:
		return "save"
	case opRestore:
		return "restore"
	case opRestoreNoRestart:
		return "restorenorestart"
	default:
		return "nop"
	}
}

// errNoHelper is returned when a stateful operation is requested but no
// helper script is configured; such an adapter can only observe, not act.
var errNoHelper = errors.New("crny: no clock-control helper configured")

// controller tracks the probed clock-control state and drives the helper
// script per the collapsing rules of spec §4.2.3.
type controller struct {
	helperPath  string
	minInterval time.Duration

	wanted syncmodule.CtrlFlags

	haveObserved bool
	observed     bool // true: chrony is disciplining the system clock

	saved         bool
	controlAtSave bool

	lastInvoke time.Time
}

func newController(helperPath string, minInterval time.Duration) *controller {
	return &controller{helperPath: helperPath, minInterval: minInterval}
}

// mustBeSelected and cannotBeSelected implement the constraint bits of
// spec §4.2.3: set only when the user has no helper to override the
// daemon's current behaviour.
func (c *controller) mustBeSelected() bool {
	return c.haveObserved && c.observed && c.helperPath == ""
}

func (c *controller) cannotBeSelected() bool {
	return c.haveObserved && !c.observed && c.helperPath == ""
}

func (c *controller) wantsClockCtrl() bool {
	return c.wanted&syncmodule.CtrlClockCtrl != 0
}

// needsReconcile reports whether the observed state disagrees with what
// the engine wants, meaning the socket must be closed before invoking the
// helper (spec §4.2.3).
func (c *controller) needsReconcile() bool {
	return c.haveObserved && c.observed != c.wantsClockCtrl()
}

// observe records a freshly probed clock-control state, performing the
// one-time SAVE and blocking/unblocking the system clock on transitions.
func (c *controller) observe(disciplining bool, sys *clock.Clock) {
	first := !c.haveObserved
	changed := first || c.observed != disciplining
	c.observed = disciplining
	c.haveObserved = true

	if first {
		if err := c.save(); err != nil && !errors.Is(err, errNoHelper) {
			// Nothing further to do: SAVE failing just means RESTORE at
			// shutdown has nothing authoritative to fall back to.
			_ = err
		}
	}
	if changed {
		sys.SetBlocked(disciplining)
	}
}

// reconcile is called after a CONTROL message changes what the engine
// wants; the caller must already have closed the control socket.
func (c *controller) reconcile(sys *clock.Clock) error {
	if !c.needsReconcile() {
		return nil
	}
	var err error
	if c.wantsClockCtrl() {
		err = c.enable()
	} else {
		err = c.disable()
	}
	if err != nil {
		return err
	}
	c.observed = c.wantsClockCtrl()
	sys.SetBlocked(c.observed)
	return nil
}

func (c *controller) save() error {
	if c.saved {
		return nil
	}
	c.controlAtSave = c.observed
	c.saved = true
	return c.invoke(opSave)
}

func (c *controller) enable() error {
	if c.observed {
		return nil
	}
	return c.invokeGated(opEnable)
}

func (c *controller) disable() error {
	if !c.observed {
		return nil
	}
	return c.invokeGated(opDisable)
}

// restore issues RESTORE, collapsed to RESTORE_NORESTART if the current
// state already matches what was recorded at SAVE time.
func (c *controller) restore() error {
	if !c.saved {
		return nil
	}
	op := opRestore
	if c.observed == c.controlAtSave {
		op = opRestoreNoRestart
	}
	return c.invoke(op)
}

func (c *controller) invokeGated(op ctrlOp) error {
	if !c.lastInvoke.IsZero() && time.Since(c.lastInvoke) < c.minInterval {
		return errkind.New(errkind.TryAgain, "clock-control helper invoked too recently")
	}
	return c.invoke(op)
}

func (c *controller) invoke(op ctrlOp) error {
	if c.helperPath == "" {
		return errNoHelper
	}
	c.lastInvoke = time.Now()
	cmd := exec.Command(c.helperPath, op.String())
	err := cmd.Run()
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if !exitErr.Exited() {
			return syscall.ECHILD
		}
		return fmt.Errorf("crny: helper %s exited %d", op, exitErr.ExitCode())
	}
	return err
}

// findChronydPID locates the running chronyd process by name.
func findChronydPID() (int32, error) {
	procs, err := process.Processes()
	if err != nil {
		return 0, err
	}
	for _, p := range procs {
		name, err := p.Name()
		if err == nil && name == "chronyd" {
			return p.Pid, nil
		}
	}
	return 0, fmt.Errorf("crny: chronyd process not found")
}

// probeCmdline inspects chronyd's cmdline for a standalone "-x" argument,
// whose absence means chronyd is disciplining the system clock (spec
// §4.2.3, §6).
func probeCmdline(pid int32) (disciplining bool, err error) {
	proc, err := process.NewProcess(pid)
	if err != nil {
		return false, err
	}
	args, err := proc.CmdlineSlice()
	if err != nil {
		return false, err
	}
	for _, arg := range args {
		if arg == "-x" {
			return false, nil
		}
	}
	return true, nil
}
