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

// Command synctimed is the multi-source time synchronization daemon: it
// runs the clock-feed service, the external-NTP (chrony) adapters, the
// free-running instance, the selection engine and the control surface as
// independent tasks, and disciplines secondary NIC clocks from whichever
// instance the engine has selected as Local Reference Clock.
package main

import (
	"context"
	"flag"
	"math"
	"os"
	"os/signal"
	"time"

	log "github.com/sirupsen/logrus"
	syscall "golang.org/x/sys/unix"
	"golang.org/x/sync/errgroup"

	"github.com/Xilinx-CNS/sfptpd-go/clock"
	"github.com/Xilinx-CNS/sfptpd-go/clockfeed"
	"github.com/Xilinx-CNS/sfptpd-go/config"
	"github.com/Xilinx-CNS/sfptpd-go/control"
	"github.com/Xilinx-CNS/sfptpd-go/crny"
	"github.com/Xilinx-CNS/sfptpd-go/engine"
	"github.com/Xilinx-CNS/sfptpd-go/linktable"
	"github.com/Xilinx-CNS/sfptpd-go/persist"
	"github.com/Xilinx-CNS/sfptpd-go/servo"
	"github.com/Xilinx-CNS/sfptpd-go/supervisor"
	"github.com/Xilinx-CNS/sfptpd-go/syncmodule"
	"github.com/Xilinx-CNS/sfptpd-go/syncmodule/freerun"
)

func main() {
	var (
		cfgPath string
		verbose bool
	)
	flag.StringVar(&cfgPath, "cfg", "/etc/synctimed.yaml", "path to config file")
	flag.BoolVar(&verbose, "verbose", false, "verbose logging")
	flag.Parse()

	log.SetLevel(log.InfoLevel)
	if verbose {
		log.SetLevel(log.DebugLevel)
	}

	cfg, err := readConfig(cfgPath)
	if err != nil {
		log.Fatalf("synctimed: reading config %s: %v", cfgPath, err)
	}
	if err := cfg.EvalAndValidate(); err != nil {
		log.Fatalf("synctimed: invalid config: %v", err)
	}
	if err := os.MkdirAll(cfg.StateDir, 0o755); err != nil {
		log.Fatalf("synctimed: creating state dir %s: %v", cfg.StateDir, err)
	}

	reg := clock.NewRegistry()
	sysclk := clock.NewSysClock()
	sysClock := clock.New(0, "system", clock.RoleSystem, sysclk)
	if err := reg.Add(sysClock); err != nil {
		log.Fatalf("synctimed: registering system clock: %v", err)
	}

	lt := linktable.New()
	discoverPHCClocks(lt, reg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed := clockfeed.NewService(sampleLog2(cfg.ClockFeed.SampleInterval), sysclk)
	servos := servo.NewManager(feed, servo.DefaultKP)

	onCommit := func(_ syncmodule.Handle, status syncmodule.InstanceStatus) {
		var phcs []*clock.Clock
		for _, c := range reg.All() {
			if c.Role() == clock.RolePHC {
				phcs = append(phcs, c)
			}
		}
		servos.Rebuild(ctx, phcs, status.Master.ClockID)
	}

	eng, err := engine.New(cfg.Selection, persist.New(cfg.StateDir), tableRenderer{}, onCommit)
	if err != nil {
		log.Fatalf("synctimed: building engine: %v", err)
	}

	registerInstances(ctx, eng, cfg, sysClock)

	ctrl := control.New(cfg.ControlSocket, eng.Commands())

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error { feed.Run(egCtx); return nil })
	eg.Go(func() error { eng.Run(egCtx); return nil })
	eg.Go(func() error { ctrl.Run(egCtx); return nil })
	eg.Go(func() error { supervisor.RunWatchdog(egCtx); return nil })

	if err := supervisor.NotifyReady(); err != nil {
		log.Warnf("synctimed: systemd readiness notification failed: %v", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Infof("synctimed: received %v, shutting down", sig)
	case <-egCtx.Done():
		log.Warnf("synctimed: task group ended unexpectedly")
	}

	supervisor.NotifyStopping()
	cancel()
	<-eng.Done()
	if err := eg.Wait(); err != nil {
		log.Warnf("synctimed: task group: %v", err)
	}
}

// registerInstances builds and registers every configured sync-module
// instance with the engine, plus the always-present free-running fallback
// (spec §1's "local free-running hardware clocks").
func registerInstances(ctx context.Context, eng *engine.Engine, cfg *config.Config, sysClock *clock.Clock) {
	events := eng.Events()

	frHandle, err := syncmodule.NewHandle(syncmodule.KindFreerun, "freerun")
	if err != nil {
		log.Fatalf("synctimed: freerun handle: %v", err)
	}
	fr := freerun.New(frHandle, events, freerun.DefaultConfig())
	eng.Register(fr)
	go fr.Run(ctx)

	for _, ci := range cfg.CrnyInstances {
		h, err := syncmodule.NewHandle(syncmodule.KindCrny, ci.Name)
		if err != nil {
			log.Fatalf("synctimed: crny instance %q: %v", ci.Name, err)
		}
		a := crny.New(h, events, sysClock, crny.Config{
			SocketPath:         ci.SocketPath,
			PollInterval:       ci.PollInterval,
			HelperScript:       ci.HelperScript,
			MinControlInterval: ci.MinControlInterval,
			UserPriority:       ci.UserPriority,
		})
		eng.Register(a)
		go a.Run(ctx)
	}
}

// sampleLog2 converts a sample interval into the base-2 log the clock-feed
// service's period is specified in, spec §4.3.
func sampleLog2(d time.Duration) int {
	secs := d.Seconds()
	if secs < 1 {
		return 0
	}
	return int(math.Round(math.Log2(secs)))
}
