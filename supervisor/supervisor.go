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

// Package supervisor notifies systemd of process lifecycle events: readiness
// once every task has started, and periodic watchdog pings thereafter.
package supervisor

import (
	"context"
	"time"

	"github.com/coreos/go-systemd/daemon"
	log "github.com/sirupsen/logrus"
)

// NotifyReady tells systemd the daemon has finished starting.
func NotifyReady() error {
	supported, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	switch {
	case !supported && err != nil:
		return err
	case !supported:
		log.Debug("supervisor: sd_notify not supported, skipping readiness notification")
	default:
		log.Info("supervisor: notified systemd of readiness")
	}
	return nil
}

// RunWatchdog pings systemd's watchdog at half the interval systemd
// configured (WATCHDOG_USEC), until ctx is cancelled. It is a no-op task if
// the watchdog is not configured.
func RunWatchdog(ctx context.Context) {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval == 0 {
		return
	}
	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ok, err := daemon.SdNotify(false, daemon.SdNotifyWatchdog); err != nil {
				log.Warnf("supervisor: watchdog ping failed: %v", err)
			} else if !ok {
				return
			}
		}
	}
}

// NotifyStopping tells systemd the daemon is shutting down.
func NotifyStopping() {
	if _, err := daemon.SdNotify(false, daemon.SdNotifyStopping); err != nil {
		log.Warnf("supervisor: stopping notification failed: %v", err)
	}
}
