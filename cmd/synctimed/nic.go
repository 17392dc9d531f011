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

package main

import (
	log "github.com/sirupsen/logrus"

	"github.com/Xilinx-CNS/sfptpd-go/clock"
	"github.com/Xilinx-CNS/sfptpd-go/linktable"
)

// discoverPHCClocks opens every interface's hardware clock it can and
// registers it, so the clock-feed service and secondary servos (spec §4.4
// commit step 3) have real PHCs to track. Interfaces with no associated
// PHC (loopback, most virtual interfaces) are silently skipped.
func discoverPHCClocks(lt linktable.LinkTable, reg *clock.Registry) {
	links, err := lt.Links()
	if err != nil {
		log.Warnf("synctimed: enumerating links: %v", err)
		return
	}
	for _, l := range links {
		if !l.Up {
			continue
		}
		dev, err := clock.IfaceToPHCDevice(l.Name)
		if err != nil {
			log.Debugf("synctimed: %s: no PHC: %v", l.Name, err)
			continue
		}
		phc, err := clock.OpenPHC(dev)
		if err != nil {
			log.Warnf("synctimed: %s: open %s: %v", l.Name, dev, err)
			continue
		}
		c := clock.New(l.ClockID, l.Name, clock.RolePHC, phc)
		if err := reg.Add(c); err != nil {
			log.Warnf("synctimed: registering clock for %s: %v", l.Name, err)
			continue
		}
		log.Infof("synctimed: tracking PHC %s (%s) as clock %s", dev, l.Name, l.ClockID)
	}
}
