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

// Package syncmodule defines the common task/message contract every sync
// source (component C in the design) implements: a uniform status/control
// vocabulary an engine can drive without knowing the concrete instance kind.
package syncmodule

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Kind identifies a sync-module instance type.
type Kind string

// Instance kinds.
const (
	KindFreerun Kind = "freerun"
	KindPTP     Kind = "ptp"
	KindPPS     Kind = "pps"
	KindNTP     Kind = "ntp"
	KindCrny    Kind = "crny"
	KindGPS     Kind = "gps"
)

// Handle is an opaque, comparable identity for a sync-module instance: the
// tuple (kind, name) per spec §3, hashed so other tasks can refer to an
// instance without holding a pointer into the engine's instance table.
type Handle struct {
	kind Kind
	name string
	id   uint64
}

// NewHandle builds a Handle for the given kind and process-unique name.
// name must be non-empty and at most 63 bytes, per spec §3.
func NewHandle(kind Kind, name string) (Handle, error) {
	if name == "" || len(name) > 63 {
		return Handle{}, fmt.Errorf("syncmodule: instance name %q must be 1-63 bytes", name)
	}
	return Handle{
		kind: kind,
		name: name,
		id:   xxhash.Sum64String(string(kind) + "/" + name),
	}, nil
}

// Kind returns the instance's module kind.
func (h Handle) Kind() Kind { return h.kind }

// Name returns the instance's configured name.
func (h Handle) Name() string { return h.name }

// ID returns a stable, process-wide unique hash of the handle, suitable as
// a map key or log correlation token.
func (h Handle) ID() uint64 { return h.id }

// String renders the handle as "kind/name".
func (h Handle) String() string { return string(h.kind) + "/" + h.name }
