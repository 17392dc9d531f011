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

package syncmodule

import (
	"context"

	log "github.com/sirupsen/logrus"
)

// inboxDepth bounds each instance's message pool, matching spec §5's "no
// unbounded queues" rule: a full inbox means the sender logs and drops.
const inboxDepth = 8

// Instance is what the engine drives: a task reachable only through its
// Handle and inbox, per spec §4.1's opacity requirement.
type Instance interface {
	Handle() Handle
	Inbox() chan<- Message
	Run(ctx context.Context)
}

// Base is embedded by every concrete instance type; it owns the inbox and
// the StatusChanged debouncing logic common to all of them.
type Base struct {
	handle Handle
	inbox  chan Message
	engine chan<- EngineEvent

	lastStatus InstanceStatus
	haveLast   bool
}

// NewBase creates the shared task plumbing for one instance.
func NewBase(handle Handle, engine chan<- EngineEvent) Base {
	return Base{handle: handle, inbox: make(chan Message, inboxDepth), engine: engine}
}

// Handle returns the instance's opaque identity.
func (b *Base) Handle() Handle { return b.handle }

// Inbox returns the send side of the instance's message channel.
func (b *Base) Inbox() chan<- Message { return b.inbox }

// Recv returns the receive side, used by the concrete instance's own Run
// loop.
func (b *Base) Recv() <-chan Message { return b.inbox }

// PostStatus posts a StatusChanged to the engine iff status differs from
// the last one posted, and drops (with a log line) rather than blocking if
// the engine's event channel is momentarily full.
func (b *Base) PostStatus(status InstanceStatus) {
	if b.haveLast && b.lastStatus.Equivalent(status) {
		return
	}
	b.lastStatus = status
	b.haveLast = true
	select {
	case b.engine <- StatusChanged{From: b.handle, Status: status}:
	default:
		log.Warnf("syncmodule: %s: engine event pool exhausted, dropping StatusChanged", b.handle)
	}
}

// PostRtStats posts a best-effort RtStats sample.
func (b *Base) PostRtStats(ev RtStats) {
	ev.From = b.handle
	select {
	case b.engine <- ev:
	default:
		log.Debugf("syncmodule: %s: engine event pool exhausted, dropping RtStats", b.handle)
	}
}

// PostClusteringInput posts a best-effort clustering contribution.
func (b *Base) PostClusteringInput(ev ClusteringInput) {
	ev.From = b.handle
	select {
	case b.engine <- ev:
	default:
		log.Debugf("syncmodule: %s: engine event pool exhausted, dropping ClusteringInput", b.handle)
	}
}
