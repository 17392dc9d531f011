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
	"sync"
)

// Registry owns the set of clocks known to the process. Invariant: at most
// one clock is the system clock, and it is never removed once added.
type Registry struct {
	mu      sync.RWMutex
	byName  map[string]*Clock
	system  *Clock
}

// NewRegistry creates an empty clock registry.
func NewRegistry() *Registry {
	return &Registry{byName: map[string]*Clock{}}
}

// Add registers a clock. Adding a second system-role clock is an error.
func (r *Registry) Add(c *Clock) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[c.Name()]; exists {
		return fmt.Errorf("clock %q already registered", c.Name())
	}
	if c.Role() == RoleSystem {
		if r.system != nil {
			return fmt.Errorf("system clock already registered as %q", r.system.Name())
		}
		r.system = c
	}
	r.byName[c.Name()] = c
	return nil
}

// Remove unregisters a clock by name. Removing the system clock is refused.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byName[name]
	if !ok {
		return nil
	}
	if c.Role() == RoleSystem {
		return fmt.Errorf("the system clock is never destroyed")
	}
	delete(r.byName, name)
	return nil
}

// Get looks up a clock by name.
func (r *Registry) Get(name string) (*Clock, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byName[name]
	return c, ok
}

// System returns the single system clock, if one has been registered.
func (r *Registry) System() (*Clock, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.system, r.system != nil
}

// All returns a snapshot slice of every registered clock.
func (r *Registry) All() []*Clock {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Clock, 0, len(r.byName))
	for _, c := range r.byName {
		out = append(out, c)
	}
	return out
}
