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

import "time"

// FreeRunning is a Capability for a clock nobody disciplines: it reports
// wall-clock time and silently accepts (and ignores) step/slew requests.
// Grounded on sptp/client's FreeRunningClock, used both for the `freerun`
// sync-module instance and as a harmless default in tests.
type FreeRunning struct{}

// Now returns the wall-clock time.
func (FreeRunning) Now() (time.Time, error) { return time.Now(), nil }

// Step is a no-op.
func (FreeRunning) Step(time.Duration) error { return nil }

// AdjustFrequency is a no-op.
func (FreeRunning) AdjustFrequency(float64) error { return nil }

// MaxFrequencyPPB reports no adjustment range.
func (FreeRunning) MaxFrequencyPPB() (float64, error) { return 0, nil }
