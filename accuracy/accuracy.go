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

// Package accuracy computes the running local_accuracy and allan_variance
// figures the engine's total-accuracy and allan-variance rules need (spec
// §3, §4.4), fed by each instance's own offset samples.
package accuracy

import (
	"time"

	"github.com/eclesh/welford"
)

// Estimator accumulates one instance's offset-from-master samples into the
// two dispersion figures its InstanceStatus reports.
//
// local_accuracy tracks the short-term spread of raw offsets; allan_variance
// tracks the spread of first differences between consecutive samples, the
// classical two-sample (Allan) variance estimator used for clock stability.
type Estimator struct {
	offsets     *welford.Stats
	offsetCount int

	diffs     *welford.Stats
	diffCount int

	havePrev bool
	prev     float64
}

// New creates an empty Estimator.
func New() *Estimator {
	return &Estimator{offsets: welford.New(), diffs: welford.New()}
}

// Add records one offset-from-master sample, in seconds.
func (e *Estimator) Add(offset time.Duration) {
	v := offset.Seconds()
	e.offsets.Add(v)
	e.offsetCount++
	if e.havePrev {
		e.diffs.Add(v - e.prev)
		e.diffCount++
	}
	e.prev = v
	e.havePrev = true
}

// LocalAccuracy is the running standard deviation of offset samples, in
// seconds, matching InstanceStatus.LocalAccuracy's units (spec §3).
func (e *Estimator) LocalAccuracy() float64 {
	if e.offsetCount < 2 {
		return 0
	}
	return e.offsets.Stddev()
}

// AllanVariance is half the running variance of consecutive-sample differences,
// the estimator spec §3's allan_variance field names without further
// specifying its formula; this is the standard two-sample estimator.
func (e *Estimator) AllanVariance() float64 {
	if e.diffCount < 2 {
		return 0
	}
	return e.diffs.Variance() / 2
}

// Reset clears all accumulated state, e.g. after an instance's LRC changes.
func (e *Estimator) Reset() {
	*e = *New()
}
