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

package engine

import (
	"fmt"

	"github.com/Knetic/govaluate"

	log "github.com/sirupsen/logrus"
)

// CustomExprHelp documents the variables a custom-expr rule's formula may
// reference; surfaced by synctimectl and -h text.
const CustomExprHelp = `custom-expr evaluates a govaluate formula against a single candidate's
InstanceStatus and must return a number; smaller is better, matching every
other rule in the pipeline. Supported variables:
  user_priority, clustering_score, clock_class, local_accuracy,
  master_accuracy, allan_variance, steps_removed, offset_from_master_ns`

// newCustomExprComparator compiles expr once and returns a comparator that
// evaluates it independently against each side, per spec §2 row O.
func newCustomExprComparator(expr string) (comparator, error) {
	compiled, err := govaluate.NewEvaluableExpression(expr)
	if err != nil {
		return nil, fmt.Errorf("engine: custom-expr %q: %w", expr, err)
	}
	score := func(c candidate) float64 {
		params := map[string]interface{}{
			"user_priority":         float64(c.status.UserPriority),
			"clustering_score":      float64(c.status.ClusteringScore),
			"clock_class":           float64(c.status.Master.ClockClass),
			"local_accuracy":        c.status.LocalAccuracy,
			"master_accuracy":       c.status.Master.Accuracy,
			"allan_variance":        c.status.AllanVariance,
			"steps_removed":         float64(c.status.Master.StepsRemoved),
			"offset_from_master_ns": float64(c.status.OffsetFromMaster.Nanoseconds()),
		}
		result, err := compiled.Evaluate(params)
		if err != nil {
			log.Warnf("engine: custom-expr evaluation failed: %v", err)
			return 0
		}
		v, ok := result.(float64)
		if !ok {
			log.Warnf("engine: custom-expr returned non-numeric result %v", result)
			return 0
		}
		return v
	}
	return func(a, b candidate) int {
		return cmpFloat(score(a), score(b))
	}, nil
}
