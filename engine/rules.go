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
	"strings"

	"github.com/Xilinx-CNS/sfptpd-go/syncmodule"
)

// candidate is one row the rule pipeline compares: an instance's handle
// alongside the status it last reported.
type candidate struct {
	handle syncmodule.Handle
	status syncmodule.InstanceStatus
}

// comparator ranks two candidates, returning -1 if a is better, +1 if b is
// better, 0 if it cannot discriminate between them, per spec §4.4.
type comparator func(a, b candidate) int

// ruleName is one entry of a configured rule list.
type ruleName string

// Built-in rule names, spec §4.4's table. ruleCustomExprPrefix is the
// extension point added by §2 row O.
const (
	RuleManual          ruleName = "manual"
	RuleExtConstraints  ruleName = "ext-constraints"
	RuleState           ruleName = "state"
	RuleNoAlarms        ruleName = "no-alarms"
	RuleUserPriority    ruleName = "user-priority"
	RuleClustering      ruleName = "clustering"
	RuleClockClass      ruleName = "clock-class"
	RuleTotalAccuracy   ruleName = "total-accuracy"
	RuleAllanVariance   ruleName = "allan-variance"
	RuleStepsRemoved    ruleName = "steps-removed"
	ruleCustomExprPrefix         = "custom-expr:"
)

func cmpInt(x, y int) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	default:
		return 0
	}
}

func cmpFloat(x, y float64) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	default:
		return 0
	}
}

func cmpBoolBetterTrue(x, y bool) int {
	if x == y {
		return 0
	}
	if x {
		return -1
	}
	return 1
}

// manualCmp ranks the instance matching name above all others; both or
// neither matching is a tie.
func manualCmp(name string) comparator {
	return func(a, b candidate) int {
		return cmpBoolBetterTrue(a.handle.Name() == name, b.handle.Name() == name)
	}
}

func extConstraintsCmp(a, b candidate) int {
	return cmpBoolBetterTrue(
		a.status.Constraints&syncmodule.ConstraintMustBeSelected != 0,
		b.status.Constraints&syncmodule.ConstraintMustBeSelected != 0,
	)
}

// stateRank orders slave ahead of master, per spec §4.4's "slave < master".
func stateRank(s syncmodule.State) int {
	if s == syncmodule.StateSlave {
		return 0
	}
	return 1
}

func stateCmp(a, b candidate) int {
	return cmpInt(stateRank(a.status.State), stateRank(b.status.State))
}

func noAlarmsCmp(a, b candidate) int {
	return cmpInt(a.status.Alarms.Count(), b.status.Alarms.Count())
}

func userPriorityCmp(a, b candidate) int {
	return cmpInt(int(a.status.UserPriority), int(b.status.UserPriority))
}

func clusteringCmp(a, b candidate) int {
	return cmpInt(-a.status.ClusteringScore, -b.status.ClusteringScore)
}

func clockClassCmp(a, b candidate) int {
	return cmpInt(int(a.status.Master.ClockClass), int(b.status.Master.ClockClass))
}

func totalAccuracyCmp(a, b candidate) int {
	return cmpFloat(
		a.status.LocalAccuracy+a.status.Master.Accuracy,
		b.status.LocalAccuracy+b.status.Master.Accuracy,
	)
}

func allanVarianceCmp(a, b candidate) int {
	return cmpFloat(a.status.AllanVariance, b.status.AllanVariance)
}

func stepsRemovedCmp(a, b candidate) int {
	return cmpInt(int(a.status.Master.StepsRemoved), int(b.status.Master.StepsRemoved))
}

func tieBreakCmp(a, b candidate) int {
	return strings.Compare(a.status.Master.ClockID.String(), b.status.Master.ClockID.String())
}

// buildPipeline resolves a configured rule-name list into comparators,
// appending the mandatory tie-break last, per spec §4.4.
func buildPipeline(names []string, manualName string, custom comparator) []comparator {
	pipeline := make([]comparator, 0, len(names)+1)
	for _, n := range names {
		switch ruleName(n) {
		case RuleManual:
			pipeline = append(pipeline, manualCmp(manualName))
		case RuleExtConstraints:
			pipeline = append(pipeline, extConstraintsCmp)
		case RuleState:
			pipeline = append(pipeline, stateCmp)
		case RuleNoAlarms:
			pipeline = append(pipeline, noAlarmsCmp)
		case RuleUserPriority:
			pipeline = append(pipeline, userPriorityCmp)
		case RuleClustering:
			pipeline = append(pipeline, clusteringCmp)
		case RuleClockClass:
			pipeline = append(pipeline, clockClassCmp)
		case RuleTotalAccuracy:
			pipeline = append(pipeline, totalAccuracyCmp)
		case RuleAllanVariance:
			pipeline = append(pipeline, allanVarianceCmp)
		case RuleStepsRemoved:
			pipeline = append(pipeline, stepsRemovedCmp)
		default:
			if strings.HasPrefix(n, ruleCustomExprPrefix) && custom != nil {
				pipeline = append(pipeline, custom)
			}
		}
	}
	pipeline = append(pipeline, tieBreakCmp)
	return pipeline
}

// best runs the pipeline over candidates and returns the winner. candidates
// must be non-empty.
func best(candidates []candidate, pipeline []comparator) candidate {
	winner := candidates[0]
	for _, c := range candidates[1:] {
		if runPipeline(pipeline, c, winner) < 0 {
			winner = c
		}
	}
	return winner
}

// runPipeline evaluates rules in order until one discriminates.
func runPipeline(pipeline []comparator, a, b candidate) int {
	for _, cmp := range pipeline {
		if r := cmp(a, b); r != 0 {
			return r
		}
	}
	return 0
}
