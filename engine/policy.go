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

import "time"

// Strategy selects how the engine picks its winner, spec §4.4.
type Strategy int

// Strategies.
const (
	StrategyManual Strategy = iota
	StrategyManualStartup
	StrategyAutomatic
)

// SelectionPolicy configures one engine's selection behaviour: spec §4.4's
// "strategy plus an ordered rule list", plus the holdoff interval and an
// optional custom-expr formula for the §2 row O extension rule.
type SelectionPolicy struct {
	Strategy            Strategy
	Rules               []string
	InitialSyncInstance string
	HoldoffInterval     time.Duration
	CustomExpr          string
}

// DefaultRules is the rule order spec §4.4 lists.
var DefaultRules = []string{
	string(RuleManual),
	string(RuleExtConstraints),
	string(RuleState),
	string(RuleNoAlarms),
	string(RuleUserPriority),
	string(RuleClustering),
	string(RuleClockClass),
	string(RuleTotalAccuracy),
	string(RuleAllanVariance),
	string(RuleStepsRemoved),
}
