// Copyright 2025 The cogkernel Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package orchestrate

import (
	"github.com/azzindani/cogkernel/pkg/kernschema"
)

// Reflect compares the actual result state against the predicted
// outcome and extracts a structured ReflectionInsight: what succeeded,
// what failed, and what to change (spec.md §4.4.3 post-execution half).
// The insight is committed to the T5 epoch summary by the caller.
func Reflect(dagID string, results map[string]*kernschema.ExecutionResult, predicted *kernschema.SimulationVerdict) kernschema.ReflectionInsight {
	insight := kernschema.ReflectionInsight{DAGID: dagID}

	for nodeID, res := range results {
		if res == nil {
			continue
		}
		if res.Status == kernschema.NodeStatusSucceeded {
			insight.Succeeded = append(insight.Succeeded, nodeID)
		} else if res.Status == kernschema.NodeStatusFailed {
			insight.Failed = append(insight.Failed, nodeID)
		}
	}

	insight.ChangeFor = changeRecommendation(insight, predicted)
	return insight
}

func changeRecommendation(insight kernschema.ReflectionInsight, predicted *kernschema.SimulationVerdict) string {
	if len(insight.Failed) == 0 {
		return ""
	}
	if predicted != nil && predicted.Verdict == kernschema.VerdictApprove {
		return "simulation approved this plan but execution still failed nodes; tighten the branch predictor or lower the approval threshold"
	}
	return "re-run decompose_goal with a narrower skill assignment for the failed nodes"
}
