// Copyright 2025 Tom Barlow
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

// Package report summarizes step results and writes the per-command
// results file and console summary.
package report

import (
	"fmt"
	"math"

	"github.com/tombee/trailguide/internal/chain"
)

// WorkflowSummary is derived from an ordered list of step results.
type WorkflowSummary struct {
	TotalSteps      int     `json:"total_steps"`
	SuccessfulSteps int     `json:"successful_steps"`
	FailedSteps     int     `json:"failed_steps"`
	SkippedSteps    int     `json:"skipped_steps"`
	SuccessRate     string  `json:"success_rate"`
	AvgLatencyMS    float64 `json:"avg_response_time_ms"`
	TotalTokens     int     `json:"total_tokens"`
}

// Summarize counts results. The success rate is successes over all
// results with one decimal place, or "0%" when there are none. Average
// latency sums the durations of successful steps and divides by the
// number of successes, treating zero successes as one.
func Summarize(results []chain.StepResult) WorkflowSummary {
	s := WorkflowSummary{TotalSteps: len(results)}

	var latency float64
	for _, r := range results {
		s.TotalTokens += r.TokenEstimate
		switch r.Status {
		case chain.StatusSuccess:
			s.SuccessfulSteps++
			if r.Duration > 0 {
				latency += float64(r.Duration.Microseconds()) / 1000
			}
		case chain.StatusError:
			s.FailedSteps++
		case chain.StatusSkipped:
			s.SkippedSteps++
		}
	}

	s.SuccessRate = SuccessRate(s.SuccessfulSteps, s.TotalSteps)
	s.AvgLatencyMS = round(latency/float64(max(s.SuccessfulSteps, 1)), 2)
	return s
}

// SuccessRate formats successes/total as a percentage.
func SuccessRate(successes, total int) string {
	if total == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.1f%%", float64(successes)/float64(total)*100)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
