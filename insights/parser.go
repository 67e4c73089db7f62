// Copyright 2025 Poiesic Systems
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

package insights

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/poiesic/docembed/core"
)

// FallbackConfidence is assigned to insights recovered from list lines,
// which carry no confidence of their own.
const FallbackConfidence = 0.7

// minFallbackLength drops list lines too short to be a claim.
const minFallbackLength = 10

// ParseStage names the parser stage that produced a result.
type ParseStage string

const (
	StageJSON     ParseStage = "json"
	StageFallback ParseStage = "fallback"
)

// ParseResult holds the insights recovered from one completion.
type ParseResult struct {
	Insights []core.ExtractedInsight
	Stage    ParseStage

	// JSONErr is why the strict stage was rejected when Stage is StageFallback.
	JSONErr error
}

// rawInsight matches one element of the array the prompt asks for.
type rawInsight struct {
	Insight    *string  `json:"insight"`
	Confidence *float64 `json:"confidence"`
}

var listLine = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s+(.+)$`)

// ParseInsights runs the strict JSON stage and, if it rejects the text, the
// list-line fallback. sourceChunkIDs is attached to every insight. An error
// means neither stage found anything usable.
func ParseInsights(text string, sourceChunkIDs []string) (*ParseResult, error) {
	insights, jsonErr := parseJSON(text)
	if jsonErr == nil {
		return &ParseResult{Insights: withSources(insights, sourceChunkIDs), Stage: StageJSON}, nil
	}

	insights, err := parseLines(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnparseable, jsonErr)
	}
	return &ParseResult{
		Insights: withSources(insights, sourceChunkIDs),
		Stage:    StageFallback,
		JSONErr:  jsonErr,
	}, nil
}

// parseJSON is the strict stage. Every element must carry a non-empty
// insight and a confidence in [0, 1]. An empty array is a valid answer.
func parseJSON(text string) ([]core.ExtractedInsight, error) {
	cleaned := stripFences(text)
	cleaned = repairJSON(cleaned)

	var raw []rawInsight
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, err
	}

	out := make([]core.ExtractedInsight, 0, len(raw))
	for i, r := range raw {
		if r.Insight == nil || strings.TrimSpace(*r.Insight) == "" {
			return nil, fmt.Errorf("%w: element %d has no insight", ErrSchemaViolation, i)
		}
		if r.Confidence == nil {
			return nil, fmt.Errorf("%w: element %d has no confidence", ErrSchemaViolation, i)
		}
		insight := core.ExtractedInsight{
			Content:         strings.TrimSpace(*r.Insight),
			ConfidenceScore: *r.Confidence,
		}
		if err := core.ValidateInsight(&insight); err != nil {
			return nil, fmt.Errorf("%w: element %d: %w", ErrSchemaViolation, i, err)
		}
		out = append(out, insight)
	}
	return out, nil
}

// parseLines is the fallback stage: bulleted and numbered lines become
// insights at FallbackConfidence.
func parseLines(text string) ([]core.ExtractedInsight, error) {
	var out []core.ExtractedInsight
	for line := range strings.Lines(text) {
		m := listLine.FindStringSubmatch(strings.TrimRight(line, "\r\n"))
		if m == nil {
			continue
		}
		content := strings.TrimSpace(m[1])
		if len([]rune(content)) < minFallbackLength {
			continue
		}
		out = append(out, core.ExtractedInsight{
			Content:         content,
			ConfidenceScore: FallbackConfidence,
		})
	}
	if len(out) == 0 {
		return nil, ErrNoListLines
	}
	return out, nil
}

func stripFences(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

func withSources(insights []core.ExtractedInsight, ids []string) []core.ExtractedInsight {
	for i := range insights {
		insights[i].SourceChunkIDs = append([]string(nil), ids...)
	}
	return insights
}
