package insights

import (
	"fmt"
	"strings"

	"github.com/poiesic/docembed/core"
)

const insightResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "items": {
    "type": "object",
    "properties": {
      "insight": {
        "type": "string",
        "minLength": 1
      },
      "confidence": {
        "type": "number",
        "minimum": 0,
        "maximum": 1
      }
    },
    "required": ["insight", "confidence"],
    "additionalProperties": false
  }
}`

const extractionPromptTemplate = `Extract the key insights from the given document excerpt and return them as JSON.

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening bracket [ and end with the closing
bracket ]. Your output must exactly follow this schema:

%s

Rules:
- An insight is a single, self-contained factual claim or conclusion stated or clearly implied by the text.
- Write each insight as one complete sentence that makes sense without the excerpt.
- Confidence is a number from 0 (speculative) to 1 (stated explicitly). Rate how directly the text supports the insight.
- Return at most %d insights, most important first.
- Do not repeat the same claim in different words. Do not hallucinate.
- If the excerpt contains no insights, return [].
- The JSON must parse without errors; no trailing commas, no extra keys, and no extraneous text outside the array.

Example:
Input: "The Eiffel Tower was completed in 1889. It was the tallest structure in the world until 1930."
Output:
[
  {"insight":"The Eiffel Tower was completed in 1889.","confidence":0.95},
  {"insight":"The Eiffel Tower was the world's tallest structure until 1930.","confidence":0.9}
]`

// buildSystemPrompt creates the extraction instructions with the schema embedded.
func buildSystemPrompt(maxPerSegment int) string {
	return fmt.Sprintf(extractionPromptTemplate, insightResponseSchema, maxPerSegment)
}

// buildSegmentPrompt joins a segment's chunk contents into the user prompt.
func buildSegmentPrompt(segment []core.TextChunk) string {
	var sb strings.Builder
	for i, chunk := range segment {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(strings.TrimSpace(chunk.Content))
	}
	return sb.String()
}
