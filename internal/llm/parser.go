package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseResult decodes the model's reply into a ClassificationResult.
// Models frequently wrap the JSON in a markdown code fence; both the
// fenced and bare forms are accepted. Anything undecodable degrades to
// the zero-confidence fallback rather than an error.
func ParseResult(content string, contexts []string) ClassificationResult {
	text := strings.TrimSpace(content)

	if strings.Contains(text, "```json") {
		text = cutFence(text, "```json")
	} else if strings.Contains(text, "```") {
		text = cutFence(text, "```")
	}

	var result ClassificationResult
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return Fallback(fmt.Sprintf("parse error: %v", err), contexts)
	}
	if result.RelationshipType == "" {
		return Fallback("parse error: missing relationship_type", contexts)
	}

	result.ContextUsed = contexts
	return result
}

// cutFence returns the text between an opening fence marker and the next
// closing fence.
func cutFence(text, marker string) string {
	_, rest, ok := strings.Cut(text, marker)
	if !ok {
		return text
	}
	inner, _, _ := strings.Cut(rest, "```")
	return strings.TrimSpace(inner)
}
