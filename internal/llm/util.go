package llm

import "strings"

// CleanJSONBlock removes markdown code block wrappers from JSON output.
// Models sometimes fence JSON even when asked for a raw object.
func CleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
