package source

import (
	"regexp"
	"strings"
)

var spaceRun = regexp.MustCompile(`[ \t]+`)

// CleanText normalizes text content while preserving line structure:
// CRLF to LF, collapsed space runs, at most two consecutive blank lines.
func CleanText(content string) string {
	if content == "" {
		return ""
	}

	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")

	lines := strings.Split(content, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if strings.TrimSpace(line) == "" {
			cleaned = append(cleaned, "")
			continue
		}
		trimmed := strings.TrimLeft(line, " \t")
		indent := len(line) - len(trimmed)
		trimmed = spaceRun.ReplaceAllString(trimmed, " ")
		cleaned = append(cleaned, strings.Repeat(" ", indent)+trimmed)
	}

	result := strings.Join(cleaned, "\n")
	for strings.Contains(result, "\n\n\n") {
		result = strings.ReplaceAll(result, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(result)
}
