package evaluator

import (
	"regexp"
	"strconv"
	"strings"
)

// scoreRE matches the first number in [0.0, 1.0] in a model reply: 0, 0.x,
// 1, or 1.0.
var scoreRE = regexp.MustCompile(`\b(0(\.\d+)?|1(\.0+)?)\b`)

// listItemRE matches a bullet or numbered list marker at the start of a line.
var listItemRE = regexp.MustCompile(`^(?:[-*•]|\d+\.)\s*(.*)`)

// ParseScore extracts a score and comment from a model reply. The score is
// the first in-range number found, 0.0 when the reply contains none. The
// whole trimmed reply is kept as the comment so reports preserve the model's
// reasoning.
func ParseScore(text string) (float64, string) {
	comment := strings.TrimSpace(text)

	m := scoreRE.FindStringSubmatch(text)
	if m == nil {
		return 0.0, comment
	}
	score, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0.0, comment
	}
	return score, comment
}

// ParseList extracts list items from a model reply. Lines starting with a
// bullet (-, *, or the unicode bullet) or a number marker are taken as items
// with the marker stripped. When no line carries a marker, every non-empty
// trimmed line is an item.
func ParseList(text string) []string {
	lines := strings.Split(text, "\n")

	var items []string
	for _, line := range lines {
		if m := listItemRE.FindStringSubmatch(line); m != nil {
			if item := strings.TrimSpace(m[1]); item != "" {
				items = append(items, item)
			}
		}
	}
	if len(items) > 0 {
		return items
	}

	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
