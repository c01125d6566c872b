// Package docs parses markdown documentation and YAML question files and
// pairs them into evaluable sections.
package docs

import (
	"fmt"
	"regexp"
	"strings"
)

// MarkdownSection is one "## " heading of a markdown document with its body.
type MarkdownSection struct {
	Title   string
	Content string
}

// Question is one requirement item from a YAML question file. Requirement may
// be empty, in which case requirements are generated at evaluation time.
type Question struct {
	Title       string
	Requirement string
}

// Section is a question paired with the markdown content it evaluates.
// IDs run section_1, section_2, ... over matched pairs in question order.
type Section struct {
	ID           string
	Index        int
	Title        string
	Content      string
	Requirements []string
}

// headingRE matches second-level headings only; deeper headings belong to the
// enclosing section body.
var headingRE = regexp.MustCompile(`(?m)^## ([^#\n].*)$`)

// ExtractSections splits a markdown document on "## " headings. Each section
// body runs to the next heading or end of input, trimmed. Text before the
// first heading is ignored. Duplicate titles keep their first position and
// the last body.
func ExtractSections(content string) []MarkdownSection {
	locs := headingRE.FindAllStringSubmatchIndex(content, -1)

	sections := make([]MarkdownSection, 0, len(locs))
	seen := make(map[string]int, len(locs))
	for i, loc := range locs {
		title := strings.TrimSpace(content[loc[2]:loc[3]])

		bodyEnd := len(content)
		if i+1 < len(locs) {
			bodyEnd = locs[i+1][0]
		}
		body := strings.TrimSpace(content[loc[1]:bodyEnd])

		if at, ok := seen[title]; ok {
			sections[at].Content = body
			continue
		}
		seen[title] = len(sections)
		sections = append(sections, MarkdownSection{Title: title, Content: body})
	}

	return sections
}

// PairByTitle matches each question to a markdown section by title: exact
// match first, then case-insensitive substring in either direction, taking
// the first section in document order. Questions without a match, or whose
// matched section has no body, are skipped. The result carries the question's
// title and IDs that number only the matched pairs.
func PairByTitle(questions []Question, sections []MarkdownSection) []Section {
	matched := make([]Section, 0, len(questions))
	for _, q := range questions {
		content, ok := FindContent(sections, q.Title)
		if !ok || content == "" {
			continue
		}

		var reqs []string
		if q.Requirement != "" {
			reqs = []string{q.Requirement}
		}

		n := len(matched) + 1
		matched = append(matched, Section{
			ID:           fmt.Sprintf("section_%d", n),
			Index:        n,
			Title:        q.Title,
			Content:      content,
			Requirements: reqs,
		})
	}
	return matched
}

// FindContent resolves a title against sections: exact match first, then
// case-insensitive substring in either direction, first section wins.
func FindContent(sections []MarkdownSection, title string) (string, bool) {
	for _, s := range sections {
		if s.Title == title {
			return s.Content, true
		}
	}

	lower := strings.ToLower(title)
	for _, s := range sections {
		st := strings.ToLower(s.Title)
		if strings.Contains(st, lower) || strings.Contains(lower, st) {
			return s.Content, true
		}
	}

	return "", false
}
