package docs

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// questionItem is the on-disk YAML shape. "section"/"prompt" are the
// canonical keys; "title"/"requirement" are accepted as synonyms.
type questionItem struct {
	Section     string `yaml:"section"`
	Title       string `yaml:"title"`
	Prompt      string `yaml:"prompt"`
	Requirement string `yaml:"requirement"`
}

// LoadQuestions reads a YAML question file: a top-level list of
// {section, prompt} items. Items without a section title are rejected;
// an empty prompt is allowed.
func LoadQuestions(path string) ([]Question, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading questions file: %w", err)
	}
	return ParseQuestions(raw, path)
}

// ParseQuestions parses question YAML. The name is used in error messages.
func ParseQuestions(raw []byte, name string) ([]Question, error) {
	var items []questionItem
	if err := yaml.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}

	questions := make([]Question, 0, len(items))
	for i, item := range items {
		title := strings.TrimSpace(item.Section)
		if title == "" {
			title = strings.TrimSpace(item.Title)
		}
		if title == "" {
			return nil, fmt.Errorf("%s: item %d has no section title", name, i+1)
		}

		req := strings.TrimSpace(item.Prompt)
		if req == "" {
			req = strings.TrimSpace(item.Requirement)
		}

		questions = append(questions, Question{Title: title, Requirement: req})
	}

	return questions, nil
}

// LoadPair loads a question file and a markdown document and pairs them with
// the default title matching.
func LoadPair(questionsFile, docFile string) ([]Section, error) {
	questions, err := LoadQuestions(questionsFile)
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(docFile)
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}

	return PairByTitle(questions, ExtractSections(string(raw))), nil
}
