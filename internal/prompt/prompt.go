// Package prompt holds the evaluation prompt templates and renders them for
// a section's content and requirements.
package prompt

import (
	"fmt"
	"os"
	"strings"

	"github.com/tmc/langchaingo/prompts"
	"gopkg.in/yaml.v3"
)

// Evaluation metric names.
const (
	MetricCoherence     = "coherence"
	MetricQuality       = "quality"
	MetricCapture       = "capture"
	MetricHallucination = "hallucination"
)

// Metrics returns the evaluation metrics in their stable order.
func Metrics() []string {
	return []string{MetricCoherence, MetricQuality, MetricCapture, MetricHallucination}
}

const coherenceTemplate = `Evaluate the following output for coherence and clarity:

Output: {{.content}}

Criteria:
- Does the output maintain a clear logical flow?
- Is it easy to understand?
- Is terminology used consistently?

Provide:
- Score: A number between 0.0 and 1.0
- Brief explanation for your score`

const qualityTemplate = `Evaluate the quality of the following output:

Output: {{.content}}
Requirements: {{.requirements}}

Criteria:
- Does the output address all requirements?
- Is the information accurate and relevant?
- Is the content sufficiently detailed?

Provide:
- Score: A number between 0.0 and 1.0
- Brief explanation for your score`

const captureTemplate = `Evaluate the capture rate of the following output:

Output: {{.content}}
Requirements: {{.requirements}}

Calculate what percentage of the requirements are addressed.

Provide:
- Score: A decimal between 0.0 and 1.0 representing the capture rate
- Brief explanation listing which requirements were captured`

const hallucinationTemplate = `Evaluate the following output for hallucinations:

Output: {{.content}}
Requirements: {{.requirements}}

Check if the output contains fabricated or unsubstantiated information.

Provide:
- Score: A number between 0.0 and 1.0 (0.0 = no hallucinations)
- Brief explanation identifying specific hallucinations if any`

const requirementsTemplate = `Generate specific requirements for documentation about:

Title: {{.title}}

The documentation should be evaluated on:
- Coherence and clarity
- Completeness of information
- Relevance to the topic
- Absence of fabricated information

List 3-5 specific requirements that should be met, separated by newlines.`

var builtins = map[string]string{
	MetricCoherence:     coherenceTemplate,
	MetricQuality:       qualityTemplate,
	MetricCapture:       captureTemplate,
	MetricHallucination: hallucinationTemplate,
}

// Library holds one prompt template per evaluation metric.
type Library struct {
	templates map[string]prompts.PromptTemplate
}

// Load returns the built-in templates overlaid with any overrides from path.
// A missing file (or empty path) yields the built-ins unchanged. Override
// templates use Go template syntax with {{.content}} and {{.requirements}};
// metric names outside the built-in set are an error.
func Load(path string) (*Library, error) {
	lib := &Library{templates: make(map[string]prompts.PromptTemplate, len(builtins))}
	for name, text := range builtins {
		lib.templates[name] = newTemplate(text)
	}

	if path == "" {
		return lib, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return lib, nil
		}
		return nil, fmt.Errorf("reading prompts file: %w", err)
	}

	var file struct {
		EvaluationPrompts []struct {
			Section string `yaml:"section"`
			Prompt  string `yaml:"prompt"`
		} `yaml:"evaluation_prompts"`
	}
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parsing prompts file %s: %w", path, err)
	}

	for _, item := range file.EvaluationPrompts {
		name := strings.ToLower(strings.TrimSpace(item.Section))
		if _, ok := builtins[name]; !ok {
			return nil, fmt.Errorf("unknown metric %q in %s", item.Section, path)
		}
		if strings.TrimSpace(item.Prompt) == "" {
			return nil, fmt.Errorf("empty prompt for metric %q in %s", item.Section, path)
		}
		lib.templates[name] = newTemplate(item.Prompt)
	}

	return lib, nil
}

func newTemplate(text string) prompts.PromptTemplate {
	return prompts.NewPromptTemplate(text, []string{"content", "requirements"})
}

// Render formats the template for metric with the section content and its
// requirements joined by newlines. Both values are always supplied, so a
// template may reference either or both.
func (l *Library) Render(metric, content string, requirements []string) (string, error) {
	tmpl, ok := l.templates[metric]
	if !ok {
		return "", fmt.Errorf("no prompt template for metric %q", metric)
	}

	out, err := tmpl.Format(map[string]any{
		"content":      content,
		"requirements": strings.Join(requirements, "\n"),
	})
	if err != nil {
		return "", fmt.Errorf("rendering %s prompt: %w", metric, err)
	}
	return out, nil
}

// RenderRequirements renders the prompt that asks the model to produce 3-5
// requirements for a section title.
func RenderRequirements(title string) (string, error) {
	tmpl := prompts.NewPromptTemplate(requirementsTemplate, []string{"title"})
	out, err := tmpl.Format(map[string]any{"title": title})
	if err != nil {
		return "", fmt.Errorf("rendering requirements prompt: %w", err)
	}
	return out, nil
}
