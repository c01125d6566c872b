package redact

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	gitleaksconfig "github.com/zricethezav/gitleaks/v8/config"
	"github.com/zricethezav/gitleaks/v8/detect"
	gitleaksregexp "github.com/zricethezav/gitleaks/v8/regexp"

	"github.com/fyrsmithlabs/doceval/internal/config"
)

// Finding describes one detected secret with its position in the content.
type Finding struct {
	RuleID      string // Gitleaks rule ID (e.g. "github-pat")
	Description string // Human-readable rule description
	Line        int    // 1-based line number
	StartCol    int    // Start column within the line
	EndCol      int    // End column within the line
	Secret      string // The matched secret value
}

// Redactor scans content with the default Gitleaks rule set and replaces each
// secret with a [REDACTED:<rule-id>] marker. A disabled Redactor passes
// content through untouched.
//
// The detector is built once at construction and is safe for concurrent use.
type Redactor struct {
	enabled  bool
	detector *detect.Detector
}

// New builds a Redactor from cfg. When redaction is enabled the allowlist is
// merged from the project .gitleaks.toml under projectDir and from the user
// file named by cfg.AllowlistFile.
func New(cfg config.RedactionConfig, projectDir string) (*Redactor, error) {
	if !cfg.Enabled {
		return &Redactor{}, nil
	}

	allow, err := LoadAllowlists(projectDir, cfg.AllowlistFile)
	if err != nil {
		return nil, fmt.Errorf("loading allowlists: %w", err)
	}

	detector, err := detect.NewDetectorDefaultConfig()
	if err != nil {
		return nil, fmt.Errorf("creating detector: %w", err)
	}
	if err := applyAllowlist(&detector.Config, allow); err != nil {
		return nil, err
	}

	return &Redactor{enabled: true, detector: detector}, nil
}

// Enabled reports whether the redactor scans content.
func (r *Redactor) Enabled() bool { return r.enabled }

// Detect returns the secrets found in content. A disabled redactor reports
// none.
func (r *Redactor) Detect(content string) []Finding {
	if !r.enabled {
		return nil
	}

	raw := r.detector.DetectString(content)
	findings := make([]Finding, 0, len(raw))
	for _, f := range raw {
		findings = append(findings, Finding{
			RuleID:      f.RuleID,
			Description: f.Description,
			Line:        f.StartLine,
			StartCol:    f.StartColumn,
			EndCol:      f.EndColumn,
			Secret:      f.Secret,
		})
	}
	return findings
}

// Redact replaces every detected secret in content with a marker and returns
// the rewritten content together with the findings that drove the rewrite.
// Content without secrets is returned unchanged.
func (r *Redactor) Redact(content string) (string, []Finding) {
	findings := r.Detect(content)
	if len(findings) == 0 {
		return content, nil
	}
	return replaceFindings(content, findings), findings
}

// replaceFindings rewrites content with markers, walking findings from the
// bottom of the document up so earlier replacements do not shift the column
// offsets of later ones.
func replaceFindings(content string, findings []Finding) string {
	sorted := make([]Finding, len(findings))
	copy(sorted, findings)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Line != sorted[j].Line {
			return sorted[i].Line > sorted[j].Line
		}
		return sorted[i].StartCol > sorted[j].StartCol
	})

	lines := strings.Split(content, "\n")
	for _, f := range sorted {
		if f.Line < 1 || f.Line > len(lines) {
			continue
		}
		line := lines[f.Line-1]
		if f.StartCol < 0 || f.EndCol > len(line) {
			continue
		}
		lines[f.Line-1] = line[:f.StartCol] + "[REDACTED:" + f.RuleID + "]" + line[f.EndCol:]
	}

	return strings.Join(lines, "\n")
}

// applyAllowlist folds the merged allowlist into the Gitleaks config as one
// global entry. Patterns were validated at load time, so compile errors here
// mean the allowlist bypassed LoadAllowlists.
func applyAllowlist(cfg *gitleaksconfig.Config, allow *Allowlist) error {
	if len(allow.Paths) == 0 && len(allow.Regexes) == 0 {
		return nil
	}

	entry := &gitleaksconfig.Allowlist{Description: "doceval allowlist"}
	for _, pattern := range allow.Paths {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return fmt.Errorf("%w: %q: %v", ErrInvalidRegex, pattern, err)
		}
		entry.Paths = append(entry.Paths, (*gitleaksregexp.Regexp)(re))
	}
	for _, pattern := range allow.Regexes {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return fmt.Errorf("%w: %q: %v", ErrInvalidRegex, pattern, err)
		}
		entry.Regexes = append(entry.Regexes, (*gitleaksregexp.Regexp)(re))
	}
	entry.StopWords = append(entry.StopWords, allow.Regexes...)

	cfg.Allowlists = append(cfg.Allowlists, entry)
	return nil
}
