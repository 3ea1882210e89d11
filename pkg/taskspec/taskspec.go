// Package taskspec evaluates per-task specification documents. The scheduler
// only consumes the verdict and the summary strings; it never writes specs.
package taskspec

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Result is the collaborator contract the scheduler consumes.
type Result struct {
	Exists            bool
	Valid             bool
	Errors            []string
	SpecRelPath       string
	GoalSummary       string
	InScopeSummary    string
	AcceptanceSummary string
}

// frontMatter is the optional YAML block at the top of a spec document.
type frontMatter struct {
	Goal       string `yaml:"goal"`
	InScope    string `yaml:"in_scope"`
	Acceptance string `yaml:"acceptance"`
}

// requiredHeadings must each appear in a valid spec body.
var requiredHeadings = []string{"## Goal", "## In Scope", "## Acceptance"}

// RelPath returns the spec document path for a task, relative to repo root.
func RelPath(taskID string) string {
	return filepath.Join("docs", "tasks", taskID+".md")
}

// Evaluator is the default filesystem-backed collaborator.
type Evaluator struct{}

// Evaluate checks the spec document for taskID under repoRoot. A missing
// file yields Exists=false; a present file missing required headings yields
// Valid=false with one error per missing heading.
func (Evaluator) Evaluate(repoRoot, taskID string) Result {
	rel := RelPath(taskID)
	res := Result{SpecRelPath: rel}

	data, err := os.ReadFile(filepath.Join(repoRoot, rel))
	if err != nil {
		if !os.IsNotExist(err) {
			res.Errors = append(res.Errors, fmt.Sprintf("read %s: %v", rel, err))
		}
		return res
	}
	res.Exists = true

	fm, body := splitFrontMatter(string(data))

	var meta frontMatter
	if fm != "" {
		if err := yaml.Unmarshal([]byte(fm), &meta); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("front matter: %v", err))
		}
	}

	res.Valid = true
	for _, heading := range requiredHeadings {
		if !containsHeading(body, heading) {
			res.Valid = false
			res.Errors = append(res.Errors, fmt.Sprintf("missing section %q", heading))
		}
	}

	res.GoalSummary = firstNonEmpty(meta.Goal, sectionSummary(body, "## Goal"))
	res.InScopeSummary = firstNonEmpty(meta.InScope, sectionSummary(body, "## In Scope"))
	res.AcceptanceSummary = firstNonEmpty(meta.Acceptance, sectionSummary(body, "## Acceptance"))
	return res
}

// splitFrontMatter separates a leading "---" fenced YAML block from the
// document body. Documents without front matter return ("", whole doc).
func splitFrontMatter(doc string) (fm, body string) {
	lines := strings.Split(doc, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return "", doc
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			return strings.Join(lines[1:i], "\n"), strings.Join(lines[i+1:], "\n")
		}
	}
	return "", doc
}

// containsHeading reports whether the body has the heading on its own line.
func containsHeading(body, heading string) bool {
	for _, line := range strings.Split(body, "\n") {
		if strings.TrimSpace(line) == heading {
			return true
		}
	}
	return false
}

// sectionSummary returns the first non-empty line under a heading, stopping
// at the next heading.
func sectionSummary(body, heading string) string {
	lines := strings.Split(body, "\n")
	inSection := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == heading {
			inSection = true
			continue
		}
		if !inSection {
			continue
		}
		if strings.HasPrefix(trimmed, "#") {
			return ""
		}
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
