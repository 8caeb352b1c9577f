package materialize

import (
	"fmt"
	"strings"
)

// Entry describes one path that was written or left alone.
type Entry struct {
	Path       string `json:"path"`
	TemplateID string `json:"template_id,omitempty"`
	Action     Action `json:"action"`
	Reason     string `json:"reason,omitempty"`
	// Backup is the path the previous content was copied to.
	Backup string `json:"backup,omitempty"`
}

// Failure is an artifact that could not be placed. The rest of the batch
// still proceeds.
type Failure struct {
	Path       string `json:"path"`
	TemplateID string `json:"template_id,omitempty"`
	Code       string `json:"code"`
	Reason     string `json:"reason"`
}

// Manifest reports the outcome of a batch. Each path appears in at most one
// of Created, Skipped, and Failed. Created holds every written path,
// whatever the action.
type Manifest struct {
	Root     string    `json:"root"`
	Created  []Entry   `json:"created"`
	Skipped  []Entry   `json:"skipped"`
	Failed   []Failure `json:"failed"`
	Warnings []string  `json:"warnings,omitempty"`
	DryRun   bool      `json:"dry_run,omitempty"`
}

func newManifest(root string, dryRun bool) *Manifest {
	return &Manifest{
		Root:    root,
		Created: []Entry{},
		Skipped: []Entry{},
		Failed:  []Failure{},
		DryRun:  dryRun,
	}
}

func (m *Manifest) warnf(format string, args ...any) {
	m.Warnings = append(m.Warnings, fmt.Sprintf(format, args...))
}

// Find returns the list name ("created", "skipped", or "failed") holding
// path, or "" when the path is not in the manifest.
func (m *Manifest) Find(path string) string {
	for _, e := range m.Created {
		if e.Path == path {
			return "created"
		}
	}
	for _, e := range m.Skipped {
		if e.Path == path {
			return "skipped"
		}
	}
	for _, f := range m.Failed {
		if f.Path == path {
			return "failed"
		}
	}
	return ""
}

// OK reports whether no artifact failed.
func (m *Manifest) OK() bool {
	return len(m.Failed) == 0
}

// Summary is a one-line count of outcomes.
func (m *Manifest) Summary() string {
	verb := "created"
	if m.DryRun {
		verb = "would create"
	}
	parts := []string{fmt.Sprintf("%d %s", len(m.Created), verb), fmt.Sprintf("%d skipped", len(m.Skipped))}
	if len(m.Failed) > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", len(m.Failed)))
	}
	return strings.Join(parts, ", ")
}
