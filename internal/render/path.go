package render

import (
	"path"
	"strings"

	"github.com/agentx-labs/blueprint/internal/catalog"
	perrors "github.com/agentx-labs/blueprint/internal/errors"
)

// DefaultBaseDir holds agents, skills, and commands.
const DefaultBaseDir = ".project"

// DocsDir holds document templates.
const DocsDir = "docs"

// Layout controls where each template kind is written.
type Layout struct {
	BaseDir string
}

// DefaultLayout returns the layout used when nothing is configured.
func DefaultLayout() Layout {
	return Layout{BaseDir: DefaultBaseDir}
}

// Base returns the cleaned base directory, falling back to DefaultBaseDir.
func (l Layout) Base() string {
	if strings.TrimSpace(l.BaseDir) == "" {
		return DefaultBaseDir
	}
	return strings.Trim(path.Clean(filepathToSlash(l.BaseDir)), "/")
}

// KindDir returns the directory a kind is written under, relative to the
// output root. Boilerplate files live at the root.
func (l Layout) KindDir(k catalog.Kind) string {
	switch k {
	case catalog.KindAgent:
		return path.Join(l.Base(), "agents")
	case catalog.KindSkill:
		return path.Join(l.Base(), "skills")
	case catalog.KindCommand:
		return path.Join(l.Base(), "commands")
	case catalog.KindDocument:
		return DocsDir
	}
	return ""
}

// OutputPath computes the slash-separated path of the file desc produces,
// relative to the output root. An output pattern is rendered with vars and
// resolved against the kind directory. The result may still point outside
// the root; containment is checked when files are written.
func OutputPath(desc *catalog.Descriptor, vars map[string]any, layout Layout) (string, error) {
	if !desc.Materialized() {
		return "", perrors.Newf(perrors.CodeMalformed, "template %s is a partial and has no output path", desc.ID).
			WithDetail("template", desc.ID)
	}

	dir := layout.KindDir(desc.Kind)
	if desc.Output == "" {
		switch desc.Kind {
		case catalog.KindSkill:
			return path.Join(dir, desc.ID, "SKILL.md"), nil
		case catalog.KindBoilerplate:
			return "", perrors.Malformed(desc.ID, 0, "boilerplate-file templates must declare output")
		}
		return path.Join(dir, desc.ID+".md"), nil
	}

	e := &execution{vars: vars}
	pattern := &catalog.Descriptor{ID: desc.ID, Body: desc.Output, OptionalVariables: desc.OptionalVariables}
	rendered, err := e.run(pattern)
	if err != nil {
		return "", err
	}
	rendered = filepathToSlash(strings.TrimSpace(rendered))
	if rendered == "" {
		return "", perrors.Malformed(desc.ID, 0, "output pattern "+quote(desc.Output)+" rendered to an empty path")
	}
	if path.IsAbs(rendered) {
		// Absolute patterns are kept as-is so the materializer rejects them.
		return path.Clean(rendered), nil
	}
	return path.Join(dir, rendered), nil
}

func filepathToSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}
