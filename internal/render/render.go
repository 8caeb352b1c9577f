package render

import (
	"io/fs"

	"github.com/agentx-labs/blueprint/internal/catalog"
)

// Artifact is one rendered file waiting to be written.
type Artifact struct {
	TemplateID   string      `json:"template_id"`
	RelativePath string      `json:"path"`
	Content      string      `json:"-"`
	Mode         fs.FileMode `json:"mode"`
}

// Renderer renders descriptors. It holds no mutable state, so one Renderer
// can serve concurrent calls.
type Renderer struct {
	Partials PartialSource
	Layout   Layout
}

// New creates a renderer that resolves includes through partials.
func New(partials PartialSource, layout Layout) *Renderer {
	return &Renderer{Partials: partials, Layout: layout}
}

// Render produces the artifact for desc. vars normally come from
// resolve.Resolve; desc's own defaults fill any gaps.
func (r *Renderer) Render(desc *catalog.Descriptor, vars map[string]any) (*Artifact, error) {
	content, err := r.Execute(desc, vars)
	if err != nil {
		return nil, err
	}
	rel, err := OutputPath(desc, vars, r.Layout)
	if err != nil {
		return nil, err
	}
	mode := desc.Mode
	if mode == 0 {
		mode = catalog.DefaultMode
	}
	return &Artifact{
		TemplateID:   desc.ID,
		RelativePath: rel,
		Content:      content,
		Mode:         mode,
	}, nil
}

// Execute renders only the body of desc.
func (r *Renderer) Execute(desc *catalog.Descriptor, vars map[string]any) (string, error) {
	e := &execution{partials: r.Partials, vars: vars}
	out, err := e.run(desc)
	if err != nil {
		return "", err
	}
	return tidy(out), nil
}

// Check parses desc's body and output pattern without rendering, reporting
// the first syntax error.
func Check(desc *catalog.Descriptor) error {
	if _, err := parse(desc.ID, desc.Body); err != nil {
		return err
	}
	if desc.Output != "" {
		if _, err := parse(desc.ID, desc.Output); err != nil {
			return err
		}
	}
	return nil
}
