package render

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/agentx-labs/blueprint/internal/catalog"
	perrors "github.com/agentx-labs/blueprint/internal/errors"
)

// PartialSource looks up templates referenced by {{> id}}.
type PartialSource interface {
	Get(id string) (*catalog.Descriptor, bool)
}

// execution holds the state of one top-level render. The include stack is
// the chain of template ids currently being expanded.
type execution struct {
	partials PartialSource
	vars     map[string]any
	stack    []string
}

func (e *execution) run(desc *catalog.Descriptor) (string, error) {
	for _, id := range e.stack {
		if id == desc.ID {
			chain := append(append([]string(nil), e.stack...), desc.ID)
			return "", perrors.CircularInclude(chain)
		}
	}
	e.stack = append(e.stack, desc.ID)
	defer func() { e.stack = e.stack[:len(e.stack)-1] }()

	nodes, err := parse(desc.ID, desc.Body)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	if err := e.eval(desc, nodes, &b); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (e *execution) eval(desc *catalog.Descriptor, nodes []node, b *strings.Builder) error {
	for _, n := range nodes {
		switch n := n.(type) {
		case textNode:
			b.WriteString(n.text)
		case varNode:
			v, ok := e.lookup(desc, n.name)
			if !ok {
				return perrors.MissingVariable(desc.ID, n.name).WithDetail("line", n.line)
			}
			b.WriteString(format(v))
		case condNode:
			v, _ := e.lookup(desc, n.name)
			branch := n.then
			if truthy(v) == n.negate {
				branch = n.els
			}
			if err := e.eval(desc, branch, b); err != nil {
				return err
			}
		case partialNode:
			out, err := e.include(desc, n)
			if err != nil {
				return err
			}
			b.WriteString(out)
		}
	}
	return nil
}

func (e *execution) include(from *catalog.Descriptor, n partialNode) (string, error) {
	if e.partials == nil {
		return "", perrors.TemplateNotFound(n.id).WithDetail("included_by", from.ID)
	}
	partial, ok := e.partials.Get(n.id)
	if !ok {
		return "", perrors.TemplateNotFound(n.id).WithDetail("included_by", from.ID).WithDetail("line", n.line)
	}
	out, err := e.run(partial)
	if err != nil {
		return "", err
	}
	if n.standalone {
		if out != "" && !strings.HasSuffix(out, "\n") {
			out += "\n"
		}
		return out, nil
	}
	return strings.TrimSuffix(out, "\n"), nil
}

// lookup prefers the supplied variables over the current template's own
// declared defaults.
func (e *execution) lookup(desc *catalog.Descriptor, name string) (any, bool) {
	if v, ok := e.vars[name]; ok {
		return v, true
	}
	if v, ok := desc.Default(name); ok {
		return v, true
	}
	return nil, false
}

func format(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case []string:
		return strings.Join(v, ", ")
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}

// truthy is false for absent values, "", false, 0, "false" and "0".
func truthy(v any) bool {
	switch v := v.(type) {
	case nil:
		return false
	case string:
		return v != "" && v != "false" && v != "0"
	case bool:
		return v
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	case []string:
		return len(v) > 0
	}
	return true
}

var blankRun = regexp.MustCompile(`\n(?:[ \t]*\n){3,}`)

// tidy collapses three or more consecutive blank lines into one and ends the
// text with exactly one newline.
func tidy(s string) string {
	s = blankRun.ReplaceAllString(s, "\n\n")
	return strings.TrimRight(s, " \t\n") + "\n"
}

func itoa(i int) string { return strconv.Itoa(i) }
