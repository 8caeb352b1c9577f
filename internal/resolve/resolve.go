package resolve

import (
	"sort"
	"strings"

	"github.com/agentx-labs/blueprint/internal/catalog"
	perrors "github.com/agentx-labs/blueprint/internal/errors"
	"github.com/agentx-labs/blueprint/internal/project"
)

// Variables maps placeholder names to values. Values are strings or bools.
type Variables map[string]any

// Clone returns a shallow copy.
func (v Variables) Clone() Variables {
	out := make(Variables, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Has reports whether name is set.
func (v Variables) Has(name string) bool {
	_, ok := v[name]
	return ok
}

// Names returns the variable names sorted.
func (v Variables) Names() []string {
	names := make([]string, 0, len(v))
	for k := range v {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Resolve builds the variables for rendering desc against cfg. It fails with
// a MissingVariable error naming the first absent required variable.
func Resolve(cfg *project.Configuration, desc *catalog.Descriptor) (Variables, error) {
	vars := make(Variables)
	for k, v := range desc.OptionalVariables {
		vars[k] = v
	}
	for k, v := range ProjectVariables(cfg) {
		vars[k] = v
	}

	for _, name := range desc.RequiredVariables {
		if !vars.Has(name) {
			return nil, perrors.MissingVariable(desc.ID, name)
		}
	}
	return vars, nil
}

// ProjectVariables returns the template-independent layers: derived values
// overlaid with custom variables.
func ProjectVariables(cfg *project.Configuration) Variables {
	vars := Derived(cfg)
	for k, v := range cfg.CustomVariables {
		vars[k] = v
	}
	return vars
}

// Derived returns only the values computed from the configuration.
func Derived(cfg *project.Configuration) Variables {
	name := cfg.Name
	if name == "" {
		name = cfg.Slug
	}
	slug := cfg.Slug
	if slug == "" {
		slug = project.Slugify(name)
	}

	vars := Variables{
		"project_name":        name,
		"project_slug":        slug,
		"project_type":        cfg.Type,
		"project_name_pascal": project.Pascal(name),
		"project_name_snake":  project.Snake(name),
		"project_name_kebab":  project.Kebab(name),
	}

	for _, role := range project.Roles {
		opt, ok := cfg.Stack(role)
		if !ok {
			continue
		}
		r := string(role)
		vars[r] = opt
		vars["has_"+r] = true

		d := describe(role, opt)
		if codeRole(role) {
			vars[r+"_framework"] = d.framework
			if d.language != "" {
				vars[r+"_language"] = d.language
				vars["language_"+project.Snake(d.language)] = true
			}
		} else {
			vars[r+"_engine"] = d.engine
		}
	}

	features := make([]string, 0, len(cfg.Features))
	for _, f := range cfg.Features {
		key := project.Snake(f)
		if key == "" {
			continue
		}
		vars["feature_"+key] = true
		features = append(features, f)
	}
	sort.Strings(features)
	vars["features"] = strings.Join(features, ", ")

	return vars
}
