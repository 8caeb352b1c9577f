package selector

import (
	"fmt"
	"os"
	"sort"

	"go.yaml.in/yaml/v3"

	"github.com/agentx-labs/blueprint/internal/project"
)

// Rules map project types, features, and tech-stack options to template ids.
type Rules struct {
	// Required lists the templates every project of a type must get.
	Required map[string][]string `yaml:"required"`
	// Features maps a feature flag to the template it adds.
	Features map[string]string `yaml:"features"`
	// Stack maps a tech-stack option to the template it adds.
	Stack map[string]string `yaml:"stack"`
}

// DefaultRules returns the built-in selection table.
func DefaultRules() *Rules {
	return &Rules{
		Required: map[string][]string{
			project.TypeSaaSWebApp:   {"api-development-agent", "frontend-ui-agent", "database-agent"},
			project.TypeAPIService:   {"api-development-agent", "database-agent", "api-docs"},
			project.TypeCLITool:      {"cli-agent", "testing-agent"},
			project.TypeMobileApp:    {"mobile-agent", "frontend-ui-agent"},
			project.TypeDataPipeline: {"data-engineering-agent", "database-agent"},
			project.TypeLibrary:      {"library-maintainer-agent", "testing-agent"},
		},
		Features: map[string]string{
			"authentication":  "authentication",
			"payments":        "payments",
			"background-jobs": "background-jobs",
			"docker":          "docker-compose",
		},
		Stack: map[string]string{
			"python-fastapi": "python-fastapi",
			"node-express":   "node-express",
			"go-gin":         "go-gin",
			"react":          "react",
			"vue":            "vue",
			"postgresql":     "postgresql",
			"mongodb":        "mongodb",
			"redis":          "redis",
			"rabbitmq":       "rabbitmq",
		},
	}
}

// rulesFile is the on-disk form. Entries override the defaults key by key;
// an empty value removes a mapping. With replace set the defaults are
// discarded first.
type rulesFile struct {
	Replace  bool                `yaml:"replace"`
	Required map[string][]string `yaml:"required"`
	Features map[string]string   `yaml:"features"`
	Stack    map[string]string   `yaml:"stack"`
}

// LoadRules reads a YAML rules file layered over DefaultRules.
func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules %s: %w", path, err)
	}
	return ParseRules(data)
}

// ParseRules decodes rules YAML layered over DefaultRules.
func ParseRules(data []byte) (*Rules, error) {
	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing rules: %w", err)
	}

	r := DefaultRules()
	if f.Replace {
		r = &Rules{Required: map[string][]string{}, Features: map[string]string{}, Stack: map[string]string{}}
	}
	for t, ids := range f.Required {
		if len(ids) == 0 {
			delete(r.Required, t)
			continue
		}
		r.Required[t] = ids
	}
	overlay(r.Features, f.Features)
	overlay(r.Stack, f.Stack)
	return r, nil
}

func overlay(dst, src map[string]string) {
	for k, v := range src {
		if v == "" {
			delete(dst, k)
			continue
		}
		dst[k] = v
	}
}

// TriggerTargets returns every template id reachable through a feature or
// tech-stack mapping. Those templates are only selected when triggered.
func (r *Rules) TriggerTargets() map[string]bool {
	out := make(map[string]bool, len(r.Features)+len(r.Stack))
	for _, id := range r.Features {
		out[id] = true
	}
	for _, id := range r.Stack {
		out[id] = true
	}
	return out
}

// RequiredFor returns the required ids for a project type.
func (r *Rules) RequiredFor(projectType string) []string {
	return r.Required[projectType]
}

// Types returns the project types with a required set, sorted.
func (r *Rules) Types() []string {
	out := make([]string, 0, len(r.Required))
	for t := range r.Required {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
