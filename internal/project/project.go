package project

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	perrors "github.com/agentx-labs/blueprint/internal/errors"
)

// Role names a slot in the tech stack.
type Role string

const (
	RoleBackend  Role = "backend"
	RoleFrontend Role = "frontend"
	RoleDatabase Role = "database"
	RoleCache    Role = "cache"
	RoleQueue    Role = "queue"
)

// Roles lists every tech-stack role in canonical order.
var Roles = []Role{RoleBackend, RoleFrontend, RoleDatabase, RoleCache, RoleQueue}

// Supported project types.
const (
	TypeSaaSWebApp   = "saas-web-app"
	TypeAPIService   = "api-service"
	TypeCLITool      = "cli-tool"
	TypeMobileApp    = "mobile-app"
	TypeDataPipeline = "data-pipeline"
	TypeLibrary      = "library"
)

// Types lists the closed set of project types.
var Types = []string{
	TypeSaaSWebApp,
	TypeAPIService,
	TypeCLITool,
	TypeMobileApp,
	TypeDataPipeline,
	TypeLibrary,
}

var slugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// Configuration is the resolved description of what to generate. It is
// produced by an external analyzer or supplied directly by the caller.
type Configuration struct {
	Name            string            `yaml:"name" json:"name"`
	Slug            string            `yaml:"slug,omitempty" json:"slug,omitempty"`
	Type            string            `yaml:"type" json:"type"`
	TechStack       map[Role]string   `yaml:"tech_stack,omitempty" json:"tech_stack,omitempty"`
	Features        []string          `yaml:"features,omitempty" json:"features,omitempty"`
	CustomVariables map[string]string `yaml:"custom_variables,omitempty" json:"custom_variables,omitempty"`

	// Templates are ids requested explicitly, in addition to the selection.
	Templates []string `yaml:"templates,omitempty" json:"templates,omitempty"`
	// Exclude lists optional template ids to leave out. Required templates
	// cannot be excluded.
	Exclude []string `yaml:"exclude,omitempty" json:"exclude,omitempty"`
}

// KnownType reports whether t is one of the supported project types.
func KnownType(t string) bool {
	for _, known := range Types {
		if known == t {
			return true
		}
	}
	return false
}

// KnownRole reports whether r is a tech-stack role.
func KnownRole(r Role) bool {
	for _, known := range Roles {
		if known == r {
			return true
		}
	}
	return false
}

// Stack returns the option chosen for a role and whether one was chosen.
func (c *Configuration) Stack(r Role) (string, bool) {
	v, ok := c.TechStack[r]
	return v, ok && v != ""
}

// HasFeature reports whether the feature flag is set.
func (c *Configuration) HasFeature(name string) bool {
	for _, f := range c.Features {
		if f == name {
			return true
		}
	}
	return false
}

// Normalize trims fields, derives Slug from Name when absent, drops empty
// stack entries, and sorts and dedupes Features. It fails when the slug
// cannot satisfy ^[a-z0-9-]+$ or a stack role is unknown.
func (c *Configuration) Normalize() error {
	c.Name = strings.TrimSpace(c.Name)
	c.Type = strings.TrimSpace(c.Type)
	c.Slug = strings.TrimSpace(c.Slug)

	if c.Slug == "" {
		c.Slug = Slugify(c.Name)
	}
	if c.Slug == "" {
		return perrors.InvalidConfig("project name %q yields an empty slug", c.Name)
	}
	if !slugPattern.MatchString(c.Slug) {
		return perrors.InvalidConfig("project slug %q must match %s", c.Slug, slugPattern.String())
	}
	if c.Name == "" {
		c.Name = c.Slug
	}

	for role, opt := range c.TechStack {
		if !KnownRole(role) {
			return perrors.InvalidConfig("unknown tech stack role %q", role)
		}
		opt = strings.TrimSpace(opt)
		if opt == "" {
			delete(c.TechStack, role)
			continue
		}
		c.TechStack[role] = opt
	}

	c.Features = sortedUnique(c.Features)
	c.Templates = orderedUnique(c.Templates)
	c.Exclude = sortedUnique(c.Exclude)
	return nil
}

// Clone returns a deep copy.
func (c *Configuration) Clone() *Configuration {
	out := *c
	if c.TechStack != nil {
		out.TechStack = make(map[Role]string, len(c.TechStack))
		for k, v := range c.TechStack {
			out.TechStack[k] = v
		}
	}
	if c.CustomVariables != nil {
		out.CustomVariables = make(map[string]string, len(c.CustomVariables))
		for k, v := range c.CustomVariables {
			out.CustomVariables[k] = v
		}
	}
	out.Features = append([]string(nil), c.Features...)
	out.Templates = append([]string(nil), c.Templates...)
	out.Exclude = append([]string(nil), c.Exclude...)
	return &out
}

// ParseAssignment splits "key=value". Whitespace around the key is trimmed.
func ParseAssignment(s string) (string, string, error) {
	key, value, ok := strings.Cut(s, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", "", fmt.Errorf("invalid assignment %q: expected key=value", s)
	}
	return key, value, nil
}

// ParseStack parses "role=option" into a stack entry.
func ParseStack(s string) (Role, string, error) {
	key, value, err := ParseAssignment(s)
	if err != nil {
		return "", "", err
	}
	role := Role(strings.ToLower(key))
	if !KnownRole(role) {
		return "", "", fmt.Errorf("unknown tech stack role %q (want one of %s)", key, joinRoles())
	}
	return role, strings.TrimSpace(value), nil
}

func joinRoles() string {
	names := make([]string, len(Roles))
	for i, r := range Roles {
		names[i] = string(r)
	}
	return strings.Join(names, ", ")
}

func sortedUnique(in []string) []string {
	out := orderedUnique(in)
	sort.Strings(out)
	return out
}

func orderedUnique(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
