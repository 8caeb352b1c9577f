// Package branding holds the product identity baked into the binary from
// branding.yaml: command name, home directory, environment prefix, and the
// template catalog to sync from.
package branding

import (
	_ "embed"
	"strings"

	"go.yaml.in/yaml/v3"
)

//go:embed branding.yaml
var rawIdentity []byte

// Identity is the set of names a rebuilt fork can change.
type Identity struct {
	CLIName     string `yaml:"cli_name"`
	DisplayName string `yaml:"display_name"`
	Description string `yaml:"description"`
	HomeDir     string `yaml:"home_dir"`
	EnvPrefix   string `yaml:"env_prefix"`
	ProjectDir  string `yaml:"project_dir"`
	CatalogRepo string `yaml:"catalog_repo"`
}

var current = parse(rawIdentity)

// parse overlays data on the built-in identity. Fields the file leaves
// empty keep their built-in value.
func parse(data []byte) Identity {
	id := Identity{
		CLIName:     "blueprint",
		DisplayName: "Blueprint",
		Description: "Template-driven project scaffolding",
		HomeDir:     ".blueprint",
		EnvPrefix:   "BLUEPRINT",
		ProjectDir:  ".project",
	}
	var file Identity
	if err := yaml.Unmarshal(data, &file); err != nil {
		return id
	}
	for dst, src := range map[*string]string{
		&id.CLIName:     file.CLIName,
		&id.DisplayName: file.DisplayName,
		&id.Description: file.Description,
		&id.HomeDir:     file.HomeDir,
		&id.EnvPrefix:   file.EnvPrefix,
		&id.ProjectDir:  file.ProjectDir,
		&id.CatalogRepo: file.CatalogRepo,
	} {
		if src != "" {
			*dst = src
		}
	}
	return id
}

// Current returns the embedded identity.
func Current() Identity { return current }

func CLIName() string     { return current.CLIName }
func DisplayName() string { return current.DisplayName }
func Description() string { return current.Description }

// HomeDir is the dot-directory under $HOME that holds settings and the
// synced catalog.
func HomeDir() string { return current.HomeDir }

func EnvPrefix() string { return current.EnvPrefix }

// ProjectDir is the default directory, relative to the output root, that
// receives agents, skills, and commands.
func ProjectDir() string { return current.ProjectDir }

// CatalogRepoURL is the git URL of the remote template catalog. Empty means
// no default catalog.
func CatalogRepoURL() string { return current.CatalogRepo }

// EnvVar qualifies suffix with the environment prefix: EnvVar("home") is
// BLUEPRINT_HOME.
func EnvVar(suffix string) string {
	return current.EnvPrefix + "_" + strings.ToUpper(suffix)
}
