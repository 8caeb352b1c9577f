package cli

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/agentx-labs/blueprint/internal/catalog"
	"github.com/agentx-labs/blueprint/internal/config"
	"github.com/agentx-labs/blueprint/internal/project"
	"github.com/agentx-labs/blueprint/internal/render"
	"github.com/agentx-labs/blueprint/internal/selector"
)

// projectFlags collect a project configuration from the command line. Flags
// override values read from --config.
type projectFlags struct {
	configFile string
	name       string
	projType   string
	stack      []string
	features   []string
	vars       []string
	with       []string
	exclude    []string
	envFile    string

	templateDirs []string
	rulesFile    string
}

func (f *projectFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVarP(&f.configFile, "config", "c", "", "Project file (YAML or JSON)")
	fl.StringVar(&f.name, "name", "", "Project name")
	fl.StringVar(&f.projType, "type", "", "Project type ("+strings.Join(project.Types, ", ")+")")
	fl.StringArrayVar(&f.stack, "stack", nil, "Tech stack choice as role=option (repeatable)")
	fl.StringArrayVar(&f.features, "feature", nil, "Feature flag (repeatable)")
	fl.StringArrayVar(&f.vars, "var", nil, "Custom variable as key=value (repeatable)")
	fl.StringArrayVar(&f.with, "with", nil, "Also generate this template id (repeatable)")
	fl.StringArrayVar(&f.exclude, "exclude", nil, "Leave out this optional template id (repeatable)")
	fl.StringVar(&f.envFile, "env-file", "", "Read custom variables from a dotenv file")
	fl.StringArrayVar(&f.templateDirs, "templates", nil, "Extra template directory, searched before the built-in set (repeatable)")
	fl.StringVar(&f.rulesFile, "rules", "", "YAML file overriding the selection rules")
}

// configuration builds the project configuration. Custom variables layer as
// env file < project file < --var.
func (f *projectFlags) configuration() (*project.Configuration, error) {
	cfg := &project.Configuration{}
	if f.configFile != "" {
		loaded, err := project.Load(f.configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if f.name != "" {
		cfg.Name = f.name
		cfg.Slug = ""
	}
	if f.projType != "" {
		cfg.Type = f.projType
	}
	for _, s := range f.stack {
		role, opt, err := project.ParseStack(s)
		if err != nil {
			return nil, fmt.Errorf("--stack: %w", err)
		}
		if cfg.TechStack == nil {
			cfg.TechStack = make(map[project.Role]string)
		}
		cfg.TechStack[role] = opt
	}
	cfg.Features = append(cfg.Features, f.features...)
	cfg.Templates = append(cfg.Templates, f.with...)
	cfg.Exclude = append(cfg.Exclude, f.exclude...)

	custom := make(map[string]string)
	if f.envFile != "" {
		env, err := godotenv.Read(f.envFile)
		if err != nil {
			return nil, fmt.Errorf("reading env file %s: %w", f.envFile, err)
		}
		for k, v := range env {
			custom[k] = v
		}
	}
	for k, v := range cfg.CustomVariables {
		custom[k] = v
	}
	for _, s := range f.vars {
		k, v, err := project.ParseAssignment(s)
		if err != nil {
			return nil, fmt.Errorf("--var: %w", err)
		}
		custom[k] = v
	}
	if len(custom) > 0 {
		cfg.CustomVariables = custom
	}

	if cfg.Name == "" && cfg.Slug == "" {
		return nil, fmt.Errorf("a project name is required: pass --name or --config")
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// rules returns the selection rules, nil meaning the defaults.
func (f *projectFlags) rules() (*selector.Rules, error) {
	if f.rulesFile == "" {
		return nil, nil
	}
	return selector.LoadRules(f.rulesFile)
}

// templateSources lists sources in priority order: --templates, then the
// templates.dirs setting, then the synced catalog, then the built-in set.
func templateSources(extra []string) []catalog.Source {
	var sources []catalog.Source
	for _, dir := range append(append([]string(nil), extra...), config.GetStringSlice(config.KeyTemplateDirs)...) {
		if dir = strings.TrimSpace(dir); dir != "" {
			sources = append(sources, catalog.DirSource(dir))
		}
	}
	if remote, ok := remoteCatalog().Source(); ok {
		sources = append(sources, remote)
	}
	return append(sources, catalog.BuiltinSource())
}

// remoteCatalog is the synced catalog under the config directory.
func remoteCatalog() *catalog.Remote {
	return catalog.NewRemote(config.CatalogDir(), catalog.RepoURL())
}

// openStore loads every template source.
func openStore(extra []string) (*catalog.Store, error) {
	store, err := catalog.Load(templateSources(extra), catalog.Options{
		GeneratorVersion: buildVersion,
		Logger:           logger,
	})
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}
	return store, nil
}

func configuredLayout() render.Layout {
	return render.Layout{BaseDir: config.Get(config.KeyBaseDir)}
}
