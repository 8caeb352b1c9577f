package resolve

import (
	"testing"

	"github.com/agentx-labs/blueprint/internal/catalog"
	perrors "github.com/agentx-labs/blueprint/internal/errors"
	"github.com/agentx-labs/blueprint/internal/project"
)

func shopConfig(t *testing.T) *project.Configuration {
	t.Helper()
	cfg := &project.Configuration{
		Name: "My Shop",
		Type: project.TypeSaaSWebApp,
		TechStack: map[project.Role]string{
			project.RoleBackend:  "python-fastapi",
			project.RoleDatabase: "postgresql",
		},
		Features: []string{"payments", "authentication"},
	}
	if err := cfg.Normalize(); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestDerived(t *testing.T) {
	vars := Derived(shopConfig(t))

	want := map[string]any{
		"project_name":           "My Shop",
		"project_slug":           "my-shop",
		"project_type":           "saas-web-app",
		"project_name_pascal":    "MyShop",
		"project_name_snake":     "my_shop",
		"project_name_kebab":     "my-shop",
		"backend":                "python-fastapi",
		"backend_framework":      "FastAPI",
		"backend_language":       "Python",
		"has_backend":            true,
		"language_python":        true,
		"database":               "postgresql",
		"database_engine":        "PostgreSQL",
		"has_database":           true,
		"feature_authentication": true,
		"feature_payments":       true,
		"features":               "authentication, payments",
	}
	for k, v := range want {
		if vars[k] != v {
			t.Errorf("%s = %v, want %v", k, vars[k], v)
		}
	}

	for _, absent := range []string{"frontend", "has_frontend", "cache_engine", "queue"} {
		if vars.Has(absent) {
			t.Errorf("%s should be absent, got %v", absent, vars[absent])
		}
	}
}

func TestDerivedUnknownOption(t *testing.T) {
	cfg := &project.Configuration{
		Name: "x",
		Type: project.TypeAPIService,
		TechStack: map[project.Role]string{
			project.RoleBackend: "elixir-phoenix",
			project.RoleQueue:   "pulsar",
		},
	}
	vars := Derived(cfg)
	if vars["backend_framework"] != "elixir-phoenix" {
		t.Errorf("backend_framework = %v", vars["backend_framework"])
	}
	if vars.Has("backend_language") {
		t.Error("unknown option should not invent a language")
	}
	if vars["queue_engine"] != "pulsar" {
		t.Errorf("queue_engine = %v", vars["queue_engine"])
	}
	if vars["features"] != "" {
		t.Errorf("features = %q, want empty", vars["features"])
	}
}

func TestResolvePrecedence(t *testing.T) {
	cfg := shopConfig(t)
	cfg.CustomVariables = map[string]string{
		"backend_framework": "FastAPI 0.110",
		"company":           "Acme",
	}
	desc := &catalog.Descriptor{
		ID:                "api-development-agent",
		RequiredVariables: []string{"project_name", "backend_framework"},
		OptionalVariables: map[string]string{
			"api_style":       "REST",
			"database_engine": "SQLite",
			"company":         "Nobody",
		},
	}

	vars, err := Resolve(cfg, desc)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}

	tests := []struct {
		name string
		want any
	}{
		{"api_style", "REST"},                  // default only
		{"database_engine", "PostgreSQL"},      // derived beats default
		{"backend_framework", "FastAPI 0.110"}, // custom beats derived
		{"company", "Acme"},                    // custom beats default
	}
	for _, tt := range tests {
		if vars[tt.name] != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, vars[tt.name], tt.want)
		}
	}

	if desc.OptionalVariables["database_engine"] != "SQLite" {
		t.Error("Resolve must not modify the descriptor")
	}
}

func TestResolveMissingRequired(t *testing.T) {
	cfg := &project.Configuration{Name: "Tool", Type: project.TypeCLITool}
	if err := cfg.Normalize(); err != nil {
		t.Fatal(err)
	}
	desc := &catalog.Descriptor{
		ID:                "api-development-agent",
		RequiredVariables: []string{"project_name", "backend_framework"},
	}

	_, err := Resolve(cfg, desc)
	if !perrors.HasCode(err, perrors.CodeMissingVariable) {
		t.Fatalf("err = %v, want %s", err, perrors.CodeMissingVariable)
	}
	e, _ := perrors.As(err)
	if e.Detail("template") != "api-development-agent" || e.Detail("variable") != "backend_framework" {
		t.Errorf("details = %v", e.Details)
	}
}

func TestProjectVariablesIncludesCustom(t *testing.T) {
	cfg := shopConfig(t)
	cfg.CustomVariables = map[string]string{"project_name": "Renamed"}
	vars := ProjectVariables(cfg)
	if vars["project_name"] != "Renamed" {
		t.Errorf("project_name = %v", vars["project_name"])
	}
	if vars["project_slug"] != "my-shop" {
		t.Errorf("project_slug = %v", vars["project_slug"])
	}
}

func TestVariablesHelpers(t *testing.T) {
	v := Variables{"b": "2", "a": true}
	c := v.Clone()
	c["c"] = "3"
	if v.Has("c") {
		t.Error("Clone should not share storage")
	}
	names := c.Names()
	if len(names) != 3 || names[0] != "a" || names[2] != "c" {
		t.Errorf("Names() = %v", names)
	}
}
