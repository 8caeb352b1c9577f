package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/agentx-labs/blueprint/internal/catalog"
	"github.com/agentx-labs/blueprint/internal/config"
	"github.com/agentx-labs/blueprint/internal/project"
)

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestConfigurationFromFlags(t *testing.T) {
	f := projectFlags{
		name:     "My Shop",
		projType: project.TypeSaaSWebApp,
		stack:    []string{"backend=python-fastapi", "database=postgresql"},
		features: []string{"payments", "authentication"},
		vars:     []string{"team=core"},
		with:     []string{"onboarding"},
	}
	cfg, err := f.configuration()
	if err != nil {
		t.Fatalf("configuration() error: %v", err)
	}
	if cfg.Slug != "my-shop" {
		t.Errorf("Slug = %q, want my-shop", cfg.Slug)
	}
	if cfg.TechStack[project.RoleBackend] != "python-fastapi" || cfg.TechStack[project.RoleDatabase] != "postgresql" {
		t.Errorf("TechStack = %v", cfg.TechStack)
	}
	if strings.Join(cfg.Features, ",") != "authentication,payments" {
		t.Errorf("Features = %v", cfg.Features)
	}
	if cfg.CustomVariables["team"] != "core" {
		t.Errorf("CustomVariables = %v", cfg.CustomVariables)
	}
	if len(cfg.Templates) != 1 || cfg.Templates[0] != "onboarding" {
		t.Errorf("Templates = %v", cfg.Templates)
	}
}

func TestCustomVariablePrecedence(t *testing.T) {
	dir := t.TempDir()
	env := writeTestFile(t, dir, ".env", "owner=env\nregion=env\nonly_env=yes\n")
	file := writeTestFile(t, dir, "project.yaml", `name: Shop
type: api-service
custom_variables:
  owner: file
  region: file
`)

	f := projectFlags{configFile: file, envFile: env, vars: []string{"owner=flag"}}
	cfg, err := f.configuration()
	if err != nil {
		t.Fatal(err)
	}

	want := map[string]string{"owner": "flag", "region": "file", "only_env": "yes"}
	for k, v := range want {
		if got := cfg.CustomVariables[k]; got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
	if cfg.Type != project.TypeAPIService {
		t.Errorf("Type = %q", cfg.Type)
	}
}

func TestFlagsOverrideProjectFile(t *testing.T) {
	file := writeTestFile(t, t.TempDir(), "project.yaml", "name: Old Name\ntype: library\n")
	f := projectFlags{configFile: file, name: "New Name", projType: project.TypeCLITool}
	cfg, err := f.configuration()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Name != "New Name" || cfg.Slug != "new-name" || cfg.Type != project.TypeCLITool {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestConfigurationErrors(t *testing.T) {
	tests := []struct {
		name  string
		flags projectFlags
		want  string
	}{
		{"no name", projectFlags{projType: "library"}, "project name is required"},
		{"bad stack role", projectFlags{name: "x", stack: []string{"orm=prisma"}}, "unknown tech stack role"},
		{"bad stack syntax", projectFlags{name: "x", stack: []string{"backend"}}, "expected key=value"},
		{"bad var", projectFlags{name: "x", vars: []string{"=v"}}, "--var"},
		{"missing env file", projectFlags{name: "x", envFile: "/nonexistent/.env"}, "reading env file"},
		{"name without alphanumerics", projectFlags{name: "!!!"}, "empty slug"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.flags.configuration()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestFilterKind(t *testing.T) {
	descs := []*catalog.Descriptor{
		{ID: "a", Kind: catalog.KindAgent},
		{ID: "b", Kind: catalog.KindSkill},
		{ID: "c", Kind: catalog.KindAgent},
	}
	got, err := filterKind(descs, "agent")
	if err != nil || len(got) != 2 {
		t.Errorf("filterKind(agent) = %v, %v", got, err)
	}
	if got, _ := filterKind(descs, ""); len(got) != 3 {
		t.Errorf("empty kind should keep everything, got %d", len(got))
	}
	if _, err := filterKind(descs, "agents"); err == nil {
		t.Error("unknown kind should fail")
	}
}

func TestSortEntries(t *testing.T) {
	entries := []templateEntry{
		{ID: "z", Kind: "skill"},
		{ID: "b", Kind: "agent"},
		{ID: "x", Kind: "boilerplate-file"},
		{ID: "a", Kind: "agent"},
	}
	sortEntries(entries)
	var ids []string
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	if strings.Join(ids, ",") != "a,b,z,x" {
		t.Errorf("order = %v", ids)
	}
}

func TestCheckConfigValue(t *testing.T) {
	tests := []struct {
		key, value string
		ok         bool
	}{
		{config.KeyPolicy, "merge", true},
		{config.KeyPolicy, "replace", false},
		{config.KeyWorkers, "8", true},
		{config.KeyWorkers, "0", false},
		{config.KeyWorkers, "many", false},
		{config.KeyBaseDir, ".claude", true},
	}
	for _, tt := range tests {
		err := checkConfigValue(tt.key, tt.value)
		if (err == nil) != tt.ok {
			t.Errorf("checkConfigValue(%s, %s) = %v, want ok=%v", tt.key, tt.value, err, tt.ok)
		}
	}
}

func TestValidateFile(t *testing.T) {
	dir := t.TempDir()
	good := writeTestFile(t, dir, "good.md", "---\nid: my-agent\nkind: agent\n---\nHello {{ project_name }}\n")
	broken := writeTestFile(t, dir, "broken.md", "---\nid: my-agent\nkind: agent\n---\n{{#if x}}open\n")
	badKind := writeTestFile(t, dir, "bad-kind.md", "---\nid: my-agent\nkind: widget\n---\nbody\n")
	proj := writeTestFile(t, dir, "project.yaml", "name: Shop\ntype: saas-web-app\n")
	txt := writeTestFile(t, dir, "notes.txt", "hi")

	tests := []struct {
		path string
		ok   bool
	}{
		{good, true},
		{broken, false},
		{badKind, false},
		{proj, true},
		{txt, false},
	}
	for _, tt := range tests {
		err := validateFile(tt.path)
		if (err == nil) != tt.ok {
			t.Errorf("validateFile(%s) = %v, want ok=%v", filepath.Base(tt.path), err, tt.ok)
		}
	}
}

func TestVersionInfo(t *testing.T) {
	old := buildVersion
	t.Cleanup(func() { buildVersion = old })

	buildVersion = "1.2.3"
	if info := currentVersion(); !info.Release || info.Version != "1.2.3" {
		t.Errorf("currentVersion() = %+v", info)
	}
	buildVersion = "v1.3.0-rc.1"
	if info := currentVersion(); info.Release || info.Version != "1.3.0-rc.1" {
		t.Errorf("currentVersion() = %+v", info)
	}
	buildVersion = "dev"
	if info := currentVersion(); info.Release || info.Version != "dev" {
		t.Errorf("currentVersion() = %+v", info)
	}
}

// execute runs the root command with an isolated home directory.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("BLUEPRINT_HOME", t.TempDir())
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestGenerateCommand(t *testing.T) {
	root := t.TempDir()
	out, err := execute(t, "generate", "--name", "Tiny Tool", "--type", "cli-tool", "--output", root)
	if err != nil {
		t.Fatalf("generate error: %v\n%s", err, out)
	}
	for _, p := range []string{
		filepath.Join(".project", "agents", "cli-agent.md"),
		filepath.Join(".project", "agents", "testing-agent.md"),
		"PROJECT.md",
	} {
		if _, err := os.Stat(filepath.Join(root, p)); err != nil {
			t.Errorf("%s not generated: %v", p, err)
		}
	}
	if !strings.Contains(out, "cli-agent.md") {
		t.Errorf("output does not list generated files:\n%s", out)
	}
}

func TestPlanCommandJSON(t *testing.T) {
	out, err := execute(t, "plan", "--name", "Shop", "--type", "api-service", "--json")
	if err != nil {
		t.Fatalf("plan error: %v", err)
	}
	var plan struct {
		Entries []struct {
			ID     string `json:"id"`
			Reason string `json:"reason"`
		} `json:"entries"`
	}
	if err := json.Unmarshal([]byte(out), &plan); err != nil {
		t.Fatalf("plan output is not JSON: %v\n%s", err, out)
	}
	if len(plan.Entries) < 3 || plan.Entries[0].ID != "api-development-agent" || plan.Entries[0].Reason != "required" {
		t.Errorf("entries = %+v", plan.Entries)
	}
}

func TestDoctorTemplates(t *testing.T) {
	t.Setenv("BLUEPRINT_HOME", t.TempDir())
	config.Load()

	dir := t.TempDir()
	writeTestFile(t, dir, "broken.md", "---\nid: broken-agent\nkind: agent\n---\n{{#unless x}}open\n")

	var out bytes.Buffer
	d := &doctor{out: &out}
	d.checkTemplates([]string{dir}, "")

	if d.failures != 1 {
		t.Errorf("failures = %d, want 1\n%s", d.failures, out.String())
	}
	if !strings.Contains(out.String(), "[FAIL] broken-agent") {
		t.Errorf("output lacks the broken template:\n%s", out.String())
	}
}

func TestDoctorMissingRequiredTemplate(t *testing.T) {
	t.Setenv("BLUEPRINT_HOME", t.TempDir())
	config.Load()

	rules := writeTestFile(t, t.TempDir(), "rules.yaml", "required:\n  library: [library-maintainer-agent, no-such-agent]\n")
	var out bytes.Buffer
	d := &doctor{out: &out}
	d.checkTemplates(nil, rules)

	if d.failures != 1 || !strings.Contains(out.String(), `"no-such-agent"`) {
		t.Errorf("failures = %d\n%s", d.failures, out.String())
	}
}
