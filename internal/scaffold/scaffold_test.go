package scaffold

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/afero"

	"github.com/agentx-labs/blueprint/internal/catalog"
	perrors "github.com/agentx-labs/blueprint/internal/errors"
	"github.com/agentx-labs/blueprint/internal/logging"
	"github.com/agentx-labs/blueprint/internal/materialize"
	"github.com/agentx-labs/blueprint/internal/project"
	"github.com/agentx-labs/blueprint/internal/render"
	"github.com/agentx-labs/blueprint/internal/selector"
)

type transitionLog struct {
	mu    sync.Mutex
	steps []string
}

func (l *transitionLog) record(from, to State) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.steps = append(l.steps, from.String()+"->"+to.String())
}

func (l *transitionLog) String() string {
	return strings.Join(l.steps, " ")
}

func builtinStore(t *testing.T) *catalog.Store {
	t.Helper()
	store, err := catalog.Load([]catalog.Source{catalog.BuiltinSource()}, catalog.Options{})
	if err != nil {
		t.Fatalf("loading builtin templates: %v", err)
	}
	return store
}

func newGenerator(t *testing.T, store Catalog, fsys afero.Fs) (*Generator, *transitionLog) {
	t.Helper()
	log := &transitionLog{}
	g := New(store, materialize.New(fsys, logging.NewForTest()))
	g.Logger = logging.NewForTest()
	g.OnTransition = log.record
	return g, log
}

func agent(id, body string, required ...string) *catalog.Descriptor {
	return &catalog.Descriptor{ID: id, Kind: catalog.KindAgent, Body: body, RequiredVariables: required}
}

func shop() *project.Configuration {
	return &project.Configuration{
		Name:      "My Shop",
		Type:      project.TypeSaaSWebApp,
		TechStack: map[project.Role]string{project.RoleBackend: "python-fastapi"},
	}
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.Name()
		}
		t.Errorf("%s should be empty, found %v", dir, names)
	}
}

func TestGenerateShop(t *testing.T) {
	root := t.TempDir()
	g, log := newGenerator(t, builtinStore(t), afero.NewOsFs())

	res, err := g.Generate(context.Background(), shop(), root, materialize.PolicySkip, Options{})
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	for _, id := range []string{"api-development-agent", "frontend-ui-agent", "database-agent", "python-fastapi"} {
		if !res.Plan.Has(id) {
			t.Errorf("plan lacks %s: %v", id, res.Plan.IDs())
		}
	}
	if res.RunID == "" {
		t.Error("RunID is empty")
	}
	if len(res.Artifacts) != len(res.Plan.Entries) {
		t.Errorf("artifacts = %d, plan entries = %d", len(res.Artifacts), len(res.Plan.Entries))
	}
	for i, a := range res.Artifacts {
		if a.TemplateID != res.Plan.Entries[i].ID {
			t.Errorf("artifact %d is %s, want plan order %s", i, a.TemplateID, res.Plan.Entries[i].ID)
		}
	}
	if len(res.Manifest.Created) != len(res.Artifacts) || len(res.Manifest.Failed) != 0 {
		t.Errorf("manifest = %s, failed %v", res.Manifest.Summary(), res.Manifest.Failed)
	}

	agentFile := filepath.Join(root, ".project", "agents", "api-development-agent.md")
	data, err := os.ReadFile(agentFile)
	if err != nil {
		t.Fatalf("reading generated agent: %v", err)
	}
	if !strings.Contains(string(data), "My Shop") {
		t.Errorf("agent does not mention the project name:\n%s", data)
	}
	if _, err := os.Stat(filepath.Join(root, ".project", "skills", "python-fastapi", "SKILL.md")); err != nil {
		t.Errorf("stack skill not written: %v", err)
	}

	want := "idle->selecting selecting->resolving resolving->rendering rendering->materializing materializing->completed"
	if log.String() != want {
		t.Errorf("transitions = %q, want %q", log, want)
	}
}

func TestGenerateTwiceSkipsEverything(t *testing.T) {
	root := t.TempDir()
	g, _ := newGenerator(t, builtinStore(t), afero.NewOsFs())

	first, err := g.Generate(context.Background(), shop(), root, materialize.PolicySkip, Options{})
	if err != nil {
		t.Fatal(err)
	}
	second, err := g.Generate(context.Background(), shop(), root, materialize.PolicySkip, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(second.Manifest.Created) != 0 {
		t.Errorf("second run created %v", second.Manifest.Created)
	}
	if len(second.Manifest.Skipped) != len(first.Manifest.Created) {
		t.Errorf("second run skipped %d, first created %d", len(second.Manifest.Skipped), len(first.Manifest.Created))
	}
	if first.RunID == second.RunID {
		t.Error("run ids should differ")
	}
}

func TestGenerateMissingVariableWritesNothing(t *testing.T) {
	store, err := catalog.NewStore(
		agent("a-ok", "fine\n"),
		agent("b-needs-framework", "{{ backend_framework }}\n", "backend_framework"),
	)
	if err != nil {
		t.Fatal(err)
	}
	root := t.TempDir()
	g, log := newGenerator(t, store, afero.NewOsFs())
	g.Rules = &selector.Rules{}

	cfg := &project.Configuration{Name: "tool", Type: project.TypeCLITool}
	_, err = g.Generate(context.Background(), cfg, root, materialize.PolicyOverwrite, Options{})

	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("err = %v, want *GenerationError", err)
	}
	if genErr.State != StateResolving {
		t.Errorf("State = %s, want resolving", genErr.State)
	}
	e, ok := perrors.As(err)
	if !ok || e.Code != perrors.CodeMissingVariable {
		t.Fatalf("err = %v, want %s", err, perrors.CodeMissingVariable)
	}
	if e.Detail("template") != "b-needs-framework" || e.Detail("variable") != "backend_framework" {
		t.Errorf("details = %v", e.Details)
	}
	if !strings.HasSuffix(log.String(), "resolving->aborted") {
		t.Errorf("transitions = %q", log)
	}
	assertEmptyDir(t, root)
}

func TestGenerateRenderFailureReportsFirstTemplate(t *testing.T) {
	store, err := catalog.NewStore(
		agent("a-fine", "ok\n"),
		agent("b-unclosed", "{{#if x}}never closed\n"),
		agent("c-fine", "ok\n"),
		agent("d-unknown-partial", "{{> nowhere }}\n"),
		agent("e-fine", "ok\n"),
	)
	if err != nil {
		t.Fatal(err)
	}
	cfg := &project.Configuration{Name: "lib", Type: project.TypeLibrary}

	for i := 0; i < 20; i++ {
		root := t.TempDir()
		g, _ := newGenerator(t, store, afero.NewOsFs())
		g.Rules = &selector.Rules{}
		g.Workers = 3

		_, err := g.Generate(context.Background(), cfg, root, materialize.PolicySkip, Options{})
		if code := perrors.CodeOf(err); code != perrors.CodeMalformed {
			t.Fatalf("run %d: code = %q (%v), want %s", i, code, err, perrors.CodeMalformed)
		}
		var genErr *GenerationError
		if errors.As(err, &genErr) && genErr.State != StateRendering {
			t.Errorf("State = %s, want rendering", genErr.State)
		}
		assertEmptyDir(t, root)
	}
}

func TestGenerateCanceled(t *testing.T) {
	root := t.TempDir()
	g, log := newGenerator(t, builtinStore(t), afero.NewOsFs())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := g.Generate(ctx, shop(), root, materialize.PolicySkip, Options{})

	if !perrors.HasCode(err, perrors.CodeCanceled) {
		t.Fatalf("err = %v, want %s", err, perrors.CodeCanceled)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err should wrap context.Canceled: %v", err)
	}
	if !strings.HasSuffix(log.String(), "->aborted") {
		t.Errorf("transitions = %q", log)
	}
	assertEmptyDir(t, root)
}

// brokenFs fails writes to one file name.
type brokenFs struct {
	afero.Fs
	name string
}

func (b *brokenFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if filepath.Base(name) == b.name && flag&(os.O_WRONLY|os.O_RDWR) != 0 {
		return nil, os.ErrPermission
	}
	return b.Fs.OpenFile(name, flag, perm)
}

func TestGenerateWriteFailureRollsBack(t *testing.T) {
	root := t.TempDir()
	g, log := newGenerator(t, builtinStore(t), &brokenFs{Fs: afero.NewOsFs(), name: "database-agent.md"})

	_, err := g.Generate(context.Background(), shop(), root, materialize.PolicySkip, Options{})
	if !perrors.HasCode(err, perrors.CodeIOFailure) {
		t.Fatalf("err = %v, want %s", err, perrors.CodeIOFailure)
	}
	if !errors.Is(err, os.ErrPermission) {
		t.Errorf("cause lost: %v", err)
	}
	var genErr *GenerationError
	if !errors.As(err, &genErr) || genErr.State != StateMaterializing {
		t.Errorf("err = %#v, want failure while materializing", err)
	}
	if !strings.HasSuffix(log.String(), "materializing->aborted") {
		t.Errorf("transitions = %q", log)
	}
	assertEmptyDir(t, root)
}

func TestGenerateDryRun(t *testing.T) {
	root := t.TempDir()
	g, _ := newGenerator(t, builtinStore(t), afero.NewOsFs())

	res, err := g.Generate(context.Background(), shop(), root, materialize.PolicySkip, Options{DryRun: true})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Manifest.DryRun || len(res.Manifest.Created) == 0 {
		t.Errorf("manifest = %+v", res.Manifest)
	}
	assertEmptyDir(t, root)
}

func TestGenerateCustomBaseDir(t *testing.T) {
	g, _ := newGenerator(t, builtinStore(t), afero.NewMemMapFs())
	g.Layout = render.Layout{BaseDir: ".claude"}

	res, err := g.Generate(context.Background(), shop(), "/out", materialize.PolicySkip, Options{DryRun: true})
	if err != nil {
		t.Fatal(err)
	}
	var guide *render.Artifact
	for _, a := range res.Artifacts {
		if a.TemplateID == "project-guide" {
			guide = a
		}
		if a.TemplateID == "api-development-agent" && a.RelativePath != ".claude/agents/api-development-agent.md" {
			t.Errorf("agent path = %q", a.RelativePath)
		}
	}
	if guide == nil {
		t.Fatal("project-guide not generated")
	}
	if !strings.Contains(guide.Content, "`.claude/agents/`") {
		t.Errorf("project guide does not use the layout base dir:\n%s", guide.Content)
	}

	cfg := shop()
	cfg.CustomVariables = map[string]string{BaseDirVariable: "custom"}
	res, err = g.Generate(context.Background(), cfg, "/out", materialize.PolicySkip, Options{DryRun: true})
	if err != nil {
		t.Fatal(err)
	}
	for _, a := range res.Artifacts {
		if a.TemplateID == "project-guide" && !strings.Contains(a.Content, "`custom/agents/`") {
			t.Errorf("custom base_dir variable should win:\n%s", a.Content)
		}
	}
}

func TestGenerateInvalidConfig(t *testing.T) {
	g, log := newGenerator(t, builtinStore(t), afero.NewMemMapFs())

	_, err := g.Generate(context.Background(), &project.Configuration{Name: "!!!"}, "/out", materialize.PolicySkip, Options{})
	if !perrors.HasCode(err, perrors.CodeInvalidConfig) {
		t.Fatalf("err = %v, want %s", err, perrors.CodeInvalidConfig)
	}
	var genErr *GenerationError
	if errors.As(err, &genErr) && genErr.State != StateIdle {
		t.Errorf("State = %s, want idle", genErr.State)
	}
	if log.String() != "" {
		t.Errorf("no transition expected, got %q", log)
	}
}

func TestGenerateDoesNotModifyConfig(t *testing.T) {
	g, _ := newGenerator(t, builtinStore(t), afero.NewMemMapFs())
	cfg := shop()
	if _, err := g.Generate(context.Background(), cfg, "/out", materialize.PolicySkip, Options{}); err != nil {
		t.Fatal(err)
	}
	if cfg.Slug != "" || cfg.CustomVariables != nil {
		t.Errorf("caller's configuration modified: %+v", cfg)
	}
}

func TestPlan(t *testing.T) {
	g, log := newGenerator(t, builtinStore(t), afero.NewMemMapFs())

	cfg := shop()
	cfg.Type = "saas"
	plan, err := g.Plan(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Notes) == 0 || !strings.Contains(plan.Notes[0], "saas-web-app") {
		t.Errorf("notes = %v, want an unknown type note with a suggestion", plan.Notes)
	}
	if log.String() != "" {
		t.Errorf("Plan should not run the state machine, got %q", log)
	}

	again, err := g.Plan(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(plan.IDs(), ",") != strings.Join(again.IDs(), ",") {
		t.Errorf("plans differ: %v vs %v", plan.IDs(), again.IDs())
	}
}

func TestGenerationErrorMessage(t *testing.T) {
	err := &GenerationError{State: StateRendering, Err: perrors.TemplateNotFound("x")}
	if got := err.Error(); got != "generation failed while rendering: [TMPL_NOT_FOUND] template not found: x" {
		t.Errorf("Error() = %q", got)
	}
}
