package render

import (
	"strings"
	"sync"
	"testing"

	"github.com/agentx-labs/blueprint/internal/catalog"
	perrors "github.com/agentx-labs/blueprint/internal/errors"
)

func agent(id, body string) *catalog.Descriptor {
	return &catalog.Descriptor{ID: id, Kind: catalog.KindAgent, Body: body}
}

func partial(id, body string, defaults map[string]string) *catalog.Descriptor {
	return &catalog.Descriptor{ID: id, Kind: catalog.KindPartial, Body: body, OptionalVariables: defaults}
}

func mustStore(t *testing.T, descs ...*catalog.Descriptor) *catalog.Store {
	t.Helper()
	s, err := catalog.NewStore(descs...)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestExecute(t *testing.T) {
	tests := []struct {
		name string
		body string
		vars map[string]any
		want string
	}{
		{
			name: "substitution",
			body: "# {{ project_name }}\n\nYou use {{framework}}.\n",
			vars: map[string]any{"project_name": "Shop", "framework": "FastAPI"},
			want: "# Shop\n\nYou use FastAPI.\n",
		},
		{
			name: "bool and list values",
			body: "{{ on }} {{ langs }}",
			vars: map[string]any{"on": true, "langs": []string{"go", "python"}},
			want: "true go, python\n",
		},
		{
			name: "if branch with standalone lines",
			body: "start\n{{#if a}}\nA is on\n{{else}}\nA is off\n{{/if}}\n{{#unless b}}\nno b\n{{/unless}}\nend\n",
			vars: map[string]any{"a": true},
			want: "start\nA is on\nno b\nend\n",
		},
		{
			name: "else branch with standalone lines",
			body: "start\n{{#if a}}\nA is on\n{{else}}\nA is off\n{{/if}}\n{{#unless b}}\nno b\n{{/unless}}\nend\n",
			vars: map[string]any{"a": "false", "b": "yes"},
			want: "start\nA is off\nend\n",
		},
		{
			name: "inline conditional",
			body: "Hello{{#if name}}, {{ name }}{{/if}}!",
			vars: map[string]any{"name": "Ann"},
			want: "Hello, Ann!\n",
		},
		{
			name: "inline conditional absent",
			body: "Hello{{#if name}}, {{ name }}{{/if}}!",
			vars: map[string]any{},
			want: "Hello!\n",
		},
		{
			name: "indented standalone tag",
			body: "list:\n  {{#if a}}\n  - a\n  {{/if}}\ndone\n",
			vars: map[string]any{"a": "1"},
			want: "list:\n  - a\ndone\n",
		},
		{
			name: "comment line removed",
			body: "one\n{{! not rendered }}\ntwo\n",
			want: "one\ntwo\n",
		},
		{
			name: "blank runs collapse",
			body: "a\n\n\n\nb\n\n\n",
			want: "a\n\nb\n",
		},
		{
			name: "blank run with spaces collapses",
			body: "a\n \n\t\n\nb\n",
			want: "a\n\nb\n",
		},
		{
			name: "two blank lines kept",
			body: "A\n\n\nB\n",
			want: "A\n\n\nB\n",
		},
		{
			name: "single blank line kept",
			body: "a\n\nb",
			want: "a\n\nb\n",
		},
		{
			name: "empty body",
			body: "",
			want: "\n",
		},
	}

	r := New(nil, DefaultLayout())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Execute(agent("t", tt.body), tt.vars)
			if err != nil {
				t.Fatalf("Execute error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Execute() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTruthy(t *testing.T) {
	falsy := []any{nil, "", false, 0, "false", "0", []string{}}
	for _, v := range falsy {
		if truthy(v) {
			t.Errorf("truthy(%#v) = true", v)
		}
	}
	for _, v := range []any{"no", true, "1", 2, []string{"x"}} {
		if !truthy(v) {
			t.Errorf("truthy(%#v) = false", v)
		}
	}
}

func TestMissingVariable(t *testing.T) {
	desc := &catalog.Descriptor{
		ID:                "api-development-agent",
		Kind:              catalog.KindAgent,
		RequiredVariables: []string{"backend_framework"},
		Body:              "Use {{ backend_framework }}.\n",
	}

	_, err := New(nil, DefaultLayout()).Render(desc, map[string]any{})
	if !perrors.HasCode(err, perrors.CodeMissingVariable) {
		t.Fatalf("err = %v, want %s", err, perrors.CodeMissingVariable)
	}
	e, _ := perrors.As(err)
	if e.Detail("template") != "api-development-agent" || e.Detail("variable") != "backend_framework" {
		t.Errorf("details = %v", e.Details)
	}
}

func TestDeclaredDefaultFillsGap(t *testing.T) {
	desc := agent("t", "{{ style }} API")
	desc.OptionalVariables = map[string]string{"style": "REST"}

	got, err := New(nil, DefaultLayout()).Execute(desc, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != "REST API\n" {
		t.Errorf("got %q", got)
	}
}

func TestPartials(t *testing.T) {
	store := mustStore(t,
		partial("header", "== {{ title }} ==\n", map[string]string{"title": "Untitled"}),
		partial("word", "x\n", nil),
	)
	r := New(store, DefaultLayout())

	tests := []struct {
		name string
		body string
		vars map[string]any
		want string
	}{
		{"standalone uses partial default", "{{> header }}\nbody\n", nil, "== Untitled ==\nbody\n"},
		{"caller variables win", "{{> header }}\nbody\n", map[string]any{"title": "Home"}, "== Home ==\nbody\n"},
		{"inline", "[{{> word }}]", nil, "[x]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Execute(agent("main", tt.body), tt.vars)
			if err != nil {
				t.Fatalf("Execute error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCircularInclude(t *testing.T) {
	store := mustStore(t,
		partial("a", "A {{> b }}", nil),
		partial("b", "B {{> a }}", nil),
		partial("self", "{{> self }}", nil),
	)
	r := New(store, DefaultLayout())

	tests := []struct {
		start string
		chain []string
	}{
		{"a", []string{"a", "b", "a"}},
		{"self", []string{"self", "self"}},
	}
	for _, tt := range tests {
		d, _ := store.Get(tt.start)
		_, err := r.Execute(d, nil)
		if !perrors.HasCode(err, perrors.CodeCircularInclude) {
			t.Fatalf("%s: err = %v, want %s", tt.start, err, perrors.CodeCircularInclude)
		}
		e, _ := perrors.As(err)
		want := "circular include: " + strings.Join(tt.chain, " -> ")
		if e.Message != want {
			t.Errorf("%s: message = %q, want %q", tt.start, e.Message, want)
		}
	}
}

func TestUnknownPartial(t *testing.T) {
	r := New(mustStore(t), DefaultLayout())
	_, err := r.Execute(agent("main", "{{> nowhere }}"), nil)
	if !perrors.HasCode(err, perrors.CodeTemplateNotFound) {
		t.Fatalf("err = %v, want %s", err, perrors.CodeTemplateNotFound)
	}
}

func TestMalformed(t *testing.T) {
	bodies := map[string]string{
		"unclosed block":    "{{#if a}}open",
		"stray close":       "text {{/if}}",
		"mismatched close":  "{{#if a}}x{{/unless}}",
		"unknown block":     "{{#each items}}{{/each}}",
		"bad variable name": "{{ bad name }}",
		"unclosed tag":      "hello {{ name",
		"duplicate else":    "{{#if a}}1{{else}}2{{else}}3{{/if}}",
		"bad partial id":    "{{> Not_An_Id }}",
		"missing condition": "{{#if}}x{{/if}}",
	}
	r := New(nil, DefaultLayout())
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			_, err := r.Execute(agent("bad", body), map[string]any{"a": true, "name": "n"})
			if !perrors.HasCode(err, perrors.CodeMalformed) {
				t.Fatalf("err = %v, want %s", err, perrors.CodeMalformed)
			}
		})
	}
}

func TestMalformedReportsLine(t *testing.T) {
	_, err := New(nil, DefaultLayout()).Execute(agent("bad", "line one\nline {{ oops! }}\n"), nil)
	e, ok := perrors.As(err)
	if !ok {
		t.Fatalf("err = %v", err)
	}
	if e.Detail("line") != "2" {
		t.Errorf("line = %q, want 2", e.Detail("line"))
	}
}

func TestCheck(t *testing.T) {
	if err := Check(agent("ok", "{{#if a}}{{ b }}{{/if}}")); err != nil {
		t.Errorf("Check(valid) = %v", err)
	}
	if err := Check(agent("bad", "{{#if a}}")); err == nil {
		t.Error("Check(unclosed) = nil")
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	store := mustStore(t, partial("p", "partial {{ x }}\n", nil))
	r := New(store, DefaultLayout())
	desc := agent("main", "{{ x }}\n{{> p }}\n")
	vars := map[string]any{"x": "value"}

	first, err := r.Render(desc, vars)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	results := make([]*Artifact, 8)
	errs := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = r.Render(desc, vars)
		}(i)
	}
	wg.Wait()

	for i, a := range results {
		if errs[i] != nil {
			t.Fatalf("render %d: %v", i, errs[i])
		}
		if *a != *first {
			t.Errorf("render %d = %+v, want %+v", i, a, first)
		}
	}
	if first.Mode != catalog.DefaultMode {
		t.Errorf("Mode = %o, want %o", first.Mode, catalog.DefaultMode)
	}
}
