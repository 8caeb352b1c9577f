package selector

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/agentx-labs/blueprint/internal/catalog"
	"github.com/agentx-labs/blueprint/internal/project"
	"github.com/agentx-labs/blueprint/internal/render"
	"github.com/agentx-labs/blueprint/internal/resolve"
)

// Reason records why a template is part of a plan.
type Reason string

const (
	ReasonRequired    Reason = "required"
	ReasonRecommended Reason = "recommended"
	ReasonFeature     Reason = "feature"
	ReasonStack       Reason = "tech-stack"
	ReasonExplicit    Reason = "explicit"
)

// Entry is one selected template.
type Entry struct {
	ID     string `json:"id"`
	Reason Reason `json:"reason"`
	// Trigger is the feature or stack option that added the entry.
	Trigger string `json:"trigger,omitempty"`
	// Path is the output path the template will produce, when it could be
	// computed at selection time.
	Path string `json:"path,omitempty"`
	// SupersededBy names the entry that took this one's path.
	SupersededBy string `json:"superseded_by,omitempty"`
}

// Plan is the ordered result of a selection.
type Plan struct {
	Entries    []Entry  `json:"entries"`
	Superseded []Entry  `json:"superseded,omitempty"`
	Notes      []string `json:"notes,omitempty"`
}

// IDs returns the selected ids in plan order.
func (p *Plan) IDs() []string {
	ids := make([]string, len(p.Entries))
	for i, e := range p.Entries {
		ids[i] = e.ID
	}
	return ids
}

// Has reports whether id was selected.
func (p *Plan) Has(id string) bool {
	for _, e := range p.Entries {
		if e.ID == id {
			return true
		}
	}
	return false
}

// Catalog is the part of the template store selection needs.
type Catalog interface {
	Get(id string) (*catalog.Descriptor, bool)
	All() []*catalog.Descriptor
	Suggest(id string) []string
}

// Selector builds plans from a catalog and rule table.
type Selector struct {
	Catalog Catalog
	Rules   *Rules
	Layout  render.Layout
}

// New creates a selector. A nil rules table means DefaultRules.
func New(c Catalog, rules *Rules, layout render.Layout) *Selector {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Selector{Catalog: c, Rules: rules, Layout: layout}
}

// Select computes the plan for cfg. The same configuration always yields the
// same plan.
func (s *Selector) Select(cfg *project.Configuration) *Plan {
	p := &Plan{}
	notef := func(format string, args ...any) {
		p.Notes = append(p.Notes, fmt.Sprintf(format, args...))
	}

	if !project.KnownType(cfg.Type) {
		msg := fmt.Sprintf("unknown project type %q: only templates that apply to every type are selected", cfg.Type)
		if m := fuzzy.Find(cfg.Type, project.Types); len(m) > 0 && cfg.Type != "" {
			msg += fmt.Sprintf(" (did you mean %q?)", m[0].Str)
		}
		p.Notes = append(p.Notes, msg)
	}

	var candidates []Entry
	required := make(map[string]bool)
	for _, id := range s.Rules.RequiredFor(cfg.Type) {
		if _, ok := s.Catalog.Get(id); !ok {
			notef("required template %q for %s is not available", id, cfg.Type)
		}
		required[id] = true
		candidates = append(candidates, Entry{ID: id, Reason: ReasonRequired})
	}

	triggers := s.Rules.TriggerTargets()
	for _, d := range recommended(s.Catalog.All(), cfg.Type) {
		if required[d.ID] || triggers[d.ID] {
			continue
		}
		candidates = append(candidates, Entry{ID: d.ID, Reason: ReasonRecommended})
	}

	features := append([]string(nil), cfg.Features...)
	sort.Strings(features)
	for _, f := range features {
		id := s.Rules.Features[f]
		if id == "" {
			continue
		}
		if !s.selectable(id) {
			notef("feature %q maps to template %q, which is not available", f, id)
			continue
		}
		candidates = append(candidates, Entry{ID: id, Reason: ReasonFeature, Trigger: f})
	}

	for _, role := range project.Roles {
		opt, ok := cfg.Stack(role)
		if !ok {
			continue
		}
		id := s.Rules.Stack[opt]
		if id == "" {
			continue
		}
		if !s.selectable(id) {
			notef("%s option %q maps to template %q, which is not available", role, opt, id)
			continue
		}
		candidates = append(candidates, Entry{ID: id, Reason: ReasonStack, Trigger: string(role) + "=" + opt})
	}

	for _, id := range cfg.Templates {
		d, ok := s.Catalog.Get(id)
		switch {
		case !ok:
			msg := fmt.Sprintf("requested template %q does not exist", id)
			if sugg := s.Catalog.Suggest(id); len(sugg) > 0 {
				msg += fmt.Sprintf(" (did you mean %s?)", strings.Join(sugg, ", "))
			}
			p.Notes = append(p.Notes, msg)
			continue
		case !d.Materialized():
			notef("requested template %q is a partial and cannot be generated on its own", id)
			continue
		}
		candidates = append(candidates, Entry{ID: id, Reason: ReasonExplicit})
	}

	excluded := make(map[string]bool, len(cfg.Exclude))
	for _, id := range cfg.Exclude {
		if required[id] {
			notef("template %q is required for %s and cannot be excluded", id, cfg.Type)
			continue
		}
		excluded[id] = true
	}

	seen := make(map[string]bool, len(candidates))
	entries := make([]Entry, 0, len(candidates))
	for _, e := range candidates {
		if seen[e.ID] || excluded[e.ID] {
			continue
		}
		seen[e.ID] = true
		entries = append(entries, e)
	}

	p.Entries, p.Superseded = s.resolveCollisions(cfg, entries, &p.Notes)
	return p
}

func (s *Selector) selectable(id string) bool {
	d, ok := s.Catalog.Get(id)
	return ok && d.Materialized()
}

// resolveCollisions drops all but one entry per output path. The later entry
// wins unless the earlier one is required.
func (s *Selector) resolveCollisions(cfg *project.Configuration, entries []Entry, notes *[]string) (kept, superseded []Entry) {
	base := resolve.ProjectVariables(cfg)

	holder := make(map[string]int) // path -> index into entries
	dropped := make(map[int]bool)
	for i := range entries {
		e := &entries[i]
		if d, ok := s.Catalog.Get(e.ID); ok {
			vars := make(map[string]any, len(base)+len(d.OptionalVariables))
			for k, v := range d.OptionalVariables {
				vars[k] = v
			}
			for k, v := range base {
				vars[k] = v
			}
			if path, err := render.OutputPath(d, vars, s.Layout); err == nil {
				e.Path = path
			}
		}
		if e.Path == "" {
			continue
		}

		j, clash := holder[e.Path]
		if !clash {
			holder[e.Path] = i
			continue
		}

		prev := &entries[j]
		switch {
		case prev.Reason == ReasonRequired && e.Reason == ReasonRequired:
			*notes = append(*notes, fmt.Sprintf("required templates %q and %q both write %s", prev.ID, e.ID, e.Path))
		case prev.Reason == ReasonRequired:
			e.SupersededBy = prev.ID
			dropped[i] = true
		default:
			prev.SupersededBy = e.ID
			dropped[j] = true
			holder[e.Path] = i
		}
	}

	for i, e := range entries {
		if dropped[i] {
			superseded = append(superseded, e)
			continue
		}
		kept = append(kept, e)
	}
	return kept, superseded
}

// recommended returns the eligible non-partial descriptors ordered by kind,
// then id.
func recommended(all []*catalog.Descriptor, projectType string) []*catalog.Descriptor {
	rank := make(map[catalog.Kind]int, len(catalog.Kinds))
	for i, k := range catalog.Kinds {
		rank[k] = i
	}

	var out []*catalog.Descriptor
	for _, d := range all {
		if d.Materialized() && d.AppliesToType(projectType) {
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if rank[out[i].Kind] != rank[out[j].Kind] {
			return rank[out[i].Kind] < rank[out[j].Kind]
		}
		return out[i].ID < out[j].ID
	})
	return out
}
