package scaffold

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/agentx-labs/blueprint/internal/catalog"
	perrors "github.com/agentx-labs/blueprint/internal/errors"
	"github.com/agentx-labs/blueprint/internal/logging"
	"github.com/agentx-labs/blueprint/internal/materialize"
	"github.com/agentx-labs/blueprint/internal/project"
	"github.com/agentx-labs/blueprint/internal/render"
	"github.com/agentx-labs/blueprint/internal/resolve"
	"github.com/agentx-labs/blueprint/internal/selector"
)

// DefaultWorkers bounds rendering when Generator.Workers is not set.
const DefaultWorkers = 4

// BaseDirVariable carries the layout base directory into templates.
const BaseDirVariable = "base_dir"

// Catalog is the template store a generator reads from.
type Catalog interface {
	selector.Catalog
	render.PartialSource
}

// Options tune a single Generate call.
type Options struct {
	DryRun bool
}

// Result holds the outcome of a successful generation.
type Result struct {
	RunID     string                `json:"run_id"`
	Plan      *selector.Plan        `json:"plan"`
	Artifacts []*render.Artifact    `json:"artifacts"`
	Manifest  *materialize.Manifest `json:"manifest"`
}

// GenerationError is the single fatal cause of an aborted run. State is the
// phase the run was in when it failed.
type GenerationError struct {
	RunID string
	State State
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed while %s: %v", e.State, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Generator wires the pipeline together. The zero values of Rules, Layout,
// Workers, and Logger are usable.
type Generator struct {
	Store        Catalog
	Rules        *selector.Rules
	Layout       render.Layout
	Renderer     *render.Renderer
	Materializer *materialize.Materializer
	Workers      int
	Logger       *slog.Logger

	// OnTransition, when set, is called after every state change.
	OnTransition func(from, to State)
}

// New creates a generator over store that writes with m.
func New(store Catalog, m *materialize.Materializer) *Generator {
	return &Generator{
		Store:        store,
		Layout:       render.DefaultLayout(),
		Materializer: m,
	}
}

func (g *Generator) logger() *slog.Logger {
	if g.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return g.Logger
}

func (g *Generator) selector() *selector.Selector {
	return selector.New(g.Store, g.Rules, g.Layout)
}

func (g *Generator) renderer() *render.Renderer {
	if g.Renderer != nil {
		return g.Renderer
	}
	return render.New(g.Store, g.Layout)
}

// prepare returns a normalized copy of cfg with the layout variables set.
func (g *Generator) prepare(cfg *project.Configuration) (*project.Configuration, error) {
	c := cfg.Clone()
	if err := c.Normalize(); err != nil {
		return nil, err
	}
	if _, ok := c.CustomVariables[BaseDirVariable]; !ok {
		if c.CustomVariables == nil {
			c.CustomVariables = make(map[string]string)
		}
		c.CustomVariables[BaseDirVariable] = g.Layout.Base()
	}
	return c, nil
}

// Plan runs only the selection step.
func (g *Generator) Plan(cfg *project.Configuration) (*selector.Plan, error) {
	c, err := g.prepare(cfg)
	if err != nil {
		return nil, err
	}
	return g.selector().Select(c), nil
}

// Generate runs the full pipeline for cfg and writes under root. Every
// template is resolved before any is rendered, and every artifact is
// rendered before anything is written; a failure in either phase leaves the
// filesystem untouched. ctx is honored until materialization starts.
func (g *Generator) Generate(ctx context.Context, cfg *project.Configuration, root string, policy materialize.Policy, opts Options) (*Result, error) {
	runID := uuid.NewString()
	log := logging.WithRun(g.logger(), runID)
	start := time.Now()

	m := &machine{notify: func(from, to State) {
		log.Debug("state transition", "from", from.String(), "to", to.String())
		if g.OnTransition != nil {
			g.OnTransition(from, to)
		}
	}}
	fail := func(err error) (*Result, error) {
		state := m.state
		if !state.Terminal() && CanTransition(state, StateAborted) {
			m.to(StateAborted)
		}
		log.Warn("generation aborted", "state", state.String(), "error", err)
		return nil, &GenerationError{RunID: runID, State: state, Err: err}
	}

	c, err := g.prepare(cfg)
	if err != nil {
		return fail(err)
	}
	if g.Materializer == nil {
		return fail(fmt.Errorf("no materializer configured"))
	}

	m.to(StateSelecting)
	plan := g.selector().Select(c)
	for _, note := range plan.Notes {
		log.Info("selection note", "note", note)
	}

	m.to(StateResolving)
	if err := ctx.Err(); err != nil {
		return fail(perrors.Canceled(err))
	}
	descs, vars, err := g.resolveAll(c, plan)
	if err != nil {
		return fail(err)
	}

	m.to(StateRendering)
	artifacts, err := g.renderAll(ctx, descs, vars)
	if err != nil {
		return fail(err)
	}
	if err := ctx.Err(); err != nil {
		return fail(perrors.Canceled(err))
	}

	// The batch is atomic, so cancellation is not honored from here on.
	m.to(StateMaterializing)
	man, err := g.Materializer.Materialize(artifacts, root, policy, materialize.Options{DryRun: opts.DryRun})
	if err != nil {
		return fail(err)
	}
	m.to(StateCompleted)

	log.Info("generation completed",
		"type", c.Type,
		"templates", len(plan.Entries),
		"created", len(man.Created),
		"skipped", len(man.Skipped),
		"failed", len(man.Failed),
		"dry_run", opts.DryRun,
		"duration", time.Since(start))

	return &Result{RunID: runID, Plan: plan, Artifacts: artifacts, Manifest: man}, nil
}

// resolveAll looks up and resolves every planned template, in plan order.
// The first failure is returned.
func (g *Generator) resolveAll(cfg *project.Configuration, plan *selector.Plan) ([]*catalog.Descriptor, []resolve.Variables, error) {
	descs := make([]*catalog.Descriptor, 0, len(plan.Entries))
	vars := make([]resolve.Variables, 0, len(plan.Entries))
	for _, e := range plan.Entries {
		d, ok := g.Store.Get(e.ID)
		if !ok {
			return nil, nil, perrors.TemplateNotFound(e.ID)
		}
		v, err := resolve.Resolve(cfg, d)
		if err != nil {
			return nil, nil, err
		}
		descs = append(descs, d)
		vars = append(vars, v)
	}
	return descs, vars, nil
}

// renderAll renders descriptors concurrently. Artifacts keep plan order and
// the reported error is the one with the lowest plan index.
func (g *Generator) renderAll(ctx context.Context, descs []*catalog.Descriptor, vars []resolve.Variables) ([]*render.Artifact, error) {
	workers := g.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	r := g.renderer()

	artifacts := make([]*render.Artifact, len(descs))
	errs := make([]error, len(descs))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i := range descs {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			a, err := r.Render(descs[i], vars[i])
			if err != nil {
				errs[i] = err
				return nil
			}
			artifacts[i] = a
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, perrors.Canceled(err)
	}

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return artifacts, nil
}
