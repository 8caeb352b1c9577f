package materialize

import (
	"bytes"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	perrors "github.com/agentx-labs/blueprint/internal/errors"
	"github.com/agentx-labs/blueprint/internal/render"
)

const dirPerm = 0o755

// Options tune a single Materialize call.
type Options struct {
	// DryRun classifies every artifact without touching the filesystem.
	DryRun bool
}

// Materializer writes artifacts to a filesystem.
type Materializer struct {
	Fs     afero.Fs
	Logger *slog.Logger
}

// New creates a materializer. A nil fs means the OS filesystem.
func New(fsys afero.Fs, logger *slog.Logger) *Materializer {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Materializer{Fs: fsys, Logger: logger}
}

// plan is the decision made for one artifact before anything is written.
type plan struct {
	artifact *render.Artifact
	target   string
	action   Action
	content  []byte
	existing []byte
	mode     fs.FileMode
	backup   string
}

// Materialize writes artifacts under root using policy. Path escapes and
// unmergeable conflicts are reported per artifact in the manifest. Any
// filesystem error undoes the whole batch and is returned as an IOFailure;
// no manifest is returned in that case.
func (m *Materializer) Materialize(artifacts []*render.Artifact, root string, policy Policy, opts Options) (*Manifest, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, perrors.IOFailure(root, err)
	}
	absRoot = filepath.Clean(absRoot)

	man := newManifest(absRoot, opts.DryRun)
	batch := m.dedupe(artifacts, man)

	j := &journal{fs: m.Fs}
	for _, a := range batch {
		p, err := m.classify(a, absRoot, policy, man)
		if err != nil {
			if opts.DryRun {
				return nil, perrors.IOFailure(a.RelativePath, err)
			}
			return nil, m.abort(j, a.RelativePath, err)
		}
		if p == nil {
			continue
		}
		if !opts.DryRun {
			if err := m.apply(j, absRoot, p); err != nil {
				return nil, m.abort(j, a.RelativePath, err)
			}
		}
		man.Created = append(man.Created, Entry{
			Path:       a.RelativePath,
			TemplateID: a.TemplateID,
			Action:     p.action,
			Backup:     relTo(absRoot, p.backup),
		})
		m.Logger.Debug("artifact materialized",
			"path", a.RelativePath, "template", a.TemplateID, "action", p.action, "dry_run", opts.DryRun)
	}
	return man, nil
}

// dedupe keeps the last artifact for each path, in batch order.
func (m *Materializer) dedupe(artifacts []*render.Artifact, man *Manifest) []*render.Artifact {
	last := make(map[string]int, len(artifacts))
	for i, a := range artifacts {
		last[filepath.ToSlash(filepath.Clean(filepath.FromSlash(a.RelativePath)))] = i
	}
	out := make([]*render.Artifact, 0, len(last))
	for i, a := range artifacts {
		key := filepath.ToSlash(filepath.Clean(filepath.FromSlash(a.RelativePath)))
		if w := last[key]; w != i {
			man.warnf("%s: output of %s replaced by %s later in the batch", a.RelativePath, a.TemplateID, artifacts[w].TemplateID)
			continue
		}
		out = append(out, a)
	}
	return out
}

// classify decides what to do with one artifact. A nil plan means the
// artifact was recorded as skipped or failed. Errors are I/O failures.
func (m *Materializer) classify(a *render.Artifact, root string, policy Policy, man *Manifest) (*plan, error) {
	target, err := contain(m.Fs, root, a.RelativePath)
	if err != nil {
		if !perrors.HasCode(err, perrors.CodePathEscape) {
			return nil, err
		}
		man.Failed = append(man.Failed, Failure{
			Path:       a.RelativePath,
			TemplateID: a.TemplateID,
			Code:       perrors.CodePathEscape,
			Reason:     err.Error(),
		})
		m.Logger.Warn("artifact rejected", "path", a.RelativePath, "template", a.TemplateID, "error", err)
		return nil, nil
	}

	mode := a.Mode
	if mode == 0 {
		mode = 0o644
	}
	p := &plan{artifact: a, target: target, content: []byte(a.Content), mode: mode}

	info, err := m.Fs.Stat(target)
	switch {
	case os.IsNotExist(err):
		p.action = ActionCreate
		return p, nil
	case err != nil:
		return nil, err
	case info.IsDir():
		man.Failed = append(man.Failed, Failure{
			Path:       a.RelativePath,
			TemplateID: a.TemplateID,
			Code:       perrors.CodeIOFailure,
			Reason:     "a directory exists at this path",
		})
		return nil, nil
	}

	existing, err := afero.ReadFile(m.Fs, target)
	if err != nil {
		return nil, err
	}
	p.existing = existing
	p.mode = info.Mode().Perm()

	skip := func(reason string) (*plan, error) {
		man.Skipped = append(man.Skipped, Entry{Path: a.RelativePath, TemplateID: a.TemplateID, Action: ActionSkip, Reason: reason})
		return nil, nil
	}

	if policy == PolicySkip {
		return skip("file exists")
	}
	if bytes.Equal(existing, p.content) {
		return skip("up to date")
	}

	switch policy {
	case PolicyOverwrite:
		p.action = ActionOverwrite
	case PolicyBackup:
		backup, err := m.backupName(target)
		if err != nil {
			return nil, err
		}
		p.action, p.backup = ActionBackup, backup
	case PolicyMerge:
		merge, ok := mergerFor(a.RelativePath)
		if !ok {
			return skip(fmt.Sprintf("merge not supported for %s; existing file kept", filepath.Base(target)))
		}
		merged, changed, err := merge(existing, p.content)
		if err != nil {
			return skip("cannot merge: " + err.Error())
		}
		if !changed {
			return skip("up to date")
		}
		p.action, p.content = ActionMerge, merged
	default:
		return nil, fmt.Errorf("unknown conflict policy %q", policy)
	}
	return p, nil
}

// backupName returns the first unused of name.bak, name.bak.1, name.bak.2...
func (m *Materializer) backupName(target string) (string, error) {
	candidate := target + ".bak"
	for i := 1; ; i++ {
		ok, err := afero.Exists(m.Fs, candidate)
		if err != nil {
			return "", err
		}
		if !ok {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s.bak.%d", target, i)
	}
}

// apply performs one planned write, journaling each change first.
func (m *Materializer) apply(j *journal, root string, p *plan) error {
	if err := m.ensureDir(j, root, filepath.Dir(p.target)); err != nil {
		return err
	}

	switch p.action {
	case ActionCreate:
		j.createdFile(p.target)
		return afero.WriteFile(m.Fs, p.target, p.content, p.mode)
	case ActionBackup:
		j.createdFile(p.backup)
		if err := afero.WriteFile(m.Fs, p.backup, p.existing, p.mode); err != nil {
			return err
		}
	}
	j.replacedFile(p.target, p.existing, p.mode)
	return afero.WriteFile(m.Fs, p.target, p.content, p.mode)
}

// ensureDir creates dir and any missing parents, recording each one.
func (m *Materializer) ensureDir(j *journal, root, dir string) error {
	var missing []string
	for d := dir; ; d = filepath.Dir(d) {
		info, err := m.Fs.Stat(d)
		if err == nil {
			if !info.IsDir() {
				return fmt.Errorf("%s is not a directory", d)
			}
			break
		}
		if !os.IsNotExist(err) {
			return err
		}
		missing = append(missing, d)
		if parent := filepath.Dir(d); parent == d {
			break
		}
	}
	for i := len(missing) - 1; i >= 0; i-- {
		if err := m.Fs.Mkdir(missing[i], dirPerm); err != nil {
			if os.IsExist(err) {
				continue
			}
			return err
		}
		j.createdDir(missing[i])
	}
	return nil
}

// abort rolls back the batch and wraps the cause.
func (m *Materializer) abort(j *journal, rel string, cause error) error {
	m.Logger.Error("materialization failed, rolling back", "path", rel, "error", cause)
	ioErr := perrors.IOFailure(rel, cause)
	if err := j.rollback(); err != nil {
		m.Logger.Error("rollback incomplete", "error", err)
		ioErr = ioErr.WithDetail("rollback", err.Error())
	}
	return ioErr
}

func relTo(root, p string) string {
	if p == "" {
		return ""
	}
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return p
	}
	return filepath.ToSlash(rel)
}
