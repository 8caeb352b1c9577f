package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/agentx-labs/blueprint/internal/branding"
	"github.com/agentx-labs/blueprint/internal/config"
	"go.yaml.in/yaml/v3"
)

const (
	// DefaultMaxAge is how long a synced catalog counts as fresh.
	DefaultMaxAge = 7 * 24 * time.Hour

	// TemplatesDir is the directory inside the catalog repo that holds
	// templates. Only it is checked out when git supports sparse checkout.
	TemplatesDir = "templates"

	syncFile = ".catalog-sync.yaml"
)

// ErrGitMissing is returned when git is not on PATH.
var ErrGitMissing = errors.New("git is required but not found in PATH")

// GitRunner runs one git command in dir and returns its combined output.
type GitRunner func(ctx context.Context, dir string, args ...string) ([]byte, error)

// ExecGit runs the git binary.
func ExecGit(ctx context.Context, dir string, args ...string) ([]byte, error) {
	if _, err := exec.LookPath("git"); err != nil {
		return nil, ErrGitMissing
	}
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

// RepoURL returns the catalog repository URL. The <PREFIX>_CATALOG_REPO_URL
// env var wins over the catalog.repo config key, which wins over branding.
func RepoURL() string {
	if v := os.Getenv(branding.EnvVar("CATALOG_REPO_URL")); v != "" {
		return v
	}
	if v := config.Get(config.KeyCatalogRepo); v != "" {
		return v
	}
	return branding.CatalogRepoURL()
}

// Remote is a git repository of templates synced into a local directory.
type Remote struct {
	Dir string
	URL string
	Git GitRunner
	Now func() time.Time
}

// NewRemote returns a Remote that shells out to git.
func NewRemote(dir, url string) *Remote {
	return &Remote{Dir: dir, URL: url, Git: ExecGit, Now: time.Now}
}

// SyncRecord is what the last successful sync left behind.
type SyncRecord struct {
	SyncedAt time.Time `yaml:"synced_at"`
	Revision string    `yaml:"revision,omitempty"`
	URL      string    `yaml:"url,omitempty"`
}

// Status summarizes the local copy.
type Status struct {
	Installed bool
	Stale     bool
	Last      SyncRecord
}

// Source returns the synced templates as a catalog source, or false when
// the catalog has never been synced.
func (r *Remote) Source() (Source, bool) {
	dir := filepath.Join(r.Dir, TemplatesDir)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return Source{}, false
	}
	return Source{Name: "catalog", FS: os.DirFS(dir)}, true
}

// Sync clones the catalog when it is missing and pulls it otherwise. A
// failed clone leaves any previous copy in place.
func (r *Remote) Sync(ctx context.Context) (SyncRecord, error) {
	if r.URL == "" {
		return SyncRecord{}, fmt.Errorf("no catalog repository configured, set %s", config.KeyCatalogRepo)
	}

	if _, err := os.Stat(filepath.Join(r.Dir, ".git")); err == nil {
		if _, err := r.git(ctx, r.Dir, "pull", "--depth=1", "--rebase"); err != nil {
			return SyncRecord{}, fmt.Errorf("pulling catalog updates: %w", err)
		}
	} else if err := r.clone(ctx); err != nil {
		return SyncRecord{}, err
	}

	rec := SyncRecord{SyncedAt: r.now().UTC().Truncate(time.Second), URL: r.URL}
	if out, err := r.git(ctx, r.Dir, "rev-parse", "--short", "HEAD"); err == nil {
		rec.Revision = strings.TrimSpace(string(out))
	}
	if err := r.writeRecord(rec); err != nil {
		return SyncRecord{}, err
	}
	return rec, nil
}

// clone lands in a sibling .tmp directory first and is renamed into place
// on success. Sparse checkout falls back to a full shallow clone.
func (r *Remote) clone(ctx context.Context) error {
	tmp := r.Dir + ".tmp"
	_ = os.RemoveAll(tmp)
	if err := os.MkdirAll(filepath.Dir(tmp), 0o755); err != nil {
		return fmt.Errorf("creating parent directory: %w", err)
	}

	if err := r.sparseClone(ctx, tmp); err != nil {
		if errors.Is(err, ErrGitMissing) {
			return err
		}
		_ = os.RemoveAll(tmp)
		if _, err := r.git(ctx, "", "clone", "--depth=1", r.URL, tmp); err != nil {
			_ = os.RemoveAll(tmp)
			return fmt.Errorf("cloning catalog: %w", err)
		}
	}

	if err := os.RemoveAll(r.Dir); err != nil {
		_ = os.RemoveAll(tmp)
		return fmt.Errorf("removing existing catalog dir: %w", err)
	}
	if err := os.Rename(tmp, r.Dir); err != nil {
		_ = os.RemoveAll(tmp)
		return fmt.Errorf("finalizing catalog clone: %w", err)
	}
	return nil
}

func (r *Remote) sparseClone(ctx context.Context, dir string) error {
	if _, err := r.git(ctx, "", "clone", "--depth=1", "--sparse", "--no-checkout", r.URL, dir); err != nil {
		return err
	}
	if _, err := r.git(ctx, dir, "sparse-checkout", "set", TemplatesDir+"/"); err != nil {
		return err
	}
	_, err := r.git(ctx, dir, "checkout")
	return err
}

// git runs one command and folds its output into the error.
func (r *Remote) git(ctx context.Context, dir string, args ...string) ([]byte, error) {
	run := r.Git
	if run == nil {
		run = ExecGit
	}
	out, err := run(ctx, dir, args...)
	if err != nil {
		if errors.Is(err, ErrGitMissing) {
			return nil, err
		}
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return nil, fmt.Errorf("git %s: %w\n%s", args[0], err, msg)
		}
		return nil, fmt.Errorf("git %s: %w", args[0], err)
	}
	return out, nil
}

func (r *Remote) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Remote) writeRecord(rec SyncRecord) error {
	data, err := yaml.Marshal(rec)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(r.Dir, syncFile), data, 0o644); err != nil {
		return fmt.Errorf("writing sync record: %w", err)
	}
	return nil
}

// LastSync reads the sync record. A missing or unreadable record is the
// zero value.
func (r *Remote) LastSync() SyncRecord {
	var rec SyncRecord
	data, err := os.ReadFile(filepath.Join(r.Dir, syncFile))
	if err != nil {
		return SyncRecord{}
	}
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return SyncRecord{}
	}
	return rec
}

// Stale reports whether the catalog was synced more than maxAge ago or
// never at all.
func (r *Remote) Stale(maxAge time.Duration) bool {
	last := r.LastSync().SyncedAt
	return last.IsZero() || r.now().Sub(last) > maxAge
}

// Status reports whether the catalog is installed and how old it is.
func (r *Remote) Status() Status {
	_, installed := r.Source()
	return Status{
		Installed: installed,
		Stale:     r.Stale(DefaultMaxAge),
		Last:      r.LastSync(),
	}
}
