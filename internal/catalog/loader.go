package catalog

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/agentx-labs/blueprint/internal/manifest"
)

// Loader yields every descriptor a store should hold. Implementations must
// return at most one descriptor per id.
type Loader interface {
	LoadAll() ([]*Descriptor, error)
}

// Options configure FSLoader.
type Options struct {
	// GeneratorVersion is checked against each descriptor's generator
	// constraint. Empty or non-semver values (such as "dev") skip the check.
	GeneratorVersion string
	Logger           *slog.Logger
}

// FSLoader reads descriptors from a list of sources. When an id appears more
// than once the higher version wins, and equal versions keep the one from
// the earlier source.
type FSLoader struct {
	Sources []Source
	Options Options

	warnings []string
}

// NewFSLoader creates a loader over sources in priority order.
func NewFSLoader(sources []Source, opts Options) *FSLoader {
	return &FSLoader{Sources: sources, Options: opts}
}

// Warnings returns the non-fatal problems seen by the last LoadAll.
func (l *FSLoader) Warnings() []string {
	return l.warnings
}

// LoadAll walks every source. It fails on the first unreadable or invalid
// descriptor.
func (l *FSLoader) LoadAll() ([]*Descriptor, error) {
	l.warnings = nil
	logger := l.Options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	current, err := generatorVersion(l.Options.GeneratorVersion)
	if err != nil {
		return nil, err
	}

	var order []string
	byID := make(map[string]*Descriptor)

	for _, src := range l.Sources {
		err := fs.WalkDir(src.FS, ".", func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if p != "." && strings.HasPrefix(d.Name(), ".") {
					return fs.SkipDir
				}
				return nil
			}
			if !isTemplateFile(p) {
				return nil
			}

			desc, err := readDescriptor(src, p)
			if err != nil {
				return err
			}

			if desc.Generator != "" && current != nil {
				c, err := semver.NewConstraint(desc.Generator)
				if err != nil {
					return fmt.Errorf("%s/%s: invalid generator constraint %q: %w", src.Name, p, desc.Generator, err)
				}
				if !c.Check(current) {
					w := fmt.Sprintf("skipping %s from %s: requires generator %s, running %s",
						desc.ID, src.Name, desc.Generator, current)
					l.warnings = append(l.warnings, w)
					logger.Warn("template skipped", "template", desc.ID, "source", src.Name, "constraint", desc.Generator)
					return nil
				}
			}

			prev, seen := byID[desc.ID]
			switch {
			case !seen:
				byID[desc.ID] = desc
				order = append(order, desc.ID)
			case newer(desc, prev):
				logger.Debug("template overridden",
					"template", desc.ID,
					"from", prev.Source, "from_version", prev.VersionString(),
					"to", desc.Source, "to_version", desc.VersionString())
				byID[desc.ID] = desc
			default:
				logger.Debug("template shadowed", "template", desc.ID, "source", desc.Source, "kept", prev.Source)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("loading templates from %s: %w", src.Name, err)
		}
	}

	out := make([]*Descriptor, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	return out, nil
}

func generatorVersion(v string) (*semver.Version, error) {
	if v == "" || v == "dev" {
		return nil, nil
	}
	parsed, err := semver.NewVersion(v)
	if err != nil {
		// Development builds carry arbitrary version strings.
		return nil, nil
	}
	return parsed, nil
}

// ParseFile reads and validates one template file from disk.
func ParseFile(path string) (*Descriptor, error) {
	src := DirSource(filepath.Dir(path))
	return readDescriptor(src, filepath.Base(path))
}

// readDescriptor parses and validates one template file.
func readDescriptor(src Source, p string) (*Descriptor, error) {
	data, err := fs.ReadFile(src.FS, p)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", p, err)
	}
	doc, err := manifest.Parse(data, p)
	if err != nil {
		return nil, err
	}
	result, err := manifest.ValidateDescriptor(doc.Raw)
	if err != nil {
		return nil, fmt.Errorf("validating %s: %w", p, err)
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}
	return fromDocument(doc, src.Name, p)
}

// fromDocument converts validated frontmatter into a Descriptor.
func fromDocument(doc *manifest.Document, source, p string) (*Descriptor, error) {
	fm := doc.Frontmatter
	desc := &Descriptor{
		ID:                fm.ID,
		Kind:              Kind(fm.Kind),
		Description:       fm.Description,
		AppliesTo:         fm.AppliesTo,
		RequiredVariables: fm.RequiredVariables,
		OptionalVariables: fm.OptionalVariables,
		Output:            fm.Output,
		Generator:         fm.Generator,
		Mode:              DefaultMode,
		Body:              doc.Body,
		Source:            source,
		Path:              p,
	}
	if desc.OptionalVariables == nil {
		desc.OptionalVariables = map[string]string{}
	}
	if fm.Version != "" {
		v, err := semver.NewVersion(fm.Version)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid version %q: %w", p, fm.Version, err)
		}
		desc.Version = v
	}
	if fm.Mode != "" {
		m, err := strconv.ParseUint(fm.Mode, 8, 32)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid mode %q: %w", p, fm.Mode, err)
		}
		desc.Mode = fs.FileMode(m)
	}
	return desc, nil
}
