package catalog

import (
	"io/fs"
	"maps"
	"slices"
	"sort"

	"github.com/Masterminds/semver/v3"
)

// Kind classifies a template by what it produces.
type Kind string

const (
	KindAgent       Kind = "agent"
	KindSkill       Kind = "skill"
	KindCommand     Kind = "command"
	KindDocument    Kind = "document"
	KindBoilerplate Kind = "boilerplate-file"
	// KindPartial templates are only included by other templates. They are
	// never selected or written on their own.
	KindPartial Kind = "partial"
)

// Kinds lists every kind in display order.
var Kinds = []Kind{KindAgent, KindSkill, KindCommand, KindDocument, KindBoilerplate, KindPartial}

// DefaultMode is the file mode used when a descriptor does not set one.
const DefaultMode fs.FileMode = 0o644

// Descriptor is one loadable template. The store keeps its own copies and
// hands out copies, so a caller's changes never reach other readers.
type Descriptor struct {
	ID                string
	Kind              Kind
	Version           *semver.Version
	Description       string
	AppliesTo         []string
	RequiredVariables []string
	OptionalVariables map[string]string
	// Output is an optional path pattern. It may reference variables.
	Output string
	// Generator is an optional semver constraint on the generator version.
	Generator string
	Mode      fs.FileMode
	Body      string

	Source string // name of the source it was loaded from
	Path   string // file path within that source
}

// Clone returns a deep copy. Version is shared because semver versions are
// never modified.
func (d *Descriptor) Clone() *Descriptor {
	c := *d
	c.AppliesTo = slices.Clone(d.AppliesTo)
	c.RequiredVariables = slices.Clone(d.RequiredVariables)
	c.OptionalVariables = maps.Clone(d.OptionalVariables)
	return &c
}

// Materialized reports whether the descriptor produces a file of its own.
func (d *Descriptor) Materialized() bool {
	return d.Kind != KindPartial
}

// AlwaysEligible reports whether the template applies to every project type.
func (d *Descriptor) AlwaysEligible() bool {
	return len(d.AppliesTo) == 0
}

// AppliesToType reports whether the template is eligible for projectType.
func (d *Descriptor) AppliesToType(projectType string) bool {
	if d.AlwaysEligible() {
		return true
	}
	return d.ListsType(projectType)
}

// ListsType reports whether projectType appears explicitly in AppliesTo.
func (d *Descriptor) ListsType(projectType string) bool {
	for _, t := range d.AppliesTo {
		if t == projectType {
			return true
		}
	}
	return false
}

// Default returns the declared default for an optional variable.
func (d *Descriptor) Default(name string) (string, bool) {
	v, ok := d.OptionalVariables[name]
	return v, ok
}

// VersionString returns the version, or "0.0.0" when none was declared.
func (d *Descriptor) VersionString() string {
	if d.Version == nil {
		return "0.0.0"
	}
	return d.Version.String()
}

// OptionalNames returns the optional variable names sorted.
func (d *Descriptor) OptionalNames() []string {
	names := make([]string, 0, len(d.OptionalVariables))
	for k := range d.OptionalVariables {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// newer reports whether a should replace b when both share an id.
func newer(a, b *Descriptor) bool {
	av, bv := a.Version, b.Version
	if av == nil {
		av = zeroVersion
	}
	if bv == nil {
		bv = zeroVersion
	}
	return av.GreaterThan(bv)
}

var zeroVersion = semver.MustParse("0.0.0")
