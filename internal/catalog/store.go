package catalog

import (
	"fmt"
	"sort"

	"github.com/sahilm/fuzzy"
)

// maxSuggestions caps how many near matches Suggest returns.
const maxSuggestions = 3

// Store is an immutable, id-keyed index of descriptors. It is safe for
// concurrent use.
type Store struct {
	byID     map[string]*Descriptor
	sorted   []*Descriptor
	warnings []string
}

// NewStore indexes descs. Duplicate ids are rejected.
func NewStore(descs ...*Descriptor) (*Store, error) {
	s := &Store{byID: make(map[string]*Descriptor, len(descs))}
	for _, d := range descs {
		if d == nil {
			continue
		}
		if _, dup := s.byID[d.ID]; dup {
			return nil, fmt.Errorf("duplicate template id %q", d.ID)
		}
		d = d.Clone()
		s.byID[d.ID] = d
		s.sorted = append(s.sorted, d)
	}
	sort.Slice(s.sorted, func(i, j int) bool { return s.sorted[i].ID < s.sorted[j].ID })
	return s, nil
}

// Open builds a store from any Loader.
func Open(l Loader) (*Store, error) {
	descs, err := l.LoadAll()
	if err != nil {
		return nil, err
	}
	s, err := NewStore(descs...)
	if err != nil {
		return nil, err
	}
	if w, ok := l.(interface{ Warnings() []string }); ok {
		s.warnings = append([]string(nil), w.Warnings()...)
	}
	return s, nil
}

// Load reads sources in priority order into a store.
func Load(sources []Source, opts Options) (*Store, error) {
	return Open(NewFSLoader(sources, opts))
}

// Get returns a copy of the descriptor with the given id.
func (s *Store) Get(id string) (*Descriptor, bool) {
	d, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	return d.Clone(), true
}

// Has reports whether id is known.
func (s *Store) Has(id string) bool {
	_, ok := s.byID[id]
	return ok
}

// Len returns the number of descriptors.
func (s *Store) Len() int { return len(s.sorted) }

// All returns every descriptor sorted by id.
func (s *Store) All() []*Descriptor {
	out := make([]*Descriptor, len(s.sorted))
	for i, d := range s.sorted {
		out[i] = d.Clone()
	}
	return out
}

// ByKind returns the descriptors of one kind sorted by id.
func (s *Store) ByKind(k Kind) []*Descriptor {
	var out []*Descriptor
	for _, d := range s.sorted {
		if d.Kind == k {
			out = append(out, d.Clone())
		}
	}
	return out
}

// IDs returns every id sorted.
func (s *Store) IDs() []string {
	ids := make([]string, len(s.sorted))
	for i, d := range s.sorted {
		ids[i] = d.ID
	}
	return ids
}

// Warnings returns load-time warnings such as skipped descriptors.
func (s *Store) Warnings() []string {
	return s.warnings
}

// Suggest returns up to three known ids that fuzzily match id, best first.
func (s *Store) Suggest(id string) []string {
	if id == "" {
		return nil
	}
	ids := s.IDs()
	matches := fuzzy.Find(id, ids)
	out := make([]string, 0, maxSuggestions)
	for _, m := range matches {
		if len(out) == maxSuggestions {
			break
		}
		out = append(out, m.Str)
	}
	return out
}
