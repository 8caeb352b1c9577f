package materialize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path"
	"reflect"
	"strings"

	"github.com/BurntSushi/toml"
	"go.yaml.in/yaml/v3"
)

// merger combines existing content with incoming content. changed is false
// when the existing content already holds everything incoming adds.
type merger func(existing, incoming []byte) (out []byte, changed bool, err error)

var mergers = map[string]merger{
	".gitignore":          mergeLines,
	".dockerignore":       mergeLines,
	".npmignore":          mergeLines,
	".prettierignore":     mergeLines,
	".eslintignore":       mergeLines,
	"package.json":        mergeJSON,
	"composer.json":       mergeJSON,
	"tsconfig.json":       mergeJSON,
	"docker-compose.yml":  mergeYAML,
	"docker-compose.yaml": mergeYAML,
	"pnpm-workspace.yaml": mergeYAML,
	"pyproject.toml":      mergeTOML,
	"Cargo.toml":          mergeTOML,
}

// mergerFor returns the merge strategy for a file, chosen by base name.
func mergerFor(rel string) (merger, bool) {
	m, ok := mergers[path.Base(rel)]
	return m, ok
}

// Mergeable reports whether the merge policy can combine rel with an
// existing file.
func Mergeable(rel string) bool {
	_, ok := mergerFor(rel)
	return ok
}

// mergeLines appends incoming lines that the existing file lacks. Blank
// lines are not carried over. Comparison ignores surrounding whitespace.
func mergeLines(existing, incoming []byte) ([]byte, bool, error) {
	have := make(map[string]bool)
	for _, l := range strings.Split(string(existing), "\n") {
		have[strings.TrimSpace(l)] = true
	}

	var add []string
	for _, l := range strings.Split(string(incoming), "\n") {
		t := strings.TrimSpace(l)
		if t == "" || have[t] {
			continue
		}
		have[t] = true
		add = append(add, t)
	}
	if len(add) == 0 {
		return existing, false, nil
	}

	var b bytes.Buffer
	b.Write(existing)
	if len(existing) > 0 && !bytes.HasSuffix(existing, []byte("\n")) {
		b.WriteByte('\n')
	}
	for _, l := range add {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	return b.Bytes(), true, nil
}

// mergeYAML deep-merges YAML documents node by node, so key order and
// comments of the existing file survive.
func mergeYAML(existing, incoming []byte) ([]byte, bool, error) {
	cur, add, err := parseNodes(existing, incoming, "YAML")
	if err != nil {
		return nil, false, err
	}
	if cur == nil {
		return incoming, true, nil
	}
	if !mergeNodes(cur, add) {
		return existing, false, nil
	}

	var b bytes.Buffer
	enc := yaml.NewEncoder(&b)
	enc.SetIndent(2)
	if err := enc.Encode(cur); err != nil {
		return nil, false, fmt.Errorf("encoding merged YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, false, fmt.Errorf("encoding merged YAML: %w", err)
	}
	return b.Bytes(), true, nil
}

// mergeJSON deep-merges JSON objects. JSON is parsed as YAML to keep key
// order; files YAML cannot read fall back to an order-insensitive merge.
func mergeJSON(existing, incoming []byte) ([]byte, bool, error) {
	if !json.Valid(incoming) {
		return nil, false, fmt.Errorf("incoming content is not valid JSON")
	}
	if len(bytes.TrimSpace(existing)) == 0 {
		return incoming, true, nil
	}
	if !json.Valid(existing) {
		return nil, false, fmt.Errorf("existing file is not valid JSON")
	}

	cur, add, err := parseNodes(existing, incoming, "JSON")
	if err != nil {
		return mergeJSONValues(existing, incoming)
	}
	if !mergeNodes(cur, add) {
		return existing, false, nil
	}

	var b bytes.Buffer
	if err := writeJSON(&b, cur, 0); err != nil {
		return nil, false, err
	}
	b.WriteByte('\n')
	return b.Bytes(), true, nil
}

func mergeJSONValues(existing, incoming []byte) ([]byte, bool, error) {
	var cur, add any
	if err := json.Unmarshal(existing, &cur); err != nil {
		return nil, false, fmt.Errorf("existing file is not valid JSON: %w", err)
	}
	if err := json.Unmarshal(incoming, &add); err != nil {
		return nil, false, fmt.Errorf("incoming content is not valid JSON: %w", err)
	}
	merged := deepMerge(cur, add)
	if reflect.DeepEqual(merged, cur) {
		return existing, false, nil
	}
	out, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return nil, false, fmt.Errorf("encoding merged JSON: %w", err)
	}
	return append(out, '\n'), true, nil
}

// mergeTOML deep-merges TOML tables. The encoder does not keep the original
// key order.
func mergeTOML(existing, incoming []byte) ([]byte, bool, error) {
	var cur, add map[string]any
	if _, err := toml.Decode(string(existing), &cur); err != nil {
		return nil, false, fmt.Errorf("existing file is not valid TOML: %w", err)
	}
	if _, err := toml.Decode(string(incoming), &add); err != nil {
		return nil, false, fmt.Errorf("incoming content is not valid TOML: %w", err)
	}
	merged, _ := deepMerge(cur, add).(map[string]any)
	if reflect.DeepEqual(merged, cur) || (len(add) == 0) {
		return existing, false, nil
	}

	var b bytes.Buffer
	if err := toml.NewEncoder(&b).Encode(merged); err != nil {
		return nil, false, fmt.Errorf("encoding merged TOML: %w", err)
	}
	return b.Bytes(), true, nil
}

// deepMerge combines decoded values. Maps merge recursively, slices take an
// ordered union, and for anything else the existing value wins. Neither
// argument is modified.
func deepMerge(existing, incoming any) any {
	switch cur := existing.(type) {
	case map[string]any:
		add, ok := incoming.(map[string]any)
		if !ok {
			return existing
		}
		out := make(map[string]any, len(cur)+len(add))
		for k, v := range cur {
			out[k] = v
		}
		for k, v := range add {
			if old, ok := out[k]; ok {
				out[k] = deepMerge(old, v)
			} else {
				out[k] = v
			}
		}
		return out
	case []any:
		add, ok := incoming.([]any)
		if !ok {
			return existing
		}
		out := append([]any(nil), cur...)
		for _, v := range add {
			if !containsValue(out, v) {
				out = append(out, v)
			}
		}
		return out
	case []map[string]any:
		// TOML arrays of tables.
		add, ok := incoming.([]map[string]any)
		if !ok {
			return existing
		}
		out := append([]map[string]any(nil), cur...)
		for _, v := range add {
			found := false
			for _, have := range out {
				if reflect.DeepEqual(have, v) {
					found = true
					break
				}
			}
			if !found {
				out = append(out, v)
			}
		}
		return out
	case nil:
		return incoming
	}
	return existing
}

func containsValue(list []any, v any) bool {
	for _, have := range list {
		if reflect.DeepEqual(have, v) {
			return true
		}
	}
	return false
}

// parseNodes decodes both inputs into YAML document nodes. cur is nil when
// the existing content is empty.
func parseNodes(existing, incoming []byte, format string) (cur, add *yaml.Node, err error) {
	add = new(yaml.Node)
	if err := yaml.Unmarshal(incoming, add); err != nil {
		return nil, nil, fmt.Errorf("incoming content is not valid %s: %w", format, err)
	}
	if len(bytes.TrimSpace(existing)) == 0 {
		return nil, add, nil
	}
	cur = new(yaml.Node)
	if err := yaml.Unmarshal(existing, cur); err != nil {
		return nil, nil, fmt.Errorf("existing file is not valid %s: %w", format, err)
	}
	return cur, add, nil
}

// mergeNodes merges src into dst in place and reports whether dst changed.
func mergeNodes(dst, src *yaml.Node) bool {
	if dst.Kind == yaml.DocumentNode && src.Kind == yaml.DocumentNode {
		if len(src.Content) == 0 {
			return false
		}
		if len(dst.Content) == 0 {
			dst.Content = src.Content
			return true
		}
		return mergeNodes(dst.Content[0], src.Content[0])
	}

	switch {
	case dst.Kind == yaml.MappingNode && src.Kind == yaml.MappingNode:
		changed := false
		for i := 0; i+1 < len(src.Content); i += 2 {
			key, val := src.Content[i], src.Content[i+1]
			if existing := mappingValue(dst, key.Value); existing != nil {
				if mergeNodes(existing, val) {
					changed = true
				}
				continue
			}
			dst.Content = append(dst.Content, key, val)
			changed = true
		}
		return changed
	case dst.Kind == yaml.SequenceNode && src.Kind == yaml.SequenceNode:
		changed := false
		for _, item := range src.Content {
			if !sequenceHas(dst, item) {
				dst.Content = append(dst.Content, item)
				changed = true
			}
		}
		return changed
	}
	return false
}

func mappingValue(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

func sequenceHas(seq, item *yaml.Node) bool {
	for _, have := range seq.Content {
		if nodesEqual(have, item) {
			return true
		}
	}
	return false
}

func nodesEqual(a, b *yaml.Node) bool {
	if a.Kind == yaml.AliasNode {
		a = a.Alias
	}
	if b.Kind == yaml.AliasNode {
		b = b.Alias
	}
	if a.Kind != b.Kind || len(a.Content) != len(b.Content) {
		return false
	}
	if a.Kind == yaml.ScalarNode {
		return a.Value == b.Value && a.ShortTag() == b.ShortTag()
	}
	for i := range a.Content {
		if !nodesEqual(a.Content[i], b.Content[i]) {
			return false
		}
	}
	return true
}

// writeJSON emits a node tree as indented JSON, keeping mapping order.
func writeJSON(b *bytes.Buffer, n *yaml.Node, depth int) error {
	indent := func(d int) { b.WriteString(strings.Repeat("  ", d)) }

	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			b.WriteString("null")
			return nil
		}
		return writeJSON(b, n.Content[0], depth)
	case yaml.AliasNode:
		return writeJSON(b, n.Alias, depth)
	case yaml.MappingNode:
		if len(n.Content) == 0 {
			b.WriteString("{}")
			return nil
		}
		b.WriteString("{\n")
		for i := 0; i+1 < len(n.Content); i += 2 {
			indent(depth + 1)
			if err := writeJSONString(b, n.Content[i].Value); err != nil {
				return err
			}
			b.WriteString(": ")
			if err := writeJSON(b, n.Content[i+1], depth+1); err != nil {
				return err
			}
			if i+2 < len(n.Content) {
				b.WriteByte(',')
			}
			b.WriteByte('\n')
		}
		indent(depth)
		b.WriteByte('}')
		return nil
	case yaml.SequenceNode:
		if len(n.Content) == 0 {
			b.WriteString("[]")
			return nil
		}
		b.WriteString("[\n")
		for i, item := range n.Content {
			indent(depth + 1)
			if err := writeJSON(b, item, depth+1); err != nil {
				return err
			}
			if i+1 < len(n.Content) {
				b.WriteByte(',')
			}
			b.WriteByte('\n')
		}
		indent(depth)
		b.WriteByte(']')
		return nil
	case yaml.ScalarNode:
		switch n.ShortTag() {
		case "!!int", "!!float", "!!bool":
			b.WriteString(n.Value)
		case "!!null":
			b.WriteString("null")
		default:
			return writeJSONString(b, n.Value)
		}
		return nil
	}
	return fmt.Errorf("unsupported node kind %d", n.Kind)
}

func writeJSONString(b *bytes.Buffer, s string) error {
	enc := json.NewEncoder(b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	// Encode appends a newline.
	b.Truncate(b.Len() - 1)
	return nil
}
