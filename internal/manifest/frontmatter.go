package manifest

import (
	"bytes"
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"
)

// Frontmatter holds the metadata block at the top of a template file.
type Frontmatter struct {
	ID                string            `yaml:"id" json:"id"`
	Kind              string            `yaml:"kind" json:"kind"`
	Version           string            `yaml:"version,omitempty" json:"version,omitempty"`
	Description       string            `yaml:"description,omitempty" json:"description,omitempty"`
	AppliesTo         []string          `yaml:"applies_to,omitempty" json:"applies_to,omitempty"`
	RequiredVariables []string          `yaml:"required_variables,omitempty" json:"required_variables,omitempty"`
	OptionalVariables map[string]string `yaml:"optional_variables,omitempty" json:"optional_variables,omitempty"`
	Output            string            `yaml:"output,omitempty" json:"output,omitempty"`
	Generator         string            `yaml:"generator,omitempty" json:"generator,omitempty"`
	Mode              string            `yaml:"mode,omitempty" json:"mode,omitempty"`
}

// Document is a parsed template file.
type Document struct {
	Frontmatter Frontmatter
	Body        string

	// Raw is the undecoded frontmatter, kept for schema validation.
	Raw []byte
}

var (
	delimiter = []byte("---")
	bom       = []byte("\xef\xbb\xbf")
)

// Split separates a leading "---" delimited YAML block from the rest of the
// content. The body starts on the line after the closing delimiter.
func Split(data []byte) (front, body []byte, err error) {
	data = bytes.TrimPrefix(data, bom)
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))

	first, rest, _ := bytes.Cut(data, []byte("\n"))
	if !bytes.Equal(bytes.TrimSpace(first), delimiter) {
		return nil, nil, fmt.Errorf("missing frontmatter: file must start with ---")
	}

	offset := 0
	for offset <= len(rest) {
		line, _, found := bytes.Cut(rest[offset:], []byte("\n"))
		if bytes.Equal(bytes.TrimSpace(line), delimiter) {
			front = rest[:offset]
			bodyStart := offset + len(line)
			if found {
				bodyStart++
			}
			if bodyStart > len(rest) {
				bodyStart = len(rest)
			}
			return front, rest[bodyStart:], nil
		}
		if !found {
			break
		}
		offset += len(line) + 1
	}
	return nil, nil, fmt.Errorf("unterminated frontmatter: closing --- not found")
}

// Parse decodes a template file. path is only used in error messages.
func Parse(data []byte, path string) (*Document, error) {
	front, body, err := Split(data)
	if err != nil {
		return nil, fmt.Errorf("parsing template %s: %w", path, err)
	}

	var fm Frontmatter
	if err := yaml.Unmarshal(front, &fm); err != nil {
		return nil, fmt.Errorf("parsing frontmatter in %s: %w", path, err)
	}

	return &Document{
		Frontmatter: fm,
		Body:        string(body),
		Raw:         front,
	}, nil
}

// ParseFile reads and decodes a template file from disk.
func ParseFile(path string) (*Document, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data, path)
}

// readFile reads the contents of a file at the given path.
func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", path, err)
	}
	return data, nil
}
