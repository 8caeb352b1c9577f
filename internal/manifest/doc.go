// Package manifest parses template descriptor files (YAML frontmatter plus a
// template body) and validates descriptor frontmatter and project
// configuration files against the JSON schemas embedded in this package.
package manifest
