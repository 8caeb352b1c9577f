// Package project defines the structured project configuration that drives
// a generation run, and the deterministic name transforms (slug, kebab,
// pascal, snake) derived from it.
package project
