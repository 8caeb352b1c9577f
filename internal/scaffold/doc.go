// Package scaffold runs a generation: it selects templates for a project
// configuration, resolves and renders each one, and materializes the result
// in a single batch. It powers the "blueprint generate" and "blueprint plan"
// commands.
package scaffold
