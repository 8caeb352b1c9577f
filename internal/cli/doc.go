// Package cli defines the Cobra command tree for the blueprint CLI. Each file
// in this package registers one top-level command (generate, plan, templates,
// etc.) with the root command. Commands delegate to the internal packages for
// the pipeline itself and only handle flags, output formatting, and exit
// status.
package cli
