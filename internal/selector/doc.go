// Package selector decides which templates a project gets.
//
// Selection is best effort: unknown project types, unknown explicit ids and
// missing mapped templates become notes on the plan instead of errors.
package selector
