// Package materialize writes rendered artifacts under an output root.
//
// Every path is checked to stay inside the root before anything is written.
// Existing files are handled by a conflict policy. Writes within a batch are
// journaled: when one fails, everything the batch already changed is undone
// before the error is returned.
package materialize
