// Package resolve computes the variable set a template is rendered with.
//
// Three layers are merged, lowest precedence first:
//
//  1. the template's declared optional defaults,
//  2. values derived from the project configuration (names, casing,
//     tech stack, features),
//  3. the project's custom variables.
//
// Every required variable must be present after the merge.
package resolve
