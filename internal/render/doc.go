// Package render turns a template descriptor and a variable set into an
// artifact: file content plus the path it should be written to.
//
// Template bodies use a small logic-less syntax:
//
//	{{ name }}                       substitute a variable
//	{{#if name}} ... {{else}} ... {{/if}}
//	{{#unless name}} ... {{/unless}}
//	{{> partial-id }}                include another template
//	{{! comment }}
//
// A block, partial, or comment tag that is alone on its line consumes the
// whole line. A placeholder without a value or declared default is an error;
// conditionals treat absent variables as false.
package render
