// Package errors provides the structured error types returned by the
// generation pipeline. Every fatal or per-artifact failure carries a code
// so callers can branch on it without string matching.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Error codes.
const (
	// Template errors
	CodeMissingVariable  = "TMPL_MISSING_VAR"
	CodeCircularInclude  = "TMPL_CIRCULAR"
	CodeMalformed        = "TMPL_MALFORMED"
	CodeTemplateNotFound = "TMPL_NOT_FOUND"

	// Filesystem errors
	CodePathEscape = "FS_PATH_ESCAPE"
	CodeIOFailure  = "FS_IO"

	// Run errors
	CodeInvalidConfig = "CONFIG_INVALID"
	CodeCanceled      = "GEN_CANCELED"
)

// Error is the structured error type for pipeline operations.
type Error struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Cause   error          `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// Detail returns a string detail, or "" if unset.
func (e *Error) Detail(key string) string {
	if v, ok := e.Details[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprint(v)
	}
	return ""
}

// MarshalJSON includes the cause message.
func (e *Error) MarshalJSON() ([]byte, error) {
	type alias Error
	aux := struct {
		*alias
		CauseMsg string `json:"cause,omitempty"`
	}{
		alias: (*alias)(e),
	}
	if e.Cause != nil {
		aux.CauseMsg = e.Cause.Error()
	}
	return json.Marshal(aux)
}

// Newf creates a new Error with a formatted message.
func Newf(code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an error with an Error.
func Wrap(code, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// MissingVariable reports a variable a template needs but nobody supplied.
func MissingVariable(templateID, name string) *Error {
	return Newf(CodeMissingVariable, "template %s: missing variable %q", templateID, name).
		WithDetail("template", templateID).
		WithDetail("variable", name)
}

// CircularInclude reports a partial include cycle. chain ends with the
// id that closed the cycle.
func CircularInclude(chain []string) *Error {
	return Newf(CodeCircularInclude, "circular include: %s", strings.Join(chain, " -> ")).
		WithDetail("chain", append([]string(nil), chain...))
}

// Malformed reports a template that cannot be parsed. line is 1-based; zero
// means the problem is not tied to a line.
func Malformed(templateID string, line int, msg string) *Error {
	if line <= 0 {
		return Newf(CodeMalformed, "template %s: %s", templateID, msg).
			WithDetail("template", templateID)
	}
	return Newf(CodeMalformed, "template %s line %d: %s", templateID, line, msg).
		WithDetail("template", templateID).
		WithDetail("line", line)
}

// TemplateNotFound reports an id absent from the store.
func TemplateNotFound(id string) *Error {
	return Newf(CodeTemplateNotFound, "template not found: %s", id).
		WithDetail("template", id)
}

// PathEscape reports an artifact path that resolves outside the output root.
func PathEscape(path string) *Error {
	return Newf(CodePathEscape, "path escapes output root: %s", path).
		WithDetail("path", path)
}

// IOFailure reports a filesystem failure during materialization.
func IOFailure(path string, cause error) *Error {
	return Wrap(CodeIOFailure, "writing "+path, cause).
		WithDetail("path", path)
}

// InvalidConfig reports a project configuration the pipeline cannot use.
func InvalidConfig(format string, args ...any) *Error {
	return Newf(CodeInvalidConfig, format, args...)
}

// Canceled reports a run abandoned before materialization started.
func Canceled(cause error) *Error {
	return Wrap(CodeCanceled, "generation canceled", cause)
}

// HasCode checks if err is, or wraps, an Error with the given code.
func HasCode(err error, code string) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf returns the code of the first Error in err's chain, or "".
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// As finds the first Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
