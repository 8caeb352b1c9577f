package render

import (
	"regexp"
	"strings"

	perrors "github.com/agentx-labs/blueprint/internal/errors"
)

type tokenKind int

const (
	tokText tokenKind = iota
	tokVar
	tokIf
	tokUnless
	tokElse
	tokEndIf
	tokEndUnless
	tokPartial
	tokComment
)

type token struct {
	kind tokenKind
	text string // literal text, variable name, or partial id
	line int

	// standalone is set for tags that were alone on their line.
	standalone bool
}

var (
	namePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	idPattern   = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)
)

const (
	openDelim  = "{{"
	closeDelim = "}}"
)

// lex splits src into text and tag tokens and strips the lines of
// standalone tags.
func lex(templateID, src string) ([]token, error) {
	var toks []token
	line := 1
	pos := 0
	for pos < len(src) {
		start := strings.Index(src[pos:], openDelim)
		if start < 0 {
			toks = append(toks, token{kind: tokText, text: src[pos:], line: line})
			break
		}
		start += pos
		if start > pos {
			text := src[pos:start]
			toks = append(toks, token{kind: tokText, text: text, line: line})
			line += strings.Count(text, "\n")
		}

		end := strings.Index(src[start+len(openDelim):], closeDelim)
		if end < 0 {
			return nil, perrors.Malformed(templateID, line, "unclosed tag: missing }}")
		}
		end += start + len(openDelim)
		inner := src[start+len(openDelim) : end]

		tok, err := classify(templateID, strings.TrimSpace(inner), line)
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		line += strings.Count(inner, "\n")
		pos = end + len(closeDelim)
	}
	return trimStandalone(toks), nil
}

func classify(templateID, inner string, line int) (token, error) {
	tok := token{line: line}
	switch {
	case strings.HasPrefix(inner, "!"):
		tok.kind = tokComment
		return tok, nil
	case inner == "else":
		tok.kind = tokElse
		return tok, nil
	case inner == "/if":
		tok.kind = tokEndIf
		return tok, nil
	case inner == "/unless":
		tok.kind = tokEndUnless
		return tok, nil
	case strings.HasPrefix(inner, ">"):
		id := strings.TrimSpace(inner[1:])
		if !idPattern.MatchString(id) {
			return tok, perrors.Malformed(templateID, line, "invalid partial id "+quote(id))
		}
		tok.kind, tok.text = tokPartial, id
		return tok, nil
	case strings.HasPrefix(inner, "#"):
		keyword, arg, _ := strings.Cut(inner[1:], " ")
		arg = strings.TrimSpace(arg)
		switch keyword {
		case "if":
			tok.kind = tokIf
		case "unless":
			tok.kind = tokUnless
		default:
			return tok, perrors.Malformed(templateID, line, "unknown block "+quote("#"+keyword))
		}
		if !namePattern.MatchString(arg) {
			return tok, perrors.Malformed(templateID, line, "invalid condition variable "+quote(arg))
		}
		tok.text = arg
		return tok, nil
	case strings.HasPrefix(inner, "/"):
		return tok, perrors.Malformed(templateID, line, "unknown closing tag "+quote(inner))
	}

	if !namePattern.MatchString(inner) {
		return tok, perrors.Malformed(templateID, line, "invalid variable name "+quote(inner))
	}
	tok.kind, tok.text = tokVar, inner
	return tok, nil
}

func quote(s string) string {
	return "\"" + s + "\""
}

// trimStandalone removes the indentation and line break around every
// non-variable tag that is the only thing on its line. Decisions are made on
// the original text so adjacent standalone lines do not affect each other.
func trimStandalone(toks []token) []token {
	n := len(toks)
	cutHead := make([]int, n) // bytes to drop from the front of a text token
	keepTail := make([]int, n)
	for i := range toks {
		keepTail[i] = len(toks[i].text)
	}

	for i, tok := range toks {
		if tok.kind == tokText || tok.kind == tokVar {
			continue
		}
		prevOK, prevKeep := standalonePrev(toks, i)
		nextOK, nextCut := standaloneNext(toks, i)
		if !prevOK || !nextOK {
			continue
		}
		toks[i].standalone = true
		if i > 0 {
			keepTail[i-1] = prevKeep
		}
		if i+1 < n {
			cutHead[i+1] = nextCut
		}
	}

	out := toks[:0]
	for i, tok := range toks {
		if tok.kind == tokText {
			lo, hi := cutHead[i], keepTail[i]
			if lo >= hi {
				continue
			}
			tok.text = tok.text[lo:hi]
		}
		out = append(out, tok)
	}
	return out
}

// standalonePrev checks that only whitespace separates toks[i] from the
// previous line break or the start of input. keep is the length of the
// previous text that survives.
func standalonePrev(toks []token, i int) (ok bool, keep int) {
	if i == 0 {
		return true, 0
	}
	prev := toks[i-1]
	if prev.kind != tokText {
		return false, 0
	}
	nl := strings.LastIndexByte(prev.text, '\n')
	if nl < 0 && i-1 != 0 {
		return false, 0
	}
	if strings.TrimLeft(prev.text[nl+1:], " \t") != "" {
		return false, 0
	}
	return true, nl + 1
}

// standaloneNext checks that only whitespace separates toks[i] from the next
// line break or the end of input. cut is how many bytes of the next text to
// drop, including the line break.
func standaloneNext(toks []token, i int) (ok bool, cut int) {
	if i == len(toks)-1 {
		return true, 0
	}
	next := toks[i+1]
	if next.kind != tokText {
		return false, 0
	}
	nl := strings.IndexByte(next.text, '\n')
	if nl < 0 {
		if i+1 != len(toks)-1 || strings.Trim(next.text, " \t\r") != "" {
			return false, 0
		}
		return true, len(next.text)
	}
	if strings.Trim(next.text[:nl], " \t\r") != "" {
		return false, 0
	}
	return true, nl + 1
}
