package render

import (
	perrors "github.com/agentx-labs/blueprint/internal/errors"
)

type node interface{ isNode() }

type textNode struct{ text string }

type varNode struct {
	name string
	line int
}

type condNode struct {
	name   string
	negate bool
	then   []node
	els    []node
	line   int
}

type partialNode struct {
	id         string
	line       int
	standalone bool
}

func (textNode) isNode()    {}
func (varNode) isNode()     {}
func (condNode) isNode()    {}
func (partialNode) isNode() {}

type parser struct {
	templateID string
	toks       []token
	pos        int
}

// parse lexes and parses a template body.
func parse(templateID, src string) ([]node, error) {
	toks, err := lex(templateID, src)
	if err != nil {
		return nil, err
	}
	p := &parser{templateID: templateID, toks: toks}
	nodes, end, err := p.list()
	if err != nil {
		return nil, err
	}
	if end != nil {
		return nil, perrors.Malformed(templateID, end.line, "unexpected "+tagName(end.kind))
	}
	return nodes, nil
}

// list parses nodes until a closing or else tag, which it returns unconsumed
// in end. end is nil at end of input.
func (p *parser) list() (nodes []node, end *token, err error) {
	for p.pos < len(p.toks) {
		tok := p.toks[p.pos]
		switch tok.kind {
		case tokText:
			nodes = append(nodes, textNode{text: tok.text})
		case tokVar:
			nodes = append(nodes, varNode{name: tok.text, line: tok.line})
		case tokComment:
		case tokPartial:
			nodes = append(nodes, partialNode{id: tok.text, line: tok.line, standalone: tok.standalone})
		case tokIf, tokUnless:
			p.pos++
			n, err := p.cond(tok)
			if err != nil {
				return nil, nil, err
			}
			nodes = append(nodes, n)
			continue
		case tokElse, tokEndIf, tokEndUnless:
			return nodes, &p.toks[p.pos], nil
		}
		p.pos++
	}
	return nodes, nil, nil
}

func (p *parser) cond(open token) (node, error) {
	n := condNode{name: open.text, negate: open.kind == tokUnless, line: open.line}
	closer := tokEndIf
	if n.negate {
		closer = tokEndUnless
	}

	body, end, err := p.list()
	if err != nil {
		return nil, err
	}
	n.then = body

	if end != nil && end.kind == tokElse {
		p.pos++
		n.els, end, err = p.list()
		if err != nil {
			return nil, err
		}
		if end != nil && end.kind == tokElse {
			return nil, perrors.Malformed(p.templateID, end.line, "duplicate {{else}} in block opened on line "+itoa(open.line))
		}
	}

	if end == nil {
		return nil, perrors.Malformed(p.templateID, open.line, "unclosed "+tagName(open.kind)+" "+quote(open.text))
	}
	if end.kind != closer {
		return nil, perrors.Malformed(p.templateID, end.line, tagName(end.kind)+" does not close "+tagName(open.kind)+" opened on line "+itoa(open.line))
	}
	p.pos++
	return n, nil
}

func tagName(k tokenKind) string {
	switch k {
	case tokIf:
		return "{{#if}}"
	case tokUnless:
		return "{{#unless}}"
	case tokElse:
		return "{{else}}"
	case tokEndIf:
		return "{{/if}}"
	case tokEndUnless:
		return "{{/unless}}"
	case tokPartial:
		return "{{>}}"
	}
	return "tag"
}
