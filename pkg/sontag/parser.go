package sontag

import (
	"strings"
	"unicode"
)

// parseContext is one entry of the parsing context stack. Template text
// starts in content; each open delimiter pushes the matching context and its
// close delimiter pops back to content.
type parseContext int

const (
	ctxContent parseContext = iota
	ctxTag
	ctxExpression
	ctxComment
)

func (c parseContext) String() string {
	switch c {
	case ctxContent:
		return "content"
	case ctxTag:
		return "tag"
	case ctxExpression:
		return "expression"
	default:
		return "comment"
	}
}

// parser drives the tokenizer through the context automaton and builds the
// ownership tree. The insertion cursor is a node handle; tag roles move it
// down (Start, Inside) and back up (End).
type parser struct {
	name     string
	registry *TagRegistry
	tree     *tree
	cursor   nodeID
	stack    []parseContext
	buf      strings.Builder // payload of the currently open tag or expression
	openLine int             // line of the currently open delimiter
}

// parse builds the tree for one template source.
func parse(source, name string, registry *TagRegistry) (*tree, error) {
	GetLogger().WithField("template", name).Debug("parsing template")

	p := &parser{
		name:     name,
		registry: registry,
		tree:     newTree(name),
		cursor:   rootID,
		stack:    []parseContext{ctxContent},
	}

	tz := newTokenizer(source, name)
	for {
		tok, ok := tz.next()
		if !ok {
			break
		}
		if err := p.feed(tok); err != nil {
			return nil, err
		}
	}

	return p.tree, p.finish()
}

func (p *parser) context() parseContext {
	return p.stack[len(p.stack)-1]
}

func (p *parser) push(c parseContext, line int) {
	p.stack = append(p.stack, c)
	p.buf.Reset()
	p.openLine = line
}

func (p *parser) pop() {
	p.stack = p.stack[:len(p.stack)-1]
}

// feed applies one token to the context automaton.
func (p *parser) feed(tok token) error {
	switch p.context() {
	case ctxContent:
		switch tok.kind {
		case tokenText:
			p.tree.append(p.cursor, node{kind: nodeText, line: tok.line, text: tok.text})
			return nil
		case tokenOpenTag:
			p.push(ctxTag, tok.line)
			return nil
		case tokenOpenExpr:
			p.push(ctxExpression, tok.line)
			return nil
		case tokenOpenComment:
			p.push(ctxComment, tok.line)
			return nil
		default:
			return NewSyntaxError(p.name, tok.line, "unexpected "+tok.kind.String()+" in content")
		}

	case ctxTag:
		switch tok.kind {
		case tokenText:
			p.buf.WriteString(tok.text)
			return nil
		case tokenCloseTag:
			signature := p.buf.String()
			p.pop()
			return p.processTag(signature)
		default:
			return NewSyntaxError(p.name, tok.line, "unexpected "+tok.kind.String()+" inside tag")
		}

	case ctxExpression:
		switch tok.kind {
		case tokenText:
			p.buf.WriteString(tok.text)
			return nil
		case tokenCloseExpr:
			raw := strings.TrimSpace(p.buf.String())
			p.tree.append(p.cursor, node{kind: nodeExpression, line: p.openLine, rawExpr: raw})
			p.pop()
			return nil
		default:
			return NewSyntaxError(p.name, tok.line, "unexpected "+tok.kind.String()+" inside expression")
		}

	default: // ctxComment: content is fully absorbed, delimiters included
		if tok.kind == tokenCloseComment {
			p.pop()
		}
		return nil
	}
}

// processTag interprets one complete {% ... %} signature: route the name
// through the registry, parse its arguments, and move the cursor per role.
func (p *parser) processTag(signature string) error {
	line := p.openLine

	sig := strings.TrimSpace(signature)
	if sig == "" {
		return NewMalformedTagError(p.name, line, signature, nil)
	}
	tagName := sig
	rest := ""
	if i := strings.IndexFunc(sig, unicode.IsSpace); i >= 0 {
		tagName = sig[:i]
		rest = strings.TrimSpace(sig[i:])
	}

	route, ok := p.registry.lookup(tagName)
	if !ok {
		return NewUnknownTagError(p.name, line, tagName)
	}

	switch route.role {
	case RoleStart, RoleInside:
		if route.role == RoleInside {
			if err := p.checkInside(tagName, line, route.family); err != nil {
				return err
			}
		}

		var args interface{}
		if route.desc.ParseArgs != nil {
			parsed, err := route.desc.ParseArgs(rest)
			if err != nil {
				return NewMalformedTagError(p.name, line, sig, err)
			}
			args = parsed
		}

		n := node{
			kind:     nodeTag,
			line:     line,
			tagName:  tagName,
			role:     route.role,
			family:   route.family,
			desc:     route.desc,
			args:     args,
			singular: route.desc.Singular,
		}
		id := p.tree.append(p.cursor, n)
		if !route.desc.Singular || route.role == RoleInside {
			p.cursor = id
		}
		return nil

	default: // RoleEnd
		if rest != "" {
			return NewMalformedTagError(p.name, line, sig, nil)
		}
		return p.closeFamily(tagName, line, route.family)
	}
}

// checkInside validates that an Inside tag appears under an open tag of its
// own family. The cursor may sit on the family's Start or on a previous
// Inside of the same family.
func (p *parser) checkInside(tagName string, line, family int) error {
	cur := p.tree.node(p.cursor)
	if p.cursor == rootID || cur.kind != nodeTag || cur.family != family {
		return NewMismatchedCloseError(p.name, line, tagName, p.openTagName())
	}
	return nil
}

// closeFamily handles an End tag: walk up from the cursor through Inside
// nodes of the same family to the Start, then set the cursor to the Start's
// parent.
func (p *parser) closeFamily(tagName string, line, family int) error {
	cur := p.cursor
	for cur != rootID {
		n := p.tree.node(cur)
		if n.kind != nodeTag || n.family != family {
			break
		}
		if n.role == RoleStart {
			p.cursor = n.parent
			return nil
		}
		cur = n.parent
	}
	return NewMismatchedCloseError(p.name, line, tagName, p.openTagName())
}

// openTagName names the tag open at the cursor, for diagnostics.
func (p *parser) openTagName() string {
	if p.cursor == rootID {
		return ""
	}
	return p.tree.node(p.cursor).tagName
}

// finish validates end-of-input: the context stack must be back at content
// and the cursor back at the root. Unterminated constructs report the line
// where they opened.
func (p *parser) finish() error {
	if p.context() != ctxContent {
		return NewUnterminatedConstructError(p.name, p.openLine, p.context().String())
	}
	if p.cursor != rootID {
		open := p.tree.node(p.cursor)
		return NewUnterminatedConstructError(p.name, open.line, open.tagName)
	}
	return nil
}
