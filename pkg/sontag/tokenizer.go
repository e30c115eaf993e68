package sontag

import "strings"

// tokenKind identifies one of the six fixed delimiters or a literal run.
type tokenKind int

const (
	tokenText tokenKind = iota
	tokenOpenTag
	tokenCloseTag
	tokenOpenExpr
	tokenCloseExpr
	tokenOpenComment
	tokenCloseComment
)

// The six fixed two-character delimiters of the template language.
const (
	delimOpenTag      = "{%"
	delimCloseTag     = "%}"
	delimOpenExpr     = "{{"
	delimCloseExpr    = "}}"
	delimOpenComment  = "{#"
	delimCloseComment = "#}"
)

func (k tokenKind) String() string {
	switch k {
	case tokenText:
		return "text"
	case tokenOpenTag:
		return delimOpenTag
	case tokenCloseTag:
		return delimCloseTag
	case tokenOpenExpr:
		return delimOpenExpr
	case tokenCloseExpr:
		return delimCloseExpr
	case tokenOpenComment:
		return delimOpenComment
	case tokenCloseComment:
		return delimCloseComment
	default:
		return "unknown"
	}
}

// token is a parse-time-only item: a delimiter or a literal span, tagged with
// the 1-based line number where it starts. Line numbers are derived from a
// running newline count, so an error inside a multi-line span reports the
// line of the span's start.
type token struct {
	kind tokenKind
	text string // payload for tokenText, empty otherwise
	line int
}

// tokenizer splits raw template text on the six fixed delimiters in a single
// pass. It yields a forward-only, non-restartable sequence of tokens.
type tokenizer struct {
	input string
	name  string // diagnostic label
	pos   int
	line  int
}

func newTokenizer(input, name string) *tokenizer {
	return &tokenizer{input: input, name: name, line: 1}
}

// delimAt reports the delimiter starting at byte offset i, if any.
func delimAt(s string, i int) (tokenKind, bool) {
	if i+2 > len(s) {
		return 0, false
	}
	switch s[i : i+2] {
	case delimOpenTag:
		return tokenOpenTag, true
	case delimCloseTag:
		return tokenCloseTag, true
	case delimOpenExpr:
		return tokenOpenExpr, true
	case delimCloseExpr:
		return tokenCloseExpr, true
	case delimOpenComment:
		return tokenOpenComment, true
	case delimCloseComment:
		return tokenCloseComment, true
	}
	return 0, false
}

// next returns the next token in the input. The second return value is false
// once the input is exhausted.
func (tz *tokenizer) next() (token, bool) {
	if tz.pos >= len(tz.input) {
		return token{}, false
	}

	if kind, ok := delimAt(tz.input, tz.pos); ok {
		tok := token{kind: kind, line: tz.line}
		tz.pos += 2
		return tok, true
	}

	// Literal run: everything up to the next delimiter or end of input.
	start := tz.pos
	for tz.pos < len(tz.input) {
		if _, ok := delimAt(tz.input, tz.pos); ok {
			break
		}
		tz.pos++
	}
	text := tz.input[start:tz.pos]
	tok := token{kind: tokenText, text: text, line: tz.line}
	tz.line += strings.Count(text, "\n")
	return tok, true
}
