package sontag

import "testing"

func collectTokens(t *testing.T, input string) []token {
	t.Helper()
	tz := newTokenizer(input, "test")
	var tokens []token
	for {
		tok, ok := tz.next()
		if !ok {
			return tokens
		}
		tokens = append(tokens, tok)
	}
}

func TestTokenizerSplitsOnDelimiters(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []token
	}{
		{
			name:  "plain text",
			input: "hello world",
			want:  []token{{kind: tokenText, text: "hello world", line: 1}},
		},
		{
			name:  "expression",
			input: "a{{ x }}b",
			want: []token{
				{kind: tokenText, text: "a", line: 1},
				{kind: tokenOpenExpr, line: 1},
				{kind: tokenText, text: " x ", line: 1},
				{kind: tokenCloseExpr, line: 1},
				{kind: tokenText, text: "b", line: 1},
			},
		},
		{
			name:  "tag",
			input: "{% if x %}",
			want: []token{
				{kind: tokenOpenTag, line: 1},
				{kind: tokenText, text: " if x ", line: 1},
				{kind: tokenCloseTag, line: 1},
			},
		},
		{
			name:  "comment",
			input: "{# note #}",
			want: []token{
				{kind: tokenOpenComment, line: 1},
				{kind: tokenText, text: " note ", line: 1},
				{kind: tokenCloseComment, line: 1},
			},
		},
		{
			name:  "adjacent delimiters",
			input: "{{}}",
			want: []token{
				{kind: tokenOpenExpr, line: 1},
				{kind: tokenCloseExpr, line: 1},
			},
		},
		{
			name:  "empty input",
			input: "",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := collectTokens(t, tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d tokens, want %d: %v", len(got), len(tt.want), got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("token %d: got %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestTokenizerLineNumbers(t *testing.T) {
	input := "one\ntwo\n{{ x }}\n{% if y %}"
	tokens := collectTokens(t, input)

	// The expression opens on line 3, the tag on line 4.
	var exprLine, tagLine int
	for _, tok := range tokens {
		switch tok.kind {
		case tokenOpenExpr:
			exprLine = tok.line
		case tokenOpenTag:
			tagLine = tok.line
		}
	}
	if exprLine != 3 {
		t.Errorf("expression open: got line %d, want 3", exprLine)
	}
	if tagLine != 4 {
		t.Errorf("tag open: got line %d, want 4", tagLine)
	}
}

func TestTokenizerMultiLineSpanReportsStartLine(t *testing.T) {
	tokens := collectTokens(t, "a\nb\nc{{ x }}")
	if tokens[0].line != 1 {
		t.Errorf("multi-line literal: got line %d, want 1", tokens[0].line)
	}
	if tokens[1].line != 3 {
		t.Errorf("delimiter after multi-line literal: got line %d, want 3", tokens[1].line)
	}
}
