package hush

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kinds(tokens []Token) []TokenKind {
	out := make([]TokenKind, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Kind
	}
	return out
}

func TestLexerTokens(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []TokenKind
	}{
		{
			name:     "let statement",
			input:    "let x = 1 + 2.5",
			expected: []TokenKind{LET, IDENT, ASSIGN, INT, PLUS, FLOAT, EOF},
		},
		{
			name:     "keywords",
			input:    "if then elseif else end for in do while function return break self nil true false and or not",
			expected: []TokenKind{IF, THEN, ELSEIF, ELSE, END, FOR, IN, DO, WHILE, FUNCTION, RETURN, BREAK, SELF, NIL, TRUE, FALSE, AND, OR, NOT, EOF},
		},
		{
			name:     "two character operators",
			input:    "++ == != <= >= < > =",
			expected: []TokenKind{CONCAT, EQ, NEQ, LE, GE, LT, GT, ASSIGN, EOF},
		},
		{
			name:     "punctuation",
			input:    "( ) [ ] @[ , ; : . ?",
			expected: []TokenKind{LPAREN, RPAREN, LBRACKET, RBRACKET, DICT_OPEN, COMMA, SEMICOLON, COLON, DOT, QUESTION, EOF},
		},
		{
			name:     "comments are skipped",
			input:    "# leading\nx # trailing\n",
			expected: []TokenKind{IDENT, EOF},
		},
		{
			name:     "string and char",
			input:    `"hello" 'c'`,
			expected: []TokenKind{STRING, CHAR, EOF},
		},
		{
			name:     "field access is not a float",
			input:    "a.b 1.x",
			expected: []TokenKind{IDENT, DOT, IDENT, INT, DOT, IDENT, EOF},
		},
		{
			name:     "command block",
			input:    "{ echo hi | wc -l > out.txt; ls ? }",
			expected: []TokenKind{BLOCK_OPEN, ARGUMENT, ARGUMENT, PIPE, ARGUMENT, ARGUMENT, REDIRECT_OUT, ARGUMENT, SEMICOLON, ARGUMENT, QUESTION, BLOCK_CLOSE, EOF},
		},
		{
			name:     "capture and async blocks",
			input:    "${ date } &{ sleep 1 }",
			expected: []TokenKind{CAPTURE_OPEN, ARGUMENT, BLOCK_CLOSE, ASYNC_OPEN, ARGUMENT, ARGUMENT, BLOCK_CLOSE, EOF},
		},
		{
			name:     "redirection operators",
			input:    "{ cat < in >> log << text 2>1 }",
			expected: []TokenKind{BLOCK_OPEN, ARGUMENT, REDIRECT_IN, ARGUMENT, REDIRECT_APPEND, ARGUMENT, REDIRECT_LITERAL, ARGUMENT, ARGUMENT, REDIRECT_OUT, ARGUMENT, BLOCK_CLOSE, EOF},
		},
		{
			name:     "expression mode resumes after block",
			input:    "let r = { true }\nr == nil",
			expected: []TokenKind{LET, IDENT, ASSIGN, BLOCK_OPEN, ARGUMENT, BLOCK_CLOSE, IDENT, EQ, NIL, EOF},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := Tokenize(tt.input, "test.hsh")
			require.NoError(t, err)
			assert.Equal(t, tt.expected, kinds(tokens))
		})
	}
}

func TestLexerLiteralValues(t *testing.T) {
	tokens, err := Tokenize(`42 3.25 1e3 "a\tb\"c" '\n' 'x' name_1`, "test.hsh")
	require.NoError(t, err)
	require.Len(t, tokens, 8)

	assert.Equal(t, "42", tokens[0].Value)
	assert.Equal(t, FLOAT, tokens[1].Kind)
	assert.Equal(t, "3.25", tokens[1].Value)
	assert.Equal(t, FLOAT, tokens[2].Kind)
	assert.Equal(t, "a\tb\"c", tokens[3].Value)
	assert.Equal(t, "\n", tokens[4].Value)
	assert.Equal(t, "x", tokens[5].Value)
	assert.Equal(t, "name_1", tokens[6].Value)
}

func TestLexerPositions(t *testing.T) {
	tokens, err := Tokenize("let x\n  = 1", "pos.hsh")
	require.NoError(t, err)

	assert.Equal(t, 1, tokens[0].Pos.Line)
	assert.Equal(t, 1, tokens[0].Pos.Column)
	assert.Equal(t, 5, tokens[1].Pos.Column)
	assert.Equal(t, 2, tokens[2].Pos.Line)
	assert.Equal(t, 3, tokens[2].Pos.Column)
	assert.Equal(t, "pos.hsh", tokens[3].Pos.Filename)
}

func TestLexerArgumentParts(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []ArgPart
	}{
		{
			name:  "plain word",
			input: "{ foo.txt }",
			expected: []ArgPart{
				{Kind: ArgText, Text: "foo.txt"},
			},
		},
		{
			name:  "quoted text merges",
			input: `{ 'a b'"c" }`,
			expected: []ArgPart{
				{Kind: ArgText, Text: "a bc", Quoted: true},
			},
		},
		{
			name:  "variables",
			input: `{ pre$x"-${y}" }`,
			expected: []ArgPart{
				{Kind: ArgText, Text: "pre"},
				{Kind: ArgVar, Text: "x"},
				{Kind: ArgText, Text: "-", Quoted: true},
				{Kind: ArgVar, Text: "y"},
			},
		},
		{
			name:  "home",
			input: "{ ~/bin }",
			expected: []ArgPart{
				{Kind: ArgHome, Text: "~"},
				{Kind: ArgText, Text: "/bin"},
			},
		},
		{
			name:  "tilde inside a word is text",
			input: "{ a~b }",
			expected: []ArgPart{
				{Kind: ArgText, Text: "a~b"},
			},
		},
		{
			name:  "escapes are quoted",
			input: `{ a\ b\* }`,
			expected: []ArgPart{
				{Kind: ArgText, Text: "a"},
				{Kind: ArgText, Text: " ", Quoted: true},
				{Kind: ArgText, Text: "b"},
				{Kind: ArgText, Text: "*", Quoted: true},
			},
		},
		{
			name:  "empty double quotes",
			input: `{ "" }`,
			expected: []ArgPart{
				{Kind: ArgText, Text: "", Quoted: true},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := Tokenize(tt.input, "test.hsh")
			require.NoError(t, err)
			require.Equal(t, ARGUMENT, tokens[1].Kind)

			parts := tokens[1].Parts
			for i := range parts {
				parts[i].Pos = Pos{}
			}
			assert.Equal(t, tt.expected, parts)
		})
	}
}

func TestLexerErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		message string
		line    int
		column  int
	}{
		{"unterminated string", `let s = "abc`, "unterminated string literal", 1, 9},
		{"invalid escape", `"a\qb"`, `invalid escape sequence '\q'`, 1, 3},
		{"empty char", `''`, "invalid char literal", 1, 1},
		{"unexpected character", "let x = 1 ~ 2", "unexpected character '~'", 1, 11},
		{"unterminated block", "{ echo hi", "unterminated command block", 1, 10},
		{"unterminated single quote", "{ echo 'hi }", "unterminated single-quoted string", 1, 8},
		{"bad variable", "{ echo $1 }", "invalid variable reference", 1, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Tokenize(tt.input, "err.hsh")
			require.Error(t, err)

			var d *Diagnostic
			require.ErrorAs(t, err, &d)
			assert.Equal(t, LexError, d.Kind)
			assert.Equal(t, tt.message, d.Msg)
			assert.Equal(t, tt.line, d.Pos.Line)
			assert.Equal(t, tt.column, d.Pos.Column)
		})
	}
}

func TestTokenString(t *testing.T) {
	assert.Equal(t, "'end of file'", Token{Kind: EOF}.String())
	assert.Equal(t, `identifier "x"`, Token{Kind: IDENT, Value: "x"}.String())
	assert.Equal(t, "'@['", Token{Kind: DICT_OPEN}.String())
}
