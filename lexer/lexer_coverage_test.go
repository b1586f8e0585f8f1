package lexer

import (
	"testing"

	"github.com/ha1tch/partiqlparser/token"
)

// TestTokenizeFunction tests the Tokenize convenience function.
func TestTokenizeFunction(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		minCount int
	}{
		{"simple SELECT", "SELECT 1", 3},
		{"empty input", "", 1},
		{"whitespace only", "   \t\n  ", 1},
		{"SELECT with columns", "SELECT a, b FROM t", 7},
		{"full statement", "SELECT * FROM t WHERE x = 1", 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := Tokenize(tt.input)
			if len(tokens) < tt.minCount {
				t.Errorf("expected at least %d tokens, got %d", tt.minCount, len(tokens))
			}
			if tokens[len(tokens)-1].Kind != token.EOF {
				t.Errorf("last token should be EOF")
			}
		})
	}
}

// TestFloatEdgeCases tests floating point number parsing edge cases.
func TestFloatEdgeCases(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"dot followed by non-digit", ".abc"},
		{"dot at end", "a."},
		{"multiple dots", "a.b.c"},
		{"exponent without sign", "1e5"},
		{"exponent with plus", "1e+5"},
		{"exponent with minus", "1e-5"},
		{"float with exponent", "3.14e2"},
		{"dot float", ".5"},
		{"dot float with exponent", ".5e2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := Tokenize(tt.input)
			if len(tokens) < 1 {
				t.Errorf("expected at least 1 token")
			}
		})
	}
}

// TestDotFollowedByNonDigitStaysPath checks that "a.b" lexes as an
// identifier, a DOT and an identifier, not a malformed number.
func TestDotFollowedByNonDigitStaysPath(t *testing.T) {
	toks := Tokenize("a.b")
	want := []token.Kind{token.IDENTIFIER, token.DOT, token.IDENTIFIER, token.EOF}
	if len(toks) != len(want) {
		t.Fatalf("expected %d tokens, got %d: %v", len(want), len(toks), toks)
	}
	for i := range want {
		if toks[i].Kind != want[i] {
			t.Errorf("token %d: expected %v, got %v", i, want[i], toks[i].Kind)
		}
	}
}

// TestCompoundKeywordEdgeCases exercises the save/restore backtracking
// path when a lookahead word fails to match at each stage of a
// multi-word fusion.
func TestCompoundKeywordEdgeCases(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"INSERT not followed by INTO", "INSERT something"},
		{"ON not followed by CONFLICT", "ON something"},
		{"DO not followed by NOTHING", "DO something"},
		{"MODIFIED not followed by OLD or NEW", "MODIFIED something"},
		{"IS not followed by NOT", "IS something"},
		{"UNION not followed by ALL", "UNION something"},
		{"LEFT not followed by JOIN family", "LEFT something"},
		{"LEFT OUTER not followed by JOIN", "LEFT OUTER something"},
		{"RIGHT not followed by JOIN family", "RIGHT something"},
		{"OUTER not followed by JOIN family", "OUTER something"},
		{"NOT MATERIALIZED requires both words", "NOT something"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := Tokenize(tt.input)
			if len(tokens) < 2 {
				t.Errorf("expected at least 2 tokens")
			}
			last := tokens[len(tokens)-2]
			if last.Kind != token.IDENTIFIER || last.Text != "something" {
				t.Errorf("expected trailing word 'something' preserved as an identifier, got %+v", last)
			}
		})
	}
}

// TestNestedStructuralPunctuation covers the bag/tuple/list delimiters
// used by constructor expressions.
func TestNestedStructuralPunctuation(t *testing.T) {
	toks := Tokenize("<<{'a': 1}>>")
	want := []token.Kind{
		token.LEFT_DOUBLE_ANGLE_BRACKET,
		token.LEFT_CURLY,
		token.LITERAL,
		token.COLON,
		token.LITERAL,
		token.RIGHT_CURLY,
		token.RIGHT_DOUBLE_ANGLE_BRACKET,
		token.EOF,
	}
	if len(toks) != len(want) {
		t.Fatalf("expected %d tokens, got %d: %v", len(want), len(toks), toks)
	}
	for i := range want {
		if toks[i].Kind != want[i] {
			t.Errorf("token %d: expected %v, got %v", i, want[i], toks[i].Kind)
		}
	}
}

// TestEmptyStringLiteral covers a zero-length quoted string.
func TestEmptyStringLiteral(t *testing.T) {
	l := New("''")
	tok := l.NextToken()
	if tok.Kind != token.LITERAL || tok.Value.String() != "" {
		t.Fatalf("expected empty text literal, got %+v", tok)
	}
}

// TestQuotedIdentifierWithEscapedQuote covers "" escaping inside a
// delimited identifier, mirroring '' escaping inside string literals.
func TestQuotedIdentifierWithEscapedQuote(t *testing.T) {
	l := New(`"a""b"`)
	tok := l.NextToken()
	if tok.Kind != token.QUOTED_IDENTIFIER {
		t.Fatalf("expected a quoted identifier, got %+v", tok)
	}
	if tok.Text != `a"b` {
		t.Errorf("expected unescaped double quote, got %q", tok.Text)
	}
}

// TestWhitespaceOnlyInput ensures an all-whitespace source yields only EOF.
func TestWhitespaceOnlyInput(t *testing.T) {
	toks := Tokenize("   \t\n  ")
	if len(toks) != 1 || toks[0].Kind != token.EOF {
		t.Fatalf("expected a single EOF token, got %v", toks)
	}
}

// TestConsecutiveCompoundKeywords covers back-to-back fused keywords
// with no intervening identifiers, checking the lexer's cursor lands
// correctly after each fusion.
func TestConsecutiveCompoundKeywords(t *testing.T) {
	toks := Tokenize("LEFT OUTER JOIN RIGHT OUTER JOIN")
	want := []string{"left_outer_join", "right_outer_join"}
	var got []string
	for _, tok := range toks {
		if tok.Kind == token.KEYWORD {
			got = append(got, tok.KeywordText)
		}
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d fused keywords, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("keyword %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

// TestIllegalCharacters tests handling of illegal characters.
func TestIllegalCharacters(t *testing.T) {
	l := New("\\")
	tok := l.NextToken()
	if tok.Kind != token.ILLEGAL {
		t.Errorf("expected ILLEGAL, got %v", tok.Kind)
	}
}

// TestIllegalCharacterPreservesSurroundingTokens ensures one bad byte
// doesn't derail the rest of the stream.
func TestIllegalCharacterPreservesSurroundingTokens(t *testing.T) {
	toks := Tokenize("a # b")
	want := []token.Kind{token.IDENTIFIER, token.ILLEGAL, token.IDENTIFIER, token.EOF}
	if len(toks) != len(want) {
		t.Fatalf("expected %d tokens, got %d: %v", len(want), len(toks), toks)
	}
	for i := range want {
		if toks[i].Kind != want[i] {
			t.Errorf("token %d: expected %v, got %v", i, want[i], toks[i].Kind)
		}
	}
}
