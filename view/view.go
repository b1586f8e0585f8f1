// Package view implements the token view described in the parser spec
// (component 4.1): a lightweight, purely functional window over the
// lexer's token stream supporting head/tail operations, typed peeks,
// keyword lookups and operator precedence queries.
//
// A View never mutates; Advance returns a new View over the remaining
// tokens, mirroring the teacher parser's curToken/peekToken machinery but
// expressed as an immutable value rather than parser-internal state, so
// every sub-parser can return "the new tree plus what's left" without
// aliasing anyone else's cursor.
package view

import "github.com/ha1tch/partiqlparser/token"

// TopLevelPrecedence is an exported marker value; the parser's entry
// points take their floors from Lowest() and QueryLowest() instead.
const TopLevelPrecedence = -1

// Precedence levels, low to high. Exact values only need to be
// self-consistent; they are never observed outside this package.
const (
	precLowest = iota
	precOr
	precAnd
	precNot
	precIsLikeBetweenIn
	precComparison
	precConcat
	precAdditive
	precMultiplicative
	precUnary
	precPostfix

	// query-level-only, binds looser than precLowest
	precUnion = precLowest - 1

	// sentinel floor for the query-level Pratt loop, strictly below
	// precUnion so the loop's own "no operator matched" return value
	// never collides with a real set-operator precedence.
	precQueryFloor = precUnion - 1
)

var binaryKeywordPrecedence = map[string]int{
	"or":          precOr,
	"and":         precAnd,
	"is":          precIsLikeBetweenIn,
	"is_not":      precIsLikeBetweenIn,
	"in":          precIsLikeBetweenIn,
	"not_in":      precIsLikeBetweenIn,
	"like":        precIsLikeBetweenIn,
	"not_like":    precIsLikeBetweenIn,
	"between":     precIsLikeBetweenIn,
	"not_between": precIsLikeBetweenIn,
}

var binarySymbolPrecedence = map[string]int{
	"=":  precComparison,
	"<>": precComparison,
	"!=": precComparison,
	"<":  precComparison,
	"<=": precComparison,
	">":  precComparison,
	">=": precComparison,
	"||": precConcat,
	"+":  precAdditive,
	"-":  precAdditive,
	"*":  precMultiplicative,
	"/":  precMultiplicative,
	"%":  precMultiplicative,
}

var queryKeywordPrecedence = map[string]int{
	"union":     precUnion,
	"union_all": precUnion,
	"intersect": precUnion,
	"except":    precUnion,
}

var unaryKeywords = map[string]bool{"not": true}
var unarySymbols = map[string]bool{"+": true, "-": true}

// View is an immutable cursor over a token slice.
type View struct {
	tokens []token.Token
	pos    int
}

// New builds a View over a fully materialized token slice. The slice must
// be terminated by an EOF token.
func New(tokens []token.Token) View {
	return View{tokens: tokens, pos: 0}
}

// Head returns the token at the cursor.
func (v View) Head() token.Token {
	if v.pos >= len(v.tokens) {
		return token.Token{Kind: token.EOF}
	}
	return v.tokens[v.pos]
}

// HeadKeyword returns the normalized keyword text of Head, or "" if Head
// is not a keyword token.
func (v View) HeadKeyword() string {
	h := v.Head()
	if h.Kind == token.KEYWORD {
		return h.KeywordText
	}
	return ""
}

// Advance returns a new View with the cursor moved one token forward.
func (v View) Advance() View {
	if v.pos >= len(v.tokens) {
		return v
	}
	return View{tokens: v.tokens, pos: v.pos + 1}
}

// Peek returns the token n positions ahead of Head (Peek(0) == Head).
func (v View) Peek(n int) token.Token {
	i := v.pos + n
	if i < 0 || i >= len(v.tokens) {
		return token.Token{Kind: token.EOF}
	}
	return v.tokens[i]
}

// Len reports how many tokens (including the trailing EOF) remain.
func (v View) Len() int {
	return len(v.tokens) - v.pos
}

// OnlyEndOfStatement reports whether only EOF/semicolon tokens remain.
func (v View) OnlyEndOfStatement() bool {
	for i := v.pos; i < len(v.tokens); i++ {
		k := v.tokens[i].Kind
		if k != token.EOF && k != token.SEMICOLON {
			return false
		}
	}
	return true
}

// RequireKind advances past Head if it has the given kind, else reports
// ok=false without consuming anything.
func (v View) RequireKind(k token.Kind) (View, bool) {
	if v.Head().Kind == k {
		return v.Advance(), true
	}
	return v, false
}

// RequireKeyword advances past Head if it is the named keyword.
func (v View) RequireKeyword(kw string) (View, bool) {
	if v.Head().HasKeyword(kw) {
		return v.Advance(), true
	}
	return v, false
}

// IsUnaryOperator reports whether Head can start a unary/prefix term.
func (v View) IsUnaryOperator() bool {
	h := v.Head()
	if h.Kind == token.OPERATOR && unarySymbols[h.Text] {
		return true
	}
	if h.Kind == token.KEYWORD && unaryKeywords[h.KeywordText] {
		return true
	}
	return false
}

// IsBinaryOperator reports whether Head can continue an expression as a
// binary (or ternary-introducing) infix operator. STAR is included
// alongside OPERATOR: '*' is lexed as a dedicated STAR token (so the
// select-list/bracket/COUNT wildcard checks can match it directly), but
// once those wildcard positions have already been ruled out by the
// caller, the same token is the multiplication operator.
func (v View) IsBinaryOperator() bool {
	h := v.Head()
	if h.Kind == token.OPERATOR || h.Kind == token.STAR {
		_, ok := binarySymbolPrecedence[h.Text]
		return ok
	}
	if h.Kind == token.KEYWORD {
		if _, ok := binaryKeywordPrecedence[h.KeywordText]; ok {
			return true
		}
	}
	return false
}

// IsQueryOperator reports whether Head is a query-level-only infix
// operator (set operators).
func (v View) IsQueryOperator() bool {
	h := v.Head()
	if h.Kind != token.KEYWORD {
		return false
	}
	_, ok := queryKeywordPrecedence[h.KeywordText]
	return ok
}

// PrefixPrecedence returns the binding power used when parsing the
// operand of a unary/prefix operator at Head.
func (v View) PrefixPrecedence() int {
	h := v.Head()
	if h.Kind == token.KEYWORD && h.KeywordText == "not" {
		return precNot
	}
	return precUnary
}

// InfixPrecedence returns the binding power of Head as an infix operator,
// or precLowest if it is not one.
func (v View) InfixPrecedence() int {
	h := v.Head()
	if h.Kind == token.OPERATOR || h.Kind == token.STAR {
		if p, ok := binarySymbolPrecedence[h.Text]; ok {
			return p
		}
	}
	if h.Kind == token.KEYWORD {
		if p, ok := binaryKeywordPrecedence[h.KeywordText]; ok {
			return p
		}
	}
	return precLowest
}

// QueryInfixPrecedence returns the binding power of Head when parsing at
// query level (adds the set operators on top of InfixPrecedence).
func (v View) QueryInfixPrecedence() int {
	if p := v.InfixPrecedence(); p != precLowest {
		return p
	}
	if p, ok := queryKeywordPrecedence[v.HeadKeyword()]; ok {
		return p
	}
	return precLowest
}

// SetOpPrecedence returns the binding power of Head as a query-level set
// operator only (union/union_all/intersect/except), ignoring every
// scalar-expression operator. Used by the query-level Pratt loop, whose
// left/right operands are whole queries rather than scalar expressions.
// Returns precQueryFloor, not precLowest, when Head is not a set
// operator: precLowest is itself a valid minPrec a caller might pass
// (e.g. a nested set operator's recursive call), and a "no operator
// here" result must compare as lower than any floor the loop could be
// called with, not just the default one.
func (v View) SetOpPrecedence() int {
	if p, ok := queryKeywordPrecedence[v.HeadKeyword()]; ok {
		return p
	}
	return precQueryFloor
}

// Lowest is the minimum precedence accepted by the top-level expression
// parser entry points.
func Lowest() int { return precLowest }

// QueryLowest is the minimum precedence accepted by the query-level
// Pratt loop's entry points (parseQueryExpression). It must sit below
// precUnion, the binding power of the set operators themselves —
// otherwise the loop's initial "prec <= minPrec" check would reject a
// leading UNION/UNION ALL/INTERSECT/EXCEPT token before ever consuming
// it.
func QueryLowest() int { return precQueryFloor }
