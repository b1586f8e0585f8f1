package parser

import (
	"github.com/ha1tch/partiqlparser/perr"
	"github.com/ha1tch/partiqlparser/ptree"
	"github.com/ha1tch/partiqlparser/token"
	"github.com/ha1tch/partiqlparser/view"
)

// parseExpression is the scalar-expression Pratt loop (§4.2): parse a
// unary/primary term, then repeatedly fold in infix operators whose
// precedence exceeds minPrec. Ternary forms (BETWEEN, LIKE ESCAPE) and the
// type-valued IS/IS NOT right-hand side are handled as special cases of
// the same loop rather than separate productions.
func parseExpression(s *state, v view.View, minPrec int) (*ptree.Node, view.View, error) {
	if err := s.checkCancelled(v); err != nil {
		return nil, v, err
	}
	left, rest, err := parseUnary(s, v)
	if err != nil {
		return nil, v, err
	}
	return parseInfixLoop(s, left, rest, minPrec)
}

func parseInfixLoop(s *state, left *ptree.Node, v view.View, minPrec int) (*ptree.Node, view.View, error) {
	for {
		prec := v.InfixPrecedence()
		if prec <= minPrec {
			return left, v, nil
		}
		op := v.Head()
		rest := v.Advance()

		switch op.KeywordText {
		case "is", "is_not":
			typ, rest2, err := parseType(s, rest)
			if err != nil {
				return nil, v, err
			}
			left = ptree.New(ptree.BINARY, &op, left, typ)
			v = rest2
			continue

		case "in", "not_in":
			if rest.Head().Kind == token.LEFT_PAREN && !isSelectOrValuesKeyword(rest.Peek(1)) {
				list, rest2, err := parseParenthesizedList(s, rest)
				if err != nil {
					return nil, v, err
				}
				left = ptree.New(ptree.BINARY, &op, left, list)
				v = rest2
				continue
			}
			rhs, rest2, err := parseExpression(s, rest, prec)
			if err != nil {
				return nil, v, err
			}
			left = ptree.New(ptree.BINARY, &op, left, rhs)
			v = rest2
			continue

		case "between", "not_between":
			rhs1, rest2, err := parseExpression(s, rest, prec)
			if err != nil {
				return nil, v, err
			}
			rest3, ok := rest2.RequireKeyword("and")
			if !ok {
				return nil, v, perr.Expected(perr.UnexpectedToken, "AND", rest2.Head())
			}
			rhs2, rest4, err := parseExpression(s, rest3, prec)
			if err != nil {
				return nil, v, err
			}
			left = ptree.New(ptree.TERNARY, &op, left, rhs1, rhs2)
			v = rest4
			continue

		case "like", "not_like":
			rhs, rest2, err := parseExpression(s, rest, prec)
			if err != nil {
				return nil, v, err
			}
			if rest2.Head().HasKeyword("escape") {
				rest3 := rest2.Advance()
				escape, rest4, err := parseExpression(s, rest3, prec)
				if err != nil {
					return nil, v, err
				}
				left = ptree.New(ptree.TERNARY, &op, left, rhs, escape)
				v = rest4
				continue
			}
			left = ptree.New(ptree.BINARY, &op, left, rhs)
			v = rest2
			continue

		default:
			rhs, rest2, err := parseExpression(s, rest, prec)
			if err != nil {
				return nil, v, err
			}
			left = ptree.New(ptree.BINARY, &op, left, rhs)
			v = rest2
		}
	}
}

func isSelectOrValuesKeyword(t token.Token) bool {
	return t.HasKeyword("select") || t.HasKeyword("values")
}

// parseParenthesizedList parses `( e1, e2, ... )` into a LIST node, used
// both for list literals and the parenthesized form of `IN (...)`.
func parseParenthesizedList(s *state, v view.View) (*ptree.Node, view.View, error) {
	open := v.Head()
	rest, ok := v.RequireKind(token.LEFT_PAREN)
	if !ok {
		return nil, v, perr.Expected(perr.ExpectedLeftParen, "(", v.Head())
	}
	var elems []*ptree.Node
	if rest.Head().Kind != token.RIGHT_PAREN {
		for {
			e, r2, err := parseExpression(s, rest, view.Lowest())
			if err != nil {
				return nil, v, err
			}
			elems = append(elems, e)
			rest = r2
			if rest.Head().Kind == token.COMMA {
				rest = rest.Advance()
				continue
			}
			break
		}
	}
	rest, ok = rest.RequireKind(token.RIGHT_PAREN)
	if !ok {
		return nil, v, perr.Expected(perr.ExpectedRightParen, ")", rest.Head())
	}
	return ptree.New(ptree.LIST, &open, elems...), rest, nil
}

// parseUnary handles the NOT/+/- prefix forms described in §4.2,
// including constant folding of a leading sign onto a numeric literal
// atom, then falls through to the path/term parser (§4.3/§4.4).
func parseUnary(s *state, v view.View) (*ptree.Node, view.View, error) {
	if v.IsUnaryOperator() {
		op := v.Head()
		prec := v.PrefixPrecedence()
		rest := v.Advance()

		if op.Kind == token.KEYWORD && op.KeywordText == "not" {
			operand, rest2, err := parseExpression(s, rest, prec)
			if err != nil {
				return nil, v, err
			}
			return ptree.New(ptree.UNARY, &op, operand), rest2, nil
		}

		operand, rest2, err := parseUnaryOperand(s, rest, prec)
		if err != nil {
			return nil, v, err
		}
		if op.Text == "-" {
			if folded, ok := foldNegate(operand); ok {
				return folded, rest2, nil
			}
		}
		if op.Text == "+" {
			if isNumericAtom(operand) {
				return operand, rest2, nil
			}
		}
		return ptree.New(ptree.UNARY, &op, operand), rest2, nil
	}
	return parseTerm(s, v, fullPath)
}

// parseUnaryOperand parses the operand of a prefix +/- at the unary
// precedence level, allowing further unary nesting (e.g. `- -x`).
func parseUnaryOperand(s *state, v view.View, prec int) (*ptree.Node, view.View, error) {
	left, rest, err := parseUnary(s, v)
	if err != nil {
		return nil, v, err
	}
	return parseInfixLoop(s, left, rest, prec)
}

func isNumericAtom(n *ptree.Node) bool {
	if n.Tag != ptree.ATOM || n.Token == nil || n.Token.Value == nil {
		return false
	}
	return n.Token.Value.IsNumeric()
}

// foldNegate constant-folds a leading `-` onto a numeric literal atom,
// producing a fresh ATOM node carrying the negated value rather than
// wrapping it in a UNARY node.
func foldNegate(n *ptree.Node) (*ptree.Node, bool) {
	if !isNumericAtom(n) {
		return nil, false
	}
	tok := *n.Token
	switch val := tok.Value.(type) {
	case token.IntValue:
		tok.Value = token.IntValue{N: -val.N}
	case token.FloatValue:
		tok.Value = token.FloatValue{F: -val.F}
	default:
		return nil, false
	}
	return ptree.Leaf(ptree.ATOM, &tok), true
}

// parseQueryExpression is the query-level Pratt loop (§4.2): its terms are
// whole queries (SELECT/PIVOT/WITH/parenthesized query) and its only
// infix operators are the set operators (UNION[ALL]/INTERSECT/EXCEPT).
func parseQueryExpression(s *state, v view.View, minPrec int) (*ptree.Node, view.View, error) {
	if err := s.checkCancelled(v); err != nil {
		return nil, v, err
	}
	left, rest, err := parseQueryPrimary(s, v)
	if err != nil {
		return nil, v, err
	}
	for {
		prec := rest.SetOpPrecedence()
		if prec <= minPrec {
			return left, rest, nil
		}
		op := rest.Head()
		after := rest.Advance()
		right, rest2, err := parseQueryExpression(s, after, prec)
		if err != nil {
			return nil, v, err
		}
		left = ptree.New(ptree.BINARY, &op, left, right)
		rest = rest2
	}
}

// parseQueryPrimary parses one query-level term: SELECT, PIVOT, WITH, or
// a parenthesized query expression.
func parseQueryPrimary(s *state, v view.View) (*ptree.Node, view.View, error) {
	switch {
	case v.Head().HasKeyword("select"):
		return parseSelect(s, v)
	case v.Head().HasKeyword("pivot"):
		return parsePivot(s, v)
	case v.Head().HasKeyword("with"):
		return parseWith(s, v)
	case v.Head().Kind == token.LEFT_PAREN:
		peeked := v.Peek(1)
		if peeked.HasKeyword("select") || peeked.HasKeyword("pivot") || peeked.HasKeyword("with") {
			rest := v.Advance()
			inner, rest2, err := parseQueryExpression(s, rest, view.QueryLowest())
			if err != nil {
				return nil, v, err
			}
			rest3, ok := rest2.RequireKind(token.RIGHT_PAREN)
			if !ok {
				return nil, v, perr.Expected(perr.ExpectedRightParen, ")", rest2.Head())
			}
			return inner, rest3, nil
		}
	}
	return nil, v, perr.Expected(perr.ExpectedExpression, "SELECT, PIVOT or WITH", v.Head())
}
