package parser

import (
	"github.com/ha1tch/partiqlparser/perr"
	"github.com/ha1tch/partiqlparser/ptree"
	"github.com/ha1tch/partiqlparser/token"
	"github.com/ha1tch/partiqlparser/view"
)

var standardAggregates = map[string]bool{
	"avg": true, "min": true, "max": true, "sum": true,
	"any": true, "some": true, "every": true, "count": true,
}

// atomKinds is the set of token kinds that fold directly into an ATOM
// parse node with no further structure.
var atomKinds = map[token.Kind]bool{
	token.LITERAL:            true,
	token.ION_LITERAL:        true,
	token.NULL:               true,
	token.MISSING:            true,
	token.TRIM_SPECIFICATION: true,
	token.DATE_PART:          true,
}

// pathMode selects which of §4.3's three path grammars parsePathSuffix
// enforces: fullPath allows wildcards and dot-unpivot anywhere a path
// term can appear; queryPath (FROM sources) forbids both and requires
// an identifier at the root; simplePath (DML lvalues) forbids both and
// additionally requires any bracket index to be a literal atom.
type pathMode int

const (
	fullPath pathMode = iota
	queryPath
	simplePath
)

// isLiteralAtomNode reports whether n is a literal atom (one of
// atomKinds), as opposed to an identifier or a computed expression that
// also happens to fold to an ATOM-tagged parse node.
func isLiteralAtomNode(n *ptree.Node) bool {
	return n.Tag == ptree.ATOM && n.Token != nil && atomKinds[n.Token.Kind]
}

// parseTerm parses one primary term and any trailing path navigation
// (§4.3/§4.4), dispatching on the head token's kind and, for keywords,
// its normalized text. Most callers want fullPath; DML lvalue and
// FROM-source call sites pass simplePath/queryPath to enforce §4.3's
// narrower grammars.
func parseTerm(s *state, v view.View, mode pathMode) (*ptree.Node, view.View, error) {
	if err := s.checkCancelled(v); err != nil {
		return nil, v, err
	}
	base, rest, err := parseBaseTerm(s, v)
	if err != nil {
		return nil, v, err
	}
	if mode == queryPath && (base.Tag == ptree.ATOM || base.Tag == ptree.CASE_SENSITIVE_ATOM) {
		// Only a bare atom term is a candidate path root here; calls,
		// subqueries, collection constructors and similar non-path FROM
		// sources reach parseTerm with a different base.Tag and are left
		// alone. Among atoms, only an identifier (quoted or not) may
		// root a QUERY_PATH: a literal can't be navigated into.
		isIdentRoot := base.Tag == ptree.CASE_SENSITIVE_ATOM ||
			(base.Token != nil && base.Token.Kind == token.IDENTIFIER)
		if !isIdentRoot {
			return nil, v, perr.New(perr.InvalidPathComponent, "QUERY_PATH requires an identifier at the root", base.Token, nil)
		}
	}
	return parsePathSuffix(s, base, rest, mode)
}

func parseBaseTerm(s *state, v view.View) (*ptree.Node, view.View, error) {
	h := v.Head()

	switch {
	case h.Kind == token.OPERATOR && h.Text == "@":
		return parseAtPrefix(s, v)

	case h.Kind == token.LEFT_PAREN:
		return parseParenTerm(s, v)

	case h.Kind == token.LEFT_BRACKET:
		return parseListLiteral(s, v)

	case h.Kind == token.LEFT_DOUBLE_ANGLE_BRACKET:
		return parseBagLiteral(s, v)

	case h.Kind == token.LEFT_CURLY:
		return parseStructLiteral(s, v)

	case h.Kind == token.QUESTION_MARK:
		return ptree.Leaf(ptree.PARAMETER, &h), v.Advance(), nil

	case h.Kind == token.KEYWORD && h.KeywordText == "case":
		return parseCase(s, v)

	case h.Kind == token.KEYWORD && h.KeywordText == "cast":
		return parseCast(s, v)

	case h.Kind == token.KEYWORD && h.KeywordText == "date":
		return parseDateLiteral(s, v)

	case h.Kind == token.KEYWORD && h.KeywordText == "time":
		return parseTimeLiteral(s, v)

	case (h.Kind == token.IDENTIFIER || h.Kind == token.QUOTED_IDENTIFIER) && v.Peek(1).Kind == token.LEFT_PAREN:
		return parseCallOrAggregate(s, v)

	case h.Kind == token.KEYWORD && v.Peek(1).Kind == token.LEFT_PAREN:
		return parseCallOrAggregate(s, v)

	case h.Kind == token.IDENTIFIER:
		return ptree.Leaf(ptree.ATOM, &h), v.Advance(), nil

	case h.Kind == token.QUOTED_IDENTIFIER:
		return ptree.Leaf(ptree.CASE_SENSITIVE_ATOM, &h), v.Advance(), nil

	case atomKinds[h.Kind]:
		return ptree.Leaf(ptree.ATOM, &h), v.Advance(), nil
	}
	return nil, v, perr.Expected(perr.ExpectedExpression, "an expression", h)
}

// parseAtPrefix parses `@name`, the lexically-scoped variable reference
// prefix form (§4.3). The name must be a plain or quoted identifier.
func parseAtPrefix(s *state, v view.View) (*ptree.Node, view.View, error) {
	at := v.Head()
	rest := v.Advance()
	h := rest.Head()
	if h.Kind != token.IDENTIFIER && h.Kind != token.QUOTED_IDENTIFIER {
		return nil, v, perr.New(perr.MissingIdentifierAfterAt, "expected an identifier after '@'", &h, nil)
	}
	tag := ptree.ATOM
	if h.Kind == token.QUOTED_IDENTIFIER {
		tag = ptree.CASE_SENSITIVE_ATOM
	}
	ident := ptree.Leaf(tag, &h)
	return ptree.New(ptree.UNARY, &at, ident), rest.Advance(), nil
}

// parsePathSuffix consumes zero or more trailing path components
// (`.field`, `."quoted"`, `.*`, `[expr]`, `[*]`) and wraps root in a PATH
// node when at least one was found. mode restricts which component
// shapes are legal, per §4.3: fullPath allows all of them; queryPath
// and simplePath both reject `.*` and `[*]`; simplePath additionally
// requires a bracket index to be a literal atom, not a computed
// expression.
func parsePathSuffix(s *state, root *ptree.Node, v view.View, mode pathMode) (*ptree.Node, view.View, error) {
	var comps []*ptree.Node
	for {
		switch v.Head().Kind {
		case token.DOT:
			rest := v.Advance()
			h := rest.Head()
			switch h.Kind {
			case token.STAR:
				if mode != fullPath {
					return nil, v, perr.New(perr.InvalidPathComponent, "'.*' is not allowed in this position", &h, nil)
				}
				comps = append(comps, ptree.Leaf(ptree.PATH_UNPIVOT, &h))
				v = rest.Advance()
			case token.IDENTIFIER, token.DATE_PART, token.TRIM_SPECIFICATION:
				comps = append(comps, ptree.Leaf(ptree.PATH_DOT, &h))
				v = rest.Advance()
			case token.QUOTED_IDENTIFIER:
				comps = append(comps, ptree.Leaf(ptree.PATH_DOT, &h).WithMeta("case_sensitive", true))
				v = rest.Advance()
			default:
				return nil, v, perr.New(perr.InvalidPathComponent, "expected a field name or '*' after '.'", &h, nil)
			}
		case token.LEFT_BRACKET:
			rest := v.Advance()
			if rest.Head().Kind == token.STAR {
				starTok := rest.Head()
				if mode != fullPath {
					return nil, v, perr.New(perr.InvalidPathComponent, "'[*]' is not allowed in this position", &starTok, nil)
				}
				rest2 := rest.Advance()
				rest3, ok := rest2.RequireKind(token.RIGHT_BRACKET)
				if !ok {
					return nil, v, perr.Expected(perr.InvalidPathComponent, "]", rest2.Head())
				}
				comps = append(comps, ptree.Leaf(ptree.PATH_WILDCARD, &starTok))
				v = rest3
				continue
			}
			idx, rest2, err := parseExpression(s, rest, view.Lowest())
			if err != nil {
				return nil, v, err
			}
			if mode == simplePath && !isLiteralAtomNode(idx) {
				return nil, v, perr.New(perr.InvalidPathComponent, "SIMPLE_PATH bracket index must be a literal atom", idx.Token, nil)
			}
			rest3, ok := rest2.RequireKind(token.RIGHT_BRACKET)
			if !ok {
				return nil, v, perr.Expected(perr.ExpectedRightParen, "]", rest2.Head())
			}
			brTok := v.Head()
			comps = append(comps, ptree.New(ptree.PATH_SQB, &brTok, idx))
			v = rest3
		default:
			if len(comps) == 0 {
				return root, v, nil
			}
			for i, c := range comps {
				if c.Tag == ptree.PATH_UNPIVOT && i != len(comps)-1 {
					return nil, v, perr.New(perr.InvalidPathComponent, "'.*' must be the final path component", c.Token, nil)
				}
			}
			children := append([]*ptree.Node{root}, comps...)
			return ptree.New(ptree.PATH, root.Token, children...), v, nil
		}
	}
}

// parseParenTerm handles `(expr)`, the row-constructor form `(e1, e2, ...)`
// and a parenthesized subquery used in scalar position.
func parseParenTerm(s *state, v view.View) (*ptree.Node, view.View, error) {
	open := v.Head()
	rest := v.Advance()
	peek := rest.Head()
	if peek.HasKeyword("select") || peek.HasKeyword("pivot") || peek.HasKeyword("with") {
		query, rest2, err := parseQueryExpression(s, rest, view.QueryLowest())
		if err != nil {
			return nil, v, err
		}
		rest3, ok := rest2.RequireKind(token.RIGHT_PAREN)
		if !ok {
			return nil, v, perr.Expected(perr.ExpectedRightParen, ")", rest2.Head())
		}
		return query, rest3, nil
	}

	first, rest2, err := parseExpression(s, rest, view.Lowest())
	if err != nil {
		return nil, v, err
	}
	if rest2.Head().Kind == token.COMMA {
		elems := []*ptree.Node{first}
		for rest2.Head().Kind == token.COMMA {
			rest2 = rest2.Advance()
			e, rest3, err := parseExpression(s, rest2, view.Lowest())
			if err != nil {
				return nil, v, err
			}
			elems = append(elems, e)
			rest2 = rest3
		}
		rest3, ok := rest2.RequireKind(token.RIGHT_PAREN)
		if !ok {
			return nil, v, perr.Expected(perr.ExpectedRightParen, ")", rest2.Head())
		}
		return ptree.New(ptree.LIST, &open, elems...).WithMeta("row", true), rest3, nil
	}
	rest3, ok := rest2.RequireKind(token.RIGHT_PAREN)
	if !ok {
		return nil, v, perr.Expected(perr.ExpectedRightParen, ")", rest2.Head())
	}
	return first, rest3, nil
}

func parseCommaElements(s *state, v view.View, closeKind token.Kind) ([]*ptree.Node, view.View, error) {
	var elems []*ptree.Node
	if v.Head().Kind == closeKind {
		return elems, v, nil
	}
	for {
		e, rest, err := parseExpression(s, v, view.Lowest())
		if err != nil {
			return nil, v, err
		}
		elems = append(elems, e)
		v = rest
		if v.Head().Kind == token.COMMA {
			v = v.Advance()
			continue
		}
		return elems, v, nil
	}
}

func parseListLiteral(s *state, v view.View) (*ptree.Node, view.View, error) {
	open := v.Head()
	rest := v.Advance()
	elems, rest2, err := parseCommaElements(s, rest, token.RIGHT_BRACKET)
	if err != nil {
		return nil, v, err
	}
	rest3, ok := rest2.RequireKind(token.RIGHT_BRACKET)
	if !ok {
		return nil, v, perr.Expected(perr.ExpectedRightParen, "]", rest2.Head())
	}
	return ptree.New(ptree.LIST, &open, elems...), rest3, nil
}

func parseBagLiteral(s *state, v view.View) (*ptree.Node, view.View, error) {
	open := v.Head()
	rest := v.Advance()
	elems, rest2, err := parseCommaElements(s, rest, token.RIGHT_DOUBLE_ANGLE_BRACKET)
	if err != nil {
		return nil, v, err
	}
	rest3, ok := rest2.RequireKind(token.RIGHT_DOUBLE_ANGLE_BRACKET)
	if !ok {
		return nil, v, perr.Expected(perr.ExpectedRightParen, ">>", rest2.Head())
	}
	return ptree.New(ptree.BAG, &open, elems...), rest3, nil
}

func parseStructLiteral(s *state, v view.View) (*ptree.Node, view.View, error) {
	open := v.Head()
	rest := v.Advance()
	var members []*ptree.Node
	for rest.Head().Kind != token.RIGHT_CURLY {
		key, rest2, err := parseExpression(s, rest, view.Lowest())
		if err != nil {
			return nil, v, err
		}
		rest3, ok := rest2.RequireKind(token.COLON)
		if !ok {
			return nil, v, perr.Expected(perr.UnexpectedToken, ":", rest2.Head())
		}
		value, rest4, err := parseExpression(s, rest3, view.Lowest())
		if err != nil {
			return nil, v, err
		}
		members = append(members, ptree.New(ptree.MEMBER, &open, key, value))
		rest = rest4
		if rest.Head().Kind == token.COMMA {
			rest = rest.Advance()
			continue
		}
		break
	}
	rest2, ok := rest.RequireKind(token.RIGHT_CURLY)
	if !ok {
		return nil, v, perr.Expected(perr.UnexpectedToken, "}", rest.Head())
	}
	return ptree.New(ptree.STRUCT, &open, members...), rest2, nil
}

// parseCase parses both the simple (`CASE operand WHEN ...`) and searched
// (`CASE WHEN ...`) forms.
func parseCase(s *state, v view.View) (*ptree.Node, view.View, error) {
	caseTok := v.Head()
	rest := v.Advance()

	var operand *ptree.Node
	if !rest.Head().HasKeyword("when") {
		o, rest2, err := parseExpression(s, rest, view.Lowest())
		if err != nil {
			return nil, v, err
		}
		operand = o
		rest = rest2
	}

	var whens []*ptree.Node
	for rest.Head().HasKeyword("when") {
		whenTok := rest.Head()
		rest = rest.Advance()
		cond, rest2, err := parseExpression(s, rest, view.Lowest())
		if err != nil {
			return nil, v, err
		}
		rest3, ok := rest2.RequireKeyword("then")
		if !ok {
			return nil, v, perr.Expected(perr.UnexpectedKeyword, "THEN", rest2.Head())
		}
		then, rest4, err := parseExpression(s, rest3, view.Lowest())
		if err != nil {
			return nil, v, err
		}
		whens = append(whens, ptree.New(ptree.WHEN, &whenTok, cond, then))
		rest = rest4
	}
	if len(whens) == 0 {
		return nil, v, perr.New(perr.ExpectedWhen, "expected at least one WHEN clause", headTokenPtr(rest), nil)
	}

	var elseNode *ptree.Node
	if rest.Head().HasKeyword("else") {
		elseTok := rest.Head()
		rest = rest.Advance()
		e, rest2, err := parseExpression(s, rest, view.Lowest())
		if err != nil {
			return nil, v, err
		}
		elseNode = ptree.New(ptree.ELSE, &elseTok, e)
		rest = rest2
	}

	rest2, ok := rest.RequireKeyword("end")
	if !ok {
		return nil, v, perr.Expected(perr.UnexpectedKeyword, "END", rest.Head())
	}

	var children []*ptree.Node
	if operand != nil {
		children = append(children, operand)
	}
	children = append(children, whens...)
	if elseNode != nil {
		children = append(children, elseNode)
	}
	return ptree.New(ptree.CASE, &caseTok, children...), rest2, nil
}

// parseCast parses `CAST(expr AS type)`.
func parseCast(s *state, v view.View) (*ptree.Node, view.View, error) {
	castTok := v.Head()
	rest := v.Advance()
	rest, ok := rest.RequireKind(token.LEFT_PAREN)
	if !ok {
		return nil, v, perr.Expected(perr.ExpectedLeftParen, "(", rest.Head())
	}
	operand, rest2, err := parseExpression(s, rest, view.Lowest())
	if err != nil {
		return nil, v, err
	}
	rest3, ok := rest2.RequireKind(token.AS)
	if !ok {
		return nil, v, perr.Expected(perr.ExpectedAs, "AS", rest2.Head())
	}
	typeNode, rest4, err := parseType(s, rest3)
	if err != nil {
		return nil, v, err
	}
	rest5, ok := rest4.RequireKind(token.RIGHT_PAREN)
	if !ok {
		return nil, v, perr.Expected(perr.ExpectedRightParen, ")", rest4.Head())
	}
	return ptree.New(ptree.CAST, &castTok, operand, typeNode), rest5, nil
}

// parseCallOrAggregate parses a general function call or one of the
// standard aggregates / bespoke builtins (§4.5).
func parseCallOrAggregate(s *state, v view.View) (*ptree.Node, view.View, error) {
	nameTok := v.Head()
	lower := lowerASCII(nameTok.Text)
	rest := v.Advance()
	rest, ok := rest.RequireKind(token.LEFT_PAREN)
	if !ok {
		return nil, v, perr.Expected(perr.ExpectedLeftParen, "(", rest.Head())
	}

	switch lower {
	case "substring":
		return parseSubstringArgs(s, nameTok, rest)
	case "trim":
		return parseTrimArgs(s, nameTok, rest)
	case "extract":
		return parseExtractArgs(s, nameTok, rest)
	}

	if standardAggregates[lower] {
		return parseAggregateArgs(s, nameTok, lower, rest)
	}

	args, rest2, err := parseCommaElements(s, rest, token.RIGHT_PAREN)
	if err != nil {
		return nil, v, err
	}
	rest3, ok := rest2.RequireKind(token.RIGHT_PAREN)
	if !ok {
		return nil, v, perr.Expected(perr.ExpectedRightParen, ")", rest2.Head())
	}
	return ptree.New(ptree.CALL, &nameTok, args...), rest3, nil
}

func parseAggregateArgs(s *state, nameTok token.Token, lower string, v view.View) (*ptree.Node, view.View, error) {
	if lower == "count" && v.Head().Kind == token.STAR {
		rest := v.Advance()
		rest2, ok := rest.RequireKind(token.RIGHT_PAREN)
		if !ok {
			return nil, v, perr.Expected(perr.ExpectedRightParen, ")", rest.Head())
		}
		return ptree.New(ptree.CALL_AGG_WILDCARD, &nameTok), rest2, nil
	}

	quantifier := ""
	rest := v
	if rest.Head().HasKeyword("distinct") {
		quantifier = "distinct"
		rest = rest.Advance()
	} else if rest.Head().HasKeyword("all") {
		quantifier = "all"
		rest = rest.Advance()
	}

	arg, rest2, err := parseExpression(s, rest, view.Lowest())
	if err != nil {
		return nil, v, err
	}
	rest3, ok := rest2.RequireKind(token.RIGHT_PAREN)
	if !ok {
		return nil, v, perr.New(perr.NonUnaryAggregateCall, "aggregate calls take exactly one argument", headTokenPtr(rest2), nil)
	}

	tag := ptree.CALL_AGG
	if quantifier == "distinct" {
		tag = ptree.CALL_DISTINCT_AGG
	}
	node := ptree.New(tag, &nameTok, arg)
	node.WithMeta("quantifier", quantifier)
	return node, rest3, nil
}

func parseSubstringArgs(s *state, nameTok token.Token, v view.View) (*ptree.Node, view.View, error) {
	str, rest, err := parseExpression(s, v, view.Lowest())
	if err != nil {
		return nil, v, err
	}
	var start, length *ptree.Node
	switch {
	case rest.Head().HasKeyword("from"):
		rest = rest.Advance()
		start, rest, err = parseExpression(s, rest, view.Lowest())
		if err != nil {
			return nil, v, err
		}
		if rest.Head().Kind == token.FOR {
			rest = rest.Advance()
			length, rest, err = parseExpression(s, rest, view.Lowest())
			if err != nil {
				return nil, v, err
			}
		}
	case rest.Head().Kind == token.COMMA:
		rest = rest.Advance()
		start, rest, err = parseExpression(s, rest, view.Lowest())
		if err != nil {
			return nil, v, err
		}
		if rest.Head().Kind == token.COMMA {
			rest = rest.Advance()
			length, rest, err = parseExpression(s, rest, view.Lowest())
			if err != nil {
				return nil, v, err
			}
		}
	default:
		return nil, v, perr.Expected(perr.ExpectedArgumentDelimiter, "FROM or ','", rest.Head())
	}
	rest2, ok := rest.RequireKind(token.RIGHT_PAREN)
	if !ok {
		return nil, v, perr.Expected(perr.ExpectedRightParen, ")", rest.Head())
	}
	children := []*ptree.Node{str, start}
	if length != nil {
		children = append(children, length)
	}
	node := ptree.New(ptree.CALL, &nameTok, children...)
	node.WithMeta("builtin", "substring")
	return node, rest2, nil
}

func parseTrimArgs(s *state, nameTok token.Token, v view.View) (*ptree.Node, view.View, error) {
	var specTok *token.Token
	if v.Head().Kind == token.TRIM_SPECIFICATION {
		t := v.Head()
		specTok = &t
		v = v.Advance()
	}
	first, rest, err := parseExpression(s, v, view.Lowest())
	if err != nil {
		return nil, v, err
	}
	var removeChars, target *ptree.Node
	if rest.Head().HasKeyword("from") {
		rest = rest.Advance()
		removeChars = first
		target, rest, err = parseExpression(s, rest, view.Lowest())
		if err != nil {
			return nil, v, err
		}
	} else {
		target = first
	}
	rest2, ok := rest.RequireKind(token.RIGHT_PAREN)
	if !ok {
		return nil, v, perr.Expected(perr.ExpectedRightParen, ")", rest.Head())
	}
	children := []*ptree.Node{target}
	if removeChars != nil {
		children = append(children, removeChars)
	}
	node := ptree.New(ptree.CALL, &nameTok, children...)
	node.WithMeta("builtin", "trim")
	if specTok != nil {
		node.WithMeta("trim_spec", specTok.Text)
	}
	return node, rest2, nil
}

func parseExtractArgs(s *state, nameTok token.Token, v view.View) (*ptree.Node, view.View, error) {
	if v.Head().Kind != token.DATE_PART {
		return nil, v, perr.Expected(perr.ExpectedExpression, "a date part", v.Head())
	}
	partTok := v.Head()
	rest := v.Advance()
	rest, ok := rest.RequireKeyword("from")
	if !ok {
		return nil, v, perr.Expected(perr.UnexpectedKeyword, "FROM", rest.Head())
	}
	target, rest2, err := parseExpression(s, rest, view.Lowest())
	if err != nil {
		return nil, v, err
	}
	rest3, ok := rest2.RequireKind(token.RIGHT_PAREN)
	if !ok {
		return nil, v, perr.Expected(perr.ExpectedRightParen, ")", rest2.Head())
	}
	node := ptree.New(ptree.CALL, &nameTok, ptree.Leaf(ptree.ATOM, &partTok), target)
	node.WithMeta("builtin", "extract")
	return node, rest3, nil
}

func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
