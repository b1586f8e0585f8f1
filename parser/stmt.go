package parser

import (
	"github.com/ha1tch/partiqlparser/perr"
	"github.com/ha1tch/partiqlparser/ptree"
	"github.com/ha1tch/partiqlparser/token"
	"github.com/ha1tch/partiqlparser/view"
)

// parseTopLevelStatement is the single entry point parseEntry calls: it
// dispatches on the leading keyword to the query, DML, DDL or EXEC
// sub-parser (§4.6, §4.8, §4.9).
func parseTopLevelStatement(s *state, v view.View) (*ptree.Node, view.View, error) {
	if err := s.checkCancelled(v); err != nil {
		return nil, v, err
	}
	h := v.Head()
	switch {
	case h.HasKeyword("select"), h.HasKeyword("with"), h.HasKeyword("pivot"):
		return parseQueryExpression(s, v, view.QueryLowest())
	case h.HasKeyword("insert_into"), h.HasKeyword("update"), h.HasKeyword("delete"),
		h.HasKeyword("set"), h.HasKeyword("remove"), h.HasKeyword("from"):
		return parseDmlEntry(s, v)
	case h.HasKeyword("create"), h.HasKeyword("drop"):
		return parseDdl(s, v)
	case h.HasKeyword("exec"), h.HasKeyword("execute"):
		return parseExec(s, v)
	}
	return nil, v, perr.New(perr.UnexpectedToken, "expected a query, DML, DDL or EXEC statement", headTokenPtr(v), nil)
}

func isIdentToken(t token.Token) bool {
	return t.Kind == token.IDENTIFIER || t.Kind == token.QUOTED_IDENTIFIER
}

func requireIdent(v view.View) (token.Token, view.View, error) {
	h := v.Head()
	if !isIdentToken(h) {
		return h, v, perr.Expected(perr.ExpectedIdentifierForAlias, "an identifier", h)
	}
	return h, v.Advance(), nil
}

// -----------------------------------------------------------------------
// SELECT / PIVOT / WITH
// -----------------------------------------------------------------------

// parseSelectTail parses the clauses shared by SELECT and PIVOT once the
// projection head has been consumed: FROM, LET, WHERE,
// GROUP [PARTIAL] BY, HAVING, ORDER BY, LIMIT — each appended, in this
// fixed order, as an optional tagged child.
func parseSelectTail(s *state, v view.View) ([]*ptree.Node, view.View, error) {
	var children []*ptree.Node

	if v.Head().HasKeyword("from") {
		n, rest, err := parseFromClauseWrapped(s, v)
		if err != nil {
			return nil, v, err
		}
		children = append(children, n)
		v = rest
	}
	if v.Head().HasKeyword("let") {
		n, rest, err := parseLet(s, v)
		if err != nil {
			return nil, v, err
		}
		children = append(children, n)
		v = rest
	}
	if v.Head().HasKeyword("where") {
		tok := v.Head()
		rest := v.Advance()
		cond, rest2, err := parseExpression(s, rest, view.Lowest())
		if err != nil {
			return nil, v, err
		}
		children = append(children, ptree.New(ptree.WHERE, &tok, cond))
		v = rest2
	}
	if v.Head().HasKeyword("group") {
		n, rest, err := parseGroupBy(s, v)
		if err != nil {
			return nil, v, err
		}
		children = append(children, n)
		v = rest
	}
	if v.Head().HasKeyword("having") {
		tok := v.Head()
		rest := v.Advance()
		cond, rest2, err := parseExpression(s, rest, view.Lowest())
		if err != nil {
			return nil, v, err
		}
		children = append(children, ptree.New(ptree.HAVING, &tok, cond))
		v = rest2
	}
	// GROUP BY/HAVING are consumed before ORDER BY here, not in the literal
	// clause order some grammar writeups give: ORDER BY needs to see
	// aggregate/group results (e.g. ORDER BY COUNT(*)), and every real
	// query in the corpus that combines the two clauses places GROUP
	// BY/HAVING first.
	if v.Head().HasKeyword("order") {
		n, rest, err := parseOrderBy(s, v)
		if err != nil {
			return nil, v, err
		}
		children = append(children, n)
		v = rest
	}
	if v.Head().HasKeyword("limit") {
		tok := v.Head()
		rest := v.Advance()
		lim, rest2, err := parseExpression(s, rest, view.Lowest())
		if err != nil {
			return nil, v, err
		}
		children = append(children, ptree.New(ptree.LIMIT, &tok, lim))
		v = rest2
	}
	return children, v, nil
}

func parseSelect(s *state, v view.View) (*ptree.Node, view.View, error) {
	selTok := v.Head()
	v = v.Advance()

	var head []*ptree.Node
	if v.Head().HasKeyword("distinct") {
		tok := v.Head()
		head = append(head, ptree.Leaf(ptree.DISTINCT, &tok))
		v = v.Advance()
	} else if v.Head().HasKeyword("all") {
		v = v.Advance()
	}

	tag := ptree.SELECT_LIST
	if v.Head().HasKeyword("value") {
		tag = ptree.SELECT_VALUE
		v = v.Advance()
		val, rest, err := parseExpression(s, v, view.Lowest())
		if err != nil {
			return nil, v, err
		}
		head = append(head, val)
		v = rest
	} else {
		items, rest, err := parseSelectList(s, v)
		if err != nil {
			return nil, v, err
		}
		head = append(head, items...)
		v = rest
	}

	tail, rest, err := parseSelectTail(s, v)
	if err != nil {
		return nil, v, err
	}
	return ptree.New(tag, &selTok, append(head, tail...)...), rest, nil
}

// parseSelectList parses the comma-separated projection list, or the
// bare `*` form, validating the "asterisk not alone" invariant and the
// trailing `.*` → PROJECT_ALL rewrite.
func parseSelectList(s *state, v view.View) ([]*ptree.Node, view.View, error) {
	if v.Head().Kind == token.STAR {
		star := v.Head()
		rest := v.Advance()
		if rest.Head().Kind == token.COMMA {
			return nil, v, perr.New(perr.AsteriskNotAloneInSelectList, "'*' must be the only item of a select list", &star, nil)
		}
		return []*ptree.Node{ptree.Leaf(ptree.PROJECT_ALL, &star)}, rest, nil
	}
	var items []*ptree.Node
	for {
		exprTok := v.Head()
		if exprTok.Kind == token.STAR {
			return nil, v, perr.New(perr.AsteriskNotAloneInSelectList, "'*' must be the only item of a select list", &exprTok, nil)
		}
		expr, rest, err := parseExpression(s, v, view.Lowest())
		if err != nil {
			return nil, v, err
		}
		v = rest

		item, err := rewriteSelectListItem(exprTok, expr)
		if err != nil {
			return nil, v, err
		}
		if item == nil {
			memberChildren := []*ptree.Node{expr}
			if v.Head().Kind == token.AS {
				v = v.Advance()
				idTok, rest2, err := requireIdent(v)
				if err != nil {
					return nil, v, err
				}
				memberChildren = append(memberChildren, ptree.Leaf(ptree.AS_ALIAS, &idTok))
				v = rest2
			}
			item = ptree.New(ptree.MEMBER, &exprTok, memberChildren...)
		}
		items = append(items, item)
		if v.Head().Kind == token.COMMA {
			v = v.Advance()
			continue
		}
		break
	}
	bareStars := 0
	for _, it := range items {
		if it.Tag == ptree.PROJECT_ALL && len(it.Children) == 0 {
			bareStars++
		}
	}
	if bareStars > 0 && len(items) > 1 {
		return nil, v, perr.New(perr.AsteriskNotAloneInSelectList, "'*' must be the sole item of a select list", headTokenPtr(v), nil)
	}
	return items, v, nil
}

// rewriteSelectListItem rewrites a path ending in a trailing `.*` into a
// PROJECT_ALL node wrapping the path minus that component (invariants
// 4/5). It rejects a trailing bracket wildcard `[*]` outright, and
// rejects the rewrite when any non-dot component precedes the trailing
// `.*` (e.g. `a[1].*`). Returns (nil, nil) when expr is not such a path,
// meaning the caller should treat it as an ordinary select item.
func rewriteSelectListItem(exprTok token.Token, expr *ptree.Node) (*ptree.Node, error) {
	if expr.Tag != ptree.PATH || len(expr.Children) < 2 {
		return nil, nil
	}
	last := expr.Children[len(expr.Children)-1]
	switch last.Tag {
	case ptree.PATH_WILDCARD:
		return nil, perr.New(perr.MixedWildcardInSelectList, "'[*]' cannot appear in a select list", last.Token, nil)
	case ptree.PATH_UNPIVOT:
		for _, c := range expr.Children[1 : len(expr.Children)-1] {
			if c.Tag != ptree.PATH_DOT {
				return nil, perr.New(perr.MixedWildcardInSelectList, "'.*' in a select list must follow only dotted path components", last.Token, nil)
			}
		}
		remaining := expr.Children[:len(expr.Children)-1]
		var root *ptree.Node
		if len(remaining) == 1 {
			root = remaining[0]
		} else {
			root = ptree.New(ptree.PATH, expr.Token, remaining...)
		}
		return ptree.New(ptree.PROJECT_ALL, &exprTok, root), nil
	}
	return nil, nil
}

func parseLet(s *state, v view.View) (*ptree.Node, view.View, error) {
	letTok := v.Head()
	v = v.Advance()
	var bindings []*ptree.Node
	for {
		exprTok := v.Head()
		expr, rest, err := parseExpression(s, v, view.Lowest())
		if err != nil {
			return nil, v, err
		}
		rest2, ok := rest.RequireKind(token.AS)
		if !ok {
			return nil, v, perr.Expected(perr.ExpectedAs, "AS", rest.Head())
		}
		idTok, rest3, err := requireIdent(rest2)
		if err != nil {
			return nil, v, err
		}
		bindings = append(bindings, ptree.New(ptree.MEMBER, &exprTok, expr, ptree.Leaf(ptree.AS_ALIAS, &idTok)))
		v = rest3
		if v.Head().Kind == token.COMMA {
			v = v.Advance()
			continue
		}
		break
	}
	return ptree.New(ptree.LET, &letTok, bindings...), v, nil
}

func parseGroupBy(s *state, v view.View) (*ptree.Node, view.View, error) {
	groupTok := v.Head()
	v = v.Advance()
	tag := ptree.GROUP
	if v.Head().HasKeyword("partial") {
		tag = ptree.GROUP_PARTIAL
		v = v.Advance()
	}
	rest, ok := v.RequireKind(token.BY)
	if !ok {
		return nil, v, perr.Expected(perr.UnexpectedKeyword, "BY", v.Head())
	}
	v = rest

	var keys []*ptree.Node
	for {
		exprTok := v.Head()
		expr, rest2, err := parseExpression(s, v, view.Lowest())
		if err != nil {
			return nil, v, err
		}
		if expr.Tag == ptree.ATOM && expr.Token != nil && expr.Token.Kind == token.LITERAL {
			return nil, v, perr.New(perr.UnsupportedLiteralInGroupBy, "a bare literal is not a valid GROUP BY key", expr.Token, nil)
		}
		v = rest2
		children := []*ptree.Node{expr}
		if v.Head().Kind == token.AS {
			v = v.Advance()
			idTok, rest3, err := requireIdent(v)
			if err != nil {
				return nil, v, err
			}
			children = append(children, ptree.Leaf(ptree.AS_ALIAS, &idTok))
			v = rest3
		}
		keys = append(keys, ptree.New(ptree.MEMBER, &exprTok, children...))
		if v.Head().Kind == token.COMMA {
			v = v.Advance()
			continue
		}
		break
	}

	node := ptree.New(tag, &groupTok, keys...)
	if v.Head().HasKeyword("group") && v.Peek(1).Kind == token.AS {
		v = v.Advance().Advance()
		idTok, rest2, err := requireIdent(v)
		if err != nil {
			return nil, v, err
		}
		node.WithMeta("group_as", idTok.Text)
		v = rest2
	}
	return node, v, nil
}

func parseOrderBy(s *state, v view.View) (*ptree.Node, view.View, error) {
	orderTok := v.Head()
	v = v.Advance()
	rest, ok := v.RequireKind(token.BY)
	if !ok {
		return nil, v, perr.Expected(perr.UnexpectedKeyword, "BY", v.Head())
	}
	v = rest
	var items []*ptree.Node
	for {
		exprTok := v.Head()
		expr, rest2, err := parseExpression(s, v, view.Lowest())
		if err != nil {
			return nil, v, err
		}
		v = rest2
		direction := "asc"
		if v.Head().Kind == token.ASC {
			v = v.Advance()
		} else if v.Head().Kind == token.DESC {
			direction = "desc"
			v = v.Advance()
		}
		item := ptree.New(ptree.SORT_SPEC, &exprTok, expr)
		item.WithMeta("direction", direction)
		items = append(items, item)
		if v.Head().Kind == token.COMMA {
			v = v.Advance()
			continue
		}
		break
	}
	return ptree.New(ptree.ORDER_BY, &orderTok, items...), v, nil
}

func parsePivot(s *state, v view.View) (*ptree.Node, view.View, error) {
	pivotTok := v.Head()
	v = v.Advance()
	value, rest, err := parseExpression(s, v, view.Lowest())
	if err != nil {
		return nil, v, err
	}
	rest2, ok := rest.RequireKind(token.AT)
	if !ok {
		return nil, v, perr.Expected(perr.UnexpectedKeyword, "AT", rest.Head())
	}
	key, rest3, err := parseExpression(s, rest2, view.Lowest())
	if err != nil {
		return nil, v, err
	}
	tail, rest4, err := parseSelectTail(s, rest3)
	if err != nil {
		return nil, v, err
	}
	children := append([]*ptree.Node{value, key}, tail...)
	return ptree.New(ptree.PIVOT, &pivotTok, children...), rest4, nil
}

func parseWith(s *state, v view.View) (*ptree.Node, view.View, error) {
	withTok := v.Head()
	v = v.Advance()
	recursive := false
	if v.Head().HasKeyword("recursive") {
		recursive = true
		v = v.Advance()
	}

	var bindings []*ptree.Node
	for {
		nameTok, rest, err := requireIdent(v)
		if err != nil {
			return nil, v, err
		}
		rest2, ok := rest.RequireKind(token.AS)
		if !ok {
			return nil, v, perr.Expected(perr.ExpectedAs, "AS", rest.Head())
		}
		v = rest2
		materialized := true
		switch {
		case v.Head().HasKeyword("materialized"):
			v = v.Advance()
		case v.Head().HasKeyword("not_materialized"):
			materialized = false
			v = v.Advance()
		}
		v, ok = v.RequireKind(token.LEFT_PAREN)
		if !ok {
			return nil, v, perr.Expected(perr.ExpectedLeftParen, "(", v.Head())
		}
		q, rest3, err := parseQueryExpression(s, v, view.QueryLowest())
		if err != nil {
			return nil, v, err
		}
		v, ok = rest3.RequireKind(token.RIGHT_PAREN)
		if !ok {
			return nil, v, perr.Expected(perr.ExpectedRightParen, ")", rest3.Head())
		}
		binding := ptree.New(ptree.MATERIALIZED, &nameTok, q)
		binding.WithMeta("materialized", materialized)
		bindings = append(bindings, binding)
		if v.Head().Kind == token.COMMA {
			v = v.Advance()
			continue
		}
		break
	}

	finalQuery, rest, err := parseQueryExpression(s, v, view.QueryLowest())
	if err != nil {
		return nil, v, err
	}
	node := ptree.New(ptree.WITH, &withTok, append(bindings, finalQuery)...)
	if recursive {
		node.WithMeta("recursive", true)
	}
	return node, rest, nil
}

// -----------------------------------------------------------------------
// FROM source tree (§4.6)
// -----------------------------------------------------------------------

func parseFromClauseWrapped(s *state, v view.View) (*ptree.Node, view.View, error) {
	fromTok := v.Head()
	v = v.Advance()
	tree, rest, err := parseJoinTree(s, v)
	if err != nil {
		return nil, v, err
	}
	return ptree.New(ptree.FROM_CLAUSE, &fromTok, tree), rest, nil
}

// joinKinds maps each fused join keyword to the tag it produces and
// whether it is a cross-join variant (no ON clause).
var joinKinds = map[string]struct {
	tag   ptree.Tag
	cross bool
}{
	"join":               {ptree.INNER_JOIN, false},
	"inner_join":         {ptree.INNER_JOIN, false},
	"cross_join":         {ptree.INNER_JOIN, true},
	"left_join":          {ptree.LEFT_JOIN, false},
	"left_outer_join":    {ptree.LEFT_JOIN, false},
	"left_cross_join":    {ptree.LEFT_JOIN, true},
	"right_join":         {ptree.RIGHT_JOIN, false},
	"right_outer_join":   {ptree.RIGHT_JOIN, false},
	"right_cross_join":   {ptree.RIGHT_JOIN, true},
	"outer_join":         {ptree.OUTER_JOIN, false},
	"outer_cross_join":   {ptree.OUTER_JOIN, true},
}

func parseJoinTree(s *state, v view.View) (*ptree.Node, view.View, error) {
	left, rest, err := parseFromPrimary(s, v)
	if err != nil {
		return nil, v, err
	}
	v = rest
	for {
		if v.Head().Kind == token.COMMA {
			tok := v.Head()
			v = v.Advance()
			right, rest2, err := parseFromPrimary(s, v)
			if err != nil {
				return nil, v, err
			}
			joined := ptree.New(ptree.FROM_SOURCE_JOIN, &tok, left, right)
			joined.WithMeta("implicit", true)
			left = joined
			v = rest2
			continue
		}

		kind, ok := joinKinds[v.HeadKeyword()]
		if !ok {
			return left, v, nil
		}
		tok := v.Head()
		v = v.Advance()
		if kind.cross {
			right, rest2, err := parseFromPrimary(s, v)
			if err != nil {
				return nil, v, err
			}
			joined := ptree.New(kind.tag, &tok, left, right)
			joined.WithMeta("cross", true)
			left = joined
			v = rest2
			continue
		}
		right, on, rest2, err := parseJoinRightAndOn(s, v)
		if err != nil {
			return nil, v, err
		}
		left = ptree.New(kind.tag, &tok, left, right, on)
		v = rest2
	}
}

func parseJoinRightAndOn(s *state, v view.View) (*ptree.Node, *ptree.Node, view.View, error) {
	right, rest, err := parseFromPrimary(s, v)
	if err != nil {
		return nil, nil, v, err
	}
	if !rest.Head().HasKeyword("on") {
		return nil, nil, v, perr.New(perr.MalformedJoin, "expected ON after JOIN source", headTokenPtr(rest), nil)
	}
	rest2 := rest.Advance()
	cond, rest3, err := parseExpression(s, rest2, view.Lowest())
	if err != nil {
		return nil, nil, v, err
	}
	return right, cond, rest3, nil
}

// parseAliases consumes zero or more AS/AT/BY alias clauses, in any
// order, each carrying the identifier token directly.
func parseAliases(v view.View) (asNode, atNode, byNode *ptree.Node, rest view.View, err error) {
	for {
		switch v.Head().Kind {
		case token.AS:
			v = v.Advance()
			idTok, rest2, e := requireIdent(v)
			if e != nil {
				return nil, nil, nil, v, e
			}
			asNode = ptree.Leaf(ptree.AS_ALIAS, &idTok)
			v = rest2
		case token.AT:
			v = v.Advance()
			idTok, rest2, e := requireIdent(v)
			if e != nil {
				return nil, nil, nil, v, e
			}
			atNode = ptree.Leaf(ptree.AT_ALIAS, &idTok)
			v = rest2
		case token.BY:
			v = v.Advance()
			idTok, rest2, e := requireIdent(v)
			if e != nil {
				return nil, nil, nil, v, e
			}
			byNode = ptree.Leaf(ptree.BY_ALIAS, &idTok)
			v = rest2
		default:
			return asNode, atNode, byNode, v, nil
		}
	}
}

// parseFromSourceExpression parses a FROM-clause source under §4.3's
// QUERY_PATH restrictions: a bare-path source must be identifier-rooted
// and may not use wildcard/unpivot path components. Subqueries, calls
// and collection constructors are unaffected, since they aren't paths
// at all. Infix operators are folded in exactly like parseExpression.
func parseFromSourceExpression(s *state, v view.View, minPrec int) (*ptree.Node, view.View, error) {
	left, rest, err := parseTerm(s, v, queryPath)
	if err != nil {
		return nil, v, err
	}
	return parseInfixLoop(s, left, rest, minPrec)
}

// parseFromPrimary parses one source in a FROM join tree (or the single
// DML target source): a plain expression, or an UNPIVOT source, each
// with optional AS/AT/BY aliases.
func parseFromPrimary(s *state, v view.View) (*ptree.Node, view.View, error) {
	if v.Head().HasKeyword("unpivot") {
		tok := v.Head()
		v = v.Advance()
		expr, rest, err := parseFromSourceExpression(s, v, view.Lowest())
		if err != nil {
			return nil, v, err
		}
		asNode, atNode, byNode, rest2, err := parseAliases(rest)
		if err != nil {
			return nil, v, err
		}
		children := []*ptree.Node{expr}
		for _, a := range []*ptree.Node{asNode, atNode, byNode} {
			if a != nil {
				children = append(children, a)
			}
		}
		return ptree.New(ptree.UNPIVOT, &tok, children...), rest2, nil
	}

	exprTok := v.Head()
	expr, rest, err := parseFromSourceExpression(s, v, view.Lowest())
	if err != nil {
		return nil, v, err
	}
	asNode, atNode, byNode, rest2, err := parseAliases(rest)
	if err != nil {
		return nil, v, err
	}
	children := []*ptree.Node{expr}
	for _, a := range []*ptree.Node{asNode, atNode, byNode} {
		if a != nil {
			children = append(children, a)
		}
	}
	return ptree.New(ptree.FROM, &exprTok, children...), rest2, nil
}

// -----------------------------------------------------------------------
// DML (§4.8)
// -----------------------------------------------------------------------

func parseAssignmentList(s *state, v view.View) ([]*ptree.Node, view.View, error) {
	var assignments []*ptree.Node
	for {
		target, rest, err := parseTerm(s, v, simplePath)
		if err != nil {
			return nil, v, err
		}
		eqTok := rest.Head()
		if !(eqTok.Kind == token.OPERATOR && eqTok.Text == "=") {
			return nil, v, perr.Expected(perr.MissingSetAssignment, "'='", eqTok)
		}
		rest = rest.Advance()
		value, rest2, err := parseExpression(s, rest, view.Lowest())
		if err != nil {
			return nil, v, err
		}
		assignments = append(assignments, ptree.New(ptree.ASSIGNMENT, &eqTok, target, value))
		v = rest2
		if v.Head().Kind == token.COMMA {
			v = v.Advance()
			continue
		}
		break
	}
	if len(assignments) == 0 {
		return nil, v, perr.New(perr.MissingSetAssignment, "expected at least one assignment", headTokenPtr(v), nil)
	}
	return assignments, v, nil
}

func parseInsertTail(s *state, v view.View, insertTok token.Token, path *ptree.Node) (*ptree.Node, view.View, error) {
	if v.Head().HasKeyword("value") {
		v = v.Advance()
		value, rest, err := parseExpression(s, v, view.Lowest())
		if err != nil {
			return nil, v, err
		}
		v = rest
		var pos *ptree.Node
		if v.Head().Kind == token.AT {
			v = v.Advance()
			p, rest2, err := parseExpression(s, v, view.Lowest())
			if err != nil {
				return nil, v, err
			}
			pos = p
			v = rest2
		}
		var onConflict *ptree.Node
		if v.Head().HasKeyword("on_conflict") {
			onTok := v.Head()
			v = v.Advance()
			var cond *ptree.Node
			if v.Head().HasKeyword("where") {
				v = v.Advance()
				c, rest2, err := parseExpression(s, v, view.Lowest())
				if err != nil {
					return nil, v, err
				}
				cond = c
				v = rest2
			}
			var ok bool
			v, ok = v.RequireKeyword("do_nothing")
			if !ok {
				return nil, v, perr.New(perr.ExpectedConflictAction, "expected DO NOTHING", headTokenPtr(v), nil)
			}
			var conflictChildren []*ptree.Node
			if cond != nil {
				conflictChildren = append(conflictChildren, cond)
			}
			onConflict = ptree.New(ptree.ON_CONFLICT, &onTok, conflictChildren...)
		}
		children := []*ptree.Node{path, value}
		if pos != nil {
			children = append(children, pos)
		}
		if onConflict != nil {
			children = append(children, onConflict)
		}
		return ptree.New(ptree.INSERT_VALUE, &insertTok, children...), v, nil
	}

	values, rest, err := parseExpression(s, v, view.Lowest())
	if err != nil {
		return nil, v, err
	}
	return ptree.New(ptree.INSERT, &insertTok, path, values), rest, nil
}

func parseReturning(s *state, v view.View) (*ptree.Node, view.View, error) {
	returningTok := v.Head()
	v = v.Advance()
	var items []*ptree.Node
	for {
		item, rest, err := parseReturningItem(s, v)
		if err != nil {
			return nil, v, err
		}
		items = append(items, item)
		v = rest
		if v.Head().Kind == token.COMMA {
			v = v.Advance()
			continue
		}
		break
	}
	return ptree.New(ptree.RETURNING, &returningTok, items...), v, nil
}

// returningStatus maps the four fused RETURNING status keywords to their
// canonical status string.
var returningStatus = map[string]string{
	"modified_old": "modified_old",
	"modified_new": "modified_new",
	"all_old":      "all_old",
	"all_new":      "all_new",
}

func parseReturningItem(s *state, v view.View) (*ptree.Node, view.View, error) {
	firstTok := v.Head()
	status, ok := returningStatus[v.HeadKeyword()]
	if !ok {
		return nil, v, perr.New(perr.ExpectedReturningClause, "expected MODIFIED OLD, MODIFIED NEW, ALL OLD or ALL NEW", headTokenPtr(v), nil)
	}
	v = v.Advance()

	if v.Head().Kind == token.STAR {
		star := v.Head()
		node := ptree.Leaf(ptree.RETURNING_WILDCARD, &star)
		node.WithMeta("status", status)
		return node, v.Advance(), nil
	}

	target, rest, err := parseTerm(s, v, simplePath)
	if err != nil {
		return nil, v, err
	}
	if target.Tag == ptree.PATH && len(target.Children)-1 > 2 {
		return nil, v, perr.New(perr.InvalidPathComponent, "RETURNING paths support at most two components", headTokenPtr(v), nil)
	}
	node := ptree.New(ptree.RETURNING_ELEM, &firstTok, target)
	node.WithMeta("status", status)
	return node, rest, nil
}

func parseDmlEntry(s *state, v view.View) (*ptree.Node, view.View, error) {
	switch {
	case v.Head().HasKeyword("delete"):
		v = v.Advance()
		delTok := v.Head()
		rest, ok := v.RequireKeyword("from")
		if !ok {
			return nil, v, perr.Expected(perr.UnexpectedKeyword, "FROM", v.Head())
		}
		fromNode, rest2, err := parseFromPrimary(s, rest)
		if err != nil {
			return nil, v, err
		}
		op := ptree.Leaf(ptree.DELETE, &delTok)
		return finishDmlWithState(s, []*ptree.Node{op}, fromNode, rest2)

	case v.Head().HasKeyword("update"):
		v = v.Advance()
		fromNode, rest, err := parseFromPrimary(s, v)
		if err != nil {
			return nil, v, err
		}
		setTok := rest.Head()
		rest2, ok := rest.RequireKeyword("set")
		if !ok {
			return nil, v, perr.Expected(perr.UnexpectedKeyword, "SET", rest.Head())
		}
		assignments, rest3, err := parseAssignmentList(s, rest2)
		if err != nil {
			return nil, v, err
		}
		setNode := ptree.New(ptree.SET, &setTok, assignments...)
		return finishDmlWithState(s, []*ptree.Node{setNode}, fromNode, rest3)

	case v.Head().HasKeyword("insert_into"):
		insertTok := v.Head()
		v = v.Advance()
		path, rest, err := parseTerm(s, v, simplePath)
		if err != nil {
			return nil, v, err
		}
		op, rest2, err := parseInsertTail(s, rest, insertTok, path)
		if err != nil {
			return nil, v, err
		}
		return finishDmlWithState(s, []*ptree.Node{op}, nil, rest2)

	case v.Head().HasKeyword("set"):
		setTok := v.Head()
		v = v.Advance()
		assignments, rest, err := parseAssignmentList(s, v)
		if err != nil {
			return nil, v, err
		}
		setNode := ptree.New(ptree.SET, &setTok, assignments...)
		return finishDmlWithState(s, []*ptree.Node{setNode}, nil, rest)

	case v.Head().HasKeyword("remove"):
		removeTok := v.Head()
		v = v.Advance()
		target, rest, err := parseTerm(s, v, simplePath)
		if err != nil {
			return nil, v, err
		}
		op := ptree.New(ptree.REMOVE, &removeTok, target)
		return finishDmlWithState(s, []*ptree.Node{op}, nil, rest)

	case v.Head().HasKeyword("from"):
		fromNode, rest, err := parseFromPrimary(s, v.Advance())
		if err != nil {
			return nil, v, err
		}
		var ops []*ptree.Node
		for {
			switch {
			case rest.HeadKeyword() == "set":
				setTok := rest.Head()
				rest2 := rest.Advance()
				assignments, rest3, err := parseAssignmentList(s, rest2)
				if err != nil {
					return nil, v, err
				}
				ops = append(ops, ptree.New(ptree.SET, &setTok, assignments...))
				rest = rest3
			case rest.HeadKeyword() == "remove":
				removeTok := rest.Head()
				rest2 := rest.Advance()
				target, rest3, err := parseTerm(s, rest2, simplePath)
				if err != nil {
					return nil, v, err
				}
				ops = append(ops, ptree.New(ptree.REMOVE, &removeTok, target))
				rest = rest3
			case rest.HeadKeyword() == "insert_into":
				insertTok := rest.Head()
				rest2 := rest.Advance()
				path, rest3, err := parseTerm(s, rest2, simplePath)
				if err != nil {
					return nil, v, err
				}
				op, rest4, err := parseInsertTail(s, rest3, insertTok, path)
				if err != nil {
					return nil, v, err
				}
				ops = append(ops, op)
				rest = rest4
			default:
				goto doneOps
			}
			if rest.Head().Kind == token.COMMA {
				rest = rest.Advance()
				continue
			}
			break
		}
	doneOps:
		if len(ops) == 0 {
			return nil, v, perr.New(perr.UnsupportedSyntax, "expected SET, REMOVE or INSERT INTO after FROM", headTokenPtr(rest), nil)
		}
		return finishDmlWithState(s, ops, fromNode, rest)
	}
	return nil, v, perr.New(perr.UnexpectedToken, "expected a DML statement", headTokenPtr(v), nil)
}

func finishDmlWithState(s *state, ops []*ptree.Node, fromNode *ptree.Node, v view.View) (*ptree.Node, view.View, error) {
	var whereNode *ptree.Node
	if v.Head().HasKeyword("where") {
		tok := v.Head()
		rest := v.Advance()
		cond, rest2, err := parseExpression(s, rest, view.Lowest())
		if err != nil {
			return nil, v, err
		}
		whereNode = ptree.New(ptree.WHERE, &tok, cond)
		v = rest2
	}
	var returningNode *ptree.Node
	if v.Head().HasKeyword("returning") {
		n, rest, err := parseReturning(s, v)
		if err != nil {
			return nil, v, err
		}
		returningNode = n
		v = rest
	}
	if fromNode == nil && whereNode == nil && returningNode == nil && len(ops) == 1 {
		return ops[0], v, nil
	}
	var children []*ptree.Node
	if fromNode != nil {
		children = append(children, fromNode)
	}
	children = append(children, ops...)
	if whereNode != nil {
		children = append(children, whereNode)
	}
	if returningNode != nil {
		children = append(children, returningNode)
	}
	return ptree.New(ptree.DML_LIST, ops[0].Token, children...), v, nil
}

// -----------------------------------------------------------------------
// DDL (§4.9)
// -----------------------------------------------------------------------

func parseDdl(s *state, v view.View) (*ptree.Node, view.View, error) {
	tok := v.Head()
	switch {
	case v.Head().HasKeyword("create"):
		v = v.Advance()
		switch {
		case v.Head().HasKeyword("table"):
			v = v.Advance()
			nameTok, rest, err := requireIdent(v)
			if err != nil {
				return nil, v, err
			}
			node := ptree.Leaf(ptree.CREATE_TABLE, &tok)
			node.WithMeta("name", nameTok.Text)
			return node, rest, nil
		case v.Head().HasKeyword("index"):
			v = v.Advance()
			rest, ok := v.RequireKeyword("on")
			if !ok {
				return nil, v, perr.Expected(perr.UnexpectedKeyword, "ON", v.Head())
			}
			tableTok, rest2, err := requireIdent(rest)
			if err != nil {
				return nil, v, err
			}
			rest3, ok := rest2.RequireKind(token.LEFT_PAREN)
			if !ok {
				return nil, v, perr.Expected(perr.ExpectedLeftParen, "(", rest2.Head())
			}
			var keys []string
			for {
				keyTok, rest4, err := requireIdent(rest3)
				if err != nil {
					return nil, v, err
				}
				keys = append(keys, keyTok.Text)
				rest3 = rest4
				if rest3.Head().Kind == token.COMMA {
					rest3 = rest3.Advance()
					continue
				}
				break
			}
			rest5, ok := rest3.RequireKind(token.RIGHT_PAREN)
			if !ok {
				return nil, v, perr.Expected(perr.ExpectedRightParen, ")", rest3.Head())
			}
			node := ptree.Leaf(ptree.CREATE_INDEX, &tok)
			node.WithMeta("table", tableTok.Text)
			node.WithMeta("keys", keys)
			return node, rest5, nil
		}
		return nil, v, perr.New(perr.UnsupportedSyntax, "expected TABLE or INDEX after CREATE", headTokenPtr(v), nil)

	case v.Head().HasKeyword("drop"):
		v = v.Advance()
		switch {
		case v.Head().HasKeyword("table"):
			v = v.Advance()
			nameTok, rest, err := requireIdent(v)
			if err != nil {
				return nil, v, err
			}
			node := ptree.Leaf(ptree.DROP_TABLE, &tok)
			node.WithMeta("name", nameTok.Text)
			return node, rest, nil
		case v.Head().HasKeyword("index"):
			v = v.Advance()
			nameTok, rest, err := requireIdent(v)
			if err != nil {
				return nil, v, err
			}
			rest2, ok := rest.RequireKeyword("on")
			if !ok {
				return nil, v, perr.Expected(perr.UnexpectedKeyword, "ON", rest.Head())
			}
			tableTok, rest3, err := requireIdent(rest2)
			if err != nil {
				return nil, v, err
			}
			node := ptree.Leaf(ptree.DROP_INDEX, &tok)
			node.WithMeta("name", nameTok.Text)
			node.WithMeta("table", tableTok.Text)
			return node, rest3, nil
		}
		return nil, v, perr.New(perr.UnsupportedSyntax, "expected TABLE or INDEX after DROP", headTokenPtr(v), nil)
	}
	return nil, v, perr.New(perr.UnsupportedSyntax, "expected CREATE or DROP", headTokenPtr(v), nil)
}

// -----------------------------------------------------------------------
// EXEC (§4.9, Open Question resolved: see SPEC_FULL.md)
// -----------------------------------------------------------------------

func parseExec(s *state, v view.View) (*ptree.Node, view.View, error) {
	execTok := v.Head()
	v = v.Advance()
	if !(v.Head().Kind == token.IDENTIFIER || v.Head().Kind == token.QUOTED_IDENTIFIER) {
		return nil, v, perr.New(perr.NoStoredProcedureProvided, "expected a stored procedure name after EXEC", headTokenPtr(v), nil)
	}
	nameTok := v.Head()
	v = v.Advance()
	if v.Head().Kind == token.LEFT_PAREN {
		return nil, v, perr.New(perr.UnsupportedSyntax, "EXEC does not accept parenthesized arguments", headTokenPtr(v), nil)
	}
	var args []*ptree.Node
	if v.Head().Kind != token.EOF && v.Head().Kind != token.SEMICOLON {
		for {
			if v.Head().HasKeyword("exec") || v.Head().HasKeyword("execute") {
				return nil, v, perr.New(perr.UnsupportedSyntax, "EXEC does not accept a nested EXEC in its argument list", headTokenPtr(v), nil)
			}
			arg, rest, err := parseExpression(s, v, view.Lowest())
			if err != nil {
				return nil, v, err
			}
			args = append(args, arg)
			v = rest
			if v.Head().Kind == token.COMMA {
				v = v.Advance()
				continue
			}
			break
		}
	}
	node := ptree.New(ptree.EXEC, &execTok, args...)
	node.WithMeta("name", nameTok.Text)
	return node, v, nil
}
