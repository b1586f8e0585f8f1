package parser

import (
	"github.com/ha1tch/partiqlparser/ast"
	"github.com/ha1tch/partiqlparser/perr"
	"github.com/ha1tch/partiqlparser/ptree"
	"github.com/ha1tch/partiqlparser/token"
)

// builder lowers a *ptree.Node into the typed ast tree described in §6.
// The only state it carries across a single build() call is the
// sequential ordinal assigned to each `?` placeholder, left to right.
type builder struct {
	nextParam int
}

// build is the AST builder's entry point: parseEntry hands it the
// validated parse tree and gets back either a Query or a Stmt, both of
// which satisfy ast.Node.
func build(tree *ptree.Node) (ast.Node, error) {
	b := &builder{nextParam: 1}
	if isQueryTag(tree) {
		return b.buildQuery(tree)
	}
	return b.buildStmt(tree)
}

func isQueryTag(node *ptree.Node) bool {
	switch node.Tag {
	case ptree.SELECT_LIST, ptree.SELECT_VALUE, ptree.PIVOT, ptree.WITH:
		return true
	case ptree.BINARY:
		return isSetOpKeyword(node.Token.KeywordText)
	}
	return false
}

func isSetOpKeyword(kw string) bool {
	switch kw {
	case "union", "union_all", "intersect", "except":
		return true
	}
	return false
}

func metaFor(tok *token.Token) ast.Meta {
	if tok == nil {
		return ast.Meta{}
	}
	return ast.Meta{Loc: tok.Span}
}

func malformed(node *ptree.Node, msg string) error {
	return perr.New(perr.MalformedParseTree, msg, node.Token, map[string]any{"tag": node.Tag.String()})
}

// -----------------------------------------------------------------------
// Expressions
// -----------------------------------------------------------------------

func (b *builder) buildExprList(nodes []*ptree.Node) ([]ast.Expr, error) {
	out := make([]ast.Expr, 0, len(nodes))
	for _, n := range nodes {
		e, err := b.buildExpr(n)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (b *builder) buildLiteral(tok token.Token) (ast.Expr, error) {
	m := metaFor(&tok)
	switch tok.Kind {
	case token.NULL:
		return ast.NullLiteral{Meta: m}, nil
	case token.MISSING:
		return ast.MissingLiteral{Meta: m}, nil
	case token.ION_LITERAL:
		raw := tok.Text
		if tok.Value != nil {
			raw = tok.Value.String()
		}
		return ast.IonLiteral{Meta: m, Raw: raw}, nil
	case token.TRIM_SPECIFICATION, token.DATE_PART:
		return ast.StringLiteral{Meta: m, Value: tok.Text}, nil
	case token.LITERAL:
		switch val := tok.Value.(type) {
		case token.IntValue:
			return ast.IntLiteral{Meta: m, Value: val.N}, nil
		case token.FloatValue:
			return ast.FloatLiteral{Meta: m, Value: val.F}, nil
		case token.BoolValue:
			return ast.BoolLiteral{Meta: m, Value: val.B}, nil
		case token.TextValue:
			return ast.StringLiteral{Meta: m, Value: val.S}, nil
		}
	}
	return nil, perr.New(perr.MalformedParseTree, "unrecognized literal token", &tok, nil)
}

func (b *builder) buildAtom(node *ptree.Node) (ast.Expr, error) {
	tok := node.Token
	if tok.Kind == token.IDENTIFIER || tok.Kind == token.QUOTED_IDENTIFIER {
		return ast.VariableRef{
			Meta:          metaFor(tok),
			Name:          tok.Text,
			CaseSensitive: node.Tag == ptree.CASE_SENSITIVE_ATOM,
			Scope:         ast.ScopeUnqualified,
		}, nil
	}
	return b.buildLiteral(*tok)
}

func (b *builder) buildExpr(node *ptree.Node) (ast.Expr, error) {
	switch node.Tag {
	case ptree.ATOM, ptree.CASE_SENSITIVE_ATOM, ptree.CASE_INSENSITIVE_ATOM:
		return b.buildAtom(node)

	case ptree.PARAMETER:
		ord := b.nextParam
		b.nextParam++
		return ast.Parameter{Meta: metaFor(node.Token), Ordinal: ord}, nil

	case ptree.UNARY:
		return b.buildUnary(node)

	case ptree.BINARY:
		if isSetOpKeyword(node.Token.KeywordText) {
			q, err := b.buildSetOp(node)
			if err != nil {
				return nil, err
			}
			return ast.SubqueryExpr{Meta: metaFor(node.Token), Query: q}, nil
		}
		return b.buildBinary(node)

	case ptree.TERNARY:
		return b.buildTernary(node)

	case ptree.PATH:
		return b.buildPath(node)

	case ptree.CALL:
		return b.buildCall(node)

	case ptree.CALL_AGG, ptree.CALL_DISTINCT_AGG:
		return b.buildAggregateCall(node)

	case ptree.CALL_AGG_WILDCARD:
		return ast.AggregateCall{Meta: metaFor(node.Token), Name: lowerASCII(node.Token.Text), Wildcard: true}, nil

	case ptree.CAST:
		operand, err := b.buildExpr(node.Children[0])
		if err != nil {
			return nil, err
		}
		typ, err := b.buildType(node.Children[1])
		if err != nil {
			return nil, err
		}
		return ast.Typed{Meta: metaFor(node.Token), Op: ast.TypedCast, Operand: operand, Type: typ}, nil

	case ptree.CASE:
		return b.buildCase(node)

	case ptree.LIST:
		elems, err := b.buildExprList(node.Children)
		if err != nil {
			return nil, err
		}
		return ast.SeqExpr{Meta: metaFor(node.Token), Kind: ast.SeqList, Elements: elems}, nil

	case ptree.BAG:
		elems, err := b.buildExprList(node.Children)
		if err != nil {
			return nil, err
		}
		return ast.SeqExpr{Meta: metaFor(node.Token), Kind: ast.SeqBag, Elements: elems}, nil

	case ptree.STRUCT:
		return b.buildStruct(node)

	case ptree.DATE:
		return ast.DateLiteral{Meta: metaFor(node.Token), Text: node.MetaString("text")}, nil

	case ptree.TIME, ptree.TIME_WITH_TIME_ZONE:
		precision := -1
		if p, ok := node.Meta["precision"].(int); ok {
			precision = p
		}
		return ast.TimeLiteral{
			Meta:         metaFor(node.Token),
			Text:         node.MetaString("text"),
			Precision:    precision,
			WithTimeZone: node.Tag == ptree.TIME_WITH_TIME_ZONE,
		}, nil

	case ptree.SELECT_LIST, ptree.SELECT_VALUE, ptree.PIVOT, ptree.WITH:
		q, err := b.buildQuery(node)
		if err != nil {
			return nil, err
		}
		return ast.SubqueryExpr{Meta: metaFor(node.Token), Query: q}, nil
	}
	return nil, malformed(node, "unrecognized node in expression position")
}

func (b *builder) buildUnary(node *ptree.Node) (ast.Expr, error) {
	op := node.Token
	if op.Kind == token.OPERATOR && op.Text == "@" {
		inner, err := b.buildExpr(node.Children[0])
		if err != nil {
			return nil, err
		}
		ref, ok := inner.(ast.VariableRef)
		if !ok {
			return nil, malformed(node, "'@' must wrap a plain identifier")
		}
		ref.Scope = ast.ScopeLexical
		ref.Meta = metaFor(op)
		return ref, nil
	}

	operand, err := b.buildExpr(node.Children[0])
	if err != nil {
		return nil, err
	}
	if op.Kind == token.KEYWORD && op.KeywordText == "not" {
		return ast.NAryOp{Meta: metaFor(op), Op: "not", Operands: []ast.Expr{operand}}, nil
	}
	return ast.NAryOp{Meta: metaFor(op), Op: op.Text, Operands: []ast.Expr{operand}}, nil
}

func (b *builder) buildBinary(node *ptree.Node) (ast.Expr, error) {
	op := node.Token
	left, err := b.buildExpr(node.Children[0])
	if err != nil {
		return nil, err
	}

	switch op.KeywordText {
	case "is", "is_not":
		typ, err := b.buildType(node.Children[1])
		if err != nil {
			return nil, err
		}
		typed := ast.Typed{Meta: metaFor(op), Op: ast.TypedIs, Operand: left, Type: typ}
		if op.KeywordText == "is_not" {
			return negate(op, typed), nil
		}
		return typed, nil

	case "in", "not_in":
		right, err := b.buildExpr(node.Children[1])
		if err != nil {
			return nil, err
		}
		positive := ast.NAryOp{Meta: metaFor(op), Op: "in", Operands: []ast.Expr{left, right}}
		if op.KeywordText == "not_in" {
			return negate(op, positive), nil
		}
		return positive, nil

	case "like", "not_like":
		right, err := b.buildExpr(node.Children[1])
		if err != nil {
			return nil, err
		}
		positive := ast.NAryOp{Meta: metaFor(op), Op: "like", Operands: []ast.Expr{left, right}}
		if op.KeywordText == "not_like" {
			return negate(op, positive), nil
		}
		return positive, nil
	}

	right, err := b.buildExpr(node.Children[1])
	if err != nil {
		return nil, err
	}
	return ast.NAryOp{Meta: metaFor(op), Op: opName(*op), Operands: []ast.Expr{left, right}}, nil
}

func (b *builder) buildTernary(node *ptree.Node) (ast.Expr, error) {
	op := node.Token
	subject, err := b.buildExpr(node.Children[0])
	if err != nil {
		return nil, err
	}
	rhs1, err := b.buildExpr(node.Children[1])
	if err != nil {
		return nil, err
	}
	rhs2, err := b.buildExpr(node.Children[2])
	if err != nil {
		return nil, err
	}

	switch op.KeywordText {
	case "between", "not_between":
		positive := ast.NAryOp{Meta: metaFor(op), Op: "between", Operands: []ast.Expr{subject, rhs1, rhs2}}
		if op.KeywordText == "not_between" {
			return negate(op, positive), nil
		}
		return positive, nil
	case "like", "not_like":
		positive := ast.NAryOp{Meta: metaFor(op), Op: "like", Operands: []ast.Expr{subject, rhs1, rhs2}}
		if op.KeywordText == "not_like" {
			return negate(op, positive), nil
		}
		return positive, nil
	}
	return nil, malformed(node, "unrecognized ternary operator")
}

// negate wraps a lowered positive form in NOT(...), recording that the
// surface syntax used a fused negated keyword rather than a literal NOT.
func negate(op *token.Token, positive ast.Expr) ast.Expr {
	m := metaFor(op)
	m.LegacyNot = true
	return ast.NAryOp{Meta: m, Op: "not", Operands: []ast.Expr{positive}}
}

func opName(tok token.Token) string {
	if tok.KeywordText != "" {
		return tok.KeywordText
	}
	return tok.Text
}

func (b *builder) buildPath(node *ptree.Node) (ast.Expr, error) {
	root, err := b.buildExpr(node.Children[0])
	if err != nil {
		return nil, err
	}
	comps := make([]ast.PathComponent, 0, len(node.Children)-1)
	for _, c := range node.Children[1:] {
		switch c.Tag {
		case ptree.PATH_DOT:
			comps = append(comps, ast.PathKey{
				Meta:          metaFor(c.Token),
				Name:          c.Token.Text,
				CaseSensitive: c.MetaBool("case_sensitive"),
			})
		case ptree.PATH_SQB:
			idx, err := b.buildExpr(c.Children[0])
			if err != nil {
				return nil, err
			}
			comps = append(comps, ast.PathIndex{Meta: metaFor(c.Token), Index: idx})
		case ptree.PATH_WILDCARD:
			comps = append(comps, ast.PathWildcard{Meta: metaFor(c.Token)})
		case ptree.PATH_UNPIVOT:
			comps = append(comps, ast.PathUnpivotWildcard{Meta: metaFor(c.Token)})
		default:
			return nil, malformed(c, "unrecognized path component")
		}
	}
	return ast.Path{Meta: metaFor(node.Token), Root: root, Components: comps}, nil
}

func (b *builder) buildCall(node *ptree.Node) (ast.Expr, error) {
	name := lowerASCII(node.Token.Text)
	switch name {
	case "list", "bag", "sexp":
		elems, err := b.buildExprList(node.Children)
		if err != nil {
			return nil, err
		}
		kind := ast.SeqList
		switch name {
		case "bag":
			kind = ast.SeqBag
		case "sexp":
			kind = ast.SeqSexp
		}
		return ast.SeqExpr{Meta: metaFor(node.Token), Kind: kind, Elements: elems}, nil
	}
	args, err := b.buildExprList(node.Children)
	if err != nil {
		return nil, err
	}
	return ast.CallExpr{Meta: metaFor(node.Token), Name: name, Args: args}, nil
}

func (b *builder) buildAggregateCall(node *ptree.Node) (ast.Expr, error) {
	arg, err := b.buildExpr(node.Children[0])
	if err != nil {
		return nil, err
	}
	quantifier := ast.QuantifierDefault
	switch {
	case node.Tag == ptree.CALL_DISTINCT_AGG || node.MetaString("quantifier") == "distinct":
		quantifier = ast.QuantifierDistinct
	case node.MetaString("quantifier") == "all":
		quantifier = ast.QuantifierAll
	}
	return ast.AggregateCall{
		Meta:       metaFor(node.Token),
		Name:       lowerASCII(node.Token.Text),
		Quantifier: quantifier,
		Arg:        arg,
	}, nil
}

func (b *builder) buildCase(node *ptree.Node) (ast.Expr, error) {
	children := node.Children
	var operand ast.Expr
	if len(children) > 0 && children[0].Tag != ptree.WHEN {
		o, err := b.buildExpr(children[0])
		if err != nil {
			return nil, err
		}
		operand = o
		children = children[1:]
	}
	var branches []ast.CaseBranch
	for len(children) > 0 && children[0].Tag == ptree.WHEN {
		when, err := b.buildExpr(children[0].Children[0])
		if err != nil {
			return nil, err
		}
		then, err := b.buildExpr(children[0].Children[1])
		if err != nil {
			return nil, err
		}
		branches = append(branches, ast.CaseBranch{When: when, Then: then})
		children = children[1:]
	}
	var elseExpr ast.Expr
	if len(children) > 0 && children[0].Tag == ptree.ELSE {
		e, err := b.buildExpr(children[0].Children[0])
		if err != nil {
			return nil, err
		}
		elseExpr = e
	}
	return ast.CaseExpr{Meta: metaFor(node.Token), Operand: operand, Branches: branches, Else: elseExpr}, nil
}

func (b *builder) buildStruct(node *ptree.Node) (ast.Expr, error) {
	fields := make([]ast.StructField, 0, len(node.Children))
	for _, c := range node.Children {
		key, err := b.buildExpr(c.Children[0])
		if err != nil {
			return nil, err
		}
		val, err := b.buildExpr(c.Children[1])
		if err != nil {
			return nil, err
		}
		fields = append(fields, ast.StructField{Name: key, Value: val})
	}
	return ast.StructExpr{Meta: metaFor(node.Token), Fields: fields}, nil
}

func (b *builder) buildType(node *ptree.Node) (ast.DataType, error) {
	if node.Tag != ptree.TYPE {
		return ast.DataType{}, malformed(node, "expected a type node")
	}
	params, _ := node.Meta["parameters"].([]int64)
	return ast.DataType{Name: node.MetaString("name"), Parameters: params}, nil
}

// -----------------------------------------------------------------------
// Queries
// -----------------------------------------------------------------------

func isTailTag(tag ptree.Tag) bool {
	switch tag {
	case ptree.FROM_CLAUSE, ptree.LET, ptree.WHERE, ptree.ORDER_BY,
		ptree.GROUP, ptree.GROUP_PARTIAL, ptree.HAVING, ptree.LIMIT:
		return true
	}
	return false
}

// tailClauses is the shared accumulator for the FROM/LET/WHERE/ORDER
// BY/GROUP BY/HAVING/LIMIT clauses common to SELECT and PIVOT.
type tailClauses struct {
	from    *ast.FromSource
	lets    []ast.LetBinding
	where   ast.Expr
	order   []ast.OrderItem
	group   *ast.GroupBy
	having  ast.Expr
	limit   ast.Expr
}

func (b *builder) buildTail(children []*ptree.Node) (tailClauses, error) {
	var out tailClauses
	for _, c := range children {
		switch c.Tag {
		case ptree.FROM_CLAUSE:
			fs, err := b.buildFromTree(c.Children[0])
			if err != nil {
				return out, err
			}
			out.from = fs
		case ptree.LET:
			lets, err := b.buildLets(c.Children)
			if err != nil {
				return out, err
			}
			out.lets = lets
		case ptree.WHERE:
			w, err := b.buildExpr(c.Children[0])
			if err != nil {
				return out, err
			}
			out.where = w
		case ptree.ORDER_BY:
			items, err := b.buildOrderItems(c.Children)
			if err != nil {
				return out, err
			}
			out.order = items
		case ptree.GROUP, ptree.GROUP_PARTIAL:
			g, err := b.buildGroupBy(c)
			if err != nil {
				return out, err
			}
			out.group = g
		case ptree.HAVING:
			h, err := b.buildExpr(c.Children[0])
			if err != nil {
				return out, err
			}
			out.having = h
		case ptree.LIMIT:
			l, err := b.buildExpr(c.Children[0])
			if err != nil {
				return out, err
			}
			out.limit = l
		default:
			return out, malformed(c, "unexpected clause in query tail")
		}
	}
	return out, nil
}

func (b *builder) buildLets(children []*ptree.Node) ([]ast.LetBinding, error) {
	out := make([]ast.LetBinding, 0, len(children))
	for _, c := range children {
		expr, err := b.buildExpr(c.Children[0])
		if err != nil {
			return nil, err
		}
		alias := ""
		if len(c.Children) > 1 {
			alias = c.Children[1].Token.Text
		}
		out = append(out, ast.LetBinding{Expr: expr, Alias: alias})
	}
	return out, nil
}

func (b *builder) buildOrderItems(children []*ptree.Node) ([]ast.OrderItem, error) {
	out := make([]ast.OrderItem, 0, len(children))
	for _, c := range children {
		expr, err := b.buildExpr(c.Children[0])
		if err != nil {
			return nil, err
		}
		out = append(out, ast.OrderItem{Expr: expr, Descending: c.MetaString("direction") == "desc"})
	}
	return out, nil
}

func (b *builder) buildGroupBy(node *ptree.Node) (*ast.GroupBy, error) {
	keys := make([]ast.GroupKey, 0, len(node.Children))
	for _, c := range node.Children {
		expr, err := b.buildExpr(c.Children[0])
		if err != nil {
			return nil, err
		}
		alias := ""
		if len(c.Children) > 1 {
			alias = c.Children[1].Token.Text
		}
		keys = append(keys, ast.GroupKey{Expr: expr, Alias: alias})
	}
	return &ast.GroupBy{Partial: node.Tag == ptree.GROUP_PARTIAL, Keys: keys, As: node.MetaString("group_as")}, nil
}

func (b *builder) buildSelectItems(children []*ptree.Node) ([]ast.SelectItem, error) {
	out := make([]ast.SelectItem, 0, len(children))
	for _, c := range children {
		switch c.Tag {
		case ptree.PROJECT_ALL:
			if len(c.Children) == 0 {
				out = append(out, ast.SelectItem{Star: true})
				continue
			}
			expr, err := b.buildExpr(c.Children[0])
			if err != nil {
				return nil, err
			}
			out = append(out, ast.SelectItem{Expr: expr, Star: true})
		case ptree.MEMBER:
			expr, err := b.buildExpr(c.Children[0])
			if err != nil {
				return nil, err
			}
			alias := ""
			if len(c.Children) > 1 {
				alias = c.Children[1].Token.Text
			}
			out = append(out, ast.SelectItem{Expr: expr, Alias: alias})
		default:
			return nil, malformed(c, "unexpected node in select list")
		}
	}
	return out, nil
}

func (b *builder) buildSelect(node *ptree.Node) (*ast.SelectQuery, error) {
	q := &ast.SelectQuery{Meta: metaFor(node.Token)}
	children := node.Children
	if len(children) > 0 && children[0].Tag == ptree.DISTINCT {
		q.Distinct = true
		children = children[1:]
	}

	split := 0
	for split < len(children) && !isTailTag(children[split].Tag) {
		split++
	}
	head, tail := children[:split], children[split:]

	if node.Tag == ptree.SELECT_VALUE {
		if len(head) != 1 {
			return nil, malformed(node, "SELECT VALUE takes exactly one value expression")
		}
		val, err := b.buildExpr(head[0])
		if err != nil {
			return nil, err
		}
		q.Value = val
	} else {
		items, err := b.buildSelectItems(head)
		if err != nil {
			return nil, err
		}
		q.Items = items
	}

	t, err := b.buildTail(tail)
	if err != nil {
		return nil, err
	}
	q.From, q.Lets, q.Where, q.OrderBy, q.Group, q.Having, q.Limit = t.from, t.lets, t.where, t.order, t.group, t.having, t.limit
	return q, nil
}

func (b *builder) buildPivot(node *ptree.Node) (*ast.PivotQuery, error) {
	if len(node.Children) < 2 {
		return nil, malformed(node, "PIVOT requires a value and a key")
	}
	value, err := b.buildExpr(node.Children[0])
	if err != nil {
		return nil, err
	}
	key, err := b.buildExpr(node.Children[1])
	if err != nil {
		return nil, err
	}
	t, err := b.buildTail(node.Children[2:])
	if err != nil {
		return nil, err
	}
	return &ast.PivotQuery{
		Meta: metaFor(node.Token), Value: value, Key: key,
		From: t.from, Lets: t.lets, Where: t.where, OrderBy: t.order, Group: t.group, Having: t.having, Limit: t.limit,
	}, nil
}

func (b *builder) buildWith(node *ptree.Node) (*ast.WithQuery, error) {
	if len(node.Children) == 0 {
		return nil, malformed(node, "WITH requires a final query")
	}
	bindingNodes := node.Children[:len(node.Children)-1]
	finalNode := node.Children[len(node.Children)-1]

	bindings := make([]ast.WithBinding, 0, len(bindingNodes))
	for _, c := range bindingNodes {
		q, err := b.buildQuery(c.Children[0])
		if err != nil {
			return nil, err
		}
		bindings = append(bindings, ast.WithBinding{
			Name:         c.Token.Text,
			Materialized: c.MetaBool("materialized"),
			Query:        q,
		})
	}
	final, err := b.buildQuery(finalNode)
	if err != nil {
		return nil, err
	}
	return &ast.WithQuery{Meta: metaFor(node.Token), Recursive: node.MetaBool("recursive"), Bindings: bindings, Query: final}, nil
}

var setOpKinds = map[string]ast.SetOpKind{
	"union":     ast.SetOpUnion,
	"union_all": ast.SetOpUnionAll,
	"intersect": ast.SetOpIntersect,
	"except":    ast.SetOpExcept,
}

func (b *builder) buildSetOp(node *ptree.Node) (*ast.SetOpQuery, error) {
	kind, ok := setOpKinds[node.Token.KeywordText]
	if !ok {
		return nil, malformed(node, "unrecognized set operator")
	}
	left, err := b.buildQuery(node.Children[0])
	if err != nil {
		return nil, err
	}
	right, err := b.buildQuery(node.Children[1])
	if err != nil {
		return nil, err
	}
	return &ast.SetOpQuery{Meta: metaFor(node.Token), Op: kind, Left: left, Right: right}, nil
}

func (b *builder) buildQuery(node *ptree.Node) (ast.Query, error) {
	switch node.Tag {
	case ptree.SELECT_LIST, ptree.SELECT_VALUE:
		return b.buildSelect(node)
	case ptree.PIVOT:
		return b.buildPivot(node)
	case ptree.WITH:
		return b.buildWith(node)
	case ptree.BINARY:
		if isSetOpKeyword(node.Token.KeywordText) {
			return b.buildSetOp(node)
		}
	}
	return nil, malformed(node, "expected a query node")
}

// -----------------------------------------------------------------------
// FROM tree
// -----------------------------------------------------------------------

var joinKindOf = map[ptree.Tag]ast.JoinKind{
	ptree.INNER_JOIN:       ast.JoinInner,
	ptree.LEFT_JOIN:        ast.JoinLeft,
	ptree.RIGHT_JOIN:       ast.JoinRight,
	ptree.OUTER_JOIN:       ast.JoinOuter,
	ptree.FROM_SOURCE_JOIN: ast.JoinInner,
}

func (b *builder) buildFromItem(node *ptree.Node) (*ast.FromItem, error) {
	source, err := b.buildExpr(node.Children[0])
	if err != nil {
		return nil, err
	}
	item := &ast.FromItem{Source: source, Unpivot: node.Tag == ptree.UNPIVOT}
	for _, c := range node.Children[1:] {
		switch c.Tag {
		case ptree.AS_ALIAS:
			item.As = c.Token.Text
		case ptree.AT_ALIAS:
			item.At = c.Token.Text
		case ptree.BY_ALIAS:
			item.By = c.Token.Text
		}
	}
	return item, nil
}

func (b *builder) buildFromTree(node *ptree.Node) (*ast.FromSource, error) {
	switch node.Tag {
	case ptree.FROM, ptree.UNPIVOT:
		item, err := b.buildFromItem(node)
		if err != nil {
			return nil, err
		}
		return &ast.FromSource{Item: item}, nil

	case ptree.FROM_SOURCE_JOIN, ptree.INNER_JOIN, ptree.LEFT_JOIN, ptree.RIGHT_JOIN, ptree.OUTER_JOIN:
		kind, ok := joinKindOf[node.Tag]
		if !ok {
			return nil, malformed(node, "unrecognized join tag")
		}
		left, err := b.buildFromTree(node.Children[0])
		if err != nil {
			return nil, err
		}
		right, err := b.buildFromItem(node.Children[1])
		if err != nil {
			return nil, err
		}
		fs := &ast.FromSource{
			Kind:     kind,
			Cross:    node.MetaBool("cross"),
			Implicit: node.MetaBool("implicit"),
			Left:     left,
			Right:    right,
		}
		if len(node.Children) > 2 {
			on, err := b.buildExpr(node.Children[2])
			if err != nil {
				return nil, err
			}
			fs.On = on
		}
		return fs, nil
	}
	return nil, malformed(node, "unrecognized FROM source node")
}

// -----------------------------------------------------------------------
// DML / DDL / EXEC
// -----------------------------------------------------------------------

func (b *builder) buildAssignments(children []*ptree.Node) ([]ast.Assignment, error) {
	out := make([]ast.Assignment, 0, len(children))
	for _, c := range children {
		target, err := b.buildExpr(c.Children[0])
		if err != nil {
			return nil, err
		}
		value, err := b.buildExpr(c.Children[1])
		if err != nil {
			return nil, err
		}
		out = append(out, ast.Assignment{Target: target, Value: value})
	}
	return out, nil
}

func (b *builder) buildOnConflict(node *ptree.Node) (*ast.OnConflict, error) {
	oc := &ast.OnConflict{}
	if len(node.Children) > 0 {
		where, err := b.buildExpr(node.Children[0])
		if err != nil {
			return nil, err
		}
		oc.Where = where
	}
	return oc, nil
}

var returningStatusOf = map[string]ast.ReturningStatus{
	"modified_old": ast.ReturningModifiedOld,
	"modified_new": ast.ReturningModifiedNew,
	"all_old":      ast.ReturningAllOld,
	"all_new":      ast.ReturningAllNew,
}

func (b *builder) buildReturning(node *ptree.Node) ([]ast.ReturningItem, error) {
	out := make([]ast.ReturningItem, 0, len(node.Children))
	for _, c := range node.Children {
		status, ok := returningStatusOf[c.MetaString("status")]
		if !ok {
			return nil, malformed(c, "unrecognized RETURNING status")
		}
		item := ast.ReturningItem{Status: status}
		if c.Tag == ptree.RETURNING_ELEM {
			target, err := b.buildExpr(c.Children[0])
			if err != nil {
				return nil, err
			}
			item.Target = target
		}
		out = append(out, item)
	}
	return out, nil
}

func (b *builder) buildInsertValue(node *ptree.Node) (*ast.InsertValueStmt, error) {
	path, err := b.buildExpr(node.Children[0])
	if err != nil {
		return nil, err
	}
	value, err := b.buildExpr(node.Children[1])
	if err != nil {
		return nil, err
	}
	stmt := &ast.InsertValueStmt{Meta: metaFor(node.Token), Path: path, Value: value}
	for _, c := range node.Children[2:] {
		if c.Tag == ptree.ON_CONFLICT {
			oc, err := b.buildOnConflict(c)
			if err != nil {
				return nil, err
			}
			stmt.OnConflict = oc
			continue
		}
		at, err := b.buildExpr(c)
		if err != nil {
			return nil, err
		}
		stmt.At = at
	}
	return stmt, nil
}

func (b *builder) buildDmlList(node *ptree.Node) (*ast.DmlList, error) {
	children := node.Children
	list := &ast.DmlList{Meta: metaFor(node.Token)}

	start := 0
	if len(children) > 0 && children[0].Tag == ptree.FROM {
		item, err := b.buildFromItem(children[0])
		if err != nil {
			return nil, err
		}
		list.From = item
		start = 1
	}

	end := len(children)
	if end > start && children[end-1].Tag == ptree.RETURNING {
		r, err := b.buildReturning(children[end-1])
		if err != nil {
			return nil, err
		}
		list.Returning = r
		end--
	}
	if end > start && children[end-1].Tag == ptree.WHERE {
		w, err := b.buildExpr(children[end-1].Children[0])
		if err != nil {
			return nil, err
		}
		list.Where = w
		end--
	}

	for _, c := range children[start:end] {
		op, err := b.buildStmt(c)
		if err != nil {
			return nil, err
		}
		list.Ops = append(list.Ops, op)
	}
	return list, nil
}

func (b *builder) buildStmt(node *ptree.Node) (ast.Stmt, error) {
	switch node.Tag {
	case ptree.DELETE:
		return ast.DeleteOp{Meta: metaFor(node.Token)}, nil

	case ptree.SET:
		assignments, err := b.buildAssignments(node.Children)
		if err != nil {
			return nil, err
		}
		return ast.SetStmt{Meta: metaFor(node.Token), Assignments: assignments}, nil

	case ptree.REMOVE:
		target, err := b.buildExpr(node.Children[0])
		if err != nil {
			return nil, err
		}
		return ast.RemoveStmt{Meta: metaFor(node.Token), Target: target}, nil

	case ptree.INSERT:
		path, err := b.buildExpr(node.Children[0])
		if err != nil {
			return nil, err
		}
		values, err := b.buildExpr(node.Children[1])
		if err != nil {
			return nil, err
		}
		return ast.InsertStmt{Meta: metaFor(node.Token), Path: path, Values: values}, nil

	case ptree.INSERT_VALUE:
		return b.buildInsertValue(node)

	case ptree.DML_LIST:
		return b.buildDmlList(node)

	case ptree.CREATE_TABLE:
		return ast.CreateTableStmt{Meta: metaFor(node.Token), Name: node.MetaString("name")}, nil

	case ptree.DROP_TABLE:
		return ast.DropTableStmt{Meta: metaFor(node.Token), Name: node.MetaString("name")}, nil

	case ptree.CREATE_INDEX:
		keys, _ := node.Meta["keys"].([]string)
		return ast.CreateIndexStmt{Meta: metaFor(node.Token), Table: node.MetaString("table"), Keys: keys}, nil

	case ptree.DROP_INDEX:
		return ast.DropIndexStmt{Meta: metaFor(node.Token), Name: node.MetaString("name"), Table: node.MetaString("table")}, nil

	case ptree.EXEC:
		args, err := b.buildExprList(node.Children)
		if err != nil {
			return nil, err
		}
		return ast.Exec{Meta: metaFor(node.Token), Name: node.MetaString("name"), Args: args}, nil
	}
	return nil, malformed(node, "unrecognized statement node")
}
