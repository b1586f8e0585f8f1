package parser_test

import (
	"strings"
	"testing"

	"github.com/ha1tch/partiqlparser/ast"
	_ "github.com/ha1tch/partiqlparser/lexer"
	. "github.com/ha1tch/partiqlparser/parser"
	"github.com/ha1tch/partiqlparser/perr"
)

func mustParse(t *testing.T, input string) ast.Node {
	t.Helper()
	node, err := ParseExprNode(input)
	if err != nil {
		t.Fatalf("unexpected parse error for %q: %v", input, err)
	}
	return node
}

func parseSelect(t *testing.T, input string) *ast.SelectQuery {
	t.Helper()
	node := mustParse(t, input)
	sel, ok := node.(*ast.SelectQuery)
	if !ok {
		t.Fatalf("expected *ast.SelectQuery, got %T", node)
	}
	return sel
}

func TestSelectProjection(t *testing.T) {
	tests := []struct {
		input    string
		expected int // number of projection items
	}{
		{"SELECT 1", 1},
		{"SELECT a, b, c FROM t", 3},
		{"SELECT * FROM users", 1},
		{"SELECT DISTINCT name FROM products", 1},
		{"SELECT a.*, b FROM t AS a, t2 AS b", 2},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			sel := parseSelect(t, tt.input)
			if len(sel.Items) != tt.expected {
				t.Errorf("expected %d projection items, got %d", tt.expected, len(sel.Items))
			}
		})
	}
}

func TestSelectDistinctAndValue(t *testing.T) {
	sel := parseSelect(t, "SELECT DISTINCT name FROM products")
	if !sel.Distinct {
		t.Error("expected Distinct to be true")
	}

	sel = parseSelect(t, "SELECT VALUE {'id': u.id} FROM users AS u")
	if sel.Value == nil {
		t.Fatal("expected a VALUE projection expression")
	}
	if _, ok := sel.Value.(ast.StructExpr); !ok {
		t.Errorf("expected a struct literal VALUE projection, got %T", sel.Value)
	}
}

func TestWhereClause(t *testing.T) {
	sel := parseSelect(t, "SELECT a FROM t WHERE a > 1")
	if sel.Where == nil {
		t.Fatal("expected a WHERE clause")
	}
	op, ok := sel.Where.(ast.NAryOp)
	if !ok {
		t.Fatalf("expected ast.NAryOp, got %T", sel.Where)
	}
	if op.Op != ">" {
		t.Errorf("expected operator '>', got %q", op.Op)
	}
}

func TestOperatorPrecedence(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"1 + 2 * 3", "(+ 1 (* 2 3))"},
		{"1 * 2 + 3", "(+ (* 1 2) 3)"},
		{"a OR b AND c", "(or a (and b c))"},
		{"NOT a AND b", "(and (not a) b)"},
		{"a = 1 OR b = 2 AND c = 3", "(or (= a 1) (and (= b 2) (= c 3)))"},
		{"1 || 2 + 3", "(|| 1 (+ 2 3))"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			sel := parseSelect(t, "SELECT "+tt.input)
			if len(sel.Items) != 1 {
				t.Fatalf("expected a single projection item, got %d", len(sel.Items))
			}
			got := sel.Items[0].Expr.String()
			if got != tt.want {
				t.Errorf("input %q: expected %q, got %q", tt.input, tt.want, got)
			}
		})
	}
}

func TestBetweenLikeInNegation(t *testing.T) {
	tests := []struct {
		input     string
		op        string
		legacyNot bool
	}{
		{"a BETWEEN 1 AND 10", "between", false},
		{"a NOT BETWEEN 1 AND 10", "between", true},
		{"a LIKE '%x%'", "like", false},
		{"a NOT LIKE '%x%'", "like", true},
		{"a IN (1, 2, 3)", "in", false},
		{"a NOT IN (1, 2, 3)", "in", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			sel := parseSelect(t, "SELECT "+tt.input)
			expr := sel.Items[0].Expr
			if tt.legacyNot {
				negated, ok := expr.(ast.NAryOp)
				if !ok || negated.Op != "not" {
					t.Fatalf("expected a NOT wrapper, got %T", expr)
				}
				if !negated.Meta.LegacyNot {
					t.Error("expected LegacyNot to be recorded on the NOT wrapper")
				}
				expr = negated.Operands[0]
			}
			op, ok := expr.(ast.NAryOp)
			if !ok {
				t.Fatalf("expected ast.NAryOp, got %T", expr)
			}
			if op.Op != tt.op {
				t.Errorf("expected op %q, got %q", tt.op, op.Op)
			}
		})
	}
}

func TestPathNavigation(t *testing.T) {
	sel := parseSelect(t, "SELECT u.profile.address.city FROM users AS u WHERE u.tags[0] = 'admin'")
	path, ok := sel.Items[0].Expr.(ast.Path)
	if !ok {
		t.Fatalf("expected ast.Path, got %T", sel.Items[0].Expr)
	}
	if len(path.Components) != 3 {
		t.Fatalf("expected 3 path components, got %d", len(path.Components))
	}
	for _, c := range path.Components {
		if _, ok := c.(ast.PathKey); !ok {
			t.Errorf("expected PathKey component, got %T", c)
		}
	}

	whereOp := sel.Where.(ast.NAryOp)
	indexPath := whereOp.Operands[0].(ast.Path)
	if _, ok := indexPath.Components[1].(ast.PathIndex); !ok {
		t.Errorf("expected PathIndex component, got %T", indexPath.Components[1])
	}
}

func TestWildcardPositions(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"bare star select list", "SELECT * FROM t"},
		{"path star select list", "SELECT a.* FROM t AS a"},
		{"bracket star path", "SELECT VALUE a[*] FROM t AS a"},
		{"count star aggregate", "SELECT COUNT(*) FROM t"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mustParse(t, tt.input)
		})
	}
}

func TestMultiplicationAfterWildcardDisambiguation(t *testing.T) {
	sel := parseSelect(t, "SELECT a * b FROM t")
	op, ok := sel.Items[0].Expr.(ast.NAryOp)
	if !ok {
		t.Fatalf("expected ast.NAryOp for multiplication, got %T", sel.Items[0].Expr)
	}
	if op.Op != "*" {
		t.Errorf("expected '*' operator, got %q", op.Op)
	}
}

func TestJoins(t *testing.T) {
	tests := []struct {
		name string
		in   string
		kind ast.JoinKind
	}{
		{"inner", "SELECT a FROM t1 AS t INNER JOIN t2 AS u ON t.id = u.id", ast.JoinInner},
		{"bare join defaults inner", "SELECT a FROM t1 AS t JOIN t2 AS u ON t.id = u.id", ast.JoinInner},
		{"left", "SELECT a FROM t1 AS t LEFT JOIN t2 AS u ON t.id = u.id", ast.JoinLeft},
		{"left outer", "SELECT a FROM t1 AS t LEFT OUTER JOIN t2 AS u ON t.id = u.id", ast.JoinLeft},
		{"right", "SELECT a FROM t1 AS t RIGHT JOIN t2 AS u ON t.id = u.id", ast.JoinRight},
		{"outer", "SELECT a FROM t1 AS t OUTER JOIN t2 AS u ON t.id = u.id", ast.JoinOuter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := parseSelect(t, tt.in)
			if sel.From.IsLeaf() {
				t.Fatal("expected a join node, got a leaf FROM source")
			}
			if sel.From.Kind != tt.kind {
				t.Errorf("expected join kind %v, got %v", tt.kind, sel.From.Kind)
			}
			if sel.From.Implicit {
				t.Error("expected an explicit join, not a comma join")
			}
		})
	}
}

func TestImplicitCommaJoin(t *testing.T) {
	sel := parseSelect(t, "SELECT a FROM t1 AS x, t2 AS y")
	if sel.From.IsLeaf() {
		t.Fatal("expected a join node for the comma join")
	}
	if !sel.From.Implicit {
		t.Error("expected an implicit (comma) join")
	}
	if sel.From.On != nil {
		t.Error("expected no ON condition for a comma join")
	}
}

func TestGroupByAndHaving(t *testing.T) {
	sel := parseSelect(t, "SELECT a, COUNT(*) FROM t GROUP BY a HAVING COUNT(*) > 1")
	if sel.Group == nil {
		t.Fatal("expected a GROUP BY clause")
	}
	if len(sel.Group.Keys) != 1 {
		t.Errorf("expected 1 group key, got %d", len(sel.Group.Keys))
	}
	if sel.Having == nil {
		t.Error("expected a HAVING clause")
	}
}

func TestGroupPartialAndGroupAs(t *testing.T) {
	sel := parseSelect(t, "SELECT a FROM t GROUP PARTIAL BY a GROUP AS g")
	if sel.Group == nil {
		t.Fatal("expected a GROUP BY clause")
	}
	if !sel.Group.Partial {
		t.Error("expected Partial to be true")
	}
	if sel.Group.As != "g" {
		t.Errorf("expected group alias 'g', got %q", sel.Group.As)
	}
}

func TestOrderByDirection(t *testing.T) {
	sel := parseSelect(t, "SELECT a FROM t ORDER BY a ASC, b DESC")
	if len(sel.OrderBy) != 2 {
		t.Fatalf("expected 2 ORDER BY items, got %d", len(sel.OrderBy))
	}
	if sel.OrderBy[0].Descending {
		t.Error("expected first item ascending")
	}
	if !sel.OrderBy[1].Descending {
		t.Error("expected second item descending")
	}
}

func TestLetClause(t *testing.T) {
	sel := parseSelect(t, "SELECT x FROM t LET a + 1 AS x")
	if len(sel.Lets) != 1 {
		t.Fatalf("expected 1 LET binding, got %d", len(sel.Lets))
	}
	if sel.Lets[0].Alias != "x" {
		t.Errorf("expected alias 'x', got %q", sel.Lets[0].Alias)
	}
}

func TestCaseExpression(t *testing.T) {
	sel := parseSelect(t, "SELECT CASE WHEN a > 1 THEN 'big' WHEN a > 0 THEN 'small' ELSE 'none' END FROM t")
	ce, ok := sel.Items[0].Expr.(ast.CaseExpr)
	if !ok {
		t.Fatalf("expected ast.CaseExpr, got %T", sel.Items[0].Expr)
	}
	if ce.Operand != nil {
		t.Error("expected a searched CASE (nil operand)")
	}
	if len(ce.Branches) != 2 {
		t.Fatalf("expected 2 branches, got %d", len(ce.Branches))
	}
	if ce.Else == nil {
		t.Error("expected an ELSE clause")
	}
}

func TestSimpleCaseExpression(t *testing.T) {
	sel := parseSelect(t, "SELECT CASE a WHEN 1 THEN 'one' ELSE 'other' END FROM t")
	ce := sel.Items[0].Expr.(ast.CaseExpr)
	if ce.Operand == nil {
		t.Error("expected a simple CASE with a non-nil operand")
	}
}

func TestCollectionConstructors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"list literal", "SELECT [1, 2, 3] FROM t"},
		{"bag literal", "SELECT <<1, 2, 3>> FROM t"},
		{"struct literal", "SELECT {'a': 1, 'b': 2} FROM t"},
		{"list constructor fn", "SELECT list(1, 2, 3) FROM t"},
		{"bag constructor fn", "SELECT bag(1, 2, 3) FROM t"},
		{"sexp constructor fn", "SELECT sexp(1, 2, 3) FROM t"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mustParse(t, tt.in)
		})
	}
}

func TestNestedConstructors(t *testing.T) {
	sel := parseSelect(t, "SELECT {'tags': ['a', 'b'], 'scores': <<1, 2>>} FROM t")
	st, ok := sel.Items[0].Expr.(ast.StructExpr)
	if !ok {
		t.Fatalf("expected ast.StructExpr, got %T", sel.Items[0].Expr)
	}
	if len(st.Fields) != 2 {
		t.Fatalf("expected 2 struct fields, got %d", len(st.Fields))
	}
	if _, ok := st.Fields[0].Value.(ast.SeqExpr); !ok {
		t.Errorf("expected a list literal value, got %T", st.Fields[0].Value)
	}
}

func TestSubqueryExpression(t *testing.T) {
	sel := parseSelect(t, "SELECT a FROM t WHERE a IN (SELECT b FROM u WHERE b > 1)")
	op := sel.Where.(ast.NAryOp)
	if op.Op != "in" {
		t.Fatalf("expected 'in' operator, got %q", op.Op)
	}
	if _, ok := op.Operands[1].(ast.SubqueryExpr); !ok {
		t.Errorf("expected a SubqueryExpr operand, got %T", op.Operands[1])
	}
}

func TestSetOperators(t *testing.T) {
	tests := []struct {
		name string
		in   string
		op   ast.SetOpKind
	}{
		{"union", "SELECT a FROM t1 UNION SELECT a FROM t2", ast.SetOpUnion},
		{"union all", "SELECT a FROM t1 UNION ALL SELECT a FROM t2", ast.SetOpUnionAll},
		{"intersect", "SELECT a FROM t1 INTERSECT SELECT a FROM t2", ast.SetOpIntersect},
		{"except", "SELECT a FROM t1 EXCEPT SELECT a FROM t2", ast.SetOpExcept},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node := mustParse(t, tt.in)
			so, ok := node.(*ast.SetOpQuery)
			if !ok {
				t.Fatalf("expected *ast.SetOpQuery, got %T", node)
			}
			if so.Op != tt.op {
				t.Errorf("expected op %v, got %v", tt.op, so.Op)
			}
		})
	}
}

func TestSetOperatorsAreLeftAssociative(t *testing.T) {
	node := mustParse(t, "SELECT a FROM t1 UNION SELECT a FROM t2 UNION SELECT a FROM t3")
	outer, ok := node.(*ast.SetOpQuery)
	if !ok {
		t.Fatalf("expected *ast.SetOpQuery, got %T", node)
	}
	if _, ok := outer.Left.(*ast.SetOpQuery); !ok {
		t.Errorf("expected left-associative nesting on the left, got %T", outer.Left)
	}
	if _, ok := outer.Right.(*ast.SelectQuery); !ok {
		t.Errorf("expected a plain SELECT on the right, got %T", outer.Right)
	}
}

func TestWithQuery(t *testing.T) {
	node := mustParse(t, "WITH RECURSIVE ancestry AS (SELECT p.id FROM people AS p) SELECT a.id FROM ancestry AS a")
	wq, ok := node.(*ast.WithQuery)
	if !ok {
		t.Fatalf("expected *ast.WithQuery, got %T", node)
	}
	if !wq.Recursive {
		t.Error("expected Recursive to be true")
	}
	if len(wq.Bindings) != 1 || wq.Bindings[0].Name != "ancestry" {
		t.Fatalf("expected 1 binding named 'ancestry', got %+v", wq.Bindings)
	}
}

func TestWithNotMaterialized(t *testing.T) {
	node := mustParse(t, "WITH x AS NOT MATERIALIZED (SELECT a FROM t) SELECT a FROM x")
	wq := node.(*ast.WithQuery)
	if wq.Bindings[0].Materialized {
		t.Error("expected Materialized to be false for NOT MATERIALIZED")
	}
}

func TestPivotQuery(t *testing.T) {
	node := mustParse(t, "PIVOT o.total AT o.month FROM orders AS o WHERE o.year = 2025")
	pq, ok := node.(*ast.PivotQuery)
	if !ok {
		t.Fatalf("expected *ast.PivotQuery, got %T", node)
	}
	if pq.Value == nil || pq.Key == nil {
		t.Fatal("expected both Value and Key to be set")
	}
}

func TestCastAndIsType(t *testing.T) {
	sel := parseSelect(t, "SELECT CAST(a AS DECIMAL(10, 2)) FROM t")
	typed, ok := sel.Items[0].Expr.(ast.Typed)
	if !ok {
		t.Fatalf("expected ast.Typed, got %T", sel.Items[0].Expr)
	}
	if typed.Op != ast.TypedCast {
		t.Error("expected TypedCast")
	}
	if typed.Type.Name != "decimal" {
		t.Errorf("expected type name 'decimal', got %q", typed.Type.Name)
	}
	if len(typed.Type.Parameters) != 2 || typed.Type.Parameters[0] != 10 || typed.Type.Parameters[1] != 2 {
		t.Errorf("expected parameters [10, 2], got %v", typed.Type.Parameters)
	}

	sel = parseSelect(t, "SELECT a IS VARCHAR FROM t")
	typed = sel.Items[0].Expr.(ast.Typed)
	if typed.Op != ast.TypedIs {
		t.Error("expected TypedIs")
	}
}

func TestDateAndTimeLiterals(t *testing.T) {
	sel := parseSelect(t, "SELECT DATE '2025-01-01', TIME '10:00:00', TIME WITH TIME ZONE '10:00:00+01:00' FROM t")
	if len(sel.Items) != 3 {
		t.Fatalf("expected 3 projection items, got %d", len(sel.Items))
	}
	if _, ok := sel.Items[0].Expr.(ast.DateLiteral); !ok {
		t.Errorf("expected ast.DateLiteral, got %T", sel.Items[0].Expr)
	}
	tl, ok := sel.Items[2].Expr.(ast.TimeLiteral)
	if !ok {
		t.Fatalf("expected ast.TimeLiteral, got %T", sel.Items[2].Expr)
	}
	if !tl.WithTimeZone {
		t.Error("expected WithTimeZone to be true")
	}
}

func TestAggregateCalls(t *testing.T) {
	tests := []struct {
		in         string
		quantifier ast.SetQuantifier
	}{
		{"SELECT COUNT(*) FROM t", ast.QuantifierDefault},
		{"SELECT SUM(a) FROM t", ast.QuantifierDefault},
		{"SELECT COUNT(DISTINCT a) FROM t", ast.QuantifierDistinct},
		{"SELECT SUM(ALL a) FROM t", ast.QuantifierAll},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			sel := parseSelect(t, tt.in)
			call, ok := sel.Items[0].Expr.(ast.AggregateCall)
			if !ok {
				t.Fatalf("expected ast.AggregateCall, got %T", sel.Items[0].Expr)
			}
			if call.Quantifier != tt.quantifier {
				t.Errorf("expected quantifier %v, got %v", tt.quantifier, call.Quantifier)
			}
		})
	}
}

func TestVariableScoping(t *testing.T) {
	sel := parseSelect(t, "SELECT @scoped FROM t")
	ref, ok := sel.Items[0].Expr.(ast.VariableRef)
	if !ok {
		t.Fatalf("expected ast.VariableRef, got %T", sel.Items[0].Expr)
	}
	if ref.Scope != ast.ScopeLexical {
		t.Error("expected a lexically-scoped (@) variable reference")
	}
}

func TestCaseSensitiveIdentifier(t *testing.T) {
	sel := parseSelect(t, `SELECT "MixedCase" FROM t`)
	ref, ok := sel.Items[0].Expr.(ast.VariableRef)
	if !ok {
		t.Fatalf("expected ast.VariableRef, got %T", sel.Items[0].Expr)
	}
	if !ref.CaseSensitive {
		t.Error("expected CaseSensitive to be true for a double-quoted identifier")
	}
}

func TestParameterPlaceholder(t *testing.T) {
	sel := parseSelect(t, "SELECT a FROM t WHERE a = ? AND b = ?")
	op := sel.Where.(ast.NAryOp)
	right := op.Operands[1].(ast.NAryOp).Operands[1]
	if p, ok := right.(ast.Parameter); !ok || p.Ordinal != 2 {
		t.Errorf("expected the second parameter to carry ordinal 2, got %+v", right)
	}
}

func TestInsertStatements(t *testing.T) {
	node := mustParse(t, "INSERT INTO orders VALUES (1, 2)")
	if _, ok := node.(ast.InsertStmt); !ok {
		t.Fatalf("expected ast.InsertStmt, got %T", node)
	}

	node = mustParse(t, "INSERT INTO orders VALUE {'id': 1} AT 'k1' ON CONFLICT WHERE orders.id = 1 DO NOTHING")
	iv, ok := node.(*ast.InsertValueStmt)
	if !ok {
		t.Fatalf("expected *ast.InsertValueStmt, got %T", node)
	}
	if iv.At == nil {
		t.Error("expected an AT position")
	}
	if iv.OnConflict == nil {
		t.Error("expected an ON CONFLICT clause")
	}
}

func TestUpdateAsDmlList(t *testing.T) {
	node := mustParse(t, "FROM orders AS o SET o.status = 'shipped' WHERE o.id = 7 RETURNING MODIFIED NEW *")
	list, ok := node.(*ast.DmlList)
	if !ok {
		t.Fatalf("expected *ast.DmlList, got %T", node)
	}
	if list.From == nil {
		t.Fatal("expected a FROM source")
	}
	if len(list.Ops) != 1 {
		t.Fatalf("expected 1 DML op, got %d", len(list.Ops))
	}
	if _, ok := list.Ops[0].(ast.SetStmt); !ok {
		t.Errorf("expected ast.SetStmt, got %T", list.Ops[0])
	}
	if list.Where == nil {
		t.Error("expected a WHERE clause")
	}
	if len(list.Returning) != 1 || list.Returning[0].Status != ast.ReturningModifiedNew {
		t.Errorf("expected a single MODIFIED NEW returning item, got %+v", list.Returning)
	}
}

func TestDeleteStatement(t *testing.T) {
	node := mustParse(t, "DELETE FROM orders WHERE id = 1")
	list, ok := node.(*ast.DmlList)
	if !ok {
		t.Fatalf("expected *ast.DmlList, got %T", node)
	}
	if _, ok := list.Ops[0].(ast.DeleteOp); !ok {
		t.Errorf("expected ast.DeleteOp, got %T", list.Ops[0])
	}
}

func TestDDLStatements(t *testing.T) {
	tests := []struct {
		in      string
		checker func(ast.Node) bool
	}{
		{"CREATE TABLE orders", func(n ast.Node) bool { _, ok := n.(ast.CreateTableStmt); return ok }},
		{"DROP TABLE orders", func(n ast.Node) bool { _, ok := n.(ast.DropTableStmt); return ok }},
		{"CREATE INDEX ON orders (customerId)", func(n ast.Node) bool { _, ok := n.(ast.CreateIndexStmt); return ok }},
		{"DROP INDEX idx_1 ON orders", func(n ast.Node) bool { _, ok := n.(ast.DropIndexStmt); return ok }},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			node := mustParse(t, tt.in)
			if !tt.checker(node) {
				t.Errorf("unexpected node type %T for %q", node, tt.in)
			}
		})
	}
}

func TestTrailingTokensRejected(t *testing.T) {
	_, err := ParseExprNode("SELECT a FROM t EXTRA")
	if err == nil {
		t.Fatal("expected an error for trailing tokens")
	}
	perrErr, ok := err.(*perr.Error)
	if !ok {
		t.Fatalf("expected *perr.Error, got %T", err)
	}
	if perrErr.Code != perr.TrailingTokens {
		t.Errorf("expected code %q, got %q", perr.TrailingTokens, perrErr.Code)
	}
}

func TestExtraAfterSemicolonRejected(t *testing.T) {
	_, err := ParseExprNode("SELECT a FROM t; SELECT b FROM u")
	if err == nil {
		t.Fatal("expected an error for extra statements after a semicolon")
	}
	perrErr := err.(*perr.Error)
	if perrErr.Code != perr.ExtraAfterSemicolon {
		t.Errorf("expected code %q, got %q", perr.ExtraAfterSemicolon, perrErr.Code)
	}
}

func TestSingleTrailingSemicolonAccepted(t *testing.T) {
	mustParse(t, "SELECT a FROM t;")
}

func TestMalformedSelectReportsExpectedExpression(t *testing.T) {
	_, err := ParseExprNode("SELECT FROM t")
	if err == nil {
		t.Fatal("expected an error")
	}
	perrErr := err.(*perr.Error)
	if perrErr.Code != perr.ExpectedExpression {
		t.Errorf("expected code %q, got %q", perr.ExpectedExpression, perrErr.Code)
	}
}

func TestMixedWildcardRejected(t *testing.T) {
	_, err := ParseExprNode("SELECT *, a FROM t")
	if err == nil {
		t.Fatal("expected an error for a wildcard mixed with other items")
	}
	perrErr := err.(*perr.Error)
	if perrErr.Code != perr.AsteriskNotAloneInSelectList {
		t.Errorf("expected code %q, got %q", perr.AsteriskNotAloneInSelectList, perrErr.Code)
	}
}

func TestSexpRenderShape(t *testing.T) {
	rendered, err := Parse("SELECT a, b FROM t WHERE a > 1 ORDER BY b DESC")
	if err != nil {
		t.Fatalf("unexpected render error: %v", err)
	}
	if !strings.HasPrefix(rendered, "(") || !strings.HasSuffix(rendered, ")") {
		t.Errorf("expected a parenthesized s-expression, got %q", rendered)
	}
	if !strings.Contains(rendered, "select") {
		t.Errorf("expected the rendered form to mention 'select', got %q", rendered)
	}
}
