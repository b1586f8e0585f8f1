// Package sexp implements the canonical AST-to-s-expression mapping
// (version V0, §6c): a fixed, stable-ordered textual form every AST node
// renders to, used for debugging output and for comparing parse results
// as text. The mapping is one-way: this package has no reader that parses
// the rendered form back into an AST.
package sexp

import (
	"strconv"
	"strings"

	"github.com/ha1tch/partiqlparser/ast"
)

// Value is one node of the rendered s-expression tree: either a bare
// symbol/literal or a parenthesized list of further values.
type Value interface {
	String() string
}

// Sym is an unquoted symbol: a tag name, keyword, or pre-formatted
// number.
type Sym string

func (s Sym) String() string { return string(s) }

// Str is a double-quoted string atom.
type Str string

func (s Str) String() string { return strconv.Quote(string(s)) }

// List is a parenthesized, space-separated sequence of values.
type List struct {
	Items []Value
}

func (l List) String() string {
	parts := make([]string, len(l.Items))
	for i, it := range l.Items {
		parts[i] = it.String()
	}
	return "(" + strings.Join(parts, " ") + ")"
}

func tag(name string, items ...Value) List {
	return List{Items: append([]Value{Sym(name)}, items...)}
}

// Render converts an AST node (whatever ParseExprNode returned — a
// Query or a Stmt) to its canonical s-expression text.
func Render(node ast.Node) string {
	return renderNode(node).String()
}

func renderNode(node ast.Node) Value {
	switch n := node.(type) {
	case ast.Query:
		return renderQuery(n)
	case ast.Stmt:
		return renderStmt(n)
	case ast.Expr:
		return renderExpr(n)
	}
	return Sym("nil")
}

// -----------------------------------------------------------------------
// Expressions
// -----------------------------------------------------------------------

func renderExpr(e ast.Expr) Value {
	if e == nil {
		return Sym("nil")
	}
	switch v := e.(type) {
	case ast.NullLiteral:
		return Sym("null")
	case ast.MissingLiteral:
		return Sym("missing")
	case ast.BoolLiteral:
		return tag("bool", Sym(strconv.FormatBool(v.Value)))
	case ast.IntLiteral:
		return tag("int", Sym(strconv.FormatInt(v.Value, 10)))
	case ast.FloatLiteral:
		return tag("float", Sym(strconv.FormatFloat(v.Value, 'g', -1, 64)))
	case ast.StringLiteral:
		return tag("string", Str(v.Value))
	case ast.IonLiteral:
		return tag("ion", Str(v.Raw))
	case ast.VariableRef:
		name := "var"
		if v.Scope == ast.ScopeLexical {
			name = "lexical-var"
		}
		items := []Value{Str(v.Name)}
		if v.CaseSensitive {
			items = append(items, Sym("case-sensitive"))
		}
		return tag(name, items...)
	case ast.Path:
		items := []Value{renderExpr(v.Root)}
		for _, c := range v.Components {
			items = append(items, renderPathComponent(c))
		}
		return tag("path", items...)
	case ast.NAryOp:
		items := make([]Value, 0, len(v.Operands)+1)
		items = append(items, Sym(v.Op))
		for _, o := range v.Operands {
			items = append(items, renderExpr(o))
		}
		return tag("op", items...)
	case ast.Typed:
		kind := "cast"
		if v.Op == ast.TypedIs {
			kind = "is"
		}
		return tag(kind, renderExpr(v.Operand), renderDataType(v.Type))
	case ast.CaseExpr:
		items := []Value{}
		if v.Operand != nil {
			items = append(items, tag("operand", renderExpr(v.Operand)))
		}
		for _, br := range v.Branches {
			items = append(items, tag("when", renderExpr(br.When), renderExpr(br.Then)))
		}
		if v.Else != nil {
			items = append(items, tag("else", renderExpr(v.Else)))
		}
		return tag("case", items...)
	case ast.SeqExpr:
		name := "list"
		switch v.Kind {
		case ast.SeqBag:
			name = "bag"
		case ast.SeqSexp:
			name = "sexp"
		}
		items := make([]Value, 0, len(v.Elements))
		for _, el := range v.Elements {
			items = append(items, renderExpr(el))
		}
		return tag(name, items...)
	case ast.StructExpr:
		items := make([]Value, 0, len(v.Fields))
		for _, f := range v.Fields {
			items = append(items, tag("field", renderExpr(f.Name), renderExpr(f.Value)))
		}
		return tag("struct", items...)
	case ast.Parameter:
		return tag("param", Sym(strconv.Itoa(v.Ordinal)))
	case ast.DateLiteral:
		return tag("date", Str(v.Text))
	case ast.TimeLiteral:
		name := "time"
		if v.WithTimeZone {
			name = "time-with-time-zone"
		}
		return tag(name, Str(v.Text), Sym(strconv.Itoa(v.Precision)))
	case ast.AggregateCall:
		if v.Wildcard {
			return tag("agg", Sym(v.Name), Sym("*"))
		}
		q := quantifierSym(v.Quantifier)
		if q == "" {
			return tag("agg", Sym(v.Name), renderExpr(v.Arg))
		}
		return tag("agg", Sym(v.Name), Sym(q), renderExpr(v.Arg))
	case ast.CallExpr:
		items := make([]Value, 0, len(v.Args)+1)
		items = append(items, Sym(v.Name))
		for _, a := range v.Args {
			items = append(items, renderExpr(a))
		}
		return tag("call", items...)
	case ast.SubqueryExpr:
		return tag("subquery", renderQuery(v.Query))
	case ast.Exec:
		items := make([]Value, 0, len(v.Args)+1)
		items = append(items, Str(v.Name))
		for _, a := range v.Args {
			items = append(items, renderExpr(a))
		}
		return tag("exec", items...)
	}
	return Sym("unknown-expr")
}

func quantifierSym(q ast.SetQuantifier) string {
	switch q {
	case ast.QuantifierAll:
		return "all"
	case ast.QuantifierDistinct:
		return "distinct"
	}
	return ""
}

func renderPathComponent(c ast.PathComponent) Value {
	switch p := c.(type) {
	case ast.PathKey:
		if p.CaseSensitive {
			return tag("key-cs", Str(p.Name))
		}
		return tag("key", Str(p.Name))
	case ast.PathIndex:
		return tag("index", renderExpr(p.Index))
	case ast.PathWildcard:
		return Sym("wildcard")
	case ast.PathUnpivotWildcard:
		return Sym("unpivot-wildcard")
	}
	return Sym("unknown-path-component")
}

func renderDataType(t ast.DataType) Value {
	items := []Value{Sym(t.Name)}
	for _, p := range t.Parameters {
		items = append(items, Sym(strconv.FormatInt(p, 10)))
	}
	return tag("type", items...)
}

// -----------------------------------------------------------------------
// FROM trees and clause helpers
// -----------------------------------------------------------------------

func renderFromItem(item *ast.FromItem) Value {
	if item == nil {
		return Sym("nil")
	}
	items := []Value{renderExpr(item.Source)}
	if item.Unpivot {
		items = append(items, Sym("unpivot"))
	}
	if item.As != "" {
		items = append(items, tag("as", Str(item.As)))
	}
	if item.At != "" {
		items = append(items, tag("at", Str(item.At)))
	}
	if item.By != "" {
		items = append(items, tag("by", Str(item.By)))
	}
	return tag("source", items...)
}

func renderFromSource(fs *ast.FromSource) Value {
	if fs == nil {
		return Sym("nil")
	}
	if fs.IsLeaf() {
		return renderFromItem(fs.Item)
	}
	items := []Value{Sym(strings.ToLower(fs.Kind.String())), renderFromSource(fs.Left), renderFromItem(fs.Right)}
	if fs.Cross {
		items = append(items, Sym("cross"))
	}
	if fs.Implicit {
		items = append(items, Sym("implicit"))
	}
	if fs.On != nil {
		items = append(items, tag("on", renderExpr(fs.On)))
	}
	return tag("join", items...)
}

func renderSelectItems(items []ast.SelectItem) Value {
	out := make([]Value, 0, len(items))
	for _, it := range items {
		parts := []Value{}
		if it.Star {
			if it.Expr != nil {
				parts = append(parts, renderExpr(it.Expr), Sym("*"))
			} else {
				parts = append(parts, Sym("*"))
			}
		} else {
			parts = append(parts, renderExpr(it.Expr))
			if it.Alias != "" {
				parts = append(parts, tag("as", Str(it.Alias)))
			}
		}
		out = append(out, tag("item", parts...))
	}
	return tag("items", out...)
}

func renderLets(lets []ast.LetBinding) Value {
	out := make([]Value, 0, len(lets))
	for _, l := range lets {
		out = append(out, tag("binding", renderExpr(l.Expr), Str(l.Alias)))
	}
	return tag("let", out...)
}

func renderOrderBy(items []ast.OrderItem) Value {
	out := make([]Value, 0, len(items))
	for _, it := range items {
		dir := "asc"
		if it.Descending {
			dir = "desc"
		}
		out = append(out, tag("sort", renderExpr(it.Expr), Sym(dir)))
	}
	return tag("order-by", out...)
}

func renderGroupBy(g *ast.GroupBy) Value {
	if g == nil {
		return Sym("nil")
	}
	keys := make([]Value, 0, len(g.Keys))
	for _, k := range g.Keys {
		parts := []Value{renderExpr(k.Expr)}
		if k.Alias != "" {
			parts = append(parts, tag("as", Str(k.Alias)))
		}
		keys = append(keys, tag("key", parts...))
	}
	name := "group"
	if g.Partial {
		name = "group-partial"
	}
	items := []Value{List{Items: keys}}
	if g.As != "" {
		items = append(items, tag("group-as", Str(g.As)))
	}
	return tag(name, items...)
}

func renderQueryTail(items []Value, from *ast.FromSource, lets []ast.LetBinding, where ast.Expr, order []ast.OrderItem, group *ast.GroupBy, having, limit ast.Expr) []Value {
	if from != nil {
		items = append(items, tag("from", renderFromSource(from)))
	}
	if len(lets) > 0 {
		items = append(items, renderLets(lets))
	}
	if where != nil {
		items = append(items, tag("where", renderExpr(where)))
	}
	if group != nil {
		items = append(items, renderGroupBy(group))
	}
	if having != nil {
		items = append(items, tag("having", renderExpr(having)))
	}
	if len(order) > 0 {
		items = append(items, renderOrderBy(order))
	}
	if limit != nil {
		items = append(items, tag("limit", renderExpr(limit)))
	}
	return items
}

// -----------------------------------------------------------------------
// Queries
// -----------------------------------------------------------------------

func renderQuery(q ast.Query) Value {
	switch v := q.(type) {
	case *ast.SelectQuery:
		items := []Value{}
		if v.Distinct {
			items = append(items, Sym("distinct"))
		}
		if v.Value != nil {
			items = append(items, tag("value", renderExpr(v.Value)))
		} else {
			items = append(items, renderSelectItems(v.Items))
		}
		items = renderQueryTail(items, v.From, v.Lets, v.Where, v.OrderBy, v.Group, v.Having, v.Limit)
		return tag("select", items...)

	case *ast.PivotQuery:
		items := []Value{tag("pivot-value", renderExpr(v.Value)), tag("pivot-key", renderExpr(v.Key))}
		items = renderQueryTail(items, v.From, v.Lets, v.Where, v.OrderBy, v.Group, v.Having, v.Limit)
		return tag("pivot", items...)

	case *ast.WithQuery:
		items := []Value{}
		if v.Recursive {
			items = append(items, Sym("recursive"))
		}
		for _, bnd := range v.Bindings {
			mat := "materialized"
			if !bnd.Materialized {
				mat = "not-materialized"
			}
			items = append(items, tag("binding", Str(bnd.Name), Sym(mat), renderQuery(bnd.Query)))
		}
		items = append(items, renderQuery(v.Query))
		return tag("with", items...)

	case *ast.SetOpQuery:
		return tag(setOpName(v.Op), renderQuery(v.Left), renderQuery(v.Right))
	}
	return Sym("unknown-query")
}

func setOpName(op ast.SetOpKind) string {
	switch op {
	case ast.SetOpUnionAll:
		return "union-all"
	case ast.SetOpIntersect:
		return "intersect"
	case ast.SetOpExcept:
		return "except"
	}
	return "union"
}

// -----------------------------------------------------------------------
// Statements
// -----------------------------------------------------------------------

func renderReturning(items []ast.ReturningItem) Value {
	out := make([]Value, 0, len(items))
	for _, it := range items {
		parts := []Value{Sym(returningStatusName(it.Status))}
		if it.Target != nil {
			parts = append(parts, renderExpr(it.Target))
		} else {
			parts = append(parts, Sym("*"))
		}
		out = append(out, tag("returning-item", parts...))
	}
	return tag("returning", out...)
}

func returningStatusName(s ast.ReturningStatus) string {
	switch s {
	case ast.ReturningModifiedNew:
		return "modified-new"
	case ast.ReturningAllOld:
		return "all-old"
	case ast.ReturningAllNew:
		return "all-new"
	}
	return "modified-old"
}

func renderAssignments(items []ast.Assignment) Value {
	out := make([]Value, 0, len(items))
	for _, a := range items {
		out = append(out, tag("assign", renderExpr(a.Target), renderExpr(a.Value)))
	}
	return tag("assignments", out...)
}

func renderStmt(s ast.Stmt) Value {
	switch v := s.(type) {
	case ast.InsertStmt:
		return tag("insert", renderExpr(v.Path), renderExpr(v.Values))

	case *ast.InsertValueStmt:
		items := []Value{renderExpr(v.Path), renderExpr(v.Value)}
		if v.At != nil {
			items = append(items, tag("at", renderExpr(v.At)))
		}
		if v.OnConflict != nil {
			oc := []Value{}
			if v.OnConflict.Where != nil {
				oc = append(oc, tag("where", renderExpr(v.OnConflict.Where)))
			}
			items = append(items, tag("on-conflict", oc...))
		}
		return tag("insert-value", items...)

	case ast.SetStmt:
		return tag("set", renderAssignments(v.Assignments))

	case ast.RemoveStmt:
		return tag("remove", renderExpr(v.Target))

	case ast.DeleteOp:
		return Sym("delete")

	case *ast.DmlList:
		items := []Value{}
		if v.From != nil {
			items = append(items, tag("from", renderFromItem(v.From)))
		}
		ops := make([]Value, 0, len(v.Ops))
		for _, op := range v.Ops {
			ops = append(ops, renderStmt(op))
		}
		items = append(items, tag("ops", ops...))
		if v.Where != nil {
			items = append(items, tag("where", renderExpr(v.Where)))
		}
		if len(v.Returning) > 0 {
			items = append(items, renderReturning(v.Returning))
		}
		return tag("dml", items...)

	case ast.CreateTableStmt:
		return tag("create-table", Str(v.Name))

	case ast.DropTableStmt:
		return tag("drop-table", Str(v.Name))

	case ast.CreateIndexStmt:
		keys := make([]Value, 0, len(v.Keys))
		for _, k := range v.Keys {
			keys = append(keys, Str(k))
		}
		return tag("create-index", Str(v.Table), List{Items: keys})

	case ast.DropIndexStmt:
		return tag("drop-index", Str(v.Name), Str(v.Table))

	case ast.Exec:
		return renderExpr(v)
	}
	return Sym("unknown-stmt")
}
