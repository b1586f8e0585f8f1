// Package partiqlparser provides a parser for PartiQL, the SQL-compatible
// query language for structured, semi-structured and nested data.
//
// This package parses PartiQL statements into a typed Abstract Syntax
// Tree (package ast) that downstream code can analyze, transform or
// render back out, either as that typed tree or as the canonical
// s-expression form.
//
// Example usage:
//
//	node, err := partiqlparser.ParseExprNode(`SELECT a, b FROM t WHERE a > 1`)
//	if err != nil {
//	    // handle error
//	}
//	// work with node
package partiqlparser

import (
	"context"

	"github.com/ha1tch/partiqlparser/ast"
	"github.com/ha1tch/partiqlparser/lexer"
	"github.com/ha1tch/partiqlparser/parser"
	"github.com/ha1tch/partiqlparser/token"
)

// ParseExprNode parses source into the typed AST (§6a of the downstream
// contract): a single top-level statement, validated and with no
// trailing tokens.
func ParseExprNode(source string) (ast.Node, error) {
	return parser.ParseExprNode(source)
}

// ParseExprNodeContext is ParseExprNode with an explicit cancellation
// context; cancelling ctx aborts the parse in progress.
func ParseExprNodeContext(ctx context.Context, source string) (ast.Node, error) {
	return parser.ParseExprNodeContext(ctx, source)
}

// ParseASTStatement is ParseExprNode, mapped to the public Statement
// alias (§6b).
func ParseASTStatement(source string) (Statement, error) {
	return parser.ParseASTStatement(source)
}

// Parse parses source and renders the resulting AST to the canonical
// s-expression form (§6c).
func Parse(source string) (string, error) {
	return parser.Parse(source)
}

// Tokenize returns every token the reference lexer produces from input,
// including the terminating EOF.
func Tokenize(input string) []token.Token {
	return lexer.Tokenize(input)
}

// Re-export types for convenience.
type (
	Node     = ast.Node
	Expr     = ast.Expr
	Query    = ast.Query
	Stmt     = ast.Stmt
	Token    = token.Token
	DataType = ast.DataType
)

// Statement is the public AST enum surface: every node ParseExprNode can
// return.
type Statement = parser.Statement

// Literal and reference node types.
type (
	NullLiteral    = ast.NullLiteral
	MissingLiteral = ast.MissingLiteral
	BoolLiteral    = ast.BoolLiteral
	IntLiteral     = ast.IntLiteral
	FloatLiteral   = ast.FloatLiteral
	StringLiteral  = ast.StringLiteral
	IonLiteral     = ast.IonLiteral
	VariableRef    = ast.VariableRef
	DateLiteral    = ast.DateLiteral
	TimeLiteral    = ast.TimeLiteral
	Parameter      = ast.Parameter
)

// Path navigation types.
type (
	PathComponent       = ast.PathComponent
	PathKey             = ast.PathKey
	PathIndex           = ast.PathIndex
	PathWildcard        = ast.PathWildcard
	PathUnpivotWildcard = ast.PathUnpivotWildcard
	Path                = ast.Path
)

// Operator, constructor and call expression types.
type (
	NAryOp        = ast.NAryOp
	Typed         = ast.Typed
	CaseBranch    = ast.CaseBranch
	CaseExpr      = ast.CaseExpr
	SeqExpr       = ast.SeqExpr
	StructField   = ast.StructField
	StructExpr    = ast.StructExpr
	AggregateCall = ast.AggregateCall
	CallExpr      = ast.CallExpr
	SubqueryExpr  = ast.SubqueryExpr
	Exec          = ast.Exec
)

// FROM tree and query types.
type (
	FromItem    = ast.FromItem
	FromSource  = ast.FromSource
	SelectItem  = ast.SelectItem
	LetBinding  = ast.LetBinding
	GroupKey    = ast.GroupKey
	GroupBy     = ast.GroupBy
	OrderItem   = ast.OrderItem
	SelectQuery = ast.SelectQuery
	PivotQuery  = ast.PivotQuery
	WithBinding = ast.WithBinding
	WithQuery   = ast.WithQuery
	SetOpQuery  = ast.SetOpQuery
)

// DML / DDL statement types.
type (
	InsertStmt      = ast.InsertStmt
	OnConflict      = ast.OnConflict
	InsertValueStmt = ast.InsertValueStmt
	Assignment      = ast.Assignment
	SetStmt         = ast.SetStmt
	RemoveStmt      = ast.RemoveStmt
	DeleteOp        = ast.DeleteOp
	ReturningItem   = ast.ReturningItem
	DmlList         = ast.DmlList
	CreateTableStmt = ast.CreateTableStmt
	DropTableStmt   = ast.DropTableStmt
	CreateIndexStmt = ast.CreateIndexStmt
	DropIndexStmt   = ast.DropIndexStmt
)

// Visitor defines an interface for AST visitors, invoked once per node
// Walk descends into; returning nil stops the descent below that node.
type Visitor interface {
	Visit(node ast.Node) Visitor
}

// Walk traverses an AST in depth-first order, following every child
// relationship the tree can express: expression operands, query clauses,
// FROM join trees and DML operation lists.
func Walk(v Visitor, node ast.Node) {
	if node == nil {
		return
	}
	if v = v.Visit(node); v == nil {
		return
	}

	// Literal, operator and constructor nodes all compile to values (not
	// pointers) of their concrete type; only the query nodes and the two
	// multi-field DML wrappers (InsertValueStmt, DmlList) are built as
	// pointers. The switch below follows build.go's own choice of receiver
	// for each type.
	switch n := node.(type) {
	case ast.Path:
		Walk(v, n.Root)
		for _, c := range n.Components {
			Walk(v, c)
		}
	case ast.PathIndex:
		Walk(v, n.Index)
	case ast.NAryOp:
		for _, o := range n.Operands {
			Walk(v, o)
		}
	case ast.Typed:
		Walk(v, n.Operand)
	case ast.CaseExpr:
		if n.Operand != nil {
			Walk(v, n.Operand)
		}
		for _, br := range n.Branches {
			Walk(v, br.When)
			Walk(v, br.Then)
		}
		if n.Else != nil {
			Walk(v, n.Else)
		}
	case ast.SeqExpr:
		for _, e := range n.Elements {
			Walk(v, e)
		}
	case ast.StructExpr:
		for _, f := range n.Fields {
			Walk(v, f.Name)
			Walk(v, f.Value)
		}
	case ast.AggregateCall:
		if n.Arg != nil {
			Walk(v, n.Arg)
		}
	case ast.CallExpr:
		for _, a := range n.Args {
			Walk(v, a)
		}
	case ast.SubqueryExpr:
		Walk(v, n.Query)
	case ast.Exec:
		for _, a := range n.Args {
			Walk(v, a)
		}
	case *ast.SelectQuery:
		walkSelectTail(v, n.Items, n.Value, n.From, n.Lets, n.Where, n.OrderBy, n.Group, n.Having, n.Limit)
	case *ast.PivotQuery:
		Walk(v, n.Value)
		Walk(v, n.Key)
		walkSelectTail(v, nil, nil, n.From, n.Lets, n.Where, n.OrderBy, n.Group, n.Having, n.Limit)
	case *ast.WithQuery:
		for _, b := range n.Bindings {
			Walk(v, b.Query)
		}
		Walk(v, n.Query)
	case *ast.SetOpQuery:
		Walk(v, n.Left)
		Walk(v, n.Right)
	case ast.InsertStmt:
		Walk(v, n.Path)
		Walk(v, n.Values)
	case *ast.InsertValueStmt:
		Walk(v, n.Path)
		Walk(v, n.Value)
		if n.At != nil {
			Walk(v, n.At)
		}
		if n.OnConflict != nil && n.OnConflict.Where != nil {
			Walk(v, n.OnConflict.Where)
		}
	case ast.SetStmt:
		for _, a := range n.Assignments {
			Walk(v, a.Target)
			Walk(v, a.Value)
		}
	case ast.RemoveStmt:
		Walk(v, n.Target)
	case *ast.DmlList:
		if n.From != nil {
			Walk(v, n.From.Source)
		}
		for _, op := range n.Ops {
			Walk(v, op)
		}
		if n.Where != nil {
			Walk(v, n.Where)
		}
		for _, r := range n.Returning {
			if r.Target != nil {
				Walk(v, r.Target)
			}
		}
	}
}

func walkFromSource(v Visitor, f *ast.FromSource) {
	if f == nil {
		return
	}
	if f.IsLeaf() {
		Walk(v, f.Item.Source)
		return
	}
	walkFromSource(v, f.Left)
	Walk(v, f.Right.Source)
	if f.On != nil {
		Walk(v, f.On)
	}
}

func walkSelectTail(v Visitor, items []ast.SelectItem, value Expr, from *ast.FromSource, lets []ast.LetBinding, where Expr, order []ast.OrderItem, group *ast.GroupBy, having, limit Expr) {
	for _, it := range items {
		if it.Expr != nil {
			Walk(v, it.Expr)
		}
	}
	if value != nil {
		Walk(v, value)
	}
	walkFromSource(v, from)
	for _, l := range lets {
		Walk(v, l.Expr)
	}
	if where != nil {
		Walk(v, where)
	}
	if group != nil {
		for _, k := range group.Keys {
			Walk(v, k.Expr)
		}
	}
	for _, o := range order {
		Walk(v, o.Expr)
	}
	if having != nil {
		Walk(v, having)
	}
	if limit != nil {
		Walk(v, limit)
	}
}

// Inspector collects every node of a parsed tree for repeated, cheap
// lookups (the spec's downstream consumers analyze a parsed statement
// more than once; re-walking on every query would be wasteful).
type Inspector struct {
	nodes []ast.Node
}

type collector struct{ insp *Inspector }

func (c collector) Visit(node ast.Node) Visitor {
	c.insp.nodes = append(c.insp.nodes, node)
	return c
}

// NewInspector walks node and returns an Inspector over every node found.
func NewInspector(node ast.Node) *Inspector {
	insp := &Inspector{}
	Walk(collector{insp: insp}, node)
	return insp
}

// FindVariables returns every variable reference in the tree.
func (insp *Inspector) FindVariables() []ast.VariableRef {
	var out []ast.VariableRef
	for _, node := range insp.nodes {
		if ref, ok := node.(ast.VariableRef); ok {
			out = append(out, ref)
		}
	}
	return out
}

// FindCalls returns every function and aggregate call in the tree.
func (insp *Inspector) FindCalls() []ast.Node {
	var out []ast.Node
	for _, node := range insp.nodes {
		switch node.(type) {
		case ast.CallExpr, ast.AggregateCall:
			out = append(out, node)
		}
	}
	return out
}

// FindSelectQueries returns every query node in the tree: SELECT, PIVOT,
// WITH and set-operation queries alike.
func (insp *Inspector) FindSelectQueries() []ast.Query {
	var out []ast.Query
	for _, node := range insp.nodes {
		if q, ok := node.(ast.Query); ok {
			out = append(out, q)
		}
	}
	return out
}
