// Package parser implements the PartiQL recursive-descent parser: a
// Pratt expression parser fused with context-sensitive keyword-driven
// statement sub-parsers, producing an intermediate parse tree (package
// ptree) which is then validated and compiled into a typed AST (package
// ast).
//
// The package exposes the three downstream surface methods named in the
// spec: ParseExprNode, ParseASTStatement and Parse (canonical
// s-expression form).
package parser

import (
	"context"

	"github.com/ha1tch/partiqlparser/ast"
	"github.com/ha1tch/partiqlparser/perr"
	"github.com/ha1tch/partiqlparser/ptree"
	"github.com/ha1tch/partiqlparser/sexp"
	"github.com/ha1tch/partiqlparser/token"
	"github.com/ha1tch/partiqlparser/view"
)

// Lexer is the upstream collaborator: anything that can turn source text
// into a fully-materialized, EOF-terminated token slice. The reference
// implementation lives in package lexer; this package never depends on
// it directly — SetDefaultLexer (or the lexer package's own init) wires
// a concrete implementation in.
type Lexer interface {
	Tokenize(source string) []token.Token
}

// Cancellation is the cooperative cancellation signal described in §5 of
// the spec ("the platform's thread-interrupt signal or an injected
// cancellation token"). context.Context.Done() is the idiomatic Go
// equivalent, so ParseExprNodeContext accepts a context.Context
// directly; ctxCancellation adapts it to this interface.
type Cancellation interface {
	Done() bool
}

type ctxCancellation struct{ ctx context.Context }

func (c ctxCancellation) Done() bool {
	select {
	case <-c.ctx.Done():
		return true
	default:
		return false
	}
}

// noCancellation never reports done; used when no context is supplied.
type noCancellation struct{}

func (noCancellation) Done() bool { return false }

// state threads the cancellation token through every sub-parser. It is
// never mutated: every sub-parser is a pure function of (state, view) as
// required by the spec's concurrency model (§5) — state only carries a
// read-only capability, never parse progress.
type state struct {
	cancel Cancellation
}

func (s *state) checkCancelled(v view.View) error {
	if s.cancel != nil && s.cancel.Done() {
		return perr.New(perr.Interrupted, "parsing was cancelled", headTokenPtr(v), nil)
	}
	return nil
}

func headTokenPtr(v view.View) *token.Token {
	h := v.Head()
	return &h
}

// Statement is the public AST enum surface named in the spec (method b);
// it is the same sum of node types ParseExprNode returns, re-exported
// under the name the spec's downstream contract uses.
type Statement = ast.Node

var defaultLexer Lexer

// SetDefaultLexer installs the Lexer used by the package-level Parse*
// functions. Package lexer calls this from its own init so that simply
// importing it (directly, or transitively through the root facade
// package) wires the reference implementation in; callers with their
// own tokenizer can call it again to override.
func SetDefaultLexer(l Lexer) { defaultLexer = l }

func parseEntry(cancel Cancellation, lx Lexer, source string) (*ptree.Node, error) {
	if lx == nil {
		return nil, perr.New(perr.UnsupportedSyntax, "no lexer configured: import package lexer or call parser.SetDefaultLexer", nil, nil)
	}
	toks := lx.Tokenize(source)
	v := view.New(toks)
	s := &state{cancel: cancel}

	node, rest, err := parseTopLevelStatement(s, v)
	if err != nil {
		return nil, err
	}

	if err := validateTopLevel(node, 0, false); err != nil {
		return nil, err
	}

	if err := checkTrailing(rest); err != nil {
		return nil, err
	}
	return node, nil
}

// checkTrailing enforces that nothing but EOF/semicolons remain,
// distinguishing "extra after semicolon" from a bare trailing-token
// error as required by §6.
func checkTrailing(v view.View) error {
	if v.Head().Kind == token.EOF {
		return nil
	}
	if v.Head().Kind == token.SEMICOLON {
		rest := v.Advance()
		if rest.Head().Kind == token.EOF {
			return nil
		}
		return perr.New(perr.ExtraAfterSemicolon, "unexpected tokens after terminating semicolon", headTokenPtr(rest), nil)
	}
	return perr.New(perr.TrailingTokens, "unexpected trailing tokens after statement", headTokenPtr(v), nil)
}

// ParseExprNode invokes the lexer, parses a single statement, validates
// top-level placement, rejects trailing tokens and returns the typed AST
// node (§6a).
func ParseExprNode(source string) (ast.Node, error) {
	return ParseExprNodeContext(context.Background(), source)
}

// ParseExprNodeContext is ParseExprNode with an explicit cancellation
// context.
func ParseExprNodeContext(ctx context.Context, source string) (ast.Node, error) {
	cancel := cancellationFromContext(ctx)
	tree, err := parseEntry(cancel, defaultLexer, source)
	if err != nil {
		return nil, err
	}
	return build(tree)
}

// ParseASTStatement is ParseExprNode, mapped to the public Statement
// alias (§6b) — the spec describes this as "same, mapped to a public AST
// enum"; since Go has no closed enum of interface implementations, the
// Statement alias plays that role.
func ParseASTStatement(source string) (Statement, error) {
	return ParseExprNode(source)
}

// Parse parses source and serializes the resulting AST to the canonical
// s-expression form (version V0, §6c).
func Parse(source string) (string, error) {
	node, err := ParseExprNode(source)
	if err != nil {
		return "", err
	}
	return sexp.Render(node), nil
}

func cancellationFromContext(ctx context.Context) Cancellation {
	if ctx == nil {
		return noCancellation{}
	}
	return ctxCancellation{ctx: ctx}
}
