// Package perr implements the structured parser error surface described
// in the spec's §7 error handling design: a stable code, a human message,
// and a property bag that always carries line/column when a token is
// available. It generalizes the teacher parser's `p.errors []string` /
// `peekError` pattern (formatted strings only) into an inspectable error
// value, since the spec requires callers to branch on error code and
// read out structured properties such as "expected" or "got".
package perr

import (
	"fmt"
	"strings"

	"github.com/ha1tch/partiqlparser/token"
)

// Code is a stable identifier for a class of parser error.
type Code string

const (
	ExpectedExpression        Code = "expected_expression"
	ExpectedTypeName           Code = "expected_type_name"
	ExpectedRightParen         Code = "expected_right_paren"
	ExpectedLeftParen          Code = "expected_left_paren"
	ExpectedAs                 Code = "expected_as"
	ExpectedWhen                Code = "expected_when"
	ExpectedWhere                Code = "expected_where"
	ExpectedConflictAction       Code = "expected_conflict_action"
	ExpectedReturningClause      Code = "expected_returning_clause"
	ExpectedArgumentDelimiter    Code = "expected_argument_delimiter"
	InvalidPathComponent         Code = "invalid_path_component"
	AsteriskNotAloneInSelectList Code = "asterisk_not_alone_in_select_list"
	MixedWildcardInSelectList    Code = "mixed_wildcard_in_select_list"
	UnsupportedLiteralInGroupBy  Code = "unsupported_literal_in_group_by"
	NonUnaryAggregateCall        Code = "non_unary_aggregate_call"
	UnsupportedCallWithStar      Code = "unsupported_call_with_star"
	CastArityMismatch            Code = "cast_arity_mismatch"
	InvalidTypeParameter         Code = "invalid_type_parameter"
	InvalidPrecisionForTime      Code = "invalid_precision_for_time"
	InvalidDateString            Code = "invalid_date_string"
	InvalidTimeString            Code = "invalid_time_string"
	MissingIdentifierAfterAt     Code = "missing_identifier_after_at"
	UnexpectedKeyword            Code = "unexpected_keyword"
	UnexpectedOperator           Code = "unexpected_operator"
	UnexpectedTerm               Code = "unexpected_term"
	UnexpectedToken              Code = "unexpected_token"
	MalformedJoin                Code = "malformed_join"
	UnsupportedSyntax            Code = "unsupported_syntax"
	MissingSetAssignment         Code = "missing_set_assignment"
	NoStoredProcedureProvided    Code = "no_stored_procedure_provided"
	MalformedParseTree           Code = "malformed_parse_tree"
	Expected2TokenTypes          Code = "expected_2_token_types"
	ExpectedIdentifierForAlias   Code = "expected_identifier_for_alias"
	TrailingTokens               Code = "trailing_tokens"
	ExtraAfterSemicolon          Code = "extra_after_semicolon"
	Interrupted                  Code = "interrupted"
)

// Error is the parser's error type: a code, message and property bag.
type Error struct {
	Code       Code
	Message    string
	Properties map[string]any
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if line, ok := e.Properties["line"]; ok {
		fmt.Fprintf(&b, " (line %v, column %v)", line, e.Properties["column"])
	}
	return b.String()
}

// New builds an Error with the given code/message and, when tok is
// non-nil, seeds the property bag with its line/column.
func New(code Code, message string, tok *token.Token, extra map[string]any) *Error {
	props := map[string]any{}
	for k, v := range extra {
		props[k] = v
	}
	if tok != nil {
		props["line"] = tok.Span.Line
		props["column"] = tok.Span.Column
	}
	return &Error{Code: code, Message: message, Properties: props}
}

// Expected builds the common "expected X, got Y" shape used throughout
// the recursive-descent sub-parsers.
func Expected(code Code, what string, got token.Token) *Error {
	return New(code, fmt.Sprintf("expected %s, got %s", what, got.String()), &got, map[string]any{
		"expected": what,
		"got":      got.String(),
	})
}
