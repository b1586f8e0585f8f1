// Package ptree implements the intermediate parse tree described in the
// parser spec (component §3/§4): a uniformly-shaped tree whose nodes
// carry a categorical tag, an optional originating token, an ordered
// list of children, and a small meta map. A node does not store the
// unconsumed token suffix: every sub-parser in package parser returns a
// *Node plus the remaining view alongside it rather than
// mutating shared state — parse nodes are immutable once produced.
package ptree

import "github.com/ha1tch/partiqlparser/token"

// Tag is the closed set of parse-tree node kinds named in the spec.
type Tag int

const (
	ATOM Tag = iota
	CASE_SENSITIVE_ATOM
	CASE_INSENSITIVE_ATOM
	PROJECT_ALL
	PATH_WILDCARD
	PATH_UNPIVOT
	LET
	SELECT_LIST
	SELECT_VALUE
	PIVOT
	DISTINCT
	RECURSIVE
	MATERIALIZED
	INNER_JOIN
	LEFT_JOIN
	RIGHT_JOIN
	OUTER_JOIN
	FROM
	FROM_CLAUSE
	FROM_SOURCE_JOIN
	WHERE
	ORDER_BY
	SORT_SPEC
	ORDERING_SPEC
	GROUP
	GROUP_PARTIAL
	HAVING
	LIMIT
	UNPIVOT
	CALL
	CALL_AGG
	CALL_DISTINCT_AGG
	CALL_AGG_WILDCARD
	DATE
	TIME
	TIME_WITH_TIME_ZONE
	ARG_LIST
	AS_ALIAS
	AT_ALIAS
	BY_ALIAS
	PATH
	PATH_DOT
	PATH_SQB
	UNARY
	BINARY
	TERNARY
	LIST
	BAG
	STRUCT
	MEMBER
	CAST
	TYPE
	CASE
	WHEN
	ELSE
	INSERT
	INSERT_VALUE
	REMOVE
	SET
	UPDATE
	DELETE
	ASSIGNMENT
	CHECK
	ON_CONFLICT
	CONFLICT_ACTION
	DML_LIST
	RETURNING
	RETURNING_ELEM
	RETURNING_MAPPING
	RETURNING_WILDCARD
	CREATE_TABLE
	DROP_TABLE
	DROP_INDEX
	CREATE_INDEX
	PARAMETER
	EXEC
	PRECISION
	WITH
)

var tagNames = map[Tag]string{
	ATOM: "ATOM", CASE_SENSITIVE_ATOM: "CASE_SENSITIVE_ATOM", CASE_INSENSITIVE_ATOM: "CASE_INSENSITIVE_ATOM",
	PROJECT_ALL: "PROJECT_ALL", PATH_WILDCARD: "PATH_WILDCARD", PATH_UNPIVOT: "PATH_UNPIVOT",
	LET: "LET", SELECT_LIST: "SELECT_LIST", SELECT_VALUE: "SELECT_VALUE", PIVOT: "PIVOT",
	DISTINCT: "DISTINCT", RECURSIVE: "RECURSIVE", MATERIALIZED: "MATERIALIZED",
	INNER_JOIN: "INNER_JOIN", LEFT_JOIN: "LEFT_JOIN", RIGHT_JOIN: "RIGHT_JOIN", OUTER_JOIN: "OUTER_JOIN",
	FROM: "FROM", FROM_CLAUSE: "FROM_CLAUSE", FROM_SOURCE_JOIN: "FROM_SOURCE_JOIN",
	WHERE: "WHERE", ORDER_BY: "ORDER_BY", SORT_SPEC: "SORT_SPEC", ORDERING_SPEC: "ORDERING_SPEC",
	GROUP: "GROUP", GROUP_PARTIAL: "GROUP_PARTIAL", HAVING: "HAVING", LIMIT: "LIMIT", UNPIVOT: "UNPIVOT",
	CALL: "CALL", CALL_AGG: "CALL_AGG", CALL_DISTINCT_AGG: "CALL_DISTINCT_AGG", CALL_AGG_WILDCARD: "CALL_AGG_WILDCARD",
	DATE: "DATE", TIME: "TIME", TIME_WITH_TIME_ZONE: "TIME_WITH_TIME_ZONE",
	ARG_LIST: "ARG_LIST", AS_ALIAS: "AS_ALIAS", AT_ALIAS: "AT_ALIAS", BY_ALIAS: "BY_ALIAS",
	PATH: "PATH", PATH_DOT: "PATH_DOT", PATH_SQB: "PATH_SQB",
	UNARY: "UNARY", BINARY: "BINARY", TERNARY: "TERNARY",
	LIST: "LIST", BAG: "BAG", STRUCT: "STRUCT", MEMBER: "MEMBER",
	CAST: "CAST", TYPE: "TYPE", CASE: "CASE", WHEN: "WHEN", ELSE: "ELSE",
	INSERT: "INSERT", INSERT_VALUE: "INSERT_VALUE", REMOVE: "REMOVE", SET: "SET",
	UPDATE: "UPDATE", DELETE: "DELETE", ASSIGNMENT: "ASSIGNMENT", CHECK: "CHECK",
	ON_CONFLICT: "ON_CONFLICT", CONFLICT_ACTION: "CONFLICT_ACTION", DML_LIST: "DML_LIST",
	RETURNING: "RETURNING", RETURNING_ELEM: "RETURNING_ELEM", RETURNING_MAPPING: "RETURNING_MAPPING",
	RETURNING_WILDCARD: "RETURNING_WILDCARD",
	CREATE_TABLE:       "CREATE_TABLE", DROP_TABLE: "DROP_TABLE", DROP_INDEX: "DROP_INDEX",
	CREATE_INDEX: "CREATE_INDEX", PARAMETER: "PARAMETER", EXEC: "EXEC", PRECISION: "PRECISION", WITH: "WITH",
}

func (t Tag) String() string {
	if s, ok := tagNames[t]; ok {
		return s
	}
	return "UNKNOWN_TAG"
}

// joinTags, topLevelTags and dmlTags back the three boolean attributes
// named in the spec (isJoin, isTopLevel, isDml), modeled as lookup
// tables rather than per-variant struct fields.
var joinTags = map[Tag]bool{
	INNER_JOIN: true, LEFT_JOIN: true, RIGHT_JOIN: true, OUTER_JOIN: true, FROM_SOURCE_JOIN: true,
}

var topLevelTags = map[Tag]bool{
	INSERT: true, INSERT_VALUE: true, REMOVE: true, SET: true, UPDATE: true, DELETE: true,
	DML_LIST: true, CREATE_TABLE: true, DROP_TABLE: true, CREATE_INDEX: true, DROP_INDEX: true, EXEC: true,
}

var dmlTags = map[Tag]bool{
	INSERT: true, INSERT_VALUE: true, REMOVE: true, SET: true, UPDATE: true, DELETE: true,
	ASSIGNMENT: true, DML_LIST: true,
}

// IsJoin reports whether t denotes a FROM-source join node.
func (t Tag) IsJoin() bool { return joinTags[t] }

// IsTopLevel reports whether t may only appear at the root of the parse
// tree (or directly beneath a DML_LIST).
func (t Tag) IsTopLevel() bool { return topLevelTags[t] }

// IsDml reports whether t denotes a DML operation.
func (t Tag) IsDml() bool { return dmlTags[t] }

// Node is one element of the intermediate parse tree.
type Node struct {
	Tag      Tag
	Token    *token.Token
	Children []*Node
	// Meta carries small, named side-channel facts threaded from the
	// parser to the AST builder (e.g. "implicit", "cross", "quantifier",
	// ordering "direction") without inventing new Tag variants.
	Meta map[string]any
}

// New builds a Node with the given tag, originating token and children.
func New(tag Tag, tok *token.Token, children ...*Node) *Node {
	return &Node{Tag: tag, Token: tok, Children: children}
}

// Leaf builds a childless Node.
func Leaf(tag Tag, tok *token.Token) *Node {
	return &Node{Tag: tag, Token: tok}
}

// WithMeta attaches a single meta key/value and returns the same node for
// chaining at construction sites.
func (n *Node) WithMeta(key string, value any) *Node {
	if n.Meta == nil {
		n.Meta = map[string]any{}
	}
	n.Meta[key] = value
	return n
}

// MetaBool reads a boolean meta flag, defaulting to false.
func (n *Node) MetaBool(key string) bool {
	if n.Meta == nil {
		return false
	}
	b, _ := n.Meta[key].(bool)
	return b
}

// MetaString reads a string meta value, defaulting to "".
func (n *Node) MetaString(key string) string {
	if n.Meta == nil {
		return ""
	}
	s, _ := n.Meta[key].(string)
	return s
}
