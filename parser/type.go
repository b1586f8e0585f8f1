package parser

import (
	"github.com/ha1tch/partiqlparser/perr"
	"github.com/ha1tch/partiqlparser/ptree"
	"github.com/ha1tch/partiqlparser/token"
	"github.com/ha1tch/partiqlparser/view"
)

// typeArity maps a closed set of type names to their accepted parameter
// count range [min, max] (§4.7). Names not in this map are rejected.
var typeArity = map[string][2]int{
	"null": {0, 0}, "missing": {0, 0},
	"bool": {0, 0}, "boolean": {0, 0},
	"smallint": {0, 0}, "int": {0, 0}, "int2": {0, 0}, "int4": {0, 0}, "int8": {0, 0}, "integer": {0, 0},
	"float": {0, 0}, "real": {0, 0}, "double_precision": {0, 0},
	"decimal": {0, 2}, "numeric": {0, 2},
	"char": {0, 1}, "character": {0, 1}, "varchar": {0, 1}, "string": {0, 0}, "symbol": {0, 0},
	"clob": {0, 0}, "blob": {0, 0},
	"date": {0, 0},
	"time": {0, 1}, "time_with_time_zone": {0, 1},
	"timestamp": {0, 1},
	"struct":    {0, 0}, "tuple": {0, 0},
	"list": {0, 0}, "sexp": {0, 0}, "bag": {0, 0},
	"any": {0, 0},
}

// parseType parses a type name with an optional parenthesized,
// comma-separated list of unsigned-integer parameters, used as the
// right-hand side of CAST(... AS type) and `expr IS type` (§4.7).
func parseType(s *state, v view.View) (*ptree.Node, view.View, error) {
	h := v.Head()
	name, rest, ok := readTypeName(v)
	if !ok {
		return nil, v, perr.Expected(perr.ExpectedTypeName, "a type name", h)
	}
	lower := lowerASCII(name)

	if rest.Head().HasKeyword("with") {
		if lower == "time" && rest.Peek(1).HasKeyword("time") && rest.Peek(2).HasKeyword("zone") {
			rest = rest.Advance().Advance().Advance()
			lower = "time_with_time_zone"
		}
	}

	arity, ok := typeArity[lower]
	if !ok {
		return nil, v, perr.New(perr.ExpectedTypeName, "unknown type name "+name, &h, map[string]any{"name": name})
	}

	var params []int64
	if rest.Head().Kind == token.LEFT_PAREN {
		rest = rest.Advance()
		for {
			pTok := rest.Head()
			if pTok.Kind != token.LITERAL || pTok.Value == nil || !pTok.Value.IsUnsignedInteger() {
				return nil, v, perr.New(perr.InvalidTypeParameter, "type parameters must be unsigned integers", &pTok, nil)
			}
			n, _ := pTok.Value.Long()
			params = append(params, n)
			rest = rest.Advance()
			if rest.Head().Kind == token.COMMA {
				rest = rest.Advance()
				continue
			}
			break
		}
		rest2, ok := rest.RequireKind(token.RIGHT_PAREN)
		if !ok {
			return nil, v, perr.Expected(perr.ExpectedRightParen, ")", rest.Head())
		}
		rest = rest2
	}

	if len(params) < arity[0] || len(params) > arity[1] {
		return nil, v, perr.New(perr.InvalidTypeParameter, "wrong number of type parameters for "+name, &h, map[string]any{"name": name, "count": len(params)})
	}
	if lower == "time" || lower == "time_with_time_zone" {
		if len(params) == 1 && (params[0] < 0 || params[0] > 9) {
			return nil, v, perr.New(perr.InvalidPrecisionForTime, "TIME precision must be between 0 and 9", &h, nil)
		}
	}

	node := ptree.New(ptree.TYPE, &h)
	node.WithMeta("name", lower)
	if len(params) > 0 {
		node.WithMeta("parameters", params)
	}
	return node, rest, nil
}

// readTypeName reads the (possibly multi-word) type name at Head,
// returning its canonical underscore-joined form.
func readTypeName(v view.View) (string, view.View, bool) {
	h := v.Head()
	switch h.Kind {
	case token.KEYWORD:
		name := h.KeywordText
		rest := v.Advance()
		if name == "double" && rest.Head().HasKeyword("precision") {
			return "double_precision", rest.Advance(), true
		}
		if name == "character" && rest.Head().HasKeyword("varying") {
			return "varchar", rest.Advance(), true
		}
		return name, rest, true
	case token.IDENTIFIER:
		return lowerASCII(h.Text), v.Advance(), true
	case token.NULL:
		return "null", v.Advance(), true
	case token.MISSING:
		return "missing", v.Advance(), true
	}
	return "", v, false
}
