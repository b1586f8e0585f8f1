package ast

import (
	"testing"

	"github.com/ha1tch/partiqlparser/token"
)

func TestLiteralStrings(t *testing.T) {
	tests := []struct {
		name string
		node Node
		want string
	}{
		{"null", NullLiteral{}, "NULL"},
		{"missing", MissingLiteral{}, "MISSING"},
		{"true", BoolLiteral{Value: true}, "true"},
		{"false", BoolLiteral{Value: false}, "false"},
		{"int", IntLiteral{Value: 42}, "42"},
		{"negative int", IntLiteral{Value: -7}, "-7"},
		{"float", FloatLiteral{Value: 3.5}, "3.5"},
		{"string", StringLiteral{Value: "hello"}, "'hello'"},
		{"ion", IonLiteral{Raw: "{{ abc }}"}, "{{ abc }}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.node.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestVariableRefString(t *testing.T) {
	tests := []struct {
		name string
		ref  VariableRef
		want string
	}{
		{"unqualified", VariableRef{Name: "a"}, "a"},
		{"lexical", VariableRef{Name: "a", Scope: ScopeLexical}, "@a"},
		{"case sensitive", VariableRef{Name: "MixedCase", CaseSensitive: true}, `"MixedCase"`},
		{"lexical and case sensitive", VariableRef{Name: "X", CaseSensitive: true, Scope: ScopeLexical}, `@"X"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ref.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPathComponentStrings(t *testing.T) {
	tests := []struct {
		name string
		c    PathComponent
		want string
	}{
		{"key", PathKey{Name: "field"}, ".field"},
		{"case sensitive key", PathKey{Name: "Field", CaseSensitive: true}, `."Field"`},
		{"index", PathIndex{Index: IntLiteral{Value: 0}}, "[0]"},
		{"wildcard", PathWildcard{}, "[*]"},
		{"unpivot wildcard", PathUnpivotWildcard{}, ".*"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.c.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPathString(t *testing.T) {
	p := Path{
		Root: VariableRef{Name: "u"},
		Components: []PathComponent{
			PathKey{Name: "profile"},
			PathKey{Name: "address"},
			PathIndex{Index: IntLiteral{Value: 0}},
		},
	}
	want := "u.profile.address[0]"
	if got := p.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestNAryOpString(t *testing.T) {
	tests := []struct {
		name string
		op   NAryOp
		want string
	}{
		{
			"binary",
			NAryOp{Op: "+", Operands: []Expr{IntLiteral{Value: 1}, IntLiteral{Value: 2}}},
			"(+ 1 2)",
		},
		{
			"unary",
			NAryOp{Op: "not", Operands: []Expr{BoolLiteral{Value: true}}},
			"(not true)",
		},
		{
			"ternary between",
			NAryOp{Op: "between", Operands: []Expr{
				VariableRef{Name: "a"}, IntLiteral{Value: 1}, IntLiteral{Value: 10},
			}},
			"(between a 1 10)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.op.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSeqExprKinds(t *testing.T) {
	tests := []struct {
		name string
		kind SeqKind
	}{
		{"list", SeqList},
		{"bag", SeqBag},
		{"sexp", SeqSexp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr := SeqExpr{Kind: tt.kind, Elements: []Expr{IntLiteral{Value: 1}, IntLiteral{Value: 2}}}
			if expr.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", expr.Kind, tt.kind)
			}
			if len(expr.Elements) != 2 {
				t.Errorf("Elements length = %d, want 2", len(expr.Elements))
			}
		})
	}
}

func TestCaseExprShapes(t *testing.T) {
	searched := CaseExpr{
		Branches: []CaseBranch{{
			When: NAryOp{Op: ">", Operands: []Expr{VariableRef{Name: "a"}, IntLiteral{Value: 1}}},
			Then: StringLiteral{Value: "big"},
		}},
		Else: StringLiteral{Value: "small"},
	}
	if searched.Operand != nil {
		t.Error("searched CASE must have a nil operand")
	}

	simple := CaseExpr{
		Operand: VariableRef{Name: "a"},
		Branches: []CaseBranch{{
			When: IntLiteral{Value: 1},
			Then: StringLiteral{Value: "one"},
		}},
	}
	if simple.Operand == nil {
		t.Error("simple CASE must have a non-nil operand")
	}
}

func TestAggregateCallWildcard(t *testing.T) {
	count := AggregateCall{Name: "COUNT", Wildcard: true}
	if count.Arg != nil {
		t.Error("COUNT(*) must have a nil Arg")
	}

	sum := AggregateCall{Name: "SUM", Arg: VariableRef{Name: "a"}}
	if sum.Wildcard {
		t.Error("SUM(a) must not be Wildcard")
	}
}

func TestJoinKindString(t *testing.T) {
	tests := []struct {
		kind JoinKind
		want string
	}{
		{JoinInner, "INNER"},
		{JoinLeft, "LEFT"},
		{JoinRight, "RIGHT"},
		{JoinOuter, "OUTER"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("JoinKind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestFromSourceIsLeaf(t *testing.T) {
	leaf := &FromSource{Item: &FromItem{Source: VariableRef{Name: "t"}}}
	if !leaf.IsLeaf() {
		t.Error("expected a leaf FromSource to report IsLeaf() == true")
	}

	join := &FromSource{
		Kind:  JoinInner,
		Left:  leaf,
		Right: &FromItem{Source: VariableRef{Name: "u"}},
	}
	if join.IsLeaf() {
		t.Error("expected a join FromSource to report IsLeaf() == false")
	}
}

func TestReturningStatusValues(t *testing.T) {
	tests := []ReturningStatus{
		ReturningModifiedOld,
		ReturningModifiedNew,
		ReturningAllOld,
		ReturningAllNew,
	}
	seen := make(map[ReturningStatus]bool)
	for _, s := range tests {
		if seen[s] {
			t.Errorf("duplicate ReturningStatus value %v", s)
		}
		seen[s] = true
	}
}

func TestSpanPropagatesThroughMeta(t *testing.T) {
	span := token.Span{Line: 3, Column: 7}
	lit := IntLiteral{Meta: Meta{Loc: span}, Value: 1}
	if got := lit.Span(); got != span {
		t.Errorf("Span() = %+v, want %+v", got, span)
	}
}

func TestLegacyNotRecordedOnMeta(t *testing.T) {
	op := NAryOp{
		Meta:     Meta{LegacyNot: true},
		Op:       "not",
		Operands: []Expr{NAryOp{Op: "like", Operands: []Expr{VariableRef{Name: "a"}, StringLiteral{Value: "%x%"}}}},
	}
	if !op.Meta.LegacyNot {
		t.Error("expected LegacyNot to be true")
	}
}

func TestDataTypeNoParameters(t *testing.T) {
	dt := DataType{Name: "varchar"}
	if len(dt.Parameters) != 0 {
		t.Errorf("expected no parameters, got %v", dt.Parameters)
	}
}

func TestStructExprFields(t *testing.T) {
	s := StructExpr{
		Fields: []StructField{
			{Name: StringLiteral{Value: "id"}, Value: IntLiteral{Value: 1}},
			{Name: StringLiteral{Value: "name"}, Value: StringLiteral{Value: "x"}},
		},
	}
	if len(s.Fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(s.Fields))
	}
	if s.Fields[0].Name.String() != "'id'" {
		t.Errorf("unexpected field name rendering: %q", s.Fields[0].Name.String())
	}
}
