package parser

import (
	"github.com/ha1tch/partiqlparser/perr"
	"github.com/ha1tch/partiqlparser/ptree"
)

// validateTopLevel enforces that statement-level constructs (DML, DDL,
// EXEC — ptree.Tag.IsTopLevel()) only ever appear at the root of the
// parse tree, or as direct children of a root DML_LIST (§4.10). A
// subquery or CASE branch that smuggles in a CREATE TABLE or a nested
// EXEC is rejected here rather than by every sub-parser individually.
func validateTopLevel(node *ptree.Node, depth int, underDmlList bool) error {
	if node == nil {
		return nil
	}
	if depth > 0 && node.Tag.IsTopLevel() {
		allowed := underDmlList && depth == 1
		if !allowed {
			return perr.New(perr.UnsupportedSyntax, "statement-level construct cannot be nested inside an expression", node.Token, nil)
		}
	}
	nextUnderDmlList := node.Tag == ptree.DML_LIST
	for _, c := range node.Children {
		if err := validateTopLevel(c, depth+1, nextUnderDmlList); err != nil {
			return err
		}
	}
	return nil
}
