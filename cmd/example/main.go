// Example: Parsing and analyzing PartiQL queries
package main

import (
	"fmt"

	"github.com/ha1tch/partiqlparser"
	"github.com/ha1tch/partiqlparser/ast"
)

func main() {
	query := `
SELECT o.orderId,
       o.total,
       c.name AS customerName,
       CASE
           WHEN o.total > 1000 THEN 'High Value'
           WHEN o.total > 500 THEN 'Medium Value'
           ELSE 'Standard'
       END AS orderCategory
FROM orders AS o
INNER JOIN customers AS c ON o.customerId = c.id
WHERE o.customerId = 42
  AND o.orderDate BETWEEN '2025-01-01' AND '2025-12-31'
ORDER BY o.orderDate DESC
`

	fmt.Println("=== PartiQL Parser Demo ===")
	fmt.Println()

	node, err := partiqlparser.ParseExprNode(query)
	if err != nil {
		fmt.Println("Parse error:", err)
		return
	}

	fmt.Printf("Parsed: %T\n\n", node)

	if sel, ok := node.(*ast.SelectQuery); ok {
		analyzeSelect(sel)
	}

	fmt.Println("\n=== Using Inspector ===")
	inspector := partiqlparser.NewInspector(node)

	vars := inspector.FindVariables()
	fmt.Printf("\nFound %d variable references:\n", len(vars))
	seen := make(map[string]bool)
	for _, v := range vars {
		if !seen[v.Name] {
			seen[v.Name] = true
			fmt.Printf("  - %s\n", v.Name)
		}
	}

	queries := inspector.FindSelectQueries()
	fmt.Printf("\nFound %d query node(s)\n", len(queries))

	calls := inspector.FindCalls()
	fmt.Printf("\nFound %d call expression(s)\n", len(calls))

	fmt.Println("\n=== Canonical s-expression form ===")
	rendered, err := partiqlparser.Parse(query)
	if err != nil {
		fmt.Println("Render error:", err)
		return
	}
	fmt.Println(rendered)

	fmt.Println("\n=== Nested data demo ===")
	nested := `SELECT VALUE {'id': u.id, 'tags': u.tags} FROM users AS u WHERE u.tags[0] = 'admin'`
	rendered, err = partiqlparser.Parse(nested)
	if err != nil {
		fmt.Println("Errors:", err)
		return
	}
	fmt.Println(rendered)
}

func analyzeSelect(sel *ast.SelectQuery) {
	fmt.Printf("Projection items: %d\n", len(sel.Items))
	for i, item := range sel.Items {
		alias := ""
		if item.Alias != "" {
			alias = " AS " + item.Alias
		}
		if item.Star {
			fmt.Printf("  %d: *%s\n", i+1, alias)
			continue
		}
		fmt.Printf("  %d: %s%s\n", i+1, item.Expr.String(), alias)
	}

	if sel.Where != nil {
		fmt.Printf("Where clause present: %s\n", sel.Where.String())
	}

	fmt.Printf("Order by: %d item(s)\n", len(sel.OrderBy))
}
