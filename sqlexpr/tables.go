package sqlexpr

import (
	"github.com/yborm/yborm-go/schema"
	"github.com/yborm/yborm-go/ybormerr"
)

// FindAllTables walks ExpressionList and Join nodes, returning the
// referenced table names; any leaf that is not a bare TableRef, a Column
// included, is rejected (spec §4.1, find_all_tables).
func FindAllTables(n Node) ([]string, error) {
	var tables []string
	var walk func(Node) error
	walk = func(n Node) error {
		switch v := n.(type) {
		case TableRef:
			tables = append(tables, v.Name)
			return nil
		case Join:
			if err := walk(v.A); err != nil {
				return err
			}
			return walk(v.B)
		case ExpressionList:
			for _, item := range v.Items {
				if err := walk(item); err != nil {
					return err
				}
			}
			return nil
		default:
			return ybormerr.BadSQLOperation("FindAllTables: not a bare table reference")
		}
	}
	if err := walk(n); err != nil {
		return nil, err
	}
	return tables, nil
}

// MakeSelect auto-projects every column of every table named in from, in
// schema order, building a Select over from/where/orderBy with optional
// FOR UPDATE locking (spec §4.1, make_select).
func MakeSelect(s *schema.Schema, from Node, where Node, orderBy Node, forUpdate bool) (*Select, error) {
	tableNames, err := FindAllTables(from)
	if err != nil {
		return nil, err
	}
	var cols []Node
	for _, name := range tableNames {
		t, err := s.Table(name)
		if err != nil {
			return nil, err
		}
		for _, c := range t.Columns() {
			cols = append(cols, Column{Table: name, Col: c.Name()})
		}
	}
	sel := NewSelect(cols...).From(from)
	if where != nil {
		sel.Where(where)
	}
	if orderBy != nil {
		sel.OrderBy(orderBy)
	}
	if forUpdate {
		sel.LockMode("FOR UPDATE")
	}
	return sel, nil
}
