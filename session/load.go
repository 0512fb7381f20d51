package session

import (
	"github.com/yborm/yborm-go/dataobj"
	"github.com/yborm/yborm-go/schema"
	"github.com/yborm/yborm-go/sqlbackend"
	"github.com/yborm/yborm-go/sqlexpr"
)

// Collection is the lazy tuple iterator LoadCollection returns (spec
// §4.5 load_collection): one call to Next/Row per joined row, each
// yielding one Handle per table referenced by the original from
// expression, in that expression's table order.
type Collection struct {
	sess   *Session
	tables []*schema.Table
	rs     *sqlbackend.ResultSet
}

// LoadCollection auto-projects every column of every table named in
// from, executes the resulting SELECT, and returns an iterator yielding
// one DataObject-handle tuple per row as it is fetched (spec §4.5
// load_collection). Each DataObject is either promoted from the
// identity map or newly registered; a promoted object already past
// Ghost keeps its current in-memory values rather than being
// overwritten, so pending local edits in the same session survive a
// concurrent collection load.
func (s *Session) LoadCollection(from, where, orderBy sqlexpr.Node, forUpdate bool) (*Collection, error) {
	tableNames, err := sqlexpr.FindAllTables(from)
	if err != nil {
		return nil, err
	}
	tables := make([]*schema.Table, len(tableNames))
	for i, name := range tableNames {
		t, err := s.schema.Table(name)
		if err != nil {
			return nil, err
		}
		tables[i] = t
	}

	sel, err := sqlexpr.MakeSelect(s.schema, from, where, orderBy, forUpdate)
	if err != nil {
		return nil, err
	}
	rs, err := s.engine.SelectIter(sel, forUpdate)
	if err != nil {
		return nil, err
	}
	return &Collection{sess: s, tables: tables, rs: rs}, nil
}

// Next reports whether another tuple is available; see ResultSet.Next
// for the look-ahead contract.
func (c *Collection) Next() bool { return c.rs.Next() }

func (c *Collection) Err() error   { return c.rs.Err() }
func (c *Collection) Close() error { return c.rs.Close() }

// Row consumes the current tuple, splitting its joined row across one
// DataObject per table named in the original from expression, and
// returns their Handles in the same order.
func (c *Collection) Row() ([]dataobj.Handle, error) {
	row := c.rs.Row()
	handles := make([]dataobj.Handle, len(c.tables))
	offset := 0
	for i, t := range c.tables {
		width := t.Size()
		key, assigned := t.MkKey(row.Values[offset : offset+width])

		var h dataobj.Handle
		if assigned {
			if existing, ok := c.sess.identityMap[key.String()]; ok {
				h = existing
			}
		}
		if h == 0 {
			obj := dataobj.NewDataObject(t, dataobj.Ghost)
			h = c.sess.register(obj)
			if assigned {
				c.sess.identityMap[key.String()] = h
			}
		}

		obj := c.sess.objects[h]
		if obj.Status() == dataobj.Ghost {
			newOffset, err := obj.FillFromRow(row, offset)
			if err != nil {
				return nil, err
			}
			offset = newOffset
		} else {
			offset += width
		}
		handles[i] = h
	}
	return handles, nil
}
