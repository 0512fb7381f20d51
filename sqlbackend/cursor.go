package sqlbackend

import (
	"github.com/yborm/yborm-go/sqlexpr"
	"github.com/yborm/yborm-go/value"
	"github.com/yborm/yborm-go/ybormerr"
)

// Cursor wraps a CursorBackend with the placeholder normalization a
// dialect's Driver demands (spec §4.1/§4.2): callers always write "?"
// placeholders, and Cursor rewrites them to ":n" form before handing the
// statement to backends whose driver requires numbered params. It is
// Connection's "prepared cursor slot" (spec §4.2/§5): Prepare replaces
// whatever statement is currently held, and a new Prepare on the same
// Cursor releases the previous one, matching the teacher's one-statement-
// per-cursor discipline.
type Cursor struct {
	backend  CursorBackend
	numbered bool
	prepared bool
}

func newCursor(backend CursorBackend, numbered bool) *Cursor {
	return &Cursor{backend: backend, numbered: numbered}
}

// Prepare normalizes sql's "?" placeholders to ":n" form when the
// underlying driver wants numbered params, then prepares it on the
// backend. A Cursor may be prepared more than once; each call discards
// the previously bound statement (spec §5 "Cursor owns its prepared
// statement").
func (c *Cursor) Prepare(sql string) error {
	stmt := sql
	if c.numbered {
		stmt = sqlexpr.NormalizePlaceholders(sql)
	}
	if err := c.backend.Prepare(stmt); err != nil {
		return err
	}
	c.prepared = true
	return nil
}

// Exec binds args to the statement set up by Prepare and executes it. It
// is BadSQLOperation to Exec before Prepare (spec §5 "a runtime check
// that exec/fetch is preceded by prepare").
func (c *Cursor) Exec(args []value.Value) error {
	if !c.prepared {
		return badSQLOperationNoStatement("exec")
	}
	return c.backend.Exec(args)
}

// FetchRow returns the next row of a prepared-and-executed statement, or
// ok=false at end-of-results.
func (c *Cursor) FetchRow() (Row, bool, error) {
	if !c.prepared {
		return Row{}, false, badSQLOperationNoStatement("fetch")
	}
	return c.backend.FetchRow()
}

// Close releases the backend cursor and its prepared statement.
func (c *Cursor) Close() error {
	c.prepared = false
	return c.backend.Close()
}

// ResultSet streams a query's rows with one row of look-ahead, so Next
// reports whether a row is actually available before the caller commits
// to consuming it (spec §4.3/§5, select_iter's end-of-results detection).
// It owns the Cursor it was built from, so the result stream keeps the
// prepared statement alive until Close/exhaustion (spec §5).
type ResultSet struct {
	cur    *Cursor
	names  []string
	peeked Row
	have   bool
	err    error
	done   bool
}

func newResultSet(cur *Cursor) (*ResultSet, error) {
	rs := &ResultSet{cur: cur}
	rs.advance()
	if rs.err != nil {
		return nil, rs.err
	}
	return rs, nil
}

func (rs *ResultSet) advance() {
	if rs.done {
		rs.have = false
		return
	}
	row, ok, err := rs.cur.FetchRow()
	if err != nil {
		rs.err = err
		rs.done = true
		rs.have = false
		return
	}
	if !ok {
		rs.done = true
		rs.have = false
		return
	}
	rs.peeked = row
	rs.names = row.Names
	rs.have = true
}

// Next reports whether a row is available without consuming it (Row
// consumes it); it returns false both at end-of-results and on error
// (check Err to distinguish).
func (rs *ResultSet) Next() bool {
	if rs.err != nil || !rs.have {
		return false
	}
	return true
}

// Row returns the current row and primes the next one. Callers must check
// Next before calling Row.
func (rs *ResultSet) Row() Row {
	row := rs.peeked
	rs.advance()
	return row
}

func (rs *ResultSet) Columns() []string {
	return rs.names
}

func (rs *ResultSet) Err() error {
	return rs.err
}

func (rs *ResultSet) Close() error {
	return rs.cur.Close()
}

func badSQLOperationNoStatement(op string) error {
	return ybormerr.BadSQLOperation("%s: no statement prepared on this cursor", op)
}

// Value looks up a named column in row and coerces it to t via FixType
// (spec §4.3: rows carry driver-native values until the schema's declared
// column type is applied).
func (row Row) Value(name string, t value.Type) (value.Value, error) {
	for i, n := range row.Names {
		if n == name {
			return row.Values[i].FixType(t)
		}
	}
	return value.Value{}, nil
}
