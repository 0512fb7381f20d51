// Package stdsql implements sqlbackend.ConnectionBackend/CursorBackend on
// top of database/sql, the transport every concrete dialect package
// (mysql, postgres, sqlite3) shares. Per-dialect packages only supply the
// registered driver name, the DSN shape, and a Dialect; the row-scanning
// and transaction bookkeeping lives here once (spec §4.2: "Backends are
// intentionally thin").
//
// Grounded on the teacher's adapter/mysql, adapter/postgres and
// adapter/sqlite3 packages, which are themselves thin wrappers around a
// *sql.DB obtained from sql.Open(driverName, dsn); this package
// generalizes that shape into something engine-generic (Query vs Exec is
// decided by sniffing the first SQL keyword, not by caller intent).
package stdsql

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/yborm/yborm-go/sqlbackend"
	"github.com/yborm/yborm-go/sqlexpr"
	"github.com/yborm/yborm-go/value"
)

type querier interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
}

// Backend is a sqlbackend.ConnectionBackend over *sql.DB.
type Backend struct {
	driverName string
	db         *sql.DB
	tx         *sql.Tx
}

// New returns a Backend that will open connections through
// database/sql's driverName registration.
func New(driverName string) *Backend {
	return &Backend{driverName: driverName}
}

func (b *Backend) Open(source string) error {
	db, err := sql.Open(b.driverName, source)
	if err != nil {
		return err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return err
	}
	b.db = db
	return nil
}

// UseRaw adopts an already-open *sql.DB, letting callers share a pool
// across Connections (spec §4.2 note on pooled connections).
func (b *Backend) UseRaw(raw interface{}) error {
	db, ok := raw.(*sql.DB)
	if !ok {
		return fmt.Errorf("stdsql: UseRaw wants *sql.DB, got %T", raw)
	}
	b.db = db
	return nil
}

func (b *Backend) Close() error {
	if b.db == nil {
		return nil
	}
	return b.db.Close()
}

func (b *Backend) Begin() error {
	tx, err := b.db.Begin()
	if err != nil {
		return err
	}
	b.tx = tx
	return nil
}

func (b *Backend) Commit() error {
	if b.tx == nil {
		return nil
	}
	err := b.tx.Commit()
	b.tx = nil
	return err
}

func (b *Backend) Rollback() error {
	if b.tx == nil {
		return nil
	}
	err := b.tx.Rollback()
	b.tx = nil
	return err
}

func (b *Backend) querier() querier {
	if b.tx != nil {
		return b.tx
	}
	return b.db
}

func (b *Backend) NewCursor() (sqlbackend.CursorBackend, error) {
	return &cursor{q: b.querier()}, nil
}

// cursor implements sqlbackend.CursorBackend. Whether a prepared
// statement is a query or a mutation is decided by its leading keyword
// (sqlexpr.FirstTopLevelIdentifier), since database/sql itself splits
// Query and Exec rather than offering one execute-and-maybe-fetch call.
type cursor struct {
	q    querier
	stmt string
	rows *sql.Rows
	cols []string
}

func (c *cursor) ExecDirect(sql string) error {
	_, err := c.q.Exec(sql)
	return err
}

func (c *cursor) Prepare(sql string) error {
	c.stmt = sql
	return nil
}

func (c *cursor) BindParams(types []value.Type) error {
	return nil
}

func (c *cursor) Exec(values []value.Value) error {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = toDriverValue(v)
	}
	keyword := sqlexpr.FirstTopLevelIdentifier(c.stmt)
	if keyword == "SELECT" {
		rows, err := c.q.Query(c.stmt, args...)
		if err != nil {
			return err
		}
		cols, err := rows.Columns()
		if err != nil {
			rows.Close()
			return err
		}
		c.rows = rows
		c.cols = upper(cols)
		return nil
	}
	_, err := c.q.Exec(c.stmt, args...)
	return err
}

func (c *cursor) FetchRow() (sqlbackend.Row, bool, error) {
	if c.rows == nil {
		return sqlbackend.Row{}, false, nil
	}
	if !c.rows.Next() {
		return sqlbackend.Row{}, false, c.rows.Err()
	}
	raw := make([]interface{}, len(c.cols))
	ptrs := make([]interface{}, len(c.cols))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	if err := c.rows.Scan(ptrs...); err != nil {
		return sqlbackend.Row{}, false, err
	}
	vals := make([]value.Value, len(raw))
	for i, r := range raw {
		vals[i] = fromDriverValue(r)
	}
	return sqlbackend.Row{Names: c.cols, Values: vals}, true, nil
}

func (c *cursor) Close() error {
	if c.rows != nil {
		return c.rows.Close()
	}
	return nil
}

func upper(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = toUpperASCII(n)
	}
	return out
}

func toUpperASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - ('a' - 'A')
		}
	}
	return string(b)
}

// toDriverValue converts a value.Value to whatever database/sql's driver
// layer accepts natively.
func toDriverValue(v value.Value) interface{} {
	switch v.Type() {
	case value.Invalid:
		return nil
	case value.Integer:
		return int64(v.AsInteger())
	case value.LongInt:
		return v.AsLongInt()
	case value.Float:
		return v.AsFloat()
	case value.String:
		return v.AsString()
	case value.Decimal:
		return v.SQLStr()
	case value.DateTime:
		return v.AsDateTime()
	case value.Blob:
		return v.AsBlob()
	default:
		return v.AsString()
	}
}

// fromDriverValue wraps whatever database/sql handed back into an
// untyped Value; the caller applies the schema's declared column type
// via Row.Value/FixType once it is known (spec §4.3).
func fromDriverValue(raw interface{}) value.Value {
	switch x := raw.(type) {
	case nil:
		return value.Null()
	case int64:
		return value.NewLongInt(x)
	case float64:
		return value.NewFloat(x)
	case string:
		return value.NewString(x)
	case []byte:
		return value.NewString(string(x))
	case time.Time:
		return value.NewDateTime(x)
	case bool:
		if x {
			return value.NewInteger(1)
		}
		return value.NewInteger(0)
	default:
		return value.NewString(fmt.Sprint(x))
	}
}
