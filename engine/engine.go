// Package engine implements the mode-checked statement layer above
// sqlbackend (spec §4.3, C5): select/insert/update/delete_from, sequence
// access, and schema DDL driving. It owns no SQL string construction
// beyond wiring sqlexpr options to each Connection's dialect/driver.
package engine

import (
	"strings"
	"time"

	"github.com/yborm/yborm-go/schema"
	"github.com/yborm/yborm-go/sqlbackend"
	"github.com/yborm/yborm-go/sqlexpr"
	"github.com/yborm/yborm-go/value"
	"github.com/yborm/yborm-go/ybormerr"
)

// Mode gates which operations an Engine permits.
type Mode int

const (
	ReadOnly Mode = iota
	ReadWrite
	Manual
)

// ReconnectWindow bounds select_iter's one-shot reconnect-and-retry: a
// connection failure observed within this window of issuing the
// statement triggers exactly one reopen-and-retry (spec §4.3 Open
// Question, resolved conservatively — see DESIGN.md). Exported so a
// caller that needs a different window can shadow it.
var ReconnectWindow = 500 * time.Millisecond

// Pool is the minimal reconnect source select_iter needs; *Connection's
// owner satisfies it by reopening against the same driver/source.
type Pool interface {
	Reopen() (*sqlbackend.Connection, error)
}

// Engine wraps one Connection with a Mode and an optional reconnect Pool.
type Engine struct {
	conn *sqlbackend.Connection
	pool Pool
	mode Mode
}

func New(conn *sqlbackend.Connection, mode Mode) *Engine {
	return &Engine{conn: conn, mode: mode}
}

func (e *Engine) SetPool(p Pool) { e.pool = p }

func (e *Engine) Connection() *sqlbackend.Connection { return e.conn }
func (e *Engine) Mode() Mode                         { return e.mode }

func (e *Engine) Commit() error   { return e.conn.Commit() }
func (e *Engine) Rollback() error { return e.conn.Rollback() }

func (e *Engine) requireWritable(op string) error {
	if e.mode == ReadOnly {
		return ybormerr.BadOperationInMode("%s not permitted in ReadOnly mode", op)
	}
	return nil
}

// selectOptions builds the sqlexpr.Options every statement this Engine
// issues is rendered with: plain "?" placeholders (the Connection's cursor
// renumbers them when its driver wants numbered params), the pager model
// from the connection's dialect, FOR UPDATE only where the dialect
// supports it, and params always collected for prepared execution (spec
// §4.3).
func (e *Engine) selectOptions(forUpdate bool) sqlexpr.Options {
	d := e.conn.Dialect()
	return sqlexpr.Options{
		CollectParams:  true,
		NumberedParams: false,
		PagerModel:     d.PagerModel(),
		HasForUpdate:   forUpdate && d.HasForUpdate(),
	}
}

// SelectIter renders sel and opens a streaming ResultSet over it,
// reconnecting once via Pool if the very first execute fails within
// ReconnectWindow of being issued (spec §4.3).
func (e *Engine) SelectIter(sel *sqlexpr.Select, forUpdate bool) (*sqlbackend.ResultSet, error) {
	if forUpdate && e.mode == ReadOnly {
		return nil, ybormerr.BadOperationInMode("FOR UPDATE select not permitted in ReadOnly mode")
	}
	opts := e.selectOptions(forUpdate)
	ctx := &sqlexpr.Context{}
	sql, err := sel.Render(opts, ctx)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	rs, err := e.conn.Query(sql, ctx.Params...)
	if err == nil {
		return rs, nil
	}
	if e.pool == nil || time.Since(started) > ReconnectWindow {
		return nil, err
	}
	newConn, reopenErr := e.pool.Reopen()
	if reopenErr != nil {
		return nil, err
	}
	e.conn = newConn
	return e.conn.Query(sql, ctx.Params...)
}

// Row is one materialized row of a query result, with columns already
// coerced to their schema-declared types.
type Row = sqlbackend.Row

// Insert builds "INSERT INTO t (c1,...) VALUES (?,...)" over the
// insertable columns (all columns except read-only-and-not-PK, and,
// when collectNewIDs is true, except the surrogate PK), prepares it once,
// and binds it to each row in turn (spec §4.3: "Prepare once; bind each
// row"), optionally reading back the generated id via the dialect's
// select-last-insert-id statement after each execute.
func (e *Engine) Insert(table *schema.Table, rows [][]value.Value, collectNewIDs bool) ([]value.Value, error) {
	if err := e.requireWritable("insert"); err != nil {
		return nil, err
	}
	cols := insertableColumns(table, collectNewIDs)
	if len(cols) == 0 {
		return nil, ybormerr.BadSQLOperation("insert: no insertable columns for table %s", table.Name())
	}
	sql := buildInsertSQL(table, cols)

	rowArgs := make([][]value.Value, len(rows))
	for i, row := range rows {
		args := make([]value.Value, len(cols))
		for j, idx := range cols {
			args[j] = row[idx]
		}
		rowArgs[i] = args
	}

	if !collectNewIDs {
		return nil, e.conn.PrepareExecMany(sql, rowArgs)
	}

	// The id-capture path can't use PrepareExecMany's uninterrupted batch:
	// each row's generated id must be read back before the next row binds
	// the same prepared statement, so the insert cursor and the id query
	// are interleaved one row at a time.
	cur, err := e.conn.Prepare(sql)
	if err != nil {
		return nil, err
	}
	idSQL := e.conn.Dialect().SelectLastInsertIDSQL(table.Name(), table.PKNames()[0])

	var ids []value.Value
	for _, args := range rowArgs {
		if err := cur.Exec(args); err != nil {
			return nil, err
		}
		if idSQL == "" {
			continue
		}
		rs, err := e.conn.Query(idSQL)
		if err != nil {
			return nil, err
		}
		var id value.Value
		if rs.Next() {
			r := rs.Row()
			if len(r.Values) > 0 {
				id = r.Values[0]
			}
		}
		rs.Close()
		if err := rs.Err(); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// insertableColumns returns the indexes of table's insertable columns in
// declaration order.
func insertableColumns(table *schema.Table, skipSurrogatePK bool) []int {
	var idx []int
	for i, c := range table.Columns() {
		if c.IsReadOnly() && !c.IsPK() {
			continue
		}
		if skipSurrogatePK && c.IsPK() && table.HasSurrogatePK() {
			continue
		}
		idx = append(idx, i)
	}
	return idx
}

func buildInsertSQL(table *schema.Table, cols []int) string {
	names := make([]string, len(cols))
	placeholders := make([]string, len(cols))
	for i, idx := range cols {
		names[i] = table.Column(idx).Name()
		placeholders[i] = "?"
	}
	return "INSERT INTO " + table.Name() + " (" + strings.Join(names, ", ") + ") VALUES (" + strings.Join(placeholders, ", ") + ")"
}
