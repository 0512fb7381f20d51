package sqlbackend

import (
	"fmt"
	"log/slog"

	"github.com/yborm/yborm-go/value"
	"github.com/yborm/yborm-go/ybormerr"
)

// Connection wraps one ConnectionBackend with the bookkeeping the Engine
// needs above the raw driver (spec §4.2): a logger for SQL echo, a "bad
// connection" latch tripped the first time a backend call fails so the
// Engine can reconnect instead of retrying a poisoned session, an
// activity flag recording whether a transaction is currently open, and
// the numbered-vs-"?" placeholder choice pulled from the Driver.
type Connection struct {
	backend ConnectionBackend
	dialect Dialect
	driver  Driver
	log     *slog.Logger
	bad     bool
	inTrans bool
	echo    bool

	// prepared is the connection's current "prepared cursor" slot (spec
	// §4.2/§5): PrepareExecMany stages a statement here once and binds it
	// to each row in turn, instead of re-preparing per row.
	prepared *Cursor
}

// NewConnection opens source against driver and returns a ready
// Connection. The backend is not yet in a transaction; BeginTransIfNecessary
// starts one on first use if the driver requires explicit BEGIN.
func NewConnection(driver Driver, source string, log *slog.Logger) (*Connection, error) {
	backend := driver.NewBackend()
	if err := backend.Open(source); err != nil {
		return nil, ybormerr.DBError(err, "open connection")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Connection{backend: backend, dialect: driver.Dialect(), driver: driver, log: log}, nil
}

func (c *Connection) Dialect() Dialect { return c.dialect }

// SetEcho turns on/off SQL statement logging, mirroring the teacher's
// verbose-mode flag (spec §4.2 note on connection echo).
func (c *Connection) SetEcho(echo bool) { c.echo = echo }

// Bad reports whether a prior call failed and poisoned this connection;
// the Engine must discard and reopen rather than keep using it.
func (c *Connection) Bad() bool { return c.bad }

func (c *Connection) fail(err error) error {
	c.bad = true
	return err
}

// BeginTransIfNecessary starts a transaction iff the driver requires
// explicit transaction control and none is currently open (spec §4.2).
// Drivers that auto-commit per statement (the mysql driver in this module)
// report RequiresExplicitBegin() == false and this becomes a no-op.
func (c *Connection) BeginTransIfNecessary() error {
	if c.inTrans || !c.driver.RequiresExplicitBegin() {
		return nil
	}
	if err := c.backend.Begin(); err != nil {
		return c.fail(ybormerr.DBError(err, "begin transaction"))
	}
	c.inTrans = true
	return nil
}

func (c *Connection) Commit() error {
	if !c.inTrans {
		return nil
	}
	if err := c.backend.Commit(); err != nil {
		return c.fail(ybormerr.DBError(err, "commit"))
	}
	c.inTrans = false
	return nil
}

func (c *Connection) Rollback() error {
	if !c.inTrans {
		return nil
	}
	if err := c.backend.Rollback(); err != nil {
		return c.fail(ybormerr.DBError(err, "rollback"))
	}
	c.inTrans = false
	return nil
}

func (c *Connection) InTrans() bool { return c.inTrans }

func (c *Connection) Close() error {
	if c.prepared != nil {
		c.prepared.Close()
		c.prepared = nil
	}
	return c.backend.Close()
}

// newCursor opens a fresh backend cursor and wraps it with this
// connection's placeholder-numbering convention.
func (c *Connection) newCursor() (*Cursor, error) {
	backendCur, err := c.backend.NewCursor()
	if err != nil {
		return nil, c.fail(ybormerr.DBError(err, "new cursor"))
	}
	return newCursor(backendCur, c.driver.WantsNumberedParams()), nil
}

// ExecDirect runs sql with no bound parameters, used for DDL and other
// statements that never carry placeholders (spec §4.2).
func (c *Connection) ExecDirect(sql string) error {
	if err := c.BeginTransIfNecessary(); err != nil {
		return err
	}
	c.logSQL(sql, nil)
	cur, err := c.backend.NewCursor()
	if err != nil {
		return c.fail(ybormerr.DBError(err, "new cursor"))
	}
	defer cur.Close()
	if err := cur.ExecDirect(sql); err != nil {
		return c.fail(ybormerr.DBError(err, "exec: %s", sql))
	}
	if c.dialect.CommitDDL() {
		return c.Commit()
	}
	return nil
}

// Query prepares and executes sql with args bound as placeholders,
// returning a streaming ResultSet that owns the Cursor it was prepared
// on (spec §5: the result stream keeps the statement alive until it is
// exhausted or closed). The "?" placeholders in sql are rewritten to
// ":n" form first when the driver wants numbered params (spec §4.1
// NormalizePlaceholders, §4.2 Driver.WantsNumberedParams).
func (c *Connection) Query(sql string, args ...value.Value) (*ResultSet, error) {
	if err := c.BeginTransIfNecessary(); err != nil {
		return nil, err
	}
	c.logSQL(sql, args)
	cur, err := c.newCursor()
	if err != nil {
		return nil, err
	}
	if err := cur.Prepare(sql); err != nil {
		cur.Close()
		return nil, c.fail(ybormerr.DBError(err, "prepare: %s", sql))
	}
	if err := cur.Exec(args); err != nil {
		cur.Close()
		return nil, c.fail(ybormerr.DBError(err, "exec: %s", sql))
	}
	rs, err := newResultSet(cur)
	if err != nil {
		cur.Close()
		return nil, c.fail(ybormerr.DBError(err, "fetch: %s", sql))
	}
	return rs, nil
}

// Prepare stages sql into the connection's prepared cursor slot and
// returns it for the caller to Exec one or more times (spec §4.2's
// "prepared cursor slot", used by the convenience prepare/exec/fetch
// methods). A statement already held in the slot is closed first (spec
// §5: "a new prepare replaces and releases the previous statement on the
// same cursor"). The caller does not Close the returned Cursor directly;
// it is released the next time Prepare is called or the Connection is
// closed.
func (c *Connection) Prepare(sql string) (*Cursor, error) {
	if err := c.BeginTransIfNecessary(); err != nil {
		return nil, err
	}
	if c.prepared != nil {
		c.prepared.Close()
		c.prepared = nil
	}
	cur, err := c.newCursor()
	if err != nil {
		return nil, err
	}
	if err := cur.Prepare(sql); err != nil {
		cur.Close()
		return nil, c.fail(ybormerr.DBError(err, "prepare: %s", sql))
	}
	c.prepared = cur
	return cur, nil
}

// PrepareExecMany prepares sql once (via Prepare) and executes it once
// per row in argRows, discarding any result rows (spec §4.3
// Engine.insert: "Prepare once; bind each row").
func (c *Connection) PrepareExecMany(sql string, argRows [][]value.Value) error {
	cur, err := c.Prepare(sql)
	if err != nil {
		return err
	}
	for _, args := range argRows {
		c.logSQL(sql, args)
		if err := cur.Exec(args); err != nil {
			return c.fail(ybormerr.DBError(err, "exec: %s", sql))
		}
	}
	return nil
}

func (c *Connection) logSQL(sql string, args []value.Value) {
	if !c.echo {
		return
	}
	if len(args) == 0 {
		c.log.Debug("sql", "stmt", sql)
		return
	}
	rendered := make([]string, len(args))
	for i, a := range args {
		rendered[i] = a.SQLStr()
	}
	c.log.Debug("sql", "stmt", sql, "params", fmt.Sprint(rendered))
}
