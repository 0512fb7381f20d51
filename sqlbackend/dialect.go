// Package sqlbackend implements the dialect-neutral SQL execution
// substrate (spec §4.2, C4): the Dialect capability vector, the Driver
// that opens ConnectionBackends, the Connection/Cursor wrappers, and row
// streaming. Concrete database drivers (mysql/postgres/sqlite3
// subpackages) plug into this substrate; mssql is documented but not
// backed, per spec §1's scope boundary.
package sqlbackend

import (
	"github.com/yborm/yborm-go/sqlexpr"
	"github.com/yborm/yborm-go/value"
	"github.com/yborm/yborm-go/ybormerr"
)

// Dialect is the capability vector of one SQL engine's flavor (spec
// §4.2). Every operation that isn't universally supported (e.g.
// sequences on MySQL) returns SqlDialectError rather than panicking.
type Dialect interface {
	Name() string

	// SQLType renders the DDL type name for a Value type + declared size
	// (e.g. Integer -> "INT", String+50 -> "VARCHAR(50)").
	SQLType(t value.Type, size int) string

	SupportsSequences() bool
	DualTableName() string
	SysdateLiteral() string
	AutoIncrementSyntax() string

	// ExplicitNull renders the DDL fragment for an explicitly nullable
	// column ("NULL" on dialects that require saying so explicitly,
	// "" where omission already means nullable).
	ExplicitNull() string

	// NotNullDefault renders the combined "NOT NULL DEFAULT <v>" (or
	// dialect-specific ordering) fragment for a column.
	NotNullDefault(notNull bool, def value.Value, hasDefault bool) string

	// PKFlagInline reports whether "PRIMARY KEY" is rendered inline on
	// the column definition (true) or as a separate constraint clause
	// appended after all columns (false).
	PKFlagInline() bool

	CreateSequenceSQL(name string) (string, error)
	DropSequenceSQL(name string) (string, error)
	CreateTableSuffix() string

	// GrantInsertIDSQL returns the dialect snippet needed before an
	// explicit insert into a surrogate PK column (e.g. MSSQL's
	// "SET IDENTITY_INSERT t ON"), or "" if the dialect needs none.
	GrantInsertIDSQL(table string, on bool) string

	// SelectLastInsertIDSQL returns the statement used to read back the
	// value just assigned to an autoincrement column, or "" if the dialect
	// has none; for "", Engine.Insert reads back no generated ids.
	SelectLastInsertIDSQL(table, pkColumn string) string

	PagerModel() sqlexpr.PagerModel
	HasForUpdate() bool

	// CommitDDL reports whether a DDL statement needs an explicit COMMIT
	// issued right after it (dialects that can't run DDL in a
	// transaction).
	CommitDDL() bool

	// FKInternal reports whether foreign keys are emitted inline inside
	// CREATE TABLE (true) or as separate ALTER TABLE ... ADD FOREIGN KEY
	// statements issued after all tables exist (false).
	FKInternal() bool

	NativeDriverEatsSlash() bool

	QuoteChar() string

	Introspector
}

// Introspector is the read-only schema-discovery half of a Dialect (spec
// §4.2): list tables/views, check existence, and list a table's columns
// with their FK targets. Implementations issue these against the live
// connection they're handed.
type Introspector interface {
	ListTables(exec Execer) ([]string, error)
	ListViews(exec Execer) ([]string, error)
	TableExists(exec Execer, name string) (bool, error)
	ViewExists(exec Execer, name string) (bool, error)
	ListColumnsWithFK(exec Execer, table string) ([]IntrospectedColumn, error)
}

// IntrospectedColumn is one row of ListColumnsWithFK's result.
type IntrospectedColumn struct {
	Name     string
	TypeName string
	Nullable bool
	FKTable  string
	FKColumn string
}

// Execer is the minimal query surface an Introspector needs; Connection
// satisfies it.
type Execer interface {
	Query(sql string, args ...value.Value) (*ResultSet, error)
}

// unsupported is a small helper for Dialect methods that a given dialect
// cannot implement (e.g. sequences on MySQL).
func unsupported(dialect, op string) error {
	return ybormerr.SqlDialectError("%s does not support %s", dialect, op)
}
