// Package mssql documents SQL Server's capability vector the way the
// teacher's database/mssql package enumerates MSSQL-specific DDL and
// introspection quirks, but stops at the Dialect descriptor: no
// ConnectionBackend is wired up, per this module's scope boundary. The
// github.com/denisenkom/go-mssqldb import is kept for its database/sql
// driver registration (so a caller who wants to go further has the
// driver already linked in) and to satisfy go.mod's dependency on it.
package mssql

import (
	"fmt"
	"strings"

	_ "github.com/denisenkom/go-mssqldb"

	"github.com/yborm/yborm-go/sqlbackend"
	"github.com/yborm/yborm-go/sqlexpr"
	"github.com/yborm/yborm-go/value"
	"github.com/yborm/yborm-go/ybormerr"
)

const Name = "mssql"

type dialect struct{}

func Dialect() sqlbackend.Dialect { return dialect{} }

func (dialect) Name() string { return Name }

func (dialect) SQLType(t value.Type, size int) string {
	switch t {
	case value.Integer:
		return "INT"
	case value.LongInt:
		return "BIGINT"
	case value.Float:
		return "FLOAT"
	case value.String:
		if size <= 0 {
			return "NVARCHAR(MAX)"
		}
		return fmt.Sprintf("NVARCHAR(%d)", size)
	case value.Decimal:
		return fmt.Sprintf("DECIMAL(%d,%d)", 18, size)
	case value.DateTime:
		return "DATETIME2"
	case value.Blob:
		return "VARBINARY(MAX)"
	default:
		return "NVARCHAR(MAX)"
	}
}

func (dialect) SupportsSequences() bool        { return true }
func (dialect) DualTableName() string          { return "" }
func (dialect) SysdateLiteral() string         { return "SYSDATETIME()" }
func (dialect) AutoIncrementSyntax() string    { return "IDENTITY(1,1)" }
func (dialect) ExplicitNull() string           { return "NULL" }
func (dialect) PKFlagInline() bool             { return false }
func (dialect) CreateTableSuffix() string      { return "" }
func (dialect) CommitDDL() bool                { return true }
func (dialect) FKInternal() bool               { return false }
func (dialect) NativeDriverEatsSlash() bool    { return false }
func (dialect) QuoteChar() string              { return "[" }
func (dialect) PagerModel() sqlexpr.PagerModel { return sqlexpr.PagerMssql }
func (dialect) HasForUpdate() bool             { return false }

func (dialect) NotNullDefault(notNull bool, def value.Value, hasDefault bool) string {
	var b strings.Builder
	if hasDefault {
		fmt.Fprintf(&b, " DEFAULT %s", def.SQLStr())
	}
	if notNull {
		b.WriteString(" NOT NULL")
	}
	return b.String()
}

func (dialect) CreateSequenceSQL(name string) (string, error) {
	return fmt.Sprintf("CREATE SEQUENCE %s AS BIGINT START WITH 1 INCREMENT BY 1", name), nil
}

func (dialect) DropSequenceSQL(name string) (string, error) {
	return fmt.Sprintf("DROP SEQUENCE %s", name), nil
}

// GrantInsertIDSQL toggles IDENTITY_INSERT, needed whenever the caller
// assigns a surrogate PK explicitly instead of letting IDENTITY generate
// it.
func (dialect) GrantInsertIDSQL(table string, on bool) string {
	state := "OFF"
	if on {
		state = "ON"
	}
	return fmt.Sprintf("SET IDENTITY_INSERT %s %s", table, state)
}

func (dialect) SelectLastInsertIDSQL(table, pkColumn string) string {
	return "SELECT SCOPE_IDENTITY()"
}

var errNotBacked = ybormerr.SqlDialectError("mssql: no live backend wired, dialect descriptor only")

func (dialect) ListTables(exec sqlbackend.Execer) ([]string, error)  { return nil, errNotBacked }
func (dialect) ListViews(exec sqlbackend.Execer) ([]string, error)   { return nil, errNotBacked }
func (dialect) TableExists(exec sqlbackend.Execer, name string) (bool, error) {
	return false, errNotBacked
}
func (dialect) ViewExists(exec sqlbackend.Execer, name string) (bool, error) {
	return false, errNotBacked
}
func (dialect) ListColumnsWithFK(exec sqlbackend.Execer, table string) ([]sqlbackend.IntrospectedColumn, error) {
	return nil, errNotBacked
}
