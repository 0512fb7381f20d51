// Package sqlite3 wires sqlbackend to SQLite via the pure-Go
// modernc.org/sqlite driver, grounded on the teacher's
// adapter/sqlite3 and database/sqlite3 packages (sqlite_master
// introspection, PRAGMA-based column/FK discovery). modernc.org/sqlite
// is used instead of mattn/go-sqlite3 to avoid a cgo dependency, matching
// the teacher's current go.mod choice.
package sqlite3

import (
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/yborm/yborm-go/sqlbackend"
	"github.com/yborm/yborm-go/sqlbackend/stdsql"
	"github.com/yborm/yborm-go/sqlexpr"
	"github.com/yborm/yborm-go/value"
	"github.com/yborm/yborm-go/ybormerr"
)

const Name = "sqlite"

type dialect struct{}

func Dialect() sqlbackend.Dialect { return dialect{} }

func (dialect) Name() string { return "sqlite3" }

func (dialect) SQLType(t value.Type, size int) string {
	switch t {
	case value.Integer, value.LongInt:
		return "INTEGER"
	case value.Float:
		return "REAL"
	case value.String:
		return "TEXT"
	case value.Decimal:
		return "NUMERIC"
	case value.DateTime:
		return "DATETIME"
	case value.Blob:
		return "BLOB"
	default:
		return "TEXT"
	}
}

func (dialect) SupportsSequences() bool        { return false }
func (dialect) DualTableName() string          { return "" }
func (dialect) SysdateLiteral() string         { return "CURRENT_TIMESTAMP" }
func (dialect) AutoIncrementSyntax() string    { return "AUTOINCREMENT" }
func (dialect) ExplicitNull() string           { return "" }
func (dialect) PKFlagInline() bool             { return true }
func (dialect) CreateTableSuffix() string      { return "" }
func (dialect) CommitDDL() bool                { return false }
func (dialect) FKInternal() bool               { return true }
func (dialect) NativeDriverEatsSlash() bool    { return true }
func (dialect) QuoteChar() string              { return `"` }
func (dialect) PagerModel() sqlexpr.PagerModel { return sqlexpr.PagerPostgres }
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

func (d dialect) CreateSequenceSQL(name string) (string, error) {
	return "", ybormerr.SqlDialectError("%s does not support sequences", d.Name())
}

func (d dialect) DropSequenceSQL(name string) (string, error) {
	return "", ybormerr.SqlDialectError("%s does not support sequences", d.Name())
}

func (dialect) GrantInsertIDSQL(table string, on bool) string { return "" }

func (dialect) SelectLastInsertIDSQL(table, pkColumn string) string {
	return "SELECT last_insert_rowid()"
}

func (dialect) ListTables(exec sqlbackend.Execer) ([]string, error) {
	const q = `SELECT tbl_name FROM sqlite_master WHERE type = 'table' AND tbl_name NOT LIKE 'sqlite_%'`
	rs, err := exec.Query(q)
	if err != nil {
		return nil, err
	}
	defer rs.Close()
	var names []string
	for rs.Next() {
		names = append(names, rs.Row().Values[0].AsString())
	}
	return names, rs.Err()
}

func (dialect) ListViews(exec sqlbackend.Execer) ([]string, error) {
	const q = `SELECT tbl_name FROM sqlite_master WHERE type = 'view'`
	rs, err := exec.Query(q)
	if err != nil {
		return nil, err
	}
	defer rs.Close()
	var names []string
	for rs.Next() {
		names = append(names, rs.Row().Values[0].AsString())
	}
	return names, rs.Err()
}

func (d dialect) TableExists(exec sqlbackend.Execer, name string) (bool, error) {
	tables, err := d.ListTables(exec)
	if err != nil {
		return false, err
	}
	for _, t := range tables {
		if strings.EqualFold(t, name) {
			return true, nil
		}
	}
	return false, nil
}

func (d dialect) ViewExists(exec sqlbackend.Execer, name string) (bool, error) {
	views, err := d.ListViews(exec)
	if err != nil {
		return false, err
	}
	for _, v := range views {
		if strings.EqualFold(v, name) {
			return true, nil
		}
	}
	return false, nil
}

// ListColumnsWithFK combines PRAGMA table_info and PRAGMA foreign_key_list,
// sqlite's only column/FK introspection surface (no information_schema).
func (dialect) ListColumnsWithFK(exec sqlbackend.Execer, table string) ([]sqlbackend.IntrospectedColumn, error) {
	rs, err := exec.Query(fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(table)))
	if err != nil {
		return nil, err
	}
	var cols []sqlbackend.IntrospectedColumn
	for rs.Next() {
		row := rs.Row()
		col := sqlbackend.IntrospectedColumn{
			Name:     col2(row, "name"),
			TypeName: col2(row, "type"),
			Nullable: col2(row, "notnull") != "1",
		}
		cols = append(cols, col)
	}
	rs.Close()
	if err := rs.Err(); err != nil {
		return nil, err
	}

	fkrs, err := exec.Query(fmt.Sprintf("PRAGMA foreign_key_list(%s)", quoteIdent(table)))
	if err != nil {
		return nil, err
	}
	defer fkrs.Close()
	for fkrs.Next() {
		row := fkrs.Row()
		from := col2(row, "from")
		toTable := col2(row, "table")
		toCol := col2(row, "to")
		for i := range cols {
			if cols[i].Name == from {
				cols[i].FKTable = toTable
				cols[i].FKColumn = toCol
			}
		}
	}
	return cols, fkrs.Err()
}

func col2(row sqlbackend.Row, name string) string {
	upper := strings.ToUpper(name)
	for i, n := range row.Names {
		if n == upper {
			return row.Values[i].AsString()
		}
	}
	return ""
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

type driverImpl struct{}

func NewDriver() sqlbackend.Driver { return driverImpl{} }

func (driverImpl) Dialect() sqlbackend.Dialect              { return Dialect() }
func (driverImpl) NewBackend() sqlbackend.ConnectionBackend { return stdsql.New(Name) }
func (driverImpl) RequiresExplicitBegin() bool              { return true }
func (driverImpl) WantsNumberedParams() bool                { return false }

// BuildDSN returns the filesystem path (or ":memory:") sqlite opens,
// matching the teacher's direct config.DbName usage in NewDatabase.
func BuildDSN(path string) string { return path }
