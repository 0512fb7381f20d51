// Package mysql wires sqlbackend to MySQL/MariaDB via
// github.com/go-sql-driver/mysql, grounded on the teacher's
// adapter/mysql and database/mysql packages (DSN shape, information_schema
// introspection queries, AUTO_INCREMENT/backtick-quoting conventions).
package mysql

import (
	"fmt"
	"strings"

	driver "github.com/go-sql-driver/mysql"

	"github.com/yborm/yborm-go/sqlbackend"
	"github.com/yborm/yborm-go/sqlbackend/stdsql"
	"github.com/yborm/yborm-go/sqlexpr"
	"github.com/yborm/yborm-go/value"
	"github.com/yborm/yborm-go/ybormerr"
)

const Name = "mysql"

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
		return "DOUBLE"
	case value.String:
		if size <= 0 {
			return "TEXT"
		}
		return fmt.Sprintf("VARCHAR(%d)", size)
	case value.Decimal:
		return fmt.Sprintf("DECIMAL(%d,%d)", 18, size)
	case value.DateTime:
		return "DATETIME"
	case value.Blob:
		return "LONGBLOB"
	default:
		return "TEXT"
	}
}

func (dialect) SupportsSequences() bool      { return false }
func (dialect) DualTableName() string        { return "DUAL" }
func (dialect) SysdateLiteral() string       { return "NOW()" }
func (dialect) AutoIncrementSyntax() string  { return "AUTO_INCREMENT" }
func (dialect) ExplicitNull() string         { return "" }
func (dialect) PKFlagInline() bool           { return true }
func (dialect) CreateTableSuffix() string    { return " ENGINE=InnoDB" }
func (dialect) CommitDDL() bool              { return false }
func (dialect) FKInternal() bool             { return true }
func (dialect) NativeDriverEatsSlash() bool  { return false }
func (dialect) QuoteChar() string            { return "`" }
func (dialect) PagerModel() sqlexpr.PagerModel { return sqlexpr.PagerMysql }
func (dialect) HasForUpdate() bool           { return true }

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
	return "", ybormerr.SqlDialectError("%s does not support %s", d.Name(), "sequences")
}

func (d dialect) DropSequenceSQL(name string) (string, error) {
	return "", ybormerr.SqlDialectError("%s does not support %s", d.Name(), "sequences")
}

func (dialect) GrantInsertIDSQL(table string, on bool) string { return "" }

func (dialect) SelectLastInsertIDSQL(table, pkColumn string) string {
	return "SELECT LAST_INSERT_ID()"
}

func (dialect) ListTables(exec sqlbackend.Execer) ([]string, error) {
	rs, err := exec.Query("SHOW FULL TABLES WHERE Table_Type != 'VIEW'")
	if err != nil {
		return nil, err
	}
	defer rs.Close()
	var names []string
	for rs.Next() {
		row := rs.Row()
		if len(row.Values) > 0 {
			names = append(names, row.Values[0].AsString())
		}
	}
	return names, rs.Err()
}

func (dialect) ListViews(exec sqlbackend.Execer) ([]string, error) {
	rs, err := exec.Query("SHOW FULL TABLES WHERE Table_Type = 'VIEW'")
	if err != nil {
		return nil, err
	}
	defer rs.Close()
	var names []string
	for rs.Next() {
		row := rs.Row()
		if len(row.Values) > 0 {
			names = append(names, row.Values[0].AsString())
		}
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

func (dialect) ListColumnsWithFK(exec sqlbackend.Execer, table string) ([]sqlbackend.IntrospectedColumn, error) {
	const q = `
SELECT c.COLUMN_NAME, c.DATA_TYPE, c.IS_NULLABLE,
       COALESCE(k.REFERENCED_TABLE_NAME, ''), COALESCE(k.REFERENCED_COLUMN_NAME, '')
FROM INFORMATION_SCHEMA.COLUMNS c
LEFT JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE k
  ON k.TABLE_SCHEMA = c.TABLE_SCHEMA AND k.TABLE_NAME = c.TABLE_NAME
 AND k.COLUMN_NAME = c.COLUMN_NAME AND k.REFERENCED_TABLE_NAME IS NOT NULL
WHERE c.TABLE_SCHEMA = DATABASE() AND c.TABLE_NAME = ?
ORDER BY c.ORDINAL_POSITION`
	rs, err := exec.Query(q, value.NewString(table))
	if err != nil {
		return nil, err
	}
	defer rs.Close()
	var cols []sqlbackend.IntrospectedColumn
	for rs.Next() {
		row := rs.Row()
		cols = append(cols, sqlbackend.IntrospectedColumn{
			Name:     row.Values[0].AsString(),
			TypeName: row.Values[1].AsString(),
			Nullable: strings.EqualFold(row.Values[2].AsString(), "YES"),
			FKTable:  row.Values[3].AsString(),
			FKColumn: row.Values[4].AsString(),
		})
	}
	return cols, rs.Err()
}

// driverImpl adapts stdsql.Backend to sqlbackend.Driver for MySQL: no
// explicit BEGIN is required (autocommit is per-statement until one is
// started), and "?" placeholders pass through unchanged.
type driverImpl struct{}

func NewDriver() sqlbackend.Driver { return driverImpl{} }

func (driverImpl) Dialect() sqlbackend.Dialect          { return Dialect() }
func (driverImpl) NewBackend() sqlbackend.ConnectionBackend { return stdsql.New(Name) }
func (driverImpl) RequiresExplicitBegin() bool          { return false }
func (driverImpl) WantsNumberedParams() bool            { return false }

// BuildDSN assembles a go-sql-driver/mysql DSN from discrete parts
// (spec §6 source string decomposition), grounded on the teacher's
// mysqlBuildDSN.
func BuildDSN(user, password, host string, port int, dbName string) string {
	cfg := driver.NewConfig()
	cfg.User = user
	cfg.Passwd = password
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", host, port)
	cfg.DBName = dbName
	cfg.ParseTime = true
	return cfg.FormatDSN()
}
