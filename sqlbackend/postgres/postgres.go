// Package postgres wires sqlbackend to PostgreSQL via github.com/lib/pq,
// grounded on the teacher's adapter/postgres and database/postgres
// packages (DSN shape, information_schema/pg_catalog introspection,
// sequence support). Inserts carry no RETURNING clause.
package postgres

import (
	"fmt"
	"strings"

	_ "github.com/lib/pq"

	"github.com/yborm/yborm-go/sqlbackend"
	"github.com/yborm/yborm-go/sqlbackend/stdsql"
	"github.com/yborm/yborm-go/sqlexpr"
	"github.com/yborm/yborm-go/value"
)

const Name = "postgres"

type dialect struct{}

func Dialect() sqlbackend.Dialect { return dialect{} }

func (dialect) Name() string { return Name }

func (dialect) SQLType(t value.Type, size int) string {
	switch t {
	case value.Integer:
		return "INTEGER"
	case value.LongInt:
		return "BIGINT"
	case value.Float:
		return "DOUBLE PRECISION"
	case value.String:
		if size <= 0 {
			return "TEXT"
		}
		return fmt.Sprintf("VARCHAR(%d)", size)
	case value.Decimal:
		return fmt.Sprintf("NUMERIC(%d,%d)", 18, size)
	case value.DateTime:
		return "TIMESTAMP"
	case value.Blob:
		return "BYTEA"
	default:
		return "TEXT"
	}
}

func (dialect) SupportsSequences() bool        { return true }
func (dialect) DualTableName() string          { return "" }
func (dialect) SysdateLiteral() string         { return "NOW()" }
func (dialect) AutoIncrementSyntax() string    { return "" }
func (dialect) ExplicitNull() string           { return "NULL" }
func (dialect) PKFlagInline() bool             { return true }
func (dialect) CreateTableSuffix() string      { return "" }
func (dialect) CommitDDL() bool                { return false }
func (dialect) FKInternal() bool               { return false }
func (dialect) NativeDriverEatsSlash() bool    { return false }
func (dialect) QuoteChar() string              { return `"` }
func (dialect) PagerModel() sqlexpr.PagerModel { return sqlexpr.PagerPostgres }
func (dialect) HasForUpdate() bool             { return true }

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
	return fmt.Sprintf("CREATE SEQUENCE %s", name), nil
}

func (dialect) DropSequenceSQL(name string) (string, error) {
	return fmt.Sprintf("DROP SEQUENCE %s", name), nil
}

func (dialect) GrantInsertIDSQL(table string, on bool) string { return "" }

func (dialect) SelectLastInsertIDSQL(table, pkColumn string) string {
	return ""
}

func (dialect) ListTables(exec sqlbackend.Execer) ([]string, error) {
	const q = `SELECT table_name FROM information_schema.tables
WHERE table_schema = 'public' AND table_type = 'BASE TABLE'`
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
	const q = `SELECT table_name FROM information_schema.views WHERE table_schema = 'public'`
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

func (dialect) ListColumnsWithFK(exec sqlbackend.Execer, table string) ([]sqlbackend.IntrospectedColumn, error) {
	const q = `
SELECT c.column_name, c.data_type,
       (c.is_nullable = 'YES'),
       COALESCE(ft.relname, ''), COALESCE(fa.attname, '')
FROM information_schema.columns c
LEFT JOIN information_schema.key_column_usage kcu
  ON kcu.table_schema = c.table_schema AND kcu.table_name = c.table_name
 AND kcu.column_name = c.column_name
LEFT JOIN information_schema.referential_constraints rc
  ON rc.constraint_name = kcu.constraint_name AND rc.constraint_schema = kcu.table_schema
LEFT JOIN information_schema.constraint_column_usage ccu
  ON ccu.constraint_name = rc.unique_constraint_name AND ccu.constraint_schema = rc.unique_constraint_schema
LEFT JOIN pg_catalog.pg_class ft ON ft.relname = ccu.table_name
LEFT JOIN pg_catalog.pg_attribute fa ON fa.attrelid = ft.oid AND fa.attname = ccu.column_name
WHERE c.table_schema = 'public' AND c.table_name = $1
ORDER BY c.ordinal_position`
	rs, err := exec.Query(q, value.NewString(table))
	if err != nil {
		return nil, err
	}
	defer rs.Close()
	var cols []sqlbackend.IntrospectedColumn
	for rs.Next() {
		row := rs.Row()
		nullable := row.Values[2].AsInteger() != 0
		cols = append(cols, sqlbackend.IntrospectedColumn{
			Name:     row.Values[0].AsString(),
			TypeName: row.Values[1].AsString(),
			Nullable: nullable,
			FKTable:  row.Values[3].AsString(),
			FKColumn: row.Values[4].AsString(),
		})
	}
	return cols, rs.Err()
}

type driverImpl struct{}

func NewDriver() sqlbackend.Driver { return driverImpl{} }

func (driverImpl) Dialect() sqlbackend.Dialect              { return Dialect() }
func (driverImpl) NewBackend() sqlbackend.ConnectionBackend { return stdsql.New(Name) }
func (driverImpl) RequiresExplicitBegin() bool              { return true }
func (driverImpl) WantsNumberedParams() bool                { return true }

// BuildDSN assembles a lib/pq key=value DSN from discrete parts (spec §6
// source string decomposition), grounded on the teacher's postgresBuildDSN.
func BuildDSN(user, password, host string, port int, dbName string) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbName)
}
