package schema

import "github.com/yborm/yborm-go/value"

// ColumnFlag is a bit flag on a Column (spec §3).
type ColumnFlag int

const (
	FlagNone ColumnFlag = 0
	PrimaryKey ColumnFlag = 1 << iota
	ReadOnly
	Nullable
)

func (c ColumnFlag) Has(f ColumnFlag) bool { return c&f != 0 }

// ForeignKeyTarget names the referenced table and column of a Column's FK,
// if any.
type ForeignKeyTarget struct {
	Table  string
	Column string
}

// Column describes one column of a Table (spec §3). Columns are built with
// NewColumn and chained With* setters so table definitions read declaratively,
// in the same spirit as the teacher's schema.Column literal construction.
type Column struct {
	name         string
	typ          value.Type
	size         int // declared size, for String columns
	flags        ColumnFlag
	defaultValue value.Value
	hasDefault   bool
	fk           *ForeignKeyTarget
	displayName  string
	propertyName string
	indexName    string

	table *Table // back-reference, set when the column is added to a Table
}

func NewColumn(name string, typ value.Type) *Column {
	return &Column{name: name, typ: typ}
}

func (c *Column) WithSize(size int) *Column         { c.size = size; return c }
func (c *Column) WithFlags(f ColumnFlag) *Column     { c.flags |= f; return c }
func (c *Column) WithDefault(v value.Value) *Column  { c.defaultValue = v; c.hasDefault = true; return c }
func (c *Column) WithForeignKey(table, column string) *Column {
	c.fk = &ForeignKeyTarget{Table: table, Column: column}
	return c
}
func (c *Column) WithDisplayName(n string) *Column  { c.displayName = n; return c }
func (c *Column) WithPropertyName(n string) *Column { c.propertyName = n; return c }
func (c *Column) WithIndexName(n string) *Column    { c.indexName = n; return c }

func (c *Column) Name() string         { return c.name }
func (c *Column) Type() value.Type     { return c.typ }
func (c *Column) Size() int            { return c.size }
func (c *Column) IsPK() bool           { return c.flags.Has(PrimaryKey) }
func (c *Column) IsReadOnly() bool     { return c.flags.Has(ReadOnly) }
func (c *Column) IsNullable() bool     { return c.flags.Has(Nullable) }
func (c *Column) ForeignKey() *ForeignKeyTarget { return c.fk }
func (c *Column) DisplayName() string  { return c.displayName }
func (c *Column) PropertyName() string { return c.propertyName }
func (c *Column) IndexName() string    { return c.indexName }
func (c *Column) Table() *Table        { return c.table }

func (c *Column) Default() (value.Value, bool) { return c.defaultValue, c.hasDefault }
