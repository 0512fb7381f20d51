package schema

import (
	"github.com/yborm/yborm-go/ybormerr"
)

// Table describes one mapped table (spec §3).
type Table struct {
	name         string
	displayName  string
	className    string
	sequenceName string
	autoIncrement bool

	columns   []*Column
	nameIndex map[string]int

	pkIndexes []int // indexes into columns, in declaration order
	depth     int
}

// NewTable builds a Table from an ordered column list. At least one column
// is required (spec §3 invariant); at most one single-column integer PK may
// be marked as the surrogate PK.
func NewTable(name string, columns ...*Column) (*Table, error) {
	if len(columns) == 0 {
		return nil, ybormerr.New(ybormerr.Metadata, "table %s must have at least one column", name)
	}
	t := &Table{
		name:      name,
		columns:   columns,
		nameIndex: make(map[string]int, len(columns)),
	}
	for i, c := range columns {
		if _, dup := t.nameIndex[c.name]; dup {
			return nil, ybormerr.New(ybormerr.Metadata, "duplicate column name %s in table %s", c.name, name)
		}
		t.nameIndex[c.name] = i
		c.table = t
		if c.IsPK() {
			t.pkIndexes = append(t.pkIndexes, i)
		}
	}
	return t, nil
}

func (t *Table) Name() string            { return t.name }
func (t *Table) Columns() []*Column      { return t.columns }
func (t *Table) Size() int               { return len(t.columns) }
func (t *Table) Depth() int              { return t.depth }
func (t *Table) SequenceName() string    { return t.sequenceName }
func (t *Table) AutoIncrement() bool     { return t.autoIncrement }
func (t *Table) DisplayName() string {
	if t.displayName != "" {
		return t.displayName
	}
	return t.name
}
func (t *Table) ClassName() string { return t.className }

func (t *Table) WithDisplayName(n string) *Table   { t.displayName = n; return t }
func (t *Table) WithClassName(n string) *Table     { t.className = n; return t }
func (t *Table) WithSequence(n string) *Table      { t.sequenceName = n; return t }
func (t *Table) WithAutoIncrement() *Table         { t.autoIncrement = true; return t }

// IndexByName returns the column index for name, or -1 if absent.
func (t *Table) IndexByName(name string) int {
	if i, ok := t.nameIndex[name]; ok {
		return i
	}
	return -1
}

func (t *Table) Column(i int) *Column { return t.columns[i] }

func (t *Table) ColumnByName(name string) (*Column, int, error) {
	i, ok := t.nameIndex[name]
	if !ok {
		return nil, -1, ybormerr.New(ybormerr.Metadata, "no such column %s.%s", t.name, name)
	}
	return t.columns[i], i, nil
}

// PKIndexes returns the indexes (in declaration order) of the table's
// primary-key columns.
func (t *Table) PKIndexes() []int { return append([]int(nil), t.pkIndexes...) }

// HasSurrogatePK reports whether this table has exactly one PK column and
// it is an integer type - the "surrogate PK" denoted by spec §3.
func (t *Table) HasSurrogatePK() bool {
	if len(t.pkIndexes) != 1 {
		return false
	}
	c := t.columns[t.pkIndexes[0]]
	return c.Type().String() == "Integer" || c.Type().String() == "LongInt"
}

// PKNames returns the primary-key column names, in declaration order.
func (t *Table) PKNames() []string {
	names := make([]string, 0, len(t.pkIndexes))
	for _, i := range t.pkIndexes {
		names = append(names, t.columns[i].name)
	}
	return names
}
