package engine

import (
	"sort"
	"strings"

	"github.com/yborm/yborm-go/schema"
	"github.com/yborm/yborm-go/sqlbackend"
)

// CreateSchema drives the statement stream from s in dependency order:
// CREATE TABLE per table (depth ascending), then non-inline FK
// constraints, then sequences, issuing COMMIT between DDLs on dialects
// that require it (spec §4.3). No index statements are emitted. With
// ignoreErrors, a failing statement is silently skipped rather than
// aborting the run.
func (e *Engine) CreateSchema(s *schema.Schema, ignoreErrors bool) error {
	if err := e.requireWritable("create_schema"); err != nil {
		return err
	}
	d := e.conn.Dialect()
	tables := tablesByDepth(s.Tables(), false)

	for _, t := range tables {
		if err := e.execDDL(createTableSQL(d, t), ignoreErrors); err != nil {
			return err
		}
	}
	if !d.FKInternal() {
		for _, r := range s.Relations() {
			sql := addForeignKeySQL(d, r)
			if sql == "" {
				continue
			}
			if err := e.execDDL(sql, ignoreErrors); err != nil {
				return err
			}
		}
	}
	if d.SupportsSequences() {
		for _, t := range tables {
			if t.SequenceName() == "" {
				continue
			}
			sql, err := d.CreateSequenceSQL(t.SequenceName())
			if err != nil {
				if ignoreErrors {
					continue
				}
				return err
			}
			if err := e.execDDL(sql, ignoreErrors); err != nil {
				return err
			}
		}
	}
	return nil
}

// DropSchema traverses tables in reverse depth order, then drops
// sequences (spec §4.3).
func (e *Engine) DropSchema(s *schema.Schema, ignoreErrors bool) error {
	if err := e.requireWritable("drop_schema"); err != nil {
		return err
	}
	d := e.conn.Dialect()
	tables := tablesByDepth(s.Tables(), true)
	for _, t := range tables {
		if err := e.execDDL("DROP TABLE "+t.Name(), ignoreErrors); err != nil {
			return err
		}
	}
	if d.SupportsSequences() {
		for _, t := range tables {
			if t.SequenceName() == "" {
				continue
			}
			sql, err := d.DropSequenceSQL(t.SequenceName())
			if err != nil {
				if ignoreErrors {
					continue
				}
				return err
			}
			if err := e.execDDL(sql, ignoreErrors); err != nil {
				return err
			}
		}
	}
	return nil
}

func tablesByDepth(tables []*schema.Table, reverse bool) []*schema.Table {
	out := append([]*schema.Table(nil), tables...)
	sort.SliceStable(out, func(i, j int) bool {
		if reverse {
			return out[i].Depth() > out[j].Depth()
		}
		return out[i].Depth() < out[j].Depth()
	})
	return out
}

func (e *Engine) execDDL(sql string, ignoreErrors bool) error {
	if sql == "" {
		return nil
	}
	if err := e.conn.ExecDirect(sql); err != nil {
		if ignoreErrors {
			return nil
		}
		return err
	}
	if e.conn.Dialect().CommitDDL() {
		return e.conn.Commit()
	}
	return nil
}

// createTableSQL renders "CREATE TABLE t (...)" for one table, honoring
// the dialect's inline-vs-trailing PK placement, inline-FK placement, and
// NOT NULL/DEFAULT rendering (spec §4.3/§4.2).
func createTableSQL(d sqlbackend.Dialect, t *schema.Table) string {
	var defs []string
	for _, c := range t.Columns() {
		defs = append(defs, columnDefSQL(d, t, c))
	}
	if !d.PKFlagInline() {
		if pk := t.PKNames(); len(pk) > 0 {
			defs = append(defs, "PRIMARY KEY ("+strings.Join(pk, ", ")+")")
		}
	}
	if d.FKInternal() {
		for _, c := range t.Columns() {
			if fk := c.ForeignKey(); fk != nil {
				defs = append(defs, "FOREIGN KEY ("+c.Name()+") REFERENCES "+fk.Table+" ("+fk.Column+")")
			}
		}
	}
	sql := "CREATE TABLE " + t.Name() + " (" + strings.Join(defs, ", ") + ")"
	if suffix := d.CreateTableSuffix(); suffix != "" {
		sql += " " + suffix
	}
	return sql
}

func columnDefSQL(d sqlbackend.Dialect, t *schema.Table, c *schema.Column) string {
	var b strings.Builder
	b.WriteString(c.Name())
	b.WriteByte(' ')
	b.WriteString(d.SQLType(c.Type(), c.Size()))
	if c.IsPK() && d.PKFlagInline() {
		b.WriteString(" PRIMARY KEY")
		if t.AutoIncrement() && t.HasSurrogatePK() {
			if inc := d.AutoIncrementSyntax(); inc != "" {
				b.WriteByte(' ')
				b.WriteString(inc)
			}
		}
	}
	def, hasDefault := c.Default()
	b.WriteString(d.NotNullDefault(!c.IsNullable() && !c.IsPK(), def, hasDefault))
	if c.IsNullable() {
		if n := d.ExplicitNull(); n != "" {
			b.WriteByte(' ')
			b.WriteString(n)
		}
	}
	return b.String()
}

// addForeignKeySQL renders "ALTER TABLE slave ADD FOREIGN KEY (...)
// REFERENCES master (...)", with no named constraint, for dialects that don't inline FKs
// into CREATE TABLE (spec §4.3 create_schema step 2).
func addForeignKeySQL(d sqlbackend.Dialect, r *schema.Relation) string {
	if r.SlaveTable() == nil || r.MasterTable() == nil || len(r.FKColumns()) == 0 {
		return ""
	}
	masterPK := r.MasterTable().PKNames()
	if len(masterPK) != len(r.FKColumns()) {
		return ""
	}
	return "ALTER TABLE " + r.SlaveTable().Name() + " ADD FOREIGN KEY (" +
		strings.Join(r.FKColumns(), ", ") + ") REFERENCES " + r.MasterTable().Name() +
		" (" + strings.Join(masterPK, ", ") + ")"
}
