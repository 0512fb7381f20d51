package dataobj

import (
	"github.com/yborm/yborm-go/engine"
	"github.com/yborm/yborm-go/schema"
	"github.com/yborm/yborm-go/sqlexpr"
	"github.com/yborm/yborm-go/value"
	"github.com/yborm/yborm-go/ybormerr"
)

// DataObject is one entity node: a Table back-reference, a per-column
// Value array in column order, a lifecycle Status, a cached Key, and
// the two relation-edge maps of spec §3. Only the accessors below are
// exported; the raw value array is package-private, matching the
// teacher's convention of package-scoped row storage behind a typed
// accessor surface.
type DataObject struct {
	table  *schema.Table
	values []value.Value
	status Status

	key         schema.Key
	keyStr      string
	assignedKey bool
	depth       int

	handle Handle

	// masterRelations are owned by this object: edges where this object
	// is the "one" side of a OneToMany/ParentChild relation.
	masterRelations map[*schema.Relation]*RelationObject

	// slaveOf is borrowed: for relations where this object is a "many"
	// side, it records the current master's Handle. The actual
	// RelationObject lives in the master's masterRelations map and is
	// reached through Session.Resolve, never stored here directly.
	slaveOf map[*schema.Relation]Handle
}

// NewDataObject allocates a fresh, detached DataObject for table with the
// given initial status (New or Ghost per spec §3 create_new). The value
// array is sized to the table's column count and starts entirely null.
func NewDataObject(table *schema.Table, status Status) *DataObject {
	return &DataObject{
		table:           table,
		values:          make([]value.Value, table.Size()),
		status:          status,
		masterRelations: make(map[*schema.Relation]*RelationObject),
		slaveOf:         make(map[*schema.Relation]Handle),
	}
}

func (d *DataObject) Table() *schema.Table { return d.table }
func (d *DataObject) Status() Status       { return d.status }
func (d *DataObject) Key() schema.Key      { return d.key }
func (d *DataObject) KeyString() string    { return d.keyStr }
func (d *DataObject) AssignedKey() bool    { return d.assignedKey }
func (d *DataObject) Depth() int           { return d.depth }
func (d *DataObject) Handle() Handle       { return d.handle }

// SetHandle is called exactly once by Session when the object is
// registered into its arena/identity map.
func (d *DataObject) SetHandle(h Handle) { d.handle = h }

// SetStatus lets Session drive the lifecycle transitions it owns
// (New->Ghost after flush_new, Dirty->Ghost after flush_update,
// ToBeDeleted->Deleted after flush_delete - spec §4.5).
func (d *DataObject) SetStatus(s Status) { d.status = s }

// SeedKey pre-populates the PK columns from key, used by Session when it
// fabricates a Ghost placeholder for get_lazy (spec §4.5).
func (d *DataObject) SeedKey(key schema.Key) {
	for _, part := range key.Parts {
		if idx := d.table.IndexByName(part.Column); idx >= 0 {
			d.values[idx] = part.Value
		}
	}
	d.recomputeKey()
}

func (d *DataObject) recomputeKey() {
	d.key, d.assignedKey = d.table.MkKey(d.values)
	d.keyStr = d.key.String()
}

// RawValues returns the live backing slice; Session uses this for flush
// batching (building row images for Insert/Update) and must not mutate
// it, only read it, since mutation must go through Set to preserve the
// status/key invariants.
func (d *DataObject) RawValues() []value.Value { return d.values }

// Get returns column i's value, triggering a lazy Load first if the
// object is a Ghost and i is not a PK column (spec §4.4 get(i)).
func (d *DataObject) Get(i int, sess Session) (value.Value, error) {
	col := d.table.Column(i)
	if d.status == Ghost && !col.IsPK() {
		if err := d.Load(sess); err != nil {
			return value.Value{}, err
		}
	}
	return d.values[i], nil
}

// GetByName resolves name to a column index and defers to Get.
func (d *DataObject) GetByName(name string, sess Session) (value.Value, error) {
	_, i, err := d.table.ColumnByName(name)
	if err != nil {
		return value.Value{}, err
	}
	return d.Get(i, sess)
}

// Set writes column i (spec §4.4 set(index_or_name, v)):
//   - rejects writes to a read-only column, except a still-null PK
//     column (first assignment of a generated/explicit key);
//   - rejects re-setting an already-assigned PK column once the object
//     is Sync (spec §8 boundary behavior), even though PK alone isn't
//     flagged ReadOnly;
//   - coerces v to the column's declared type, failing on bad casts and
//     on strings exceeding the declared size;
//   - recomputes the cached Key on a PK write;
//   - transitions Sync->Dirty on a non-PK write.
func (d *DataObject) Set(i int, v value.Value) error {
	col := d.table.Column(i)

	if col.IsPK() && d.status == Sync && !d.values[i].IsNull() {
		return ybormerr.ReadOnlyColumn(d.table.Name(), col.Name())
	}
	if col.IsReadOnly() && !(col.IsPK() && d.values[i].IsNull()) {
		return ybormerr.ReadOnlyColumn(d.table.Name(), col.Name())
	}

	fixed, err := v.FixType(col.Type())
	if err != nil {
		return err
	}
	if col.Type() == value.String && col.Size() > 0 && !fixed.IsNull() && len(fixed.AsString()) > col.Size() {
		return ybormerr.StringTooLong(d.table.Name(), col.Name(), col.Size())
	}

	d.values[i] = fixed
	if col.IsPK() {
		d.recomputeKey()
	} else if d.status == Sync {
		d.status = Dirty
	}
	return nil
}

// CopyNonPKFrom overwrites d's non-PK column values and status from src,
// used by Session.save_or_update when a caller passes in a transient
// DataObject describing changes to an already-resident one (spec §4.5
// save_or_update).
func (d *DataObject) CopyNonPKFrom(src *DataObject) {
	for i, c := range d.table.Columns() {
		if c.IsPK() {
			continue
		}
		d.values[i] = src.values[i]
	}
	d.status = src.status
}

// SetByName resolves name to a column index and defers to Set.
func (d *DataObject) SetByName(name string, v value.Value) error {
	_, i, err := d.table.ColumnByName(name)
	if err != nil {
		return err
	}
	return d.Set(i, v)
}

// setInternal writes column i without any of Set's caller-facing checks
// (read-only, string-size, Sync->Dirty), used for bookkeeping the
// session drives directly: FK propagation from a master's freshly
// assigned key (refresh_slaves_fkeys) and Nullify cascades. It does
// recompute the key when a PK column changes, since internal callers
// still need that cache kept honest.
func (d *DataObject) setInternal(i int, v value.Value) {
	d.values[i] = v
	if d.table.Column(i).IsPK() {
		d.recomputeKey()
	}
}

// markDirtyIfSync transitions Sync->Dirty; used internally when a
// change doesn't go through Set (FK propagation during link).
func (d *DataObject) markDirtyIfSync() {
	if d.status == Sync {
		d.status = Dirty
	}
}

// Load materializes a Ghost's non-PK columns from the database via
// "SELECT <cols> FROM t WHERE <pk filter>" (spec §4.4 load()). Exactly
// one row is expected; zero rows is ObjectNotFoundByKey.
func (d *DataObject) Load(sess Session) error {
	if sess == nil {
		return ybormerr.New(ybormerr.ObjectGraph, "load: %s is not attached to a session", d.table.Name())
	}
	cols := make([]sqlexpr.Node, len(d.table.Columns()))
	for i, c := range d.table.Columns() {
		cols[i] = sqlexpr.Column{Table: d.table.Name(), Col: c.Name()}
	}
	sel := sqlexpr.NewSelect(cols...).
		From(sqlexpr.TableRef{Name: d.table.Name()}).
		Where(sqlexpr.KeyFilter{Key: d.key})

	rs, err := sess.Engine().SelectIter(sel, false)
	if err != nil {
		return err
	}
	defer rs.Close()

	if !rs.Next() {
		return ybormerr.ObjectNotFoundByKey(d.table.Name(), d.keyStr)
	}
	row := rs.Row()
	if _, err := d.FillFromRow(row, 0); err != nil {
		return err
	}
	if rs.Next() {
		return ybormerr.New(ybormerr.Execution, "load: more than one row for key %s in %s", d.keyStr, d.table.Name())
	}
	return rs.Err()
}

// FillFromRow copies row[offset:offset+table.Size()] into d's values in
// table column order, coercing each to its declared type, then updates
// the cached key and transitions to Sync (spec §4.4 fill_from_row). It
// returns offset+table.Size() so a caller splitting one joined row
// across several tables' DataObjects can thread the cursor through in
// one pass - the reason this works without column-name matching (which
// would be ambiguous across tables sharing a column name like "id") is
// that every caller projects exactly this table's columns, in this
// order, at this position.
func (d *DataObject) FillFromRow(row engine.Row, offset int) (int, error) {
	width := len(d.table.Columns())
	if offset+width > len(row.Values) {
		return 0, ybormerr.New(ybormerr.Execution, "fill_from_row: row has %d values, need %d at offset %d", len(row.Values), width, offset)
	}
	for i, c := range d.table.Columns() {
		fixed, err := row.Values[offset+i].FixType(c.Type())
		if err != nil {
			return 0, err
		}
		d.values[i] = fixed
	}
	d.recomputeKey()
	d.status = Sync
	return offset + width, nil
}
