package dataobj

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yborm/yborm-go/engine"
	"github.com/yborm/yborm-go/schema"
	"github.com/yborm/yborm-go/value"
	"github.com/yborm/yborm-go/ybormerr"
)

// fakeSession is a minimal in-memory Session for exercising the graph
// logic (Link, cascade) without a live database. Tests that would
// reach Engine() (Load, lazy slave loading) instead pre-populate
// RelationObjects directly and mark them Sync via MarkSync.
type fakeSession struct {
	sch     *schema.Schema
	objects map[Handle]*DataObject
	next    Handle
}

func newFakeSession(sch *schema.Schema) *fakeSession {
	return &fakeSession{sch: sch, objects: make(map[Handle]*DataObject)}
}

func (f *fakeSession) Resolve(h Handle) *DataObject { return f.objects[h] }
func (f *fakeSession) Engine() *engine.Engine       { return nil }
func (f *fakeSession) Schema() *schema.Schema       { return f.sch }

func (f *fakeSession) GetLazyByKey(table *schema.Table, key schema.Key) (Handle, error) {
	for h, obj := range f.objects {
		if obj.table == table && obj.keyStr == key.String() {
			return h, nil
		}
	}
	return 0, ybormerr.New(ybormerr.ObjectGraph, "fakeSession: no object for key %s", key.String())
}

func (f *fakeSession) register(d *DataObject) Handle {
	f.next++
	d.SetHandle(f.next)
	f.objects[f.next] = d
	return f.next
}

func buildTestSchema(t *testing.T, cascade schema.CascadePolicy) *schema.Schema {
	t.Helper()
	master, err := schema.NewTable("t_orm_test",
		schema.NewColumn("id", value.LongInt).WithFlags(schema.PrimaryKey),
		schema.NewColumn("a", value.String).WithSize(10),
		schema.NewColumn("c", value.Decimal),
	)
	require.NoError(t, err)
	master.WithClassName("OrmTest")

	slave, err := schema.NewTable("t_orm_xml",
		schema.NewColumn("id", value.LongInt).WithFlags(schema.PrimaryKey),
		schema.NewColumn("orm_test_id", value.LongInt).WithFlags(schema.Nullable).WithForeignKey("t_orm_test", "id"),
		schema.NewColumn("b", value.String).WithSize(50),
	)
	require.NoError(t, err)
	slave.WithClassName("OrmXml")

	s := schema.NewSchema()
	require.NoError(t, s.AddTable(master))
	require.NoError(t, s.AddTable(slave))
	s.AddRelation(&schema.Relation{
		Kind:    schema.OneToMany,
		Cascade: cascade,
		Side1:   schema.RelationSide{ClassName: "OrmTest", Property: "xml"},
		Side2:   schema.RelationSide{ClassName: "OrmXml", Property: "orm_test"},
	})
	require.NoError(t, s.FillForeignKeys())
	require.NoError(t, s.Check())
	return s
}

func TestSetReadOnlyColumnRejected(t *testing.T) {
	sch := buildTestSchema(t, schema.Restrict)
	table, _ := sch.Table("t_orm_test")
	d := NewDataObject(table, New)
	idx := table.IndexByName("id")
	require.NoError(t, d.Set(idx, value.NewLongInt(10)))
	d.status = Sync
	err := d.Set(idx, value.NewLongInt(20))
	assert.True(t, ybormerr.Is(err, ybormerr.ObjectGraph))
}

func TestSetStringTooLong(t *testing.T) {
	sch := buildTestSchema(t, schema.Restrict)
	table, _ := sch.Table("t_orm_test")
	d := NewDataObject(table, New)
	idx := table.IndexByName("a")
	err := d.Set(idx, value.NewString("this string is definitely too long"))
	assert.Error(t, err)
}

func TestSetTransitionsSyncToDirty(t *testing.T) {
	sch := buildTestSchema(t, schema.Restrict)
	table, _ := sch.Table("t_orm_test")
	d := NewDataObject(table, Sync)
	idx := table.IndexByName("a")
	require.NoError(t, d.Set(idx, value.NewString("x")))
	assert.Equal(t, Dirty, d.Status())
}

func TestFillFromRowUpdatesKeyAndStatus(t *testing.T) {
	sch := buildTestSchema(t, schema.Restrict)
	table, _ := sch.Table("t_orm_test")
	d := NewDataObject(table, Ghost)
	row := engine.Row{Values: []value.Value{value.NewLongInt(10), value.NewString("item"), value.NewDecimal(12, 1)}}
	_, err := d.FillFromRow(row, 0)
	require.NoError(t, err)
	assert.Equal(t, Sync, d.Status())
	assert.Equal(t, "t_orm_test|id=10", d.KeyString())
}

func TestLinkAssignsFKAndDepth(t *testing.T) {
	sch := buildTestSchema(t, schema.Delete)
	masterTable, _ := sch.Table("t_orm_test")
	slaveTable, _ := sch.Table("t_orm_xml")
	relation, err := sch.FindRelation("OrmTest", "xml", "OrmXml", true)
	require.NoError(t, err)

	sess := newFakeSession(sch)
	master := NewDataObject(masterTable, Sync)
	require.NoError(t, master.Set(masterTable.IndexByName("id"), value.NewLongInt(10)))
	sess.register(master)

	slave := NewDataObject(slaveTable, Sync)
	require.NoError(t, slave.Set(slaveTable.IndexByName("id"), value.NewLongInt(20)))
	sess.register(slave)

	require.NoError(t, Link(master, slave, relation, sess))

	fk, err := slave.GetByName("orm_test_id", sess)
	require.NoError(t, err)
	assert.Equal(t, int64(10), fk.AsLongInt())
	assert.Equal(t, 1, slave.Depth())

	ro := master.MasterRelation(relation)
	assert.Equal(t, []Handle{slave.Handle()}, ro.Slaves())

	// linking the same slave again must not duplicate it.
	require.NoError(t, Link(master, slave, relation, sess))
	assert.Len(t, ro.Slaves(), 1)
}

func TestLinkDetectsCycle(t *testing.T) {
	sch := buildTestSchema(t, schema.Delete)
	masterTable, _ := sch.Table("t_orm_test")
	relation, err := sch.FindRelation("OrmTest", "xml", "OrmXml", true)
	require.NoError(t, err)

	sess := newFakeSession(sch)
	a := NewDataObject(masterTable, Sync)
	require.NoError(t, a.Set(masterTable.IndexByName("id"), value.NewLongInt(1)))
	sess.register(a)

	// Build a same-table relation purely to exercise the cycle guard:
	// link a under itself via the RelationObject machinery directly.
	ro := a.MasterRelation(relation)
	ro.addSlave(a.Handle())
	a.slaveOf[relation] = a.Handle()

	err = propagateDepth(a, a, a.Depth()+1, sess)
	assert.True(t, ybormerr.Is(err, ybormerr.ObjectGraph))
}

func TestGetMasterNilFKNoLoad(t *testing.T) {
	sch := buildTestSchema(t, schema.Delete)
	slaveTable, _ := sch.Table("t_orm_xml")
	sess := newFakeSession(sch)
	slave := NewDataObject(slaveTable, Sync)
	require.NoError(t, slave.Set(slaveTable.IndexByName("id"), value.NewLongInt(40)))
	sess.register(slave)

	master, err := slave.GetMaster("orm_test", sess)
	require.NoError(t, err)
	assert.Nil(t, master)
}

func TestCascadeDeleteRecurses(t *testing.T) {
	sch := buildTestSchema(t, schema.Delete)
	masterTable, _ := sch.Table("t_orm_test")
	slaveTable, _ := sch.Table("t_orm_xml")
	relation, err := sch.FindRelation("OrmTest", "xml", "OrmXml", true)
	require.NoError(t, err)

	sess := newFakeSession(sch)
	master := NewDataObject(masterTable, Sync)
	require.NoError(t, master.Set(masterTable.IndexByName("id"), value.NewLongInt(10)))
	sess.register(master)

	s1 := NewDataObject(slaveTable, Sync)
	require.NoError(t, s1.Set(slaveTable.IndexByName("id"), value.NewLongInt(20)))
	sess.register(s1)
	s2 := NewDataObject(slaveTable, Sync)
	require.NoError(t, s2.Set(slaveTable.IndexByName("id"), value.NewLongInt(30)))
	sess.register(s2)

	require.NoError(t, Link(master, s1, relation, sess))
	require.NoError(t, Link(master, s2, relation, sess))
	master.MasterRelation(relation).MarkSync()

	require.NoError(t, master.DeleteObject(sess, DeleteNormal))
	assert.Equal(t, ToBeDeleted, master.Status())
	assert.Equal(t, ToBeDeleted, s1.Status())
	assert.Equal(t, ToBeDeleted, s2.Status())
}

func TestCascadeRestrictBlocksAndLeavesStatusUntouched(t *testing.T) {
	sch := buildTestSchema(t, schema.Restrict)
	masterTable, _ := sch.Table("t_orm_test")
	slaveTable, _ := sch.Table("t_orm_xml")
	relation, err := sch.FindRelation("OrmTest", "xml", "OrmXml", true)
	require.NoError(t, err)

	sess := newFakeSession(sch)
	master := NewDataObject(masterTable, Sync)
	require.NoError(t, master.Set(masterTable.IndexByName("id"), value.NewLongInt(10)))
	sess.register(master)
	s1 := NewDataObject(slaveTable, Sync)
	require.NoError(t, s1.Set(slaveTable.IndexByName("id"), value.NewLongInt(20)))
	sess.register(s1)

	require.NoError(t, Link(master, s1, relation, sess))
	master.MasterRelation(relation).MarkSync()

	// Link copied master's key into s1's FK column, so s1 enters the
	// delete call as Dirty.
	err = master.DeleteObject(sess, DeleteNormal)
	require.Error(t, err)
	assert.Equal(t, Sync, master.Status())
	assert.Equal(t, Dirty, s1.Status())
}

func TestCascadeNullifyClearsFK(t *testing.T) {
	sch := buildTestSchema(t, schema.Nullify)
	masterTable, _ := sch.Table("t_orm_test")
	slaveTable, _ := sch.Table("t_orm_xml")
	relation, err := sch.FindRelation("OrmTest", "xml", "OrmXml", true)
	require.NoError(t, err)

	sess := newFakeSession(sch)
	master := NewDataObject(masterTable, Sync)
	require.NoError(t, master.Set(masterTable.IndexByName("id"), value.NewLongInt(10)))
	sess.register(master)
	s1 := NewDataObject(slaveTable, Sync)
	require.NoError(t, s1.Set(slaveTable.IndexByName("id"), value.NewLongInt(20)))
	sess.register(s1)

	require.NoError(t, Link(master, s1, relation, sess))
	master.MasterRelation(relation).MarkSync()

	require.NoError(t, master.DeleteObject(sess, DeleteNormal))
	fk, err := s1.GetByName("orm_test_id", sess)
	require.NoError(t, err)
	assert.True(t, fk.IsNull())
	assert.Equal(t, Dirty, s1.Status())
}
