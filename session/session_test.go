package session_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yborm/yborm-go/dataobj"
	"github.com/yborm/yborm-go/engine"
	"github.com/yborm/yborm-go/schema"
	"github.com/yborm/yborm-go/session"
	"github.com/yborm/yborm-go/sqlbackend"
	"github.com/yborm/yborm-go/sqlbackend/sqlite3"
	"github.com/yborm/yborm-go/sqlexpr"
	"github.com/yborm/yborm-go/value"
)

const fixtureYAML = `
tables:
  - name: t_orm_test
    class: OrmTest
    columns:
      - {name: id, type: longint, pk: true}
      - {name: a, type: string, size: 20}
  - name: t_orm_xml
    class: OrmXml
    columns:
      - {name: id, type: longint, pk: true}
      - {name: orm_test_id, type: longint, nullable: true, fk_table: t_orm_test, fk_column: id}
      - {name: b, type: string, size: 50}
relations:
  - kind: one_to_many
    cascade: delete
    side1: {class: OrmTest, property: xml}
    side2: {class: OrmXml, property: orm_test}
`

func newTestSession(t *testing.T) *session.Session {
	t.Helper()
	sch, err := schema.LoadFixture([]byte(fixtureYAML))
	require.NoError(t, err)

	drv := sqlite3.NewDriver()
	conn, err := sqlbackend.NewConnection(drv, ":memory:", nil)
	require.NoError(t, err)

	eng := engine.New(conn, engine.ReadWrite)
	require.NoError(t, eng.CreateSchema(sch, false))

	return session.New(sch, eng, nil)
}

func TestFlushInsertAssignsKeyAndTransitionsToGhost(t *testing.T) {
	sess := newTestSession(t)
	table, err := sess.Schema().Table("t_orm_test")
	require.NoError(t, err)

	obj := dataobj.NewDataObject(table, dataobj.New)
	require.NoError(t, obj.Set(table.IndexByName("a"), value.NewString("hello")))
	require.NoError(t, sess.Save(obj))

	require.NoError(t, sess.Flush())

	assert.Equal(t, dataobj.Ghost, obj.Status())
	assert.True(t, obj.AssignedKey())
}

func TestFlushPropagatesMasterKeyToUnkeyedSlave(t *testing.T) {
	sess := newTestSession(t)
	masterTable, err := sess.Schema().Table("t_orm_test")
	require.NoError(t, err)
	slaveTable, err := sess.Schema().Table("t_orm_xml")
	require.NoError(t, err)
	relation, err := sess.Schema().FindRelation("OrmTest", "xml", "OrmXml", true)
	require.NoError(t, err)

	master := dataobj.NewDataObject(masterTable, dataobj.New)
	require.NoError(t, master.Set(masterTable.IndexByName("a"), value.NewString("parent")))
	require.NoError(t, sess.Save(master))

	slave := dataobj.NewDataObject(slaveTable, dataobj.New)
	require.NoError(t, slave.Set(slaveTable.IndexByName("b"), value.NewString("child")))
	require.NoError(t, sess.Save(slave))

	require.NoError(t, dataobj.Link(master, slave, relation, sess))

	require.NoError(t, sess.Flush())
	assert.Equal(t, dataobj.Ghost, slave.Status())

	fk, err := slave.GetByName("orm_test_id", sess)
	require.NoError(t, err)
	assert.False(t, fk.IsNull())
}

func TestLoadCollectionRoundTripsAfterFlush(t *testing.T) {
	sess := newTestSession(t)
	table, err := sess.Schema().Table("t_orm_test")
	require.NoError(t, err)

	obj := dataobj.NewDataObject(table, dataobj.New)
	require.NoError(t, obj.Set(table.IndexByName("a"), value.NewString("round-trip")))
	require.NoError(t, sess.Save(obj))
	require.NoError(t, sess.Flush())

	col, err := sess.LoadCollection(sqlexpr.TableRef{Name: "t_orm_test"}, nil, nil, false)
	require.NoError(t, err)
	defer col.Close()

	require.True(t, col.Next())
	handles, err := col.Row()
	require.NoError(t, err)
	require.Len(t, handles, 1)

	loaded := sess.Resolve(handles[0])
	require.NotNil(t, loaded)
	a, err := loaded.GetByName("a", sess)
	require.NoError(t, err)
	assert.Equal(t, "round-trip", a.AsString())
	assert.False(t, col.Next())
}

func TestSaveOrUpdateMergesIntoResident(t *testing.T) {
	sess := newTestSession(t)
	table, err := sess.Schema().Table("t_orm_test")
	require.NoError(t, err)

	resident := dataobj.NewDataObject(table, dataobj.New)
	require.NoError(t, resident.Set(table.IndexByName("a"), value.NewString("original")))
	require.NoError(t, sess.Save(resident))
	require.NoError(t, sess.Flush())

	transient := dataobj.NewDataObject(table, dataobj.Dirty)
	require.NoError(t, transient.Set(table.IndexByName("id"), resident.RawValues()[table.IndexByName("id")]))
	require.NoError(t, transient.Set(table.IndexByName("a"), value.NewString("updated")))

	merged, err := sess.SaveOrUpdate(transient)
	require.NoError(t, err)
	assert.Same(t, resident, merged)
	assert.Equal(t, dataobj.Dirty, resident.Status())

	require.NoError(t, sess.Flush())
	a, err := resident.GetByName("a", sess)
	require.NoError(t, err)
	assert.Equal(t, "updated", a.AsString())
}

func TestCascadeDeleteFlushesInDepthOrder(t *testing.T) {
	sess := newTestSession(t)
	masterTable, err := sess.Schema().Table("t_orm_test")
	require.NoError(t, err)
	slaveTable, err := sess.Schema().Table("t_orm_xml")
	require.NoError(t, err)
	relation, err := sess.Schema().FindRelation("OrmTest", "xml", "OrmXml", true)
	require.NoError(t, err)

	master := dataobj.NewDataObject(masterTable, dataobj.New)
	require.NoError(t, sess.Save(master))
	slave := dataobj.NewDataObject(slaveTable, dataobj.New)
	require.NoError(t, sess.Save(slave))
	require.NoError(t, dataobj.Link(master, slave, relation, sess))
	require.NoError(t, sess.Flush())

	require.NoError(t, master.DeleteObject(sess, dataobj.DeleteNormal))
	require.NoError(t, sess.Flush())

	assert.NotContains(t, sess.Objects(), master.Handle())
	assert.NotContains(t, sess.Objects(), slave.Handle())
}

func TestDetachRemovesFromIdentityMap(t *testing.T) {
	sess := newTestSession(t)
	table, err := sess.Schema().Table("t_orm_test")
	require.NoError(t, err)

	obj := dataobj.NewDataObject(table, dataobj.New)
	require.NoError(t, sess.Save(obj))
	require.NoError(t, sess.Flush())

	h := obj.Handle()
	sess.Detach(obj)

	assert.Equal(t, dataobj.Handle(0), obj.Handle())
	assert.NotContains(t, sess.Objects(), h)
}
