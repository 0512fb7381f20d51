package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yborm/yborm-go/value"
)

func buildTestSchema(t *testing.T) *Schema {
	t.Helper()
	master, err := NewTable("t_orm_test",
		NewColumn("id", value.LongInt).WithFlags(PrimaryKey),
		NewColumn("a", value.String).WithSize(50),
		NewColumn("c", value.Decimal),
	)
	require.NoError(t, err)
	master.WithClassName("OrmTest")

	slave, err := NewTable("t_orm_xml",
		NewColumn("id", value.LongInt).WithFlags(PrimaryKey),
		NewColumn("orm_test_id", value.LongInt).WithFlags(Nullable).WithForeignKey("t_orm_test", "id"),
		NewColumn("b", value.String).WithSize(50),
	)
	require.NoError(t, err)
	slave.WithClassName("OrmXml")

	s := NewSchema()
	require.NoError(t, s.AddTable(master))
	require.NoError(t, s.AddTable(slave))
	s.AddRelation(&Relation{
		Kind:    OneToMany,
		Cascade: Delete,
		Side1:   RelationSide{ClassName: "OrmTest", Property: "xml"},
		Side2:   RelationSide{ClassName: "OrmXml", Property: "orm_test"},
	})
	require.NoError(t, s.FillForeignKeys())
	require.NoError(t, s.Check())
	return s
}

func TestSchemaDepth(t *testing.T) {
	s := buildTestSchema(t)
	master, err := s.Table("t_orm_test")
	require.NoError(t, err)
	slave, err := s.Table("t_orm_xml")
	require.NoError(t, err)

	assert.Equal(t, 0, master.Depth())
	// The relation's FK column is nullable, so it's not a "hard" FK and
	// does not force a depth dependency (spec §3: cycles only checked
	// among non-nullable FKs); both tables remain depth 0 here.
	assert.Equal(t, 0, slave.Depth())
}

func TestSchemaDepthHardFK(t *testing.T) {
	master, err := NewTable("root", NewColumn("id", value.LongInt).WithFlags(PrimaryKey))
	require.NoError(t, err)
	master.WithClassName("Root")

	child, err := NewTable("child",
		NewColumn("id", value.LongInt).WithFlags(PrimaryKey),
		NewColumn("root_id", value.LongInt).WithForeignKey("root", "id"),
	)
	require.NoError(t, err)
	child.WithClassName("Child")

	s := NewSchema()
	require.NoError(t, s.AddTable(master))
	require.NoError(t, s.AddTable(child))
	require.NoError(t, s.Check())

	assert.Equal(t, 0, master.Depth())
	assert.Equal(t, 1, child.Depth())
}

func TestSchemaCycleDetected(t *testing.T) {
	a, err := NewTable("a",
		NewColumn("id", value.LongInt).WithFlags(PrimaryKey),
		NewColumn("b_id", value.LongInt).WithForeignKey("b", "id"),
	)
	require.NoError(t, err)
	b, err := NewTable("b",
		NewColumn("id", value.LongInt).WithFlags(PrimaryKey),
		NewColumn("a_id", value.LongInt).WithForeignKey("a", "id"),
	)
	require.NoError(t, err)

	s := NewSchema()
	require.NoError(t, s.AddTable(a))
	require.NoError(t, s.AddTable(b))
	err = s.Check()
	assert.Error(t, err)
}

func TestMkKey(t *testing.T) {
	s := buildTestSchema(t)
	master, _ := s.Table("t_orm_test")

	key, assigned := master.MkKey([]value.Value{value.NewLongInt(10), value.NewString("item"), value.Null()})
	assert.True(t, assigned)
	assert.Equal(t, "t_orm_test|id=10", key.String())
	assert.False(t, EmptyKey(key))

	key2, assigned2 := master.MkKey([]value.Value{value.Null(), value.NewString("item"), value.Null()})
	assert.False(t, assigned2)
	assert.True(t, EmptyKey(key2))
}

func TestFindRelation(t *testing.T) {
	s := buildTestSchema(t)
	rel, err := s.FindRelation("OrmTest", "xml", "OrmXml", true)
	require.NoError(t, err)
	assert.Equal(t, Delete, rel.Cascade)
	assert.Equal(t, []string{"orm_test_id"}, rel.FKColumns())
}

func TestLoadFixture(t *testing.T) {
	yamlDoc := []byte(`
tables:
  - name: t_orm_test
    class: OrmTest
    columns:
      - {name: id, type: longint, pk: true}
      - {name: a, type: string, size: 50}
  - name: t_orm_xml
    class: OrmXml
    columns:
      - {name: id, type: longint, pk: true}
      - {name: orm_test_id, type: longint, nullable: true, fk_table: t_orm_test, fk_column: id}
relations:
  - kind: one_to_many
    cascade: delete
    side1: {class: OrmTest, property: xml}
    side2: {class: OrmXml, property: orm_test}
`)
	s, err := LoadFixture(yamlDoc)
	require.NoError(t, err)
	tbl, err := s.Table("t_orm_test")
	require.NoError(t, err)
	assert.True(t, tbl.HasSurrogatePK())
}
