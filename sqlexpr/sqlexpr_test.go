package sqlexpr

import (
	"testing"

	"github.com/k0kubun/pp/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yborm/yborm-go/schema"
	"github.com/yborm/yborm-go/value"
)

func TestBinaryOpNullEquality(t *testing.T) {
	opts := Options{}
	ctx := &Context{}
	eq := BinaryOp{A: Column{Table: "t", Col: "a"}, Op: "=", B: Const{Value: value.Null()}}
	assert.Equal(t, "t.a IS NULL", eq.GenerateSQL(opts, ctx))

	neq := BinaryOp{A: Column{Table: "t", Col: "a"}, Op: "<>", B: Const{Value: value.Null()}}
	assert.Equal(t, "t.a IS NOT NULL", neq.GenerateSQL(opts, ctx))
}

func TestBinaryOpPrecedenceParens(t *testing.T) {
	opts := Options{}
	ctx := &Context{}
	inner := BinaryOp{A: Column{Col: "a"}, Op: "+", B: Const{Value: value.NewInteger(1)}}
	outer := BinaryOp{A: inner, Op: "*", B: Const{Value: value.NewInteger(2)}}
	assert.Equal(t, "(a + 1) * 2", outer.GenerateSQL(opts, ctx))
}

func TestConstCollectParams(t *testing.T) {
	opts := Options{CollectParams: true}
	ctx := &Context{}
	c := Const{Value: value.NewString("item")}
	assert.Equal(t, "?", c.GenerateSQL(opts, ctx))
	require.Len(t, ctx.Params, 1)
	assert.Equal(t, "item", ctx.Params[0].AsString())
}

func TestConstCollectParamsNumbered(t *testing.T) {
	opts := Options{CollectParams: true, NumberedParams: true}
	ctx := &Context{}
	assert.Equal(t, ":1", Const{Value: value.NewInteger(1)}.GenerateSQL(opts, ctx))
	assert.Equal(t, ":2", Const{Value: value.NewInteger(2)}.GenerateSQL(opts, ctx))
}

func TestSelectHavingWithoutGroupByFails(t *testing.T) {
	sel := NewSelect(Column{Col: "a"}).From(TableRef{Name: "t"}).Having(BinaryOp{A: Column{Col: "a"}, Op: ">", B: Const{Value: value.NewInteger(1)}})
	_, err := sel.Render(Options{}, &Context{})
	assert.Error(t, err)
}

func TestSelectClauseOrder(t *testing.T) {
	sel := NewSelect(Column{Col: "a"}).
		From(TableRef{Name: "t"}).
		Where(BinaryOp{A: Column{Col: "a"}, Op: "=", B: Const{Value: value.NewInteger(1)}}).
		GroupBy(Column{Col: "a"}).
		Having(BinaryOp{A: Column{Col: "a"}, Op: ">", B: Const{Value: value.NewInteger(0)}}).
		OrderBy(Column{Col: "a"}).
		Distinct(true)
	sql, err := sel.Render(Options{HasForUpdate: true}, &Context{})
	require.NoError(t, err)
	assert.Equal(t, "SELECT DISTINCT a FROM t WHERE a = 1 GROUP BY a HAVING a > 0 ORDER BY a", sql)
}

func TestSelectPagerModels(t *testing.T) {
	sel := NewSelect(Column{Col: "a"}).From(TableRef{Name: "t"}).Pager(10, 20)
	mysqlSQL, _ := sel.Render(Options{PagerModel: PagerMysql}, &Context{})
	assert.Contains(t, mysqlSQL, "LIMIT 20,10")

	pgSQL, _ := sel.Render(Options{PagerModel: PagerPostgres}, &Context{})
	assert.Contains(t, pgSQL, "LIMIT 10 OFFSET 20")
}

func TestKeyFilter(t *testing.T) {
	key := schema.Key{TableName: "t", Parts: []schema.KeyPart{
		{Column: "id", Value: value.NewLongInt(10)},
	}}
	sql := KeyFilter{Key: key}.GenerateSQL(Options{}, &Context{})
	assert.Equal(t, "(t.id = 10)", sql)
}

func TestFindAllTables(t *testing.T) {
	expr := Join{A: TableRef{Name: "a"}, B: TableRef{Name: "b"}, On: BinaryOp{A: Column{Table: "a", Col: "id"}, Op: "=", B: Column{Table: "b", Col: "a_id"}}}
	tables, err := FindAllTables(expr)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, tables)
}

func TestNormalizePlaceholders(t *testing.T) {
	in := `SELECT * FROM t WHERE a = ? AND b = '?' AND c = "?" -- comment with ?
AND d = ? /* block ? comment */ AND e = ?`
	out := NormalizePlaceholders(in)
	assert.Equal(t, `SELECT * FROM t WHERE a = :1 AND b = '?' AND c = "?" -- comment with ?
AND d = :2 /* block ? comment */ AND e = :3`, out)
}

func TestFirstTopLevelIdentifier(t *testing.T) {
	assert.Equal(t, "SELECT", FirstTopLevelIdentifier("  -- comment\nSELECT * FROM t"))
	assert.Equal(t, "INSERT", FirstTopLevelIdentifier("INSERT INTO t VALUES (1)"))
}

// TestContextParamsOrder pretty-prints ctx.Params on mismatch with pp, the
// way schema/generator_test.go dumps DDL diffs in the teacher.
func TestContextParamsOrder(t *testing.T) {
	opts := Options{CollectParams: true}
	ctx := &Context{}
	list := NewList(
		Const{Value: value.NewInteger(1)},
		Const{Value: value.NewString("x")},
		Const{Value: value.NewLongInt(99)},
	)
	list.GenerateSQL(opts, ctx)

	want := []value.Value{value.NewInteger(1), value.NewString("x"), value.NewLongInt(99)}
	if !assert.Equal(t, len(want), len(ctx.Params)) {
		t.Logf("params mismatch:\n%s", pp.Sprint(ctx.Params))
		return
	}
	for i := range want {
		if !assert.True(t, want[i].Equal(ctx.Params[i])) {
			t.Logf("param %d mismatch:\nwant %s\ngot  %s", i, pp.Sprint(want[i]), pp.Sprint(ctx.Params[i]))
		}
	}
}
