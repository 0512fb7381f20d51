package engine

import (
	"strings"

	"github.com/yborm/yborm-go/schema"
	"github.com/yborm/yborm-go/value"
	"github.com/yborm/yborm-go/ybormerr"
)

// Update emits one "UPDATE t SET c=?,... WHERE pk=? ..." per row over
// (non-PK, non-read-only) columns then the PK columns, rejecting tables
// without a PK (spec §4.3).
func (e *Engine) Update(table *schema.Table, rows [][]value.Value) error {
	if err := e.requireWritable("update"); err != nil {
		return err
	}
	pk := table.PKIndexes()
	if len(pk) == 0 {
		return ybormerr.BadSQLOperation("update: table %s has no primary key", table.Name())
	}
	setIdx := updatableColumns(table)
	if len(setIdx) == 0 {
		return ybormerr.BadSQLOperation("update: no settable columns for table %s", table.Name())
	}
	sql := buildUpdateSQL(table, setIdx, pk)
	rowArgs := make([][]value.Value, len(rows))
	for i, row := range rows {
		args := make([]value.Value, 0, len(setIdx)+len(pk))
		for _, idx := range setIdx {
			args = append(args, row[idx])
		}
		for _, idx := range pk {
			args = append(args, row[idx])
		}
		rowArgs[i] = args
	}
	return e.conn.PrepareExecMany(sql, rowArgs)
}

func updatableColumns(table *schema.Table) []int {
	var idx []int
	for i, c := range table.Columns() {
		if c.IsPK() || c.IsReadOnly() {
			continue
		}
		idx = append(idx, i)
	}
	return idx
}

func buildUpdateSQL(table *schema.Table, setIdx, pkIdx []int) string {
	sets := make([]string, len(setIdx))
	for i, idx := range setIdx {
		sets[i] = table.Column(idx).Name() + " = ?"
	}
	wheres := make([]string, len(pkIdx))
	for i, idx := range pkIdx {
		wheres[i] = table.Column(idx).Name() + " = ?"
	}
	return "UPDATE " + table.Name() + " SET " + strings.Join(sets, ", ") + " WHERE " + strings.Join(wheres, " AND ")
}

// DeleteFrom issues "DELETE FROM t WHERE pk = ? ..." once per Key,
// accepting either surrogate or composite keys (spec §4.3). The
// statement is prepared once (every Key for a table shares the same PK
// column shape) and bound to each key in turn.
func (e *Engine) DeleteFrom(table *schema.Table, keys []schema.Key) error {
	if err := e.requireWritable("delete_from"); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	wheres := make([]string, len(keys[0].Parts))
	for i, p := range keys[0].Parts {
		wheres[i] = p.Column + " = ?"
	}
	sql := "DELETE FROM " + table.Name() + " WHERE " + strings.Join(wheres, " AND ")

	rowArgs := make([][]value.Value, len(keys))
	for i, k := range keys {
		args := make([]value.Value, len(k.Parts))
		for j, p := range k.Parts {
			args[j] = p.Value
		}
		rowArgs[i] = args
	}
	return e.conn.PrepareExecMany(sql, rowArgs)
}

// GetCurrValue/GetNextValue read a sequence's current/next value via the
// dialect's DUAL-table select idiom (spec §4.3).
func (e *Engine) GetCurrValue(seq string) (value.Value, error) {
	return e.selectSequence(e.currValueSQL(seq))
}

func (e *Engine) GetNextValue(seq string) (value.Value, error) {
	if err := e.requireWritable("get_next_value"); err != nil {
		return value.Value{}, err
	}
	return e.selectSequence(e.nextValueSQL(seq))
}

func (e *Engine) currValueSQL(seq string) string {
	return "SELECT " + seq + ".CURRVAL FROM " + e.dualTable()
}

func (e *Engine) nextValueSQL(seq string) string {
	return "SELECT " + seq + ".NEXTVAL FROM " + e.dualTable()
}

func (e *Engine) dualTable() string {
	d := e.conn.Dialect().DualTableName()
	if d == "" {
		return "(SELECT 1)"
	}
	return d
}

func (e *Engine) selectSequence(sql string) (value.Value, error) {
	rs, err := e.conn.Query(sql)
	if err != nil {
		return value.Value{}, err
	}
	defer rs.Close()
	if !rs.Next() {
		return value.Value{}, ybormerr.NoDataFound("sequence query returned no rows")
	}
	row := rs.Row()
	if len(row.Values) == 0 {
		return value.Value{}, ybormerr.NoDataFound("sequence query returned no columns")
	}
	return row.Values[0], rs.Err()
}
