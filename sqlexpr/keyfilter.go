package sqlexpr

import (
	"strings"

	"github.com/yborm/yborm-go/schema"
)

// KeyFilter generates "(col1 = v1 AND col2 = v2 ...)" for a schema.Key
// (spec §4.1).
type KeyFilter struct {
	Key schema.Key
}

func (k KeyFilter) GenerateSQL(opts Options, ctx *Context) string {
	if len(k.Key.Parts) == 0 {
		return "(1=1)"
	}
	parts := make([]string, len(k.Key.Parts))
	for i, p := range k.Key.Parts {
		op := BinaryOp{
			A:  Column{Table: k.Key.TableName, Col: p.Column},
			Op: "=",
			B:  Const{Value: p.Value},
		}
		parts[i] = op.GenerateSQL(opts, ctx)
	}
	return "(" + strings.Join(parts, " AND ") + ")"
}
