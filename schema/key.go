package schema

import (
	"strings"

	"github.com/yborm/yborm-go/value"
)

// KeyPart is one (column name, value) pair of a composite key.
type KeyPart struct {
	Column string
	Value  value.Value
}

// Key identifies a row: either the single surrogate PK value of its table,
// or an ordered list of (column, value) pairs for a composite PK (spec §3).
type Key struct {
	TableName string
	Parts     []KeyPart
}

// EmptyKey reports whether k has any null PK component (spec §3,
// empty_key).
func EmptyKey(k Key) bool {
	for _, p := range k.Parts {
		if p.Value.IsNull() {
			return true
		}
	}
	return len(k.Parts) == 0
}

// String renders the canonical string form of a key, used as the identity
// map's lookup key. Parts are rendered in table-declared PK order (already
// the order stored in k.Parts), so two Keys for the same row always render
// identically regardless of how they were constructed.
func (k Key) String() string {
	var b strings.Builder
	b.WriteString(k.TableName)
	for _, p := range k.Parts {
		b.WriteByte('|')
		b.WriteString(p.Column)
		b.WriteByte('=')
		if p.Value.IsNull() {
			b.WriteString("<null>")
		} else {
			b.WriteString(p.Value.AsString())
		}
	}
	return b.String()
}

// MkKey constructs a Key from a full row image (values in table column
// order), returning (key, assigned) where assigned is false iff any PK
// component is null (spec §2, mk_key).
func (t *Table) MkKey(values []value.Value) (Key, bool) {
	k := Key{TableName: t.name}
	assigned := true
	for _, idx := range t.pkIndexes {
		col := t.columns[idx]
		v := values[idx]
		if v.IsNull() {
			assigned = false
		}
		k.Parts = append(k.Parts, KeyPart{Column: col.name, Value: v})
	}
	return k, assigned
}
