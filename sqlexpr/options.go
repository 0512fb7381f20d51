// Package sqlexpr implements the expression algebra (spec §4.1, C3): a
// closed hierarchy of tagged AST nodes sharing one operation,
// GenerateSQL, that emits dialect-parameterized SQL text.
package sqlexpr

import (
	"strconv"

	"github.com/yborm/yborm-go/value"
)

// PagerModel is the dialect-specific LIMIT/OFFSET rendering strategy
// (spec Glossary).
type PagerModel int

const (
	PagerNone PagerModel = iota
	PagerPostgres         // LIMIT n OFFSET m
	PagerMysql            // LIMIT m,n
	PagerMssql            // OFFSET m ROWS FETCH NEXT n ROWS ONLY
)

// Options carries the rendering mode consulted by every node's
// GenerateSQL (spec §4.1).
type Options struct {
	// QuoteChar selects whether/how identifiers are quoted. Empty means
	// unquoted, upper-case-expected identifiers (spec §6 default).
	QuoteChar string

	PagerModel PagerModel

	// HasForUpdate is false for dialects that don't support FOR UPDATE
	// (the Select serializer silently omits the clause rather than
	// erroring, since that's a capability gap, not a caller mistake).
	HasForUpdate bool

	// CollectParams selects whether Const nodes push their Value into
	// Context.Params and emit a placeholder, or render the Value inline
	// as a SQL literal.
	CollectParams bool

	// NumberedParams selects ":1", ":2", ... placeholders instead of the
	// default "?".
	NumberedParams bool
}

// Context is the mutable accumulator threaded through a GenerateSQL call:
// the ordered Values bound to each collected placeholder, plus a running
// counter for numbered placeholders.
type Context struct {
	Params  []value.Value
	Counter int
}

// Bind appends v to ctx.Params and returns the placeholder text to emit,
// honoring Options.NumberedParams.
func (ctx *Context) Bind(opts Options, v value.Value) string {
	ctx.Params = append(ctx.Params, v)
	if opts.NumberedParams {
		ctx.Counter++
		return ":" + strconv.Itoa(ctx.Counter)
	}
	return "?"
}
