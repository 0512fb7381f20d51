package sqlexpr

import (
	"strings"

	"github.com/yborm/yborm-go/value"
)

// Node is the one shared operation of the closed expression hierarchy
// (spec §4.1).
type Node interface {
	GenerateSQL(opts Options, ctx *Context) string
}

func quote(opts Options, ident string) string {
	if opts.QuoteChar == "" {
		return ident
	}
	return opts.QuoteChar + ident + opts.QuoteChar
}

// Column references a table's column: Column{Table:"t", Col:"id"} renders
// "t.id" (or "t.id" with quoted parts per Options).
type Column struct {
	Table string
	Col   string
}

func (c Column) GenerateSQL(opts Options, ctx *Context) string {
	if c.Table == "" {
		return quote(opts, c.Col)
	}
	return quote(opts, c.Table) + "." + quote(opts, c.Col)
}

// ColumnExpr wraps an inner expression with a SQL alias: "<inner> AS alias".
type ColumnExpr struct {
	Inner Node
	Alias string
}

func (c ColumnExpr) GenerateSQL(opts Options, ctx *Context) string {
	inner := c.Inner.GenerateSQL(opts, ctx)
	if c.Alias == "" {
		return inner
	}
	return inner + " AS " + quote(opts, c.Alias)
}

// Const is a literal SQL value, inlined or collected into ctx.Params
// depending on Options.CollectParams.
type Const struct {
	Value value.Value
}

func (c Const) GenerateSQL(opts Options, ctx *Context) string {
	if opts.CollectParams {
		return ctx.Bind(opts, c.Value)
	}
	return c.Value.SQLStr()
}

func isNullConst(n Node) bool {
	c, ok := n.(Const)
	return ok && c.Value.IsNull()
}

// UnaryOp renders "<op> <x>" (prefix=true, e.g. "NOT x") or "<x> <op>"
// (prefix=false, e.g. "x IS NULL").
type UnaryOp struct {
	Prefix bool
	Op     string
	X      Node
}

func (u UnaryOp) GenerateSQL(opts Options, ctx *Context) string {
	x := parenthesizeAsNeeded(u.X.GenerateSQL(opts, ctx))
	if u.Prefix {
		return u.Op + " " + x
	}
	return x + " " + u.Op
}

// BinaryOp renders "<a> <op> <b>", with the spec's null-equality rewrite:
// when B is a constant NULL, "=" becomes "IS NULL" and "<>" becomes
// "IS NOT NULL" (spec §4.1).
type BinaryOp struct {
	A, B Node
	Op   string
}

func (b BinaryOp) GenerateSQL(opts Options, ctx *Context) string {
	if isNullConst(b.B) {
		switch b.Op {
		case "=":
			return parenthesizeAsNeeded(b.A.GenerateSQL(opts, ctx)) + " IS NULL"
		case "<>", "!=":
			return parenthesizeAsNeeded(b.A.GenerateSQL(opts, ctx)) + " IS NOT NULL"
		}
	}
	a := parenthesizeAsNeeded(b.A.GenerateSQL(opts, ctx))
	rhs := parenthesizeAsNeeded(b.B.GenerateSQL(opts, ctx))
	return a + " " + b.Op + " " + rhs
}

// Like renders "<a> LIKE <b>".
func Like(a, b Node) BinaryOp { return BinaryOp{A: a, B: b, Op: "LIKE"} }

// In renders "<a> IN <b>", where b is typically an ExpressionList.
func In(a, b Node) BinaryOp { return BinaryOp{A: a, B: b, Op: "IN"} }

// parenthesizeAsNeeded wraps s in parentheses unless it is already (a) a
// number/identifier/dotted name, (b) a quoted string constant, (c) already
// parenthesis-wrapped, or (d) exactly "?" or a numbered ":n" placeholder
// (spec §4.1 precedence rule).
func parenthesizeAsNeeded(s string) string {
	if isNumberOrIdentifier(s) || isStringConstant(s) || isParenWrapped(s) || s == "?" || isPlainPlaceholder(s) {
		return s
	}
	return "(" + s + ")"
}

func isPlainPlaceholder(s string) bool {
	if len(s) < 2 || s[0] != ':' {
		return false
	}
	for _, r := range s[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isNumberOrIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		case r >= '0' && r <= '9':
			if i == 0 {
				// allow numeric literals, including a leading '-' and a
				// single '.'.
			}
		case r == '.':
		case r == '-' && i == 0:
		default:
			return false
		}
	}
	return true
}

func isStringConstant(s string) bool {
	return len(s) >= 2 && strings.HasPrefix(s, "'") && strings.HasSuffix(s, "'")
}

func isParenWrapped(s string) bool {
	if len(s) < 2 || s[0] != '(' || s[len(s)-1] != ')' {
		return false
	}
	depth := 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 && i != len(s)-1 {
				return false
			}
		}
	}
	return depth == 0
}
