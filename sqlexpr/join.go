package sqlexpr

// Join renders "<a> JOIN <b> ON <on>". Nested joins compose naturally
// since Join itself is a Node.
type Join struct {
	A, B Node
	On   Node
	Kind string // "", "LEFT", "RIGHT", "INNER" - default is plain JOIN
}

func (j Join) GenerateSQL(opts Options, ctx *Context) string {
	kind := j.Kind
	if kind != "" {
		kind += " "
	}
	a := j.A.GenerateSQL(opts, ctx)
	b := j.B.GenerateSQL(opts, ctx)
	on := j.On.GenerateSQL(opts, ctx)
	return a + " " + kind + "JOIN " + b + " ON " + on
}

// TableRef is a bare table name usable as a FROM/JOIN operand and as a leaf
// recognized by FindAllTables.
type TableRef struct {
	Name string
}

func (t TableRef) GenerateSQL(opts Options, ctx *Context) string {
	return quote(opts, t.Name)
}
