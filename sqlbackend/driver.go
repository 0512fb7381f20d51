package sqlbackend

import "github.com/yborm/yborm-go/value"

// ConnectionBackend is the per-dialect-driver contract a concrete
// database driver must satisfy (spec §4.2). Backends are intentionally
// thin: all SQL construction happens in sqlexpr/engine, never here.
type ConnectionBackend interface {
	Open(source string) error
	UseRaw(raw interface{}) error
	Close() error
	Begin() error
	Commit() error
	Rollback() error
	NewCursor() (CursorBackend, error)
}

// CursorBackend is the per-statement execution contract (spec §4.2).
// Parameter binding must honor each Value's declared type code; rows are
// returned with upper-cased column names (spec §6).
type CursorBackend interface {
	ExecDirect(sql string) error
	Prepare(sql string) error
	// BindParams pre-binds parameter type codes; backends that don't need
	// this may no-op.
	BindParams(types []value.Type) error
	Exec(values []value.Value) error
	// FetchRow returns the next row, or ok=false at end-of-results.
	FetchRow() (Row, bool, error)
	Close() error
}

// Row is the wire shape from spec §6: an ordered list of (upper-cased
// column name, Value) pairs, preserving the statement's projection order.
type Row struct {
	Names  []string
	Values []value.Value
}

// Driver produces fresh ConnectionBackends for one dialect + transport,
// and declares the two facts the Engine/Connection layer needs up front:
// whether an explicit BEGIN is required, and whether the dialect's
// numbered-placeholder style (":1", ":2", ...) must be used instead of
// "?" (spec §4.2).
type Driver interface {
	Dialect() Dialect
	NewBackend() ConnectionBackend
	RequiresExplicitBegin() bool
	WantsNumberedParams() bool
}

// Registry is a small name -> Driver map, used the way the teacher's
// process-wide dialect/driver maps would be, but built explicitly rather
// than through package-init side effects (spec §9, Dialect/Driver
// dispatch re-architecture note): callers construct their own Registry
// with NewRegistry and pass it explicitly.
type Registry struct {
	drivers map[string]Driver
}

func NewRegistry() *Registry {
	return &Registry{drivers: make(map[string]Driver)}
}

func (r *Registry) Register(name string, d Driver) {
	r.drivers[name] = d
}

func (r *Registry) Lookup(name string) (Driver, bool) {
	d, ok := r.drivers[name]
	return d, ok
}
