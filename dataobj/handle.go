package dataobj

import (
	"github.com/yborm/yborm-go/engine"
	"github.com/yborm/yborm-go/schema"
)

// Handle is an opaque, Session-scoped reference to a DataObject. The
// zero Handle never refers to a real object; a Session hands out
// Handles starting at 1 (spec §9).
type Handle uint64

// Session is the subset of session.Session behavior a DataObject or
// RelationObject needs: resolving handles, running the Engine, and
// consulting the Schema for lazy loads and relation navigation. The
// concrete *session.Session implements this; dataobj depends only on
// the interface so session (which owns the object arena and naturally
// imports dataobj) never has to be imported back.
type Session interface {
	// Resolve returns the DataObject for h, or nil if h is stale (the
	// object was detached or deleted).
	Resolve(h Handle) *DataObject

	Engine() *engine.Engine
	Schema() *schema.Schema

	// GetLazyByKey returns the Handle of the (possibly newly created
	// Ghost) DataObject identified by key in table, per the identity
	// map semantics of spec §4.5 get_lazy.
	GetLazyByKey(table *schema.Table, key schema.Key) (Handle, error)
}
