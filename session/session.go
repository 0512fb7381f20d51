// Package session implements the unit of work (spec §4.5, C7): the
// identity map, lazy get-or-create-ghost, attach/detach, and the ordered
// flush that drives insert/update/delete through the Engine. A Session
// owns every DataObject it hands out - the arena re-architecture spec §9
// calls for - addressing them by dataobj.Handle rather than pointer, and
// implements dataobj.Session so the object graph never imports this
// package back.
package session

import (
	"log/slog"
	"sort"

	"github.com/yborm/yborm-go/dataobj"
	"github.com/yborm/yborm-go/engine"
	"github.com/yborm/yborm-go/schema"
	"github.com/yborm/yborm-go/ybormerr"
	"github.com/yborm/yborm-go/ybormlog"
)

// Session is a single-threaded unit-of-work context (spec §4.5): an
// owned Engine, a Schema reference, the arena of live DataObjects, and
// the identity map from canonical key string to Handle.
type Session struct {
	schema *schema.Schema
	engine *engine.Engine
	log    *slog.Logger

	objects     map[dataobj.Handle]*dataobj.DataObject
	identityMap map[string]dataobj.Handle
	nextHandle  dataobj.Handle
}

// New builds a Session over sch/eng. log defaults to slog.Default() if nil.
func New(sch *schema.Schema, eng *engine.Engine, log *slog.Logger) *Session {
	if log == nil {
		log = ybormlog.Default()
	}
	return &Session{
		schema:      sch,
		engine:      eng,
		log:         log,
		objects:     make(map[dataobj.Handle]*dataobj.DataObject),
		identityMap: make(map[string]dataobj.Handle),
	}
}

func (s *Session) Engine() *engine.Engine { return s.engine }
func (s *Session) Schema() *schema.Schema { return s.schema }

// Resolve implements dataobj.Session: it returns nil for a stale or
// never-registered Handle, the contract dataobj relies on when a slave
// was detached mid-traversal.
func (s *Session) Resolve(h dataobj.Handle) *dataobj.DataObject {
	return s.objects[h]
}

// Objects enumerates every live Handle in ascending registration order -
// a supplement beyond spec.md's explicit operation list (SPEC_FULL.md),
// needed to test flush's post-phase status invariants and to report a
// cascade dry run's full object set.
func (s *Session) Objects() []dataobj.Handle {
	out := make([]dataobj.Handle, 0, len(s.objects))
	for h := range s.objects {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *Session) register(obj *dataobj.DataObject) dataobj.Handle {
	s.nextHandle++
	h := s.nextHandle
	obj.SetHandle(h)
	s.objects[h] = obj
	return h
}

// GetLazyByKey implements dataobj.Session's get_lazy (spec §4.5): if key
// is already in the identity map, its resident Handle is returned;
// otherwise a Ghost placeholder is allocated, its PK columns seeded from
// key, registered, and (when key is fully assigned) indexed. A fully
// null key is permitted - the resulting Ghost simply can never load.
func (s *Session) GetLazyByKey(table *schema.Table, key schema.Key) (dataobj.Handle, error) {
	keyStr := key.String()
	if !schema.EmptyKey(key) {
		if h, ok := s.identityMap[keyStr]; ok {
			return h, nil
		}
	}
	obj := dataobj.NewDataObject(table, dataobj.Ghost)
	obj.SeedKey(key)
	h := s.register(obj)
	if !schema.EmptyKey(key) {
		s.identityMap[keyStr] = h
	}
	return h, nil
}

// Save attaches obj to the session (spec §4.5): if obj is keyed and a
// different resident DataObject already owns that key,
// DataObjectAlreadyInSession is raised; otherwise obj is registered (if
// not already) and indexed by key when it has one.
func (s *Session) Save(obj *dataobj.DataObject) error {
	if obj.AssignedKey() {
		if existingHandle, ok := s.identityMap[obj.KeyString()]; ok {
			if resident := s.objects[existingHandle]; resident != nil && resident != obj {
				return ybormerr.DataObjectAlreadyInSession(obj.KeyString())
			}
		}
	}
	if obj.Handle() == 0 {
		s.register(obj)
	}
	if obj.AssignedKey() {
		s.identityMap[obj.KeyString()] = obj.Handle()
	}
	return nil
}

// SaveOrUpdate attaches obj like Save, except that when a different
// resident DataObject already owns obj's key, the resident's non-PK
// fields and status are overwritten from obj and the resident is
// returned instead of attaching obj itself (spec §4.5 save_or_update).
func (s *Session) SaveOrUpdate(obj *dataobj.DataObject) (*dataobj.DataObject, error) {
	if obj.AssignedKey() {
		if existingHandle, ok := s.identityMap[obj.KeyString()]; ok {
			if resident := s.objects[existingHandle]; resident != nil && resident != obj {
				resident.CopyNonPKFrom(obj)
				return resident, nil
			}
		}
	}
	if err := s.Save(obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// Detach removes obj from the identity map and the owning arena (spec
// §4.5): obj's Handle becomes 0 and any further navigation through it
// requires re-attaching via Save.
func (s *Session) Detach(obj *dataobj.DataObject) {
	h := obj.Handle()
	delete(s.objects, h)
	if obj.AssignedKey() {
		delete(s.identityMap, obj.KeyString())
	}
	obj.SetHandle(0)
}

// Close clears the identity map and arena and rolls back the underlying
// Engine, mirroring the teacher's session-destructor discipline (spec
// §4.5, "Session destruction"). A Go Session has no destructor, so
// callers invoke Close explicitly (typically via defer).
func (s *Session) Close() error {
	s.objects = make(map[dataobj.Handle]*dataobj.DataObject)
	s.identityMap = make(map[string]dataobj.Handle)
	return s.engine.Rollback()
}
