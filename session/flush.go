package session

import (
	"sort"

	"github.com/yborm/yborm-go/dataobj"
	"github.com/yborm/yborm-go/schema"
	"github.com/yborm/yborm-go/value"
)

// Flush executes the three ordered phases of spec §4.5 - insert, then
// update, then delete - atomically from the caller's perspective: the
// underlying transaction decides whether a mid-phase failure is visible
// to anyone else, and Flush itself leaves affected DataObjects in
// whatever post-phase status the failing phase reached, per spec §7's
// "partial flush" policy. Flush is idempotent when there is nothing
// left to do: a second call with no interleaved mutation issues zero
// statements, since New/Dirty/ToBeDeleted objects no longer exist by
// then.
func (s *Session) Flush() error {
	if err := s.flushNew(); err != nil {
		return err
	}
	if err := s.flushUpdate(); err != nil {
		return err
	}
	if err := s.flushDelete(); err != nil {
		return err
	}
	return nil
}

// Commit flushes, then commits the underlying Engine's transaction (spec
// §4.5).
func (s *Session) Commit() error {
	if err := s.Flush(); err != nil {
		return err
	}
	return s.engine.Commit()
}

// Rollback rolls back the underlying Engine's transaction without
// touching the in-memory object graph's current statuses (spec §4.5);
// callers that need a clean slate should Close and start a new Session.
func (s *Session) Rollback() error {
	return s.engine.Rollback()
}

type depthTableKey struct {
	depth int
	table string
}

// bucketByDepthAndTable groups objs (all assumed live) by (Depth(),
// table name) and returns the distinct depths in ascending order and
// table names within each depth in a fixed (alphabetical) order, so
// flush's statement order is deterministic across runs.
func bucketByDepthAndTable(objs []*dataobj.DataObject) (map[depthTableKey][]*dataobj.DataObject, []int, map[int][]string) {
	buckets := make(map[depthTableKey][]*dataobj.DataObject)
	tablesAtDepth := make(map[int]map[string]bool)
	for _, obj := range objs {
		k := depthTableKey{obj.Depth(), obj.Table().Name()}
		buckets[k] = append(buckets[k], obj)
		if tablesAtDepth[obj.Depth()] == nil {
			tablesAtDepth[obj.Depth()] = make(map[string]bool)
		}
		tablesAtDepth[obj.Depth()][obj.Table().Name()] = true
	}
	depths := make([]int, 0, len(tablesAtDepth))
	tables := make(map[int][]string, len(tablesAtDepth))
	for d, set := range tablesAtDepth {
		depths = append(depths, d)
		names := make([]string, 0, len(set))
		for n := range set {
			names = append(names, n)
		}
		sort.Strings(names)
		tables[d] = names
	}
	sort.Ints(depths)
	return buckets, depths, tables
}

// flushNew is spec §4.5 phase (1): bucket New objects by (depth
// ascending, table), split each bucket into keyed vs. unkeyed rows,
// insert keyed rows verbatim, assign unkeyed rows a key (sequence or
// autoincrement), refresh FK propagation in both directions, register
// every newly keyed object in the identity map, and transition New to
// Ghost so the next read reloads canonical values.
func (s *Session) flushNew() error {
	var newObjs []*dataobj.DataObject
	for _, h := range s.Objects() {
		if obj := s.objects[h]; obj.Status() == dataobj.New {
			newObjs = append(newObjs, obj)
		}
	}
	if len(newObjs) == 0 {
		return nil
	}

	buckets, depths, tablesAtDepth := bucketByDepthAndTable(newObjs)
	for _, depth := range depths {
		for _, tname := range tablesAtDepth[depth] {
			objs := buckets[depthTableKey{depth, tname}]
			table, err := s.schema.Table(tname)
			if err != nil {
				return err
			}
			if err := s.flushNewTable(table, objs); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Session) flushNewTable(table *schema.Table, objs []*dataobj.DataObject) error {
	var keyed, unkeyed []*dataobj.DataObject
	for _, obj := range objs {
		if obj.AssignedKey() {
			keyed = append(keyed, obj)
		} else {
			unkeyed = append(unkeyed, obj)
		}
	}

	if len(keyed) > 0 {
		if _, err := s.engine.Insert(table, rowImages(keyed), false); err != nil {
			return err
		}
	}

	if len(unkeyed) > 0 {
		dialect := s.engine.Connection().Dialect()
		useSequence := dialect.SupportsSequences() && table.SequenceName() != ""

		for _, obj := range unkeyed {
			obj.RefreshMasterFKs(s)
		}

		if useSequence {
			pkIdx := table.PKIndexes()[0]
			for _, obj := range unkeyed {
				next, err := s.engine.GetNextValue(table.SequenceName())
				if err != nil {
					return err
				}
				if err := obj.Set(pkIdx, next); err != nil {
					return err
				}
			}
			if _, err := s.engine.Insert(table, rowImages(unkeyed), false); err != nil {
				return err
			}
		} else {
			collectIDs := table.HasSurrogatePK()
			ids, err := s.engine.Insert(table, rowImages(unkeyed), collectIDs)
			if err != nil {
				return err
			}
			if collectIDs {
				pkIdx := table.PKIndexes()[0]
				for i, obj := range unkeyed {
					if i >= len(ids) || ids[i].IsNull() {
						continue
					}
					if err := obj.Set(pkIdx, ids[i]); err != nil {
						return err
					}
				}
			}
		}
	}

	for _, obj := range objs {
		obj.RefreshAllSlaveFKs(s)
		if obj.AssignedKey() {
			s.identityMap[obj.KeyString()] = obj.Handle()
		}
		obj.SetStatus(dataobj.Ghost)
	}
	return nil
}

func rowImages(objs []*dataobj.DataObject) [][]value.Value {
	rows := make([][]value.Value, len(objs))
	for i, obj := range objs {
		rows[i] = obj.RawValues()
	}
	return rows
}

// flushUpdate is spec §4.5 phase (2): refresh each Dirty object's
// master-FK columns (a master may have just been assigned a key in
// phase (1)), batch by table, issue one UPDATE per table, and transition
// Dirty to Ghost.
func (s *Session) flushUpdate() error {
	byTable := make(map[string][]*dataobj.DataObject)
	var order []string
	for _, h := range s.Objects() {
		obj := s.objects[h]
		if obj.Status() != dataobj.Dirty {
			continue
		}
		obj.RefreshMasterFKs(s)
		name := obj.Table().Name()
		if _, ok := byTable[name]; !ok {
			order = append(order, name)
		}
		byTable[name] = append(byTable[name], obj)
	}
	sort.Strings(order)

	for _, name := range order {
		objs := byTable[name]
		table, err := s.schema.Table(name)
		if err != nil {
			return err
		}
		if err := s.engine.Update(table, rowImages(objs)); err != nil {
			return err
		}
		for _, obj := range objs {
			obj.SetStatus(dataobj.Ghost)
		}
	}
	return nil
}

// flushDelete is spec §4.5 phase (3): walk ToBeDeleted objects from the
// deepest depth down to 0, batch by table, issue one DELETE per table
// covering every collected Key, transition to Deleted, then purge every
// Deleted object from the arena and identity map.
func (s *Session) flushDelete() error {
	var toDelete []*dataobj.DataObject
	for _, h := range s.Objects() {
		if obj := s.objects[h]; obj.Status() == dataobj.ToBeDeleted {
			toDelete = append(toDelete, obj)
		}
	}
	if len(toDelete) > 0 {
		buckets, depths, tablesAtDepth := bucketByDepthAndTable(toDelete)
		for i := len(depths) - 1; i >= 0; i-- {
			depth := depths[i]
			for _, tname := range tablesAtDepth[depth] {
				objs := buckets[depthTableKey{depth, tname}]
				table, err := s.schema.Table(tname)
				if err != nil {
					return err
				}
				keys := make([]schema.Key, len(objs))
				for i, obj := range objs {
					keys[i] = obj.Key()
				}
				if err := s.engine.DeleteFrom(table, keys); err != nil {
					return err
				}
				for _, obj := range objs {
					obj.SetStatus(dataobj.Deleted)
				}
			}
		}
	}

	for _, h := range s.Objects() {
		if obj := s.objects[h]; obj.Status() == dataobj.Deleted {
			delete(s.objects, h)
			delete(s.identityMap, obj.KeyString())
		}
	}
	return nil
}
