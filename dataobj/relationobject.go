package dataobj

import (
	"github.com/yborm/yborm-go/schema"
	"github.com/yborm/yborm-go/sqlexpr"
	"github.com/yborm/yborm-go/ybormerr"
)

// RelationObject is the master side's view of a one-to-many edge (spec
// §3): an ordered, deduplicated list of slave Handles plus a status
// recording whether that list has been fully loaded from the database.
// It is owned by its master DataObject's masterRelations map; slaves
// only ever hold the master's Handle (dataobj.go's slaveOf), never a
// pointer to the RelationObject itself.
type RelationObject struct {
	relation *schema.Relation
	master   Handle
	slaves   []Handle
	index    map[Handle]int
	status   RelStatus
}

func newRelationObject(relation *schema.Relation, master Handle) *RelationObject {
	return &RelationObject{relation: relation, master: master, index: make(map[Handle]int)}
}

func (ro *RelationObject) Relation() *schema.Relation { return ro.relation }
func (ro *RelationObject) Master() Handle             { return ro.master }
func (ro *RelationObject) Status() RelStatus          { return ro.status }

// MarkSync records that ro's slave list is now known-complete, so a later
// DataObject.Slaves call does not lazy-load it through lazyLoadSlaves.
func (ro *RelationObject) MarkSync() { ro.status = RelSync }

// Slaves returns the current slave handle list, in insertion order.
func (ro *RelationObject) Slaves() []Handle { return append([]Handle(nil), ro.slaves...) }

func (ro *RelationObject) addSlave(h Handle) {
	if _, ok := ro.index[h]; ok {
		return
	}
	ro.index[h] = len(ro.slaves)
	ro.slaves = append(ro.slaves, h)
}

func (ro *RelationObject) removeSlave(h Handle) {
	i, ok := ro.index[h]
	if !ok {
		return
	}
	ro.slaves = append(ro.slaves[:i], ro.slaves[i+1:]...)
	delete(ro.index, h)
	for j := i; j < len(ro.slaves); j++ {
		ro.index[ro.slaves[j]] = j
	}
}

// MasterRelation looks up (or lazily creates) the RelationObject master
// owns for relation, used by GetSlaves/cascade traversal.
func (d *DataObject) MasterRelation(relation *schema.Relation) *RelationObject {
	ro, ok := d.masterRelations[relation]
	if !ok {
		ro = newRelationObject(relation, d.handle)
		d.masterRelations[relation] = ro
	}
	return ro
}

// Link is the canonical edge-forming operation (spec §4.4 link(),
// "static" in the sense that it operates on master/slave directly
// rather than as a method biased to one side):
//
//  1. ensure slave is materialized (lazy load);
//  2. detach slave from any prior relation-object on the same relation
//     whose master differs;
//  3. locate (or create) master's RelationObject for this relation;
//  4. insert slave into its ordered slave list (dedup by identity);
//  5. recompute depth, propagating to slave's own slaves; a link that
//     would revisit master itself is a cycle;
//  6. if master has an assigned key, copy its PK into slave's FK
//     columns; otherwise mark slave Dirty if its current FK disagrees
//     with master's key, or master is New.
func Link(master, slave *DataObject, relation *schema.Relation, sess Session) error {
	if slave.status == Ghost {
		if err := slave.Load(sess); err != nil {
			return err
		}
	}

	if priorMaster, ok := slave.slaveOf[relation]; ok && priorMaster != master.handle {
		if prior := sess.Resolve(priorMaster); prior != nil {
			if ro, ok := prior.masterRelations[relation]; ok {
				ro.removeSlave(slave.handle)
			}
		}
	}

	ro := master.MasterRelation(relation)
	ro.addSlave(slave.handle)
	slave.slaveOf[relation] = master.handle

	if err := propagateDepth(slave, master, master.depth+1, sess); err != nil {
		return err
	}

	if master.assignedKey {
		copyMasterKeyIntoSlaveFKs(master, slave, relation)
	} else if master.status == New || slaveFKDisagrees(master, slave, relation) {
		slave.markDirtyIfSync()
	}
	return nil
}

// propagateDepth raises obj's depth (and everything obj masters) to at
// least newDepth, stopping without error once a node's depth is already
// high enough. Revisiting root - the master being linked under - means
// the graph would close a cycle through the new edge (spec §4.4 step 5,
// §8 boundary behavior).
func propagateDepth(obj, root *DataObject, newDepth int, sess Session) error {
	if obj == root {
		return ybormerr.CycleDetected()
	}
	if newDepth <= obj.depth {
		return nil
	}
	obj.depth = newDepth
	for _, ro := range obj.masterRelations {
		for _, h := range ro.slaves {
			child := sess.Resolve(h)
			if child == nil {
				continue
			}
			if err := propagateDepth(child, root, obj.depth+1, sess); err != nil {
				return err
			}
		}
	}
	return nil
}

func copyMasterKeyIntoSlaveFKs(master, slave *DataObject, relation *schema.Relation) {
	pkNames := master.table.PKNames()
	fkCols := relation.FKColumns()
	if len(pkNames) != len(fkCols) {
		return
	}
	for i, fk := range fkCols {
		pkIdx := master.table.IndexByName(pkNames[i])
		fkIdx := slave.table.IndexByName(fk)
		if pkIdx < 0 || fkIdx < 0 {
			continue
		}
		if !slave.values[fkIdx].Equal(master.values[pkIdx]) {
			slave.setInternal(fkIdx, master.values[pkIdx])
			slave.markDirtyIfSync()
		}
	}
}

func slaveFKDisagrees(master, slave *DataObject, relation *schema.Relation) bool {
	pkNames := master.table.PKNames()
	fkCols := relation.FKColumns()
	if len(pkNames) != len(fkCols) {
		return false
	}
	for i, fk := range fkCols {
		pkIdx := master.table.IndexByName(pkNames[i])
		fkIdx := slave.table.IndexByName(fk)
		if pkIdx < 0 || fkIdx < 0 {
			continue
		}
		if !slave.values[fkIdx].Equal(master.values[pkIdx]) {
			return true
		}
	}
	return false
}

// RefreshSlaveFKs copies master's (now presumably freshly assigned) PK
// values into every current slave's FK columns, used during flush to
// propagate a just-generated surrogate PK (spec §4.4
// refresh_slaves_fkeys).
func (ro *RelationObject) RefreshSlaveFKs(master *DataObject, sess Session) {
	for _, h := range ro.slaves {
		if slave := sess.Resolve(h); slave != nil {
			copyMasterKeyIntoSlaveFKs(master, slave, ro.relation)
		}
	}
}

// RefreshAllSlaveFKs calls RefreshSlaveFKs on every RelationObject d owns
// as a master, used by Session.flush_new right after d's own PK is
// assigned (sequence- or autoincrement-generated) so any slave already
// linked under d in this same flush picks up the freshly known key
// (spec §4.5 flush_new, "refresh slave-FK fields on these freshly-keyed
// objects").
func (d *DataObject) RefreshAllSlaveFKs(sess Session) {
	for _, ro := range d.masterRelations {
		ro.RefreshSlaveFKs(d, sess)
	}
}

// RefreshMasterFKs copies each of d's current masters' PK values into d's
// own FK columns, for every relation where d is the slave side. Used by
// Session.flush_new (an unkeyed object's FK may reference a master
// inserted earlier in the same flush, at a lower depth) and flush_update
// (spec §4.5: "in case a master's key was just assigned").
func (d *DataObject) RefreshMasterFKs(sess Session) {
	for relation, masterHandle := range d.slaveOf {
		master := sess.Resolve(masterHandle)
		if master == nil || !master.assignedKey {
			continue
		}
		copyMasterKeyIntoSlaveFKs(master, d, relation)
	}
}

// GetMaster resolves propertyName to the Relation on d's own class (d as
// the slave side), computes the FK key from slave's current column values, and fetches
// (or reuses) the master through Session.GetLazyByKey, linking the two
// (spec §4.4 get_master). A null FK (spec §8 scenario S4, nullable FK)
// returns (nil, nil) without issuing any SELECT: the property navigates
// to nothing rather than a database round trip.
func (d *DataObject) GetMaster(propertyName string, sess Session) (*DataObject, error) {
	relation, err := findRelationOwningClass(sess, d.table.ClassName(), propertyName, false)
	if err != nil {
		return nil, err
	}
	masterTable := relation.MasterTable()
	fkCols := relation.FKColumns()
	pkNames := masterTable.PKNames()
	if len(fkCols) != len(pkNames) {
		return nil, ybormerr.New(ybormerr.Metadata, "relation %s: FK/PK column count mismatch", relation.Description())
	}

	key := schema.Key{TableName: masterTable.Name()}
	for i, fk := range fkCols {
		idx := d.table.IndexByName(fk)
		if idx < 0 {
			return nil, ybormerr.New(ybormerr.Metadata, "relation %s: no such FK column %s", relation.Description(), fk)
		}
		key.Parts = append(key.Parts, schema.KeyPart{Column: pkNames[i], Value: d.values[idx]})
	}
	if schema.EmptyKey(key) {
		return nil, nil
	}

	masterHandle, err := sess.GetLazyByKey(masterTable, key)
	if err != nil {
		return nil, err
	}
	master := sess.Resolve(masterHandle)
	if master == nil {
		return nil, ybormerr.New(ybormerr.ObjectGraph, "get_master: handle did not resolve")
	}
	if err := Link(master, d, relation, sess); err != nil {
		return nil, err
	}
	return master, nil
}

// Slaves resolves propertyName to the Relation on d's class (d as
// master), returning its RelationObject and lazily materializing the
// slave list on first access (spec §4.4 get_slaves).
func (d *DataObject) Slaves(propertyName string, sess Session) (*RelationObject, error) {
	relation, err := findRelationOwningClass(sess, d.table.ClassName(), propertyName, true)
	if err != nil {
		return nil, err
	}
	ro := d.MasterRelation(relation)
	if ro.status == Incomplete && d.assignedKey {
		if err := ro.lazyLoadSlaves(d, sess); err != nil {
			return nil, err
		}
	}
	return ro, nil
}

// lazyLoadSlaves issues "SELECT <slave cols> FROM slave WHERE FK = master
// PK [ORDER BY ...]", fetches-or-creates each row's DataObject through
// Session, links it under this RelationObject, and transitions
// Incomplete->Sync (spec §4.4 RelationObject.lazy_load_slaves). Slaves
// already marked ToBeDeleted are skipped, matching the spec's
// instruction not to resurrect a pending delete into the live set.
func (ro *RelationObject) lazyLoadSlaves(master *DataObject, sess Session) error {
	slaveTable := ro.relation.SlaveTable()
	fkCols := ro.relation.FKColumns()
	pkNames := master.table.PKNames()
	if len(fkCols) != len(pkNames) {
		return ybormerr.New(ybormerr.Metadata, "relation %s: FK/PK column count mismatch", ro.relation.Description())
	}

	key := schema.Key{TableName: slaveTable.Name()}
	for i, fk := range fkCols {
		key.Parts = append(key.Parts, schema.KeyPart{Column: fk, Value: master.values[master.table.IndexByName(pkNames[i])]})
	}

	cols := make([]sqlexpr.Node, len(slaveTable.Columns()))
	for i, c := range slaveTable.Columns() {
		cols[i] = sqlexpr.Column{Table: slaveTable.Name(), Col: c.Name()}
	}
	sel := sqlexpr.NewSelect(cols...).
		From(sqlexpr.TableRef{Name: slaveTable.Name()}).
		Where(sqlexpr.KeyFilter{Key: key})
	if orderBy := ro.relation.Side2.OrderBy; orderBy != "" {
		sel.OrderBy(sqlexpr.Column{Table: slaveTable.Name(), Col: orderBy})
	}

	rs, err := sess.Engine().SelectIter(sel, false)
	if err != nil {
		return err
	}
	defer rs.Close()

	for rs.Next() {
		row := rs.Row()
		slaveKey, _ := slaveTable.MkKey(row.Values)
		h, err := sess.GetLazyByKey(slaveTable, slaveKey)
		if err != nil {
			return err
		}
		slave := sess.Resolve(h)
		if slave == nil {
			continue
		}
		if slave.status == ToBeDeleted || slave.status == Deleted {
			continue
		}
		if slave.status == Ghost {
			if _, err := slave.FillFromRow(row, 0); err != nil {
				return err
			}
		}
		if err := Link(master, slave, ro.relation, sess); err != nil {
			return err
		}
	}
	if err := rs.Err(); err != nil {
		return err
	}
	ro.status = RelSync
	return nil
}
