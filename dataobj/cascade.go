package dataobj

import (
	"github.com/yborm/yborm-go/schema"
	"github.com/yborm/yborm-go/value"
	"github.com/yborm/yborm-go/ybormerr"
)

// DeleteObject performs spec §4.4/C8's delete_object(mode, depth):
//   - DeleteNormal runs the DryRun check (collecting every Restrict
//     relation blocking the delete, rather than failing on the first
//     one - a supplement recorded in DESIGN.md) and, only if it found
//     nothing, the Unchecked apply.
//   - DeleteDryRun runs only the check: every visited object's status
//     is left untouched whether or not it finds a violation (spec §8
//     dry-run property).
//   - DeleteUnchecked applies directly, skipping the check - used by
//     cascadeApply's own Delete-cascade recursion, since the top-level
//     Normal/DryRun call already dry-ran the whole subtree once.
//
// depth is the recursion depth of this call within the current
// traversal (0 at the call a caller makes directly); it is threaded
// through purely for diagnostics and does not gate behavior beyond what
// the visited-handle cycle guard already provides.
func (d *DataObject) DeleteObject(sess Session, mode DeleteMode) error {
	switch mode {
	case DeleteDryRun:
		violations, err := d.cascadeDryRun(sess, make(map[Handle]bool), 0)
		if err != nil {
			return err
		}
		if len(violations) > 0 {
			return &ybormerr.CascadeDeleteError{Violations: violations}
		}
		return nil
	case DeleteUnchecked:
		return d.cascadeApply(sess, make(map[Handle]bool), 0)
	default:
		violations, err := d.cascadeDryRun(sess, make(map[Handle]bool), 0)
		if err != nil {
			return err
		}
		if len(violations) > 0 {
			return &ybormerr.CascadeDeleteError{Violations: violations}
		}
		return d.cascadeApply(sess, make(map[Handle]bool), 0)
	}
}

// cascadeDryRun populates every master relation owned by d's class (so
// Restrict/Nullify/Delete can all be evaluated against a fully loaded
// slave set), then walks Delete-cascaded children recursively,
// collecting Restrict violations found anywhere in the subtree.
func (d *DataObject) cascadeDryRun(sess Session, visited map[Handle]bool, depth int) ([]ybormerr.CascadeViolation, error) {
	if d.handle != 0 {
		if visited[d.handle] {
			return nil, nil
		}
		visited[d.handle] = true
	}

	var violations []ybormerr.CascadeViolation
	for _, relation := range sess.Schema().RelationsForClass(d.table.ClassName()) {
		if relation.Side1.ClassName != d.table.ClassName() || relation.MasterTable() != d.table {
			continue
		}
		ro, err := d.Slaves(relation.Side1.Property, sess)
		if err != nil {
			return nil, err
		}
		slaves := ro.Slaves()
		if len(slaves) == 0 {
			continue
		}
		switch relation.Cascade {
		case schema.Restrict:
			violations = append(violations, ybormerr.CascadeViolation{
				RelationDescription: relation.Description(),
				SlaveCount:           len(slaves),
			})
		case schema.Nullify:
			for _, h := range slaves {
				slave := sess.Resolve(h)
				if slave != nil && fkPartOfCompositePK(slave.table, relation) {
					violations = append(violations, ybormerr.CascadeViolation{
						RelationDescription: relation.Description(),
						SlaveCount:           len(slaves),
					})
					break
				}
			}
		case schema.Delete:
			for _, h := range slaves {
				slave := sess.Resolve(h)
				if slave == nil {
					continue
				}
				sub, err := slave.cascadeDryRun(sess, visited, depth+1)
				if err != nil {
					return nil, err
				}
				violations = append(violations, sub...)
			}
		}
	}
	return violations, nil
}

// cascadeApply is the Unchecked traversal: nullify or recursively delete
// every slave per its relation's cascade policy, clear this object's own
// slave-side links (so a shared master's RelationObject isn't left
// pointing at a deleted handle), and transition status (New directly to
// Deleted, otherwise to ToBeDeleted per spec §4.4).
func (d *DataObject) cascadeApply(sess Session, visited map[Handle]bool, depth int) error {
	if d.handle != 0 {
		if visited[d.handle] {
			return nil
		}
		visited[d.handle] = true
	}

	for relation, ro := range d.masterRelations {
		switch relation.Cascade {
		case schema.Nullify:
			for _, h := range ro.Slaves() {
				slave := sess.Resolve(h)
				if slave == nil {
					continue
				}
				slave.nullifyFKs(relation)
				ro.removeSlave(h)
				delete(slave.slaveOf, relation)
			}
		case schema.Delete:
			for _, h := range ro.Slaves() {
				slave := sess.Resolve(h)
				if slave == nil {
					continue
				}
				if err := slave.cascadeApply(sess, visited, depth+1); err != nil {
					return err
				}
			}
		case schema.Restrict:
			// dry run already guaranteed these are empty.
		}
	}

	for relation, masterHandle := range d.slaveOf {
		if master := sess.Resolve(masterHandle); master != nil {
			if ro, ok := master.masterRelations[relation]; ok {
				ro.removeSlave(d.handle)
			}
		}
	}
	d.slaveOf = make(map[*schema.Relation]Handle)

	if d.status == New {
		d.status = Deleted
	} else {
		d.status = ToBeDeleted
	}
	return nil
}

func (d *DataObject) nullifyFKs(relation *schema.Relation) {
	for _, fk := range relation.FKColumns() {
		if idx := d.table.IndexByName(fk); idx >= 0 {
			d.setInternal(idx, value.Null())
			d.markDirtyIfSync()
		}
	}
}

// fkPartOfCompositePK reports whether any of relation's FK columns on t
// also belongs to a composite (multi-column) primary key - the
// under-specified Nullify case spec §9's Open Questions resolves as an
// error (CascadeDeleteError) until clarified.
func fkPartOfCompositePK(t *schema.Table, relation *schema.Relation) bool {
	pkNames := t.PKNames()
	if len(pkNames) < 2 {
		return false
	}
	pkSet := make(map[string]bool, len(pkNames))
	for _, n := range pkNames {
		pkSet[n] = true
	}
	for _, fk := range relation.FKColumns() {
		if pkSet[fk] {
			return true
		}
	}
	return false
}
