// Package schema implements the metamodel (spec §3/§4.2, C2): Tables,
// Columns, Relations, and the Schema that ties them together with
// foreign-key resolution and depth computation.
package schema

import (
	"github.com/yborm/yborm-go/ybormerr"
)

// Schema is the full metamodel: a map of table name -> Table, a map of
// class name -> Table, and the ordered list of Relations plus a
// class-name -> Relation multimap for bidirectional traversal (spec §3).
type Schema struct {
	tables      map[string]*Table
	tablesByClass map[string]*Table
	relations   []*Relation
	relationsByClass map[string][]*Relation
}

func NewSchema() *Schema {
	return &Schema{
		tables:           make(map[string]*Table),
		tablesByClass:    make(map[string]*Table),
		relationsByClass: make(map[string][]*Relation),
	}
}

// AddTable registers a table, indexing it by name and (if set) class name.
func (s *Schema) AddTable(t *Table) error {
	if _, dup := s.tables[t.name]; dup {
		return ybormerr.New(ybormerr.Metadata, "duplicate table name %s", t.name)
	}
	s.tables[t.name] = t
	if t.className != "" {
		s.tablesByClass[t.className] = t
	}
	return nil
}

// AddRelation registers a relation and indexes it by both sides' class
// names for FindRelation.
func (s *Schema) AddRelation(r *Relation) {
	s.relations = append(s.relations, r)
	s.relationsByClass[r.Side1.ClassName] = append(s.relationsByClass[r.Side1.ClassName], r)
	s.relationsByClass[r.Side2.ClassName] = append(s.relationsByClass[r.Side2.ClassName], r)
}

func (s *Schema) Table(name string) (*Table, error) {
	t, ok := s.tables[name]
	if !ok {
		return nil, ybormerr.New(ybormerr.Metadata, "no such table %s", name)
	}
	return t, nil
}

func (s *Schema) TableByClass(className string) (*Table, error) {
	t, ok := s.tablesByClass[className]
	if !ok {
		return nil, ybormerr.New(ybormerr.Metadata, "no such class %s", className)
	}
	return t, nil
}

func (s *Schema) Tables() []*Table {
	out := make([]*Table, 0, len(s.tables))
	for _, t := range s.tables {
		out = append(out, t)
	}
	return out
}

func (s *Schema) Relations() []*Relation { return append([]*Relation(nil), s.relations...) }

// RelationsForClass returns every relation with className on either side,
// used by cascade deletion (spec §4.4) to enumerate a class's master
// relations without re-deriving FindRelation's single-match semantics.
func (s *Schema) RelationsForClass(className string) []*Relation {
	return append([]*Relation(nil), s.relationsByClass[className]...)
}

// FillForeignKeys resolves every relation's endpoints to concrete tables
// and FK column names, by locating the slave side's columns whose
// ForeignKeyTarget points at the master side's table (spec §3,
// fill_fkeys).
func (s *Schema) FillForeignKeys() error {
	for _, r := range s.relations {
		masterTable, err := s.TableByClass(r.Side1.ClassName)
		if err != nil {
			return err
		}
		slaveTable, err := s.TableByClass(r.Side2.ClassName)
		if err != nil {
			return err
		}
		var fkCols []string
		for _, c := range slaveTable.Columns() {
			if fk := c.ForeignKey(); fk != nil && fk.Table == masterTable.Name() {
				fkCols = append(fkCols, c.Name())
			}
		}
		if len(fkCols) == 0 {
			return ybormerr.New(ybormerr.Metadata, "relation %s: no FK column on %s referencing %s", r.Description(), slaveTable.Name(), masterTable.Name())
		}
		r.masterTable = masterTable
		r.slaveTable = slaveTable
		r.fkColumns = fkCols
	}
	return nil
}

// Check validates that every FK target exists and computes every table's
// depth (spec §3, check()). It must be called after FillForeignKeys.
func (s *Schema) Check() error {
	for _, t := range s.Tables() {
		for _, c := range t.Columns() {
			if fk := c.ForeignKey(); fk != nil {
				target, err := s.Table(fk.Table)
				if err != nil {
					return ybormerr.New(ybormerr.Metadata, "table %s column %s: FK target table %s not found", t.Name(), c.Name(), fk.Table)
				}
				if target.IndexByName(fk.Column) < 0 {
					return ybormerr.New(ybormerr.Metadata, "table %s column %s: FK target column %s.%s not found", t.Name(), c.Name(), fk.Table, fk.Column)
				}
			}
		}
	}
	return s.computeDepths()
}

// computeDepths assigns Table.depth as the longest hard-FK chain from a
// root table, using the generic topological sort (adapted from the
// teacher's DDL-ordering sort). A cycle among non-nullable FKs is a Metadata
// error (spec §3 invariant: no cycles among hard FKs).
func (s *Schema) computeDepths() error {
	tables := s.Tables()
	deps := make(map[string][]string, len(tables))
	for _, t := range tables {
		var hardDeps []string
		for _, c := range t.Columns() {
			if fk := c.ForeignKey(); fk != nil && !c.IsNullable() && fk.Table != t.Name() {
				hardDeps = append(hardDeps, fk.Table)
			}
		}
		deps[t.Name()] = hardDeps
	}
	sorted, ok := topologicalSort(tables, deps, func(t *Table) string { return t.Name() })
	if !ok {
		return ybormerr.New(ybormerr.Metadata, "cycle detected among hard (non-nullable) foreign keys")
	}
	depthOf := make(map[string]int, len(tables))
	for _, t := range sorted {
		maxDep := -1
		for _, c := range t.Columns() {
			if fk := c.ForeignKey(); fk != nil && !c.IsNullable() && fk.Table != t.Name() {
				if d, ok := depthOf[fk.Table]; ok && d > maxDep {
					maxDep = d
				}
			}
		}
		d := maxDep + 1
		depthOf[t.Name()] = d
		t.depth = d
	}
	return nil
}

// FindRelation resolves a relation connecting classA and classB through the
// given property name, from classA's point of view. sideOfA selects
// whether classA is expected on Side1 (true) or Side2 (false) of the
// matching Relation (spec §3, find_relation).
func (s *Schema) FindRelation(classA, propertyName, classB string, sideOfA bool) (*Relation, error) {
	for _, r := range s.relationsByClass[classA] {
		var side RelationSide
		var otherClass string
		if sideOfA {
			side, otherClass = r.Side1, r.Side2.ClassName
		} else {
			side, otherClass = r.Side2, r.Side1.ClassName
		}
		if side.ClassName != classA {
			continue
		}
		if propertyName != "" && side.Property != propertyName {
			continue
		}
		if classB != "" && otherClass != classB {
			continue
		}
		return r, nil
	}
	return nil, ybormerr.New(ybormerr.Metadata, "no relation found for %s.%s -> %s", classA, propertyName, classB)
}
