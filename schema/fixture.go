package schema

import (
	"fmt"

	"github.com/yborm/yborm-go/value"
	"gopkg.in/yaml.v3"
)

// fixtureDoc mirrors the small YAML shape used by LoadFixture. It is not
// the XML schema configuration format described in spec §1 (explicitly out
// of scope as user-facing configuration) - it exists purely so tests can
// build a *Schema without hand-writing Go literals for every table,
// grounded on the teacher's own YAML-via-gopkg.in/yaml config loader
// (database.ParseGeneratorConfig).
type fixtureDoc struct {
	Tables []struct {
		Name    string `yaml:"name"`
		Class   string `yaml:"class"`
		Columns []struct {
			Name     string `yaml:"name"`
			Type     string `yaml:"type"`
			Size     int    `yaml:"size"`
			PK       bool   `yaml:"pk"`
			ReadOnly bool   `yaml:"readonly"`
			Nullable bool   `yaml:"nullable"`
			FKTable  string `yaml:"fk_table"`
			FKColumn string `yaml:"fk_column"`
		} `yaml:"columns"`
	} `yaml:"tables"`
	Relations []struct {
		Kind    string `yaml:"kind"`
		Cascade string `yaml:"cascade"`
		Side1   struct {
			Class    string `yaml:"class"`
			Property string `yaml:"property"`
		} `yaml:"side1"`
		Side2 struct {
			Class    string `yaml:"class"`
			Property string `yaml:"property"`
		} `yaml:"side2"`
	} `yaml:"relations"`
}

var typeNames = map[string]value.Type{
	"integer":  value.Integer,
	"longint":  value.LongInt,
	"float":    value.Float,
	"string":   value.String,
	"decimal":  value.Decimal,
	"datetime": value.DateTime,
	"blob":     value.Blob,
}

var cascadeNames = map[string]CascadePolicy{
	"restrict": Restrict,
	"nullify":  Nullify,
	"delete":   Delete,
}

var relationKindNames = map[string]RelationKind{
	"one_to_many":  OneToMany,
	"many_to_many": ManyToMany,
	"parent_child": ParentChild,
}

// LoadFixture parses a small YAML schema description (see fixtureDoc) and
// returns a checked, FK-resolved Schema, ready for use in tests.
func LoadFixture(data []byte) (*Schema, error) {
	var doc fixtureDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing fixture: %w", err)
	}

	s := NewSchema()
	for _, td := range doc.Tables {
		var cols []*Column
		for _, cd := range td.Columns {
			typ, ok := typeNames[cd.Type]
			if !ok {
				return nil, fmt.Errorf("unknown column type %q", cd.Type)
			}
			c := NewColumn(cd.Name, typ)
			if cd.Size > 0 {
				c.WithSize(cd.Size)
			}
			var flags ColumnFlag
			if cd.PK {
				flags |= PrimaryKey
			}
			if cd.ReadOnly {
				flags |= ReadOnly
			}
			if cd.Nullable {
				flags |= Nullable
			}
			if flags != 0 {
				c.WithFlags(flags)
			}
			if cd.FKTable != "" {
				c.WithForeignKey(cd.FKTable, cd.FKColumn)
			}
			cols = append(cols, c)
		}
		t, err := NewTable(td.Name, cols...)
		if err != nil {
			return nil, err
		}
		t.WithClassName(td.Class)
		if err := s.AddTable(t); err != nil {
			return nil, err
		}
	}

	for _, rd := range doc.Relations {
		kind, ok := relationKindNames[rd.Kind]
		if !ok {
			return nil, fmt.Errorf("unknown relation kind %q", rd.Kind)
		}
		cascade, ok := cascadeNames[rd.Cascade]
		if !ok {
			return nil, fmt.Errorf("unknown cascade policy %q", rd.Cascade)
		}
		s.AddRelation(&Relation{
			Kind:    kind,
			Cascade: cascade,
			Side1:   RelationSide{ClassName: rd.Side1.Class, Property: rd.Side1.Property},
			Side2:   RelationSide{ClassName: rd.Side2.Class, Property: rd.Side2.Property},
		})
	}

	if err := s.FillForeignKeys(); err != nil {
		return nil, err
	}
	if err := s.Check(); err != nil {
		return nil, err
	}
	return s, nil
}
