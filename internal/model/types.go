package model

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Column types understood by the query builder.
const (
	TypeString      = "string"
	TypeInt         = "int"
	TypeFloat       = "float"
	TypeBool        = "bool"
	TypeDate        = "date"
	TypeDatetime    = "datetime"
	TypeUUID        = "UUID"
	TypeStringArray = "string_array"
)

// Relation types. belongs_to is joined, has_many is matched through EXISTS.
const (
	BelongsTo = "belongs_to"
	HasMany   = "has_many"
)

// Сущность описывает одну выборку (таблицу) в конфигурации
type Entity struct {
	Name            string               `yaml:"-"` // logical name, taken from the file name
	Table           string               `yaml:"table"`
	PrimaryKey      string               `yaml:"primary_key"` // optional, "id" by default
	DefaultSort     SortDef              `yaml:"default_sort"`
	Columns         map[string]*Column   `yaml:"columns"`
	Relations       map[string]*Relation `yaml:"relations"`
	Filterable      StringList           `yaml:"filterable"`
	Searchable      StringList           `yaml:"searchable"`
	Sortable        StringList           `yaml:"sortable"`
	BusinessFilters StringList           `yaml:"business_filters"`

	// для runtime (не сериализуется)
	_fields map[string]Field `yaml:"-"`
}

// Column is one output column of the entity.
type Column struct {
	Source string `yaml:"source"` // column in the entity table, defaults to the column name
	Expr   string `yaml:"expr"`   // SQL expression over "main", wins over Source
	Type   string `yaml:"type"`
}

// Relation описывает связь на один шаг от сущности
type Relation struct {
	Type    string            `yaml:"type"`    // belongs_to, has_many
	Table   string            `yaml:"table"`   // имя таблицы в SQL
	FK      string            `yaml:"fk"`      // belongs_to: column in main; has_many: column in the related table
	PK      string            `yaml:"pk"`      // belongs_to: key of the related table; has_many: key of main
	Columns map[string]string `yaml:"columns"` // column -> type, only these may be referenced

	name string `yaml:"-"`
}

type SortDef struct {
	Field string `yaml:"field"`
	Order string `yaml:"order"`
}

// Field is a resolved field path: a column of the entity or relation.column.
type Field struct {
	Path     string
	SQL      string
	Type     string
	Relation *Relation // nil for own columns
}

// Alias is the SQL alias used for the related table.
func (r *Relation) Alias() string {
	return "r_" + r.name
}

func (r *Relation) Name() string {
	return r.name
}

// GetPrimaryKey возвращает поле первичного ключа, "id" по умолчанию.
func (e *Entity) GetPrimaryKey() string {
	if e.PrimaryKey != "" {
		return e.PrimaryKey
	}
	return "id"
}

// StringList accepts either a YAML sequence or a comma separated scalar.
type StringList []string

func (s *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var out []string
		for _, part := range strings.Split(node.Value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		*s = out
		return nil
	case yaml.SequenceNode:
		var out []string
		if err := node.Decode(&out); err != nil {
			return err
		}
		*s = out
		return nil
	default:
		return fmt.Errorf("line %d: expected list or comma separated string", node.Line)
	}
}

func (s StringList) Contains(v string) bool {
	for _, item := range s {
		if item == v {
			return true
		}
	}
	return false
}
