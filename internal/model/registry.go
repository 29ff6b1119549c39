package model

import "fmt"

// Registry holds every loaded entity. It is filled once by InitRegistry and only read afterwards.
var Registry = map[string]*Entity{}

func InitRegistry(dir string) error {
	entities, err := LoadEntitiesFromDir(dir)
	if err != nil {
		return fmt.Errorf("load error: %w", err)
	}
	Registry = entities
	return nil
}

func Get(name string) (*Entity, bool) {
	e, ok := Registry[name]
	return e, ok
}

func (e *Entity) GetRelation(name string) *Relation {
	if e == nil || e.Relations == nil {
		return nil
	}
	return e.Relations[name]
}

func (e *Entity) GetColumn(name string) *Column {
	if e == nil || e.Columns == nil {
		return nil
	}
	return e.Columns[name]
}
