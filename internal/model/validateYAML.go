package model

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Разрешённые ключи для объектов
var allowedEntityKeys = map[string]bool{
	"table":            true,
	"primary_key":      true,
	"default_sort":     true,
	"columns":          true,
	"relations":        true,
	"filterable":       true,
	"searchable":       true,
	"sortable":         true,
	"business_filters": true,
}

var allowedColumnKeys = map[string]bool{
	"source": true,
	"expr":   true,
	"type":   true,
}

var allowedRelationKeys = map[string]bool{
	"type":    true,
	"table":   true,
	"fk":      true,
	"pk":      true,
	"columns": true,
}

var allowedSortKeys = map[string]bool{
	"field": true,
	"order": true,
}

// Разрешённые значения для type в колонках
var allowedColumnTypeValues = map[string]bool{
	TypeString:      true,
	TypeInt:         true,
	TypeFloat:       true,
	TypeBool:        true,
	TypeDate:        true,
	TypeDatetime:    true,
	TypeUUID:        true,
	TypeStringArray: true,
}

func validateYAMLNode(node *yaml.Node, context string) error {
	switch node.Kind {
	case yaml.DocumentNode:
		for _, child := range node.Content {
			if err := validateYAMLNode(child, "entity"); err != nil {
				return err
			}
		}

	case yaml.MappingNode:
		var allowedKeys map[string]bool
		switch context {
		case "entity":
			allowedKeys = allowedEntityKeys
		case "column":
			allowedKeys = allowedColumnKeys
		case "relation":
			allowedKeys = allowedRelationKeys
		case "sort":
			allowedKeys = allowedSortKeys
		default:
			allowedKeys = nil // свободная форма
		}

		for i := 0; i+1 < len(node.Content); i += 2 {
			keyNode := node.Content[i]
			valNode := node.Content[i+1]
			key := keyNode.Value

			if allowedKeys != nil && !allowedKeys[key] {
				return fmt.Errorf("line %d: unknown key '%s' in %s", keyNode.Line, key, context)
			}

			if context == "column" && key == "type" && !allowedColumnTypeValues[valNode.Value] {
				return fmt.Errorf("line %d: unknown type value '%s' in column", valNode.Line, valNode.Value)
			}
			if context == "relation-columns" && !allowedColumnTypeValues[valNode.Value] {
				return fmt.Errorf("line %d: unknown type value '%s' for relation column '%s'", valNode.Line, valNode.Value, key)
			}

			// Определяем новый контекст
			nextContext := ""
			switch {
			case context == "entity" && key == "columns":
				nextContext = "columns-map"
			case context == "columns-map":
				nextContext = "column"
			case context == "entity" && key == "relations":
				nextContext = "relations-map"
			case context == "relations-map":
				nextContext = "relation"
			case context == "relation" && key == "columns":
				nextContext = "relation-columns"
			case context == "entity" && key == "default_sort":
				nextContext = "sort"
			default:
				nextContext = "value"
			}

			if err := validateYAMLNode(valNode, nextContext); err != nil {
				return err
			}
		}

	case yaml.SequenceNode, yaml.ScalarNode:
		// списки полей проверяются после разбора, в validateEntity
	}

	return nil
}
