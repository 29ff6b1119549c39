package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"FleetAPI/internal/logger"

	"gopkg.in/yaml.v3"
)

// LoadEntitiesFromDir parses every *.yml in dir. Nothing is registered if any file fails.
func LoadEntitiesFromDir(dir string) (map[string]*Entity, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.yml"))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no entity definitions in %s", dir)
	}

	out := make(map[string]*Entity, len(files))
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		entity, err := ParseEntity(name, data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		out[name] = entity
		logger.Info("entity_loaded", map[string]any{
			"entity":    name,
			"columns":   len(entity.Columns),
			"relations": len(entity.Relations),
		})
	}
	return out, nil
}

// ParseEntity decodes and validates one entity definition.
func ParseEntity(name string, data []byte) (*Entity, error) {
	// 1. Разбираем в yaml.Node для структурной валидации
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("YAML parse error: %w", err)
	}
	// YAML всегда [0] - документ, [1] - root mapping
	if len(root.Content) == 0 {
		return nil, fmt.Errorf("empty YAML")
	}
	if err := validateYAMLNode(root.Content[0], "entity"); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	// 2. Теперь уже Decode в сущность
	var entity Entity
	if err := root.Content[0].Decode(&entity); err != nil {
		return nil, fmt.Errorf("unmarshal error: %w", err)
	}
	entity.Name = name
	if err := entity.link(); err != nil {
		return nil, fmt.Errorf("entity %s: %w", name, err)
	}
	return &entity, nil
}
