package model

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"ResteasyAPI/internal/logger"

	"gopkg.in/yaml.v3"
)

// LoadDefinitions reads every *.yml / *.yaml file in dir, in file name order.
func LoadDefinitions(dir string) ([]*Definition, error) {
	var files []string
	for _, pattern := range []string{"*.yml", "*.yaml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)

	defs := make([]*Definition, 0, len(files))
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		def, err := ParseDefinition(name, data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		defs = append(defs, def)
		logger.Debug("resource_loaded", map[string]any{
			"file":      path,
			"table":     def.Table,
			"fields":    len(def.Fields),
			"relations": len(def.Relations),
		})
	}
	return defs, nil
}

// ParseDefinition validates the document's keys against the allowed schema
// before decoding it.
func ParseDefinition(name string, data []byte) (*Definition, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("YAML parse error: %w", err)
	}
	// root is the document node, Content[0] the top-level mapping
	if len(root.Content) == 0 {
		return nil, fmt.Errorf("empty YAML")
	}
	if err := validateYAMLNode(root.Content[0], ctxResource); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	var def Definition
	if err := root.Decode(&def); err != nil {
		return nil, fmt.Errorf("unmarshal error: %w", err)
	}
	def.Name = name
	if def.Table == "" {
		def.Table = name
	}
	return &def, nil
}
