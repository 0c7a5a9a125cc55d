package model

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// validation contexts
const (
	ctxResource     = "resource"
	ctxRelationsMap = "relations-map"
	ctxRelation     = "relation"
	ctxFieldsMap    = "fields-map"
	ctxExcludesMap  = "excludes-map"
	ctxFree         = ""
)

var allowedResourceKeys = map[string]bool{
	"table":        true,
	"convention":   true,
	"methods":      true,
	"max_per_page": true,
	"group":        true,
	"fields":       true,
	"relations":    true,
	"excludes":     true,
}

var allowedRelationKeys = map[string]bool{
	"type":       true,
	"model":      true,
	"fk":         true,
	"through":    true,
	"owner_fk":   true,
	"related_fk": true,
}

var allowedRelationTypes = map[string]bool{
	string(BelongsTo):  true,
	string(HasOne):     true,
	string(HasMany):    true,
	string(ManyToMany): true,
}

func validateYAMLNode(node *yaml.Node, context string) error {
	switch node.Kind {
	case yaml.DocumentNode:
		for _, child := range node.Content {
			if err := validateYAMLNode(child, ctxResource); err != nil {
				return err
			}
		}

	case yaml.MappingNode:
		var allowedKeys map[string]bool
		switch context {
		case ctxResource:
			allowedKeys = allowedResourceKeys
		case ctxRelation:
			allowedKeys = allowedRelationKeys
		case ctxExcludesMap:
			allowedKeys = exclusionKeys
		}

		for i := 0; i+1 < len(node.Content); i += 2 {
			keyNode := node.Content[i]
			valNode := node.Content[i+1]
			key := keyNode.Value

			if allowedKeys != nil && !allowedKeys[key] {
				return fmt.Errorf("unknown key '%s' in %s (line %d)", key, context, keyNode.Line)
			}

			switch {
			case context == ctxRelation && key == "type":
				if !allowedRelationTypes[valNode.Value] {
					return fmt.Errorf("unknown relation type '%s' (line %d)", valNode.Value, valNode.Line)
				}
			case context == ctxFieldsMap:
				if valNode.Kind != yaml.ScalarNode || !validFieldType(FieldType(valNode.Value)) {
					return fmt.Errorf("unknown type '%s' for field '%s' (line %d)", valNode.Value, key, valNode.Line)
				}
			}

			next := ctxFree
			switch {
			case context == ctxResource && key == "relations":
				next = ctxRelationsMap
			case context == ctxRelationsMap:
				next = ctxRelation
			case context == ctxResource && key == "fields":
				next = ctxFieldsMap
			case context == ctxResource && key == "excludes":
				next = ctxExcludesMap
			}

			if err := validateYAMLNode(valNode, next); err != nil {
				return err
			}
		}

	case yaml.SequenceNode:
		for _, item := range node.Content {
			if err := validateYAMLNode(item, context); err != nil {
				return err
			}
		}

	case yaml.ScalarNode:
		// keys were already checked on the parent mapping
	}

	return nil
}
