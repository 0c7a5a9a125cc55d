package model

import (
	"fmt"
	"strings"

	"github.com/iancoleman/strcase"
	"github.com/jinzhu/inflection"
)

// Convention selects the JSON wire shape of a resource.
type Convention interface {
	Name() string
	// UseLinkNodes nests relationship references under "links" and side-loaded
	// records under "linked"; otherwise both are flattened.
	UseLinkNodes() bool
	// JSONCase converts a model field name into a JSON key.
	JSONCase(s string) string
	// ResourceNameCase converts a model resource name into its JSON/URL form.
	ResourceNameCase(s string) string
}

// JSONAPI renders nested links/linked nodes with snake_case keys.
type JSONAPI struct{}

func (JSONAPI) Name() string                     { return "jsonapi" }
func (JSONAPI) UseLinkNodes() bool               { return true }
func (JSONAPI) JSONCase(s string) string         { return ModelCase(s) }
func (JSONAPI) ResourceNameCase(s string) string { return ModelCase(s) }

// Ember renders a flat document with lowerCamelCase keys.
type Ember struct{}

func (Ember) Name() string                     { return "ember" }
func (Ember) UseLinkNodes() bool               { return false }
func (Ember) JSONCase(s string) string         { return strcase.ToLowerCamel(s) }
func (Ember) ResourceNameCase(s string) string { return strcase.ToLowerCamel(s) }

// ConventionByName resolves a convention from its configured name.
func ConventionByName(name string) (Convention, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "jsonapi", "json-api", "json_api":
		return JSONAPI{}, nil
	case "ember":
		return Ember{}, nil
	default:
		return nil, fmt.Errorf("unknown convention %q (allowed: jsonapi, ember)", name)
	}
}

// ModelCase converts any inbound JSON key or URL name into the model's
// snake_case naming.
func ModelCase(s string) string {
	// already snake: leave digits and leading underscores alone
	if strings.ToLower(s) == s {
		return s
	}
	return strcase.ToSnake(s)
}

// Singular and Plural operate on model-case names.
func Singular(s string) string {
	return inflection.Singular(s)
}

func Plural(s string) string {
	return inflection.Plural(s)
}
