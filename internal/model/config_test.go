package model

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func productDefinition() *Definition {
	return &Definition{
		Name:  "product",
		Table: "product",
		Fields: map[string]string{
			"id":                  "int",
			"sku":                 "string",
			"name":                "string",
			"description":         "string",
			"_secret":             "string",
			"product_category_id": "int",
			"created_at":          "datetime",
		},
		Relations: map[string]*RelationDef{
			"product_category": {Type: "belongs_to"},
			"order_items":      {Type: "has_many", Model: "order_item"},
		},
		Excludes: map[string][]string{
			"sort":    {"description"},
			"include": {"order_items"},
			"all":     {"name"},
		},
	}
}

func mustConfig(t *testing.T, def *Definition, opts ConfigOptions) *Config {
	t.Helper()
	cfg, err := NewConfig(def, opts)
	if err != nil {
		t.Fatalf("NewConfig(%s): %v", def.Name, err)
	}
	return cfg
}

func TestConfigAllowedSets(t *testing.T) {
	cfg := mustConfig(t, productDefinition(), ConfigOptions{})

	cases := []struct {
		name string
		got  Set
		want []string
	}{
		{"private", cfg.PrivateFields(), []string{"_secret"}},
		{"shadow", cfg.RelationshipFields(), []string{"product_category_id"}},
		{"from_model", cfg.AllowedFromModel(), []string{"created_at", "description", "id", "sku"}},
		{"to_model", cfg.AllowedToModel(), []string{"created_at", "description", "sku"}},
		{"sort", cfg.AllowedToSort(), []string{"created_at", "id", "sku"}},
		{"filter", cfg.AllowedToFilter(), []string{"created_at", "description", "id", "sku"}},
		{"relationship", cfg.AllowedRelationships(), []string{"order_items", "product_category"}},
		{"include", cfg.AllowedToInclude(), []string{"product_category"}},
	}
	for _, tc := range cases {
		if diff := cmp.Diff(tc.want, tc.got.Sorted()); diff != "" {
			t.Fatalf("%s mismatch (-want +got):\n%s", tc.name, diff)
		}
	}
}

func TestConfigAllowedSetsNeverContainExclusions(t *testing.T) {
	cfg := mustConfig(t, productDefinition(), ConfigOptions{
		GlobalExcludes: map[string][]string{"filter": {"sku"}, "all": {"created_at"}},
	})
	for _, check := range allowedChecks(cfg) {
		if extra := check.allowed.Minus(check.raw); len(extra) > 0 {
			t.Fatalf("%s allows undeclared %v", check.key, extra.Sorted())
		}
		for _, key := range []string{check.key, ExcludeAll} {
			for name := range cfg.Exclusions(key) {
				if check.allowed.Has(name) {
					t.Fatalf("%s allows %q excluded by %s", check.key, name, key)
				}
			}
		}
	}
	if cfg.AllowedToFilter().Has("sku") {
		t.Fatalf("global filter exclusion not merged")
	}
}

func TestConfigNames(t *testing.T) {
	def := &Definition{
		Name:      "product_category",
		Table:     "product_category",
		Fields:    map[string]string{"id": "int", "name": "string", "line1": "string"},
		Relations: map[string]*RelationDef{"products": {Type: "has_many"}},
	}

	jsonapi := mustConfig(t, def, ConfigOptions{})
	if jsonapi.Name() != "product_category" || jsonapi.PluralName() != "product_categories" {
		t.Fatalf("names = %q/%q", jsonapi.Name(), jsonapi.PluralName())
	}
	if jsonapi.ResourceNamePlural() != "product_categories" || !jsonapi.UseLinkNodes() {
		t.Fatalf("jsonapi naming wrong: %q", jsonapi.ResourceNamePlural())
	}

	ember := mustConfig(t, def, ConfigOptions{DefaultConvention: "ember"})
	if ember.ResourceName() != "productCategory" || ember.ResourceNamePlural() != "productCategories" {
		t.Fatalf("ember naming wrong: %q/%q", ember.ResourceName(), ember.ResourceNamePlural())
	}
	if ember.UseLinkNodes() {
		t.Fatalf("ember must not use link nodes")
	}
	if got := ember.ToModel(ember.JSONCase("line1")); got != "line1" {
		t.Fatalf("ToModel round trip = %q", got)
	}
	if got := ember.ToModel("productCategoryId"); got != "product_category_id" {
		t.Fatalf("ToModel fallback = %q", got)
	}
	rel, ok := ember.Relation("products")
	if !ok || rel.FK != "product_category_id" || rel.Target != "product" || !rel.ToMany() {
		t.Fatalf("has_many defaults wrong: %+v", rel)
	}
}

func TestConfigMethodsAndPaging(t *testing.T) {
	def := productDefinition()
	def.Methods = []string{"post", "GET", "get"}
	def.MaxPerPage = 10

	cfg := mustConfig(t, def, ConfigOptions{DefaultMethods: []string{"GET"}, MaxPerPage: 50})
	if diff := cmp.Diff([]string{"GET", "POST"}, cfg.Methods()); diff != "" {
		t.Fatalf("methods mismatch (-want +got):\n%s", diff)
	}
	if cfg.AllowsMethod("DELETE") {
		t.Fatalf("DELETE must not be allowed")
	}
	if cfg.MaxPerPage() != 10 {
		t.Fatalf("MaxPerPage = %d, want 10", cfg.MaxPerPage())
	}

	def.Methods = nil
	def.MaxPerPage = 500
	cfg = mustConfig(t, def, ConfigOptions{DefaultMethods: []string{"GET"}, MaxPerPage: 50})
	if diff := cmp.Diff([]string{"GET"}, cfg.Methods()); diff != "" {
		t.Fatalf("default methods mismatch (-want +got):\n%s", diff)
	}
	if cfg.MaxPerPage() != 50 {
		t.Fatalf("MaxPerPage = %d, want global 50", cfg.MaxPerPage())
	}
}

func TestNewConfigErrors(t *testing.T) {
	cases := map[string]*Definition{
		"no table": {Name: "x", Fields: map[string]string{"id": "int"}},
		"no id":    {Name: "x", Table: "x", Fields: map[string]string{"name": "string"}},
		"bad type": {Name: "x", Table: "x", Fields: map[string]string{"id": "money"}},
		"bad relation": {Name: "x", Table: "x", Fields: map[string]string{"id": "int"},
			Relations: map[string]*RelationDef{"y": {Type: "has_few"}}},
		"m2m without through": {Name: "x", Table: "x", Fields: map[string]string{"id": "int"},
			Relations: map[string]*RelationDef{"tags": {Type: "many_to_many"}}},
		"bad exclusion key": {Name: "x", Table: "x", Fields: map[string]string{"id": "int"},
			Excludes: map[string][]string{"everything": {"id"}}},
		"bad method": {Name: "x", Table: "x", Fields: map[string]string{"id": "int"},
			Methods: []string{"PATCH"}},
		"relation shadows field": {Name: "x", Table: "x", Fields: map[string]string{"id": "int", "owner": "string"},
			Relations: map[string]*RelationDef{"owner": {Type: "belongs_to"}}},
	}
	for name, def := range cases {
		if _, err := NewConfig(def, ConfigOptions{}); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
