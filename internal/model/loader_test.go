package model

import (
	"strings"
	"testing"
)

func TestParseDefinition(t *testing.T) {
	src := `
table: product
convention: ember
methods: [GET, POST]
max_per_page: 25
group: shop
fields:
  id: int
  sku: string
  product_category_id: int
relations:
  product_category: { type: belongs_to, model: product_category }
  tags:
    type: many_to_many
    model: tag
    through: product_tags
excludes:
  sort: [sku]
`
	def, err := ParseDefinition("product", []byte(src))
	if err != nil {
		t.Fatalf("ParseDefinition: %v", err)
	}
	if def.Convention != "ember" || def.MaxPerPage != 25 || def.Group != "shop" || len(def.Methods) != 2 {
		t.Fatalf("scalars decoded wrong: %+v", def)
	}
	if def.Relations["tags"].Through != "product_tags" || def.Fields["sku"] != "string" {
		t.Fatalf("nested maps decoded wrong: %+v", def)
	}
	if def.Excludes["sort"][0] != "sku" {
		t.Fatalf("excludes decoded wrong: %+v", def.Excludes)
	}
}

func TestParseDefinitionTableDefaultsToFileName(t *testing.T) {
	def, err := ParseDefinition("client", []byte("fields:\n  id: int\n"))
	if err != nil {
		t.Fatalf("ParseDefinition: %v", err)
	}
	if def.Table != "client" {
		t.Fatalf("table = %q", def.Table)
	}
}

func TestParseDefinitionRejectsUnknownKeys(t *testing.T) {
	cases := map[string]string{
		"top level":     "table: x\npresets: {}\n",
		"relation key":  "table: x\nrelations:\n  y: { type: has_many, where: \"a = 1\" }\n",
		"relation type": "table: x\nrelations:\n  y: { type: has_few }\n",
		"field type":    "table: x\nfields:\n  id: money\n",
		"exclusion key": "table: x\nexcludes:\n  everything: [id]\n",
	}
	wants := map[string]string{
		"top level":     "unknown key 'presets'",
		"relation key":  "unknown key 'where'",
		"relation type": "unknown relation type 'has_few'",
		"field type":    "unknown type 'money'",
		"exclusion key": "unknown key 'everything'",
	}
	for name, src := range cases {
		_, err := ParseDefinition("x", []byte(src))
		if err == nil || !strings.Contains(err.Error(), wants[name]) {
			t.Fatalf("%s: err = %v, want %q", name, err, wants[name])
		}
	}
}

func TestParseDefinitionEmpty(t *testing.T) {
	if _, err := ParseDefinition("x", nil); err == nil {
		t.Fatalf("expected error for empty document")
	}
}
