package request

import (
	"net/http"
	"net/url"
	"testing"

	"ResteasyAPI/internal/apierr"
	"ResteasyAPI/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry(t *testing.T, convention string) *model.Registry {
	t.Helper()
	defs := []*model.Definition{
		{
			Name:  "product",
			Table: "product",
			Fields: map[string]string{
				"id": "int", "sku": "string", "price": "float", "description": "string",
				"product_category_id": "int", "_cost": "float",
			},
			Relations: map[string]*model.RelationDef{
				"product_category": {Type: "belongs_to"},
				"order_items":      {Type: "has_many", Model: "order_item"},
			},
			Excludes:   map[string][]string{"sort": {"description"}, "relationship": {"order_items"}},
			MaxPerPage: 50,
		},
		{
			Name:      "product_category",
			Table:     "product_category",
			Fields:    map[string]string{"id": "int", "name": "string", "secret_code": "string"},
			Relations: map[string]*model.RelationDef{"products": {Type: "has_many"}},
			Excludes:  map[string][]string{"filter": {"secret_code"}},
		},
		{
			Name:      "order_item",
			Table:     "order_item",
			Fields:    map[string]string{"id": "int", "product_id": "int"},
			Relations: map[string]*model.RelationDef{"product": {Type: "belongs_to"}},
		},
	}
	reg, err := model.Build(defs, model.ConfigOptions{DefaultConvention: convention, MaxPerPage: 100})
	require.NoError(t, err)
	return reg
}

func parse(t *testing.T, reg *model.Registry, method, resource string, route map[string]string, query string, body string) (*Descriptor, error) {
	t.Helper()
	cfg, ok := reg.Get(resource)
	require.True(t, ok)
	p, err := NewParser(method, reg, Options{DefaultPerPage: 20})
	require.NoError(t, err)
	q, err := url.ParseQuery(query)
	require.NoError(t, err)
	return p.Parse(cfg, Input{Route: route, Query: q, Body: []byte(body)})
}

func requireStatus(t *testing.T, err error, status int) {
	t.Helper()
	require.Error(t, err)
	u, ok := apierr.As(err)
	require.True(t, ok, "expected UnableToProcess, got %v", err)
	assert.Equal(t, status, u.StatusCode(), u.Error())
}

func TestParseGetFull(t *testing.T) {
	reg := testRegistry(t, "jsonapi")
	d, err := parse(t, reg, http.MethodGet, "products", nil,
		"filter=sku:BEET,price:2.5&sort=-price,sku&include=product_category&page=2&per_page=10", "")
	require.NoError(t, err)

	assert.Equal(t, []model.Filter{{Field: "sku", Value: "BEET"}, {Field: "price", Value: 2.5}}, d.Filters)
	assert.Equal(t, []model.Sort{{Field: "price", Desc: true}, {Field: "sku"}}, d.Sorts)
	assert.Equal(t, []string{"product_category"}, d.Includes)
	assert.Equal(t, 2, d.Page)
	assert.Equal(t, 10, d.PerPage)
	assert.True(t, d.Paginate)
	assert.Empty(t, d.Idents)
}

func TestParseIdents(t *testing.T) {
	reg := testRegistry(t, "jsonapi")
	d, err := parse(t, reg, http.MethodGet, "product", map[string]string{"ident": "1, 2"}, "", "")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, d.Idents)
	assert.False(t, d.Paginate)
	assert.Equal(t, 1, d.Page)
	assert.Equal(t, 20, d.PerPage)

	_, err = parse(t, reg, http.MethodGet, "product", map[string]string{"ident": "1,abc"}, "", "")
	requireStatus(t, err, http.StatusBadRequest)
}

func TestParseLink(t *testing.T) {
	reg := testRegistry(t, "jsonapi")
	d, err := parse(t, reg, http.MethodGet, "products",
		map[string]string{"ident": "1", "link": "product_category"}, "filter=name:Veg&sort=-name", "")
	require.NoError(t, err)
	assert.Equal(t, "product_category", d.Link)
	assert.Equal(t, "product_category", d.Target.Name())
	assert.Equal(t, []model.Filter{{Field: "name", Value: "Veg"}}, d.Filters)

	_, err = parse(t, reg, http.MethodGet, "products", map[string]string{"ident": "1", "link": "supplier"}, "", "")
	requireStatus(t, err, http.StatusNotFound)

	_, err = parse(t, reg, http.MethodGet, "products", map[string]string{"ident": "1", "link": "order_items"}, "", "")
	requireStatus(t, err, http.StatusForbidden)

	_, err = parse(t, reg, http.MethodGet, "products", map[string]string{"link": "product_category"}, "", "")
	requireStatus(t, err, http.StatusBadRequest)

	// filters resolve against the link target
	_, err = parse(t, reg, http.MethodGet, "products",
		map[string]string{"ident": "1", "link": "product_category"}, "filter=sku:BEET", "")
	requireStatus(t, err, http.StatusNotFound)
}

func TestParseEmberNames(t *testing.T) {
	reg := testRegistry(t, "ember")
	d, err := parse(t, reg, http.MethodGet, "products",
		map[string]string{"ident": "3", "link": "productCategory"}, "", "")
	require.NoError(t, err)
	assert.Equal(t, "product_category", d.Link)
}

func TestParseQueryErrors(t *testing.T) {
	reg := testRegistry(t, "jsonapi")
	cases := []struct {
		query  string
		status int
	}{
		{"filter=sku", http.StatusBadRequest},
		{"filter=sku:a:b", http.StatusBadRequest},
		{"filter=colour:red", http.StatusNotFound},
		{"filter=_cost:1", http.StatusForbidden},
		{"filter=price:cheap", http.StatusBadRequest},
		{"sort=-colour", http.StatusNotFound},
		{"sort=description", http.StatusForbidden},
		{"include=supplier", http.StatusNotFound},
		{"include=order_items", http.StatusForbidden},
		{"page=0", http.StatusBadRequest},
		{"per_page=ten", http.StatusBadRequest},
	}
	for _, tc := range cases {
		_, err := parse(t, reg, http.MethodGet, "products", nil, tc.query, "")
		requireStatus(t, err, tc.status)
	}

	_, err := parse(t, reg, http.MethodGet, "product_categories", nil, "filter=secret_code:x", "")
	requireStatus(t, err, http.StatusForbidden)
}

func TestParsePerPageClamp(t *testing.T) {
	reg := testRegistry(t, "jsonapi")
	d, err := parse(t, reg, http.MethodGet, "products", nil, "per_page=500", "")
	require.NoError(t, err)
	assert.Equal(t, 50, d.PerPage)
	assert.True(t, d.Paginate)
}

func TestParseFilterNull(t *testing.T) {
	reg := testRegistry(t, "jsonapi")
	d, err := parse(t, reg, http.MethodGet, "products", nil, "filter=sku:null", "")
	require.NoError(t, err)
	assert.Equal(t, []model.Filter{{Field: "sku", Value: nil}}, d.Filters)
}

func TestParseWrites(t *testing.T) {
	reg := testRegistry(t, "jsonapi")

	d, err := parse(t, reg, http.MethodPost, "products", nil, "", `{"product": {"sku": "BEET", "price": 1}, "action": "import"}`)
	require.NoError(t, err)
	assert.Equal(t, "import", d.Action)
	assert.Contains(t, d.Payload, "product")

	_, err = parse(t, reg, http.MethodPost, "products", nil, "", `[1, 2]`)
	requireStatus(t, err, http.StatusBadRequest)

	_, err = parse(t, reg, http.MethodPost, "products", nil, "", ``)
	requireStatus(t, err, http.StatusBadRequest)

	_, err = parse(t, reg, http.MethodPut, "products", nil, "", `{"product": {}}`)
	requireStatus(t, err, http.StatusBadRequest)

	d, err = parse(t, reg, http.MethodDelete, "products", map[string]string{"ident": "4,5"}, "", "")
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 5}, d.Idents)
}

func TestNewParserRejectsUnknownMethod(t *testing.T) {
	_, err := NewParser(http.MethodPatch, nil, Options{})
	requireStatus(t, err, http.StatusMethodNotAllowed)
}
