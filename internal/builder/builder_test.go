package builder

import (
	"testing"
	"time"

	"ResteasyAPI/internal/model"
	"ResteasyAPI/internal/pager"
	"ResteasyAPI/internal/processor"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func registry(t *testing.T) *model.Registry {
	t.Helper()
	reg, err := model.Build([]*model.Definition{
		{
			Name:  "product",
			Table: "product",
			Fields: map[string]string{
				"id": "int", "sku": "string", "created_at": "datetime", "in_stock": "bool",
				"product_category_id": "int", "_cost": "float",
			},
			Relations: map[string]*model.RelationDef{
				"product_category": {Type: "belongs_to"},
			},
		},
		{
			Name:      "product_category",
			Table:     "product_category",
			Fields:    map[string]string{"id": "int", "name": "string"},
			Relations: map[string]*model.RelationDef{"products": {Type: "has_many"}},
		},
		{
			Name:       "order",
			Table:      "order",
			Convention: "ember",
			Fields:     map[string]string{"id": "int", "placed_on": "date", "client_id": "int"},
			Relations: map[string]*model.RelationDef{
				"client":      {Type: "belongs_to"},
				"order_items": {Type: "has_many", Model: "order_item"},
			},
		},
		{
			Name:       "order_item",
			Table:      "order_item",
			Convention: "ember",
			Fields:     map[string]string{"id": "int", "order_id": "int", "unit_price": "float"},
		},
		{
			Name:      "client",
			Table:     "client",
			Fields:    map[string]string{"id": "int"},
			Relations: map[string]*model.RelationDef{"orders": {Type: "has_many", Model: "order"}},
		},
	}, model.ConfigOptions{})
	require.NoError(t, err)
	return reg
}

func cfg(t *testing.T, reg *model.Registry, name string) *model.Config {
	c, ok := reg.Get(name)
	require.True(t, ok, name)
	return c
}

func product(id int64, sku string, category any) *model.Record {
	rec := model.NewRecord(map[string]any{
		"id": id, "sku": sku, "created_at": time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC),
		"in_stock": int64(1), "product_category_id": category, "_cost": 0.1,
	})
	rec.Links["product_category"] = category
	return rec
}

func diff(t *testing.T, want, got any) {
	t.Helper()
	if d := cmp.Diff(want, got); d != "" {
		t.Fatalf("document mismatch (-want +got):\n%s", d)
	}
}

func TestBuildSingleJSONAPI(t *testing.T) {
	reg := registry(t)
	p := cfg(t, reg, "product")
	doc := Build(&processor.Result{Config: p, Owner: p, Records: []*model.Record{product(1, "APPL", int64(2))}})

	diff(t, Document{
		"product": map[string]any{
			"id":         int64(1),
			"sku":        "APPL",
			"created_at": "2024-01-02T10:00:00Z",
			"in_stock":   true,
			"links":      map[string]any{"product_category": int64(2)},
		},
	}, doc)
}

func TestBuildListWithLinkedAndMeta(t *testing.T) {
	reg := registry(t)
	p := cfg(t, reg, "product")
	pc := cfg(t, reg, "product_category")

	cat := model.NewRecord(map[string]any{"id": int64(2), "name": "Vegetables"})
	cat.Links["products"] = []int64{1, 2}
	pg := pager.New(1, 2, true)
	pg.Pages = 3

	doc := Build(&processor.Result{
		Config:  p,
		Owner:   p,
		AsList:  true,
		Records: []*model.Record{product(1, "APPL", int64(2)), product(2, "BEET", nil)},
		Linked: []processor.LinkedSet{
			{Relation: "product_category", Config: pc, Records: []*model.Record{cat}},
			{Relation: "product_category", Config: pc, Records: []*model.Record{cat}},
		},
		Pager: pg,
	})

	products := doc["products"].([]map[string]any)
	require.Len(t, products, 2)
	diff(t, map[string]any{"product_category": nil}, products[1]["links"])

	diff(t, map[string]any{
		"product_categories": []map[string]any{{
			"id":    int64(2),
			"name":  "Vegetables",
			"links": map[string]any{"products": []int64{1, 2}},
		}},
	}, doc["linked"])
	diff(t, map[string]any{"page": 1, "per_page": 2, "no_pages": 3}, doc["meta"])
}

func TestBuildEmberFlattens(t *testing.T) {
	reg := registry(t)
	o := cfg(t, reg, "order")
	oi := cfg(t, reg, "order_item")

	order := model.NewRecord(map[string]any{"id": int64(7), "placed_on": time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), "client_id": int64(3)})
	order.Links["client"] = int64(3)
	order.Links["order_items"] = []int64{11}
	item := model.NewRecord(map[string]any{"id": int64(11), "order_id": int64(7), "unit_price": int64(4)})

	doc := Build(&processor.Result{
		Config:  o,
		Owner:   o,
		Records: []*model.Record{order},
		Linked:  []processor.LinkedSet{{Relation: "order_items", Config: oi, Records: []*model.Record{item}}},
	})

	diff(t, Document{
		"order": map[string]any{
			"id":         int64(7),
			"placedOn":   "2024-02-01",
			"client":     int64(3),
			"orderItems": []int64{11},
		},
		"orderItems": []map[string]any{{"id": int64(11), "unitPrice": 4.0}},
	}, doc)
}

func TestBuildLinkRootKey(t *testing.T) {
	reg := registry(t)
	p := cfg(t, reg, "product")
	pc := cfg(t, reg, "product_category")
	rel, _ := p.Relation("product_category")

	doc := Build(&processor.Result{Config: pc, Owner: p, Link: "product_category", Relation: rel})
	diff(t, Document{"product_category": nil}, doc)

	doc = Build(&processor.Result{Config: pc, Owner: p, Link: "product_category", Relation: rel, AsList: true})
	diff(t, Document{"product_categories": []map[string]any{}}, doc)

	c := cfg(t, reg, "client")
	orders, _ := c.Relation("orders")
	doc = Build(&processor.Result{Config: cfg(t, reg, "order"), Owner: c, Link: "orders", Relation: orders, AsList: true})
	diff(t, Document{"orders": []map[string]any{}}, doc)
}

func TestBuildFollowsAddressedConvention(t *testing.T) {
	reg := registry(t)
	o := cfg(t, reg, "order")
	oi := cfg(t, reg, "order_item")
	c := cfg(t, reg, "client")

	order := model.NewRecord(map[string]any{"id": int64(7), "placed_on": time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), "client_id": int64(3)})
	order.Links["client"] = int64(3)
	order.Links["order_items"] = []int64{11}
	client := model.NewRecord(map[string]any{"id": int64(3)})
	client.Links["orders"] = []int64{7}

	// ember order -> jsonapi client, orders included
	toClient, _ := o.Relation("client")
	doc := Build(&processor.Result{
		Config: c, Owner: o, Link: "client", Relation: toClient,
		Records: []*model.Record{client},
		Linked:  []processor.LinkedSet{{Relation: "orders", Config: o, Records: []*model.Record{order}}},
	})
	diff(t, Document{
		"client": map[string]any{"id": int64(3), "orders": []int64{7}},
		"orders": []map[string]any{{
			"id":         int64(7),
			"placedOn":   "2024-02-01",
			"client":     int64(3),
			"orderItems": []int64{11},
		}},
	}, doc)

	// jsonapi client -> ember orders, order items included
	toOrders, _ := c.Relation("orders")
	item := model.NewRecord(map[string]any{"id": int64(11), "order_id": int64(7), "unit_price": int64(4)})
	doc = Build(&processor.Result{
		Config: o, Owner: c, Link: "orders", Relation: toOrders, AsList: true,
		Records: []*model.Record{order},
		Linked:  []processor.LinkedSet{{Relation: "order_items", Config: oi, Records: []*model.Record{item}}},
	})
	diff(t, Document{
		"orders": []map[string]any{{
			"id":        int64(7),
			"placed_on": "2024-02-01",
			"links":     map[string]any{"client": int64(3), "order_items": []int64{11}},
		}},
		"linked": map[string]any{
			"order_items": []map[string]any{{"id": int64(11), "unit_price": 4.0}},
		},
	}, doc)
}

func TestURLs(t *testing.T) {
	reg := registry(t)
	pc := cfg(t, reg, "product_category")
	res := &processor.Result{Config: pc, Records: []*model.Record{
		model.NewRecord(map[string]any{"id": int64(4)}),
		model.NewRecord(map[string]any{"id": int64(5)}),
	}}
	diff(t, []string{"/api/product_categories/4", "/api/product_categories/5"}, URLs("/api/", res))
	diff(t, []string{"/product_categories/4", "/product_categories/5"}, URLs("", res))
}

func TestConvert(t *testing.T) {
	cases := []struct {
		ft   model.FieldType
		in   any
		want any
	}{
		{model.TypeBool, int64(0), false},
		{model.TypeFloat, int64(3), 3.0},
		{model.TypeString, []byte("raw"), "raw"},
		{model.TypeTime, "09:30:00", "09:30:00"},
		{model.TypeUUID, [16]byte{0x0f, 0x8f, 0xad, 0x5b, 0xd9, 0xcb, 0x46, 0x9f, 0xa1, 0x65, 0x70, 0x86, 0x77, 0x28, 0x95, 0x0e}, "0f8fad5b-d9cb-469f-a165-70867728950e"},
		{model.TypeBinary, []byte("hi"), "aGk="},
		{model.TypeDatetime, nil, nil},
	}
	for _, tc := range cases {
		diff(t, tc.want, Convert(tc.ft, tc.in))
	}
}
