package processor

import (
	"ResteasyAPI/internal/model"
	"ResteasyAPI/internal/pager"
)

// Result is what a processor hands to the builder.
type Result struct {
	// Config renders Records; Owner is the addressed resource, which differs
	// from Config when a relationship was traversed.
	Config  *model.Config
	Owner   *model.Config
	Records []*model.Record
	AsList  bool

	Link     string
	Relation *model.Relation

	// Linked holds side-loaded records per included relationship, in
	// request order.
	Linked []LinkedSet

	Pager *pager.Pager
}

// LinkedSet is the side-loaded records of one relationship of Config.
type LinkedSet struct {
	Relation string
	Config   *model.Config
	Records  []*model.Record
}
