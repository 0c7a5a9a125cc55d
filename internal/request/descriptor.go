package request

import (
	"ResteasyAPI/internal/model"
)

// Descriptor is the structured form of one API request.
type Descriptor struct {
	Method string
	// Config is the addressed resource; Target is the resource filters,
	// sorts and includes resolve against (the link target when traversing).
	Config *model.Config
	Target *model.Config

	Idents []int64
	// Link is the model-case relationship being traversed, Relation its
	// definition.
	Link     string
	Relation *model.Relation

	Filters  []model.Filter
	Sorts    []model.Sort
	Includes []string

	Page     int
	PerPage  int
	Paginate bool // page or per_page was given

	// Payload is the decoded JSON body of writes, Action its "action" key.
	Payload map[string]any
	Action  string
}

// Query returns the filter/sort part of the descriptor.
func (d *Descriptor) Query() model.Query {
	return model.Query{Filters: d.Filters, Sorts: d.Sorts}
}

// HasIdents reports whether identifiers were given in the route.
func (d *Descriptor) HasIdents() bool { return len(d.Idents) > 0 }
