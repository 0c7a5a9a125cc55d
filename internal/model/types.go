package model

// Definition describes one resource as declared in a YAML file.
type Definition struct {
	Name       string                  `yaml:"-"` // file base name, for messages
	Table      string                  `yaml:"table"`
	Convention string                  `yaml:"convention"`   // jsonapi | ember
	Methods    []string                `yaml:"methods"`      // GET, POST, PUT, DELETE
	MaxPerPage int                     `yaml:"max_per_page"` // clamps per_page
	Group      string                  `yaml:"group"`        // URL group prefix
	Fields     map[string]string       `yaml:"fields"`       // column -> type
	Relations  map[string]*RelationDef `yaml:"relations"`
	Excludes   map[string][]string     `yaml:"excludes"` // operation -> names
}

// RelationDef describes a relationship in the YAML file.
type RelationDef struct {
	Type      string `yaml:"type"`       // belongs_to, has_one, has_many, many_to_many
	Model     string `yaml:"model"`      // target resource name
	FK        string `yaml:"fk"`         // belongs_to: on this table; has_*: on the target
	Through   string `yaml:"through"`    // many_to_many join table
	OwnerFK   string `yaml:"owner_fk"`   // join column pointing at this resource
	RelatedFK string `yaml:"related_fk"` // join column pointing at the target
}

type RelationKind string

const (
	BelongsTo  RelationKind = "belongs_to"
	HasOne     RelationKind = "has_one"
	HasMany    RelationKind = "has_many"
	ManyToMany RelationKind = "many_to_many"
)

// Relation is a linked, defaulted relationship.
type Relation struct {
	Name      string
	Kind      RelationKind
	Target    string // model name of the target resource
	FK        string
	Through   string
	OwnerFK   string
	RelatedFK string
}

// ToMany reports whether the relationship renders as a list of ids.
func (r *Relation) ToMany() bool {
	return r.Kind == HasMany || r.Kind == ManyToMany
}

type FieldType string

const (
	TypeInt      FieldType = "int"
	TypeFloat    FieldType = "float"
	TypeString   FieldType = "string"
	TypeBool     FieldType = "bool"
	TypeDatetime FieldType = "datetime"
	TypeDate     FieldType = "date"
	TypeTime     FieldType = "time"
	TypeUUID     FieldType = "uuid"
	TypeBinary   FieldType = "binary"
)

// Exclusion keys.
const (
	ExcludeToModel      = "to_model"
	ExcludeFromModel    = "from_model"
	ExcludeRelationship = "relationship"
	ExcludeSort         = "sort"
	ExcludeFilter       = "filter"
	ExcludeInclude      = "include"
	ExcludeAll          = "all"
)

var exclusionKeys = map[string]bool{
	ExcludeToModel:      true,
	ExcludeFromModel:    true,
	ExcludeRelationship: true,
	ExcludeSort:         true,
	ExcludeFilter:       true,
	ExcludeInclude:      true,
	ExcludeAll:          true,
}

// Structural names shared by every resource.
const (
	IDField               = "id"
	IDRouteParam          = "ident"
	LinkRouteParam        = "link"
	LinksNode             = "links"
	LinkedNode            = "linked"
	MetaNode              = "meta"
	PrivateFieldPrefix    = "_"
	RelationshipIDPostfix = "_id"
)
