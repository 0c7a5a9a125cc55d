package model

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
)

// Config is the immutable per-resource metadata derived from a Definition.
// The allowed sets are computed from the raw metadata on first access and
// cached.
type Config struct {
	def        *Definition
	conv       Convention
	name       string // model-case singular, registry key
	plural     string
	table      string
	fieldTypes map[string]FieldType
	relations  map[string]*Relation
	excludes   map[string]Set
	methods    []string
	maxPerPage int
	group      string

	once    sync.Once
	derived derivedSets
	// JSON key -> model name, for inbound keys of non-snake conventions
	reverse map[string]string
}

type derivedSets struct {
	allFields            Set
	relationships        Set
	privateFields        Set
	relationshipFields   Set
	allowedFromModel     Set
	allowedToModel       Set
	allowedRelationships Set
	allowedToSort        Set
	allowedToFilter      Set
	allowedToInclude     Set
}

// ConfigOptions carries registry-wide defaults merged into every resource.
type ConfigOptions struct {
	DefaultConvention string
	DefaultMethods    []string
	MaxPerPage        int
	GlobalExcludes    map[string][]string
}

var knownMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodDelete: true,
}

// NewConfig validates def and builds its Config. Relationships are defaulted
// here but their targets are checked by the registry.
func NewConfig(def *Definition, opts ConfigOptions) (*Config, error) {
	if strings.TrimSpace(def.Table) == "" {
		return nil, fmt.Errorf("resource %q: table is required", def.Name)
	}

	convName := def.Convention
	if convName == "" {
		convName = opts.DefaultConvention
	}
	conv, err := ConventionByName(convName)
	if err != nil {
		return nil, fmt.Errorf("resource %q: %w", def.Name, err)
	}

	name := Singular(ModelCase(strings.ToLower(def.Table)))
	c := &Config{
		def:        def,
		conv:       conv,
		name:       name,
		plural:     Plural(name),
		table:      def.Table,
		fieldTypes: make(map[string]FieldType, len(def.Fields)),
		relations:  make(map[string]*Relation, len(def.Relations)),
		excludes:   make(map[string]Set),
		maxPerPage: opts.MaxPerPage,
		group:      strings.Trim(def.Group, "/"),
	}

	for field, typ := range def.Fields {
		ft := FieldType(strings.ToLower(strings.TrimSpace(typ)))
		if !validFieldType(ft) {
			return nil, fmt.Errorf("resource %q: field %q has unknown type %q", def.Name, field, typ)
		}
		c.fieldTypes[field] = ft
	}
	if _, ok := c.fieldTypes[IDField]; !ok {
		return nil, fmt.Errorf("resource %q: field %q is required", def.Name, IDField)
	}

	for relName, rd := range def.Relations {
		rel, err := newRelation(name, relName, rd)
		if err != nil {
			return nil, fmt.Errorf("resource %q: %w", def.Name, err)
		}
		if _, clash := c.fieldTypes[relName]; clash {
			return nil, fmt.Errorf("resource %q: relation %q shadows a field", def.Name, relName)
		}
		c.relations[relName] = rel
	}

	for _, src := range []map[string][]string{opts.GlobalExcludes, def.Excludes} {
		for key, names := range src {
			if !exclusionKeys[key] {
				return nil, fmt.Errorf("resource %q: unknown exclusion key %q", def.Name, key)
			}
			if c.excludes[key] == nil {
				c.excludes[key] = NewSet()
			}
			c.excludes[key].Add(names...)
		}
	}

	methods := def.Methods
	if len(methods) == 0 {
		methods = opts.DefaultMethods
	}
	seen := map[string]bool{}
	for _, m := range methods {
		m = strings.ToUpper(strings.TrimSpace(m))
		if !knownMethods[m] {
			return nil, fmt.Errorf("resource %q: unsupported method %q", def.Name, m)
		}
		if !seen[m] {
			seen[m] = true
			c.methods = append(c.methods, m)
		}
	}
	sort.Strings(c.methods)

	if def.MaxPerPage > 0 && (c.maxPerPage <= 0 || def.MaxPerPage < c.maxPerPage) {
		c.maxPerPage = def.MaxPerPage
	}
	return c, nil
}

func newRelation(owner, name string, rd *RelationDef) (*Relation, error) {
	if rd == nil {
		return nil, fmt.Errorf("relation %q is empty", name)
	}
	rel := &Relation{
		Name:      name,
		Kind:      RelationKind(strings.ToLower(strings.TrimSpace(rd.Type))),
		Target:    rd.Model,
		FK:        rd.FK,
		Through:   rd.Through,
		OwnerFK:   rd.OwnerFK,
		RelatedFK: rd.RelatedFK,
	}
	if rel.Target == "" {
		rel.Target = Singular(name)
	}
	rel.Target = Singular(ModelCase(rel.Target))

	switch rel.Kind {
	case BelongsTo:
		if rel.FK == "" {
			rel.FK = name + RelationshipIDPostfix
		}
	case HasOne, HasMany:
		if rel.FK == "" {
			rel.FK = owner + RelationshipIDPostfix
		}
	case ManyToMany:
		if rel.Through == "" {
			return nil, fmt.Errorf("relation %q: many_to_many requires through", name)
		}
		if rel.OwnerFK == "" {
			rel.OwnerFK = owner + RelationshipIDPostfix
		}
		if rel.RelatedFK == "" {
			rel.RelatedFK = rel.Target + RelationshipIDPostfix
		}
	default:
		return nil, fmt.Errorf("relation %q must have valid type (belongs_to, has_one, has_many, many_to_many), got %q", name, rd.Type)
	}
	return rel, nil
}

func validFieldType(ft FieldType) bool {
	switch ft {
	case TypeInt, TypeFloat, TypeString, TypeBool, TypeDatetime, TypeDate, TypeTime, TypeUUID, TypeBinary:
		return true
	}
	return false
}

func (c *Config) derive() {
	c.once.Do(func() {
		d := derivedSets{
			allFields:          NewSet(),
			relationships:      NewSet(),
			privateFields:      NewSet(),
			relationshipFields: NewSet(),
		}
		for f := range c.fieldTypes {
			d.allFields.Add(f)
			if strings.HasPrefix(f, PrivateFieldPrefix) {
				d.privateFields.Add(f)
			}
			if strings.HasSuffix(f, RelationshipIDPostfix) {
				d.relationshipFields.Add(f)
			}
		}
		for name, rel := range c.relations {
			d.relationships.Add(name)
			if rel.Kind == BelongsTo && d.allFields.Has(rel.FK) {
				d.relationshipFields.Add(rel.FK)
			}
		}

		all := c.exclusion(ExcludeAll)
		d.allowedFromModel = d.allFields.Minus(d.privateFields, d.relationshipFields,
			c.exclusion(ExcludeFromModel), all)
		d.allowedToModel = d.allFields.Minus(d.privateFields, d.relationshipFields,
			NewSet(IDField), c.exclusion(ExcludeToModel), all)
		d.allowedRelationships = d.relationships.Minus(c.exclusion(ExcludeRelationship), all)
		d.allowedToSort = d.allowedFromModel.Minus(c.exclusion(ExcludeSort), all)
		d.allowedToFilter = d.allowedFromModel.Minus(c.exclusion(ExcludeFilter), all)
		d.allowedToInclude = d.allowedRelationships.Minus(c.exclusion(ExcludeInclude), all)
		c.derived = d

		c.reverse = make(map[string]string, len(d.allFields)+len(d.relationships))
		for _, n := range d.allFields.Union(d.relationships).Sorted() {
			c.reverse[c.conv.JSONCase(n)] = n
		}
	})
}

func (c *Config) exclusion(key string) Set {
	if s, ok := c.excludes[key]; ok {
		return s
	}
	return NewSet()
}

// Exclusions returns the configured names for an exclusion key (global
// exclusions included).
func (c *Config) Exclusions(key string) Set { return c.exclusion(key).Union() }

func (c *Config) Definition() *Definition { return c.def }
func (c *Config) Convention() Convention  { return c.conv }
func (c *Config) Name() string            { return c.name }
func (c *Config) PluralName() string      { return c.plural }
func (c *Config) Table() string           { return c.table }
func (c *Config) Methods() []string       { return append([]string(nil), c.methods...) }
func (c *Config) MaxPerPage() int         { return c.maxPerPage }
func (c *Config) Group() string           { return c.group }
func (c *Config) UseLinkNodes() bool      { return c.conv.UseLinkNodes() }

// ResourceName is the convention-cased singular name ("product_category" or
// "productCategory").
func (c *Config) ResourceName() string { return c.conv.ResourceNameCase(c.name) }

func (c *Config) ResourceNamePlural() string { return c.conv.ResourceNameCase(c.plural) }

// EndpointName identifies the resource's routes.
func (c *Config) EndpointName() string { return c.name + "_api" }

func (c *Config) AllowsMethod(method string) bool {
	for _, m := range c.methods {
		if m == method {
			return true
		}
	}
	return false
}

// JSONCase converts a model name into this resource's JSON key.
func (c *Config) JSONCase(s string) string { return c.conv.JSONCase(s) }

// ToModel converts an inbound JSON key (or URL segment) into a model name.
func (c *Config) ToModel(key string) string {
	c.derive()
	if n, ok := c.reverse[key]; ok {
		return n
	}
	return ModelCase(key)
}

func (c *Config) FieldType(field string) (FieldType, bool) {
	ft, ok := c.fieldTypes[field]
	return ft, ok
}

func (c *Config) Relation(name string) (*Relation, bool) {
	rel, ok := c.relations[name]
	return rel, ok
}

// Columns lists every declared column in lexical order.
func (c *Config) Columns() []string {
	c.derive()
	return c.derived.allFields.Sorted()
}

func (c *Config) AllFields() Set            { c.derive(); return c.derived.allFields }
func (c *Config) Relationships() Set        { c.derive(); return c.derived.relationships }
func (c *Config) PrivateFields() Set        { c.derive(); return c.derived.privateFields }
func (c *Config) RelationshipFields() Set   { c.derive(); return c.derived.relationshipFields }
func (c *Config) AllowedFromModel() Set     { c.derive(); return c.derived.allowedFromModel }
func (c *Config) AllowedToModel() Set       { c.derive(); return c.derived.allowedToModel }
func (c *Config) AllowedRelationships() Set { c.derive(); return c.derived.allowedRelationships }
func (c *Config) AllowedToSort() Set        { c.derive(); return c.derived.allowedToSort }
func (c *Config) AllowedToFilter() Set      { c.derive(); return c.derived.allowedToFilter }
func (c *Config) AllowedToInclude() Set     { c.derive(); return c.derived.allowedToInclude }
