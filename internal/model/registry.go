package model

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"ResteasyAPI/internal/logger"

	"github.com/hashicorp/go-multierror"
)

// Registry holds every resource Config, keyed by singular and plural
// model-case names. It is read-only once built.
type Registry struct {
	byName  map[string]*Config
	ordered []*Config
}

// Options configure Load.
type Options struct {
	ConfigOptions
	// Introspector completes definitions that omit their fields.
	Introspector ColumnIntrospector
}

// Load reads the definitions in dir and builds the registry.
func Load(ctx context.Context, dir string, opts Options) (*Registry, error) {
	defs, err := LoadDefinitions(dir)
	if err != nil {
		return nil, fmt.Errorf("load error: %w", err)
	}
	if opts.Introspector != nil {
		if err := introspectFields(ctx, opts.Introspector, defs); err != nil {
			return nil, fmt.Errorf("introspection error: %w", err)
		}
	}
	return Build(defs, opts.ConfigOptions)
}

// Build derives a Config per definition, links the relationships and
// validates the whole registry. Every problem found is reported.
func Build(defs []*Definition, opts ConfigOptions) (*Registry, error) {
	r := &Registry{byName: map[string]*Config{}}
	var errs *multierror.Error
	for _, def := range defs {
		cfg, err := NewConfig(def, opts)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		if prev, dup := r.byName[cfg.Name()]; dup {
			errs = multierror.Append(errs, fmt.Errorf("resource %q: duplicates table %q", def.Name, prev.Table()))
			continue
		}
		r.byName[cfg.Name()] = cfg
		r.byName[cfg.PluralName()] = cfg
		r.ordered = append(r.ordered, cfg)
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	sort.Slice(r.ordered, func(i, j int) bool { return r.ordered[i].Name() < r.ordered[j].Name() })

	if err := r.linkRelations(); err != nil {
		return nil, err
	}
	if err := r.validate(); err != nil {
		return nil, err
	}
	logger.Info("registry_built", map[string]any{"resources": len(r.ordered)})
	return r, nil
}

// Get finds a resource by singular or plural name, in any case convention.
func (r *Registry) Get(name string) (*Config, bool) {
	name = ModelCase(strings.TrimSpace(name))
	if cfg, ok := r.byName[name]; ok {
		return cfg, true
	}
	cfg, ok := r.byName[Singular(name)]
	return cfg, ok
}

// Resources lists the registered resources ordered by name.
func (r *Registry) Resources() []*Config {
	return append([]*Config(nil), r.ordered...)
}

// Target returns the Config a relationship points at.
func (r *Registry) Target(rel *Relation) (*Config, bool) {
	cfg, ok := r.byName[rel.Target]
	return cfg, ok
}
