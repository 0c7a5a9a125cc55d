package model

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// linkRelations checks that every relationship points at a registered
// resource and that its foreign keys are declared where they live.
func (r *Registry) linkRelations() error {
	var errs *multierror.Error
	for _, cfg := range r.ordered {
		for _, relName := range cfg.Relationships().Sorted() {
			rel, _ := cfg.Relation(relName)
			target, ok := r.byName[rel.Target]
			if !ok {
				errs = multierror.Append(errs, fmt.Errorf(
					"invalid relation: model '%s' not found in '%s.%s'", rel.Target, cfg.Name(), relName))
				continue
			}
			// normalise plural targets onto the registry key
			rel.Target = target.Name()

			switch rel.Kind {
			case BelongsTo:
				if _, ok := cfg.FieldType(rel.FK); !ok {
					errs = multierror.Append(errs, fmt.Errorf(
						"relation '%s.%s': fk '%s' is not a field of '%s'", cfg.Name(), relName, rel.FK, cfg.Name()))
				}
			case HasOne, HasMany:
				if _, ok := target.FieldType(rel.FK); !ok {
					errs = multierror.Append(errs, fmt.Errorf(
						"relation '%s.%s': fk '%s' is not a field of '%s'", cfg.Name(), relName, rel.FK, target.Name()))
				}
			case ManyToMany:
				if rel.OwnerFK == rel.RelatedFK {
					errs = multierror.Append(errs, fmt.Errorf(
						"relation '%s.%s': owner_fk and related_fk must differ (both '%s')", cfg.Name(), relName, rel.OwnerFK))
				}
			}
		}
	}
	return errs.ErrorOrNil()
}
