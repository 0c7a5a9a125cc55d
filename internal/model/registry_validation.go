package model

import (
	"fmt"

	"ResteasyAPI/internal/logger"

	"github.com/hashicorp/go-multierror"
)

// validate checks the registry-wide invariants: allowed sets never contain an
// excluded name and always stay within the raw field and relationship sets.
// Exclusions naming nothing are only warned about.
func (r *Registry) validate() error {
	var errs *multierror.Error
	for _, cfg := range r.ordered {
		for _, check := range allowedChecks(cfg) {
			if extra := check.allowed.Minus(check.raw); len(extra) > 0 {
				errs = multierror.Append(errs, fmt.Errorf(
					"resource '%s': %s allows undeclared names %v", cfg.Name(), check.key, extra.Sorted()))
			}
			for _, key := range []string{check.key, ExcludeAll} {
				if overlap := check.allowed.Minus(check.allowed.Minus(cfg.exclusion(key))); len(overlap) > 0 {
					errs = multierror.Append(errs, fmt.Errorf(
						"resource '%s': %s allows excluded names %v", cfg.Name(), check.key, overlap.Sorted()))
				}
			}
		}

		known := cfg.AllFields().Union(cfg.Relationships())
		for key, names := range cfg.excludes {
			if unknown := names.Minus(known); len(unknown) > 0 {
				logger.Warn("exclusion_unknown_names", map[string]any{
					"resource": cfg.Name(),
					"key":      key,
					"names":    unknown.Sorted(),
				})
			}
		}
	}
	return errs.ErrorOrNil()
}

type allowedCheck struct {
	key     string
	allowed Set
	raw     Set
}

func allowedChecks(cfg *Config) []allowedCheck {
	return []allowedCheck{
		{ExcludeFromModel, cfg.AllowedFromModel(), cfg.AllFields()},
		{ExcludeToModel, cfg.AllowedToModel(), cfg.AllFields()},
		{ExcludeRelationship, cfg.AllowedRelationships(), cfg.Relationships()},
		{ExcludeSort, cfg.AllowedToSort(), cfg.AllFields()},
		{ExcludeFilter, cfg.AllowedToFilter(), cfg.AllFields()},
		{ExcludeInclude, cfg.AllowedToInclude(), cfg.Relationships()},
	}
}
