package processor

import (
	"context"

	"ResteasyAPI/internal/db"
	"ResteasyAPI/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
)

// loadLinks fills Record.Links for every accessible relationship of cfg:
// the related id for to-one relationships (nil when unset) and the ordered
// related ids for to-many ones.
func (p *Processor) loadLinks(ctx context.Context, q db.Queryer, cfg *model.Config, records []*model.Record) error {
	if len(records) == 0 {
		return nil
	}
	ids := model.IDs(records)
	for _, name := range cfg.AllowedRelationships().Sorted() {
		rel, _ := cfg.Relation(name)

		if rel.Kind == model.BelongsTo {
			for _, rec := range records {
				if id, ok := model.ToInt64(rec.Fields[rel.FK]); ok {
					rec.Links[name] = id
				} else {
					rec.Links[name] = nil
				}
			}
			continue
		}

		refs, err := p.references(ctx, q, rel, ids)
		if err != nil {
			return err
		}
		for _, rec := range records {
			related := refs[rec.ID()]
			if rel.ToMany() {
				if related == nil {
					related = []int64{}
				}
				rec.Links[name] = related
			} else if len(related) > 0 {
				rec.Links[name] = related[0]
			} else {
				rec.Links[name] = nil
			}
		}
	}
	return nil
}

// references maps each owner id to its related ids for relationships whose
// keys live outside the owner's table.
func (p *Processor) references(ctx context.Context, q db.Queryer, rel *model.Relation, ownerIDs []int64) (map[int64][]int64, error) {
	var sb squirrel.SelectBuilder
	ownerCol, relatedCol := rel.FK, model.IDField
	switch rel.Kind {
	case model.HasOne, model.HasMany:
		target, err := p.target(rel)
		if err != nil {
			return nil, err
		}
		sb = p.builder().
			Select(db.QuoteIdent(rel.FK)+" AS owner", db.QuoteIdent(model.IDField)+" AS related").
			From(db.QuoteIdent(target.Table())).
			Where(model.ColumnIn(rel.FK, ownerIDs)).
			OrderBy(db.QuoteIdent(model.IDField))
	case model.ManyToMany:
		ownerCol, relatedCol = rel.OwnerFK, rel.RelatedFK
		sb = p.builder().
			Select(db.QuoteIdent(ownerCol)+" AS owner", db.QuoteIdent(relatedCol)+" AS related").
			From(db.QuoteIdent(rel.Through)).
			Where(model.ColumnIn(ownerCol, ownerIDs)).
			OrderBy(db.QuoteIdent(relatedCol))
	default:
		return map[int64][]int64{}, nil
	}

	rows, err := db.Run(ctx, q, sb)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s references", rel.Name)
	}
	out := make(map[int64][]int64, len(ownerIDs))
	for _, row := range rows {
		owner, ok1 := model.ToInt64(row["owner"])
		related, ok2 := model.ToInt64(row["related"])
		if ok1 && ok2 {
			out[owner] = append(out[owner], related)
		}
	}
	return out, nil
}
