package processor

import (
	"context"

	"ResteasyAPI/internal/db"
	"ResteasyAPI/internal/model"
	"ResteasyAPI/internal/pager"
	"ResteasyAPI/internal/request"

	"github.com/Masterminds/squirrel"
)

// Read serves GET: a relationship traversal, an identifier lookup or a full
// scan, then loads relationship references and side-loads includes.
func (p *Processor) Read(ctx context.Context, d *request.Descriptor) (*Result, error) {
	var (
		res *Result
		err error
	)
	switch {
	case d.Link != "":
		res, err = p.readLink(ctx, d)
	case d.HasIdents():
		res, err = p.readIdents(ctx, d)
	default:
		res, err = p.readAll(ctx, d)
	}
	if err != nil {
		return nil, err
	}

	if err := p.loadLinks(ctx, p.sess, res.Config, res.Records); err != nil {
		return nil, err
	}
	if err := p.loadIncludes(ctx, res, d.Includes); err != nil {
		return nil, err
	}
	return res, nil
}

func (p *Processor) readAll(ctx context.Context, d *request.Descriptor) (*Result, error) {
	cfg := d.Config
	pg, records, err := p.paginate(ctx, cfg, d, d.Query(), []string{cfg.Table()})
	if err != nil {
		return nil, err
	}
	return &Result{Config: cfg, Owner: cfg, Records: records, AsList: true, Pager: pg}, nil
}

func (p *Processor) readIdents(ctx context.Context, d *request.Descriptor) (*Result, error) {
	cfg := d.Config
	if err := p.ensureExist(ctx, p.sess, cfg, d.Idents); err != nil {
		return nil, err
	}
	q := d.Query()
	q.Scope = append(q.Scope, model.IDIn(d.Idents))
	records, err := fetch(ctx, p.sess, cfg.BuildIndexQuery(p.builder(), q))
	if err != nil {
		return nil, err
	}
	return &Result{Config: cfg, Owner: cfg, Records: records, AsList: len(d.Idents) != 1}, nil
}

func (p *Processor) readLink(ctx context.Context, d *request.Descriptor) (*Result, error) {
	parents, err := p.loadByIDs(ctx, p.sess, d.Config, d.Idents)
	if err != nil {
		return nil, err
	}
	scope, tables, err := p.relationScope(d.Relation, d.Target, parents)
	if err != nil {
		return nil, err
	}
	q := d.Query()
	q.Scope = append(q.Scope, scope)

	res := &Result{
		Config:   d.Target,
		Owner:    d.Config,
		AsList:   d.Relation.ToMany() || len(d.Idents) > 1,
		Link:     d.Link,
		Relation: d.Relation,
	}
	if res.AsList {
		res.Pager, res.Records, err = p.paginate(ctx, d.Target, d, q, tables)
	} else {
		res.Records, err = fetch(ctx, p.sess, d.Target.BuildIndexQuery(p.builder(), q).Limit(1))
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

// paginate counts and selects one page of cfg narrowed by q.
func (p *Processor) paginate(ctx context.Context, cfg *model.Config, d *request.Descriptor, q model.Query, tables []string) (*pager.Pager, []*model.Record, error) {
	b := p.builder()
	pg := pager.New(d.Page, d.PerPage, d.Paginate)
	if err := pg.Count(ctx, p.sess, p.cache, cfg.BuildCountQuery(b, q), tables, q.HasFilter()); err != nil {
		return nil, nil, err
	}
	records, err := fetch(ctx, p.sess, pg.Apply(cfg.BuildIndexQuery(b, q)))
	if err != nil {
		return nil, nil, err
	}
	return pg, records, nil
}

// relationScope is the condition selecting the records of target related to
// parents through rel, plus the tables it reads.
func (p *Processor) relationScope(rel *model.Relation, target *model.Config, parents []*model.Record) (squirrel.Sqlizer, []string, error) {
	switch rel.Kind {
	case model.BelongsTo:
		var ids []int64
		for _, parent := range parents {
			if id, ok := model.ToInt64(parent.Fields[rel.FK]); ok {
				ids = append(ids, id)
			}
		}
		return model.IDIn(ids), []string{target.Table()}, nil
	case model.HasOne, model.HasMany:
		return model.ColumnIn(rel.FK, model.IDs(parents)), []string{target.Table()}, nil
	case model.ManyToMany:
		// built with "?" placeholders; the outer query renumbers them
		sub, args, err := squirrel.Select(db.QuoteIdent(rel.RelatedFK)).
			From(db.QuoteIdent(rel.Through)).
			Where(squirrel.Eq{db.QuoteIdent(rel.OwnerFK): model.IDs(parents)}).
			ToSql()
		if err != nil {
			return nil, nil, err
		}
		expr := squirrel.Expr(db.QuoteIdent(model.IDField)+" IN ("+sub+")", args...)
		return expr, []string{target.Table(), rel.Through}, nil
	}
	return nil, nil, nil
}

// loadIncludes side-loads every included relationship of res.Config,
// leaving out records already rendered as the primary payload.
func (p *Processor) loadIncludes(ctx context.Context, res *Result, includes []string) error {
	primary := map[int64]bool{}
	for _, rec := range res.Records {
		primary[rec.ID()] = true
	}
	for _, name := range includes {
		rel, ok := res.Config.Relation(name)
		if !ok {
			continue
		}
		target, err := p.target(rel)
		if err != nil {
			return err
		}
		records, err := p.related(ctx, p.sess, rel, target, res.Records)
		if err != nil {
			return err
		}
		if target == res.Config {
			kept := records[:0]
			for _, rec := range records {
				if !primary[rec.ID()] {
					kept = append(kept, rec)
				}
			}
			records = kept
		}
		if err := p.loadLinks(ctx, p.sess, target, records); err != nil {
			return err
		}
		res.Linked = append(res.Linked, LinkedSet{Relation: name, Config: target, Records: records})
	}
	return nil
}

// related loads every record of target reached from parents through rel.
func (p *Processor) related(ctx context.Context, q db.Queryer, rel *model.Relation, target *model.Config, parents []*model.Record) ([]*model.Record, error) {
	if len(parents) == 0 {
		return nil, nil
	}
	scope, _, err := p.relationScope(rel, target, parents)
	if err != nil {
		return nil, err
	}
	return fetch(ctx, q, target.BuildIndexQuery(p.builder(), model.Query{Scope: []squirrel.Sqlizer{scope}}))
}
