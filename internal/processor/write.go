package processor

import (
	"context"
	"sort"

	"ResteasyAPI/internal/apierr"
	"ResteasyAPI/internal/db"
	"ResteasyAPI/internal/logger"
	"ResteasyAPI/internal/model"
	"ResteasyAPI/internal/request"

	"github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
)

// writePlan is a payload item resolved against the store: coerced column
// values (belongs_to keys included) and the relationships to attach.
type writePlan struct {
	fields map[string]any
	attach []attachment
}

type attachment struct {
	rel    *model.Relation
	target *model.Config
	ids    []int64
}

// Create serves POST. Every relationship lookup happens before the first
// write; all records are inserted in one transaction.
func (p *Processor) Create(ctx context.Context, d *request.Descriptor) (*Result, error) {
	cfg := d.Config
	items, asList, err := payloadItems(cfg, d.Payload)
	if err != nil {
		return nil, err
	}

	tx, err := p.sess.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	plans := make([]*writePlan, 0, len(items))
	for _, item := range items {
		plan, err := p.resolvePlan(ctx, tx, cfg, item)
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}

	ids := make([]int64, 0, len(plans))
	for _, plan := range plans {
		id, err := p.insert(ctx, tx, cfg, plan.fields)
		if err != nil {
			return nil, err
		}
		if err := p.attach(ctx, tx, id, plan.attach); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit create")
	}
	p.invalidate(ctx, cfg, plans)
	logger.Debug("records_created", map[string]any{"resource": cfg.Name(), "ids": ids})

	return p.reload(ctx, cfg, ids, asList)
}

// Update serves PUT: the payload object is applied to every identified
// record. Listed relationships are added to the current ones.
func (p *Processor) Update(ctx context.Context, d *request.Descriptor) (*Result, error) {
	cfg := d.Config
	items, asList, err := payloadItems(cfg, d.Payload)
	if err != nil {
		return nil, err
	}
	if asList || len(items) != 1 {
		return nil, apierr.BadRequest("Invalid payload", "%s expects a single %q object", d.Method, cfg.ResourceName())
	}

	tx, err := p.sess.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := p.ensureExist(ctx, tx, cfg, d.Idents); err != nil {
		return nil, err
	}
	plan, err := p.resolvePlan(ctx, tx, cfg, items[0])
	if err != nil {
		return nil, err
	}

	for _, id := range d.Idents {
		if len(plan.fields) > 0 {
			ub := p.builder().Update(db.QuoteIdent(cfg.Table())).
				SetMap(quoteKeys(plan.fields)).
				Where(model.IDIn([]int64{id}))
			if _, err := db.RunExec(ctx, tx, ub); err != nil {
				return nil, errors.Wrapf(err, "update %s %d", cfg.Name(), id)
			}
		}
		if err := p.attach(ctx, tx, id, plan.attach); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit update")
	}
	// belongs_to keys are columns of cfg.Table(), covered here
	p.invalidate(ctx, cfg, []*writePlan{plan})

	return p.reload(ctx, cfg, d.Idents, len(d.Idents) != 1)
}

// Delete serves DELETE: every identified record must exist and all are
// removed together.
func (p *Processor) Delete(ctx context.Context, d *request.Descriptor) (*Result, error) {
	cfg := d.Config
	tx, err := p.sess.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := p.ensureExist(ctx, tx, cfg, d.Idents); err != nil {
		return nil, err
	}
	tables := []string{cfg.Table()}
	for _, name := range cfg.Relationships().Sorted() {
		rel, _ := cfg.Relation(name)
		if err := p.detach(ctx, tx, rel, d.Idents); err != nil {
			return nil, deleteFailed(cfg, d.Idents, err)
		}
		tables = append(tables, p.relationTables(rel)...)
	}
	if _, err := db.RunExec(ctx, tx, p.builder().Delete(db.QuoteIdent(cfg.Table())).Where(model.IDIn(d.Idents))); err != nil {
		return nil, deleteFailed(cfg, d.Idents, errors.Wrapf(err, "delete %s", cfg.Name()))
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit delete")
	}

	p.cache.Invalidate(ctx, tables...)
	logger.Debug("records_deleted", map[string]any{"resource": cfg.Name(), "ids": d.Idents})

	return &Result{Config: cfg, Owner: cfg, AsList: len(d.Idents) != 1}, nil
}

// deleteFailed turns an integrity violation into a 409; the store's message
// goes to the log only.
func deleteFailed(cfg *model.Config, ids []int64, err error) error {
	if !db.IsConstraint(err) {
		return err
	}
	logger.Warn("delete_rejected", map[string]any{"resource": cfg.Name(), "ids": ids, "error": err.Error()})
	return apierr.Conflict("Conflict", "%s is still referenced by other records", cfg.ResourceName())
}

// payloadItems extracts the resource node of a write payload: one object,
// or an array of objects for bulk creation.
func payloadItems(cfg *model.Config, payload map[string]any) ([]map[string]any, bool, error) {
	var (
		raw any
		ok  bool
	)
	for _, key := range []string{cfg.ResourceName(), cfg.ResourceNamePlural(), cfg.Name(), cfg.PluralName()} {
		if raw, ok = payload[key]; ok {
			break
		}
	}
	if !ok {
		return nil, false, apierr.BadRequest("Invalid payload", "payload has no %q node", cfg.ResourceName())
	}

	switch v := raw.(type) {
	case map[string]any:
		return []map[string]any{v}, false, nil
	case []any:
		if len(v) == 0 {
			return nil, false, apierr.BadRequest("Invalid payload", "%q is an empty list", cfg.ResourceNamePlural())
		}
		items := make([]map[string]any, 0, len(v))
		for _, it := range v {
			obj, ok := it.(map[string]any)
			if !ok {
				return nil, false, apierr.BadRequest("Invalid payload", "every %q item must be an object", cfg.ResourceNamePlural())
			}
			items = append(items, obj)
		}
		return items, true, nil
	}
	return nil, false, apierr.BadRequest("Invalid payload", "%q must be an object", cfg.ResourceName())
}

// resolvePlan copies writable fields from item and resolves relationship
// values, read from the links node or from the item itself.
func (p *Processor) resolvePlan(ctx context.Context, q db.Queryer, cfg *model.Config, item map[string]any) (*writePlan, error) {
	plan := &writePlan{fields: map[string]any{}}
	rels := map[string]any{}

	for key, val := range item {
		if key == model.LinksNode && cfg.UseLinkNodes() {
			links, ok := val.(map[string]any)
			if !ok {
				return nil, apierr.BadRequest("Invalid payload", "%q must be an object", model.LinksNode)
			}
			for lk, lv := range links {
				if name := cfg.ToModel(lk); cfg.AllowedRelationships().Has(name) {
					rels[name] = lv
				}
			}
			continue
		}
		name := cfg.ToModel(key)
		switch {
		case cfg.AllowedToModel().Has(name):
			ft, _ := cfg.FieldType(name)
			v, err := model.Coerce(ft, val)
			if err != nil {
				return nil, apierr.BadRequest("Invalid field", "%s: %v", key, err)
			}
			plan.fields[name] = v
		case cfg.AllowedRelationships().Has(name):
			if _, set := rels[name]; !set {
				rels[name] = val
			}
		}
	}

	names := make([]string, 0, len(rels))
	for name := range rels {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := p.resolveRelation(ctx, q, cfg, name, rels[name], plan); err != nil {
			return nil, err
		}
	}
	return plan, nil
}

func (p *Processor) resolveRelation(ctx context.Context, q db.Queryer, cfg *model.Config, name string, val any, plan *writePlan) error {
	if val == nil {
		return nil
	}
	rel, _ := cfg.Relation(name)
	target, err := p.target(rel)
	if err != nil {
		return err
	}

	var ids []int64
	if list, isList := val.([]any); isList {
		if !rel.ToMany() {
			return apierr.BadRequest("Invalid relationship", "%s takes a single identifier", cfg.JSONCase(name))
		}
		seen := map[int64]bool{}
		for _, v := range list {
			id, ok := model.ToInt64(v)
			if !ok {
				return apierr.BadRequest("Invalid relationship", "%s: %v is not an identifier", cfg.JSONCase(name), v)
			}
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	} else {
		id, ok := model.ToInt64(val)
		if !ok {
			return apierr.BadRequest("Invalid relationship", "%s: %v is not an identifier", cfg.JSONCase(name), val)
		}
		ids = []int64{id}
	}

	if err := p.ensureExist(ctx, q, target, ids); err != nil {
		return err
	}
	if rel.Kind == model.BelongsTo {
		plan.fields[rel.FK] = ids[0]
		return nil
	}
	plan.attach = append(plan.attach, attachment{rel: rel, target: target, ids: ids})
	return nil
}

func (p *Processor) insert(ctx context.Context, tx db.Tx, cfg *model.Config, fields map[string]any) (int64, error) {
	table := db.QuoteIdent(cfg.Table())
	returning := "RETURNING " + db.QuoteIdent(model.IDField)

	var (
		rows []db.Row
		err  error
	)
	if len(fields) == 0 {
		rows, err = tx.Query(ctx, "INSERT INTO "+table+" DEFAULT VALUES "+returning)
	} else {
		cols := make([]string, 0, len(fields))
		for col := range fields {
			cols = append(cols, col)
		}
		sort.Strings(cols)
		quoted := make([]string, len(cols))
		vals := make([]any, len(cols))
		for i, col := range cols {
			quoted[i] = db.QuoteIdent(col)
			vals[i] = fields[col]
		}
		rows, err = db.Run(ctx, tx, p.builder().Insert(table).Columns(quoted...).Values(vals...).Suffix(returning))
	}
	if err != nil {
		return 0, errors.Wrapf(err, "insert %s", cfg.Name())
	}
	if len(rows) == 0 {
		return 0, errors.Errorf("insert %s returned no id", cfg.Name())
	}
	id, ok := model.ToInt64(rows[0][model.IDField])
	if !ok {
		return 0, errors.Errorf("insert %s returned id %v", cfg.Name(), rows[0][model.IDField])
	}
	return id, nil
}

// attach points the related records at owner. Records already related
// stay attached; an empty list is a no-op.
func (p *Processor) attach(ctx context.Context, tx db.Tx, owner int64, atts []attachment) error {
	for _, att := range atts {
		if len(att.ids) == 0 {
			continue
		}
		rel := att.rel
		switch rel.Kind {
		case model.HasOne, model.HasMany:
			set := p.builder().Update(db.QuoteIdent(att.target.Table())).
				Set(db.QuoteIdent(rel.FK), owner).
				Where(model.IDIn(att.ids))
			if _, err := db.RunExec(ctx, tx, set); err != nil {
				return errors.Wrapf(err, "attach %s", rel.Name)
			}
		case model.ManyToMany:
			through := db.QuoteIdent(rel.Through)
			// skip pairs already present so the join table's key holds
			rows, err := db.Run(ctx, tx, p.builder().Select(db.QuoteIdent(rel.RelatedFK)).From(through).
				Where(model.ColumnIn(rel.OwnerFK, []int64{owner})).
				Where(model.ColumnIn(rel.RelatedFK, att.ids)))
			if err != nil {
				return errors.Wrapf(err, "attach %s", rel.Name)
			}
			linked := make(map[int64]bool, len(rows))
			for _, row := range rows {
				if id, ok := model.ToInt64(row[rel.RelatedFK]); ok {
					linked[id] = true
				}
			}
			ins := p.builder().Insert(through).Columns(db.QuoteIdent(rel.OwnerFK), db.QuoteIdent(rel.RelatedFK))
			n := 0
			for _, id := range att.ids {
				if !linked[id] {
					ins = ins.Values(owner, id)
					n++
				}
			}
			if n == 0 {
				continue
			}
			if _, err := db.RunExec(ctx, tx, ins); err != nil {
				return errors.Wrapf(err, "attach %s", rel.Name)
			}
		}
	}
	return nil
}

// detach releases whatever rel relates to owners: to-many children lose
// their key and join rows are removed. belongs_to keys live on the owners
// themselves and are left alone.
func (p *Processor) detach(ctx context.Context, tx db.Tx, rel *model.Relation, owners []int64) error {
	var b squirrel.Sqlizer
	switch rel.Kind {
	case model.HasOne, model.HasMany:
		target, ok := p.reg.Target(rel)
		if !ok {
			// unregistered children are left to the store's own rules
			return nil
		}
		b = p.builder().Update(db.QuoteIdent(target.Table())).
			Set(db.QuoteIdent(rel.FK), nil).
			Where(model.ColumnIn(rel.FK, owners))
	case model.ManyToMany:
		b = p.builder().Delete(db.QuoteIdent(rel.Through)).Where(model.ColumnIn(rel.OwnerFK, owners))
	default:
		return nil
	}
	if _, err := db.RunExec(ctx, tx, b); err != nil {
		return errors.Wrapf(err, "detach %s", rel.Name)
	}
	return nil
}

func (p *Processor) reload(ctx context.Context, cfg *model.Config, ids []int64, asList bool) (*Result, error) {
	records, err := p.loadByIDs(ctx, p.sess, cfg, ids)
	if err != nil {
		return nil, err
	}
	if err := p.loadLinks(ctx, p.sess, cfg, records); err != nil {
		return nil, err
	}
	return &Result{Config: cfg, Owner: cfg, Records: records, AsList: asList}, nil
}

func (p *Processor) invalidate(ctx context.Context, cfg *model.Config, plans []*writePlan) {
	tables := []string{cfg.Table()}
	for _, plan := range plans {
		for _, att := range plan.attach {
			tables = append(tables, p.relationTables(att.rel)...)
		}
	}
	p.cache.Invalidate(ctx, tables...)
}

// relationTables lists the tables a relationship's keys live in.
func (p *Processor) relationTables(rel *model.Relation) []string {
	var out []string
	if target, ok := p.reg.Target(rel); ok {
		out = append(out, target.Table())
	}
	if rel.Kind == model.ManyToMany {
		out = append(out, rel.Through)
	}
	return out
}

func quoteKeys(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[db.QuoteIdent(k)] = v
	}
	return out
}
