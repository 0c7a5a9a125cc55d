// Package processor executes parsed requests against the store.
package processor

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"ResteasyAPI/internal/apierr"
	"ResteasyAPI/internal/db"
	"ResteasyAPI/internal/model"
	"ResteasyAPI/internal/pager"
	"ResteasyAPI/internal/request"

	"github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
)

// Func runs one verb for a parsed request.
type Func func(ctx context.Context, d *request.Descriptor) (*Result, error)

// Processor owns the store session, the registry and the count cache shared
// by every request.
type Processor struct {
	sess  db.Session
	reg   *model.Registry
	cache pager.CountCache
}

func New(sess db.Session, reg *model.Registry, cache pager.CountCache) *Processor {
	if cache == nil {
		cache = pager.NopCache{}
	}
	return &Processor{sess: sess, reg: reg, cache: cache}
}

// For selects the operation for an HTTP method.
func (p *Processor) For(method string) (Func, error) {
	switch method {
	case http.MethodGet:
		return p.Read, nil
	case http.MethodPost:
		return p.Create, nil
	case http.MethodPut:
		return p.Update, nil
	case http.MethodDelete:
		return p.Delete, nil
	}
	return nil, apierr.New("Method not allowed", "method "+method+" is not supported", http.StatusMethodNotAllowed)
}

func (p *Processor) builder() squirrel.StatementBuilderType {
	return p.sess.Dialect().Builder()
}

// fetch runs a select and wraps its rows as records.
func fetch(ctx context.Context, q db.Queryer, sb squirrel.Sqlizer) ([]*model.Record, error) {
	rows, err := db.Run(ctx, q, sb)
	if err != nil {
		return nil, errors.Wrap(err, "select records")
	}
	out := make([]*model.Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, model.NewRecord(map[string]any(row)))
	}
	return out, nil
}

// ensureExist fails with 404 naming the first id of cfg that is not stored.
func (p *Processor) ensureExist(ctx context.Context, q db.Queryer, cfg *model.Config, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	rows, err := db.Run(ctx, q, cfg.BuildIDQuery(p.builder(), model.Query{Scope: []squirrel.Sqlizer{model.IDIn(ids)}}))
	if err != nil {
		return errors.Wrapf(err, "look up %s ids", cfg.Name())
	}
	found := make(map[int64]bool, len(rows))
	for _, row := range rows {
		if id, ok := model.ToInt64(row[model.IDField]); ok {
			found[id] = true
		}
	}
	var missing []string
	for _, id := range ids {
		if !found[id] {
			missing = append(missing, fmt.Sprint(id))
		}
	}
	if len(missing) > 0 {
		return apierr.NotFound("Not found", "%s %s not found", cfg.ResourceName(), strings.Join(missing, ", "))
	}
	return nil
}

// loadByIDs loads records by id, failing with 404 when any is missing.
func (p *Processor) loadByIDs(ctx context.Context, q db.Queryer, cfg *model.Config, ids []int64) ([]*model.Record, error) {
	if err := p.ensureExist(ctx, q, cfg, ids); err != nil {
		return nil, err
	}
	return fetch(ctx, q, cfg.BuildIndexQuery(p.builder(), model.Query{Scope: []squirrel.Sqlizer{model.IDIn(ids)}}))
}

func (p *Processor) target(rel *model.Relation) (*model.Config, error) {
	cfg, ok := p.reg.Target(rel)
	if !ok {
		return nil, fmt.Errorf("relationship %s has no registered resource %s", rel.Name, rel.Target)
	}
	return cfg, nil
}
