package pager

import (
	"context"

	"ResteasyAPI/internal/apierr"
	"ResteasyAPI/internal/db"
	"ResteasyAPI/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
)

// Pager holds the page window of one read and, once counted, the totals.
type Pager struct {
	Page     int
	PerPage  int
	Explicit bool // the client asked for pagination
	Total    int64
	Pages    int
}

// Meta is the pagination block rendered in responses.
type Meta struct {
	Page    int
	PerPage int
	Pages   int
}

func New(page, perPage int, explicit bool) *Pager {
	if page < 1 {
		page = 1
	}
	return &Pager{Page: page, PerPage: perPage, Explicit: explicit}
}

// Count runs the count query (through cache when given) and checks the
// requested page exists. A page past the end is a 404 unless the client
// filtered the rows, in which case the page is simply empty.
func (p *Pager) Count(ctx context.Context, q db.Queryer, cache CountCache, count squirrel.Sqlizer, tables []string, filtered bool) error {
	sqlStr, args, err := count.ToSql()
	if err != nil {
		return errors.Wrap(err, "build count sql")
	}
	load := func() (int64, error) {
		rows, err := q.Query(ctx, sqlStr, args...)
		if err != nil {
			return 0, errors.Wrap(err, "count rows")
		}
		if len(rows) == 0 {
			return 0, nil
		}
		n, _ := model.ToInt64(rows[0]["count"])
		return n, nil
	}
	if cache == nil {
		cache = NopCache{}
	}
	total, err := cache.Count(ctx, tables, sqlStr, args, load)
	if err != nil {
		return err
	}

	p.Total = total
	p.Pages = pageCount(total, p.PerPage)
	if p.Page > maxInt(1, p.Pages) && !filtered {
		return apierr.NotFound("Invalid page", "page %d is out of range (%d pages)", p.Page, p.Pages)
	}
	return nil
}

// Apply restricts sb to the requested page.
func (p *Pager) Apply(sb squirrel.SelectBuilder) squirrel.SelectBuilder {
	if p.PerPage <= 0 {
		return sb
	}
	return sb.Limit(uint64(p.PerPage)).Offset(uint64((p.Page - 1) * p.PerPage))
}

// Meta reports the pagination block, or false when it should be omitted:
// only explicit pagination or a multi-page result is reported.
func (p *Pager) Meta() (Meta, bool) {
	if p == nil || (!p.Explicit && p.Pages <= 1) {
		return Meta{}, false
	}
	return Meta{Page: p.Page, PerPage: p.PerPage, Pages: p.Pages}, true
}

func pageCount(total int64, perPage int) int {
	if total <= 0 {
		return 0
	}
	if perPage <= 0 {
		return 1
	}
	return int((total + int64(perPage) - 1) / int64(perPage))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
