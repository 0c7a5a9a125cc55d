package request

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"ResteasyAPI/internal/apierr"
	"ResteasyAPI/internal/model"

	"github.com/bytedance/sonic"
)

// query and route parameter names
const (
	ParamFilter  = "filter"
	ParamSort    = "sort"
	ParamInclude = "include"
	ParamPage    = "page"
	ParamPerPage = "per_page"
	ActionKey    = "action"
)

const (
	pairSeparator  = ","
	valueSeparator = ":"
	descPrefix     = "-"
	nullValue      = "null"
)

// bodyJSON keeps numbers as json.Number so ids and integers survive decoding.
var bodyJSON = sonic.Config{UseNumber: true, ValidateString: true}.Froze()

// Input is the raw request: route variables, query string and body.
type Input struct {
	Route map[string]string
	Query url.Values
	Body  []byte
}

// Options are the parser defaults.
type Options struct {
	DefaultPerPage int
}

// Parser turns one verb's Input into a Descriptor.
type Parser interface {
	Parse(cfg *model.Config, in Input) (*Descriptor, error)
}

// NewParser returns the parser for an HTTP method.
func NewParser(method string, reg *model.Registry, opts Options) (Parser, error) {
	base := parser{reg: reg, opts: opts}
	switch method {
	case http.MethodGet:
		return getParser{base}, nil
	case http.MethodPost:
		return postParser{base}, nil
	case http.MethodPut:
		return putParser{base}, nil
	case http.MethodDelete:
		return deleteParser{base}, nil
	}
	return nil, apierr.New("Method not allowed", "method "+method+" is not supported", http.StatusMethodNotAllowed)
}

type parser struct {
	reg  *model.Registry
	opts Options
}

type getParser struct{ parser }

func (p getParser) Parse(cfg *model.Config, in Input) (*Descriptor, error) {
	d := &Descriptor{Method: http.MethodGet, Config: cfg, Target: cfg}
	steps := []func(*Descriptor, Input) error{
		p.parseIdents,
		p.parseLink,
		p.parseFilter,
		p.parseSort,
		p.parseInclude,
		p.parsePagination,
	}
	for _, step := range steps {
		if err := step(d, in); err != nil {
			return nil, err
		}
	}
	return d, nil
}

type postParser struct{ parser }

func (p postParser) Parse(cfg *model.Config, in Input) (*Descriptor, error) {
	d := &Descriptor{Method: http.MethodPost, Config: cfg, Target: cfg}
	if err := p.parsePayload(d, in); err != nil {
		return nil, err
	}
	return d, nil
}

type putParser struct{ parser }

func (p putParser) Parse(cfg *model.Config, in Input) (*Descriptor, error) {
	d := &Descriptor{Method: http.MethodPut, Config: cfg, Target: cfg}
	if err := p.requireIdents(d, in); err != nil {
		return nil, err
	}
	if err := p.parsePayload(d, in); err != nil {
		return nil, err
	}
	return d, nil
}

type deleteParser struct{ parser }

func (p deleteParser) Parse(cfg *model.Config, in Input) (*Descriptor, error) {
	d := &Descriptor{Method: http.MethodDelete, Config: cfg, Target: cfg}
	if err := p.requireIdents(d, in); err != nil {
		return nil, err
	}
	return d, nil
}

func (p parser) parseIdents(d *Descriptor, in Input) error {
	raw, ok := in.Route[model.IDRouteParam]
	if !ok {
		return nil
	}
	for _, tok := range strings.Split(raw, pairSeparator) {
		id, err := strconv.ParseInt(strings.TrimSpace(tok), 10, 64)
		if err != nil {
			return apierr.BadRequest("Invalid identifier", "identifier %q is not an integer", tok)
		}
		d.Idents = append(d.Idents, id)
	}
	return nil
}

func (p parser) requireIdents(d *Descriptor, in Input) error {
	if err := p.parseIdents(d, in); err != nil {
		return err
	}
	if !d.HasIdents() {
		return apierr.BadRequest("Missing identifier", "%s requires at least one identifier", d.Method)
	}
	return nil
}

func (p parser) parseLink(d *Descriptor, in Input) error {
	raw, ok := in.Route[model.LinkRouteParam]
	if !ok || raw == "" {
		return nil
	}
	if !d.HasIdents() {
		return apierr.BadRequest("Invalid link", "link %q requires an identifier", raw)
	}
	cfg := d.Config
	name := cfg.ToModel(raw)
	if !cfg.Relationships().Has(name) {
		return apierr.NotFound("Invalid link", "%s has no relationship %q", cfg.ResourceName(), raw)
	}
	if !cfg.AllowedRelationships().Has(name) {
		return apierr.Forbidden("Invalid link", "relationship %q of %s is not accessible", raw, cfg.ResourceName())
	}
	rel, _ := cfg.Relation(name)
	target, ok := p.reg.Target(rel)
	if !ok {
		return apierr.NotFound("Invalid link", "relationship %q has no registered resource", raw)
	}
	d.Link = name
	d.Relation = rel
	d.Target = target
	return nil
}

func (p parser) parseFilter(d *Descriptor, in Input) error {
	for _, pair := range splitParam(in.Query, ParamFilter) {
		tokens := strings.Split(pair, valueSeparator)
		if len(tokens) != 2 {
			return apierr.BadRequest("Invalid filter", "filter %q must be field%svalue", pair, valueSeparator)
		}
		field := d.Target.ToModel(strings.TrimSpace(tokens[0]))
		if err := checkName(d.Target.AllFields(), d.Target.AllowedToFilter(), field, tokens[0], "Invalid filter", "field"); err != nil {
			return err
		}
		value, err := p.filterValue(d.Target, field, tokens[1])
		if err != nil {
			return err
		}
		d.Filters = append(d.Filters, model.Filter{Field: field, Value: value})
	}
	return nil
}

func (p parser) filterValue(cfg *model.Config, field, raw string) (any, error) {
	if raw == nullValue {
		return nil, nil
	}
	ft, _ := cfg.FieldType(field)
	value, err := model.Coerce(ft, raw)
	if err != nil {
		return nil, apierr.BadRequest("Invalid filter", "filter %s: %v", field, err)
	}
	return value, nil
}

func (p parser) parseSort(d *Descriptor, in Input) error {
	for _, tok := range splitParam(in.Query, ParamSort) {
		desc := strings.HasPrefix(tok, descPrefix)
		name := strings.TrimPrefix(tok, descPrefix)
		field := d.Target.ToModel(name)
		if err := checkName(d.Target.AllFields(), d.Target.AllowedToSort(), field, name, "Invalid sort", "field"); err != nil {
			return err
		}
		d.Sorts = append(d.Sorts, model.Sort{Field: field, Desc: desc})
	}
	return nil
}

func (p parser) parseInclude(d *Descriptor, in Input) error {
	seen := model.NewSet()
	for _, tok := range splitParam(in.Query, ParamInclude) {
		name := d.Target.ToModel(tok)
		if err := checkName(d.Target.Relationships(), d.Target.AllowedToInclude(), name, tok, "Invalid include", "relationship"); err != nil {
			return err
		}
		if !seen.Has(name) {
			seen.Add(name)
			d.Includes = append(d.Includes, name)
		}
	}
	return nil
}

func (p parser) parsePagination(d *Descriptor, in Input) error {
	page, pageSet, err := positiveParam(in.Query, ParamPage)
	if err != nil {
		return err
	}
	perPage, perPageSet, err := positiveParam(in.Query, ParamPerPage)
	if err != nil {
		return err
	}
	if !pageSet {
		page = 1
	}
	if !perPageSet {
		perPage = p.opts.DefaultPerPage
	}
	if limit := d.Target.MaxPerPage(); limit > 0 && (perPage <= 0 || perPage > limit) {
		perPage = limit
	}
	d.Page = page
	d.PerPage = perPage
	d.Paginate = pageSet || perPageSet
	return nil
}

func (p parser) parsePayload(d *Descriptor, in Input) error {
	if len(strings.TrimSpace(string(in.Body))) == 0 {
		return apierr.BadRequest("Invalid payload", "request body is empty")
	}
	var payload map[string]any
	if err := bodyJSON.Unmarshal(in.Body, &payload); err != nil {
		return apierr.BadRequest("Invalid payload", "request body must be a JSON object: %v", err)
	}
	d.Payload = payload
	if raw, ok := payload[ActionKey]; ok {
		action, ok := raw.(string)
		if !ok {
			return apierr.BadRequest("Invalid payload", "%q must be a string", ActionKey)
		}
		d.Action = action
	}
	return nil
}

// checkName applies the shared existence/allowance rule: unknown names are
// 404, declared but excluded names are 403.
func checkName(declared, allowed model.Set, name, raw, title, kind string) error {
	if !declared.Has(name) {
		return apierr.NotFound(title, "unknown %s %q", kind, raw)
	}
	if !allowed.Has(name) {
		return apierr.Forbidden(title, "%s %q is not allowed", kind, raw)
	}
	return nil
}

// splitParam joins repeated parameters and splits them on commas, dropping
// empty tokens.
func splitParam(q url.Values, key string) []string {
	var out []string
	for _, v := range q[key] {
		for _, tok := range strings.Split(v, pairSeparator) {
			if tok = strings.TrimSpace(tok); tok != "" {
				out = append(out, tok)
			}
		}
	}
	return out
}

func positiveParam(q url.Values, key string) (int, bool, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, false, apierr.BadRequest("Invalid pagination", "%s must be a positive integer, got %q", key, raw)
	}
	return n, true, nil
}
