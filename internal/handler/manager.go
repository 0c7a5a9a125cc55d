// Package handler binds resource configs to HTTP routes and runs each request
// through the parser, processor and builder.
package handler

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"sort"
	"strings"

	"ResteasyAPI/internal/logger"
	"ResteasyAPI/internal/model"
	"ResteasyAPI/internal/processor"
	"ResteasyAPI/internal/request"

	"github.com/gorilla/mux"
)

// ActionFunc handles a custom action selected by the payload "action" key.
// A nil Result renders as an empty object.
type ActionFunc func(ctx context.Context, d *request.Descriptor) (*processor.Result, error)

// Options configure the manager.
type Options struct {
	// Prefix is prepended to every route ("/api/v1").
	Prefix string
	Parser request.Options
}

// Route is one registered method/path pair.
type Route struct {
	Name   string
	Method string
	Path   string
}

type actionKey struct {
	resource string
	method   string
	name     string
}

// Manager owns the registry and the processor and exposes every resource of
// the registry as a set of routes.
type Manager struct {
	reg     *model.Registry
	proc    *processor.Processor
	opts    Options
	actions map[actionKey]ActionFunc
}

func NewManager(reg *model.Registry, proc *processor.Processor, opts Options) *Manager {
	opts.Prefix = strings.TrimRight(opts.Prefix, "/")
	if opts.Prefix != "" && !strings.HasPrefix(opts.Prefix, "/") {
		opts.Prefix = "/" + opts.Prefix
	}
	return &Manager{reg: reg, proc: proc, opts: opts, actions: map[actionKey]ActionFunc{}}
}

// RegisterAction installs a custom POST or PUT handler for resource.
func (m *Manager) RegisterAction(resource, method, name string, fn ActionFunc) error {
	cfg, ok := m.reg.Get(resource)
	if !ok {
		return fmt.Errorf("register action %q: unknown resource %q", name, resource)
	}
	method = strings.ToUpper(method)
	if method != http.MethodPost && method != http.MethodPut {
		return fmt.Errorf("register action %q: method %s does not take a payload", name, method)
	}
	if name == "" || fn == nil {
		return fmt.Errorf("register action on %q: name and handler are required", resource)
	}
	m.actions[actionKey{cfg.Name(), method, name}] = fn
	logger.Debug("action_registered", map[string]any{
		"resource": cfg.Name(),
		"method":   method,
		"action":   name,
	})
	return nil
}

func (m *Manager) action(cfg *model.Config, method, name string) (ActionFunc, bool) {
	fn, ok := m.actions[actionKey{cfg.Name(), method, name}]
	return fn, ok
}

// BasePath is the collection URL of cfg without its trailing plural name.
func (m *Manager) BasePath(cfg *model.Config) string {
	base := m.opts.Prefix
	if cfg.Group() != "" {
		base += "/" + cfg.Group()
	}
	return base
}

// CollectionPath is "<prefix>/<group>/<plural>".
func (m *Manager) CollectionPath(cfg *model.Config) string {
	return m.BasePath(cfg) + "/" + cfg.ResourceNamePlural()
}

// Routes lists the routes of every resource, restricted to the resource's
// methods, in registry order.
func (m *Manager) Routes() []Route {
	var out []Route
	for _, cfg := range m.reg.Resources() {
		out = append(out, routesFor(cfg, m.CollectionPath(cfg))...)
	}
	return out
}

func routesFor(cfg *model.Config, collection string) []Route {
	item := collection + "/{" + model.IDRouteParam + "}"
	link := item + "/{" + model.LinkRouteParam + "}"
	if cfg.UseLinkNodes() {
		link = item + "/" + model.LinksNode + "/{" + model.LinkRouteParam + "}"
	}

	var out []Route
	add := func(method, p string) {
		if cfg.AllowsMethod(method) {
			out = append(out, Route{Name: cfg.EndpointName(), Method: method, Path: p})
		}
	}
	add(http.MethodGet, collection)
	add(http.MethodPost, collection)
	add(http.MethodGet, item)
	add(http.MethodPut, item)
	add(http.MethodDelete, item)
	add(http.MethodGet, link)
	return out
}

// Mount registers every route and the api_info endpoint on r.
func (m *Manager) Mount(r *mux.Router) {
	for _, cfg := range m.reg.Resources() {
		view := m.View(cfg)
		for _, rt := range routesFor(cfg, m.CollectionPath(cfg)) {
			r.Handle(rt.Path, view).Methods(rt.Method).Name(rt.Method + " " + rt.Path)
		}
	}
	r.HandleFunc(path.Join("/", m.opts.Prefix, "api_info"), m.APIInfo).Methods(http.MethodGet)
	logger.Info("routes_mounted", map[string]any{
		"resources": len(m.reg.Resources()),
		"prefix":    m.opts.Prefix,
	})
}

// ResourceInfo describes one resource in the api_info document.
type ResourceInfo struct {
	Name          string              `json:"name"`
	Plural        string              `json:"plural"`
	Convention    string              `json:"convention"`
	Methods       []string            `json:"methods"`
	Fields        map[string]string   `json:"fields"`
	Relationships map[string]string   `json:"relationships"`
	Sortable      []string            `json:"sortable"`
	Filterable    []string            `json:"filterable"`
	Includable    []string            `json:"includable"`
	MaxPerPage    int                 `json:"max_per_page"`
	Routes        map[string][]string `json:"routes"`
}

// Info describes every registered resource, sorted by name.
func (m *Manager) Info() []ResourceInfo {
	out := make([]ResourceInfo, 0, len(m.reg.Resources()))
	for _, cfg := range m.reg.Resources() {
		info := ResourceInfo{
			Name:          cfg.ResourceName(),
			Plural:        cfg.ResourceNamePlural(),
			Convention:    cfg.Convention().Name(),
			Methods:       cfg.Methods(),
			Fields:        map[string]string{},
			Relationships: map[string]string{},
			Sortable:      jsonNames(cfg, cfg.AllowedToSort()),
			Filterable:    jsonNames(cfg, cfg.AllowedToFilter()),
			Includable:    jsonNames(cfg, cfg.AllowedToInclude()),
			MaxPerPage:    cfg.MaxPerPage(),
			Routes:        map[string][]string{},
		}
		for _, f := range cfg.AllowedFromModel().Sorted() {
			ft, _ := cfg.FieldType(f)
			info.Fields[cfg.JSONCase(f)] = string(ft)
		}
		for _, name := range cfg.AllowedRelationships().Sorted() {
			rel, _ := cfg.Relation(name)
			info.Relationships[cfg.JSONCase(name)] = string(rel.Kind)
		}
		for _, rt := range routesFor(cfg, m.CollectionPath(cfg)) {
			info.Routes[rt.Path] = append(info.Routes[rt.Path], rt.Method)
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func jsonNames(cfg *model.Config, s model.Set) []string {
	out := make([]string, 0, len(s))
	for _, n := range s.Sorted() {
		out = append(out, cfg.JSONCase(n))
	}
	return out
}

func (m *Manager) APIInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"resources": m.Info()})
}
