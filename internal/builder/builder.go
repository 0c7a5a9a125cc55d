// Package builder renders processor results into the links/linked document
// shape of the resource's convention.
package builder

import (
	"strconv"
	"strings"

	"ResteasyAPI/internal/model"
	"ResteasyAPI/internal/processor"
)

// Document is a JSON-serializable response body.
type Document map[string]any

// Build renders r. The whole document, records reached through a link or
// side-loaded included, follows the convention of the addressed resource.
func Build(r *processor.Result) Document {
	doc := Document{}
	cfg := r.Config
	conv := convention(r)

	if r.AsList {
		objs := make([]map[string]any, 0, len(r.Records))
		for _, rec := range r.Records {
			objs = append(objs, render(conv, cfg, rec))
		}
		doc[rootKey(conv, r)] = objs
	} else if len(r.Records) > 0 {
		doc[rootKey(conv, r)] = render(conv, cfg, r.Records[0])
	} else {
		doc[rootKey(conv, r)] = nil
	}

	if len(r.Linked) > 0 {
		linked := map[string]any{}
		for _, set := range r.Linked {
			key := conv.JSONCase(model.Plural(set.Relation))
			linked[key] = mergeLinked(conv, linked[key], set)
		}
		if conv.UseLinkNodes() {
			doc[model.LinkedNode] = linked
		} else {
			for k, v := range linked {
				if _, taken := doc[k]; !taken {
					doc[k] = v
				}
			}
		}
	}

	if meta, ok := r.Pager.Meta(); ok {
		doc[model.MetaNode] = map[string]any{
			conv.JSONCase("page"):     meta.Page,
			conv.JSONCase("per_page"): meta.PerPage,
			conv.JSONCase("no_pages"): meta.Pages,
		}
	}
	return doc
}

// render emits cfg's allowed fields and relationship references of rec,
// keyed and nested the way conv shapes them.
func render(conv model.Convention, cfg *model.Config, rec *model.Record) map[string]any {
	obj := map[string]any{}
	for _, field := range cfg.AllowedFromModel().Sorted() {
		ft, _ := cfg.FieldType(field)
		obj[conv.JSONCase(field)] = Convert(ft, rec.Fields[field])
	}

	links := map[string]any{}
	for _, rel := range cfg.AllowedRelationships().Sorted() {
		ref, loaded := rec.Links[rel]
		if !loaded {
			continue
		}
		links[conv.JSONCase(rel)] = ref
	}
	if len(links) == 0 {
		return obj
	}
	if conv.UseLinkNodes() {
		obj[model.LinksNode] = links
		return obj
	}
	for k, v := range links {
		obj[k] = v
	}
	return obj
}

func convention(r *processor.Result) model.Convention {
	if r.Owner != nil {
		return r.Owner.Convention()
	}
	return r.Config.Convention()
}

func rootKey(conv model.Convention, r *processor.Result) string {
	if r.Link != "" {
		name := r.Link
		if r.AsList && r.Relation != nil && !r.Relation.ToMany() {
			name = model.Plural(name)
		}
		return conv.JSONCase(name)
	}
	if r.AsList {
		return conv.ResourceNameCase(r.Config.PluralName())
	}
	return conv.ResourceNameCase(r.Config.Name())
}

// mergeLinked appends set's records to prev, skipping ids already present.
func mergeLinked(conv model.Convention, prev any, set processor.LinkedSet) []map[string]any {
	out, _ := prev.([]map[string]any)
	seen := map[int64]bool{}
	for _, obj := range out {
		if id, ok := model.ToInt64(obj[conv.JSONCase(model.IDField)]); ok {
			seen[id] = true
		}
	}
	for _, rec := range set.Records {
		id := rec.ID()
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, render(conv, set.Config, rec))
	}
	return out
}

// URLs returns the canonical URL of every primary record, for Location
// headers. base is the mount prefix of the resource (may be empty).
func URLs(base string, r *processor.Result) []string {
	base = strings.TrimRight(base, "/")
	out := make([]string, 0, len(r.Records))
	for _, rec := range r.Records {
		out = append(out, base+"/"+r.Config.ResourceNamePlural()+"/"+strconv.FormatInt(rec.ID(), 10))
	}
	return out
}
