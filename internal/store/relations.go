package store

import (
	"github.com/jinzhu/inflection"
)

// ForeignKey is the field children of collection use to reference it,
// e.g. "projects" -> "projectId".
func ForeignKey(collection string) string {
	return inflection.Singular(collection) + "Id"
}

// loader returns every record of a collection, or ErrUnknownCollection.
type loader func(collection string) ([]Record, error)

// relate attaches _embed children and _expand parents to already copied
// items. Unknown relation names are ignored.
func relate(items []Record, collection string, q Query, load loader) {
	if len(items) == 0 || (len(q.Embed) == 0 && len(q.Expand) == 0) {
		return
	}

	for _, child := range q.Embed {
		children, err := load(child)
		if err != nil {
			continue
		}
		fk := ForeignKey(collection)
		byParent := make(map[string][]any)
		for _, c := range children {
			id := stringOf(c[fk])
			byParent[id] = append(byParent[id], cloneValue(map[string]any(c)))
		}
		for _, item := range items {
			embedded := byParent[item.ID()]
			if embedded == nil {
				embedded = []any{}
			}
			item[child] = embedded
		}
	}

	for _, parent := range q.Expand {
		parents, err := load(inflection.Plural(parent))
		if err != nil {
			continue
		}
		byID := make(map[string]Record, len(parents))
		for _, p := range parents {
			byID[p.ID()] = p
		}
		fk := parent + "Id"
		for _, item := range items {
			if p, ok := byID[stringOf(item[fk])]; ok {
				item[parent] = cloneValue(map[string]any(p))
			}
		}
	}
}

// dependents walks collections and returns, per collection, the ids of
// records that transitively reference (collection, id).
func dependents(doc Document, collection, id string) map[string][]string {
	out := make(map[string][]string)
	type ref struct{ collection, id string }
	queue := []ref{{collection, id}}
	seen := map[ref]bool{{collection, id}: true}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		fk := ForeignKey(cur.collection)
		for name, records := range doc {
			for _, r := range records {
				if stringOf(r[fk]) != cur.id || r.ID() == "" {
					continue
				}
				next := ref{name, r.ID()}
				if seen[next] {
					continue
				}
				seen[next] = true
				out[name] = append(out[name], next.id)
				queue = append(queue, next)
			}
		}
	}
	return out
}
