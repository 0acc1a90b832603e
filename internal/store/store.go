// Package store implements the JSON document behind the mock API: a set of
// named collections of schemaless records, with json-server style querying.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrUnknownCollection = errors.New("unknown collection")
	ErrDuplicate         = errors.New("duplicate record")
)

// Record is a single row of a collection. Values follow encoding/json
// decoding rules: numbers are float64, objects are map[string]any.
type Record map[string]any

// ID returns the record id as a string, or "" when absent.
func (r Record) ID() string {
	return stringOf(r["id"])
}

// Document is the whole persisted state, keyed by collection name.
type Document map[string][]Record

// Page is the result of a List call. Total counts matches before pagination.
type Page struct {
	Items      []Record
	Total      int
	Pagination *Pagination
}

// Pagination is set when the query asked for _page.
type Pagination struct {
	Page  int
	Limit int
	Last  int
}

// Store is the persistence contract shared by the file and SQL backends.
// Implementations return copies; callers may mutate what they receive.
type Store interface {
	Collections() []string
	List(ctx context.Context, collection string, q Query) (Page, error)
	Get(ctx context.Context, collection, id string) (Record, error)
	// Find returns the first record whose field equals value.
	Find(ctx context.Context, collection, field string, value any) (Record, error)
	Insert(ctx context.Context, collection string, rec Record) (Record, error)
	Replace(ctx context.Context, collection, id string, rec Record) (Record, error)
	Patch(ctx context.Context, collection, id string, rec Record) (Record, error)
	// Delete removes the record and, recursively, every record in other
	// collections that references it through <singular(collection)>Id.
	Delete(ctx context.Context, collection, id string) error
	// Load replaces the entire document.
	Load(ctx context.Context, doc Document) error
	Snapshot(ctx context.Context) (Document, error)
	Ping(ctx context.Context) error
	Close() error
}

// Options configures behaviour shared by all backends.
type Options struct {
	// Collections always exist, even when the persisted document lacks them.
	Collections []string
	// Unique maps a collection to a field whose values must be unique in it.
	Unique map[string]string
}

// Decode converts a record into a typed value through its JSON form.
func Decode(rec Record, v any) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode record: %w", err)
	}
	return nil
}

// Encode converts a typed value into a record through its JSON form.
func Encode(v any) (Record, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode value: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("value is not an object: %w", err)
	}
	return rec, nil
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	return cloneValue(map[string]any(r)).(map[string]any)
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = cloneValue(val)
		}
		return out
	case Record:
		return Record(cloneValue(map[string]any(t)).(map[string]any))
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = cloneValue(val)
		}
		return out
	case []Record:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = cloneValue(map[string]any(val))
		}
		return out
	default:
		return v
	}
}

func cloneAll(records []Record) []Record {
	out := make([]Record, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}

// merge applies patch on top of base, top-level keys only.
func merge(base, patch Record) Record {
	out := base.Clone()
	if out == nil {
		out = Record{}
	}
	for k, v := range patch {
		out[k] = cloneValue(v)
	}
	return out
}

func uniqueValue(rec Record, field string) (string, bool) {
	if field == "" {
		return "", false
	}
	v, ok := rec[field]
	if !ok || v == nil {
		return "", false
	}
	return stringOf(v), true
}
