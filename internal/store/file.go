package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// FileStore keeps the document in memory and rewrites the file after every
// accepted write. Writers are serialised; readers run concurrently.
type FileStore struct {
	path string
	opts Options

	mu  sync.RWMutex
	doc Document
}

// OpenFile loads the document at path. A missing or empty file yields a
// fresh document with opts.Collections, which is written immediately.
func OpenFile(path string, opts Options) (*FileStore, error) {
	s := &FileStore{path: path, opts: opts}

	fresh := false
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist) || (err == nil && len(bytes.TrimSpace(data)) == 0):
		slog.Warn("document not found, starting empty", "path", path)
		s.doc = Document{}
		fresh = true
	case err != nil:
		return nil, fmt.Errorf("failed to read document %s: %w", path, err)
	default:
		doc, err := parseDocument(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse document %s: %w", path, err)
		}
		s.doc = doc
	}

	for _, name := range opts.Collections {
		if _, ok := s.doc[name]; !ok {
			s.doc[name] = []Record{}
			fresh = true
		}
	}
	if fresh {
		if err := s.persist(s.doc); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func parseDocument(data []byte) (Document, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	doc := make(Document, len(raw))
	for name, msg := range raw {
		var records []Record
		if err := json.Unmarshal(msg, &records); err != nil {
			return nil, fmt.Errorf("collection %q must be an array of objects: %w", name, err)
		}
		if records == nil {
			records = []Record{}
		}
		doc[name] = records
	}
	return doc, nil
}

// persist writes doc to a temporary file and renames it over the target so
// readers never observe a partial document.
func (s *FileStore) persist(doc Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write document: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close document: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace document: %w", err)
	}
	return nil
}

// commit persists the document with the given collections replaced and
// swaps it in only when the write succeeded. Callers hold s.mu.
func (s *FileStore) commit(changes map[string][]Record) error {
	next := make(Document, len(s.doc))
	for name, records := range s.doc {
		next[name] = records
	}
	for name, records := range changes {
		next[strings.Clone(name)] = records
	}
	if err := s.persist(next); err != nil {
		return err
	}
	s.doc = next
	return nil
}

func (s *FileStore) Collections() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return collectionNames(s.doc, s.opts.Collections)
}

func collectionNames(doc Document, preferred []string) []string {
	names := make([]string, 0, len(doc))
	seen := make(map[string]bool, len(doc))
	for _, name := range preferred {
		if _, ok := doc[name]; ok {
			names = append(names, name)
			seen[name] = true
		}
	}
	var rest []string
	for name := range doc {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}

func (s *FileStore) collection(name string) ([]Record, error) {
	records, ok := s.doc[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, name)
	}
	return records, nil
}

func (s *FileStore) List(_ context.Context, collection string, q Query) (Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records, err := s.collection(collection)
	if err != nil {
		return Page{}, err
	}
	page := q.Apply(records)
	page.Items = cloneAll(page.Items)
	relate(page.Items, collection, q, s.collection)
	return page, nil
}

func (s *FileStore) Get(_ context.Context, collection, id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records, err := s.collection(collection)
	if err != nil {
		return nil, err
	}
	i := indexOf(records, id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}
	return records[i].Clone(), nil
}

func (s *FileStore) Find(_ context.Context, collection, field string, value any) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records, err := s.collection(collection)
	if err != nil {
		return nil, err
	}
	want := stringOf(value)
	for _, r := range records {
		if v, ok := r[field]; ok && v != nil && stringOf(v) == want {
			return r.Clone(), nil
		}
	}
	return nil, fmt.Errorf("%w: %s where %s=%s", ErrNotFound, collection, field, want)
}

func (s *FileStore) Insert(_ context.Context, collection string, rec Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.collection(collection)
	if err != nil {
		return nil, err
	}
	rec = rec.Clone()
	if rec == nil {
		rec = Record{}
	}
	if rec.ID() == "" {
		rec["id"] = uuid.NewString()
	}
	if indexOf(records, rec.ID()) >= 0 {
		return nil, fmt.Errorf("%w: %s/%s already exists", ErrDuplicate, collection, rec.ID())
	}
	if err := s.checkUnique(collection, records, rec); err != nil {
		return nil, err
	}

	next := make([]Record, len(records), len(records)+1)
	copy(next, records)
	next = append(next, rec)
	if err := s.commit(map[string][]Record{collection: next}); err != nil {
		return nil, err
	}
	return rec.Clone(), nil
}

func (s *FileStore) Replace(_ context.Context, collection, id string, rec Record) (Record, error) {
	return s.update(collection, id, func(Record) Record {
		out := rec.Clone()
		if out == nil {
			out = Record{}
		}
		return out
	})
}

func (s *FileStore) Patch(_ context.Context, collection, id string, rec Record) (Record, error) {
	return s.update(collection, id, func(current Record) Record {
		return merge(current, rec)
	})
}

func (s *FileStore) update(collection, id string, change func(Record) Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.collection(collection)
	if err != nil {
		return nil, err
	}
	i := indexOf(records, id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}

	updated := change(records[i])
	updated["id"] = records[i]["id"]
	if err := s.checkUnique(collection, records, updated); err != nil {
		return nil, err
	}

	next := make([]Record, len(records))
	copy(next, records)
	next[i] = updated
	if err := s.commit(map[string][]Record{collection: next}); err != nil {
		return nil, err
	}
	return updated.Clone(), nil
}

func (s *FileStore) Delete(_ context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.collection(collection)
	if err != nil {
		return err
	}
	if indexOf(records, id) < 0 {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}

	removals := dependents(s.doc, collection, id)
	removals[collection] = append(removals[collection], id)

	changes := make(map[string][]Record, len(removals))
	for name, ids := range removals {
		drop := make(map[string]bool, len(ids))
		for _, rid := range ids {
			drop[rid] = true
		}
		kept := make([]Record, 0, len(s.doc[name]))
		for _, r := range s.doc[name] {
			if !drop[r.ID()] {
				kept = append(kept, r)
			}
		}
		changes[name] = kept
	}
	return s.commit(changes)
}

func (s *FileStore) Load(_ context.Context, doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(Document, len(doc))
	for name, records := range doc {
		next[name] = cloneAll(records)
	}
	for _, name := range s.opts.Collections {
		if _, ok := next[name]; !ok {
			next[name] = []Record{}
		}
	}
	if err := s.persist(next); err != nil {
		return err
	}
	s.doc = next
	return nil
}

func (s *FileStore) Snapshot(_ context.Context) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(Document, len(s.doc))
	for name, records := range s.doc {
		out[name] = cloneAll(records)
	}
	return out, nil
}

// Ping checks the document file is still reachable.
func (s *FileStore) Ping(_ context.Context) error {
	if _, err := os.Stat(s.path); err != nil {
		return fmt.Errorf("document unavailable: %w", err)
	}
	return nil
}

// Close is a no-op: every write is already on disk.
func (s *FileStore) Close() error { return nil }

func (s *FileStore) checkUnique(collection string, records []Record, rec Record) error {
	field := s.opts.Unique[collection]
	want, ok := uniqueValue(rec, field)
	if !ok {
		return nil
	}
	for _, r := range records {
		if r.ID() == rec.ID() {
			continue
		}
		if got, ok := uniqueValue(r, field); ok && got == want {
			return fmt.Errorf("%w: %s.%s=%s", ErrDuplicate, collection, field, want)
		}
	}
	return nil
}

func indexOf(records []Record, id string) int {
	for i, r := range records {
		if r.ID() == id {
			return i
		}
	}
	return -1
}
