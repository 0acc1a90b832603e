package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/SergeSyntax/mock-server/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions() Options {
	return Options{
		Collections: []string{"users", "projects", "sections", "tasks", "comments"},
		Unique:      map[string]string{"users": "email"},
	}
}

func backends() map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"file": func(t *testing.T) Store {
			s, err := OpenFile(filepath.Join(t.TempDir(), "db.json"), testOptions())
			require.NoError(t, err)
			return s
		},
		"sqlite": func(t *testing.T) Store {
			cfg := &config.Config{
				StoreDriver: config.DriverSQLite,
				DBDSN:       filepath.Join(t.TempDir(), "test.db"),
			}
			s, err := Open(context.Background(), cfg, testOptions())
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
	}
}

func seedDocument() Document {
	return Document{
		"users": {
			{"id": "u1", "email": "a@x.com", "name": "Ann"},
			{"id": "u2", "email": "b@x.com", "name": "Bob"},
		},
		"projects": {
			{"id": "p1", "title": "Alpha", "owner": "u1"},
			{"id": "p2", "title": "Beta", "owner": "u2"},
		},
		"sections": {
			{"id": "s1", "title": "Todo", "order": float64(0), "projectId": "p1"},
			{"id": "s2", "title": "Done", "order": float64(1), "projectId": "p1"},
			{"id": "s3", "title": "Todo", "order": float64(0), "projectId": "p2"},
		},
		"tasks": {
			{"id": "t1", "title": "Write", "order": float64(0), "sectionId": "s1"},
			{"id": "t2", "title": "Ship", "order": float64(0), "sectionId": "s3"},
		},
		"comments": {
			{"id": "c1", "message": "first", "taskId": "t1", "authorId": "u2"},
		},
	}
}

func TestStoreContract(t *testing.T) {
	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			t.Run("CRUD", func(t *testing.T) {
				s := open(t)

				created, err := s.Insert(ctx, "projects", Record{"title": "Alpha", "accessibility": true})
				require.NoError(t, err)
				id := created.ID()
				require.NotEmpty(t, id)

				got, err := s.Get(ctx, "projects", id)
				require.NoError(t, err)
				assert.Equal(t, "Alpha", got["title"])
				assert.Equal(t, true, got["accessibility"])

				patched, err := s.Patch(ctx, "projects", id, Record{"title": "Beta", "id": "ignored"})
				require.NoError(t, err)
				assert.Equal(t, id, patched.ID())
				assert.Equal(t, "Beta", patched["title"])
				assert.Equal(t, true, patched["accessibility"])

				replaced, err := s.Replace(ctx, "projects", id, Record{"title": "Gamma"})
				require.NoError(t, err)
				assert.Equal(t, id, replaced.ID())
				assert.NotContains(t, replaced, "accessibility")

				require.NoError(t, s.Delete(ctx, "projects", id))
				_, err = s.Get(ctx, "projects", id)
				assert.ErrorIs(t, err, ErrNotFound)
			})

			t.Run("UnknownCollection", func(t *testing.T) {
				s := open(t)
				_, err := s.List(ctx, "widgets", Query{})
				assert.ErrorIs(t, err, ErrUnknownCollection)
				_, err = s.Insert(ctx, "widgets", Record{})
				assert.ErrorIs(t, err, ErrUnknownCollection)
			})

			t.Run("UniqueField", func(t *testing.T) {
				s := open(t)
				_, err := s.Insert(ctx, "users", Record{"email": "a@x.com"})
				require.NoError(t, err)

				_, err = s.Insert(ctx, "users", Record{"email": "a@x.com"})
				assert.ErrorIs(t, err, ErrDuplicate)

				other, err := s.Insert(ctx, "users", Record{"email": "b@x.com"})
				require.NoError(t, err)
				_, err = s.Patch(ctx, "users", other.ID(), Record{"email": "a@x.com"})
				assert.ErrorIs(t, err, ErrDuplicate)

				found, err := s.Find(ctx, "users", "email", "b@x.com")
				require.NoError(t, err)
				assert.Equal(t, other.ID(), found.ID())

				page, err := s.List(ctx, "users", Query{})
				require.NoError(t, err)
				assert.Equal(t, 2, page.Total)
			})

			t.Run("DuplicateID", func(t *testing.T) {
				s := open(t)
				_, err := s.Insert(ctx, "tasks", Record{"id": "t1"})
				require.NoError(t, err)
				_, err = s.Insert(ctx, "tasks", Record{"id": "t1"})
				assert.ErrorIs(t, err, ErrDuplicate)
			})

			t.Run("CascadeDelete", func(t *testing.T) {
				s := open(t)
				require.NoError(t, s.Load(ctx, seedDocument()))

				require.NoError(t, s.Delete(ctx, "projects", "p1"))

				doc, err := s.Snapshot(ctx)
				require.NoError(t, err)
				assert.Len(t, doc["projects"], 1)
				assert.Len(t, doc["sections"], 1)
				assert.Len(t, doc["tasks"], 1)
				assert.Empty(t, doc["comments"])
				assert.Len(t, doc["users"], 2)
			})

			t.Run("EmbedAndExpand", func(t *testing.T) {
				s := open(t)
				require.NoError(t, s.Load(ctx, seedDocument()))

				page, err := s.List(ctx, "projects", Query{Embed: []string{"sections"}}.Where("id", "p1"))
				require.NoError(t, err)
				require.Len(t, page.Items, 1)
				assert.Len(t, page.Items[0]["sections"], 2)

				page, err = s.List(ctx, "sections", Query{Expand: []string{"project"}}.Where("id", "s3"))
				require.NoError(t, err)
				require.Len(t, page.Items, 1)
				project, ok := page.Items[0]["project"].(map[string]any)
				require.True(t, ok)
				assert.Equal(t, "Beta", project["title"])
			})

			t.Run("LoadReplacesEverything", func(t *testing.T) {
				s := open(t)
				_, err := s.Insert(ctx, "users", Record{"email": "old@x.com"})
				require.NoError(t, err)

				require.NoError(t, s.Load(ctx, seedDocument()))

				_, err = s.Find(ctx, "users", "email", "old@x.com")
				assert.ErrorIs(t, err, ErrNotFound)
				assert.Equal(t, []string{"users", "projects", "sections", "tasks", "comments"}, s.Collections())

				page, err := s.List(ctx, "sections", Query{}.Where("projectId", "p1"))
				require.NoError(t, err)
				assert.Equal(t, 2, page.Total)
				assert.Equal(t, "s1", page.Items[0].ID())
			})

			t.Run("ReturnsCopies", func(t *testing.T) {
				s := open(t)
				created, err := s.Insert(ctx, "projects", Record{"title": "Alpha"})
				require.NoError(t, err)
				created["title"] = "mutated"

				got, err := s.Get(ctx, "projects", created.ID())
				require.NoError(t, err)
				assert.Equal(t, "Alpha", got["title"])
			})

			t.Run("Ping", func(t *testing.T) {
				assert.NoError(t, open(t).Ping(ctx))
			})
		})
	}
}
