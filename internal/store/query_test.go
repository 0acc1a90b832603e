package store

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func taskRecords() []Record {
	return []Record{
		{"id": "a", "title": "Write docs", "order": float64(2), "sectionId": "s1", "tags": []any{"docs", "easy"}},
		{"id": "b", "title": "Fix bug", "order": float64(0), "sectionId": "s1", "meta": map[string]any{"points": float64(3)}},
		{"id": "c", "title": "Release", "order": float64(1), "sectionId": "s2"},
		{"id": "d", "title": "Write tests", "order": float64(10), "sectionId": "s2", "dueDate": nil},
	}
}

func ids(records []Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID()
	}
	return out
}

func mustParse(t *testing.T, raw string) Query {
	t.Helper()
	values, err := url.ParseQuery(raw)
	require.NoError(t, err)
	q, err := ParseQuery(values)
	require.NoError(t, err)
	return q
}

func TestQueryApply(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
		total int
	}{
		{name: "no query keeps order", query: "", want: []string{"a", "b", "c", "d"}, total: 4},
		{name: "equality", query: "sectionId=s2", want: []string{"c", "d"}, total: 2},
		{name: "equality OR", query: "id=a&id=c", want: []string{"a", "c"}, total: 2},
		{name: "numeric equality", query: "order=0", want: []string{"b"}, total: 1},
		{name: "array contains", query: "tags=easy", want: []string{"a"}, total: 1},
		{name: "nested path", query: "meta.points=3", want: []string{"b"}, total: 1},
		{name: "not equal", query: "sectionId_ne=s1", want: []string{"c", "d"}, total: 2},
		{name: "range numeric", query: "order_gte=1&order_lt=10", want: []string{"a", "c"}, total: 2},
		{name: "like case-insensitive", query: "title_like=^write", want: []string{"a", "d"}, total: 2},
		{name: "full text", query: "q=BUG", want: []string{"b"}, total: 1},
		{name: "sort asc numeric", query: "_sort=order", want: []string{"b", "c", "a", "d"}, total: 4},
		{name: "sort multi", query: "_sort=sectionId,order&_order=desc,asc", want: []string{"c", "d", "b", "a"}, total: 4},
		{name: "page", query: "_page=2&_limit=3", want: []string{"d"}, total: 4},
		{name: "slice start end", query: "_start=1&_end=3", want: []string{"b", "c"}, total: 4},
		{name: "slice limit", query: "_start=2&_limit=5", want: []string{"c", "d"}, total: 4},
		{name: "page past end", query: "_page=9", want: []string{}, total: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := mustParse(t, tt.query).Apply(taskRecords())
			assert.Equal(t, tt.want, ids(page.Items))
			assert.Equal(t, tt.total, page.Total)
		})
	}
}

func TestQueryPagination(t *testing.T) {
	page := mustParse(t, "_page=1").Apply(taskRecords())
	require.NotNil(t, page.Pagination)
	assert.Equal(t, Pagination{Page: 1, Limit: 10, Last: 1}, *page.Pagination)

	page = mustParse(t, "_page=2&_limit=3").Apply(taskRecords())
	require.NotNil(t, page.Pagination)
	assert.Equal(t, 2, page.Pagination.Last)

	page = mustParse(t, "_start=0&_end=2").Apply(taskRecords())
	assert.Nil(t, page.Pagination)
}

func TestParseQueryErrors(t *testing.T) {
	for _, raw := range []string{"_page=0", "_limit=abc", "_start=-1", "title_like=("} {
		values, err := url.ParseQuery(raw)
		require.NoError(t, err)
		_, err = ParseQuery(values)
		assert.Error(t, err, raw)
	}
}

func TestParseQueryRelations(t *testing.T) {
	q := mustParse(t, "_embed=sections,tasks&_expand=owner&_unknown=1")
	assert.Equal(t, []string{"sections", "tasks"}, q.Embed)
	assert.Equal(t, []string{"owner"}, q.Expand)
	assert.Empty(t, q.Filters)
}

func TestForeignKey(t *testing.T) {
	assert.Equal(t, "projectId", ForeignKey("projects"))
	assert.Equal(t, "taskId", ForeignKey("tasks"))
	assert.Equal(t, "userId", ForeignKey("users"))
}

func TestQueryHide(t *testing.T) {
	records := []Record{
		{"id": "a", "email": "a@x.com", "password": "$2a$04$abc"},
		{"id": "b", "email": "b@x.com", "password": "$2a$04$xyz"},
	}

	q := mustParse(t, "password_like=^%5C$2a%5C$04%5C$a&q=$2a&_sort=password&_order=desc").Hide("password")
	assert.Empty(t, ids(q.Apply(records).Items))

	q = mustParse(t, "password_like=^%5C$2a%5C$04%5C$a&_sort=password&_order=desc").Hide("password")
	assert.Equal(t, []string{"a", "b"}, ids(q.Apply(records).Items))

	q = mustParse(t, "password.x=1&q=b%40x").Hide("password")
	assert.Equal(t, []string{"b"}, ids(q.Apply(records).Items))

	q = mustParse(t, "password_like=xyz")
	assert.Equal(t, []string{"b"}, ids(q.Apply(records).Items))
}
