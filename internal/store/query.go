package store

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Op is a filter comparison, taken from the query key suffix.
type Op string

const (
	OpEq   Op = ""
	OpNe   Op = "_ne"
	OpLt   Op = "_lt"
	OpLte  Op = "_lte"
	OpGt   Op = "_gt"
	OpGte  Op = "_gte"
	OpLike Op = "_like"
)

var suffixOps = []Op{OpLte, OpGte, OpLike, OpNe, OpLt, OpGt}

const defaultPageLimit = 10

// Filter matches records whose value at Path satisfies Op against any of Values.
type Filter struct {
	Path   string
	Op     Op
	Values []string
}

type SortKey struct {
	Path string
	Desc bool
}

// Query is a parsed json-server style list query.
type Query struct {
	Filters []Filter
	Search  string
	Sort    []SortKey

	Page  int
	Limit int
	Start int
	End   int

	Embed  []string
	Expand []string

	// Hidden top-level fields take no part in filtering, search or sorting.
	Hidden []string
}

// Where adds an equality filter and returns the query for chaining.
func (q Query) Where(path string, value string) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), Filter{Path: path, Values: []string{value}})
	return q
}

// Hide excludes fields from filters, search and sort keys.
func (q Query) Hide(fields ...string) Query {
	q.Hidden = append(append([]string(nil), q.Hidden...), fields...)
	return q
}

func (q Query) hidden(path string) bool {
	top, _, _ := strings.Cut(path, ".")
	for _, h := range q.Hidden {
		if h == top {
			return true
		}
	}
	return false
}

// ParseQuery builds a Query from URL query values. Reserved keys start with
// an underscore; everything else is a filter.
func ParseQuery(values url.Values) (Query, error) {
	var q Query
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		vals := values[key]
		last := ""
		if len(vals) > 0 {
			last = vals[len(vals)-1]
		}
		var err error
		switch key {
		case "q":
			q.Search = strings.TrimSpace(last)
		case "_sort":
			q.Sort = parseSort(last, values.Get("_order"))
		case "_order":
		case "_page":
			q.Page, err = positiveInt(key, last)
		case "_limit":
			q.Limit, err = positiveInt(key, last)
		case "_start":
			q.Start, err = nonNegativeInt(key, last)
		case "_end":
			q.End, err = positiveInt(key, last)
		case "_embed":
			q.Embed = splitList(vals)
		case "_expand":
			q.Expand = splitList(vals)
		default:
			if strings.HasPrefix(key, "_") {
				continue
			}
			path, op := splitOp(key)
			if op == OpLike {
				for _, v := range vals {
					if _, err := regexp.Compile("(?i)" + v); err != nil {
						return Query{}, fmt.Errorf("invalid %s pattern %q: %w", key, v, err)
					}
				}
			}
			q.Filters = append(q.Filters, Filter{Path: path, Op: op, Values: vals})
		}
		if err != nil {
			return Query{}, err
		}
	}
	return q, nil
}

func splitOp(key string) (string, Op) {
	for _, op := range suffixOps {
		if strings.HasSuffix(key, string(op)) && len(key) > len(op) {
			return strings.TrimSuffix(key, string(op)), op
		}
	}
	return key, OpEq
}

func parseSort(fields, orders string) []SortKey {
	names := strings.Split(fields, ",")
	dirs := strings.Split(orders, ",")
	keys := make([]SortKey, 0, len(names))
	for i, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		desc := false
		if i < len(dirs) {
			desc = strings.EqualFold(strings.TrimSpace(dirs[i]), "desc")
		}
		keys = append(keys, SortKey{Path: name, Desc: desc})
	}
	return keys
}

func splitList(vals []string) []string {
	var out []string
	for _, v := range vals {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func positiveInt(key, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%s must be a positive integer", key)
	}
	return n, nil
}

func nonNegativeInt(key, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", key)
	}
	return n, nil
}

// Apply filters, searches, sorts and paginates records. It does not copy.
func (q Query) Apply(records []Record) Page {
	matched := make([]Record, 0, len(records))
	for _, r := range records {
		if q.matches(r) {
			matched = append(matched, r)
		}
	}

	if len(q.Sort) > 0 {
		sort.SliceStable(matched, func(i, j int) bool {
			for _, key := range q.Sort {
				if q.hidden(key.Path) {
					continue
				}
				c := compareValues(lookup(matched[i], key.Path), lookup(matched[j], key.Path))
				if c == 0 {
					continue
				}
				if key.Desc {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}

	page := Page{Total: len(matched)}
	start, end := 0, len(matched)
	switch {
	case q.Page > 0:
		limit := q.Limit
		if limit == 0 {
			limit = defaultPageLimit
		}
		start = (q.Page - 1) * limit
		end = start + limit
		last := (len(matched) + limit - 1) / limit
		if last == 0 {
			last = 1
		}
		page.Pagination = &Pagination{Page: q.Page, Limit: limit, Last: last}
	case q.Start > 0 || q.End > 0 || q.Limit > 0:
		start = q.Start
		switch {
		case q.End > 0:
			end = q.End
		case q.Limit > 0:
			end = start + q.Limit
		}
	}
	page.Items = window(matched, start, end)
	return page
}

func window(records []Record, start, end int) []Record {
	if start > len(records) {
		start = len(records)
	}
	if end > len(records) {
		end = len(records)
	}
	if end < start {
		end = start
	}
	return records[start:end]
}

func (q Query) matches(r Record) bool {
	for _, f := range q.Filters {
		if !q.hidden(f.Path) && !f.matches(r) {
			return false
		}
	}
	if q.Search == "" {
		return true
	}
	needle := strings.ToLower(q.Search)
	for key, v := range r {
		if !q.hidden(key) && containsText(v, needle) {
			return true
		}
	}
	return false
}

func (f Filter) matches(r Record) bool {
	v := lookup(r, f.Path)
	switch f.Op {
	case OpNe:
		for _, want := range f.Values {
			if valueEquals(v, want) {
				return false
			}
		}
		return true
	case OpEq:
		for _, want := range f.Values {
			if valueEquals(v, want) {
				return true
			}
		}
		return false
	case OpLike:
		for _, want := range f.Values {
			re, err := regexp.Compile("(?i)" + want)
			if err == nil && re.MatchString(stringOf(v)) {
				return true
			}
		}
		return false
	default:
		if v == nil {
			return false
		}
		for _, want := range f.Values {
			c := compareValues(v, parseScalar(want))
			ok := false
			switch f.Op {
			case OpLt:
				ok = c < 0
			case OpLte:
				ok = c <= 0
			case OpGt:
				ok = c > 0
			case OpGte:
				ok = c >= 0
			}
			if ok {
				return true
			}
		}
		return false
	}
}

// valueEquals compares a stored value with a query string. Arrays match when
// any element matches.
func valueEquals(v any, want string) bool {
	if arr, ok := v.([]any); ok {
		for _, el := range arr {
			if valueEquals(el, want) {
				return true
			}
		}
		return false
	}
	return stringOf(v) == want
}

func containsText(v any, needle string) bool {
	switch t := v.(type) {
	case map[string]any:
		for _, val := range t {
			if containsText(val, needle) {
				return true
			}
		}
	case []any:
		for _, val := range t {
			if containsText(val, needle) {
				return true
			}
		}
	case nil:
	default:
		return strings.Contains(strings.ToLower(stringOf(t)), needle)
	}
	return false
}

// lookup resolves a dotted path such as "meta.author".
func lookup(r Record, path string) any {
	var cur any = map[string]any(r)
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			if rec, isRec := cur.(Record); isRec {
				m = rec
			} else {
				return nil
			}
		}
		cur = m[part]
	}
	return cur
}

func parseScalar(s string) any {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// compareValues orders numbers numerically and everything else as strings.
// Missing values sort last.
func compareValues(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return 1
		default:
			return -1
		}
	}
	af, aNum := toFloat(a)
	bf, bNum := toFloat(b)
	if aNum && bNum {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	}
	return strings.Compare(stringOf(a), stringOf(b))
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	}
	return 0, false
}

func stringOf(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
