// Package listquery derives the visible page of a list screen from a raw
// collection and its filter state: free-text search, categorical filters,
// an optional date range, a stable sort, and pagination. The same engine
// backs every list view (logs, payloads, targets, boxes, tools).
//
// The engine is total: any collection and any query produce a result, never
// an error. It performs no I/O and holds no state of its own.
package listquery

import (
	"sort"
	"strings"
	"time"

	"github.com/clearmind/redsheet/internal/util"
)

// All is the sentinel filter value meaning "no constraint on this
// dimension". An empty active set means the same thing.
const All = "All"

// TimestampKey is the sort key that orders Timestamped items by event time.
const TimestampKey = "timestamp"

// DefaultPageSize is used when a query does not set one.
const DefaultPageSize = 25

// Item is the contract a record must satisfy to be filterable and sortable.
type Item interface {
	// SearchText returns the fields covered by free-text search.
	SearchText() []string
	// Field returns the item's value for a filter/sort dimension, or ""
	// when the dimension does not apply.
	Field(dimension string) string
}

// Timestamped items participate in date-range filtering and time-ordered
// sorting.
type Timestamped interface {
	EventTime() time.Time
}

// Direction orders a sort ascending or descending.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// Sort selects a sort key and direction. A zero Sort preserves input order.
type Sort struct {
	Key       string    `json:"key"`
	Direction Direction `json:"direction"`
}

// Toggle returns the sort resulting from selecting key: ascending on a new
// key, flipped direction on a repeated key.
func (s Sort) Toggle(key string) Sort {
	if s.Key == key && s.Direction == Ascending {
		return Sort{Key: key, Direction: Descending}
	}
	return Sort{Key: key, Direction: Ascending}
}

// DateRange bounds Timestamped items inclusively. A nil bound is unbounded
// on that side.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

func (r DateRange) contains(t time.Time) bool {
	if r.From != nil && t.Before(*r.From) {
		return false
	}
	if r.To != nil && t.After(*r.To) {
		return false
	}
	return true
}

// Query is the complete filter state applied to a collection.
type Query struct {
	// Text is matched case-insensitively as a substring of any search
	// field. Empty matches everything.
	Text string
	// Filters maps a dimension to its active values. Within a dimension
	// values combine with OR; dimensions combine with AND. An empty set
	// or one containing All imposes no constraint.
	Filters map[string][]string
	// Range restricts Timestamped items to an inclusive window.
	Range *DateRange
	// Sort orders the filtered set before pagination.
	Sort Sort
	// Page is 1-based and clamped to the available pages.
	Page int
	// PageSize defaults to DefaultPageSize when zero or negative.
	PageSize int
}

// Result is one page of a filtered, sorted collection.
type Result[T Item] struct {
	// Items is the page slice.
	Items []T
	// Page is the page actually returned after clamping.
	Page int
	// TotalPages is at least 1, even for an empty filtered set.
	TotalPages int
	// FilteredCount is the size of the filtered set across all pages.
	FilteredCount int
}

// Apply filters, sorts, and paginates items according to q.
func Apply[T Item](items []T, q Query) Result[T] {
	filtered := filter(items, q)

	if q.Sort.Key != "" {
		sortItems(filtered, q.Sort)
	}

	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	totalPages := (len(filtered) + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}

	page := q.Page
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if start > len(filtered) {
		start = len(filtered)
	}
	if end > len(filtered) {
		end = len(filtered)
	}

	return Result[T]{
		Items:         filtered[start:end],
		Page:          page,
		TotalPages:    totalPages,
		FilteredCount: len(filtered),
	}
}

func filter[T Item](items []T, q Query) []T {
	needle := util.NormalizeLower(strings.TrimSpace(q.Text))

	out := make([]T, 0, len(items))
	for _, item := range items {
		if needle != "" && !matchesText(item, needle) {
			continue
		}
		if !matchesFilters(item, q.Filters) {
			continue
		}
		if q.Range != nil {
			if ts, ok := any(item).(Timestamped); ok && !q.Range.contains(ts.EventTime()) {
				continue
			}
		}
		out = append(out, item)
	}
	return out
}

func matchesText(item Item, needle string) bool {
	for _, field := range item.SearchText() {
		if strings.Contains(util.NormalizeLower(field), needle) {
			return true
		}
	}
	return false
}

func matchesFilters(item Item, filters map[string][]string) bool {
	for dimension, active := range filters {
		if unconstrained(active) {
			continue
		}
		value := item.Field(dimension)
		found := false
		for _, v := range active {
			if v == value {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func unconstrained(active []string) bool {
	if len(active) == 0 {
		return true
	}
	for _, v := range active {
		if v == All {
			return true
		}
	}
	return false
}

func sortItems[T Item](items []T, spec Sort) {
	desc := spec.Direction == Descending
	sort.SliceStable(items, func(i, j int) bool {
		if desc {
			return itemLess(items[j], items[i], spec.Key)
		}
		return itemLess(items[i], items[j], spec.Key)
	})
}

func itemLess(a, b Item, key string) bool {
	if key == TimestampKey {
		ta, okA := any(a).(Timestamped)
		tb, okB := any(b).(Timestamped)
		if okA && okB {
			return ta.EventTime().Before(tb.EventTime())
		}
	}
	return util.NormalizeLower(a.Field(key)) < util.NormalizeLower(b.Field(key))
}
