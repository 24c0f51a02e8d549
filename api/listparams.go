package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/clearmind/redsheet/listquery"
)

const (
	defaultPageSize = 25
	maxPageSize     = 100
)

// parseListQuery maps a list endpoint's URL parameters onto a
// listquery.Query. dimensions names the categorical filter parameters the
// endpoint accepts; repeated values OR within a dimension. Missing or
// invalid values fall back to defaults — list parsing never fails.
func parseListQuery(r *http.Request, dimensions ...string) listquery.Query {
	q := r.URL.Query()

	query := listquery.Query{
		Text:     q.Get("q"),
		Page:     1,
		PageSize: defaultPageSize,
	}

	if v := q.Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			query.Page = n
		}
	}
	if v := q.Get("page_size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			query.PageSize = n
		}
	}
	if query.PageSize > maxPageSize {
		query.PageSize = maxPageSize
	}

	if key := q.Get("sort"); key != "" {
		dir := listquery.Ascending
		if q.Get("dir") == string(listquery.Descending) {
			dir = listquery.Descending
		}
		query.Sort = listquery.Sort{Key: key, Direction: dir}
	}

	if from, to := parseTimeParam(q.Get("from")), parseTimeParam(q.Get("to")); from != nil || to != nil {
		query.Range = &listquery.DateRange{From: from, To: to}
	}

	for _, dim := range dimensions {
		if values, ok := q[dim]; ok && len(values) > 0 {
			if query.Filters == nil {
				query.Filters = make(map[string][]string)
			}
			query.Filters[dim] = values
		}
	}

	return query
}

func parseTimeParam(v string) *time.Time {
	if v == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		// Date-only bounds are accepted too.
		t, err = time.Parse("2006-01-02", v)
		if err != nil {
			return nil
		}
	}
	return &t
}
