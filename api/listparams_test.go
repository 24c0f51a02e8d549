package api

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearmind/redsheet/listquery"
)

func TestParseListQueryDefaults(t *testing.T) {
	r := httptest.NewRequest("GET", "/payloads", nil)
	q := parseListQuery(r, "category")

	assert.Empty(t, q.Text)
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, defaultPageSize, q.PageSize)
	assert.Empty(t, q.Sort.Key)
	assert.Nil(t, q.Range)
	assert.Nil(t, q.Filters)
}

func TestParseListQueryFull(t *testing.T) {
	r := httptest.NewRequest("GET",
		"/payloads?q=alert&page=3&page_size=50&sort=name&dir=desc"+
			"&category=xss&category=sqli&severity=high&from=2026-01-01&to=2026-02-01T12:00:00Z", nil)
	q := parseListQuery(r, "category", "severity")

	assert.Equal(t, "alert", q.Text)
	assert.Equal(t, 3, q.Page)
	assert.Equal(t, 50, q.PageSize)
	assert.Equal(t, listquery.Sort{Key: "name", Direction: listquery.Descending}, q.Sort)
	assert.Equal(t, []string{"xss", "sqli"}, q.Filters["category"])
	assert.Equal(t, []string{"high"}, q.Filters["severity"])

	require.NotNil(t, q.Range)
	require.NotNil(t, q.Range.From)
	require.NotNil(t, q.Range.To)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), *q.Range.From)
	assert.Equal(t, time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC), *q.Range.To)
}

func TestParseListQueryIgnoresUnknownDimensions(t *testing.T) {
	r := httptest.NewRequest("GET", "/payloads?status=owned&category=xss", nil)
	q := parseListQuery(r, "category")

	assert.Equal(t, []string{"xss"}, q.Filters["category"])
	_, hasStatus := q.Filters["status"]
	assert.False(t, hasStatus)
}

func TestParseListQueryNeverFails(t *testing.T) {
	cases := []string{
		"/x?page=-1",
		"/x?page=zero",
		"/x?page_size=0",
		"/x?page_size=huge",
		"/x?dir=sideways&sort=name",
		"/x?from=yesterday",
	}
	for _, url := range cases {
		q := parseListQuery(httptest.NewRequest("GET", url, nil))
		assert.GreaterOrEqual(t, q.Page, 1, "url %s", url)
		assert.GreaterOrEqual(t, q.PageSize, 1, "url %s", url)
	}
}

func TestParseListQueryClampsPageSize(t *testing.T) {
	r := httptest.NewRequest("GET", "/x?page_size=5000", nil)
	q := parseListQuery(r)
	assert.Equal(t, maxPageSize, q.PageSize)
}

func TestParseListQuerySortDirectionDefaultsAscending(t *testing.T) {
	r := httptest.NewRequest("GET", "/x?sort=name", nil)
	q := parseListQuery(r)
	assert.Equal(t, listquery.Ascending, q.Sort.Direction)
}
