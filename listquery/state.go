package listquery

// State tracks a list screen's filter state. Every filter mutation resets
// the page to 1 so an out-of-range page is never shown after a change; the
// page moves only through SetPage.
type State struct {
	query Query
}

// NewState creates filter state with the screen's fixed page size.
func NewState(pageSize int) *State {
	return &State{query: Query{Page: 1, PageSize: pageSize}}
}

// SetText replaces the free-text query and resets to page 1.
func (s *State) SetText(text string) {
	s.query.Text = text
	s.query.Page = 1
}

// SetFilter replaces the active values for one dimension and resets to
// page 1. Passing no values clears the dimension's constraint.
func (s *State) SetFilter(dimension string, values ...string) {
	if s.query.Filters == nil {
		s.query.Filters = make(map[string][]string)
	}
	if len(values) == 0 {
		delete(s.query.Filters, dimension)
	} else {
		s.query.Filters[dimension] = append([]string(nil), values...)
	}
	s.query.Page = 1
}

// SetRange replaces the date range and resets to page 1.
func (s *State) SetRange(r *DateRange) {
	s.query.Range = r
	s.query.Page = 1
}

// ToggleSort selects a sort key: ascending when the key changes, flipped
// direction when repeated. Sorting keeps the current page.
func (s *State) ToggleSort(key string) {
	s.query.Sort = s.query.Sort.Toggle(key)
}

// SetPage moves to the given page. Out-of-range values are clamped by Apply.
func (s *State) SetPage(page int) {
	if page < 1 {
		page = 1
	}
	s.query.Page = page
}

// Snapshot returns a copy of the current query, safe to hold across further
// mutations.
func (s *State) Snapshot() Query {
	q := s.query
	if s.query.Filters != nil {
		q.Filters = make(map[string][]string, len(s.query.Filters))
		for dim, values := range s.query.Filters {
			q.Filters[dim] = append([]string(nil), values...)
		}
	}
	return q
}
