// Package listview projects a client-held list of watchlist items through
// search, status and type filters and a sort order. Projections are pure:
// the base slice is never modified and nothing is cached between calls.
package listview

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/Clark-Hu/watchlist-tracker/internal/domain"
)

// FilterAll disables the status or type filter.
const FilterAll = "all"

// Query is the user-controlled part of a list view.
type Query struct {
	Search string
	Status domain.Status
	Type   domain.ItemType
	Sort   SortKey
}

// DefaultQuery is the state a view resets to when its filters are cleared.
func DefaultQuery() Query {
	return Query{
		Status: FilterAll,
		Type:   FilterAll,
		Sort:   SortNewest,
	}
}

// IsDefault reports whether q filters nothing and uses the default order.
func (q Query) IsDefault() bool {
	return q.Search == "" && allStatuses(q.Status) && allTypes(q.Type) &&
		(q.Sort == SortNewest || q.Sort == "")
}

// Apply filters base by q and sorts the survivors. Filters are conjunctive.
func Apply(base []domain.Item, q Query) []domain.Item {
	m := newMatcher(q.Search)
	out := make([]domain.Item, 0, len(base))
	for _, item := range base {
		if !m.match(item) {
			continue
		}
		if !allStatuses(q.Status) && item.Status != q.Status {
			continue
		}
		if !allTypes(q.Type) && item.Type != q.Type {
			continue
		}
		out = append(out, item)
	}
	sortItems(out, q.Sort)
	return out
}

func allStatuses(s domain.Status) bool {
	return s == "" || s == FilterAll
}

func allTypes(t domain.ItemType) bool {
	return t == "" || t == FilterAll
}

// matcher does case-insensitive substring search over title, genre and notes.
type matcher struct {
	needle string
	fold   cases.Caser
}

func newMatcher(search string) *matcher {
	if search == "" {
		return &matcher{}
	}
	fold := cases.Fold()
	return &matcher{needle: fold.String(search), fold: fold}
}

func (m *matcher) match(item domain.Item) bool {
	if m.needle == "" {
		return true
	}
	if m.contains(item.Title) {
		return true
	}
	if item.Genre != "" && m.contains(item.Genre) {
		return true
	}
	return item.Notes != "" && m.contains(item.Notes)
}

func (m *matcher) contains(field string) bool {
	return strings.Contains(m.fold.String(field), m.needle)
}
