package listview

import (
	"fmt"
	"slices"
	"sync"

	"github.com/Clark-Hu/watchlist-tracker/internal/domain"
)

// List is the client's copy of the items held by the server. After each
// successful mutation the caller either refetches and calls Replace, or
// merges the returned item with Upsert or Remove.
type List struct {
	mu    sync.RWMutex
	items []domain.Item
}

// NewList returns a list seeded with a copy of items.
func NewList(items []domain.Item) *List {
	l := &List{}
	l.Replace(items)
	return l
}

// Replace swaps the whole base list, typically after a refetch.
func (l *List) Replace(items []domain.Item) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = slices.Clone(items)
}

// Upsert replaces the item with the same id, or prepends item when the id is
// new, matching the server's newest-first order.
func (l *List) Upsert(item domain.Item) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i := l.index(item.ID); i >= 0 {
		l.items[i] = item
		return
	}
	l.items = slices.Insert(l.items, 0, item)
}

// Remove drops the item with id and reports whether it was present.
func (l *List) Remove(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.index(id)
	if i < 0 {
		return false
	}
	l.items = slices.Delete(l.items, i, i+1)
	return true
}

// SyncBookmark merges a toggled item into a bookmarks-only list: a
// bookmarked item is upserted, an unbookmarked one disappears.
func (l *List) SyncBookmark(item domain.Item) {
	if item.Bookmarked {
		l.Upsert(item)
		return
	}
	l.Remove(item.ID)
}

// Items returns a copy of the base list.
func (l *List) Items() []domain.Item {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.items)
}

// Len returns the number of items in the base list.
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

func (l *List) index(id string) int {
	return slices.IndexFunc(l.items, func(item domain.Item) bool { return item.ID == id })
}

// Stats counts the projected items against the base list.
type Stats struct {
	Shown int
	Total int
}

func (s Stats) String() string {
	return fmt.Sprintf("Showing %d of %d items", s.Shown, s.Total)
}

// View pairs a list with the query the user is looking at it through.
type View struct {
	list  *List
	Query Query
}

// NewView returns a view of list under q.
func NewView(list *List, q Query) *View {
	return &View{list: list, Query: q}
}

// Items recomputes the projection from the current base list.
func (v *View) Items() []domain.Item {
	return Apply(v.list.Items(), v.Query)
}

// Stats reports how many items the current query shows.
func (v *View) Stats() Stats {
	base := v.list.Items()
	return Stats{Shown: len(Apply(base, v.Query)), Total: len(base)}
}

// ClearFilters resets the query to DefaultQuery.
func (v *View) ClearFilters() {
	v.Query = DefaultQuery()
}
