package listview

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/Clark-Hu/watchlist-tracker/internal/domain"
)

// SortKey names an ordering of a list view.
type SortKey string

const (
	SortNewest     SortKey = "newest"
	SortOldest     SortKey = "oldest"
	SortTitleAsc   SortKey = "title_asc"
	SortTitleDesc  SortKey = "title_desc"
	SortRatingHigh SortKey = "rating_high"
	SortRatingLow  SortKey = "rating_low"
)

// SortKeys lists the known sort keys in menu order.
var SortKeys = []SortKey{SortNewest, SortOldest, SortTitleAsc, SortTitleDesc, SortRatingHigh, SortRatingLow}

// Label returns the menu text for k.
func (k SortKey) Label() string {
	switch k {
	case SortNewest:
		return "Newest First"
	case SortOldest:
		return "Oldest First"
	case SortTitleAsc:
		return "Title (A-Z)"
	case SortTitleDesc:
		return "Title (Z-A)"
	case SortRatingHigh:
		return "Rating (High to Low)"
	case SortRatingLow:
		return "Rating (Low to High)"
	default:
		return string(k)
	}
}

// sortItems orders items in place. Every ordering is stable, so items that
// compare equal keep their incoming order. Unknown keys leave items as is.
func sortItems(items []domain.Item, key SortKey) {
	var compare func(a, b domain.Item) int
	switch key {
	case SortNewest:
		compare = func(a, b domain.Item) int { return b.CreatedAt.Compare(a.CreatedAt) }
	case SortOldest:
		compare = func(a, b domain.Item) int { return a.CreatedAt.Compare(b.CreatedAt) }
	case SortTitleAsc:
		c := collate.New(language.English)
		compare = func(a, b domain.Item) int { return c.CompareString(a.Title, b.Title) }
	case SortTitleDesc:
		c := collate.New(language.English)
		compare = func(a, b domain.Item) int { return c.CompareString(b.Title, a.Title) }
	case SortRatingHigh:
		compare = func(a, b domain.Item) int { return cmp.Compare(b.Rating, a.Rating) }
	case SortRatingLow:
		compare = func(a, b domain.Item) int { return cmp.Compare(a.Rating, b.Rating) }
	default:
		return
	}
	slices.SortStableFunc(items, compare)
}

// ParseSort validates a sort key typed by a user. Empty input selects newest.
func ParseSort(raw string) (SortKey, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return SortNewest, nil
	}
	key := SortKey(raw)
	if slices.Contains(SortKeys, key) {
		return key, nil
	}
	return "", fmt.Errorf("unknown sort %q: must be one of %s", raw, joinKeys(SortKeys))
}

// ParseStatusFilter validates a status filter. Empty input and "all" disable
// the filter.
func ParseStatusFilter(raw string) (domain.Status, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" || raw == FilterAll {
		return FilterAll, nil
	}
	status := domain.Status(raw)
	if !status.Valid() {
		return "", fmt.Errorf("unknown status %q: must be all or one of %s", raw, joinKeys(domain.Statuses))
	}
	return status, nil
}

// ParseTypeFilter validates a type filter. Empty input and "all" disable the
// filter.
func ParseTypeFilter(raw string) (domain.ItemType, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" || raw == FilterAll {
		return FilterAll, nil
	}
	itemType := domain.ItemType(raw)
	if !itemType.Valid() {
		return "", fmt.Errorf("unknown type %q: must be all or one of %s", raw, joinKeys(domain.ItemTypes))
	}
	return itemType, nil
}

func joinKeys[T ~string](keys []T) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = string(k)
	}
	return strings.Join(parts, ", ")
}
