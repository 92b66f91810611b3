package domain

import (
	"time"

	"github.com/Clark-Hu/watchlist-tracker/internal/validator"
)

// ItemType classifies what kind of media a watchlist entry refers to.
type ItemType string

const (
	TypeMovie ItemType = "movie"
	TypeTV    ItemType = "tv"
	TypeAnime ItemType = "anime"
	TypeOther ItemType = "other"
)

// ItemTypes lists every accepted ItemType in display order.
var ItemTypes = []ItemType{TypeMovie, TypeTV, TypeAnime, TypeOther}

// Valid reports whether t is one of the enumerated item types.
func (t ItemType) Valid() bool {
	return validator.In(t, ItemTypes...)
}

// Status tracks how far the user got with an entry.
type Status string

const (
	StatusPlanToWatch Status = "plan_to_watch"
	StatusWatching    Status = "watching"
	StatusCompleted   Status = "completed"
	StatusOnHold      Status = "on_hold"
	StatusDropped     Status = "dropped"
)

// Statuses lists every accepted Status in display order.
var Statuses = []Status{StatusPlanToWatch, StatusWatching, StatusCompleted, StatusOnHold, StatusDropped}

// Valid reports whether s is one of the enumerated statuses.
func (s Status) Valid() bool {
	return validator.In(s, Statuses...)
}

// Label returns the human readable form of the status.
func (s Status) Label() string {
	switch s {
	case StatusPlanToWatch:
		return "Plan to Watch"
	case StatusWatching:
		return "Watching"
	case StatusCompleted:
		return "Completed"
	case StatusOnHold:
		return "On Hold"
	case StatusDropped:
		return "Dropped"
	default:
		return string(s)
	}
}

const (
	MinRating      = 0.0
	MaxRating      = 10.0
	MinReleaseYear = 1800
	// releaseYearLead is how many years past the current one a release may be announced.
	releaseYearLead = 5
)

// MaxReleaseYear returns the latest plausible release year relative to now.
func MaxReleaseYear(now time.Time) int {
	return now.Year() + releaseYearLead
}

// Item is a single watchlist entry.
type Item struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Type        ItemType  `json:"type"`
	Genre       string    `json:"genre,omitempty"`
	Status      Status    `json:"status"`
	Rating      float64   `json:"rating"`
	Notes       string    `json:"notes,omitempty"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	ReleaseYear *int      `json:"releaseYear,omitempty"`
	Bookmarked  bool      `json:"bookmarked"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ItemInput carries the caller-supplied fields for a new item. Nil pointers
// fall back to the schema defaults.
type ItemInput struct {
	Title       string    `json:"title"`
	Type        *ItemType `json:"type,omitempty"`
	Genre       string    `json:"genre,omitempty"`
	Status      *Status   `json:"status,omitempty"`
	Rating      *float64  `json:"rating,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	ReleaseYear *int      `json:"releaseYear,omitempty"`
	Bookmarked  bool      `json:"bookmarked,omitempty"`
}

// ItemPatch describes a partial update. A nil field is absent and left
// untouched; a non-nil field is applied even when it holds a zero value, so
// "" clears genre, notes and imageUrl, 0 sets the rating to zero and a zero
// releaseYear clears the year.
type ItemPatch struct {
	Title       *string   `json:"title,omitempty"`
	Type        *ItemType `json:"type,omitempty"`
	Genre       *string   `json:"genre,omitempty"`
	Status      *Status   `json:"status,omitempty"`
	Rating      *float64  `json:"rating,omitempty"`
	Notes       *string   `json:"notes,omitempty"`
	ImageURL    *string   `json:"imageUrl,omitempty"`
	ReleaseYear *int      `json:"releaseYear,omitempty"`
	Bookmarked  *bool     `json:"bookmarked,omitempty"`
}

// IsEmpty reports whether the patch carries no fields at all.
func (p ItemPatch) IsEmpty() bool {
	return p == ItemPatch{}
}

// DropFalsy returns a copy of p with present-but-empty text fields and a zero
// release year removed. Rating and Bookmarked are kept as supplied.
func (p ItemPatch) DropFalsy() ItemPatch {
	out := p
	if out.Title != nil && *out.Title == "" {
		out.Title = nil
	}
	if out.Type != nil && *out.Type == "" {
		out.Type = nil
	}
	if out.Genre != nil && *out.Genre == "" {
		out.Genre = nil
	}
	if out.Status != nil && *out.Status == "" {
		out.Status = nil
	}
	if out.Notes != nil && *out.Notes == "" {
		out.Notes = nil
	}
	if out.ImageURL != nil && *out.ImageURL == "" {
		out.ImageURL = nil
	}
	if out.ReleaseYear != nil && *out.ReleaseYear == 0 {
		out.ReleaseYear = nil
	}
	return out
}
