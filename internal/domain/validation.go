package domain

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/Clark-Hu/watchlist-tracker/internal/validator"
)

// ValidationError reports field-level problems with an item payload.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for key := range e.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", key, e.Fields[key]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func validationResult(v *validator.Validator) error {
	if v.Valid() {
		return nil
	}
	return &ValidationError{Fields: v.Errors}
}

// NewItem normalizes in, applies schema defaults and validates the result.
// The returned item has no ID or CreatedAt; the repository assigns both.
func (in ItemInput) NewItem(now time.Time) (Item, error) {
	item := Item{
		Title:      strings.TrimSpace(in.Title),
		Type:       TypeMovie,
		Genre:      strings.TrimSpace(in.Genre),
		Status:     StatusPlanToWatch,
		Notes:      strings.TrimSpace(in.Notes),
		ImageURL:   strings.TrimSpace(in.ImageURL),
		Bookmarked: in.Bookmarked,
	}
	if in.Type != nil {
		item.Type = *in.Type
	}
	if in.Status != nil {
		item.Status = *in.Status
	}
	if in.Rating != nil {
		item.Rating = *in.Rating
	}
	if in.ReleaseYear != nil && *in.ReleaseYear != 0 {
		year := *in.ReleaseYear
		item.ReleaseYear = &year
	}

	v := validator.New()
	ValidateItem(v, item, now)
	if err := validationResult(v); err != nil {
		return Item{}, err
	}
	return item, nil
}

// ValidateItem checks every schema invariant of a fully populated item.
func ValidateItem(v *validator.Validator, item Item, now time.Time) {
	v.Check(item.Title != "", "title", "must be provided")
	v.Check(item.Type.Valid(), "type", fmt.Sprintf("must be one of %s", joinTypes()))
	v.Check(item.Status.Valid(), "status", fmt.Sprintf("must be one of %s", joinStatuses()))
	checkRating(v, item.Rating)
	if item.ImageURL != "" {
		checkImageURL(v, item.ImageURL)
	}
	if item.ReleaseYear != nil {
		checkReleaseYear(v, *item.ReleaseYear, now)
	}
}

// Normalize trims the present text fields of p and validates every present
// field. Absent fields are not checked.
func (p ItemPatch) Normalize(now time.Time) (ItemPatch, error) {
	out := p
	v := validator.New()

	if out.Title != nil {
		title := strings.TrimSpace(*out.Title)
		out.Title = &title
		v.Check(title != "", "title", "must not be empty")
	}
	if out.Type != nil {
		v.Check(out.Type.Valid(), "type", fmt.Sprintf("must be one of %s", joinTypes()))
	}
	if out.Genre != nil {
		genre := strings.TrimSpace(*out.Genre)
		out.Genre = &genre
	}
	if out.Status != nil {
		v.Check(out.Status.Valid(), "status", fmt.Sprintf("must be one of %s", joinStatuses()))
	}
	if out.Rating != nil {
		checkRating(v, *out.Rating)
	}
	if out.Notes != nil {
		notes := strings.TrimSpace(*out.Notes)
		out.Notes = &notes
	}
	if out.ImageURL != nil {
		imageURL := strings.TrimSpace(*out.ImageURL)
		out.ImageURL = &imageURL
		if imageURL != "" {
			checkImageURL(v, imageURL)
		}
	}
	if out.ReleaseYear != nil && *out.ReleaseYear != 0 {
		checkReleaseYear(v, *out.ReleaseYear, now)
	}

	if err := validationResult(v); err != nil {
		return ItemPatch{}, err
	}
	return out, nil
}

func checkRating(v *validator.Validator, rating float64) {
	v.Check(rating >= MinRating && rating <= MaxRating, "rating", "must be between 0 and 10")
}

func checkReleaseYear(v *validator.Validator, year int, now time.Time) {
	max := MaxReleaseYear(now)
	v.Check(year >= MinReleaseYear && year <= max, "releaseYear",
		fmt.Sprintf("must be between %d and %d", MinReleaseYear, max))
}

func checkImageURL(v *validator.Validator, raw string) {
	u, err := url.ParseRequestURI(raw)
	v.Check(err == nil && validator.In(strings.ToLower(u.Scheme), "http", "https") && u.Host != "",
		"imageUrl", "must be an absolute http or https URL")
}

func joinTypes() string {
	names := make([]string, 0, len(ItemTypes))
	for _, t := range ItemTypes {
		names = append(names, string(t))
	}
	return strings.Join(names, ", ")
}

func joinStatuses() string {
	names := make([]string, 0, len(Statuses))
	for _, s := range Statuses {
		names = append(names, string(s))
	}
	return strings.Join(names, ", ")
}
