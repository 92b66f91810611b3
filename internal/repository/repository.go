package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/watchlist-tracker/internal/domain"
	"github.com/Clark-Hu/watchlist-tracker/internal/store"
)

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("repository: not found")

// ItemStore is the persistence contract for watchlist items. Every mutation
// is a single-row write.
type ItemStore interface {
	List(ctx context.Context) ([]domain.Item, error)
	ListBookmarked(ctx context.Context) ([]domain.Item, error)
	GetByID(ctx context.Context, id string) (domain.Item, error)
	Create(ctx context.Context, input domain.ItemInput) (domain.Item, error)
	Update(ctx context.Context, id string, patch domain.ItemPatch) (domain.Item, error)
	ToggleBookmark(ctx context.Context, id string) (domain.Item, error)
	Delete(ctx context.Context, id string) error
}

// Repository aggregates all domain-specific repositories.
type Repository struct {
	Items ItemStore
}

// Option customizes repository construction.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the clock used for createdAt and release-year checks.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New constructs a Repository backed by the Postgres store.
func New(st *store.Store, opts ...Option) *Repository {
	return NewWithPool(st.Pool(), opts...)
}

// NewWithPool allows constructing repositories directly from a pgx pool.
func NewWithPool(pool *pgxpool.Pool, opts ...Option) *Repository {
	o := buildOptions(opts)
	return &Repository{
		Items: &ItemsRepository{pool: pool, now: o.now},
	}
}

// NewSQLite constructs a Repository backed by the SQLite store.
func NewSQLite(st *store.SQLite, opts ...Option) *Repository {
	return NewWithDB(st.DB(), opts...)
}

// NewWithDB constructs repositories over a database/sql handle opened with
// the sqlite3 driver.
func NewWithDB(db *sql.DB, opts ...Option) *Repository {
	o := buildOptions(opts)
	return &Repository{
		Items: &SQLiteItemsRepository{db: db, now: o.now},
	}
}

// parseID canonicalizes an item id. Anything that is not a UUID cannot name
// an item and is reported as ErrNotFound.
func parseID(id string) (string, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", ErrNotFound
	}
	return parsed.String(), nil
}

// newItem validates input and stamps the server-assigned fields.
func newItem(input domain.ItemInput, now time.Time) (domain.Item, error) {
	item, err := input.NewItem(now)
	if err != nil {
		return domain.Item{}, err
	}
	item.ID = uuid.NewString()
	item.CreatedAt = now.UTC().Truncate(time.Microsecond)
	return item, nil
}

// patchArgs flattens a patch into nullable column values.
type patchArgs struct {
	title       *string
	itemType    *string
	genre       *string
	status      *string
	rating      *float64
	notes       *string
	imageURL    *string
	setYear     bool
	releaseYear *int
	bookmarked  *bool
}

func newPatchArgs(p domain.ItemPatch) patchArgs {
	args := patchArgs{
		title:      p.Title,
		genre:      p.Genre,
		rating:     p.Rating,
		notes:      p.Notes,
		imageURL:   p.ImageURL,
		bookmarked: p.Bookmarked,
	}
	if p.Type != nil {
		v := string(*p.Type)
		args.itemType = &v
	}
	if p.Status != nil {
		v := string(*p.Status)
		args.status = &v
	}
	if p.ReleaseYear != nil {
		args.setYear = true
		if *p.ReleaseYear != 0 {
			year := *p.ReleaseYear
			args.releaseYear = &year
		}
	}
	return args
}
