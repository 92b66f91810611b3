package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/watchlist-tracker/internal/domain"
)

// ItemsRepository persists watchlist items in Postgres.
type ItemsRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

const itemColumns = `
    id,
    title,
    type,
    genre,
    status,
    rating,
    notes,
    image_url,
    release_year,
    bookmarked,
    created_at
`

// List returns every item, newest first.
func (r *ItemsRepository) List(ctx context.Context) ([]domain.Item, error) {
	query := fmt.Sprintf(`SELECT %s FROM watchlist_items ORDER BY created_at DESC, id DESC`, itemColumns)
	return r.queryItems(ctx, query)
}

// ListBookmarked returns bookmarked items, newest first.
func (r *ItemsRepository) ListBookmarked(ctx context.Context) ([]domain.Item, error) {
	query := fmt.Sprintf(`SELECT %s FROM watchlist_items WHERE bookmarked ORDER BY created_at DESC, id DESC`, itemColumns)
	return r.queryItems(ctx, query)
}

// GetByID fetches an item by its identifier.
func (r *ItemsRepository) GetByID(ctx context.Context, id string) (domain.Item, error) {
	key, err := parseID(id)
	if err != nil {
		return domain.Item{}, err
	}
	query := fmt.Sprintf(`SELECT %s FROM watchlist_items WHERE id = $1`, itemColumns)
	return notFoundOnNoRows(scanItem(r.pool.QueryRow(ctx, query, key)))
}

// Create validates input, assigns id and createdAt and inserts the row.
func (r *ItemsRepository) Create(ctx context.Context, input domain.ItemInput) (domain.Item, error) {
	item, err := newItem(input, r.now())
	if err != nil {
		return domain.Item{}, err
	}

	query := fmt.Sprintf(`
        INSERT INTO watchlist_items (id, title, type, genre, status, rating, notes, image_url, release_year, bookmarked, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING %s
    `, itemColumns)

	row := r.pool.QueryRow(ctx, query,
		item.ID,
		item.Title,
		string(item.Type),
		item.Genre,
		string(item.Status),
		item.Rating,
		item.Notes,
		item.ImageURL,
		item.ReleaseYear,
		item.Bookmarked,
		item.CreatedAt,
	)
	created, err := scanItem(row)
	if err != nil {
		return domain.Item{}, fmt.Errorf("insert item: %w", err)
	}
	return created, nil
}

// Update applies the present fields of patch in a single statement.
func (r *ItemsRepository) Update(ctx context.Context, id string, patch domain.ItemPatch) (domain.Item, error) {
	key, err := parseID(id)
	if err != nil {
		return domain.Item{}, err
	}
	patch, err = patch.Normalize(r.now())
	if err != nil {
		return domain.Item{}, err
	}
	args := newPatchArgs(patch)

	query := fmt.Sprintf(`
        UPDATE watchlist_items
        SET title = COALESCE($2, title),
            type = COALESCE($3, type),
            genre = COALESCE($4, genre),
            status = COALESCE($5, status),
            rating = COALESCE($6, rating),
            notes = COALESCE($7, notes),
            image_url = COALESCE($8, image_url),
            release_year = CASE WHEN $9::boolean THEN $10::integer ELSE release_year END,
            bookmarked = COALESCE($11, bookmarked)
        WHERE id = $1
        RETURNING %s
    `, itemColumns)

	row := r.pool.QueryRow(ctx, query,
		key,
		args.title,
		args.itemType,
		args.genre,
		args.status,
		args.rating,
		args.notes,
		args.imageURL,
		args.setYear,
		args.releaseYear,
		args.bookmarked,
	)
	return notFoundOnNoRows(scanItem(row))
}

// ToggleBookmark flips the bookmarked flag. The read and the write happen in
// one statement, so concurrent toggles never lose a flip.
func (r *ItemsRepository) ToggleBookmark(ctx context.Context, id string) (domain.Item, error) {
	key, err := parseID(id)
	if err != nil {
		return domain.Item{}, err
	}
	query := fmt.Sprintf(`
        UPDATE watchlist_items
        SET bookmarked = NOT bookmarked
        WHERE id = $1
        RETURNING %s
    `, itemColumns)
	return notFoundOnNoRows(scanItem(r.pool.QueryRow(ctx, query, key)))
}

// Delete removes the item permanently.
func (r *ItemsRepository) Delete(ctx context.Context, id string) error {
	key, err := parseID(id)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM watchlist_items WHERE id = $1`, key)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ItemsRepository) queryItems(ctx context.Context, query string, args ...any) ([]domain.Item, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func scanItem(row pgx.Row) (domain.Item, error) {
	var (
		item        domain.Item
		itemType    string
		status      string
		releaseYear *int
		createdAt   time.Time
	)

	err := row.Scan(
		&item.ID,
		&item.Title,
		&itemType,
		&item.Genre,
		&status,
		&item.Rating,
		&item.Notes,
		&item.ImageURL,
		&releaseYear,
		&item.Bookmarked,
		&createdAt,
	)
	if err != nil {
		return domain.Item{}, err
	}

	item.Type = domain.ItemType(itemType)
	item.Status = domain.Status(status)
	item.ReleaseYear = releaseYear
	item.CreatedAt = createdAt.UTC()
	return item, nil
}

func notFoundOnNoRows(item domain.Item, err error) (domain.Item, error) {
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Item{}, ErrNotFound
		}
		return domain.Item{}, err
	}
	return item, nil
}
