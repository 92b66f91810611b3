package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Clark-Hu/watchlist-tracker/internal/domain"
)

// SQLiteItemsRepository persists watchlist items in a SQLite database.
// created_at is stored as unix microseconds.
type SQLiteItemsRepository struct {
	db  *sql.DB
	now func() time.Time
}

// List returns every item, newest first.
func (r *SQLiteItemsRepository) List(ctx context.Context) ([]domain.Item, error) {
	query := fmt.Sprintf(`SELECT %s FROM watchlist_items ORDER BY created_at DESC, id DESC`, itemColumns)
	return r.queryItems(ctx, query)
}

// ListBookmarked returns bookmarked items, newest first.
func (r *SQLiteItemsRepository) ListBookmarked(ctx context.Context) ([]domain.Item, error) {
	query := fmt.Sprintf(`SELECT %s FROM watchlist_items WHERE bookmarked = 1 ORDER BY created_at DESC, id DESC`, itemColumns)
	return r.queryItems(ctx, query)
}

// GetByID fetches an item by its identifier.
func (r *SQLiteItemsRepository) GetByID(ctx context.Context, id string) (domain.Item, error) {
	key, err := parseID(id)
	if err != nil {
		return domain.Item{}, err
	}
	query := fmt.Sprintf(`SELECT %s FROM watchlist_items WHERE id = ?1`, itemColumns)
	return notFoundOnSQLNoRows(scanSQLiteItem(r.db.QueryRowContext(ctx, query, key)))
}

// Create validates input, assigns id and createdAt and inserts the row.
func (r *SQLiteItemsRepository) Create(ctx context.Context, input domain.ItemInput) (domain.Item, error) {
	item, err := newItem(input, r.now())
	if err != nil {
		return domain.Item{}, err
	}

	query := fmt.Sprintf(`
        INSERT INTO watchlist_items (id, title, type, genre, status, rating, notes, image_url, release_year, bookmarked, created_at)
        VALUES (?1,?2,?3,?4,?5,?6,?7,?8,?9,?10,?11)
        RETURNING %s
    `, itemColumns)

	var releaseYear any
	if item.ReleaseYear != nil {
		releaseYear = *item.ReleaseYear
	}

	row := r.db.QueryRowContext(ctx, query,
		item.ID,
		item.Title,
		string(item.Type),
		item.Genre,
		string(item.Status),
		item.Rating,
		item.Notes,
		item.ImageURL,
		releaseYear,
		item.Bookmarked,
		item.CreatedAt.UnixMicro(),
	)
	created, err := scanSQLiteItem(row)
	if err != nil {
		return domain.Item{}, fmt.Errorf("insert item: %w", err)
	}
	return created, nil
}

// Update applies the present fields of patch in a single statement.
func (r *SQLiteItemsRepository) Update(ctx context.Context, id string, patch domain.ItemPatch) (domain.Item, error) {
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
        SET title = COALESCE(?2, title),
            type = COALESCE(?3, type),
            genre = COALESCE(?4, genre),
            status = COALESCE(?5, status),
            rating = COALESCE(?6, rating),
            notes = COALESCE(?7, notes),
            image_url = COALESCE(?8, image_url),
            release_year = CASE WHEN ?9 THEN ?10 ELSE release_year END,
            bookmarked = COALESCE(?11, bookmarked)
        WHERE id = ?1
        RETURNING %s
    `, itemColumns)

	row := r.db.QueryRowContext(ctx, query,
		key,
		nullString(args.title),
		nullString(args.itemType),
		nullString(args.genre),
		nullString(args.status),
		nullFloat(args.rating),
		nullString(args.notes),
		nullString(args.imageURL),
		args.setYear,
		nullInt(args.releaseYear),
		nullBool(args.bookmarked),
	)
	return notFoundOnSQLNoRows(scanSQLiteItem(row))
}

// ToggleBookmark flips the bookmarked flag in a single statement.
func (r *SQLiteItemsRepository) ToggleBookmark(ctx context.Context, id string) (domain.Item, error) {
	key, err := parseID(id)
	if err != nil {
		return domain.Item{}, err
	}
	query := fmt.Sprintf(`
        UPDATE watchlist_items
        SET bookmarked = CASE bookmarked WHEN 1 THEN 0 ELSE 1 END
        WHERE id = ?1
        RETURNING %s
    `, itemColumns)
	return notFoundOnSQLNoRows(scanSQLiteItem(r.db.QueryRowContext(ctx, query, key)))
}

// Delete removes the item permanently.
func (r *SQLiteItemsRepository) Delete(ctx context.Context, id string) error {
	key, err := parseID(id)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM watchlist_items WHERE id = ?1`, key)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteItemsRepository) queryItems(ctx context.Context, query string, args ...any) ([]domain.Item, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Item, 0)
	for rows.Next() {
		item, err := scanSQLiteItem(rows)
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

type sqlRow interface {
	Scan(dest ...any) error
}

func scanSQLiteItem(row sqlRow) (domain.Item, error) {
	var (
		item        domain.Item
		itemType    string
		status      string
		releaseYear sql.NullInt64
		createdAt   int64
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
	if releaseYear.Valid {
		year := int(releaseYear.Int64)
		item.ReleaseYear = &year
	}
	item.CreatedAt = time.UnixMicro(createdAt).UTC()
	return item, nil
}

func notFoundOnSQLNoRows(item domain.Item, err error) (domain.Item, error) {
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Item{}, ErrNotFound
		}
		return domain.Item{}, err
	}
	return item, nil
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullBool(v *bool) sql.NullBool {
	if v == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *v, Valid: true}
}
