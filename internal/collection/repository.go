// Package collection manages named media containers and their soft-delete
// lifecycle. Every query is scoped by owner: acting on another user's
// collection is indistinguishable from the collection not existing.
package collection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Collection is a user-owned container of media items.
type Collection struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	Name      string     `json:"name"`
	ShareID   string     `json:"shareId"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// ErrNotFound is returned when a collection is absent or owned by someone else.
var ErrNotFound = errors.New("collection not found")

// ErrShareIDTaken is returned when the generated share ID collides; the
// service retries with a fresh one and never surfaces this to clients.
var ErrShareIDTaken = errors.New("share id already taken")

const collectionColumns = `id, user_id, name, share_id, deleted_at, created_at, updated_at`

// Repository handles collection persistence.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new collection Repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create inserts an active collection with the given share ID.
func (r *Repository) Create(ctx context.Context, userID, name, shareID string) (*Collection, error) {
	c := &Collection{}
	err := r.db.QueryRow(ctx,
		`INSERT INTO collections (user_id, name, share_id)
		 VALUES ($1, $2, $3)
		 RETURNING `+collectionColumns,
		userID, name, shareID,
	).Scan(&c.ID, &c.UserID, &c.Name, &c.ShareID, &c.DeletedAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrShareIDTaken
		}
		return nil, fmt.Errorf("create collection: %w", err)
	}
	return c, nil
}

// ListActive returns the user's non-trashed collections, newest first.
func (r *Repository) ListActive(ctx context.Context, userID string) ([]Collection, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+collectionColumns+`
		 FROM collections
		 WHERE user_id = $1 AND deleted_at IS NULL
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer rows.Close()
	return scanCollections(rows)
}

// GetOwned fetches a collection by ID scoped to its owner.
func (r *Repository) GetOwned(ctx context.Context, userID, id string) (*Collection, error) {
	c := &Collection{}
	err := r.db.QueryRow(ctx,
		`SELECT `+collectionColumns+`
		 FROM collections WHERE id = $1 AND user_id = $2`,
		id, userID,
	).Scan(&c.ID, &c.UserID, &c.Name, &c.ShareID, &c.DeletedAt, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get collection: %w", err)
	}
	return c, nil
}

// Rename updates the collection name. The share ID and owner never change.
func (r *Repository) Rename(ctx context.Context, userID, id, name string) (*Collection, error) {
	c := &Collection{}
	err := r.db.QueryRow(ctx,
		`UPDATE collections SET name = $3, updated_at = NOW()
		 WHERE id = $1 AND user_id = $2
		 RETURNING `+collectionColumns,
		id, userID, name,
	).Scan(&c.ID, &c.UserID, &c.Name, &c.ShareID, &c.DeletedAt, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("rename collection: %w", err)
	}
	return c, nil
}

// Trash soft-deletes the collection and all its media in one transaction.
// The media update is a single multi-row statement so no reader can observe
// a half-cascaded state.
func (r *Repository) Trash(ctx context.Context, userID, id string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx,
		`UPDATE collections SET deleted_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("trash collection: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	_, err = tx.Exec(ctx,
		`UPDATE media SET deleted_at = NOW()
		 WHERE collection_id = $1 AND user_id = $2 AND deleted_at IS NULL`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("trash collection media: %w", err)
	}

	return tx.Commit(ctx)
}

func scanCollections(rows pgx.Rows) ([]Collection, error) {
	collections := []Collection{}
	for rows.Next() {
		var c Collection
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.ShareID, &c.DeletedAt, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan collection: %w", err)
		}
		collections = append(collections, c)
	}
	return collections, rows.Err()
}

// isUniqueViolation checks whether an error is a PostgreSQL unique_violation (code 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
