// Package media implements the upload and soft-delete lifecycle of individual
// media items. An item is Active, Trashed (deleted_at set, bytes and quota
// retained), or gone entirely after a permanent purge.
package media

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Kinds a media item can have, fixed at upload time from the declared
// content type and never recomputed.
const (
	KindImage = "image"
	KindVideo = "video"
)

// Media is a single uploaded image or video.
type Media struct {
	ID           string     `json:"id"`
	UserID       string     `json:"userId"`
	CollectionID string     `json:"collectionId"`
	Kind         string     `json:"kind"`
	StorageKey   string     `json:"-"`
	URL          string     `json:"url"`
	Name         string     `json:"name"`
	ContentType  string     `json:"-"`
	Size         int64      `json:"size"`
	DeletedAt    *time.Time `json:"deletedAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// ErrNotFound is returned when a media item is absent or owned by someone else.
var ErrNotFound = errors.New("media not found")

const mediaColumns = `id, user_id, collection_id, kind, storage_key, name, content_type, size, deleted_at, created_at`

// Repository handles media persistence.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new media Repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Insert records an uploaded media item. The object bytes must already be in
// the store: a crash here leaves an orphaned object, never a dangling row.
func (r *Repository) Insert(ctx context.Context, m *Media) (*Media, error) {
	out := &Media{}
	err := r.db.QueryRow(ctx,
		`INSERT INTO media (user_id, collection_id, kind, storage_key, name, content_type, size)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+mediaColumns,
		m.UserID, m.CollectionID, m.Kind, m.StorageKey, m.Name, m.ContentType, m.Size,
	).Scan(&out.ID, &out.UserID, &out.CollectionID, &out.Kind, &out.StorageKey, &out.Name, &out.ContentType, &out.Size, &out.DeletedAt, &out.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert media: %w", err)
	}
	return out, nil
}

// ListActiveByCollection returns non-trashed media in a collection, newest first.
func (r *Repository) ListActiveByCollection(ctx context.Context, userID, collectionID string) ([]Media, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+mediaColumns+`
		 FROM media
		 WHERE collection_id = $1 AND user_id = $2 AND deleted_at IS NULL
		 ORDER BY created_at DESC`,
		collectionID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list media: %w", err)
	}
	defer rows.Close()
	return ScanMedia(rows)
}

// Trash soft-deletes one media item. Its collection is unaffected and no
// quota changes: the bytes are still held until purge.
func (r *Repository) Trash(ctx context.Context, userID, id string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE media SET deleted_at = NOW()
		 WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("trash media: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ScanMedia reads Media rows; shared with the trash and share repositories.
func ScanMedia(rows pgx.Rows) ([]Media, error) {
	items := []Media{}
	for rows.Next() {
		var m Media
		if err := rows.Scan(&m.ID, &m.UserID, &m.CollectionID, &m.Kind, &m.StorageKey, &m.Name, &m.ContentType, &m.Size, &m.DeletedAt, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan media: %w", err)
		}
		items = append(items, m)
	}
	return items, rows.Err()
}
