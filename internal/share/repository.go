// Package share implements the unauthenticated public read path. A share ID
// resolves to at most one collection; trashed collections and trashed media
// are never exposed here.
package share

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/memora/service/internal/media"
)

// ErrNotFound is returned for unknown or trashed share targets.
var ErrNotFound = errors.New("shared collection not found")

// SharedCollection is the public view of a collection.
type SharedCollection struct {
	Name      string    `json:"name"`
	OwnerName string    `json:"ownerName"`
	CreatedAt time.Time `json:"createdAt"`
}

// Repository handles public share queries.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new share Repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// GetByShareID resolves a share ID to an active collection and its internal ID.
func (r *Repository) GetByShareID(ctx context.Context, shareID string) (string, *SharedCollection, error) {
	var collectionID string
	sc := &SharedCollection{}
	err := r.db.QueryRow(ctx,
		`SELECT c.id, c.name, u.name, c.created_at
		 FROM collections c
		 JOIN users u ON u.id = c.user_id
		 WHERE c.share_id = $1 AND c.deleted_at IS NULL`,
		shareID,
	).Scan(&collectionID, &sc.Name, &sc.OwnerName, &sc.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil, ErrNotFound
	}
	if err != nil {
		return "", nil, fmt.Errorf("get shared collection: %w", err)
	}
	return collectionID, sc, nil
}

// ListActiveMedia returns the collection's non-trashed media, newest first.
func (r *Repository) ListActiveMedia(ctx context.Context, collectionID string) ([]media.Media, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, collection_id, kind, storage_key, name, content_type, size, deleted_at, created_at
		 FROM media
		 WHERE collection_id = $1 AND deleted_at IS NULL
		 ORDER BY created_at DESC`,
		collectionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list shared media: %w", err)
	}
	defer rows.Close()
	return media.ScanMedia(rows)
}

// GetActiveMedia returns one non-trashed media item, verified to belong to
// the collection behind the share ID.
func (r *Repository) GetActiveMedia(ctx context.Context, shareID, mediaID string) (*media.Media, error) {
	m := &media.Media{}
	err := r.db.QueryRow(ctx,
		`SELECT m.id, m.user_id, m.collection_id, m.kind, m.storage_key, m.name, m.content_type, m.size, m.deleted_at, m.created_at
		 FROM media m
		 JOIN collections c ON c.id = m.collection_id
		 WHERE c.share_id = $1 AND m.id = $2
		   AND c.deleted_at IS NULL AND m.deleted_at IS NULL`,
		shareID, mediaID,
	).Scan(&m.ID, &m.UserID, &m.CollectionID, &m.Kind, &m.StorageKey, &m.Name, &m.ContentType, &m.Size, &m.DeletedAt, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get shared media: %w", err)
	}
	return m, nil
}
