// Package trash implements listing, restore, and permanent purge of
// soft-deleted collections and media. Purge is the only transition that
// frees object bytes and storage quota.
package trash

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/memora/service/internal/collection"
	"github.com/memora/service/internal/media"
)

// ErrNotFound is returned when the item is absent or owned by someone else.
var ErrNotFound = errors.New("item not found")

// ErrCollectionTrashed is returned when restoring a single media item whose
// collection is still in the trash; the collection must be restored first so
// no item ends up more alive than its container.
var ErrCollectionTrashed = errors.New("owning collection is still in trash")

// PurgedRow carries what a deleted media row frees.
type PurgedRow struct {
	Size       int64
	StorageKey string
}

// Ref identifies a trashed item and its owner for the retention sweep.
type Ref struct {
	ID     string
	UserID string
}

// Repository handles trash queries across collections and media.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new trash Repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// ListTrashedCollections returns the user's trashed collections, most
// recently deleted first.
func (r *Repository) ListTrashedCollections(ctx context.Context, userID string) ([]collection.Collection, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, name, share_id, deleted_at, created_at, updated_at
		 FROM collections
		 WHERE user_id = $1 AND deleted_at IS NOT NULL
		 ORDER BY deleted_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list trashed collections: %w", err)
	}
	defer rows.Close()

	collections := []collection.Collection{}
	for rows.Next() {
		var c collection.Collection
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.ShareID, &c.DeletedAt, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan trashed collection: %w", err)
		}
		collections = append(collections, c)
	}
	return collections, rows.Err()
}

// ListTrashedMedia returns the user's trashed media, most recently deleted first.
func (r *Repository) ListTrashedMedia(ctx context.Context, userID string) ([]media.Media, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, collection_id, kind, storage_key, name, content_type, size, deleted_at, created_at
		 FROM media
		 WHERE user_id = $1 AND deleted_at IS NOT NULL
		 ORDER BY deleted_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list trashed media: %w", err)
	}
	defer rows.Close()
	return media.ScanMedia(rows)
}

// RestoreCollection clears deleted_at on the collection and all its media in
// one transaction, mirroring the trash cascade.
func (r *Repository) RestoreCollection(ctx context.Context, userID, id string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx,
		`UPDATE collections SET deleted_at = NULL, updated_at = NOW()
		 WHERE id = $1 AND user_id = $2 AND deleted_at IS NOT NULL`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("restore collection: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	_, err = tx.Exec(ctx,
		`UPDATE media SET deleted_at = NULL
		 WHERE collection_id = $1 AND user_id = $2 AND deleted_at IS NOT NULL`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("restore collection media: %w", err)
	}

	return tx.Commit(ctx)
}

// RestoreMedia clears deleted_at on one media item, but only when its
// collection is active: an item may never be more alive than its container.
func (r *Repository) RestoreMedia(ctx context.Context, userID, id string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE media m SET deleted_at = NULL
		 FROM collections c
		 WHERE m.collection_id = c.id
		   AND m.id = $1 AND m.user_id = $2
		   AND m.deleted_at IS NOT NULL
		   AND c.deleted_at IS NULL`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("restore media: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	// Distinguish "not yours / gone" from "collection still trashed".
	var exists bool
	err = r.db.QueryRow(ctx,
		`SELECT EXISTS(
		    SELECT 1 FROM media
		    WHERE id = $1 AND user_id = $2 AND deleted_at IS NOT NULL)`,
		id, userID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check trashed media: %w", err)
	}
	if exists {
		return ErrCollectionTrashed
	}
	return ErrNotFound
}

// DeleteMediaRow removes one media row and returns what it frees. The row
// delete is the linearization point for purge: concurrent attempts see
// ErrNotFound and treat the purge as already done.
func (r *Repository) DeleteMediaRow(ctx context.Context, userID, id string) (*PurgedRow, error) {
	p := &PurgedRow{}
	err := r.db.QueryRow(ctx,
		`DELETE FROM media WHERE id = $1 AND user_id = $2
		 RETURNING size, storage_key`,
		id, userID,
	).Scan(&p.Size, &p.StorageKey)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("delete media row: %w", err)
	}
	return p, nil
}

// ListMediaIDs returns all media IDs under a collection, trashed or not.
func (r *Repository) ListMediaIDs(ctx context.Context, userID, collectionID string) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id FROM media WHERE collection_id = $1 AND user_id = $2`,
		collectionID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list media ids: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan media id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteCollectionRow removes the collection row. Returns ErrNotFound when a
// concurrent purge already removed it.
func (r *Repository) DeleteCollectionRow(ctx context.Context, userID, id string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM collections WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("delete collection row: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListExpiredCollections returns trashed collections deleted before cutoff.
func (r *Repository) ListExpiredCollections(ctx context.Context, cutoff time.Time) ([]Ref, error) {
	return r.listExpired(ctx, `SELECT id, user_id FROM collections WHERE deleted_at < $1`, cutoff)
}

// ListExpiredMedia returns trashed media deleted before cutoff.
func (r *Repository) ListExpiredMedia(ctx context.Context, cutoff time.Time) ([]Ref, error) {
	return r.listExpired(ctx, `SELECT id, user_id FROM media WHERE deleted_at < $1`, cutoff)
}

func (r *Repository) listExpired(ctx context.Context, query string, cutoff time.Time) ([]Ref, error) {
	rows, err := r.db.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list expired items: %w", err)
	}
	defer rows.Close()

	refs := []Ref{}
	for rows.Next() {
		var ref Ref
		if err := rows.Scan(&ref.ID, &ref.UserID); err != nil {
			return nil, fmt.Errorf("scan expired item: %w", err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}
