package trash

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/memora/service/internal/collection"
	"github.com/memora/service/internal/media"
)

// Store is the persistence surface the purge logic needs; satisfied by *Repository.
type Store interface {
	ListTrashedCollections(ctx context.Context, userID string) ([]collection.Collection, error)
	ListTrashedMedia(ctx context.Context, userID string) ([]media.Media, error)
	RestoreCollection(ctx context.Context, userID, id string) error
	RestoreMedia(ctx context.Context, userID, id string) error
	DeleteMediaRow(ctx context.Context, userID, id string) (*PurgedRow, error)
	ListMediaIDs(ctx context.Context, userID, collectionID string) ([]string, error)
	DeleteCollectionRow(ctx context.Context, userID, id string) error
	ListExpiredCollections(ctx context.Context, cutoff time.Time) ([]Ref, error)
	ListExpiredMedia(ctx context.Context, cutoff time.Time) ([]Ref, error)
}

// ObjectDeleter removes backing bytes; satisfied by storage.Storage.
type ObjectDeleter interface {
	Delete(ctx context.Context, key string) error
}

// Quota applies freed bytes back to the user's ledger.
type Quota interface {
	Commit(ctx context.Context, userID string, delta int64) error
}

// View is the trash listing: both item kinds, most recently deleted first.
type View struct {
	Collections []collection.Collection `json:"collections"`
	Media       []media.Media           `json:"media"`
}

// PurgeSummary reports a best-effort collection purge.
type PurgeSummary struct {
	MediaPurged int   `json:"mediaPurged"`
	BlobsLost   int   `json:"blobsLost"` // rows purged whose bytes were already gone
	BytesFreed  int64 `json:"bytesFreed"`
}

// SweepSummary reports one retention sweep pass.
type SweepSummary struct {
	MediaPurged       int
	CollectionsPurged int
}

// Service implements restore and permanent purge for both entity kinds.
type Service struct {
	repo  Store
	store ObjectDeleter
	quota Quota
}

// NewService creates a new trash Service.
func NewService(repo Store, store ObjectDeleter, quota Quota) *Service {
	return &Service{repo: repo, store: store, quota: quota}
}

// List returns everything in the user's trash.
func (s *Service) List(ctx context.Context, userID string) (*View, error) {
	collections, err := s.repo.ListTrashedCollections(ctx, userID)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListTrashedMedia(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &View{Collections: collections, Media: items}, nil
}

// Restore moves a trashed item back to active. Restoring a collection
// cascades to its media; restoring a single media item requires its
// collection to be active already.
func (s *Service) Restore(ctx context.Context, userID, itemType, id string) error {
	switch itemType {
	case "collection":
		return s.repo.RestoreCollection(ctx, userID, id)
	case "media":
		return s.repo.RestoreMedia(ctx, userID, id)
	default:
		return fmt.Errorf("unknown item type %q", itemType)
	}
}

// PurgeMedia permanently deletes one media item: row first (the idempotency
// point), then bytes, then the quota decrement. A second purge of the same
// item is a no-op.
func (s *Service) PurgeMedia(ctx context.Context, userID, id string) error {
	row, err := s.repo.DeleteMediaRow(ctx, userID, id)
	if errors.Is(err, ErrNotFound) {
		return nil // already purged
	}
	if err != nil {
		return err
	}

	s.deleteObject(ctx, row.StorageKey)

	if err := s.quota.Commit(ctx, userID, -row.Size); err != nil {
		return fmt.Errorf("free quota for media %s: %w", id, err)
	}
	return nil
}

// PurgeCollection permanently deletes a collection and everything under it.
// Each media item is freed individually; a missing blob or a single failed
// item never blocks reclaiming the rest.
func (s *Service) PurgeCollection(ctx context.Context, userID, id string) (*PurgeSummary, error) {
	ids, err := s.repo.ListMediaIDs(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	summary := &PurgeSummary{}
	for _, mediaID := range ids {
		row, err := s.repo.DeleteMediaRow(ctx, userID, mediaID)
		if errors.Is(err, ErrNotFound) {
			continue // raced with another purge
		}
		if err != nil {
			log.Printf("[trash] purge of media %s failed, continuing: %v", mediaID, err)
			continue
		}

		if !s.deleteObject(ctx, row.StorageKey) {
			summary.BlobsLost++
		}
		if err := s.quota.Commit(ctx, userID, -row.Size); err != nil {
			log.Printf("[trash] freeing quota for media %s failed: %v", mediaID, err)
			continue
		}
		summary.MediaPurged++
		summary.BytesFreed += row.Size
	}

	if err := s.repo.DeleteCollectionRow(ctx, userID, id); err != nil && !errors.Is(err, ErrNotFound) {
		return summary, err
	}
	return summary, nil
}

// SweepExpired purges everything trashed before cutoff, using the same
// per-item purge as the user path. Safe to run concurrently with user
// purges: both sides treat a missing row as already handled.
func (s *Service) SweepExpired(ctx context.Context, cutoff time.Time) (*SweepSummary, error) {
	summary := &SweepSummary{}

	expiredMedia, err := s.repo.ListExpiredMedia(ctx, cutoff)
	if err != nil {
		return summary, err
	}
	for _, ref := range expiredMedia {
		if err := s.PurgeMedia(ctx, ref.UserID, ref.ID); err != nil {
			log.Printf("[trash] sweep of media %s failed, continuing: %v", ref.ID, err)
			continue
		}
		summary.MediaPurged++
	}

	expiredCollections, err := s.repo.ListExpiredCollections(ctx, cutoff)
	if err != nil {
		return summary, err
	}
	for _, ref := range expiredCollections {
		if _, err := s.PurgeCollection(ctx, ref.UserID, ref.ID); err != nil {
			log.Printf("[trash] sweep of collection %s failed, continuing: %v", ref.ID, err)
			continue
		}
		summary.CollectionsPurged++
	}

	return summary, nil
}

// deleteObject removes backing bytes, tolerating already-missing blobs.
// Returns false when the bytes could not be confirmed deleted.
func (s *Service) deleteObject(ctx context.Context, key string) bool {
	err := s.store.Delete(ctx, key)
	if err == nil {
		return true
	}
	log.Printf("[trash] object delete %s failed, continuing: %v", key, err)
	return false
}
