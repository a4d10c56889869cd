package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/memora/service/internal/collection"
	"github.com/memora/service/internal/quota"
	"github.com/memora/service/internal/storage"
)

// ErrUnsupportedType is returned for uploads that are neither image nor video.
var ErrUnsupportedType = errors.New("unsupported content type")

// ErrBackingStore wraps object-store failures during upload. The request
// aborts with nothing committed; the client may retry once the backend recovers.
var ErrBackingStore = errors.New("backing store failure")

// Store persists media rows; satisfied by *Repository.
type Store interface {
	Insert(ctx context.Context, m *Media) (*Media, error)
	ListActiveByCollection(ctx context.Context, userID, collectionID string) ([]Media, error)
	Trash(ctx context.Context, userID, id string) error
}

// Collections is the slice of the collection service uploads need.
type Collections interface {
	Get(ctx context.Context, userID, id string) (*collection.Collection, error)
}

// Quota admits and compensates storage reservations.
type Quota interface {
	Reserve(ctx context.Context, userID string, size int64) (*quota.Reservation, error)
	Release(ctx context.Context, res *quota.Reservation) error
}

// UploadInput describes one incoming file.
type UploadInput struct {
	CollectionID string
	Name         string
	ContentType  string
	Size         int64
	Reader       io.Reader
}

// Service orchestrates upload admission and single-item soft deletes.
type Service struct {
	repo        Store
	collections Collections
	quota       Quota
	store       storage.Storage
}

// NewService creates a new media Service.
func NewService(repo Store, collections Collections, quota Quota, store storage.Storage) *Service {
	return &Service{repo: repo, collections: collections, quota: quota, store: store}
}

// Upload admits and stores one media item. Ordering is deliberate:
// quota is reserved atomically first, bytes are written second, the metadata
// row is created last. A failure at any later step compensates the earlier
// ones, so a crash can only leave an orphaned object — never a row without
// backing bytes or drifted quota.
func (s *Service) Upload(ctx context.Context, userID string, in UploadInput) (*Media, error) {
	kind, err := KindFromContentType(in.ContentType)
	if err != nil {
		return nil, err
	}

	col, err := s.collections.Get(ctx, userID, in.CollectionID)
	if err != nil {
		return nil, err
	}
	if col.DeletedAt != nil {
		return nil, collection.ErrNotFound
	}

	res, err := s.quota.Reserve(ctx, userID, in.Size)
	if err != nil {
		return nil, err
	}

	key := userID + "/" + uuid.NewString() + strings.ToLower(path.Ext(in.Name))
	if err := s.store.Upload(ctx, key, in.Reader, in.Size, in.ContentType); err != nil {
		s.release(ctx, res)
		return nil, fmt.Errorf("%w: %v", ErrBackingStore, err)
	}

	m, err := s.repo.Insert(ctx, &Media{
		UserID:       userID,
		CollectionID: in.CollectionID,
		Kind:         kind,
		StorageKey:   key,
		Name:         in.Name,
		ContentType:  in.ContentType,
		Size:         in.Size,
	})
	if err != nil {
		// Compensate: remove the just-written bytes, then the reservation.
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			log.Printf("[media] orphaned object %s after failed insert: %v", key, delErr)
		}
		s.release(ctx, res)
		return nil, err
	}

	m.URL = s.store.PublicURL(m.StorageKey)
	return m, nil
}

// List returns the active media of one of the caller's collections.
func (s *Service) List(ctx context.Context, userID, collectionID string) ([]Media, error) {
	if _, err := s.collections.Get(ctx, userID, collectionID); err != nil {
		return nil, err
	}
	items, err := s.repo.ListActiveByCollection(ctx, userID, collectionID)
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].URL = s.store.PublicURL(items[i].StorageKey)
	}
	return items, nil
}

// Trash moves one media item to the trash. No quota change.
func (s *Service) Trash(ctx context.Context, userID, id string) error {
	return s.repo.Trash(ctx, userID, id)
}

func (s *Service) release(ctx context.Context, res *quota.Reservation) {
	if err := s.quota.Release(ctx, res); err != nil {
		log.Printf("[media] failed to release %d reserved bytes for user %s: %v", res.Size, res.UserID, err)
	}
}

// KindFromContentType maps a declared content type onto a media kind.
func KindFromContentType(contentType string) (string, error) {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return KindImage, nil
	case strings.HasPrefix(contentType, "video/"):
		return KindVideo, nil
	default:
		return "", ErrUnsupportedType
	}
}
