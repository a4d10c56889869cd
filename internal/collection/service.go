package collection

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// shareIDLength is the number of characters in a public share identifier.
const shareIDLength = 8

// maxShareIDAttempts bounds collision retries before giving up.
const maxShareIDAttempts = 5

// Store persists collections; satisfied by *Repository.
type Store interface {
	Create(ctx context.Context, userID, name, shareID string) (*Collection, error)
	ListActive(ctx context.Context, userID string) ([]Collection, error)
	GetOwned(ctx context.Context, userID, id string) (*Collection, error)
	Rename(ctx context.Context, userID, id, name string) (*Collection, error)
	Trash(ctx context.Context, userID, id string) error
}

// Service contains business logic for collection management.
type Service struct {
	repo Store
}

// NewService creates a new collection Service.
func NewService(repo Store) *Service {
	return &Service{repo: repo}
}

// Create makes a new active collection with a fresh share ID, retrying
// internally on the rare generation collision.
func (s *Service) Create(ctx context.Context, userID, name string) (*Collection, error) {
	for attempt := 0; attempt < maxShareIDAttempts; attempt++ {
		c, err := s.repo.Create(ctx, userID, name, newShareID())
		if errors.Is(err, ErrShareIDTaken) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create collection: %w", err)
		}
		return c, nil
	}
	return nil, fmt.Errorf("create collection: exhausted %d share id attempts", maxShareIDAttempts)
}

// List returns the user's active collections, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]Collection, error) {
	return s.repo.ListActive(ctx, userID)
}

// Get returns one of the user's collections.
func (s *Service) Get(ctx context.Context, userID, id string) (*Collection, error) {
	return s.repo.GetOwned(ctx, userID, id)
}

// Rename changes the collection's display name.
func (s *Service) Rename(ctx context.Context, userID, id, name string) (*Collection, error) {
	return s.repo.Rename(ctx, userID, id, name)
}

// Trash moves the collection and all its media to the trash. Bytes and quota
// are retained until a permanent purge or the retention sweep.
func (s *Service) Trash(ctx context.Context, userID, id string) error {
	return s.repo.Trash(ctx, userID, id)
}

// newShareID returns an 8-character identifier derived from a fresh UUID.
func newShareID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:shareIDLength]
}
