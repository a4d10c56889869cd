package collection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	collisions int // number of Create calls that fail with ErrShareIDTaken
	created    []string
}

func (f *fakeRepo) Create(_ context.Context, userID, name, shareID string) (*Collection, error) {
	if f.collisions > 0 {
		f.collisions--
		return nil, ErrShareIDTaken
	}
	f.created = append(f.created, shareID)
	return &Collection{ID: "c1", UserID: userID, Name: name, ShareID: shareID}, nil
}

func (f *fakeRepo) ListActive(_ context.Context, _ string) ([]Collection, error) { return nil, nil }
func (f *fakeRepo) GetOwned(_ context.Context, _, _ string) (*Collection, error) {
	return nil, ErrNotFound
}
func (f *fakeRepo) Rename(_ context.Context, _, _, _ string) (*Collection, error) {
	return nil, ErrNotFound
}
func (f *fakeRepo) Trash(_ context.Context, _, _ string) error { return ErrNotFound }

func TestCreateGeneratesShareID(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)

	c, err := svc.Create(context.Background(), "u1", "Summer")
	require.NoError(t, err)
	assert.Len(t, c.ShareID, shareIDLength)
	assert.Equal(t, "Summer", c.Name)
}

func TestCreateRetriesOnShareIDCollision(t *testing.T) {
	repo := &fakeRepo{collisions: 2}
	svc := NewService(repo)

	c, err := svc.Create(context.Background(), "u1", "Summer")
	require.NoError(t, err)
	assert.Len(t, c.ShareID, shareIDLength)
	assert.Len(t, repo.created, 1)
}

func TestCreateGivesUpAfterMaxAttempts(t *testing.T) {
	repo := &fakeRepo{collisions: maxShareIDAttempts}
	svc := NewService(repo)

	_, err := svc.Create(context.Background(), "u1", "Summer")
	assert.Error(t, err)
	assert.Empty(t, repo.created)
}

func TestNewShareIDsAreDistinct(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := newShareID()
		require.Len(t, id, shareIDLength)
		assert.False(t, seen[id], "share id %q repeated", id)
		seen[id] = true
	}
}
