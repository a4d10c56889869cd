package media

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memora/service/internal/collection"
	"github.com/memora/service/internal/quota"
)

type fakeStore struct {
	inserted  []*Media
	insertErr error
	items     []Media
}

func (f *fakeStore) Insert(_ context.Context, m *Media) (*Media, error) {
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	out := *m
	out.ID = "m1"
	out.CreatedAt = time.Now()
	f.inserted = append(f.inserted, &out)
	return &out, nil
}

func (f *fakeStore) ListActiveByCollection(_ context.Context, _, _ string) ([]Media, error) {
	return f.items, nil
}

func (f *fakeStore) Trash(_ context.Context, _, _ string) error { return nil }

type fakeCollections struct {
	col *collection.Collection
	err error
}

func (f *fakeCollections) Get(_ context.Context, _, _ string) (*collection.Collection, error) {
	return f.col, f.err
}

type fakeQuota struct {
	reserveErr error
	usedCredit bool // next admission goes through the overage-credit branch
	reserved   int64
	released   []*quota.Reservation
}

func (f *fakeQuota) Reserve(_ context.Context, userID string, size int64) (*quota.Reservation, error) {
	if f.reserveErr != nil {
		return nil, f.reserveErr
	}
	f.reserved += size
	return &quota.Reservation{UserID: userID, Size: size, UsedCredit: f.usedCredit}, nil
}

func (f *fakeQuota) Release(_ context.Context, res *quota.Reservation) error {
	f.released = append(f.released, res)
	return nil
}

func (f *fakeQuota) releasedBytes() int64 {
	var sum int64
	for _, res := range f.released {
		sum += res.Size
	}
	return sum
}

type fakeObjectStore struct {
	uploads   map[string][]byte
	uploadErr error
	deleted   []string
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{uploads: map[string][]byte{}}
}

func (f *fakeObjectStore) Upload(_ context.Context, key string, reader io.Reader, _ int64, _ string) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	b, _ := io.ReadAll(reader)
	f.uploads[key] = b
	return nil
}

func (f *fakeObjectStore) Get(_ context.Context, _ string) (io.ReadCloser, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeObjectStore) Delete(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	delete(f.uploads, key)
	return nil
}

func (f *fakeObjectStore) PublicURL(key string) string { return "http://cdn.test/" + key }

func activeCollection() *collection.Collection {
	return &collection.Collection{ID: "c1", UserID: "u1", Name: "Summer", ShareID: "ab12cd34"}
}

func uploadInput() UploadInput {
	return UploadInput{
		CollectionID: "c1",
		Name:         "beach.jpg",
		ContentType:  "image/jpeg",
		Size:         2048,
		Reader:       bytes.NewReader(bytes.Repeat([]byte("x"), 2048)),
	}
}

func TestKindFromContentType(t *testing.T) {
	tests := []struct {
		contentType string
		wantKind    string
		wantErr     bool
	}{
		{"image/jpeg", KindImage, false},
		{"image/png", KindImage, false},
		{"video/mp4", KindVideo, false},
		{"video/webm", KindVideo, false},
		{"application/pdf", "", true},
		{"text/html", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		kind, err := KindFromContentType(tt.contentType)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrUnsupportedType, tt.contentType)
			continue
		}
		require.NoError(t, err, tt.contentType)
		assert.Equal(t, tt.wantKind, kind)
	}
}

func TestUploadSuccess(t *testing.T) {
	repo := &fakeStore{}
	q := &fakeQuota{}
	store := newFakeObjectStore()
	svc := NewService(repo, &fakeCollections{col: activeCollection()}, q, store)

	m, err := svc.Upload(context.Background(), "u1", uploadInput())
	require.NoError(t, err)

	assert.Equal(t, KindImage, m.Kind)
	assert.Equal(t, int64(2048), m.Size)
	assert.Equal(t, int64(2048), q.reserved)
	assert.Empty(t, q.released)
	assert.Len(t, store.uploads, 1)
	assert.True(t, strings.HasPrefix(m.StorageKey, "u1/"))
	assert.True(t, strings.HasSuffix(m.StorageKey, ".jpg"))
	assert.Equal(t, "http://cdn.test/"+m.StorageKey, m.URL)
}

func TestUploadQuotaRejectedWritesNothing(t *testing.T) {
	repo := &fakeStore{}
	q := &fakeQuota{reserveErr: &quota.ExceededError{Cost: quota.OverageCost}}
	store := newFakeObjectStore()
	svc := NewService(repo, &fakeCollections{col: activeCollection()}, q, store)

	_, err := svc.Upload(context.Background(), "u1", uploadInput())

	var exceeded *quota.ExceededError
	require.ErrorAs(t, err, &exceeded)
	assert.InDelta(t, quota.OverageCost, exceeded.Cost, 1e-9)
	assert.Empty(t, store.uploads, "no bytes may be written on rejection")
	assert.Empty(t, repo.inserted, "no metadata may be created on rejection")
}

func TestUploadUnsupportedTypeSkipsQuota(t *testing.T) {
	q := &fakeQuota{}
	svc := NewService(&fakeStore{}, &fakeCollections{col: activeCollection()}, q, newFakeObjectStore())

	in := uploadInput()
	in.ContentType = "application/zip"
	_, err := svc.Upload(context.Background(), "u1", in)

	assert.ErrorIs(t, err, ErrUnsupportedType)
	assert.Zero(t, q.reserved)
}

func TestUploadTrashedCollectionNotFound(t *testing.T) {
	deletedAt := time.Now()
	col := activeCollection()
	col.DeletedAt = &deletedAt
	q := &fakeQuota{}
	svc := NewService(&fakeStore{}, &fakeCollections{col: col}, q, newFakeObjectStore())

	_, err := svc.Upload(context.Background(), "u1", uploadInput())

	assert.ErrorIs(t, err, collection.ErrNotFound)
	assert.Zero(t, q.reserved)
}

func TestUploadStorageFailureReleasesQuota(t *testing.T) {
	q := &fakeQuota{}
	store := newFakeObjectStore()
	store.uploadErr = errors.New("connection reset")
	svc := NewService(&fakeStore{}, &fakeCollections{col: activeCollection()}, q, store)

	_, err := svc.Upload(context.Background(), "u1", uploadInput())

	assert.ErrorIs(t, err, ErrBackingStore)
	assert.Equal(t, int64(2048), q.reserved)
	assert.Equal(t, int64(2048), q.releasedBytes(), "reservation must be compensated")
}

func TestUploadFailureRefundsOverageCredit(t *testing.T) {
	q := &fakeQuota{usedCredit: true}
	store := newFakeObjectStore()
	store.uploadErr = errors.New("connection reset")
	svc := NewService(&fakeStore{}, &fakeCollections{col: activeCollection()}, q, store)

	_, err := svc.Upload(context.Background(), "u1", uploadInput())

	assert.ErrorIs(t, err, ErrBackingStore)
	require.Len(t, q.released, 1)
	assert.True(t, q.released[0].UsedCredit, "consumed credit must come back with the bytes")
	assert.Equal(t, int64(2048), q.released[0].Size)
}

func TestUploadInsertFailureRefundsOverageCredit(t *testing.T) {
	repo := &fakeStore{insertErr: errors.New("constraint violation")}
	q := &fakeQuota{usedCredit: true}
	svc := NewService(repo, &fakeCollections{col: activeCollection()}, q, newFakeObjectStore())

	_, err := svc.Upload(context.Background(), "u1", uploadInput())

	require.Error(t, err)
	require.Len(t, q.released, 1)
	assert.True(t, q.released[0].UsedCredit, "consumed credit must come back with the bytes")
}

func TestUploadInsertFailureCompensates(t *testing.T) {
	repo := &fakeStore{insertErr: errors.New("constraint violation")}
	q := &fakeQuota{}
	store := newFakeObjectStore()
	svc := NewService(repo, &fakeCollections{col: activeCollection()}, q, store)

	_, err := svc.Upload(context.Background(), "u1", uploadInput())

	require.Error(t, err)
	assert.Empty(t, store.uploads, "written bytes must be deleted after failed insert")
	assert.Len(t, store.deleted, 1)
	assert.Equal(t, int64(2048), q.releasedBytes())
}

func TestListSetsPublicURLs(t *testing.T) {
	repo := &fakeStore{items: []Media{{ID: "m1", StorageKey: "u1/abc.jpg"}}}
	svc := NewService(repo, &fakeCollections{col: activeCollection()}, &fakeQuota{}, newFakeObjectStore())

	items, err := svc.List(context.Background(), "u1", "c1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "http://cdn.test/u1/abc.jpg", items[0].URL)
}

func TestListUnknownCollection(t *testing.T) {
	svc := NewService(&fakeStore{}, &fakeCollections{err: collection.ErrNotFound}, &fakeQuota{}, newFakeObjectStore())

	_, err := svc.List(context.Background(), "u1", "missing")
	assert.ErrorIs(t, err, collection.ErrNotFound)
}
