package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memora/service/internal/user"
)

type fakeTokenStore struct {
	tokens map[string]*RefreshToken
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{tokens: map[string]*RefreshToken{}}
}

func (f *fakeTokenStore) Save(_ context.Context, rt *RefreshToken) error {
	f.tokens[rt.Token] = rt
	return nil
}

func (f *fakeTokenStore) GetByToken(_ context.Context, token string) (*RefreshToken, error) {
	rt, ok := f.tokens[token]
	if !ok {
		return nil, ErrTokenNotFound
	}
	return rt, nil
}

func (f *fakeTokenStore) Delete(_ context.Context, token string) error {
	delete(f.tokens, token)
	return nil
}

type fakeAccounts struct {
	byID    map[string]*user.User
	byEmail map[string]*user.User
	nextID  int
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{byID: map[string]*user.User{}, byEmail: map[string]*user.User{}, nextID: 1}
}

func (f *fakeAccounts) Create(_ context.Context, name, email, passwordHash string) (*user.User, error) {
	if _, ok := f.byEmail[email]; ok {
		return nil, user.ErrAlreadyExists
	}
	u := &user.User{ID: string(rune('a' + f.nextID)), Name: name, Email: email, PasswordHash: passwordHash}
	f.nextID++
	f.byID[u.ID] = u
	f.byEmail[u.Email] = u
	return u, nil
}

func (f *fakeAccounts) GetByEmail(_ context.Context, email string) (*user.User, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return nil, user.ErrNotFound
	}
	return u, nil
}

func (f *fakeAccounts) GetByID(_ context.Context, id string) (*user.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return u, nil
}

func newTestService(t *testing.T) (*Service, *fakeTokenStore, *fakeAccounts, *time.Time) {
	t.Helper()
	tokens := newFakeTokenStore()
	accounts := newFakeAccounts()
	svc := NewService(tokens, accounts, "test-secret", 15*time.Minute, 7*24*time.Hour)

	clock := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return clock }
	return svc, tokens, accounts, &clock
}

func TestRegisterIssuesPairAndPersistsRefresh(t *testing.T) {
	svc, tokens, _, _ := newTestService(t)
	ctx := context.Background()

	u, pair, err := svc.Register(ctx, "Jane", "jane@example.com", "hunter2hunter2")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	rt, err := tokens.GetByToken(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, rt.UserID)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.Register(ctx, "Jane", "jane@example.com", "hunter2hunter2")
	require.NoError(t, err)

	_, _, err = svc.Register(ctx, "Other Jane", "jane@example.com", "different-pass")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.Register(ctx, "Jane", "jane@example.com", "hunter2hunter2")
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "jane@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, "nobody@example.com", "hunter2hunter2")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRotateIssuesNewAccessToken(t *testing.T) {
	svc, _, _, clock := newTestService(t)
	ctx := context.Background()

	u, pair, err := svc.Register(ctx, "Jane", "jane@example.com", "hunter2hunter2")
	require.NoError(t, err)

	// Access token is long expired, renewal is still good.
	*clock = clock.Add(2 * time.Hour)

	access, err := svc.Rotate(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, access)

	userID, err := svc.verify(access, "access")
	require.NoError(t, err)
	assert.Equal(t, u.ID, userID)
}

func TestRotateDoesNotRotateRenewalToken(t *testing.T) {
	svc, tokens, _, _ := newTestService(t)
	ctx := context.Background()

	_, pair, err := svc.Register(ctx, "Jane", "jane@example.com", "hunter2hunter2")
	require.NoError(t, err)

	_, err = svc.Rotate(ctx, pair.RefreshToken)
	require.NoError(t, err)

	// The same renewal credential stays valid and still mints access tokens.
	_, err = tokens.GetByToken(ctx, pair.RefreshToken)
	require.NoError(t, err)
	_, err = svc.Rotate(ctx, pair.RefreshToken)
	assert.NoError(t, err)
}

func TestRotateExpiredRefreshFails(t *testing.T) {
	svc, _, _, clock := newTestService(t)
	ctx := context.Background()

	_, pair, err := svc.Register(ctx, "Jane", "jane@example.com", "hunter2hunter2")
	require.NoError(t, err)

	*clock = clock.Add(8 * 24 * time.Hour)

	_, err = svc.Rotate(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestRotateWithAccessTokenFails(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	_, pair, err := svc.Register(ctx, "Jane", "jane@example.com", "hunter2hunter2")
	require.NoError(t, err)

	_, err = svc.Rotate(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestRotateAfterRevokeFails(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	_, pair, err := svc.Register(ctx, "Jane", "jane@example.com", "hunter2hunter2")
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, pair.RefreshToken))

	_, err = svc.Rotate(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestRotateDeletedUserFails(t *testing.T) {
	svc, _, accounts, _ := newTestService(t)
	ctx := context.Background()

	u, pair, err := svc.Register(ctx, "Jane", "jane@example.com", "hunter2hunter2")
	require.NoError(t, err)

	delete(accounts.byID, u.ID)

	_, err = svc.Rotate(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestRotateGarbageTokenFails(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.Rotate(context.Background(), "not-a-jwt")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}
