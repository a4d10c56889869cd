package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/memora/service/internal/user"
)

// ErrInvalidCredentials is returned on a failed login.
var ErrInvalidCredentials = errors.New("invalid email or password")

// ErrEmailTaken is returned when registering an already-used email.
var ErrEmailTaken = errors.New("email already registered")

// ErrUnauthenticated is returned when a renewal token is missing, expired,
// revoked, or references a user that no longer exists.
var ErrUnauthenticated = errors.New("unauthenticated")

// TokenPair is the result of a successful registration or login.
type TokenPair struct {
	AccessToken    string
	RefreshToken   string
	RefreshExpires time.Time
}

// TokenStore persists renewal credentials.
type TokenStore interface {
	Save(ctx context.Context, rt *RefreshToken) error
	GetByToken(ctx context.Context, token string) (*RefreshToken, error)
	Delete(ctx context.Context, token string) error
}

// Accounts is the slice of the user service the credential ledger needs.
type Accounts interface {
	Create(ctx context.Context, name, email, passwordHash string) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	GetByID(ctx context.Context, id string) (*user.User, error)
}

// Service issues, verifies, and rotates session credentials.
type Service struct {
	tokens     TokenStore
	users      Accounts
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewService creates a new auth Service.
func NewService(tokens TokenStore, users Accounts, jwtSecret string, accessTTL, refreshTTL time.Duration) *Service {
	return &Service{
		tokens:     tokens,
		users:      users,
		secret:     []byte(jwtSecret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// Register creates a new account and issues a credential pair.
func (s *Service) Register(ctx context.Context, name, email, password string) (*user.User, *TokenPair, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.users.Create(ctx, name, email, string(hash))
	if err != nil {
		if errors.Is(err, user.ErrAlreadyExists) {
			return nil, nil, ErrEmailTaken
		}
		return nil, nil, fmt.Errorf("create user: %w", err)
	}

	pair, err := s.issuePair(ctx, u.ID)
	if err != nil {
		return nil, nil, err
	}
	return u, pair, nil
}

// Login verifies the password and issues a credential pair.
func (s *Service) Login(ctx context.Context, email, password string) (*user.User, *TokenPair, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("get user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, nil, ErrInvalidCredentials
	}

	pair, err := s.issuePair(ctx, u.ID)
	if err != nil {
		return nil, nil, err
	}
	return u, pair, nil
}

// Rotate mints a new access token from a renewal token. The renewal token
// itself is not rotated; it stays valid until expiry or logout.
func (s *Service) Rotate(ctx context.Context, refreshToken string) (string, error) {
	userID, err := s.verify(refreshToken, "refresh")
	if err != nil {
		return "", ErrUnauthenticated
	}

	rt, err := s.tokens.GetByToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return "", ErrUnauthenticated
		}
		return "", fmt.Errorf("look up refresh token: %w", err)
	}
	if s.now().After(rt.ExpiresAt) {
		return "", ErrUnauthenticated
	}

	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return "", ErrUnauthenticated
		}
		return "", fmt.Errorf("get user: %w", err)
	}

	return s.signToken(userID, "access", s.accessTTL)
}

// Revoke invalidates the renewal token (logout). Idempotent.
func (s *Service) Revoke(ctx context.Context, refreshToken string) error {
	return s.tokens.Delete(ctx, refreshToken)
}

func (s *Service) issuePair(ctx context.Context, userID string) (*TokenPair, error) {
	access, err := s.signToken(userID, "access", s.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refresh, err := s.signToken(userID, "refresh", s.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	expiresAt := s.now().Add(s.refreshTTL)
	err = s.tokens.Save(ctx, &RefreshToken{
		ID:        uuid.NewString(),
		UserID:    userID,
		Token:     refresh,
		CreatedAt: s.now(),
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return nil, fmt.Errorf("persist refresh token: %w", err)
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh, RefreshExpires: expiresAt}, nil
}

func (s *Service) signToken(userID, typ string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub": userID,
		"typ": typ,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// verify parses a token, checks signature and expiry, and asserts its type.
func (s *Service) verify(tokenString, wantType string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return s.now() }))
	if err != nil || !token.Valid {
		return "", ErrUnauthenticated
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrUnauthenticated
	}
	if typ, _ := claims["typ"].(string); typ != wantType {
		return "", ErrUnauthenticated
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", ErrUnauthenticated
	}
	return sub, nil
}
