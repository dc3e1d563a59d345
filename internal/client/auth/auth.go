// Package auth keeps the bearer credential issued by the server and answers
// questions about it (who owns it, whether it has expired) without talking
// to the network.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/client/client"
	"github.com/dmitrijs2005/timekeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/timekeeper/internal/logging"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoCredential      = errors.New("not logged in")
	ErrCredentialExpired = errors.New("credential expired, log in again")
	ErrMalformedToken    = errors.New("malformed access token")
)

// Claims is the part of the access token the client cares about.
type Claims struct {
	OwnerID   string
	ExpiresAt time.Time // zero when the token does not expire
}

func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// Inspect decodes token without verifying its signature; the server remains
// the only party that validates credentials.
func Inspect(token string) (Claims, error) {
	var rc jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &rc); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if rc.Subject == "" {
		return Claims{}, fmt.Errorf("%w: no subject", ErrMalformedToken)
	}

	c := Claims{OwnerID: rc.Subject}
	if rc.ExpiresAt != nil {
		c.ExpiresAt = rc.ExpiresAt.UTC()
	}
	return c, nil
}

// Store reads and writes the credential in the metadata collection. It
// implements client.TokenSource.
type Store struct {
	meta metadata.Repository
	now  func() time.Time
}

func NewStore(meta metadata.Repository, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{meta: meta, now: now}
}

// Token returns the stored credential, or ErrNoCredential / ErrCredentialExpired.
func (s *Store) Token(ctx context.Context) (string, error) {
	token, claims, err := s.load(ctx)
	if err != nil {
		return "", err
	}
	if claims.Expired(s.now()) {
		return "", ErrCredentialExpired
	}
	return token, nil
}

// Claims returns the stored credential's claims even when it has expired.
func (s *Store) Claims(ctx context.Context) (Claims, error) {
	_, claims, err := s.load(ctx)
	return claims, err
}

func (s *Store) Save(ctx context.Context, token string) error {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if _, err := Inspect(token); err != nil {
		return err
	}
	return s.meta.Set(ctx, metadata.KeyAccessToken, []byte(token))
}

func (s *Store) Clear(ctx context.Context) error {
	return s.meta.Delete(ctx, metadata.KeyAccessToken)
}

func (s *Store) load(ctx context.Context) (string, Claims, error) {
	raw, err := s.meta.Get(ctx, metadata.KeyAccessToken)
	if err != nil {
		return "", Claims{}, fmt.Errorf("read credential: %w", err)
	}
	if len(raw) == 0 {
		return "", Claims{}, ErrNoCredential
	}
	claims, err := Inspect(string(raw))
	if err != nil {
		return "", Claims{}, err
	}
	return string(raw), claims, nil
}

// Service logs in and out. Login checks the token against the server when it
// is reachable and stores it regardless when it is not, so a user can start
// working offline.
type Service struct {
	store  *Store
	client client.Client
	logger logging.Logger
}

func NewService(store *Store, c client.Client, logger logging.Logger) *Service {
	return &Service{store: store, client: c, logger: logger}
}

// Login stores token after checking it. The returned claims identify the user.
func (s *Service) Login(ctx context.Context, token string) (Claims, error) {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	claims, err := Inspect(token)
	if err != nil {
		return Claims{}, err
	}
	if claims.Expired(s.store.now()) {
		return Claims{}, ErrCredentialExpired
	}

	_, err = s.client.Do(client.WithToken(ctx, token), http.MethodGet, "/auth/me", nil)
	switch {
	case err == nil:
	case errors.Is(err, client.ErrUnavailable):
		s.logger.Warn(ctx, "server unreachable, storing credential without verification", "owner_id", claims.OwnerID)
	default:
		return Claims{}, fmt.Errorf("verify credential: %w", err)
	}

	if err := s.store.Save(ctx, token); err != nil {
		return Claims{}, fmt.Errorf("save credential: %w", err)
	}
	return claims, nil
}

func (s *Service) Logout(ctx context.Context) error {
	return s.store.Clear(ctx)
}
