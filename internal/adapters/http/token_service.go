package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/singleflight"

	"github.com/bft-labs/feedship/internal/domain"
	"github.com/bft-labs/feedship/internal/ports"
)

// tokenExpirySkew makes tokens count as expired slightly before their exp claim.
const tokenExpirySkew = 30 * time.Second

// TokenServiceConfig tunes the refresh call.
type TokenServiceConfig struct {
	// Attempts is the number of tries per Refresh call. Default: 1.
	Attempts int

	// RetryInitial and RetryMax bound the backoff between attempts.
	RetryInitial time.Duration
	RetryMax     time.Duration
}

// TokenService implements ports.TokenService and ports.TokenSource.
// It trades the stored refresh token for a new access token.
type TokenService struct {
	c     *client
	creds ports.CredentialStore
	cfg   TokenServiceConfig
	now   func() time.Time

	group singleflight.Group

	mu        sync.RWMutex
	access    string
	expiresAt time.Time
}

// NewTokenService creates a token service.
func NewTokenService(cc ClientConfig, creds ports.CredentialStore, cfg TokenServiceConfig) *TokenService {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 1
	}
	if cfg.RetryInitial <= 0 {
		cfg.RetryInitial = 500 * time.Millisecond
	}
	if cfg.RetryMax <= 0 {
		cfg.RetryMax = 10 * time.Second
	}
	return &TokenService{
		c:     newClient(cc),
		creds: creds,
		cfg:   cfg,
		now:   time.Now,
	}
}

// Refresh renews the access token. Concurrent calls share one request.
func (s *TokenService) Refresh(ctx context.Context) error {
	_, err, _ := s.group.Do("refresh", func() (interface{}, error) {
		return nil, s.refresh(ctx)
	})
	return err
}

// AccessToken returns a valid access token, or "" when none can be obtained.
// A token persisted by an earlier refresh is served until it expires. Past
// that, the caller joins the in-flight refresh or starts one.
func (s *TokenService) AccessToken(ctx context.Context) string {
	if tok := s.current(); tok != "" {
		return tok
	}
	if tok := s.restore(); tok != "" {
		return tok
	}
	if err := s.Refresh(ctx); err != nil {
		return ""
	}
	return s.current()
}

func (s *TokenService) current() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.valid(s.access, s.expiresAt) {
		return s.access
	}
	return ""
}

func (s *TokenService) valid(access string, expiresAt time.Time) bool {
	if access == "" {
		return false
	}
	return expiresAt.IsZero() || s.now().Add(tokenExpirySkew).Before(expiresAt)
}

// restore loads the persisted access token into memory if it is still valid.
func (s *TokenService) restore() string {
	access, ok, err := s.creds.Get(domain.CredentialAccessToken)
	if err != nil || !ok {
		return ""
	}
	var expiresAt time.Time
	if raw, ok, err := s.creds.Get(domain.CredentialAccessTokenExpiry); err == nil && ok && raw != "" {
		if expiresAt, err = time.Parse(time.RFC3339, raw); err != nil {
			return ""
		}
	}
	if !s.valid(access, expiresAt) {
		return ""
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.valid(s.access, s.expiresAt) {
		s.access, s.expiresAt = access, expiresAt
	}
	return access
}

// Discard drops the in-memory access token.
func (s *TokenService) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access, s.expiresAt = "", time.Time{}
}

// ExpiresAt returns the expiry of the current access token, zero if unknown.
func (s *TokenService) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

func (s *TokenService) refresh(ctx context.Context) error {
	refreshToken, ok, err := s.creds.Get(domain.CredentialRefreshToken)
	if err != nil {
		return fmt.Errorf("load refresh token: %w", err)
	}
	if !ok || refreshToken == "" {
		return domain.ErrNoCredential
	}

	body, err := json.Marshal(map[string]map[string]string{
		"Tokens": {"RefreshToken": refreshToken},
	})
	if err != nil {
		return err
	}

	back := newBackoff(s.cfg.RetryInitial, s.cfg.RetryMax)
	var resp []byte
	for attempt := 1; ; attempt++ {
		resp, err = s.c.do(ctx, http.MethodPost, "", body, "v1", "auth", "token")
		if err == nil {
			break
		}
		if attempt >= s.cfg.Attempts || !retryable(err) {
			return fmt.Errorf("request token: %w", err)
		}
		if werr := back.Wait(ctx); werr != nil {
			return fmt.Errorf("request token: %w", err)
		}
	}

	access := gjson.GetBytes(resp, "response.Tokens.AccessToken").String()
	if access == "" {
		return fmt.Errorf("token response missing response.Tokens.AccessToken")
	}
	rotated := gjson.GetBytes(resp, "response.Tokens.RefreshToken").String()

	expiresAt := tokenExpiry(access)
	s.mu.Lock()
	s.access = access
	s.expiresAt = expiresAt
	s.mu.Unlock()

	if err := s.persist(access, expiresAt); err != nil {
		return err
	}
	if rotated != "" && rotated != refreshToken {
		if err := s.creds.Set(domain.CredentialRefreshToken, rotated); err != nil {
			return fmt.Errorf("store rotated refresh token: %w", err)
		}
	}
	return nil
}

func (s *TokenService) persist(access string, expiresAt time.Time) error {
	var exp string
	if !expiresAt.IsZero() {
		exp = expiresAt.UTC().Format(time.RFC3339)
	}
	if err := s.creds.Set(domain.CredentialAccessTokenExpiry, exp); err != nil {
		return fmt.Errorf("store access token expiry: %w", err)
	}
	if err := s.creds.Set(domain.CredentialAccessToken, access); err != nil {
		return fmt.Errorf("store access token: %w", err)
	}
	return nil
}

// tokenExpiry reads the exp claim of a JWT access token without verifying
// the signature; the backend verifies tokens, the client only schedules around
// them. Opaque tokens have no known expiry.
func tokenExpiry(token string) time.Time {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return true
}
