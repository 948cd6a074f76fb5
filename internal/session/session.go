// Package session holds the authentication context of one signed-in user.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/anonto42/onlyme/internal/models"
	"github.com/anonto42/onlyme/pkg/supabase"
	"github.com/golang-jwt/jwt/v4"
	"github.com/rs/zerolog/log"
)

// ErrUnauthenticated is returned by every operation that needs a signed-in
// user when there is none.
var ErrUnauthenticated = errors.New("user not authenticated")

// Identity is the signed-in user as described by the access token.
type Identity struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Authenticator is the subset of the auth API a session needs.
type Authenticator interface {
	SignInWithPassword(ctx context.Context, email, password string) (*supabase.AuthSession, error)
	SignUp(ctx context.Context, email, password string, data map[string]any) (*supabase.AuthSession, error)
	SignOut(ctx context.Context) error
}

// Session is the explicitly scoped authentication context. It is safe for
// concurrent use.
type Session struct {
	auth   Authenticator
	secret []byte
	now    func() time.Time

	mu           sync.RWMutex
	identity     *Identity
	accessToken  string
	refreshToken string
	hooks        []func()
}

// New creates a signed-out session. When jwtSecret is empty access tokens
// are decoded without signature verification; the backend still verifies
// them on every request.
func New(auth Authenticator, jwtSecret string) *Session {
	return &Session{
		auth:   auth,
		secret: []byte(jwtSecret),
		now:    time.Now,
	}
}

// Login signs in with email and password.
func (s *Session) Login(ctx context.Context, email, password string) (Identity, error) {
	sess, err := s.auth.SignInWithPassword(ctx, email, password)
	if err != nil {
		return Identity{}, fmt.Errorf("sign in: %w", err)
	}
	return s.adopt(sess.AccessToken, sess.RefreshToken)
}

// SignUp registers a new account. When the backend requires email
// confirmation no token is returned and the session stays signed out.
func (s *Session) SignUp(ctx context.Context, email, password, username string) (*Identity, error) {
	sess, err := s.auth.SignUp(ctx, email, password, map[string]any{"username": username})
	if err != nil {
		return nil, fmt.Errorf("sign up: %w", err)
	}
	if sess.AccessToken == "" {
		return nil, nil
	}
	id, err := s.adopt(sess.AccessToken, sess.RefreshToken)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// Restore adopts an access token obtained elsewhere.
func (s *Session) Restore(accessToken string) (Identity, error) {
	return s.adopt(accessToken, "")
}

func (s *Session) adopt(accessToken, refreshToken string) (Identity, error) {
	claims, err := ParseAccessToken(accessToken, s.secret, s.now())
	if err != nil {
		return Identity{}, err
	}
	id := Identity{
		UserID: claims.Subject,
		Email:  claims.Email,
	}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}

	s.mu.Lock()
	s.identity = &id
	s.accessToken = accessToken
	s.refreshToken = refreshToken
	s.mu.Unlock()

	log.Info().Str("user_id", id.UserID).Msg("session established")
	return id, nil
}

// Current returns the signed-in identity. An expired token counts as signed
// out.
func (s *Session) Current() (Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return Identity{}, ErrUnauthenticated
	}
	if !s.identity.ExpiresAt.IsZero() && !s.now().Before(s.identity.ExpiresAt) {
		return Identity{}, ErrUnauthenticated
	}
	return *s.identity, nil
}

// AccessToken returns the current access token, empty when signed out.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// Authorize resolves the identity and returns ctx carrying the access token
// for backend calls.
func (s *Session) Authorize(ctx context.Context) (context.Context, Identity, error) {
	id, err := s.Current()
	if err != nil {
		return ctx, Identity{}, err
	}
	return supabase.WithAccessToken(ctx, s.AccessToken()), id, nil
}

// OnLogout registers a teardown hook. Hooks run in reverse order of
// registration.
func (s *Session) OnLogout(hook func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, hook)
}

// Logout revokes the token, runs the teardown hooks and clears identity and
// tokens. Local state is cleared even when revocation fails.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	token := s.accessToken
	hooks := s.hooks
	s.hooks = nil
	s.mu.Unlock()

	var revokeErr error
	if token != "" {
		if err := s.auth.SignOut(supabase.WithAccessToken(ctx, token)); err != nil {
			log.Warn().Err(err).Msg("failed to revoke session")
			revokeErr = fmt.Errorf("sign out: %w", err)
		}
	}

	for i := len(hooks) - 1; i >= 0; i-- {
		hooks[i]()
	}

	s.mu.Lock()
	s.identity = nil
	s.accessToken = ""
	s.refreshToken = ""
	s.mu.Unlock()

	return revokeErr
}

// ParseAccessToken decodes the claims of an access token. The HS256
// signature is verified when secret is non-empty. Expired tokens and tokens
// without a subject are rejected with ErrUnauthenticated.
func ParseAccessToken(token string, secret []byte, now time.Time) (*models.AccessClaims, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}

	claims := &models.AccessClaims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if len(secret) > 0 {
		_, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return secret, nil
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
		}
	} else if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: token has no subject", ErrUnauthenticated)
	}
	if !claims.VerifyExpiresAt(now, false) {
		return nil, fmt.Errorf("%w: token expired", ErrUnauthenticated)
	}
	return claims, nil
}
