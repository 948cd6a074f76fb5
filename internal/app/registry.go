package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/anonto42/onlyme/internal/models"
	"github.com/anonto42/onlyme/internal/session"
	"github.com/rs/zerolog/log"
)

// ErrScopeNotFound is returned when a token has no live scope and cannot be
// restored.
var ErrScopeNotFound = errors.New("no session for token")

// Registry maps access tokens to live scopes.
type Registry struct {
	shared *Shared

	mu     sync.RWMutex
	scopes map[string]*Scope
	// revoked holds logged-out tokens until they expire.
	revoked map[string]time.Time
}

func NewRegistry(shared *Shared) *Registry {
	return &Registry{
		shared:  shared,
		scopes:  make(map[string]*Scope),
		revoked: make(map[string]time.Time),
	}
}

// Login signs in and starts a scope for the new token.
func (r *Registry) Login(ctx context.Context, req models.LoginRequest) (string, *Scope, error) {
	sess := session.New(r.shared.Auth, r.shared.JWTSecret)
	if _, err := sess.Login(ctx, req.Email, req.Password); err != nil {
		return "", nil, err
	}
	return r.register(ctx, sess)
}

// SignUp registers an account. When the backend signs the user in right
// away a scope is started and the profile row is created; otherwise the
// returned token is empty and the user must confirm their email first.
func (r *Registry) SignUp(ctx context.Context, req models.SignUpRequest) (string, *Scope, error) {
	sess := session.New(r.shared.Auth, r.shared.JWTSecret)
	id, err := sess.SignUp(ctx, req.Email, req.Password, req.Username)
	if err != nil {
		return "", nil, err
	}
	if id == nil {
		return "", nil, nil
	}

	token, scope, err := r.register(ctx, sess)
	if err != nil {
		return "", nil, err
	}
	if _, err := scope.Services.Profiles.Update(ctx, models.UpdateProfileRequest{Username: req.Username}); err != nil {
		log.Warn().Err(err).Str("user_id", id.UserID).Msg("failed to create profile after sign up")
	}
	return token, scope, nil
}

// Resolve returns the scope of token. A token issued before this process
// started is adopted into a fresh scope when it is still valid.
func (r *Registry) Resolve(ctx context.Context, token string) (*Scope, error) {
	r.mu.RLock()
	scope, ok := r.scopes[token]
	_, revoked := r.revoked[token]
	r.mu.RUnlock()
	if revoked {
		return nil, fmt.Errorf("%w: token revoked", session.ErrUnauthenticated)
	}
	if ok {
		if _, err := scope.Session.Current(); err != nil {
			r.expire(token, scope)
			return nil, err
		}
		return scope, nil
	}

	sess := session.New(r.shared.Auth, r.shared.JWTSecret)
	if _, err := sess.Restore(token); err != nil {
		return nil, err
	}
	_, scope, err := r.register(ctx, sess)
	return scope, err
}

// Logout ends the session of token and drops its scope. The token is not
// adopted again by Resolve. Unknown tokens are ignored.
func (r *Registry) Logout(ctx context.Context, token string) error {
	now := time.Now()
	r.mu.Lock()
	scope, ok := r.scopes[token]
	delete(r.scopes, token)
	for t, exp := range r.revoked {
		if now.After(exp) {
			delete(r.revoked, t)
		}
	}
	if claims, err := session.ParseAccessToken(token, []byte(r.shared.JWTSecret), now); err == nil && claims.ExpiresAt != nil {
		r.revoked[token] = claims.ExpiresAt.Time
	}
	r.mu.Unlock()

	if !ok {
		return nil
	}
	return scope.Logout(ctx)
}

// Sweep drops every scope whose session has expired and stops its watches.
// Expired tokens are not signed out remotely. It returns the number of
// scopes dropped.
func (r *Registry) Sweep() int {
	r.mu.RLock()
	var expired []string
	for token, scope := range r.scopes {
		if _, err := scope.Session.Current(); err != nil {
			expired = append(expired, token)
		}
	}
	r.mu.RUnlock()

	n := 0
	for _, token := range expired {
		r.mu.RLock()
		scope := r.scopes[token]
		r.mu.RUnlock()
		if scope != nil && r.expire(token, scope) {
			n++
		}
	}
	if n > 0 {
		log.Info().Int("scopes", n).Msg("expired sessions swept")
	}
	return n
}

// StartSweep runs Sweep every interval until stop is closed.
func (r *Registry) StartSweep(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.Sweep()
			case <-stop:
				return
			}
		}
	}()
}

// expire removes scope when it is still the one registered for token.
func (r *Registry) expire(token string, scope *Scope) bool {
	r.mu.Lock()
	if r.scopes[token] != scope {
		r.mu.Unlock()
		return false
	}
	delete(r.scopes, token)
	r.mu.Unlock()

	scope.teardown()
	return true
}

// Len returns the number of live scopes.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.scopes)
}

// Close stops every scope's watches without revoking tokens.
func (r *Registry) Close() {
	r.mu.Lock()
	scopes := r.scopes
	r.scopes = make(map[string]*Scope)
	r.mu.Unlock()

	for _, s := range scopes {
		s.teardown()
	}
	log.Info().Int("scopes", len(scopes)).Msg("session registry closed")
}

func (r *Registry) register(ctx context.Context, sess *session.Session) (string, *Scope, error) {
	token := sess.AccessToken()
	scope := NewScope(r.shared, sess)
	if err := scope.Start(ctx); err != nil {
		scope.teardown()
		return "", nil, err
	}

	r.mu.Lock()
	prev := r.scopes[token]
	r.scopes[token] = scope
	r.mu.Unlock()

	if prev != nil {
		prev.teardown()
	}
	return token, scope, nil
}
