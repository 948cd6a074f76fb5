// Package realtime turns change notifications into full list reloads.
package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/anonto42/onlyme/internal/metrics"
	"github.com/anonto42/onlyme/internal/session"
	"github.com/anonto42/onlyme/pkg/supabase"
	"github.com/rs/zerolog/log"
)

const reloadTimeout = 30 * time.Second

// Source delivers change notifications. Both the websocket client and the
// polling source implement it.
type Source interface {
	Subscribe(ctx context.Context, cfg supabase.ChangesConfig, handler supabase.EventHandler) (supabase.Subscription, error)
}

// ReloadFunc reloads a list from the backend.
type ReloadFunc func(ctx context.Context) error

// tokenSource sets the token func of every subscription it forwards.
type tokenSource struct {
	src   Source
	token func() string
}

// WithToken returns a Source whose subscriptions present token() on every
// join and poll, so a replaced access token takes effect without
// resubscribing.
func WithToken(src Source, token func() string) Source {
	return &tokenSource{src: src, token: token}
}

func (t *tokenSource) Subscribe(ctx context.Context, cfg supabase.ChangesConfig, handler supabase.EventHandler) (supabase.Subscription, error) {
	if cfg.Token == nil {
		cfg.Token = t.token
	}
	return t.src.Subscribe(ctx, cfg, handler)
}

// Watch subscribes to cfg and runs reload once per delivered event. Reloads
// are serialized, so the most recent event's reload is the last to apply.
// The reload context carries the current token of cfg, falling back to the
// token in ctx. A reload failing with session.ErrUnauthenticated ends the
// watch.
func Watch(ctx context.Context, src Source, cfg supabase.ChangesConfig, list string, reload ReloadFunc) (supabase.Subscription, error) {
	fallback := supabase.AccessTokenFrom(ctx)
	var (
		mu      sync.Mutex
		sub     supabase.Subscription
		stopped bool
	)

	handler := func(ev supabase.ChangeEvent) {
		mu.Lock()
		defer mu.Unlock()
		if stopped {
			return
		}

		rctx, cancel := context.WithTimeout(context.Background(), reloadTimeout)
		defer cancel()
		token := fallback
		if cfg.Token != nil {
			if t := cfg.Token(); t != "" {
				token = t
			}
		}
		if token != "" {
			rctx = supabase.WithAccessToken(rctx, token)
		}

		metrics.RecordReload(list)
		err := reload(rctx)
		switch {
		case errors.Is(err, session.ErrUnauthenticated):
			stopped = true
			log.Info().Str("list", list).Msg("session ended, watch stopped")
			if sub != nil {
				unsubscribe(sub, list)
			}
		case err != nil:
			log.Error().Err(err).Str("list", list).Str("event", string(ev.Type)).Msg("reload after change failed")
		default:
			log.Debug().Str("list", list).Str("event", string(ev.Type)).Msg("reloaded after change")
		}
	}

	s, err := src.Subscribe(ctx, cfg, handler)
	if err != nil {
		return nil, err
	}

	mu.Lock()
	sub = s
	ended := stopped
	mu.Unlock()
	if ended {
		unsubscribe(s, list)
	}
	return s, nil
}

func unsubscribe(sub supabase.Subscription, list string) {
	if err := sub.Unsubscribe(); err != nil {
		log.Warn().Err(err).Str("list", list).Msg("failed to stop watch")
	}
}

// Group collects subscriptions so they can be stopped together.
type Group struct {
	mu   sync.Mutex
	subs map[string]supabase.Subscription
}

func NewGroup() *Group {
	return &Group{subs: make(map[string]supabase.Subscription)}
}

// Add registers sub under name, replacing and stopping any previous
// subscription with the same name.
func (g *Group) Add(name string, sub supabase.Subscription) {
	g.mu.Lock()
	prev := g.subs[name]
	g.subs[name] = sub
	g.mu.Unlock()

	if prev != nil {
		if err := prev.Unsubscribe(); err != nil {
			log.Warn().Err(err).Str("watch", name).Msg("failed to stop replaced watch")
		}
	}
}

// Has reports whether a subscription named name is active.
func (g *Group) Has(name string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.subs[name]
	return ok
}

// Stop unsubscribes everything.
func (g *Group) Stop() {
	g.mu.Lock()
	subs := g.subs
	g.subs = make(map[string]supabase.Subscription)
	g.mu.Unlock()

	for name, sub := range subs {
		if err := sub.Unsubscribe(); err != nil {
			log.Warn().Err(err).Str("watch", name).Msg("failed to stop watch")
		}
	}
}
