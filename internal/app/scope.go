// Package app wires the per-user state of the companion: one Scope per
// signed-in user, created at login and torn down at logout.
package app

import (
	"context"
	"strings"
	"sync"

	"github.com/anonto42/onlyme/internal/feed"
	"github.com/anonto42/onlyme/internal/media"
	"github.com/anonto42/onlyme/internal/messaging"
	"github.com/anonto42/onlyme/internal/models"
	"github.com/anonto42/onlyme/internal/notifications"
	"github.com/anonto42/onlyme/internal/realtime"
	"github.com/anonto42/onlyme/internal/services"
	"github.com/anonto42/onlyme/internal/session"
	"github.com/anonto42/onlyme/internal/status"
	"github.com/anonto42/onlyme/internal/wallet"
	"github.com/anonto42/onlyme/pkg/supabase"
	"github.com/rs/zerolog/log"
)

// Shared holds what every scope uses: the backend gateways and the
// device-level state.
type Shared struct {
	Auth        session.Authenticator
	JWTSecret   string
	Repos       services.Repositories
	Uploader    media.Uploader
	Source      realtime.Source
	Statuses    *status.Store
	Preferences *session.Preferences
}

// Scope is the state of one signed-in user.
type Scope struct {
	Session  *session.Session
	Services *services.Services
	Feed     *feed.PostList
	Wallet   *wallet.Ledger
	Inbox    *messaging.Inbox
	Bell     *notifications.Bell
	Viewer   *status.Viewer
	Unlocks  *feed.Unlocks

	shared  *Shared
	source  realtime.Source
	watches *realtime.Group

	mu       sync.Mutex
	profiles map[string]*feed.PostList
	windows  map[string]*messaging.Window
}

// NewScope wires a scope around sess. Teardown is registered as a logout
// hook of sess.
func NewScope(shared *Shared, sess *session.Session) *Scope {
	svc := services.New(sess, shared.Repos, shared.Uploader)
	ledger := wallet.NewLedger(svc.Points)
	unlocks := feed.NewUnlocks()

	s := &Scope{
		Session:  sess,
		Services: svc,
		Feed:     feed.NewFeed(svc.Posts, sess, ledger, unlocks),
		Wallet:   ledger,
		Inbox:    messaging.NewInbox(svc.Messages),
		Bell:     notifications.NewBell(svc.Notifications),
		Viewer:   &status.Viewer{},
		Unlocks:  unlocks,
		shared:   shared,
		watches:  realtime.NewGroup(),
		profiles: make(map[string]*feed.PostList),
		windows:  make(map[string]*messaging.Window),
	}
	if shared.Source != nil {
		s.source = realtime.WithToken(shared.Source, sess.AccessToken)
	}
	sess.OnLogout(s.teardown)
	return s
}

// Start loads the scope's lists and subscribes them to change
// notifications. Load failures are logged and leave the list empty.
func (s *Scope) Start(ctx context.Context) error {
	ctx, id, err := s.Session.Authorize(ctx)
	if err != nil {
		return err
	}

	if err := s.Feed.Load(ctx); err != nil {
		log.Warn().Err(err).Msg("initial feed load failed")
	}
	if _, err := s.Wallet.Refresh(ctx); err != nil {
		log.Warn().Err(err).Msg("initial balance load failed")
	}
	if err := s.Inbox.Load(ctx); err != nil {
		log.Warn().Err(err).Msg("initial inbox load failed")
	}
	if err := s.Bell.Load(ctx); err != nil {
		log.Warn().Err(err).Msg("initial notification count failed")
	}

	if s.source == nil {
		return nil
	}
	if err := s.watch("feed", func() (supabase.Subscription, error) { return s.Feed.Watch(ctx, s.source) }); err != nil {
		return err
	}
	if err := s.watch("inbox", func() (supabase.Subscription, error) { return s.Inbox.Watch(ctx, s.source) }); err != nil {
		return err
	}
	return s.watch("notifications", func() (supabase.Subscription, error) {
		return s.Bell.Watch(ctx, s.source, id.UserID)
	})
}

func (s *Scope) watch(name string, subscribe func() (supabase.Subscription, error)) error {
	sub, err := subscribe()
	if err != nil {
		log.Error().Err(err).Str("watch", name).Msg("failed to subscribe to changes")
		return err
	}
	if sub != nil {
		s.watches.Add(name, sub)
	}
	return nil
}

// UserPosts returns the loaded post list of userID, creating and watching
// it on first use.
func (s *Scope) UserPosts(ctx context.Context, userID string) (*feed.PostList, error) {
	ctx, _, err := s.Session.Authorize(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	list, ok := s.profiles[userID]
	if !ok {
		list = feed.NewUserPosts(userID, s.Services.Posts, s.Session, s.Wallet, s.Unlocks)
		s.profiles[userID] = list
	}
	s.mu.Unlock()

	if err := list.Load(ctx); err != nil {
		return nil, err
	}
	if !ok && s.source != nil {
		name := "profile:" + userID
		if err := s.watch(name, func() (supabase.Subscription, error) { return list.Watch(ctx, s.source) }); err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("profile posts will not refresh on changes")
		}
	}
	return list, nil
}

// ListFor returns the loaded list that contains postID, looking at the feed
// first and then the opened profiles.
func (s *Scope) ListFor(postID string) (*feed.PostList, error) {
	if _, err := s.Feed.Post(postID); err == nil {
		return s.Feed, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, list := range s.profiles {
		if _, err := list.Post(postID); err == nil {
			return list, nil
		}
	}
	return nil, feed.ErrPostNotFound
}

// Window returns the loaded chat window of conversationID, creating and
// watching it on first use.
func (s *Scope) Window(ctx context.Context, conversationID string) (*messaging.Window, error) {
	ctx, _, err := s.Session.Authorize(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	w, ok := s.windows[conversationID]
	if !ok {
		w = messaging.NewWindow(conversationID, s.Services.Messages)
		s.windows[conversationID] = w
	}
	s.mu.Unlock()

	if err := w.Load(ctx); err != nil {
		return nil, err
	}
	if !ok && s.source != nil {
		name := "conversation:" + conversationID
		if err := s.watch(name, func() (supabase.Subscription, error) { return w.Watch(ctx, s.source) }); err != nil {
			log.Warn().Err(err).Str("conversation_id", conversationID).Msg("chat will not refresh on changes")
		}
	}
	return w, nil
}

// CreateStatus posts a status attributed to the signed-in user.
func (s *Scope) CreateStatus(ctx context.Context, imageDataURL string) (*models.Status, error) {
	ctx, id, err := s.Session.Authorize(ctx)
	if err != nil {
		return nil, err
	}

	author := status.Author{UserID: id.UserID, Username: strings.Split(id.Email, "@")[0]}
	if p, err := s.Services.Profiles.Me(ctx); err == nil && p.Username != "" {
		author.Username = p.Username
	} else if err != nil {
		log.Warn().Err(err).Str("user_id", id.UserID).Msg("using email for status author")
	}
	return s.shared.Statuses.Create(ctx, author, imageDataURL)
}

// Statuses returns the visible statuses.
func (s *Scope) Statuses(ctx context.Context) ([]models.Status, error) {
	if _, err := s.Session.Current(); err != nil {
		return nil, err
	}
	return s.shared.Statuses.Load(ctx)
}

// ViewStatus opens the viewer on the clicked status and its author's other
// statuses.
func (s *Scope) ViewStatus(ctx context.Context, statusID string) (status.ViewerState, error) {
	if _, err := s.Session.Current(); err != nil {
		return status.ViewerState{}, err
	}
	group, idx, err := s.shared.Statuses.GroupByAuthorForViewing(ctx, statusID)
	if err != nil {
		return status.ViewerState{}, err
	}
	return s.Viewer.Open(group, idx), nil
}

// Logout ends the session. Teardown runs through the session's logout hooks.
func (s *Scope) Logout(ctx context.Context) error {
	return s.Session.Logout(ctx)
}

func (s *Scope) teardown() {
	s.watches.Stop()
	s.Unlocks.Clear()
	s.Viewer.Close()

	s.mu.Lock()
	s.profiles = make(map[string]*feed.PostList)
	s.windows = make(map[string]*messaging.Window)
	s.mu.Unlock()
}
