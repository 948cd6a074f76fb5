// Package services wraps the repositories with the authentication gate:
// every call resolves the signed-in user first and fails fast with
// session.ErrUnauthenticated when there is none.
package services

import (
	"context"

	"github.com/anonto42/onlyme/internal/media"
	"github.com/anonto42/onlyme/internal/repositories"
	"github.com/anonto42/onlyme/internal/session"
)

// Authorizer resolves the current user and returns a context carrying the
// user's access token. *session.Session implements it.
type Authorizer interface {
	Authorize(ctx context.Context) (context.Context, session.Identity, error)
}

// Repositories bundles the data access used by the services.
type Repositories struct {
	Posts         repositories.PostRepository
	Likes         repositories.LikeRepository
	Comments      repositories.CommentRepository
	Follows       repositories.FollowRepository
	Points        repositories.PointsRepository
	Users         repositories.UserRepository
	Messages      repositories.MessageRepository
	Notifications repositories.NotificationRepository
	Settings      repositories.SettingsRepository
}

// Services is the set of gated wrappers for one scope.
type Services struct {
	Posts         *PostService
	Follows       *FollowService
	Points        *PointsService
	Profiles      *ProfileService
	Messages      *MessageService
	Notifications *NotificationService
	Settings      *SettingsService
}

// New wires every service to auth. Uploader may be nil, in which case posts
// with media are rejected.
func New(auth Authorizer, repos Repositories, uploader media.Uploader) *Services {
	return &Services{
		Posts:         NewPostService(auth, repos.Posts, repos.Likes, repos.Comments, uploader),
		Follows:       NewFollowService(auth, repos.Follows),
		Points:        NewPointsService(auth, repos.Points),
		Profiles:      NewProfileService(auth, repos.Users),
		Messages:      NewMessageService(auth, repos.Messages),
		Notifications: NewNotificationService(auth, repos.Notifications),
		Settings:      NewSettingsService(auth, repos.Settings),
	}
}
