// Package feed keeps in-memory post lists in step with the backend. Every
// mutation is confirm-then-merge: the remote write runs first and only its
// confirmed result is merged into the list.
package feed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/anonto42/onlyme/internal/models"
	"github.com/anonto42/onlyme/internal/realtime"
	"github.com/anonto42/onlyme/internal/session"
	"github.com/anonto42/onlyme/pkg/supabase"
	"github.com/rs/zerolog/log"
)

// UnlockCost is the number of points spent to reveal a private post.
const UnlockCost = 10

var (
	ErrInsufficientPoints = errors.New("insufficient points to unlock post")
	ErrNotAuthor          = errors.New("only the author can edit this post")
	ErrPostNotFound       = errors.New("post not found")
	ErrCommentNotFound    = errors.New("comment not found")
)

// Gateway is the authenticated post API.
type Gateway interface {
	Feed(ctx context.Context) ([]models.Post, error)
	UserPosts(ctx context.Context, userID string) ([]models.Post, error)
	CreatePost(ctx context.Context, req models.CreatePostRequest) (*models.Post, error)
	EditPost(ctx context.Context, postID, content string) (*models.Post, error)
	Like(ctx context.Context, postID string) (*models.Like, error)
	Unlike(ctx context.Context, postID string) error
	Likes(ctx context.Context, postID string) ([]models.LikeRef, error)
	AddComment(ctx context.Context, postID, content string) (*models.Comment, error)
	Reply(ctx context.Context, commentID, content string) (*models.Comment, error)
}

// Wallet is the part of the ledger the unlock flow needs.
type Wallet interface {
	Balance() models.Balance
	Transfer(ctx context.Context, postID string, amount int64) error
	Deduct(amount int64)
}

// Identity returns the signed-in user.
type Identity interface {
	Current() (session.Identity, error)
}

// PostView is a post with the flags derived for the current viewer.
type PostView struct {
	models.Post
	IsLiked      bool `json:"is_liked"`
	LikeCount    int  `json:"like_count"`
	CommentCount int  `json:"comment_count"`
	MediaLocked  bool `json:"media_locked"`
}

// PostList owns one list of posts.
type PostList struct {
	name    string
	gw      Gateway
	who     Identity
	wallet  Wallet
	unlocks *Unlocks
	load    func(ctx context.Context) ([]models.Post, error)
	accept  func(p *models.Post) bool

	mu    sync.RWMutex
	posts []models.Post
}

// NewFeed returns the public feed list.
func NewFeed(gw Gateway, who Identity, wallet Wallet, unlocks *Unlocks) *PostList {
	return &PostList{
		name:    "feed",
		gw:      gw,
		who:     who,
		wallet:  wallet,
		unlocks: unlocks,
		load:    gw.Feed,
		accept:  func(p *models.Post) bool { return !p.IsPrivate() },
	}
}

// NewUserPosts returns the list of every post by userID.
func NewUserPosts(userID string, gw Gateway, who Identity, wallet Wallet, unlocks *Unlocks) *PostList {
	return &PostList{
		name:    "user_posts",
		gw:      gw,
		who:     who,
		wallet:  wallet,
		unlocks: unlocks,
		load: func(ctx context.Context) ([]models.Post, error) {
			return gw.UserPosts(ctx, userID)
		},
		accept: func(p *models.Post) bool { return p.UserID == userID },
	}
}

// Load replaces the list with the remote result.
func (l *PostList) Load(ctx context.Context) error {
	posts, err := l.load(ctx)
	if err != nil {
		return fmt.Errorf("load %s: %w", l.name, err)
	}

	l.mu.Lock()
	l.posts = posts
	l.mu.Unlock()
	return nil
}

// Posts returns the list as seen by the current user.
func (l *PostList) Posts() []PostView {
	me := l.userID()

	l.mu.RLock()
	defer l.mu.RUnlock()

	views := make([]PostView, 0, len(l.posts))
	for _, p := range l.posts {
		views = append(views, l.view(p, me))
	}
	return views
}

// Post returns a single post from the list.
func (l *PostList) Post(postID string) (PostView, error) {
	me := l.userID()

	l.mu.RLock()
	defer l.mu.RUnlock()

	i := l.indexOf(postID)
	if i < 0 {
		return PostView{}, ErrPostNotFound
	}
	return l.view(l.posts[i], me), nil
}

func (l *PostList) view(p models.Post, me string) PostView {
	v := PostView{
		Post:      p,
		LikeCount: len(p.Likes),
	}
	for _, like := range p.Likes {
		if like.UserID == me {
			v.IsLiked = true
			break
		}
	}
	for _, c := range p.Comments {
		v.CommentCount += 1 + len(c.Replies)
	}
	v.MediaLocked = p.IsPrivate() && p.UserID != me && !l.unlocks.Has(p.ID)
	return v
}

// Like records a like and replaces the post's likes with the authoritative
// set. A duplicate like counts as confirmed.
func (l *PostList) Like(ctx context.Context, postID string) error {
	if _, err := l.Post(postID); err != nil {
		return err
	}

	if _, err := l.gw.Like(ctx, postID); err != nil && !supabase.IsUniqueViolation(err) {
		log.Error().Err(err).Str("post_id", postID).Msg("failed to like post")
		return err
	}
	return l.refreshLikes(ctx, postID)
}

// Unlike removes the user's like. Unliking a post that is not liked does
// nothing.
func (l *PostList) Unlike(ctx context.Context, postID string) error {
	v, err := l.Post(postID)
	if err != nil {
		return err
	}
	if !v.IsLiked {
		return nil
	}

	if err := l.gw.Unlike(ctx, postID); err != nil {
		log.Error().Err(err).Str("post_id", postID).Msg("failed to unlike post")
		return err
	}
	return l.refreshLikes(ctx, postID)
}

func (l *PostList) refreshLikes(ctx context.Context, postID string) error {
	likes, err := l.gw.Likes(ctx, postID)
	if err != nil {
		log.Error().Err(err).Str("post_id", postID).Msg("failed to fetch likes")
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if i := l.indexOf(postID); i >= 0 {
		l.posts[i].Likes = likes
	}
	return nil
}

// AddComment posts a top-level comment. Empty content is ignored.
func (l *PostList) AddComment(ctx context.Context, postID, content string) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, nil
	}
	if _, err := l.Post(postID); err != nil {
		return nil, err
	}

	c, err := l.gw.AddComment(ctx, postID, content)
	if err != nil {
		log.Error().Err(err).Str("post_id", postID).Msg("failed to add comment")
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if i := l.indexOf(postID); i >= 0 {
		l.posts[i].Comments = append(l.posts[i].Comments, *c)
	}
	return c, nil
}

// Reply answers a top-level comment of postID. Empty content is ignored.
func (l *PostList) Reply(ctx context.Context, postID, commentID, content string) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, nil
	}
	if err := l.hasComment(postID, commentID); err != nil {
		return nil, err
	}

	r, err := l.gw.Reply(ctx, commentID, content)
	if err != nil {
		log.Error().Err(err).Str("comment_id", commentID).Msg("failed to reply to comment")
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if i := l.indexOf(postID); i >= 0 {
		for j := range l.posts[i].Comments {
			if l.posts[i].Comments[j].ID == commentID {
				l.posts[i].Comments[j].Replies = append(l.posts[i].Comments[j].Replies, *r)
				break
			}
		}
	}
	return r, nil
}

func (l *PostList) hasComment(postID, commentID string) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	i := l.indexOf(postID)
	if i < 0 {
		return ErrPostNotFound
	}
	for _, c := range l.posts[i].Comments {
		if c.ID == commentID {
			return nil
		}
	}
	return ErrCommentNotFound
}

// EditPost replaces the content of one of the user's own posts. Empty
// content is ignored.
func (l *PostList) EditPost(ctx context.Context, postID, content string) (*PostView, error) {
	v, err := l.Post(postID)
	if err != nil {
		return nil, err
	}
	if v.UserID != l.userID() {
		return nil, ErrNotAuthor
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return &v, nil
	}

	updated, err := l.gw.EditPost(ctx, postID, content)
	if err != nil {
		log.Error().Err(err).Str("post_id", postID).Msg("failed to edit post")
		return nil, err
	}

	l.mu.Lock()
	if i := l.indexOf(postID); i >= 0 {
		l.posts[i].Content = updated.Content
	}
	l.mu.Unlock()

	v, err = l.Post(postID)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// CreatePost publishes a post and prepends it when it belongs in this list.
// A request with neither content nor media is ignored.
func (l *PostList) CreatePost(ctx context.Context, req models.CreatePostRequest) (*models.Post, error) {
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" && req.Media == "" {
		return nil, nil
	}

	p, err := l.gw.CreatePost(ctx, req)
	if err != nil {
		log.Error().Err(err).Msg("failed to create post")
		return nil, err
	}

	if l.accept(p) {
		l.mu.Lock()
		l.posts = append([]models.Post{*p}, l.posts...)
		l.mu.Unlock()
	}
	return p, nil
}

// UnlockPost spends UnlockCost points to reveal a private post for the rest
// of the session. Public, own and already unlocked posts are left alone.
// Unlocks of one scope run one at a time so a repeated request never pays
// twice.
func (l *PostList) UnlockPost(ctx context.Context, postID string) error {
	l.unlocks.spend.Lock()
	defer l.unlocks.spend.Unlock()

	v, err := l.Post(postID)
	if err != nil {
		return err
	}
	if !v.MediaLocked {
		return nil
	}
	if l.wallet.Balance().Points < UnlockCost {
		return ErrInsufficientPoints
	}

	if err := l.wallet.Transfer(ctx, postID, UnlockCost); err != nil {
		log.Error().Err(err).Str("post_id", postID).Msg("failed to unlock post")
		return err
	}
	l.wallet.Deduct(UnlockCost)
	l.unlocks.Add(postID)
	return nil
}

// Watch reloads the list on every change to posts.
func (l *PostList) Watch(ctx context.Context, src realtime.Source) (supabase.Subscription, error) {
	return realtime.Watch(ctx, src, supabase.ChangesConfig{Event: supabase.EventAll, Table: "posts"}, l.name, l.Load)
}

func (l *PostList) userID() string {
	id, err := l.who.Current()
	if err != nil {
		return ""
	}
	return id.UserID
}

// indexOf must be called with mu held.
func (l *PostList) indexOf(postID string) int {
	for i := range l.posts {
		if l.posts[i].ID == postID {
			return i
		}
	}
	return -1
}
