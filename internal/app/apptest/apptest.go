// Package apptest provides an in-memory backend and auth provider for
// exercising scopes and handlers without a network.
package apptest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/anonto42/onlyme/internal/app"
	"github.com/anonto42/onlyme/internal/localstore"
	"github.com/anonto42/onlyme/internal/models"
	"github.com/anonto42/onlyme/internal/services"
	"github.com/anonto42/onlyme/internal/session"
	"github.com/anonto42/onlyme/internal/status"
	"github.com/anonto42/onlyme/pkg/supabase"
	"github.com/golang-jwt/jwt/v4"
)

// Secret signs every token issued by Auth.
const Secret = "apptest-jwt-secret"

// Token returns an HS256 access token for userID valid for ttl.
func Token(userID string, ttl time.Duration) string {
	claims := models.AccessClaims{
		Email: userID + "@example.com",
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(Secret))
	if err != nil {
		panic(err)
	}
	return token
}

// Auth signs in users whose password equals "pw-" + user id. The user id is
// the local part of the email.
type Auth struct {
	mu       sync.Mutex
	SignOuts int
}

func (a *Auth) SignInWithPassword(_ context.Context, email, password string) (*supabase.AuthSession, error) {
	userID := strings.Split(email, "@")[0]
	if password != "pw-"+userID {
		return nil, &supabase.Error{Message: "Invalid login credentials", StatusCode: http.StatusBadRequest}
	}
	return &supabase.AuthSession{AccessToken: Token(userID, time.Hour), RefreshToken: "r-" + userID}, nil
}

func (a *Auth) SignUp(ctx context.Context, email, password string, _ map[string]any) (*supabase.AuthSession, error) {
	if strings.HasPrefix(email, "confirm") {
		return &supabase.AuthSession{}, nil
	}
	return a.SignInWithPassword(ctx, email, password)
}

func (a *Auth) SignOut(context.Context) error {
	a.mu.Lock()
	a.SignOuts++
	a.mu.Unlock()
	return nil
}

// Backend is an in-memory implementation of every repository. The caller's
// identity is read from the access token carried by the context.
type Backend struct {
	mu            sync.Mutex
	seq           int
	Posts         []models.Post
	Likes         map[string][]models.LikeRef
	Profiles      map[string]models.Profile
	Balances      map[string]models.Balance
	Transactions  map[string][]models.Transaction
	Followers     []models.Follower
	Conversations []models.Conversation
	Messages      map[string][]models.Message
	Notifications []models.Notification
	Tickets       []models.SupportTicket
	Access        []models.PrivateAccess
}

func NewBackend() *Backend {
	return &Backend{
		Likes:        make(map[string][]models.LikeRef),
		Profiles:     make(map[string]models.Profile),
		Balances:     make(map[string]models.Balance),
		Transactions: make(map[string][]models.Transaction),
		Messages:     make(map[string][]models.Message),
	}
}

// Repositories exposes b through every repository interface.
func (b *Backend) Repositories() services.Repositories {
	return services.Repositories{
		Posts: b, Likes: b, Comments: b, Follows: b, Points: b,
		Users: b, Messages: b, Notifications: b, Settings: b,
	}
}

// Shared returns scope dependencies backed by b, memory local state and no
// realtime source.
func (b *Backend) Shared(auth session.Authenticator) *app.Shared {
	local := localstore.NewMemoryStore()
	return &app.Shared{
		Auth:        auth,
		JWTSecret:   Secret,
		Repos:       b.Repositories(),
		Statuses:    status.NewStore(local, nil),
		Preferences: session.NewPreferences(local),
	}
}

func (b *Backend) nextID(prefix string) string {
	b.seq++
	return fmt.Sprintf("%s%d", prefix, b.seq)
}

func caller(ctx context.Context) (string, error) {
	claims, err := session.ParseAccessToken(supabase.AccessTokenFrom(ctx), []byte(Secret), time.Now())
	if err != nil {
		return "", &supabase.Error{Message: "JWT expired", StatusCode: http.StatusUnauthorized}
	}
	return claims.Subject, nil
}

func noRows() error {
	return &supabase.Error{Code: "PGRST116", Message: "no rows", StatusCode: http.StatusNotAcceptable}
}

func (b *Backend) withLikes(p models.Post) models.Post {
	p.Likes = append([]models.LikeRef{}, b.Likes[p.ID]...)
	return p
}

func (b *Backend) GetFeed(ctx context.Context) ([]models.Post, error) {
	if _, err := caller(ctx); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []models.Post{}
	for _, p := range b.Posts {
		if !p.IsPrivate() {
			out = append(out, b.withLikes(p))
		}
	}
	return out, nil
}

func (b *Backend) GetPostsByUser(ctx context.Context, userID string) ([]models.Post, error) {
	if _, err := caller(ctx); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []models.Post{}
	for _, p := range b.Posts {
		if p.UserID == userID {
			out = append(out, b.withLikes(p))
		}
	}
	return out, nil
}

func (b *Backend) GetPostByID(ctx context.Context, postID string) (*models.Post, error) {
	if _, err := caller(ctx); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range b.Posts {
		if p.ID == postID {
			out := b.withLikes(p)
			return &out, nil
		}
	}
	return nil, noRows()
}

func (b *Backend) CreatePost(ctx context.Context, post *models.Post) (*models.Post, error) {
	if _, err := caller(ctx); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	p := *post
	p.ID = b.nextID("post-")
	p.CreatedAt = time.Now()
	b.Posts = append([]models.Post{p}, b.Posts...)
	return &p, nil
}

func (b *Backend) UpdateContent(ctx context.Context, postID, content string) (*models.Post, error) {
	if _, err := caller(ctx); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.Posts {
		if b.Posts[i].ID == postID {
			b.Posts[i].Content = content
			out := b.Posts[i]
			return &out, nil
		}
	}
	return nil, noRows()
}

func (b *Backend) CreateLike(ctx context.Context, postID, userID string) (*models.Like, error) {
	if _, err := caller(ctx); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, l := range b.Likes[postID] {
		if l.UserID == userID {
			return nil, &supabase.Error{Code: "23505", Message: "duplicate key value", StatusCode: http.StatusConflict}
		}
	}
	b.Likes[postID] = append(b.Likes[postID], models.LikeRef{UserID: userID})
	return &models.Like{PostID: postID, UserID: userID, CreatedAt: time.Now()}, nil
}

func (b *Backend) DeleteLike(ctx context.Context, postID, userID string) error {
	if _, err := caller(ctx); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	kept := []models.LikeRef{}
	for _, l := range b.Likes[postID] {
		if l.UserID != userID {
			kept = append(kept, l)
		}
	}
	b.Likes[postID] = kept
	return nil
}

func (b *Backend) GetLikesByPostID(ctx context.Context, postID string) ([]models.LikeRef, error) {
	if _, err := caller(ctx); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.LikeRef{}, b.Likes[postID]...), nil
}

func (b *Backend) CreateComment(ctx context.Context, postID, userID, content string) (*models.Comment, error) {
	if _, err := caller(ctx); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	c := models.Comment{ID: b.nextID("comment-"), PostID: postID, UserID: userID, Content: content, CreatedAt: time.Now()}
	for i := range b.Posts {
		if b.Posts[i].ID == postID {
			b.Posts[i].Comments = append(b.Posts[i].Comments, c)
		}
	}
	return &c, nil
}

func (b *Backend) CreateReply(ctx context.Context, parentID, userID, content string) (*models.Comment, error) {
	if _, err := caller(ctx); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	r := models.Comment{ID: b.nextID("reply-"), ParentID: parentID, UserID: userID, Content: content, CreatedAt: time.Now()}
	for i := range b.Posts {
		for j := range b.Posts[i].Comments {
			if b.Posts[i].Comments[j].ID == parentID {
				b.Posts[i].Comments[j].Replies = append(b.Posts[i].Comments[j].Replies, r)
			}
		}
	}
	return &r, nil
}

func (b *Backend) GetFollowers(ctx context.Context, userID string) ([]models.Follower, error) {
	if _, err := caller(ctx); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []models.Follower{}
	for _, f := range b.Followers {
		if f.FollowingID == userID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (b *Backend) Follow(ctx context.Context, followerID, followingID string) error {
	if _, err := caller(ctx); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, f := range b.Followers {
		if f.FollowerID == followerID && f.FollowingID == followingID {
			return &supabase.Error{Code: "23505", Message: "duplicate key value", StatusCode: http.StatusConflict}
		}
	}
	b.Followers = append(b.Followers, models.Follower{FollowerID: followerID, FollowingID: followingID, CreatedAt: time.Now()})
	return nil
}

func (b *Backend) Unfollow(ctx context.Context, followerID, followingID string) error {
	if _, err := caller(ctx); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	kept := b.Followers[:0]
	for _, f := range b.Followers {
		if f.FollowerID != followerID || f.FollowingID != followingID {
			kept = append(kept, f)
		}
	}
	b.Followers = kept
	return nil
}

func (b *Backend) GivePoints(ctx context.Context, postID string, amount int64) error {
	uid, err := caller(ctx)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	bal := b.Balances[uid]
	if bal.Points < amount {
		return &supabase.Error{Code: "P0001", Message: "Insufficient points", StatusCode: http.StatusBadRequest}
	}
	bal.Points -= amount
	b.Balances[uid] = bal
	for i := range b.Posts {
		if b.Posts[i].ID == postID {
			b.Posts[i].Points += amount
		}
	}
	return nil
}

func (b *Backend) AddPoints(ctx context.Context, amount int64) error {
	uid, err := caller(ctx)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	bal := b.Balances[uid]
	bal.Points += amount
	b.Balances[uid] = bal
	return nil
}

func (b *Backend) ConvertPointsToMoney(ctx context.Context, points int64) (*models.ConvertResult, error) {
	uid, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	bal := b.Balances[uid]
	if bal.Points < points {
		return &models.ConvertResult{Success: false}, nil
	}
	money := float64(points) * 900 / 1000
	bal.Points -= points
	bal.Money += money
	b.Balances[uid] = bal
	b.Transactions[uid] = append([]models.Transaction{{
		ID: b.nextID("tx-"), UserID: uid, Type: "conversion", Amount: money,
		Status: models.TransactionCompleted, CreatedAt: time.Now(),
	}}, b.Transactions[uid]...)
	return &models.ConvertResult{Success: true, MoneyAmount: money}, nil
}

func (b *Backend) GetBalance(ctx context.Context, userID string) (*models.Balance, error) {
	if _, err := caller(ctx); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	bal := b.Balances[userID]
	return &bal, nil
}

func (b *Backend) GetTransactions(ctx context.Context, userID string) ([]models.Transaction, error) {
	if _, err := caller(ctx); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.Transaction{}, b.Transactions[userID]...), nil
}

func (b *Backend) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	if _, err := caller(ctx); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.Profiles[userID]
	if !ok {
		return nil, noRows()
	}
	return &p, nil
}

func (b *Backend) UpsertProfile(ctx context.Context, profile *models.Profile) (*models.Profile, error) {
	if _, err := caller(ctx); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Profiles[profile.ID] = *profile
	p := *profile
	return &p, nil
}

func (b *Backend) SearchProfiles(ctx context.Context, query string) ([]models.Profile, error) {
	if _, err := caller(ctx); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []models.Profile{}
	for _, p := range b.Profiles {
		if strings.Contains(strings.ToLower(p.Username), strings.ToLower(query)) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (b *Backend) HasPrivateAccess(ctx context.Context, creatorID, subscriberID string, now time.Time) (bool, error) {
	if _, err := caller(ctx); err != nil {
		return false, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, a := range b.Access {
		if a.CreatorID == creatorID && a.SubscriberID == subscriberID && now.Before(a.ExpiresAt) {
			return true, nil
		}
	}
	return false, nil
}

func (b *Backend) GrantPrivateAccess(ctx context.Context, access *models.PrivateAccess) error {
	if _, err := caller(ctx); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Access = append(b.Access, *access)
	return nil
}

func (b *Backend) GetConversations(ctx context.Context, userID string) ([]models.Conversation, error) {
	if _, err := caller(ctx); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []models.Conversation{}
	for _, c := range b.Conversations {
		for _, p := range c.Participants {
			if p.ID == userID {
				if msgs := b.Messages[c.ID]; len(msgs) > 0 {
					last := msgs[len(msgs)-1]
					c.LastMessage = &last
				}
				out = append(out, c)
				break
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (b *Backend) GetMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	if _, err := caller(ctx); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.Message{}, b.Messages[conversationID]...), nil
}

func (b *Backend) SendMessage(ctx context.Context, conversationID, senderID, content string) (*models.Message, error) {
	if _, err := caller(ctx); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	m := models.Message{ID: b.nextID("msg-"), ConversationID: conversationID, SenderID: senderID, Content: content, CreatedAt: time.Now()}
	b.Messages[conversationID] = append(b.Messages[conversationID], m)
	for i := range b.Conversations {
		if b.Conversations[i].ID == conversationID {
			b.Conversations[i].UpdatedAt = m.CreatedAt
		}
	}
	return &m, nil
}

func (b *Backend) CountUnread(ctx context.Context, userID string) (int64, error) {
	if _, err := caller(ctx); err != nil {
		return 0, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	var n int64
	for _, no := range b.Notifications {
		if no.UserID == userID && !no.Read {
			n++
		}
	}
	return n, nil
}

func (b *Backend) GetNotifications(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	if _, err := caller(ctx); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []models.Notification{}
	for _, no := range b.Notifications {
		if no.UserID == userID && len(out) < limit {
			out = append(out, no)
		}
	}
	return out, nil
}

func (b *Backend) MarkAsRead(ctx context.Context, userID, notificationID string) error {
	if _, err := caller(ctx); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.Notifications {
		if b.Notifications[i].ID == notificationID && b.Notifications[i].UserID == userID {
			b.Notifications[i].Read = true
		}
	}
	return nil
}

func (b *Backend) GetSecurityLogs(ctx context.Context, userID string, limit int) ([]models.SecurityLog, error) {
	if _, err := caller(ctx); err != nil {
		return nil, err
	}
	return []models.SecurityLog{{ID: "log-1", UserID: userID, Event: "login", CreatedAt: time.Now()}}, nil
}

func (b *Backend) CreateSupportTicket(ctx context.Context, ticket *models.SupportTicket) error {
	if _, err := caller(ctx); err != nil {
		return err
	}
	if ticket.Subject == "" {
		return errors.New("subject required")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Tickets = append(b.Tickets, *ticket)
	return nil
}
