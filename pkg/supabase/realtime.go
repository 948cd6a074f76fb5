package supabase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

const (
	defaultHeartbeat  = 25 * time.Second
	defaultMinBackoff = 500 * time.Millisecond
	defaultMaxBackoff = 30 * time.Second
)

var errNotConnected = errors.New("realtime: not connected")

// RealtimeClient subscribes to postgres changes over the Realtime websocket
// (phoenix channel protocol). One connection is shared by every channel and is
// dialled lazily on the first subscription. A lost connection is redialled
// with exponential backoff and every channel is joined again.
type RealtimeClient struct {
	url        string
	heartbeat  time.Duration
	minBackoff time.Duration
	maxBackoff time.Duration

	mu        sync.Mutex
	conn      *websocket.Conn
	channels  map[string]*channel
	ref       int
	seq       int
	done      chan struct{}
	closed    bool
	redialing bool
	stop      chan struct{}

	writeMu sync.Mutex
}

type channel struct {
	topic   string
	cfg     ChangesConfig
	handler EventHandler
	token   string

	// joinRef and conn describe the latest join; guarded by RealtimeClient.mu.
	joinRef string
	conn    *websocket.Conn
}

// NewRealtimeClient creates a realtime client for the project behind c.
func NewRealtimeClient(c *Client) *RealtimeClient {
	wsURL := c.baseURL
	switch {
	case strings.HasPrefix(wsURL, "https://"):
		wsURL = "wss://" + strings.TrimPrefix(wsURL, "https://")
	case strings.HasPrefix(wsURL, "http://"):
		wsURL = "ws://" + strings.TrimPrefix(wsURL, "http://")
	}
	wsURL += "/realtime/v1/websocket?apikey=" + c.anonKey + "&vsn=1.0.0"

	return &RealtimeClient{
		url:        wsURL,
		heartbeat:  defaultHeartbeat,
		minBackoff: defaultMinBackoff,
		maxBackoff: defaultMaxBackoff,
		channels:   make(map[string]*channel),
		stop:       make(chan struct{}),
	}
}

// Subscribe joins a channel receiving the changes selected by cfg. The access
// token carried by ctx is sent with the join so row level security applies.
func (r *RealtimeClient) Subscribe(ctx context.Context, cfg ChangesConfig, handler EventHandler) (Subscription, error) {
	if cfg.Table == "" {
		return nil, fmt.Errorf("table is required")
	}
	cfg = cfg.withDefaults()

	if err := r.connect(ctx); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.seq++
	ch := &channel{
		topic:   fmt.Sprintf("realtime:%s:%s:%d", cfg.Schema, cfg.Table, r.seq),
		cfg:     cfg,
		handler: handler,
		token:   AccessTokenFrom(ctx),
	}
	r.channels[ch.topic] = ch
	r.mu.Unlock()

	if err := r.join(ch); err != nil {
		r.mu.Lock()
		delete(r.channels, ch.topic)
		r.mu.Unlock()
		return nil, fmt.Errorf("send join: %w", err)
	}

	log.Debug().Str("topic", ch.topic).Str("table", cfg.Table).Str("filter", cfg.Filter).Msg("realtime channel joined")
	return &realtimeSubscription{client: r, topic: ch.topic}, nil
}

// join sends phx_join for ch on the current connection.
func (r *RealtimeClient) join(ch *channel) error {
	change := map[string]any{
		"event":  string(ch.cfg.Event),
		"schema": ch.cfg.Schema,
		"table":  ch.cfg.Table,
	}
	if ch.cfg.Filter != "" {
		change["filter"] = ch.cfg.Filter
	}
	payload := map[string]any{
		"config": map[string]any{
			"broadcast":        map[string]any{"self": false},
			"presence":         map[string]any{"key": ""},
			"postgres_changes": []any{change},
		},
	}
	if token := ch.cfg.accessToken(ch.token); token != "" {
		payload["access_token"] = token
	}

	r.mu.Lock()
	conn := r.conn
	if conn == nil {
		r.mu.Unlock()
		return errNotConnected
	}
	r.ref++
	ref := strconv.Itoa(r.ref)
	ch.joinRef = ref
	ch.conn = conn
	r.mu.Unlock()

	return r.write(conn, ch.topic, "phx_join", payload, ref, ref)
}

type realtimeSubscription struct {
	client *RealtimeClient
	topic  string
	once   sync.Once
	err    error
}

// Unsubscribe leaves the channel. Calling it more than once is harmless.
func (s *realtimeSubscription) Unsubscribe() error {
	s.once.Do(func() {
		s.err = s.client.leave(s.topic)
	})
	return s.err
}

func (r *RealtimeClient) leave(topic string) error {
	r.mu.Lock()
	ch, ok := r.channels[topic]
	if !ok {
		r.mu.Unlock()
		return nil
	}
	delete(r.channels, topic)
	r.ref++
	ref := strconv.Itoa(r.ref)
	joinRef := ch.joinRef
	conn := r.conn
	r.mu.Unlock()

	if conn == nil || ch.conn != conn {
		return nil
	}
	if err := r.write(conn, topic, "phx_leave", map[string]any{}, ref, joinRef); err != nil {
		return fmt.Errorf("send leave: %w", err)
	}
	return nil
}

// Close drops every channel, stops redialling and closes the connection.
func (r *RealtimeClient) Close() error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.stop)
	}
	conn := r.conn
	r.channels = make(map[string]*channel)
	if conn == nil {
		r.mu.Unlock()
		return nil
	}
	r.conn = nil
	close(r.done)
	r.mu.Unlock()

	r.writeMu.Lock()
	err := conn.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
	)
	r.writeMu.Unlock()
	conn.Close()
	if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		return fmt.Errorf("close message: %w", err)
	}
	return nil
}

func (r *RealtimeClient) connect(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return errors.New("realtime: client closed")
	}
	if r.conn != nil {
		return nil
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, r.url, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	r.conn = conn
	r.done = make(chan struct{})

	go r.readLoop(conn, r.done)
	go r.heartbeatLoop(r.done)

	return nil
}

func (r *RealtimeClient) send(topic, event string, payload any, ref, joinRef string) error {
	r.mu.Lock()
	conn := r.conn
	r.mu.Unlock()
	if conn == nil {
		return errNotConnected
	}
	return r.write(conn, topic, event, payload, ref, joinRef)
}

func (r *RealtimeClient) write(conn *websocket.Conn, topic, event string, payload any, ref, joinRef string) error {
	msg := map[string]any{
		"topic":   topic,
		"event":   event,
		"payload": payload,
		"ref":     ref,
	}
	if joinRef != "" {
		msg["join_ref"] = joinRef
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	return conn.WriteJSON(msg)
}

func (r *RealtimeClient) readLoop(conn *websocket.Conn, done chan struct{}) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-done:
			default:
				log.Warn().Err(err).Msg("realtime connection lost")
				r.dropConn(conn)
			}
			return
		}
		r.dispatch(message)
	}
}

// dropConn forgets a dead connection. Channels are kept and joined again
// once redial succeeds.
func (r *RealtimeClient) dropConn(conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn != conn {
		return
	}
	r.conn = nil
	close(r.done)

	if !r.closed && !r.redialing && len(r.channels) > 0 {
		r.redialing = true
		go r.redial()
	}
}

// redial reconnects with exponential backoff and rejoins every channel that
// was joined on an older connection.
func (r *RealtimeClient) redial() {
	backoff := r.minBackoff
	for {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := r.connect(ctx)
		cancel()
		if err == nil {
			break
		}

		r.mu.Lock()
		closed := r.closed
		r.mu.Unlock()
		if closed {
			return
		}

		log.Warn().Err(err).Dur("retry_in", backoff).Msg("realtime redial failed")
		select {
		case <-r.stop:
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > r.maxBackoff {
			backoff = r.maxBackoff
		}
	}

	r.mu.Lock()
	r.redialing = false
	stale := make([]*channel, 0, len(r.channels))
	for _, ch := range r.channels {
		if ch.conn != r.conn {
			stale = append(stale, ch)
		}
	}
	r.mu.Unlock()

	for _, ch := range stale {
		if err := r.join(ch); err != nil {
			log.Warn().Err(err).Str("topic", ch.topic).Msg("realtime rejoin failed")
		}
	}
	log.Info().Int("channels", len(stale)).Msg("realtime reconnected")
}

func (r *RealtimeClient) dispatch(message []byte) {
	if !gjson.ValidBytes(message) {
		return
	}
	frame := gjson.ParseBytes(message)
	topic := frame.Get("topic").String()

	switch frame.Get("event").String() {
	case "postgres_changes":
		data := frame.Get("payload.data")
		ev := ChangeEvent{
			Type:            EventType(data.Get("type").String()),
			Schema:          data.Get("schema").String(),
			Table:           data.Get("table").String(),
			CommitTimestamp: data.Get("commit_timestamp").String(),
		}
		if rec, ok := data.Get("record").Value().(map[string]any); ok {
			ev.Record = rec
		}
		if old, ok := data.Get("old_record").Value().(map[string]any); ok {
			ev.OldRecord = old
		}

		r.mu.Lock()
		ch, ok := r.channels[topic]
		r.mu.Unlock()
		if !ok || ch.handler == nil {
			return
		}
		if ch.cfg.Event != EventAll && ch.cfg.Event != ev.Type {
			return
		}
		go ch.handler(ev)

	case "phx_reply":
		if status := frame.Get("payload.status").String(); status != "ok" {
			log.Warn().Str("topic", topic).Str("status", status).
				Str("response", frame.Get("payload.response").Raw).Msg("realtime reply not ok")
		}

	case "phx_error", "phx_close":
		log.Warn().Str("topic", topic).Str("event", frame.Get("event").String()).Msg("realtime channel closed by server")
	}
}

func (r *RealtimeClient) heartbeatLoop(done chan struct{}) {
	ticker := time.NewTicker(r.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			r.mu.Lock()
			r.ref++
			ref := strconv.Itoa(r.ref)
			r.mu.Unlock()
			if err := r.send("phoenix", "heartbeat", map[string]any{}, ref, ""); err != nil {
				log.Warn().Err(err).Msg("realtime heartbeat failed")
			}
		}
	}
}
