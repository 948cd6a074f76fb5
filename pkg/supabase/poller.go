package supabase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// ChangePoller is a change source for environments where the websocket is not
// available. Each subscription is a cron job that re-reads the watched rows and
// reports a change whenever their fingerprint moves.
type ChangePoller struct {
	client   *Client
	cron     *cron.Cron
	interval time.Duration
	window   int
}

// NewChangePoller creates and starts a poller. Interval is rounded up to one
// second, the cron resolution.
func NewChangePoller(c *Client, interval time.Duration) *ChangePoller {
	if interval < time.Second {
		interval = time.Second
	}
	p := &ChangePoller{
		client:   c,
		cron:     cron.New(),
		interval: interval.Round(time.Second),
		window:   100,
	}
	p.cron.Start()
	return p
}

type pollWatch struct {
	cfg     ChangesConfig
	handler EventHandler
	token   string

	mu   sync.Mutex
	last string
}

// Subscribe registers a polling job. The first read only records a baseline.
func (p *ChangePoller) Subscribe(ctx context.Context, cfg ChangesConfig, handler EventHandler) (Subscription, error) {
	if cfg.Table == "" {
		return nil, fmt.Errorf("table is required")
	}
	w := &pollWatch{
		cfg:     cfg.withDefaults(),
		handler: handler,
		token:   AccessTokenFrom(ctx),
	}

	fp, err := p.fingerprint(ctx, w)
	if err != nil {
		return nil, fmt.Errorf("baseline %s: %w", cfg.Table, err)
	}
	w.last = fp

	id, err := p.cron.AddFunc(fmt.Sprintf("@every %s", p.interval), func() {
		p.check(w)
	})
	if err != nil {
		return nil, fmt.Errorf("schedule poll: %w", err)
	}
	return &pollSubscription{poller: p, id: id}, nil
}

// Stop stops the scheduler and waits for running checks.
func (p *ChangePoller) Stop() {
	<-p.cron.Stop().Done()
}

func (p *ChangePoller) check(w *pollWatch) {
	ctx, cancel := context.WithTimeout(context.Background(), p.interval)
	defer cancel()
	if token := w.cfg.accessToken(w.token); token != "" {
		ctx = WithAccessToken(ctx, token)
	}

	fp, err := p.fingerprint(ctx, w)
	if err != nil {
		log.Warn().Err(err).Str("table", w.cfg.Table).Msg("change poll failed")
		return
	}

	w.mu.Lock()
	changed := fp != w.last
	w.last = fp
	w.mu.Unlock()

	if changed && w.handler != nil {
		w.handler(ChangeEvent{
			Type:   EventAll,
			Schema: w.cfg.Schema,
			Table:  w.cfg.Table,
		})
	}
}

func (p *ChangePoller) fingerprint(ctx context.Context, w *pollWatch) (string, error) {
	q := p.client.From(w.cfg.Table).Select("*").Order("created_at", OrderDesc).Limit(p.window).Count("exact")
	if w.cfg.Filter != "" {
		q = q.RawFilter(w.cfg.Filter)
	}
	resp, err := q.Execute(ctx)
	if err != nil {
		return "", err
	}
	sum := sha256.New()
	sum.Write(resp.Body)
	if n, ok := resp.Count(); ok {
		fmt.Fprintf(sum, "|%d", n)
	}
	return hex.EncodeToString(sum.Sum(nil)), nil
}

type pollSubscription struct {
	poller *ChangePoller
	id     cron.EntryID
}

func (s *pollSubscription) Unsubscribe() error {
	s.poller.cron.Remove(s.id)
	return nil
}
