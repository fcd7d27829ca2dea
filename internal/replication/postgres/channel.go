// Package postgres is the hosted replication transport. Snapshots live in a
// session_snapshots table keyed by session code; LISTEN/NOTIFY wakes
// subscribers when a newer version lands.
package postgres

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/photolangage/photolangage/internal/replication"
)

const notifyChannel = "photolangage_session_sync"

const schema = `
CREATE TABLE IF NOT EXISTS session_snapshots (
	code       TEXT PRIMARY KEY,
	version    BIGINT NOT NULL,
	state      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// NewPool creates a pgx connection pool.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	return pgxpool.NewWithConfig(ctx, config)
}

type subscriber struct {
	id int
	fn replication.Handler
}

// Channel replicates snapshots through the shared store.
type Channel struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger

	mu     sync.RWMutex
	nextID int
	subs   map[string][]subscriber
	cancel context.CancelFunc
	done   chan struct{}
}

func NewChannel(pool *pgxpool.Pool, logger zerolog.Logger) *Channel {
	return &Channel{
		pool:   pool,
		logger: logger.With().Str("component", "replication").Logger(),
		subs:   make(map[string][]subscriber),
	}
}

// Start creates the schema and runs the notification listener until the
// context is cancelled or Stop is called.
func (c *Channel) Start(ctx context.Context) error {
	if _, err := c.pool.Exec(ctx, schema); err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.listen(ctx)
	return nil
}

// Stop tears the listener down.
func (c *Channel) Stop() {
	if c.cancel != nil {
		c.cancel()
		<-c.done
	}
}

// Publish upserts the snapshot, guarded so an older version never overwrites
// a newer one, and notifies listeners. Last write (by version) wins.
func (c *Channel) Publish(ctx context.Context, code string, env replication.Envelope) error {
	payload, err := replication.Encode(env)
	if err != nil {
		return err
	}
	_, err = c.pool.Exec(ctx, `
		INSERT INTO session_snapshots (code, version, state, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (code) DO UPDATE
		SET version = EXCLUDED.version, state = EXCLUDED.state, updated_at = now()
		WHERE session_snapshots.version < EXCLUDED.version`,
		code, env.Version, payload)
	if err != nil {
		return err
	}
	_, err = c.pool.Exec(ctx, `SELECT pg_notify($1, $2)`, notifyChannel, code)
	return err
}

// RequestSync is a no-op: the store itself is the source of truth and
// Subscribe delivers the current snapshot immediately.
func (c *Channel) RequestSync(context.Context, string) error {
	return nil
}

// Subscribe registers a handler for a code. The stored snapshot, if any, is
// delivered right away so new clients bootstrap without a handshake.
func (c *Channel) Subscribe(code string, fn replication.Handler) (func(), error) {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.subs[code] = append(c.subs[code], subscriber{id: id, fn: fn})
	c.mu.Unlock()

	go func() {
		env, ok, err := c.fetch(context.Background(), code)
		if err != nil {
			c.logger.Warn().Err(err).Str("code", code).Msg("initial snapshot fetch failed")
			return
		}
		if ok {
			fn(replication.Message{Envelope: env})
		}
	}()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		kept := c.subs[code][:0]
		for _, s := range c.subs[code] {
			if s.id != id {
				kept = append(kept, s)
			}
		}
		if len(kept) == 0 {
			delete(c.subs, code)
		} else {
			c.subs[code] = kept
		}
	}, nil
}

func (c *Channel) fetch(ctx context.Context, code string) (replication.Envelope, bool, error) {
	var payload []byte
	err := c.pool.QueryRow(ctx,
		`SELECT state FROM session_snapshots WHERE code = $1`, code).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return replication.Envelope{}, false, nil
	}
	if err != nil {
		return replication.Envelope{}, false, err
	}
	msg, err := replication.Decode(payload)
	if err != nil {
		return replication.Envelope{}, false, err
	}
	return msg.Envelope, true, nil
}

func (c *Channel) listen(ctx context.Context) {
	defer close(c.done)
	for {
		if err := c.listenOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Warn().Err(err).Msg("listener connection lost, reconnecting")
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
		}
	}
}

func (c *Channel) listenOnce(ctx context.Context) error {
	conn, err := c.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `LISTEN `+notifyChannel); err != nil {
		return err
	}
	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		c.deliver(ctx, notification.Payload)
	}
}

func (c *Channel) deliver(ctx context.Context, code string) {
	c.mu.RLock()
	targets := make([]subscriber, len(c.subs[code]))
	copy(targets, c.subs[code])
	c.mu.RUnlock()
	if len(targets) == 0 {
		return
	}
	env, ok, err := c.fetch(ctx, code)
	if err != nil || !ok {
		if err != nil {
			c.logger.Warn().Err(err).Str("code", code).Msg("snapshot fetch after notify failed")
		}
		return
	}
	for _, s := range targets {
		s.fn(replication.Message{Envelope: env})
	}
}
