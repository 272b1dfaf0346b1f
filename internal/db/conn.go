package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"slotdrop/internal/logging"
)

// ErrClosed is returned by Wait after Close.
var ErrClosed = errors.New("db: connection closed")

// Conn is the storage handle shared by every request. It becomes usable
// once Connect has opened the pool and applied migrations; until then Ready
// stays open and Wait blocks.
type Conn struct {
	ready  chan struct{}
	closed chan struct{}

	readyOnce sync.Once
	closeOnce sync.Once

	mu sync.RWMutex
	db *sql.DB
}

// NewConn returns a Conn that is not yet ready.
func NewConn() *Conn {
	return &Conn{
		ready:  make(chan struct{}),
		closed: make(chan struct{}),
	}
}

// NewReadyConn wraps an already open pool. No migrations are run.
func NewReadyConn(sqlDB *sql.DB) *Conn {
	c := NewConn()
	c.set(sqlDB)
	return c
}

func (c *Conn) set(sqlDB *sql.DB) {
	c.mu.Lock()
	select {
	case <-c.closed:
		// Closed while connecting.
		c.mu.Unlock()
		_ = sqlDB.Close()
		return
	default:
	}
	c.db = sqlDB
	c.mu.Unlock()
	c.readyOnce.Do(func() { close(c.ready) })
}

// Connect opens the pool, retrying with exponential backoff until timeout,
// then migrates the schema and marks the Conn ready. It blocks; callers
// usually run it in its own goroutine.
func (c *Conn) Connect(ctx context.Context, dsn string, timeout time.Duration, log *logging.Logger) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 250 * time.Millisecond
	bo.MaxInterval = 5 * time.Second
	bo.MaxElapsedTime = timeout

	var sqlDB *sql.DB
	op := func() error {
		d, err := OpenDB(ctx, dsn)
		if err != nil {
			if dsn == "" {
				return backoff.Permanent(err)
			}
			return err
		}
		sqlDB = d
		return nil
	}
	notify := func(err error, wait time.Duration) {
		log.Warn("database not reachable yet", map[string]any{
			"retry_in_ms": wait.Milliseconds(),
			"error":       err.Error(),
		})
	}

	if err := backoff.RetryNotify(op, backoff.WithContext(bo, ctx), notify); err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	if err := Migrate(ctx, dsn); err != nil {
		_ = sqlDB.Close()
		return err
	}

	c.set(sqlDB)
	log.Info("database ready", nil)
	return nil
}

// Ready is closed once the pool is usable.
func (c *Conn) Ready() <-chan struct{} {
	return c.ready
}

// Wait blocks until the Conn is ready, ctx is done, or the Conn is closed.
func (c *Conn) Wait(ctx context.Context) (*sql.DB, error) {
	select {
	case <-c.ready:
	default:
		select {
		case <-c.ready:
		case <-c.closed:
			return nil, ErrClosed
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.db == nil {
		return nil, ErrClosed
	}
	return c.db, nil
}

// Close releases the pool. Safe to call more than once and before readiness.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.db != nil {
			err = c.db.Close()
			c.db = nil
		}
	})
	return err
}
