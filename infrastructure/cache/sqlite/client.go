// ABOUTME: SQLite-based cache implementation for persistent caching
// ABOUTME: Keeps fetched robots.txt bodies across process restarts

package sqlite

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	_ "github.com/mattn/go-sqlite3"

	"content-fetch-api/core/interfaces"
	"content-fetch-api/pkg/config"
)

const (
	defaultPath     = "contentfetch-cache.db"
	cleanupInterval = 5 * time.Minute
)

// Client implements the Cache interface using SQLite
type Client struct {
	db       *sql.DB
	filePath string
	logger   interfaces.Logger

	stop     chan struct{}
	stopOnce sync.Once
}

// NewSQLiteCache opens (creating if needed) the cache database at cfg.Path
func NewSQLiteCache(cfg config.SQLiteConfig, logger interfaces.Logger) (*Client, error) {
	filePath := cfg.Path
	if filePath == "" {
		filePath = defaultPath
	}

	db, err := sql.Open("sqlite3", filePath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open SQLite database")
	}
	// go-sqlite3 serializes writers; one connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to connect to SQLite database")
	}

	c := &Client{
		db:       db,
		filePath: filePath,
		logger:   logger,
		stop:     make(chan struct{}),
	}
	if err := c.initSchema(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to initialize schema")
	}

	go c.cleanupRoutine()
	return c, nil
}

func (c *Client) initSchema() error {
	_, err := c.db.Exec(`
		CREATE TABLE IF NOT EXISTS cache (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			expiry INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_expiry ON cache(expiry);
	`)
	return err
}

// Get retrieves a live value. expiry 0 marks an entry that never expires.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key, c.logger); err != nil {
		return nil, err
	}

	var value []byte
	err := c.db.QueryRowContext(ctx,
		"SELECT value FROM cache WHERE key = ? AND (expiry = 0 OR expiry > ?)",
		key, time.Now().UnixNano(),
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, interfaces.ErrCacheMiss
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get value")
	}
	return value, nil
}

// Set stores a value with TTL. A zero TTL never expires.
func (c *Client) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := validateKey(key, c.logger); err != nil {
		return err
	}
	if err := validateValue(value); err != nil {
		return err
	}

	var expiry int64
	if ttl > 0 {
		expiry = time.Now().Add(ttl).UnixNano()
	}
	if value == nil {
		value = []byte{}
	}

	_, err := c.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO cache (key, value, expiry) VALUES (?, ?, ?)",
		key, value, expiry,
	)
	if err != nil {
		return errors.Wrap(err, "failed to set value")
	}
	return nil
}

// Delete removes a value from the cache
func (c *Client) Delete(ctx context.Context, key string) error {
	if err := validateKey(key, c.logger); err != nil {
		return err
	}
	if _, err := c.db.ExecContext(ctx, "DELETE FROM cache WHERE key = ?", key); err != nil {
		return errors.Wrap(err, "failed to delete value")
	}
	return nil
}

// Stats reports entry counts and file size
func (c *Client) Stats(ctx context.Context) (map[string]interface{}, error) {
	stats := map[string]interface{}{"file_path": c.filePath}

	var total, expired int
	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM cache").Scan(&total); err != nil {
		return nil, err
	}
	err := c.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM cache WHERE expiry != 0 AND expiry <= ?", time.Now().UnixNano(),
	).Scan(&expired)
	if err != nil {
		return nil, err
	}
	stats["total_entries"] = total
	stats["expired_entries"] = expired

	var pageCount, pageSize int
	if c.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount) == nil &&
		c.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize) == nil {
		stats["db_size_bytes"] = pageCount * pageSize
	}
	return stats, nil
}

func (c *Client) cleanupRoutine() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

// cleanup removes expired entries
func (c *Client) cleanup() {
	_, err := c.db.Exec("DELETE FROM cache WHERE expiry != 0 AND expiry <= ?", time.Now().UnixNano())
	if err != nil && c.logger != nil {
		c.logger.Warn("SQLite cache cleanup failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// Close stops the cleanup routine and closes the database
func (c *Client) Close() error {
	c.stopOnce.Do(func() { close(c.stop) })
	return c.db.Close()
}
