// Package localcache keeps small pieces of process state on local disk so a
// restart can pick up cached sessions and the last report snapshot.
package localcache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Namespaces used by the services
const (
	NamespaceSessions = "sessions"
	NamespaceReports  = "reports"
)

const schema = `CREATE TABLE IF NOT EXISTS kv (
	ns TEXT NOT NULL,
	key TEXT NOT NULL,
	value TEXT NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (ns, key)
);`

// Cache is a namespaced JSON key/value store on SQLite
type Cache struct {
	conn *sql.DB
}

// New opens the cache at dsn and creates its table
func New(ctx context.Context, dsn string) (*Cache, error) {
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping cache: %w", err)
	}
	if _, err := conn.ExecContext(ctx, schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create cache schema: %w", err)
	}
	return &Cache{conn: conn}, nil
}

// Close closes the cache connection
func (c *Cache) Close() error {
	return c.conn.Close()
}

// Put stores v as JSON under ns/key, replacing any previous value
func (c *Cache) Put(ctx context.Context, ns, key string, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s/%s: %w", ns, key, err)
	}
	_, err = c.conn.ExecContext(ctx,
		`INSERT INTO kv (ns, key, value, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (ns, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		ns, key, string(b), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to store %s/%s: %w", ns, key, err)
	}
	return nil
}

// Get decodes the value under ns/key into out. It reports false when no
// value is stored.
func (c *Cache) Get(ctx context.Context, ns, key string, out interface{}) (bool, error) {
	var raw string
	err := c.conn.QueryRowContext(ctx, `SELECT value FROM kv WHERE ns = ? AND key = ?`, ns, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s/%s: %w", ns, key, err)
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, fmt.Errorf("failed to decode %s/%s: %w", ns, key, err)
	}
	return true, nil
}

// Delete removes ns/key. Deleting a missing key is not an error.
func (c *Cache) Delete(ctx context.Context, ns, key string) error {
	if _, err := c.conn.ExecContext(ctx, `DELETE FROM kv WHERE ns = ? AND key = ?`, ns, key); err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", ns, key, err)
	}
	return nil
}

// All returns the raw JSON values stored in ns keyed by key
func (c *Cache) All(ctx context.Context, ns string) (map[string]json.RawMessage, error) {
	rows, err := c.conn.QueryContext(ctx, `SELECT key, value FROM kv WHERE ns = ?`, ns)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", ns, err)
	}
	defer rows.Close()

	out := map[string]json.RawMessage{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", ns, err)
		}
		out[key] = json.RawMessage(value)
	}
	return out, rows.Err()
}
