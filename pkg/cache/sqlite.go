package cache

import (
	"encoding/json"
	"log/slog"

	"geodispatch/pkg/db"
	"geodispatch/pkg/model"
)

// SQLite implements Cacher on top of pkg/db, so lookup results survive
// restarts. The Cacher contract still holds: no operation fails, storage
// errors are logged and treated as misses.
type SQLite struct {
	db     *db.DB
	logger *slog.Logger
}

// NewSQLite creates a new persistent cache.
func NewSQLite(d *db.DB) *SQLite {
	return &SQLite{
		db:     d,
		logger: slog.With("component", "cache"),
	}
}

func (c *SQLite) Get(fingerprint string) ([]model.Place, bool) {
	var payload string
	err := c.db.QueryRow("SELECT payload FROM lookups WHERE fingerprint = ?", fingerprint).Scan(&payload)
	if err != nil {
		return nil, false
	}

	var places []model.Place
	if err := json.Unmarshal([]byte(payload), &places); err != nil {
		c.logger.Warn("Discarding unreadable cache entry", "fingerprint", fingerprint, "error", err)
		return nil, false
	}
	return places, true
}

func (c *SQLite) Set(fingerprint string, places []model.Place) []model.Place {
	payload, err := json.Marshal(places)
	if err != nil {
		c.logger.Error("Failed to encode cache entry", "fingerprint", fingerprint, "error", err)
		return places
	}

	_, err = c.db.Exec(
		"INSERT INTO lookups (fingerprint, payload) VALUES (?, ?) ON CONFLICT(fingerprint) DO UPDATE SET payload = excluded.payload",
		fingerprint, string(payload),
	)
	if err != nil {
		c.logger.Error("Failed to persist cache entry", "fingerprint", fingerprint, "error", err)
	}
	return places
}

func (c *SQLite) Flush() {
	if _, err := c.db.Exec("DELETE FROM lookups"); err != nil {
		c.logger.Error("Failed to flush cache", "error", err)
	}
}
