// Package cache persists a durable record of which source messages have
// already been delivered to the destination, so an interrupted run can
// resume without re-copying or duplicating messages.
package cache

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mboxbridge/mailxfer/internal/xferrors"
)

const schema = `
CREATE TABLE IF NOT EXISTS transferred_messages (
	source_uid     INTEGER NOT NULL,
	folder         TEXT    NOT NULL,
	dest_uid       TEXT,
	transferred_at DATETIME NOT NULL,
	message_size   INTEGER,
	PRIMARY KEY (source_uid, folder)
);
CREATE INDEX IF NOT EXISTS idx_transferred_messages_folder ON transferred_messages (folder);
CREATE INDEX IF NOT EXISTS idx_transferred_messages_transferred_at ON transferred_messages (transferred_at);
`

// Record describes one delivered message as recorded in the resume cache.
type Record struct {
	SourceUID     uint32
	Folder        string
	DestUID       string
	TransferredAt time.Time
	MessageSize   int64
}

// Stats summarizes the cache contents for one folder.
type Stats struct {
	Count     int
	TotalSize int64
}

// Cache is a crash-safe, UID-keyed resume/dedup store backed by an embedded
// SQL database. A Mark is durable the moment it returns: every insert
// commits on its own, so a process killed mid-transfer never loses record of
// messages already delivered.
type Cache struct {
	db *sql.DB
}

// Open creates (if necessary) and opens the cache database at path.
func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, xferrors.Wrap(xferrors.Cache, "open", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, xferrors.Wrap(xferrors.Cache, "migrate", path, err)
	}

	return &Cache{db: db}, nil
}

// Close releases the underlying database handle.
func (c *Cache) Close() error {
	return c.db.Close()
}

// IsTransferred reports whether sourceUID in folder has already been
// recorded as delivered. A read failure is treated as "not transferred" so a
// cache glitch causes a redundant copy rather than a silent data loss.
func (c *Cache) IsTransferred(ctx context.Context, folder string, sourceUID uint32) bool {
	var n int
	err := c.db.QueryRowContext(ctx,
		`SELECT 1 FROM transferred_messages WHERE folder = ? AND source_uid = ?`,
		folder, sourceUID,
	).Scan(&n)
	return err == nil
}

// TransferredUIDs returns the set of source UIDs already recorded as
// delivered for folder, as a membership map (a map has no order).
func (c *Cache) TransferredUIDs(ctx context.Context, folder string) (map[uint32]bool, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT source_uid FROM transferred_messages WHERE folder = ? ORDER BY source_uid`,
		folder,
	)
	if err != nil {
		return nil, xferrors.Wrap(xferrors.Cache, "query", "", err)
	}
	defer rows.Close()

	uids := make(map[uint32]bool)
	for rows.Next() {
		var uid uint32
		if err := rows.Scan(&uid); err != nil {
			return nil, xferrors.Wrap(xferrors.Cache, "scan", "", err)
		}
		uids[uid] = true
	}
	return uids, rows.Err()
}

// Mark durably records sourceUID in folder as delivered with destUID and
// size. A duplicate mark (same source_uid, folder) is idempotent: it
// overwrites the prior record rather than erroring, since a retried append
// after an ambiguous network failure must not abort the run.
func (c *Cache) Mark(ctx context.Context, folder string, sourceUID uint32, destUID string, size int64) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO transferred_messages (source_uid, folder, dest_uid, transferred_at, message_size)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (source_uid, folder) DO UPDATE SET
			dest_uid = excluded.dest_uid,
			transferred_at = excluded.transferred_at,
			message_size = excluded.message_size`,
		sourceUID, folder, destUID, time.Now().UTC(), size,
	)
	if err != nil {
		return xferrors.Wrap(xferrors.Cache, "mark", "", err)
	}
	return nil
}

// FolderStats returns aggregate counters across every folder recorded in the
// cache when folder is empty, or for a single folder otherwise.
func (c *Cache) FolderStats(ctx context.Context, folder string) (Stats, error) {
	var s Stats
	var totalSize sql.NullInt64
	var err error
	if folder == "" {
		err = c.db.QueryRowContext(ctx,
			`SELECT COUNT(*), SUM(message_size) FROM transferred_messages`,
		).Scan(&s.Count, &totalSize)
	} else {
		err = c.db.QueryRowContext(ctx,
			`SELECT COUNT(*), SUM(message_size) FROM transferred_messages WHERE folder = ?`,
			folder,
		).Scan(&s.Count, &totalSize)
	}
	if err != nil {
		return Stats{}, xferrors.Wrap(xferrors.Cache, "stats", "", err)
	}
	s.TotalSize = totalSize.Int64
	return s, nil
}
