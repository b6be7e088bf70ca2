// Package archive keeps a sqlite record of every synced conversation so
// sessions can be listed and inspected after the fact without touching
// either provider's live storage.
package archive

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sunhome243/nexus-cli-sub000/internal/message"
)

// Entry is one archived conversation snapshot
type Entry struct {
	Tag          string
	Provider     message.Provider
	SyncedAt     time.Time
	MessageCount int
}

// Archive wraps the sqlite database holding synced conversations
type Archive struct {
	db *sql.DB
}

// Open opens (creating if needed) the archive database
func Open(path string) (*Archive, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("archive ping failed: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS synced_sessions (
		tag TEXT NOT NULL,
		provider TEXT NOT NULL,
		synced_at TEXT NOT NULL,
		message_count INTEGER NOT NULL,
		content TEXT NOT NULL,
		PRIMARY KEY (tag, provider)
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create archive schema: %w", err)
	}
	return &Archive{db: db}, nil
}

// Close closes the underlying database
func (a *Archive) Close() error {
	return a.db.Close()
}

// Record stores the canonical conversation written to a provider during
// a completed sync, replacing any earlier snapshot for the same tag and
// provider.
func (a *Archive) Record(tag string, p message.Provider, msgs []message.Message) error {
	content, err := json.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("failed to marshal conversation: %w", err)
	}

	query := `
	INSERT INTO synced_sessions (tag, provider, synced_at, message_count, content)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT (tag, provider) DO UPDATE SET
		synced_at = excluded.synced_at,
		message_count = excluded.message_count,
		content = excluded.content`
	_, err = a.db.Exec(query, tag, string(p), time.Now().Format(time.RFC3339), len(msgs), string(content))
	if err != nil {
		return fmt.Errorf("failed to record synced session: %w", err)
	}
	return nil
}

// List returns archived entries ordered by sync time, newest first
func (a *Archive) List() ([]Entry, error) {
	query := `
	SELECT tag, provider, synced_at, message_count
	FROM synced_sessions ORDER BY synced_at DESC, tag`
	rows, err := a.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var prov, syncedAt string
		if err := rows.Scan(&e.Tag, &prov, &syncedAt, &e.MessageCount); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		e.Provider = message.Provider(prov)
		if t, err := time.Parse(time.RFC3339, syncedAt); err == nil {
			e.SyncedAt = t
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return entries, nil
}

// Get returns the most recently archived conversation for a tag
func (a *Archive) Get(tag string) ([]message.Message, error) {
	query := `
	SELECT content FROM synced_sessions
	WHERE tag = ? ORDER BY synced_at DESC LIMIT 1`
	var content string
	if err := a.db.QueryRow(query, tag).Scan(&content); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("no archived conversation for session %q", tag)
		}
		return nil, fmt.Errorf("query failed: %w", err)
	}

	var msgs []message.Message
	if err := json.Unmarshal([]byte(content), &msgs); err != nil {
		return nil, fmt.Errorf("failed to parse archived conversation: %w", err)
	}
	return msgs, nil
}

// Search returns tags whose archived content contains term
func (a *Archive) Search(term string) ([]Entry, error) {
	query := `
	SELECT tag, provider, synced_at, message_count
	FROM synced_sessions WHERE content LIKE ? ORDER BY synced_at DESC`
	rows, err := a.db.Query(query, "%"+term+"%")
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var prov, syncedAt string
		if err := rows.Scan(&e.Tag, &prov, &syncedAt, &e.MessageCount); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		e.Provider = message.Provider(prov)
		if t, err := time.Parse(time.RFC3339, syncedAt); err == nil {
			e.SyncedAt = t
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return entries, nil
}
