package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// CatalogIndex keeps a queryable record of exported conversations so the
// catalog feed can list and search them without re-parsing every file.
type CatalogIndex struct {
	db *sql.DB
}

func NewCatalogIndex(dataDir string) (*CatalogIndex, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "catalog.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	idx := &CatalogIndex{db: db}

	if err := idx.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return idx, nil
}

func (ci *CatalogIndex) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		username TEXT NOT NULL,
		date_created TEXT NOT NULL,
		file_path TEXT NOT NULL,
		message_count INTEGER NOT NULL,
		indexed_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_conversations_title ON conversations(title);
	`

	_, err := ci.db.Exec(schema)
	return err
}

// Add records one exported conversation, replacing any previous row for the
// same id.
func (ci *CatalogIndex) Add(meta RecordMeta) error {
	_, err := ci.db.Exec(`
		INSERT OR REPLACE INTO conversations
		(id, title, username, date_created, file_path, message_count, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		meta.ID, meta.Title, meta.Username, meta.DateCreated,
		meta.Path, meta.MessageCount, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to index conversation: %w", err)
	}
	return nil
}

// List returns every indexed conversation, newest first.
func (ci *CatalogIndex) List() ([]RecordMeta, error) {
	rows, err := ci.db.Query(`
		SELECT id, title, username, date_created, file_path, message_count
		FROM conversations
		ORDER BY date_created DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	return scanMetas(rows)
}

// Search matches the query as a case-insensitive substring of the title or
// username.
func (ci *CatalogIndex) Search(query string) ([]RecordMeta, error) {
	if strings.TrimSpace(query) == "" {
		return []RecordMeta{}, nil
	}

	pattern := "%" + escapeLike(query) + "%"
	rows, err := ci.db.Query(`
		SELECT id, title, username, date_created, file_path, message_count
		FROM conversations
		WHERE title LIKE ? ESCAPE '\' OR username LIKE ? ESCAPE '\'
		ORDER BY date_created DESC`,
		pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to search conversations: %w", err)
	}
	defer rows.Close()

	return scanMetas(rows)
}

// Reindex rebuilds the index from the export directory. Unreadable files are
// skipped, matching the catalog read behavior.
func (ci *CatalogIndex) Reindex(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			entries = nil
		} else {
			return fmt.Errorf("failed to read export directory: %w", err)
		}
	}

	tx, err := ci.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin reindex: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM conversations`); err != nil {
		return fmt.Errorf("failed to clear index: %w", err)
	}

	now := time.Now()
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		meta, err := RecordMetaFromFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue
		}

		_, err = tx.Exec(`
			INSERT OR REPLACE INTO conversations
			(id, title, username, date_created, file_path, message_count, indexed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			meta.ID, meta.Title, meta.Username, meta.DateCreated,
			meta.Path, meta.MessageCount, now,
		)
		if err != nil {
			return fmt.Errorf("failed to reindex %s: %w", meta.ID, err)
		}
	}

	return tx.Commit()
}

func (ci *CatalogIndex) Close() error {
	return ci.db.Close()
}

func scanMetas(rows *sql.Rows) ([]RecordMeta, error) {
	var metas []RecordMeta
	for rows.Next() {
		var meta RecordMeta
		if err := rows.Scan(&meta.ID, &meta.Title, &meta.Username,
			&meta.DateCreated, &meta.Path, &meta.MessageCount); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		metas = append(metas, meta)
	}
	return metas, rows.Err()
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
