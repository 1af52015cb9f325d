package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS postings (
	job_id         TEXT NOT NULL,
	source         TEXT NOT NULL,
	title          TEXT NOT NULL DEFAULT '',
	location       TEXT NOT NULL DEFAULT '',
	department     TEXT NOT NULL DEFAULT '',
	published_at   INTEGER NOT NULL,
	url            TEXT NOT NULL DEFAULT '',
	description    TEXT NOT NULL DEFAULT '',
	fetched_at     INTEGER NOT NULL,
	title_filtered BOOLEAN,
	in_usa         BOOLEAN,
	fit_score      INTEGER CHECK (fit_score BETWEEN 0 AND 100),
	visa_sponsor   BOOLEAN,
	reason         TEXT,
	PRIMARY KEY (job_id, source)
);
CREATE INDEX IF NOT EXISTS postings_published_at ON postings (published_at)`

// SQLiteStore keeps postings in a local SQLite database. Times are stored as
// unix seconds so range predicates compare numerically.
type SQLiteStore struct {
	sqlStore
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures the
// postings table exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// sqlite wants a single writer.
	db.SetMaxOpenConns(1)

	// Verify the connection is alive.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating postings table: %w", err)
	}

	return &SQLiteStore{sqlStore{
		db: sqlx.NewDb(db, "sqlite"),
		dialect: dialect{
			bindType: sqlx.QUESTION,
			insertStmt: `INSERT OR IGNORE INTO postings
				(job_id, source, title, location, department, published_at, url, description, fetched_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			timeValue: func(t time.Time) any { return t.Unix() },
		},
	}}, nil
}
