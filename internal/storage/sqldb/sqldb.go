// Package sqldb provides the SQL image and request log store (SQLite or PostgreSQL).
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/mandalnilabja/drawgate/internal/storage"
)

// Dialect selects driver-specific SQL.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

// Storage implements storage.Backend on database/sql
type Storage struct {
	db      *sql.DB
	dialect Dialect
	mu      sync.RWMutex
	closed  bool
}

// ParseDSN determines the dialect of a connection string and returns the
// driver-ready DSN. Bare paths and sqlite:// URLs are SQLite.
func ParseDSN(dsn string) (Dialect, string) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return Postgres, dsn
	case strings.HasPrefix(dsn, "sqlite://"):
		return SQLite, strings.TrimPrefix(dsn, "sqlite://")
	default:
		return SQLite, dsn
	}
}

// Open connects to dsn and creates the schema.
func Open(ctx context.Context, dsn string) (*Storage, error) {
	dialect, target := ParseDSN(dsn)

	var (
		db  *sql.DB
		err error
	)
	switch dialect {
	case Postgres:
		db, err = sql.Open("postgres", target)
		if err == nil {
			db.SetMaxOpenConns(25)
			db.SetMaxIdleConns(25)
			db.SetConnMaxLifetime(5 * time.Minute)
		}
	default:
		db, err = sql.Open("sqlite", withPragmas(target))
		if err == nil {
			// SQLite works best with single writer
			db.SetMaxOpenConns(1)
			db.SetMaxIdleConns(1)
			db.SetConnMaxLifetime(time.Hour)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Storage{db: db, dialect: dialect}
	if err := s.createSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return s, nil
}

// sqlitePragmas are appended to every SQLite DSN.
const sqlitePragmas = "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"

// withPragmas appends sqlitePragmas, keeping any query the DSN already has.
func withPragmas(dsn string) string {
	if strings.Contains(dsn, "?") {
		return dsn + "&" + sqlitePragmas
	}
	return dsn + "?" + sqlitePragmas
}

// Dialect returns the active SQL dialect.
func (s *Storage) Dialect() Dialect {
	return s.dialect
}

func (s *Storage) createSchema(ctx context.Context) error {
	blob, ts := "BLOB", "DATETIME"
	if s.dialect == Postgres {
		blob, ts = "BYTEA", "TIMESTAMPTZ"
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS images (
			image_key   TEXT PRIMARY KEY,
			prompt      TEXT NOT NULL,
			data        ` + blob + ` NOT NULL,
			media_type  TEXT NOT NULL,
			size        BIGINT NOT NULL,
			digest      TEXT NOT NULL,
			created_at  ` + ts + ` NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS request_logs (
			id              TEXT PRIMARY KEY,
			request_id      TEXT NOT NULL,
			model           TEXT NOT NULL,
			prompt_tokens   INTEGER DEFAULT 0,
			has_reference   INTEGER DEFAULT 0,
			status_code     INTEGER,
			error_kind      TEXT,
			error_message   TEXT,
			upstream_status INTEGER DEFAULT 0,
			strategy        TEXT,
			image_key       TEXT,
			image_bytes     BIGINT DEFAULT 0,
			duration_ms     BIGINT,
			created_at      ` + ts + ` NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_images_created ON images(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_logs_created ON request_logs(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_logs_kind ON request_logs(error_kind)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	return s.db.Close()
}

// rebind rewrites ? placeholders for dialects that number them.
func (s *Storage) rebind(query string) string {
	if s.dialect != Postgres {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// generateID creates a new unique ID with a prefix
func generateID(prefix string) string {
	return prefix + "_" + uuid.New().String()[:8]
}

// boolToInt converts a boolean to an integer (1 for true, 0 for false)
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ storage.Backend = (*Storage)(nil)
