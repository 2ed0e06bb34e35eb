package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"pai/internal/audit"
	"pai/internal/domain"
	"pai/internal/repository"

	_ "modernc.org/sqlite"
)

// DefaultLimit caps Recent when the query sets no limit
const DefaultLimit = 100

// Repository implements repository.AuditRepository using SQLite
type Repository struct {
	db *sql.DB
}

// New opens (creating if needed) the database at dbPath and migrates it.
// ":memory:" gives a private in-memory database.
func New(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one connection: writes are serialized and :memory: stays a single database
	db.SetMaxOpenConns(1)

	repo := &Repository{db: db}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return repo, nil
}

func dsn(path string) string {
	if path == ":memory:" {
		return path
	}
	return "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
}

func (r *Repository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS audit_entries (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		timestamp DATETIME NOT NULL,
		domain TEXT NOT NULL,
		operation TEXT NOT NULL,
		provider TEXT,
		target TEXT,
		success INTEGER NOT NULL,
		latency_ms INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_entries(timestamp);
	CREATE INDEX IF NOT EXISTS idx_audit_domain ON audit_entries(domain);
	`
	if _, err := r.db.Exec(schema); err != nil {
		return err
	}

	// added after the first release
	if err := r.addColumnIfNotExists("audit_entries", "error_code", "TEXT"); err != nil {
		return err
	}
	_, err := r.db.Exec(`CREATE INDEX IF NOT EXISTS idx_audit_error_code ON audit_entries(error_code)`)
	return err
}

// addColumnIfNotExists adds a column to an existing table
func (r *Repository) addColumnIfNotExists(table, column, decl string) error {
	rows, err := r.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return fmt.Errorf("table info %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid, notNull, pk int
			name, typ        string
			dflt             sql.NullString
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return fmt.Errorf("scan table info: %w", err)
		}
		if name == column {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	_, err = r.db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, decl))
	if err != nil {
		return fmt.Errorf("add column %s.%s: %w", table, column, err)
	}
	return nil
}

// Log appends e, assigning an ID when it has none
func (r *Repository) Log(ctx context.Context, e audit.Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_entries (`+insertColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, insertArgs(e)...)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return nil
}

// Recent returns entries matching q, newest first
func (r *Repository) Recent(ctx context.Context, q audit.Query) ([]audit.Entry, error) {
	var (
		where []string
		args  []any
	)
	if q.Domain != "" {
		where = append(where, "domain = ?")
		args = append(args, string(q.Domain))
	}
	if q.FailedOnly {
		where = append(where, "success = 0")
	}
	if !q.Since.IsZero() {
		where = append(where, "timestamp >= ?")
		args = append(args, q.Since.UTC())
	}

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	query := "SELECT " + entryColumns + " FROM audit_entries"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY timestamp DESC, seq DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		var row entryRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, row.toEntry())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit entries: %w", err)
	}
	return entries, nil
}

// Count returns the number of stored entries
func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count audit entries: %w", err)
	}
	return n, nil
}

// Prune deletes entries older than before and returns how many were removed
func (r *Repository) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM audit_entries WHERE timestamp < ?`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune audit entries: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}

var (
	_ audit.Store                = (*Repository)(nil)
	_ repository.AuditRepository = (*Repository)(nil)
)

func parseDomain(s string) domain.Domain {
	if d, err := domain.ParseDomain(s); err == nil {
		return d
	}
	return domain.Domain(s)
}
