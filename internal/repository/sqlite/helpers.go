package sqlite

import (
	"database/sql"
	"time"

	"pai/internal/audit"
)

// nullToString safely converts sql.NullString to string
func nullToString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// stringToNull converts "" to NULL
func stringToNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// boolToInt stores a bool as 0 or 1
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// To add a column to audit_entries:
// 1. Add the field to entryRow
// 2. APPEND it to scanArgs() and entryColumns
// 3. Map it in toEntry()
// 4. APPEND it to insertColumns and insertArgs() if writable
// 5. Add a migration in migrate() using addColumnIfNotExists()
//
// Column order must match between entryColumns and scanArgs(), and between
// insertColumns and insertArgs().

// entryRow holds the columns of one audit_entries row
type entryRow struct {
	ID        string
	Timestamp time.Time
	Domain    string
	Operation string
	Provider  sql.NullString
	Target    sql.NullString
	Success   int
	LatencyMs int64
	ErrorCode sql.NullString
}

// scanArgs returns pointers to all fields for sql.Scan()
func (r *entryRow) scanArgs() []any {
	return []any{
		&r.ID,
		&r.Timestamp,
		&r.Domain,
		&r.Operation,
		&r.Provider,
		&r.Target,
		&r.Success,
		&r.LatencyMs,
		&r.ErrorCode,
	}
}

func (r *entryRow) toEntry() audit.Entry {
	return audit.Entry{
		ID:        r.ID,
		Timestamp: r.Timestamp.UTC(),
		Domain:    parseDomain(r.Domain),
		Operation: r.Operation,
		Provider:  nullToString(r.Provider),
		Target:    nullToString(r.Target),
		Success:   r.Success != 0,
		ErrorCode: nullToString(r.ErrorCode),
		Latency:   time.Duration(r.LatencyMs) * time.Millisecond,
	}
}

const entryColumns = `id, timestamp, domain, operation, provider, target,
	success, latency_ms, error_code`

const insertColumns = entryColumns

func insertArgs(e audit.Entry) []any {
	return []any{
		e.ID,
		e.Timestamp.UTC(),
		string(e.Domain),
		e.Operation,
		stringToNull(e.Provider),
		stringToNull(e.Target),
		boolToInt(e.Success),
		e.LatencyMs(),
		stringToNull(e.ErrorCode),
	}
}
