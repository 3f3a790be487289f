package journal

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists records to a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `CREATE TABLE IF NOT EXISTS exchanges (
        id TEXT PRIMARY KEY,
        session_id TEXT,
        ts INTEGER,
        source TEXT,
        command TEXT,
        verb TEXT,
        reply TEXT,
        outcome TEXT,
        latency_ms REAL,
        error TEXT
    );
    CREATE INDEX IF NOT EXISTS exchanges_ts ON exchanges (ts);`

// NewSQLiteStore opens or creates the database at path and ensures the schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Append writes the record to the database.
func (s *SQLiteStore) Append(ctx context.Context, rec Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO exchanges (id, session_id, ts, source, command, verb, reply, outcome, latency_ms, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.SessionID, rec.Timestamp.UnixNano(), rec.Source, rec.Command, verb(rec.Command),
		rec.Reply, rec.Outcome, rec.LatencyMS, rec.Error)
	return err
}

// Query returns records matching q ordered by time.
func (s *SQLiteStore) Query(ctx context.Context, q Query) ([]Record, error) {
	var args []any
	query := `SELECT id, session_id, ts, source, command, reply, outcome, latency_ms, error
		FROM exchanges WHERE 1=1`
	if !q.Start.IsZero() {
		query += ` AND ts >= ?`
		args = append(args, q.Start.UnixNano())
	}
	if !q.End.IsZero() {
		query += ` AND ts <= ?`
		args = append(args, q.End.UnixNano())
	}
	if q.Command != "" {
		query += ` AND verb = ?`
		args = append(args, verb(q.Command))
	}
	if q.SessionID != "" {
		query += ` AND session_id = ?`
		args = append(args, q.SessionID)
	}
	query += ` ORDER BY ts`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []Record
	for rows.Next() {
		var r Record
		var ts int64
		if err := rows.Scan(&r.ID, &r.SessionID, &ts, &r.Source, &r.Command, &r.Reply, &r.Outcome, &r.LatencyMS, &r.Error); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		r.Timestamp = unixNano(ts)
		res = append(res, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
