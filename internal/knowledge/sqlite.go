package knowledge

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore persists entities and linking outcomes in SQLite. Unlike
// the file backend it also carries the review queue: every linking run
// can save its records, and the review workflow writes decisions back
// through ApplyReview.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path. ":memory:" is
// supported for tests.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS entities (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		type TEXT NOT NULL DEFAULT '',
		aliases TEXT,                        -- JSON array
		properties TEXT,                     -- JSON object
		related TEXT,                        -- JSON array of entity ids
		popularity REAL NOT NULL DEFAULT 0,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS link_records (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		mention_value TEXT NOT NULL,
		resolved_entity_id TEXT,
		method TEXT NOT NULL,
		confidence REAL NOT NULL DEFAULT 0,
		reason TEXT,
		needs_review INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		reviewed_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_entities_type ON entities(type);
	CREATE INDEX IF NOT EXISTS idx_link_records_document ON link_records(document_id);
	CREATE INDEX IF NOT EXISTS idx_link_records_review ON link_records(needs_review, reviewed_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) ListAll(ctx context.Context) ([]KnownEntity, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, type, aliases, properties, related, popularity, updated_at
		 FROM entities ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []KnownEntity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetByID(ctx context.Context, id string) (*KnownEntity, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, type, aliases, properties, related, popularity, updated_at
		 FROM entities WHERE id = ?`, id)

	e, err := scanEntity(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("entity %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *SQLiteStore) Put(ctx context.Context, e KnownEntity) (KnownEntity, error) {
	if e.Name == "" {
		return KnownEntity{}, fmt.Errorf("entity name must not be empty")
	}
	if e.ID == "" {
		e.ID = "ent-" + uuid.NewString()[:8]
	}
	e.UpdatedAt = time.Now().UTC()

	aliases, err := json.Marshal(e.Aliases)
	if err != nil {
		return KnownEntity{}, fmt.Errorf("marshal aliases: %w", err)
	}
	properties, err := json.Marshal(e.Properties)
	if err != nil {
		return KnownEntity{}, fmt.Errorf("marshal properties: %w", err)
	}
	related, err := json.Marshal(e.RelatedEntityIDs)
	if err != nil {
		return KnownEntity{}, fmt.Errorf("marshal related ids: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO entities (id, name, type, aliases, properties, related, popularity, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			type = excluded.type,
			aliases = excluded.aliases,
			properties = excluded.properties,
			related = excluded.related,
			popularity = excluded.popularity,
			updated_at = excluded.updated_at`,
		e.ID, e.Name, e.Type, string(aliases), string(properties), string(related),
		e.PopularityScore, e.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return KnownEntity{}, fmt.Errorf("upsert entity %s: %w", e.ID, err)
	}
	return e, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM entities WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete entity %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("entity %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveLinkRecords persists one session's outcomes. Record ids are
// assigned here; callers pass the raw outcomes.
func (s *SQLiteStore) SaveLinkRecords(ctx context.Context, records []LinkRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin link record transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO link_records
			(id, document_id, mention_value, resolved_entity_id, method, confidence, reason, needs_review, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare link record insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, r := range records {
		if r.ID == "" {
			r.ID = "rec-" + uuid.NewString()[:8]
		}
		createdAt := now
		if !r.CreatedAt.IsZero() {
			createdAt = r.CreatedAt.UTC().Format(time.RFC3339Nano)
		}
		if _, err := stmt.ExecContext(ctx,
			r.ID, r.DocumentID, r.MentionValue, nullable(r.ResolvedEntityID),
			r.Method, r.Confidence, r.Reason, boolToInt(r.NeedsReview), createdAt); err != nil {
			return fmt.Errorf("insert link record: %w", err)
		}
	}
	return tx.Commit()
}

// ListReviewQueue returns pending records flagged for human review,
// oldest first. limit <= 0 means no limit.
func (s *SQLiteStore) ListReviewQueue(ctx context.Context, limit int) ([]LinkRecord, error) {
	q := `SELECT id, document_id, mention_value, resolved_entity_id, method, confidence, reason, needs_review, created_at, reviewed_at
	      FROM link_records
	      WHERE needs_review = 1 AND reviewed_at IS NULL
	      ORDER BY created_at`
	args := []any{}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list review queue: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []LinkRecord
	for rows.Next() {
		r, err := scanLinkRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ApplyReview records a human decision on a pending record. A non-empty
// entityID confirms the link with full confidence; an empty one rejects
// it as unlinked. Either way the record leaves the review queue.
func (s *SQLiteStore) ApplyReview(ctx context.Context, recordID, entityID string) error {
	method := "human_review"
	confidence := 1.0
	resolved := nullable(entityID)
	if entityID == "" {
		method = "unlinked"
		confidence = 0
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE link_records
		 SET resolved_entity_id = ?, method = ?, confidence = ?, needs_review = 0, reviewed_at = ?
		 WHERE id = ? AND reviewed_at IS NULL`,
		resolved, method, confidence, time.Now().UTC().Format(time.RFC3339Nano), recordID)
	if err != nil {
		return fmt.Errorf("apply review to %s: %w", recordID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("pending record %s: %w", recordID, ErrNotFound)
	}
	return nil
}

// CountPendingReview returns the review queue depth.
func (s *SQLiteStore) CountPendingReview(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM link_records WHERE needs_review = 1 AND reviewed_at IS NULL`).Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntity(row rowScanner) (KnownEntity, error) {
	var (
		e          KnownEntity
		aliases    sql.NullString
		properties sql.NullString
		related    sql.NullString
		updatedAt  string
	)
	if err := row.Scan(&e.ID, &e.Name, &e.Type, &aliases, &properties, &related,
		&e.PopularityScore, &updatedAt); err != nil {
		return KnownEntity{}, err
	}

	if aliases.Valid && aliases.String != "" {
		if err := json.Unmarshal([]byte(aliases.String), &e.Aliases); err != nil {
			return KnownEntity{}, fmt.Errorf("parse aliases for %s: %w", e.ID, err)
		}
	}
	if properties.Valid && properties.String != "" {
		if err := json.Unmarshal([]byte(properties.String), &e.Properties); err != nil {
			return KnownEntity{}, fmt.Errorf("parse properties for %s: %w", e.ID, err)
		}
	}
	if related.Valid && related.String != "" {
		if err := json.Unmarshal([]byte(related.String), &e.RelatedEntityIDs); err != nil {
			return KnownEntity{}, fmt.Errorf("parse related ids for %s: %w", e.ID, err)
		}
	}
	if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		e.UpdatedAt = t
	}
	return e, nil
}

func scanLinkRecord(row rowScanner) (LinkRecord, error) {
	var (
		r           LinkRecord
		resolved    sql.NullString
		reason      sql.NullString
		needsReview int
		createdAt   string
		reviewedAt  sql.NullString
	)
	if err := row.Scan(&r.ID, &r.DocumentID, &r.MentionValue, &resolved, &r.Method,
		&r.Confidence, &reason, &needsReview, &createdAt, &reviewedAt); err != nil {
		return LinkRecord{}, err
	}

	r.ResolvedEntityID = resolved.String
	r.Reason = reason.String
	r.NeedsReview = needsReview == 1
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		r.CreatedAt = t
	}
	if reviewedAt.Valid {
		if t, err := time.Parse(time.RFC3339Nano, reviewedAt.String); err == nil {
			r.ReviewedAt = t
		}
	}
	return r, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
