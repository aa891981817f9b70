package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ArsenYoung/ai-support-rag-assistant/internal/envelope"
	"github.com/ArsenYoung/ai-support-rag-assistant/internal/logging"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS answer_log (
	id            TEXT PRIMARY KEY,
	request_id    TEXT NOT NULL UNIQUE,
	chat_id       INTEGER,
	user_id       TEXT NOT NULL,
	question      TEXT NOT NULL,
	mode          TEXT NOT NULL,
	reason        TEXT NOT NULL,
	top_score     REAL,
	hits_count    INTEGER NOT NULL,
	sources_json  TEXT,
	error_stage   TEXT,
	error_message TEXT,
	total_ms      INTEGER NOT NULL,
	record_json   TEXT NOT NULL,
	created_at    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_answer_log_created_at ON answer_log(created_at);
CREATE INDEX IF NOT EXISTS idx_answer_log_mode ON answer_log(mode, reason);
`

const selectColumns = `id, request_id, chat_id, user_id, question, mode, reason, top_score,
	hits_count, error_stage, error_message, total_ms, record_json, created_at`

// #endregion schema

// #region store-struct
// Store persists completed turns in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma busy_timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion close

// #region db-accessor
// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion db-accessor

// #region record
// Record writes a completed envelope to answer_log.
func (s *Store) Record(ctx context.Context, env *envelope.Envelope) error {
	entry, err := logging.NewAnswerEntry(env)
	if err != nil {
		return fmt.Errorf("record %s: %w", env.Meta.RequestID, err)
	}
	return logging.LogDecision(ctx, s.db, entry)
}

// #endregion record

// #region get
// Get reads the turn logged for requestID. Returns ErrNotFound when absent.
func (s *Store) Get(ctx context.Context, requestID string) (AnswerRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM answer_log WHERE request_id = ?`, requestID)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return AnswerRecord{}, fmt.Errorf("get %s: %w", requestID, ErrNotFound)
	}
	if err != nil {
		return AnswerRecord{}, fmt.Errorf("get %s: %w", requestID, err)
	}
	return rec, nil
}

// #endregion get

// #region list-recent
// ListRecent returns up to limit turns, newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]AnswerRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM answer_log ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent: %w", err)
	}
	defer rows.Close()

	var records []AnswerRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// #endregion list-recent

// #region counts
// CountByMode returns the number of logged turns per decision mode.
func (s *Store) CountByMode(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT mode, COUNT(*) FROM answer_log GROUP BY mode`)
	if err != nil {
		return nil, fmt.Errorf("count by mode: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var mode string
		var n int
		if err := rows.Scan(&mode, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[mode] = n
	}
	return counts, rows.Err()
}

// #endregion counts

// #region scan
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (AnswerRecord, error) {
	var rec AnswerRecord
	var chatID sql.NullInt64
	var topScore sql.NullFloat64
	var errorStage, errorMessage sql.NullString
	var recordJSON, createdStr string

	err := row.Scan(&rec.ID, &rec.RequestID, &chatID, &rec.UserID, &rec.Question, &rec.Mode, &rec.Reason,
		&topScore, &rec.HitsCount, &errorStage, &errorMessage, &rec.TotalMS, &recordJSON, &createdStr)
	if err != nil {
		return AnswerRecord{}, err
	}

	if chatID.Valid {
		v := chatID.Int64
		rec.ChatID = &v
	}
	if topScore.Valid {
		v := topScore.Float64
		rec.TopScore = &v
	}
	rec.ErrorStage = errorStage.String
	rec.ErrorMessage = errorMessage.String
	if err := json.Unmarshal([]byte(recordJSON), &rec.Record); err != nil {
		return AnswerRecord{}, fmt.Errorf("unmarshal record: %w", err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, createdStr)
	if err != nil {
		return AnswerRecord{}, fmt.Errorf("parse created_at %q: %w", createdStr, err)
	}
	rec.CreatedAt = createdAt
	return rec, nil
}

// #endregion scan
