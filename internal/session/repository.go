package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/park285/boardwatch/internal/domain"
)

var ErrDuplicateRecord = errors.New("move record already exists")

// Repository stores the outcome of every comparison of a session.
type Repository interface {
	InsertMove(ctx context.Context, rec *domain.MoveRecord) (int64, error)
	RecentMoves(ctx context.Context, sessionUUID string, limit int) ([]*domain.MoveRecord, error)
	Close() error
}

const moveRecordsSchema = `
CREATE TABLE IF NOT EXISTS move_records (
	id           BIGSERIAL PRIMARY KEY,
	session_uuid TEXT        NOT NULL,
	seq          INTEGER     NOT NULL,
	status       TEXT        NOT NULL,
	kind         TEXT        NOT NULL,
	piece        TEXT        NOT NULL DEFAULT '',
	captured     TEXT        NOT NULL DEFAULT '',
	from_square  TEXT        NOT NULL DEFAULT '',
	to_square    TEXT        NOT NULL DEFAULT '',
	reason       TEXT        NOT NULL DEFAULT '',
	changes      JSONB       NOT NULL DEFAULT '[]',
	turn_before  INTEGER     NOT NULL,
	turn_after   INTEGER     NOT NULL,
	fen          TEXT        NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL,
	UNIQUE (session_uuid, seq)
)`

type repository struct {
	db *sql.DB
}

// OpenPostgres opens and pings databaseURL and makes sure the move_records
// table exists.
func OpenPostgres(ctx context.Context, databaseURL string) (Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("database url is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, moveRecordsSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return NewRepository(db), nil
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) InsertMove(ctx context.Context, rec *domain.MoveRecord) (int64, error) {
	if rec == nil {
		return 0, fmt.Errorf("nil move record")
	}
	changes, err := json.Marshal(rec.Changes)
	if err != nil {
		return 0, fmt.Errorf("marshal changes: %w", err)
	}

	const query = `
		INSERT INTO move_records (
			session_uuid, seq, status, kind, piece, captured,
			from_square, to_square, reason, changes,
			turn_before, turn_after, fen, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::jsonb, $11, $12, $13, $14)
		ON CONFLICT (session_uuid, seq) DO NOTHING
		RETURNING id`

	var id sql.NullInt64
	err = r.db.QueryRowContext(ctx, query,
		rec.SessionUUID, rec.Seq, rec.Status, rec.Kind, rec.Piece, rec.Captured,
		rec.FromSquare, rec.ToSquare, rec.Reason, changes,
		rec.TurnBefore, rec.TurnAfter, rec.FEN, rec.CreatedAt,
	).Scan(&id)
	return insertedID(id, err)
}

// insertedID maps the RETURNING scan of an insert that skips conflicts: no row
// means the (session_uuid, seq) pair was already stored.
func insertedID(id sql.NullInt64, err error) (int64, error) {
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !id.Valid) {
		return 0, ErrDuplicateRecord
	}
	if err != nil {
		return 0, fmt.Errorf("insert move record: %w", err)
	}
	return id.Int64, nil
}

func (r *repository) RecentMoves(ctx context.Context, sessionUUID string, limit int) ([]*domain.MoveRecord, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	const query = `
		SELECT id, session_uuid, seq, status, kind, piece, captured,
			from_square, to_square, reason, changes,
			turn_before, turn_after, fen, created_at
		FROM move_records
		WHERE session_uuid = $1
		ORDER BY seq DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, sessionUUID, limit)
	if err != nil {
		return nil, fmt.Errorf("query move records: %w", err)
	}
	defer rows.Close()

	var out []*domain.MoveRecord
	for rows.Next() {
		var rec domain.MoveRecord
		var changes []byte
		if err := rows.Scan(
			&rec.ID, &rec.SessionUUID, &rec.Seq, &rec.Status, &rec.Kind, &rec.Piece, &rec.Captured,
			&rec.FromSquare, &rec.ToSquare, &rec.Reason, &changes,
			&rec.TurnBefore, &rec.TurnAfter, &rec.FEN, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan move record: %w", err)
		}
		if len(changes) > 0 {
			if err := json.Unmarshal(changes, &rec.Changes); err != nil {
				return nil, fmt.Errorf("decode changes: %w", err)
			}
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}

func (r *repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}
