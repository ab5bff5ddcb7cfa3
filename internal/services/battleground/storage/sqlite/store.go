package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	sqlitemigrate "github.com/louisbranch/battleground/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/battleground/internal/services/battleground/admission"
	"github.com/louisbranch/battleground/internal/services/battleground/domain/battleground"
	"github.com/louisbranch/battleground/internal/services/battleground/storage/sqlite/migrations"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Store persists battleground state in SQLite.
type Store struct {
	sqlDB *sql.DB
}

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite battleground store and applies embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := "file:" + cleanPath +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=foreign_keys(1)" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_txlock=immediate"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlitemigrate.Apply(ctx, sqlDB, migrations.FS, "."); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return s.sqlDB.PingContext(ctx)
}

// WithTx runs fn in one immediate transaction.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx admission.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(ctx, &txStore{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetGameConfig returns the game configuration.
func (s *Store) GetGameConfig(ctx context.Context) (battleground.GameConfig, error) {
	if s == nil || s.sqlDB == nil {
		return battleground.GameConfig{}, fmt.Errorf("storage is not configured")
	}
	return getGameConfig(ctx, s.sqlDB)
}

// GetBattleground returns one battleground.
func (s *Store) GetBattleground(ctx context.Context, id uint64) (battleground.Battleground, error) {
	if s == nil || s.sqlDB == nil {
		return battleground.Battleground{}, fmt.Errorf("storage is not configured")
	}
	return getBattleground(ctx, s.sqlDB, id)
}

// GetParticipant returns one participant.
func (s *Store) GetParticipant(ctx context.Context, battlegroundID uint64, asset battleground.PublicKey) (battleground.Participant, error) {
	if s == nil || s.sqlDB == nil {
		return battleground.Participant{}, fmt.Errorf("storage is not configured")
	}
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT `+participantColumns+`
FROM participants
WHERE battleground_id = ? AND asset_id = ?
`, int64(battlegroundID), asset.String())
	p, err := scanParticipant(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return battleground.Participant{}, admission.NotFoundError("participant", asset.String())
		}
		return battleground.Participant{}, fmt.Errorf("get participant: %w", err)
	}
	return p, nil
}

// ListParticipants returns one page of participants in join order.
func (s *Store) ListParticipants(ctx context.Context, query admission.ParticipantQuery) ([]battleground.Participant, error) {
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	var (
		where = []string{"battleground_id = ?"}
		args  = []any{int64(query.BattlegroundID)}
		order = "ASC"
	)
	if query.Descending {
		order = "DESC"
	}
	if query.AfterSeq > 0 {
		if query.Descending {
			where = append(where, "join_order < ?")
		} else {
			where = append(where, "join_order > ?")
		}
		args = append(args, int64(query.AfterSeq))
	}
	if !query.Condition.IsEmpty() {
		where = append(where, query.Condition.Clause)
		args = append(args, query.Condition.Params...)
	}
	stmt := `
SELECT ` + participantColumns + `
FROM participants
WHERE ` + strings.Join(where, " AND ") + `
ORDER BY join_order ` + order
	if query.Limit > 0 {
		stmt += "\nLIMIT ?"
		args = append(args, query.Limit)
	}

	rows, err := s.sqlDB.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	var participants []battleground.Participant
	for rows.Next() {
		p, err := scanParticipant(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate participants: %w", err)
	}
	return participants, nil
}

// Balance returns a committed ledger balance.
func (s *Store) Balance(ctx context.Context, owner, asset battleground.PublicKey) (uint64, error) {
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	return balance(ctx, s.sqlDB, owner, asset)
}

func isConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

func formatAmount(value uint64) string {
	return strconv.FormatUint(value, 10)
}

func parseAmount(value string) (uint64, error) {
	amount, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", value, err)
	}
	return amount, nil
}

var _ admission.Store = (*Store)(nil)
