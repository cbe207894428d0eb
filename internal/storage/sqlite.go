package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"ledger/internal/core"
	"ledger/internal/store"
)

// occurredAtLayout is fixed width for years 1..9999, so text order equals
// time order and range filters compare strings.
const occurredAtLayout = "2006-01-02T15:04:05.000000000Z"

func formatOccurredAt(t time.Time) string {
	return t.UTC().Format(occurredAtLayout)
}

// SQLiteRepository persists users and operations in a single SQLite file.
type SQLiteRepository struct {
	db *sql.DB
}

var _ store.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// WAL lets the worker read while the server writes.
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("configure database (%s): %w", pragma, err)
		}
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping backs the readiness endpoint.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) InsertUser(ctx context.Context, u core.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, password) VALUES (?, ?, ?)`,
		u.ID, u.Username, u.Password)
	if err != nil {
		return fmt.Errorf("insert user %d: %w", u.ID, translate(err))
	}
	slog.InfoContext(ctx, "User saved to SQLite", "id", u.ID, "username", u.Username)
	return nil
}

func (r *SQLiteRepository) FindUser(ctx context.Context, id int64) (core.User, bool, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, username, password FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *SQLiteRepository) FindUserByCredentials(ctx context.Context, username, password string) (core.User, bool, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, username, password FROM users WHERE username = ? AND password = ? ORDER BY id LIMIT 1`,
		username, password)
	return scanUser(row)
}

func (r *SQLiteRepository) UpdateUser(ctx context.Context, u core.User) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET username = ?, password = ? WHERE id = ?`,
		u.Username, u.Password, u.ID)
	if err != nil {
		return 0, fmt.Errorf("update user %d: %w", u.ID, err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) MaxUserID(ctx context.Context) (int64, bool, error) {
	return r.maxID(ctx, "users")
}

func (r *SQLiteRepository) InsertOperation(ctx context.Context, op core.Operation) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO operations (id, sum, user_id, type, occurred_at) VALUES (?, ?, ?, ?, ?)`,
		op.ID, op.Sum, op.UserID, string(op.Type), formatOccurredAt(op.Date))
	if err != nil {
		return fmt.Errorf("insert operation %d: %w", op.ID, translate(err))
	}
	slog.InfoContext(ctx, "Operation saved to SQLite",
		"id", op.ID,
		"user_id", op.UserID,
		"type", op.Type,
		"sum", op.Sum)
	return nil
}

func (r *SQLiteRepository) FindOperation(ctx context.Context, id int64) (core.Operation, bool, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, sum, user_id, type, occurred_at FROM operations WHERE id = ?`, id)
	op, err := scanOperation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Operation{}, false, nil
	}
	if err != nil {
		return core.Operation{}, false, fmt.Errorf("get operation %d: %w", id, err)
	}
	return op, true, nil
}

func (r *SQLiteRepository) FindOperations(ctx context.Context, f store.OperationFilter) ([]core.Operation, error) {
	var (
		where []string
		args  []any
	)
	if f.UserID != 0 {
		where = append(where, "user_id = ?")
		args = append(args, f.UserID)
	}
	if !f.From.IsZero() {
		where = append(where, "occurred_at >= ?")
		args = append(args, formatOccurredAt(f.From))
	}
	if !f.To.IsZero() {
		where = append(where, "occurred_at <= ?")
		args = append(args, formatOccurredAt(f.To))
	}

	query := `SELECT id, sum, user_id, type, occurred_at FROM operations`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list operations: %w", err)
	}
	defer rows.Close()

	var out []core.Operation
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan operation: %w", err)
		}
		out = append(out, op)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateOperation(ctx context.Context, op core.Operation) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE operations SET sum = ?, user_id = ?, type = ?, occurred_at = ? WHERE id = ?`,
		op.Sum, op.UserID, string(op.Type), formatOccurredAt(op.Date), op.ID)
	if err != nil {
		return 0, fmt.Errorf("update operation %d: %w", op.ID, err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) DeleteOperation(ctx context.Context, id int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM operations WHERE id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("delete operation %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err == nil && n > 0 {
		slog.InfoContext(ctx, "Operation deleted from SQLite", "id", id)
	}
	return n, err
}

func (r *SQLiteRepository) MaxOperationID(ctx context.Context) (int64, bool, error) {
	return r.maxID(ctx, "operations")
}

// table is always a literal from this file.
func (r *SQLiteRepository) maxID(ctx context.Context, table string) (int64, bool, error) {
	var id sql.NullInt64
	if err := r.db.QueryRowContext(ctx, "SELECT MAX(id) FROM "+table).Scan(&id); err != nil {
		return 0, false, fmt.Errorf("max id of %s: %w", table, err)
	}
	return id.Int64, id.Valid, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (core.User, bool, error) {
	var u core.User
	err := row.Scan(&u.ID, &u.Username, &u.Password)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, false, nil
	}
	if err != nil {
		return core.User{}, false, fmt.Errorf("scan user: %w", err)
	}
	return u, true, nil
}

func scanOperation(row scanner) (core.Operation, error) {
	var (
		op       core.Operation
		typ      string
		occurred string
	)
	if err := row.Scan(&op.ID, &op.Sum, &op.UserID, &typ, &occurred); err != nil {
		return core.Operation{}, err
	}
	date, err := time.Parse(occurredAtLayout, occurred)
	if err != nil {
		return core.Operation{}, fmt.Errorf("operation %d has malformed date %q: %w", op.ID, occurred, err)
	}
	op.Type = core.OperationType(typ)
	op.Date = date
	return op, nil
}

// translate maps primary key violations onto core.ErrConflict.
func translate(err error) error {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return err
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return core.ErrConflict
	case sqlite3.SQLITE_CONSTRAINT:
		if strings.Contains(se.Error(), "UNIQUE") {
			return core.ErrConflict
		}
	}
	return err
}
