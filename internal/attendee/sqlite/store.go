// Package sqlite provides the SQLite-backed attendee mirror.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"confagenda/internal/attendee"
	"confagenda/internal/attendee/sqlite/migrations"
	"confagenda/internal/model"
)

// Store persists attendees in SQLite.
type Store struct {
	sqlDB *sql.DB
}

// Open opens (creating if needed) the attendee database at path and applies
// embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(context.Background(), sqlDB, migrations.FS); err != nil {
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

func (s *Store) Name() string { return "sqlite" }

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

const userColumns = `pega_id, email, breakout_group, regional_breakout, preferred_name, last_name`

// FindUser matches email or Pega ID case-insensitively, preferring an
// email match.
func (s *Store) FindUser(ctx context.Context, identifier string) (model.User, error) {
	if err := s.ready(ctx); err != nil {
		return model.User{}, err
	}
	id := strings.TrimSpace(identifier)
	if id == "" {
		return model.User{}, attendee.ErrNotFound
	}

	_, u, err := s.findRow(ctx, id)
	return u, err
}

// findRow returns the matching row id along with the attendee.
func (s *Store) findRow(ctx context.Context, id string) (int64, model.User, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, `+userColumns+`
		   FROM attendees
		  WHERE email = ? COLLATE NOCASE OR pega_id = ? COLLATE NOCASE
		  ORDER BY (email = ? COLLATE NOCASE) DESC, id
		  LIMIT 1`,
		id, id, id,
	)
	var rowID int64
	u, err := scanUser(row, &rowID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, model.User{}, attendee.ErrNotFound
		}
		return 0, model.User{}, fmt.Errorf("find attendee: %w", err)
	}
	return rowID, u, nil
}

// CreateUser inserts one attendee.
func (s *Store) CreateUser(ctx context.Context, u model.User) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(u.PegaID) == "" && strings.TrimSpace(u.Email) == "" {
		return fmt.Errorf("pega id or email is required")
	}
	if err := insertUser(ctx, s.sqlDB, u, ""); err != nil {
		return fmt.Errorf("create attendee: %w", err)
	}
	return nil
}

// UpdateUser applies patch to the attendee matching identifier and returns
// the updated record.
func (s *Store) UpdateUser(ctx context.Context, identifier string, patch model.UserPatch) (model.User, error) {
	if err := s.ready(ctx); err != nil {
		return model.User{}, err
	}
	id := strings.TrimSpace(identifier)
	if id == "" {
		return model.User{}, attendee.ErrNotFound
	}
	rowID, current, err := s.findRow(ctx, id)
	if err != nil {
		return model.User{}, err
	}

	next := current
	apply := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	apply(&next.PegaID, patch.PegaID)
	apply(&next.Email, patch.Email)
	apply(&next.BreakoutGroup, patch.BreakoutGroup)
	apply(&next.RegionalBreakout, patch.RegionalBreakout)
	apply(&next.PreferredName, patch.PreferredName)
	apply(&next.LastName, patch.LastName)

	_, err = s.sqlDB.ExecContext(ctx,
		`UPDATE attendees
		    SET pega_id = ?, email = ?, breakout_group = ?, regional_breakout = ?,
		        preferred_name = ?, last_name = ?, updated_at = ?
		  WHERE id = ?`,
		next.PegaID, next.Email, next.BreakoutGroup, next.RegionalBreakout,
		next.PreferredName, next.LastName, time.Now().UTC().UnixMilli(),
		rowID,
	)
	if err != nil {
		return model.User{}, fmt.Errorf("update attendee: %w", err)
	}
	return next, nil
}

// AllUsers returns every attendee in insertion order.
func (s *Store) AllUsers(ctx context.Context) ([]model.User, error) {
	return s.listUsers(ctx, -1)
}

// Sample returns up to limit attendees.
func (s *Store) Sample(ctx context.Context, limit int) ([]model.User, error) {
	if limit <= 0 {
		return []model.User{}, nil
	}
	return s.listUsers(ctx, limit)
}

func (s *Store) listUsers(ctx context.Context, limit int) ([]model.User, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT `+userColumns+` FROM attendees ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list attendees: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attendee: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list attendees: %w", err)
	}
	return users, nil
}

// Count returns the number of stored attendees.
func (s *Store) Count(ctx context.Context) (int, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	var n int
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM attendees`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count attendees: %w", err)
	}
	return n, nil
}

// ReplaceAll clears the mirror and inserts users in one transaction.
func (s *Store) ReplaceAll(ctx context.Context, users []model.User) error {
	return s.replace(ctx, len(users), func(i int) (model.User, string) {
		return users[i], ""
	})
}

// ImportRecords replaces the mirror with raw attendee records, keeping the
// raw delivery circle next to the derived breakout group.
func (s *Store) ImportRecords(ctx context.Context, records []model.AttendeeRecord) error {
	return s.replace(ctx, len(records), func(i int) (model.User, string) {
		return attendee.FromRecord(records[i]), string(records[i].DeliveryCircle)
	})
}

func (s *Store) replace(ctx context.Context, n int, at func(int) (model.User, string)) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM attendees`); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear attendees: %w", err)
	}
	for i := 0; i < n; i++ {
		u, circle := at(i)
		if err := insertUser(ctx, tx, u, circle); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert attendee %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace: %w", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertUser(ctx context.Context, db execer, u model.User, circle string) error {
	now := time.Now().UTC().UnixMilli()
	group := u.BreakoutGroup
	if group == "" {
		group = attendee.BreakoutGroup(circle)
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO attendees (
		   pega_id, email, delivery_circle, breakout_group, regional_breakout,
		   preferred_name, last_name, created_at, updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		strings.TrimSpace(u.PegaID),
		strings.TrimSpace(u.Email),
		circle,
		group,
		u.RegionalBreakout,
		u.PreferredName,
		u.LastName,
		now,
		now,
	)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

// scanUser scans userColumns, preceded by any extra destinations.
func scanUser(row scanner, extra ...any) (model.User, error) {
	var u model.User
	dest := append(extra,
		&u.PegaID,
		&u.Email,
		&u.BreakoutGroup,
		&u.RegionalBreakout,
		&u.PreferredName,
		&u.LastName,
	)
	err := row.Scan(dest...)
	return u, err
}
