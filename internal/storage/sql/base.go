package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"initguard/internal/storage"

	sq "github.com/Masterminds/squirrel"
)

var attemptColumns = []string{
	"id", "outcome", "user_id", "username", "auth_date", "hash", "error", "remote_addr", "created_at",
}

// Widths of the VARCHAR columns filled from client input. Postgres and
// strict-mode MySQL reject longer values instead of cutting them.
const (
	usernameWidth   = 255
	hashWidth       = 128
	remoteAddrWidth = 64
)

// BaseStorage provides common SQL storage implementations
type BaseStorage struct {
	db        *sql.DB
	dialect   SQLDialect
	tableName string
	// Use squirrel's placeholder format based on dialect
	builder sq.StatementBuilderType
}

// NewBaseStorage creates a new BaseStorage
func NewBaseStorage(db *sql.DB, dialect SQLDialect, tableName string) *BaseStorage {
	// Choose placeholder format based on dialect
	var builder sq.StatementBuilderType
	if dialect.PlaceholderFormat() == "?" {
		builder = sq.StatementBuilder.PlaceholderFormat(sq.Question)
	} else {
		builder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}

	return &BaseStorage{
		db:        db,
		dialect:   dialect,
		tableName: tableName,
		builder:   builder,
	}
}

// StoreAttempt records an attempt. Attempts are immutable; storing an ID
// that already exists leaves the original row untouched.
func (s *BaseStorage) StoreAttempt(ctx context.Context, attempt *storage.Attempt) error {
	query := s.builder.Insert(s.tableName).
		Columns(attemptColumns...).
		Values(
			attempt.ID,
			string(attempt.Outcome),
			attempt.UserID,
			truncate(attempt.Username, usernameWidth),
			attempt.AuthDate,
			truncate(attempt.Hash, hashWidth),
			attempt.Error,
			truncate(attempt.RemoteAddr, remoteAddrWidth),
			attempt.CreatedAt.UTC(),
		)
	query = s.dialect.InsertIgnore(query)

	if _, err := query.RunWith(s.db).ExecContext(ctx); err != nil {
		return fmt.Errorf("inserting attempt: %w", err)
	}
	return nil
}

// truncate cuts s to at most n characters
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// ListAttempts lists attempts based on query options, newest first
func (s *BaseStorage) ListAttempts(ctx context.Context, opts storage.QueryOptions) ([]*storage.Attempt, int, error) {
	query := s.builder.Select(attemptColumns...).From(s.tableName)
	query = s.addQueryConditions(query, opts)
	query = query.OrderBy("created_at DESC", "id")

	if opts.Limit > 0 {
		offset := max(opts.Offset, 0)
		//nolint:gosec // Values are guaranteed to be non-negative
		query = query.Limit(uint64(opts.Limit)).Offset(uint64(offset))
	}

	rows, err := query.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("executing query: %w", err)
	}
	defer rows.Close()

	var attempts []*storage.Attempt
	for rows.Next() {
		attempt, scanErr := scanAttempt(rows)
		if scanErr != nil {
			return nil, 0, scanErr
		}
		attempts = append(attempts, attempt)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating rows: %w", err)
	}

	total, err := s.CountAttempts(ctx, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("getting total count: %w", err)
	}

	return attempts, total, nil
}

// CountAttempts returns the total number of attempts matching the given options
func (s *BaseStorage) CountAttempts(ctx context.Context, opts storage.QueryOptions) (int, error) {
	query := s.builder.Select("COUNT(*)").From(s.tableName)
	query = s.addQueryConditions(query, opts)

	var count int
	if err := query.RunWith(s.db).QueryRowContext(ctx).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting attempts: %w", err)
	}

	return count, nil
}

// GetStats returns attempt counts per outcome
func (s *BaseStorage) GetStats(ctx context.Context, since time.Time) (map[string]int64, error) {
	query := s.builder.
		Select("outcome", "COUNT(*) as count").
		From(s.tableName).
		GroupBy("outcome")

	if !since.IsZero() {
		query = query.Where(sq.GtOrEq{"created_at": since.UTC()})
	}

	rows, err := query.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]int64)
	for rows.Next() {
		var (
			outcome string
			count   int64
		)
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		stats[outcome] = count
	}

	return stats, rows.Err()
}

// GetAttempt returns a single attempt by ID, or storage.ErrNotFound
func (s *BaseStorage) GetAttempt(ctx context.Context, id string) (*storage.Attempt, error) {
	query := s.builder.
		Select(attemptColumns...).
		From(s.tableName).
		Where(sq.Eq{"id": id}).
		Limit(1)

	attempt, err := scanAttempt(query.RunWith(s.db).QueryRowContext(ctx))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return attempt, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttempt(row rowScanner) (*storage.Attempt, error) {
	var (
		attempt storage.Attempt
		outcome string
		errText sql.NullString
	)
	err := row.Scan(
		&attempt.ID,
		&outcome,
		&attempt.UserID,
		&attempt.Username,
		&attempt.AuthDate,
		&attempt.Hash,
		&errText,
		&attempt.RemoteAddr,
		&attempt.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning row: %w", err)
	}

	attempt.Outcome = storage.Outcome(outcome)
	attempt.Error = errText.String
	attempt.CreatedAt = attempt.CreatedAt.UTC()
	return &attempt, nil
}

// addQueryConditions adds WHERE conditions based on query options
func (s *BaseStorage) addQueryConditions(query sq.SelectBuilder, opts storage.QueryOptions) sq.SelectBuilder {
	if len(opts.Outcomes) > 0 {
		outcomes := make([]string, 0, len(opts.Outcomes))
		for _, o := range opts.Outcomes {
			outcomes = append(outcomes, string(o))
		}
		query = query.Where(sq.Eq{"outcome": outcomes})
	}
	if opts.UserID != 0 {
		query = query.Where(sq.Eq{"user_id": opts.UserID})
	}
	if !opts.Since.IsZero() {
		query = query.Where(sq.GtOrEq{"created_at": opts.Since.UTC()})
	}
	if !opts.Until.IsZero() {
		query = query.Where(sq.LtOrEq{"created_at": opts.Until.UTC()})
	}
	return query
}
