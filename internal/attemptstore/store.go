package attemptstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hochfrequenz/script-agent/internal/domain"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Store provides the SQLite-backed append-only attempt log
type Store struct {
	db     *sql.DB
	now    func() time.Time
	logger *zap.Logger
}

// Option configures a Store
type Option func(*Store)

// WithClock overrides the clock used to stamp new attempts
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger attaches a logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// Filter restricts which attempts QueryLatest considers. The zero value matches everything.
type Filter struct {
	SucceededOnly          bool
	ExcludeVerifiedFailure bool
}

// Reusable is the filter for attempts that may serve as generation hints
var Reusable = Filter{SucceededOnly: true, ExcludeVerifiedFailure: true}

// ListOptions specifies filters for listing attempts
type ListOptions struct {
	Command string
	Limit   int
}

// Stats summarises the log
type Stats struct {
	Total           int
	Succeeded       int
	Failed          int
	VerifiedSuccess int
	VerifiedFailure int
	Commands        int
}

// New opens the database at dbPath and ensures the schema exists
func New(dbPath string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, &domain.StorageError{Op: "open", Err: err}
	}
	// Single writer; also keeps ":memory:" databases on one connection.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, now: time.Now, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.Initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Initialize creates the schema if missing. Existing rows are never touched.
func (s *Store) Initialize() error {
	if _, err := s.db.Exec(schema); err != nil {
		return &domain.StorageError{Op: "initialize", Err: fmt.Errorf("running migrations: %w", err)}
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Append writes a new attempt and returns its id. ID and CreatedAt are assigned
// by the store; created_at never goes backwards relative to earlier rows.
func (s *Store) Append(ctx context.Context, a *domain.Attempt) (int64, error) {
	if err := a.Validate(); err != nil {
		return 0, &domain.StorageError{Op: "append", Err: err}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, &domain.StorageError{Op: "append", Err: err}
	}
	defer func() {
		_ = tx.Rollback()
	}()

	createdAt := s.now().UTC()
	var last time.Time
	err = tx.QueryRowContext(ctx, `SELECT created_at FROM attempts ORDER BY id DESC LIMIT 1`).Scan(&last)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return 0, &domain.StorageError{Op: "append", Err: err}
	case createdAt.Before(last):
		createdAt = last
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO attempts (command, script, succeeded, verified, error_message, feedback, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		a.Command,
		a.Script,
		a.Succeeded,
		a.Verified.NullBool(),
		nullString(a.ErrorMessage),
		nullString(a.Feedback),
		createdAt,
	)
	if err != nil {
		return 0, &domain.StorageError{Op: "append", Err: err}
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, &domain.StorageError{Op: "append", Err: err}
	}
	if err := tx.Commit(); err != nil {
		return 0, &domain.StorageError{Op: "append", Err: err}
	}

	a.ID = id
	a.CreatedAt = createdAt
	s.logger.Debug("attempt appended",
		zap.Int64("id", id),
		zap.String("command", a.Command),
		zap.Bool("succeeded", a.Succeeded),
		zap.Stringer("verified", a.Verified),
	)
	return id, nil
}

const selectColumns = `SELECT id, command, script, succeeded, verified, error_message, feedback, created_at FROM attempts`

// QueryLatest returns the most recent attempt for the exact command that passes
// the filter, or nil when none does.
func (s *Store) QueryLatest(ctx context.Context, command string, f Filter) (*domain.Attempt, error) {
	query := selectColumns + ` WHERE command = ?`
	if f.SucceededOnly {
		query += " AND succeeded = 1"
	}
	if f.ExcludeVerifiedFailure {
		query += " AND (verified IS NULL OR verified = 1)"
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT 1"

	a, err := scanAttempt(s.db.QueryRowContext(ctx, query, command))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &domain.StorageError{Op: "query latest", Err: err}
	}
	return a, nil
}

// Get retrieves an attempt by id
func (s *Store) Get(ctx context.Context, id int64) (*domain.Attempt, error) {
	a, err := scanAttempt(s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id))
	if err != nil {
		return nil, &domain.StorageError{Op: "get", Err: err}
	}
	return a, nil
}

// List returns attempts newest first
func (s *Store) List(ctx context.Context, opts ListOptions) ([]*domain.Attempt, error) {
	query := selectColumns + ` WHERE 1=1`
	var args []interface{}

	if opts.Command != "" {
		query += " AND command = ?"
		args = append(args, opts.Command)
	}
	query += " ORDER BY id DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &domain.StorageError{Op: "list", Err: err}
	}
	defer rows.Close()

	var attempts []*domain.Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, &domain.StorageError{Op: "list", Err: err}
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StorageError{Op: "list", Err: err}
	}
	return attempts, nil
}

// Stats counts attempts by outcome
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN succeeded = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN verified = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN verified = 0 THEN 1 ELSE 0 END), 0),
			COUNT(DISTINCT command)
		FROM attempts
	`).Scan(&st.Total, &st.Succeeded, &st.VerifiedSuccess, &st.VerifiedFailure, &st.Commands)
	if err != nil {
		return Stats{}, &domain.StorageError{Op: "stats", Err: err}
	}
	st.Failed = st.Total - st.Succeeded
	return st, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanAttempt(row scanner) (*domain.Attempt, error) {
	var a domain.Attempt
	var verified sql.NullBool
	var errorMessage, feedback sql.NullString

	err := row.Scan(&a.ID, &a.Command, &a.Script, &a.Succeeded, &verified, &errorMessage, &feedback, &a.CreatedAt)
	if err != nil {
		return nil, err
	}

	a.Verified = domain.VerificationFromNullBool(verified)
	if errorMessage.Valid {
		a.ErrorMessage = errorMessage.String
	}
	if feedback.Valid {
		a.Feedback = feedback.String
	}
	return &a, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
