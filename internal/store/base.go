package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/gradebook/internal/metrics"
)

// BaseStore provides common functionality for different DB implementations
type BaseStore struct {
	DB        *sqlx.DB
	Converter func(string) string
	// IsUniqueViolation reports whether err came from a unique constraint.
	IsUniqueViolation func(error) bool
	MaxAttempts       int

	tx *sqlx.Tx
}

func (s *BaseStore) ext() sqlx.ExtContext {
	if s.tx != nil {
		return s.tx
	}
	return s.DB
}

func (s *BaseStore) q(query string) string {
	if s.Converter == nil {
		return query
	}
	return s.Converter(query)
}

func (s *BaseStore) unique(err error) bool {
	return err != nil && s.IsUniqueViolation != nil && s.IsUniqueViolation(err)
}

func (s *BaseStore) Close() error {
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}

// ApplyMigrations applies SQL migrations from a directory in file name
// order, translating dialect if needed
func (s *BaseStore) ApplyMigrations(dir string, translateSQL func(string) string) error {
	files, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	names := make([]string, 0, len(files))
	for _, file := range files {
		if strings.HasSuffix(file.Name(), ".sql") {
			names = append(names, file.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		content, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}

		sql := string(content)
		if translateSQL != nil {
			sql = translateSQL(sql)
		}

		if _, err := s.DB.Exec(sql); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", name, err)
		}
		logger.Debug.Printf("Applied migration %s", name)
	}

	return nil
}

// RunInTx runs fn against a store bound to a single transaction. A
// transaction that lost a version race is rolled back and retried up to
// MaxAttempts times. A failing commit is never retried.
func (s *BaseStore) RunInTx(ctx context.Context, timeout time.Duration, fn func(Tx) error) error {
	if s.tx != nil {
		return fn(s)
	}

	attempts := s.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAppendAttempts
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = s.runOnce(ctx, timeout, fn)
		if !errors.Is(err, ErrVersionConflict) {
			return err
		}
		metrics.VersionConflicts.Inc()
		logger.Debug.Printf("Version conflict, attempt %d of %d", attempt, attempts)
	}
	return err
}

func (s *BaseStore) runOnce(ctx context.Context, timeout time.Duration, fn func(Tx) error) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	bound := &BaseStore{
		DB:                s.DB,
		Converter:         s.Converter,
		IsUniqueViolation: s.IsUniqueViolation,
		MaxAttempts:       s.MaxAttempts,
		tx:                tx,
	}

	if err := fn(bound); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			logger.Error.Printf("Rollback failed: %v", rbErr)
		}
		return err
	}

	if err := ctx.Err(); err != nil {
		tx.Rollback()
		return fmt.Errorf("transaction aborted: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrCommit, err)
	}
	return nil
}

func newID() string {
	return uuid.NewString()
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func notFound(err error, what, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
	}
	return fmt.Errorf("failed to get %s: %w", what, err)
}

func mustAffect(res sql.Result, what, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check %s update: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
	}
	return nil
}
