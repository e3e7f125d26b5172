package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Dialect selects placeholder syntax.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// linearBackOff waits step, 2*step, 3*step, ... between attempts.
type linearBackOff struct {
	step    time.Duration
	attempt int
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.attempt++
	return b.step * time.Duration(b.attempt)
}

func (b *linearBackOff) Reset() {
	b.attempt = 0
}

// Executor runs statements against the pool and retries transient failures
// with linear backoff. Queries are written with ? placeholders.
type Executor struct {
	db      *sql.DB
	dialect Dialect
	retries int
	delay   time.Duration
	log     *zap.Logger
	retried prometheus.Counter

	// onRetry is called before each retry with the 1-based attempt that failed.
	onRetry func(attempt int, err error)
}

// WithRetries returns a copy of e that retries up to n additional times.
func (e *Executor) WithRetries(n int) *Executor {
	cp := *e
	if n < 0 {
		n = 0
	}
	cp.retries = n
	return &cp
}

// Exec runs a statement that returns no rows.
func (e *Executor) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	q := rebind(e.dialect, query)
	return retry(ctx, e, func() (sql.Result, error) {
		return e.db.ExecContext(ctx, q, args...)
	})
}

// Query runs a statement that returns rows. The caller closes the rows.
func (e *Executor) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	q := rebind(e.dialect, query)
	return retry(ctx, e, func() (*sql.Rows, error) {
		return e.db.QueryContext(ctx, q, args...)
	})
}

func retry[T any](ctx context.Context, e *Executor, op func() (T, error)) (T, error) {
	attempt := 0
	v, err := backoff.Retry(ctx, func() (T, error) {
		attempt++
		v, err := op()
		if err != nil && isPermanent(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	},
		backoff.WithBackOff(&linearBackOff{step: e.delay}),
		backoff.WithMaxTries(uint(e.retries+1)),
		backoff.WithNotify(func(err error, next time.Duration) {
			e.log.Warn("query failed, retrying",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", next),
				zap.Error(err))
			if e.retried != nil {
				e.retried.Inc()
			}
			if e.onRetry != nil {
				e.onRetry(attempt, err)
			}
		}),
	)
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Err
	}
	return v, err
}

// Tx is a transaction that rebinds placeholders like Executor.
type Tx struct {
	tx      *sql.Tx
	dialect Dialect
}

// Exec runs a statement inside the transaction.
func (t *Tx) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(ctx, rebind(t.dialect, query), args...)
}

// QueryRow runs a single-row query inside the transaction.
func (t *Tx) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(ctx, rebind(t.dialect, query), args...)
}

// InTx runs fn in a transaction, committing on nil and rolling back otherwise.
func (e *Executor) InTx(ctx context.Context, fn func(*Tx) error) (err error) {
	sqlTx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				e.log.Error("rollback failed", zap.Error(rbErr))
			}
		}
	}()
	if err = fn(&Tx{tx: sqlTx, dialect: e.dialect}); err != nil {
		return err
	}
	if err = sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// rebind rewrites ? placeholders to $1, $2, ... for postgres.
func rebind(d Dialect, query string) string {
	if d != DialectPostgres || !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
