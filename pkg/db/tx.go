package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	maxRetries = 3
	retryDelay = 10 * time.Millisecond
)

// isRetryableError checks if an error is safe to retry
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	// Connection errors before any data was sent
	if pgconn.SafeToRetry(err) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001": // serialization_failure
			return true
		case "40P01": // deadlock_detected
			return true
		case "08000", "08003", "08006": // connection errors
			return true
		}
	}

	var myErr *mysqlDriver.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1213: // ER_LOCK_DEADLOCK
			return true
		case 1205: // ER_LOCK_WAIT_TIMEOUT
			return true
		}
	}

	return errors.Is(err, mysqlDriver.ErrInvalidConn)
}

// Query runs fn with a session bound to ctx. The pool hands a connection to
// each statement and takes it back when the statement finishes or fails.
// Retries on transient errors.
func (d *Database) Query(ctx context.Context, fn func(*gorm.DB) error) error {
	db, err := d.Db()
	if err != nil {
		return err
	}
	return retry(ctx, func() error {
		return fn(db.WithContext(ctx))
	})
}

// Tx runs fn inside one transaction. Engines that support it run at
// serializable isolation so two ranking refreshes cannot interleave.
// Retries the whole transaction on serialization failures and deadlocks.
func (d *Database) Tx(ctx context.Context, fn func(*gorm.DB) error) error {
	db, err := d.Db()
	if err != nil {
		return err
	}

	var opts []*sql.TxOptions
	if db.Dialector.Name() != "sqlite" {
		opts = append(opts, &sql.TxOptions{Isolation: sql.LevelSerializable})
	}

	return retry(ctx, func() error {
		return db.WithContext(ctx).Transaction(fn, opts...)
	})
}

func retry(ctx context.Context, fn func() error) error {
	var lastErr error

	for attempt := range maxRetries {
		if attempt > 0 {
			delay := retryDelay * time.Duration(1<<uint(attempt-1))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err
		if !isRetryableError(err) {
			return err
		}
	}

	return fmt.Errorf("query failed after %d attempts: %w", maxRetries, lastErr)
}
