package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/steveyegge/tracker/internal/storage"
)

// withWriteTx executes fn inside a BEGIN IMMEDIATE transaction on a
// dedicated connection.
//
// IMMEDIATE acquires a RESERVED lock up front, preventing other write
// transactions from starting. This serializes identifier allocation and
// check-then-act hierarchy validation across concurrent writers, which
// is exactly what the mutation paths need: the hierarchy check, the
// row mutation, and the history append commit as a single atomic unit.
//
// We issue raw BEGIN IMMEDIATE/COMMIT because database/sql's BeginTx has
// no notion of transaction modes and would fall back to DEFERRED.
func (s *Store) withWriteTx(ctx context.Context, fn func(conn *sql.Conn) error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer func() { _ = conn.Close() }()

	if err := beginImmediate(ctx, conn); err != nil {
		return err
	}

	// Use background context for ROLLBACK so cleanup happens even if ctx
	// is canceled mid-transaction.
	committed := false
	defer func() {
		if !committed {
			_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
		}
	}()

	if err := fn(conn); err != nil {
		return err // rollback happens in defer
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return wrapDBError("commit transaction", err)
	}
	committed = true
	return nil
}

// beginImmediate starts an IMMEDIATE transaction, retrying with
// exponential backoff while the database is busy. Exhausting the retries
// surfaces as storage.ErrConflict so callers know the operation is
// safely retryable.
func beginImmediate(ctx context.Context, conn *sql.Conn) error {
	attempt := func() error {
		_, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE")
		if err == nil {
			return nil
		}
		if isBusyError(err) {
			return err // retryable
		}
		return backoff.Permanent(err)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 10 * time.Millisecond
	policy.MaxInterval = 250 * time.Millisecond

	err := backoff.Retry(attempt, backoff.WithContext(backoff.WithMaxRetries(policy, 5), ctx))
	if err == nil {
		return nil
	}
	if isBusyError(err) {
		return fmt.Errorf("begin immediate transaction: %w", storage.ErrConflict)
	}
	return fmt.Errorf("begin immediate transaction: %w", err)
}
