package repository

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/peerpush/platform/internal/domain"
)

// Advisory lock class IDs. Wallet and challenge locks live in separate
// keyspaces so a user lock can never collide with a challenge lock.
const (
	lockClassWallet    = 1
	lockClassChallenge = 2
)

// lockTimeout bounds how long a transaction waits for an advisory lock
// before the operation fails with WalletBusy.
const lockTimeout = "5s"

// AcquireWalletLock takes the exclusive per-user advisory lock. The lock is
// transaction-scoped: it releases at commit or rollback. Lock waits longer
// than the timeout surface as domain.ErrWalletBusy.
func AcquireWalletLock(ctx context.Context, tx pgx.Tx, userID uuid.UUID) error {
	return acquireAdvisoryLock(ctx, tx, lockClassWallet, userID)
}

// AcquireChallengeLock takes the exclusive per-challenge advisory lock,
// serializing settlement runs for one challenge.
func AcquireChallengeLock(ctx context.Context, tx pgx.Tx, challengeID uuid.UUID) error {
	return acquireAdvisoryLock(ctx, tx, lockClassChallenge, challengeID)
}

func acquireAdvisoryLock(ctx context.Context, tx pgx.Tx, class int32, id uuid.UUID) error {
	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%s'", lockTimeout)); err != nil {
		return fmt.Errorf("set lock timeout: %w", err)
	}
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1, $2)`, class, lockKey(id)); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "55P03" {
			return domain.ErrWalletBusy()
		}
		return fmt.Errorf("acquire advisory lock: %w", err)
	}
	return nil
}

// lockKey folds a UUID into the int32 keyspace of pg_advisory_xact_lock.
// Collisions are harmless: they only widen a lock's scope, never narrow it.
func lockKey(id uuid.UUID) int32 {
	h := fnv.New32a()
	h.Write(id[:])
	return int32(h.Sum32())
}
