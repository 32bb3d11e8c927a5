package storage

import (
	"errors"

	"storefront/internal/domain/inventory"

	"github.com/jackc/pgx/v5/pgconn"
)

// IsRetryable reports whether err aborted a transaction that may succeed
// when run again: ledger transaction failures, serialization failures and
// deadlocks.
func IsRetryable(err error) bool {
	if errors.Is(err, inventory.ErrTransactionFailure) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}
