package sheets

import (
	"context"

	"finances/internal/core"
)

// TransactionMirror keeps a read-only copy of the ledger outside the database.
// Both operations are idempotent from the caller's point of view: deleting an
// id that is not mirrored succeeds.
type TransactionMirror interface {
	AppendTransaction(ctx context.Context, t core.Transaction) (rowRef string, err error)
	DeleteTransaction(ctx context.Context, id string) error
}
