/*
store.go - Persistence interface for ledger entries

PURPOSE:
  Defines the interface between the ledger and the database. The Store
  persists entries while maintaining append-only semantics. Different
  implementations can use SQLite, PostgreSQL, or in-memory storage.

APPEND-ONLY CONTRACT:
  - Append(): single entry write
  - AppendBatch(): atomic multi-entry write
  - NO Update() or Delete() methods exist
  Corrections are modeled as new Adjustment/Refund entries.

IDEMPOTENCY:
  Writes may carry an idempotency key. If the key already exists the write
  is rejected, which protects against network retries and double-clicks.

IMPLEMENTATIONS:
  - store/sqlite: production SQLite store

SEE ALSO:
  - ledger.go: Higher-level append wrapper using Store
*/
package ledger

import (
	"context"
	"time"
)

// =============================================================================
// STORE - Entry persistence (append-only)
// =============================================================================

// Store handles persistence of ledger entries.
// IMPORTANT: Store is APPEND-ONLY. No Update, No Delete. Ever.
type Store interface {
	// Append persists an entry. Returns ErrDuplicateIdempotencyKey if the
	// entry's idempotency key already exists.
	Append(ctx context.Context, e Entry) error

	// AppendBatch persists multiple entries atomically.
	// Either all succeed or none do.
	AppendBatch(ctx context.Context, entries []Entry) error

	// LoadByStudent returns all entries for a student, ordered by
	// effective date then insertion order.
	LoadByStudent(ctx context.Context, id StudentID) ([]Entry, error)

	// LoadRange returns a student's entries with Date in [from, to].
	LoadRange(ctx context.Context, id StudentID, from, to time.Time) ([]Entry, error)

	// Exists checks if an idempotency key has been used.
	Exists(ctx context.Context, idempotencyKey string) (bool, error)
}

// =============================================================================
// TRANSACTIONAL STORE - For atomic multi-write operations
// =============================================================================

// TxStore wraps Store with transaction support. Checkout uses this: the
// proration entry, the settlement entry, and the profile flip must land
// together or not at all.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}
