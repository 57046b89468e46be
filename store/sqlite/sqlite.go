/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements ledger.Store, billing.ProfileStore, and billing.InvoiceStore
  using SQLite. In production, the same patterns apply to PostgreSQL - only
  minor SQL dialect differences.

APPEND-ONLY ENFORCEMENT:
  The Store enforces append-only semantics on the ledger:
  - No UPDATE statements on ledger_entries
  - No DELETE statements on ledger_entries
  - Corrections via new Adjustment/Refund entries only

KEY TABLES:
  ledger_entries:    Immutable ledger of all balance changes
  billing_profiles:  Student fee configuration and lifecycle state
  monthly_invoices:  Generated invoices; UNIQUE(student_id, period) enforces
                     one invoice per student per period

INDEXES:
  Critical indexes for performance:
  - idx_entries_student_date: Ordered history loads (balance hot path)
  - idempotency_key UNIQUE:   Retry protection
  - idx_invoices_period:      Batch run listings

CONCURRENCY:
  A single mutex serializes write transactions; SQLite allows one writer
  at a time. In production with PostgreSQL, database-level concurrency
  control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

TRANSACTIONS:
  WithTx exposes the full store surface bound to one *sql.Tx. Reads inside
  the transaction see its own uncommitted writes, which running-balance
  stamping during enrollment and checkout depends on.

USAGE:
  store, err := sqlite.New("./data/hostel.db")  // ":memory:" for tests
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - ledger/store.go: Interface definitions
  - billing/types.go: Profile and invoice store interfaces
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/hostelhq/ledger-engine/billing"
	"github.com/hostelhq/ledger-engine/ledger"
)

// dbtx is the common surface of *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements billing.Store using SQLite.
type Store struct {
	db *sql.DB

	// writeMu serializes write transactions; SQLite allows one writer.
	writeMu sync.Mutex
}

// New creates a store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Ledger entries (append-only)
	CREATE TABLE IF NOT EXISTS ledger_entries (
		id TEXT PRIMARY KEY,
		student_id TEXT NOT NULL,
		date TEXT NOT NULL,
		entry_type TEXT NOT NULL,
		description TEXT,
		reference_id TEXT,
		debit TEXT NOT NULL,
		credit TEXT NOT NULL,
		balance TEXT NOT NULL,
		balance_type TEXT NOT NULL,
		idempotency_key TEXT UNIQUE,
		created_at TEXT NOT NULL
	);

	-- Ordered history loads (balance derivation hot path)
	CREATE INDEX IF NOT EXISTS idx_entries_student_date
		ON ledger_entries(student_id, date, created_at);
	CREATE INDEX IF NOT EXISTS idx_entries_reference
		ON ledger_entries(reference_id) WHERE reference_id IS NOT NULL;

	-- Student billing profiles
	CREATE TABLE IF NOT EXISTS billing_profiles (
		student_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		base_monthly_fee TEXT NOT NULL,
		laundry_fee TEXT NOT NULL,
		food_fee TEXT NOT NULL,
		configuration_date TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		is_checked_out BOOLEAN NOT NULL DEFAULT FALSE,
		checkout_date TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_profiles_status
		ON billing_profiles(status);

	-- Monthly invoices
	-- CRITICAL: the unique index is the idempotency guard - a student can
	-- never be billed twice for the same period.
	CREATE TABLE IF NOT EXISTS monthly_invoices (
		id TEXT PRIMARY KEY,
		student_id TEXT NOT NULL,
		period_year INTEGER NOT NULL,
		period_month INTEGER NOT NULL,
		amount TEXT NOT NULL,
		due_date TEXT NOT NULL,
		generated_at TEXT NOT NULL,
		UNIQUE(student_id, period_year, period_month)
	);

	CREATE INDEX IF NOT EXISTS idx_invoices_period
		ON monthly_invoices(period_year, period_month);
	CREATE INDEX IF NOT EXISTS idx_invoices_student
		ON monthly_invoices(student_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// LEDGER ENTRY STORE (ledger.Store interface)
// =============================================================================

// Append adds an entry to the ledger.
func (s *Store) Append(ctx context.Context, e ledger.Entry) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return appendEntry(ctx, s.db, e)
}

func appendEntry(ctx context.Context, db dbtx, e ledger.Entry) error {
	query := `
		INSERT INTO ledger_entries
		(id, student_id, date, entry_type, description, reference_id,
		 debit, credit, balance, balance_type, idempotency_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := db.ExecContext(ctx, query,
		e.ID,
		e.StudentID,
		e.Date.UTC().Format(time.RFC3339),
		e.Type,
		e.Description,
		e.ReferenceID,
		e.Debit.String(),
		e.Credit.String(),
		e.Balance.String(),
		e.BalanceType,
		nullString(e.IdempotencyKey),
		createdAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ledger.ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("failed to append entry: %w", err)
	}
	return nil
}

// AppendBatch adds multiple entries atomically.
func (s *Store) AppendBatch(ctx context.Context, entries []ledger.Entry) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	// Reject duplicates within the batch before touching the database.
	keys := make(map[string]bool)
	for _, e := range entries {
		if e.IdempotencyKey != "" {
			if keys[e.IdempotencyKey] {
				return ledger.ErrDuplicateIdempotencyKey
			}
			keys[e.IdempotencyKey] = true
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, e := range entries {
		if err := appendEntry(ctx, tx, e); err != nil {
			return err
		}
	}
	return tx.Commit()
}

const entryColumns = `id, student_id, date, entry_type, description, reference_id,
	debit, credit, balance, balance_type, idempotency_key, created_at`

// LoadByStudent returns all entries for a student in (date, insertion) order.
func (s *Store) LoadByStudent(ctx context.Context, id ledger.StudentID) ([]ledger.Entry, error) {
	return loadByStudent(ctx, s.db, id)
}

func loadByStudent(ctx context.Context, db dbtx, id ledger.StudentID) ([]ledger.Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM ledger_entries
		WHERE student_id = ?
		ORDER BY date ASC, created_at ASC, rowid ASC
	`
	return queryEntries(ctx, db, query, id)
}

// LoadRange returns a student's entries with date in [from, to].
func (s *Store) LoadRange(ctx context.Context, id ledger.StudentID, from, to time.Time) ([]ledger.Entry, error) {
	return loadRange(ctx, s.db, id, from, to)
}

func loadRange(ctx context.Context, db dbtx, id ledger.StudentID, from, to time.Time) ([]ledger.Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM ledger_entries
		WHERE student_id = ? AND date >= ? AND date <= ?
		ORDER BY date ASC, created_at ASC, rowid ASC
	`
	return queryEntries(ctx, db, query, id,
		from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339))
}

// Exists checks if an idempotency key has been used.
func (s *Store) Exists(ctx context.Context, idempotencyKey string) (bool, error) {
	return keyExists(ctx, s.db, idempotencyKey)
}

func keyExists(ctx context.Context, db dbtx, key string) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM ledger_entries WHERE idempotency_key = ?", key,
	).Scan(&count)
	return count > 0, err
}

func queryEntries(ctx context.Context, db dbtx, query string, args ...any) ([]ledger.Entry, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []ledger.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanEntry(rows *sql.Rows) (ledger.Entry, error) {
	var (
		e              ledger.Entry
		date           string
		description    sql.NullString
		referenceID    sql.NullString
		debit          string
		credit         string
		balance        string
		idempotencyKey sql.NullString
		createdAt      string
	)

	err := rows.Scan(
		&e.ID, &e.StudentID, &date, &e.Type, &description, &referenceID,
		&debit, &credit, &balance, &e.BalanceType, &idempotencyKey, &createdAt,
	)
	if err != nil {
		return e, fmt.Errorf("failed to scan entry: %w", err)
	}

	e.Date, _ = time.Parse(time.RFC3339, date)
	e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	e.Description = description.String
	e.ReferenceID = referenceID.String
	e.IdempotencyKey = idempotencyKey.String
	e.Debit = parseDecimal(debit)
	e.Credit = parseDecimal(credit)
	e.Balance = parseDecimal(balance)

	return e, nil
}

// =============================================================================
// BILLING PROFILE STORE (billing.ProfileStore interface)
// =============================================================================

// SaveProfile inserts or updates a billing profile.
func (s *Store) SaveProfile(ctx context.Context, p billing.Profile) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return saveProfile(ctx, s.db, p)
}

func saveProfile(ctx context.Context, db dbtx, p billing.Profile) error {
	query := `
		INSERT INTO billing_profiles
		(student_id, name, base_monthly_fee, laundry_fee, food_fee,
		 configuration_date, status, is_checked_out, checkout_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(student_id) DO UPDATE SET
			name = excluded.name,
			base_monthly_fee = excluded.base_monthly_fee,
			laundry_fee = excluded.laundry_fee,
			food_fee = excluded.food_fee,
			configuration_date = excluded.configuration_date,
			status = excluded.status,
			is_checked_out = excluded.is_checked_out,
			checkout_date = excluded.checkout_date
	`

	var checkoutDate sql.NullString
	if p.CheckoutDate != nil {
		checkoutDate = sql.NullString{String: p.CheckoutDate.UTC().Format(time.RFC3339), Valid: true}
	}
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := db.ExecContext(ctx, query,
		p.StudentID, p.Name,
		p.BaseMonthlyFee.String(), p.LaundryFee.String(), p.FoodFee.String(),
		p.ConfigurationDate.UTC().Format(time.RFC3339),
		p.Status, p.IsCheckedOut, checkoutDate,
		createdAt.Format(time.RFC3339),
	)
	return err
}

const profileColumns = `student_id, name, base_monthly_fee, laundry_fee, food_fee,
	configuration_date, status, is_checked_out, checkout_date, created_at`

// GetProfile retrieves a profile by student id. Returns (nil, nil) when missing.
func (s *Store) GetProfile(ctx context.Context, id ledger.StudentID) (*billing.Profile, error) {
	return getProfile(ctx, s.db, id)
}

func getProfile(ctx context.Context, db dbtx, id ledger.StudentID) (*billing.Profile, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT "+profileColumns+" FROM billing_profiles WHERE student_id = ?", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	p, err := scanProfile(rows)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProfiles returns all profiles ordered by name.
func (s *Store) ListProfiles(ctx context.Context) ([]billing.Profile, error) {
	return queryProfiles(ctx, s.db, listProfilesQuery)
}

// ListActiveProfiles returns profiles eligible for monthly billing.
func (s *Store) ListActiveProfiles(ctx context.Context) ([]billing.Profile, error) {
	return queryProfiles(ctx, s.db, listActiveProfilesQuery)
}

const (
	listProfilesQuery = "SELECT " + profileColumns + ` FROM billing_profiles ORDER BY name`

	listActiveProfilesQuery = "SELECT " + profileColumns + `
		FROM billing_profiles
		WHERE status = 'active' AND is_checked_out = FALSE
		ORDER BY name`
)

func queryProfiles(ctx context.Context, db dbtx, query string, args ...any) ([]billing.Profile, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []billing.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

func scanProfile(rows *sql.Rows) (billing.Profile, error) {
	var (
		p                 billing.Profile
		base              string
		laundry           string
		food              string
		configurationDate string
		checkoutDate      sql.NullString
		createdAt         string
	)

	err := rows.Scan(
		&p.StudentID, &p.Name, &base, &laundry, &food,
		&configurationDate, &p.Status, &p.IsCheckedOut, &checkoutDate, &createdAt,
	)
	if err != nil {
		return p, fmt.Errorf("failed to scan profile: %w", err)
	}

	p.BaseMonthlyFee = parseDecimal(base)
	p.LaundryFee = parseDecimal(laundry)
	p.FoodFee = parseDecimal(food)
	p.ConfigurationDate, _ = time.Parse(time.RFC3339, configurationDate)
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if checkoutDate.Valid {
		t, _ := time.Parse(time.RFC3339, checkoutDate.String)
		p.CheckoutDate = &t
	}
	return p, nil
}

// MarkCheckedOut flips a profile to inactive and checked-out exactly once.
func (s *Store) MarkCheckedOut(ctx context.Context, id ledger.StudentID, at time.Time) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return markCheckedOut(ctx, s.db, id, at)
}

func markCheckedOut(ctx context.Context, db dbtx, id ledger.StudentID, at time.Time) error {
	res, err := db.ExecContext(ctx, `
		UPDATE billing_profiles
		SET status = 'inactive', is_checked_out = TRUE, checkout_date = ?
		WHERE student_id = ? AND is_checked_out = FALSE
	`, at.UTC().Format(time.RFC3339), id)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		existing, err := getProfile(ctx, db, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return ledger.ErrStudentNotFound
		}
		return ledger.ErrAlreadyCheckedOut
	}
	return nil
}

// =============================================================================
// MONTHLY INVOICE STORE (billing.InvoiceStore interface)
// =============================================================================

// SaveInvoice inserts an invoice. The unique (student, period) index makes
// re-runs fail with ErrAlreadyBilled instead of duplicating charges.
func (s *Store) SaveInvoice(ctx context.Context, inv billing.Invoice) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return saveInvoice(ctx, s.db, inv)
}

func saveInvoice(ctx context.Context, db dbtx, inv billing.Invoice) error {
	query := `
		INSERT INTO monthly_invoices
		(id, student_id, period_year, period_month, amount, due_date, generated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	generatedAt := inv.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = time.Now().UTC()
	}

	_, err := db.ExecContext(ctx, query,
		inv.ID, inv.StudentID,
		inv.Period.Year, int(inv.Period.Month),
		inv.Amount.String(),
		inv.DueDate.UTC().Format(time.RFC3339),
		generatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ledger.ErrAlreadyBilled
		}
		return fmt.Errorf("failed to save invoice: %w", err)
	}
	return nil
}

const invoiceColumns = `id, student_id, period_year, period_month, amount, due_date, generated_at`

const (
	listInvoicesQuery = "SELECT " + invoiceColumns + `
		FROM monthly_invoices
		WHERE period_year = ? AND period_month = ?
		ORDER BY student_id`

	listInvoicesByStudentQuery = "SELECT " + invoiceColumns + `
		FROM monthly_invoices
		WHERE student_id = ?
		ORDER BY period_year DESC, period_month DESC`
)

// GetInvoice retrieves the invoice for (student, period). Returns (nil, nil)
// when the period has not been billed.
func (s *Store) GetInvoice(ctx context.Context, id ledger.StudentID, p ledger.Period) (*billing.Invoice, error) {
	return getInvoice(ctx, s.db, id, p)
}

func getInvoice(ctx context.Context, db dbtx, id ledger.StudentID, p ledger.Period) (*billing.Invoice, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+invoiceColumns+` FROM monthly_invoices
		WHERE student_id = ? AND period_year = ? AND period_month = ?
	`, id, p.Year, int(p.Month))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	inv, err := scanInvoice(rows)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// ListInvoices returns all invoices for a period.
func (s *Store) ListInvoices(ctx context.Context, p ledger.Period) ([]billing.Invoice, error) {
	return queryInvoices(ctx, s.db, listInvoicesQuery, p.Year, int(p.Month))
}

// ListInvoicesByStudent returns a student's invoices, newest period first.
func (s *Store) ListInvoicesByStudent(ctx context.Context, id ledger.StudentID) ([]billing.Invoice, error) {
	return queryInvoices(ctx, s.db, listInvoicesByStudentQuery, id)
}

func queryInvoices(ctx context.Context, db dbtx, query string, args ...any) ([]billing.Invoice, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []billing.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

func scanInvoice(rows *sql.Rows) (billing.Invoice, error) {
	var (
		inv         billing.Invoice
		year        int
		month       int
		amount      string
		dueDate     string
		generatedAt string
	)

	err := rows.Scan(&inv.ID, &inv.StudentID, &year, &month, &amount, &dueDate, &generatedAt)
	if err != nil {
		return inv, fmt.Errorf("failed to scan invoice: %w", err)
	}

	inv.Period = ledger.Period{Year: year, Month: time.Month(month)}
	inv.Amount = parseDecimal(amount)
	inv.DueDate, _ = time.Parse(time.RFC3339, dueDate)
	inv.GeneratedAt, _ = time.Parse(time.RFC3339, generatedAt)
	return inv, nil
}

// =============================================================================
// TRANSACTIONAL STORE
// =============================================================================

// WithTx executes fn against a transactional view of the store. All reads
// and writes inside fn go through the same *sql.Tx, so fn sees its own
// uncommitted writes; if fn returns an error everything rolls back.
func (s *Store) WithTx(ctx context.Context, fn func(billing.Store) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&txStore{tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

// txStore implements billing.Store bound to one transaction.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) Append(ctx context.Context, e ledger.Entry) error {
	return appendEntry(ctx, ts.tx, e)
}

func (ts *txStore) AppendBatch(ctx context.Context, entries []ledger.Entry) error {
	for _, e := range entries {
		if err := appendEntry(ctx, ts.tx, e); err != nil {
			return err
		}
	}
	return nil
}

func (ts *txStore) LoadByStudent(ctx context.Context, id ledger.StudentID) ([]ledger.Entry, error) {
	return loadByStudent(ctx, ts.tx, id)
}

func (ts *txStore) LoadRange(ctx context.Context, id ledger.StudentID, from, to time.Time) ([]ledger.Entry, error) {
	return loadRange(ctx, ts.tx, id, from, to)
}

func (ts *txStore) Exists(ctx context.Context, idempotencyKey string) (bool, error) {
	return keyExists(ctx, ts.tx, idempotencyKey)
}

func (ts *txStore) SaveProfile(ctx context.Context, p billing.Profile) error {
	return saveProfile(ctx, ts.tx, p)
}

func (ts *txStore) GetProfile(ctx context.Context, id ledger.StudentID) (*billing.Profile, error) {
	return getProfile(ctx, ts.tx, id)
}

func (ts *txStore) ListProfiles(ctx context.Context) ([]billing.Profile, error) {
	return queryProfiles(ctx, ts.tx, listProfilesQuery)
}

func (ts *txStore) ListActiveProfiles(ctx context.Context) ([]billing.Profile, error) {
	return queryProfiles(ctx, ts.tx, listActiveProfilesQuery)
}

func (ts *txStore) MarkCheckedOut(ctx context.Context, id ledger.StudentID, at time.Time) error {
	return markCheckedOut(ctx, ts.tx, id, at)
}

func (ts *txStore) SaveInvoice(ctx context.Context, inv billing.Invoice) error {
	return saveInvoice(ctx, ts.tx, inv)
}

func (ts *txStore) GetInvoice(ctx context.Context, id ledger.StudentID, p ledger.Period) (*billing.Invoice, error) {
	return getInvoice(ctx, ts.tx, id, p)
}

func (ts *txStore) ListInvoices(ctx context.Context, p ledger.Period) ([]billing.Invoice, error) {
	return queryInvoices(ctx, ts.tx, listInvoicesQuery, p.Year, int(p.Month))
}

func (ts *txStore) ListInvoicesByStudent(ctx context.Context, id ledger.StudentID) ([]billing.Invoice, error) {
	return queryInvoices(ctx, ts.tx, listInvoicesByStudentQuery, id)
}

// Nested transactions are not supported; fn runs in the current one.
func (ts *txStore) WithTx(ctx context.Context, fn func(billing.Store) error) error {
	return fn(ts)
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
