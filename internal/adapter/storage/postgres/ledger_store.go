package postgres

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"
	pgOutOfRange      = "22003"
)

const walletColumns = `id, party_id, currency, balance, version, created_at, updated_at`

const transactionColumns = `id, owner_id, wallet_id, kind, amount, currency, status, description,
	counterparty_id, linked_entry_id, external_reference, created_at`

// LedgerStore implements ports.LedgerStore on PostgreSQL. Balance changes are
// version-guarded UPDATEs; a stale version surfaces as domain.ErrVersionConflict.
type LedgerStore struct {
	pool Pool
	now  func() time.Time
}

var _ ports.LedgerStore = (*LedgerStore)(nil)

// NewLedgerStore creates a new LedgerStore.
func NewLedgerStore(pool Pool) *LedgerStore {
	return &LedgerStore{
		pool: pool,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWallet(row rowScanner, w *domain.Wallet) error {
	return row.Scan(&w.ID, &w.PartyID, &w.Currency, &w.Balance, &w.Version, &w.CreatedAt, &w.UpdatedAt)
}

func scanTransaction(row rowScanner, t *domain.Transaction) error {
	return row.Scan(
		&t.ID, &t.OwnerID, &t.WalletID, &t.Kind, &t.Amount, &t.Currency, &t.Status,
		&t.Description, &t.CounterpartyID, &t.LinkedEntryID, &t.ExternalReference, &t.CreatedAt,
	)
}

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// CreateWallet inserts a new wallet. A second wallet for the same party
// returns domain.ErrWalletExists.
func (s *LedgerStore) CreateWallet(ctx context.Context, w *domain.Wallet) error {
	query := `INSERT INTO wallets (` + walletColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.pool.Exec(ctx, query,
		w.ID, w.PartyID, w.Currency, w.Balance, w.Version, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		if pgErrorCode(err) == pgUniqueViolation {
			return fmt.Errorf("insert wallet for party %s: %w", w.PartyID, domain.ErrWalletExists)
		}
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

// GetWallet fetches a wallet by its UUID.
func (s *LedgerStore) GetWallet(ctx context.Context, walletID uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1`

	w := &domain.Wallet{}
	if err := scanWallet(s.pool.QueryRow(ctx, query, walletID), w); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get wallet %s: %w", walletID, domain.ErrWalletNotFound)
		}
		return nil, fmt.Errorf("get wallet by id: %w", err)
	}
	return w, nil
}

// GetWalletByParty fetches the wallet owned by a party.
func (s *LedgerStore) GetWalletByParty(ctx context.Context, partyID uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE party_id = $1`

	w := &domain.Wallet{}
	if err := scanWallet(s.pool.QueryRow(ctx, query, partyID), w); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get wallet for party %s: %w", partyID, domain.ErrWalletNotFound)
		}
		return nil, fmt.Errorf("get wallet by party: %w", err)
	}
	return w, nil
}

// AtomicTransfer moves funds between two wallets and writes the linked
// debit/credit pair in a single database transaction. Wallet rows are
// updated in ascending id order so concurrent opposite transfers lock in the
// same sequence.
func (s *LedgerStore) AtomicTransfer(ctx context.Context, p ports.TransferPosting) (*domain.EntryPair, error) {
	if p.Amount <= 0 {
		return nil, fmt.Errorf("atomic transfer: %w", domain.ErrInvalidAmount)
	}
	if p.Debit.ID == p.Credit.ID {
		return nil, fmt.Errorf("atomic transfer: %w", domain.ErrSelfReferential)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transfer: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	now := s.now()

	type step struct {
		wallet domain.Wallet
		delta  int64
	}
	steps := []step{{p.Debit, -p.Amount}, {p.Credit, p.Amount}}
	if bytes.Compare(p.Debit.ID[:], p.Credit.ID[:]) > 0 {
		steps[0], steps[1] = steps[1], steps[0]
	}

	updated := make(map[uuid.UUID]domain.Wallet, 2)
	for _, st := range steps {
		w, err := s.applyDelta(ctx, tx, st.wallet, st.delta, now)
		if err != nil {
			return nil, err
		}
		updated[w.ID] = *w
	}
	debitWallet, creditWallet := updated[p.Debit.ID], updated[p.Credit.ID]

	debitID, creditID := uuid.New(), uuid.New()
	debitCounterparty, creditCounterparty := creditWallet.PartyID, debitWallet.PartyID
	debit := &domain.Transaction{
		ID:             debitID,
		OwnerID:        debitWallet.PartyID,
		WalletID:       debitWallet.ID,
		Kind:           p.Kind,
		Amount:         -p.Amount,
		Currency:       debitWallet.Currency,
		Status:         domain.TransactionStatusCompleted,
		Description:    p.DebitDescription,
		CounterpartyID: &debitCounterparty,
		LinkedEntryID:  &creditID,
		CreatedAt:      now,
	}
	credit := &domain.Transaction{
		ID:             creditID,
		OwnerID:        creditWallet.PartyID,
		WalletID:       creditWallet.ID,
		Kind:           p.Kind,
		Amount:         p.Amount,
		Currency:       creditWallet.Currency,
		Status:         domain.TransactionStatusCompleted,
		Description:    p.CreditDescription,
		CounterpartyID: &creditCounterparty,
		LinkedEntryID:  &debitID,
		CreatedAt:      now,
	}

	for _, t := range []*domain.Transaction{debit, credit} {
		if err := insertTransaction(ctx, tx, t); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transfer: %w", err)
	}

	return &domain.EntryPair{
		Debit:        debit,
		Credit:       credit,
		DebitWallet:  debitWallet,
		CreditWallet: creditWallet,
	}, nil
}

// applyDelta adds delta to the wallet if its stored version still matches.
func (s *LedgerStore) applyDelta(ctx context.Context, tx pgx.Tx, w domain.Wallet, delta int64, now time.Time) (*domain.Wallet, error) {
	query := `UPDATE wallets SET balance = balance + $1, version = version + 1, updated_at = $2
		WHERE id = $3 AND version = $4
		RETURNING ` + walletColumns

	out := &domain.Wallet{}
	err := scanWallet(tx.QueryRow(ctx, query, delta, now, w.ID, w.Version), out)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("update wallet %s at version %d: %w", w.ID, w.Version, domain.ErrVersionConflict)
		}
		switch pgErrorCode(err) {
		case pgCheckViolation:
			return nil, fmt.Errorf("update wallet %s: %w", w.ID, domain.ErrInsufficientFunds)
		case pgOutOfRange:
			return nil, fmt.Errorf("update wallet %s: %w", w.ID, domain.ErrBalanceOverflow)
		}
		return nil, fmt.Errorf("update wallet balance: %w", err)
	}
	return out, nil
}

func insertTransaction(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	query := `INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := tx.Exec(ctx, query,
		t.ID, t.OwnerID, t.WalletID, string(t.Kind), t.Amount, t.Currency, string(t.Status),
		t.Description, t.CounterpartyID, t.LinkedEntryID, t.ExternalReference, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// AtomicCredit credits a wallet and records a deposit keyed by the external
// reference. An already applied reference returns the earlier deposit with
// domain.ErrDuplicateReference, whatever wallet the new posting names. A
// concurrent insert of the same reference is caught by the unique index and
// rolls the credit back.
func (s *LedgerStore) AtomicCredit(ctx context.Context, p ports.CreditPosting) (*ports.CreditResult, error) {
	if p.Amount <= 0 {
		return nil, fmt.Errorf("atomic credit: %w", domain.ErrInvalidAmount)
	}

	applied, err := s.findCredit(ctx, p.ExternalReference)
	if err != nil {
		return nil, err
	}
	if applied != nil {
		return s.duplicateCredit(ctx, p.ExternalReference, applied)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin credit: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	now := s.now()

	query := `UPDATE wallets SET balance = balance + $1, version = version + 1, updated_at = $2
		WHERE id = $3
		RETURNING ` + walletColumns

	w := domain.Wallet{}
	if err := scanWallet(tx.QueryRow(ctx, query, p.Amount, now, p.WalletID), &w); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("credit wallet %s: %w", p.WalletID, domain.ErrWalletNotFound)
		}
		if pgErrorCode(err) == pgOutOfRange {
			return nil, fmt.Errorf("credit wallet %s: %w", p.WalletID, domain.ErrBalanceOverflow)
		}
		return nil, fmt.Errorf("credit wallet balance: %w", err)
	}

	ref := p.ExternalReference
	deposit := &domain.Transaction{
		ID:                uuid.New(),
		OwnerID:           w.PartyID,
		WalletID:          w.ID,
		Kind:              domain.TransactionKindDeposit,
		Amount:            p.Amount,
		Currency:          w.Currency,
		Status:            domain.TransactionStatusCompleted,
		Description:       p.Description,
		ExternalReference: &ref,
		CreatedAt:         now,
	}

	insert := `INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (external_reference) WHERE external_reference IS NOT NULL DO NOTHING
		RETURNING id`

	var insertedID uuid.UUID
	err = tx.QueryRow(ctx, insert,
		deposit.ID, deposit.OwnerID, deposit.WalletID, string(deposit.Kind), deposit.Amount,
		deposit.Currency, string(deposit.Status), deposit.Description,
		deposit.CounterpartyID, deposit.LinkedEntryID, deposit.ExternalReference, deposit.CreatedAt,
	).Scan(&insertedID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				return nil, fmt.Errorf("rollback duplicate credit: %w", rbErr)
			}
			applied, err := s.findCredit(ctx, ref)
			if err != nil {
				return nil, err
			}
			if applied == nil {
				return nil, fmt.Errorf("reference %q conflicted but no deposit holds it", ref)
			}
			return s.duplicateCredit(ctx, ref, applied)
		}
		return nil, fmt.Errorf("insert deposit: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit credit: %w", err)
	}
	return &ports.CreditResult{Transaction: deposit, Wallet: w}, nil
}

// findCredit returns the deposit recorded under ref, or nil when there is none.
func (s *LedgerStore) findCredit(ctx context.Context, ref string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE external_reference = $1`

	existing := &domain.Transaction{}
	if err := scanTransaction(s.pool.QueryRow(ctx, query, ref), existing); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load deposit for reference %q: %w", ref, err)
	}
	return existing, nil
}

func (s *LedgerStore) duplicateCredit(ctx context.Context, ref string, existing *domain.Transaction) (*ports.CreditResult, error) {
	w, err := s.GetWallet(ctx, existing.WalletID)
	if err != nil {
		return nil, err
	}
	return &ports.CreditResult{Transaction: existing, Wallet: *w},
		fmt.Errorf("reference %q: %w", ref, domain.ErrDuplicateReference)
}

// GetTransaction fetches a single ledger entry by id.
func (s *LedgerStore) GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	t := &domain.Transaction{}
	if err := scanTransaction(s.pool.QueryRow(ctx, query, id), t); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get transaction %s: %w", id, domain.ErrTransactionNotFound)
		}
		return nil, fmt.Errorf("get transaction by id: %w", err)
	}
	return t, nil
}

// ListTransactions returns one page of the owner's entries, newest first,
// along with the total number of matching entries.
func (s *LedgerStore) ListTransactions(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	params.Normalize()

	var conditions []string
	var args []any
	argIdx := 1

	conditions = append(conditions, fmt.Sprintf("owner_id = $%d", argIdx))
	args = append(args, params.OwnerID)
	argIdx++

	if params.Kind != nil {
		conditions = append(conditions, fmt.Sprintf("kind = $%d", argIdx))
		args = append(args, string(*params.Kind))
		argIdx++
	}

	where := "WHERE " + strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM transactions %s", where)
	var total int64
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	dataQuery := fmt.Sprintf(`SELECT %s FROM transactions %s
		ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, transactionColumns, where, argIdx, argIdx+1)
	args = append(args, params.PageSize, params.Offset())

	txns, err := s.queryTransactions(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, err
	}
	return txns, total, nil
}

// GetSummary aggregates the owner's entries by sign and returns the most
// recent ones.
func (s *LedgerStore) GetSummary(ctx context.Context, ownerID uuid.UUID, recentLimit int) (*domain.Summary, error) {
	query := `SELECT COUNT(*),
			COALESCE(SUM(-amount) FILTER (WHERE amount < 0), 0),
			COALESCE(SUM(amount) FILTER (WHERE amount > 0), 0)
		FROM transactions WHERE owner_id = $1`

	summary := &domain.Summary{}
	err := s.pool.QueryRow(ctx, query, ownerID).Scan(
		&summary.TotalCount, &summary.TotalDebited, &summary.TotalCredited,
	)
	if err != nil {
		return nil, fmt.Errorf("summarize transactions: %w", err)
	}

	recentQuery := `SELECT ` + transactionColumns + ` FROM transactions WHERE owner_id = $1
		ORDER BY created_at DESC, id DESC LIMIT $2`
	recent, err := s.queryTransactions(ctx, recentQuery, ownerID, recentLimit)
	if err != nil {
		return nil, err
	}
	summary.Recent = recent
	return summary, nil
}

func (s *LedgerStore) queryTransactions(ctx context.Context, query string, args ...any) ([]domain.Transaction, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	txns := []domain.Transaction{}
	for rows.Next() {
		t := domain.Transaction{}
		if err := scanTransaction(rows, &t); err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction rows: %w", err)
	}
	return txns, nil
}
