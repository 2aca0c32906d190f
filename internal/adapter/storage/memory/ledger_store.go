// Package memory provides a concurrency-safe in-memory LedgerStore for tests
// and the memory ledger driver. Commit applies the same version compare as the
// PostgreSQL store, under a single mutex.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/google/uuid"
)

// LedgerStore implements ports.LedgerStore in process memory.
type LedgerStore struct {
	mu        sync.RWMutex
	wallets   map[uuid.UUID]*domain.Wallet
	byParty   map[uuid.UUID]uuid.UUID
	txns      map[uuid.UUID]*domain.Transaction
	journal   []uuid.UUID // transaction ids in insertion order
	reference map[string]uuid.UUID
	now       func() time.Time
}

var _ ports.LedgerStore = (*LedgerStore)(nil)

// NewLedgerStore creates an empty in-memory ledger.
func NewLedgerStore() *LedgerStore {
	return &LedgerStore{
		wallets:   make(map[uuid.UUID]*domain.Wallet),
		byParty:   make(map[uuid.UUID]uuid.UUID),
		txns:      make(map[uuid.UUID]*domain.Transaction),
		reference: make(map[string]uuid.UUID),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *LedgerStore) CreateWallet(_ context.Context, wallet *domain.Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byParty[wallet.PartyID]; exists {
		return fmt.Errorf("create wallet for party %s: %w", wallet.PartyID, domain.ErrWalletExists)
	}
	if _, exists := s.wallets[wallet.ID]; exists {
		return fmt.Errorf("create wallet %s: %w", wallet.ID, domain.ErrWalletExists)
	}

	w := *wallet
	s.wallets[w.ID] = &w
	s.byParty[w.PartyID] = w.ID
	return nil
}

func (s *LedgerStore) GetWallet(_ context.Context, walletID uuid.UUID) (*domain.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.wallets[walletID]
	if !ok {
		return nil, fmt.Errorf("get wallet %s: %w", walletID, domain.ErrWalletNotFound)
	}
	cp := *w
	return &cp, nil
}

func (s *LedgerStore) GetWalletByParty(_ context.Context, partyID uuid.UUID) (*domain.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byParty[partyID]
	if !ok {
		return nil, fmt.Errorf("get wallet for party %s: %w", partyID, domain.ErrWalletNotFound)
	}
	cp := *s.wallets[id]
	return &cp, nil
}

// AtomicTransfer applies both sides of a movement or neither.
func (s *LedgerStore) AtomicTransfer(_ context.Context, p ports.TransferPosting) (*domain.EntryPair, error) {
	if p.Amount <= 0 {
		return nil, fmt.Errorf("atomic transfer: %w", domain.ErrInvalidAmount)
	}
	if p.Debit.ID == p.Credit.ID {
		return nil, fmt.Errorf("atomic transfer: %w", domain.ErrSelfReferential)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	debit, ok := s.wallets[p.Debit.ID]
	if !ok {
		return nil, fmt.Errorf("debit wallet %s: %w", p.Debit.ID, domain.ErrWalletNotFound)
	}
	credit, ok := s.wallets[p.Credit.ID]
	if !ok {
		return nil, fmt.Errorf("credit wallet %s: %w", p.Credit.ID, domain.ErrWalletNotFound)
	}

	if debit.Version != p.Debit.Version || credit.Version != p.Credit.Version {
		return nil, fmt.Errorf("atomic transfer: %w", domain.ErrVersionConflict)
	}
	if !debit.HasSufficientFunds(p.Amount) {
		return nil, fmt.Errorf("atomic transfer: %w", domain.ErrInsufficientFunds)
	}
	if !credit.CanAbsorb(p.Amount) {
		return nil, fmt.Errorf("credit wallet %s: %w", credit.ID, domain.ErrBalanceOverflow)
	}

	now := s.now()
	debit.Balance -= p.Amount
	debit.Version++
	debit.UpdatedAt = now
	credit.Balance += p.Amount
	credit.Version++
	credit.UpdatedAt = now

	debitID, creditID := uuid.New(), uuid.New()
	debitCounterparty, creditCounterparty := credit.PartyID, debit.PartyID
	debitTx := &domain.Transaction{
		ID:             debitID,
		OwnerID:        debit.PartyID,
		WalletID:       debit.ID,
		Kind:           p.Kind,
		Amount:         -p.Amount,
		Currency:       debit.Currency,
		Status:         domain.TransactionStatusCompleted,
		Description:    p.DebitDescription,
		CounterpartyID: &debitCounterparty,
		LinkedEntryID:  &creditID,
		CreatedAt:      now,
	}
	creditTx := &domain.Transaction{
		ID:             creditID,
		OwnerID:        credit.PartyID,
		WalletID:       credit.ID,
		Kind:           p.Kind,
		Amount:         p.Amount,
		Currency:       credit.Currency,
		Status:         domain.TransactionStatusCompleted,
		Description:    p.CreditDescription,
		CounterpartyID: &creditCounterparty,
		LinkedEntryID:  &debitID,
		CreatedAt:      now,
	}
	s.append(debitTx)
	s.append(creditTx)

	debitCopy, creditCopy := *debitTx, *creditTx
	return &domain.EntryPair{
		Debit:        &debitCopy,
		Credit:       &creditCopy,
		DebitWallet:  *debit,
		CreditWallet: *credit,
	}, nil
}

// AtomicCredit applies a deposit once per external reference.
func (s *LedgerStore) AtomicCredit(_ context.Context, p ports.CreditPosting) (*ports.CreditResult, error) {
	if p.Amount <= 0 {
		return nil, fmt.Errorf("atomic credit: %w", domain.ErrInvalidAmount)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, seen := s.reference[p.ExternalReference]; seen {
		existing := *s.txns[id]
		return &ports.CreditResult{
			Transaction: &existing,
			Wallet:      *s.wallets[existing.WalletID],
		}, fmt.Errorf("reference %q: %w", p.ExternalReference, domain.ErrDuplicateReference)
	}

	w, ok := s.wallets[p.WalletID]
	if !ok {
		return nil, fmt.Errorf("credit wallet %s: %w", p.WalletID, domain.ErrWalletNotFound)
	}
	if !w.CanAbsorb(p.Amount) {
		return nil, fmt.Errorf("credit wallet %s: %w", p.WalletID, domain.ErrBalanceOverflow)
	}

	now := s.now()
	w.Balance += p.Amount
	w.Version++
	w.UpdatedAt = now

	ref := p.ExternalReference
	tx := &domain.Transaction{
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
	s.append(tx)
	s.reference[ref] = tx.ID

	cp := *tx
	return &ports.CreditResult{Transaction: &cp, Wallet: *w}, nil
}

// append must be called with mu held.
func (s *LedgerStore) append(tx *domain.Transaction) {
	s.txns[tx.ID] = tx
	s.journal = append(s.journal, tx.ID)
}

func (s *LedgerStore) GetTransaction(_ context.Context, id uuid.UUID) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.txns[id]
	if !ok {
		return nil, fmt.Errorf("get transaction %s: %w", id, domain.ErrTransactionNotFound)
	}
	cp := *tx
	return &cp, nil
}

// ListTransactions pages through the owner's records, newest first.
func (s *LedgerStore) ListTransactions(_ context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	params.Normalize()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []domain.Transaction
	for i := len(s.journal) - 1; i >= 0; i-- {
		tx := s.txns[s.journal[i]]
		if tx.OwnerID != params.OwnerID {
			continue
		}
		if params.Kind != nil && tx.Kind != *params.Kind {
			continue
		}
		matched = append(matched, *tx)
	}

	total := int64(len(matched))
	start := params.Offset()
	if start >= len(matched) {
		return []domain.Transaction{}, total, nil
	}
	end := start + params.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (s *LedgerStore) GetSummary(_ context.Context, ownerID uuid.UUID, recentLimit int) (*domain.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := &domain.Summary{Recent: []domain.Transaction{}}
	for i := len(s.journal) - 1; i >= 0; i-- {
		tx := s.txns[s.journal[i]]
		if tx.OwnerID != ownerID {
			continue
		}
		summary.TotalCount++
		if tx.Amount < 0 {
			summary.TotalDebited += -tx.Amount
		} else {
			summary.TotalCredited += tx.Amount
		}
		if len(summary.Recent) < recentLimit {
			summary.Recent = append(summary.Recent, *tx)
		}
	}
	return summary, nil
}
