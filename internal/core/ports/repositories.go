package ports

//go:generate mockgen -source=repositories.go -destination=mocks/mock_repositories.go -package=mocks

import (
	"context"
	"time"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
)

// LedgerStore is the durable home of wallets and transaction records.
// Every mutating method is all-or-nothing: either every balance change and
// record it describes is visible to readers, or none is.
type LedgerStore interface {
	// AtomicTransfer debits one wallet and credits another, writing the linked
	// record pair. Both wallets must still carry the snapshot versions in the
	// posting, otherwise domain.ErrVersionConflict is returned and nothing is applied.
	AtomicTransfer(ctx context.Context, posting TransferPosting) (*domain.EntryPair, error)
	// AtomicCredit adds funds to a wallet and records a deposit keyed by the
	// posting's external reference. A reused reference returns the existing
	// record together with domain.ErrDuplicateReference.
	AtomicCredit(ctx context.Context, posting CreditPosting) (*CreditResult, error)

	CreateWallet(ctx context.Context, wallet *domain.Wallet) error
	GetWallet(ctx context.Context, walletID uuid.UUID) (*domain.Wallet, error)
	GetWalletByParty(ctx context.Context, partyID uuid.UUID) (*domain.Wallet, error)

	// Reporting queries
	GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, params TransactionListParams) ([]domain.Transaction, int64, error)
	GetSummary(ctx context.Context, ownerID uuid.UUID, recentLimit int) (*domain.Summary, error)
}

// TransferPosting describes a two-party movement against wallet snapshots.
type TransferPosting struct {
	Kind              domain.TransactionKind // transfer or payment
	Debit             domain.Wallet
	Credit            domain.Wallet
	Amount            int64 // Positive minor units
	DebitDescription  string
	CreditDescription string
}

// CreditPosting describes an externally funded deposit.
type CreditPosting struct {
	WalletID          uuid.UUID
	Amount            int64
	Description       string
	ExternalReference string
}

// CreditResult is the recorded deposit and the wallet balance after it.
type CreditResult struct {
	Transaction *domain.Transaction
	Wallet      domain.Wallet
}

// TransactionListParams holds filter + pagination for listing transactions.
type TransactionListParams struct {
	OwnerID  uuid.UUID
	Kind     *domain.TransactionKind
	Page     int
	PageSize int
}

// Normalize clamps pagination to sane bounds.
func (p *TransactionListParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 10
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}

// Offset returns the row offset of the current page.
func (p TransactionListParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// AuditRepository persists audit entries.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
}

// FundingCache is the Redis-layer lookup of applied funding confirmations (fast path).
type FundingCache interface {
	// Get returns the recorded deposit for a confirmation id, or nil when unknown.
	Get(ctx context.Context, confirmationID string) (*domain.Transaction, error)
	Set(ctx context.Context, confirmationID string, tx *domain.Transaction, ttl time.Duration) error
}

// RateLimitStore counts requests per key in fixed windows.
type RateLimitStore interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (*RateLimitResult, error)
}

// RateLimitResult holds the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   int64 // Unix timestamp
}
