package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransactionKind represents the kind of balance change.
type TransactionKind string

const (
	TransactionKindDeposit    TransactionKind = "deposit"
	TransactionKindWithdrawal TransactionKind = "withdrawal"
	TransactionKindTransfer   TransactionKind = "transfer"
	TransactionKindPayment    TransactionKind = "payment"
)

// IsValid reports whether k is a known kind.
func (k TransactionKind) IsValid() bool {
	switch k {
	case TransactionKindDeposit, TransactionKindWithdrawal, TransactionKindTransfer, TransactionKindPayment:
		return true
	}
	return false
}

// IsTwoParty reports whether records of this kind come in linked pairs.
func (k TransactionKind) IsTwoParty() bool {
	return k == TransactionKindTransfer || k == TransactionKindPayment
}

// TransactionStatus represents the lifecycle state of a ledger entry.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

// Transaction is an immutable ledger entry describing one signed balance change
// on the owner's wallet.
type Transaction struct {
	ID                uuid.UUID         `json:"id"`
	OwnerID           uuid.UUID         `json:"owner_id"`
	WalletID          uuid.UUID         `json:"wallet_id"`
	Kind              TransactionKind   `json:"kind"`
	Amount            int64             `json:"amount"` // Positive = credit, negative = debit
	Currency          string            `json:"currency"`
	Status            TransactionStatus `json:"status"`
	Description       string            `json:"description"`
	CounterpartyID    *uuid.UUID        `json:"counterparty_id,omitempty"`
	LinkedEntryID     *uuid.UUID        `json:"linked_entry_id,omitempty"`
	ExternalReference *string           `json:"external_reference,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
}

// IsTerminal returns true if the entry is no longer pending.
func (t *Transaction) IsTerminal() bool {
	return t.Status == TransactionStatusCompleted || t.Status == TransactionStatusFailed
}

// IsDebit returns true if the entry reduced the owner's balance.
func (t *Transaction) IsDebit() bool {
	return t.Amount < 0
}

// EntryPair is the double-entry result of a two-party movement together with
// the post-commit state of both wallets.
type EntryPair struct {
	Debit        *Transaction
	Credit       *Transaction
	DebitWallet  Wallet
	CreditWallet Wallet
}

// IsBalanced checks double-entry symmetry: amounts negate each other and each
// side links to the other.
func (p *EntryPair) IsBalanced() bool {
	if p.Debit == nil || p.Credit == nil {
		return false
	}
	if p.Debit.Amount+p.Credit.Amount != 0 {
		return false
	}
	if p.Debit.LinkedEntryID == nil || p.Credit.LinkedEntryID == nil {
		return false
	}
	return *p.Debit.LinkedEntryID == p.Credit.ID && *p.Credit.LinkedEntryID == p.Debit.ID
}

// Summary aggregates a party's ledger entries by sign.
type Summary struct {
	TotalCount    int64         `json:"total_count"`
	TotalDebited  int64         `json:"total_debited"`  // Absolute value of all debits
	TotalCredited int64         `json:"total_credited"` // Sum of all credits
	Recent        []Transaction `json:"recent"`
}
