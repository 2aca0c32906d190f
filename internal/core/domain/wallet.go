package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Wallet is a party's stored balance in minor currency units.
type Wallet struct {
	ID        uuid.UUID `json:"id"`
	PartyID   uuid.UUID `json:"party_id"`
	Currency  string    `json:"currency"`
	Balance   int64     `json:"balance"` // Minor units (cents), never negative
	Version   int64     `json:"version"` // Bumped on every mutation
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasSufficientFunds reports whether the wallet can cover a debit of amount.
func (w *Wallet) HasSufficientFunds(amount int64) bool {
	return w.Balance >= amount
}

// CanAbsorb reports whether crediting amount keeps the balance within int64.
func (w *Wallet) CanAbsorb(amount int64) bool {
	return amount <= math.MaxInt64-w.Balance
}

// NewWallet builds an empty wallet for a party.
func NewWallet(partyID uuid.UUID, currency string) *Wallet {
	now := time.Now().UTC()
	return &Wallet{
		ID:        uuid.New(),
		PartyID:   partyID,
		Currency:  currency,
		Balance:   0,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
