package dto

import (
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/internal/service"
	"wallet-ledger/pkg/apperror"

	"github.com/google/uuid"
)

// MaxDescriptionLength bounds free-text descriptions on ledger entries.
const MaxDescriptionLength = 255

// Money carries an amount either as integer minor units or as a major-unit
// decimal string. Exactly one form is expected.
type Money struct {
	Amount        *int64 `json:"amount,omitempty"`
	AmountDecimal string `json:"amount_decimal,omitempty" binding:"omitempty,max=32"`
}

// MinorUnits resolves the amount in minor units. Sign and zero checks are left
// to the ledger so they surface as LED_001.
func (m Money) MinorUnits(exponent int32) (int64, error) {
	switch {
	case m.Amount != nil && m.AmountDecimal != "":
		parsed, err := service.ParseMinorUnits(m.AmountDecimal, exponent)
		if err != nil {
			return 0, err
		}
		if parsed != *m.Amount {
			return 0, apperror.Validation("amount and amount_decimal disagree")
		}
		return parsed, nil
	case m.Amount != nil:
		return *m.Amount, nil
	case m.AmountDecimal != "":
		return service.ParseMinorUnits(m.AmountDecimal, exponent)
	default:
		return 0, apperror.Validation("amount or amount_decimal is required")
	}
}

// OpenWalletRequest is the request body for opening the caller's wallet.
type OpenWalletRequest struct {
	Currency string `json:"currency" binding:"omitempty,currency_code"`
}

// TransferRequest is the request body for a person-to-person transfer.
type TransferRequest struct {
	Money
	RecipientID string `json:"recipient_id" binding:"required,uuid"`
	Description string `json:"description" binding:"max=255"`
}

// PaymentRequest is the request body for paying a merchant.
type PaymentRequest struct {
	Money
	MerchantID  string `json:"merchant_id" binding:"required,uuid"`
	Description string `json:"description" binding:"max=255"`
}

// AddFundsRequest charges a payment method and credits the caller's wallet.
type AddFundsRequest struct {
	Money
	PaymentMethod string `json:"payment_method" binding:"required,max=255,safe_id"`
}

// FundingConfirmationRequest is posted by the gateway once a charge settles.
type FundingConfirmationRequest struct {
	Money
	WalletID       string `json:"wallet_id" binding:"required,uuid"`
	ConfirmationID string `json:"confirmation_id" binding:"required,max=255,safe_id"`
}

// ListTransactionsQuery binds the query string of GET /transactions.
type ListTransactionsQuery struct {
	Kind     string `form:"kind" binding:"omitempty,oneof=deposit withdrawal transfer payment"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// WalletResponse is the response body for wallet queries.
type WalletResponse struct {
	ID             string `json:"id"`
	PartyID        string `json:"party_id"`
	Currency       string `json:"currency"`
	Balance        int64  `json:"balance"`
	BalanceDisplay string `json:"balance_display"`
	Version        int64  `json:"version"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

// TransactionResponse is the response body for a single ledger entry.
type TransactionResponse struct {
	ID                string  `json:"id"`
	WalletID          string  `json:"wallet_id"`
	Kind              string  `json:"kind"`
	Amount            int64   `json:"amount"`
	AmountDisplay     string  `json:"amount_display"`
	Currency          string  `json:"currency"`
	Status            string  `json:"status"`
	Description       string  `json:"description"`
	CounterpartyID    *string `json:"counterparty_id,omitempty"`
	LinkedEntryID     *string `json:"linked_entry_id,omitempty"`
	ExternalReference *string `json:"external_reference,omitempty"`
	CreatedAt         string  `json:"created_at"`
}

// TransferResponse is returned by transfer and payment. Only the caller's
// side and balance are exposed.
type TransferResponse struct {
	Transaction    TransactionResponse `json:"transaction"`
	Balance        int64               `json:"balance"`
	BalanceDisplay string              `json:"balance_display"`
	Attempts       int                 `json:"attempts"`
}

// FundingResponse is returned by add-funds and funding confirmations.
type FundingResponse struct {
	Transaction    TransactionResponse `json:"transaction"`
	Balance        int64               `json:"balance"`
	BalanceDisplay string              `json:"balance_display"`
	Duplicate      bool                `json:"duplicate"`
}

// SummaryResponse aggregates the caller's ledger activity.
type SummaryResponse struct {
	TotalCount           int64                 `json:"total_count"`
	TotalDebited         int64                 `json:"total_debited"`
	TotalDebitedDisplay  string                `json:"total_debited_display"`
	TotalCredited        int64                 `json:"total_credited"`
	TotalCreditedDisplay string                `json:"total_credited_display"`
	Recent               []TransactionResponse `json:"recent"`
}

// Mapper renders domain values with amounts formatted at a fixed exponent.
type Mapper struct {
	Exponent int32
}

func (m Mapper) display(amount int64) string {
	return service.FormatMinorUnits(amount, m.Exponent)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func uuidString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

// Wallet maps a domain wallet.
func (m Mapper) Wallet(w *domain.Wallet) WalletResponse {
	return WalletResponse{
		ID:             w.ID.String(),
		PartyID:        w.PartyID.String(),
		Currency:       w.Currency,
		Balance:        w.Balance,
		BalanceDisplay: m.display(w.Balance),
		Version:        w.Version,
		CreatedAt:      formatTime(w.CreatedAt),
		UpdatedAt:      formatTime(w.UpdatedAt),
	}
}

// Transaction maps a domain ledger entry.
func (m Mapper) Transaction(t *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:                t.ID.String(),
		WalletID:          t.WalletID.String(),
		Kind:              string(t.Kind),
		Amount:            t.Amount,
		AmountDisplay:     m.display(t.Amount),
		Currency:          t.Currency,
		Status:            string(t.Status),
		Description:       t.Description,
		CounterpartyID:    uuidString(t.CounterpartyID),
		LinkedEntryID:     uuidString(t.LinkedEntryID),
		ExternalReference: t.ExternalReference,
		CreatedAt:         formatTime(t.CreatedAt),
	}
}

// Transactions maps a slice of entries. The result is never nil.
func (m Mapper) Transactions(txns []domain.Transaction) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(txns))
	for i := range txns {
		out = append(out, m.Transaction(&txns[i]))
	}
	return out
}

// Transfer maps the caller's side of a completed movement.
func (m Mapper) Transfer(r *ports.TransferResult) TransferResponse {
	return TransferResponse{
		Transaction:    m.Transaction(r.Debit),
		Balance:        r.SourceBalance,
		BalanceDisplay: m.display(r.SourceBalance),
		Attempts:       r.Attempts,
	}
}

// Funding maps a funding outcome.
func (m Mapper) Funding(r *ports.FundingResult) FundingResponse {
	return FundingResponse{
		Transaction:    m.Transaction(r.Transaction),
		Balance:        r.WalletBalance,
		BalanceDisplay: m.display(r.WalletBalance),
		Duplicate:      r.Duplicate,
	}
}

// Summary maps an activity summary.
func (m Mapper) Summary(s *domain.Summary) SummaryResponse {
	return SummaryResponse{
		TotalCount:           s.TotalCount,
		TotalDebited:         s.TotalDebited,
		TotalDebitedDisplay:  m.display(s.TotalDebited),
		TotalCredited:        s.TotalCredited,
		TotalCreditedDisplay: m.display(s.TotalCredited),
		Recent:               m.Transactions(s.Recent),
	}
}
