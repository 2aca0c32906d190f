package ports

//go:generate mockgen -source=services.go -destination=mocks/mock_services.go -package=mocks

import (
	"context"
	"time"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
)

// --- Collaborator Ports ---

// TokenService validates identity tokens issued by the identity provider.
type TokenService interface {
	Generate(partyID uuid.UUID) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	PartyID   uuid.UUID
	ExpiresAt time.Time
}

// PaymentGateway charges an external payment method. Only the add-funds
// handler talks to it; the ledger core never does.
type PaymentGateway interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeConfirmation, error)
}

// ChargeRequest asks the gateway to capture funds from a payment method.
type ChargeRequest struct {
	Amount             int64
	Currency           string
	PaymentMethodToken string
}

// ChargeConfirmation is the gateway's receipt for a captured charge.
type ChargeConfirmation struct {
	ConfirmationID string // Used as the funding idempotency key
	Amount         int64
	Currency       string
	Status         string
}

// AuditService records audited writes without blocking the caller.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}

// --- Service Ports (Business Logic) ---

// TransferService moves value between two parties' wallets.
type TransferService interface {
	Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error)
	Payment(ctx context.Context, req PaymentRequest) (*TransferResult, error)
}

// TransferRequest holds validated input for a peer transfer.
type TransferRequest struct {
	SourcePartyID      uuid.UUID
	DestinationPartyID uuid.UUID
	Amount             int64
	Description        string
}

// PaymentRequest holds validated input for a merchant payment.
type PaymentRequest struct {
	PayerPartyID uuid.UUID
	MerchantID   uuid.UUID // Party id of the merchant
	Amount       int64
	Description  string
}

// TransferResult is the committed outcome of a transfer or payment.
type TransferResult struct {
	Debit         *domain.Transaction
	Credit        *domain.Transaction
	SourceBalance int64
	DestBalance   int64
	Attempts      int
	State         domain.OperationState
}

// FundingService credits wallets from confirmed external fundings.
type FundingService interface {
	Fund(ctx context.Context, req FundingRequest) (*FundingResult, error)
}

// FundingRequest holds a confirmed external funding.
type FundingRequest struct {
	WalletID               uuid.UUID
	Amount                 int64
	ExternalConfirmationID string
}

// FundingResult is the recorded deposit. Duplicate is true when the
// confirmation had already been applied and nothing changed.
type FundingResult struct {
	Transaction   *domain.Transaction
	WalletBalance int64
	Duplicate     bool
	State         domain.OperationState
}

// ReportingService exposes read-only views of a party's ledger.
type ReportingService interface {
	GetSummary(ctx context.Context, partyID uuid.UUID) (*domain.Summary, error)
	ListTransactions(ctx context.Context, params TransactionListParams) ([]domain.Transaction, int64, error)
	GetTransaction(ctx context.Context, partyID, txID uuid.UUID) (*domain.Transaction, error)
}

// WalletService handles wallet onboarding and lookup.
type WalletService interface {
	OpenWallet(ctx context.Context, partyID uuid.UUID, currency string) (*domain.Wallet, bool, error) // wallet, created, error
	GetWallet(ctx context.Context, partyID uuid.UUID) (*domain.Wallet, error)
}
