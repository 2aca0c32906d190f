package service

import (
	"context"
	"fmt"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/google/uuid"
)

const defaultRecentLimit = 5

// reportingService implements ports.ReportingService.
type reportingService struct {
	store       ports.LedgerStore
	recentLimit int
}

// NewReportingService creates a new reporting service.
func NewReportingService(store ports.LedgerStore, recentLimit int) ports.ReportingService {
	if recentLimit <= 0 {
		recentLimit = defaultRecentLimit
	}
	return &reportingService{
		store:       store,
		recentLimit: recentLimit,
	}
}

// GetSummary returns counts and signed totals of the party's ledger plus its most recent entries.
func (s *reportingService) GetSummary(ctx context.Context, partyID uuid.UUID) (*domain.Summary, error) {
	summary, err := s.store.GetSummary(ctx, partyID, s.recentLimit)
	if err != nil {
		return nil, translate(fmt.Errorf("summary: %w", err))
	}
	if summary.Recent == nil {
		summary.Recent = []domain.Transaction{}
	}
	return summary, nil
}

// ListTransactions returns a paginated list of the owner's transactions, newest first.
func (s *reportingService) ListTransactions(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	if params.Kind != nil && !params.Kind.IsValid() {
		return nil, 0, apperror.Validation("invalid kind: must be deposit, withdrawal, transfer, or payment")
	}
	params.Normalize()

	txns, total, err := s.store.ListTransactions(ctx, params)
	if err != nil {
		return nil, 0, translate(fmt.Errorf("list transactions: %w", err))
	}
	return txns, total, nil
}

// GetTransaction returns one record, only to its owner.
func (s *reportingService) GetTransaction(ctx context.Context, partyID, txID uuid.UUID) (*domain.Transaction, error) {
	txn, err := s.store.GetTransaction(ctx, txID)
	if err != nil {
		return nil, translate(fmt.Errorf("get transaction: %w", err))
	}
	if txn.OwnerID != partyID {
		return nil, apperror.ErrForbidden()
	}
	return txn, nil
}
