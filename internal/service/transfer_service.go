package service

import (
	"context"
	"errors"
	"fmt"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// TransferServiceImpl implements ports.TransferService with optimistic
// concurrency: wallets are read without locks and the store compares their
// versions at commit.
type TransferServiceImpl struct {
	store  ports.LedgerStore
	policy RetryPolicy
	log    zerolog.Logger
}

// NewTransferService creates a new TransferServiceImpl.
func NewTransferService(store ports.LedgerStore, policy RetryPolicy, log zerolog.Logger) *TransferServiceImpl {
	return &TransferServiceImpl{
		store:  store,
		policy: policy,
		log:    log,
	}
}

// movement is one two-party balance change, independent of its kind.
type movement struct {
	kind              domain.TransactionKind
	sourcePartyID     uuid.UUID
	destPartyID       uuid.UUID
	amount            int64
	debitDescription  string
	creditDescription string
}

// Transfer moves value from the source party's wallet to the destination party's wallet.
func (s *TransferServiceImpl) Transfer(ctx context.Context, req ports.TransferRequest) (*ports.TransferResult, error) {
	debitDesc, creditDesc := req.Description, req.Description
	if req.Description == "" {
		debitDesc = "Transfer to " + req.DestinationPartyID.String()
		creditDesc = "Transfer from " + req.SourcePartyID.String()
	}

	return s.execute(ctx, movement{
		kind:              domain.TransactionKindTransfer,
		sourcePartyID:     req.SourcePartyID,
		destPartyID:       req.DestinationPartyID,
		amount:            req.Amount,
		debitDescription:  debitDesc,
		creditDescription: creditDesc,
	})
}

// Payment moves value from the payer's wallet to the merchant's wallet.
func (s *TransferServiceImpl) Payment(ctx context.Context, req ports.PaymentRequest) (*ports.TransferResult, error) {
	debitDesc, creditDesc := req.Description, req.Description
	if req.Description == "" {
		debitDesc = "Payment to " + req.MerchantID.String()
		creditDesc = "Payment from " + req.PayerPartyID.String()
	}

	return s.execute(ctx, movement{
		kind:              domain.TransactionKindPayment,
		sourcePartyID:     req.PayerPartyID,
		destPartyID:       req.MerchantID,
		amount:            req.Amount,
		debitDescription:  debitDesc,
		creditDescription: creditDesc,
	})
}

func (s *TransferServiceImpl) execute(ctx context.Context, m movement) (*ports.TransferResult, error) {
	log := s.log.With().
		Str("kind", string(m.kind)).
		Str("source_party_id", m.sourcePartyID.String()).
		Str("dest_party_id", m.destPartyID.String()).
		Int64("amount", m.amount).
		Logger()

	state := domain.StateRequested
	state = transition(log, state, domain.StateValidating)

	if err := ValidateAmount(m.amount); err != nil {
		transition(log, state, domain.StateRejected)
		return nil, err
	}

	maxAttempts := s.policy.attempts()
	var lastConflict error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			state = transition(log, state, domain.StateValidating)
		}

		posting, err := s.prepare(ctx, m)
		if err != nil {
			transition(log, state, domain.StateRejected)
			return nil, err
		}

		state = transition(log, state, domain.StateCommitting)
		pair, err := s.store.AtomicTransfer(ctx, posting)
		if err == nil {
			transition(log, state, domain.StateCompleted)
			log.Info().
				Str("debit_id", pair.Debit.ID.String()).
				Str("credit_id", pair.Credit.ID.String()).
				Int("attempts", attempt).
				Msg("transfer committed")

			return &ports.TransferResult{
				Debit:         pair.Debit,
				Credit:        pair.Credit,
				SourceBalance: pair.DebitWallet.Balance,
				DestBalance:   pair.CreditWallet.Balance,
				Attempts:      attempt,
				State:         domain.StateCompleted,
			}, nil
		}

		if !errors.Is(err, domain.ErrVersionConflict) {
			transition(log, state, domain.StateRejected)
			return nil, translate(fmt.Errorf("atomic transfer: %w", err))
		}

		lastConflict = err
		log.Warn().Int("attempt", attempt).Int("max_attempts", maxAttempts).Msg("wallet version conflict")

		if attempt < maxAttempts {
			if err := sleepWithContext(ctx, s.policy.backoff(attempt)); err != nil {
				transition(log, state, domain.StateBusy)
				return nil, apperror.ErrBusy(err)
			}
		}
	}

	transition(log, state, domain.StateBusy)
	log.Warn().Int("attempts", maxAttempts).Msg("retries exhausted")
	return nil, apperror.ErrBusy(fmt.Errorf("after %d attempts: %w", maxAttempts, lastConflict))
}

// prepare reads both wallets and checks every invariant against the snapshot.
func (s *TransferServiceImpl) prepare(ctx context.Context, m movement) (ports.TransferPosting, error) {
	source, err := s.store.GetWalletByParty(ctx, m.sourcePartyID)
	if err != nil {
		return ports.TransferPosting{}, translate(fmt.Errorf("source wallet: %w", err))
	}
	dest, err := s.store.GetWalletByParty(ctx, m.destPartyID)
	if err != nil {
		return ports.TransferPosting{}, translate(fmt.Errorf("destination wallet: %w", err))
	}

	if err := ValidateDistinctParties(source, dest); err != nil {
		return ports.TransferPosting{}, err
	}
	if err := ValidateSameCurrency(source, dest); err != nil {
		return ports.TransferPosting{}, err
	}
	if err := ValidateSufficientFunds(source, m.amount); err != nil {
		return ports.TransferPosting{}, err
	}
	if err := ValidateCreditHeadroom(dest, m.amount); err != nil {
		return ports.TransferPosting{}, err
	}

	return ports.TransferPosting{
		Kind:              m.kind,
		Debit:             *source,
		Credit:            *dest,
		Amount:            m.amount,
		DebitDescription:  m.debitDescription,
		CreditDescription: m.creditDescription,
	}, nil
}

// transition logs a state change and returns the new state.
func transition(log zerolog.Logger, from, to domain.OperationState) domain.OperationState {
	log.Debug().Str("from", string(from)).Str("to", string(to)).Msg("state transition")
	return to
}
