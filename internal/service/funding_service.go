package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/rs/zerolog"
)

const (
	defaultFundingCacheTTL    = 24 * time.Hour
	maxConfirmationIDLength   = 255
	defaultFundingDescription = "Wallet funding"
)

// FundingServiceImpl implements ports.FundingService. Idempotency is keyed by
// the external confirmation id: Redis answers repeated deliveries fast, the
// store's unique reference is the source of truth.
type FundingServiceImpl struct {
	store    ports.LedgerStore
	cache    ports.FundingCache // optional
	cacheTTL time.Duration
	log      zerolog.Logger
}

// NewFundingService creates a new FundingServiceImpl. cache may be nil.
func NewFundingService(store ports.LedgerStore, cache ports.FundingCache, cacheTTL time.Duration, log zerolog.Logger) *FundingServiceImpl {
	if cacheTTL <= 0 {
		cacheTTL = defaultFundingCacheTTL
	}
	return &FundingServiceImpl{
		store:    store,
		cache:    cache,
		cacheTTL: cacheTTL,
		log:      log,
	}
}

// Fund credits a wallet exactly once per external confirmation id.
func (s *FundingServiceImpl) Fund(ctx context.Context, req ports.FundingRequest) (*ports.FundingResult, error) {
	confirmationID := strings.TrimSpace(req.ExternalConfirmationID)
	log := s.log.With().
		Str("wallet_id", req.WalletID.String()).
		Str("confirmation_id", confirmationID).
		Int64("amount", req.Amount).
		Logger()

	state := transition(log, domain.StateRequested, domain.StateValidating)

	if err := ValidateAmount(req.Amount); err != nil {
		transition(log, state, domain.StateRejected)
		return nil, err
	}
	if confirmationID == "" || len(confirmationID) > maxConfirmationIDLength {
		transition(log, state, domain.StateRejected)
		return nil, apperror.Validation("external confirmation id must be 1-255 characters")
	}

	// Layer 1: Redis
	if cached := s.lookupCache(ctx, log, confirmationID); cached != nil {
		if err := checkSameFunding(cached, req); err != nil {
			transition(log, state, domain.StateRejected)
			return nil, err
		}
		wallet, err := s.store.GetWallet(ctx, cached.WalletID)
		if err != nil {
			transition(log, state, domain.StateRejected)
			return nil, translate(fmt.Errorf("wallet of cached funding: %w", err))
		}
		transition(log, state, domain.StateCompleted)
		log.Info().Str("transaction_id", cached.ID.String()).Msg("duplicate funding served from cache")
		return &ports.FundingResult{
			Transaction:   cached,
			WalletBalance: wallet.Balance,
			Duplicate:     true,
			State:         domain.StateCompleted,
		}, nil
	}

	// Layer 2: store
	state = transition(log, state, domain.StateCommitting)
	credit, err := s.store.AtomicCredit(ctx, ports.CreditPosting{
		WalletID:          req.WalletID,
		Amount:            req.Amount,
		Description:       defaultFundingDescription,
		ExternalReference: confirmationID,
	})
	duplicate := errors.Is(err, domain.ErrDuplicateReference)
	if duplicate && (credit == nil || credit.Transaction == nil) {
		transition(log, state, domain.StateRejected)
		return nil, apperror.InternalError(fmt.Errorf("duplicate reference without prior record: %w", err))
	}
	if err != nil && !duplicate {
		transition(log, state, domain.StateRejected)
		return nil, translate(fmt.Errorf("atomic credit: %w", err))
	}

	if duplicate {
		if mismatch := checkSameFunding(credit.Transaction, req); mismatch != nil {
			transition(log, state, domain.StateRejected)
			return nil, mismatch
		}
		log.Info().Str("transaction_id", credit.Transaction.ID.String()).Msg("duplicate funding ignored")
	} else {
		log.Info().
			Str("transaction_id", credit.Transaction.ID.String()).
			Int64("balance", credit.Wallet.Balance).
			Msg("funding committed")
	}

	s.fillCache(ctx, log, confirmationID, credit.Transaction)
	transition(log, state, domain.StateCompleted)

	return &ports.FundingResult{
		Transaction:   credit.Transaction,
		WalletBalance: credit.Wallet.Balance,
		Duplicate:     duplicate,
		State:         domain.StateCompleted,
	}, nil
}

func (s *FundingServiceImpl) lookupCache(ctx context.Context, log zerolog.Logger, confirmationID string) *domain.Transaction {
	if s.cache == nil {
		return nil
	}
	cached, err := s.cache.Get(ctx, confirmationID)
	if err != nil {
		log.Warn().Err(err).Msg("redis funding lookup failed, falling through to store")
		return nil
	}
	return cached
}

func (s *FundingServiceImpl) fillCache(ctx context.Context, log zerolog.Logger, confirmationID string, tx *domain.Transaction) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, confirmationID, tx, s.cacheTTL); err != nil {
		log.Warn().Err(err).Msg("failed to cache funding result")
	}
}

// checkSameFunding rejects a reused confirmation id carrying a different wallet or amount.
func checkSameFunding(prior *domain.Transaction, req ports.FundingRequest) error {
	if prior.WalletID != req.WalletID || prior.Amount != req.Amount {
		return apperror.ErrReferenceMismatch(fmt.Errorf(
			"%w: recorded wallet %s amount %d, got wallet %s amount %d",
			domain.ErrDuplicateReference, prior.WalletID, prior.Amount, req.WalletID, req.Amount))
	}
	return nil
}
