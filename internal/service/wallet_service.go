package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type walletService struct {
	store           ports.LedgerStore
	defaultCurrency string
	log             zerolog.Logger
}

// NewWalletService creates a new wallet service.
func NewWalletService(store ports.LedgerStore, defaultCurrency string, log zerolog.Logger) ports.WalletService {
	return &walletService{
		store:           store,
		defaultCurrency: strings.ToUpper(defaultCurrency),
		log:             log,
	}
}

// OpenWallet returns the party's wallet, creating an empty one on first call.
// created reports whether this call created it.
func (s *walletService) OpenWallet(ctx context.Context, partyID uuid.UUID, currency string) (*domain.Wallet, bool, error) {
	requested := strings.ToUpper(strings.TrimSpace(currency))

	existing, err := s.store.GetWalletByParty(ctx, partyID)
	switch {
	case err == nil:
		return reuse(existing, requested)
	case !errors.Is(err, domain.ErrWalletNotFound):
		return nil, false, apperror.InternalError(fmt.Errorf("lookup wallet: %w", err))
	}

	currency = requested
	if currency == "" {
		currency = s.defaultCurrency
	}

	wallet := domain.NewWallet(partyID, currency)
	if err := s.store.CreateWallet(ctx, wallet); err != nil {
		if !errors.Is(err, domain.ErrWalletExists) {
			return nil, false, apperror.InternalError(fmt.Errorf("create wallet: %w", err))
		}
		// Lost a concurrent onboarding race; the winner's wallet is the party's wallet.
		existing, err = s.store.GetWalletByParty(ctx, partyID)
		if err != nil {
			return nil, false, translate(fmt.Errorf("reload wallet: %w", err))
		}
		return reuse(existing, requested)
	}

	s.log.Info().
		Str("party_id", partyID.String()).
		Str("wallet_id", wallet.ID.String()).
		Str("currency", currency).
		Msg("wallet opened")

	return wallet, true, nil
}

// reuse returns an existing wallet unless the caller asked for another currency.
func reuse(existing *domain.Wallet, requested string) (*domain.Wallet, bool, error) {
	if requested != "" && existing.Currency != requested {
		return nil, false, apperror.ErrCurrencyMismatch(fmt.Errorf("%w: party already holds a %s wallet",
			domain.ErrCurrencyMismatch, existing.Currency))
	}
	return existing, false, nil
}

// GetWallet returns the party's wallet.
func (s *walletService) GetWallet(ctx context.Context, partyID uuid.UUID) (*domain.Wallet, error) {
	wallet, err := s.store.GetWalletByParty(ctx, partyID)
	if err != nil {
		return nil, translate(fmt.Errorf("get wallet: %w", err))
	}
	return wallet, nil
}
