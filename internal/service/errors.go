package service

import (
	"errors"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/pkg/apperror"
)

// translate maps store sentinels onto client-facing errors. Errors that are
// already *apperror.AppError pass through untouched.
func translate(err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}

	switch {
	case errors.Is(err, domain.ErrWalletNotFound):
		return apperror.ErrWalletNotFound(err)
	case errors.Is(err, domain.ErrTransactionNotFound):
		return apperror.ErrTransactionNotFound(err)
	case errors.Is(err, domain.ErrInsufficientFunds):
		return apperror.ErrInsufficientFunds(err)
	case errors.Is(err, domain.ErrBalanceOverflow):
		return apperror.ErrBalanceOverflow(err)
	case errors.Is(err, domain.ErrInvalidAmount):
		return apperror.ErrInvalidAmount(err)
	case errors.Is(err, domain.ErrSelfReferential):
		return apperror.ErrSelfReferential(err)
	case errors.Is(err, domain.ErrCurrencyMismatch):
		return apperror.ErrCurrencyMismatch(err)
	case errors.Is(err, domain.ErrVersionConflict):
		return apperror.ErrBusy(err)
	}
	return apperror.InternalError(err)
}
