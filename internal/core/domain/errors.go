package domain

import "errors"

// Ledger sentinel errors. Stores wrap these with %w; services translate them
// into apperror values.
var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrSelfReferential     = errors.New("source and destination are the same wallet")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrBalanceOverflow     = errors.New("credit would overflow wallet balance")
	ErrCurrencyMismatch    = errors.New("wallet currencies differ")
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrWalletExists        = errors.New("wallet already exists for party")
	ErrVersionConflict     = errors.New("wallet version conflict")
	ErrDuplicateReference  = errors.New("external reference already applied")
	ErrTransactionNotFound = errors.New("transaction not found")
)
